package models

// Like represents a user's like on a post.
// The combination of PostID and AuthorID must be unique.
type Like struct {
	ID       uint  `gorm:"primaryKey;column:id" json:"id"`
	PostID   uint  `gorm:"column:postId;not null;uniqueIndex:idx_likes_post_author,priority:1" json:"post_id"`
	Post     *Post `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
	AuthorID uint  `gorm:"column:authorId;not null;uniqueIndex:idx_likes_post_author,priority:2;index:idx_likes_author" json:"author_id"`
	Author   *User `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for GORM
func (Like) TableName() string {
	return "likes"
}
