package models

// Comment represents a comment on a post. Comments are immutable once written.
type Comment struct {
	ID        uint      `gorm:"primaryKey;column:id" json:"id"`
	Body      string    `gorm:"column:comment;type:text;not null" json:"body"`
	CreatedAt Timestamp `gorm:"column:createdDate;not null" json:"created_at"`
	PostID    uint      `gorm:"column:postId;not null;index:idx_comments_post" json:"post_id"`
	Post      *Post     `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
	AuthorID  uint      `gorm:"column:authorId;not null;index:idx_comments_author" json:"author_id"`
	Author    *User     `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for GORM
func (Comment) TableName() string {
	return "comments"
}
