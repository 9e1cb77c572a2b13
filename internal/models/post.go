package models

// Post represents a post. CommentsCount and LikesCount are denormalized
// counters kept equal to the number of comment and like rows for the post.
type Post struct {
	ID            uint      `gorm:"primaryKey;column:id" json:"id"`
	CreatedAt     Timestamp `gorm:"column:createdDate;index:idx_posts_created" json:"created_at"`
	Title         string    `gorm:"column:title;not null" json:"title"`
	Body          string    `gorm:"column:body;type:text;not null" json:"body"`
	AuthorID      uint      `gorm:"column:authorId;not null;index:idx_posts_author" json:"author_id"`
	Author        *User     `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"-"`
	CommentsCount int       `gorm:"column:commentsCount;not null;default:0" json:"comments_count"`
	LikesCount    int       `gorm:"column:likesCount;not null;default:0" json:"likes_count"`
}

// TableName specifies the table name for GORM
func (Post) TableName() string {
	return "posts"
}
