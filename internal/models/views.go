package models

// LikeResult is the outcome of a like toggle: the caller's resulting like
// state and the post's like count as committed by the same atomic unit.
type LikeResult struct {
	PostID     uint `json:"post_id"`
	Liked      bool `json:"liked"`
	LikesCount int  `json:"likes_count"`
}

// CommentView is a comment joined with its author's username.
type CommentView struct {
	ID        uint      `json:"id"`
	Body      string    `json:"body"`
	CreatedAt Timestamp `json:"created_at"`
	PostID    uint      `json:"post_id"`
	AuthorID  uint      `json:"author_id"`
	Author    string    `json:"author"`
}

// PostDetails is a post with everything a reader sees: author, counters,
// the viewer's like state, comments and the usernames of likers.
type PostDetails struct {
	ID            uint          `json:"id"`
	Title         string        `json:"title"`
	Body          string        `json:"body"`
	CreatedAt     Timestamp     `json:"created_at"`
	AuthorID      uint          `json:"author_id"`
	Author        string        `json:"author"`
	LikesCount    int           `json:"likes_count"`
	CommentsCount int           `json:"comments_count"`
	HasLiked      bool          `gorm:"-" json:"has_liked"`
	Comments      []CommentView `gorm:"-" json:"comments"`
	LikedUsers    []string      `gorm:"-" json:"liked_users"`
}

// PostSummary is a post row joined with its author's username.
type PostSummary struct {
	ID            uint      `json:"id"`
	Title         string    `json:"title"`
	Body          string    `json:"body"`
	CreatedAt     Timestamp `json:"created_at"`
	AuthorID      uint      `json:"author_id"`
	Author        string    `json:"author"`
	LikesCount    int       `json:"likes_count"`
	CommentsCount int       `json:"comments_count"`
}

// Profile is a user's public page.
type Profile struct {
	ID       uint    `json:"id"`
	Username string  `json:"username"`
	Email    string  `json:"email"`
	Posts    []*Post `json:"posts"`
}

// UserSummary is the id/username pair used in listings.
type UserSummary struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
}

// MessageView is a message joined with its sender's username.
type MessageView struct {
	ID             uint      `json:"id"`
	ConversationID uint      `json:"conversation_id"`
	SenderID       uint      `json:"sender_id"`
	SenderUsername string    `json:"sender_username"`
	Body           string    `json:"body"`
	SentAt         Timestamp `json:"sent_at"`
	IsRead         bool      `json:"is_read"`
}

// ConversationSummary is one inbox row. LastMessage and LastMessageAt are nil
// for a conversation that has no messages yet.
type ConversationSummary struct {
	ConversationID uint       `json:"conversation_id"`
	OtherUserID    uint       `json:"other_user_id"`
	OtherUsername  string     `json:"other_username"`
	LastMessage    *string    `json:"last_message"`
	LastMessageAt  *Timestamp `json:"last_message_at"`
	UnreadCount    int64      `json:"unread_count"`
	CreatedAt      Timestamp  `json:"created_at"`
}

// OpenedConversation is what a participant sees when entering a thread.
type OpenedConversation struct {
	ConversationID uint          `json:"conversation_id"`
	OtherUserID    uint          `json:"other_user_id"`
	OtherUsername  string        `json:"other_username"`
	Messages       []MessageView `json:"messages"`
	MarkedRead     int64         `json:"marked_read"`
}

// AdminOverview is the moderation dashboard.
type AdminOverview struct {
	Admins []UserSummary  `json:"admins"`
	Users  []UserSummary  `json:"users"`
	Posts  []*PostSummary `json:"posts"`
}

// CounterDrift reports a post whose denormalized counters disagree with the
// row counts they summarize.
type CounterDrift struct {
	PostID        uint  `json:"post_id"`
	LikesCount    int64 `json:"likes_count"`
	LikeRows      int64 `json:"like_rows"`
	CommentsCount int64 `json:"comments_count"`
	CommentRows   int64 `json:"comment_rows"`
}
