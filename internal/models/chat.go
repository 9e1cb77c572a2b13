package models

import (
	"gorm.io/gorm"
)

// Conversation is the private thread between exactly two users. The pair is
// stored ordered: User1ID is always the numerically smaller id.
type Conversation struct {
	ID        uint      `gorm:"primaryKey;column:id" json:"id"`
	User1ID   uint      `gorm:"column:user1Id;not null;uniqueIndex:idx_conversations_pair,priority:1" json:"user1_id"`
	User1     *User     `gorm:"foreignKey:User1ID;constraint:OnDelete:CASCADE" json:"-"`
	User2ID   uint      `gorm:"column:user2Id;not null;uniqueIndex:idx_conversations_pair,priority:2;index:idx_conversations_user2" json:"user2_id"`
	User2     *User     `gorm:"foreignKey:User2ID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt Timestamp `gorm:"column:createdDate;not null" json:"created_at"`
}

// TableName specifies the table name for GORM
func (Conversation) TableName() string {
	return "conversations"
}

// BeforeCreate ensures User1ID < User2ID for consistent ordering
func (c *Conversation) BeforeCreate(_ *gorm.DB) error {
	lower, higher, err := NormalizePair(c.User1ID, c.User2ID)
	if err != nil {
		return err
	}
	c.User1ID, c.User2ID = lower, higher
	return nil
}

// Involves reports whether userID is one of the two participants.
func (c *Conversation) Involves(userID uint) bool {
	return c.User1ID == userID || c.User2ID == userID
}

// Counterpart returns the participant that is not userID.
func (c *Conversation) Counterpart(userID uint) uint {
	if c.User1ID == userID {
		return c.User2ID
	}
	return c.User1ID
}

// Message represents a private message. Only IsRead ever changes after insert.
type Message struct {
	ID             uint          `gorm:"primaryKey;column:id" json:"id"`
	ConversationID uint          `gorm:"column:conversationId;not null;index:idx_messages_conversation" json:"conversation_id"`
	Conversation   *Conversation `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE" json:"-"`
	SenderID       uint          `gorm:"column:senderId;not null;index:idx_messages_sender" json:"sender_id"`
	Sender         *User         `gorm:"foreignKey:SenderID;constraint:OnDelete:CASCADE" json:"-"`
	Body           string        `gorm:"column:message;type:text;not null" json:"body"`
	SentAt         Timestamp     `gorm:"column:sentDate;not null" json:"sent_at"`
	IsRead         bool          `gorm:"column:isRead;not null;default:false" json:"is_read"`
}

// TableName specifies the table name for GORM
func (Message) TableName() string {
	return "messages"
}
