// Package events publishes post-commit change notifications into Redis channels.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"viktor/internal/observability"

	"github.com/redis/go-redis/v9"
)

// Event kinds, also used as the metric label for publish failures.
const (
	KindLikeChanged   = "like_changed"
	KindCommentAdded  = "comment_added"
	KindMessageSent   = "message_sent"
	KindUnreadChanged = "unread_changed"
)

// Event is the JSON envelope written to every channel.
type Event struct {
	Kind       string    `json:"kind"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       any       `json:"data"`
}

// LikeChanged is published on PostLikesChannel after a committed toggle.
type LikeChanged struct {
	PostID     uint `json:"post_id"`
	UserID     uint `json:"user_id"`
	Liked      bool `json:"liked"`
	LikesCount int  `json:"likes_count"`
}

// CommentAdded is published on PostCommentsChannel.
type CommentAdded struct {
	PostID    uint `json:"post_id"`
	CommentID uint `json:"comment_id"`
	AuthorID  uint `json:"author_id"`
}

// MessageSent is published on ConversationChannel.
type MessageSent struct {
	ConversationID uint   `json:"conversation_id"`
	MessageID      uint   `json:"message_id"`
	SenderID       uint   `json:"sender_id"`
	Body           string `json:"body"`
}

// UnreadChanged is published on UserChannel with the user's fresh total.
type UnreadChanged struct {
	UserID      uint  `json:"user_id"`
	UnreadTotal int64 `json:"unread_total"`
}

// Publisher writes events to Redis. A nil Publisher or a Publisher without a
// client is a no-op; failures are logged and counted, never returned.
type Publisher struct {
	rdb *redis.Client
	now func() time.Time
}

// NewPublisher creates a new Publisher using the provided Redis client.
func NewPublisher(rdb *redis.Client) *Publisher {
	return &Publisher{rdb: rdb, now: time.Now}
}

// Enabled reports whether events actually leave the process.
func (p *Publisher) Enabled() bool {
	return p != nil && p.rdb != nil
}

// PostLikesChannel returns the channel for like changes on a post.
func PostLikesChannel(postID uint) string {
	return fmt.Sprintf("post:%d:likes", postID)
}

// PostCommentsChannel returns the channel for new comments on a post.
func PostCommentsChannel(postID uint) string {
	return fmt.Sprintf("post:%d:comments", postID)
}

// ConversationChannel returns the channel for new messages in a conversation.
func ConversationChannel(conversationID uint) string {
	return fmt.Sprintf("chat:conv:%d", conversationID)
}

// UserChannel returns the per-user notification channel.
func UserChannel(userID uint) string {
	return fmt.Sprintf("notifications:user:%d", userID)
}

// LikeChanged publishes a committed like toggle.
func (p *Publisher) LikeChanged(ctx context.Context, e LikeChanged) {
	p.publish(ctx, PostLikesChannel(e.PostID), KindLikeChanged, e)
}

// CommentAdded publishes a committed comment.
func (p *Publisher) CommentAdded(ctx context.Context, e CommentAdded) {
	p.publish(ctx, PostCommentsChannel(e.PostID), KindCommentAdded, e)
}

// MessageSent publishes a committed message.
func (p *Publisher) MessageSent(ctx context.Context, e MessageSent) {
	p.publish(ctx, ConversationChannel(e.ConversationID), KindMessageSent, e)
}

// UnreadChanged publishes a user's new unread total.
func (p *Publisher) UnreadChanged(ctx context.Context, e UnreadChanged) {
	p.publish(ctx, UserChannel(e.UserID), KindUnreadChanged, e)
}

func (p *Publisher) publish(ctx context.Context, channel, kind string, data any) {
	if !p.Enabled() {
		return
	}
	payload, err := json.Marshal(Event{Kind: kind, OccurredAt: p.now().UTC(), Data: data})
	if err == nil {
		err = p.rdb.Publish(ctx, channel, payload).Err()
	}
	if err != nil {
		observability.EventPublishErrors.WithLabelValues(kind).Inc()
		observability.GlobalLogger.WarnContext(ctx, "event publish failed",
			slog.String("channel", channel),
			slog.String("kind", kind),
			slog.String("error", err.Error()),
		)
	}
}

// Subscribe listens on the given channel patterns and calls onMessage for
// each payload until ctx is done.
func (p *Publisher) Subscribe(ctx context.Context, patterns []string, onMessage func(channel, payload string)) error {
	if !p.Enabled() {
		return nil
	}
	sub := p.rdb.PSubscribe(ctx, patterns...)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %v: %w", patterns, err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							observability.GlobalLogger.Error("panic in event subscriber",
								slog.Any("panic", r),
								slog.String("stack", string(debug.Stack())),
							)
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}
