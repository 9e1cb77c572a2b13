package service

import (
	"context"
	"errors"

	"viktor/internal/events"
	"viktor/internal/models"
	"viktor/internal/observability"
	"viktor/internal/repository"
)

// ChatService provides conversation and message business logic.
type ChatService struct {
	chatRepo repository.ChatRepository
	userRepo repository.UserRepository
	events   *events.Publisher
}

// NewChatService returns a new ChatService.
func NewChatService(
	chatRepo repository.ChatRepository,
	userRepo repository.UserRepository,
	publisher *events.Publisher,
) *ChatService {
	return &ChatService{
		chatRepo: chatRepo,
		userRepo: userRepo,
		events:   publisher,
	}
}

// FindOrCreateConversation returns the id of the single conversation between
// a and b, in either argument order.
func (s *ChatService) FindOrCreateConversation(ctx context.Context, a, b uint) (id uint, err error) {
	span, ctx := observability.NewSpan(ctx, "chat.find_or_create",
		observability.IDAttr("user.a", a),
		observability.IDAttr("user.b", b),
	)
	defer func() { finishSpan(ctx, span, "find_or_create_conversation", err) }()

	conv, created, err := s.chatRepo.FindOrCreateConversation(ctx, a, b)
	if err != nil {
		return 0, err
	}
	if created {
		observability.GlobalLogger.InfoContext(ctx, "conversation created",
			"conversation_id", conv.ID,
			"user1_id", conv.User1ID,
			"user2_id", conv.User2ID,
		)
	}
	return conv.ID, nil
}

// SendMessage appends an unread message from senderID to the conversation.
func (s *ChatService) SendMessage(ctx context.Context, conversationID, senderID uint, body string) (msg *models.Message, err error) {
	ctx = observability.WithUserID(ctx, senderID)
	span, ctx := observability.NewSpan(ctx, "chat.send_message",
		observability.IDAttr("conversation.id", conversationID),
		observability.IDAttr("user.id", senderID),
	)
	defer func() { finishSpan(ctx, span, "send_message", err) }()

	if body, err = requireText(body, "Message", maxMessageLen); err != nil {
		return nil, err
	}

	conv, err := s.chatRepo.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.Involves(senderID) {
		return nil, models.NewValidationError("Sender is not a participant in this conversation")
	}

	msg = &models.Message{ConversationID: conv.ID, SenderID: senderID, Body: body}
	if err := s.chatRepo.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}

	s.events.MessageSent(ctx, events.MessageSent{
		ConversationID: conv.ID,
		MessageID:      msg.ID,
		SenderID:       senderID,
		Body:           msg.Body,
	})
	s.publishUnread(ctx, conv.Counterpart(senderID))
	return msg, nil
}

// SendTo delivers a message from senderID to recipientID, opening their
// conversation on first contact.
func (s *ChatService) SendTo(ctx context.Context, senderID, recipientID uint, body string) (*models.Message, error) {
	ctx = observability.WithUserID(ctx, senderID)
	if _, err := requireText(body, "Message", maxMessageLen); err != nil {
		return nil, err
	}
	convID, err := s.FindOrCreateConversation(ctx, senderID, recipientID)
	if err != nil {
		return nil, err
	}
	return s.SendMessage(ctx, convID, senderID, body)
}

// MarkRead marks every message readerID received in the conversation as
// read and returns how many changed. Repeating it is harmless; an unknown
// conversation is NotFound.
func (s *ChatService) MarkRead(ctx context.Context, conversationID, readerID uint) (changed int64, err error) {
	ctx = observability.WithUserID(ctx, readerID)
	span, ctx := observability.NewSpan(ctx, "chat.mark_read",
		observability.IDAttr("conversation.id", conversationID),
		observability.IDAttr("user.id", readerID),
	)
	defer func() { finishSpan(ctx, span, "mark_read", err) }()

	if _, err := s.chatRepo.GetConversation(ctx, conversationID); err != nil {
		return 0, err
	}
	changed, err = s.chatRepo.MarkRead(ctx, conversationID, readerID)
	if err != nil {
		return 0, err
	}
	if changed > 0 {
		s.publishUnread(ctx, readerID)
	}
	return changed, nil
}

// UnreadTotal counts the messages userID has not read across all of their
// conversations.
func (s *ChatService) UnreadTotal(ctx context.Context, userID uint) (total int64, err error) {
	span, ctx := observability.NewSpan(ctx, "chat.unread_total", observability.IDAttr("user.id", userID))
	defer func() { finishSpan(ctx, span, "unread_total", err) }()

	return s.chatRepo.UnreadTotal(ctx, userID)
}

// Messages lists a conversation oldest first.
func (s *ChatService) Messages(ctx context.Context, conversationID uint) (msgs []models.MessageView, err error) {
	span, ctx := observability.NewSpan(ctx, "chat.messages", observability.IDAttr("conversation.id", conversationID))
	defer func() { finishSpan(ctx, span, "messages", err) }()

	if _, err := s.chatRepo.GetConversation(ctx, conversationID); err != nil {
		return nil, err
	}
	return s.chatRepo.GetMessages(ctx, conversationID)
}

// OpenConversation is what happens when userID enters the thread with
// otherID: the conversation is created if needed, its messages are listed
// and everything addressed to userID is marked read.
func (s *ChatService) OpenConversation(ctx context.Context, userID, otherID uint) (*models.OpenedConversation, error) {
	ctx = observability.WithUserID(ctx, userID)
	convID, err := s.FindOrCreateConversation(ctx, userID, otherID)
	if err != nil {
		return nil, err
	}

	other, err := s.userRepo.GetByID(ctx, otherID)
	if err != nil {
		return nil, err
	}

	msgs, err := s.Messages(ctx, convID)
	if err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []models.MessageView{}
	}

	changed, err := s.MarkRead(ctx, convID, userID)
	if err != nil {
		return nil, err
	}

	return &models.OpenedConversation{
		ConversationID: convID,
		OtherUserID:    other.ID,
		OtherUsername:  other.Username,
		Messages:       msgs,
		MarkedRead:     changed,
	}, nil
}

func (s *ChatService) publishUnread(ctx context.Context, userID uint) {
	if !s.events.Enabled() {
		return
	}
	total, err := s.chatRepo.UnreadTotal(ctx, userID)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			observability.GlobalLogger.WarnContext(ctx, "unread total for notification failed",
				"user_id", userID,
				"error", err.Error(),
			)
		}
		return
	}
	s.events.UnreadChanged(ctx, events.UnreadChanged{UserID: userID, UnreadTotal: total})
}
