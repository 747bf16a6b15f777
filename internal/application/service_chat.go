package application

import (
	"context"

	"github.com/google/uuid"

	"github.com/openhours/timebank/internal/domain"
	"github.com/openhours/timebank/internal/ports"
)

// SendChatMessage persists a direct message and pushes it at the receiver's
// live sessions. Persistence is the source of truth; relay delivery is best
// effort and an offline receiver reads the message from history later.
func (s *Service) SendChatMessage(ctx context.Context, senderID uuid.UUID, req ChatSendRequest) (ChatMessageItem, error) {
	if err := domain.ValidateChatBody(req.Content); err != nil {
		return ChatMessageItem{}, err
	}
	if req.ReceiverID == uuid.Nil || req.ReceiverID == senderID {
		return ChatMessageItem{}, domain.ErrInvalidInput
	}
	receiver, err := s.users.GetByID(ctx, req.ReceiverID)
	if err != nil {
		return ChatMessageItem{}, err
	}
	if !receiver.IsActive {
		return ChatMessageItem{}, domain.ErrNotFound
	}

	message := domain.ChatMessage{
		MessageID:  uuid.New(),
		SenderID:   senderID,
		ReceiverID: receiver.UserID,
		Body:       req.Content,
		SentAt:     s.nowFn(),
	}
	if err := s.chat.Append(ctx, message); err != nil {
		return ChatMessageItem{}, err
	}

	item := toChatItem(message)
	s.relay.EmitToUser(receiver.UserID, ports.RelayEventChatMessage, item)
	return item, nil
}

// Conversation returns the message history between the caller and another
// user, oldest first, with the counterpart's live presence resolved.
func (s *Service) Conversation(ctx context.Context, callerID, otherID uuid.UUID) (ConversationResponse, error) {
	if _, err := s.users.GetByID(ctx, otherID); err != nil {
		return ConversationResponse{}, err
	}
	messages, err := s.chat.ListConversation(ctx, callerID, otherID, s.cfg.ChatHistoryLimit)
	if err != nil {
		return ConversationResponse{}, err
	}

	items := make([]ChatMessageItem, 0, len(messages))
	for _, m := range messages {
		items = append(items, toChatItem(m))
	}
	online, _ := s.presence.IsOnline(ctx, otherID)
	return ConversationResponse{
		Messages:          items,
		CounterpartOnline: online,
	}, nil
}

func toChatItem(m domain.ChatMessage) ChatMessageItem {
	return ChatMessageItem{
		MessageID:  m.MessageID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Content:    m.Body,
		SentAt:     m.SentAt,
	}
}
