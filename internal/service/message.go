package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/petmatch/petmatch/internal/apperror"
	"github.com/petmatch/petmatch/internal/model"
	"github.com/petmatch/petmatch/internal/repository"
)

// PreviewLength is how many characters of a message the receiver's
// notification quotes.
const PreviewLength = 50

// MessageStore is the slice of the store MessageService reads and writes.
type MessageStore interface {
	repository.MessageRepository
	repository.UserRepository
	repository.NotificationRepository
}

// MessageService stores messages between users about a pet. Messages are
// immutable once sent.
type MessageService struct {
	store    MessageStore
	notifier notifier
	logger   *slog.Logger
}

// NewMessageService creates a MessageService. publisher may be nil.
func NewMessageService(store MessageStore, publisher Publisher, logger *slog.Logger) *MessageService {
	return &MessageService{
		store:    store,
		notifier: notifier{notes: store, publisher: publisher, logger: logger},
		logger:   logger,
	}
}

type SendInput struct {
	SenderID   string
	ReceiverID string
	PetID      string
	Content    string
}

// Send stores the message, then tells the receiver about it. The
// notification is best effort: a failure there still returns the message.
func (s *MessageService) Send(ctx context.Context, in SendInput) (*model.Message, error) {
	for _, v := range []string{in.SenderID, in.ReceiverID, in.PetID, in.Content} {
		if strings.TrimSpace(v) == "" {
			return nil, apperror.ValidationFailed("",
				"All fields are required (senderId, receiverId, petId, content)")
		}
	}

	msg := &model.Message{
		SenderID:   in.SenderID,
		ReceiverID: in.ReceiverID,
		PetID:      in.PetID,
		Content:    in.Content,
	}
	if err := s.store.CreateMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("storing message: %w", err)
	}

	s.logger.Info("message sent",
		slog.String("messageID", msg.ID),
		slog.String("senderID", msg.SenderID),
		slog.String("receiverID", msg.ReceiverID),
		slog.String("petID", msg.PetID),
	)

	sender := "A user"
	if u, err := s.store.GetUserByID(ctx, in.SenderID); err == nil && u.Username != "" {
		sender = u.Username
	}
	s.notifier.notify(ctx, in.ReceiverID,
		fmt.Sprintf("%s sent you a message about a pet: \"%s\"", sender, Preview(in.Content)))

	return msg, nil
}

// ForUser returns every message the user sent or received, newest first.
func (s *MessageService) ForUser(ctx context.Context, userID string) ([]model.MessageView, error) {
	if err := required(field{"userId", userID}); err != nil {
		return nil, err
	}
	msgs, err := s.store.ListMessagesForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	return msgs, nil
}

// Conversations groups the user's messages by pet and counterpart.
func (s *MessageService) Conversations(ctx context.Context, userID string) ([]model.Conversation, error) {
	msgs, err := s.ForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return GroupConversations(userID, msgs), nil
}

// Preview is the first PreviewLength characters of content, with "..."
// appended when anything was cut.
func Preview(content string) string {
	runes := []rune(content)
	if len(runes) <= PreviewLength {
		return content
	}
	return string(runes[:PreviewLength]) + "..."
}

// GroupConversations groups msgs into one conversation per (pet,
// counterpart) pair. Messages inside a conversation are oldest first;
// conversations are ordered by their latest message, newest first.
// Messages whose sender or receiver no longer exists are skipped.
func GroupConversations(userID string, msgs []model.MessageView) []model.Conversation {
	byKey := make(map[string]*model.Conversation)
	var order []*model.Conversation

	for _, m := range msgs {
		if m.Sender == nil || m.Receiver == nil {
			continue
		}
		other := m.Sender
		if m.Sender.ID == userID {
			other = m.Receiver
		}

		key := m.PetID + "-" + other.ID
		c, ok := byKey[key]
		if !ok {
			c = &model.Conversation{ID: key, Pet: m.Pet, OtherPerson: other}
			byKey[key] = c
			order = append(order, c)
		}
		c.Messages = append(c.Messages, m)
	}

	out := make([]model.Conversation, 0, len(order))
	for _, c := range order {
		sort.SliceStable(c.Messages, func(i, j int) bool {
			return earlier(c.Messages[i], c.Messages[j])
		})
		c.LastMessage = c.Messages[len(c.Messages)-1]
		out = append(out, *c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return earlier(out[j].LastMessage, out[i].LastMessage)
	})
	return out
}

// earlier orders by creation time, then id (ids sort by creation).
func earlier(a, b model.MessageView) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}
