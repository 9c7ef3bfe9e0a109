//go:generate go run go.uber.org/mock/mockgen -source=chat_service.go -destination=../mocks/mock_chat_service.go -package=mocks
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"hobbyhub/domain"
	"hobbyhub/moderation"
	"hobbyhub/repositories"
	"hobbyhub/search"
)

// ResolvedSender is the display identity attached to a broadcast message.
type ResolvedSender struct {
	ID             string `json:"_id"`
	Username       string `json:"username,omitempty"`
	ProfilePicture string `json:"profilePicture,omitempty"`
}

// ResolvedMessage is a persisted message with the sender reference replaced by
// the sender's display identity, ready for broadcast.
type ResolvedMessage struct {
	ID           uuid.UUID          `json:"_id"`
	Group        string             `json:"group"`
	Sender       ResolvedSender     `json:"sender"`
	Kind         domain.MessageKind `json:"type"`
	Content      string             `json:"content,omitempty"`
	PollQuestion string             `json:"pollQuestion,omitempty"`
	PollOptions  []domain.PollOption `json:"pollOptions,omitempty"`
	CreatedAt    time.Time          `json:"createdAt"`
}

// SendCommand carries a normalized send_message request.
type SendCommand struct {
	GroupID      string
	SenderID     string
	Kind         domain.MessageKind
	Content      string
	PollQuestion string
	PollOptions  []string
}

type IChatService interface {
	Send(cmd SendCommand) (ResolvedMessage, error)
	VotePoll(messageID uuid.UUID, optionIndex int, userID string) (ResolvedMessage, error)
	History(group string, cursor *string) ([]ResolvedMessage, *string, error)
	Search(ctx context.Context, group, rawQuery string) ([]ResolvedMessage, error)
}

// ChatService implements the structured group-chat pathway:
// sanitize, persist, index, resolve sender, hand back for broadcast.
type ChatService struct {
	messages  repositories.IMessageRepository
	users     repositories.IUserRepository
	index     *search.Index
	moderator *moderation.Moderator
	log       *slog.Logger
}

func NewChatService(messages repositories.IMessageRepository, users repositories.IUserRepository,
	index *search.Index, moderator *moderation.Moderator, log *slog.Logger) *ChatService {
	return &ChatService{messages: messages, users: users, index: index, moderator: moderator, log: log}
}

// Send sanitizes the content, persists the message and returns it resolved for
// broadcast. Poll question and option labels are not sanitized; only the free
// content field is. On error nothing was broadcast-worthy: the caller logs and
// drops, the sender gets no signal.
func (s *ChatService) Send(cmd SendCommand) (ResolvedMessage, error) {
	content, hits := s.moderator.Censor(cmd.Content)
	if len(hits) > 0 {
		s.log.Info("Censored message content",
			"group", cmd.GroupID,
			"sender", cmd.SenderID,
			"words", len(hits),
			"lang", moderation.DetectLanguage(cmd.Content))
	}

	message := domain.Message{
		ID:           uuid.New(),
		Group:        cmd.GroupID,
		Sender:       cmd.SenderID,
		Kind:         cmd.Kind,
		Content:      content,
		PollQuestion: cmd.PollQuestion,
		CreatedAt:    time.Now().UTC(),
	}
	if cmd.Kind == domain.KindPoll {
		message.PollOptions = domain.NewPollOptions(cmd.PollOptions)
	}

	if err := s.messages.Create(message); err != nil {
		return ResolvedMessage{}, fmt.Errorf("persisting message: %w", err)
	}

	// The record is durable at this point; a failed index update only degrades
	// search, so it must not block delivery.
	if err := s.index.Add(message); err != nil {
		s.log.Warn("Indexing message failed", "id", message.ID, "error", err)
	}

	return s.resolve(message), nil
}

// VotePoll toggles userID's vote on the option and returns the updated message
// resolved for a poll_updated broadcast.
func (s *ChatService) VotePoll(messageID uuid.UUID, optionIndex int, userID string) (ResolvedMessage, error) {
	message, err := s.messages.ToggleVote(messageID, optionIndex, userID)
	if err != nil {
		return ResolvedMessage{}, err
	}
	return s.resolve(message), nil
}

// History returns a page of the group's messages, most recent first, with the
// cursor to fetch the next page.
func (s *ChatService) History(group string, cursor *string) ([]ResolvedMessage, *string, error) {
	messages, next, err := s.messages.ListByGroup(group, cursor)
	if err != nil {
		return nil, nil, err
	}
	resolved := lo.Map(messages, func(m domain.Message, _ int) ResolvedMessage {
		return s.resolve(m)
	})
	return resolved, next, nil
}

// Search runs a full-text query over the group's history.
func (s *ChatService) Search(ctx context.Context, group, rawQuery string) ([]ResolvedMessage, error) {
	query := search.ParseQuery(rawQuery)
	ids, err := s.index.Search(ctx, group, query.Terms, query.Limit)
	if err != nil {
		return nil, err
	}

	var results []ResolvedMessage
	for _, id := range ids {
		message, err := s.messages.FindByID(id)
		if err != nil {
			// Index entries may outlive records deleted by the CRUD surface
			s.log.Debug("Indexed message missing from store", "id", id)
			continue
		}
		results = append(results, s.resolve(message))
	}
	return results, nil
}

// resolve looks up the sender's display identity. A failed lookup degrades to
// an id-only sender; the message is still delivered.
func (s *ChatService) resolve(message domain.Message) ResolvedMessage {
	sender := ResolvedSender{ID: message.Sender}
	if user, err := s.users.FindByID(message.Sender); err == nil {
		sender.Username = user.Username
		sender.ProfilePicture = user.ProfilePicture
	} else {
		s.log.Warn("Sender lookup failed", "sender", message.Sender, "error", err)
	}

	return ResolvedMessage{
		ID:           message.ID,
		Group:        message.Group,
		Sender:       sender,
		Kind:         message.Kind,
		Content:      message.Content,
		PollQuestion: message.PollQuestion,
		PollOptions:  message.PollOptions,
		CreatedAt:    message.CreatedAt,
	}
}
