package services

import (
	"log/slog"

	"hobbyhub/errors"
	"hobbyhub/moderation"
	"hobbyhub/presence"
	"hobbyhub/repositories"
)

// MaskToken replaces the whole content of a chat-blocked user's message.
// The message is still broadcast so the sender does not learn about the block.
const MaskToken = "****"

// DefaultAnonymousName labels participants who never announced themselves.
const DefaultAnonymousName = "Anonymous"

// ChatPayload is the triple broadcast to every connected client for one
// anonymous chat message.
type ChatPayload struct {
	Message        string `json:"message"`
	Name           string `json:"name"`
	ProfilePicture string `json:"profilePicture,omitempty"`
}

// AnonymousService implements the ephemeral global chat pathway: presence
// registration, moderation, block-check redaction. Nothing here is persisted.
type AnonymousService struct {
	presence  *presence.Registry
	users     repositories.IUserRepository
	moderator *moderation.Moderator
	log       *slog.Logger
}

func NewAnonymousService(registry *presence.Registry, users repositories.IUserRepository,
	moderator *moderation.Moderator, log *slog.Logger) *AnonymousService {
	return &AnonymousService{presence: registry, users: users, moderator: moderator, log: log}
}

// Announce stores the connection's display identity and returns it for the
// join notice broadcast to the other participants.
func (s *AnonymousService) Announce(connID string, identity presence.Identity) presence.Identity {
	if identity.Name == "" {
		identity.Name = DefaultAnonymousName
	}
	s.presence.Announce(connID, identity)
	return identity
}

// Compose builds the broadcast payload for one raw message. The effective
// identity prefers the explicit overrides over the stored presence entry, so a
// verified user can chat under their account identity without announcing.
// The content is sanitized, then fully redacted when the effective name maps
// to a chat-blocked account.
func (s *AnonymousService) Compose(connID, rawText, nameOverride, avatarOverride string) ChatPayload {
	identity, _ := s.presence.Lookup(connID)

	name := nameOverride
	if name == "" {
		name = identity.Name
	}
	if name == "" {
		name = DefaultAnonymousName
	}
	avatar := avatarOverride
	if avatar == "" {
		avatar = identity.ProfilePicture
	}

	content, hits := s.moderator.Censor(rawText)
	if len(hits) > 0 {
		s.log.Info("Censored anonymous message",
			"name", name,
			"words", len(hits),
			"lang", moderation.DetectLanguage(rawText))
	}

	if name != DefaultAnonymousName {
		user, err := s.users.FindByUsername(name)
		switch {
		case err == nil:
			if user.ChatBlocked {
				content = MaskToken
			}
		case err != errors.ErrUserNotFound:
			s.log.Warn("Block-check lookup failed", "name", name, "error", err)
		}
	}

	return ChatPayload{Message: content, Name: name, ProfilePicture: avatar}
}

// Leave removes the connection's presence entry and returns the identity to
// broadcast in the leave notice. The second result is false when the
// connection never announced itself.
func (s *AnonymousService) Leave(connID string) (presence.Identity, bool) {
	return s.presence.Remove(connID)
}
