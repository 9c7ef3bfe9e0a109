// Package domain contains core concepts of the messaging system.
// This file defines Message entities and the poll vote rules.
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"hobbyhub/errors"
)

type MessageKind string

const (
	KindText   MessageKind = "text"
	KindImage  MessageKind = "image"
	KindPoll   MessageKind = "poll"
	KindSystem MessageKind = "system"
)

// PollOption holds one poll choice and the ids of the users currently voting for it.
// A voter id appears at most once per option.
type PollOption struct {
	Text  string   `json:"text"`
	Votes []string `json:"votes"`
}

// Message represents one unit of group chat. The Kind decides which fields are
// meaningful: Content for text and image, PollQuestion/PollOptions for poll.
type Message struct {
	ID           uuid.UUID    `json:"_id"`
	Group        string       `json:"group"`
	Sender       string       `json:"sender"`
	Kind         MessageKind  `json:"type"`
	Content      string       `json:"content,omitempty"`
	PollQuestion string       `json:"pollQuestion,omitempty"`
	PollOptions  []PollOption `json:"pollOptions,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
}

// NewPollOptions normalizes raw option labels into options with empty vote sets.
func NewPollOptions(texts []string) []PollOption {
	return lo.Map(texts, func(text string, _ int) PollOption {
		return PollOption{Text: text, Votes: []string{}}
	})
}

// Validate checks the kind/field invariant.
func (m Message) Validate() error {
	if m.Group == "" || m.Sender == "" {
		return errors.ErrValidation
	}
	switch m.Kind {
	case KindText, KindImage:
		if m.Content == "" {
			return errors.ErrValidation
		}
	case KindPoll:
		if m.PollQuestion == "" || len(m.PollOptions) < 2 {
			return errors.ErrValidation
		}
	default:
		return errors.ErrValidation
	}
	return nil
}

// ToggleVote flips the membership of userID in the vote set of the given option:
// a user not present casts a vote, a user already present retracts it. Votes held
// in other options of the same poll are left untouched.
// It returns true when the call resulted in a cast, false on a retraction.
func (m *Message) ToggleVote(optionIndex int, userID string) (bool, error) {
	if m.Kind != KindPoll {
		return false, errors.ErrNotAPoll
	}
	if optionIndex < 0 || optionIndex >= len(m.PollOptions) {
		return false, errors.ErrOptionOutOfRange
	}

	option := &m.PollOptions[optionIndex]
	if idx := lo.IndexOf(option.Votes, userID); idx >= 0 {
		option.Votes = append(option.Votes[:idx], option.Votes[idx+1:]...)
		return false, nil
	}
	option.Votes = append(option.Votes, userID)
	return true, nil
}

// VoteCount sums the vote set sizes across all options. Clients compute
// percentages against this total, which keeps multi-option votes consistent.
func (m Message) VoteCount() int {
	return lo.SumBy(m.PollOptions, func(o PollOption) int { return len(o.Votes) })
}
