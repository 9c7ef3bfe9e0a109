package broker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"hobbyhub/domain"
	"hobbyhub/observability"
	"hobbyhub/presence"
	"hobbyhub/services"
)

const searchTimeout = 5 * time.Second

// Broker routes inbound envelopes to the two chat pathways. All failures are
// handled here: validation errors, missing polls, and persistence failures are
// logged and dropped, never surfaced to the transport as protocol errors.
type Broker struct {
	hub      *Hub
	chat     services.IChatService
	anon     *services.AnonymousService
	monitor  *observability.Monitor
	validate *validator.Validate
	log      *slog.Logger
}

func NewBroker(hub *Hub, chat services.IChatService, anon *services.AnonymousService,
	monitor *observability.Monitor, log *slog.Logger) *Broker {
	return &Broker{
		hub:      hub,
		chat:     chat,
		anon:     anon,
		monitor:  monitor,
		validate: validator.New(),
		log:      log,
	}
}

// Connect registers the session and starts its pumps.
func (b *Broker) Connect(s *Session) {
	b.hub.Register(s)
	b.monitor.SessionOpened()
	go s.writePump()
	go s.readPump(b)
}

// Disconnect tears the session down: the anonymous leave notice goes out to
// the remaining participants when the connection had announced itself, and
// room membership disappears with the session. No leave notice is emitted for
// group rooms.
func (b *Broker) Disconnect(s *Session) {
	if identity, ok := b.anon.Leave(s.id); ok {
		b.hub.BroadcastExcept(AnonymousRoom, s.id, Frame{Event: EventUserLeft, Data: identity})
	}
	b.hub.Unregister(s.id)
	if s.conn != nil {
		_ = s.conn.Close()
	}
	b.monitor.SessionClosed()
}

// Dispatch routes one inbound envelope. Unknown events are dropped.
func (b *Broker) Dispatch(s *Session, env Envelope) {
	switch env.Event {
	case EventJoinGroup:
		b.handleJoinGroup(s, env)
	case EventSendMessage:
		b.handleSendMessage(s, env)
	case EventVotePoll:
		b.handleVotePoll(s, env)
	case EventFetchHistory:
		b.handleFetchHistory(s, env)
	case EventSearch:
		b.handleSearch(s, env)
	case EventAnnounce:
		b.handleAnnounce(s, env)
	case EventAnonymousSend:
		b.handleAnonymousSend(s, env)
	default:
		b.log.Debug("Unknown event", "event", env.Event, "conn", s.id)
	}
}

// systemNotice mirrors the shape of a broadcast message so clients render it
// in the same list, with a unique throwaway id.
type systemNotice struct {
	ID      string             `json:"_id"`
	Kind    domain.MessageKind `json:"type"`
	Content string             `json:"content"`
}

func (b *Broker) handleJoinGroup(s *Session, env Envelope) {
	payload, err := decodeJoinGroup(env.Data)
	if err != nil || b.validate.Struct(payload) != nil {
		b.drop(s, env.Event)
		return
	}

	b.hub.Join(s.id, payload.GroupID)
	b.log.Debug("Joined group room", "conn", s.id, "group", payload.GroupID)

	// The announcement is tied to the join frame, not to first membership:
	// a client re-joining with a username announces again.
	if payload.Username != "" {
		b.hub.BroadcastExcept(payload.GroupID, s.id, Frame{
			Event: EventReceiveMessage,
			Data: systemNotice{
				ID:      uuid.NewString(),
				Kind:    domain.KindSystem,
				Content: fmt.Sprintf("%s joined the chat", payload.Username),
			},
		})
	}
}

func (b *Broker) handleSendMessage(s *Session, env Envelope) {
	var payload SendMessagePayload
	if err := decode(env.Data, &payload); err != nil || b.validate.Struct(payload) != nil {
		b.drop(s, env.Event)
		return
	}

	resolved, err := b.chat.Send(services.SendCommand{
		GroupID:      payload.GroupID,
		SenderID:     payload.SenderID,
		Kind:         domain.MessageKind(payload.Type),
		Content:      payload.Content,
		PollQuestion: payload.PollQuestion,
		PollOptions:  payload.PollOptions,
	})
	if err != nil {
		// Fire-and-forget: the sender learns about delivery only through the
		// broadcast echo, so a failed send is silence plus a log line.
		b.log.Error("Send failed, dropping message", "group", payload.GroupID, "error", err)
		b.monitor.EventDropped()
		return
	}

	b.monitor.MessagePersisted()
	b.hub.Broadcast(payload.GroupID, Frame{Event: EventReceiveMessage, Data: resolved})
}

func (b *Broker) handleVotePoll(s *Session, env Envelope) {
	var payload VotePollPayload
	if err := decode(env.Data, &payload); err != nil || b.validate.Struct(payload) != nil {
		b.drop(s, env.Event)
		return
	}

	messageID, err := uuid.Parse(payload.MessageID)
	if err != nil {
		b.drop(s, env.Event)
		return
	}

	resolved, err := b.chat.VotePoll(messageID, *payload.OptionIndex, payload.UserID)
	if err != nil {
		b.log.Debug("Vote ignored", "message", payload.MessageID, "error", err)
		b.monitor.EventDropped()
		return
	}

	b.monitor.VoteToggled()
	b.hub.Broadcast(resolved.Group, Frame{Event: EventPollUpdated, Data: resolved})
}

func (b *Broker) handleFetchHistory(s *Session, env Envelope) {
	var payload HistoryPayload
	if err := decode(env.Data, &payload); err != nil || b.validate.Struct(payload) != nil {
		b.drop(s, env.Event)
		return
	}

	messages, cursor, err := b.chat.History(payload.GroupID, payload.Cursor)
	if err != nil {
		b.log.Error("History fetch failed", "group", payload.GroupID, "error", err)
		return
	}

	b.hub.SendTo(s.id, Frame{Event: EventHistory, Data: map[string]any{
		"groupId":  payload.GroupID,
		"messages": messages,
		"cursor":   cursor,
	}})
}

func (b *Broker) handleSearch(s *Session, env Envelope) {
	var payload SearchPayload
	if err := decode(env.Data, &payload); err != nil || b.validate.Struct(payload) != nil {
		b.drop(s, env.Event)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), searchTimeout)
	defer cancel()

	results, err := b.chat.Search(ctx, payload.GroupID, payload.Query)
	if err != nil {
		b.log.Error("Search failed", "group", payload.GroupID, "error", err)
		return
	}

	b.hub.SendTo(s.id, Frame{Event: EventSearchResults, Data: map[string]any{
		"groupId": payload.GroupID,
		"query":   payload.Query,
		"results": results,
	}})
}

func (b *Broker) handleAnnounce(s *Session, env Envelope) {
	payload, err := decodeAnnounce(env.Data)
	if err != nil || b.validate.Struct(payload) != nil {
		b.drop(s, env.Event)
		return
	}

	identity := b.anon.Announce(s.id, presence.Identity{
		Name:           payload.Name,
		ProfilePicture: payload.ProfilePicture,
	})
	b.hub.BroadcastExcept(AnonymousRoom, s.id, Frame{Event: EventUserJoined, Data: identity})
}

func (b *Broker) handleAnonymousSend(s *Session, env Envelope) {
	var payload AnonymousMessagePayload
	if err := decode(env.Data, &payload); err != nil || b.validate.Struct(payload) != nil {
		b.drop(s, env.Event)
		return
	}

	chat := b.anon.Compose(s.id, payload.Message, payload.Name, payload.ProfilePicture)
	b.monitor.AnonymousBroadcast()

	// Global fan-out, sender included: anonymous chat has no self-filtering.
	b.hub.Broadcast(AnonymousRoom, Frame{Event: EventAnonymousReceive, Data: chat})
}

func (b *Broker) drop(s *Session, event string) {
	b.log.Debug("Dropping invalid payload", "event", event, "conn", s.id)
	b.monitor.EventDropped()
}
