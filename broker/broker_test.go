package broker

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"

	"hobbyhub/domain"
	"hobbyhub/moderation"
	"hobbyhub/observability"
	"hobbyhub/presence"
	"hobbyhub/repositories"
	"hobbyhub/search"
	"hobbyhub/services"
)

func newTestBroker(t *testing.T) *Broker {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	index, err := search.NewMemoryIndex(slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	moderator, err := moderation.NewModerator([]string{"badger"}, '*', slog.Default())
	require.NoError(t, err)

	users := repositories.NewUserRepository(db)
	require.NoError(t, users.Create(domain.User{ID: "u1", Username: "alice", ProfilePicture: "alice.png"}))
	require.NoError(t, users.Create(domain.User{ID: "u2", Username: "troll"}))
	require.NoError(t, users.SetChatBlocked("u2", true))

	messages := repositories.NewMessageRepository(db, slog.Default(), nil)
	chat := services.NewChatService(messages, users, index, &moderator, slog.Default())
	anon := services.NewAnonymousService(presence.NewRegistry(), users, &moderator, slog.Default())
	hub := NewHub(slog.Default())
	return NewBroker(hub, chat, anon, observability.NewMonitor(slog.Default()), slog.Default())
}

func connect(t *testing.T, b *Broker) *Session {
	t.Helper()
	s := newTestSession(t)
	b.hub.Register(s)
	return s
}

func envelope(t *testing.T, event string, data any) Envelope {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	return Envelope{Event: event, Data: raw}
}

func joinGroup(t *testing.T, b *Broker, s *Session, group string) {
	t.Helper()
	b.Dispatch(s, envelope(t, EventJoinGroup, group))
}

func TestDispatch_SendMessageBroadcastToRoomOnly(t *testing.T) {
	req := require.New(t)
	b := newTestBroker(t)
	a, member, outsider := connect(t, b), connect(t, b), connect(t, b)
	joinGroup(t, b, a, "g1")
	joinGroup(t, b, member, "g1")
	joinGroup(t, b, outsider, "g2")

	b.Dispatch(a, envelope(t, EventSendMessage, map[string]any{
		"groupId":  "g1",
		"senderId": "u1",
		"type":     "text",
		"content":  "hello g1",
	}))

	// Sender and the other member both receive the echo; g2 hears nothing
	for _, s := range []*Session{a, member} {
		frame := receiveFrame(t, s)
		req.Equal(EventReceiveMessage, frame.Event)
		data := frame.Data.(map[string]any)
		req.Equal("hello g1", data["content"])
		sender := data["sender"].(map[string]any)
		req.Equal("alice", sender["username"])
	}
	requireNoFrame(t, outsider)
}

func TestDispatch_SendMessageSanitized(t *testing.T) {
	req := require.New(t)
	b := newTestBroker(t)
	a := connect(t, b)
	joinGroup(t, b, a, "g1")

	b.Dispatch(a, envelope(t, EventSendMessage, map[string]any{
		"groupId":  "g1",
		"senderId": "u1",
		"type":     "text",
		"content":  "a wild badger",
	}))

	frame := receiveFrame(t, a)
	req.Equal("a wild ******", frame.Data.(map[string]any)["content"])
}

func TestDispatch_JoinNoticeGoesToOthersOnly(t *testing.T) {
	req := require.New(t)
	b := newTestBroker(t)
	member, joiner := connect(t, b), connect(t, b)
	joinGroup(t, b, member, "g1")

	b.Dispatch(joiner, envelope(t, EventJoinGroup, map[string]any{
		"groupId":  "g1",
		"username": "alice",
	}))

	frame := receiveFrame(t, member)
	req.Equal(EventReceiveMessage, frame.Event)
	data := frame.Data.(map[string]any)
	req.Equal(string(domain.KindSystem), data["type"])
	req.Equal("alice joined the chat", data["content"])
	requireNoFrame(t, joiner)
}

func TestDispatch_JoinWithoutUsernameIsSilent(t *testing.T) {
	b := newTestBroker(t)
	member, joiner := connect(t, b), connect(t, b)
	joinGroup(t, b, member, "g1")

	joinGroup(t, b, joiner, "g1")

	requireNoFrame(t, member)
	requireNoFrame(t, joiner)
}

func TestDispatch_VotePollFlow(t *testing.T) {
	req := require.New(t)
	b := newTestBroker(t)
	a := connect(t, b)
	joinGroup(t, b, a, "g1")

	b.Dispatch(a, envelope(t, EventSendMessage, map[string]any{
		"groupId":      "g1",
		"senderId":     "u1",
		"type":         "poll",
		"pollQuestion": "Where?",
		"pollOptions":  []string{"Park", "Studio"},
	}))
	created := receiveFrame(t, a)
	pollID := created.Data.(map[string]any)["_id"].(string)

	vote := func(option int) map[string]any {
		b.Dispatch(a, envelope(t, EventVotePoll, map[string]any{
			"messageId":   pollID,
			"optionIndex": option,
			"userId":      "u1",
		}))
		frame := receiveFrame(t, a)
		req.Equal(EventPollUpdated, frame.Event)
		return frame.Data.(map[string]any)
	}

	data := vote(0)
	options := data["pollOptions"].([]any)
	first := options[0].(map[string]any)
	req.Equal([]any{"u1"}, first["votes"])

	// Toggling the same option again retracts the vote
	data = vote(0)
	options = data["pollOptions"].([]any)
	first = options[0].(map[string]any)
	req.Empty(first["votes"])
}

func TestDispatch_VoteOnMissingPollIsDropped(t *testing.T) {
	b := newTestBroker(t)
	a := connect(t, b)
	joinGroup(t, b, a, "g1")

	b.Dispatch(a, envelope(t, EventVotePoll, map[string]any{
		"messageId":   "0b06e5ae-2937-4cf2-a7e9-3a8e2f1b55aa",
		"optionIndex": 0,
		"userId":      "u1",
	}))

	requireNoFrame(t, a)
}

func TestDispatch_HistoryGoesToRequesterOnly(t *testing.T) {
	req := require.New(t)
	b := newTestBroker(t)
	a, other := connect(t, b), connect(t, b)
	joinGroup(t, b, a, "g1")
	joinGroup(t, b, other, "g1")

	for i := 0; i < 2; i++ {
		b.Dispatch(a, envelope(t, EventSendMessage, map[string]any{
			"groupId":  "g1",
			"senderId": "u1",
			"type":     "text",
			"content":  fmt.Sprintf("message %d", i),
		}))
		receiveFrame(t, a)
		receiveFrame(t, other)
	}

	b.Dispatch(a, envelope(t, EventFetchHistory, map[string]any{"groupId": "g1"}))

	frame := receiveFrame(t, a)
	req.Equal(EventHistory, frame.Event)
	data := frame.Data.(map[string]any)
	req.Len(data["messages"], 2)
	requireNoFrame(t, other)
}

func TestDispatch_SearchGoesToRequesterOnly(t *testing.T) {
	req := require.New(t)
	b := newTestBroker(t)
	a, other := connect(t, b), connect(t, b)
	joinGroup(t, b, a, "g1")
	joinGroup(t, b, other, "g1")

	b.Dispatch(a, envelope(t, EventSendMessage, map[string]any{
		"groupId":  "g1",
		"senderId": "u1",
		"type":     "text",
		"content":  "rehearsal on thursday",
	}))
	receiveFrame(t, a)
	receiveFrame(t, other)

	b.Dispatch(a, envelope(t, EventSearch, map[string]any{
		"groupId": "g1",
		"query":   "rehearsal",
	}))

	frame := receiveFrame(t, a)
	req.Equal(EventSearchResults, frame.Event)
	data := frame.Data.(map[string]any)
	req.Len(data["results"], 1)
	requireNoFrame(t, other)
}

func TestDispatch_AnonymousChatReachesEveryoneIncludingSender(t *testing.T) {
	req := require.New(t)
	b := newTestBroker(t)
	a, other := connect(t, b), connect(t, b)

	b.Dispatch(a, envelope(t, EventAnnounce, "Zoe"))
	joined := receiveFrame(t, other)
	req.Equal(EventUserJoined, joined.Event)
	requireNoFrame(t, a)

	b.Dispatch(a, envelope(t, EventAnonymousSend, map[string]any{"message": "hi all"}))

	for _, s := range []*Session{a, other} {
		frame := receiveFrame(t, s)
		req.Equal(EventAnonymousReceive, frame.Event)
		data := frame.Data.(map[string]any)
		req.Equal("hi all", data["message"])
		req.Equal("Zoe", data["name"])
	}
}

func TestDispatch_AnonymousBlockedUserRedacted(t *testing.T) {
	req := require.New(t)
	b := newTestBroker(t)
	a := connect(t, b)

	b.Dispatch(a, envelope(t, EventAnonymousSend, map[string]any{
		"message": "spam spam spam",
		"name":    "troll",
	}))

	frame := receiveFrame(t, a)
	data := frame.Data.(map[string]any)
	req.Equal(services.MaskToken, data["message"])
	req.Equal("troll", data["name"])
}

func TestDisconnect_AnnouncedUserEmitsLeaveNotice(t *testing.T) {
	req := require.New(t)
	b := newTestBroker(t)
	a, other := connect(t, b), connect(t, b)
	b.Dispatch(a, envelope(t, EventAnnounce, "Zoe"))
	receiveFrame(t, other)

	b.Disconnect(a)

	frame := receiveFrame(t, other)
	req.Equal(EventUserLeft, frame.Event)
	req.Equal("Zoe", frame.Data.(map[string]any)["name"])
	req.Empty(b.hub.Rooms(a.id))
}

func TestDisconnect_SilentForUnannouncedSession(t *testing.T) {
	b := newTestBroker(t)
	a, other := connect(t, b), connect(t, b)

	b.Disconnect(a)

	requireNoFrame(t, other)
}

func TestDispatch_InvalidPayloadsAreDropped(t *testing.T) {
	b := newTestBroker(t)
	a := connect(t, b)
	joinGroup(t, b, a, "g1")

	invalid := []Envelope{
		envelope(t, EventSendMessage, map[string]any{"groupId": "g1", "type": "text", "content": "no sender"}),
		envelope(t, EventSendMessage, map[string]any{"groupId": "g1", "senderId": "u1", "type": "video", "content": "x"}),
		envelope(t, EventVotePoll, map[string]any{"messageId": "not-a-uuid", "optionIndex": 0, "userId": "u1"}),
		envelope(t, EventVotePoll, map[string]any{"messageId": "0b06e5ae-2937-4cf2-a7e9-3a8e2f1b55aa", "userId": "u1"}),
		envelope(t, EventFetchHistory, map[string]any{}),
		envelope(t, EventAnonymousSend, map[string]any{"name": "Zoe"}),
		{Event: "unknown_event", Data: json.RawMessage(`{}`)},
		{Event: EventSendMessage, Data: json.RawMessage(`"not an object"`)},
	}

	for _, env := range invalid {
		b.Dispatch(a, env)
	}
	requireNoFrame(t, a)
}
