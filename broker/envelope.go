package broker

import "encoding/json"

// Envelope is one inbound event frame.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func decode(raw json.RawMessage, out any) error {
	return json.Unmarshal(raw, out)
}

// Inbound event names.
const (
	EventJoinGroup     = "join_group"
	EventSendMessage   = "send_message"
	EventVotePoll      = "vote_poll"
	EventFetchHistory  = "fetch_history"
	EventSearch        = "search_messages"
	EventAnnounce      = "new-user-joined"
	EventAnonymousSend = "send"
)

// Outbound event names.
const (
	EventReceiveMessage   = "receive_message"
	EventPollUpdated      = "poll_updated"
	EventHistory          = "history"
	EventSearchResults    = "search_results"
	EventAnonymousReceive = "receive"
	EventUserJoined       = "user-joined"
	EventUserLeft         = "left"
)

type JoinGroupPayload struct {
	GroupID  string `json:"groupId" validate:"required"`
	Username string `json:"username"`
}

// decodeJoinGroup accepts both the bare group-id string and the object form
// of the join payload, normalizing them once at the boundary.
func decodeJoinGroup(raw json.RawMessage) (JoinGroupPayload, error) {
	var groupID string
	if err := json.Unmarshal(raw, &groupID); err == nil {
		return JoinGroupPayload{GroupID: groupID}, nil
	}
	var payload JoinGroupPayload
	err := json.Unmarshal(raw, &payload)
	return payload, err
}

type SendMessagePayload struct {
	GroupID      string   `json:"groupId" validate:"required"`
	SenderID     string   `json:"senderId" validate:"required"`
	Type         string   `json:"type" validate:"required,oneof=text image poll"`
	Content      string   `json:"content"`
	PollQuestion string   `json:"pollQuestion"`
	PollOptions  []string `json:"pollOptions"`
}

type VotePollPayload struct {
	MessageID   string `json:"messageId" validate:"required,uuid"`
	OptionIndex *int   `json:"optionIndex" validate:"required"`
	UserID      string `json:"userId" validate:"required"`
}

type HistoryPayload struct {
	GroupID string  `json:"groupId" validate:"required"`
	Cursor  *string `json:"cursor"`
}

type SearchPayload struct {
	GroupID string `json:"groupId" validate:"required"`
	Query   string `json:"query" validate:"required"`
}

type AnnouncePayload struct {
	Name           string `json:"name" validate:"required"`
	ProfilePicture string `json:"profilePicture"`
}

// decodeAnnounce accepts both the bare name string and the object form.
func decodeAnnounce(raw json.RawMessage) (AnnouncePayload, error) {
	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		return AnnouncePayload{Name: name}, nil
	}
	var payload AnnouncePayload
	err := json.Unmarshal(raw, &payload)
	return payload, err
}

type AnonymousMessagePayload struct {
	Message        string `json:"message" validate:"required"`
	Name           string `json:"name"`
	ProfilePicture string `json:"profilePicture"`
}
