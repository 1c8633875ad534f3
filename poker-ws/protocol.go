package pokerws

import (
	"encoding/json"
	"fmt"
)

// Action is the tag of an inbound message.
type Action string

const (
	ActionJoin      Action = "join"
	ActionCard      Action = "card"
	ActionVote      Action = "vote"
	ActionShow      Action = "show"
	ActionJira      Action = "jira"
	ActionHeartbeat Action = "heartbeat"
	// ActionUnknown stands in for any tag the coordinator does not handle.
	ActionUnknown Action = ""
)

// Kind maps a raw tag to a known Action, or ActionUnknown.
func (a Action) Kind() Action {
	switch a {
	case ActionJoin, ActionCard, ActionVote, ActionShow, ActionJira, ActionHeartbeat:
		return a
	default:
		return ActionUnknown
	}
}

// RequiresRoom reports whether handling the action touches room state.
func (a Action) RequiresRoom() bool {
	switch a.Kind() {
	case ActionHeartbeat, ActionUnknown:
		return false
	default:
		return true
	}
}

// Outbound event names.
const (
	EventState          = "state"
	EventUserJoin       = "user-join"
	EventUserDisconnect = "user-disconnect"
	EventCard           = "card"
	EventVote           = "vote"
	EventShow           = "show"
	EventJira           = "jira"
)

// Message is an inbound message from a participant.
type Message struct {
	Action      Action `json:"action"`
	RoomID      string `json:"roomId"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName,omitempty"`
	Name        string `json:"name,omitempty"`
	Vote        string `json:"vote,omitempty"`
	JQL         string `json:"jql,omitempty"`
}

// ParseMessage parses an inbound message from a JSON string.
func ParseMessage(body string) (*Message, error) {
	var msg Message
	if err := json.Unmarshal([]byte(body), &msg); err != nil {
		return nil, fmt.Errorf("invalid message: %w", err)
	}
	if msg.Action.RequiresRoom() && msg.RoomID == "" {
		return nil, fmt.Errorf("missing roomId for action %v", msg.Action)
	}
	return &msg, nil
}

// Event is an outbound message.
type Event struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// NewEvent encodes an outbound event with the given payload.
func NewEvent(name string, data interface{}) ([]byte, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshalling %v payload: %w", name, err)
	}
	b, err := json.Marshal(Event{Event: name, Data: payload})
	if err != nil {
		return nil, fmt.Errorf("marshalling %v event: %w", name, err)
	}
	return b, nil
}

// Participant is one user in a state snapshot.
type Participant struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

// StateData is sent to a connection right after it joins.
type StateData struct {
	RoomName     string        `json:"roomName"`
	Cards        []string      `json:"cards"`
	Card         string        `json:"card"`
	Participants []Participant `json:"participants"`
	Votes        []string      `json:"votes"`
	OwnerUUID    string        `json:"ownerUUID"`
}

type UserJoinData struct {
	DisplayName string `json:"displayName"`
	UserID      string `json:"userId"`
}

// UserDisconnectData carries the connection id of the departing socket in
// UserID. Existing clients read this field, so the name stays.
type UserDisconnectData struct {
	UserID string `json:"userId"`
}

type CardData struct {
	Name string `json:"name"`
}

// VoteData announces that a user voted without revealing the value.
type VoteData struct {
	UserID string `json:"userId"`
}

// ShowEntry is one revealed vote.
type ShowEntry struct {
	UserID string `json:"userId"`
	Vote   string `json:"vote"`
}

type JiraItem struct {
	Key     string `json:"key"`
	Summary string `json:"summary"`
}

type JiraData struct {
	Items []JiraItem `json:"items"`
}
