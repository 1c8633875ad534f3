package pokerws

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/apigatewaymanagementapi"
	"github.com/aws/aws-sdk-go/service/apigatewaymanagementapi/apigatewaymanagementapiiface"
	"github.com/pokerpoint/pokerpoint-go/poker"
	pokerjira "github.com/pokerpoint/pokerpoint-go/poker-jira"
	"github.com/pokerpoint/pokerpoint-go/poker-ws/connectiondao"
	"github.com/pokerpoint/pokerpoint-go/poker-ws/roomdao"
	"github.com/rs/zerolog"
	"github.com/tj/assert"
)

type memRegistry struct {
	mu     sync.Mutex
	rows   map[string]map[string]poker.Connection
	hidden map[string]bool // rows left out of ListByRoom, as a lagging listing would
	err    error
	lists  int
}

func newMemRegistry() *memRegistry {
	return &memRegistry{
		rows:   map[string]map[string]poker.Connection{},
		hidden: map[string]bool{},
	}
}

func (m *memRegistry) Add(_ context.Context, conn poker.Connection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	room, ok := m.rows[conn.RoomID]
	if !ok {
		room = map[string]poker.Connection{}
		m.rows[conn.RoomID] = room
	}
	if _, ok := room[conn.ConnectionID]; ok {
		return connectiondao.ErrAlreadyMember
	}
	room[conn.ConnectionID] = conn
	return nil
}

func (m *memRegistry) Remove(_ context.Context, roomID, connectionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	delete(m.rows[roomID], connectionID)
	return nil
}

func (m *memRegistry) ListByRoom(_ context.Context, roomID string) ([]poker.Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists++
	if m.err != nil {
		return nil, m.err
	}
	var conns []poker.Connection
	for id, conn := range m.rows[roomID] {
		if m.hidden[id] {
			continue
		}
		conns = append(conns, conn)
	}
	sort.Slice(conns, func(i, j int) bool {
		return conns[i].ConnectionID < conns[j].ConnectionID
	})
	return conns, nil
}

func (m *memRegistry) ResolveRoom(_ context.Context, connectionID string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", false, m.err
	}
	for roomID, room := range m.rows {
		if _, ok := room[connectionID]; ok {
			return roomID, true, nil
		}
	}
	return "", false, nil
}

func (m *memRegistry) Lookup(_ context.Context, roomID, connectionID string) (poker.Connection, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return poker.Connection{}, false, m.err
	}
	conn, ok := m.rows[roomID][connectionID]
	return conn, ok, nil
}

func (m *memRegistry) ScanAll(_ context.Context, fn func([]poker.Connection) bool) error {
	m.mu.Lock()
	var all []poker.Connection
	for _, room := range m.rows {
		for _, conn := range room {
			all = append(all, conn)
		}
	}
	m.mu.Unlock()

	sort.Slice(all, func(i, j int) bool {
		return all[i].ConnectionID < all[j].ConnectionID
	})
	fn(all)
	return nil
}

func (m *memRegistry) members(roomID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := []string{}
	for id := range m.rows[roomID] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

type memRooms struct {
	mu    sync.Mutex
	rooms map[string]poker.Room
}

func (m *memRooms) Get(_ context.Context, roomID string) (poker.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[roomID]
	if !ok {
		return poker.Room{}, roomdao.ErrNotFound
	}
	return room, nil
}

func (m *memRooms) SetCurrentCard(_ context.Context, roomID, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[roomID]
	if !ok {
		return roomdao.ErrNotFound
	}
	room.CurrentCard = name
	m.rooms[roomID] = room
	return nil
}

type failingLinks struct{ err error }

func (f failingLinks) Get(context.Context, string) (*poker.JiraLink, error) {
	return nil, f.err
}

type memVotes struct {
	mu    sync.Mutex
	votes map[string]map[string]poker.Vote
}

func (m *memVotes) Record(_ context.Context, vote poker.Vote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.votes[vote.RoomID]
	if !ok {
		room = map[string]poker.Vote{}
		m.votes[vote.RoomID] = room
	}
	room[vote.UserID] = vote
	return nil
}

func (m *memVotes) List(_ context.Context, roomID string) ([]poker.Vote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var votes []poker.Vote
	for _, v := range m.votes[roomID] {
		votes = append(votes, v)
	}
	return votes, nil
}

func (m *memVotes) ClearAll(_ context.Context, roomID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.votes, roomID)
	return nil
}

type fakeJira struct {
	issues []pokerjira.Issue
	err    error
	calls  int
}

func (f *fakeJira) Search(_ context.Context, _, _, _ string) ([]pokerjira.Issue, error) {
	f.calls++
	return f.issues, f.err
}

type mockManagementAPI struct {
	apigatewaymanagementapiiface.ApiGatewayManagementApiAPI

	mu       sync.Mutex
	posts    map[string][][]byte
	postErrs map[string]error
	getErrs  map[string]error
}

func newMockManagementAPI() *mockManagementAPI {
	return &mockManagementAPI{
		posts:    map[string][][]byte{},
		postErrs: map[string]error{},
		getErrs:  map[string]error{},
	}
}

func (m *mockManagementAPI) PostToConnectionWithContext(_ aws.Context, input *apigatewaymanagementapi.PostToConnectionInput, _ ...request.Option) (*apigatewaymanagementapi.PostToConnectionOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := aws.StringValue(input.ConnectionId)
	if err := m.postErrs[id]; err != nil {
		return nil, err
	}
	m.posts[id] = append(m.posts[id], input.Data)
	return &apigatewaymanagementapi.PostToConnectionOutput{}, nil
}

func (m *mockManagementAPI) GetConnectionWithContext(_ aws.Context, input *apigatewaymanagementapi.GetConnectionInput, _ ...request.Option) (*apigatewaymanagementapi.GetConnectionOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.getErrs[aws.StringValue(input.ConnectionId)]; err != nil {
		return nil, err
	}
	return &apigatewaymanagementapi.GetConnectionOutput{}, nil
}

// received decodes every event delivered to a connection.
func (m *mockManagementAPI) received(t *testing.T, connID string) []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	var got []Event
	for _, raw := range m.posts[connID] {
		var event Event
		assert.NoError(t, json.Unmarshal(raw, &event))
		got = append(got, event)
	}
	return got
}

func (m *mockManagementAPI) total() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, p := range m.posts {
		n += len(p)
	}
	return n
}

func (m *mockManagementAPI) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.posts = map[string][][]byte{}
}

type fixture struct {
	registry *memRegistry
	rooms    *memRooms
	votes    *memVotes
	jira     *fakeJira
	mgmt     *mockManagementAPI
	handler  *Handler
}

func newFixture() *fixture {
	f := &fixture{
		registry: newMemRegistry(),
		rooms: &memRooms{rooms: map[string]poker.Room{
			"R": {
				RoomID:      "R",
				RoomName:    "Sprint 12",
				Cards:       []string{"1", "2", "3"},
				CurrentCard: poker.NoCard,
				OwnerID:     "owner",
			},
		}},
		votes: &memVotes{votes: map[string]map[string]poker.Vote{}},
		jira:  &fakeJira{err: pokerjira.ErrNotLinked},
		mgmt:  newMockManagementAPI(),
	}

	config := DefaultConfig("test")
	config.ResolveDelay = 0

	f.handler = &Handler{
		Registry: f.registry,
		Rooms:    f.rooms,
		Votes:    f.votes,
		Jira:     f.jira,
		Broadcaster: &Broadcaster{
			Registry:  f.registry,
			Logger:    zerolog.Nop(),
			NewClient: func(string) apigatewaymanagementapiiface.ApiGatewayManagementApiAPI { return f.mgmt },
		},
		Logger: zerolog.Nop(),
		Config: config,
		Now:    func() time.Time { return time.Unix(1_700_000_000, 0) },
	}
	return f
}

func (f *fixture) send(t *testing.T, connID string, msg interface{}) int {
	var body string
	switch v := msg.(type) {
	case string:
		body = v
	default:
		data, err := json.Marshal(v)
		assert.NoError(t, err)
		body = string(data)
	}
	return f.route(t, "$default", connID, body)
}

func (f *fixture) route(t *testing.T, route, connID, body string) int {
	resp, err := f.handler.HandleEvent(context.Background(), events.APIGatewayWebsocketProxyRequest{
		Body: body,
		RequestContext: events.APIGatewayWebsocketProxyRequestContext{
			ConnectionID: connID,
			RouteKey:     route,
			DomainName:   "abc123.execute-api.eu-west-2.amazonaws.com",
			Stage:        "test",
		},
	})
	assert.NoError(t, err)
	return resp.StatusCode
}

func (f *fixture) join(t *testing.T, connID, userID, displayName string) {
	status := f.send(t, connID, Message{Action: ActionJoin, RoomID: "R", UserID: userID, DisplayName: displayName})
	assert.Equal(t, 200, status)
}

func eventsNamed(received []Event, name string) []Event {
	var got []Event
	for _, e := range received {
		if e.Event == name {
			got = append(got, e)
		}
	}
	return got
}
