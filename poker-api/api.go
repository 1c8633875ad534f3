// Package pokerapi serves the request/response side of pokerpoint: room
// creation, room lookup and the Jira OAuth callback and search relay.
package pokerapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/pokerpoint/pokerpoint-go/poker"
	pokerjira "github.com/pokerpoint/pokerpoint-go/poker-jira"
	pokerrest "github.com/pokerpoint/pokerpoint-go/poker-rest"
	"github.com/pokerpoint/pokerpoint-go/poker-ws/roomdao"
	"github.com/pokerpoint/pokerpoint-go/sanitize"
	"github.com/rs/zerolog"
)

type RoomStore interface {
	Create(ctx context.Context, room poker.Room) error
	Get(ctx context.Context, roomID string) (poker.Room, error)
}

type LinkStore interface {
	Put(ctx context.Context, link poker.JiraLink) error
}

// OAuth completes the Jira authorization code flow.
type OAuth interface {
	ExchangeCode(ctx context.Context, code string) (pokerjira.Token, error)
	AccessibleResources(ctx context.Context, accessToken string) ([]pokerjira.Resource, error)
}

// Searcher relays a JQL search for a linked user. It is implemented by
// pokerjira.Proxy.
type Searcher interface {
	SearchRaw(ctx context.Context, userID, roomID, jql string) ([]byte, error)
}

type API struct {
	Rooms       RoomStore
	Links       LinkStore
	OAuth       OAuth
	Jira        Searcher
	FrontendURL string
	Retention   time.Duration
	NewID       func() string
	Now         func() time.Time
}

// Routes registers the API endpoints on r.
func (a *API) Routes(r chi.Router) chi.Router {
	r.Post("/room", a.createRoom)
	r.Get("/room/check", a.checkRoom)
	r.Get("/jira/callback", a.jiraCallback)
	r.Post("/jira/search", a.jiraSearch)
	return r
}

func (a *API) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func (a *API) newID() string {
	if a.NewID != nil {
		return a.NewID()
	}
	return uuid.NewString()
}

type createRoomRequest struct {
	RoomName string   `json:"roomName"`
	Cards    []string `json:"cards"`
	UserUUID string   `json:"userUUID"`
}

type createRoomResponse struct {
	RoomID string   `json:"roomId"`
	Cards  []string `json:"cards"`
}

func (r createRoomRequest) validate() (poker.Room, error) {
	name := sanitize.Text(r.RoomName)
	if name == "" {
		return poker.Room{}, errors.New("roomName is required and must be a non-empty string")
	}
	cards := sanitize.All(r.Cards)
	if len(cards) == 0 {
		return poker.Room{}, errors.New("cards must be a non-empty array of strings")
	}
	owner := strings.TrimSpace(r.UserUUID)
	if owner == "" {
		return poker.Room{}, errors.New("userUUID is required and must be a non-empty string")
	}
	return poker.Room{
		RoomName:    name,
		Cards:       cards,
		CurrentCard: poker.NoCard,
		OwnerID:     owner,
	}, nil
}

func (a *API) createRoom(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	logger := zerolog.Ctx(ctx)

	var in createRoomRequest
	if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
		logger.Warn().Err(err).Msg("invalid JSON in request body")
		pokerrest.WriteError(w, req, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}

	room, err := in.validate()
	if err != nil {
		logger.Warn().Err(err).Msg("invalid room")
		pokerrest.WriteError(w, req, http.StatusBadRequest, err.Error())
		return
	}
	now := a.now()
	room.RoomID = a.newID()
	room.Expiry = poker.ExpiryFrom(now, a.Retention)

	if err := a.Rooms.Create(ctx, room); err != nil {
		if errors.Is(err, roomdao.ErrExists) {
			logger.Warn().Str("room_id", room.RoomID).Msg("room id already exists")
			pokerrest.WriteError(w, req, http.StatusConflict, "Room ID conflict, please try again")
			return
		}
		logger.Error().Err(err).Msg("failed to create room")
		pokerrest.WriteError(w, req, http.StatusInternalServerError, "Internal server error")
		return
	}

	logger.Info().Str("room_id", room.RoomID).Str("room_name", room.RoomName).Msg("created room")
	pokerrest.WriteJSON(w, req, http.StatusCreated, createRoomResponse{
		RoomID: room.RoomID,
		Cards:  room.Cards,
	})
}

func (a *API) checkRoom(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	roomID := req.URL.Query().Get("roomId")

	valid := false
	if roomID != "" {
		_, err := a.Rooms.Get(ctx, roomID)
		switch {
		case err == nil:
			valid = true
		case errors.Is(err, roomdao.ErrNotFound):
		default:
			zerolog.Ctx(ctx).Error().Err(err).Str("room_id", roomID).Msg("failed to load room")
			pokerrest.WriteError(w, req, http.StatusInternalServerError, "Internal server error")
			return
		}
	}

	pokerrest.WriteJSON(w, req, http.StatusOK, map[string]bool{"valid": valid})
}

// parseState splits the OAuth state parameter, userId:roomId.
func parseState(state string) (userID, roomID string, err error) {
	parts := strings.SplitN(state, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid state format: %v", state)
	}
	return parts[0], parts[1], nil
}

func (a *API) jiraCallback(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	logger := zerolog.Ctx(ctx)

	query := req.URL.Query()
	state, code := query.Get("state"), query.Get("code")
	if state == "" || code == "" {
		logger.Warn().Msg("missing state or code")
		http.Error(w, "Missing state or code", http.StatusBadRequest)
		return
	}

	userID, roomID, err := parseState(state)
	if err != nil {
		logger.Warn().Err(err).Msg("invalid state")
		http.Error(w, "Invalid state format", http.StatusBadRequest)
		return
	}

	token, err := a.OAuth.ExchangeCode(ctx, code)
	if err != nil {
		logger.Error().Err(err).Msg("token exchange failed")
		http.Error(w, "Token exchange failed", http.StatusInternalServerError)
		return
	}

	resources, err := a.OAuth.AccessibleResources(ctx, token.AccessToken)
	if err != nil {
		logger.Error().Err(err).Msg("failed to get accessible resources")
		http.Error(w, "Failed to get Jira Cloud ID", http.StatusInternalServerError)
		return
	}
	if len(resources) == 0 || resources[0].ID == "" {
		logger.Error().Msg("no accessible jira cloud id")
		http.Error(w, "No Jira Cloud ID found", http.StatusInternalServerError)
		return
	}

	now := a.now()
	link := poker.JiraLink{
		UserID:      userID,
		RoomID:      roomID,
		AccessToken: token.AccessToken,
		CloudID:     resources[0].ID,
		ExpiresAt:   now.Add(time.Duration(token.ExpiresIn) * time.Second),
		Expiry:      poker.ExpiryFrom(now, a.Retention),
	}
	if err := a.Links.Put(ctx, link); err != nil {
		logger.Error().Err(err).Msg("failed to store jira link")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	redirectTo := a.FrontendURL + "?" + url.Values{
		"roomId": {roomID},
		"jira":   {"true"},
	}.Encode()
	logger.Info().Str("room_id", roomID).Str("cloud_id", link.CloudID).Msg("linked jira")
	http.Redirect(w, req, redirectTo, http.StatusFound)
}

type jiraSearchRequest struct {
	UserID string `json:"userId"`
	RoomID string `json:"roomId"`
	JQL    string `json:"jql"`
}

func (a *API) jiraSearch(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	logger := zerolog.Ctx(ctx)

	var in jiraSearchRequest
	if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
		logger.Warn().Err(err).Msg("invalid JSON in request body")
		http.Error(w, "Invalid JSON in request body", http.StatusBadRequest)
		return
	}

	body, err := a.Jira.SearchRaw(ctx, in.UserID, in.RoomID, in.JQL)
	switch {
	case errors.Is(err, pokerjira.ErrNotLinked):
		http.Error(w, "Jira needs to be linked", http.StatusBadRequest)
		return
	case errors.Is(err, pokerjira.ErrRoomMismatch), errors.Is(err, pokerjira.ErrTokenExpired):
		logger.Info().Err(err).Str("user_id", in.UserID).Msg("jira search refused")
		http.Error(w, "Not allowed", http.StatusForbidden)
		return
	case err != nil:
		logger.Error().Err(err).Str("user_id", in.UserID).Msg("jira search failed")
		http.Error(w, "Unable to fetch items from Jira", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		logger.Warn().Err(err).Msg("failed to write response")
	}
}
