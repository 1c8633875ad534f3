package pokerws

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/pokerpoint/pokerpoint-go/poker"
	pokerjira "github.com/pokerpoint/pokerpoint-go/poker-jira"
	"github.com/pokerpoint/pokerpoint-go/poker-ws/connectiondao"
	"github.com/pokerpoint/pokerpoint-go/poker-ws/roomdao"
	"github.com/pokerpoint/pokerpoint-go/sanitize"
	"github.com/rs/zerolog"
)

// memberHandler handles an action that only room members may send. caller
// is the sender's row and snap the room as read for this message.
type memberHandler func(ctx context.Context, logger zerolog.Logger, endpoint string, caller poker.Connection, snap Snapshot, msg *Message) error

// Dispatch applies one inbound message from connID. Business rule violations
// are logged and swallowed; only store and transport failures are returned.
func (h *Handler) Dispatch(ctx context.Context, logger zerolog.Logger, endpoint, connID string, msg *Message) error {
	switch msg.Action.Kind() {
	case ActionJoin:
		return h.handleJoin(ctx, logger, endpoint, connID, msg)
	case ActionCard:
		return h.asMember(ctx, logger, endpoint, connID, msg, h.handleCard)
	case ActionVote:
		return h.asMember(ctx, logger, endpoint, connID, msg, h.handleVote)
	case ActionShow:
		return h.asMember(ctx, logger, endpoint, connID, msg, h.handleShow)
	case ActionJira:
		return h.asMember(ctx, logger, endpoint, connID, msg, h.handleJira)
	case ActionHeartbeat:
		logger.Debug().Msg("heartbeat")
		return nil
	default:
		logger.Warn().Msg("unrecognized action")
		return nil
	}
}

func (h *Handler) asMember(ctx context.Context, logger zerolog.Logger, endpoint, connID string, msg *Message, next memberHandler) error {
	snap, err := h.snapshot(ctx, msg.RoomID)
	if err != nil {
		return err
	}

	caller, ok := snap.Find(connID)
	if !ok {
		// the listing may trail a join that just landed
		row, member, err := h.Registry.Lookup(ctx, msg.RoomID, connID)
		if err != nil {
			return fmt.Errorf("checking membership of %v: %w", connID, err)
		}
		if !member {
			logger.Info().Msg("ignoring action from connection outside the room")
			return nil
		}
		caller = row
		snap = snap.With(caller)
	}
	if caller.UserID == "" {
		caller.UserID = msg.UserID
	}

	return next(ctx, logger, endpoint, caller, snap, msg)
}

func (h *Handler) handleJoin(ctx context.Context, logger zerolog.Logger, endpoint, connID string, msg *Message) error {
	// read before registering so the joiner is left out of its own user-join
	before, err := h.snapshot(ctx, msg.RoomID)
	if err != nil {
		return err
	}
	if before.Contains(connID) {
		logger.Info().Msg("connection already joined")
		return nil
	}

	room, err := h.Rooms.Get(ctx, msg.RoomID)
	if err != nil {
		if errors.Is(err, roomdao.ErrNotFound) {
			logger.Info().Msg("ignoring join for unknown room")
			return nil
		}
		return fmt.Errorf("loading room %v: %w", msg.RoomID, err)
	}

	now := h.now()
	conn := poker.Connection{
		RoomID:       msg.RoomID,
		ConnectionID: connID,
		UserID:       msg.UserID,
		DisplayName:  sanitize.Text(msg.DisplayName),
		Endpoint:     endpoint,
		JoinedAt:     now,
		Expiry:       poker.ExpiryFrom(now, h.Config.Retention),
	}
	if err := h.Registry.Add(ctx, conn); err != nil {
		if errors.Is(err, connectiondao.ErrAlreadyMember) {
			logger.Info().Msg("lost join race, connection already registered")
			return nil
		}
		return fmt.Errorf("registering connection %v: %w", connID, err)
	}

	after, err := h.snapshot(ctx, msg.RoomID)
	if err != nil {
		return err
	}
	after = after.With(conn)

	votes, err := h.Votes.List(ctx, msg.RoomID)
	if err != nil {
		return fmt.Errorf("listing votes for room %v: %w", msg.RoomID, err)
	}

	state, err := NewEvent(EventState, buildState(room, after, votes))
	if err != nil {
		return err
	}
	if err := h.Broadcaster.Send(ctx, endpoint, connID, state); err != nil {
		return fmt.Errorf("sending state: %w", err)
	}

	_, err = h.Broadcaster.Broadcast(ctx, endpoint, EventUserJoin, UserJoinData{
		DisplayName: conn.DisplayName,
		UserID:      conn.UserID,
	}, before.Connections, PruneOnFailure)
	if err != nil {
		return err
	}

	logger.Info().Str("user_id", conn.UserID).Int("members", len(after.Connections)).Msg("joined room")
	return nil
}

func buildState(room poker.Room, snap Snapshot, votes []poker.Vote) StateData {
	cards := room.Cards
	if cards == nil {
		cards = []string{}
	}
	voters := make([]string, 0, len(votes))
	for _, v := range votes {
		voters = append(voters, v.UserID)
	}
	return StateData{
		RoomName:     room.RoomName,
		Cards:        cards,
		Card:         room.CurrentCard,
		Participants: snap.Participants(),
		Votes:        voters,
		OwnerUUID:    room.OwnerID,
	}
}

func (h *Handler) handleCard(ctx context.Context, logger zerolog.Logger, endpoint string, _ poker.Connection, snap Snapshot, msg *Message) error {
	name := sanitize.Text(msg.Name)
	err := h.Rooms.SetCurrentCard(ctx, msg.RoomID, name)
	if errors.Is(err, roomdao.ErrNotFound) {
		logger.Info().Msg("ignoring card for a room that no longer exists")
		return nil
	}
	if err != nil {
		return fmt.Errorf("setting card for room %v: %w", msg.RoomID, err)
	}
	if err := h.Votes.ClearAll(ctx, msg.RoomID); err != nil {
		return fmt.Errorf("clearing votes for room %v: %w", msg.RoomID, err)
	}

	_, err = h.Broadcaster.Broadcast(ctx, endpoint, EventCard, CardData{Name: name}, snap.Connections, KeepOnFailure)
	if err != nil {
		return err
	}
	logger.Info().Str("card", name).Msg("card selected")
	return nil
}

func (h *Handler) handleVote(ctx context.Context, logger zerolog.Logger, endpoint string, caller poker.Connection, snap Snapshot, msg *Message) error {
	vote := poker.Vote{
		RoomID: msg.RoomID,
		UserID: caller.UserID,
		Vote:   sanitize.Text(msg.Vote),
		Expiry: poker.ExpiryFrom(h.now(), h.Config.Retention),
	}
	if err := h.Votes.Record(ctx, vote); err != nil {
		return fmt.Errorf("recording vote in room %v: %w", msg.RoomID, err)
	}

	_, err := h.Broadcaster.Broadcast(ctx, endpoint, EventVote, VoteData{UserID: vote.UserID}, snap.Connections, KeepOnFailure)
	if err != nil {
		return err
	}
	logger.Debug().Str("user_id", vote.UserID).Msg("vote recorded")
	return nil
}

func (h *Handler) handleShow(ctx context.Context, logger zerolog.Logger, endpoint string, _ poker.Connection, snap Snapshot, msg *Message) error {
	votes, err := h.Votes.List(ctx, msg.RoomID)
	if err != nil {
		return fmt.Errorf("listing votes for room %v: %w", msg.RoomID, err)
	}
	if err := h.Votes.ClearAll(ctx, msg.RoomID); err != nil {
		return fmt.Errorf("clearing votes for room %v: %w", msg.RoomID, err)
	}

	entries := make([]ShowEntry, 0, len(votes))
	for _, v := range votes {
		entries = append(entries, ShowEntry{UserID: v.UserID, Vote: v.Vote})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].UserID < entries[j].UserID
	})

	_, err = h.Broadcaster.Broadcast(ctx, endpoint, EventShow, entries, snap.Connections, KeepOnFailure)
	if err != nil {
		return err
	}
	logger.Info().Int("votes", len(entries)).Msg("votes revealed")
	return nil
}

func (h *Handler) handleJira(ctx context.Context, logger zerolog.Logger, endpoint string, caller poker.Connection, snap Snapshot, msg *Message) error {
	if h.Jira == nil {
		logger.Warn().Msg("jira search is not configured")
		return nil
	}

	issues, err := h.Jira.Search(ctx, caller.UserID, msg.RoomID, msg.JQL)
	if errors.Is(err, pokerjira.ErrLinkLookup) {
		return err
	}
	if err != nil {
		logger.Warn().Err(err).Str("user_id", caller.UserID).Msg("jira search failed")
		return nil
	}

	items := make([]JiraItem, 0, len(issues))
	for _, issue := range issues {
		items = append(items, JiraItem{Key: issue.Key, Summary: issue.Summary})
	}

	_, err = h.Broadcaster.Broadcast(ctx, endpoint, EventJira, JiraData{Items: items}, snap.Connections, KeepOnFailure)
	if err != nil {
		return err
	}
	logger.Info().Int("items", len(items)).Msg("jira results shared")
	return nil
}
