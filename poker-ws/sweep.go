package pokerws

import (
	"context"
	"fmt"

	"github.com/pokerpoint/pokerpoint-go/poker"
	pokercli "github.com/pokerpoint/pokerpoint-go/poker-cli"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ConnectionScanner walks every registered connection a page at a time.
type ConnectionScanner interface {
	ScanAll(ctx context.Context, fn func(conns []poker.Connection) bool) error
}

// Sweeper reaps connections whose sockets closed without a $disconnect
// reaching the coordinator.
type Sweeper struct {
	Connections ConnectionScanner
	Registry    Registry
	Broadcaster *Broadcaster
	Logger      zerolog.Logger
	Metrics     pokercli.Metrics

	// Endpoint overrides the endpoint stored on each connection row.
	Endpoint    string
	Concurrency int
}

// SweepResult summarises one sweep.
type SweepResult struct {
	Scanned int
	Pruned  int
	Failed  int
}

// Sweep probes every connection and removes the ones that are gone, telling
// the rest of each affected room with a user-disconnect event.
func (s *Sweeper) Sweep(ctx context.Context) (SweepResult, error) {
	var conns []poker.Connection
	err := s.Connections.ScanAll(ctx, func(page []poker.Connection) bool {
		conns = append(conns, page...)
		return true
	})
	if err != nil {
		return SweepResult{}, fmt.Errorf("scanning connections: %w", err)
	}

	result := SweepResult{Scanned: len(conns)}
	gone := s.probe(ctx, conns, &result)

	byRoom := map[string][]string{}
	for _, conn := range gone {
		if err := s.Registry.Remove(ctx, conn.RoomID, conn.ConnectionID); err != nil {
			s.Logger.Error().Err(err).
				Str("room_id", conn.RoomID).
				Str("connection_id", conn.ConnectionID).
				Msg("failed to remove stale connection")
			result.Failed++
			continue
		}
		result.Pruned++
		byRoom[conn.RoomID] = append(byRoom[conn.RoomID], conn.ConnectionID)
	}

	for roomID, connIDs := range byRoom {
		remaining, err := s.Registry.ListByRoom(ctx, roomID)
		if err != nil {
			return result, fmt.Errorf("listing connections for room %v: %w", roomID, err)
		}
		for _, connID := range connIDs {
			_, err := s.Broadcaster.Broadcast(ctx, s.Endpoint, EventUserDisconnect, UserDisconnectData{UserID: connID}, remaining, KeepOnFailure)
			if err != nil {
				return result, err
			}
		}
	}

	s.Metrics.Count(ctx, pokercli.PrunedMetric, result.Pruned, map[pokercli.DimensionName]string{
		pokercli.OperationNameDimension: "sweep",
	})
	s.Logger.Info().
		Int("scanned", result.Scanned).
		Int("pruned", result.Pruned).
		Int("failed", result.Failed).
		Msg("sweep complete")

	return result, nil
}

func (s *Sweeper) probe(ctx context.Context, conns []poker.Connection, result *SweepResult) []poker.Connection {
	concurrency := s.Concurrency
	if concurrency <= 0 {
		concurrency = 50
	}

	alive := make([]bool, len(conns))
	failed := make([]bool, len(conns))

	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, conn := range conns {
		i, conn := i, conn
		g.Go(func() error {
			ok, err := s.Broadcaster.Alive(ctx, endpointFor(s.Endpoint, conn), conn.ConnectionID)
			if err != nil {
				s.Logger.Warn().Err(err).Str("connection_id", conn.ConnectionID).Msg("failed to probe connection")
				failed[i] = true
				return nil
			}
			alive[i] = ok
			return nil
		})
	}
	_ = g.Wait()

	var gone []poker.Connection
	for i, conn := range conns {
		switch {
		case failed[i]:
			result.Failed++
		case !alive[i]:
			gone = append(gone, conn)
		}
	}
	return gone
}
