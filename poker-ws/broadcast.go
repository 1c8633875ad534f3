package pokerws

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/apigatewaymanagementapi"
	"github.com/aws/aws-sdk-go/service/apigatewaymanagementapi/apigatewaymanagementapiiface"
	"github.com/pokerpoint/pokerpoint-go/poker"
	pokercli "github.com/pokerpoint/pokerpoint-go/poker-cli"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Prune policies for Broadcast. Only the join broadcast prunes; every other
// broadcast just reports failed deliveries and leaves cleanup to disconnect
// and the sweeper.
const (
	KeepOnFailure  = false
	PruneOnFailure = true
)

// Pruner removes a connection whose delivery failed.
type Pruner interface {
	Remove(ctx context.Context, roomID, connectionID string) error
}

// Delivery is the outcome of sending one event to one connection.
type Delivery struct {
	ConnectionID string
	Err          error
	Gone         bool
	Pruned       bool
}

// Broadcaster fans events out to room connections through the API Gateway
// management API.
type Broadcaster struct {
	Registry    Pruner
	Logger      zerolog.Logger
	Metrics     pokercli.Metrics
	Concurrency int // max concurrent PostToConnection calls (default 50)

	// NewClient builds a management API client for an endpoint. Defaults to
	// a client on a fresh AWS session.
	NewClient func(endpoint string) apigatewaymanagementapiiface.ApiGatewayManagementApiAPI

	// mgmtClients caches API Gateway Management API clients by endpoint
	mgmtMu      sync.RWMutex
	mgmtClients map[string]apigatewaymanagementapiiface.ApiGatewayManagementApiAPI
}

// Broadcast delivers the event to every recipient. A failure on one recipient
// never stops delivery to the others; each outcome is reported in the
// returned slice, in recipient order. With pruneOnFailure set, recipients
// whose delivery failed are removed from the registry.
func (b *Broadcaster) Broadcast(ctx context.Context, endpoint, event string, data interface{}, recipients []poker.Connection, pruneOnFailure bool) ([]Delivery, error) {
	msg, err := NewEvent(event, data)
	if err != nil {
		return nil, err
	}

	deliveries := make([]Delivery, len(recipients))
	if len(recipients) == 0 {
		return deliveries, nil
	}

	concurrency := b.Concurrency
	if concurrency <= 0 {
		concurrency = 50
	}

	var g errgroup.Group
	g.SetLimit(concurrency)

	for i, conn := range recipients {
		i, conn := i, conn
		g.Go(func() error {
			deliveries[i] = b.deliver(ctx, endpointFor(endpoint, conn), conn, msg, pruneOnFailure)
			return nil
		})
	}
	_ = g.Wait()

	var failed, pruned int
	for _, d := range deliveries {
		if d.Err != nil {
			failed++
		}
		if d.Pruned {
			pruned++
		}
	}
	dims := map[pokercli.DimensionName]string{pokercli.EventNameDimension: event}
	b.Metrics.Count(ctx, pokercli.DeliveryFailureMetric, failed, dims)
	b.Metrics.Count(ctx, pokercli.PrunedMetric, pruned, dims)

	b.Logger.Debug().
		Str("event", event).
		Int("recipients", len(recipients)).
		Int("failed", failed).
		Int("pruned", pruned).
		Msg("broadcast complete")

	return deliveries, nil
}

func (b *Broadcaster) deliver(ctx context.Context, endpoint string, conn poker.Connection, msg []byte, pruneOnFailure bool) Delivery {
	d := Delivery{ConnectionID: conn.ConnectionID}

	d.Err = b.Send(ctx, endpoint, conn.ConnectionID, msg)
	if d.Err == nil {
		return d
	}
	d.Gone = isGoneException(d.Err)

	logger := b.Logger.With().
		Str("room_id", conn.RoomID).
		Str("connection_id", conn.ConnectionID).
		Logger()
	logger.Warn().Err(d.Err).Bool("gone", d.Gone).Msg("failed to deliver event")

	if !pruneOnFailure {
		return d
	}
	if err := b.Registry.Remove(ctx, conn.RoomID, conn.ConnectionID); err != nil {
		logger.Error().Err(err).Msg("failed to prune connection")
		return d
	}
	d.Pruned = true
	logger.Info().Msg("pruned connection after failed delivery")
	return d
}

// Send posts a single message to one connection.
func (b *Broadcaster) Send(ctx context.Context, endpoint, connectionID string, msg []byte) error {
	client := b.getManagementClient(endpoint)
	_, err := client.PostToConnectionWithContext(ctx, &apigatewaymanagementapi.PostToConnectionInput{
		ConnectionId: aws.String(connectionID),
		Data:         msg,
	})
	if err != nil {
		return fmt.Errorf("posting to connection %v: %w", connectionID, err)
	}
	return nil
}

// Alive reports whether the socket behind connectionID is still open.
func (b *Broadcaster) Alive(ctx context.Context, endpoint, connectionID string) (bool, error) {
	client := b.getManagementClient(endpoint)
	_, err := client.GetConnectionWithContext(ctx, &apigatewaymanagementapi.GetConnectionInput{
		ConnectionId: aws.String(connectionID),
	})
	if err != nil {
		if isGoneException(err) {
			return false, nil
		}
		return false, fmt.Errorf("probing connection %v: %w", connectionID, err)
	}
	return true, nil
}

func (b *Broadcaster) getManagementClient(endpoint string) apigatewaymanagementapiiface.ApiGatewayManagementApiAPI {
	b.mgmtMu.RLock()
	if client, ok := b.mgmtClients[endpoint]; ok {
		b.mgmtMu.RUnlock()
		return client
	}
	b.mgmtMu.RUnlock()

	b.mgmtMu.Lock()
	defer b.mgmtMu.Unlock()

	// Double-check after acquiring write lock
	if client, ok := b.mgmtClients[endpoint]; ok {
		return client
	}

	if b.mgmtClients == nil {
		b.mgmtClients = make(map[string]apigatewaymanagementapiiface.ApiGatewayManagementApiAPI)
	}

	newClient := b.NewClient
	if newClient == nil {
		newClient = NewManagementClient
	}
	client := newClient(endpoint)
	b.mgmtClients[endpoint] = client
	return client
}

// NewManagementClient returns an API Gateway management client for endpoint.
func NewManagementClient(endpoint string) apigatewaymanagementapiiface.ApiGatewayManagementApiAPI {
	sess := session.Must(session.NewSession(aws.NewConfig().WithEndpoint(endpoint)))
	return apigatewaymanagementapi.New(sess)
}

func endpointFor(endpoint string, conn poker.Connection) string {
	if endpoint != "" {
		return endpoint
	}
	return conn.Endpoint
}

// isGoneException checks if the error is a GoneException (HTTP 410),
// indicating the WebSocket connection no longer exists.
func isGoneException(err error) bool {
	var aerr awserr.Error
	if errors.As(err, &aerr) && aerr.Code() == apigatewaymanagementapi.ErrCodeGoneException {
		return true
	}
	return strings.Contains(err.Error(), "GoneException") ||
		strings.Contains(err.Error(), "410")
}
