package pokerws

import (
	"time"

	"github.com/pokerpoint/pokerpoint-go/poker"
	"github.com/pokerpoint/pokerpoint-go/poker-ws/connectiondao"
	"github.com/pokerpoint/pokerpoint-go/poker-ws/jiradao"
	"github.com/pokerpoint/pokerpoint-go/poker-ws/roomdao"
	"github.com/pokerpoint/pokerpoint-go/poker-ws/votedao"
)

// Tables names the four DynamoDB tables.
type Tables struct {
	Connections string
	Rooms       string
	Votes       string
	JiraLinks   string
}

// DefaultTables returns the standard table names for an environment.
func DefaultTables(env string) Tables {
	return Tables{
		Connections: connectiondao.TableName(env),
		Rooms:       roomdao.TableName(env),
		Votes:       votedao.TableName(env),
		JiraLinks:   jiradao.TableName(env),
	}
}

// Config is the coordinator configuration, built once at startup.
type Config struct {
	Tables Tables

	// Endpoint is the API Gateway management endpoint. When empty it is
	// derived from each request's domain name and stage.
	Endpoint string

	// Retention is how long rows written by the coordinator live.
	Retention time.Duration

	// ReadDelay is waited before every room-wide connection read. The room
	// listing is strongly consistent, so it defaults to zero.
	ReadDelay time.Duration

	// ResolveDelay is waited before looking up a disconnecting socket's room
	// on the eventually consistent connection index.
	ResolveDelay time.Duration

	// FanoutConcurrency bounds parallel deliveries per broadcast.
	FanoutConcurrency int
}

// DefaultConfig returns the configuration used when no flags are given.
func DefaultConfig(env string) Config {
	return Config{
		Tables:            DefaultTables(env),
		Retention:         poker.Retention,
		ResolveDelay:      time.Second,
		FanoutConcurrency: 50,
	}
}
