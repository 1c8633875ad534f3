package pokerws

import (
	"time"

	"github.com/pokerpoint/pokerpoint-go/poker"
	pokercli "github.com/pokerpoint/pokerpoint-go/poker-cli"
	"github.com/urfave/cli/v2"
)

var WSOpts struct {
	ConnectionTable   string
	RoomTable         string
	VoteTable         string
	JiraTable         string
	Endpoint          string
	Retention         time.Duration
	ReadDelay         time.Duration
	ResolveDelay      time.Duration
	FanoutConcurrency int
}

var ConnectionTableFlag = pokercli.StringFlag("connection-table", "Override the connections table name", &WSOpts.ConnectionTable)
var RoomTableFlag = pokercli.StringFlag("room-table", "Override the rooms table name", &WSOpts.RoomTable)
var VoteTableFlag = pokercli.StringFlag("vote-table", "Override the votes table name", &WSOpts.VoteTable)
var JiraTableFlag = pokercli.StringFlag("jira-table", "Override the jira links table name", &WSOpts.JiraTable)
var EndpointFlag = pokercli.StringFlag("ws-endpoint", "API Gateway management endpoint; derived from the request when empty", &WSOpts.Endpoint)
var RetentionFlag = pokercli.DurationFlag("retention", "How long session rows live before expiring", &WSOpts.Retention, poker.Retention)
var ReadDelayFlag = pokercli.DurationFlag("read-delay", "Delay before reading a room's connections", &WSOpts.ReadDelay, 0)
var ResolveDelayFlag = pokercli.DurationFlag("resolve-delay", "Delay before resolving a disconnecting connection's room", &WSOpts.ResolveDelay, time.Second)
var FanoutConcurrencyFlag = pokercli.IntFlag("fanout-concurrency", "Maximum parallel deliveries per broadcast", &WSOpts.FanoutConcurrency, 50)

var TableFlags = []cli.Flag{
	ConnectionTableFlag,
	RoomTableFlag,
	VoteTableFlag,
	JiraTableFlag,
}

var Flags = append([]cli.Flag{
	EndpointFlag,
	RetentionFlag,
	ReadDelayFlag,
	ResolveDelayFlag,
	FanoutConcurrencyFlag,
}, TableFlags...)

// ConfigFromFlags builds a Config from parsed flags, falling back to the
// standard table names for env.
func ConfigFromFlags(env string) Config {
	cfg := DefaultConfig(env)
	if WSOpts.ConnectionTable != "" {
		cfg.Tables.Connections = WSOpts.ConnectionTable
	}
	if WSOpts.RoomTable != "" {
		cfg.Tables.Rooms = WSOpts.RoomTable
	}
	if WSOpts.VoteTable != "" {
		cfg.Tables.Votes = WSOpts.VoteTable
	}
	if WSOpts.JiraTable != "" {
		cfg.Tables.JiraLinks = WSOpts.JiraTable
	}
	cfg.Endpoint = WSOpts.Endpoint
	if WSOpts.Retention > 0 {
		cfg.Retention = WSOpts.Retention
	}
	cfg.ReadDelay = WSOpts.ReadDelay
	cfg.ResolveDelay = WSOpts.ResolveDelay
	if WSOpts.FanoutConcurrency > 0 {
		cfg.FanoutConcurrency = WSOpts.FanoutConcurrency
	}
	return cfg
}
