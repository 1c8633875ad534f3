package main

import (
	"log"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/cloudwatch"
	pokercli "github.com/pokerpoint/pokerpoint-go/poker-cli"
	pokerddb "github.com/pokerpoint/pokerpoint-go/poker-ddb"
	pokerjira "github.com/pokerpoint/pokerpoint-go/poker-jira"
	pokerws "github.com/pokerpoint/pokerpoint-go/poker-ws"
	"github.com/pokerpoint/pokerpoint-go/poker-ws/connectiondao"
	"github.com/pokerpoint/pokerpoint-go/poker-ws/jiradao"
	"github.com/pokerpoint/pokerpoint-go/poker-ws/roomdao"
	"github.com/pokerpoint/pokerpoint-go/poker-ws/votedao"
	"github.com/urfave/cli/v2"
)

var service = pokercli.NewService("poker-ws")

func main() {
	flags := append([]cli.Flag{}, pokercli.CommonFlags...)
	flags = append(flags, pokerddb.DDBFlags...)
	flags = append(flags, pokerws.Flags...)

	app := pokercli.App(service, action, flags...)
	err := app.Run(os.Args)
	if err != nil {
		log.Fatalln(err)
	}
}

func action(_ *cli.Context) error {
	logger := pokercli.Logger(service)
	config := pokerws.ConfigFromFlags(pokercli.CommonOpts.Env)

	sess := session.Must(session.NewSession(aws.NewConfig()))
	api, err := pokerddb.DynamoDBAPI(sess)
	if err != nil {
		return err
	}

	metrics := pokercli.Metrics{}
	if !pokercli.CommonOpts.Console {
		metrics = pokercli.NewMetrics(service, cloudwatch.New(sess))
	}

	connections := connectiondao.New(api, config.Tables.Connections)
	handler := &pokerws.Handler{
		Registry: connections,
		Rooms:    roomdao.New(api, config.Tables.Rooms),
		Votes:    votedao.New(api, config.Tables.Votes),
		Jira: &pokerjira.Proxy{
			Links:  jiradao.New(api, config.Tables.JiraLinks),
			Client: &pokerjira.Client{},
		},
		Broadcaster: &pokerws.Broadcaster{
			Registry:    connections,
			Logger:      logger,
			Metrics:     metrics,
			Concurrency: config.FanoutConcurrency,
		},
		Logger:  logger,
		Metrics: metrics,
		Config:  config,
	}

	logger.Info().
		Str("connections", config.Tables.Connections).
		Str("rooms", config.Tables.Rooms).
		Str("votes", config.Tables.Votes).
		Msg("starting websocket handler")

	lambda.Start(handler.HandleEvent)
	return nil
}
