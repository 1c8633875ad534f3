package main

import (
	"context"
	"log"
	"os"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/cloudwatch"
	pokercli "github.com/pokerpoint/pokerpoint-go/poker-cli"
	pokercron "github.com/pokerpoint/pokerpoint-go/poker-cron"
	pokerddb "github.com/pokerpoint/pokerpoint-go/poker-ddb"
	pokerws "github.com/pokerpoint/pokerpoint-go/poker-ws"
	"github.com/pokerpoint/pokerpoint-go/poker-ws/connectiondao"
	"github.com/urfave/cli/v2"
)

var service = pokercli.NewService("poker-sweeper")

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
	sweeper := &pokerws.Sweeper{
		Connections: connections,
		Registry:    connections,
		Broadcaster: &pokerws.Broadcaster{
			Registry:    connections,
			Logger:      logger,
			Metrics:     metrics,
			Concurrency: config.FanoutConcurrency,
		},
		Logger:      logger,
		Metrics:     metrics,
		Endpoint:    config.Endpoint,
		Concurrency: config.FanoutConcurrency,
	}

	handler := pokercron.NewHandler(service, metrics, func(ctx context.Context) error {
		_, err := sweeper.Sweep(ctx)
		return err
	})
	return handler.Start()
}
