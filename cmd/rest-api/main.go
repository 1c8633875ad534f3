package main

import (
	"log"
	"os"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	pokerapi "github.com/pokerpoint/pokerpoint-go/poker-api"
	pokercli "github.com/pokerpoint/pokerpoint-go/poker-cli"
	pokerddb "github.com/pokerpoint/pokerpoint-go/poker-ddb"
	pokerjira "github.com/pokerpoint/pokerpoint-go/poker-jira"
	pokerrest "github.com/pokerpoint/pokerpoint-go/poker-rest"
	pokerws "github.com/pokerpoint/pokerpoint-go/poker-ws"
	"github.com/pokerpoint/pokerpoint-go/poker-ws/jiradao"
	"github.com/pokerpoint/pokerpoint-go/poker-ws/roomdao"
	"github.com/urfave/cli/v2"
)

var service = pokercli.NewService("poker-api")

func main() {
	flags := append([]cli.Flag{}, pokercli.CommonFlags...)
	flags = append(flags, pokercli.PortFlag(5001), pokerws.RetentionFlag)
	flags = append(flags, pokerddb.DDBFlags...)
	flags = append(flags, pokerws.TableFlags...)
	flags = append(flags, pokerrest.Flags...)
	flags = append(flags, pokerapi.Flags...)

	app := pokercli.App(service, action, flags...)
	err := app.Run(os.Args)
	if err != nil {
		log.Fatalln(err)
	}
}

func action(_ *cli.Context) error {
	config := pokerws.ConfigFromFlags(pokercli.CommonOpts.Env)

	sess := session.Must(session.NewSession(aws.NewConfig()))
	api, err := pokerddb.DynamoDBAPI(sess)
	if err != nil {
		return err
	}

	creds, err := pokerapi.LoadJiraCredentials(sess)
	if err != nil {
		return err
	}
	client := &pokerjira.Client{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURI:  pokerapi.APIOpts.RedirectURI,
	}
	links := jiradao.New(api, config.Tables.JiraLinks)

	handler := &pokerapi.API{
		Rooms:       roomdao.New(api, config.Tables.Rooms),
		Links:       links,
		OAuth:       client,
		Jira:        &pokerjira.Proxy{Links: links, Client: client},
		FrontendURL: pokerapi.APIOpts.FrontendURL,
		Retention:   config.Retention,
	}

	routes := handler.Routes(pokerrest.DefaultRouter(service))
	return pokerrest.Webserver(service, routes)
}
