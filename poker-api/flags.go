package pokerapi

import (
	"fmt"

	"github.com/aws/aws-sdk-go/aws/session"
	pokercli "github.com/pokerpoint/pokerpoint-go/poker-cli"
	pokersecret "github.com/pokerpoint/pokerpoint-go/poker-secret"
	"github.com/urfave/cli/v2"
)

var APIOpts struct {
	FrontendURL      string
	RedirectURI      string
	JiraClientID     string
	JiraClientSecret string
	JiraSecretName   string
}

var FrontendURLFlag = pokercli.StringFlag("frontend-url", "Page the Jira callback redirects to", &APIOpts.FrontendURL, "https://pokerpoint.co.uk/app/index.html")
var RedirectURIFlag = pokercli.StringFlag("jira-redirect-uri", "OAuth redirect URI registered with Atlassian", &APIOpts.RedirectURI, "https://api.pokerpoint.co.uk/jira/callback")
var JiraClientIDFlag = pokercli.StringFlag("jira-client-id", "Atlassian OAuth client id", &APIOpts.JiraClientID)
var JiraClientSecretFlag = pokercli.StringFlag("jira-client-secret", "Atlassian OAuth client secret", &APIOpts.JiraClientSecret)
var JiraSecretNameFlag = pokercli.StringFlag("jira-secret", "Secrets Manager secret holding the Jira OAuth client credentials", &APIOpts.JiraSecretName)

var Flags = []cli.Flag{
	FrontendURLFlag,
	RedirectURIFlag,
	JiraClientIDFlag,
	JiraClientSecretFlag,
	JiraSecretNameFlag,
}

// JiraCredentials is the OAuth client registration, as stored in Secrets
// Manager.
type JiraCredentials struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// LoadJiraCredentials reads the credentials from Secrets Manager when a
// secret name is configured, otherwise from flags.
func LoadJiraCredentials(s *session.Session) (JiraCredentials, error) {
	creds := JiraCredentials{
		ClientID:     APIOpts.JiraClientID,
		ClientSecret: APIOpts.JiraClientSecret,
	}
	if APIOpts.JiraSecretName == "" {
		return creds, nil
	}
	if err := pokersecret.LoadSecret(s, APIOpts.JiraSecretName, &creds); err != nil {
		return JiraCredentials{}, fmt.Errorf("loading jira credentials: %w", err)
	}
	return creds, nil
}
