// Package pokerjira talks to the Atlassian Jira Cloud REST and OAuth APIs on
// behalf of a room participant who linked their Jira account.
package pokerjira

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	DefaultAPIBase  = "https://api.atlassian.com"
	DefaultAuthBase = "https://auth.atlassian.com"
)

// StatusError is returned when Jira answers with a non 2xx status.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("jira %v failed with status %v: %v", e.Op, e.StatusCode, e.Body)
}

// Issue is the subset of a Jira issue shown to the room.
type Issue struct {
	Key     string `json:"key"`
	Summary string `json:"summary"`
}

// Token is the result of an OAuth authorization code exchange.
type Token struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	Scope       string `json:"scope"`
}

// Resource is a Jira Cloud site the token can access.
type Resource struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Client is a minimal Jira Cloud client.
type Client struct {
	HTTP         *http.Client
	APIBase      string
	AuthBase     string
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return &http.Client{Timeout: 10 * time.Second}
}

func (c *Client) apiBase() string {
	if c.APIBase != "" {
		return c.APIBase
	}
	return DefaultAPIBase
}

func (c *Client) authBase() string {
	if c.AuthBase != "" {
		return c.AuthBase
	}
	return DefaultAuthBase
}

func (c *Client) do(req *http.Request, op string) ([]byte, error) {
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("jira %v request failed: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read jira %v response: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Op: op, StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

// SearchRaw runs a JQL search against the given cloud site and returns the
// response body untouched.
func (c *Client) SearchRaw(ctx context.Context, cloudID, accessToken, jql string) ([]byte, error) {
	return c.search(ctx, cloudID, accessToken, url.Values{"jql": {jql}})
}

func (c *Client) search(ctx context.Context, cloudID, accessToken string, query url.Values) ([]byte, error) {
	u := fmt.Sprintf("%v/ex/jira/%v/rest/api/3/search?%v",
		c.apiBase(),
		url.PathEscape(cloudID),
		query.Encode(),
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build jira search request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	return c.do(req, "search")
}

// Search runs a JQL search and reduces the result to issue keys and summaries.
func (c *Client) Search(ctx context.Context, cloudID, accessToken, jql string) ([]Issue, error) {
	body, err := c.search(ctx, cloudID, accessToken, url.Values{"jql": {jql}, "fields": {"summary"}})
	if err != nil {
		return nil, err
	}

	var result struct {
		Issues []struct {
			Key    string `json:"key"`
			Fields struct {
				Summary string `json:"summary"`
			} `json:"fields"`
		} `json:"issues"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode jira search response: %w", err)
	}

	issues := make([]Issue, 0, len(result.Issues))
	for _, issue := range result.Issues {
		issues = append(issues, Issue{Key: issue.Key, Summary: issue.Fields.Summary})
	}
	return issues, nil
}

// ExchangeCode trades an OAuth authorization code for an access token.
func (c *Client) ExchangeCode(ctx context.Context, code string) (Token, error) {
	payload, err := json.Marshal(map[string]string{
		"grant_type":    "authorization_code",
		"client_id":     c.ClientID,
		"client_secret": c.ClientSecret,
		"code":          code,
		"redirect_uri":  c.RedirectURI,
	})
	if err != nil {
		return Token{}, fmt.Errorf("failed to encode token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authBase()+"/oauth/token", bytes.NewReader(payload))
	if err != nil {
		return Token{}, fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do(req, "token exchange")
	if err != nil {
		return Token{}, err
	}

	var token Token
	if err := json.Unmarshal(body, &token); err != nil {
		return Token{}, fmt.Errorf("failed to decode token response: %w", err)
	}
	if token.AccessToken == "" {
		return Token{}, fmt.Errorf("token response carried no access token")
	}
	return token, nil
}

// AccessibleResources lists the Jira Cloud sites the token can reach.
func (c *Client) AccessibleResources(ctx context.Context, accessToken string) ([]Resource, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase()+"/oauth/token/accessible-resources", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build accessible resources request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	body, err := c.do(req, "accessible resources")
	if err != nil {
		return nil, err
	}

	var resources []Resource
	if err := json.Unmarshal(body, &resources); err != nil {
		return nil, fmt.Errorf("failed to decode accessible resources: %w", err)
	}
	return resources, nil
}
