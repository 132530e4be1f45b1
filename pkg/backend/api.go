package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/bastiangx/educate/pkg/history"
	"github.com/bastiangx/educate/pkg/results"
	"github.com/bastiangx/educate/pkg/settings"
)

// Endpoint paths on the search server.
const (
	PathFill        = "/search/fill"
	PathResults     = "/search/get-results"
	PathAddHistory  = "/auth/add-history"
	PathLogin       = "/auth/login"
	PathRegister    = "/auth/register"
	PathConfigRead  = "/config/read"
	PathConfigWrite = "/config/write"
)

// Credentials is the body of the auth endpoints. The server expects the
// history field even when it is empty.
type Credentials struct {
	Username string          `json:"username"`
	Password string          `json:"password"`
	History  []history.Entry `json:"history"`
}

// Account is what a successful login returns.
type Account struct {
	Username string          `json:"username"`
	History  []history.Entry `json:"history"`
	Token    string          `json:"token"`
}

// Fill asks the server to pre-warm its index for conf. The body is ignored.
func (c *Client) Fill(ctx context.Context, conf settings.SearchConfiguration) error {
	return c.postJSON(ctx, "fill", PathFill, conf, nil)
}

// Results fetches the tagged result elements for conf. The call is bounded
// by the results timeout.
func (c *Client) Results(ctx context.Context, conf settings.SearchConfiguration) ([]results.Element, error) {
	ctx, cancel := context.WithTimeout(ctx, c.resultsTimeout)
	defer cancel()

	var elems []results.Element
	if err := c.postJSON(ctx, "results", PathResults, conf, &elems); err != nil {
		return nil, err
	}
	return elems, nil
}

// AppendHistory logs entries for username on the server.
func (c *Client) AppendHistory(ctx context.Context, username string, entries []history.Entry) error {
	body := Credentials{Username: username, History: entries}
	if body.History == nil {
		body.History = []history.Entry{}
	}
	return c.postJSON(ctx, "add-history", PathAddHistory, body, nil)
}

// Login authenticates and returns the account with its stored history.
func (c *Client) Login(ctx context.Context, username, password string) (*Account, error) {
	var acc Account
	body := Credentials{Username: username, Password: password, History: []history.Entry{}}
	if err := c.postJSON(ctx, "login", PathLogin, body, &acc); err != nil {
		return nil, err
	}
	if acc.Username == "" {
		acc.Username = username
	}
	return &acc, nil
}

// Register creates an account. The response body is ignored.
func (c *Client) Register(ctx context.Context, username, password string) error {
	body := Credentials{Username: username, Password: password, History: []history.Entry{}}
	return c.postJSON(ctx, "register", PathRegister, body, nil)
}

// ReadConfig returns the server's stored configuration. probe identifies
// what is being asked for.
func (c *Client) ReadConfig(ctx context.Context, probe settings.SearchConfiguration) (settings.SearchConfiguration, error) {
	var conf settings.SearchConfiguration
	err := c.postJSON(ctx, "config-read", PathConfigRead, probe, &conf)
	return conf, err
}

// WriteConfig stores conf on the server.
func (c *Client) WriteConfig(ctx context.Context, conf settings.SearchConfiguration) error {
	return c.postJSON(ctx, "config-write", PathConfigWrite, conf, nil)
}

// FetchDictionary downloads a word list.
func (c *Client) FetchDictionary(ctx context.Context, url string) ([]byte, error) {
	data, err := c.do(ctx, "dictionary", http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if isEmpty(data) {
		return nil, &EmptyResponseError{Op: "dictionary", URL: url}
	}
	return data, nil
}

// Summarize posts a batch of result contents keyed by result id to url and
// returns the summaries keyed the same way.
func (c *Client) Summarize(ctx context.Context, url string, contents map[int]string) (map[int]string, error) {
	var out map[int]string
	data, err := c.do(ctx, "summarize", http.MethodPost, url, contents)
	if err != nil {
		return nil, err
	}
	if isEmpty(data) {
		return nil, &EmptyResponseError{Op: "summarize", URL: url}
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("summarize: decode response: %w", err)
	}
	return out, nil
}
