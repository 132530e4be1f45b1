/*
Package server implements msgpack IPC for the search client core.

A client, typically the UI process, spawns the binary and writes msgpack
encoded requests to its stdin. Every request gets exactly one msgpack
response on stdout; logs go to stderr. Requests are handled one at a time,
in order.

# IPC

Every request carries an id that is echoed back and an op:

	{"id": "1", "op": "complete", "text": "graph th"}
	{"id": "2", "op": "select", "text": "graph th", "key": "theory"}
	{"id": "3", "op": "search", "q": "graph theory"}
	{"id": "4", "op": "history", "sort": "date", "filter": "gra"}
	{"id": "5", "op": "config"}
	{"id": "6", "op": "config.set", "field": "index_type", "value": "Inverted"}
	{"id": "7", "op": "config.save"}
	{"id": "8", "op": "summary", "result_id": 2}
	{"id": "9", "op": "login", "username": "ada", "password": "..."}
	{"id": "10", "op": "health"}

Completion responses rank suggestions from 1, relevance matches first:

	{"id": "1", "s": [{"w": "theory", "r": 1}, {"w": "thesis", "r": 2}], "p": "theory", "c": 2, "t": 12}

A failed op answers with an error message and an HTTP-like code:

	{"id": "3", "e": "ranked results: ...", "c": 502}

# Message Types

CompletionResponse answers complete. SelectResponse answers select with the
rewritten query. SearchResponse carries the merged results, flattened to
results.View, and the metrics of one dispatch. HistoryResponse carries the
grouped history. ConfigResponse carries the configuration and the search
methods allowed for its index type. SummaryResponse reports a summary or
that it is still pending. StatusResponse answers health, login, register,
logout and config.save.
*/
package server

import (
	"github.com/bastiangx/educate/pkg/history"
	"github.com/bastiangx/educate/pkg/results"
	"github.com/bastiangx/educate/pkg/settings"
)

// Ops understood by the server.
const (
	OpComplete   = "complete"
	OpSelect     = "select"
	OpSearch     = "search"
	OpHistory    = "history"
	OpConfig     = "config"
	OpConfigSet  = "config.set"
	OpConfigSave = "config.save"
	OpConfigRead = "config.read"
	OpSummary    = "summary"
	OpLogin      = "login"
	OpRegister   = "register"
	OpLogout     = "logout"
	OpHealth     = "health"
)

// Request is the envelope of every op. Only the fields the op needs are set.
type Request struct {
	ID       string `msgpack:"id"`
	Op       string `msgpack:"op"`
	Text     string `msgpack:"text,omitempty"`
	Key      string `msgpack:"key,omitempty"`
	Query    string `msgpack:"q,omitempty"`
	Sort     string `msgpack:"sort,omitempty"`
	Filter   string `msgpack:"filter,omitempty"`
	Field    string `msgpack:"field,omitempty"`
	Value    string `msgpack:"value,omitempty"`
	ResultID int    `msgpack:"result_id,omitempty"`
	Username string `msgpack:"username,omitempty"`
	Password string `msgpack:"password,omitempty"`
}

// CompletionSuggestion - minimal suggestion response
type CompletionSuggestion struct {
	Word string `msgpack:"w"`
	Rank uint16 `msgpack:"r"`
}

// CompletionResponse - completion response
type CompletionResponse struct {
	ID          string                 `msgpack:"id"`
	Suggestions []CompletionSuggestion `msgpack:"s"`
	Primary     string                 `msgpack:"p,omitempty"`
	Count       int                    `msgpack:"c"`
	TimeTaken   int64                  `msgpack:"t"`
}

// SelectResponse returns the query with its trailing word replaced.
type SelectResponse struct {
	ID    string `msgpack:"id"`
	Query string `msgpack:"q"`
}

// SearchResponse - one dispatch
type SearchResponse struct {
	ID      string          `msgpack:"id"`
	Query   string          `msgpack:"q"`
	Results []results.View  `msgpack:"results"`
	Metrics results.Metrics `msgpack:"metrics"`
}

// HistoryResponse - grouped history
type HistoryResponse struct {
	ID     string          `msgpack:"id"`
	Groups []history.Group `msgpack:"groups"`
}

// ConfigResponse - config read/update
type ConfigResponse struct {
	ID      string                       `msgpack:"id"`
	Config  settings.SearchConfiguration `msgpack:"config"`
	Methods []settings.SearchMethod      `msgpack:"methods"`
}

// SummaryResponse - summary of one result of the last search
type SummaryResponse struct {
	ID       string `msgpack:"id"`
	ResultID int    `msgpack:"result_id"`
	Summary  string `msgpack:"summary,omitempty"`
	Pending  bool   `msgpack:"pending"`
}

// StatusResponse - ops without a payload
type StatusResponse struct {
	ID     string         `msgpack:"id"`
	Status string         `msgpack:"status"`
	User   string         `msgpack:"user,omitempty"`
	Stats  map[string]int `msgpack:"stats,omitempty"`
}

// ErrorResponse holds basic error information for any failed op
type ErrorResponse struct {
	ID    string `msgpack:"id"`
	Error string `msgpack:"e"`
	Code  int    `msgpack:"c"`
}
