package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/bastiangx/educate/internal/logger"
	"github.com/bastiangx/educate/pkg/backend"
	"github.com/bastiangx/educate/pkg/dictionary"
	"github.com/bastiangx/educate/pkg/session"
	"github.com/bastiangx/educate/pkg/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

type searchServer struct {
	mu      sync.Mutex
	history []json.RawMessage
	config  []byte
	failing bool
}

func (f *searchServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.URL.Path {
	case backend.PathFill:
	case backend.PathResults:
		if f.failing {
			http.Error(w, "Indexing error", http.StatusInternalServerError)
			return
		}
		io.WriteString(w, `[
			{"Search": {"indexed": 7, "results": [{"url": "https://a", "title": "Graphs", "content": "about graphs"}]}},
			{"MetaSearch": {"url": "https://m", "title": "Meta", "engine": "Google"}}
		]`)
	case backend.PathLogin:
		io.WriteString(w, `{"username": "ada", "token": "tok", "history": [{"query": "gradient", "url": "u", "title": "t", "date": "1/2/2024, 9:00:00 AM"}]}`)
	case backend.PathAddHistory:
		f.history = append(f.history, body)
	case backend.PathConfigWrite:
		f.config = body
	default:
		http.NotFound(w, r)
	}
}

func newHarness(t *testing.T) (*session.Session, *searchServer) {
	t.Helper()
	return newHarnessWithWords(t, "graph", "grammar", "theory", "tree")
}

func newHarnessWithWords(t *testing.T, words ...string) (*session.Session, *searchServer) {
	t.Helper()
	fake := &searchServer{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client := backend.New(backend.Options{BaseURL: srv.URL, Logger: logger.Discard()})
	s, err := session.Open(context.Background(), session.Options{
		Backend:    client,
		Dictionary: dictionary.New(words),
		Logger:     logger.Discard(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, fake
}

// run feeds reqs to a server and returns the raw decoder over its output,
// positioned after the ready message.
func run(t *testing.T, s Session, reqs ...Request) *msgpack.Decoder {
	t.Helper()
	var in bytes.Buffer
	enc := msgpack.NewEncoder(&in)
	for _, r := range reqs {
		require.NoError(t, enc.Encode(r))
	}

	var out bytes.Buffer
	srv := NewServerWithIO(s, &in, &out, logger.Discard())
	require.NoError(t, srv.Start(context.Background()))

	dec := msgpack.NewDecoder(&out)
	var ready StatusResponse
	require.NoError(t, dec.Decode(&ready))
	assert.Equal(t, "ready", ready.Status)
	return dec
}

func TestCompleteAndSelect(t *testing.T) {
	s, _ := newHarness(t)
	dec := run(t, s,
		Request{ID: "1", Op: OpComplete, Text: "my gra"},
		Request{ID: "2", Op: OpSelect, Text: "my gra", Key: "grammar"},
		Request{ID: "3", Op: OpComplete, Text: "123"},
	)

	var comp CompletionResponse
	require.NoError(t, dec.Decode(&comp))
	assert.Equal(t, "1", comp.ID)
	assert.Equal(t, []CompletionSuggestion{{Word: "graph", Rank: 1}, {Word: "grammar", Rank: 2}}, comp.Suggestions)
	assert.Equal(t, "graph", comp.Primary)
	assert.Equal(t, 2, comp.Count)

	var sel SelectResponse
	require.NoError(t, dec.Decode(&sel))
	assert.Equal(t, "my grammar", sel.Query)

	var miss CompletionResponse
	require.NoError(t, dec.Decode(&miss))
	assert.Equal(t, "3", miss.ID)
	assert.Equal(t, comp.Suggestions, miss.Suggestions)
	assert.Equal(t, "graph", miss.Primary)
}

func TestCompleteTermsWithDigitsAndSymbols(t *testing.T) {
	s, _ := newHarnessWithWords(t, "graph", "c++", "don't", "www", "2024")
	texts := []string{"gra", "c+", "don'", "ww", "202", "learn "}
	reqs := make([]Request, len(texts))
	for i, text := range texts {
		reqs[i] = Request{ID: text, Op: OpComplete, Text: text}
	}
	dec := run(t, s, reqs...)

	want := []string{"graph", "c++", "don't", "www", "2024", "2024"}
	for i, text := range texts {
		var comp CompletionResponse
		require.NoError(t, dec.Decode(&comp))
		assert.Equal(t, text, comp.ID)
		require.NotEmpty(t, comp.Suggestions, text)
		assert.Equal(t, want[i], comp.Suggestions[0].Word, text)
		assert.Equal(t, want[i], comp.Primary, text)
	}
}

func TestSearchHistoryAndSummary(t *testing.T) {
	s, fake := newHarness(t)
	dec := run(t, s,
		Request{ID: "1", Op: OpLogin, Username: "ada", Password: "secret1"},
		Request{ID: "2", Op: OpSearch, Query: "grph"},
		Request{ID: "3", Op: OpHistory, Sort: "date"},
		Request{ID: "4", Op: OpSummary, ResultID: 1},
		Request{ID: "5", Op: OpComplete, Text: "gra"},
	)

	var login StatusResponse
	require.NoError(t, dec.Decode(&login))
	assert.Equal(t, "ada", login.User)

	var search SearchResponse
	require.NoError(t, dec.Decode(&search))
	assert.Equal(t, "graph", search.Query)
	require.Len(t, search.Results, 2)
	assert.Equal(t, "local", string(search.Results[0].Type))
	assert.Equal(t, 1, search.Results[0].ID)
	assert.Equal(t, "meta", string(search.Results[1].Type))
	assert.Equal(t, 2, search.Results[1].ID)
	assert.Equal(t, 7, search.Metrics.Indexed)
	assert.Equal(t, 1, search.Metrics.Ranked)

	var hist HistoryResponse
	require.NoError(t, dec.Decode(&hist))
	require.Len(t, hist.Groups, 2)
	assert.Len(t, hist.Groups[0].Entries, 2, "newest dispatch first")
	assert.Equal(t, "graph", hist.Groups[0].Entries[0].Query)

	var sum SummaryResponse
	require.NoError(t, dec.Decode(&sum))
	assert.True(t, sum.Pending, "no summariser configured")

	var comp CompletionResponse
	require.NoError(t, dec.Decode(&comp))
	words := make([]string, len(comp.Suggestions))
	for i, c := range comp.Suggestions {
		words[i] = c.Word
	}
	assert.Equal(t, []string{"gradient", "graph", "graph", "grammar"}, words)

	s.Wait()
	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Len(t, fake.history, 1)
}

func TestConfigOps(t *testing.T) {
	s, fake := newHarness(t)
	dec := run(t, s,
		Request{ID: "1", Op: OpConfig},
		Request{ID: "2", Op: OpConfigSet, Field: "index_type", Value: "B-Tree"},
		Request{ID: "3", Op: OpConfigSet, Field: "search_method", Value: "TF-IDF ranking"},
		Request{ID: "4", Op: OpConfigSave},
	)

	var conf ConfigResponse
	require.NoError(t, dec.Decode(&conf))
	assert.Equal(t, settings.Defaults(), conf.Config)
	assert.Len(t, conf.Methods, 3)

	require.NoError(t, dec.Decode(&conf))
	assert.Equal(t, settings.IndexBTree, conf.Config.SearchParams.IndexType)
	assert.Equal(t, settings.MethodNone, conf.Config.SearchParams.SearchMethod)
	assert.Empty(t, conf.Methods)

	var rejected ErrorResponse
	require.NoError(t, dec.Decode(&rejected))
	assert.Equal(t, "3", rejected.ID)
	assert.Equal(t, 400, rejected.Code)

	var saved StatusResponse
	require.NoError(t, dec.Decode(&saved))
	assert.Equal(t, "saved", saved.Status)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	var written settings.SearchConfiguration
	require.NoError(t, json.Unmarshal(fake.config, &written))
	assert.Equal(t, settings.IndexBTree, written.SearchParams.IndexType)
}

func TestErrors(t *testing.T) {
	s, fake := newHarness(t)
	fake.failing = true
	dec := run(t, s,
		Request{ID: "1", Op: OpSearch, Query: "graph"},
		Request{ID: "2", Op: OpSearch},
		Request{ID: "3", Op: OpLogin, Username: "a", Password: "b"},
		Request{ID: "4", Op: OpHistory, Sort: "size"},
		Request{ID: "5", Op: "dance"},
	)

	want := []struct {
		id   string
		code int
	}{
		{"1", 502},
		{"2", 400},
		{"3", 400},
		{"4", 400},
		{"5", 400},
	}
	for _, w := range want {
		var e ErrorResponse
		require.NoError(t, dec.Decode(&e))
		assert.Equal(t, w.id, e.ID)
		assert.NotEmpty(t, e.Error)
		assert.Equal(t, w.code, e.Code, "request %s", w.id)
	}
}

func TestSummaryBeforeSearch(t *testing.T) {
	s, _ := newHarness(t)
	dec := run(t, s, Request{ID: "1", Op: OpSummary, ResultID: 1})

	var e ErrorResponse
	require.NoError(t, dec.Decode(&e))
	assert.Equal(t, 404, e.Code)
}

func TestHealth(t *testing.T) {
	s, _ := newHarness(t)
	dec := run(t, s, Request{ID: "h", Op: OpHealth})

	var st StatusResponse
	require.NoError(t, dec.Decode(&st))
	assert.Equal(t, "ok", st.Status)
	assert.Equal(t, 4, st.Stats["dictionary"])
	assert.Equal(t, 4, st.Stats["globalTerms"])
}

func TestMalformedInput(t *testing.T) {
	s, _ := newHarness(t)
	var out bytes.Buffer
	srv := NewServerWithIO(s, bytes.NewReader([]byte{0xc1}), &out, logger.Discard())
	assert.Error(t, srv.Start(context.Background()))

	dec := msgpack.NewDecoder(&out)
	var ready StatusResponse
	require.NoError(t, dec.Decode(&ready))
	var e ErrorResponse
	require.NoError(t, dec.Decode(&e))
	assert.Equal(t, 400, e.Code)
}
