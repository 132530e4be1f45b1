package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/bastiangx/educate/internal/logger"
	"github.com/bastiangx/educate/pkg/backend"
	"github.com/bastiangx/educate/pkg/dictionary"
	"github.com/bastiangx/educate/pkg/history"
	"github.com/bastiangx/educate/pkg/results"
	"github.com/bastiangx/educate/pkg/settings"
	"github.com/bastiangx/educate/pkg/storage"
	"github.com/bastiangx/educate/pkg/suggest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	mu        sync.Mutex
	elems     []results.Element
	account   *backend.Account
	loginErr  error
	logins    int
	registers []string
	appended  []history.Entry
	remote    settings.SearchConfiguration
	written   []settings.SearchConfiguration
}

func (f *fakeBackend) Fill(context.Context, settings.SearchConfiguration) error { return nil }

func (f *fakeBackend) Results(context.Context, settings.SearchConfiguration) ([]results.Element, error) {
	return f.elems, nil
}

func (f *fakeBackend) AppendHistory(_ context.Context, _ string, entries []history.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appended = append(f.appended, entries...)
	return nil
}

func (f *fakeBackend) ReadConfig(context.Context, settings.SearchConfiguration) (settings.SearchConfiguration, error) {
	return f.remote, nil
}

func (f *fakeBackend) WriteConfig(_ context.Context, conf settings.SearchConfiguration) error {
	f.written = append(f.written, conf)
	return nil
}

func (f *fakeBackend) Login(_ context.Context, username, _ string) (*backend.Account, error) {
	f.logins++
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return f.account, nil
}

func (f *fakeBackend) Register(_ context.Context, username, _ string) error {
	f.registers = append(f.registers, username)
	return nil
}

func openSession(t *testing.T, be *fakeBackend, store storage.Store) *Session {
	t.Helper()
	s, err := Open(context.Background(), Options{
		Backend:    be,
		Dictionary: dictionary.New([]string{"graph", "grammar", "theory", "tree"}),
		Storage:    store,
		Logger:     logger.Discard(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func elements(t *testing.T, body string) []results.Element {
	t.Helper()
	var elems []results.Element
	require.NoError(t, json.Unmarshal([]byte(body), &elems))
	return elems
}

func keys(entries []suggest.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Key
	}
	return out
}

func TestValidateCredentials(t *testing.T) {
	tests := []struct {
		user, pass string
		field      string
	}{
		{"", "secret1", "username"},
		{"ab", "secret1", "username"},
		{"ada!", "secret1", "username"},
		{"ada", "", "password"},
		{"ada", "123", "password"},
	}
	for _, tt := range tests {
		err := ValidateCredentials(tt.user, tt.pass)
		var verr *ValidationError
		require.True(t, errors.As(err, &verr), "%q/%q", tt.user, tt.pass)
		assert.Equal(t, tt.field, verr.Field)
		assert.NotEmpty(t, verr.Error())
	}
	assert.NoError(t, ValidateCredentials("ada", "secret1"))
}

func TestLoginValidationNeverReachesNetwork(t *testing.T) {
	be := &fakeBackend{}
	s := openSession(t, be, nil)

	var verr *ValidationError
	assert.ErrorAs(t, s.Login(context.Background(), "x", "y"), &verr)
	assert.ErrorAs(t, s.Register(context.Background(), "x", "y"), &verr)
	assert.Zero(t, be.logins)
	assert.Empty(t, be.registers)
}

func TestLoginHydratesRelevance(t *testing.T) {
	be := &fakeBackend{account: &backend.Account{
		Username: "ada",
		Token:    "tok",
		History:  []history.Entry{{Query: "gradient descent", Date: "d1"}},
	}}
	s := openSession(t, be, nil)

	assert.Equal(t, []string{"graph", "grammar"}, keys(s.Keystroke("my gra")))

	require.NoError(t, s.Login(context.Background(), "ada", "secret1"))
	assert.Equal(t, "ada", s.User())
	assert.Equal(t, "tok", s.Token())

	// relevance matches come before dictionary matches
	assert.Equal(t, []string{"gradient", "graph", "grammar"}, keys(s.Keystroke("gra")))
	primary, ok := s.Primary()
	require.True(t, ok)
	assert.Equal(t, "gradient", primary.Key)
	assert.Equal(t, "my gradient", s.Select("my gra", primary.Key))
}

func TestLoginFailureKeepsAnonymous(t *testing.T) {
	be := &fakeBackend{loginErr: &backend.EmptyResponseError{Op: "login"}}
	s := openSession(t, be, nil)

	err := s.Login(context.Background(), "ada", "secret1")
	assert.ErrorIs(t, err, backend.ErrEmptyResponse)
	assert.Empty(t, s.User())
}

func TestSearchLogsHistoryAndFeedsRelevance(t *testing.T) {
	be := &fakeBackend{
		account: &backend.Account{Username: "ada"},
		elems:   elements(t, `[{"Search":{"indexed":2,"results":[{"url":"u1","title":"T1","content":"c"}]}}]`),
	}
	s := openSession(t, be, nil)
	require.NoError(t, s.Login(context.Background(), "ada", "secret1"))

	out, err := s.Search(context.Background(), "grph theory")
	require.NoError(t, err)
	assert.Equal(t, "graph theory", out.Query)
	assert.False(t, s.Loading())
	assert.Same(t, out, s.Last())
	assert.Equal(t, "graph theory", s.Settings().Snapshot().SearchParams.Q)

	s.Wait()
	require.Len(t, be.appended, 1)
	assert.Equal(t, "graph theory", be.appended[0].Query)

	groups := s.History(history.SortDate, "")
	require.Len(t, groups, 1)
	assert.Len(t, groups[0].Entries, 1)

	// the new query's terms are now relevance suggestions
	assert.Equal(t, "theory", keys(s.Keystroke("the"))[0])
	assert.Equal(t, 2, s.Stats()["relevanceTerms"])
}

func TestAnonymousSearchSkipsHistory(t *testing.T) {
	be := &fakeBackend{elems: elements(t, `[{"MetaSearch":{"url":"m"}}]`)}
	s := openSession(t, be, nil)

	out, err := s.Search(context.Background(), "graph")
	require.NoError(t, err)
	assert.Len(t, out.Results, 1)
	s.Wait()
	assert.Empty(t, be.appended)
	assert.Empty(t, s.HistoryEntries())
}

func TestLogoutTearsDownIdentity(t *testing.T) {
	be := &fakeBackend{account: &backend.Account{
		Username: "ada",
		History:  []history.Entry{{Query: "gradient"}},
	}}
	s := openSession(t, be, nil)
	require.NoError(t, s.Login(context.Background(), "ada", "secret1"))
	require.Len(t, s.HistoryEntries(), 1)

	s.Logout()
	assert.Empty(t, s.User())
	assert.Empty(t, s.HistoryEntries())
	assert.Nil(t, s.Last())
	assert.Equal(t, []string{"graph", "grammar"}, keys(s.Keystroke("gra")))
	assert.Zero(t, s.Stats()["relevanceTerms"])
}

func TestAutosuggestOff(t *testing.T) {
	s := openSession(t, &fakeBackend{}, nil)
	require.NoError(t, s.Settings().SetAutosuggest(context.Background(), false))
	assert.Empty(t, s.Keystroke("gra"))
	_, ok := s.Primary()
	assert.False(t, ok)
}

func TestKeystrokeKeepsPreviousState(t *testing.T) {
	s := openSession(t, &fakeBackend{}, nil)
	assert.Equal(t, []string{"theory", "tree"}, keys(s.Keystroke("t")))
	assert.Equal(t, []string{"theory", "tree"}, keys(s.Keystroke("t ")))
	assert.Equal(t, []string{"theory", "tree"}, keys(s.Keystroke("tz")))
}

func TestSettingsSurviveSessions(t *testing.T) {
	store := storage.NewMemoryStore()
	first := openSession(t, &fakeBackend{}, store)
	require.NoError(t, first.Settings().SetIndexType(context.Background(), settings.IndexInverted))

	second := openSession(t, &fakeBackend{}, store)
	assert.Equal(t, settings.IndexInverted, second.Settings().Snapshot().SearchParams.IndexType)
	assert.NotEqual(t, first.ID(), second.ID())
}
