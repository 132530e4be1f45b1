// Package session is the process-wide context a client works against: the
// signed-in identity, the dictionary and both prefix indices, the history,
// the configuration and the dispatcher. It is created by Open and torn down
// by Logout (identity and history) or Close (everything).
package session

import (
	"context"
	"sync"

	"github.com/bastiangx/educate/internal/logger"
	"github.com/bastiangx/educate/internal/tasks"
	"github.com/bastiangx/educate/pkg/backend"
	"github.com/bastiangx/educate/pkg/dictionary"
	"github.com/bastiangx/educate/pkg/dispatch"
	"github.com/bastiangx/educate/pkg/fuzzy"
	"github.com/bastiangx/educate/pkg/history"
	"github.com/bastiangx/educate/pkg/settings"
	"github.com/bastiangx/educate/pkg/storage"
	"github.com/bastiangx/educate/pkg/suggest"
	"github.com/bastiangx/educate/pkg/summarize"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
)

// Backend is everything a session needs from the search server.
type Backend interface {
	dispatch.Backend
	settings.Remote
	Login(ctx context.Context, username, password string) (*backend.Account, error)
	Register(ctx context.Context, username, password string) error
}

// Options configures Open. Backend is required; a nil Dictionary means an
// empty one and a nil Storage keeps settings in memory.
type Options struct {
	Backend        Backend
	Dictionary     *dictionary.Store
	Storage        storage.Store
	Summarizer     summarize.Summarizer
	MaxSuggestions int
	PoolSize       int
	Logger         *log.Logger
}

// Session holds all per-client state.
type Session struct {
	id         string
	backend    Backend
	dict       *dictionary.Store
	global     *suggest.Index
	corrector  *fuzzy.Corrector
	summarizer summarize.Summarizer
	settings   *settings.State
	runner     *tasks.Runner
	policy     *bluemonday.Policy
	max        int
	logger     *log.Logger

	mu         sync.RWMutex
	user       string
	token      string
	history    *history.Store
	relevance  *suggest.Index
	completer  *suggest.Completer
	completion *suggest.State
	dispatcher *dispatch.Dispatcher
	loading    int
	last       *dispatch.Outcome
}

// Open starts a session: builds the global index once, restores the
// persisted configuration and starts the background pool.
func Open(ctx context.Context, opts Options) (*Session, error) {
	l := logger.OrDefault(opts.Logger, "session")
	dict := opts.Dictionary
	if dict == nil {
		dict = dictionary.Empty()
	}

	runner, err := tasks.New(opts.PoolSize, l)
	if err != nil {
		return nil, err
	}

	st := settings.NewState(opts.Storage, opts.Backend, l)
	if err := st.Load(ctx); err != nil {
		l.Warn("Falling back to default configuration", "err", err)
	}

	s := &Session{
		id:         uuid.NewString(),
		backend:    opts.Backend,
		dict:       dict,
		global:     suggest.NewGlobalIndex(dict),
		corrector:  fuzzy.NewCorrector(dict),
		summarizer: opts.Summarizer,
		settings:   st,
		runner:     runner,
		policy:     bluemonday.StrictPolicy(),
		max:        opts.MaxSuggestions,
		logger:     l,
	}
	s.mu.Lock()
	s.resetIdentity(nil)
	s.mu.Unlock()

	l.Debug("session opened", "id", s.id, "dictionary", dict.Len())
	return s, nil
}

// resetIdentity replaces history and relevance with fresh ones seeded from
// entries and rewires everything that points at them. Callers hold mu.
func (s *Session) resetIdentity(entries []history.Entry) {
	hist := history.NewStore(entries)
	relevance := suggest.NewRelevanceIndex()
	hist.Subscribe(func(batch []history.Entry) {
		suggest.AddQueries(relevance, history.Queries(batch)...)
	})

	s.history = hist
	s.relevance = relevance
	s.completer = suggest.NewCompleter(relevance, s.global, s.max)
	s.completion = suggest.NewState(s.completer)
	s.dispatcher = dispatch.New(s.backend, dispatch.Options{
		Corrector:  s.corrector,
		History:    hist,
		Summarizer: s.summarizer,
		Tasks:      s.runner,
		Policy:     s.policy,
		Logger:     s.logger,
	})
}

// ID identifies this session in logs.
func (s *Session) ID() string { return s.id }

// User returns the signed-in username, empty when anonymous.
func (s *Session) User() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// Token returns the token handed out at login.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Login validates the credentials, authenticates and loads the account's history.
func (s *Session) Login(ctx context.Context, username, password string) error {
	if err := ValidateCredentials(username, password); err != nil {
		return err
	}
	acc, err := s.backend.Login(ctx, username, password)
	if err != nil {
		s.logger.Warn("Login failed", "user", username, "err", err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = acc.Username
	s.token = acc.Token
	s.resetIdentity(acc.History)
	s.logger.Info("Logged in", "user", s.user, "history", len(acc.History))
	return nil
}

// Register validates the credentials and creates the account. It does not log in.
func (s *Session) Register(ctx context.Context, username, password string) error {
	if err := ValidateCredentials(username, password); err != nil {
		return err
	}
	return s.backend.Register(ctx, username, password)
}

// Logout drops the identity, its history and the relevance index built from it.
func (s *Session) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = ""
	s.token = ""
	s.last = nil
	s.resetIdentity(nil)
}

// Settings exposes the configuration state.
func (s *Session) Settings() *settings.State {
	return s.settings
}

// Dictionary returns the session vocabulary.
func (s *Session) Dictionary() *dictionary.Store {
	return s.dict
}

// Keystroke updates completions for the text in the search bar and returns
// the current suggestion list. With autosuggest off nothing changes.
func (s *Session) Keystroke(text string) []suggest.Entry {
	s.mu.RLock()
	state := s.completion
	s.mu.RUnlock()

	if s.settings.Snapshot().Autosuggest {
		state.Update(text)
	}
	return state.Suggestions()
}

// Primary returns the current primary completion.
func (s *Session) Primary() (suggest.Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.completion.Primary()
}

// Select applies a suggestion to query.
func (s *Session) Select(query, key string) string {
	return suggest.ReplaceTrailing(query, key)
}

// Search dispatches query with the current configuration. The effective
// query is stamped into the persisted configuration.
func (s *Session) Search(ctx context.Context, query string) (*dispatch.Outcome, error) {
	s.mu.Lock()
	s.loading++
	d := s.dispatcher
	user := s.user
	s.mu.Unlock()

	out, err := d.Dispatch(ctx, query, s.settings.Snapshot(), user)

	s.mu.Lock()
	s.loading--
	// whichever dispatch finishes last wins
	s.last = out
	s.mu.Unlock()

	if out != nil {
		if serr := s.settings.SetQuery(ctx, out.Query); serr != nil {
			s.logger.Warn("Could not stamp query into configuration", "err", serr)
		}
	}
	return out, err
}

// Loading reports whether a dispatch is in flight.
func (s *Session) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading > 0
}

// Last returns the outcome of the most recently finished dispatch.
func (s *Session) Last() *dispatch.Outcome {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// History returns the grouped view of the user's history.
func (s *Session) History(sort history.SortType, filterPrefix string) []history.Group {
	s.mu.RLock()
	hist := s.history
	s.mu.RUnlock()
	return history.GroupEntries(hist.Entries(), sort, filterPrefix)
}

// HistoryEntries returns the raw history.
func (s *Session) HistoryEntries() []history.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history.Entries()
}

// Stats reports sizes useful for health checks.
func (s *Session) Stats() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := map[string]int{
		"dictionary": s.dict.Len(),
		"history":    s.history.Len(),
		"running":    s.runner.Running(),
	}
	for k, v := range s.completer.Stats() {
		stats[k] = v
	}
	return stats
}

// Wait blocks until background work started so far has finished.
func (s *Session) Wait() {
	s.runner.Wait()
}

// Close drains background work. The storage passed to Open is left open.
func (s *Session) Close() error {
	s.runner.Release()
	s.logger.Debug("session closed", "id", s.id)
	return nil
}
