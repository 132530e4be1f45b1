package settings

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/bastiangx/educate/internal/logger"
	"github.com/bastiangx/educate/pkg/storage"
	"github.com/charmbracelet/log"
)

// StorageKey is where the configuration lives in session storage.
const StorageKey = "settings:search"

// Remote is the server-side configuration store.
type Remote interface {
	ReadConfig(ctx context.Context, probe SearchConfiguration) (SearchConfiguration, error)
	WriteConfig(ctx context.Context, conf SearchConfiguration) error
}

// State owns the session's configuration. Every mutation is validated and
// persisted to session storage; the remote store is only written by Save.
type State struct {
	conf   SearchConfiguration
	store  storage.Store
	remote Remote
	logger *log.Logger
	mu     sync.RWMutex
}

// NewState starts from Defaults. Call Load to pick up a persisted value.
// store and remote may be nil.
func NewState(store storage.Store, remote Remote, l *log.Logger) *State {
	return &State{
		conf:   Defaults(),
		store:  store,
		remote: remote,
		logger: logger.OrDefault(l, "settings"),
	}
}

// Load prefers the persisted configuration over defaults. A persisted value
// with an invalid combination is repaired and written back.
func (s *State) Load(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	var conf SearchConfiguration
	err := storage.GetValue(ctx, s.store, StorageKey, &conf)
	if errors.Is(err, storage.ErrNotFound) {
		s.logger.Debug("No persisted configuration, using defaults")
		return nil
	}
	if err != nil {
		s.logger.Warnf("Could not read persisted configuration: %v", err)
		return err
	}

	if Normalize(&conf) {
		s.logger.Warn("Persisted configuration was invalid, corrected", "index", conf.SearchParams.IndexType, "method", conf.SearchParams.SearchMethod)
	}
	return s.replace(ctx, conf)
}

// Snapshot returns a copy of the current configuration.
func (s *State) Snapshot() SearchConfiguration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conf.Clone()
}

func (s *State) mutate(ctx context.Context, fn func(c *SearchConfiguration) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.conf.Clone()
	if err := fn(&next); err != nil {
		return err
	}
	if err := Validate(next); err != nil {
		return err
	}
	if err := s.persist(ctx, next); err != nil {
		return err
	}
	s.conf = next
	return nil
}

func (s *State) replace(ctx context.Context, conf SearchConfiguration) error {
	return s.mutate(ctx, func(c *SearchConfiguration) error {
		*c = conf.Clone()
		return nil
	})
}

func (s *State) persist(ctx context.Context, conf SearchConfiguration) error {
	if s.store == nil {
		return nil
	}
	if err := storage.PutValue(ctx, s.store, StorageKey, conf); err != nil {
		return fmt.Errorf("persist configuration: %w", err)
	}
	return nil
}

// SetIndexType switches the index and resets the method to the first one it
// allows, or MethodNone.
func (s *State) SetIndexType(ctx context.Context, t IndexType) error {
	return s.mutate(ctx, func(c *SearchConfiguration) error {
		if _, ok := allowed[t]; !ok {
			return fmt.Errorf("unknown index type %q", t)
		}
		c.SearchParams.IndexType = t
		c.SearchParams.SearchMethod = FirstMethod(t)
		return nil
	})
}

// SetSearchMethod selects m. It fails with ErrInvalidCombination when the
// current index type does not allow m.
func (s *State) SetSearchMethod(ctx context.Context, m SearchMethod) error {
	return s.mutate(ctx, func(c *SearchConfiguration) error {
		c.SearchParams.SearchMethod = m
		return nil
	})
}

func (s *State) SetCrawlDepth(ctx context.Context, depth int) error {
	return s.mutate(ctx, func(c *SearchConfiguration) error {
		c.SearchParams.CrawlDepth = depth
		return nil
	})
}

func (s *State) SetNumberOfSeeds(ctx context.Context, n int) error {
	return s.mutate(ctx, func(c *SearchConfiguration) error {
		c.SearchParams.NumberOfSeeds = n
		return nil
	})
}

// SetBrowser toggles one meta-search engine.
func (s *State) SetBrowser(ctx context.Context, engine string, enabled bool) error {
	return s.mutate(ctx, func(c *SearchConfiguration) error {
		if engine == "" {
			return errors.New("engine name is empty")
		}
		if c.SearchParams.Browsers == nil {
			c.SearchParams.Browsers = make(map[string]bool)
		}
		c.SearchParams.Browsers[engine] = enabled
		return nil
	})
}

func (s *State) SetAutosuggest(ctx context.Context, on bool) error {
	return s.mutate(ctx, func(c *SearchConfiguration) error {
		c.Autosuggest = on
		return nil
	})
}

func (s *State) SetQueryCorrection(ctx context.Context, on bool) error {
	return s.mutate(ctx, func(c *SearchConfiguration) error {
		c.QueryCorrection = on
		return nil
	})
}

// SetQuery stamps the effective query of the last dispatch.
func (s *State) SetQuery(ctx context.Context, q string) error {
	return s.mutate(ctx, func(c *SearchConfiguration) error {
		c.SearchParams.Q = q
		return nil
	})
}

// Set applies a textual field update, as sent by clients over IPC or typed
// in the REPL. Browsers are addressed as "browsers.<Engine>".
func (s *State) Set(ctx context.Context, field, value string) error {
	field = strings.TrimSpace(field)
	value = strings.TrimSpace(value)

	if engine, ok := strings.CutPrefix(field, "browsers."); ok {
		on, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
		return s.SetBrowser(ctx, engine, on)
	}

	switch field {
	case "index_type":
		return s.SetIndexType(ctx, IndexType(value))
	case "search_method":
		return s.SetSearchMethod(ctx, SearchMethod(value))
	case "crawl_depth", "number_of_seeds":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
		if field == "crawl_depth" {
			return s.SetCrawlDepth(ctx, n)
		}
		return s.SetNumberOfSeeds(ctx, n)
	case "autosuggest", "query_correction":
		on, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
		if field == "autosuggest" {
			return s.SetAutosuggest(ctx, on)
		}
		return s.SetQueryCorrection(ctx, on)
	default:
		return fmt.Errorf("unknown configuration field %q", field)
	}
}

// Save writes the current configuration to the remote store.
func (s *State) Save(ctx context.Context) error {
	if s.remote == nil {
		return errors.New("no remote configuration store")
	}
	conf := s.Snapshot()
	if err := s.remote.WriteConfig(ctx, conf); err != nil {
		s.logger.Warnf("Failed to write remote configuration: %v", err)
		return err
	}
	return nil
}

// Refresh replaces the configuration with the remote store's copy, using the
// current value as the probe. An invalid remote value is repaired before it is kept.
func (s *State) Refresh(ctx context.Context) error {
	if s.remote == nil {
		return errors.New("no remote configuration store")
	}
	conf, err := s.remote.ReadConfig(ctx, s.Snapshot())
	if err != nil {
		s.logger.Warnf("Failed to read remote configuration: %v", err)
		return err
	}
	if Normalize(&conf) {
		s.logger.Warn("Remote configuration was invalid, corrected")
	}
	return s.replace(ctx, conf)
}

// Reset drops the persisted value and returns to defaults.
func (s *State) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conf = Defaults()
	if s.store == nil {
		return nil
	}
	return s.store.Delete(ctx, StorageKey)
}
