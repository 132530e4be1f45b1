package dictionary

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bastiangx/educate/internal/logger"
	"github.com/charmbracelet/log"
)

// ErrEmptyDictionary is returned when a source decodes to zero words.
var ErrEmptyDictionary = errors.New("dictionary source contains no words")

// Fetcher retrieves a remote word-list resource.
type Fetcher interface {
	FetchDictionary(ctx context.Context, url string) ([]byte, error)
}

// Loader loads a Store from a local file or a remote URL.
type Loader struct {
	fetcher Fetcher
	logger  *log.Logger
}

// NewLoader creates a loader. fetcher may be nil when only files are used.
func NewLoader(fetcher Fetcher, l *log.Logger) *Loader {
	return &Loader{fetcher: fetcher, logger: logger.OrDefault(l, "dict")}
}

// Load reads source once and builds the session Store.
// Sources starting with http:// or https:// go through the Fetcher.
func (l *Loader) Load(ctx context.Context, source string) (*Store, error) {
	start := time.Now()

	data, err := l.read(ctx, source)
	if err != nil {
		return nil, err
	}

	format := DetectFormat(source, data)
	words, err := Parse(format, data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse dictionary %s: %w", source, err)
	}
	if len(words) == 0 {
		return nil, ErrEmptyDictionary
	}

	store := New(words)
	l.logger.Debug("dictionary loaded",
		"source", source,
		"format", format,
		"words", store.Len(),
		"took", time.Since(start))
	return store, nil
}

func (l *Loader) read(ctx context.Context, source string) ([]byte, error) {
	if source == "" {
		return nil, fmt.Errorf("no dictionary source configured")
	}
	if isRemote(source) {
		if l.fetcher == nil {
			return nil, fmt.Errorf("no fetcher configured for remote dictionary %s", source)
		}
		return l.fetcher.FetchDictionary(ctx, source)
	}
	data, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("failed to read dictionary file %s: %w", source, err)
	}
	return data, nil
}

func isRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}
