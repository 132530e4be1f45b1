// Package dispatch runs one search end to end: correction, index fill,
// ranked results, merge, metrics, then history logging and summaries in the
// background.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/bastiangx/educate/internal/logger"
	"github.com/bastiangx/educate/pkg/history"
	"github.com/bastiangx/educate/pkg/results"
	"github.com/bastiangx/educate/pkg/settings"
	"github.com/bastiangx/educate/pkg/summarize"
	"github.com/charmbracelet/log"
	"github.com/microcosm-cc/bluemonday"
)

// Backend is the subset of the search server a dispatch talks to.
type Backend interface {
	Fill(ctx context.Context, conf settings.SearchConfiguration) error
	Results(ctx context.Context, conf settings.SearchConfiguration) ([]results.Element, error)
	AppendHistory(ctx context.Context, username string, entries []history.Entry) error
}

// Corrector rewrites a query term by term.
type Corrector interface {
	CorrectQuery(query string) string
}

// Spawner runs detached work. tasks.Runner satisfies it.
type Spawner interface {
	Go(name string, fn func(ctx context.Context) error)
}

// Options wires the optional collaborators of a Dispatcher.
type Options struct {
	Corrector  Corrector
	History    *history.Store
	Summarizer summarize.Summarizer
	Tasks      Spawner
	// Policy sanitises titles and contents; nil keeps them verbatim.
	Policy *bluemonday.Policy
	Now    func() time.Time
	Logger *log.Logger
}

// Dispatcher runs searches. Concurrent dispatches are independent: nothing
// cancels an older one, so a slow response can land after a newer one.
type Dispatcher struct {
	backend    Backend
	corrector  Corrector
	history    *history.Store
	summarizer summarize.Summarizer
	tasks      Spawner
	policy     *bluemonday.Policy
	now        func() time.Time
	logger     *log.Logger
}

// Outcome is what one dispatch produced.
type Outcome struct {
	// Query is the effective query after correction.
	Query     string
	Config    settings.SearchConfiguration
	Results   []results.Result
	Metrics   results.Metrics
	Summaries *SummarySet
}

// New creates a Dispatcher over backend.
func New(backend Backend, opts Options) *Dispatcher {
	d := &Dispatcher{
		backend:    backend,
		corrector:  opts.Corrector,
		history:    opts.History,
		summarizer: opts.Summarizer,
		tasks:      opts.Tasks,
		policy:     opts.Policy,
		now:        opts.Now,
		logger:     logger.OrDefault(opts.Logger, "dispatch"),
	}
	if d.now == nil {
		d.now = time.Now
	}
	if d.tasks == nil {
		d.tasks = goSpawner{d.logger}
	}
	return d
}

// Dispatch runs the pipeline for query under conf. user is empty for an
// anonymous session, in which case nothing is logged to history.
// A failed ranked-results call returns an Outcome with no results together
// with the error; the fill call is best effort.
func (d *Dispatcher) Dispatch(ctx context.Context, query string, conf settings.SearchConfiguration, user string) (*Outcome, error) {
	start := time.Now()

	effective := query
	if conf.QueryCorrection && d.corrector != nil {
		effective = d.corrector.CorrectQuery(query)
		if effective != query {
			d.logger.Debug("query corrected", "from", query, "to", effective)
		}
	}
	conf = conf.WithQuery(effective)

	out := &Outcome{
		Query:     effective,
		Config:    conf,
		Summaries: newSummarySet(),
	}

	if err := d.backend.Fill(ctx, conf); err != nil {
		d.logger.Warn("index fill failed, continuing", "err", err)
	}

	elems, err := d.backend.Results(ctx, conf)
	if err != nil {
		d.logger.Error("ranked results failed", "query", effective, "err", err)
		out.Metrics.ElapsedMs = time.Since(start).Milliseconds()
		out.Summaries.finish()
		return out, fmt.Errorf("ranked results: %w", err)
	}

	batch := results.Merge(elems, d.policy)
	if batch.Skipped > 0 {
		d.logger.Warn("skipped result elements with unknown tags", "count", batch.Skipped)
	}
	out.Results = batch.Results
	out.Metrics = batch.Metrics
	out.Metrics.ElapsedMs = time.Since(start).Milliseconds()

	if user != "" {
		d.logHistory(user, effective, out.Results)
	}
	d.summarize(out)

	d.logger.Debug("dispatch done", "query", effective, "results", len(out.Results), "elapsed_ms", out.Metrics.ElapsedMs)
	return out, nil
}

// HistoryBatch builds the entries logged for one dispatch.
func HistoryBatch(query, date string, rs []results.Result) []history.Entry {
	entries := make([]history.Entry, 0, len(rs))
	for _, r := range rs {
		h := r.Head()
		entries = append(entries, history.Entry{
			Query: query,
			URL:   h.URL,
			Title: h.Title,
			Date:  date,
		})
	}
	return entries
}

func (d *Dispatcher) logHistory(user, query string, rs []results.Result) {
	entries := HistoryBatch(query, history.FormatDate(d.now()), rs)
	if len(entries) == 0 {
		return
	}
	if d.history != nil {
		d.history.Append(entries...)
	}
	d.tasks.Go("add-history", func(ctx context.Context) error {
		return d.backend.AppendHistory(ctx, user, entries)
	})
}

func (d *Dispatcher) summarize(out *Outcome) {
	if d.summarizer == nil {
		out.Summaries.finish()
		return
	}

	contents := make(map[int]string)
	for _, r := range out.Results {
		if c := results.Content(r); c != "" {
			contents[r.Head().ID] = c
		}
	}
	if len(contents) == 0 {
		out.Summaries.finish()
		return
	}

	set := out.Summaries
	d.tasks.Go("summaries", func(ctx context.Context) error {
		defer set.finish()
		got, err := d.summarizer.Summarize(ctx, contents)
		if err != nil {
			return err
		}
		set.attach(got, contents)
		return nil
	})
}

type goSpawner struct {
	logger *log.Logger
}

func (g goSpawner) Go(name string, fn func(ctx context.Context) error) {
	go func() {
		if err := fn(context.Background()); err != nil {
			g.logger.Warn("background task failed", "task", name, "err", err)
		}
	}()
}
