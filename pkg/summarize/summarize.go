// Package summarize produces short natural-language summaries of result
// contents, keyed by the client-assigned result id.
package summarize

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/bastiangx/educate/internal/logger"
	"github.com/charmbracelet/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// Prompt is prepended to every content sent to a model.
const Prompt = "Summarise the following text: "

// Summarizer turns contents keyed by result id into summaries keyed the same
// way. Ids missing from the reply are simply not summarised yet.
type Summarizer interface {
	Summarize(ctx context.Context, contents map[int]string) (map[int]string, error)
}

// Poster is the transport HTTP uses; backend.Client satisfies it.
type Poster interface {
	Summarize(ctx context.Context, url string, contents map[int]string) (map[int]string, error)
}

// HTTP sends the whole batch in one request to a summarisation service.
type HTTP struct {
	poster Poster
	url    string
}

// NewHTTP creates a Summarizer posting to url.
func NewHTTP(p Poster, url string) *HTTP {
	return &HTTP{poster: p, url: url}
}

func (h *HTTP) Summarize(ctx context.Context, contents map[int]string) (map[int]string, error) {
	if len(contents) == 0 {
		return map[int]string{}, nil
	}
	return h.poster.Summarize(ctx, h.url, contents)
}

// LLM asks a language model for each summary in turn. A failed item is
// logged and left out of the reply.
type LLM struct {
	model  llms.Model
	logger *log.Logger
}

// NewLLM wraps an existing model.
func NewLLM(model llms.Model, l *log.Logger) *LLM {
	return &LLM{model: model, logger: logger.OrDefault(l, "summary")}
}

// Supported model drivers.
const (
	DriverOllama = "ollama"
	DriverOpenAI = "openai"
)

// NewModel builds a langchaingo model for driver. serverURL may be empty to
// use the driver's default.
func NewModel(driver, serverURL, model string) (llms.Model, error) {
	switch strings.ToLower(driver) {
	case "", DriverOllama:
		opts := []ollama.Option{ollama.WithModel(model)}
		if serverURL != "" {
			opts = append(opts, ollama.WithServerURL(serverURL))
		}
		return ollama.New(opts...)
	case DriverOpenAI:
		// local OpenAI-compatible servers take any token
		opts := []openai.Option{openai.WithModel(model), openai.WithToken("none")}
		if serverURL != "" {
			opts = append(opts, openai.WithBaseURL(serverURL))
		}
		return openai.New(opts...)
	default:
		return nil, fmt.Errorf("unknown summary driver %q", driver)
	}
}

func (s *LLM) Summarize(ctx context.Context, contents map[int]string) (map[int]string, error) {
	ids := make([]int, 0, len(contents))
	for id := range contents {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	out := make(map[int]string, len(ids))
	var lastErr error
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		msg := []llms.MessageContent{
			llms.TextParts(llms.ChatMessageTypeHuman, Prompt+contents[id]),
		}
		resp, err := s.model.GenerateContent(ctx, msg)
		if err != nil {
			s.logger.Warn("summary failed", "id", id, "err", err)
			lastErr = err
			continue
		}
		if len(resp.Choices) < 1 {
			s.logger.Debug("no choices returned from model", "id", id)
			continue
		}
		out[id] = strings.TrimSpace(resp.Choices[0].Content)
	}

	if len(out) == 0 && lastErr != nil {
		return nil, fmt.Errorf("summarize: %w", lastErr)
	}
	return out, nil
}
