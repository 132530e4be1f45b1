package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/bastiangx/educate/internal/logger"
	"github.com/bastiangx/educate/internal/utils"
	"github.com/bastiangx/educate/pkg/backend"
	"github.com/bastiangx/educate/pkg/dispatch"
	"github.com/bastiangx/educate/pkg/history"
	"github.com/bastiangx/educate/pkg/results"
	"github.com/bastiangx/educate/pkg/session"
	"github.com/bastiangx/educate/pkg/settings"
	"github.com/bastiangx/educate/pkg/suggest"
	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"
)

// Session is what the server drives. *session.Session satisfies it.
type Session interface {
	Keystroke(text string) []suggest.Entry
	Primary() (suggest.Entry, bool)
	Select(query, key string) string
	Search(ctx context.Context, query string) (*dispatch.Outcome, error)
	Last() *dispatch.Outcome
	History(sort history.SortType, filterPrefix string) []history.Group
	Settings() *settings.State
	Login(ctx context.Context, username, password string) error
	Register(ctx context.Context, username, password string) error
	Logout()
	User() string
	Stats() map[string]int
}

var _ Session = (*session.Session)(nil)

// Server handles msgpack IPC for one session
type Server struct {
	session Session
	dec     *msgpack.Decoder
	enc     *msgpack.Encoder
	logger  *log.Logger
	mu      sync.Mutex
}

// NewServer creates a server using stdin/stdout for IPC
func NewServer(s Session) *Server {
	return NewServerWithIO(s, os.Stdin, os.Stdout, nil)
}

// NewServerWithIO creates a server over arbitrary streams.
func NewServerWithIO(s Session, r io.Reader, w io.Writer, l *log.Logger) *Server {
	return &Server{
		session: s,
		dec:     msgpack.NewDecoder(r),
		enc:     msgpack.NewEncoder(w),
		logger:  logger.OrDefault(l, "server"),
	}
}

// Start reads requests until the input ends or ctx is done. A request that
// cannot be decoded ends the loop, since the stream position is lost.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Debug("Starting Server.")
	s.send(StatusResponse{Status: "ready"})

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		var req Request
		if err := s.dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			s.logger.Errorf("Reading request: %v", err)
			s.sendError("", "invalid msgpack request", 400)
			return err
		}
		s.handleRequest(ctx, req)
	}
}

func (s *Server) handleRequest(ctx context.Context, req Request) {
	switch req.Op {
	case OpComplete:
		s.handleComplete(req)
	case OpSelect:
		s.send(SelectResponse{ID: req.ID, Query: s.session.Select(req.Text, req.Key)})
	case OpSearch:
		s.handleSearch(ctx, req)
	case OpHistory:
		s.handleHistory(req)
	case OpConfig:
		s.sendConfig(req.ID)
	case OpConfigSet:
		if err := s.session.Settings().Set(ctx, req.Field, req.Value); err != nil {
			s.sendError(req.ID, err.Error(), 400)
			return
		}
		s.sendConfig(req.ID)
	case OpConfigSave:
		if err := s.session.Settings().Save(ctx); err != nil {
			s.sendFailure(req.ID, err)
			return
		}
		s.send(StatusResponse{ID: req.ID, Status: "saved"})
	case OpConfigRead:
		if err := s.session.Settings().Refresh(ctx); err != nil {
			s.sendFailure(req.ID, err)
			return
		}
		s.sendConfig(req.ID)
	case OpSummary:
		s.handleSummary(req)
	case OpLogin:
		if err := s.session.Login(ctx, req.Username, req.Password); err != nil {
			s.sendFailure(req.ID, err)
			return
		}
		s.send(StatusResponse{ID: req.ID, Status: "ok", User: s.session.User()})
	case OpRegister:
		if err := s.session.Register(ctx, req.Username, req.Password); err != nil {
			s.sendFailure(req.ID, err)
			return
		}
		s.send(StatusResponse{ID: req.ID, Status: "registered"})
	case OpLogout:
		s.session.Logout()
		s.send(StatusResponse{ID: req.ID, Status: "ok"})
	case OpHealth:
		s.send(StatusResponse{ID: req.ID, Status: "ok", User: s.session.User(), Stats: s.session.Stats()})
	default:
		s.sendError(req.ID, fmt.Sprintf("Unknown op: %s", req.Op), 400)
	}
}

func (s *Server) handleComplete(req Request) {
	start := time.Now()

	// an empty word or a miss keeps the previous suggestions
	entries := s.session.Keystroke(req.Text)

	ranks := utils.CreateRankList(len(entries))
	suggestions := make([]CompletionSuggestion, len(entries))
	for i, e := range entries {
		suggestions[i] = CompletionSuggestion{Word: e.Key, Rank: ranks[i]}
	}

	resp := CompletionResponse{
		ID:          req.ID,
		Suggestions: suggestions,
		Count:       len(suggestions),
		TimeTaken:   time.Since(start).Microseconds(),
	}
	if primary, ok := s.session.Primary(); ok && len(entries) > 0 {
		resp.Primary = primary.Key
	}
	s.send(resp)
}

func (s *Server) handleSearch(ctx context.Context, req Request) {
	if req.Query == "" {
		s.sendError(req.ID, "Missing 'q' parameter", 400)
		return
	}
	out, err := s.session.Search(ctx, req.Query)
	if err != nil {
		s.sendFailure(req.ID, err)
		return
	}
	s.send(SearchResponse{
		ID:      req.ID,
		Query:   out.Query,
		Results: results.Views(out.Results),
		Metrics: out.Metrics,
	})
}

func (s *Server) handleHistory(req Request) {
	sortType, err := history.ParseSort(req.Sort)
	if err != nil {
		s.sendError(req.ID, err.Error(), 400)
		return
	}
	groups := s.session.History(sortType, req.Filter)
	if groups == nil {
		groups = []history.Group{}
	}
	s.send(HistoryResponse{ID: req.ID, Groups: groups})
}

func (s *Server) handleSummary(req Request) {
	last := s.session.Last()
	if last == nil {
		s.sendError(req.ID, "No search has completed yet", 404)
		return
	}
	resp := SummaryResponse{ID: req.ID, ResultID: req.ResultID, Pending: true}
	if summary, ok := last.Summaries.Get(req.ResultID); ok {
		resp.Summary = summary
		resp.Pending = false
	}
	s.send(resp)
}

func (s *Server) sendConfig(id string) {
	conf := s.session.Settings().Snapshot()
	s.send(ConfigResponse{
		ID:      id,
		Config:  conf,
		Methods: settings.AllowedMethods(conf.SearchParams.IndexType),
	})
}

// sendFailure maps err onto a response code.
func (s *Server) sendFailure(id string, err error) {
	code := 500
	var verr *session.ValidationError
	switch {
	case errors.As(err, &verr), errors.Is(err, settings.ErrInvalidCombination):
		code = 400
	case backend.IsTransport(err), errors.Is(err, backend.ErrEmptyResponse):
		code = 502
	}
	s.sendError(id, err.Error(), code)
}

func (s *Server) sendError(id, message string, code int) {
	s.send(ErrorResponse{ID: id, Error: message, Code: code})
}

func (s *Server) send(response any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enc.Encode(response); err != nil {
		s.logger.Errorf("Encoding response: %v", err)
	}
}
