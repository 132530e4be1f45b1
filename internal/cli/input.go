// Package cli handles cmd line input for debugging a session in real time:
// completions as you type, searches, history and configuration.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bastiangx/educate/internal/utils"
	"github.com/bastiangx/educate/pkg/dispatch"
	"github.com/bastiangx/educate/pkg/history"
	"github.com/bastiangx/educate/pkg/results"
	"github.com/bastiangx/educate/pkg/settings"
	"github.com/bastiangx/educate/pkg/suggest"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

// Session is the part of a session the REPL drives.
type Session interface {
	Keystroke(text string) []suggest.Entry
	Select(query, key string) string
	Search(ctx context.Context, query string) (*dispatch.Outcome, error)
	Last() *dispatch.Outcome
	History(sort history.SortType, filterPrefix string) []history.Group
	Settings() *settings.State
	Login(ctx context.Context, username, password string) error
	Logout()
	User() string
}

type styles struct {
	word, meta, dim, err lipgloss.Style
}

// newStyles binds colours to out, so piped output stays plain.
func newStyles(out io.Writer) styles {
	r := lipgloss.NewRenderer(out)
	return styles{
		word: r.NewStyle().Foreground(lipgloss.Color("75")),
		meta: r.NewStyle().Foreground(lipgloss.Color("213")),
		dim:  r.NewStyle().Faint(true),
		err:  r.NewStyle().Foreground(lipgloss.Color("203")),
	}
}

const helpText = `commands:
  <text>                   show completions for the trailing word
  /pick <n>                replace the trailing word with suggestion n
  /search [query]          search, defaults to the current buffer
  /history [date|term] [prefix]
  /summary <id>
  /config                  show the configuration
  /set <field> <value>     e.g. /set index_type Inverted
  /save                    write the configuration to the server
  /login <user> <password>
  /logout
  /quit`

// InputHandler reads lines from stdin and drives a session.
type InputHandler struct {
	session     Session
	in          io.Reader
	out         io.Writer
	style       styles
	buffer      string
	suggestions []suggest.Entry
	filter      bool
}

// NewInputHandler creates a handler on stdin/stdout. With filter on, words
// that fail utils.IsValidInput are not looked up (DBG only).
func NewInputHandler(s Session, filter bool) *InputHandler {
	return NewInputHandlerWithIO(s, os.Stdin, os.Stdout, filter)
}

// NewInputHandlerWithIO creates a handler over arbitrary streams.
func NewInputHandlerWithIO(s Session, in io.Reader, out io.Writer, filter bool) *InputHandler {
	return &InputHandler{session: s, in: in, out: out, style: newStyles(out), filter: filter}
}

// Start runs the loop until input ends, /quit, or ctx is done.
func (h *InputHandler) Start(ctx context.Context) error {
	fmt.Fprintln(h.out, "Educate CLI [BETA]")
	fmt.Fprintln(h.out, "type something and press Enter to see suggestions, /help for commands:")

	scanner := bufio.NewScanner(h.in)
	for {
		fmt.Fprint(h.out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" || line == "/exit" {
			return nil
		}
		h.handleInput(ctx, line)
	}
}

func (h *InputHandler) handleInput(ctx context.Context, line string) {
	if !strings.HasPrefix(line, "/") {
		h.complete(line)
		return
	}

	cmd, rest, _ := strings.Cut(line[1:], " ")
	args := strings.Fields(rest)
	switch cmd {
	case "help":
		fmt.Fprintln(h.out, helpText)
	case "pick":
		h.pick(args)
	case "search":
		q := strings.TrimSpace(rest)
		if q == "" {
			q = h.buffer
		}
		h.search(ctx, q)
	case "history":
		h.history(args)
	case "summary":
		h.summary(args)
	case "config":
		h.printConfig()
	case "set":
		if len(args) < 2 {
			h.fail("usage: /set <field> <value>")
			return
		}
		if err := h.session.Settings().Set(ctx, args[0], strings.Join(args[1:], " ")); err != nil {
			h.fail(err.Error())
			return
		}
		h.printConfig()
	case "save":
		if err := h.session.Settings().Save(ctx); err != nil {
			h.fail(err.Error())
			return
		}
		fmt.Fprintln(h.out, "configuration saved")
	case "login":
		if len(args) != 2 {
			h.fail("usage: /login <user> <password>")
			return
		}
		if err := h.session.Login(ctx, args[0], args[1]); err != nil {
			h.fail(err.Error())
			return
		}
		fmt.Fprintf(h.out, "logged in as %s\n", h.session.User())
	case "logout":
		h.session.Logout()
		fmt.Fprintln(h.out, "logged out")
	default:
		h.fail(fmt.Sprintf("unknown command /%s, try /help", cmd))
	}
}

func (h *InputHandler) complete(text string) {
	h.buffer = text
	word := suggest.TrailingWord(text)
	if h.filter && word != "" && !utils.IsValidInput(word) {
		log.Debug("Skipping invalid input", "word", word)
		return
	}

	start := time.Now()
	h.suggestions = h.session.Keystroke(text)
	log.Debugf("Took [ %v ] for '%s'", time.Since(start), text)

	if len(h.suggestions) == 0 {
		fmt.Fprintf(h.out, "no suggestions for '%s'\n", word)
		return
	}
	for i, s := range h.suggestions {
		fmt.Fprintf(h.out, "%2d. %s\n", i+1, h.style.word.Render(s.Key))
	}
}

func (h *InputHandler) pick(args []string) {
	if len(args) != 1 {
		h.fail("usage: /pick <n>")
		return
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 || n > len(h.suggestions) {
		h.fail(fmt.Sprintf("no suggestion %s", args[0]))
		return
	}
	h.buffer = h.session.Select(h.buffer, h.suggestions[n-1].Key)
	fmt.Fprintln(h.out, h.buffer)
}

func (h *InputHandler) search(ctx context.Context, q string) {
	if q == "" {
		h.fail("nothing to search")
		return
	}
	fmt.Fprintln(h.out, h.style.dim.Render("searching..."))
	out, err := h.session.Search(ctx, q)
	if err != nil {
		h.fail(err.Error())
		return
	}
	h.buffer = out.Query
	if out.Query != q {
		fmt.Fprintf(h.out, "showing results for %s\n", h.style.word.Render(out.Query))
	}
	for _, r := range out.Results {
		head := r.Head()
		tag := string(r.Kind())
		if m, ok := r.(results.Meta); ok {
			tag = h.style.meta.Render(m.Engine)
		}
		fmt.Fprintf(h.out, "[%d] %s %s\n     %s\n", head.ID, head.Title, h.style.dim.Render("("+tag+")"), head.URL)
	}
	fmt.Fprintf(h.out, "indexed %d, ranked %d in %dms\n", out.Metrics.Indexed, out.Metrics.Ranked, out.Metrics.ElapsedMs)
}

func (h *InputHandler) history(args []string) {
	sortArg, prefix := "", ""
	if len(args) > 0 {
		sortArg = args[0]
	}
	if len(args) > 1 {
		prefix = strings.Join(args[1:], " ")
	}
	sortType, err := history.ParseSort(sortArg)
	if err != nil {
		h.fail(err.Error())
		return
	}
	groups := h.session.History(sortType, prefix)
	if len(groups) == 0 {
		fmt.Fprintln(h.out, "no history")
		return
	}
	for _, g := range groups {
		fmt.Fprintln(h.out, h.style.word.Render(g.Key))
		for _, e := range g.Entries {
			fmt.Fprintf(h.out, "    %s %s\n", e.Title, h.style.dim.Render(e.URL))
		}
	}
}

func (h *InputHandler) summary(args []string) {
	last := h.session.Last()
	if last == nil || len(args) != 1 {
		h.fail("usage: /summary <id> after a search")
		return
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		h.fail(err.Error())
		return
	}
	if last.Summaries == nil {
		fmt.Fprintln(h.out, h.style.dim.Render("no summaries for this search"))
		return
	}
	if s, ok := last.Summaries.Get(id); ok {
		fmt.Fprintln(h.out, s)
		return
	}
	fmt.Fprintln(h.out, h.style.dim.Render("summary pending"))
}

func (h *InputHandler) printConfig() {
	conf := h.session.Settings().Snapshot()
	p := conf.SearchParams
	methods := settings.AllowedMethods(p.IndexType)

	method := string(p.SearchMethod)
	if p.SearchMethod == settings.MethodNone {
		method = "(no valid method)"
	}
	fmt.Fprintf(h.out, "index_type       %s\n", p.IndexType)
	fmt.Fprintf(h.out, "search_method    %s %s\n", method, h.style.dim.Render(fmt.Sprint(methods)))
	fmt.Fprintf(h.out, "crawl_depth      %d\n", p.CrawlDepth)
	fmt.Fprintf(h.out, "number_of_seeds  %d\n", p.NumberOfSeeds)
	fmt.Fprintf(h.out, "browsers         %v\n", p.Browsers)
	fmt.Fprintf(h.out, "autosuggest      %t\n", conf.Autosuggest)
	fmt.Fprintf(h.out, "query_correction %t\n", conf.QueryCorrection)
}

func (h *InputHandler) fail(msg string) {
	fmt.Fprintln(h.out, h.style.err.Render(msg))
}
