package main

import (
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/bastiangx/educate/internal/cli"
	"github.com/bastiangx/educate/internal/logger"
	"github.com/bastiangx/educate/pkg/backend"
	"github.com/bastiangx/educate/pkg/config"
	"github.com/bastiangx/educate/pkg/dictionary"
	"github.com/bastiangx/educate/pkg/history"
	"github.com/bastiangx/educate/pkg/server"
	"github.com/bastiangx/educate/pkg/session"
	"github.com/bastiangx/educate/pkg/storage"
	"github.com/bastiangx/educate/pkg/summarize"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	ucli "github.com/urfave/cli/v2"
)

// app bundles what every command needs and releases it in close.
type app struct {
	cfg     *config.Config
	store   storage.Store
	session *session.Session
}

func (a *app) close() {
	if a.session != nil {
		a.session.Wait()
		_ = a.session.Close()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			log.Warn("Failed to close storage", "err", err)
		}
	}
}

// openApp loads the config and wires storage, backend, dictionary and summariser into a session.
func openApp(c *ucli.Context) (*app, error) {
	ctx := c.Context
	cfg, path, err := config.LoadConfigWithPriority(c.String("config"))
	if err != nil {
		return nil, err
	}
	log.Debugf("Using config file: (%s)", path)

	storagePath := ""
	if cfg.Storage.Driver == storage.DriverBadger {
		storagePath = cfg.StoragePath()
	}
	store, err := storage.Open(ctx, storage.Options{
		Driver:    cfg.Storage.Driver,
		Path:      storagePath,
		RedisAddr: cfg.Storage.RedisAddr,
		RedisDB:   cfg.Storage.RedisDB,
		KeyPrefix: cfg.Storage.KeyPrefix,
		Logger:    logger.New("storage"),
	})
	if err != nil {
		log.Warn("Storage unavailable, keeping settings in memory", "driver", cfg.Storage.Driver, "err", err)
		store = storage.NewMemoryStore()
	}
	a := &app{cfg: cfg, store: store}

	client := backend.New(backend.Options{
		BaseURL:        cfg.Backend.BaseURL,
		ResultsTimeout: cfg.Backend.ResultsTimeout(),
		RateLimit:      cfg.Backend.RateLimit,
		Burst:          cfg.Backend.Burst,
		Logger:         logger.New("backend"),
	})

	dict := dictionary.Empty()
	if cfg.Dict.Source != "" {
		loaded, err := dictionary.NewLoader(client, logger.New("dict")).Load(ctx, cfg.Dict.Source)
		if err != nil {
			log.Warn("Dictionary not loaded, continuing without one", "source", cfg.Dict.Source, "err", err)
		} else {
			dict = loaded
		}
	}

	summarizer, err := newSummarizer(cfg.Summary, client)
	if err != nil {
		log.Warn("Summaries disabled", "err", err)
	}

	s, err := session.Open(ctx, session.Options{
		Backend:        client,
		Dictionary:     dict,
		Storage:        store,
		Summarizer:     summarizer,
		MaxSuggestions: cfg.Suggest.MaxSuggestions,
		PoolSize:       cfg.Tasks.PoolSize,
		Logger:         logger.New("session"),
	})
	if err != nil {
		a.close()
		return nil, err
	}
	a.session = s
	return a, nil
}

func newSummarizer(cfg config.SummaryConfig, client *backend.Client) (summarize.Summarizer, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if strings.EqualFold(cfg.Driver, "http") {
		return summarize.NewHTTP(client, cfg.URL), nil
	}
	model, err := summarize.NewModel(cfg.Driver, cfg.URL, cfg.Model)
	if err != nil {
		return nil, err
	}
	return summarize.NewLLM(model, logger.New("summary")), nil
}

func serveCommand() *ucli.Command {
	return &ucli.Command{
		Name:  "serve",
		Usage: "run the MessagePack IPC server over stdin/stdout",
		Action: func(c *ucli.Context) error {
			a, err := openApp(c)
			if err != nil {
				return err
			}
			defer a.close()

			showStartupInfo(a)
			return server.NewServer(a.session).Start(c.Context)
		},
	}
}

func replCommand() *ucli.Command {
	return &ucli.Command{
		Name:  "repl",
		Usage: "interactive CLI, useful for testing and debugging",
		Flags: []ucli.Flag{
			&ucli.BoolFlag{Name: "filter", Usage: "skip numeric, symbol and repetitive words (DBG only)"},
		},
		Action: func(c *ucli.Context) error {
			log.SetReportTimestamp(false)
			a, err := openApp(c)
			if err != nil {
				return err
			}
			defer a.close()
			return cli.NewInputHandler(a.session, c.Bool("filter")).Start(c.Context)
		},
	}
}

func searchCommand() *ucli.Command {
	return &ucli.Command{
		Name:      "search",
		Usage:     "run one search and print the merged results",
		ArgsUsage: "<query>",
		Action: func(c *ucli.Context) error {
			q := strings.Join(c.Args().Slice(), " ")
			if strings.TrimSpace(q) == "" {
				return ucli.Exit("a query is required", 2)
			}
			a, err := openApp(c)
			if err != nil {
				return err
			}
			defer a.close()

			out, err := a.session.Search(c.Context, q)
			if err != nil {
				return err
			}
			if out.Query != q {
				fmt.Printf("showing results for %q\n", out.Query)
			}
			for _, r := range out.Results {
				h := r.Head()
				fmt.Printf("[%d] %s\n     %s\n", h.ID, h.Title, h.URL)
			}
			if out.Summaries != nil {
				if err := out.Summaries.Wait(c.Context); err == nil {
					all := out.Summaries.All()
					for _, id := range slices.Sorted(maps.Keys(all)) {
						fmt.Printf("summary [%d]: %s\n", id, all[id])
					}
				}
			}
			return nil
		},
	}
}

func historyCommand() *ucli.Command {
	return &ucli.Command{
		Name:  "history",
		Usage: "print the grouped browsing history of this session",
		Flags: []ucli.Flag{
			&ucli.StringFlag{Name: "sort", Value: string(history.SortDate), Usage: "date or term"},
			&ucli.StringFlag{Name: "filter", Usage: "case-sensitive query prefix"},
		},
		Action: func(c *ucli.Context) error {
			sortType, err := history.ParseSort(c.String("sort"))
			if err != nil {
				return ucli.Exit(err.Error(), 2)
			}
			a, err := openApp(c)
			if err != nil {
				return err
			}
			defer a.close()

			for _, g := range a.session.History(sortType, c.String("filter")) {
				fmt.Println(g.Key)
				for _, e := range g.Entries {
					fmt.Printf("    %s  %s\n", e.Title, e.URL)
				}
			}
			return nil
		},
	}
}

func versionCommand() *ucli.Command {
	return &ucli.Command{
		Name:  "version",
		Usage: "show the current version",
		Action: func(c *ucli.Context) error {
			banner := log.NewWithOptions(os.Stderr, log.Options{
				ReportCaller:    false,
				ReportTimestamp: false,
				Prefix:          "",
			})

			styles := log.DefaultStyles()
			styles.Values["version"] = lipgloss.NewStyle().Bold(true).
				Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
			styles.Values["gh"] = lipgloss.NewStyle().Italic(true).
				Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
			banner.SetStyles(styles)

			banner.Print("")
			banner.Print("[ Educate ] completes, corrects and searches")
			banner.Print("", "version", Version)
			banner.Print("")
			banner.Print("use -h or --help to see available options")
			banner.Print("Github Repo", "gh", gh)
			return nil
		},
	}
}

// showStartupInfo displays some basic info about the init process.
func showStartupInfo(a *app) {
	currentLevel := log.GetLevel()
	log.SetLevel(log.InfoLevel)

	fmt.Fprintln(os.Stderr, "===========")
	fmt.Fprintln(os.Stderr, "  Educate  ")
	fmt.Fprintln(os.Stderr, "===========")
	log.Infof("Version: %s", Version)
	log.Infof("Process ID: [ %d ]", os.Getpid())
	log.Infof("session: %s", a.session.ID())
	log.Infof("backend: ( %s )", a.cfg.Backend.BaseURL)
	log.Infof("dictionary: %d words", a.session.Dictionary().Len())
	log.Info("status: ready")
	fmt.Fprintln(os.Stderr, "===========")

	log.SetLevel(currentLevel)
}
