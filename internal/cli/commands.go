package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dyike/StockAgent/config"
	"github.com/dyike/StockAgent/internal/api"
	"github.com/dyike/StockAgent/internal/debug"
	"github.com/dyike/StockAgent/internal/display"
	apperr "github.com/dyike/StockAgent/internal/errors"
	"github.com/dyike/StockAgent/internal/logging"
	"github.com/dyike/StockAgent/internal/router"
	"github.com/dyike/StockAgent/internal/storage"
	"github.com/dyike/StockAgent/pkg/app"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	debug      bool
	logLevel   string

	mgr *config.Manager
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "stockagent",
		Short: "StockAgent - stock lookups and AI answers in your terminal",
		Long: `StockAgent answers free-form questions. Queries that mention a ticker
(AAPL, $tsla) show the current price, company info, a one-month chart and a
short AI explanation of the trend. Anything else goes to the language model.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg := opts.mgr.Get()
			if err := debug.NewEinoDebugger(&cfg, log.Logger).Initialize(ctx); err != nil {
				log.Warn().Err(err).Msg("eino debug server not started")
			}

			rt, err := app.NewRuntime(opts.mgr)
			if err != nil {
				return err
			}
			defer rt.Close()

			return NewSession(rt, surveyPrompter{}, cmd.OutOrStdout()).Start(ctx)
		},
	}

	rootCmd.AddCommand(newAskCmd(opts))
	rootCmd.AddCommand(newRouteCmd(opts))
	rootCmd.AddCommand(newHistoryCmd(opts))
	rootCmd.AddCommand(newConfigCmd(opts))
	rootCmd.AddCommand(newServeCmd(opts))
	rootCmd.AddCommand(newVersionCmd())

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Configuration file path")
	rootCmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	return rootCmd
}

// setup loads the config and sets up logging once per invocation.
func (o *rootOptions) setup() error {
	if o.mgr != nil {
		return nil
	}
	mgr, err := config.NewManager(config.WithConfigPath(o.configPath), config.WithInitialConfig(config.DefaultConfig()))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg := mgr.Get()
	cfg.Debug = cfg.Debug || o.debug
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	logging.Setup(&cfg)
	log.Debug().Str("config", mgr.Path()).Msg("config loaded")
	o.mgr = mgr
	return nil
}

func newAskCmd(opts *rootOptions) *cobra.Command {
	var (
		save      bool
		reportDir string
	)
	cmd := &cobra.Command{
		Use:   "ask QUERY...",
		Short: "Answer a single query",
		Long: `Answer one query and exit.
Example: stockagent ask "how is $TSLA doing"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := app.NewRuntime(opts.mgr, app.WithoutWatch())
			if err != nil {
				return err
			}
			defer rt.Close()

			engine := rt.Engine()
			printer := display.NewPrinter(cmd.OutOrStdout())
			warnMissingKey(printer, engine.Config)

			query := strings.Join(args, " ")
			resp, err := engine.Agent.Handle(cmd.Context(), query)
			if err != nil {
				return fmt.Errorf("%s", apperr.UserMessage(err))
			}
			printer.Response(resp)

			if reportDir != "" {
				now := time.Now()
				path, err := display.WriteMarkdown(reportDir, display.ReportFileName(resp, now), display.Markdown(resp, now))
				if err != nil {
					return err
				}
				printer.Info("Report written to " + path)
			}
			if save {
				if _, err := engine.History.Save(cmd.Context(), query, resp.Decision.Kind()); err != nil {
					return fmt.Errorf("save query: %w", err)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&save, "save", false, "Save the query to the history")
	cmd.Flags().StringVar(&reportDir, "report", "", "Also write a markdown report to this directory")
	return cmd
}

func newRouteCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "route QUERY...",
		Short: "Show how a query would be routed, without calling any provider",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := routerFromConfig(opts.mgr.Get())
			if err != nil {
				return err
			}
			return printRoute(cmd.OutOrStdout(), r, strings.Join(args, " "), asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the decision as JSON")
	return cmd
}

func routerFromConfig(cfg config.Config) (*router.Router, error) {
	symbols := router.DefaultSymbols()
	if cfg.SymbolsFile != "" {
		loaded, err := router.LoadSymbols(cfg.SymbolsFile)
		if err != nil {
			return nil, err
		}
		symbols = loaded
	}
	return router.New(symbols, router.WithStrict(cfg.RouterStrict)), nil
}

func printRoute(w io.Writer, r *router.Router, query string, asJSON bool) error {
	decision := r.Route(query)
	var tickers []string
	if lookup, ok := decision.(router.StockLookup); ok {
		tickers = lookup.Tickers
	}

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"kind":       decision.Kind(),
			"tickers":    tickers,
			"candidates": r.Candidates(query),
		})
	}

	fmt.Fprintf(w, "kind:       %s\n", decision.Kind())
	if len(tickers) > 0 {
		fmt.Fprintf(w, "tickers:    %s\n", strings.Join(tickers, ", "))
	}
	if candidates := r.Candidates(query); len(candidates) > 0 {
		fmt.Fprintf(w, "candidates: %s\n", strings.Join(candidates, ", "))
	}
	return nil
}

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var (
		limit    int
		clearAll bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List saved queries",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.mgr.Get()
			history, err := storage.Open(&cfg)
			if err != nil {
				return err
			}
			defer history.Close()

			printer := display.NewPrinter(cmd.OutOrStdout())
			if clearAll {
				if err := history.Clear(cmd.Context()); err != nil {
					return err
				}
				printer.Info("History cleared.")
				return nil
			}
			if cfg.HistoryDBPath == "" {
				printer.Info("history_db_path is not set; queries are only kept for the length of a session.")
			}
			entries, err := history.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			printer.History(entries)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", storage.SessionLimit, "Number of entries to show")
	cmd.Flags().BoolVar(&clearAll, "clear", false, "Delete all saved queries")
	return cmd
}

// newConfigCmd creates the config command
func newConfigCmd(opts *rootOptions) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd.OutOrStdout(), opts.mgr.Path(), opts.mgr.Get())
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration and credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateConfig(cmd.OutOrStdout(), opts.mgr.Get())
		},
	})

	return configCmd
}

func showConfig(w io.Writer, path string, cfg config.Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "# %s\n%s\n\n", path, data)

	fmt.Fprintln(w, "# credentials (environment only)")
	creds := []struct {
		env   string
		value string
	}{
		{"MISTRAL_API_KEY", cfg.MistralAPIKey},
		{"DEEPSEEK_API_KEY", cfg.DeepSeekAPIKey},
		{"OPENAI_API_KEY", cfg.OpenAIAPIKey},
		{"STOCKAGENT_FINNHUB_API_KEY", cfg.FinnhubAPIKey},
		{"LONGPORT_APP_KEY", cfg.LongportAppKey},
		{"LONGPORT_APP_SECRET", cfg.LongportAppSecret},
		{"LONGPORT_ACCESS_TOKEN", cfg.LongportAccessToken},
	}
	for _, c := range creds {
		value := logging.Mask(c.value)
		if value == "" {
			value = "(not set)"
		}
		fmt.Fprintf(w, "%-28s %s\n", c.env, value)
	}
	return nil
}

func validateConfig(w io.Writer, cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrConfigInvalid, err)
	}
	printer := display.NewPrinter(w)
	warnMissingKey(printer, cfg)
	if cfg.MarketDataProvider == config.MarketLongport &&
		(cfg.LongportAppKey == "" || cfg.LongportAppSecret == "" || cfg.LongportAccessToken == "") {
		return fmt.Errorf("%w: market_data_provider is longport but LONGPORT_* credentials are missing", apperr.ErrConfigInvalid)
	}
	if cfg.SymbolsFile != "" {
		if _, err := router.LoadSymbols(cfg.SymbolsFile); err != nil {
			return fmt.Errorf("%w: %v", apperr.ErrConfigInvalid, err)
		}
	}
	fmt.Fprintln(w, "✅ Configuration is valid")
	return nil
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.mgr.Get()
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := debug.NewEinoDebugger(&cfg, log.Logger).Initialize(ctx); err != nil {
				log.Warn().Err(err).Msg("eino debug server not started")
			}

			rt, err := app.NewRuntime(opts.mgr, app.WithNotifier(func(topic, payload string) {
				log.Info().Str("topic", topic).RawJSON("payload", []byte(payload)).Msg("runtime event")
			}))
			if err != nil {
				return err
			}
			defer rt.Close()

			if addr == "" {
				addr = cfg.HTTPAddr
			}
			handler := api.NewHandler(
				func() api.Service { return rt.Engine().Agent },
				api.WithChartDir(cfg.ChartDir),
				api.WithTimeout(3*cfg.RequestTimeout.Std()),
				api.WithVersion(Version),
				api.WithLogger(log.Logger),
			)
			return handler.Serve(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (defaults to http_addr from the config)")
	return cmd
}

// newVersionCmd creates the version command
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "StockAgent %s\n", Version)
		},
	}
}
