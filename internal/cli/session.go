package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dyike/StockAgent/config"
	"github.com/dyike/StockAgent/internal/display"
	"github.com/dyike/StockAgent/internal/storage"
	"github.com/dyike/StockAgent/pkg/app"
	"github.com/rs/zerolog/log"
)

// EngineSource returns the current engine.
type EngineSource interface {
	Engine() *app.Engine
}

// Session is one interactive run. The last answered query can be saved to
// the history with /save.
type Session struct {
	engines  EngineSource
	prompter Prompter
	printer  *display.Printer
	out      io.Writer

	lastQuery string
	lastKind  string
}

func NewSession(engines EngineSource, prompter Prompter, out io.Writer) *Session {
	return &Session{
		engines:  engines,
		prompter: prompter,
		printer:  display.NewPrinter(out),
		out:      out,
	}
}

// Start shows the banner and runs until /exit, Ctrl-C or EOF.
func (s *Session) Start(ctx context.Context) error {
	DisplayWelcomeBanner(s.out)
	warnMissingKey(s.printer, s.engines.Engine().Config)

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		input, err := s.prompter.AskQuery()
		if errors.Is(err, errQuit) {
			fmt.Fprintln(s.out, "👋 Bye!")
			return nil
		}
		if err != nil {
			return err
		}

		if done := s.handleInput(ctx, input); done {
			fmt.Fprintln(s.out, "👋 Bye!")
			return nil
		}
		fmt.Fprintln(s.out)
	}
}

// handleInput runs one command or query and reports whether the session
// should end.
func (s *Session) handleInput(ctx context.Context, input string) bool {
	input = strings.TrimSpace(input)
	if input == "" {
		return false
	}

	engine := s.engines.Engine()
	switch strings.ToLower(input) {
	case "/exit", "/quit", "/q":
		return true
	case "/help", "/h", "/?":
		displayHelp(s.out)
	case "/history":
		s.showHistory(ctx, engine)
	case "/save":
		s.saveLast(ctx, engine)
	case "/clear":
		s.clearHistory(ctx, engine)
	default:
		if strings.HasPrefix(input, "/") {
			s.printer.Warning(fmt.Sprintf("Unknown command: %s. Type /help for available commands.", input))
			return false
		}
		s.runQuery(ctx, engine, input)
	}
	return false
}

func (s *Session) runQuery(ctx context.Context, engine *app.Engine, query string) {
	s.printer.Info("Thinking...")
	resp, err := engine.Agent.Handle(ctx, query)
	if err != nil {
		s.printer.Error(err)
		return
	}
	s.printer.Response(resp)
	s.lastQuery = query
	s.lastKind = resp.Decision.Kind()
}

func (s *Session) showHistory(ctx context.Context, engine *app.Engine) {
	entries, err := engine.History.Recent(ctx, storage.SessionLimit)
	if err != nil {
		log.Warn().Err(err).Msg("read history")
		s.printer.Error(err)
		return
	}
	s.printer.History(entries)
}

func (s *Session) saveLast(ctx context.Context, engine *app.Engine) {
	if s.lastQuery == "" {
		s.printer.Info("Nothing to save yet. Ask something first.")
		return
	}
	if _, err := engine.History.Save(ctx, s.lastQuery, s.lastKind); err != nil {
		log.Warn().Err(err).Msg("save history")
		s.printer.Error(err)
		return
	}
	s.printer.Info(fmt.Sprintf("Saved %q.", s.lastQuery))
}

func (s *Session) clearHistory(ctx context.Context, engine *app.Engine) {
	ok, err := s.prompter.ConfirmClear()
	if err != nil || !ok {
		return
	}
	if err := engine.History.Clear(ctx); err != nil {
		s.printer.Error(err)
		return
	}
	s.printer.Info("History cleared.")
}

// warnMissingKey reports a missing model key. Market data still works
// without one.
func warnMissingKey(p *display.Printer, cfg config.Config) {
	if cfg.LLMAPIKey() != "" {
		return
	}
	p.Warning(fmt.Sprintf("%s is not set. AI insights and general answers are unavailable.", cfg.LLMKeyEnv()))
}
