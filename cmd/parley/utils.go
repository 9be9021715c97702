package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/elee1766/parley/src/app"
	"github.com/elee1766/parley/src/config"
	"github.com/elee1766/parley/src/conversation"
	"github.com/elee1766/parley/src/localcache"
	"github.com/elee1766/parley/src/model"
	"github.com/elee1766/parley/src/theme"
)

var errRecordStoreDisabled = errors.New("record store disabled in configuration")

// loadConfig loads the configuration from the specified path or default locations
func loadConfig(path string) (*config.Config, error) {
	precedence := config.GetConfigPaths()
	if path != "" {
		// Override with specific path
		precedence.UserConfig = path
	}

	loader := config.NewLoader(precedence)
	return loader.Load()
}

// overrideConfigFromCLI overrides configuration values with CLI flags
func overrideConfigFromCLI(cfg *config.Config, cli *CLI) {
	if cli.APIKey != "" {
		cfg.API.APIKey = cli.APIKey
	}
	if cli.BaseURL != "" {
		cfg.API.BaseURL = cli.BaseURL
	}
	if cli.LogLevel != "" {
		cfg.Logging.Level = cli.LogLevel
	}
}

// logger builds the process logger from flags and config.
func (cli *CLI) logger(cfg *config.Config) *slog.Logger {
	level := cfg.Logging.Level
	switch {
	case cli.LogFile || cfg.Logging.File != "":
		return createFileLogger(level, cfg.Logging.File)
	case cfg.Logging.Format == "json":
		return createJSONLogger(level)
	default:
		return createCLILogger(level)
	}
}

// session is an opened application for the duration of one command.
type session struct {
	*app.App
	ctx    context.Context
	stop   context.CancelFunc
	source conversation.Source
}

// open loads configuration and state. Callers must call close.
func (cli *CLI) open() (*session, error) {
	cfg, err := loadConfig(cli.Config)
	if err != nil {
		return nil, err
	}
	overrideConfigFromCLI(cfg, cli)
	logger := cli.logger(cfg)
	slog.SetDefault(logger)

	if th, ok := theme.ByName(cli.Theme); ok {
		theme.SetTheme(th)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	a, err := app.New(ctx, app.Options{
		Config:   cfg,
		Notifier: conversation.NotifierFunc(printNotification),
		Logger:   logger,
	})
	if err != nil {
		stop()
		return nil, err
	}
	source, err := a.Load(ctx)
	if err != nil {
		logger.Warn("some state could not be restored", "error", err)
	}
	logger.Debug("session opened", "conversations", source)

	s := &session{App: a, ctx: ctx, stop: stop, source: source}
	s.restoreCurrent()
	return s, nil
}

func (s *session) close() {
	defer s.stop()
	s.saveCurrent()
	if err := s.App.Close(context.Background()); err != nil {
		s.Logger.Warn("failed to close cleanly", "error", err)
	}
}

// restoreCurrent selects the conversation chosen by the previous command.
func (s *session) restoreCurrent() {
	var id string
	ok, err := s.Cache.Get(localcache.KeyCurrentConversation, &id)
	if err != nil || !ok || id == "" {
		return
	}
	s.Conversations.SetCurrent(id)
}

func (s *session) saveCurrent() {
	if err := s.Cache.Set(localcache.KeyCurrentConversation, s.Conversations.CurrentID()); err != nil {
		s.Logger.Warn("failed to remember current conversation", "error", err)
	}
}

// conversationID expands a unique id prefix to the full id.
func (s *session) conversationID(prefix string) string {
	match := ""
	for _, c := range s.Conversations.Conversations() {
		if c.ID == prefix {
			return c.ID
		}
		if strings.HasPrefix(c.ID, prefix) {
			if match != "" {
				return prefix
			}
			match = c.ID
		}
	}
	if match == "" {
		return prefix
	}
	return match
}

// conversation returns the conversation with the given id, or the current
// one when id is empty.
func (s *session) conversation(id string) (model.Conversation, error) {
	if id == "" {
		conv, ok := s.Conversations.Current()
		if !ok {
			return model.Conversation{}, fmt.Errorf("select one with 'parley conversation use': %w", model.ErrNoConversation)
		}
		return conv, nil
	}
	conv, ok := s.Conversations.Get(s.conversationID(id))
	if !ok {
		return model.Conversation{}, notFound("conversation", id)
	}
	return conv, nil
}

// agentName shows deleted agents by id.
func (s *session) agentName(id string) string {
	if a, ok := s.Agents.Get(id); ok {
		return a.Name
	}
	return id
}

// requireUser returns the logged in user or ErrUnauthenticated.
func (s *session) requireUser() (*model.User, error) {
	u := s.Identity.User()
	if u == nil {
		return nil, fmt.Errorf("run 'parley login' first: %w", model.ErrUnauthenticated)
	}
	return u, nil
}

// agent looks an agent up by id, name or fuzzy name.
func (s *session) agent(token string) (model.Agent, error) {
	ids, _ := s.Agents.Resolve([]string{token})
	if len(ids) == 0 {
		return model.Agent{}, notFound("agent", token)
	}
	a, _ := s.Agents.Get(ids[0])
	return a, nil
}

// agentIDs resolves every token or fails naming the unknown ones.
func (s *session) agentIDs(tokens []string) ([]string, error) {
	ids, unresolved := s.Agents.Resolve(tokens)
	if len(unresolved) > 0 {
		return nil, notFound("agent", unresolved[0])
	}
	return ids, nil
}

func printNotification(n conversation.Notification) {
	fmt.Fprintln(os.Stderr, theme.CurrentTheme.Failure().Render(n.Title+": "+n.Message))
}
