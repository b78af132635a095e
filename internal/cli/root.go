// Package cli implements the duet command tree.
package cli

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/duetchat/duet/internal/api"
	"github.com/duetchat/duet/internal/config"
	"github.com/duetchat/duet/internal/database"
	"github.com/duetchat/duet/internal/logging"
	"github.com/duetchat/duet/internal/session"
)

var (
	flagSession  string
	flagAPIURL   string
	flagState    string
	flagLogLevel string

	version = "dev"
)

var rootCmd = &cobra.Command{
	Use:   "duet",
	Short: "Two-person chat with AI date planning",
	Long: `duet is a terminal client for a two-person chat service.

Register, pair up with your partner via invite code, chat, and ask the
AI for date plan suggestions you can share into the conversation.

Quick start:
  duet register --username amy --email amy@example.com
  duet invite                       # show your invite code
  duet partner connect <code>       # pair with your partner
  duet chat                         # start chatting`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagSession, "session", "", "Session id to act as (defaults to DUET_SESSION or the only logged-in session)")
	rootCmd.PersistentFlags().StringVar(&flagAPIURL, "api-url", "", "Chat API base URL")
	rootCmd.PersistentFlags().StringVar(&flagState, "state", "", "Path to the local state database")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")
}

// app bundles everything a command needs: config, logger, the state
// database, and the session store.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	db       *sql.DB
	sessions *session.Store
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if flagAPIURL != "" {
		cfg.APIURL = flagAPIURL
	}
	if flagState != "" {
		cfg.StatePath = flagState
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}
	if flagSession != "" {
		cfg.Session = flagSession
	}

	logger := logging.Setup(cfg.LogLevel)

	db, err := database.Open(cfg.StatePath)
	if err != nil {
		return nil, fmt.Errorf("open state database: %w", err)
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		sessions: session.NewStore(db),
	}, nil
}

func (a *app) Close() {
	a.db.Close()
}

// client builds an API client scoped to sessionID. A 401 anywhere evicts
// that session's credential; the hook tells the user why subsequent calls
// will ask them to log in.
func (a *app) client(sessionID string) *api.Client {
	return api.NewClient(a.cfg.APIURL, sessionID, a.sessions,
		api.WithLogger(a.logger),
		api.WithOnUnauthorized(func(id string) {
			fmt.Fprintf(os.Stderr, "session %s is no longer authorized; run `duet login` again\n", shortID(id))
		}),
	)
}

// resolveSession picks the session to act as: the --session flag or
// DUET_SESSION beats the config file, and when nothing is specified a
// single logged-in session is used implicitly.
func (a *app) resolveSession() (string, error) {
	if a.cfg.Session != "" {
		return a.cfg.Session, nil
	}
	ids, err := a.sessions.AuthenticatedIDs()
	if err != nil {
		return "", fmt.Errorf("list sessions: %w", err)
	}
	switch len(ids) {
	case 0:
		return "", fmt.Errorf("no logged-in session; run `duet login` or `duet register`")
	case 1:
		return ids[0], nil
	default:
		return "", fmt.Errorf("%d logged-in sessions; pick one with --session (see `duet sessions`)", len(ids))
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
