// ABOUTME: Wires config into storage, cache, API client, engine and reconciler
// ABOUTME: Every command builds one App and closes it on exit
package cli

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"github.com/lokesh75way/confirmed-add-in/cache"
	"github.com/lokesh75way/confirmed-add-in/charm"
	"github.com/lokesh75way/confirmed-add-in/config"
	"github.com/lokesh75way/confirmed-add-in/confirmed"
	"github.com/lokesh75way/confirmed-add-in/db"
	"github.com/lokesh75way/confirmed-add-in/handlers"
	contactsync "github.com/lokesh75way/confirmed-add-in/sync"
)

// App holds the long-lived pieces shared by commands.
type App struct {
	Config     *config.Config
	Logger     *log.Logger
	Storage    cache.Storage
	Store      *cache.Store
	Client     *confirmed.Client
	Tokens     *confirmed.StoredTokenSource
	Engine     *contactsync.Engine
	Reconciler *contactsync.Reconciler
	// DB is set for the sqlite backend only.
	DB  *sql.DB
	Out io.Writer

	closers []func()
}

// NewApp opens storage and builds the pipeline described by cfg.
func NewApp(ctx context.Context, cfg *config.Config, logger *log.Logger) (*App, error) {
	if logger == nil {
		logger = log.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	app := &App{Config: cfg, Logger: logger, Out: os.Stdout}

	switch cfg.Storage {
	case config.StorageCharm:
		kv, err := charm.Open(nil, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open charm storage: %w", err)
		}
		app.Storage = kv
	default:
		database, err := db.OpenDatabase(cfg.ResolvedDBPath())
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		app.DB = database
		app.Storage = db.NewKVStore(database)
		app.closers = append(app.closers, func() { _ = database.Close() })
	}

	if err := app.build(ctx); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

func (a *App) build(ctx context.Context) error {
	cfg := a.Config

	a.Store = cache.NewStore(a.Storage, a.Logger)
	a.Store.TTL = cfg.CacheTTL()
	a.Tokens = confirmed.NewStoredTokenSource(a.Storage)

	// The add-in sends the same Auth0 token to the Salesforce proxy.
	a.Client = confirmed.NewClient(cfg.BaseURL,
		confirmed.WithUserInfoURL(cfg.UserInfoURL),
		confirmed.WithLogger(a.Logger),
		confirmed.WithCRMTokenSource(a.Tokens),
	)

	var primary contactsync.PrimarySource = a.Client
	if cfg.Directory == config.DirectoryGoogle {
		tok, err := contactsync.LoadToken()
		if err != nil {
			return fmt.Errorf("no Google credential found. Run 'confirmed google link' first: %w", err)
		}
		svc, err := contactsync.NewPeopleClient(ctx, tok)
		if err != nil {
			return err
		}
		primary = contactsync.NewPeopleSource(svc)
	}

	var crm contactsync.CRMSource
	if cfg.CRMConnected {
		crm = a.Client
	}

	a.Engine = contactsync.NewEngine(primary, a.Client, crm, a.Store, contactsync.EngineConfig{
		PageSize: cfg.PageSize,
		MaxPages: cfg.MaxPages,
		Logger:   a.Logger,
	})
	a.closers = append([]func(){a.Engine.Close}, a.closers...)

	rc := contactsync.ReconcilerConfig{
		Limit:    cfg.SyncLimit,
		Lookback: cfg.Lookback(),
		Logger:   a.Logger,
		OnMerged: a.Engine.ReplaceMeetingContacts,
	}
	if a.DB != nil {
		rc.Tracker = db.NewSyncTracker(a.DB, db.MeetingSyncService)
	}
	a.Reconciler = contactsync.NewReconciler(a.Client, a.Store, rc)
	return nil
}

// Close stops background refreshes and releases storage.
func (a *App) Close() {
	for _, fn := range a.closers {
		fn()
	}
	a.closers = nil
}

// Token returns the stored Confirmed access token.
func (a *App) Token() (string, error) {
	tok, err := a.Tokens.Token()
	if err != nil {
		return "", fmt.Errorf("not signed in. Run 'confirmed login' first: %w", err)
	}
	return tok.AccessToken, nil
}

// Inputs are the engine inputs for the signed-in user.
func (a *App) Inputs() (contactsync.Inputs, error) {
	token, err := a.Token()
	if err != nil {
		return contactsync.Inputs{}, err
	}
	return contactsync.Inputs{
		Token:        token,
		UserName:     a.Config.UserName,
		CRMConnected: a.Config.CRMConnected,
	}, nil
}

// HandlerDeps exposes the app to the MCP handlers.
func (a *App) HandlerDeps() *handlers.Deps {
	var tokens oauth2.TokenSource = a.Tokens
	return &handlers.Deps{
		Engine:       a.Engine,
		Reconciler:   a.Reconciler,
		Store:        a.Store,
		Tokens:       tokens,
		UserName:     a.Config.UserName,
		CRMConnected: a.Config.CRMConnected,
		DB:           a.DB,
		FlexCals:     a.Client,
	}
}

func (a *App) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(a.Out, format, args...)
}

func (a *App) println(args ...any) {
	_, _ = fmt.Fprintln(a.Out, args...)
}
