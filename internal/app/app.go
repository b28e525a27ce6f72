// Package app wires configuration into the client stack: remote client,
// session, repositories, view-state controller and the optional mutation
// sinks and exporters.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"expensetracker/internal/amqp"
	"expensetracker/internal/analytics"
	"expensetracker/internal/apiclient"
	"expensetracker/internal/config"
	"expensetracker/internal/expenses"
	"expensetracker/internal/log"
	"expensetracker/internal/present"
	"expensetracker/internal/session"
	"expensetracker/internal/sheets"
	gsheet "expensetracker/internal/sheets/google"
	"expensetracker/internal/users"
	"expensetracker/internal/viewstate"
)

// ErrExportDisabled is returned by Exporter when no spreadsheet is configured.
var ErrExportDisabled = errors.New("sheets export is not configured (set GOOGLE_SPREADSHEET_ID)")

// App is the wired client stack used by the commands.
type App struct {
	Config     *config.Config
	Logger     *log.Logger
	Client     *apiclient.Client
	Session    *session.Store
	Expenses   *expenses.Repository
	Users      *users.Service
	Analytics  *analytics.Loader
	Controller *viewstate.Controller
	Renderer   present.Renderer

	publisher *amqp.Publisher
	cleanup   []CleanupFunc

	exportOnce sync.Once
	exporter   sheets.ExpenseExporter
	exportErr  error
}

// Option adjusts an App before its session is restored.
type Option func(*App)

// WithExporter replaces the Google Sheets exporter.
func WithExporter(e sheets.ExpenseExporter) Option {
	return func(a *App) {
		a.exportOnce.Do(func() { a.exporter = e })
	}
}

// New builds the stack described by cfg. An unreachable broker is logged and
// skipped; every other failure is returned.
func New(ctx context.Context, cfg *config.Config, logger *log.Logger, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app config is nil")
	}
	logger = log.OrDiscard(logger)
	a := &App{Config: cfg, Logger: logger}

	creds, closeCreds, err := newCredentialStore(cfg, logger.WithComponent(log.ComponentStorage))
	if err != nil {
		return nil, err
	}
	if closeCreds != nil {
		a.cleanup = append(a.cleanup, closeCreds)
	}

	a.Client = apiclient.New(cfg.APIBaseURL,
		apiclient.WithTimeout(cfg.APITimeout),
		apiclient.WithLogger(logger))
	a.Session = session.New(a.Client, creds, logger)
	a.Client.SetTokenSource(a.Session)
	a.Expenses = expenses.NewRepository(a.Client)
	a.Users = users.NewService(a.Client)
	a.Analytics = analytics.NewLoader(a.Expenses, cfg.AnalyticsCacheTTL, logger)
	// Cached reports belong to whoever was signed in when they were loaded.
	a.cleanup = append(a.cleanup, unsubscribe(a.Session.Subscribe(func(session.Snapshot) {
		a.Analytics.Invalidate()
	})))

	sinks := []viewstate.MutationSink{a.Analytics}
	if cfg.AMQPURL != "" {
		pub, err := amqp.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("Failed to initialize AMQP publisher, continuing without events",
				log.FieldBackend, "amqp", log.FieldError, err)
		} else {
			a.publisher = pub.WithUser(a.username)
			a.cleanup = append(a.cleanup, pub.Close)
			sinks = append(sinks, a.publisher)
			logger.Info("Initialized AMQP publisher", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	a.Controller = viewstate.New(a.Expenses,
		viewstate.WithLogger(logger),
		viewstate.WithSinks(sinks...))
	a.Renderer = present.Renderer{Money: present.NewCurrencyFormatter(cfg.CurrencyCode, cfg.CurrencySymbol)}

	for _, opt := range opts {
		opt(a)
	}

	if err := a.Session.Restore(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("restore session: %w", err)
	}
	return a, nil
}

func unsubscribe(stop func()) CleanupFunc {
	return func() error {
		stop()
		return nil
	}
}

func (a *App) username() string {
	u, ok := a.Session.User()
	if !ok {
		return ""
	}
	return u.Username
}

// PublishingEvents reports whether mutations are announced on the broker.
func (a *App) PublishingEvents() bool {
	return a.publisher != nil
}

// Exporter returns the spreadsheet exporter, connecting on first use.
func (a *App) Exporter(ctx context.Context) (sheets.ExpenseExporter, error) {
	a.exportOnce.Do(func() {
		if !a.Config.SheetsEnabled() {
			a.exportErr = ErrExportDisabled
			return
		}
		a.exporter, a.exportErr = gsheet.New(ctx, gsheet.Config{
			SpreadsheetID:   a.Config.GoogleSpreadsheetID,
			SheetName:       a.Config.GoogleSheetName,
			CredentialsFile: a.Config.GoogleCredentialsFile,
			CredentialsJSON: a.Config.GoogleCredentialsJSON,
		}, a.Logger)
	})
	return a.exporter, a.exportErr
}

// Close stops the controller and releases everything New opened, in reverse order.
func (a *App) Close() error {
	if a.Controller != nil {
		a.Controller.Close()
	}
	var errs []error
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		if err := a.cleanup[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.cleanup = nil
	return errors.Join(errs...)
}
