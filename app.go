package main

import (
	"context"
	"net/http"
	"time"

	"github.com/filecoin-project/go-clock"

	"pdfdesk/pkg/auth"
	"pdfdesk/pkg/config"
	"pdfdesk/pkg/events"
	"pdfdesk/pkg/handlers"
	"pdfdesk/pkg/kvstore"
	"pdfdesk/pkg/quotes"
	"pdfdesk/pkg/services"
	"pdfdesk/pkg/storage"
	"pdfdesk/pkg/viewer"
)

const shutdownTimeout = 10 * time.Second

// App owns every long-lived component of a running pdfdesk instance
type App struct {
	config   *config.Config
	clock    clock.Clock
	store    kvstore.Store
	hub      *events.Hub
	session  *auth.Manager
	handlers *handlers.Handlers
}

// NewApp creates a new App for cfg
func NewApp(cfg *config.Config) *App {
	return &App{config: cfg, clock: clock.New()}
}

// Startup opens the durable store, restores any persisted admin session and
// builds the services behind the HTTP surface
func (a *App) Startup(ctx context.Context) error {
	if err := a.config.EnsureDirs(); err != nil {
		return err
	}

	store, err := kvstore.Open(a.config.Storage.Backend, a.config.DataPath)
	if err != nil {
		return err
	}
	a.store = store

	a.hub = events.NewHub()
	pdfViewer := viewer.New(nil)

	a.session = auth.NewManager(store, auth.Options{
		Clock:    a.clock,
		Signals:  services.SessionSignals{Signals: a.hub, Viewer: pdfViewer},
		Notifier: a.hub,
	})
	state := a.session.RestoreOnLoad()

	downloads := storage.LoadDownloadLog(store)
	admin := services.NewAdminService(a.session, downloads, a.hub, a.clock.Now)
	library := services.NewLibraryService(downloads, a.hub, a.clock.Now)
	fetcher := quotes.NewFetcher(quotes.Options{
		Timeout: a.config.Quotes.Timeout,
		Retries: a.config.Quotes.Retries,
	})

	a.handlers = handlers.New(handlers.Deps{
		Session:   a.session,
		Admin:     admin,
		Library:   library,
		Viewer:    services.NewViewerService(pdfViewer, library, admin, a.hub),
		Quotes:    services.NewQuoteService(fetcher, storage.LoadQuotes(store, a.clock.Now), a.hub),
		Questions: services.NewQuestionBoard(a.hub),
		Prefs:     services.NewPreferencesService(storage.NewPreferences(store), a.hub),
		Events:    a.hub,
		StaticDir: a.config.StaticDir,
		Now:       a.clock.Now,
	})

	log.Infof("pdfdesk initialized:")
	log.Infof("  Config file: %s", orNone(a.config.File))
	log.Infof("  Storage: %s at %s", a.config.Storage.Backend, a.config.DataPath)
	log.Infof("  Admin session: %s", state)
	return nil
}

// Handler returns the HTTP router; Startup must have succeeded
func (a *App) Handler() http.Handler {
	return a.handlers.Router()
}

// Serve listens on the configured address until ctx is cancelled, then
// drains open requests
func (a *App) Serve(ctx context.Context) error {
	server := &http.Server{
		Addr:              a.config.ListenAddr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Server starting on %s", a.config.ListenAddr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down gracefully...")
	// Websocket connections are hijacked; close them before draining
	a.hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// Shutdown stops the session ticker and closes the store. The persisted
// session survives so the next start can restore it.
func (a *App) Shutdown() {
	if a.session != nil {
		a.session.Close()
	}
	if a.hub != nil {
		a.hub.Close()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			log.Warnf("Closing store: %v", err)
		}
	}
}

func orNone(s string) string {
	if s == "" {
		return "(none, using defaults)"
	}
	return s
}
