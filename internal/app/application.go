// Package app wires configuration, storage, the realtime hub and the REST
// surface into a runnable gateway.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"

	"github.com/cambio-network/exchange_layer/internal/config"
	"github.com/cambio-network/exchange_layer/internal/httpapi"
	"github.com/cambio-network/exchange_layer/internal/logging"
	"github.com/cambio-network/exchange_layer/internal/metrics"
	"github.com/cambio-network/exchange_layer/internal/middleware"
	"github.com/cambio-network/exchange_layer/internal/realtime"
	"github.com/cambio-network/exchange_layer/internal/storage"
	"github.com/cambio-network/exchange_layer/internal/storage/memory"
	"github.com/cambio-network/exchange_layer/internal/storage/postgres"
)

// Application ties the gateway's components together and manages their
// lifecycle.
type Application struct {
	cfg     *config.Config
	log     *logging.Logger
	metrics *metrics.Metrics

	store  storage.Store
	db     *sql.DB
	hub    *realtime.Hub
	server *http.Server
}

// New builds a fully initialised application from configuration.
func New(cfg *config.Config) (*Application, error) {
	log := logging.New("gateway", cfg.Logging.Level, cfg.Logging.Format)
	m := metrics.New()

	store, db, err := buildStore(cfg, log)
	if err != nil {
		return nil, err
	}

	hub := realtime.NewHub(realtime.Options{
		JWTSecret:   cfg.Auth.JWTSecret,
		Accounts:    store,
		Groups:      store,
		SettleDelay: time.Duration(cfg.Realtime.PresenceSettleMS) * time.Millisecond,
		Logger:      log,
		Metrics:     m,
	})
	wsServer := realtime.NewServer(hub, log, cfg.Realtime.SendBuffer, cfg.Realtime.MaxMessageBytes)
	api := httpapi.New(store, hub, log)

	router := buildRouter(cfg, log, m, api, wsServer)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &Application{
		cfg:     cfg,
		log:     log,
		metrics: m,
		store:   store,
		db:      db,
		hub:     hub,
		server:  server,
	}, nil
}

// buildStore selects the persistence backend. An empty DSN runs the gateway on
// the in-memory store, which is what the tests and local development use.
func buildStore(cfg *config.Config, log *logging.Logger) (storage.Store, *sql.DB, error) {
	if cfg.Database.DSN == "" {
		log.Warn("no database DSN configured; using in-memory store")
		return memory.New(), nil, nil
	}

	driver := cfg.Database.Driver
	if driver == "" {
		driver = "postgres"
	}

	db, err := sql.Open(driver, cfg.Database.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	if cfg.Database.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	}
	if cfg.Database.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	}
	if cfg.Database.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Second)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}

	return postgres.New(db), db, nil
}

func buildRouter(cfg *config.Config, log *logging.Logger, m *metrics.Metrics, api *httpapi.API, wsServer *realtime.Server) *mux.Router {
	router := mux.NewRouter()

	cors := middleware.NewCORSMiddleware(cfg.Server.AllowedOrigins)
	router.Use(mux.MiddlewareFunc(cors.Handler))
	router.Use(middleware.LoggingMiddleware(log))
	router.Use(middleware.MetricsMiddleware(m))

	// Unauthenticated surface.
	router.HandleFunc("/health", api.HandleHealth).Methods(http.MethodGet)
	router.Handle("/metrics", m.Handler()).Methods(http.MethodGet)

	// The websocket endpoint authenticates over its own protocol: a token in
	// the query string or a first authenticate frame.
	router.Handle("/ws", wsServer).Methods(http.MethodGet)

	// Authenticated REST surface.
	apiRouter := router.PathPrefix("/api/v1").Subrouter()
	auth := middleware.NewAuthMiddleware([]byte(cfg.Auth.JWTSecret), log, nil)
	apiRouter.Use(mux.MiddlewareFunc(auth.Handler))

	limiter := middleware.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst, log)
	limiter.StartCleanup(10 * time.Minute)
	apiRouter.Use(mux.MiddlewareFunc(limiter.Handler))

	api.RegisterRoutes(apiRouter)
	return router
}

// Run serves HTTP until the context is canceled or the listener fails.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.log.WithField("addr", a.server.Addr).Info("gateway listening")
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return a.Shutdown()
	case err := <-errCh:
		return err
	}
}

// Shutdown drains the HTTP server, closes every websocket connection and
// releases the database.
func (a *Application) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		a.log.WithError(err).Warn("http shutdown")
	}
	a.hub.Close()
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			return fmt.Errorf("close database: %w", err)
		}
	}
	a.log.Info("gateway stopped")
	return nil
}
