// Package mockapi is an in-memory stand-in for the remote people API.
//
// It serves /customers/{customerId}/people and
// /customers/{customerId}/people/{id}, enforces basic auth or an HMAC
// signature, and can be seeded (and live-reloaded) from a YAML fixture file.
// Tests mount it with httptest; the mock-server command serves it on a port.
package mockapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/leapstack-labs/leapconnect/pkg/transport"
	"golang.org/x/sync/errgroup"
)

// signatureSkew bounds the accepted age of a signed request.
const signatureSkew = 5 * time.Minute

// Config holds configuration for the mock server.
type Config struct {
	// Addr is the listen address used by Serve.
	Addr string
	// Username and Password are the accepted basic credentials.
	Username string
	Password string
	// Signer verifies signed requests (optional; signed requests are rejected if nil)
	Signer *transport.Signer
	// SeedFile is a YAML fixture file (optional).
	SeedFile string
	// Watch reloads SeedFile when it changes.
	Watch bool
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Server is the mock API server.
type Server struct {
	cfg      Config
	store    *Store
	handlers *Handlers
	logger   *slog.Logger
}

// New creates a mock server and loads the seed file, if any.
func New(cfg Config) (*Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	store := NewStore()
	if cfg.SeedFile != "" {
		if err := store.LoadSeedFile(cfg.SeedFile); err != nil {
			return nil, err
		}
	}
	return &Server{
		cfg:   cfg,
		store: store,
		handlers: &Handlers{
			store:    store,
			username: cfg.Username,
			password: cfg.Password,
			signer:   cfg.Signer,
			logger:   logger,
		},
		logger: logger,
	}, nil
}

// Store returns the server's backing store.
func (s *Server) Store() *Store {
	return s.store
}

// Handler returns the HTTP handler with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(middleware.Recoverer)

	r.Group(func(r chi.Router) {
		r.Use(s.handlers.Authenticate)
		r.Get("/customers/{customerId}/people", s.handlers.List)
		r.Post("/customers/{customerId}/people", s.handlers.Create)
		r.Get("/customers/{customerId}/people/{id}", s.handlers.Get)
	})
	return r
}

// Serve starts the server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("starting mock API server", slog.String("addr", "http://"+s.cfg.Addr))

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    s.cfg.Addr,
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.cfg.Watch && s.cfg.SeedFile != "" {
		eg.Go(func() error {
			return s.watchSeed(egctx)
		})
	}

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down mock API server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// watchSeed reloads the seed file whenever it is written.
// The directory is watched so editors that replace the file are handled.
func (s *Server) watchSeed(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	seed, err := filepath.Abs(s.cfg.SeedFile)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(seed)); err != nil {
		return fmt.Errorf("failed to watch seed file: %w", err)
	}

	var debounceTimer *time.Timer
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 || filepath.Clean(event.Name) != seed {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(100*time.Millisecond, func() {
				if err := s.store.LoadSeedFile(seed); err != nil {
					s.logger.Error("failed to reload seed file", slog.String("error", err.Error()))
					return
				}
				s.logger.Info("reloaded seed file", slog.String("file", seed))
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("watcher error", slog.String("error", err.Error()))
		}
	}
}
