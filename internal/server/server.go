// Package server wires the HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"spyosint/internal/aggregator"
	"spyosint/internal/collector"
	"spyosint/internal/credentials"
	"spyosint/internal/models"
	"spyosint/internal/server/handlers"
	"spyosint/internal/server/middleware"
	"spyosint/internal/storage"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
)

// Deps everything the API needs
type Deps struct {
	Env string
	// ServerKeys keys from configuration, the only source for the proxy endpoints
	ServerKeys credentials.Store
	// UserKeys user-managed keys, written by the credentials endpoints
	UserKeys credentials.Store
	// Registry store-backed adapters (user keys, then server keys)
	Registry *collector.Registry
	// VirusTotal and Shodan adapters used by the proxy endpoints
	VirusTotal     collector.Adapter
	Shodan         collector.Adapter
	OpenRouter     *collector.OpenRouter
	Aggregator     *aggregator.Aggregator
	Sessions       *aggregator.Sessions
	Investigations storage.Repository
	// Checks extra health probes (database, redis)
	Checks map[string]handlers.Check

	CORSOrigins   []string
	RateLimit     int
	SearchTimeout time.Duration
	Logger        *slog.Logger
}

// NewRouter builds the chi router with every API route
func NewRouter(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if d.Sessions == nil {
		d.Sessions = aggregator.NewSessions(30 * time.Minute)
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))

	origins := d.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", handlers.SessionHeader},
		ExposedHeaders:   []string{handlers.SessionHeader, "Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	if d.RateLimit > 0 {
		r.Use(httprate.LimitByIP(d.RateLimit, time.Minute))
	}

	needsKey := make(map[models.ProviderID]bool)
	for _, id := range d.Registry.IDs() {
		if a, ok := d.Registry.Adapter(id); ok {
			needsKey[id] = a.RequiresCredential()
		}
	}
	needsKey[models.ProviderOpenRouter] = true
	keyed := make([]models.ProviderID, 0, len(needsKey))
	for id, needs := range needsKey {
		if needs {
			keyed = append(keyed, id)
		}
	}

	proxy := handlers.NewProxyHandler(d.ServerKeys, d.VirusTotal, d.Shodan, d.OpenRouter, logger)
	lookup := handlers.NewLookupHandler(d.Registry, d.Sessions, d.SearchTimeout, logger)
	correlate := handlers.NewCorrelateHandler(d.Aggregator, d.Investigations, logger)
	creds := handlers.NewCredentialsHandler(d.UserKeys, d.ServerKeys, keyed, logger)
	investigations := handlers.NewInvestigationsHandler(d.Investigations, logger)
	export := handlers.NewExportHandler(logger)

	var keys credentials.Store = d.ServerKeys
	if d.UserKeys != nil {
		keys = credentials.NewChain(d.UserKeys, d.ServerKeys)
	}
	r.Get("/health", handlers.HealthCheck(d.Env, needsKey, keys, d.Checks))

	r.Route("/api", func(r chi.Router) {
		r.Post("/virustotal", proxy.VirusTotal)
		r.Post("/shodan", proxy.Shodan)
		r.Post("/openrouter", proxy.OpenRouter)

		r.Post("/classify", lookup.Classify)
		r.Post("/lookup", lookup.Lookup)
		r.Route("/search", func(r chi.Router) {
			r.Post("/", lookup.StartSearch)
			r.Get("/{session}", lookup.GetSearch)
		})

		r.Post("/correlate", correlate.Correlate)

		r.Route("/credentials", func(r chi.Router) {
			r.Get("/", creds.List)
			r.Get("/{provider}", creds.Get)
			r.Put("/{provider}", creds.Set)
			r.Delete("/{provider}", creds.Clear)
		})

		r.Route("/investigations", func(r chi.Router) {
			r.Get("/", investigations.List)
			r.Post("/", investigations.Create)
			r.Get("/{id}", investigations.Get)
			r.Delete("/{id}", investigations.Delete)
		})

		r.Post("/export", export.Export)
	})

	return r
}

// Run serves handler on addr until ctx is cancelled, then shuts down gracefully
func Run(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:        addr,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// correlation with an LLM can take a while
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}
