package main

import (
	"context"
	"os/signal"
	"spyosint/internal/aggregator"
	"spyosint/internal/server"
	"spyosint/internal/storage"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, fixtureMode)
		if err != nil {
			return err
		}
		defer a.Close()

		a.logger.Info("Starting SpyOSINT API",
			"env", a.cfg.App.Env,
			"port", a.cfg.App.Port,
			"credential_backend", a.cfg.Credentials.Backend,
			"providers", len(a.registry.IDs()),
		)

		repo, err := storage.Open(ctx, a.cfg.Database.URL, a.logger)
		if err != nil {
			return err
		}
		defer repo.Close()
		a.addCheck("database", repo)

		router := server.NewRouter(server.Deps{
			Env:            a.cfg.App.Env,
			ServerKeys:     a.serverKeys,
			UserKeys:       a.userKeys,
			Registry:       a.registry,
			VirusTotal:     a.virustotal,
			Shodan:         a.shodan,
			OpenRouter:     a.openrouter,
			Aggregator:     a.aggregator,
			Sessions:       aggregator.NewSessions(30 * time.Minute),
			Investigations: repo,
			Checks:         a.checks,
			CORSOrigins:    a.cfg.HTTP.CORSOrigins,
			RateLimit:      a.cfg.HTTP.RateLimit,
			SearchTimeout:  2 * time.Minute,
			Logger:         a.logger,
		})

		return server.Run(ctx, a.cfg.Addr(), router, a.logger)
	},
}
