package handlers

import (
	"context"
	"net/http"
	"runtime"
	"spyosint/internal/credentials"
	"spyosint/internal/models"
	"time"
)

// Version reported by the health endpoint
var Version = "1.0.0"

var startTime = time.Now()

// HealthResponse represents the health check response
type HealthResponse struct {
	Status      string            `json:"status"`
	Version     string            `json:"version"`
	Uptime      string            `json:"uptime"`
	Environment string            `json:"environment"`
	Timestamp   time.Time         `json:"timestamp"`
	Checks      map[string]string `json:"checks"`
	Providers   map[string]bool   `json:"providers"`
	System      SystemInfo        `json:"system"`
}

// SystemInfo represents system information
type SystemInfo struct {
	GoVersion    string `json:"go_version"`
	NumCPU       int    `json:"num_cpu"`
	NumGoroutine int    `json:"num_goroutine"`
	MemAllocMB   uint64 `json:"mem_alloc_mb"`
}

// Check named dependency probe; a non-nil error marks it degraded
type Check func(ctx context.Context) error

// HealthCheck returns a handler for the health check endpoint. providers maps
// each registered provider to whether it needs a key; keys reports which are set.
func HealthCheck(env string, providers map[models.ProviderID]bool, keys credentials.Store, checks map[string]Check) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)

		results := map[string]string{"api": "ok"}
		for name, check := range checks {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			if err := check(ctx); err != nil {
				results[name] = err.Error()
			} else {
				results[name] = "ok"
			}
			cancel()
		}

		status := "healthy"
		for _, check := range results {
			if check != "ok" {
				status = "degraded"
				break
			}
		}

		// a provider is ready when it needs no key or one is configured
		ready := make(map[string]bool, len(providers))
		for p, needsKey := range providers {
			if !needsKey {
				ready[string(p)] = true
				continue
			}
			cred, err := credentials.Lookup(r.Context(), keys, p)
			ready[string(p)] = err == nil && cred.Present()
		}

		JSONResponse(w, http.StatusOK, HealthResponse{
			Status:      status,
			Version:     Version,
			Uptime:      time.Since(startTime).Round(time.Second).String(),
			Environment: env,
			Timestamp:   time.Now().UTC(),
			Checks:      results,
			Providers:   ready,
			System: SystemInfo{
				GoVersion:    runtime.Version(),
				NumCPU:       runtime.NumCPU(),
				NumGoroutine: runtime.NumGoroutine(),
				MemAllocMB:   m.Alloc / 1024 / 1024,
			},
		})
	}
}
