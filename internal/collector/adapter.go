package collector

import (
	"context"
	"fmt"
	"log/slog"
	"spyosint/internal/credentials"
	"spyosint/internal/models"
	"strings"
	"sync"
	"time"
)

// Adapter one external data source
type Adapter interface {
	ID() models.ProviderID
	Accepts(t models.QueryType) bool
	RequiresCredential() bool
	// Execute fetches and normalizes. Errors are always *models.ProviderError.
	Execute(ctx context.Context, q models.Query, cred *models.ProviderCredential) (models.Result, error)
}

// checkGate runs the checks every adapter performs before touching the network
func checkGate(a Adapter, q models.Query, cred *models.ProviderCredential) error {
	if a.RequiresCredential() && !cred.Present() {
		return models.MissingCredential(a.ID())
	}
	if !a.Accepts(q.InferredType) {
		return models.InvalidInput(a.ID(), "%s does not accept %q queries", a.ID(), q.InferredType)
	}
	if strings.TrimSpace(q.RawValue) == "" {
		return models.InvalidInput(a.ID(), "query value is required")
	}
	return nil
}

func acceptsOneOf(t models.QueryType, allowed ...models.QueryType) bool {
	for _, a := range allowed {
		if a == t {
			return true
		}
	}
	return false
}

// Mode fan-out strategy
type Mode string

const (
	ModeParallel   Mode = "parallel"
	ModeSequential Mode = "sequential"
)

// Outcome settled result of one provider call
type Outcome struct {
	Provider models.ProviderID `json:"providerId"`
	Result   models.Result     `json:"result,omitempty"`
	Error    *models.ErrorInfo `json:"error,omitempty"`
	Duration time.Duration     `json:"-"`
	Err      error             `json:"-"`
}

// Registry dispatches queries to adapters, reading credentials from the store first
type Registry struct {
	mu       sync.RWMutex
	adapters map[models.ProviderID]Adapter
	order    []models.ProviderID
	store    credentials.Store
	logger   *slog.Logger
}

// NewRegistry creates a registry. store may be nil when no adapter needs credentials.
func NewRegistry(store credentials.Store, logger *slog.Logger, adapters ...Adapter) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		adapters: make(map[models.ProviderID]Adapter),
		store:    store,
		logger:   logger,
	}
	for _, a := range adapters {
		r.Register(a)
	}
	return r
}

// Register adds or replaces an adapter
func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.adapters[a.ID()]; !exists {
		r.order = append(r.order, a.ID())
	}
	r.adapters[a.ID()] = a
}

// Adapter looks up an adapter by provider id
func (r *Registry) Adapter(id models.ProviderID) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[id]
	return a, ok
}

// IDs registered provider ids in registration order
func (r *Registry) IDs() []models.ProviderID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]models.ProviderID(nil), r.order...)
}

// Run dispatches q to one provider
func (r *Registry) Run(ctx context.Context, id models.ProviderID, q models.Query) (models.Result, error) {
	a, ok := r.Adapter(id)
	if !ok {
		return nil, models.InvalidInput(id, "unknown provider %q", id)
	}

	cred, err := credentials.Lookup(ctx, r.store, id)
	if err != nil {
		r.logger.Warn("Credential lookup failed", "provider", id, "error", err)
		cred = nil
	}

	start := time.Now()
	result, err := a.Execute(ctx, q, cred)
	if err != nil {
		r.logger.Debug("Provider call failed",
			"provider", id,
			"query_type", q.InferredType,
			"kind", models.KindName(err),
			"error", err,
		)
		return nil, err
	}

	result.Normalize()
	r.logger.Debug("Provider call succeeded",
		"provider", id,
		"query_type", q.InferredType,
		"duration", time.Since(start),
	)
	return result, nil
}

// Targets resolves the providers a fan-out should call. With no explicit ids,
// every registered adapter that accepts the query type is selected.
func (r *Registry) Targets(q models.Query, ids []models.ProviderID) []models.ProviderID {
	if len(ids) > 0 {
		seen := make(map[models.ProviderID]bool, len(ids))
		out := make([]models.ProviderID, 0, len(ids))
		for _, id := range ids {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
		return out
	}
	var out []models.ProviderID
	for _, id := range r.IDs() {
		if a, ok := r.Adapter(id); ok && a.Accepts(q.InferredType) {
			out = append(out, id)
		}
	}
	return out
}

// Stream runs the targets and calls deliver as each one settles. In parallel mode
// deliver may be called from several goroutines and completions arrive in any order.
// Stream returns once every target has settled.
func (r *Registry) Stream(ctx context.Context, q models.Query, ids []models.ProviderID, mode Mode, deliver func(Outcome)) {
	targets := r.Targets(q, ids)

	runOne := func(id models.ProviderID) Outcome {
		start := time.Now()
		result, err := r.Run(ctx, id, q)
		return Outcome{
			Provider: id,
			Result:   result,
			Error:    models.DescribeError(err),
			Duration: time.Since(start),
			Err:      err,
		}
	}

	if mode == ModeSequential {
		for _, id := range targets {
			deliver(runOne(id))
		}
		return
	}

	var wg sync.WaitGroup
	for _, id := range targets {
		wg.Add(1)
		go func(id models.ProviderID) {
			defer wg.Done()
			deliver(runOne(id))
		}(id)
	}
	wg.Wait()
}

// RunAll fans out and collects every settled outcome, ordered like the targets
func (r *Registry) RunAll(ctx context.Context, q models.Query, ids []models.ProviderID, mode Mode) []Outcome {
	targets := r.Targets(q, ids)
	index := make(map[models.ProviderID]int, len(targets))
	for i, id := range targets {
		index[id] = i
	}

	outcomes := make([]Outcome, len(targets))
	var mu sync.Mutex
	r.Stream(ctx, q, targets, mode, func(o Outcome) {
		mu.Lock()
		outcomes[index[o.Provider]] = o
		mu.Unlock()
	})
	return outcomes
}

// Succeeded results of the successful outcomes
func Succeeded(outcomes []Outcome) []models.Result {
	var results []models.Result
	for _, o := range outcomes {
		if o.Err == nil && o.Result != nil {
			results = append(results, o.Result)
		}
	}
	return results
}

// ParseMode parses a mode name, defaulting to parallel
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(s)) {
	case "", ModeParallel:
		return ModeParallel, nil
	case ModeSequential:
		return ModeSequential, nil
	}
	return "", fmt.Errorf("unknown mode %q", s)
}
