// Package credentials persists per-provider API secrets.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"spyosint/internal/models"
	"strings"
	"sync"
)

// Prefix namespace prepended to every provider id
const Prefix = "spyosint_"

// ErrReadOnly returned by stores that cannot be written
var ErrReadOnly = errors.New("credential store is read-only")

// Store credential storage contract. Implementations are safe for concurrent use.
type Store interface {
	Get(ctx context.Context, providerID string) (string, bool, error)
	Set(ctx context.Context, providerID, secret string) error
	Clear(ctx context.Context, providerID string) error
}

// Key storage key for a provider id
func Key(providerID string) string {
	return Prefix + providerID
}

// Lookup reads the credential of a provider as a ProviderCredential.
// Returns nil when none is stored.
func Lookup(ctx context.Context, s Store, p models.ProviderID) (*models.ProviderCredential, error) {
	if s == nil {
		return nil, nil
	}
	secret, ok, err := s.Get(ctx, string(p))
	if err != nil {
		return nil, fmt.Errorf("failed to read credential for %s: %w", p, err)
	}
	if !ok || secret == "" {
		return nil, nil
	}
	return &models.ProviderCredential{ProviderID: p, SecretValue: secret}, nil
}

// Mask hides all but the last four characters of a secret
func Mask(secret string) string {
	if len(secret) <= 4 {
		return strings.Repeat("*", len(secret))
	}
	return strings.Repeat("*", len(secret)-4) + secret[len(secret)-4:]
}

// MemoryStore in-process store, mostly for tests and ephemeral sessions
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (m *MemoryStore) Get(_ context.Context, providerID string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[Key(providerID)]
	return v, ok, nil
}

func (m *MemoryStore) Set(ctx context.Context, providerID, secret string) error {
	if secret == "" {
		return m.Clear(ctx, providerID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[Key(providerID)] = secret
	return nil
}

func (m *MemoryStore) Clear(_ context.Context, providerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, Key(providerID))
	return nil
}

// StaticStore read-only store backed by server configuration
type StaticStore struct {
	values map[string]string
}

// NewStaticStore builds a StaticStore. Empty secrets are dropped.
func NewStaticStore(secrets map[models.ProviderID]string) *StaticStore {
	values := make(map[string]string, len(secrets))
	for p, s := range secrets {
		if s != "" {
			values[string(p)] = s
		}
	}
	return &StaticStore{values: values}
}

func (s *StaticStore) Get(_ context.Context, providerID string) (string, bool, error) {
	v, ok := s.values[providerID]
	return v, ok, nil
}

func (s *StaticStore) Set(context.Context, string, string) error { return ErrReadOnly }

func (s *StaticStore) Clear(context.Context, string) error { return ErrReadOnly }

// Providers ids configured in the store, sorted
func (s *StaticStore) Providers() []string {
	ids := make([]string, 0, len(s.values))
	for id := range s.values {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Chain reads through stores in order; writes go to the first store.
type Chain struct {
	stores []Store
}

// NewChain builds a Chain. The primary store receives Set and Clear.
func NewChain(primary Store, fallbacks ...Store) *Chain {
	return &Chain{stores: append([]Store{primary}, fallbacks...)}
}

func (c *Chain) Get(ctx context.Context, providerID string) (string, bool, error) {
	for _, s := range c.stores {
		if s == nil {
			continue
		}
		v, ok, err := s.Get(ctx, providerID)
		if err != nil {
			return "", false, err
		}
		if ok && v != "" {
			return v, true, nil
		}
	}
	return "", false, nil
}

func (c *Chain) Set(ctx context.Context, providerID, secret string) error {
	return c.stores[0].Set(ctx, providerID, secret)
}

func (c *Chain) Clear(ctx context.Context, providerID string) error {
	return c.stores[0].Clear(ctx, providerID)
}
