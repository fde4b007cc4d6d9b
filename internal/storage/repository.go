// Package storage persists saved investigations.
package storage

import (
	"context"
	"errors"
	"log/slog"
	"spyosint/internal/models"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound no investigation with that id
var ErrNotFound = errors.New("investigation not found")

// Repository investigation persistence. Implementations are safe for concurrent use.
type Repository interface {
	// Save inserts or replaces inv, filling id, date, type and data points when unset
	Save(ctx context.Context, inv *models.Investigation) error
	Get(ctx context.Context, id string) (*models.Investigation, error)
	// List newest first
	List(ctx context.Context) ([]models.Investigation, error)
	Delete(ctx context.Context, id string) error
	Close()
}

// Open connects to Postgres when databaseURL is set, otherwise keeps investigations in memory
func Open(ctx context.Context, databaseURL string, logger *slog.Logger) (Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		logger.Info("Using in-memory investigation store")
		return NewMemory(), nil
	}
	db, err := Connect(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	logger.Info("Connected to Postgres investigation store")
	return db, nil
}

// prepare fills the derived fields of inv before it is stored
func prepare(inv *models.Investigation) {
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = time.Now().UTC()
	}
	if inv.Type == "" {
		inv.Type = inv.Query.InferredType
	}
	if inv.Results == nil {
		inv.Results = models.ResultList{}
	}
	if strings.TrimSpace(inv.Title) == "" {
		inv.Title = inv.Query.RawValue
	}
	inv.DataPoints = len(inv.Results)
}
