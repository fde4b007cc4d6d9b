package storage

import (
	"context"
	"io"
	"log/slog"
	"os"
	"spyosint/internal/models"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func sampleInvestigation() *models.Investigation {
	q := models.NewQuery("203.0.113.5", models.QueryIP)
	host := &models.HostIntel{Meta: models.NewMeta(models.ProviderShodan, models.KindHost, q), IP: "203.0.113.5", Ports: []int{443}}
	host.Normalize()
	rep := &models.MalwareReputation{Meta: models.NewMeta(models.ProviderVirusTotal, models.KindMalwareReputation, q), Type: models.QueryIP, Value: "203.0.113.5"}
	rep.Normalize()
	return &models.Investigation{Query: q, Results: models.ResultList{host, rep}}
}

// exerciseRepository behaviour every backend must share
func exerciseRepository(t *testing.T, repo Repository) {
	ctx := context.Background()

	inv := sampleInvestigation()
	require.NoError(t, repo.Save(ctx, inv))
	assert.NotEmpty(t, inv.ID)
	assert.Equal(t, "203.0.113.5", inv.Title)
	assert.Equal(t, models.QueryIP, inv.Type)
	assert.Equal(t, 2, inv.DataPoints)
	assert.False(t, inv.CreatedAt.IsZero())

	got, err := repo.Get(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, inv.Title, got.Title)
	require.Len(t, got.Results, 2)
	assert.IsType(t, &models.HostIntel{}, got.Results[0])
	assert.Equal(t, []int{443}, got.Results[0].(*models.HostIntel).Ports)

	older := sampleInvestigation()
	older.Title = "older"
	older.CreatedAt = inv.CreatedAt.Add(-time.Hour)
	require.NoError(t, repo.Save(ctx, older))

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, inv.ID, list[0].ID)
	assert.Equal(t, "older", list[1].Title)

	inv.Title = "renamed"
	require.NoError(t, repo.Save(ctx, inv))
	got, err = repo.Get(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Title)

	require.NoError(t, repo.Delete(ctx, inv.ID))
	_, err = repo.Get(ctx, inv.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, inv.ID), ErrNotFound)
}

func TestMemoryRepository(t *testing.T) {
	exerciseRepository(t, NewMemory())
}

func TestMemoryRepository_ReturnsCopies(t *testing.T) {
	repo := NewMemory()
	inv := sampleInvestigation()
	require.NoError(t, repo.Save(context.Background(), inv))

	got, err := repo.Get(context.Background(), inv.ID)
	require.NoError(t, err)
	got.Results[0] = nil

	again, err := repo.Get(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.NotNil(t, again.Results[0])
}

func TestPostgresRepository(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	db, err := Connect(ctx, url)
	require.NoError(t, err)
	defer db.Close()
	_, err = db.Pool.Exec(ctx, `TRUNCATE investigations`)
	require.NoError(t, err)

	exerciseRepository(t, db)
}

func TestOpen_DefaultsToMemory(t *testing.T) {
	repo, err := Open(context.Background(), "", newTestLogger())
	require.NoError(t, err)
	defer repo.Close()
	assert.IsType(t, &Memory{}, repo)
}
