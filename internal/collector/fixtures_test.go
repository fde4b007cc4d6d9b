package collector

import (
	"context"
	"spyosint/internal/credentials"
	"spyosint/internal/models"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixtureRegistry(store credentials.Store) *Registry {
	client := NewHTTPClient(time.Second)
	adapters := WithFixtures(
		NewVirusTotal(client),
		NewShodan(client, "http://127.0.0.1:1"),
		NewWhois(nil, nil),
		NewWayback(client, "http://127.0.0.1:1", 0),
		NewCommonCrawl(client, "http://127.0.0.1:1", 0),
		NewSocial(client, 0, nil),
	)
	return NewRegistry(store, newTestLogger(), adapters...)
}

func TestFixture_KeepsGates(t *testing.T) {
	r := fixtureRegistry(credentials.NewMemoryStore())

	_, err := r.Run(context.Background(), models.ProviderShodan, models.NewQuery("203.0.113.5", models.QueryIP))
	assert.ErrorIs(t, err, models.ErrMissingCredential)

	_, err = r.Run(context.Background(), models.ProviderWayback, models.NewQuery("jdoe", models.QueryUsername))
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestFixture_ReturnsVariantPerQueryType(t *testing.T) {
	ctx := context.Background()
	store := credentials.NewStaticStore(map[models.ProviderID]string{
		models.ProviderShodan:     "k",
		models.ProviderVirusTotal: "k",
	})
	r := fixtureRegistry(store)

	tests := []struct {
		provider models.ProviderID
		q        models.Query
		kind     models.ResultKind
	}{
		{models.ProviderShodan, models.NewQuery("203.0.113.5", models.QueryIP), models.KindHost},
		{models.ProviderShodan, models.NewQuery("example.com", models.QueryDomain), models.KindDNS},
		{models.ProviderShodan, models.NewQuery("nginx", models.QuerySearch), models.KindHostSearch},
		{models.ProviderVirusTotal, models.NewQuery("example.com", models.QueryDomain), models.KindMalwareReputation},
		{models.ProviderWhois, models.NewQuery("https://example.com/x", models.QueryURL), models.KindWhois},
		{models.ProviderWayback, models.NewQuery("example.com", models.QueryDomain), models.KindWebArchive},
		{models.ProviderCommonCrawl, models.NewQuery("example.com", models.QueryDomain), models.KindCrawlIndex},
		{models.ProviderSocial, models.NewQuery("jdoe", models.QueryUsername), models.KindSocialProfiles},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			result, err := r.Run(ctx, tt.provider, tt.q)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, result.Header().Kind)
			assert.Equal(t, tt.provider, result.Header().ProviderID)
			assert.False(t, result.Header().FetchedAt.IsZero())
		})
	}
}

func TestFixture_SocialHonorsPlatformSelection(t *testing.T) {
	r := fixtureRegistry(nil)
	ctx := WithPlatforms(context.Background(), []string{"github", "reddit"})

	result, err := r.Run(ctx, models.ProviderSocial, models.NewQuery("jdoe", models.QueryUsername))
	require.NoError(t, err)

	profiles := result.(*models.SocialProfiles).Profiles
	require.Len(t, profiles, 2)
	assert.Equal(t, "github", profiles[0].Platform)
	assert.Equal(t, models.StatusFound, profiles[0].Status)
	assert.Equal(t, models.StatusNotFound, profiles[1].Status)
}
