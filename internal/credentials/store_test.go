package credentials

import (
	"context"
	"os"
	"path/filepath"
	"spyosint/internal/models"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	store, err := NewRedisStore(context.Background(), RedisOptions{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, mr
}

func TestStores_RoundTrip(t *testing.T) {
	redisStore, _ := newRedisStore(t)
	backends := map[string]Store{
		"memory": NewMemoryStore(),
		"file":   NewFileStore(filepath.Join(t.TempDir(), "creds.json")),
		"redis":  redisStore,
	}

	for name, store := range backends {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, ok, err := store.Get(ctx, "shodan")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, store.Set(ctx, "shodan", "secret-1"))
			v, ok, err := store.Get(ctx, "shodan")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "secret-1", v)

			require.NoError(t, store.Set(ctx, "shodan", "secret-2"))
			v, _, _ = store.Get(ctx, "shodan")
			assert.Equal(t, "secret-2", v)

			// other providers are independent
			_, ok, _ = store.Get(ctx, "virustotal")
			assert.False(t, ok)

			require.NoError(t, store.Clear(ctx, "shodan"))
			_, ok, err = store.Get(ctx, "shodan")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestStores_EmptySetClears(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Set(ctx, "openrouter", "k"))
	require.NoError(t, store.Set(ctx, "openrouter", ""))
	_, ok, _ := store.Get(ctx, "openrouter")
	assert.False(t, ok)
}

func TestRedisStore_UsesNamespacedKeys(t *testing.T) {
	store, mr := newRedisStore(t)
	require.NoError(t, store.Set(context.Background(), "virustotal", "vt-key"))

	v, err := mr.Get("spyosint_virustotal")
	require.NoError(t, err)
	assert.Equal(t, "vt-key", v)
}

func TestRedisStore_Ping(t *testing.T) {
	store, mr := newRedisStore(t)
	require.NoError(t, store.Ping(context.Background()))

	mr.Close()
	assert.Error(t, store.Ping(context.Background()))
}

func TestFileStore_PersistsWithPrivateMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "creds.json")
	ctx := context.Background()

	require.NoError(t, NewFileStore(path).Set(ctx, "shodan", "abc"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"spyosint_shodan": "abc"`)

	// a second instance sees the persisted value
	v, ok, err := NewFileStore(path).Get(ctx, "shodan")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "abc", v)
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	_, _, err := NewFileStore(path).Get(context.Background(), "shodan")
	assert.Error(t, err)
}

func TestChain(t *testing.T) {
	ctx := context.Background()
	user := NewMemoryStore()
	server := NewStaticStore(map[models.ProviderID]string{
		models.ProviderShodan:     "server-shodan",
		models.ProviderVirusTotal: "",
	})
	chain := NewChain(user, server)

	v, ok, err := chain.Get(ctx, "shodan")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "server-shodan", v)

	require.NoError(t, chain.Set(ctx, "shodan", "user-shodan"))
	v, _, _ = chain.Get(ctx, "shodan")
	assert.Equal(t, "user-shodan", v)

	_, ok, _ = chain.Get(ctx, "virustotal")
	assert.False(t, ok)

	require.NoError(t, chain.Clear(ctx, "shodan"))
	v, _, _ = chain.Get(ctx, "shodan")
	assert.Equal(t, "server-shodan", v)

	assert.ErrorIs(t, server.Set(ctx, "shodan", "x"), ErrReadOnly)
	assert.Equal(t, []string{"shodan"}, server.Providers())
}

func TestLookup(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	cred, err := Lookup(ctx, store, models.ProviderShodan)
	require.NoError(t, err)
	assert.Nil(t, cred)

	require.NoError(t, store.Set(ctx, "shodan", "k"))
	cred, err = Lookup(ctx, store, models.ProviderShodan)
	require.NoError(t, err)
	require.NotNil(t, cred)
	assert.Equal(t, models.ProviderShodan, cred.ProviderID)
	assert.Equal(t, "k", cred.SecretValue)
}

func TestMask(t *testing.T) {
	assert.Equal(t, "****", Mask("abcd"))
	assert.Equal(t, "*****6789", Mask("123456789"))
	assert.Equal(t, "", Mask(""))
}

func TestOpen(t *testing.T) {
	s, err := Open(context.Background(), Options{Backend: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	_, err = Open(context.Background(), Options{Backend: "etcd"})
	assert.Error(t, err)
}
