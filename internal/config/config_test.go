package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"spyosint/internal/models"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("HOME", dir)
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, 8080, cfg.App.Port)
	assert.Equal(t, 15*time.Second, cfg.Providers.Timeout)
	assert.Equal(t, "file", cfg.Credentials.Backend)
	assert.Equal(t, "anthropic/claude-3.5-sonnet", cfg.LLM.Model)
	assert.Equal(t, 0.3, cfg.LLM.Temperature)
	assert.Equal(t, 4000, cfg.LLM.MaxTokens)
	assert.Contains(t, cfg.Providers.SocialPlatforms, "twitter")
	assert.Equal(t, 100, cfg.HTTP.RateLimit)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())
}

func TestLoad_EnvOverridesKeyFile(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, SaveKeyFile(&KeyFile{
		ShodanAPIKey:     "file-shodan",
		VirusTotalAPIKey: "file-vt",
	}, filepath.Join(dir, "config.json")))

	t.Setenv("SHODAN_API_KEY", "env-shodan")
	t.Setenv("APP_PORT", "9090")
	t.Setenv("FIXTURE_MODE", "true")
	t.Setenv("SOCIAL_PLATFORMS", "github, reddit")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "env-shodan", cfg.Keys.ShodanAPIKey)
	assert.Equal(t, "file-vt", cfg.Keys.VirusTotalAPIKey)
	assert.Equal(t, 9090, cfg.App.Port)
	assert.True(t, cfg.Providers.FixtureMode)
	assert.Equal(t, []string{"github", "reddit"}, cfg.Providers.SocialPlatforms)
}

func TestKeyFile_SaveLoad(t *testing.T) {
	dir := isolate(t)

	keys, err := LoadKeyFile()
	require.NoError(t, err)
	assert.Empty(t, keys.ShodanAPIKey)

	require.NoError(t, SaveKeyFile(&KeyFile{OpenRouterAPIKey: "or"}, ""))
	info, err := os.Stat(filepath.Join(dir, "config.json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	keys, err = LoadKeyFile()
	require.NoError(t, err)
	assert.Equal(t, "or", keys.OpenRouterAPIKey)
}

func TestKeyFile_HomeFallback(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, SaveKeyFile(&KeyFile{ShodanAPIKey: "home"}, filepath.Join(dir, ".spyosint.json")))

	keys, err := LoadKeyFile()
	require.NoError(t, err)
	assert.Equal(t, "home", keys.ShodanAPIKey)
}

func TestMergeKeys(t *testing.T) {
	merged := MergeKeys(&KeyFile{ShodanAPIKey: "a", VirusTotalAPIKey: "b"}, KeyFile{VirusTotalAPIKey: "flag"})
	assert.Equal(t, "a", merged.ShodanAPIKey)
	assert.Equal(t, "flag", merged.VirusTotalAPIKey)
	assert.Len(t, merged.Secrets(), 3)
}

func TestKeyFile_SetSecret(t *testing.T) {
	var keys KeyFile
	assert.True(t, keys.SetSecret(models.ProviderOpenRouter, "or"))
	assert.False(t, keys.SetSecret(models.ProviderWhois, "x"))
	assert.Equal(t, "or", keys.Secrets()[models.ProviderOpenRouter])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("bogus"))
}
