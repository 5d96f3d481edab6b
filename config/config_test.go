package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nbd-wtf/go-nostr/nip19"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
relays:
  - wss://relay.damus.io
target: b9f5441e45ca39179320e0031cfb18e34078673dcf8d8e8e6e4ba4cf1c4f4c1c
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Port)
	assert.Equal(t, []string{"USD"}, cfg.Fiat.Currencies)
	assert.Equal(t, 30, cfg.Fiat.RefreshInterval)
	assert.Equal(t, 250, cfg.DebounceMs)
}

func TestLoadFull(t *testing.T) {
	path := writeConfig(t, `
relays:
  - wss://relay.damus.io
  - wss://nos.lol
target: "30311:82341f882b6eabcd2ba7f1ef90aad961cf074af15b9ef44a09f9d2a8fbfbe6a2:stream-1"
port: ":9090"
debounce_ms: 100
fiat:
  currencies: [USD, JPY]
  price_url: https://price.example.com/current
  historical_price_url: https://price.example.com/historical
  refresh_interval: 60
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Len(t, cfg.Relays, 2)
	assert.Equal(t, "30311:82341f882b6eabcd2ba7f1ef90aad961cf074af15b9ef44a09f9d2a8fbfbe6a2:stream-1", cfg.Target)
	assert.Equal(t, ":9090", cfg.Port)
	assert.Equal(t, []string{"USD", "JPY"}, cfg.Fiat.Currencies)
	assert.Equal(t, int64(60), int64(cfg.GetRefreshInterval().Seconds()))
	assert.Equal(t, int64(100), cfg.GetDebounce().Milliseconds())
}

func TestLoadRejectsMissingFields(t *testing.T) {
	_, err := Load(writeConfig(t, `target: abc`))
	assert.Error(t, err, "relays are required")

	_, err = Load(writeConfig(t, "relays:\n  - wss://relay.damus.io\n"))
	assert.Error(t, err, "target is required")
}

func TestNormalizeTargetNote(t *testing.T) {
	hex64 := "b9f5441e45ca39179320e0031cfb18e34078673dcf8d8e8e6e4ba4cf1c4f4c1c"
	note, err := nip19.EncodeNote(hex64)
	require.NoError(t, err)

	got, err := normalizeTarget(note)
	require.NoError(t, err)
	assert.Equal(t, hex64, got)

	// Hex ids pass through untouched.
	got, err = normalizeTarget(hex64)
	require.NoError(t, err)
	assert.Equal(t, hex64, got)
}
