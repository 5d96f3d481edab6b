package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/nbd-wtf/go-nostr"
	"github.com/nbd-wtf/go-nostr/nip19"
)

// FiatConfig represents the fiat conversion configuration
type FiatConfig struct {
	Currencies         []string `yaml:"currencies"`           // Currencies to keep prices for (default: ["USD"])
	PriceURL           string   `yaml:"price_url"`            // Current-price endpoint returning {currency: price}
	HistoricalPriceURL string   `yaml:"historical_price_url"` // Point-in-time price endpoint
	RefreshInterval    int      `yaml:"refresh_interval"`     // Price refresh interval in seconds (default: 30)
}

// Config represents the application configuration
type Config struct {
	Relays     []string   `yaml:"relays"`
	Target     string     `yaml:"target"` // Event id (hex or nevent/note) or a-tag coordinate of the live note
	Port       string     `yaml:"port"`
	DebounceMs int        `yaml:"debounce_ms"` // Layout/replan debounce window in milliseconds (default: 250)
	Fiat       FiatConfig `yaml:"fiat"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Config{
		Port:       ":8080",
		DebounceMs: 250,
		Fiat: FiatConfig{
			Currencies:      []string{"USD"},
			RefreshInterval: 30,
		},
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if len(cfg.Relays) == 0 {
		return nil, fmt.Errorf("at least one relay is required")
	}

	target, err := normalizeTarget(cfg.Target)
	if err != nil {
		return nil, fmt.Errorf("invalid target: %w", err)
	}
	cfg.Target = target

	log.Printf("[CONFIG] Loaded configuration from %s", path)
	log.Printf("[CONFIG] - Relays: %d", len(cfg.Relays))
	log.Printf("[CONFIG] - Target: %s", cfg.Target)
	log.Printf("[CONFIG] - Port: %s", cfg.Port)
	log.Printf("[CONFIG] - Currencies: %s", strings.Join(cfg.Fiat.Currencies, ", "))
	log.Printf("[CONFIG] - Price refresh: %ds", cfg.Fiat.RefreshInterval)

	return &cfg, nil
}

// normalizeTarget converts bech32-encoded targets (note1.../nevent1...) to the
// hex id or a-tag coordinate the relay filter needs.
func normalizeTarget(target string) (string, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return "", fmt.Errorf("target is required")
	}

	if strings.HasPrefix(target, "note1") || strings.HasPrefix(target, "nevent1") {
		prefix, value, err := nip19.Decode(target)
		if err != nil {
			return "", err
		}
		switch prefix {
		case "note":
			return value.(string), nil
		case "nevent":
			return value.(nostr.EventPointer).ID, nil
		}
		return "", fmt.Errorf("unsupported bech32 prefix %q", prefix)
	}

	return target, nil
}

// GetRefreshInterval returns the price refresh interval as a time.Duration
func (c *Config) GetRefreshInterval() time.Duration {
	return time.Duration(c.Fiat.RefreshInterval) * time.Second
}

// GetDebounce returns the replan debounce window as a time.Duration
func (c *Config) GetDebounce() time.Duration {
	return time.Duration(c.DebounceMs) * time.Millisecond
}
