package fiat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

const satsPerBTC = 100_000_000

// ErrNoPrice is returned when the requested currency has no cached price.
// Callers leave the fiat column blank; satoshi amounts stay authoritative.
var ErrNoPrice = errors.New("no price available")

// PriceSource is the external price provider. *Client satisfies it.
type PriceSource interface {
	CurrentPrices(ctx context.Context) (map[string]float64, error)
	HistoricalPrice(ctx context.Context, timestampSec int64, currency string) (float64, error)
}

// Converter turns satoshi amounts into formatted fiat values using a cached
// price map refreshed on a fixed interval. Fiat is best-effort enrichment: a
// failed refresh leaves the previous prices in place.
type Converter struct {
	source     PriceSource
	currencies []string

	mu     sync.RWMutex
	prices map[string]float64

	historical *historicalFetcher

	ctx    context.Context
	cancel context.CancelFunc
}

// NewConverter creates a Converter tracking the given currencies.
func NewConverter(source PriceSource, currencies []string) *Converter {
	ctx, cancel := context.WithCancel(context.Background())
	return &Converter{
		source:     source,
		currencies: currencies,
		prices:     make(map[string]float64),
		historical: newHistoricalFetcher(source),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start performs an initial refresh and begins the periodic refresh loop.
func (c *Converter) Start(interval time.Duration) {
	c.refresh()
	go c.refreshLoop(interval)
}

// Stop shuts down the refresh loop and any in-flight historical fetches.
func (c *Converter) Stop() {
	c.cancel()
}

func (c *Converter) refreshLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.refresh()
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Converter) refresh() {
	ctx, cancel := context.WithTimeout(c.ctx, 10*time.Second)
	defer cancel()

	prices, err := c.source.CurrentPrices(ctx)
	if err != nil {
		log.Printf("[FIAT] Price refresh failed, keeping stale prices: %v", err)
		return
	}

	filtered := make(map[string]float64, len(c.currencies))
	for _, currency := range c.currencies {
		if price, ok := prices[currency]; ok {
			filtered[currency] = price
		}
	}

	c.mu.Lock()
	c.prices = filtered
	c.mu.Unlock()
}

// SetPrice injects a price directly. Used by tests and by callers that feed
// prices from an external tick instead of the refresh loop.
func (c *Converter) SetPrice(currency string, price float64) {
	c.mu.Lock()
	c.prices[currency] = price
	c.mu.Unlock()
}

// Convert formats amountSats in the given currency at the cached price.
func (c *Converter) Convert(amountSats int64, currency string) (string, error) {
	c.mu.RLock()
	price, ok := c.prices[currency]
	c.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNoPrice, currency)
	}
	return FormatAmount(fiatValue(amountSats, price), currency), nil
}

// HistoricalConversion is the result of a point-in-time conversion.
type HistoricalConversion struct {
	Current       string  `json:"current"`
	Historical    string  `json:"historical"`
	ChangePercent float64 `json:"changePercent"`
}

// ConvertHistorical formats amountSats at both the current cached price and
// the price at timestampSec, plus the percentage change between them.
// Lookups for the same (timestamp, currency) pair are served from cache and
// concurrent bursts are coalesced into a single HTTP call.
func (c *Converter) ConvertHistorical(amountSats, timestampSec int64, currency string) (*HistoricalConversion, error) {
	c.mu.RLock()
	current, hasCurrent := c.prices[currency]
	c.mu.RUnlock()
	if !hasCurrent {
		return nil, fmt.Errorf("%w: %s", ErrNoPrice, currency)
	}

	past, err := c.historical.fetch(c.ctx, timestampSec, currency)
	if err != nil {
		return nil, err
	}

	change := 0.0
	if past > 0 {
		change = (current - past) / past * 100
	}

	return &HistoricalConversion{
		Current:       FormatAmount(fiatValue(amountSats, current), currency),
		Historical:    FormatAmount(fiatValue(amountSats, past), currency),
		ChangePercent: change,
	}, nil
}

func fiatValue(amountSats int64, price float64) float64 {
	return float64(amountSats) / satsPerBTC * price
}

// FormatAmount renders a fiat value for display: JPY as an integer, every
// other currency to two decimals.
func FormatAmount(value float64, currency string) string {
	if currency == "JPY" {
		return fmt.Sprintf("%.0f %s", value, currency)
	}
	return fmt.Sprintf("%.2f %s", value, currency)
}
