package fiat

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client fetches bitcoin prices from the configured current-price and
// historical-price endpoints.
type Client struct {
	priceURL      string
	historicalURL string
	httpClient    *http.Client
}

// NewClient creates a price Client. historicalURL receives the timestamp and
// currency as query parameters.
func NewClient(priceURL, historicalURL string) *Client {
	return &Client{
		priceURL:      strings.TrimSuffix(priceURL, "/"),
		historicalURL: strings.TrimSuffix(historicalURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// CurrentPrices returns the currency → BTC price map from the price source.
func (c *Client) CurrentPrices(ctx context.Context) (map[string]float64, error) {
	data, err := c.get(ctx, c.priceURL)
	if err != nil {
		return nil, err
	}

	var prices map[string]float64
	if err := json.Unmarshal(data, &prices); err != nil {
		return nil, fmt.Errorf("parse prices: %w", err)
	}
	return prices, nil
}

// historicalResponse is the point-in-time price payload.
type historicalResponse struct {
	Price float64 `json:"price"`
}

// HistoricalPrice returns the BTC price in the given currency at the given
// unix timestamp.
func (c *Client) HistoricalPrice(ctx context.Context, timestampSec int64, currency string) (float64, error) {
	url := fmt.Sprintf("%s?timestamp=%d&currency=%s", c.historicalURL, timestampSec, currency)
	data, err := c.get(ctx, url)
	if err != nil {
		return 0, err
	}

	var resp historicalResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return 0, fmt.Errorf("parse historical price: %w", err)
	}
	return resp.Price, nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("price API error %d: %s", resp.StatusCode, string(data))
	}
	return data, nil
}
