// Package coingecko talks to the CoinGecko REST API and merges
// multi-currency market datasets by coin id.
package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/anujgarg/coinmarket-api/pkg/metrics"
	"github.com/anujgarg/coinmarket-api/pkg/models"
	"go.uber.org/zap"
)

// MarketDataService defines the upstream operations the API is built on.
type MarketDataService interface {
	ListCoins(ctx context.Context) ([]models.Coin, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	GetMarketData(ctx context.Context, query MarketQuery) ([]models.MarketRecord, error)
	Ping(ctx context.Context) error
}

// MarketQuery selects the coins and currencies for a markets request.
// The first currency is the base currency; every further currency is
// fetched in a supplementary request and merged into the base records.
// The client imposes no bounded-result-set policy: requiring at least one
// of CoinIDs/Category is the route layer's responsibility.
type MarketQuery struct {
	CoinIDs    []string
	Category   string
	Currencies []string
}

// StatusError reports a non-2xx response from the upstream API.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("coingecko: unexpected status %d from %s", e.StatusCode, e.URL)
}

// Client implements MarketDataService against the CoinGecko REST API.
// It is stateless and safe for concurrent use.
type Client struct {
	logger         *zap.Logger
	baseURL        string
	requestTimeout time.Duration
	probeTimeout   time.Duration
	httpClient     *http.Client
}

// NewClient creates a CoinGecko client. The request timeout bounds data
// calls; the probe timeout bounds the /ping health probe.
func NewClient(logger *zap.Logger, baseURL string, requestTimeout, probeTimeout time.Duration) *Client {
	return &Client{
		logger:         logger,
		baseURL:        strings.TrimSuffix(baseURL, "/"),
		requestTimeout: requestTimeout,
		probeTimeout:   probeTimeout,
		httpClient:     &http.Client{},
	}
}

// ListCoins fetches the full coin listing.
func (c *Client) ListCoins(ctx context.Context) ([]models.Coin, error) {
	var coins []models.Coin
	if err := c.getJSON(ctx, "coins_list", c.baseURL+"/coins/list", c.requestTimeout, &coins); err != nil {
		return nil, err
	}
	return coins, nil
}

// ListCategories fetches the full category listing.
func (c *Client) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := c.getJSON(ctx, "categories_list", c.baseURL+"/coins/categories/list", c.requestTimeout, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

// GetMarketData fetches market data in the base currency, fetches every
// further currency concurrently and left-joins the secondary datasets into
// the base records by coin id. Base order is preserved and no record is
// added or dropped. Any failed request fails the whole call: there is no
// degraded base-currency-only result.
func (c *Client) GetMarketData(ctx context.Context, query MarketQuery) ([]models.MarketRecord, error) {
	if len(query.Currencies) == 0 {
		return nil, fmt.Errorf("coingecko: at least one currency is required")
	}

	base, err := c.fetchMarkets(ctx, query.Currencies[0], query)
	if err != nil {
		return nil, err
	}

	secondaries := query.Currencies[1:]
	if len(secondaries) == 0 {
		return base, nil
	}

	type supplementary struct {
		currency string
		records  []models.MarketRecord
		err      error
	}

	results := make([]supplementary, len(secondaries))
	var wg sync.WaitGroup
	for i, currency := range secondaries {
		wg.Add(1)
		go func(i int, currency string) {
			defer wg.Done()
			records, err := c.fetchMarkets(ctx, currency, query)
			results[i] = supplementary{currency: currency, records: records, err: err}
		}(i, currency)
	}
	wg.Wait()

	for _, result := range results {
		if result.err != nil {
			return nil, result.err
		}
		mergeQuotes(base, result.currency, result.records)
	}

	return base, nil
}

// Ping probes upstream availability with the short probe timeout.
func (c *Client) Ping(ctx context.Context) error {
	var body json.RawMessage
	return c.getJSON(ctx, "ping", c.baseURL+"/ping", c.probeTimeout, &body)
}

func (c *Client) fetchMarkets(ctx context.Context, currency string, query MarketQuery) ([]models.MarketRecord, error) {
	params := url.Values{}
	params.Set("vs_currency", currency)
	if len(query.CoinIDs) > 0 {
		params.Set("ids", strings.Join(query.CoinIDs, ","))
	}
	if query.Category != "" {
		params.Set("category", query.Category)
	}
	params.Set("sparkline", "false")

	var records []models.MarketRecord
	if err := c.getJSON(ctx, "markets", c.baseURL+"/coins/markets?"+params.Encode(), c.requestTimeout, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint, rawURL string, timeout time.Duration, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("coingecko: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(endpoint, "error").Inc()
		return fmt.Errorf("coingecko: request %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	metrics.UpstreamRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		metrics.UpstreamRequestsTotal.WithLabelValues(endpoint, "http_error").Inc()
		c.logger.Warn("upstream returned non-2xx status",
			zap.String("endpoint", endpoint),
			zap.Int("status", resp.StatusCode))
		return &StatusError{StatusCode: resp.StatusCode, URL: rawURL}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(endpoint, "error").Inc()
		return fmt.Errorf("coingecko: decode %s response: %w", endpoint, err)
	}

	metrics.UpstreamRequestsTotal.WithLabelValues(endpoint, "ok").Inc()
	return nil
}

// mergeQuotes left-joins a secondary-currency dataset into the base
// records. The secondary dataset is indexed by id first so the merge stays
// near-linear.
func mergeQuotes(base []models.MarketRecord, currency string, secondary []models.MarketRecord) {
	byID := make(map[string]models.MarketRecord, len(secondary))
	for _, record := range secondary {
		byID[record.ID] = record
	}

	for i := range base {
		match, ok := byID[base[i].ID]
		if !ok {
			continue
		}
		if base[i].Quotes == nil {
			base[i].Quotes = make(map[string]models.CurrencyQuote, 1)
		}
		base[i].Quotes[currency] = models.CurrencyQuote{
			CurrentPrice: match.CurrentPrice,
			MarketCap:    match.MarketCap,
		}
	}
}
