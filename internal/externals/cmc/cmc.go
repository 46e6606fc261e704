// Package cmc fetches macro market metrics (BTC/USDT dominance, total
// market cap) from CoinMarketCap's global-metrics endpoint, pooled and
// rate-limited the same way the Binance client is.
package cmc

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/cryptopulse/signalpipe/internal/client"
	"github.com/cryptopulse/signalpipe/internal/libs/errs"
	"github.com/cryptopulse/signalpipe/internal/libs/logger"
)

const (
	defaultBaseURL    = "https://pro-api.coinmarketcap.com/v1/global-metrics/quotes/latest"
	requestsPerSecond = 5
)

type Client struct {
	baseURL string
	apiKey  string
	limiter *rate.Limiter
	log     *logger.Logger
	http    *http.Client
}

// New constructs a client against CoinMarketCap's global-metrics endpoint.
func New(log *logger.Logger, apiKey string) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
		limiter: rate.NewLimiter(rate.Every(time.Second/requestsPerSecond), requestsPerSecond),
		log:     log,
		http:    client.New(),
	}
}

// NewWithBaseURL is used by tests to point the client at a local server.
func NewWithBaseURL(log *logger.Logger, apiKey, baseURL string) *Client {
	c := New(log, apiKey)
	c.baseURL = baseURL
	return c
}

// GlobalMetrics is the subset of CoinMarketCap's global-metrics response
// the Ingestor needs for its per-cycle macro snapshot.
type GlobalMetrics struct {
	BTCDominance   float64
	USDTDominance  float64
	TotalMarketCap float64
}

func (c *Client) GlobalMetrics(ctx context.Context) (*GlobalMetrics, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-CMC_PRO_API_KEY", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &errs.ExternalAPIError{API: "cmc", StatusCode: resp.StatusCode}
	}

	var payload struct {
		Data struct {
			BTCDominance  float64 `json:"btc_dominance"`
			USDTDominance float64 `json:"usdt_dominance"`
			Quote         struct {
				USD struct {
					TotalMarketCap float64 `json:"total_market_cap"`
				} `json:"USD"`
			} `json:"quote"`
		} `json:"data"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}

	return &GlobalMetrics{
		BTCDominance:   payload.Data.BTCDominance,
		USDTDominance:  payload.Data.USDTDominance,
		TotalMarketCap: payload.Data.Quote.USD.TotalMarketCap,
	}, nil
}
