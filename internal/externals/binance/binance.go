// Package binance is a fetch-only Binance futures client for the Ingestor
// and Price Monitor: current price and historical candles. No order or
// account endpoints are wired since this system only observes the market,
// never trades it.
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/bitly/go-simplejson"
	"golang.org/x/time/rate"

	"github.com/cryptopulse/signalpipe/internal/client"
	"github.com/cryptopulse/signalpipe/internal/libs/errs"
	"github.com/cryptopulse/signalpipe/internal/libs/logger"
	"github.com/cryptopulse/signalpipe/internal/models"
)

const defaultAPIURL = "https://fapi.binance.com"

// requestsPerSecond matches Binance's public-endpoint weight budget.
const requestsPerSecond = 20

type Client struct {
	baseURL string
	limiter *rate.Limiter
	log     *logger.Logger
	http    *http.Client
}

func New(log *logger.Logger, apiURL string) *Client {
	if apiURL == "" {
		apiURL = defaultAPIURL
	}

	return &Client{
		baseURL: apiURL,
		limiter: rate.NewLimiter(rate.Every(time.Second/requestsPerSecond), requestsPerSecond),
		log:     log,
		http:    client.New(),
	}
}

// CurrentPrice fetches the latest traded price for symbol from the
// ticker/price endpoint.
func (c *Client) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	url := fmt.Sprintf("%s/fapi/v1/ticker/price?symbol=%s", c.baseURL, symbol)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, &errs.ExternalAPIError{API: "binance", StatusCode: resp.StatusCode}
	}

	payload := &futures.SymbolPrice{}
	if err := json.NewDecoder(resp.Body).Decode(payload); err != nil {
		return 0, err
	}

	var price float64
	if _, err := fmt.Sscanf(payload.Price, "%f", &price); err != nil {
		return 0, err
	}

	return price, nil
}

// Candlesticks fetches up to limit recent candles for (symbol, interval)
// via the continuous-klines endpoint, parsing the raw JSON array response
// with go-simplejson.
func (c *Client) Candlesticks(ctx context.Context, symbol, interval string, limit int) ([]*models.Candle, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/fapi/v1/continuousKlines?limit=%d&pair=%s&contractType=PERPETUAL&interval=%s",
		c.baseURL, limit, symbol, interval)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &errs.ExternalAPIError{API: "binance", StatusCode: resp.StatusCode}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return parseKlines(raw)
}

func parseKlines(raw []byte) ([]*models.Candle, error) {
	doc, err := simplejson.NewJson(raw)
	if err != nil {
		return nil, err
	}

	num := len(doc.MustArray())
	out := make([]*models.Candle, num)

	for i := 0; i < num; i++ {
		item := doc.GetIndex(i)
		if len(item.MustArray()) < 6 {
			return nil, fmt.Errorf("binance: malformed kline at index %d", i)
		}

		out[i] = &models.Candle{
			OpenTime: item.GetIndex(0).MustInt64(),
			Open:     parseFloat(item.GetIndex(1).MustString()),
			High:     parseFloat(item.GetIndex(2).MustString()),
			Low:      parseFloat(item.GetIndex(3).MustString()),
			Close:    parseFloat(item.GetIndex(4).MustString()),
			Volume:   parseFloat(item.GetIndex(5).MustString()),
		}
	}

	return out, nil
}

func parseFloat(s string) float64 {
	var v float64
	fmt.Sscanf(s, "%f", &v)
	return v
}
