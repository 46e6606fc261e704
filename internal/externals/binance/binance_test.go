package binance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cryptopulse/signalpipe/internal/libs/logger"
)

func TestCurrentPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"symbol":"BTCUSDT","price":"65000.50"}`))
	}))
	defer srv.Close()

	c := New(logger.NewDev(), srv.URL)
	price, err := c.CurrentPrice(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	assert.InDelta(t, 65000.50, price, 0.001)
}

func TestCandlesticksParsesKlineArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			[1620000000000, "100.0", "110.0", "95.0", "105.0", "1000.0", 1620000060000, "0", 0, "0", "0"],
			[1620000060000, "105.0", "115.0", "100.0", "110.0", "1200.0", 1620000120000, "0", 0, "0", "0"]
		]`))
	}))
	defer srv.Close()

	c := New(logger.NewDev(), srv.URL)
	candles, err := c.Candlesticks(context.Background(), "BTCUSDT", "1h", 500)
	require.NoError(t, err)
	require.Len(t, candles, 2)
	assert.Equal(t, 100.0, candles[0].Open)
	assert.Equal(t, 110.0, candles[1].Close)
}

func TestCurrentPriceNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := New(logger.NewDev(), srv.URL)
	_, err := c.CurrentPrice(context.Background(), "BTCUSDT")
	assert.Error(t, err)
}
