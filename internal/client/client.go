// Package client builds the shared *http.Client used by every outbound
// REST integration (Binance, CoinMarketCap) so connection pooling and
// timeouts are configured once instead of per-caller. It adds a
// response-header timeout knob since the futures REST endpoints this
// system polls are latency-sensitive.
package client

import (
	"net"
	"net/http"
	"time"
)

const (
	defaultMaxIdleConnsPerHost  = 100
	defaultKeepAlive            = 600 * time.Second
	defaultTimeout               = 30 * time.Second
	defaultResponseHeaderTimeout = 10 * time.Second
)

// Config controls the transport and client timeouts. Zero values fall
// back to the defaults above.
type Config struct {
	Timeout               time.Duration
	MaxIdleConnsPerHost   int
	KeepAlive             time.Duration
	ResponseHeaderTimeout time.Duration
}

// Tune mutates a Config; pass zero or more to New.
type Tune func(*Config)

// WithTimeout overrides the overall request timeout.
func WithTimeout(d time.Duration) Tune {
	return func(c *Config) { c.Timeout = d }
}

// WithResponseHeaderTimeout bounds how long New's client waits for
// response headers after the request body is written, independent of
// the overall request Timeout.
func WithResponseHeaderTimeout(d time.Duration) Tune {
	return func(c *Config) { c.ResponseHeaderTimeout = d }
}

// New builds an *http.Client with a pooled, keep-alive transport suited
// to repeated polling against the same handful of hosts.
func New(tunes ...Tune) *http.Client {
	cfg := &Config{
		Timeout:               defaultTimeout,
		MaxIdleConnsPerHost:   defaultMaxIdleConnsPerHost,
		KeepAlive:             defaultKeepAlive,
		ResponseHeaderTimeout: defaultResponseHeaderTimeout,
	}
	for _, t := range tunes {
		t(cfg)
	}

	transport := &http.Transport{
		Dial:                  (&net.Dialer{KeepAlive: cfg.KeepAlive}).Dial,
		MaxIdleConnsPerHost:   cfg.MaxIdleConnsPerHost,
		ResponseHeaderTimeout: cfg.ResponseHeaderTimeout,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   cfg.Timeout,
	}
}
