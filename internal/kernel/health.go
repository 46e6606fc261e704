package kernel

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cryptopulse/signalpipe/internal/config"
)

// DependencyCheck is one named liveness probe — a pooled client ping or
// similar — polled by /health, /ready, and /status.
type DependencyCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type depStatus struct {
	Status    string    `json:"status"`
	LastCheck time.Time `json:"last_check"`
}

// healthState caches the last probe result per dependency so /status can
// report "last_check" without re-probing on every request.
type healthState struct {
	mu   sync.RWMutex
	deps map[string]depStatus
}

func newHealthState() *healthState {
	return &healthState{deps: make(map[string]depStatus)}
}

func (h *healthState) set(name string, err error) {
	status := "healthy"
	if err != nil {
		status = "unhealthy"
	}
	h.mu.Lock()
	h.deps[name] = depStatus{Status: status, LastCheck: time.Now()}
	h.mu.Unlock()
}

func (h *healthState) snapshot() map[string]depStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make(map[string]depStatus, len(h.deps))
	for k, v := range h.deps {
		out[k] = v
	}
	return out
}

func (h *healthState) allHealthy() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, v := range h.deps {
		if v.Status != "healthy" {
			return false
		}
	}
	return true
}

// probe runs every dependency check with the kernel's default timeout and
// records the outcome; /health and /ready read the cached snapshot so they
// never block on a slow dependency. /health returns 503 as soon as either
// pooled client is unhealthy, not after a fresh round-trip.
func (k *Kernel) probe(ctx context.Context) {
	for _, dep := range k.deps {
		cctx, cancel := context.WithTimeout(ctx, k.cfg.DefaultTimeout)
		err := dep.Check(cctx)
		cancel()
		k.health.set(dep.Name, err)
	}
}

func apiKeyMiddleware(cfg config.APIKeyConfig) gin.HandlerFunc {
	allowed := make(map[string]bool, len(cfg.Keys))
	for _, key := range cfg.Keys {
		allowed[key] = true
	}

	return func(c *gin.Context) {
		if !cfg.Enabled {
			c.Next()
			return
		}

		key := c.GetHeader("X-API-Key")
		if key == "" {
			key = c.Query("api_key")
		}

		if !allowed[key] {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "missing or invalid API key",
			})
			return
		}

		c.Next()
	}
}

// rateLimitMiddleware gates a route to RequestsPerMinute hits, defaulting
// to 60/min as the /metrics guard. /health and /ready never pass through it.
func rateLimitMiddleware(cfg config.RateLimitConfig) gin.HandlerFunc {
	perMinute := cfg.RequestsPerMinute
	if perMinute <= 0 {
		perMinute = 60
	}

	var (
		mu     sync.Mutex
		hits   []time.Time
		window = time.Minute
	)

	return func(c *gin.Context) {
		if !cfg.Enabled {
			c.Next()
			return
		}

		mu.Lock()
		now := time.Now()
		cut := 0
		for i, t := range hits {
			if now.Sub(t) <= window {
				cut = i
				break
			}
			cut = i + 1
		}
		hits = hits[cut:]

		if len(hits) >= perMinute {
			mu.Unlock()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate_limited",
				"message": "too many requests",
			})
			return
		}

		hits = append(hits, now)
		mu.Unlock()
		c.Next()
	}
}

// router builds the four-endpoint HTTP surface every service exposes:
// /health and /ready are never rate-limited; /metrics is optionally
// API-key gated and rate-limited.
func (k *Kernel) router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(k.metricsMiddleware())

	r.GET("/health", func(c *gin.Context) {
		if k.health.allHealthy() {
			c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": k.cfg.ServiceName})
			return
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "service": k.cfg.ServiceName})
	})

	r.GET("/ready", func(c *gin.Context) {
		if k.health.allHealthy() {
			c.JSON(http.StatusOK, gin.H{"status": "ready", "service": k.cfg.ServiceName})
			return
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "service": k.cfg.ServiceName})
	})

	r.GET("/status", func(c *gin.Context) {
		deps := k.health.snapshot()
		overall := "healthy"
		if !k.health.allHealthy() {
			overall = "unhealthy"
		}

		c.JSON(http.StatusOK, gin.H{
			"service":      k.cfg.ServiceName,
			"uptime_sec":   int(time.Since(k.startedAt).Seconds()),
			"status":       overall,
			"dependencies": deps,
		})
	})

	metricsGroup := r.Group("/metrics")
	metricsGroup.Use(apiKeyMiddleware(k.apiKeyCfg), rateLimitMiddleware(k.rateLimitCfg))
	metricsGroup.GET("", gin.WrapH(promhttp.Handler()))

	return r
}

// metricsMiddleware records request-duration observations for every route
// except /metrics itself. It skips an in-flight gauge since NewMetrics
// does not track that per-service.
func (k *Kernel) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		status := c.Writer.Status()
		k.metrics.ObserveRequest(c.Request.URL.Path, http.StatusText(status), time.Since(start))
	}
}
