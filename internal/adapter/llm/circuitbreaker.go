package llm

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"aegis-ai/internal/domain"
	"aegis-ai/internal/infra/config"
)

// CircuitBreakerProvider wraps an LLMProvider with a circuit breaker so a
// failing upstream is given time to recover instead of being hammered.
type CircuitBreakerProvider struct {
	inner   domain.LLMProvider
	breaker *gobreaker.CircuitBreaker[*domain.ChatResponse]
	logger  *slog.Logger
}

var _ domain.LLMProvider = (*CircuitBreakerProvider)(nil)

// NewCircuitBreakerProvider wraps the given provider. Zero values in cfg fall
// back to 5 consecutive failures, 30s open timeout and a 60s counting window.
func NewCircuitBreakerProvider(inner domain.LLMProvider, cfg config.CircuitBreakerConfig, logger *slog.Logger) *CircuitBreakerProvider {
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	interval := cfg.Interval
	if interval == 0 {
		interval = 60 * time.Second
	}

	settings := gobreaker.Settings{
		Name:        inner.Name(),
		MaxRequests: 1,
		Interval:    interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"provider", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}

	return &CircuitBreakerProvider{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker[*domain.ChatResponse](settings),
		logger:  logger,
	}
}

// Chat implements domain.LLMProvider.
func (p *CircuitBreakerProvider) Chat(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	resp, err := p.breaker.Execute(func() (*domain.ChatResponse, error) {
		return p.inner.Chat(ctx, req)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, fmt.Errorf("%w: circuit breaker open for %s", domain.ErrProviderError, p.inner.Name())
		}
		return nil, err
	}
	return resp, nil
}

// Name implements domain.LLMProvider.
func (p *CircuitBreakerProvider) Name() string { return p.inner.Name() }

// State reports the current breaker state for health reporting.
func (p *CircuitBreakerProvider) State() gobreaker.State { return p.breaker.State() }

// NewPooledTransport builds an HTTP transport with connection pooling tuned
// for talking to a single API host.
func NewPooledTransport(cfg config.PoolConfig) *http.Transport {
	maxIdle := cfg.MaxIdleConns
	if maxIdle == 0 {
		maxIdle = 20
	}
	maxIdlePerHost := cfg.MaxIdleConnsPerHost
	if maxIdlePerHost == 0 {
		maxIdlePerHost = 10
	}
	maxConns := cfg.MaxConnsPerHost
	if maxConns == 0 {
		maxConns = 20
	}
	idleTimeout := cfg.IdleConnTimeout
	if idleTimeout == 0 {
		idleTimeout = 120 * time.Second
	}

	return &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          maxIdle,
		MaxIdleConnsPerHost:   maxIdlePerHost,
		MaxConnsPerHost:       maxConns,
		IdleConnTimeout:       idleTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}
}

// NewHTTPClient builds a pooled client whose total timeout covers both
// connection setup and response generation.
func NewHTTPClient(cfg config.ProviderConfig) *http.Client {
	connTimeout := cfg.ConnTimeout
	if connTimeout == 0 {
		connTimeout = 10 * time.Second
	}
	respTimeout := cfg.RespTimeout
	if respTimeout == 0 {
		respTimeout = 120 * time.Second
	}

	return &http.Client{
		Transport: NewPooledTransport(cfg.Pool),
		Timeout:   connTimeout + respTimeout,
	}
}
