package client

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"

	"github.com/wildmind/studio-api/internal/config"
	"github.com/wildmind/studio-api/internal/metrics"
)

// Breakers keeps one circuit breaker per upstream provider. A nil *Breakers
// runs calls unprotected.
type Breakers struct {
	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[any]
	cfg      config.BreakerConfig
	metrics  *metrics.Metrics
}

func NewBreakers(cfg config.BreakerConfig, m *metrics.Metrics) *Breakers {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.Interval == 0 {
		cfg.Interval = 60 * time.Second
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Breakers{
		breakers: make(map[string]*gobreaker.CircuitBreaker[any]),
		cfg:      cfg,
		metrics:  m,
	}
}

// Execute runs fn through the provider's breaker.
func (b *Breakers) Execute(provider string, fn func() error) error {
	if b == nil {
		return fn()
	}
	_, err := b.get(provider).Execute(func() (any, error) {
		return nil, fn()
	})
	return err
}

// State returns the breaker state for provider.
func (b *Breakers) State(provider string) gobreaker.State {
	if b == nil {
		return gobreaker.StateClosed
	}
	return b.get(provider).State()
}

func (b *Breakers) get(provider string) *gobreaker.CircuitBreaker[any] {
	b.mu.Lock()
	defer b.mu.Unlock()

	if cb, ok := b.breakers[provider]; ok {
		return cb
	}

	threshold := b.cfg.FailureThreshold
	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        provider,
		MaxRequests: 1,
		Interval:    b.cfg.Interval,
		Timeout:     b.cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(log.Fields{
				"component": "Breaker",
				"provider":  name,
				"from":      from.String(),
				"to":        to.String(),
			}).Warn("circuit breaker state changed")
			if b.metrics != nil {
				b.metrics.BreakerState.WithLabelValues(name).Set(float64(to))
			}
		},
	})
	b.breakers[provider] = cb
	return cb
}
