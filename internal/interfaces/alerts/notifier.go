// Package alerts pushes active loss streaks to a webhook.
package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/sawpanic/streakrun/internal/infrastructure/httpclient"
)

// Alert is the webhook payload.
type Alert struct {
	RunID    string    `json:"run_id"`
	System   string    `json:"system"`
	Team     string    `json:"team"`
	Losses   int       `json:"losses"`
	LastDate time.Time `json:"last_date"`
	Message  string    `json:"message"`
}

// Sender delivers one alert.
type Sender interface {
	Send(ctx context.Context, alert Alert) error
}

// WebhookConfig configures a WebhookNotifier.
type WebhookConfig struct {
	URL             string
	Timeout         time.Duration
	RatePerSecond   float64
	Burst           int
	BreakerFailures uint32
	BreakerOpen     time.Duration
	MaxRetries      int // retries of 429 and 5xx gateway errors
}

// WebhookNotifier POSTs alerts as JSON, rate limited and behind a circuit
// breaker.
type WebhookNotifier struct {
	url     string
	client  *httpclient.ClientPool
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

// NewWebhookNotifier creates a notifier for cfg.URL.
func NewWebhookNotifier(cfg WebhookConfig) *WebhookNotifier {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 1
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 3
	}

	failures := cfg.BreakerFailures
	settings := gobreaker.Settings{
		Name:        "webhook",
		MaxRequests: 1,
		Timeout:     cfg.BreakerOpen,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state changed")
		},
	}

	return &WebhookNotifier{
		url:     cfg.URL,
		client:  newClient(cfg),
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

func newClient(cfg WebhookConfig) *httpclient.ClientPool {
	cc := httpclient.DefaultClientConfig()
	cc.RequestTimeout = cfg.Timeout
	cc.MaxRetries = cfg.MaxRetries
	cc.MaxConcurrency = 1
	return httpclient.NewClientPool(cc)
}

// ErrBreakerOpen is returned while the webhook circuit is open.
var ErrBreakerOpen = errors.New("webhook circuit open")

func (n *WebhookNotifier) Send(ctx context.Context, alert Alert) error {
	if err := n.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	body, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}

	_, err = n.breaker.Execute(func() (interface{}, error) {
		resp, err := n.client.Post(ctx, n.url, "application/json", body)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			return nil, fmt.Errorf("webhook returned %s", resp.Status)
		}
		return nil, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrBreakerOpen
	}
	return err
}

// State reports the breaker state.
func (n *WebhookNotifier) State() string {
	return n.breaker.State().String()
}
