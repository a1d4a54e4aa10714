package alerts

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(url string) WebhookConfig {
	return WebhookConfig{
		URL:             url,
		Timeout:         time.Second,
		RatePerSecond:   1000,
		Burst:           10,
		BreakerFailures: 2,
		BreakerOpen:     time.Minute,
	}
}

func TestWebhookNotifierSend(t *testing.T) {
	var got Alert
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(testConfig(srv.URL))
	err := n.Send(context.Background(), Alert{RunID: "run-1", System: "OU TFTF", Team: "Boston", Losses: 7, Message: "msg"})
	require.NoError(t, err)

	assert.Equal(t, "Boston", got.Team)
	assert.Equal(t, 7, got.Losses)
	assert.Equal(t, "closed", n.State())
}

func TestWebhookNotifierBreakerOpens(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(testConfig(srv.URL))
	ctx := context.Background()

	err := n.Send(ctx, Alert{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
	require.Error(t, n.Send(ctx, Alert{}))

	err = n.Send(ctx, Alert{})
	assert.ErrorIs(t, err, ErrBreakerOpen)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
	assert.Equal(t, "open", n.State())
}

func TestWebhookNotifierCancelled(t *testing.T) {
	n := NewWebhookNotifier(WebhookConfig{URL: "http://127.0.0.1:1", RatePerSecond: 0.001, Burst: 1})
	ctx, cancel := context.WithCancel(context.Background())
	// drain the single token, then the next wait must observe cancellation
	require.True(t, n.limiter.Allow())
	cancel()

	err := n.Send(ctx, Alert{})
	assert.ErrorIs(t, err, context.Canceled)
}
