package sms

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingGateway struct {
	mu       sync.Mutex
	sent     []string
	fail     map[string]bool
	inflight atomic.Int32
	peak     atomic.Int32
}

func (g *recordingGateway) Send(_ context.Context, number, _ string) error {
	n := g.inflight.Add(1)
	defer g.inflight.Add(-1)
	for {
		peak := g.peak.Load()
		if n <= peak || g.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fail[number] {
		return errors.New("gateway refused")
	}
	g.sent = append(g.sent, number)
	return nil
}

type countingObserver struct{ sent, failed int }

func (o *countingObserver) ObserveSMS(sent, failed int) {
	o.sent += sent
	o.failed += failed
}

func TestBroadcastDedupesAndReportsFailures(t *testing.T) {
	gw := &recordingGateway{fail: map[string]bool{"+639170000002": true}}
	obs := &countingObserver{}
	b := NewBroadcaster(gw, WithConcurrency(2), WithObserver(obs))

	result, err := b.Broadcast(context.Background(), []string{
		"09170000001",
		"+63 917 000 0001",
		"09170000002",
		"not-a-number",
		"not-a-number",
		"9170000003",
	}, "Flood warning: evacuate to the covered court.")
	require.NoError(t, err)

	assert.Equal(t, 2, result.Sent)
	assert.Equal(t, 2, result.Failed)
	require.Len(t, result.Deliveries, 4)
	assert.Equal(t, "+639170000001", result.Deliveries[0].Number)
	assert.True(t, result.Deliveries[0].OK)
	assert.Contains(t, result.Deliveries[1].Error, "gateway refused")
	assert.Equal(t, "not-a-number", result.Deliveries[2].Number)
	assert.NotEmpty(t, result.Deliveries[2].Error)
	assert.ElementsMatch(t, []string{"+639170000001", "+639170000003"}, gw.sent)
	assert.LessOrEqual(t, gw.peak.Load(), int32(2))
	assert.Equal(t, 2, obs.sent)
	assert.Equal(t, 2, obs.failed)
}

func TestBroadcastValidatesInput(t *testing.T) {
	b := NewBroadcaster(&recordingGateway{})
	ctx := context.Background()

	_, err := b.Broadcast(ctx, []string{"09170000001"}, "")
	require.ErrorIs(t, err, ErrEmptyMessage)

	_, err = b.Broadcast(ctx, []string{"09170000001"}, strings.Repeat("a", MaxMessageLength+1))
	require.ErrorIs(t, err, ErrMessageTooLong)

	_, err = b.Broadcast(ctx, nil, "hello")
	require.ErrorIs(t, err, ErrNoRecipients)

	_, err = NewBroadcaster(nil).Broadcast(ctx, []string{"09170000001"}, "hello")
	require.ErrorIs(t, err, ErrNotConfigured)

	require.NoError(t, ValidateMessage(strings.Repeat("ñ", MaxMessageLength)))
}

func TestHTTPGatewayPostsForm(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		got = map[string]string{
			"content_type": r.Header.Get("Content-Type"),
			"apikey":       r.PostForm.Get("apikey"),
			"number":       r.PostForm.Get("number"),
			"message":      r.PostForm.Get("message"),
			"sendername":   r.PostForm.Get("sendername"),
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	gw, err := NewHTTPGateway(HTTPGatewayConfig{URL: srv.URL, APIKey: "key-1", SenderName: "BARANEX"})
	require.NoError(t, err)
	require.NoError(t, gw.Send(context.Background(), "+639170000001", "hello"))

	assert.Equal(t, map[string]string{
		"content_type": "application/x-www-form-urlencoded",
		"apikey":       "key-1",
		"number":       "639170000001",
		"message":      "hello",
		"sendername":   "BARANEX",
	}, got)
}

func TestHTTPGatewayNon2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "quota exceeded", http.StatusPaymentRequired)
	}))
	defer srv.Close()

	gw, err := NewHTTPGateway(HTTPGatewayConfig{URL: srv.URL, APIKey: "key-1"})
	require.NoError(t, err)
	err = gw.Send(context.Background(), "+639170000001", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "402")
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestNewHTTPGatewayRequiresConfig(t *testing.T) {
	_, err := NewHTTPGateway(HTTPGatewayConfig{URL: "https://sms.example.com"})
	require.ErrorIs(t, err, ErrNotConfigured)
}
