package sms

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/louisbranch/baranex/internal/platform/timeouts"
)

// ErrNotConfigured is returned when no gateway URL or key is set.
var ErrNotConfigured = errors.New("sms gateway is not configured")

// Gateway delivers one message to one number.
type Gateway interface {
	Send(ctx context.Context, number, message string) error
}

// HTTPGatewayConfig configures an HTTPGateway.
type HTTPGatewayConfig struct {
	URL        string
	APIKey     string
	SenderName string
	Client     *http.Client
}

// HTTPGateway posts form-encoded messages to an SMS provider.
type HTTPGateway struct {
	url        string
	apiKey     string
	senderName string
	client     *http.Client
}

// NewHTTPGateway builds a gateway. URL and APIKey are required.
func NewHTTPGateway(cfg HTTPGatewayConfig) (*HTTPGateway, error) {
	if strings.TrimSpace(cfg.URL) == "" || strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrNotConfigured
	}
	if _, err := url.ParseRequestURI(cfg.URL); err != nil {
		return nil, fmt.Errorf("parse sms gateway url: %w", err)
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: timeouts.OutboundHTTP}
	}
	return &HTTPGateway{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		senderName: strings.TrimSpace(cfg.SenderName),
		client:     client,
	}, nil
}

// Send posts apikey, number, message and sendername. The number is sent as
// bare digits (63XXXXXXXXXX). Any non-2xx answer is an error.
func (g *HTTPGateway) Send(ctx context.Context, number, message string) error {
	form := url.Values{}
	form.Set("apikey", g.apiKey)
	form.Set("number", strings.TrimPrefix(number, "+"))
	form.Set("message", message)
	if g.senderName != "" {
		form.Set("sendername", g.senderName)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("send sms: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("sms gateway returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
