package sms

import (
	"context"
	"sync"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/louisbranch/baranex/internal/platform/errors"
	"github.com/louisbranch/baranex/internal/platform/phone"
)

// MaxMessageLength is six concatenated 153-character segments.
const MaxMessageLength = 918

// DefaultConcurrency bounds in-flight gateway calls.
const DefaultConcurrency = 8

var (
	// ErrEmptyMessage is returned for a blank message.
	ErrEmptyMessage = apperrors.InvalidArgument("message is required")
	// ErrMessageTooLong is returned above MaxMessageLength characters.
	ErrMessageTooLong = apperrors.InvalidArgument("message exceeds 918 characters")
	// ErrNoRecipients is returned when no number was supplied.
	ErrNoRecipients = apperrors.InvalidArgument("at least one recipient is required")
)

// Delivery is the outcome for one recipient.
type Delivery struct {
	Number string `json:"number"`
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
}

// Result summarizes a broadcast.
type Result struct {
	Sent       int        `json:"sent"`
	Failed     int        `json:"failed"`
	Deliveries []Delivery `json:"deliveries"`
}

// Observer receives broadcast totals.
type Observer interface {
	ObserveSMS(sent, failed int)
}

// Broadcaster fans a message out over a Gateway.
type Broadcaster struct {
	gateway     Gateway
	concurrency int
	observer    Observer
	logger      *zap.Logger
}

// BroadcasterOption configures a Broadcaster.
type BroadcasterOption func(*Broadcaster)

// WithConcurrency bounds parallel sends; values below one are ignored.
func WithConcurrency(n int) BroadcasterOption {
	return func(b *Broadcaster) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithObserver reports totals after each broadcast.
func WithObserver(o Observer) BroadcasterOption {
	return func(b *Broadcaster) { b.observer = o }
}

// WithLogger logs failed deliveries.
func WithLogger(logger *zap.Logger) BroadcasterOption {
	return func(b *Broadcaster) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBroadcaster builds a broadcaster over gateway.
func NewBroadcaster(gateway Gateway, opts ...BroadcasterOption) *Broadcaster {
	b := &Broadcaster{gateway: gateway, concurrency: DefaultConcurrency, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// ValidateMessage checks a message before any number is dialled.
func ValidateMessage(message string) error {
	switch n := utf8.RuneCountInString(message); {
	case n == 0:
		return ErrEmptyMessage
	case n > MaxMessageLength:
		return ErrMessageTooLong
	}
	return nil
}

// Broadcast sends message to every distinct valid number. Invalid numbers
// and gateway errors are reported per delivery; one failure never cancels
// the others. Deliveries keep the order of first appearance.
func (b *Broadcaster) Broadcast(ctx context.Context, numbers []string, message string) (Result, error) {
	if err := ValidateMessage(message); err != nil {
		return Result{}, err
	}
	if len(numbers) == 0 {
		return Result{}, ErrNoRecipients
	}
	if b == nil || b.gateway == nil {
		return Result{}, ErrNotConfigured
	}

	deliveries := make([]Delivery, 0, len(numbers))
	seen := make(map[string]bool, len(numbers))
	for _, raw := range numbers {
		number, err := phone.Normalize(raw)
		if err != nil {
			if seen["invalid:"+raw] {
				continue
			}
			seen["invalid:"+raw] = true
			deliveries = append(deliveries, Delivery{Number: raw, Error: err.Error()})
			continue
		}
		if seen[number] {
			continue
		}
		seen[number] = true
		deliveries = append(deliveries, Delivery{Number: number})
	}

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(b.concurrency)
	for i := range deliveries {
		if deliveries[i].Error != "" {
			continue
		}
		g.Go(func() error {
			err := b.gateway.Send(ctx, deliveries[i].Number, message)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				deliveries[i].Error = err.Error()
				b.logger.Warn("sms delivery failed", zap.String("number", deliveries[i].Number), zap.Error(err))
				return nil
			}
			deliveries[i].OK = true
			return nil
		})
	}
	_ = g.Wait()

	result := Result{Deliveries: deliveries}
	for _, d := range deliveries {
		if d.OK {
			result.Sent++
		} else {
			result.Failed++
		}
	}
	if b.observer != nil {
		b.observer.ObserveSMS(result.Sent, result.Failed)
	}
	return result, nil
}
