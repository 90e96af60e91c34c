// Package natsbridge relays realtime changes between server instances over
// NATS subjects of the form baranex.changes.<table>.
package natsbridge

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/louisbranch/baranex/internal/services/realtime"
)

// SubjectPrefix prefixes every change subject.
const SubjectPrefix = "baranex.changes."

// Conn is the subset of *nats.Conn the bridge uses.
type Conn interface {
	Publish(subject string, data []byte) error
	Subscribe(subject string, cb nats.MsgHandler) (*nats.Subscription, error)
}

type envelope struct {
	Origin string          `json:"origin"`
	Change realtime.Change `json:"change"`
}

// Bridge exports local hub changes and injects remote ones.
type Bridge struct {
	conn   Conn
	hub    *realtime.Hub
	origin string
	logger *zap.Logger
	sub    *nats.Subscription
}

// New builds a bridge identified by origin. Messages carrying the same origin
// are ignored on receipt.
func New(conn Conn, hub *realtime.Hub, origin string, logger *zap.Logger) (*Bridge, error) {
	if conn == nil || hub == nil {
		return nil, fmt.Errorf("nats connection and hub are required")
	}
	if strings.TrimSpace(origin) == "" {
		return nil, fmt.Errorf("origin is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bridge{conn: conn, hub: hub, origin: origin, logger: logger}, nil
}

// Subject returns the subject a table's changes are published on.
func Subject(table string) string {
	return SubjectPrefix + table
}

// Start subscribes to remote changes and registers the exporter on the hub.
func (b *Bridge) Start() error {
	sub, err := b.conn.Subscribe(SubjectPrefix+">", b.receive)
	if err != nil {
		return fmt.Errorf("subscribe changes: %w", err)
	}
	b.sub = sub
	b.hub.AddExporter(b.export)
	return nil
}

// Close stops receiving remote changes.
func (b *Bridge) Close() error {
	if b == nil || b.sub == nil {
		return nil
	}
	return b.sub.Unsubscribe()
}

func (b *Bridge) export(change realtime.Change) {
	data, err := json.Marshal(envelope{Origin: b.origin, Change: change})
	if err != nil {
		b.logger.Warn("encode change", zap.String("table", change.Table), zap.Error(err))
		return
	}
	if err := b.conn.Publish(Subject(change.Table), data); err != nil {
		b.logger.Warn("publish change", zap.String("table", change.Table), zap.Error(err))
	}
}

func (b *Bridge) receive(msg *nats.Msg) {
	b.handle(msg.Data)
}

func (b *Bridge) handle(data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		b.logger.Warn("decode change", zap.Error(err))
		return
	}
	if env.Origin == b.origin {
		return
	}
	b.hub.Inject(env.Change)
}
