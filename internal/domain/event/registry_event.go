package event

import (
	"context"
	"log/slog"
	mathrand "math/rand"
	"sync"
	"time"

	"github.com/emperorhan/chainaudit/internal/domain/model"
	"github.com/oklog/ulid/v2"
)

// Type names a registry event for external subscribers and log shippers.
type Type string

const (
	TypeTokenAnalyzed  Type = "token_analyzed"
	TypeAuditCompleted Type = "audit_completed"
	TypeMetricsUpdated Type = "metrics_updated"
	TypeScamDetected   Type = "scam_detected"
	TypeTokenVerified  Type = "token_verified"
)

// Actions carried by list-membership events.
const (
	ActionAdded   = "added"
	ActionRemoved = "removed"
	ActionFlagged = "flagged"
)

// RegistryEvent is emitted after a registry state change has been committed.
type RegistryEvent struct {
	ID        string        `json:"id"`
	Type      Type          `json:"type"`
	Token     model.Address `json:"token"`
	Actor     model.Address `json:"actor"`
	Timestamp time.Time     `json:"timestamp"`
	RiskScore uint8         `json:"risk_score,omitempty"`
	IsScam    bool          `json:"is_scam,omitempty"`
	Action    string        `json:"action,omitempty"`
}

// New stamps an event with a sortable ID.
func New(typ Type, token, actor model.Address, ts time.Time) RegistryEvent {
	return RegistryEvent{
		ID:        newID(ts),
		Type:      typ,
		Token:     token,
		Actor:     actor,
		Timestamp: ts,
	}
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

func newID(ts time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(ts), entropy).String()
}

// Sink receives committed registry events.
type Sink interface {
	Publish(ctx context.Context, ev RegistryEvent) error
}

// FanOut delivers each event to every sink. Delivery failures are logged, never
// returned: state has already changed by the time an event is published.
type FanOut struct {
	sinks  []Sink
	logger *slog.Logger
}

func NewFanOut(logger *slog.Logger, sinks ...Sink) *FanOut {
	return &FanOut{sinks: sinks, logger: logger.With("component", "event_fanout")}
}

func (f *FanOut) Publish(ctx context.Context, ev RegistryEvent) error {
	for _, s := range f.sinks {
		if err := s.Publish(ctx, ev); err != nil {
			f.logger.Warn("event delivery failed",
				"type", ev.Type,
				"token", ev.Token.Hex(),
				"error", err,
			)
		}
	}
	return nil
}

// LogSink writes every event as a structured log line.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger.With("component", "registry_events")}
}

func (s *LogSink) Publish(_ context.Context, ev RegistryEvent) error {
	s.logger.Info("registry event",
		"event_id", ev.ID,
		"type", ev.Type,
		"token", ev.Token.Hex(),
		"actor", ev.Actor.Hex(),
		"risk_score", ev.RiskScore,
		"is_scam", ev.IsScam,
		"action", ev.Action,
		"timestamp", ev.Timestamp.UTC().Format(time.RFC3339Nano),
	)
	return nil
}

// Recorder keeps events in memory. Used by tests and the in-memory deployment.
type Recorder struct {
	mu     sync.Mutex
	events []RegistryEvent
}

func (r *Recorder) Publish(_ context.Context, ev RegistryEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []RegistryEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]RegistryEvent(nil), r.events...)
}

// OfType returns recorded events of the given type.
func (r *Recorder) OfType(typ Type) []RegistryEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []RegistryEvent
	for _, ev := range r.events {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(context.Context, RegistryEvent) error { return nil }
