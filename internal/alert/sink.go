package alert

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/emperorhan/chainaudit/internal/domain/event"
)

// ScamAlertSink turns registry list events into operator alerts. It is meant
// to sit behind an event.FanOut, so Publish errors are logged there.
type ScamAlertSink struct {
	alerter Alerter
	chain   string
	logger  *slog.Logger
}

func NewScamAlertSink(alerter Alerter, chain string, logger *slog.Logger) *ScamAlertSink {
	return &ScamAlertSink{
		alerter: alerter,
		chain:   chain,
		logger:  logger.With("component", "scam_alerts"),
	}
}

func (s *ScamAlertSink) Publish(ctx context.Context, ev event.RegistryEvent) error {
	a, ok := s.alertFor(ev)
	if !ok {
		return nil
	}
	s.logger.Debug("forwarding alert", "type", a.Type, "token", a.Token, "action", ev.Action)
	return s.alerter.Send(ctx, a)
}

func (s *ScamAlertSink) alertFor(ev event.RegistryEvent) (Alert, bool) {
	fields := map[string]string{
		"event_id": ev.ID,
		"actor":    ev.Actor.Hex(),
		"at":       ev.Timestamp.UTC().Format(time.RFC3339),
	}
	if ev.Action != "" {
		fields["action"] = ev.Action
	}

	switch ev.Type {
	case event.TypeScamDetected:
		fields["risk_score"] = strconv.Itoa(int(ev.RiskScore))
		title := "Scam token detected"
		msg := "Heuristic verdict crossed the honeypot threshold"
		if ev.Action == event.ActionAdded {
			title = "Token added to known-scam list"
			msg = "An administrator flagged this token as a known scam"
		}
		return Alert{
			Type:    AlertTypeScamToken,
			Chain:   s.chain,
			Token:   ev.Token.Hex(),
			Title:   title,
			Message: msg,
			Fields:  fields,
		}, true
	case event.TypeTokenVerified:
		msg := "An administrator added this token to the trusted list"
		if ev.Action == event.ActionRemoved {
			msg = "An administrator removed this token from the override lists"
		}
		return Alert{
			Type:    AlertTypeTokenVerified,
			Chain:   s.chain,
			Token:   ev.Token.Hex(),
			Title:   "Token list membership changed",
			Message: msg,
			Fields:  fields,
		}, true
	default:
		return Alert{}, false
	}
}
