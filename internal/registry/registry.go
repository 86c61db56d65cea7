package registry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/emperorhan/chainaudit/internal/domain/apperr"
	"github.com/emperorhan/chainaudit/internal/domain/event"
	"github.com/emperorhan/chainaudit/internal/domain/model"
	"github.com/emperorhan/chainaudit/internal/keymutex"
	"github.com/emperorhan/chainaudit/internal/metrics"
	"github.com/emperorhan/chainaudit/internal/store"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Authorizer answers role questions for components that gate their own writes.
type Authorizer interface {
	IsAdministrator(addr model.Address) bool
	IsAuthorized(ctx context.Context, addr model.Address) (bool, error)
}

// SubmitRequest carries one audit decision. RiskScore is an int so that
// out-of-range input is rejected rather than truncated.
type SubmitRequest struct {
	Token      model.Address
	RiskScore  int
	IsScam     bool
	IsHoneypot bool
	ReportRef  string
}

// MetricsUpdate is a complete snapshot; it replaces the stored metrics.
type MetricsUpdate struct {
	TotalTransactions uint64
	UniqueHolders     uint64
	LiquidityUSD      decimal.Decimal
	LiquidityLocked   bool
}

// Registry gates and persists audit decisions.
type Registry struct {
	admin  model.Address
	audits store.AuditRepository
	auth   store.AuthorizationRepository
	events event.Sink
	locks  *keymutex.Map[model.Address]
	nowFn  func() time.Time
	logger *slog.Logger
}

var _ Authorizer = (*Registry)(nil)

func New(admin model.Address, audits store.AuditRepository, auth store.AuthorizationRepository, events event.Sink, logger *slog.Logger) (*Registry, error) {
	if model.IsZero(admin) {
		return nil, apperr.Validation("administrator", "must not be the zero address")
	}
	if events == nil {
		events = event.Discard{}
	}
	return &Registry{
		admin:  admin,
		audits: audits,
		auth:   auth,
		events: events,
		locks:  keymutex.New[model.Address](),
		nowFn:  time.Now,
		logger: logger.With("component", "audit_registry"),
	}, nil
}

func (r *Registry) Administrator() model.Address { return r.admin }

func (r *Registry) IsAdministrator(addr model.Address) bool {
	return addr == r.admin
}

// IsAuthorized is true for the administrator and every explicitly granted auditor.
func (r *Registry) IsAuthorized(ctx context.Context, addr model.Address) (bool, error) {
	if r.IsAdministrator(addr) {
		return true, nil
	}
	if model.IsZero(addr) {
		return false, nil
	}
	ok, err := r.auth.IsAuthorized(ctx, addr)
	if err != nil {
		return false, fmt.Errorf("check auditor %s: %w", addr.Hex(), err)
	}
	return ok, nil
}

func (r *Registry) requireAuditor(ctx context.Context, caller model.Address, action string) error {
	ok, err := r.IsAuthorized(ctx, caller)
	if err != nil {
		return err
	}
	if !ok {
		metrics.AuthorizationRejectionsTotal.WithLabelValues(action).Inc()
		return apperr.Authorization(caller, action)
	}
	return nil
}

func (r *Registry) requireAdministrator(caller model.Address, action string) error {
	if !r.IsAdministrator(caller) {
		metrics.AuthorizationRejectionsTotal.WithLabelValues(action).Inc()
		return apperr.Authorization(caller, action)
	}
	return nil
}

func validateSubmit(req SubmitRequest) error {
	if model.IsZero(req.Token) {
		return apperr.Validation("token", "must not be the zero address")
	}
	if req.RiskScore < 0 || req.RiskScore > model.MaxRiskScore {
		return apperr.Validation("risk_score", fmt.Sprintf("%d outside [0, %d]", req.RiskScore, model.MaxRiskScore))
	}
	return nil
}

// SubmitAuditResult replaces the token's audit record and counts the
// submission for caller. Input is validated before the caller is authorized,
// and both happen before any state change.
func (r *Registry) SubmitAuditResult(ctx context.Context, caller model.Address, req SubmitRequest) (model.AuditRecord, error) {
	if err := validateSubmit(req); err != nil {
		return model.AuditRecord{}, err
	}
	if err := r.requireAuditor(ctx, caller, "submit_audit_result"); err != nil {
		return model.AuditRecord{}, err
	}
	ctx, err := enter(ctx, "submit_audit_result")
	if err != nil {
		return model.AuditRecord{}, err
	}

	rec, count, err := r.replaceLocked(ctx, caller, req)
	if err != nil {
		return model.AuditRecord{}, err
	}
	metrics.AuditsSubmittedTotal.WithLabelValues(verdict(rec)).Inc()

	r.logger.Info("audit recorded",
		"token", rec.TokenAddress.Hex(),
		"auditor", caller.Hex(),
		"risk_score", rec.RiskScore,
		"is_scam", rec.IsScam,
		"audit_count", count,
	)

	// Published after the token lock is released.
	ev := event.New(event.TypeAuditCompleted, rec.TokenAddress, caller, rec.AuditTimestamp)
	ev.RiskScore = rec.RiskScore
	ev.IsScam = rec.IsScam
	r.publish(ctx, ev)
	return rec, nil
}

func (r *Registry) replaceLocked(ctx context.Context, caller model.Address, req SubmitRequest) (model.AuditRecord, uint64, error) {
	unlock := r.locks.Lock(req.Token)
	defer unlock()

	prev, _, err := r.audits.GetAuditRecord(ctx, req.Token)
	if err != nil {
		return model.AuditRecord{}, 0, fmt.Errorf("load audit record %s: %w", req.Token.Hex(), err)
	}

	rec := model.AuditRecord{
		ID:             uuid.New(),
		TokenAddress:   req.Token,
		RiskScore:      uint8(req.RiskScore),
		IsScam:         req.IsScam,
		IsHoneypot:     req.IsHoneypot,
		AuditTimestamp: r.nextTimestamp(prev.AuditTimestamp),
		Auditor:        caller,
		ReportRef:      req.ReportRef,
	}

	count, err := r.audits.ReplaceAuditRecord(ctx, rec)
	if err != nil {
		return model.AuditRecord{}, 0, fmt.Errorf("replace audit record %s: %w", req.Token.Hex(), err)
	}
	return rec, count, nil
}

// timestampResolution matches TIMESTAMPTZ so both backends store the same value.
const timestampResolution = time.Microsecond

// nextTimestamp keeps audit timestamps strictly increasing per token even when
// the wall clock stalls or steps backwards.
func (r *Registry) nextTimestamp(prev time.Time) time.Time {
	now := r.nowFn().UTC().Truncate(timestampResolution)
	if !prev.IsZero() && !now.After(prev) {
		return prev.Truncate(timestampResolution).Add(timestampResolution)
	}
	return now
}

func verdict(rec model.AuditRecord) string {
	switch {
	case rec.IsScam:
		return "scam"
	case rec.IsHoneypot:
		return "honeypot"
	default:
		return "clean"
	}
}

func (r *Registry) UpdateTokenMetrics(ctx context.Context, caller, token model.Address, upd MetricsUpdate) (model.TokenMetrics, error) {
	if model.IsZero(token) {
		return model.TokenMetrics{}, apperr.Validation("token", "must not be the zero address")
	}
	if upd.LiquidityUSD.IsNegative() {
		return model.TokenMetrics{}, apperr.Validation("liquidity_usd", "must not be negative")
	}
	if err := r.requireAuditor(ctx, caller, "update_token_metrics"); err != nil {
		return model.TokenMetrics{}, err
	}
	ctx, err := enter(ctx, "update_token_metrics")
	if err != nil {
		return model.TokenMetrics{}, err
	}

	m := model.TokenMetrics{
		TotalTransactions: upd.TotalTransactions,
		UniqueHolders:     upd.UniqueHolders,
		LiquidityUSD:      upd.LiquidityUSD,
		LiquidityLocked:   upd.LiquidityLocked,
		LastUpdated:       r.nowFn().UTC().Truncate(timestampResolution),
	}
	unlock := r.locks.Lock(token)
	err = r.audits.SaveTokenMetrics(ctx, token, m)
	unlock()
	if err != nil {
		return model.TokenMetrics{}, fmt.Errorf("save token metrics %s: %w", token.Hex(), err)
	}
	metrics.MetricsUpdatesTotal.Inc()

	r.publish(ctx, event.New(event.TypeMetricsUpdated, token, caller, m.LastUpdated))
	return m, nil
}

// GrantAuditor is administrator-only and idempotent.
func (r *Registry) GrantAuditor(ctx context.Context, caller, auditor model.Address) error {
	return r.setAuditor(ctx, caller, auditor, true)
}

// RevokeAuditor is administrator-only; revoking an identity that was never
// granted is a no-op. The administrator's implicit authorization cannot be revoked.
func (r *Registry) RevokeAuditor(ctx context.Context, caller, auditor model.Address) error {
	return r.setAuditor(ctx, caller, auditor, false)
}

func (r *Registry) setAuditor(ctx context.Context, caller, auditor model.Address, grant bool) error {
	action := "revoke_auditor"
	if grant {
		action = "grant_auditor"
	}
	if model.IsZero(auditor) {
		return apperr.Validation("auditor", "must not be the zero address")
	}
	if err := r.requireAdministrator(caller, action); err != nil {
		return err
	}
	ctx, err := enter(ctx, action)
	if err != nil {
		return err
	}

	changed, err := r.auth.SetAuthorized(ctx, auditor, grant)
	if err != nil {
		return fmt.Errorf("%s %s: %w", action, auditor.Hex(), err)
	}
	if changed {
		r.logger.Info("auditor authorization changed", "auditor", auditor.Hex(), "authorized", grant, "actor", caller.Hex())
	}
	return nil
}

func (r *Registry) IsAudited(ctx context.Context, token model.Address) (bool, error) {
	rec, err := r.GetAuditRecord(ctx, token)
	if err != nil {
		return false, err
	}
	return rec.Audited(), nil
}

// GetAuditRecord returns the zero record when the token was never audited.
func (r *Registry) GetAuditRecord(ctx context.Context, token model.Address) (model.AuditRecord, error) {
	rec, ok, err := r.audits.GetAuditRecord(ctx, token)
	if err != nil {
		return model.AuditRecord{}, fmt.Errorf("get audit record %s: %w", token.Hex(), err)
	}
	if !ok {
		return model.AuditRecord{}, nil
	}
	return rec, nil
}

func (r *Registry) GetTokenMetrics(ctx context.Context, token model.Address) (model.TokenMetrics, error) {
	m, ok, err := r.audits.GetTokenMetrics(ctx, token)
	if err != nil {
		return model.TokenMetrics{}, fmt.Errorf("get token metrics %s: %w", token.Hex(), err)
	}
	if !ok {
		return model.TokenMetrics{}, nil
	}
	return m, nil
}

func (r *Registry) GetAuditorStats(ctx context.Context, auditor model.Address) (model.AuditorStats, error) {
	authorized, err := r.IsAuthorized(ctx, auditor)
	if err != nil {
		return model.AuditorStats{}, err
	}
	count, err := r.audits.GetAuditCount(ctx, auditor)
	if err != nil {
		return model.AuditorStats{}, fmt.Errorf("get audit count %s: %w", auditor.Hex(), err)
	}
	return model.AuditorStats{Auditor: auditor, Authorized: authorized, AuditCount: count}, nil
}

func (r *Registry) publish(ctx context.Context, ev event.RegistryEvent) {
	if err := r.events.Publish(ctx, ev); err != nil {
		r.logger.Warn("registry event not delivered", "type", ev.Type, "token", ev.Token.Hex(), "error", err)
	}
}
