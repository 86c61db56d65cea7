package heuristic

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/emperorhan/chainaudit/internal/chain"
	"github.com/emperorhan/chainaudit/internal/chain/evm"
	"github.com/emperorhan/chainaudit/internal/domain/apperr"
	"github.com/emperorhan/chainaudit/internal/domain/event"
	"github.com/emperorhan/chainaudit/internal/domain/model"
	"github.com/emperorhan/chainaudit/internal/keymutex"
	"github.com/emperorhan/chainaudit/internal/metrics"
	"github.com/emperorhan/chainaudit/internal/store"
)

// DefaultCodeTimeout bounds a single bytecode read.
const DefaultCodeTimeout = 5 * time.Second

// Administrators reports whether an address may change the override lists.
type Administrators interface {
	IsAdministrator(addr model.Address) bool
}

type Config struct {
	// Seed feeds the placeholder used when no bytecode can be read.
	Seed        []byte
	CodeTimeout time.Duration
}

// Engine produces scam verdicts from override lists and contract bytecode.
type Engine struct {
	scams  store.ScamRepository
	code   chain.CodeReader
	admins Administrators
	events event.Sink
	cfg    Config
	locks  *keymutex.Map[model.Address]
	nowFn  func() time.Time
	logger *slog.Logger
}

// NewEngine builds an engine. code may be nil, in which case every token not
// on an override list gets the seeded placeholder verdict.
func NewEngine(scams store.ScamRepository, code chain.CodeReader, admins Administrators, events event.Sink, cfg Config, logger *slog.Logger) *Engine {
	if events == nil {
		events = event.Discard{}
	}
	if cfg.CodeTimeout <= 0 {
		cfg.CodeTimeout = DefaultCodeTimeout
	}
	return &Engine{
		scams:  scams,
		code:   code,
		admins: admins,
		events: events,
		cfg:    cfg,
		locks:  keymutex.New[model.Address](),
		nowFn:  time.Now,
		logger: logger.With("component", "scam_heuristics"),
	}
}

// Analyze produces and persists the verdict for addr. The known-scam list is
// consulted first, then the trusted list, then the bytecode checks.
func (e *Engine) Analyze(ctx context.Context, addr model.Address) (model.ScamFlags, error) {
	if model.IsZero(addr) {
		return model.ScamFlags{}, apperr.Validation("token", "must not be the zero address")
	}

	flags, transitioned, err := e.analyzeLocked(ctx, addr)
	if err != nil {
		return model.ScamFlags{}, err
	}

	metrics.HeuristicVerdictsTotal.WithLabelValues(string(flags.Source)).Inc()
	metrics.HeuristicRiskScore.Observe(float64(flags.RiskScore))
	e.logger.Debug("token scored",
		"token", addr.Hex(),
		"source", flags.Source,
		"risk_score", flags.RiskScore,
		"raw_score", flags.RawScore,
		"is_honeypot", flags.IsHoneypot,
	)

	if transitioned {
		ev := event.New(event.TypeScamDetected, addr, model.ZeroAddress, flags.AnalyzedAt)
		ev.RiskScore = flags.RiskScore
		ev.IsScam = true
		ev.Action = event.ActionFlagged
		e.publish(ctx, ev)
	}
	return flags, nil
}

// analyzeLocked scores and persists addr under its token lock. transitioned is
// true only for the call that moved the stored verdict into honeypot.
func (e *Engine) analyzeLocked(ctx context.Context, addr model.Address) (model.ScamFlags, bool, error) {
	unlock := e.locks.Lock(addr)
	defer unlock()

	flags, err := e.verdict(ctx, addr)
	if err != nil {
		return model.ScamFlags{}, false, err
	}
	flags.AnalyzedAt = e.nowFn().UTC()

	prev, _, err := e.scams.GetScamFlags(ctx, addr)
	if err != nil {
		return model.ScamFlags{}, false, fmt.Errorf("load scam flags %s: %w", addr.Hex(), err)
	}
	if err := e.scams.SaveScamFlags(ctx, addr, flags); err != nil {
		return model.ScamFlags{}, false, fmt.Errorf("save scam flags %s: %w", addr.Hex(), err)
	}
	return flags, flags.IsHoneypot && !prev.IsHoneypot, nil
}

func (e *Engine) verdict(ctx context.Context, addr model.Address) (model.ScamFlags, error) {
	known, err := e.scams.IsListed(ctx, store.ListKnownScams, addr)
	if err != nil {
		return model.ScamFlags{}, fmt.Errorf("check known scams %s: %w", addr.Hex(), err)
	}
	if known {
		return model.ScamFlags{
			RiskScore:  model.MaxRiskScore,
			RawScore:   model.MaxRiskScore,
			IsHoneypot: true,
			Source:     model.ScamSourceKnownScam,
		}, nil
	}

	trusted, err := e.scams.IsListed(ctx, store.ListTrustedTokens, addr)
	if err != nil {
		return model.ScamFlags{}, fmt.Errorf("check trusted tokens %s: %w", addr.Hex(), err)
	}
	if trusted {
		return model.ScamFlags{Source: model.ScamSourceTrusted}, nil
	}

	code := e.readCode(ctx, addr)
	if len(code) == 0 {
		return scored(checkSeeded(e.cfg.Seed, addr)), nil
	}
	return scored(checkBytecode(evm.ScanBytecode(code))), nil
}

func (e *Engine) readCode(ctx context.Context, addr model.Address) []byte {
	if e.code == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, e.cfg.CodeTimeout)
	defer cancel()
	code, err := e.code.Code(ctx, addr)
	if err != nil {
		e.logger.Warn("bytecode unavailable, using placeholder verdict", "token", addr.Hex(), "error", err)
		return nil
	}
	return code
}

// AddKnownScam puts addr on the known-scam list. Adding an address already
// listed is a no-op and emits nothing.
func (e *Engine) AddKnownScam(ctx context.Context, caller, addr model.Address) error {
	changed, err := e.setListed(ctx, caller, addr, store.ListKnownScams, true, "add_known_scam")
	if err != nil || !changed {
		return err
	}
	ev := event.New(event.TypeScamDetected, addr, caller, e.nowFn().UTC())
	ev.RiskScore = model.MaxRiskScore
	ev.IsScam = true
	ev.Action = event.ActionAdded
	e.publish(ctx, ev)
	return nil
}

// AddTrustedToken puts addr on the trusted list.
func (e *Engine) AddTrustedToken(ctx context.Context, caller, addr model.Address) error {
	changed, err := e.setListed(ctx, caller, addr, store.ListTrustedTokens, true, "add_trusted_token")
	if err != nil || !changed {
		return err
	}
	ev := event.New(event.TypeTokenVerified, addr, caller, e.nowFn().UTC())
	ev.Action = event.ActionAdded
	e.publish(ctx, ev)
	return nil
}

// RemoveFromScamList drops addr from both override lists.
func (e *Engine) RemoveFromScamList(ctx context.Context, caller, addr model.Address) error {
	changedScam, err := e.setListed(ctx, caller, addr, store.ListKnownScams, false, "remove_from_scam_list")
	if err != nil {
		return err
	}
	changedTrusted, err := e.setListed(ctx, caller, addr, store.ListTrustedTokens, false, "remove_from_scam_list")
	if err != nil {
		return err
	}
	if !changedScam && !changedTrusted {
		return nil
	}
	ev := event.New(event.TypeTokenVerified, addr, caller, e.nowFn().UTC())
	ev.Action = event.ActionRemoved
	e.publish(ctx, ev)
	return nil
}

func (e *Engine) setListed(ctx context.Context, caller, addr model.Address, list store.OverrideList, listed bool, action string) (bool, error) {
	if model.IsZero(addr) {
		return false, apperr.Validation("token", "must not be the zero address")
	}
	if e.admins == nil || !e.admins.IsAdministrator(caller) {
		metrics.AuthorizationRejectionsTotal.WithLabelValues(action).Inc()
		return false, apperr.Authorization(caller, action)
	}
	changed, err := e.scams.SetListed(ctx, list, addr, listed)
	if err != nil {
		return false, fmt.Errorf("update %s for %s: %w", list, addr.Hex(), err)
	}
	if changed {
		e.logger.Info("override list updated", "list", list, "token", addr.Hex(), "listed", listed, "actor", caller.Hex())
	}
	return changed, nil
}

// ScamFlags returns the last persisted verdict, or the zero value.
func (e *Engine) ScamFlags(ctx context.Context, addr model.Address) (model.ScamFlags, error) {
	flags, _, err := e.scams.GetScamFlags(ctx, addr)
	if err != nil {
		return model.ScamFlags{}, fmt.Errorf("get scam flags %s: %w", addr.Hex(), err)
	}
	return flags, nil
}

func (e *Engine) IsKnownScam(ctx context.Context, addr model.Address) (bool, error) {
	return e.scams.IsListed(ctx, store.ListKnownScams, addr)
}

func (e *Engine) IsTrusted(ctx context.Context, addr model.Address) (bool, error) {
	return e.scams.IsListed(ctx, store.ListTrustedTokens, addr)
}

func (e *Engine) publish(ctx context.Context, ev event.RegistryEvent) {
	if err := e.events.Publish(ctx, ev); err != nil {
		e.logger.Warn("heuristic event not delivered", "type", ev.Type, "token", ev.Token.Hex(), "error", err)
	}
}
