package metadata

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/emperorhan/chainaudit/internal/chain"
	"github.com/emperorhan/chainaudit/internal/chain/evm"
	"github.com/emperorhan/chainaudit/internal/domain/apperr"
	"github.com/emperorhan/chainaudit/internal/domain/event"
	"github.com/emperorhan/chainaudit/internal/domain/model"
	"github.com/emperorhan/chainaudit/internal/metrics"
	"github.com/emperorhan/chainaudit/internal/store"
	"golang.org/x/sync/errgroup"
)

const (
	// MaxBatchSize is the largest address list BatchAnalyze accepts.
	MaxBatchSize = 10

	DefaultFieldTimeout = 5 * time.Second
)

// Authorizer reports whether an address may write security flags.
type Authorizer interface {
	IsAuthorized(ctx context.Context, addr model.Address) (bool, error)
}

type Config struct {
	// FieldTimeout bounds each individual field read.
	FieldTimeout time.Duration
}

// Store records token identity snapshots and capability flags.
type Store struct {
	tokens store.TokenRepository
	reader chain.TokenReader
	code   chain.CodeReader
	auth   Authorizer
	events event.Sink
	cfg    Config
	nowFn  func() time.Time
	logger *slog.Logger
}

// NewStore builds a metadata store. code may be nil; capability flags are
// then derived from the owner read alone.
func NewStore(tokens store.TokenRepository, reader chain.TokenReader, code chain.CodeReader, auth Authorizer, events event.Sink, cfg Config, logger *slog.Logger) *Store {
	if events == nil {
		events = event.Discard{}
	}
	if cfg.FieldTimeout <= 0 {
		cfg.FieldTimeout = DefaultFieldTimeout
	}
	return &Store{
		tokens: tokens,
		reader: reader,
		code:   code,
		auth:   auth,
		events: events,
		cfg:    cfg,
		nowFn:  time.Now,
		logger: logger.With("component", "token_metadata"),
	}
}

// FallbackName is recorded when name() cannot be read.
func FallbackName(addr model.Address) string { return addr.Hex() }

// FallbackSymbol is recorded when symbol() cannot be read: the first three
// address bytes in lower-case hex.
func FallbackSymbol(addr model.Address) string { return hex.EncodeToString(addr[:3]) }

// Analyze reads every token field, substitutes defaults for the fields that
// fail, derives capability flags and persists both. The record is always
// marked as existing.
func (s *Store) Analyze(ctx context.Context, addr model.Address) (model.TokenRecord, error) {
	if model.IsZero(addr) {
		return model.TokenRecord{}, apperr.Validation("token", "must not be the zero address")
	}

	var (
		rec = model.TokenRecord{
			Address:     addr,
			Name:        FallbackName(addr),
			Symbol:      FallbackSymbol(addr),
			Decimals:    model.DefaultDecimals,
			TotalSupply: model.DefaultTotalSupply(),
			Owner:       model.FallbackOwner,
			Exists:      true,
		}
		ownerRead bool
		code      []byte
	)

	var g errgroup.Group
	if s.reader != nil {
		g.Go(func() error { readField(ctx, s, addr, "name", s.reader.Name, &rec.Name); return nil })
		g.Go(func() error { readField(ctx, s, addr, "symbol", s.reader.Symbol, &rec.Symbol); return nil })
		g.Go(func() error { readField(ctx, s, addr, "decimals", s.reader.Decimals, &rec.Decimals); return nil })
		g.Go(func() error {
			var supply *big.Int
			if readField(ctx, s, addr, "total_supply", s.reader.TotalSupply, &supply) && supply != nil {
				rec.TotalSupply = supply
			}
			return nil
		})
		g.Go(func() error {
			ownerRead = readField(ctx, s, addr, "owner", s.reader.Owner, &rec.Owner)
			return nil
		})
	}
	g.Go(func() error {
		code = s.readCode(ctx, addr)
		return nil
	})
	_ = g.Wait()

	now := s.nowFn().UTC()
	rec.AnalyzedAt = now
	flags := deriveFlags(evm.ScanBytecode(code), ownerRead, rec.Owner)
	flags.SetAt = now

	if err := s.tokens.SaveToken(ctx, rec); err != nil {
		return model.TokenRecord{}, fmt.Errorf("save token %s: %w", addr.Hex(), err)
	}
	if err := s.tokens.SaveSecurityFlags(ctx, addr, flags); err != nil {
		return model.TokenRecord{}, fmt.Errorf("save security flags %s: %w", addr.Hex(), err)
	}
	metrics.TokensAnalyzedTotal.Inc()

	s.logger.Info("token analyzed",
		"token", addr.Hex(),
		"symbol", rec.Symbol,
		"decimals", rec.Decimals,
		"has_owner", flags.HasOwner,
		"renounced", flags.OwnershipRenounced,
	)
	s.publish(ctx, event.New(event.TypeTokenAnalyzed, addr, model.ZeroAddress, now))
	return rec, nil
}

// readField runs one field read under its own timeout and stores the value in
// dst on success. A failed read is logged and counted; dst keeps its default.
func readField[T any](ctx context.Context, s *Store, addr model.Address, field string, fn func(context.Context, model.Address) (T, error), dst *T) bool {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.FieldTimeout)
	defer cancel()
	v, err := fn(ctx, addr)
	if err != nil {
		metrics.MetadataFieldFallbacksTotal.WithLabelValues(field).Inc()
		s.logger.Debug("field read failed, using default", "token", addr.Hex(), "field", field, "error", err)
		return false
	}
	*dst = v
	return true
}

func (s *Store) readCode(ctx context.Context, addr model.Address) []byte {
	if s.code == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.FieldTimeout)
	defer cancel()
	code, err := s.code.Code(ctx, addr)
	if err != nil {
		s.logger.Debug("bytecode read failed", "token", addr.Hex(), "error", err)
		return nil
	}
	return code
}

// BatchAnalyze analyzes up to MaxBatchSize addresses sequentially, in order.
// Every address is validated before the first read.
func (s *Store) BatchAnalyze(ctx context.Context, addrs []model.Address) ([]model.TokenRecord, error) {
	if len(addrs) > MaxBatchSize {
		return nil, apperr.Validation("addresses", fmt.Sprintf("batch of %d exceeds limit %d", len(addrs), MaxBatchSize))
	}
	for i, a := range addrs {
		if model.IsZero(a) {
			return nil, apperr.Validation(fmt.Sprintf("addresses[%d]", i), "must not be the zero address")
		}
	}
	out := make([]model.TokenRecord, 0, len(addrs))
	for i, a := range addrs {
		rec, err := s.Analyze(ctx, a)
		if err != nil {
			return nil, fmt.Errorf("analyze addresses[%d]: %w", i, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// SetSecurityFlags replaces the capability flags of addr. Only authorized
// auditors may write; the last write wins.
func (s *Store) SetSecurityFlags(ctx context.Context, caller, addr model.Address, flags model.SecurityFlags) (model.SecurityFlags, error) {
	if model.IsZero(addr) {
		return model.SecurityFlags{}, apperr.Validation("token", "must not be the zero address")
	}
	ok := false
	if s.auth != nil {
		var err error
		if ok, err = s.auth.IsAuthorized(ctx, caller); err != nil {
			return model.SecurityFlags{}, err
		}
	}
	if !ok {
		metrics.AuthorizationRejectionsTotal.WithLabelValues("set_security_flags").Inc()
		return model.SecurityFlags{}, apperr.Authorization(caller, "set_security_flags")
	}

	flags.SetBy = caller
	flags.SetAt = s.nowFn().UTC()
	if err := s.tokens.SaveSecurityFlags(ctx, addr, flags); err != nil {
		return model.SecurityFlags{}, fmt.Errorf("save security flags %s: %w", addr.Hex(), err)
	}
	s.logger.Info("security flags set", "token", addr.Hex(), "actor", caller.Hex())
	return flags, nil
}

// Token returns the stored snapshot, or the zero value when none exists.
func (s *Store) Token(ctx context.Context, addr model.Address) (model.TokenRecord, error) {
	rec, _, err := s.tokens.GetToken(ctx, addr)
	if err != nil {
		return model.TokenRecord{}, fmt.Errorf("get token %s: %w", addr.Hex(), err)
	}
	return rec, nil
}

func (s *Store) SecurityFlags(ctx context.Context, addr model.Address) (model.SecurityFlags, error) {
	flags, _, err := s.tokens.GetSecurityFlags(ctx, addr)
	if err != nil {
		return model.SecurityFlags{}, fmt.Errorf("get security flags %s: %w", addr.Hex(), err)
	}
	return flags, nil
}

func (s *Store) publish(ctx context.Context, ev event.RegistryEvent) {
	if err := s.events.Publish(ctx, ev); err != nil {
		s.logger.Warn("metadata event not delivered", "type", ev.Type, "token", ev.Token.Hex(), "error", err)
	}
}
