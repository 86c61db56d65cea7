package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/emperorhan/chainaudit/internal/domain/apperr"
	"github.com/emperorhan/chainaudit/internal/domain/model"
	"github.com/emperorhan/chainaudit/internal/heuristic"
	"github.com/emperorhan/chainaudit/internal/metrics"
	"github.com/emperorhan/chainaudit/internal/registry"
	"github.com/emperorhan/chainaudit/internal/tracing"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultStageTimeout      = 10 * time.Second
	DefaultWriteBackTimeout  = 5 * time.Second
	DefaultEnrichmentTimeout = 5 * time.Second

	// unavailableScore is reported when no security signal could be computed.
	unavailableScore = 50

	SecuritySourceDefault    = "default"
	SecuritySourcePriorAudit = "prior_audit"
)

// Stage names used in logs, metrics and AuditResult.Degraded.
const (
	StageOnChainMetadata    = "on_chain_metadata"
	StageHeuristics         = "heuristics"
	StagePriorAudit         = "prior_audit"
	StageMetadataResolution = "metadata_resolution"
	StageSecurity           = "security"
	StageLiquidity          = "liquidity"
	StageOwnerReputation    = "owner_reputation"
	StageTransactionStats   = "transaction_stats"
	StageWriteBack          = "write_back"
)

// TokenAnalyzer produces the on-chain token record.
type TokenAnalyzer interface {
	Analyze(ctx context.Context, addr model.Address) (model.TokenRecord, error)
}

// ScamAnalyzer produces the heuristic verdict.
type ScamAnalyzer interface {
	Analyze(ctx context.Context, addr model.Address) (model.ScamFlags, error)
}

// SecurityFlagSource returns stored capability flags.
type SecurityFlagSource interface {
	SecurityFlags(ctx context.Context, addr model.Address) (model.SecurityFlags, error)
}

// AuditRegistry is the registry surface the pipeline reads and writes back to.
type AuditRegistry interface {
	RegistryMetrics
	GetAuditRecord(ctx context.Context, token model.Address) (model.AuditRecord, error)
	SubmitAuditResult(ctx context.Context, caller model.Address, req registry.SubmitRequest) (model.AuditRecord, error)
	UpdateTokenMetrics(ctx context.Context, caller, token model.Address, upd registry.MetricsUpdate) (model.TokenMetrics, error)
}

// ResultCache keeps the latest composed result per token.
type ResultCache interface {
	Put(ctx context.Context, res *model.AuditResult) error
}

type Config struct {
	// Auditor is the identity write-back submits as. The zero address disables write-back.
	Auditor           model.Address
	StageTimeout      time.Duration
	WriteBackTimeout  time.Duration
	EnrichmentTimeout time.Duration
}

// Components are the collaborators of a pipeline. Any may be nil; a nil
// collaborator yields its stage default without marking the run degraded.
type Components struct {
	Metadata      TokenAnalyzer
	Heuristics    ScamAnalyzer
	SecurityFlags SecurityFlagSource
	Registry      AuditRegistry
	// Providers defaults to DefaultProviders(nil).
	Providers []MetadataProvider
	Liquidity LiquiditySource
	Owner     OwnerSource
	TxStats   TxStatsSource
	Enrichers []Enricher
	Cache     ResultCache
	// OnUnhealthy is called once each time the pipeline turns unhealthy.
	OnUnhealthy func(HealthSnapshot)
}

// Pipeline composes audit results from independently failing sources.
type Pipeline struct {
	cfg    Config
	comp   Components
	health *Health
	tracer trace.Tracer
	nowFn  func() time.Time
	logger *slog.Logger
}

func New(cfg Config, comp Components, logger *slog.Logger) *Pipeline {
	if cfg.StageTimeout <= 0 {
		cfg.StageTimeout = DefaultStageTimeout
	}
	if cfg.WriteBackTimeout <= 0 {
		cfg.WriteBackTimeout = DefaultWriteBackTimeout
	}
	if cfg.EnrichmentTimeout <= 0 {
		cfg.EnrichmentTimeout = DefaultEnrichmentTimeout
	}
	if len(comp.Providers) == 0 {
		comp.Providers = DefaultProviders(nil)
	}
	return &Pipeline{
		cfg:    cfg,
		comp:   comp,
		health: NewHealth(),
		tracer: tracing.Tracer("chainaudit/pipeline"),
		nowFn:  time.Now,
		logger: logger.With("component", "pipeline"),
	}
}

// Health exposes the run health tracker.
func (p *Pipeline) Health() *Health { return p.health }

// onChain is the stage-one output; each field is nil when its read failed.
type onChain struct {
	token *model.TokenRecord
	scam  *model.ScamFlags
	prior *model.AuditRecord
}

// degradedSet collects stage names from concurrent stages.
type degradedSet struct {
	mu     sync.Mutex
	stages []string
}

func (d *degradedSet) add(stage string) {
	d.mu.Lock()
	d.stages = append(d.stages, stage)
	d.mu.Unlock()
}

func (d *degradedSet) sorted() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := slices.Clone(d.stages)
	slices.Sort(out)
	return out
}

// RunAudit composes a full audit for addr. It fails only when every metadata
// tier fails; every other stage falls back to its default. When ctx is done
// the stages fall back and write-back is skipped, but the degraded result is
// still returned.
func (p *Pipeline) RunAudit(ctx context.Context, addr model.Address) (*model.AuditResult, error) {
	if model.IsZero(addr) {
		return nil, apperr.Validation("token", "must not be the zero address")
	}
	start := p.nowFn()
	ctx, span := p.tracer.Start(ctx, "pipeline.RunAudit", trace.WithAttributes(attribute.String("token", addr.Hex())))
	defer span.End()

	degraded := &degradedSet{}
	oc := p.onChainAnalysis(ctx, addr, degraded)

	var (
		token      model.TokenRecord
		tier       model.MetadataTier
		metaErr    error
		security   model.SecurityAnalysis
		liquidity  = defaultLiquidity()
		ownerQuery = ownerQueryFor(addr, oc.token)
		owner      = defaultOwner(ownerQuery)
		txStats    = defaultTxStats()
	)

	var g errgroup.Group
	g.Go(func() error {
		metaErr = p.stage(ctx, StageMetadataResolution, addr, func(ctx context.Context) error {
			var err error
			token, tier, err = resolveMetadata(ctx, p.comp.Providers, addr, oc.token)
			return err
		})
		return nil
	})
	g.Go(func() error {
		security = p.securityAnalysis(ctx, addr, oc, degraded)
		return nil
	})
	if p.comp.Liquidity != nil {
		g.Go(func() error {
			p.optional(ctx, StageLiquidity, addr, degraded, func(ctx context.Context) error {
				l, err := p.comp.Liquidity.Liquidity(ctx, addr)
				if err == nil {
					liquidity = l
				}
				return err
			})
			return nil
		})
	}
	if p.comp.Owner != nil {
		g.Go(func() error {
			p.optional(ctx, StageOwnerReputation, addr, degraded, func(ctx context.Context) error {
				o, err := p.comp.Owner.Reputation(ctx, ownerQuery)
				if err == nil {
					owner = o
				}
				return err
			})
			return nil
		})
	}
	if p.comp.TxStats != nil {
		g.Go(func() error {
			p.optional(ctx, StageTransactionStats, addr, degraded, func(ctx context.Context) error {
				s, err := p.comp.TxStats.Stats(ctx, addr)
				if err == nil {
					txStats = s
				}
				return err
			})
			return nil
		})
	}
	_ = g.Wait()

	if metaErr != nil {
		p.finish(span, OutcomeFailed, start)
		return nil, apperr.Pipeline(addr, metaErr)
	}
	metrics.PipelineMetadataTier.WithLabelValues(string(tier)).Inc()

	res := &model.AuditResult{
		Token:        token,
		MetadataTier: tier,
		Security:     security,
		Liquidity:    liquidity,
		Owner:        owner,
		Transactions: txStats,
		PriorAudit:   oc.prior,
		AuditedAt:    p.nowFn().UTC(),
	}

	snapshot := *res
	var (
		writeBack   model.WriteBackStatus
		enrichments map[string]any
	)
	var post errgroup.Group
	post.Go(func() error {
		writeBack = p.writeBack(ctx, snapshot, degraded)
		return nil
	})
	post.Go(func() error {
		enrichments = p.enrich(ctx, snapshot)
		return nil
	})
	_ = post.Wait()

	res.WriteBack = writeBack
	res.Enrichments = enrichments
	res.Degraded = degraded.sorted()

	if p.comp.Cache != nil && ctx.Err() == nil {
		if err := p.comp.Cache.Put(ctx, res); err != nil {
			p.logger.Warn("audit result not cached", "token", addr.Hex(), "error", err)
		}
	}

	outcome := OutcomeOK
	if len(res.Degraded) > 0 {
		outcome = OutcomeDegraded
	}
	p.finish(span, outcome, start)
	p.logger.Info("audit composed",
		"token", addr.Hex(),
		"risk_score", res.Security.RiskScore,
		"risk_level", res.Security.RiskLevel,
		"metadata_tier", tier,
		"degraded", res.Degraded,
		"write_back", res.WriteBack.Succeeded,
	)
	return res, nil
}

func (p *Pipeline) finish(span trace.Span, outcome Outcome, start time.Time) {
	metrics.PipelineRunsTotal.WithLabelValues(string(outcome)).Inc()
	if p.health.Record(outcome, p.nowFn().Sub(start)) {
		snap := p.health.Snapshot()
		p.logger.Error("pipeline unhealthy", "consecutive_failures", snap.ConsecutiveFailures)
		if p.comp.OnUnhealthy != nil {
			p.comp.OnUnhealthy(snap)
		}
	}
	span.SetAttributes(attribute.String("outcome", string(outcome)))
	if outcome == OutcomeFailed {
		span.SetStatus(codes.Error, "metadata tiers exhausted")
	}
}

// stage runs fn under the stage timeout inside its own span.
func (p *Pipeline) stage(ctx context.Context, name string, addr model.Address, fn func(context.Context) error) error {
	ctx, span := p.tracer.Start(ctx, "stage."+name)
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, p.cfg.StageTimeout)
	defer cancel()

	start := time.Now()
	err := fn(ctx)
	metrics.PipelineStageDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.PipelineStageFailures.WithLabelValues(name).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.logger.Warn("stage fell back to default", "stage", name, "token", addr.Hex(), "error", err)
	}
	return err
}

// optional runs a stage whose failure is absorbed and recorded as degraded.
func (p *Pipeline) optional(ctx context.Context, name string, addr model.Address, degraded *degradedSet, fn func(context.Context) error) {
	if err := p.stage(ctx, name, addr, fn); err != nil {
		degraded.add(name)
	}
}

func (p *Pipeline) onChainAnalysis(ctx context.Context, addr model.Address, degraded *degradedSet) onChain {
	var (
		oc onChain
		g  errgroup.Group
	)
	if p.comp.Metadata != nil {
		g.Go(func() error {
			p.optional(ctx, StageOnChainMetadata, addr, degraded, func(ctx context.Context) error {
				rec, err := p.comp.Metadata.Analyze(ctx, addr)
				if err == nil {
					oc.token = &rec
				}
				return err
			})
			return nil
		})
	}
	if p.comp.Heuristics != nil {
		g.Go(func() error {
			p.optional(ctx, StageHeuristics, addr, degraded, func(ctx context.Context) error {
				flags, err := p.comp.Heuristics.Analyze(ctx, addr)
				if err == nil {
					oc.scam = &flags
				}
				return err
			})
			return nil
		})
	}
	if p.comp.Registry != nil {
		g.Go(func() error {
			p.optional(ctx, StagePriorAudit, addr, degraded, func(ctx context.Context) error {
				rec, err := p.comp.Registry.GetAuditRecord(ctx, addr)
				if err == nil && rec.Audited() {
					oc.prior = &rec
				}
				return err
			})
			return nil
		})
	}
	_ = g.Wait()
	return oc
}

func ownerQueryFor(addr model.Address, tok *model.TokenRecord) OwnerQuery {
	q := OwnerQuery{Token: addr}
	if tok != nil && tok.Owner != model.FallbackOwner {
		q.Owner = tok.Owner
		q.OwnerKnown = true
		q.TotalSupply = tok.TotalSupply
	}
	return q
}

// securityAnalysis prefers the heuristic verdict, then stored capability
// flags, then the prior registry record, then a neutral default. The run is
// degraded only when a configured source produced no signal.
func (p *Pipeline) securityAnalysis(ctx context.Context, addr model.Address, oc onChain, degraded *degradedSet) model.SecurityAnalysis {
	if oc.scam != nil {
		return fromScamFlags(*oc.scam)
	}
	if p.comp.SecurityFlags != nil {
		var flags model.SecurityFlags
		err := p.stage(ctx, StageSecurity, addr, func(ctx context.Context) error {
			var err error
			flags, err = p.comp.SecurityFlags.SecurityFlags(ctx, addr)
			if err == nil && flags.SetAt.IsZero() {
				err = errors.New("no security flags recorded")
			}
			return err
		})
		if err == nil {
			return fromSecurityFlags(flags)
		}
	}
	if p.comp.Heuristics != nil || p.comp.SecurityFlags != nil {
		degraded.add(StageSecurity)
	}
	if oc.prior != nil {
		return fromPriorAudit(*oc.prior)
	}
	return model.SecurityAnalysis{
		RiskScore: unavailableScore,
		RiskLevel: model.RiskLevelFor(unavailableScore),
		Issues:    []string{"analysis unavailable"},
		Source:    SecuritySourceDefault,
	}
}

func fromPriorAudit(rec model.AuditRecord) model.SecurityAnalysis {
	issues := []string{"live analysis unavailable, using prior audit"}
	if rec.IsScam {
		issues = append(issues, "previously audited as scam")
	}
	return model.SecurityAnalysis{
		RiskScore: rec.RiskScore,
		RiskLevel: model.RiskLevelFor(int(rec.RiskScore)),
		IsScam:    rec.IsScam,
		Honeypot:  rec.IsHoneypot,
		Issues:    issues,
		Source:    SecuritySourcePriorAudit,
	}
}

func fromScamFlags(f model.ScamFlags) model.SecurityAnalysis {
	issues := f.Issues()
	if issues == nil {
		issues = []string{}
	}
	return model.SecurityAnalysis{
		RiskScore: f.RiskScore,
		RiskLevel: model.RiskLevelFor(int(f.RiskScore)),
		IsScam:    f.IsHoneypot || f.Source == model.ScamSourceKnownScam,
		Honeypot:  f.IsHoneypot,
		Issues:    issues,
		Source:    "heuristic:" + string(f.Source),
	}
}

func fromSecurityFlags(f model.SecurityFlags) model.SecurityAnalysis {
	score := 0
	issues := []string{}
	if f.HasMintFunction {
		score += heuristic.WeightHiddenMint
		issues = append(issues, "mint function present")
	}
	if f.HasBlacklistFunction {
		score += heuristic.WeightBlacklist
		issues = append(issues, "holder blacklist function")
	}
	if f.HasPauseFunction {
		score += heuristic.WeightHighTax
		issues = append(issues, "transfers can be paused")
	}
	if f.HasOwner && !f.OwnershipRenounced {
		score += heuristic.WeightOwnershipIssues
		issues = append(issues, "ownership not renounced")
	}
	clamped := model.ClampScore(score)
	return model.SecurityAnalysis{
		RiskScore: clamped,
		RiskLevel: model.RiskLevelFor(int(clamped)),
		Honeypot:  int(clamped) >= heuristic.HoneypotThreshold,
		Issues:    issues,
		Source:    "security_flags",
	}
}

// writeBack submits the composed result as the pipeline auditor. Failures are
// logged and reported in the status, never returned. Results without a live
// security signal are never submitted.
func (p *Pipeline) writeBack(ctx context.Context, res model.AuditResult, degraded *degradedSet) model.WriteBackStatus {
	if p.comp.Registry == nil || model.IsZero(p.cfg.Auditor) {
		return model.WriteBackStatus{}
	}
	if err := ctx.Err(); err != nil {
		return model.WriteBackStatus{Error: "skipped: " + err.Error()}
	}
	// A placeholder or a replayed prior record is not a new audit decision.
	switch res.Security.Source {
	case SecuritySourceDefault, SecuritySourcePriorAudit:
		return model.WriteBackStatus{Error: "skipped: no security signal"}
	}

	err := p.stage(ctx, StageWriteBack, res.Token.Address, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, p.cfg.WriteBackTimeout)
		defer cancel()

		_, err := p.comp.Registry.SubmitAuditResult(ctx, p.cfg.Auditor, registry.SubmitRequest{
			Token:      res.Token.Address,
			RiskScore:  int(res.Security.RiskScore),
			IsScam:     res.Security.IsScam,
			IsHoneypot: res.Security.Honeypot,
			ReportRef:  "pipeline:" + uuid.NewString(),
		})
		if err != nil {
			return fmt.Errorf("submit audit: %w", err)
		}
		if res.Transactions.Source == "default" && res.Liquidity.Source == "default" {
			return nil
		}
		_, err = p.comp.Registry.UpdateTokenMetrics(ctx, p.cfg.Auditor, res.Token.Address, registry.MetricsUpdate{
			TotalTransactions: res.Transactions.TotalTransactions,
			UniqueHolders:     res.Transactions.UniqueHolders,
			LiquidityUSD:      res.Liquidity.LiquidityUSD,
			LiquidityLocked:   res.Liquidity.Locked,
		})
		if err != nil {
			return fmt.Errorf("update metrics: %w", err)
		}
		return nil
	})
	if err != nil {
		metrics.PipelineWriteBackFailures.Inc()
		degraded.add(StageWriteBack)
		return model.WriteBackStatus{Attempted: true, Error: err.Error()}
	}
	return model.WriteBackStatus{Attempted: true, Succeeded: true}
}

// enrich runs every enricher concurrently and keeps the ones that succeed.
func (p *Pipeline) enrich(ctx context.Context, res model.AuditResult) map[string]any {
	if len(p.comp.Enrichers) == 0 {
		return nil
	}
	var (
		mu  sync.Mutex
		out = make(map[string]any, len(p.comp.Enrichers))
		g   errgroup.Group
	)
	for _, e := range p.comp.Enrichers {
		g.Go(func() error {
			ctx, cancel := context.WithTimeout(ctx, p.cfg.EnrichmentTimeout)
			defer cancel()
			v, err := e.Enrich(ctx, res)
			if err != nil {
				metrics.PipelineEnrichmentFailures.WithLabelValues(e.Name()).Inc()
				p.logger.Debug("enrichment omitted", "enricher", e.Name(), "token", res.Token.Address.Hex(), "error", err)
				return nil
			}
			mu.Lock()
			out[e.Name()] = v
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	if len(out) == 0 {
		return nil
	}
	return out
}
