package admin

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/emperorhan/chainaudit/internal/domain/apperr"
	"github.com/emperorhan/chainaudit/internal/domain/model"
	"github.com/emperorhan/chainaudit/internal/pipeline"
	"github.com/emperorhan/chainaudit/internal/registry"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const maxRequestBodyBytes = 1 << 20 // 1 MB

// ActorHeader carries the caller identity. The fronting gateway is trusted to
// authenticate the caller and set it.
const ActorHeader = "X-Actor-Address"

// Auditor runs the full audit pipeline for one token.
type Auditor interface {
	RunAudit(ctx context.Context, addr model.Address) (*model.AuditResult, error)
}

// Registry is the audit registry surface exposed over HTTP.
type Registry interface {
	Administrator() model.Address
	GetAuditRecord(ctx context.Context, token model.Address) (model.AuditRecord, error)
	GetTokenMetrics(ctx context.Context, token model.Address) (model.TokenMetrics, error)
	GetAuditorStats(ctx context.Context, auditor model.Address) (model.AuditorStats, error)
	SubmitAuditResult(ctx context.Context, caller model.Address, req registry.SubmitRequest) (model.AuditRecord, error)
	UpdateTokenMetrics(ctx context.Context, caller, token model.Address, upd registry.MetricsUpdate) (model.TokenMetrics, error)
	GrantAuditor(ctx context.Context, caller, auditor model.Address) error
	RevokeAuditor(ctx context.Context, caller, auditor model.Address) error
}

// Metadata is the token metadata store surface.
type Metadata interface {
	Token(ctx context.Context, addr model.Address) (model.TokenRecord, error)
	SecurityFlags(ctx context.Context, addr model.Address) (model.SecurityFlags, error)
	SetSecurityFlags(ctx context.Context, caller, addr model.Address, flags model.SecurityFlags) (model.SecurityFlags, error)
	BatchAnalyze(ctx context.Context, addrs []model.Address) ([]model.TokenRecord, error)
}

// Heuristics is the scam heuristic engine surface.
type Heuristics interface {
	ScamFlags(ctx context.Context, addr model.Address) (model.ScamFlags, error)
	IsKnownScam(ctx context.Context, addr model.Address) (bool, error)
	IsTrusted(ctx context.Context, addr model.Address) (bool, error)
	AddKnownScam(ctx context.Context, caller, addr model.Address) error
	AddTrustedToken(ctx context.Context, caller, addr model.Address) error
	RemoveFromScamList(ctx context.Context, caller, addr model.Address) error
}

// LatestResults returns the most recent composed pipeline result.
type LatestResults interface {
	Latest(ctx context.Context, token model.Address) (*model.AuditResult, bool, error)
}

// HealthProvider reports pipeline health.
type HealthProvider interface {
	Snapshot() pipeline.HealthSnapshot
}

// Server exposes the query, audit and administration HTTP surface.
type Server struct {
	auditor    Auditor
	registry   Registry
	metadata   Metadata
	heuristics Heuristics
	latest     LatestResults
	health     HealthProvider
	logger     *slog.Logger
}

// ServerOption configures optional dependencies for the server.
type ServerOption func(*Server)

// WithLatestResults enables GET /v1/audits/{address}/latest.
func WithLatestResults(l LatestResults) ServerOption {
	return func(s *Server) { s.latest = l }
}

// WithHealthProvider enables a meaningful /healthz.
func WithHealthProvider(hp HealthProvider) ServerOption {
	return func(s *Server) { s.health = hp }
}

func NewServer(auditor Auditor, reg Registry, meta Metadata, heur Heuristics, logger *slog.Logger, opts ...ServerOption) *Server {
	s := &Server{
		auditor:    auditor,
		registry:   reg,
		metadata:   meta,
		heuristics: heur,
		logger:     logger.With("component", "admin"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PublicHandler serves audits, queries, health and Prometheus metrics.
func (s *Server) PublicHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/audits/{address}", s.handleRunAudit)
	mux.HandleFunc("GET /v1/audits/{address}/latest", s.handleLatestAudit)
	mux.HandleFunc("GET /v1/tokens/{address}", s.handleGetToken)
	mux.HandleFunc("GET /v1/tokens/{address}/security-flags", s.handleGetSecurityFlags)
	mux.HandleFunc("GET /v1/tokens/{address}/scam-flags", s.handleGetScamFlags)
	mux.HandleFunc("GET /v1/tokens/{address}/audit", s.handleGetAudit)
	mux.HandleFunc("GET /v1/tokens/{address}/metrics", s.handleGetTokenMetrics)
	mux.HandleFunc("GET /v1/auditors/{address}", s.handleGetAuditor)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

// AdminHandler serves the privileged mutation endpoints.
func (s *Server) AdminHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /admin/v1/auditors", s.handleGrantAuditor)
	mux.HandleFunc("DELETE /admin/v1/auditors", s.handleRevokeAuditor)
	mux.HandleFunc("POST /admin/v1/known-scams", s.handleAddKnownScam)
	mux.HandleFunc("POST /admin/v1/trusted-tokens", s.handleAddTrustedToken)
	mux.HandleFunc("DELETE /admin/v1/scam-list", s.handleRemoveFromScamList)
	mux.HandleFunc("POST /admin/v1/batch-analyze", s.handleBatchAnalyze)
	mux.HandleFunc("POST /admin/v1/audits", s.handleSubmitAudit)
	mux.HandleFunc("POST /admin/v1/metrics", s.handleUpdateMetrics)
	mux.HandleFunc("POST /admin/v1/security-flags", s.handleSetSecurityFlags)
	mux.HandleFunc("GET /admin/v1/health", s.handleHealth)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case apperr.IsValidation(err):
		return http.StatusBadRequest
	case apperr.IsAuthorization(err):
		return http.StatusForbidden
	case errors.Is(err, apperr.ErrReentrantCall):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrPipeline):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		msg = "internal server error"
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

// pathAddress parses the {address} path segment.
func (s *Server) pathAddress(w http.ResponseWriter, r *http.Request) (model.Address, bool) {
	addr, err := model.ParseAddress(r.PathValue("address"))
	if err != nil {
		s.writeError(w, r, err)
		return model.ZeroAddress, false
	}
	return addr, true
}

// queryAddress parses a required address query parameter.
func (s *Server) queryAddress(w http.ResponseWriter, r *http.Request, name string) (model.Address, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		s.writeError(w, r, apperr.Validation(name, "query parameter required"))
		return model.ZeroAddress, false
	}
	addr, err := model.ParseAddress(raw)
	if err != nil {
		s.writeError(w, r, err)
		return model.ZeroAddress, false
	}
	return addr, true
}

// actor returns the caller identity. A missing header yields the zero address,
// which no role accepts; a malformed one is a validation failure.
func (s *Server) actor(w http.ResponseWriter, r *http.Request) (model.Address, bool) {
	raw := r.Header.Get(ActorHeader)
	if raw == "" {
		return model.ZeroAddress, true
	}
	addr, err := model.ParseAddress(raw)
	if err != nil {
		s.writeError(w, r, apperr.Validation("actor", "malformed "+ActorHeader+" header"))
		return model.ZeroAddress, false
	}
	return addr, true
}

func (s *Server) decodeJSONBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeError(w, r, apperr.Validation("body", "invalid JSON body"))
		return false
	}
	return true
}
