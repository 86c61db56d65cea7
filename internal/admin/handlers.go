package admin

import (
	"net/http"

	"github.com/emperorhan/chainaudit/internal/domain/model"
	"github.com/emperorhan/chainaudit/internal/pipeline"
	"github.com/emperorhan/chainaudit/internal/registry"
	"github.com/shopspring/decimal"
)

func (s *Server) handleRunAudit(w http.ResponseWriter, r *http.Request) {
	addr, ok := s.pathAddress(w, r)
	if !ok {
		return
	}
	res, err := s.auditor.RunAudit(r.Context(), addr)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleLatestAudit(w http.ResponseWriter, r *http.Request) {
	addr, ok := s.pathAddress(w, r)
	if !ok {
		return
	}
	if s.latest == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "result cache not configured"})
		return
	}
	res, found, err := s.latest.Latest(r.Context(), addr)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !found {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no cached audit result"})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleGetToken(w http.ResponseWriter, r *http.Request) {
	addr, ok := s.pathAddress(w, r)
	if !ok {
		return
	}
	rec, err := s.metadata.Token(r.Context(), addr)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleGetSecurityFlags(w http.ResponseWriter, r *http.Request) {
	addr, ok := s.pathAddress(w, r)
	if !ok {
		return
	}
	flags, err := s.metadata.SecurityFlags(r.Context(), addr)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, flags)
}

type scamFlagsResponse struct {
	model.ScamFlags
	KnownScam bool `json:"known_scam"`
	Trusted   bool `json:"trusted"`
}

func (s *Server) handleGetScamFlags(w http.ResponseWriter, r *http.Request) {
	addr, ok := s.pathAddress(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	flags, err := s.heuristics.ScamFlags(ctx, addr)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	known, err := s.heuristics.IsKnownScam(ctx, addr)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	trusted, err := s.heuristics.IsTrusted(ctx, addr)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, scamFlagsResponse{ScamFlags: flags, KnownScam: known, Trusted: trusted})
}

type auditResponse struct {
	Audited bool              `json:"audited"`
	Record  model.AuditRecord `json:"record"`
}

func (s *Server) handleGetAudit(w http.ResponseWriter, r *http.Request) {
	addr, ok := s.pathAddress(w, r)
	if !ok {
		return
	}
	rec, err := s.registry.GetAuditRecord(r.Context(), addr)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, auditResponse{Audited: rec.Audited(), Record: rec})
}

func (s *Server) handleGetTokenMetrics(w http.ResponseWriter, r *http.Request) {
	addr, ok := s.pathAddress(w, r)
	if !ok {
		return
	}
	m, err := s.registry.GetTokenMetrics(r.Context(), addr)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleGetAuditor(w http.ResponseWriter, r *http.Request) {
	addr, ok := s.pathAddress(w, r)
	if !ok {
		return
	}
	stats, err := s.registry.GetAuditorStats(r.Context(), addr)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": string(pipeline.HealthStatusUnknown)})
		return
	}
	snap := s.health.Snapshot()
	status := http.StatusOK
	if snap.Status == string(pipeline.HealthStatusUnhealthy) {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, snap)
}

// --- administration ---

type auditorRequest struct {
	Auditor string `json:"auditor"`
}

func (s *Server) handleGrantAuditor(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.actor(w, r)
	if !ok {
		return
	}
	var req auditorRequest
	if !s.decodeJSONBody(w, r, &req) {
		return
	}
	auditor, err := model.ParseAddress(req.Auditor)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.registry.GrantAuditor(r.Context(), caller, auditor); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]bool{"success": true})
}

func (s *Server) handleRevokeAuditor(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.actor(w, r)
	if !ok {
		return
	}
	auditor, ok := s.queryAddress(w, r, "auditor")
	if !ok {
		return
	}
	if err := s.registry.RevokeAuditor(r.Context(), caller, auditor); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type tokenRequest struct {
	Token string `json:"token"`
}

// listMutation handles the three override list endpoints, which share a shape.
func (s *Server) listMutation(w http.ResponseWriter, r *http.Request, status int, apply func(caller, token model.Address) error) {
	caller, ok := s.actor(w, r)
	if !ok {
		return
	}
	var token model.Address
	if r.Method == http.MethodDelete {
		if token, ok = s.queryAddress(w, r, "token"); !ok {
			return
		}
	} else {
		var req tokenRequest
		if !s.decodeJSONBody(w, r, &req) {
			return
		}
		var err error
		if token, err = model.ParseAddress(req.Token); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	if err := apply(caller, token); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, status, map[string]bool{"success": true})
}

func (s *Server) handleAddKnownScam(w http.ResponseWriter, r *http.Request) {
	s.listMutation(w, r, http.StatusCreated, func(caller, token model.Address) error {
		return s.heuristics.AddKnownScam(r.Context(), caller, token)
	})
}

func (s *Server) handleAddTrustedToken(w http.ResponseWriter, r *http.Request) {
	s.listMutation(w, r, http.StatusCreated, func(caller, token model.Address) error {
		return s.heuristics.AddTrustedToken(r.Context(), caller, token)
	})
}

func (s *Server) handleRemoveFromScamList(w http.ResponseWriter, r *http.Request) {
	s.listMutation(w, r, http.StatusOK, func(caller, token model.Address) error {
		return s.heuristics.RemoveFromScamList(r.Context(), caller, token)
	})
}

type batchAnalyzeRequest struct {
	Tokens []string `json:"tokens"`
}

func (s *Server) handleBatchAnalyze(w http.ResponseWriter, r *http.Request) {
	var req batchAnalyzeRequest
	if !s.decodeJSONBody(w, r, &req) {
		return
	}
	addrs, err := model.ParseAddresses(req.Tokens)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	records, err := s.metadata.BatchAnalyze(r.Context(), addrs)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

type submitAuditRequest struct {
	Token      string `json:"token"`
	RiskScore  int    `json:"risk_score"`
	IsScam     bool   `json:"is_scam"`
	IsHoneypot bool   `json:"is_honeypot"`
	ReportRef  string `json:"report_ref"`
}

func (s *Server) handleSubmitAudit(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.actor(w, r)
	if !ok {
		return
	}
	var req submitAuditRequest
	if !s.decodeJSONBody(w, r, &req) {
		return
	}
	token, err := model.ParseAddress(req.Token)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rec, err := s.registry.SubmitAuditResult(r.Context(), caller, registry.SubmitRequest{
		Token:      token,
		RiskScore:  req.RiskScore,
		IsScam:     req.IsScam,
		IsHoneypot: req.IsHoneypot,
		ReportRef:  req.ReportRef,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

type updateMetricsRequest struct {
	Token             string          `json:"token"`
	TotalTransactions uint64          `json:"total_transactions"`
	UniqueHolders     uint64          `json:"unique_holders"`
	LiquidityUSD      decimal.Decimal `json:"liquidity_usd"`
	LiquidityLocked   bool            `json:"liquidity_locked"`
}

func (s *Server) handleUpdateMetrics(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.actor(w, r)
	if !ok {
		return
	}
	var req updateMetricsRequest
	if !s.decodeJSONBody(w, r, &req) {
		return
	}
	token, err := model.ParseAddress(req.Token)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	m, err := s.registry.UpdateTokenMetrics(r.Context(), caller, token, registry.MetricsUpdate{
		TotalTransactions: req.TotalTransactions,
		UniqueHolders:     req.UniqueHolders,
		LiquidityUSD:      req.LiquidityUSD,
		LiquidityLocked:   req.LiquidityLocked,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

type securityFlagsRequest struct {
	Token                string `json:"token"`
	HasOwner             bool   `json:"has_owner"`
	HasMintFunction      bool   `json:"has_mint_function"`
	HasBurnFunction      bool   `json:"has_burn_function"`
	HasPauseFunction     bool   `json:"has_pause_function"`
	HasBlacklistFunction bool   `json:"has_blacklist_function"`
	OwnershipRenounced   bool   `json:"ownership_renounced"`
}

func (s *Server) handleSetSecurityFlags(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.actor(w, r)
	if !ok {
		return
	}
	var req securityFlagsRequest
	if !s.decodeJSONBody(w, r, &req) {
		return
	}
	token, err := model.ParseAddress(req.Token)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	flags, err := s.metadata.SetSecurityFlags(r.Context(), caller, token, model.SecurityFlags{
		HasOwner:             req.HasOwner,
		HasMintFunction:      req.HasMintFunction,
		HasBurnFunction:      req.HasBurnFunction,
		HasPauseFunction:     req.HasPauseFunction,
		HasBlacklistFunction: req.HasBlacklistFunction,
		OwnershipRenounced:   req.OwnershipRenounced,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, flags)
}
