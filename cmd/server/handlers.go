package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/liamcoop/cabinetquote/internal/logger"
	"github.com/liamcoop/cabinetquote/presets"
	"github.com/liamcoop/cabinetquote/quoting"
	"github.com/liamcoop/cabinetquote/rules"
)

// Health check handler
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:           "healthy",
		Storage:          "memory",
		RejectedRuleSets: logger.RejectedRuleSets.Load(),
		StoreFailures:    logger.StoreFailures.Load(),
	}

	if s.db != nil {
		resp.Storage = "postgres"
		if err := s.db.Ping(); err != nil {
			resp.Status = "unhealthy"
			resp.Error = err.Error()
			respondJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
	}

	ruleSet, err := s.engine.Rules()
	if err != nil {
		resp.Status = "unhealthy"
		resp.Error = err.Error()
		respondJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	resp.Rules = len(ruleSet)

	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListFactors(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, FactorsResponse{Factors: rules.FactorCatalog()})
}

// Single line item pricing
func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	var in rules.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	calc, err := s.engine.Calculate(in)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "price calculation failed", err)
		return
	}
	if problems := calc.NonFiniteResults(); len(problems) > 0 {
		logger.Warn("pricing rules produced non-finite values", "problems", problems)
		respondIssues(w, http.StatusUnprocessableEntity, "price calculation produced non-finite values", problems)
		return
	}

	respondJSON(w, http.StatusOK, calc)
}

func (s *Server) handlePriceQuote(w http.ResponseWriter, r *http.Request) {
	var req PriceQuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	var taxRate float64
	if req.TaxRate != nil {
		taxRate = *req.TaxRate
	} else {
		p, err := s.engine.Presets()
		if err != nil {
			respondError(w, http.StatusInternalServerError, "failed to load preset values", err)
			return
		}
		taxRate = p.TaxRate
	}

	priced, err := quoting.PriceSpaces(r.Context(), s.engine, req.Spaces, s.priceWorkers)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "quote pricing failed", err)
		return
	}

	respondJSON(w, http.StatusOK, PriceQuoteResponse{
		Spaces: priced,
		Totals: quoting.QuoteTotals(priced, taxRate),
	})
}

func (s *Server) handleAdjustOrder(w http.ResponseWriter, r *http.Request) {
	var req AdjustOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	adj, err := quoting.ApplyAdjustment(req.Total, req.Type, req.Percentage)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid adjustment", err)
		return
	}

	respondJSON(w, http.StatusOK, adj)
}

func (s *Server) handleCreateReceipt(w http.ResponseWriter, r *http.Request) {
	var req CreateReceiptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if req.OrderID == "" {
		respondError(w, http.StatusBadRequest, "orderId is required", nil)
		return
	}

	receipt, err := quoting.NewReceipt(req.OrderID, req.Total, req.AdjustedTotal, req.PaymentPercentage)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid receipt", err)
		return
	}

	respondJSON(w, http.StatusCreated, receipt)
}

// List rules handler
func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	ruleSet, err := s.engine.Rules()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list rules", err)
		return
	}

	respondJSON(w, http.StatusOK, RulesListResponse{Rules: ruleSet})
}

// Replace the whole rule set, e.g. after reordering in the editor
func (s *Server) handleReplaceRules(w http.ResponseWriter, r *http.Request) {
	var req ReplaceRulesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	saved, err := s.engine.SaveRules(req.Rules)
	if err != nil {
		respondEngineError(w, "failed to save rules", err)
		return
	}

	respondJSON(w, http.StatusOK, RulesListResponse{Rules: saved})
}

// Create rule handler
func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	var req RuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	rule, err := s.engine.AddRule(req.toRule())
	if err != nil {
		respondEngineError(w, "failed to add rule", err)
		return
	}

	respondJSON(w, http.StatusCreated, rule)
}

// Update rule handler
func (s *Server) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	var req RuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	rule := req.toRule()
	rule.ID = chi.URLParam(r, "ruleId")

	updated, err := s.engine.UpdateRule(rule)
	if err != nil {
		respondEngineError(w, "failed to update rule", err)
		return
	}

	respondJSON(w, http.StatusOK, updated)
}

// Delete rule handler
func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.DeleteRule(chi.URLParam(r, "ruleId")); err != nil {
		respondEngineError(w, "failed to delete rule", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMoveRule(w http.ResponseWriter, r *http.Request) {
	var req MoveRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	reordered, err := s.engine.MoveRule(chi.URLParam(r, "ruleId"), req.Position)
	if err != nil {
		respondEngineError(w, "failed to move rule", err)
		return
	}

	respondJSON(w, http.StatusOK, RulesListResponse{Rules: reordered})
}

// Render a rule as CEL, without saving it
func (s *Server) handlePreviewRule(w http.ResponseWriter, r *http.Request) {
	var req PreviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	rule := req.Rule.toRule()
	if err := rules.ValidateRule(rule); err != nil {
		respondEngineError(w, "invalid rule", err)
		return
	}

	preview, err := rules.CompileCEL(rule)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to compile rule", err)
		return
	}

	resp := PreviewResponse{Expression: preview.Expression}
	if req.Input != nil {
		p, err := s.engine.Presets()
		if err != nil {
			respondError(w, http.StatusInternalServerError, "failed to load preset values", err)
			return
		}
		v, err := preview.Evaluate(rules.BuildNamespaceWithPresets(*req.Input, p))
		if err != nil {
			respondError(w, http.StatusBadRequest, "failed to evaluate rule", err)
			return
		}
		resp.Value = &v
	}

	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetPresets(w http.ResponseWriter, r *http.Request) {
	p, err := s.engine.Presets()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load preset values", err)
		return
	}

	respondJSON(w, http.StatusOK, p)
}

func (s *Server) handleUpdatePresets(w http.ResponseWriter, r *http.Request) {
	var p presets.Values
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if err := s.engine.SavePresets(p); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to save preset values", err)
		return
	}

	respondJSON(w, http.StatusOK, p)
}

// Helper functions
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	switch {
	case status >= 500:
		logger.ErrorHttp5xx()
		logger.Error(message, "error", err)
	case status >= 400:
		logger.WarnHttp4xx()
	}

	response := ErrorResponse{Error: message}
	if err != nil {
		response.Details = err.Error()
	}
	var verr *rules.ValidationError
	if errors.As(err, &verr) {
		response.Issues = verr.Problems
	}
	respondJSON(w, status, response)
}

// respondIssues reports problems that aren't backed by an error value
func respondIssues(w http.ResponseWriter, status int, message string, issues []string) {
	logger.WarnHttp4xx()
	respondJSON(w, status, ErrorResponse{Error: message, Issues: issues})
}

// respondEngineError maps engine admin errors to a status code
func respondEngineError(w http.ResponseWriter, message string, err error) {
	var verr *rules.ValidationError
	switch {
	case errors.Is(err, rules.ErrRuleNotFound):
		respondError(w, http.StatusNotFound, message, err)
	case errors.Is(err, rules.ErrRuleExists):
		respondError(w, http.StatusConflict, message, err)
	case errors.As(err, &verr):
		respondError(w, http.StatusBadRequest, message, err)
	default:
		respondError(w, http.StatusInternalServerError, message, err)
	}
}
