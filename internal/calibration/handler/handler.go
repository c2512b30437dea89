// Package handler exposes contribution intake and calibration results.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"calibra/internal/calibration/models"
	"calibra/internal/platform/middleware"
	"calibra/internal/transport/http/shared"
	dErrors "calibra/pkg/domain-errors"
	id "calibra/pkg/domain"
)

// Service defines the calibration operations the handler needs.
type Service interface {
	SubmitContribution(ctx context.Context, c models.Contribution) error
	RunRound(ctx context.Context, ruleID id.RuleID) (*models.CalibrationResult, error)
	Latest(ctx context.Context, ruleID id.RuleID) (*models.CalibrationResult, error)
	History(ctx context.Context, ruleID id.RuleID, limit int) ([]models.CalibrationResult, error)
}

type Handler struct {
	calibration Service
	adminToken  string
	logger      *slog.Logger
}

func New(calibration Service, adminToken string, logger *slog.Logger) *Handler {
	return &Handler{calibration: calibration, adminToken: adminToken, logger: logger}
}

// Register mounts intake and result routes for members, and the manual
// round trigger for governance.
func (h *Handler) Register(r chi.Router, validator middleware.AttestationValidator) {
	r.Group(func(pr chi.Router) {
		pr.Use(middleware.RequireAttestation(validator, h.logger))
		pr.Post("/contributions", h.handleSubmit)
		pr.Get("/calibration/rules/{ruleID}/latest", h.handleLatest)
		pr.Get("/calibration/rules/{ruleID}/history", h.handleHistory)
	})
	r.Group(func(ar chi.Router) {
		ar.Use(middleware.RequireAdminToken(h.adminToken, h.logger))
		ar.Post("/admin/calibration/rules/{ruleID}/run", h.handleRun)
	})
}

type contributionRequest struct {
	RuleID         string  `json:"ruleId"`
	Nonce          string  `json:"nonce"`
	ReportedRate   float64 `json:"reportedRate"`
	EventsObserved int     `json:"eventsObserved"`
	EventsExpected int     `json:"eventsExpected"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req contributionRequest
	if err := shared.Decode(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	ruleID, err := id.ParseRuleID(req.RuleID)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid rule id"))
		return
	}
	nonce, err := id.ParseNonce(req.Nonce)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid nonce"))
		return
	}
	err = h.calibration.SubmitContribution(r.Context(), models.Contribution{
		OrgID:          middleware.GetOrgID(r.Context()),
		RuleID:         ruleID,
		Nonce:          nonce,
		ReportedRate:   req.ReportedRate,
		EventsObserved: req.EventsObserved,
		EventsExpected: req.EventsExpected,
	})
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	h.logger.InfoContext(r.Context(), "contribution accepted",
		"rule_id", ruleID.String(),
		"org_id", middleware.GetOrgID(r.Context()).String(),
		"verification_method", middleware.GetVerificationMethod(r.Context()),
	)
	shared.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (h *Handler) handleLatest(w http.ResponseWriter, r *http.Request) {
	ruleID, ok := h.ruleParam(w, r)
	if !ok {
		return
	}
	result, err := h.calibration.Latest(r.Context(), ruleID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	ruleID, ok := h.ruleParam(w, r)
	if !ok {
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 500 {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be in [1,500]"))
			return
		}
		limit = n
	}
	results, err := h.calibration.History(r.Context(), ruleID, limit)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, results)
}

func (h *Handler) handleRun(w http.ResponseWriter, r *http.Request) {
	ruleID, ok := h.ruleParam(w, r)
	if !ok {
		return
	}
	result, err := h.calibration.RunRound(r.Context(), ruleID)
	if err != nil {
		// An insufficient cohort still produced a recorded round; return
		// the result alongside the 422 so the caller sees what happened.
		if dErrors.Is(err, dErrors.CodeInsufficientCohort) && result != nil {
			shared.WriteJSON(w, http.StatusUnprocessableEntity, result)
			return
		}
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) ruleParam(w http.ResponseWriter, r *http.Request) (id.RuleID, bool) {
	ruleID, err := id.ParseRuleID(chi.URLParam(r, "ruleID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid rule id"))
		return "", false
	}
	return ruleID, true
}
