// Package handler exposes reputation and stake HTTP endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"calibra/internal/platform/middleware"
	probmodels "calibra/internal/probation/models"
	"calibra/internal/reputation/models"
	"calibra/internal/transport/http/shared"
	dErrors "calibra/pkg/domain-errors"
	id "calibra/pkg/domain"
)

// Service defines the reputation operations the handler needs.
type Service interface {
	Get(ctx context.Context, orgID id.OrgID) (*models.OrganizationReputation, error)
	PledgeStake(ctx context.Context, orgID id.OrgID, amountUSD float64) error
	WithdrawStake(ctx context.Context, orgID id.OrgID) error
	Flag(ctx context.Context, orgID id.OrgID, reason string) error
	SlashStake(ctx context.Context, orgID id.OrgID, reason string) error
}

// Probation answers state lookups for the self-view endpoint.
type Probation interface {
	StateFor(ctx context.Context, orgID id.OrgID) (probmodels.State, error)
}

type Handler struct {
	reputation Service
	probation  Probation
	adminToken string
	logger     *slog.Logger
}

func New(reputation Service, probation Probation, adminToken string, logger *slog.Logger) *Handler {
	return &Handler{reputation: reputation, probation: probation, adminToken: adminToken, logger: logger}
}

// Register mounts the member-facing routes plus the token-guarded
// governance routes for flagging and slashing.
func (h *Handler) Register(r chi.Router, validator middleware.AttestationValidator) {
	r.Group(func(pr chi.Router) {
		pr.Use(middleware.RequireAttestation(validator, h.logger))
		pr.Get("/reputation", h.handleGet)
		pr.Post("/stake/pledge", h.handlePledge)
		pr.Post("/stake/withdraw", h.handleWithdraw)
	})
	r.Group(func(ar chi.Router) {
		ar.Use(middleware.RequireAdminToken(h.adminToken, h.logger))
		ar.Post("/admin/orgs/{orgID}/flag", h.handleFlag)
		ar.Post("/admin/orgs/{orgID}/stake/slash", h.handleSlash)
	})
}

type reputationResponse struct {
	OrgID             string  `json:"orgId"`
	ReputationScore   float64 `json:"reputationScore"`
	StakePledgeUSD    float64 `json:"stakePledgeUsd"`
	StakeStatus       string  `json:"stakeStatus"`
	ContributionCount int     `json:"contributionCount"`
	FlaggedCount      int     `json:"flaggedCount"`
	ConsistencyScore  float64 `json:"consistencyScore"`
	Weight            float64 `json:"weight"`
	ProbationState    string  `json:"probationState"`
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	orgID := middleware.GetOrgID(r.Context())
	record, err := h.reputation.Get(r.Context(), orgID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	state, err := h.probation.StateFor(r.Context(), orgID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, reputationResponse{
		OrgID:             record.OrgID.String(),
		ReputationScore:   record.ReputationScore,
		StakePledgeUSD:    record.StakePledgeUSD,
		StakeStatus:       string(record.StakeStatus),
		ContributionCount: record.ContributionCount,
		FlaggedCount:      record.FlaggedCount,
		ConsistencyScore:  record.ConsistencyScore,
		Weight:            record.Weight(),
		ProbationState:    string(state),
	})
}

type pledgeRequest struct {
	AmountUSD float64 `json:"amountUsd"`
}

func (h *Handler) handlePledge(w http.ResponseWriter, r *http.Request) {
	var req pledgeRequest
	if err := shared.Decode(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := h.reputation.PledgeStake(r.Context(), middleware.GetOrgID(r.Context()), req.AmountUSD); err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "pledged"})
}

func (h *Handler) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	if err := h.reputation.WithdrawStake(r.Context(), middleware.GetOrgID(r.Context())); err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "withdrawn"})
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) handleFlag(w http.ResponseWriter, r *http.Request) {
	orgID, req, ok := h.decodeAdminTarget(w, r)
	if !ok {
		return
	}
	if err := h.reputation.Flag(r.Context(), orgID, req.Reason); err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "flagged"})
}

func (h *Handler) handleSlash(w http.ResponseWriter, r *http.Request) {
	orgID, req, ok := h.decodeAdminTarget(w, r)
	if !ok {
		return
	}
	if err := h.reputation.SlashStake(r.Context(), orgID, req.Reason); err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "slashed"})
}

func (h *Handler) decodeAdminTarget(w http.ResponseWriter, r *http.Request) (id.OrgID, reasonRequest, bool) {
	orgID, err := id.ParseOrgID(chi.URLParam(r, "orgID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid org id"))
		return "", reasonRequest{}, false
	}
	var req reasonRequest
	if err := shared.Decode(r, &req); err != nil {
		shared.WriteError(w, err)
		return "", reasonRequest{}, false
	}
	if req.Reason == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "reason is required"))
		return "", reasonRequest{}, false
	}
	return orgID, req, true
}
