// Package handler exposes the identity module's HTTP endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"calibra/internal/identity/models"
	"calibra/internal/identity/service"
	"calibra/internal/platform/middleware"
	"calibra/internal/transport/http/shared"
	dErrors "calibra/pkg/domain-errors"
	id "calibra/pkg/domain"
)

// Service defines the identity operations the handler needs.
type Service interface {
	Verify(ctx context.Context, req models.VerificationRequest) (*service.VerifyResult, error)
	Get(ctx context.Context, orgID id.OrgID) (*models.OrganizationIdentity, error)
	Revoke(ctx context.Context, orgID id.OrgID, reason string) error
}

type Handler struct {
	identity Service
	logger   *slog.Logger
}

func New(identity Service, logger *slog.Logger) *Handler {
	return &Handler{identity: identity, logger: logger}
}

// Register mounts the identity routes. Verification is the only
// unauthenticated endpoint in the system: it is how an org obtains its
// first attestation.
func (h *Handler) Register(r chi.Router, validator middleware.AttestationValidator) {
	r.Post("/identity/verify", h.handleVerify)
	r.Group(func(pr chi.Router) {
		pr.Use(middleware.RequireAttestation(validator, h.logger))
		pr.Get("/identity", h.handleGet)
		pr.Post("/identity/revoke", h.handleRevoke)
	})
}

type verifyRequest struct {
	OrgName           string `json:"orgName"`
	Method            string `json:"method"`
	AccountHandle     string `json:"accountHandle,omitempty"`
	PaymentAccountRef string `json:"paymentAccountRef,omitempty"`
}

type identityResponse struct {
	OrgID           string    `json:"orgId"`
	Name            string    `json:"name"`
	Method          string    `json:"method"`
	VerifiedAt      time.Time `json:"verifiedAt"`
	CriteriaChecked []string  `json:"criteriaChecked"`
	Revoked         bool      `json:"revoked"`
}

type verifyResponse struct {
	Identity    *identityResponse `json:"identity,omitempty"`
	Attestation string            `json:"attestation,omitempty"`
	Rejection   *models.Rejection `json:"rejection,omitempty"`
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := shared.Decode(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	method, err := models.ParseVerificationMethod(req.Method)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "unknown verification method"))
		return
	}
	result, err := h.identity.Verify(r.Context(), models.VerificationRequest{
		OrgName:           req.OrgName,
		Method:            method,
		AccountHandle:     req.AccountHandle,
		PaymentAccountRef: req.PaymentAccountRef,
	})
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if result.Rejection != nil {
		shared.WriteJSON(w, http.StatusUnprocessableEntity, verifyResponse{Rejection: result.Rejection})
		return
	}
	shared.WriteJSON(w, http.StatusCreated, verifyResponse{
		Identity:    toIdentityResponse(result.Identity),
		Attestation: result.Attestation,
	})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	orgID := middleware.GetOrgID(r.Context())
	identity, err := h.identity.Get(r.Context(), orgID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toIdentityResponse(identity))
}

type revokeRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	var req revokeRequest
	if err := shared.Decode(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	orgID := middleware.GetOrgID(r.Context())
	if err := h.identity.Revoke(r.Context(), orgID, req.Reason); err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}

func toIdentityResponse(identity *models.OrganizationIdentity) *identityResponse {
	if identity == nil {
		return nil
	}
	return &identityResponse{
		OrgID:           identity.OrgID.String(),
		Name:            identity.Name,
		Method:          identity.Method.String(),
		VerifiedAt:      identity.VerifiedAt,
		CriteriaChecked: identity.CriteriaChecked,
		Revoked:         identity.Revoked,
	}
}
