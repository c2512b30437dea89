// Package handler exposes the consent HTTP endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"calibra/internal/consent/models"
	"calibra/internal/platform/middleware"
	"calibra/internal/transport/http/shared"
	dErrors "calibra/pkg/domain-errors"
	id "calibra/pkg/domain"
)

// Service defines the consent operations the handler needs.
type Service interface {
	Grant(ctx context.Context, orgID id.OrgID, scope id.ConsentScope) error
	Revoke(ctx context.Context, orgID id.OrgID, scope id.ConsentScope) error
	ListByOrg(ctx context.Context, orgID id.OrgID) ([]models.ConsentRecord, error)
}

type Handler struct {
	consent Service
	logger  *slog.Logger
}

func New(consent Service, logger *slog.Logger) *Handler {
	return &Handler{consent: consent, logger: logger}
}

// Register mounts the consent routes. An org manages only its own grants.
func (h *Handler) Register(r chi.Router, validator middleware.AttestationValidator) {
	r.Group(func(pr chi.Router) {
		pr.Use(middleware.RequireAttestation(validator, h.logger))
		pr.Post("/consent/grant", h.handleGrant)
		pr.Post("/consent/revoke", h.handleRevoke)
		pr.Get("/consent", h.handleList)
	})
}

type scopeRequest struct {
	Scope string `json:"scope"`
}

func (h *Handler) handleGrant(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.decodeScope(w, r)
	if !ok {
		return
	}
	if err := h.consent.Grant(r.Context(), middleware.GetOrgID(r.Context()), scope); err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "granted"})
}

func (h *Handler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.decodeScope(w, r)
	if !ok {
		return
	}
	if err := h.consent.Revoke(r.Context(), middleware.GetOrgID(r.Context()), scope); err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}

type grantResponse struct {
	Scope     string     `json:"scope"`
	GrantedAt time.Time  `json:"grantedAt"`
	RevokedAt *time.Time `json:"revokedAt,omitempty"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	records, err := h.consent.ListByOrg(r.Context(), middleware.GetOrgID(r.Context()))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	out := make([]grantResponse, 0, len(records))
	for _, record := range records {
		out = append(out, grantResponse{
			Scope:     string(record.Scope),
			GrantedAt: record.GrantedAt,
			RevokedAt: record.RevokedAt,
		})
	}
	shared.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) decodeScope(w http.ResponseWriter, r *http.Request) (id.ConsentScope, bool) {
	var req scopeRequest
	if err := shared.Decode(r, &req); err != nil {
		shared.WriteError(w, err)
		return "", false
	}
	scope, err := id.ParseConsentScope(req.Scope)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "unknown consent scope"))
		return "", false
	}
	return scope, true
}
