// Package handler exposes the nonce binding HTTP endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"calibra/internal/noncebind/models"
	"calibra/internal/platform/middleware"
	"calibra/internal/transport/http/shared"
	dErrors "calibra/pkg/domain-errors"
	id "calibra/pkg/domain"
)

// Service defines the binding operations the handler needs.
type Service interface {
	Bind(ctx context.Context, orgID id.OrgID, publicKey id.PublicKeyHex) (*models.NonceBinding, error)
	Rotate(ctx context.Context, orgID id.OrgID, newPublicKey id.PublicKeyHex, reason string) (*models.NonceBinding, error)
	Revoke(ctx context.Context, orgID id.OrgID, reason string) error
	Verify(ctx context.Context, nonce id.Nonce, claimedOrgID id.OrgID) (*models.VerifyResult, error)
}

type Handler struct {
	bindings Service
	logger   *slog.Logger
}

func New(bindings Service, logger *slog.Logger) *Handler {
	return &Handler{bindings: bindings, logger: logger}
}

// Register mounts the binding routes. Every route requires a valid
// attestation; the org acts only on its own binding.
func (h *Handler) Register(r chi.Router, validator middleware.AttestationValidator) {
	r.Group(func(pr chi.Router) {
		pr.Use(middleware.RequireAttestation(validator, h.logger))
		pr.Post("/nonce/bind", h.handleBind)
		pr.Post("/nonce/rotate", h.handleRotate)
		pr.Post("/nonce/revoke", h.handleRevoke)
		pr.Post("/nonce/verify", h.handleVerify)
	})
}

type bindRequest struct {
	PublicKey string `json:"publicKey"`
}

type bindingResponse struct {
	Nonce         string    `json:"nonce"`
	PublicKey     string    `json:"publicKey"`
	SecretVersion string    `json:"secretVersion"`
	ChainDepth    int       `json:"chainDepth"`
	CreatedAt     time.Time `json:"createdAt"`
}

func (h *Handler) handleBind(w http.ResponseWriter, r *http.Request) {
	var req bindRequest
	if err := shared.Decode(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	publicKey, err := id.ParsePublicKeyHex(req.PublicKey)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid public key"))
		return
	}
	binding, err := h.bindings.Bind(r.Context(), middleware.GetOrgID(r.Context()), publicKey)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, toBindingResponse(binding))
}

type rotateRequest struct {
	NewPublicKey string `json:"newPublicKey,omitempty"`
	Reason       string `json:"reason"`
}

func (h *Handler) handleRotate(w http.ResponseWriter, r *http.Request) {
	var req rotateRequest
	if err := shared.Decode(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	var newKey id.PublicKeyHex
	if req.NewPublicKey != "" {
		parsed, err := id.ParsePublicKeyHex(req.NewPublicKey)
		if err != nil {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid public key"))
			return
		}
		newKey = parsed
	}
	binding, err := h.bindings.Rotate(r.Context(), middleware.GetOrgID(r.Context()), newKey, req.Reason)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toBindingResponse(binding))
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
	if err := h.bindings.Revoke(r.Context(), middleware.GetOrgID(r.Context()), req.Reason); err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}

type verifyRequest struct {
	Nonce string `json:"nonce"`
	OrgID string `json:"orgId"`
}

type verifyResponse struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := shared.Decode(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	nonce, err := id.ParseNonce(req.Nonce)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid nonce"))
		return
	}
	orgID, err := id.ParseOrgID(req.OrgID)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid org id"))
		return
	}
	result, err := h.bindings.Verify(r.Context(), nonce, orgID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, verifyResponse{Valid: result.Valid, Reason: result.Reason})
}

func toBindingResponse(b *models.NonceBinding) bindingResponse {
	return bindingResponse{
		Nonce:         b.Nonce.String(),
		PublicKey:     b.PublicKey.String(),
		SecretVersion: b.SecretVersion,
		ChainDepth:    b.ChainDepth,
		CreatedAt:     b.CreatedAt,
	}
}
