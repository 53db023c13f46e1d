package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/calder/noteval/internal/contracts"
	"github.com/calder/noteval/internal/engine"
	"github.com/calder/noteval/internal/service"
	"github.com/calder/noteval/pkg/logger"
)

// OverrideHandler is the admin surface for issuer-call overrides
type OverrideHandler struct {
	service *service.EvaluationService
	logger  *logger.Logger
}

// NewOverrideHandler creates an override handler
func NewOverrideHandler(svc *service.EvaluationService, log *logger.Logger) *OverrideHandler {
	return &OverrideHandler{service: svc, logger: log}
}

// Put validates and stores an issuer-call override, returning the fresh
// report that reflects it
// PUT /api/products/{id}/override
func (h *OverrideHandler) Put(w http.ResponseWriter, r *http.Request) {
	productID := mux.Vars(r)["id"]

	var override contracts.IssuerCallOverride
	if err := json.NewDecoder(r.Body).Decode(&override); err != nil {
		respondError(w, http.StatusBadRequest, "malformed override payload")
		return
	}

	updatedBy := r.Header.Get("X-Updated-By")
	if updatedBy == "" {
		updatedBy = "api"
	}

	result, err := h.service.SetOverride(r.Context(), productID, &override, updatedBy)
	if err != nil {
		if errors.Is(err, engine.ErrOverrideValidation) {
			respondError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		h.logger.WithError(err).WithProduct(productID).Error("Override write failed")
		respondError(w, http.StatusInternalServerError, "override write failed")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Delete removes the override, fully reverting the product
// DELETE /api/products/{id}/override
func (h *OverrideHandler) Delete(w http.ResponseWriter, r *http.Request) {
	productID := mux.Vars(r)["id"]

	result, err := h.service.ClearOverride(r.Context(), productID)
	if err != nil {
		h.logger.WithError(err).WithProduct(productID).Error("Override clear failed")
		respondError(w, http.StatusInternalServerError, "override clear failed")
		return
	}

	respondJSON(w, http.StatusOK, result)
}
