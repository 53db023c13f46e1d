package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/calder/noteval/internal/engine"
	"github.com/calder/noteval/internal/reportstore"
	"github.com/calder/noteval/internal/service"
	"github.com/calder/noteval/pkg/logger"
)

// ProductHandler handles product report and evaluation endpoints
type ProductHandler struct {
	service *service.EvaluationService
	logger  *logger.Logger
}

// NewProductHandler creates a product handler
func NewProductHandler(svc *service.EvaluationService, log *logger.Logger) *ProductHandler {
	return &ProductHandler{service: svc, logger: log}
}

// List returns the live product ids
// GET /api/products
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	ids, err := h.service.ListProducts(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list products")
		respondError(w, http.StatusInternalServerError, "failed to list products")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"products": ids,
		"count":    len(ids),
	})
}

// GetReport returns the current persisted report for a product
// GET /api/products/{id}/report
func (h *ProductHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	productID := mux.Vars(r)["id"]

	report, err := h.service.GetReport(r.Context(), productID)
	if err != nil {
		if errors.Is(err, reportstore.ErrReportNotFound) {
			respondError(w, http.StatusNotFound, "no report for product")
			return
		}
		h.logger.WithError(err).WithProduct(productID).Error("Failed to load report")
		respondError(w, http.StatusInternalServerError, "failed to load report")
		return
	}

	respondJSON(w, http.StatusOK, report)
}

// Evaluate runs an on-demand evaluation and persists the result
// POST /api/products/{id}/evaluate?date=2026-01-05
func (h *ProductHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	productID := mux.Vars(r)["id"]

	evalDate := time.Now().UTC().Truncate(24 * time.Hour)
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		evalDate = parsed
	}

	result, err := h.service.EvaluateProduct(r.Context(), productID, evalDate)
	if err != nil {
		if errors.Is(err, engine.ErrValidation) {
			// The partial result carries the defect detail.
			respondJSON(w, http.StatusUnprocessableEntity, result)
			return
		}
		h.logger.WithError(err).WithProduct(productID).Error("Evaluation failed")
		respondError(w, http.StatusInternalServerError, "evaluation failed")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Indicative returns the on-demand "if matured today" value
// GET /api/products/{id}/indicative
func (h *ProductHandler) Indicative(w http.ResponseWriter, r *http.Request) {
	productID := mux.Vars(r)["id"]

	value, err := h.service.Indicative(r.Context(), productID, time.Now().UTC())
	if err != nil {
		if errors.Is(err, engine.ErrValidation) {
			respondError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		h.logger.WithError(err).WithProduct(productID).Error("Indicative projection failed")
		respondError(w, http.StatusInternalServerError, "indicative projection failed")
		return
	}

	respondJSON(w, http.StatusOK, value)
}
