package customer

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/noah-isme/backend-pos/internal/common"
)

// Handler wires customer lookups to HTTP.
type Handler struct {
	Store Store
}

// Search returns customers matching a name, phone or email fragment.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "customer store not configured", nil)
		return
	}
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	limit := common.AtoiDefault(r.URL.Query().Get("limit"), 20)
	customers, err := h.Store.Search(r.Context(), query, limit)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to search customers", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": customers})
}

// Get returns a single customer profile including the carried balance.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "customer store not configured", nil)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "customerID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid customer id", nil)
		return
	}
	c, err := h.Store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "customer not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to load customer", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": c})
}
