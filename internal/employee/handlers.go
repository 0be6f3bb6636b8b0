package employee

import (
	"net/http"
	"strings"

	"github.com/noah-isme/backend-pos/internal/common"
)

// Handler wires the employee directory to HTTP.
type Handler struct {
	Store Store
}

// Search returns directory entries matching a name, department or email fragment.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "employee store not configured", nil)
		return
	}
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	limit := common.AtoiDefault(r.URL.Query().Get("limit"), 20)
	employees, err := h.Store.Search(r.Context(), query, limit)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to search employees", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": employees})
}
