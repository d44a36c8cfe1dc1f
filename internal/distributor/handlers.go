package distributor

import (
	"net/http"

	"github.com/p5portal/backend-portal/internal/common"
)

// Handler exposes the distributor master data endpoint.
type Handler struct {
	Service *Service
}

// List handles GET /api/v1/distributors.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "distributor service not configured", nil)
		return
	}
	list, err := h.Service.List(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load distributors", nil)
		return
	}
	if list == nil {
		list = []Distributor{}
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": list})
}
