package product

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/p5portal/backend-portal/internal/common"
	"github.com/p5portal/backend-portal/internal/distributor"
)

// Handler exposes the product read endpoints.
type Handler struct {
	Service *Service
}

// List handles GET /api/v1/products.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "product service not configured", nil)
		return
	}
	page, limit := common.ParsePagination(r, 50)
	query := strings.TrimSpace(r.URL.Query().Get("q"))

	result, err := h.Service.List(r.Context(), query, limit, (page-1)*limit)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load products", nil)
		return
	}
	if result.Items == nil {
		result.Items = []Product{}
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       result.Items,
		"pagination": common.Pagination{Page: page, PerPage: limit, TotalItems: int(result.Total)},
	})
}

// Get handles GET /api/v1/products/{productID}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "product service not configured", nil)
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "product id must be an integer", nil)
		return
	}
	p, err := h.Service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "product not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load product", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": p})
}

// AllowedDistributors handles GET /api/v1/products/{productID}/distributors.
func (h *Handler) AllowedDistributors(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "product service not configured", nil)
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "product id must be an integer", nil)
		return
	}
	codes, err := h.Service.AllowedCodes(r.Context(), id)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load distributors", nil)
		return
	}
	if codes == nil {
		codes = []string{}
	}

	// Preselect a code by product category so the order form starts
	// with a sensible default.
	preferred := ""
	if len(codes) > 0 {
		if p, err := h.Service.Get(r.Context(), id); err == nil {
			preferred = distributor.PickPreferred(distributor.DefaultPreferenceRules(), p.Category, codes)
		}
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": codes, "preferred": preferred})
}
