package submission

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/p5portal/backend-portal/internal/common"
	"github.com/p5portal/backend-portal/internal/distributor"
)

// Handler exposes the dealer-facing submission endpoints.
type Handler struct {
	Store *Store
}

// List handles GET /api/v1/orders for the calling dealer.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "submission store not configured", nil)
		return
	}
	dealerID, ok := common.DealerID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing dealer identity", nil)
		return
	}
	page, limit := common.ParsePagination(r, 20)
	subs, total, err := h.Store.ListForDealer(r.Context(), dealerID, limit, (page-1)*limit)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load orders", nil)
		return
	}
	if subs == nil {
		subs = []Submission{}
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       subs,
		"pagination": common.Pagination{Page: page, PerPage: limit, TotalItems: int(total)},
	})
}

// Get handles GET /api/v1/orders/{submissionID}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "submission store not configured", nil)
		return
	}
	dealerID, ok := common.DealerID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing dealer identity", nil)
		return
	}
	id, err := parseID(r, "submissionID")
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "submission id must be an integer", nil)
		return
	}
	sub, err := h.Store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load order", nil)
		return
	}
	if sub.DealerID != dealerID {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": sub})
}

// AdminHandler exposes the back-office submission endpoints.
type AdminHandler struct {
	Service *Service
}

// Queue handles GET /api/v1/admin/orders.
func (h *AdminHandler) Queue(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "submission service not configured", nil)
		return
	}
	page, limit := common.ParsePagination(r, 20)
	subs, total, err := h.Service.Queue(r.Context(), limit, (page-1)*limit)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load queue", nil)
		return
	}
	if subs == nil {
		subs = []Submission{}
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       subs,
		"pagination": common.Pagination{Page: page, PerPage: limit, TotalItems: int(total)},
	})
}

// Detail handles GET /api/v1/admin/orders/{submissionID}.
func (h *AdminHandler) Detail(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil || h.Service.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "submission service not configured", nil)
		return
	}
	id, err := parseID(r, "submissionID")
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "submission id must be an integer", nil)
		return
	}
	sub, err := h.Service.Store.Get(r.Context(), id)
	if err != nil {
		writeSubmissionError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": sub})
}

// EditItem handles PATCH /api/v1/admin/orders/{submissionID}/items/{itemID}.
func (h *AdminHandler) EditItem(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "submission service not configured", nil)
		return
	}
	subID, err := parseID(r, "submissionID")
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "submission id must be an integer", nil)
		return
	}
	itemID, err := parseID(r, "itemID")
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "item id must be an integer", nil)
		return
	}
	var edit Edit
	if err := json.NewDecoder(r.Body).Decode(&edit); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request payload", nil)
		return
	}
	item, err := h.Service.EditItem(r.Context(), subID, itemID, edit)
	if err != nil {
		writeSubmissionError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": item})
}

// UpdateStatus handles PATCH /api/v1/admin/orders/{submissionID}/status.
func (h *AdminHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "submission service not configured", nil)
		return
	}
	id, err := parseID(r, "submissionID")
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "submission id must be an integer", nil)
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request payload", nil)
		return
	}
	var fn func(*Service, context.Context, int64) (Submission, error)
	switch req.Status {
	case StatusApproved:
		fn = (*Service).Approve
	case StatusRejected:
		fn = (*Service).Reject
	default:
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "status must be approved or rejected", nil)
		return
	}
	sub, err := fn(h.Service, r.Context(), id)
	if err != nil {
		writeSubmissionError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": sub})
}

func writeSubmissionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
	case errors.Is(err, ErrItemLocked):
		common.JSONError(w, http.StatusConflict, "LOCKED", err.Error(), nil)
	case errors.Is(err, ErrInvalidEdit), errors.Is(err, distributor.ErrUnknownCode):
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
	}
}

func parseID(r *http.Request, param string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, param), 10, 64)
}
