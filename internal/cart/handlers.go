package cart

import (
	"encoding/json"
	"errors"
	"net/http"

	validator "github.com/go-playground/validator/v10"

	"github.com/p5portal/backend-portal/internal/common"
	"github.com/p5portal/backend-portal/internal/submission"
)

// Handler exposes the order submit endpoint.
type Handler struct {
	Service  *Service
	Validate *validator.Validate
}

// Submit handles POST /api/v1/orders.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	dealerID, ok := common.DealerID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing dealer identity", nil)
		return
	}
	var state State
	if err := json.NewDecoder(r.Body).Decode(&state); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request payload", nil)
		return
	}
	state.DealerID = dealerID
	if state.RequestedDelivery == "" {
		state.RequestedDelivery = submission.DeliveryImmediately
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(state); err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request payload", err.Error())
			return
		}
	}

	result, err := h.Service.Submit(r.Context(), state)
	if err != nil {
		var verr *ValidationError
		switch {
		case errors.As(err, &verr):
			common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION_FAILED", verr.Error(), verr.Violations)
		case errors.Is(err, ErrEmptyCart):
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "cart has no lines", nil)
		case errors.Is(err, ErrPartialSubmission):
			// Some groups did land; the caller needs the per-group report.
			common.JSON(w, http.StatusMultiStatus, map[string]any{
				"data": result,
				"error": common.ErrorBody{
					Code:    "PARTIAL_SUBMISSION",
					Message: err.Error(),
				},
			})
		default:
			common.JSONError(w, http.StatusBadGateway, "PERSISTENCE_FAILURE", "order could not be persisted", nil)
		}
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": result})
}
