package common

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type ctxKey string

const dealerIDKey ctxKey = "portal/dealer-id"

// DealerIDHeader carries the dealer identity on portal requests. The
// portal sits behind the company SSO proxy which injects it.
const DealerIDHeader = "X-Dealer-ID"

// WithDealerID stores the dealer identifier on the provided context.
func WithDealerID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, dealerIDKey, id)
}

// DealerID extracts the dealer identifier from the context if present.
func DealerID(ctx context.Context) (uuid.UUID, bool) {
	v := ctx.Value(dealerIDKey)
	if v == nil {
		return uuid.UUID{}, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// RequireDealer parses the dealer header and rejects requests without
// a valid dealer identity.
func RequireDealer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(DealerIDHeader)
		id, err := uuid.Parse(raw)
		if err != nil {
			JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid dealer identity", nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithDealerID(r.Context(), id)))
	})
}
