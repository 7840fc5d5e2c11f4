package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/shopkit/internal/domain/catalog"
	"github.com/xenking/shopkit/internal/domain/order"
	"github.com/xenking/shopkit/internal/domain/promo"
)

// errorResponse is the uniform error body for every endpoint.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Code: status, Message: message})
}

// writeDomainError maps domain errors onto HTTP statuses. Anything unmapped
// is a 500 with a generic body; the cause is logged, not leaked.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	// Malformed input.
	case errors.Is(err, order.ErrEmptyLines),
		errors.Is(err, promo.ErrBadCodeFormat):
		writeError(w, http.StatusBadRequest, err.Error())

	// Missing resources.
	case errors.Is(err, order.ErrNotFound),
		errors.Is(err, catalog.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())

	// Redemption rejections. Each sentinel carries its user-facing reason.
	case errors.Is(err, promo.ErrInvalidCode),
		errors.Is(err, promo.ErrNotYetActive),
		errors.Is(err, promo.ErrExpired),
		errors.Is(err, promo.ErrUsageLimitReached),
		errors.Is(err, promo.ErrChannelDenied),
		errors.Is(err, promo.ErrCustomerDenied):
		writeError(w, http.StatusUnprocessableEntity, err.Error())

	default:
		writeTypedError(w, r, err)
	}
}

func writeTypedError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		mismatch     *promo.TargetMismatchError
		invalidQty   *order.InvalidQuantityError
		productGone  *order.ProductNotFoundError
		variantGone  *order.VariantNotFoundError
		noStock      *order.InsufficientStockError
		illegalShift *order.IllegalTransitionError
	)
	switch {
	case errors.As(err, &mismatch),
		errors.As(err, &productGone),
		errors.As(err, &variantGone):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &invalidQty):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &noStock),
		errors.As(err, &illegalShift):
		writeError(w, http.StatusConflict, err.Error())
	default:
		zctx.From(r.Context()).Error("unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// decodeJSON parses the request body into v, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Wrap(err, "decode request body")
	}
	return nil
}
