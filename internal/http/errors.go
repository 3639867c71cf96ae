package http

import (
	"context"
	"errors"
	"net/http"

	"coppia/internal/finance"
	"coppia/internal/ledger"
	"coppia/internal/log"
)

// writeServiceError maps service errors onto status codes. Only bad input and
// missing records expose their message; everything else is logged and hidden.
func writeServiceError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, errBadField), errors.Is(err, finance.ErrInvalidInput):
		ErrorResponse(http.StatusUnprocessableEntity, err.Error()).Write(w)
	case errors.Is(err, ledger.ErrNotFound):
		ErrorResponse(http.StatusNotFound, "Not found").Write(w)
	case errors.Is(err, context.DeadlineExceeded):
		log.FromContext(ctx).ErrorContext(ctx, "Request timed out", log.FieldOperation, op, log.FieldError, err)
		ErrorResponse(http.StatusGatewayTimeout, "The request took too long").Write(w)
	default:
		log.NewStructuredLogger(log.FromContext(ctx)).LogError(ctx, "Request failed", err, log.ComponentHTTP, op, nil)
		ErrorResponse(http.StatusInternalServerError, "Something went wrong, please retry").Write(w)
	}
}
