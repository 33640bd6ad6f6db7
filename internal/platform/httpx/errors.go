package httpx

import (
	"errors"
	"net/http"

	"github.com/brimstock/brimstock/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	var (
		validation *shared.ValidationError
		notFound   *shared.NotFoundError
		conflict   *shared.ConflictError
		stock      *shared.InsufficientStockError
		abort      *shared.TransactionAbortError
	)
	switch {
	case errors.As(err, &validation):
		Problem(w, http.StatusBadRequest, "Validation Failed", validation.Msg)
	case errors.As(err, &notFound):
		Problem(w, http.StatusNotFound, "Not Found", notFound.Error())
	case errors.As(err, &conflict):
		Problem(w, http.StatusConflict, "Conflict", conflict.Msg)
	case errors.As(err, &stock):
		Problem(w, http.StatusUnprocessableEntity, "Insufficient Stock", stock.Error())
	case errors.As(err, &abort):
		Problem(w, http.StatusConflict, "Transaction Aborted", "the operation did not commit; retry the request")
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
