package deliveryerrors

import (
	"net/http"

	"github.com/kishoreUdatha/HRM-sub003/internal/shared/apperror"
)

var (
	ErrDeliveryNotFound = apperror.New(
		apperror.CodeNotFound,
		"delivery record not found",
		http.StatusNotFound,
	)
	ErrDeliveryNotRetryable = apperror.New(
		apperror.CodeInvalidState,
		"only failed deliveries can be retried",
		http.StatusBadRequest,
	)
)
