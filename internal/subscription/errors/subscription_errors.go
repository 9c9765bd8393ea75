package subscriptionerrors

import (
	"net/http"

	"github.com/kishoreUdatha/HRM-sub003/internal/shared/apperror"
)

var (
	ErrInvalidTenantID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid tenant id",
		http.StatusBadRequest,
	)
	ErrSubscriptionNotFound = apperror.New(
		apperror.CodeNotFound,
		"webhook subscription not found",
		http.StatusNotFound,
	)
	ErrUnknownEventType = apperror.New(
		apperror.CodeInvalidInput,
		"unknown event type pattern",
		http.StatusBadRequest,
	)
	ErrInsecureURL = apperror.New(
		apperror.CodeInvalidInput,
		"webhook url must use http or https",
		http.StatusBadRequest,
	)
)
