package endpoints

import (
	"errors"
	"fmt"
	"net/http"

	"sales-routing-backend/internal/service/directory"
	"sales-routing-backend/internal/service/escalation"
	"sales-routing-backend/internal/service/operator"
	"sales-routing-backend/internal/service/routing"
)

// serviceError turns a service *Error into an HTTPError. The service message is
// shown to the caller; the wrapped cause only goes to the log.
func serviceError(err error) error {
	if err == nil {
		return nil
	}

	code, message, cause, ok := unwrapServiceError(err)
	if !ok {
		return &HTTPError{
			StatusCode: http.StatusInternalServerError,
			Message:    "Internal server error",
			ErrorLog:   err,
		}
	}

	logErr := err
	if cause != nil {
		logErr = fmt.Errorf("%s: %w", message, cause)
	}

	status := statusForCode(code)
	if status == http.StatusInternalServerError {
		message = "Internal server error"
	}
	return &HTTPError{StatusCode: status, Message: message, ErrorLog: logErr}
}

func unwrapServiceError(err error) (code, message string, cause error, ok bool) {
	var escErr *escalation.Error
	if errors.As(err, &escErr) {
		return string(escErr.Code), escErr.Message, escErr.Err, true
	}
	var dirErr *directory.Error
	if errors.As(err, &dirErr) {
		return string(dirErr.Code), dirErr.Message, dirErr.Err, true
	}
	var opErr *operator.Error
	if errors.As(err, &opErr) {
		return string(opErr.Code), opErr.Message, opErr.Err, true
	}
	var routeErr *routing.Error
	if errors.As(err, &routeErr) {
		return string(routeErr.Code), routeErr.Message, routeErr.Err, true
	}
	return "", "", nil, false
}

func statusForCode(code string) int {
	switch code {
	case "validation_error":
		return http.StatusBadRequest
	case "unauthorized":
		return http.StatusUnauthorized
	case "not_found":
		return http.StatusNotFound
	case "conflict":
		return http.StatusConflict
	case "no_sellers_available":
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
