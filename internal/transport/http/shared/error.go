// Package shared holds the transport helpers common to all handler files.
package shared

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/authelia/authelia-sub004/internal/transport/http/shared/json"
	dErrors "github.com/authelia/authelia-sub004/pkg/domain-errors"
)

// WriteError centralizes domain error translation to HTTP responses. Domain
// errors keep their code in the JSON envelope; anything else collapses to a
// generic internal error so backend detail never leaks.
func WriteError(w http.ResponseWriter, err error) {
	var domainErr *dErrors.Error
	if !errors.As(err, &domainErr) {
		json.WriteJSON(w, http.StatusInternalServerError, map[string]string{
			"error": string(dErrors.CodeInternal),
		})
		return
	}

	if domainErr.Code == dErrors.CodeRateLimited && domainErr.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int(domainErr.RetryAfter.Seconds())))
	}

	response := map[string]string{"error": string(domainErr.Code)}
	if domainErr.Message != "" {
		response["error_description"] = domainErr.Message
	}
	json.WriteJSON(w, DomainCodeToHTTPStatus(domainErr.Code), response)
}

// DomainCodeToHTTPStatus translates domain error codes to HTTP status codes.
func DomainCodeToHTTPStatus(code dErrors.Code) int {
	switch code {
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeBadRequest, dErrors.CodeInvalidInput:
		return http.StatusBadRequest
	case dErrors.CodeConflict:
		return http.StatusConflict
	case dErrors.CodeNotAuthenticated:
		return http.StatusUnauthorized
	case dErrors.CodeNotAuthorized, dErrors.CodeSecondFactorRequired:
		return http.StatusForbidden
	case dErrors.CodeCeremonyRejected:
		return http.StatusUnauthorized
	case dErrors.CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
