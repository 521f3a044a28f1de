package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/bazelment/agentgate/gateway"
)

const (
	errorCodeUnauthorized        = "unauthorized"
	errorCodeInvalidRequest      = "invalid_request"
	errorCodeProviderUnavailable = "provider_unavailable"
	errorCodeTooLarge            = "request_too_large"
	errorCodeInternal            = "internal_error"
)

var errInvalidRequest = errors.New("invalid request")

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type apiErrorResponse struct {
	Error apiError `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, apiErrorResponse{Error: apiError{Code: code, Message: message}})
}

func writeMappedError(w http.ResponseWriter, err error) {
	status, code := mapError(err)
	writeError(w, status, code, err.Error())
}

func mapError(err error) (int, string) {
	var (
		validationErr  *gateway.ValidationError
		unavailableErr *gateway.ProviderUnavailableError
		maxBytesErr    *http.MaxBytesError
	)
	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, errorCodeUnauthorized
	case errors.As(err, &maxBytesErr):
		return http.StatusRequestEntityTooLarge, errorCodeTooLarge
	case errors.As(err, &validationErr), errors.Is(err, errInvalidRequest):
		return http.StatusBadRequest, errorCodeInvalidRequest
	case errors.As(err, &unavailableErr):
		return http.StatusBadRequest, errorCodeProviderUnavailable
	default:
		return http.StatusInternalServerError, errorCodeInternal
	}
}

func decodeJSONBody(r io.Reader, dst any) error {
	if r == nil {
		return invalidRequestError("request body is required")
	}
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return err
		}
		if errors.Is(err, io.EOF) {
			return invalidRequestError("request body is required")
		}
		return invalidRequestError(fmt.Sprintf("invalid JSON body: %v", err))
	}
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return invalidRequestError("request body must contain exactly one JSON object")
	}
	return nil
}

func invalidRequestError(message string) error {
	return fmt.Errorf("%w: %s", errInvalidRequest, message)
}
