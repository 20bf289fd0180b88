package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error is returned for every non-2xx answer of the backend services.
type Error struct {
	StatusCode int
	Status     string
	// Code is the machine readable code of the auth service (e.g. VALIDATION_ERROR).
	Code    string
	Message string
}

func (e *Error) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}

	if e.Code != "" {
		return fmt.Sprintf("bad status %d: %s: %s", e.StatusCode, e.Code, msg)
	}

	return fmt.Sprintf("bad status %d: %s", e.StatusCode, msg)
}

// IsStatus reports whether err is a backend error with the given status code.
func IsStatus(err error, code int) bool {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == code
}

// parseError builds an Error from a failed response. The resume service answers
// with {"error": "..."}, the auth service with {"code": "...", "message": "..."}.
func parseError(resp *http.Response, body []byte) *Error {
	apiErr := &Error{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
	}

	var payload struct {
		Error   string `json:"error"`
		Code    string `json:"code"`
		Message string `json:"message"`
		Details string `json:"details"`
	}

	if err := json.Unmarshal(body, &payload); err != nil {
		apiErr.Message = strings.TrimSpace(string(body))
		return apiErr
	}

	apiErr.Code = payload.Code
	switch {
	case payload.Error != "":
		apiErr.Message = payload.Error
	case payload.Message != "" && payload.Details != "":
		apiErr.Message = payload.Message + ": " + payload.Details
	default:
		apiErr.Message = payload.Message
	}

	return apiErr
}
