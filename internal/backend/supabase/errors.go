package supabase

import (
	"encoding/json"
	"net/http"
	"strings"

	"supatodo/internal/service"
)

// APIError is an error response from the auth or REST API.
// Error returns the backend's own message.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// Unwrap maps the response onto the service sentinel errors.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return service.ErrUnauthorized
	case http.StatusNotFound:
		return service.ErrNotFound
	}
	switch e.Code {
	case "invalid_grant", "invalid_credentials", "bad_jwt", "session_not_found", "refresh_token_not_found":
		return service.ErrUnauthorized
	}
	return nil
}

// newAPIError decodes either error shape: auth ({code, error_code, msg} or
// {error, error_description}) and REST ({code, message, details, hint}).
func newAPIError(status int, body []byte) *APIError {
	var payload struct {
		Msg              string          `json:"msg"`
		ErrorDescription string          `json:"error_description"`
		Message          string          `json:"message"`
		Error            string          `json:"error"`
		ErrorCode        string          `json:"error_code"`
		Code             json.RawMessage `json:"code"`
	}
	_ = json.Unmarshal(body, &payload)

	e := &APIError{Status: status}
	for _, m := range []string{payload.Msg, payload.ErrorDescription, payload.Message, payload.Error} {
		if strings.TrimSpace(m) != "" {
			e.Message = m
			break
		}
	}
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}

	switch {
	case payload.ErrorCode != "":
		e.Code = payload.ErrorCode
	case payload.Error != "" && payload.ErrorDescription != "":
		e.Code = payload.Error
	case len(payload.Code) > 0:
		e.Code = strings.Trim(string(payload.Code), `"`)
	}
	return e
}
