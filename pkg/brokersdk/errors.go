package brokersdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Machine codes the broker puts next to the human message.
const (
	CodeNotEnabled   = "2fa_not_enabled"
	CodeInvalidToken = "invalid_2fa_token"
	CodeRateLimited  = "rate_limit_exceeded"
)

var (
	ErrNotEnabled  = errors.New("brokersdk: second factor not enabled")
	ErrInvalidCode = errors.New("brokersdk: invalid second factor code")
	ErrRateLimited = errors.New("brokersdk: rate limited")
	ErrBadRequest  = errors.New("brokersdk: bad request")
	ErrServer      = errors.New("brokersdk: broker error")
	ErrUnavailable = errors.New("brokersdk: broker unreachable")
)

// APIError is a non-2xx broker response.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("broker %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("broker %d: %s", e.StatusCode, e.Message)
}

// Is matches the sentinel for the response code, falling back to the
// status class.
func (e *APIError) Is(target error) bool {
	switch e.Code {
	case CodeNotEnabled:
		return target == ErrNotEnabled
	case CodeInvalidToken:
		return target == ErrInvalidCode
	case CodeRateLimited:
		return target == ErrRateLimited
	}

	switch {
	case e.StatusCode >= http.StatusInternalServerError:
		return target == ErrServer
	case e.StatusCode >= http.StatusBadRequest:
		return target == ErrBadRequest
	}
	return false
}

func parseErrorResponse(resp *http.Response, body []byte) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var eb struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	if err := json.Unmarshal(body, &eb); err == nil && eb.Error != "" {
		apiErr.Message = eb.Error
		apiErr.Code = eb.Code
		return apiErr
	}

	apiErr.Message = http.StatusText(resp.StatusCode)
	return apiErr
}
