package elevenlabs

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

var (
	ErrNoCredentials = errors.New("elevenlabs api key is not set")
	ErrEmptyText     = errors.New("nothing to synthesize")
)

// APIError is returned for any non-2xx response.
type APIError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("elevenlabs: %s: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("elevenlabs: %s", e.Status)
}

func (e *APIError) IsRateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}

type errorBody struct {
	Detail json.RawMessage `json:"detail"`
}

type errorDetail struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func parseError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode, Status: resp.Status}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil || len(body) == 0 {
		return apiErr
	}

	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err != nil || len(parsed.Detail) == 0 {
		apiErr.Message = string(body)
		return apiErr
	}

	var detail errorDetail
	if err := json.Unmarshal(parsed.Detail, &detail); err == nil && detail.Message != "" {
		apiErr.Message = detail.Message
		return apiErr
	}
	var message string
	if err := json.Unmarshal(parsed.Detail, &message); err == nil {
		apiErr.Message = message
		return apiErr
	}

	apiErr.Message = string(parsed.Detail)
	return apiErr
}

// IsRetryable reports whether a failed synthesis is worth trying again later.
func IsRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.IsRateLimited() || apiErr.StatusCode >= 500
	}
	return false
}
