package confluence

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Error represents a structured error returned by the Confluence REST API.
type Error struct {
	Message    string `json:"message"`
	Reason     string `json:"reason"`
	StatusCode int    `json:"statusCode"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("confluence: %s (reason=%s status=%d)", e.Message, e.Reason, e.StatusCode)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// decodeError attempts to materialize a Confluence error from a non-2xx HTTP response.
func decodeError(resp *http.Response) error {
	if resp == nil {
		return errors.New("confluence: nil response")
	}

	body, readErr := io.ReadAll(resp.Body)
	closeErr := resp.Body.Close()
	if readErr != nil {
		joined := errors.Join(readErr, closeErr)
		return fmt.Errorf("confluence: read error response: %w", joined)
	}
	if closeErr != nil {
		return fmt.Errorf("confluence: close error response: %w", closeErr)
	}

	var ce Error
	if err := json.Unmarshal(body, &ce); err != nil {
		return &Error{
			StatusCode: resp.StatusCode,
			Reason:     resp.Status,
			Message:    strings.TrimSpace(string(body)),
		}
	}

	if ce.StatusCode == 0 {
		ce.StatusCode = resp.StatusCode
	}
	if ce.Reason == "" {
		ce.Reason = resp.Status
	}
	return &ce
}
