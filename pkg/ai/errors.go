package ai

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrMissingAPIKey is a configuration error: the provider cannot be used
	// and retrying will not help.
	ErrMissingAPIKey = errors.New("model api key required")
	// ErrEmptyResponse indicates the model returned no text.
	ErrEmptyResponse = errors.New("empty response from model")
	// ErrUnsupportedMedia indicates the provider cannot accept a media part.
	ErrUnsupportedMedia = errors.New("provider does not support this media type")
)

// APIError is a non-2xx reply from the model endpoint.
type APIError struct {
	Provider string
	Status   int
	Message  string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s api error: %s", e.Provider, e.Message)
	}
	return fmt.Sprintf("%s api error: %s", e.Provider, http.StatusText(e.Status))
}

// TooLarge reports whether the endpoint rejected the payload size.
func (e *APIError) TooLarge() bool {
	return e.Status == http.StatusRequestEntityTooLarge
}
