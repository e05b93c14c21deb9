package analysis

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Himanshu0815/Youtube-Agent/pkg/ai"
	"github.com/Himanshu0815/Youtube-Agent/pkg/llmjson"
)

var (
	// ErrEmptyResponse indicates the model returned no text.
	ErrEmptyResponse = ai.ErrEmptyResponse
	// ErrMalformedResponse indicates no JSON object could be recovered.
	ErrMalformedResponse = llmjson.ErrMalformedResponse
	// ErrContextUnavailable indicates a question was asked before its
	// knowledge context existed.
	ErrContextUnavailable = errors.New("knowledge context unavailable")
	// ErrTooLarge indicates an upload exceeded the admission limit.
	ErrTooLarge = errors.New("upload exceeds size limit")
)

// ConfigurationError reports missing or rejected credentials. It is fatal and
// not worth retrying.
type ConfigurationError struct {
	Err error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %v", e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// ValidationError reports bad input detected before any network call.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// MismatchError reports that the model analyzed a different video than the
// one requested.
type MismatchError struct {
	RequestedID string
	ResolvedID  string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("video mismatch: requested %s, model resolved %s", e.RequestedID, e.ResolvedID)
}

func (e *MismatchError) Remediation() string {
	return "The model analyzed a different video than the one requested. Paste the transcript or upload the file instead."
}

// NotFoundError reports that the model could not locate the requested video.
type NotFoundError struct {
	RequestedID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("video not found: %s", e.RequestedID)
}

func (e *NotFoundError) Remediation() string {
	return "The model could not find this video. Check that it is public, or paste its transcript instead."
}

// NetworkError wraps a transport failure of the primary generation call.
type NetworkError struct {
	Err      error
	tooLarge bool
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("model request failed: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// TooLarge reports whether the failure looks like a rejected payload size.
func (e *NetworkError) TooLarge() bool { return e.tooLarge }

func (e *NetworkError) Remediation() string {
	if e.tooLarge {
		return "The upload was too large for the model. Try a smaller file."
	}
	return "Could not reach the model. Please try again."
}

// classify maps a Generator error onto the analysis taxonomy.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, ai.ErrEmptyResponse) {
		return err
	}
	if errors.Is(err, ai.ErrMissingAPIKey) {
		return &ConfigurationError{Err: err}
	}
	var apiErr *ai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Status {
		case http.StatusUnauthorized, http.StatusForbidden:
			return &ConfigurationError{Err: err}
		}
		return &NetworkError{Err: err, tooLarge: apiErr.TooLarge() || looksTooLarge(apiErr.Message)}
	}
	return &NetworkError{Err: err, tooLarge: looksTooLarge(err.Error())}
}

func looksTooLarge(msg string) bool {
	msg = strings.ToLower(msg)
	for _, hint := range []string{"too large", "payload size", "request entity", "exceeds the maximum"} {
		if strings.Contains(msg, hint) {
			return true
		}
	}
	return false
}
