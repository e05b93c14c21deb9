package llmjson

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// ErrMalformedResponse indicates no JSON object could be recovered from the
// model output.
var ErrMalformedResponse = errors.New("malformed model response")

var (
	errNoObject  = errors.New("no JSON object found")
	errNotObject = errors.New("JSON value is not an object")
)

const snippetLen = 200

// MalformedResponseError carries the size and a leading snippet of the raw
// text for diagnostics.
type MalformedResponseError struct {
	Size    int
	Snippet string
	Err     error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed model response (%d bytes): %v", e.Size, e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

func (e *MalformedResponseError) Is(target error) bool {
	return target == ErrMalformedResponse
}

func malformed(raw string, err error) error {
	snippet := raw
	if len(snippet) > snippetLen {
		cut := snippetLen
		for cut > 0 && !utf8.RuneStart(snippet[cut]) {
			cut--
		}
		snippet = snippet[:cut] + "…"
	}
	return &MalformedResponseError{Size: len(raw), Snippet: snippet, Err: err}
}
