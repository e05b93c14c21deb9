package ai

import "context"

// Generator produces text for a multi-part request.
// All LLM providers (Gemini, OpenAI-compatible) implement this interface.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Request is one model call: an optional system instruction, the user parts
// (text and inline media) and the output mode.
type Request struct {
	System string
	Parts  []Part
	Mode   Mode
}

// Part is either text or an inline binary payload.
type Part struct {
	Text     string
	MIMEType string
	Data     []byte
}

// TextPart builds a text part.
func TextPart(text string) Part {
	return Part{Text: text}
}

// BlobPart builds an inline media part.
func BlobPart(mimeType string, data []byte) Part {
	return Part{MIMEType: mimeType, Data: data}
}

// IsBlob reports whether the part carries binary data.
func (p Part) IsBlob() bool {
	return len(p.Data) > 0
}

// Mode selects how the model is asked to shape its output. Search grounding
// and schema-enforced output cannot be combined in one request, so a request
// carries exactly one of Grounded, Strict or Freeform.
type Mode interface {
	isMode()
}

// Tool names a server-side tool the model may call.
type Tool string

const ToolGoogleSearch Tool = "googleSearch"

// Grounded enables tools. The JSON shape, if any, must be described in the
// prompt text and the reply parsed tolerantly.
type Grounded struct {
	Tools []Tool
}

// Strict requests JSON output validated against Schema.
type Strict struct {
	Schema *Schema
}

// Freeform requests plain text.
type Freeform struct{}

func (Grounded) isMode() {}
func (Strict) isMode()   {}
func (Freeform) isMode() {}
