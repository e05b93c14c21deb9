package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiClient calls the Google AI Studio (Gemini) API.
type GeminiClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// GeminiOption customizes a GeminiClient.
type GeminiOption func(*GeminiClient)

// WithGeminiBaseURL points the client at another endpoint (tests, proxies).
func WithGeminiBaseURL(baseURL string) GeminiOption {
	return func(c *GeminiClient) {
		if baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/"); baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

// WithGeminiTimeout overrides the HTTP timeout. Media uploads need more than
// the default text budget.
func WithGeminiTimeout(timeout time.Duration) GeminiOption {
	return func(c *GeminiClient) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// NewGeminiClient constructs a client with the provided API key.
func NewGeminiClient(apiKey string, opts ...GeminiOption) (*GeminiClient, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: %w", ErrMissingAPIKey)
	}
	c := &GeminiClient{
		apiKey:     apiKey,
		baseURL:    defaultGeminiBaseURL,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// GenerateContent returns the generated text for a request. Text from all
// parts of the first candidate is concatenated; grounded replies are often
// split across parts.
func (c *GeminiClient) GenerateContent(ctx context.Context, model string, req Request) (string, error) {
	reqBody := generateRequest{
		Contents: []content{
			{
				Role:  "user",
				Parts: toGeminiParts(req.Parts),
			},
		},
	}
	if strings.TrimSpace(req.System) != "" {
		reqBody.SystemInstruction = &content{
			Parts: []part{{Text: req.System}},
		}
	}
	switch mode := req.Mode.(type) {
	case Grounded:
		for _, tool := range mode.Tools {
			if tool == ToolGoogleSearch {
				reqBody.Tools = append(reqBody.Tools, geminiTool{GoogleSearch: &struct{}{}})
			}
		}
	case Strict:
		reqBody.GenerationConfig = &generationConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   mode.Schema,
		}
	}

	var resp generateResponse
	if err := c.doJSON(ctx, fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, normalizeModel(model)), reqBody, &resp); err != nil {
		return "", err
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", &APIError{Provider: "gemini", Status: http.StatusUnprocessableEntity, Message: "prompt blocked: " + resp.PromptFeedback.BlockReason}
	}
	if len(resp.Candidates) == 0 {
		return "", ErrEmptyResponse
	}
	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func toGeminiParts(parts []Part) []part {
	out := make([]part, 0, len(parts))
	for _, p := range parts {
		if p.IsBlob() {
			out = append(out, part{InlineData: &blob{MIMEType: p.MIMEType, Data: p.Data}})
			continue
		}
		out = append(out, part{Text: p.Text})
	}
	return out
}

func normalizeModel(model string) string {
	model = strings.TrimSpace(model)
	model = strings.TrimPrefix(model, "models/")
	return model
}

func (c *GeminiClient) doJSON(ctx context.Context, url string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	// The key travels in a header so transport errors, which quote the URL,
	// never carry it.
	req.Header.Set("x-goog-api-key", c.apiKey)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gemini request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var errResp errorResponse
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		return &APIError{Provider: "gemini", Status: resp.StatusCode, Message: errResp.Error.Message}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("gemini decode: %w", err)
	}
	return nil
}

// blob data is base64-encoded by encoding/json, which is what the API expects.
type blob struct {
	MIMEType string `json:"mimeType"`
	Data     []byte `json:"data"`
}

type part struct {
	Text       string `json:"text,omitempty"`
	InlineData *blob  `json:"inlineData,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type geminiTool struct {
	GoogleSearch *struct{} `json:"googleSearch,omitempty"`
}

type generationConfig struct {
	ResponseMIMEType string  `json:"responseMimeType,omitempty"`
	ResponseSchema   *Schema `json:"responseSchema,omitempty"`
}

type generateRequest struct {
	Contents          []content         `json:"contents"`
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	Tools             []geminiTool      `json:"tools,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}
