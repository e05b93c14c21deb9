package ai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// OpenAIGenerator calls any OpenAI-compatible /v1/chat/completions endpoint.
// Images are sent as data URLs; audio and video parts are rejected. Search
// grounding is not available, so Grounded requests run on the prompt alone.
type OpenAIGenerator struct {
	client *openai.Client
	model  string
}

// NewOpenAIGenerator builds an OpenAI-compatible Generator.
// baseURL should include the /v1 prefix, e.g. "http://localhost:8000/v1".
// apiKey can be empty only for a custom baseURL (local models).
func NewOpenAIGenerator(baseURL, apiKey, model string) (*OpenAIGenerator, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" && baseURL == "" {
		return nil, fmt.Errorf("openai: %w", ErrMissingAPIKey)
	}
	model = strings.TrimSpace(model)
	if model == "" {
		return nil, errors.New("openai generation model required")
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIGenerator{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}, nil
}

// Generate implements Generator using the chat completions API.
func (g *OpenAIGenerator) Generate(ctx context.Context, req Request) (string, error) {
	system := req.System
	chatReq := openai.ChatCompletionRequest{Model: g.model}
	if strict, ok := req.Mode.(Strict); ok {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
		if strict.Schema != nil {
			schema, err := json.Marshal(strict.Schema)
			if err != nil {
				return "", fmt.Errorf("encode schema: %w", err)
			}
			system = strings.TrimSpace(system + "\n\nRespond only with a JSON object matching this schema:\n" + string(schema))
		}
	}

	userParts, err := toOpenAIParts(req.Parts)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(system) != "" {
		chatReq.Messages = append(chatReq.Messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	chatReq.Messages = append(chatReq.Messages, openai.ChatCompletionMessage{
		Role:         openai.ChatMessageRoleUser,
		MultiContent: userParts,
	})

	resp, err := g.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return "", mapOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func toOpenAIParts(parts []Part) ([]openai.ChatMessagePart, error) {
	out := make([]openai.ChatMessagePart, 0, len(parts))
	for _, p := range parts {
		if !p.IsBlob() {
			out = append(out, openai.ChatMessagePart{Type: openai.ChatMessagePartTypeText, Text: p.Text})
			continue
		}
		if !strings.HasPrefix(p.MIMEType, "image/") {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedMedia, p.MIMEType)
		}
		out = append(out, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    "data:" + p.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(p.Data),
				Detail: openai.ImageURLDetailAuto,
			},
		})
	}
	return out, nil
}

func mapOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &APIError{Provider: "openai", Status: apiErr.HTTPStatusCode, Message: apiErr.Message}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode >= 400 {
		return &APIError{Provider: "openai", Status: reqErr.HTTPStatusCode, Message: reqErr.Error()}
	}
	return fmt.Errorf("openai request: %w", err)
}
