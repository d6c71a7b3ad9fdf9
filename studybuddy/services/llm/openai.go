package llm

import (
	"context"
	"encoding/json"
	"errors"

	"studybuddy/studybuddy/types"
	httputils "studybuddy/studybuddy/utils/http"
	"studybuddy/studybuddy/utils/logging"
)

const (
	openAIBaseURL = "https://api.openai.com/v1"
	groqBaseURL   = "https://api.groq.com/openai/v1"
)

// OpenAIClient talks to any OpenAI-compatible chat completions endpoint
// (OpenAI itself, Groq).
type OpenAIClient struct {
	name    string
	apiKey  string
	baseURL string
	model   string
}

func NewOpenAIClient(name, apiKey, baseURL, model string) *OpenAIClient {
	return &OpenAIClient{name: name, apiKey: apiKey, baseURL: baseURL, model: model}
}

type openAIRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

type openAIResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

type openAIStreamResponse struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

var errNoChoices = errors.New("no choices returned")

func (c *OpenAIClient) Name() string { return c.name }

func (c *OpenAIClient) url() string { return c.baseURL + "/chat/completions" }

func (c *OpenAIClient) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + c.apiKey}
}

func (c *OpenAIClient) request(req ChatRequest, stream bool) openAIRequest {
	return openAIRequest{
		Model:    orDefault(req.Model, c.model),
		Messages: toWire(req.Messages),
		Stream:   stream,
	}
}

// Run executes a single non-streaming completion.
func (c *OpenAIClient) Run(ctx context.Context, req ChatRequest) (string, error) {
	defer logging.LogDuration(ctx, c.name+"_service_run")()

	var parsed openAIResponse
	if err := httputils.PostJSON(ctx, c.url(), c.headers(), c.request(req, false), &parsed); err != nil {
		return "", types.NewExternalServiceError(c.name, err)
	}
	if len(parsed.Choices) == 0 {
		return "", types.NewExternalServiceError(c.name, errNoChoices)
	}
	return parsed.Choices[0].Message.Content, nil
}

func (c *OpenAIClient) RunStream(ctx context.Context, req ChatRequest) (<-chan Chunk, error) {
	defer logging.LogDuration(ctx, c.name+"_service_run_stream")()

	body, err := httputils.PostStream(ctx, c.url(), c.headers(), c.request(req, true))
	if err != nil {
		return nil, types.NewExternalServiceError(c.name, err)
	}

	ch := make(chan Chunk)
	go readSSE(ctx, c.name, body, ch, func(data []byte) (string, error) {
		var chunk openAIStreamResponse
		if err := json.Unmarshal(data, &chunk); err != nil {
			return "", err
		}
		var text string
		for _, choice := range chunk.Choices {
			text += choice.Delta.Content
		}
		return text, nil
	})
	return ch, nil
}
