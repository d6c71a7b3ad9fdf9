package llm

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"studybuddy/studybuddy/types"
	httputils "studybuddy/studybuddy/utils/http"
	"studybuddy/studybuddy/utils/logging"
)

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

type GeminiClient struct {
	apiKey  string
	baseURL string
	model   string
}

func NewGeminiClient(apiKey, baseURL, model string) *GeminiClient {
	return &GeminiClient{
		apiKey:  apiKey,
		baseURL: orDefault(baseURL, geminiBaseURL),
		model:   orDefault(model, "gemini-1.5-flash-latest"),
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
}

var errNoCandidates = errors.New("no candidates returned")

func (r geminiResponse) text() (string, error) {
	if len(r.Candidates) == 0 {
		if r.PromptFeedback != nil && r.PromptFeedback.BlockReason != "" {
			return "", errors.New("prompt blocked: " + r.PromptFeedback.BlockReason)
		}
		return "", errNoCandidates
	}
	var b strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String(), nil
}

func (c *GeminiClient) Name() string { return ProviderGemini }

func (c *GeminiClient) headers() map[string]string {
	return map[string]string{"x-goog-api-key": c.apiKey}
}

func (c *GeminiClient) url(req ChatRequest, method string) string {
	return c.baseURL + "/models/" + orDefault(req.Model, c.model) + ":" + method
}

// Gemini calls the assistant role "model".
func (c *GeminiClient) request(req ChatRequest) geminiRequest {
	contents := make([]geminiContent, len(req.Messages))
	for i, m := range req.Messages {
		role := m.Role
		if role == types.RoleAssistant {
			role = "model"
		}
		contents[i] = geminiContent{Role: role, Parts: []geminiPart{{Text: m.Content}}}
	}
	return geminiRequest{Contents: contents}
}

func (c *GeminiClient) Run(ctx context.Context, req ChatRequest) (string, error) {
	defer logging.LogDuration(ctx, "gemini_service_run")()

	var resp geminiResponse
	if err := httputils.PostJSON(ctx, c.url(req, "generateContent"), c.headers(), c.request(req), &resp); err != nil {
		return "", types.NewExternalServiceError(c.Name(), err)
	}
	text, err := resp.text()
	if err != nil {
		return "", types.NewExternalServiceError(c.Name(), err)
	}
	return text, nil
}

func (c *GeminiClient) RunStream(ctx context.Context, req ChatRequest) (<-chan Chunk, error) {
	defer logging.LogDuration(ctx, "gemini_service_run_stream")()

	body, err := httputils.PostStream(ctx, c.url(req, "streamGenerateContent?alt=sse"), c.headers(), c.request(req))
	if err != nil {
		return nil, types.NewExternalServiceError(c.Name(), err)
	}

	ch := make(chan Chunk)
	go readSSE(ctx, c.Name(), body, ch, func(data []byte) (string, error) {
		var resp geminiResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			return "", err
		}
		// The last event may carry only a finish reason.
		if len(resp.Candidates) == 0 && resp.PromptFeedback == nil {
			return "", nil
		}
		return resp.text()
	})
	return ch, nil
}
