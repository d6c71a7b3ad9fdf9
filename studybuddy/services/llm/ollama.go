// studybuddy/services/llm/ollama.go
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	"studybuddy/studybuddy/types"
	httputils "studybuddy/studybuddy/utils/http"
	"studybuddy/studybuddy/utils/logging"

	"go.uber.org/zap"
)

type OllamaClient struct {
	baseURL string
	model   string
}

func NewOllamaClient(baseURL, model string) *OllamaClient {
	return &OllamaClient{
		baseURL: orDefault(baseURL, "http://localhost:11434/api"),
		model:   orDefault(model, "llama3"),
	}
}

type ollamaRequest struct {
	Model    string                 `json:"model"`
	Messages []Message              `json:"messages"`
	Stream   bool                   `json:"stream"`
	Options  map[string]interface{} `json:"options,omitempty"`
}

type ollamaResponse struct {
	Message Message `json:"message"`
	Done    bool    `json:"done"`
	Error   string  `json:"error,omitempty"`
}

func (c *OllamaClient) Name() string { return ProviderOllama }

func (c *OllamaClient) request(req ChatRequest, stream bool) ollamaRequest {
	return ollamaRequest{
		Model:    orDefault(req.Model, c.model),
		Messages: toWire(req.Messages),
		Stream:   stream,
		Options:  req.Options,
	}
}

func (c *OllamaClient) Run(ctx context.Context, req ChatRequest) (string, error) {
	defer logging.LogDuration(ctx, "ollama_service_run")()
	var resp ollamaResponse
	if err := httputils.PostJSON(ctx, c.baseURL+"/chat", nil, c.request(req, false), &resp); err != nil {
		return "", types.NewExternalServiceError(c.Name(), err)
	}
	return resp.Message.Content, nil
}

// RunStream reads Ollama's newline-delimited JSON stream.
func (c *OllamaClient) RunStream(ctx context.Context, req ChatRequest) (<-chan Chunk, error) {
	defer logging.LogDuration(ctx, "ollama_service_run_stream")()

	body, err := httputils.PostStream(ctx, c.baseURL+"/chat", nil, c.request(req, true))
	if err != nil {
		return nil, types.NewExternalServiceError(c.Name(), err)
	}

	ch := make(chan Chunk)

	go func() {
		defer func() {
			close(ch)
			body.Close()
		}()

		decoder := json.NewDecoder(body)
		for {
			select {
			case <-ctx.Done():
				logging.AppLogger.Info("ollama RunStream context cancelled")
				return
			default:
			}

			var chunk ollamaResponse
			if err := decoder.Decode(&chunk); err != nil {
				if err == io.EOF {
					return
				}
				logging.ErrorLogger.Error("ollama stream decode error", zap.Error(err))
				send(ctx, ch, Chunk{Err: types.NewExternalServiceError(c.Name(), err)})
				return
			}
			if chunk.Error != "" {
				send(ctx, ch, Chunk{Err: types.NewExternalServiceError(c.Name(), errors.New(chunk.Error))})
				return
			}
			if chunk.Message.Content != "" && !send(ctx, ch, Chunk{Content: chunk.Message.Content}) {
				return
			}
			if chunk.Done {
				return
			}
		}
	}()

	return ch, nil
}
