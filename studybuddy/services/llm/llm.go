// studybuddy/services/llm/llm.go
package llm

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"studybuddy/studybuddy/config"
	"studybuddy/studybuddy/types"
	"studybuddy/studybuddy/utils/logging"

	"go.uber.org/zap"
)

// Client is a chat model. Run blocks until the full reply is available;
// RunStream delivers it in pieces and closes the channel when done. A stream
// failure arrives as a final Chunk with Err set.
type Client interface {
	Name() string
	Run(ctx context.Context, req ChatRequest) (string, error)
	RunStream(ctx context.Context, req ChatRequest) (<-chan Chunk, error)
}

type ChatRequest struct {
	Model    string
	Messages []types.Message
	Options  map[string]interface{}
}

type Chunk struct {
	Content string
	Err     error
}

// Message is the role/content pair shared by the OpenAI and Ollama wire formats.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func toWire(msgs []types.Message) []Message {
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[i] = Message{Role: m.Role, Content: m.Content}
	}
	return out
}

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderGroq   = "groq"
	ProviderOllama = "ollama"
)

// NewClient builds the client named by cfg.LLMProvider. Hosted providers
// need an API key; without one the caller gets a configuration error and the
// chat features stay disabled.
func NewClient(cfg config.Config) (Client, error) {
	needsKey := cfg.LLMProvider != ProviderOllama
	if needsKey && cfg.LLMAPIKey == "" {
		return nil, fmt.Errorf("%w: no API key for llm provider %q", types.ErrConfiguration, cfg.LLMProvider)
	}

	switch cfg.LLMProvider {
	case ProviderGemini:
		return NewGeminiClient(cfg.LLMAPIKey, cfg.LLMBaseURL, cfg.LLMModel), nil
	case ProviderOpenAI:
		return NewOpenAIClient(ProviderOpenAI, cfg.LLMAPIKey, orDefault(cfg.LLMBaseURL, openAIBaseURL), orDefault(cfg.LLMModel, "gpt-4o-mini")), nil
	case ProviderGroq:
		return NewOpenAIClient(ProviderGroq, cfg.LLMAPIKey, orDefault(cfg.LLMBaseURL, groqBaseURL), orDefault(cfg.LLMModel, "llama-3.1-8b-instant")), nil
	case ProviderOllama:
		return NewOllamaClient(cfg.LLMBaseURL, cfg.LLMModel), nil
	default:
		return nil, fmt.Errorf("%w: unknown llm provider %q", types.ErrConfiguration, cfg.LLMProvider)
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// readSSE feeds every "data:" payload of an event stream to decode and
// forwards non-empty text. It stops at EOF, on "[DONE]", or when ctx ends.
func readSSE(ctx context.Context, service string, body io.ReadCloser, ch chan<- Chunk, decode func([]byte) (string, error)) {
	defer func() {
		close(ch)
		body.Close()
	}()

	reader := bufio.NewReader(body)
	for {
		select {
		case <-ctx.Done():
			logging.AppLogger.Info("llm stream context cancelled", zap.String("service", service))
			send(ctx, ch, Chunk{Err: types.NewExternalServiceError(service, ctx.Err())})
			return
		default:
		}

		line, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			logging.ErrorLogger.Error("llm stream read error", zap.String("service", service), zap.Error(err))
			send(ctx, ch, Chunk{Err: types.NewExternalServiceError(service, err)})
			return
		}
		eof := err == io.EOF

		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "data:") {
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == "[DONE]" {
				return
			}
			text, derr := decode([]byte(data))
			if derr != nil {
				logging.ErrorLogger.Error("llm stream JSON parse error",
					zap.String("service", service), zap.Error(derr), zap.String("raw_line", data))
				send(ctx, ch, Chunk{Err: types.NewExternalServiceError(service, derr)})
				return
			}
			if text != "" && !send(ctx, ch, Chunk{Content: text}) {
				return
			}
		}
		if eof {
			return
		}
	}
}

func send(ctx context.Context, ch chan<- Chunk, c Chunk) bool {
	select {
	case ch <- c:
		return true
	case <-ctx.Done():
		return false
	}
}

// Collect drains a stream into a single string, stopping at the first error.
func Collect(ch <-chan Chunk) (string, error) {
	var b strings.Builder
	var firstErr error
	for c := range ch {
		if c.Err != nil {
			if firstErr == nil {
				firstErr = c.Err
			}
			continue
		}
		if firstErr == nil {
			b.WriteString(c.Content)
		}
	}
	if firstErr != nil {
		return "", firstErr
	}
	return b.String(), nil
}
