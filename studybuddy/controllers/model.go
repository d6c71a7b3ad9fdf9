package controllers

import (
	"context"
	"errors"
	"time"

	"studybuddy/studybuddy/services/llm"
	"studybuddy/studybuddy/types"
	"studybuddy/studybuddy/utils/logging"

	"go.uber.org/zap"
)

// modelContext detaches the model call from the caller so a client that
// hangs up does not lose a reply that is already being generated. timeout
// of zero leaves the call bounded only by the HTTP client.
func modelContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	detached := context.WithoutCancel(ctx)
	if timeout > 0 {
		return context.WithTimeout(detached, timeout)
	}
	return context.WithCancel(detached)
}

func runModel(ctx context.Context, client llm.Client, timeout time.Duration, msgs []types.Message) (string, error) {
	callCtx, cancel := modelContext(ctx, timeout)
	defer cancel()

	reply, err := client.Run(callCtx, llm.ChatRequest{Messages: msgs})
	if err != nil {
		return "", modelError(client, err)
	}
	return reply, nil
}

// streamModel forwards chunks to onChunk as they arrive. A failing onChunk
// (a closed socket) stops forwarding but not the call itself.
func streamModel(ctx context.Context, client llm.Client, timeout time.Duration, msgs []types.Message, onChunk func(string) error) (string, error) {
	callCtx, cancel := modelContext(ctx, timeout)
	defer cancel()

	ch, err := client.RunStream(callCtx, llm.ChatRequest{Messages: msgs})
	if err != nil {
		return "", modelError(client, err)
	}

	forward := onChunk != nil
	wrapped := make(chan llm.Chunk)
	go func() {
		defer close(wrapped)
		for c := range ch {
			if forward && c.Err == nil && c.Content != "" {
				if err := onChunk(c.Content); err != nil {
					logging.AppLogger.Info("stream consumer gone, finishing reply in background", zap.Error(err))
					forward = false
				}
			}
			wrapped <- c
		}
	}()

	reply, err := llm.Collect(wrapped)
	if err != nil {
		return "", modelError(client, err)
	}
	return reply, nil
}

func modelError(client llm.Client, err error) error {
	logging.ErrorLogger.Error("model call failed", zap.String("provider", client.Name()), zap.Error(err))
	if errors.Is(err, types.ErrExternalService) {
		return err
	}
	return types.NewExternalServiceError(client.Name(), err)
}
