package storage

import (
	"context"
	"testing"
	"time"

	"studybuddy/studybuddy/config"
	"studybuddy/studybuddy/types"

	"github.com/stretchr/testify/assert"
)

func TestTranscriptKey(t *testing.T) {
	at := time.Unix(1704099600, 0)
	assert.Equal(t, "transcripts/alice/chat_20240101_090000-1704099600.jsonl",
		TranscriptKey("alice", "chat_20240101_090000.json", at))
}

func TestNewMinIOClient_NotConfigured(t *testing.T) {
	_, err := NewMinIOClient(context.Background(), config.Defaults())
	assert.ErrorIs(t, err, types.ErrConfiguration)
}
