package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"studybuddy/studybuddy/config"
	"studybuddy/studybuddy/types"
	"studybuddy/studybuddy/utils/logging"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// MinIOClient archives transcripts to an S3-compatible bucket.
type MinIOClient struct {
	client *minio.Client
	bucket string
	now    func() time.Time
}

func NewMinIOClient(ctx context.Context, cfg config.Config) (*MinIOClient, error) {
	if !cfg.MinIOEnabled() {
		return nil, fmt.Errorf("%w: minio is not configured", types.ErrConfiguration)
	}
	client, err := minio.New(
		cfg.MinIOEndpoint,
		&minio.Options{
			Creds:  credentials.NewStaticV4(cfg.MinIOAccessKey, cfg.MinIOSecretKey, ""),
			Secure: cfg.MinIOUseSSL,
		},
	)
	if err != nil {
		return nil, err
	}

	bucket := cfg.MinIOBucket
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, err
		}
		logging.AppLogger.Info("created transcript bucket", zap.String("bucket", bucket))
	}
	return &MinIOClient{client: client, bucket: bucket, now: time.Now}, nil
}

// TranscriptKey is transcripts/<username>/<conversation>-<unix seconds>.jsonl,
// so repeated exports of one conversation never overwrite each other.
func TranscriptKey(username, conversationID string, at time.Time) string {
	base := strings.TrimSuffix(conversationID, ".json")
	return path.Join("transcripts", username, fmt.Sprintf("%s-%d.jsonl", base, at.Unix()))
}

func (m *MinIOClient) UploadTranscript(ctx context.Context, username, conversationID string, data []byte) (string, error) {
	defer logging.LogDuration(ctx, "minio_upload_transcript")()

	key := TranscriptKey(username, conversationID, m.now())
	_, err := m.client.PutObject(ctx, m.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/x-ndjson"})
	if err != nil {
		return "", types.NewExternalServiceError("minio", err)
	}
	return key, nil
}
