package analysis

import (
	"context"

	"github.com/kbukum/mediaflow/errors"
	"github.com/kbukum/mediaflow/httpclient"
)

// FaceDetectionBackend calls a face detection model server. The server reads
// the video from object storage itself.
type FaceDetectionBackend struct {
	client *httpclient.Client
}

var _ Backend = (*FaceDetectionBackend)(nil)

// NewFaceDetectionBackend creates a backend on client.
func NewFaceDetectionBackend(client *httpclient.Client) *FaceDetectionBackend {
	return &FaceDetectionBackend{client: client}
}

type faceRequest struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

type faceResponse struct {
	Faces      int   `json:"faces"`
	Detections []any `json:"detections,omitempty"`
}

// Name implements provider.Provider.
func (b *FaceDetectionBackend) Name() string { return "face-detection" }

// IsAvailable implements provider.Provider.
func (b *FaceDetectionBackend) IsAvailable(ctx context.Context) bool {
	return b.client.Ping(ctx, "/health")
}

// Execute returns {"faces": n}.
func (b *FaceDetectionBackend) Execute(ctx context.Context, job Job) (map[string]any, error) {
	bucket, okBucket := job.stringField("bucket")
	key, okKey := job.stringField("key")
	if !okBucket || !okKey {
		return nil, errors.InvalidInput("payload", "face detection needs bucket and key")
	}
	resp, err := httpclient.Post[faceResponse](b.client, ctx, "/detect", faceRequest{Bucket: bucket, Key: key})
	if err != nil {
		return nil, err
	}
	return map[string]any{"faces": resp.Data.Faces}, nil
}
