// Package imagehost stores product images and user avatars.
package imagehost

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"

	"bookstore-backend/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"
)

const (
	FolderAvatars  = "avatars"
	FolderProducts = "products"
)

type Host interface {
	Upload(ctx context.Context, folder, filename, contentType string, body io.Reader) (models.Image, error)
	// Destroy removes an image. Unknown or empty ids are not an error.
	Destroy(ctx context.Context, publicID string) error
}

// S3API is the subset of the S3 client used by the host.
type S3API interface {
	manager.UploadAPIClient
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type S3 struct {
	client    S3API
	uploader  *manager.Uploader
	bucket    string
	publicURL string
}

// NewS3FromEnv builds a host from the default AWS credential chain.
func NewS3FromEnv(ctx context.Context, bucket, publicURL string) (*S3, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("error loading AWS config: %w", err)
	}
	return NewS3(s3.NewFromConfig(cfg), bucket, publicURL), nil
}

func NewS3(client S3API, bucket, publicURL string) *S3 {
	return &S3{
		client:    client,
		uploader:  manager.NewUploader(client),
		bucket:    bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
	}
}

func objectKey(folder, filename string) string {
	return folder + "/" + uuid.NewString() + "-" + path.Base(filename)
}

func (h *S3) Upload(ctx context.Context, folder, filename, contentType string, body io.Reader) (models.Image, error) {
	key := objectKey(folder, filename)
	out, err := h.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(h.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return models.Image{}, fmt.Errorf("upload %s: %w", filename, err)
	}

	url := out.Location
	if h.publicURL != "" {
		url = h.publicURL + "/" + key
	}
	return models.Image{URL: url, PublicID: key}, nil
}

func (h *S3) Destroy(ctx context.Context, publicID string) error {
	if publicID == "" {
		return nil
	}
	_, err := h.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(h.bucket),
		Key:    aws.String(publicID),
	})
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchKey" {
		return nil
	}
	if err != nil {
		return fmt.Errorf("destroy %s: %w", publicID, err)
	}
	return nil
}

// Memory keeps images in process. It backs tests and local runs without a bucket.
type Memory struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{objects: make(map[string][]byte)}
}

func (m *Memory) Upload(_ context.Context, folder, filename, _ string, body io.Reader) (models.Image, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return models.Image{}, fmt.Errorf("upload %s: %w", filename, err)
	}
	key := objectKey(folder, filename)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return models.Image{URL: "memory://" + key, PublicID: key}, nil
}

func (m *Memory) Destroy(_ context.Context, publicID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, publicID)
	return nil
}

func (m *Memory) Has(publicID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[publicID]
	return ok
}

func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}
