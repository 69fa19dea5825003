package imagehost

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	puts      map[string]string
	deleted   []string
	deleteErr error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.puts[*in.Key] = string(body)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) UploadPart(context.Context, *s3.UploadPartInput, ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	return nil, errors.New("multipart not expected")
}

func (f *fakeS3) CreateMultipartUpload(context.Context, *s3.CreateMultipartUploadInput, ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	return nil, errors.New("multipart not expected")
}

func (f *fakeS3) CompleteMultipartUpload(context.Context, *s3.CompleteMultipartUploadInput, ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	return nil, errors.New("multipart not expected")
}

func (f *fakeS3) AbortMultipartUpload(context.Context, *s3.AbortMultipartUploadInput, ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	return nil, errors.New("multipart not expected")
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deleted = append(f.deleted, *in.Key)
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3UploadUsesFolderAndPublicURL(t *testing.T) {
	fake := &fakeS3{puts: map[string]string{}}
	host := NewS3(fake, "books", "https://cdn.example.com/")

	img, err := host.Upload(context.Background(), FolderAvatars, "../me.png", "image/png", strings.NewReader("png-bytes"))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(img.PublicID, "avatars/"))
	assert.True(t, strings.HasSuffix(img.PublicID, "-me.png"))
	assert.Equal(t, "https://cdn.example.com/"+img.PublicID, img.URL)
	assert.Equal(t, "png-bytes", fake.puts[img.PublicID])
}

func TestS3DestroyIsIdempotent(t *testing.T) {
	fake := &fakeS3{puts: map[string]string{}}
	host := NewS3(fake, "books", "")

	assert.NoError(t, host.Destroy(context.Background(), ""))
	assert.Empty(t, fake.deleted)

	fake.deleteErr = &smithy.GenericAPIError{Code: "NoSuchKey", Message: "gone"}
	assert.NoError(t, host.Destroy(context.Background(), "products/x.png"))

	fake.deleteErr = &smithy.GenericAPIError{Code: "AccessDenied", Message: "nope"}
	assert.Error(t, host.Destroy(context.Background(), "products/x.png"))
	assert.Equal(t, []string{"products/x.png", "products/x.png"}, fake.deleted)
}

func TestMemoryHost(t *testing.T) {
	host := NewMemory()
	img, err := host.Upload(context.Background(), FolderProducts, "cover.jpg", "image/jpeg", strings.NewReader("jpg"))
	require.NoError(t, err)
	assert.True(t, host.Has(img.PublicID))

	require.NoError(t, host.Destroy(context.Background(), img.PublicID))
	require.NoError(t, host.Destroy(context.Background(), img.PublicID))
	assert.Equal(t, 0, host.Len())
}
