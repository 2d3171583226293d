package s3store

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CaioWing/checkpoint/internal/domain"
	"github.com/CaioWing/checkpoint/internal/storage"
)

type fakeBucket struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newFakeBucket() *fakeBucket {
	return &fakeBucket{objects: make(map[string][]byte)}
}

func (f *fakeBucket) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeBucket) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[aws.ToString(in.Key)]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeBucket) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeBucket) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := &s3.ListObjectsV2Output{}
	for k := range f.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
		}
	}
	return out, nil
}

func newTestStore(t *testing.T) (*S3Store, *fakeBucket) {
	t.Helper()
	bucket := newFakeBucket()
	s, err := newWithClient(bucket, Config{Bucket: "photos", PublicURL: "https://cdn.example.com/photos"})
	require.NoError(t, err)
	return s, bucket
}

func TestS3Save(t *testing.T) {
	s, bucket := newTestStore(t)

	url, err := s.Save(context.Background(), &storage.Photo{
		Name:        "scan.png",
		ContentType: "image/png",
		Body:        strings.NewReader("png"),
	}, "dev-9")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/photos/dev-9.png", url)
	assert.Equal(t, []byte("png"), bucket.objects["dev-9.png"])
}

func TestS3Save_PutFailure(t *testing.T) {
	s, bucket := newTestStore(t)
	bucket.putErr = errors.New("access denied")

	_, err := s.Save(context.Background(), &storage.Photo{Name: "scan.png", Body: strings.NewReader("x")}, "dev-9")
	assert.ErrorIs(t, err, domain.ErrUploadFailed)
}

func TestS3LookupAndDelete(t *testing.T) {
	s, bucket := newTestStore(t)
	ctx := context.Background()
	bucket.objects["dev-9.png"] = []byte("x")
	bucket.objects["dev-90.png"] = []byte("y")

	url, ok := s.Lookup(ctx, "dev-9", "")
	assert.True(t, ok)
	assert.Equal(t, "https://cdn.example.com/photos/dev-9.png", url)

	_, ok = s.Lookup(ctx, "dev-9", "jpg")
	assert.False(t, ok)

	assert.True(t, s.Delete(ctx, "dev-9"))
	assert.False(t, s.Delete(ctx, "dev-9"))
	assert.Contains(t, bucket.objects, "dev-90.png")
}

func TestNew_RequiresBucket(t *testing.T) {
	_, err := newWithClient(newFakeBucket(), Config{})
	assert.Error(t, err)
}
