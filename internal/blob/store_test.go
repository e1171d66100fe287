package blob

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medforce/clinic-sim/pkg/logging"
)

// fakeS3 implements S3API in memory.
type fakeS3 struct {
	objects map[string][]byte
	putErr  error
	getErr  error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(string(data)))}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	var contents []s3types.Object
	for key := range f.objects {
		if strings.HasPrefix(key, aws.ToString(in.Prefix)) {
			contents = append(contents, s3types.Object{Key: aws.String(key)})
		}
	}
	truncated := false
	return &s3.ListObjectsV2Output{Contents: contents, IsTruncated: &truncated}, nil
}

func TestWriteThenRead(t *testing.T) {
	store := NewStore(newFakeS3(), "clinic-sim", logging.New("error"))
	ctx := context.Background()

	err := store.Write(ctx, "patient_data/p1/basic_info.json", []byte(`{"name":"A"}`), "application/json")
	require.NoError(t, err)

	data, err := store.Read(ctx, "patient_data/p1/basic_info.json")
	require.NoError(t, err)
	assert.Equal(t, `{"name":"A"}`, string(data))
}

func TestReadMissingReturnsErrNotFound(t *testing.T) {
	store := NewStore(newFakeS3(), "clinic-sim", logging.New("error"))

	_, err := store.Read(context.Background(), "patient_data/nope/pre_consultation_chat.json")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteMissingIsNoError(t *testing.T) {
	store := NewStore(newFakeS3(), "clinic-sim", logging.New("error"))
	assert.NoError(t, store.Delete(context.Background(), "patient_data/nope/x.txt"))
}

func TestListFiltersByPrefix(t *testing.T) {
	fake := newFakeS3()
	store := NewStore(fake, "clinic-sim", logging.New("error"))
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, "patient_data/p1/a.txt", []byte("a"), "text/plain"))
	require.NoError(t, store.Write(ctx, "patient_data/p2/b.txt", []byte("b"), "text/plain"))
	require.NoError(t, store.Write(ctx, "other/c.txt", []byte("c"), "text/plain"))

	keys, err := store.List(ctx, "patient_data/")
	require.NoError(t, err)
	assert.Len(t, keys, 2)
	for _, k := range keys {
		assert.True(t, strings.HasPrefix(k, "patient_data/"))
	}
}

func TestReadWrapsTransportErrors(t *testing.T) {
	fake := newFakeS3()
	fake.getErr = errors.New("connection reset")
	store := NewStore(fake, "clinic-sim", logging.New("error"))

	_, err := store.Read(context.Background(), "patient_data/p1/a.txt")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}
