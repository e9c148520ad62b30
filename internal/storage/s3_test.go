package storage

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePutter struct {
	in   *s3.PutObjectInput
	body []byte
	err  error
}

func (f *fakePutter) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.in = in
	f.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, f.err
}

func TestS3Store_Store(t *testing.T) {
	fake := &fakePutter{}
	store := newS3Store(fake, "ap-northeast-2", "")
	jpeg := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0x10, 'J', 'F', 'I', 'F'}

	url, err := store.Store(context.Background(), jpeg, "meals-bucket", "meals/abc.jpg")
	require.NoError(t, err)
	assert.Equal(t, "https://meals-bucket.s3.ap-northeast-2.amazonaws.com/meals/abc.jpg", url)
	assert.Equal(t, "meals-bucket", aws.ToString(fake.in.Bucket))
	assert.Equal(t, "meals/abc.jpg", aws.ToString(fake.in.Key))
	assert.Equal(t, "image/jpeg", aws.ToString(fake.in.ContentType))
	assert.Equal(t, jpeg, fake.body)
}

func TestS3Store_PublicBaseAndErrors(t *testing.T) {
	fake := &fakePutter{}
	store := newS3Store(fake, "us-east-1", "https://cdn.example.com/")

	url, err := store.Store(context.Background(), []byte("line\n"), "b", "logs/2024-03-09-requests.txt")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/logs/2024-03-09-requests.txt", url)
	assert.Equal(t, "text/plain; charset=utf-8", aws.ToString(fake.in.ContentType))

	fake.err = errors.New("access denied")
	_, err = store.Store(context.Background(), []byte("x"), "b", "k")
	assert.ErrorContains(t, err, "access denied")
}
