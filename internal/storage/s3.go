// Package storage puts meal photos and exported logs into S3.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// putObjectAPI is the slice of the S3 client this package uses.
type putObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store uploads objects and returns their public URL.
type S3Store struct {
	client     putObjectAPI
	region     string
	publicBase string
}

// NewS3Store loads AWS credentials from the default chain.  publicBase, when
// set (e.g. a CloudFront domain), replaces the virtual-hosted bucket URL.
func NewS3Store(ctx context.Context, region, publicBase string) (*S3Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return newS3Store(s3.NewFromConfig(cfg), region, publicBase), nil
}

func newS3Store(client putObjectAPI, region, publicBase string) *S3Store {
	return &S3Store{client: client, region: region, publicBase: strings.TrimRight(publicBase, "/")}
}

// Store writes data under bucket/key and returns the URL clients can fetch.
func (s *S3Store) Store(ctx context.Context, data []byte, bucket, key string) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType(key, data)),
	})
	if err != nil {
		return "", fmt.Errorf("put s3://%s/%s: %w", bucket, key, err)
	}
	return s.PublicURL(bucket, key), nil
}

// PublicURL builds the object URL without contacting S3.
func (s *S3Store) PublicURL(bucket, key string) string {
	if s.publicBase != "" {
		return s.publicBase + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, s.region, key)
}

func contentType(key string, data []byte) string {
	if path.Ext(key) == ".txt" {
		return "text/plain; charset=utf-8"
	}
	return http.DetectContentType(data)
}
