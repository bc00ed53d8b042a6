package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type s3Client interface {
	GetObject(context.Context, *s3.GetObjectInput, ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(context.Context, *s3.PutObjectInput, ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3OrderStore implements OrderStore backed by S3, one object per order under prefix.
type S3OrderStore struct {
	bucket string
	prefix string
	s3     s3Client
}

func NewS3OrderStore(client s3Client, bucket, prefix string) *S3OrderStore {
	return &S3OrderStore{
		bucket: bucket,
		prefix: prefix,
		s3:     client,
	}
}

func (s *S3OrderStore) key(id string) string {
	return path.Join(s.prefix, id+".json")
}

func (s *S3OrderStore) Get(ctx context.Context, id string) ([]byte, error) {
	resp, err := s.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(id)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("order %q: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get order object from S3: %w", err)
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

func (s *S3OrderStore) Put(ctx context.Context, id string, data []byte) error {
	_, err := s.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(id)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to put order object to S3: %w", err)
	}
	return nil
}

// S3MenuSource implements MenuSource backed by S3
type S3MenuSource struct {
	bucket string
	key    string
	s3     s3Client
}

func NewS3MenuSource(client s3Client, bucket, key string) *S3MenuSource {
	return &S3MenuSource{
		bucket: bucket,
		key:    key,
		s3:     client,
	}
}

func (s *S3MenuSource) Load(ctx context.Context) ([]byte, error) {
	resp, err := s.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get menu object from S3: %w", err)
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}
