package kvstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

const (
	defaultS3Prefix   = "crm/"
	s3ContentType     = "application/json"
	s3ErrCodeNotFound = "NotFound"
)

// S3Store keeps one object per key. S3 has no conditional writes in this SDK,
// so updates are serialized within the process only; run a single writer.
type S3Store struct {
	svc    s3iface.S3API
	bucket string
	prefix string
	mu     sync.Mutex
}

func NewS3Store(svc s3iface.S3API, bucket, prefix string) (*S3Store, error) {
	if strings.TrimSpace(bucket) == "" {
		return nil, errS3BucketRequired
	}
	if prefix == "" {
		prefix = defaultS3Prefix
	}
	return &S3Store{svc: svc, bucket: bucket, prefix: prefix}, nil
}

func (s *S3Store) objectKey(k string) *string {
	return aws.String(s.prefix + k)
}

func (s *S3Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	return s.get(ctx, key)
}

func (s *S3Store) get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.svc.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    s.objectKey(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf(errGetFmt, key, err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf(errGetBodyFmt, key, err)
	}
	return data, nil
}

func (s *S3Store) Set(ctx context.Context, key string, value []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.put(ctx, key, value)
}

func (s *S3Store) put(ctx context.Context, key string, value []byte) error {
	_, err := s.svc.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         s.objectKey(key),
		Body:        bytes.NewReader(value),
		ContentType: aws.String(s3ContentType),
	})
	if err != nil {
		return fmt.Errorf(errSetFmt, key, err)
	}
	return nil
}

func (s *S3Store) Update(ctx context.Context, key string, fn UpdateFunc) error {
	if err := checkKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.get(ctx, key)
	exists := true
	if errors.Is(err, ErrNotFound) {
		current, exists = nil, false
	} else if err != nil {
		return err
	}
	next, err := fn(current, exists)
	if err != nil {
		return err
	}
	return s.put(ctx, key, next)
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.svc.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    s.objectKey(key),
	})
	if err != nil && !isS3NotFound(err) {
		return fmt.Errorf(errDeleteFmt, key, err)
	}
	return nil
}

func (s *S3Store) Close() error {
	return nil
}

func isS3NotFound(err error) bool {
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		return aerr.Code() == s3.ErrCodeNoSuchKey || aerr.Code() == s3ErrCodeNotFound
	}
	return false
}
