package s3

import (
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

var ErrRegionRequired = errors.New("s3: region is required")

// Config describes how to reach the bucket backing the key-value store.
// Empty credentials fall back to the SDK default chain.
// A non-empty Endpoint targets an S3 compatible server with path-style addressing.
type Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
}

// NewClient creates an S3 API client from cfg
func NewClient(cfg Config) (s3iface.S3API, error) {
	if cfg.Region == "" {
		return nil, ErrRegionRequired
	}
	sess, err := session.NewSession(awsConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("s3: create session: %w", err)
	}
	return s3.New(sess), nil
}

func awsConfig(cfg Config) *aws.Config {
	c := &aws.Config{Region: aws.String(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		c.Credentials = credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey, "")
	}
	if cfg.Endpoint != "" {
		c.Endpoint = aws.String(cfg.Endpoint)
		c.S3ForcePathStyle = aws.Bool(true)
	}
	return c
}
