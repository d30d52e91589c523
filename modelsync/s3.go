package modelsync

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type ObjectInfo struct {
	ETag         string
	Size         int64
	LastModified time.Time
}

// ObjectStore is the remote side of a sync: one object, addressed by the
// store's own bucket and key.
type ObjectStore interface {
	Key() string
	Stat(ctx context.Context) (ObjectInfo, error)
	PresignGet(ctx context.Context) (string, error)
}

type S3Config struct {
	Bucket       string
	Key          string
	Region       string
	Endpoint     string
	UsePathStyle bool
	PresignTTL   time.Duration
}

type S3Store struct {
	client  *s3.Client
	presign *s3.PresignClient
	cfg     S3Config
}

func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	if cfg.PresignTTL == 0 {
		cfg.PresignTTL = 15 * time.Minute
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &S3Store{
		client:  client,
		presign: s3.NewPresignClient(client),
		cfg:     cfg,
	}, nil
}

func (s *S3Store) Key() string {
	return s.cfg.Bucket + "/" + s.cfg.Key
}

func (s *S3Store) Stat(ctx context.Context) (ObjectInfo, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(s.cfg.Key),
	})
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("failed to stat s3://%s: %w", s.Key(), err)
	}
	return ObjectInfo{
		ETag:         aws.ToString(out.ETag),
		Size:         aws.ToInt64(out.ContentLength),
		LastModified: aws.ToTime(out.LastModified),
	}, nil
}

func (s *S3Store) PresignGet(ctx context.Context) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(s.cfg.Key),
	}, s3.WithPresignExpires(s.cfg.PresignTTL))
	if err != nil {
		return "", fmt.Errorf("failed to presign s3://%s: %w", s.Key(), err)
	}
	return req.URL, nil
}
