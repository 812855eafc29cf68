package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/bobmcallan/vire-leaderboard/internal/config"
	"github.com/bobmcallan/vire-leaderboard/internal/market"
	"github.com/bobmcallan/vire-leaderboard/internal/models"
)

// putObjectAPI is the subset of the S3 client the sink uses.
type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Sink mirrors snapshot files to an S3-compatible bucket using the same
// key layout as FileSink under an optional prefix.
type S3Sink struct {
	client putObjectAPI
	bucket string
	prefix string
	hours  *market.Hours
}

// NewS3Sink creates an S3 client from config. Static credentials are used
// when an access key is configured, otherwise the default AWS chain.
func NewS3Sink(ctx context.Context, cfg config.S3Config, hours *market.Hours) (*S3Sink, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 sink: bucket name is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("s3 sink: load aws config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		endpoint := normaliseEndpoint(cfg.Endpoint)
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		})
	}
	if cfg.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	return newS3Sink(s3.NewFromConfig(awsCfg, s3Opts...), cfg.Bucket, cfg.Prefix, hours), nil
}

func newS3Sink(client putObjectAPI, bucket, prefix string, hours *market.Hours) *S3Sink {
	return &S3Sink{client: client, bucket: bucket, prefix: prefix, hours: hours}
}

// Name identifies the sink in logs.
func (s *S3Sink) Name() string {
	return "s3"
}

// Keys returns the timestamped and latest object keys for a run at t.
func (s *S3Sink) Keys(at time.Time) (timestamped, latest string) {
	local := s.hours.Local(at)
	timestamped = path.Join(s.prefix, s.hours.Bucket(at), FileName(local))
	latest = path.Join(s.prefix, LatestName)
	return timestamped, latest
}

// Write uploads both objects.
func (s *S3Sink) Write(ctx context.Context, at time.Time, snapshots models.SnapshotMap) error {
	data, err := encode(snapshots)
	if err != nil {
		return err
	}

	timestamped, latest := s.Keys(at)
	for _, key := range []string{timestamped, latest} {
		_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(s.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(data),
			ContentType: aws.String("application/json"),
		})
		if err != nil {
			return models.NewError(models.KindIOFailure, "s3 put", key, err)
		}
	}
	return nil
}

// normaliseEndpoint prepends https:// when the endpoint has no scheme.
func normaliseEndpoint(endpoint string) string {
	if strings.Contains(endpoint, "://") {
		return endpoint
	}
	return "https://" + endpoint
}
