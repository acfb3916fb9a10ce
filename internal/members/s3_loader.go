package members

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// ObjectGetter is the subset of the S3 client used to fetch roster objects.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// s3Loader implements Loader for gzipped roster objects in S3.
type s3Loader struct {
	client ObjectGetter
	bucket string
	logger zerolog.Logger
}

// NewS3Loader creates an S3-backed roster loader using the default AWS
// credential chain.
func NewS3Loader(ctx context.Context, bucket, region string, logger zerolog.Logger) (Loader, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		logger.Error().Err(err).Msg("failed to load AWS configuration")
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	logger.Info().
		Str("bucket", bucket).
		Str("region", region).
		Msg("S3 roster loader initialised")

	return NewS3LoaderWithClient(s3.NewFromConfig(cfg), bucket, logger), nil
}

// NewS3LoaderWithClient creates an S3 roster loader around an existing client.
func NewS3LoaderWithClient(client ObjectGetter, bucket string, logger zerolog.Logger) Loader {
	return &s3Loader{
		client: client,
		bucket: bucket,
		logger: logger.With().Str("component", "s3-roster-loader").Logger(),
	}
}

// Load fetches key from the bucket and decodes it as a roster.
func (l *s3Loader) Load(ctx context.Context, key string) (Roster, error) {
	l.logger.Info().
		Str("bucket", l.bucket).
		Str("key", key).
		Msg("loading roster from S3")

	result, err := l.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(l.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		l.logger.Error().
			Err(err).
			Str("bucket", l.bucket).
			Str("key", key).
			Msg("failed to get object from S3")
		return nil, fmt.Errorf("failed to get object from S3 (bucket=%s, key=%s): %w", l.bucket, key, err)
	}
	defer result.Body.Close()

	roster, err := readRoster(ctx, result.Body)
	if err != nil {
		l.logger.Error().Err(err).Str("key", key).Msg("failed to read roster from S3")
		return nil, fmt.Errorf("S3 roster %s: %w", key, err)
	}

	l.logger.Info().
		Str("key", key).
		Int("members_loaded", roster.Size()).
		Msg("roster loaded from S3")

	return roster, nil
}

// fallbackLoader tries S3 first and falls back to the local file system.
type fallbackLoader struct {
	s3        Loader
	local     Loader
	prefix    string
	s3Enabled bool
	logger    zerolog.Logger
}

// NewFallbackLoader creates a loader that prefers S3 and falls back to disk.
// The S3 key is prefix+path; the local path is used as-is.
func NewFallbackLoader(s3Loader, fileLoader Loader, prefix string, s3Enabled bool, logger zerolog.Logger) Loader {
	return &fallbackLoader{
		s3:        s3Loader,
		local:     fileLoader,
		prefix:    prefix,
		s3Enabled: s3Enabled,
		logger:    logger.With().Str("component", "fallback-roster-loader").Logger(),
	}
}

func (l *fallbackLoader) Load(ctx context.Context, path string) (Roster, error) {
	if l.s3Enabled && l.s3 != nil {
		key := l.prefix + path

		roster, err := l.s3.Load(ctx, key)
		if err == nil {
			return roster, nil
		}

		l.logger.Warn().
			Err(err).
			Str("s3_key", key).
			Msg("failed to load from S3, falling back to local file system")
	}

	return l.local.Load(ctx, path)
}
