// Package bootstrap builds the runtime dependencies of the GovSense binaries
// from configuration.
package bootstrap

import (
	"context"
	"crypto/tls"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/govsense/internal/classifier"
	"github.com/wolfman30/govsense/internal/classifyapi"
	appconfig "github.com/wolfman30/govsense/internal/config"
	"github.com/wolfman30/govsense/internal/export"
	"github.com/wolfman30/govsense/internal/observability/metrics"
	"github.com/wolfman30/govsense/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available; result cache disabled", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildResultCache returns the classification cache, or nil without Redis.
func BuildResultCache(redisClient *redis.Client, cfg *appconfig.Config) *classifier.ResultCache {
	if redisClient == nil || cfg == nil {
		return nil
	}
	return classifier.NewResultCache(redisClient, cfg.ResultCacheTTL)
}

// BuildExporter stores exports in S3 when a bucket is configured and in
// ExportDir otherwise.
func BuildExporter(cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) export.Exporter {
	if cfg == nil {
		return export.NewDirExporter(".")
	}
	if bucket := strings.TrimSpace(cfg.ExportBucket); bucket != "" {
		client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			// LocalStack and MinIO need path-style addressing.
			o.UsePathStyle = cfg.AWSEndpointOverride != ""
		})
		return export.NewS3Exporter(client, bucket, logger)
	}
	return export.NewDirExporter(cfg.ExportDir)
}

// BuildClassifyClient returns the HTTP client chat sessions use to reach the
// classification service.
func BuildClassifyClient(cfg *appconfig.Config, m *metrics.ClientMetrics, logger *logging.Logger) *classifyapi.Client {
	return classifyapi.New(cfg.APIURL,
		classifyapi.WithTimeout(cfg.ClassifyTimeout),
		classifyapi.WithRetry(cfg.ClassifyMaxRetries, cfg.ClassifyRetryBaseDelay),
		classifyapi.WithMetrics(m),
		classifyapi.WithLogger(logger),
	)
}
