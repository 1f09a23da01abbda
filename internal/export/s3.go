package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/wolfman30/govsense/internal/classification"
	"github.com/wolfman30/govsense/pkg/logging"
)

// S3API is the subset of the S3 client used by S3Exporter.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// ManifestEntry is one line of the monthly export manifest.
type ManifestEntry struct {
	Key        string  `json:"key"`
	Category   string  `json:"category,omitempty"`
	Band       string  `json:"band,omitempty"`
	Confidence float64 `json:"confidence"`
	ExportedAt string  `json:"exported_at"`
}

// S3Exporter uploads results to a bucket and records each upload in a
// monthly JSONL manifest.
type S3Exporter struct {
	bucket string
	api    S3API
	logger *logging.Logger
	now    func() time.Time
}

func NewS3Exporter(api S3API, bucket string, logger *logging.Logger) *S3Exporter {
	if logger == nil {
		logger = logging.Default()
	}
	return &S3Exporter{bucket: bucket, api: api, logger: logger, now: time.Now}
}

// Enabled reports whether a bucket and client are configured.
func (e *S3Exporter) Enabled() bool {
	return e != nil && e.bucket != "" && e.api != nil
}

// Export writes r under exports/v1/by-date/ and returns its s3:// URI.
func (e *S3Exporter) Export(ctx context.Context, r *classification.Result) (string, error) {
	if !e.Enabled() {
		return "", errors.New("export: s3 exporter not configured")
	}
	data, err := Encode(r)
	if err != nil {
		return "", err
	}
	now := e.now().UTC()
	key := fmt.Sprintf("exports/v1/by-date/%d/%02d/%02d/%s", now.Year(), now.Month(), now.Day(), FileName(now))

	_, err = e.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(e.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("export: s3 put %s: %w", key, err)
	}

	entry := ManifestEntry{
		Key:        key,
		Category:   string(r.Category),
		Confidence: r.Confidence,
		ExportedAt: now.Format(time.RFC3339),
	}
	if r.FinalScores != nil {
		entry.Band = string(r.FinalScores.Classification)
	}
	if err := e.appendManifest(ctx, now, entry); err != nil {
		// The result itself is stored; a missing manifest line is recoverable.
		e.logger.Warn("failed to append export manifest", "error", err, "key", key)
	}

	e.logger.Info("exported result to S3", "key", key, "category", entry.Category)
	return "s3://" + e.bucket + "/" + key, nil
}

// appendManifest is a read-modify-write since S3 has no append.
func (e *S3Exporter) appendManifest(ctx context.Context, now time.Time, entry ManifestEntry) error {
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("export: marshal manifest entry: %w", err)
	}
	manifestKey := fmt.Sprintf("exports/v1/manifests/%d-%02d.jsonl", now.Year(), now.Month())

	var existing []byte
	out, err := e.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(e.bucket),
		Key:    aws.String(manifestKey),
	})
	switch {
	case err == nil:
		existing, err = io.ReadAll(out.Body)
		out.Body.Close()
		if err != nil {
			return fmt.Errorf("export: read manifest: %w", err)
		}
	case isNotFound(err):
	default:
		return fmt.Errorf("export: get manifest: %w", err)
	}

	var buf bytes.Buffer
	buf.Write(existing)
	if len(existing) > 0 && existing[len(existing)-1] != '\n' {
		buf.WriteByte('\n')
	}
	buf.Write(line)
	buf.WriteByte('\n')

	_, err = e.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(e.bucket),
		Key:         aws.String(manifestKey),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return fmt.Errorf("export: s3 put manifest: %w", err)
	}
	return nil
}

func isNotFound(err error) bool {
	var nsk *s3types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *s3types.NotFound
	return errors.As(err, &nf)
}
