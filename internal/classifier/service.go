package classifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wolfman30/govsense/internal/classification"
	"github.com/wolfman30/govsense/internal/observability/metrics"
	"github.com/wolfman30/govsense/pkg/logging"
)

var tracer = otel.Tracer("govsense.internal.classifier")

// ErrNoModel is returned when the service was built without a model.
var ErrNoModel = errors.New("classifier: no model configured")

// Service classifies text and images with an LLM.
type Service struct {
	model   Model
	cache   *ResultCache
	metrics *metrics.ServiceMetrics
	logger  *logging.Logger
	now     func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithCache serves repeated inputs from c.
func WithCache(c *ResultCache) ServiceOption {
	return func(s *Service) { s.cache = c }
}

// WithMetrics records model calls and cache hits on m.
func WithMetrics(m *metrics.ServiceMetrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the logger; nil keeps the default.
func WithLogger(l *logging.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time stamped on results.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService classifies content with model.
func NewService(model Model, opts ...ServiceOption) *Service {
	s := &Service{
		model:  model,
		logger: logging.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ClassifyText classifies a piece of text. Input validation is the caller's job.
func (s *Service) ClassifyText(ctx context.Context, text string) (*classification.Result, error) {
	return s.classify(ctx, "text", []byte(text), Request{Prompt: TextPrompt(text)})
}

// ClassifyImage classifies an image. Input validation is the caller's job.
func (s *Service) ClassifyImage(ctx context.Context, img ImageInput) (*classification.Result, error) {
	if img.MIMEType == "image/jpg" {
		img.MIMEType = "image/jpeg"
	}
	keyInput := append([]byte(img.MIMEType+"\x00"), img.Data...)
	return s.classify(ctx, "image", keyInput, Request{Prompt: ImagePrompt(), Image: &img})
}

func (s *Service) classify(ctx context.Context, kind string, keyInput []byte, req Request) (*classification.Result, error) {
	if s.model == nil {
		return nil, ErrNoModel
	}
	ctx, span := tracer.Start(ctx, "classifier.classify_"+kind)
	defer span.End()
	span.SetAttributes(attribute.String("govsense.model", s.model.Name()))

	key := CacheKey(kind, s.model.Name(), keyInput)
	cached, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("result cache read failed", "error", err)
	}
	if s.cache != nil {
		s.metrics.ObserveCache(cached != nil)
	}
	if cached != nil {
		span.SetAttributes(attribute.Bool("govsense.cache_hit", true))
		return cached, nil
	}

	start := time.Now()
	gen, err := s.model.Generate(ctx, req)
	if err != nil {
		s.metrics.ObserveModelCall(s.model.Name(), "error", time.Since(start).Seconds())
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	s.metrics.ObserveModelCall(gen.Model, "ok", time.Since(start).Seconds())

	result, path := ParseReply(gen.Text, s.now())
	if err := result.Validate(); err != nil {
		return nil, fmt.Errorf("classifier: parsed result invalid: %w", err)
	}
	s.metrics.ObserveClassification(kind, gen.Model, string(path))
	s.logger.Info("classified content",
		"kind", kind,
		"model", gen.Model,
		"parse", string(path),
		"category", string(result.Category),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if err := s.cache.Set(ctx, key, result); err != nil {
		s.logger.Warn("result cache write failed", "error", err)
	}
	return result, nil
}
