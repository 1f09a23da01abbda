package classifier

import (
	"context"

	"github.com/wolfman30/govsense/pkg/logging"
)

// FallbackModel tries primary first and, if it fails, fallback.
type FallbackModel struct {
	primary  Model
	fallback Model
	logger   *logging.Logger
}

var _ Model = (*FallbackModel)(nil)

// NewFallbackModel wraps primary. A nil fallback means primary only.
func NewFallbackModel(primary, fallback Model, logger *logging.Logger) *FallbackModel {
	if logger == nil {
		logger = logging.Default()
	}
	return &FallbackModel{primary: primary, fallback: fallback, logger: logger}
}

func (m *FallbackModel) Name() string {
	if m.fallback == nil {
		return m.primary.Name()
	}
	return m.primary.Name() + "|" + m.fallback.Name()
}

func (m *FallbackModel) Generate(ctx context.Context, req Request) (Generation, error) {
	gen, err := m.primary.Generate(ctx, req)
	if err == nil {
		return gen, nil
	}
	m.logger.Warn("primary model failed, attempting fallback",
		"model", m.primary.Name(),
		"error", err.Error(),
		"fallback_available", m.fallback != nil,
	)
	if m.fallback == nil || ctx.Err() != nil {
		return Generation{}, err
	}

	gen, fallbackErr := m.fallback.Generate(ctx, req)
	if fallbackErr != nil {
		m.logger.Error("fallback model also failed",
			"primary_error", err.Error(),
			"fallback_error", fallbackErr.Error(),
		)
		return Generation{}, fallbackErr
	}
	m.logger.Info("fallback model succeeded after primary failure", "model", gen.Model)
	return gen, nil
}
