package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/wolfman30/govsense/internal/classifier"
	appconfig "github.com/wolfman30/govsense/internal/config"
	"github.com/wolfman30/govsense/pkg/logging"
)

// ErrNoModel is returned when neither Gemini nor Bedrock is configured.
var ErrNoModel = errors.New("bootstrap: no classification model configured (set GEMINI_API_KEY or BEDROCK_MODEL_ID)")

// BuildModel wires the classification model. Gemini is primary when its key
// is set; a Bedrock model id adds Bedrock as primary or as fallback. The
// returned close func releases the Gemini client and is never nil.
func BuildModel(ctx context.Context, cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) (classifier.Model, func() error, error) {
	noop := func() error { return nil }
	if cfg == nil {
		return nil, noop, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var bedrock classifier.Model
	if modelID := strings.TrimSpace(cfg.BedrockModelID); modelID != "" {
		bedrock = classifier.NewBedrockModel(bedrockruntime.NewFromConfig(awsCfg), modelID)
	}

	if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
		if bedrock == nil {
			return nil, noop, ErrNoModel
		}
		logger.Info("classification model configured", "model", bedrock.Name())
		return bedrock, noop, nil
	}

	gemini, err := classifier.NewGeminiModel(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
	if err != nil {
		return nil, noop, fmt.Errorf("bootstrap: %w", err)
	}
	if bedrock == nil {
		logger.Info("classification model configured", "model", gemini.Name())
		return gemini, gemini.Close, nil
	}

	model := classifier.NewFallbackModel(gemini, bedrock, logger)
	logger.Info("classification model configured", "model", model.Name())
	return model, gemini.Close, nil
}
