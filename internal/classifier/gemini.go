package classifier

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const defaultGeminiModel = "gemini-2.0-flash"

type geminiGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// GeminiModel answers requests with Google's Gemini API. The same model
// handles text and images.
type GeminiModel struct {
	client   *genai.Client
	modelID  string
	generate geminiGenerator
}

var _ Model = (*GeminiModel)(nil)

// NewGeminiModel creates a Gemini-backed model.
func NewGeminiModel(ctx context.Context, apiKey, modelID string) (*GeminiModel, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("classifier: gemini api key is required")
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = defaultGeminiModel
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("classifier: failed to create gemini client: %w", err)
	}
	return &GeminiModel{
		client:   client,
		modelID:  modelID,
		generate: client.GenerativeModel(modelID),
	}, nil
}

func (m *GeminiModel) Name() string {
	return "gemini:" + m.modelID
}

// Generate sends the prompt, followed by the image when present.
func (m *GeminiModel) Generate(ctx context.Context, req Request) (Generation, error) {
	parts := []genai.Part{genai.Text(req.Prompt)}
	if req.Image != nil {
		parts = append(parts, genai.Blob{MIMEType: req.Image.MIMEType, Data: req.Image.Data})
	}

	resp, err := m.generate.GenerateContent(ctx, parts...)
	if err != nil {
		return Generation{}, fmt.Errorf("classifier: gemini generation failed: %w", err)
	}
	text, err := geminiText(resp)
	if err != nil {
		return Generation{}, err
	}
	return Generation{Text: text, Model: m.Name()}, nil
}

func geminiText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", errors.New("classifier: gemini returned no candidates")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("classifier: gemini returned empty content (finish reason %v)", candidate.FinishReason)
	}
	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		return "", errors.New("classifier: gemini returned no text")
	}
	return out, nil
}

// Close releases resources held by the Gemini client.
func (m *GeminiModel) Close() error {
	if m.client != nil {
		return m.client.Close()
	}
	return nil
}
