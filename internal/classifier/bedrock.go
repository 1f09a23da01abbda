package classifier

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

type bedrockConverseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// BedrockModel answers requests through the Bedrock Converse API.
type BedrockModel struct {
	api       bedrockConverseAPI
	modelID   string
	maxTokens int32
}

var _ Model = (*BedrockModel)(nil)

func NewBedrockModel(api bedrockConverseAPI, modelID string) *BedrockModel {
	if api == nil {
		panic("classifier: bedrock converse client cannot be nil")
	}
	return &BedrockModel{api: api, modelID: modelID, maxTokens: 4096}
}

func (m *BedrockModel) Name() string {
	return "bedrock:" + m.modelID
}

func (m *BedrockModel) Generate(ctx context.Context, req Request) (Generation, error) {
	if strings.TrimSpace(m.modelID) == "" {
		return Generation{}, errors.New("classifier: bedrock model id is required")
	}

	content := []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: req.Prompt}}
	if req.Image != nil {
		format, err := bedrockImageFormat(req.Image.MIMEType)
		if err != nil {
			return Generation{}, err
		}
		content = append(content, &brtypes.ContentBlockMemberImage{Value: brtypes.ImageBlock{
			Format: format,
			Source: &brtypes.ImageSourceMemberBytes{Value: req.Image.Data},
		}})
	}

	out, err := m.api.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId: aws.String(m.modelID),
		Messages: []brtypes.Message{{
			Role:    brtypes.ConversationRoleUser,
			Content: content,
		}},
		InferenceConfig: &brtypes.InferenceConfiguration{MaxTokens: aws.Int32(m.maxTokens)},
	})
	if err != nil {
		return Generation{}, fmt.Errorf("classifier: bedrock converse failed: %w", err)
	}
	text, err := bedrockExtractOutputText(out)
	if err != nil {
		return Generation{}, err
	}
	return Generation{Text: strings.TrimSpace(text), Model: m.Name()}, nil
}

func bedrockImageFormat(mimeType string) (brtypes.ImageFormat, error) {
	switch strings.ToLower(mimeType) {
	case "image/png":
		return brtypes.ImageFormatPng, nil
	case "image/jpeg", "image/jpg":
		return brtypes.ImageFormatJpeg, nil
	default:
		return "", fmt.Errorf("classifier: bedrock does not accept image type %q", mimeType)
	}
}

func bedrockExtractOutputText(out *bedrockruntime.ConverseOutput) (string, error) {
	if out == nil {
		return "", errors.New("classifier: bedrock response is nil")
	}
	msgOut, ok := out.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok {
		return "", errors.New("classifier: bedrock response did not include a message output")
	}
	var b strings.Builder
	for _, block := range msgOut.Value.Content {
		if textBlock, ok := block.(*brtypes.ContentBlockMemberText); ok {
			b.WriteString(textBlock.Value)
		}
	}
	if strings.TrimSpace(b.String()) == "" {
		return "", errors.New("classifier: bedrock response contained no text content blocks")
	}
	return b.String(), nil
}
