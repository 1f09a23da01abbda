// Package classifier is the classification service backend: it prompts an
// LLM with the submitted text or image and turns the reply into a
// classification.Result.
package classifier

import "context"

// ImageInput is an image sent to a vision-capable model.
type ImageInput struct {
	MIMEType string
	Data     []byte
}

// Request is one prompt, optionally with an image.
type Request struct {
	Prompt string
	Image  *ImageInput
}

// Generation is the raw model reply.
type Generation struct {
	Text  string
	Model string
}

// Model is an LLM able to answer a Request.
type Model interface {
	Name() string
	Generate(ctx context.Context, req Request) (Generation, error)
}
