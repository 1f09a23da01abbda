// Package intake validates and normalizes user submissions before they are
// allowed into a conversation.
package intake

import (
	"errors"
	"mime"
	"strings"
	"unicode/utf8"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const (
	// MaxImageBytes is the largest accepted image, 5 MiB.
	MaxImageBytes = 5 * 1024 * 1024
	// MaxTextRunes caps the standalone text entry point.
	MaxTextRunes = 2000
)

// User-facing rejection messages.
const (
	MsgEmptyText        = "Please enter some text"
	MsgTextTooLong      = "Text must be less than 2000 characters"
	MsgUnsupportedImage = "Only JPG and PNG images are supported"
	MsgImageTooLarge    = "Image size must be less than 5MB"
)

// Mode selects which entry point's rules apply.
type Mode int

const (
	// ModeChat accepts text, an image, or both. Text has no length cap.
	ModeChat Mode = iota
	// ModeText accepts text only, capped at MaxTextRunes.
	ModeText
)

func (m Mode) String() string {
	if m == ModeText {
		return "text"
	}
	return "chat"
}

// Reason identifies which rule rejected a submission.
type Reason string

const (
	ReasonEmptyText        Reason = "empty_text"
	ReasonTextTooLong      Reason = "text_too_long"
	ReasonUnsupportedImage Reason = "unsupported_image"
	ReasonImageTooLarge    Reason = "image_too_large"
)

// ValidationError is a user-input rejection carrying a fixed message.
type ValidationError struct {
	Reason  Reason
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ErrEmptySubmission is returned when neither text nor an image was staged.
// It is not meant to be shown: the submit action is simply unavailable.
var ErrEmptySubmission = errors.New("intake: nothing to submit")

var acceptedImageTypes = []interface{}{"image/jpeg", "image/jpg", "image/png"}

// ImageUpload is a raw image as selected by the user.
type ImageUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Input is a staged submission.
type Input struct {
	Text  string
	Image *ImageUpload
}

// Image is an accepted upload plus its inline preview.
type Image struct {
	Filename    string
	ContentType string
	Data        []byte
	Preview     string
}

// Size returns the image length in bytes.
func (i *Image) Size() int {
	return len(i.Data)
}

// Normalized is a submission that passed validation. Text is trimmed.
type Normalized struct {
	Text  string
	Image *Image
}

// HasImage reports whether the submission goes to the image endpoint.
func (n Normalized) HasImage() bool {
	return n.Image != nil
}

// Validate applies the rules of mode to in.
func Validate(in Input, mode Mode) (Normalized, error) {
	text := strings.TrimSpace(in.Text)

	if mode == ModeText {
		if err := validateText(in.Text, text); err != nil {
			return Normalized{}, err
		}
		return Normalized{Text: text}, nil
	}

	var out Normalized
	out.Text = text
	if in.Image != nil {
		img, err := ValidateImage(*in.Image)
		if err != nil {
			return Normalized{}, err
		}
		out.Image = &img
	}
	if out.Text == "" && out.Image == nil {
		return Normalized{}, ErrEmptySubmission
	}
	return out, nil
}

// validateText checks emptiness after trimming but the cap on the text as
// typed, surrounding whitespace included.
func validateText(raw, trimmed string) error {
	if err := validation.Validate(trimmed, validation.Required.Error(MsgEmptyText)); err != nil {
		return &ValidationError{Reason: ReasonEmptyText, Message: MsgEmptyText}
	}
	if err := validation.Validate(raw, validation.RuneLength(1, MaxTextRunes).Error(MsgTextTooLong)); err != nil {
		return &ValidationError{Reason: ReasonTextTooLong, Message: MsgTextTooLong}
	}
	return nil
}

// ValidateImage checks the declared media type and size of an upload and
// builds its preview. Media type parameters and case are ignored.
func ValidateImage(up ImageUpload) (Image, error) {
	mediaType := normalizeMediaType(up.ContentType)
	if err := validation.Validate(mediaType,
		validation.Required.Error(MsgUnsupportedImage),
		validation.In(acceptedImageTypes...).Error(MsgUnsupportedImage),
	); err != nil {
		return Image{}, &ValidationError{Reason: ReasonUnsupportedImage, Message: MsgUnsupportedImage}
	}
	if err := validation.Validate(len(up.Data), validation.Max(MaxImageBytes).Error(MsgImageTooLarge)); err != nil {
		return Image{}, &ValidationError{Reason: ReasonImageTooLarge, Message: MsgImageTooLarge}
	}

	data := make([]byte, len(up.Data))
	copy(data, up.Data)
	return Image{
		Filename:    up.Filename,
		ContentType: mediaType,
		Data:        data,
		Preview:     PreviewDataURL(mediaType, data),
	}, nil
}

func normalizeMediaType(declared string) string {
	declared = strings.TrimSpace(declared)
	if declared == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(declared)
	if err != nil {
		return ""
	}
	return strings.ToLower(mt)
}

// TextLength counts characters the way the length cap does.
func TextLength(text string) int {
	return utf8.RuneCountInString(text)
}
