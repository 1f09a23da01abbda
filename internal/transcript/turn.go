// Package transcript is the ordered, append-only log of conversation turns.
package transcript

import (
	"errors"
	"time"

	"github.com/wolfman30/govsense/internal/classification"
)

// Role identifies who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ImagePreview is the inline form of a submitted image.
type ImagePreview struct {
	DataURL     string `json:"data_url"`
	Filename    string `json:"filename,omitempty"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
}

// Turn is one entry of the log. User turns carry Text and/or Image.
// Assistant turns carry either Result or Error.
type Turn struct {
	Seq       int                    `json:"seq"`
	ID        string                 `json:"id"`
	Role      Role                   `json:"role"`
	Timestamp time.Time              `json:"timestamp"`
	Text      string                 `json:"text,omitempty"`
	Image     *ImagePreview          `json:"image,omitempty"`
	Result    *classification.Result `json:"result,omitempty"`
	Error     string                 `json:"error,omitempty"`
}

// ErrInvalidTurn is returned when a turn's content does not match its role.
var ErrInvalidTurn = errors.New("transcript: invalid turn")

// UserTurn builds an unsequenced user turn.
func UserTurn(text string, image *ImagePreview) Turn {
	return Turn{Role: RoleUser, Text: text, Image: image}
}

// ResultTurn builds an unsequenced assistant turn for a successful request.
func ResultTurn(r *classification.Result) Turn {
	return Turn{Role: RoleAssistant, Result: r}
}

// ErrorTurn builds an unsequenced assistant turn for a failed request.
func ErrorTurn(msg string) Turn {
	return Turn{Role: RoleAssistant, Error: msg}
}

// IsFailure reports whether t records a failed classification.
func (t Turn) IsFailure() bool {
	return t.Role == RoleAssistant && t.Result == nil
}

func (t Turn) validate() error {
	switch t.Role {
	case RoleUser:
		if t.Text == "" && t.Image == nil {
			return errors.Join(ErrInvalidTurn, errors.New("user turn needs text or an image"))
		}
		if t.Result != nil || t.Error != "" {
			return errors.Join(ErrInvalidTurn, errors.New("user turn cannot carry a result"))
		}
	case RoleAssistant:
		if (t.Result == nil) == (t.Error == "") {
			return errors.Join(ErrInvalidTurn, errors.New("assistant turn needs exactly one of result or error"))
		}
		if t.Text != "" || t.Image != nil {
			return errors.Join(ErrInvalidTurn, errors.New("assistant turn cannot carry user content"))
		}
	default:
		return errors.Join(ErrInvalidTurn, errors.New("unknown role "+string(t.Role)))
	}
	return nil
}

// Clone returns a deep copy of t.
func (t Turn) Clone() Turn {
	out := t
	if t.Image != nil {
		img := *t.Image
		out.Image = &img
	}
	out.Result = t.Result.Clone()
	return out
}
