// Package handlers holds the HTTP handlers of the classification service.
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"

	"github.com/wolfman30/govsense/internal/classification"
	"github.com/wolfman30/govsense/internal/classifier"
	"github.com/wolfman30/govsense/internal/intake"
	"github.com/wolfman30/govsense/pkg/logging"
)

const (
	msgInvalidImageFormat = "Invalid image format. Only JPG and PNG are supported."
	msgImageTooLarge      = "Image size exceeds 5MB limit."
	msgInvalidBody        = "Request body must be JSON with a \"text\" field."
	msgMissingFile        = "Field \"file\" is required."

	maxTextBodyBytes = 64 << 10
	// Multipart framing on top of the largest accepted image.
	maxImageBodyBytes = intake.MaxImageBytes + 1<<20
)

// Classifier is the backend the handlers delegate to.
type Classifier interface {
	ClassifyText(ctx context.Context, text string) (*classification.Result, error)
	ClassifyImage(ctx context.Context, img classifier.ImageInput) (*classification.Result, error)
}

var _ Classifier = (*classifier.Service)(nil)

// ClassifyHandler serves POST /classify_text and POST /classify_image.
type ClassifyHandler struct {
	classifier Classifier
	logger     *logging.Logger
}

func NewClassifyHandler(c Classifier, logger *logging.Logger) *ClassifyHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &ClassifyHandler{classifier: c, logger: logger}
}

type textRequest struct {
	Text string `json:"text"`
}

// ClassifyText accepts {"text": "..."} of 1 to 2000 characters.
func (h *ClassifyHandler) ClassifyText(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxTextBodyBytes)
	var req textRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, msgInvalidBody)
		return
	}
	n, err := intake.Validate(intake.Input{Text: req.Text}, intake.ModeText)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	result, err := h.classifier.ClassifyText(r.Context(), n.Text)
	if err != nil {
		h.logger.Error("text classification failed", "error", err)
		writeDetail(w, http.StatusInternalServerError, fmt.Sprintf("Classification error: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ClassifyImage accepts a JPEG or PNG of at most 5 MiB as multipart field "file".
func (h *ClassifyHandler) ClassifyImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImageBodyBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeDetail(w, http.StatusBadRequest, msgImageTooLarge)
			return
		}
		writeDetail(w, http.StatusUnprocessableEntity, msgMissingFile)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, intake.MaxImageBytes+1))
	if err != nil {
		h.logger.Error("failed to read upload", "error", err)
		writeDetail(w, http.StatusBadRequest, msgInvalidImageFormat)
		return
	}

	img, err := intake.ValidateImage(intake.ImageUpload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		var vErr *intake.ValidationError
		if errors.As(err, &vErr) && vErr.Reason == intake.ReasonImageTooLarge {
			writeDetail(w, http.StatusBadRequest, msgImageTooLarge)
			return
		}
		writeDetail(w, http.StatusBadRequest, msgInvalidImageFormat)
		return
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(img.Data)); err != nil {
		writeDetail(w, http.StatusBadRequest, msgInvalidImageFormat)
		return
	}

	result, err := h.classifier.ClassifyImage(r.Context(), classifier.ImageInput{MIMEType: img.ContentType, Data: img.Data})
	if err != nil {
		h.logger.Error("image classification failed", "error", err, "filename", header.Filename)
		writeDetail(w, http.StatusInternalServerError, fmt.Sprintf("Image classification error: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, result)
}
