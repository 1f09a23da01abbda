// Package webchat serves the browser chat shell over a WebSocket. Every
// connection owns one session.Session; turns are pushed back as they are
// appended, together with their interpreted view.
package webchat

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/net/websocket"

	"github.com/wolfman30/govsense/internal/classification"
	"github.com/wolfman30/govsense/internal/export"
	"github.com/wolfman30/govsense/internal/intake"
	"github.com/wolfman30/govsense/internal/observability/metrics"
	"github.com/wolfman30/govsense/internal/session"
	"github.com/wolfman30/govsense/internal/transcript"
	"github.com/wolfman30/govsense/pkg/logging"
)

const (
	msgInvalidImage = "Could not read the attached image."
	msgBusy         = "Please wait for the current analysis to finish."
	msgNoResult     = "There is no result to export yet."
	msgExportFailed = "Failed to export the result."
	msgUnknownType  = "Unknown message type."
)

// InboundMessage is what the browser sends.
type InboundMessage struct {
	Type  string        `json:"type"` // "text", "image", "remove_image", "submit", "export", "ping"
	Text  string        `json:"text,omitempty"`
	Mode  string        `json:"mode,omitempty"` // "text" submits Text as a standalone text analysis
	Image *InboundImage `json:"image,omitempty"`
	Seq   int           `json:"seq,omitempty"` // export: turn to export, 0 for the latest result
}

// InboundImage carries an attached file as base64.
type InboundImage struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Data        string `json:"data"`
}

// OutboundMessage is what we send to the browser.
type OutboundMessage struct {
	Type      string               `json:"type"` // "session", "staged", "turn", "loading", "error", "exported", "pong"
	SessionID string               `json:"session_id,omitempty"`
	Text      string               `json:"text,omitempty"`
	Loading   *bool                `json:"loading,omitempty"`
	Staged    *session.Staged      `json:"staged,omitempty"`
	Turn      *transcript.Turn     `json:"turn,omitempty"`
	View      *classification.View `json:"view,omitempty"`
	Filename  string               `json:"filename,omitempty"`
	Location  string               `json:"location,omitempty"`
	Document  json.RawMessage      `json:"document,omitempty"`
}

// Handler manages web chat connections.
type Handler struct {
	classifier session.Classifier
	exporter   export.Exporter
	metrics    *metrics.SessionMetrics
	logger     *logging.Logger

	mu       sync.RWMutex
	sessions map[string]*session.Session
}

// Option configures a Handler.
type Option func(*Handler)

// WithExporter also stores exported results server side.
func WithExporter(e export.Exporter) Option {
	return func(h *Handler) { h.exporter = e }
}

// WithMetrics is passed on to every session the handler opens.
func WithMetrics(m *metrics.SessionMetrics) Option {
	return func(h *Handler) { h.metrics = m }
}

// NewHandler creates a web chat handler whose sessions call classifier.
func NewHandler(classifier session.Classifier, logger *logging.Logger, opts ...Option) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	h := &Handler{
		classifier: classifier,
		logger:     logger,
		sessions:   make(map[string]*session.Session),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// generateSessionID creates a random session identifier.
func generateSessionID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return uuid.New().String()
	}
	return hex.EncodeToString(b)
}

// ActiveSessions returns the number of open connections.
func (h *Handler) ActiveSessions() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// HandleWebSocket upgrades to WebSocket and runs one session until the
// browser disconnects.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	ctx, cancel := context.WithCancel(r.Context())
	var inflight sync.WaitGroup
	defer func() {
		cancel()
		inflight.Wait()
	}()

	id := generateSessionID()
	logger := h.logger.With("session_id", id)
	out := newConnWriter(conn, logger)
	sess := session.New(h.classifier,
		session.WithID(id),
		session.WithListener(out),
		session.WithMetrics(h.metrics),
		session.WithLogger(h.logger),
	)

	h.mu.Lock()
	h.sessions[id] = sess
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		delete(h.sessions, id)
		h.mu.Unlock()
		sess.Close()
	}()

	out.send(OutboundMessage{Type: "session", SessionID: id})
	logger.Info("webchat: connection opened")

	for {
		var msg InboundMessage
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			logger.Debug("webchat: connection closed", "error", err)
			return
		}

		switch msg.Type {
		case "ping":
			out.send(OutboundMessage{Type: "pong"})
		case "text":
			sess.SetText(msg.Text)
			out.sendStaged(sess)
		case "image":
			h.stageImage(sess, out, msg.Image)
		case "remove_image":
			sess.RemoveImage()
			out.sendStaged(sess)
		case "submit":
			pending, ok := h.begin(sess, out, msg)
			if !ok {
				continue
			}
			inflight.Add(1)
			go func() {
				defer inflight.Done()
				pending.Complete(ctx)
			}()
		case "export":
			h.export(ctx, sess, out, msg.Seq)
		default:
			out.sendError(msgUnknownType)
		}
	}
}

func (h *Handler) stageImage(sess *session.Session, out *connWriter, img *InboundImage) {
	if img == nil {
		out.sendError(msgInvalidImage)
		return
	}
	data, err := base64.StdEncoding.DecodeString(img.Data)
	if err != nil {
		out.sendError(msgInvalidImage)
		return
	}
	up := intake.ImageUpload{Filename: img.Filename, ContentType: img.ContentType, Data: data}
	if up.ContentType == "" {
		up = intake.UploadFromFile(img.Filename, data)
	}
	if _, err := sess.StageImage(up); err != nil {
		out.sendError(err.Error())
		return
	}
	out.sendStaged(sess)
}

// begin commits the submission on the read loop so that input arriving after
// the submit frame is staged for the next one. The request itself runs in
// Complete; turns and loading changes reach the browser through the session
// listener.
func (h *Handler) begin(sess *session.Session, out *connWriter, msg InboundMessage) (*session.Pending, bool) {
	var (
		pending *session.Pending
		err     error
	)
	if msg.Mode == intake.ModeText.String() {
		pending, err = sess.BeginText(msg.Text)
	} else {
		pending, err = sess.Begin()
		if err == nil {
			out.sendStaged(sess)
		}
	}

	var vErr *intake.ValidationError
	switch {
	case err == nil:
		return pending, true
	case errors.Is(err, intake.ErrEmptySubmission):
		// Nothing to send is not an error the user needs to see.
	case errors.Is(err, session.ErrBusy):
		out.sendError(msgBusy)
	case errors.Is(err, session.ErrClosed):
		h.logger.Debug("webchat: submit on closed session", "session_id", sess.ID())
	case errors.As(err, &vErr):
		out.sendError(vErr.Message)
	default:
		h.logger.Error("webchat: submission failed", "session_id", sess.ID(), "error", err)
		out.sendError(session.FailurePrefix + session.GenericFailure)
	}
	return nil, false
}

func (h *Handler) export(ctx context.Context, sess *session.Session, out *connWriter, seq int) {
	turn, ok := resultTurn(sess.Store(), seq)
	if !ok {
		out.sendError(msgNoResult)
		return
	}
	doc, err := export.Encode(turn.Result)
	if err != nil {
		out.sendError(msgExportFailed)
		return
	}

	msg := OutboundMessage{
		Type:     "exported",
		Filename: export.FileName(turn.Timestamp),
		Document: doc,
	}
	if h.exporter != nil {
		location, err := h.exporter.Export(ctx, turn.Result)
		if err != nil {
			h.logger.Error("webchat: export failed", "session_id", sess.ID(), "error", err)
			out.sendError(msgExportFailed)
			return
		}
		msg.Location = location
	}
	out.send(msg)
}

// resultTurn finds the turn seq, or the latest successful result when seq is 0.
func resultTurn(store *transcript.Store, seq int) (transcript.Turn, bool) {
	if seq > 0 {
		t, ok := store.Get(seq)
		if !ok || t.Result == nil {
			return transcript.Turn{}, false
		}
		return t, true
	}
	results := store.Results()
	if len(results) == 0 {
		return transcript.Turn{}, false
	}
	return results[len(results)-1], true
}
