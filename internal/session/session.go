// Package session drives one user's conversation: it stages input, submits it
// to the classification service, and records both sides in the transcript.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/govsense/internal/classification"
	"github.com/wolfman30/govsense/internal/classifyapi"
	"github.com/wolfman30/govsense/internal/intake"
	"github.com/wolfman30/govsense/internal/observability/metrics"
	"github.com/wolfman30/govsense/internal/transcript"
	"github.com/wolfman30/govsense/pkg/logging"
)

const (
	// FailurePrefix starts every assistant turn that records a failed request.
	FailurePrefix = "❌ Error: "
	// GenericFailure is shown when the service gave no detail.
	GenericFailure = "Failed to analyze content. Please try again."
)

var (
	// ErrBusy is returned by a submit while a request is outstanding.
	ErrBusy = errors.New("session: a submission is already in progress")
	// ErrClosed is returned by a submit after Close.
	ErrClosed = errors.New("session: closed")
)

// Classifier is the classification service as seen by a session.
type Classifier interface {
	ClassifyText(ctx context.Context, text string) (*classification.Result, error)
	ClassifyImage(ctx context.Context, filename, contentType string, data []byte) (*classification.Result, error)
}

var _ Classifier = (*classifyapi.Client)(nil)

// Listener observes state changes. Calls are made without the session lock
// held, in the order the changes happened.
type Listener interface {
	TurnAppended(turn transcript.Turn)
	LoadingChanged(loading bool)
}

// Staged is the input waiting to be submitted.
type Staged struct {
	Text  string                   `json:"text"`
	Image *transcript.ImagePreview `json:"image,omitempty"`
}

// Session is a single-user conversation. All state is owned here and changes
// only through its methods.
type Session struct {
	id         string
	classifier Classifier
	store      *transcript.Store
	listener   Listener
	metrics    *metrics.SessionMetrics
	logger     *logging.Logger

	mu       sync.Mutex
	loading  bool
	text     string
	image    *intake.Image
	closed   bool
	openedAt time.Time
}

// Option configures a Session.
type Option func(*Session)

// WithListener registers l for turn and loading notifications.
func WithListener(l Listener) Option {
	return func(s *Session) { s.listener = l }
}

// WithMetrics records submissions and rejections on m.
func WithMetrics(m *metrics.SessionMetrics) Option {
	return func(s *Session) { s.metrics = m }
}

// WithLogger sets the logger; nil keeps the default.
func WithLogger(l *logging.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore uses an existing transcript instead of a fresh one.
func WithStore(store *transcript.Store) Option {
	return func(s *Session) {
		if store != nil {
			s.store = store
		}
	}
}

// WithID overrides the generated session id.
func WithID(id string) Option {
	return func(s *Session) {
		if id != "" {
			s.id = id
		}
	}
}

// New opens a session backed by classifier.
func New(classifier Classifier, opts ...Option) *Session {
	s := &Session{
		id:         uuid.NewString(),
		classifier: classifier,
		store:      transcript.NewStore(),
		logger:     logging.Default(),
		openedAt:   time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("session_id", s.id)
	s.metrics.SessionOpened()
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Close releases the session. It is safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.metrics.SessionClosed()
	s.logger.Debug("session closed", "turns", s.store.Len(), "duration", time.Since(s.openedAt).String())
}

// SetText replaces the staged text.
func (s *Session) SetText(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.text = text
}

// StageImage validates an upload and stages it. A rejected upload leaves the
// currently staged image untouched.
func (s *Session) StageImage(up intake.ImageUpload) (transcript.ImagePreview, error) {
	img, err := intake.ValidateImage(up)
	if err != nil {
		s.observeRejection(err)
		return transcript.ImagePreview{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.image = &img
	return previewOf(&img), nil
}

// RemoveImage drops the staged image.
func (s *Session) RemoveImage() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.image = nil
}

// Staged returns the input waiting to be submitted.
func (s *Session) Staged() Staged {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Staged{Text: s.text}
	if s.image != nil {
		p := previewOf(s.image)
		st.Image = &p
	}
	return st
}

// Loading reports whether a request is outstanding.
func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// CanSubmit reports whether Submit would start a request.
func (s *Session) CanSubmit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loading || s.closed {
		return false
	}
	_, err := intake.Validate(s.stagedInputLocked(), intake.ModeChat)
	return err == nil
}

// Transcript returns every turn so far.
func (s *Session) Transcript() []transcript.Turn {
	return s.store.List()
}

// Store exposes the session's transcript for read access.
func (s *Session) Store() *transcript.Store {
	return s.store
}

// Pending is a submission whose user turn is recorded and whose request has
// not run yet. Loading stays raised until Complete is called.
type Pending struct {
	s        *Session
	input    intake.Normalized
	userTurn transcript.Turn

	once sync.Once
	done transcript.Turn
}

// UserTurn is the turn appended when the submission began.
func (p *Pending) UserTurn() transcript.Turn {
	return p.userTurn
}

// Complete issues the request and records its outcome, success or not, as
// the returned assistant turn. Only the first call does any work.
func (p *Pending) Complete(ctx context.Context) transcript.Turn {
	p.once.Do(func() {
		p.done = p.s.complete(ctx, p.input, p.userTurn)
	})
	return p.done
}

// Begin validates the staged input, appends the user turn, clears the staged
// input and raises loading, all before returning. Input composed after Begin
// returns belongs to the next submission. Validation failures, ErrBusy and
// ErrClosed leave the transcript untouched.
func (s *Session) Begin() (*Pending, error) {
	s.mu.Lock()
	if err := s.checkIdleLocked(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	n, err := intake.Validate(s.stagedInputLocked(), intake.ModeChat)
	if err != nil {
		s.mu.Unlock()
		s.observeRejection(err)
		return nil, err
	}
	userTurn, err := s.beginLocked(n)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.text = ""
	s.image = nil
	s.mu.Unlock()

	return s.started(n, userTurn), nil
}

// BeginText is Begin for the standalone text entry point: text only, capped
// at intake.MaxTextRunes. It does not touch the staged input.
func (s *Session) BeginText(text string) (*Pending, error) {
	s.mu.Lock()
	if err := s.checkIdleLocked(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	n, err := intake.Validate(intake.Input{Text: text}, intake.ModeText)
	if err != nil {
		s.mu.Unlock()
		s.observeRejection(err)
		return nil, err
	}
	userTurn, err := s.beginLocked(n)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.started(n, userTurn), nil
}

// Submit sends the staged input and waits for the outcome. It is Begin
// followed by Complete.
func (s *Session) Submit(ctx context.Context) (transcript.Turn, error) {
	p, err := s.Begin()
	if err != nil {
		return transcript.Turn{}, err
	}
	return p.Complete(ctx), nil
}

// SubmitText is BeginText followed by Complete.
func (s *Session) SubmitText(ctx context.Context, text string) (transcript.Turn, error) {
	p, err := s.BeginText(text)
	if err != nil {
		return transcript.Turn{}, err
	}
	return p.Complete(ctx), nil
}

func (s *Session) checkIdleLocked() error {
	if s.closed {
		return ErrClosed
	}
	if s.loading {
		return ErrBusy
	}
	return nil
}

// started notifies listeners of the user turn and the loading change.
func (s *Session) started(n intake.Normalized, userTurn transcript.Turn) *Pending {
	s.notifyTurn(userTurn)
	s.notifyLoading(true)
	return &Pending{s: s, input: n, userTurn: userTurn}
}

func (s *Session) stagedInputLocked() intake.Input {
	in := intake.Input{Text: s.text}
	if s.image != nil {
		in.Image = &intake.ImageUpload{
			Filename:    s.image.Filename,
			ContentType: s.image.ContentType,
			Data:        s.image.Data,
		}
	}
	return in
}

// beginLocked appends the user turn and raises loading. Caller holds s.mu.
func (s *Session) beginLocked(n intake.Normalized) (transcript.Turn, error) {
	var preview *transcript.ImagePreview
	if n.Image != nil {
		p := previewOf(n.Image)
		preview = &p
	}
	turn, err := s.store.Append(transcript.UserTurn(n.Text, preview))
	if err != nil {
		return transcript.Turn{}, fmt.Errorf("session: append user turn: %w", err)
	}
	s.loading = true
	return turn, nil
}

func (s *Session) complete(ctx context.Context, n intake.Normalized, userTurn transcript.Turn) transcript.Turn {
	kind := "text"
	if n.HasImage() {
		kind = "image"
	}
	s.metrics.RequestStarted()
	s.logger.Info("submission started", "turn_seq", userTurn.Seq, "kind", kind)

	start := time.Now()
	result, err := s.request(ctx, n)

	var next transcript.Turn
	outcome := "success"
	if err != nil {
		outcome = "failure"
		next = transcript.ErrorTurn(FailureMessage(err))
		s.logger.Warn("submission failed", "turn_seq", userTurn.Seq, "kind", kind, "error", err)
	} else {
		next = transcript.ResultTurn(result)
	}

	s.mu.Lock()
	appended, appendErr := s.store.Append(next)
	s.loading = false
	s.mu.Unlock()

	s.metrics.RequestFinished()
	s.metrics.ObserveSubmission(kind, outcome)
	if appendErr != nil {
		s.logger.Error("failed to append assistant turn", "turn_seq", userTurn.Seq, "error", appendErr)
	} else {
		s.notifyTurn(appended)
		s.logger.Info("submission completed", "turn_seq", appended.Seq, "kind", kind, "outcome", outcome, "elapsed_ms", time.Since(start).Milliseconds())
	}
	s.notifyLoading(false)
	return appended
}

// request runs the single outbound call. Panics in the classifier are
// converted to errors so loading is always cleared.
func (s *Session) request(ctx context.Context, n intake.Normalized) (result *classification.Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			result = nil
			err = fmt.Errorf("session: classifier panic: %v", p)
		}
	}()
	if s.classifier == nil {
		return nil, errors.New("session: no classifier configured")
	}
	if n.Image != nil {
		result, err = s.classifier.ClassifyImage(ctx, n.Image.Filename, n.Image.ContentType, n.Image.Data)
	} else {
		result, err = s.classifier.ClassifyText(ctx, n.Text)
	}
	if err == nil && result == nil {
		err = errors.New("session: classifier returned no result")
	}
	return result, err
}

// FailureMessage is the assistant text recorded for a failed request: the
// service's detail when it sent one, else GenericFailure.
func FailureMessage(err error) string {
	var svcErr *classifyapi.ServiceError
	if errors.As(err, &svcErr) && svcErr.Detail != "" {
		return FailurePrefix + svcErr.Detail
	}
	return FailurePrefix + GenericFailure
}

func (s *Session) observeRejection(err error) {
	var vErr *intake.ValidationError
	switch {
	case errors.As(err, &vErr):
		s.metrics.ObserveRejection(string(vErr.Reason))
	case errors.Is(err, intake.ErrEmptySubmission):
		s.metrics.ObserveRejection("empty")
	}
}

func (s *Session) notifyTurn(t transcript.Turn) {
	if s.listener != nil {
		s.listener.TurnAppended(t)
	}
}

func (s *Session) notifyLoading(loading bool) {
	if s.listener != nil {
		s.listener.LoadingChanged(loading)
	}
}

func previewOf(img *intake.Image) transcript.ImagePreview {
	return transcript.ImagePreview{
		DataURL:     img.Preview,
		Filename:    img.Filename,
		ContentType: img.ContentType,
		Size:        img.Size(),
	}
}
