package webchat

import (
	"sync"

	"golang.org/x/net/websocket"

	"github.com/wolfman30/govsense/internal/classification"
	"github.com/wolfman30/govsense/internal/session"
	"github.com/wolfman30/govsense/internal/transcript"
	"github.com/wolfman30/govsense/pkg/logging"
)

// connWriter implements session.Listener for one WebSocket connection and
// serializes every frame written to it.
type connWriter struct {
	conn   *websocket.Conn
	logger *logging.Logger
	mu     sync.Mutex
}

var _ session.Listener = (*connWriter)(nil)

func newConnWriter(conn *websocket.Conn, logger *logging.Logger) *connWriter {
	return &connWriter{conn: conn, logger: logger}
}

func (w *connWriter) send(msg OutboundMessage) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := websocket.JSON.Send(w.conn, msg); err != nil {
		w.logger.Debug("webchat: send failed", "type", msg.Type, "error", err)
	}
}

func (w *connWriter) sendError(text string) {
	w.send(OutboundMessage{Type: "error", Text: text})
}

func (w *connWriter) sendStaged(sess *session.Session) {
	st := sess.Staged()
	w.send(OutboundMessage{Type: "staged", Staged: &st})
}

// TurnAppended pushes the turn, with its interpreted view when it carries a
// result.
func (w *connWriter) TurnAppended(turn transcript.Turn) {
	msg := OutboundMessage{Type: "turn", Turn: &turn}
	if turn.Result != nil {
		view, err := classification.Interpret(turn.Result)
		if err != nil {
			w.logger.Warn("webchat: result not renderable", "turn_seq", turn.Seq, "error", err)
		} else {
			msg.View = &view
		}
	}
	w.send(msg)
}

func (w *connWriter) LoadingChanged(loading bool) {
	w.send(OutboundMessage{Type: "loading", Loading: &loading})
}
