package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/wolfman30/govsense/internal/export"
	"github.com/wolfman30/govsense/internal/intake"
	"github.com/wolfman30/govsense/internal/session"
	"github.com/wolfman30/govsense/internal/transcript"
)

const helpText = `Type a message and press enter to analyze it.
  /image <path>  attach a JPG or PNG (max 5MB)
  /remove        drop the attached image
  /send [text]   submit the attached image, with optional text
  /export [n]    save the latest result, or the result of turn n, as JSON
  /history       print the conversation so far
  /help          show this message
  /quit          exit`

// repl reads commands, drives the session and prints its turns. It is the
// session's listener, so every appended turn is rendered exactly once.
type repl struct {
	sess     *session.Session
	exporter export.Exporter
	readFile func(string) ([]byte, error)

	mu  sync.Mutex
	out io.Writer
}

var _ session.Listener = (*repl)(nil)

func newREPL(out io.Writer, exporter export.Exporter) *repl {
	return &repl{out: out, exporter: exporter, readFile: os.ReadFile}
}

func (r *repl) printf(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, format, args...)
}

func (r *repl) TurnAppended(turn transcript.Turn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	renderTurn(r.out, turn)
}

func (r *repl) LoadingChanged(loading bool) {
	if loading {
		r.printf("… analyzing\n")
	}
}

// run processes lines from in until EOF, /quit or ctx is done.
func (r *repl) run(ctx context.Context, in io.Reader) error {
	r.printf("GovSense chat. /help for commands.\n")
	scanner := bufio.NewScanner(in)
	// Long pasted posts are fine; the session imposes no cap in chat mode.
	scanner.Buffer(make([]byte, 0, 64<<10), 1<<20)
	for {
		if ctx.Err() != nil {
			return nil
		}
		r.printf("> ")
		if !scanner.Scan() {
			r.printf("\n")
			return scanner.Err()
		}
		if quit := r.handle(ctx, scanner.Text()); quit {
			return nil
		}
	}
}

// handle executes one input line and reports whether the shell should exit.
func (r *repl) handle(ctx context.Context, line string) bool {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "/") {
		r.sess.SetText(line)
		r.submit(ctx)
		return false
	}

	cmd, arg, _ := strings.Cut(trimmed, " ")
	arg = strings.TrimSpace(arg)
	switch cmd {
	case "/quit", "/exit":
		return true
	case "/help":
		r.printf("%s\n", helpText)
	case "/image":
		r.stageImage(arg)
	case "/remove":
		r.sess.RemoveImage()
		r.printf("image removed\n")
	case "/send":
		if arg != "" {
			r.sess.SetText(arg)
		}
		r.submit(ctx)
	case "/export":
		r.export(ctx, arg)
	case "/history":
		for _, t := range r.sess.Transcript() {
			r.TurnAppended(t)
		}
	default:
		r.printf("unknown command %s; /help lists commands\n", cmd)
	}
	return false
}

func (r *repl) stageImage(path string) {
	if path == "" {
		r.printf("usage: /image <path>\n")
		return
	}
	data, err := r.readFile(path)
	if err != nil {
		r.printf("cannot read %s: %v\n", path, err)
		return
	}
	preview, err := r.sess.StageImage(intake.UploadFromFile(path, data))
	if err != nil {
		r.printf("%s\n", err.Error())
		return
	}
	r.printf("attached %s (%s, %s)\n", preview.Filename, preview.ContentType, formatSize(preview.Size))
}

func (r *repl) submit(ctx context.Context) {
	_, err := r.sess.Submit(ctx)
	var vErr *intake.ValidationError
	switch {
	case err == nil:
	case errors.Is(err, intake.ErrEmptySubmission):
	case errors.Is(err, session.ErrClosed):
		r.printf("session closed\n")
	case errors.As(err, &vErr):
		r.printf("%s\n", vErr.Message)
	default:
		r.printf("%v\n", err)
	}
}

func (r *repl) export(ctx context.Context, arg string) {
	var turn transcript.Turn
	var ok bool
	if arg == "" {
		results := r.sess.Store().Results()
		if len(results) > 0 {
			turn, ok = results[len(results)-1], true
		}
	} else {
		seq, err := strconv.Atoi(arg)
		if err != nil {
			r.printf("usage: /export [turn number]\n")
			return
		}
		turn, ok = r.sess.Store().Get(seq)
		ok = ok && turn.Result != nil
	}
	if !ok {
		r.printf("no result to export\n")
		return
	}
	location, err := r.exporter.Export(ctx, turn.Result)
	if err != nil {
		r.printf("export failed: %v\n", err)
		return
	}
	r.printf("exported to %s\n", location)
}

func formatSize(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
