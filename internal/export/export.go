// Package export saves classification results as standalone JSON documents.
package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/wolfman30/govsense/internal/classification"
)

// ErrNoResult is returned when there is nothing to export.
var ErrNoResult = errors.New("export: no result to export")

// Exporter persists one result and reports where it went.
type Exporter interface {
	Export(ctx context.Context, r *classification.Result) (string, error)
}

// FileName is the download name for a result exported at t.
func FileName(t time.Time) string {
	return fmt.Sprintf("govsense-result-%d.json", t.UnixMilli())
}

// Encode renders r as indented JSON.
func Encode(r *classification.Result) ([]byte, error) {
	if r == nil {
		return nil, ErrNoResult
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export: marshal result: %w", err)
	}
	return append(data, '\n'), nil
}

// DirExporter writes results into a local directory.
type DirExporter struct {
	dir string
	now func() time.Time
}

func NewDirExporter(dir string) *DirExporter {
	if dir == "" {
		dir = "."
	}
	return &DirExporter{dir: dir, now: time.Now}
}

func (e *DirExporter) Export(ctx context.Context, r *classification.Result) (string, error) {
	data, err := Encode(r)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("export: create dir: %w", err)
	}
	path := filepath.Join(e.dir, FileName(e.now()))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("export: write %s: %w", path, err)
	}
	return path, nil
}
