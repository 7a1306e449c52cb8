package transcript

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
)

const isoSeconds = "2006-01-02T15:04:05"

var (
	headerRule = strings.Repeat("=", 60)
	turnRule   = strings.Repeat("-", 60)
)

// Side describes one participant in the transcript header.
type Side struct {
	Name     string
	Endpoint string
	Model    string
}

// Header is the metadata block written once at the top of a transcript.
type Header struct {
	Started   time.Time
	Initiator Side
	Responder Side
	Topic     string
}

// Writer appends a conversation to a transcript file: one header block,
// one record per turn, one footer. Every record is flushed as it is
// written so a partial transcript survives a fatal error.
type Writer struct {
	file afero.File
	path string
}

// NewWriter creates the transcript file, making parent directories as
// needed. The caller is expected to have resolved path via Uniquify.
func NewWriter(fs afero.Fs, path string) (*Writer, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create transcript directory: %w", err)
		}
	}
	file, err := fs.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create transcript: %w", err)
	}
	return &Writer{file: file, path: path}, nil
}

// Path returns the resolved transcript location.
func (w *Writer) Path() string {
	return w.path
}

// WriteHeader writes the transcript title block.
func (w *Writer) WriteHeader(h Header) error {
	_, err := fmt.Fprintf(w.file,
		"Cross-chat Transcript\n%s\n\nStarted: %s\n%s:  %s  model=%s\n%s: %s  model=%s\nTopic: %s\n\n",
		headerRule,
		h.Started.Format(isoSeconds),
		h.Initiator.Name, h.Initiator.Endpoint, h.Initiator.Model,
		h.Responder.Name, h.Responder.Endpoint, h.Responder.Model,
		h.Topic)
	if err != nil {
		return fmt.Errorf("failed to write transcript header: %w", err)
	}
	return w.file.Sync()
}

// WriteTurn appends one turn record.
func (w *Writer) WriteTurn(turn int, name, model, text string) error {
	_, err := fmt.Fprintf(w.file, "Turn %d - %s (%s)\n%s\n%s\n\n",
		turn, name, model, turnRule, strings.TrimSpace(text))
	if err != nil {
		return fmt.Errorf("failed to write turn %d: %w", turn, err)
	}
	return w.file.Sync()
}

// WriteFooter appends the end marker with the completion timestamp.
func (w *Writer) WriteFooter(finished time.Time) error {
	_, err := fmt.Fprintf(w.file, "=== End of conversation ===\nFinished: %s\n",
		finished.Format(isoSeconds))
	if err != nil {
		return fmt.Errorf("failed to write transcript footer: %w", err)
	}
	return w.file.Sync()
}

// Close closes the underlying file.
func (w *Writer) Close() error {
	return w.file.Close()
}
