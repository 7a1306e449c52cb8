// Package transcript persists a conversation to an append-only text file
// with a deterministic, collision-free name per run.
package transcript

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
)

const timestampLayout = "20060102_150405"

// filename characters rejected by at least one target filesystem
var invalidChars = strings.NewReplacer(
	"<", "_", ">", "_", ":", "_", "\"", "_",
	"/", "_", "\\", "_", "|", "_", "?", "_", "*", "_",
)

// SanitizeModelName makes a model identifier safe for use in a filename:
// invalid characters become underscores, surrounding whitespace and
// trailing dots are dropped.
func SanitizeModelName(s string) string {
	s = invalidChars.Replace(s)
	s = strings.TrimSpace(s)
	s = strings.TrimRight(s, ".")
	return s
}

// DefaultName builds the auto-generated transcript filename for a run.
func DefaultName(modelA, modelB string, now time.Time) string {
	return fmt.Sprintf("crosschat_%s__%s_%s.txt",
		SanitizeModelName(modelA),
		SanitizeModelName(modelB),
		now.Format(timestampLayout))
}

// Uniquify resolves the transcript destination to a path unique to this
// run, never overwriting an existing file:
//   - empty path: the auto-generated name in the working directory
//   - an existing directory, or a path ending in a separator: the
//     auto-generated name inside it
//   - anything else: treated as a filename, with a timestamp injected
//     before the extension (".txt" when there is none)
func Uniquify(fs afero.Fs, path, modelA, modelB string, now time.Time) string {
	if path == "" {
		return DefaultName(modelA, modelB, now)
	}

	if isDir, _ := afero.DirExists(fs, path); isDir || endsWithSeparator(path) {
		dir := strings.TrimRight(path, "/\\")
		return filepath.Join(dir, DefaultName(modelA, modelB, now))
	}

	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	if ext == "" {
		ext = ".txt"
	}
	return fmt.Sprintf("%s_%s%s", base, now.Format(timestampLayout), ext)
}

func endsWithSeparator(path string) bool {
	return strings.HasSuffix(path, "/") || strings.HasSuffix(path, "\\")
}
