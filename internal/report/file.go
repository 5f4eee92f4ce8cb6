package report

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nao1215/liststat/internal/model"
)

// OutputFileName returns the archive document name of a list: "<list>.json".
func OutputFileName(listName string) string {
	return listName + ".json"
}

// WriteFile writes the archive document of a list to dir/<list>.json.
//
// The document is encoded completely in memory, written to a temporary file
// in dir and renamed into place, so the target is either the previous file
// or the complete new one. It returns the path written.
func WriteFile(dir, listName string, out *model.AggregateOutput, opts ...JSONWriterOption) (string, error) {
	var buf bytes.Buffer
	if _, err := NewJSONWriter(&buf, opts...).Write(listName, out); err != nil {
		return "", fmt.Errorf("failed to encode %s: %w", listName, err)
	}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(dir, OutputFileName(listName))

	tmp, err := os.CreateTemp(dir, "."+OutputFileName(listName)+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		// No-op after a successful rename.
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil { //nolint:gosec // output is meant to be shared
		return "", fmt.Errorf("failed to set permissions on %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}

	return path, nil
}
