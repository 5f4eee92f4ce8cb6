package report

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/nao1215/liststat/internal/model"
)

// JSONWriter outputs statistics as JSON.
// Write produces the archive document ({"years": ..., "months": [...]});
// WriteSummary produces the derived figures.
//
// HTML escaping is disabled: sender names such as "Jane <jane@example.com>"
// are written verbatim.
type JSONWriter struct {
	baseWriter

	indent       bool
	indentPrefix string
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with two-space indentation.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the archive document. listName is not part of the document.
func (w *JSONWriter) Write(_ string, out *model.AggregateOutput) (int, error) {
	if out == nil {
		out = model.NewAggregateOutput(nil, nil)
	}
	return w.writeJSON(out)
}

// WriteSummary outputs the summary as JSON.
func (w *JSONWriter) WriteSummary(summary *model.Summary) (int, error) {
	return w.writeJSON(summary)
}

// writeJSON encodes v and writes it followed by a newline.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	data, err := w.encode(v)
	if err != nil {
		return 0, err
	}
	return w.output.Write(data)
}

// encode returns the JSON encoding of v with a trailing newline.
func (w *JSONWriter) encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if w.indent {
		enc.SetIndent(w.indentPrefix, w.indentString)
	}
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
