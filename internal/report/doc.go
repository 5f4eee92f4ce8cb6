// Package report renders archive statistics.
//
// This package contains writers for different output formats:
//   - JSONWriter: the {list_name}.json document, or a summary for tools
//   - SimpleWriter: human-readable text for the terminal
//   - MarkdownWriter: Markdown with a mermaid chart for sharing
//
// WriteFile stores the JSON document atomically next to the previous one.
// Writers implement the Writer interface and can be combined with MultiWriter.
package report
