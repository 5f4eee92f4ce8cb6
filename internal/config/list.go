package config

import (
	"net/http"
	"time"
)

// LayoutConfig overrides the HTML markers used to read archive pages.
// Empty fields keep the built-in markers.
type LayoutConfig struct {
	// IndexTable selects the table holding the month links.
	IndexTable string `yaml:"indexTable,omitempty"`

	// Heading selects the element whose text carries the month label.
	Heading string `yaml:"heading,omitempty"`

	// HeadingSeparator splits the heading text; the last segment is the label.
	HeadingSeparator string `yaml:"headingSeparator,omitempty"`

	// ThreadContainer selects the candidate containers of the thread list.
	ThreadContainer string `yaml:"threadContainer,omitempty"`

	// ThreadContainerIndex is the zero-based position among ThreadContainer
	// matches. Nil keeps the built-in position.
	ThreadContainerIndex *int `yaml:"threadContainerIndex,omitempty"`

	// ThreadItems selects the thread entries inside the container.
	ThreadItems string `yaml:"threadItems,omitempty"`

	// KeySeparator splits link labels and thread entries; the text after
	// its last occurrence is the year or sender key.
	KeySeparator string `yaml:"keySeparator,omitempty"`
}

// merge overlays the non-empty fields of o onto l.
func (l LayoutConfig) merge(o LayoutConfig) LayoutConfig {
	if o.IndexTable != "" {
		l.IndexTable = o.IndexTable
	}
	if o.Heading != "" {
		l.Heading = o.Heading
	}
	if o.HeadingSeparator != "" {
		l.HeadingSeparator = o.HeadingSeparator
	}
	if o.ThreadContainer != "" {
		l.ThreadContainer = o.ThreadContainer
	}
	if o.ThreadContainerIndex != nil {
		idx := *o.ThreadContainerIndex
		l.ThreadContainerIndex = &idx
	}
	if o.ThreadItems != "" {
		l.ThreadItems = o.ThreadItems
	}
	if o.KeySeparator != "" {
		l.KeySeparator = o.KeySeparator
	}
	return l
}

// ListConfig holds list-specific configuration from the config file.
type ListConfig struct {
	// BaseURL overrides the archive URL template. It must contain "{list}".
	BaseURL string `yaml:"baseURL,omitempty"`

	// Timeout overrides the per-request timeout, e.g. "30s".
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// Concurrency overrides the month fetch cap. Zero keeps the global value.
	Concurrency int `yaml:"concurrency,omitempty"`

	// UserAgent overrides the User-Agent header.
	UserAgent string `yaml:"userAgent,omitempty"`

	// Headers are custom HTTP headers sent for this list.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Layout overrides the page markers for archives with a different layout.
	Layout LayoutConfig `yaml:"layout,omitempty"`
}

// File represents the structure of the .liststat configuration file.
type File struct {
	// Lists maps list names to their list-specific configurations.
	Lists map[string]ListConfig `yaml:"lists,omitempty"`

	// Defaults applies to every list unless overridden in Lists.
	Defaults ListConfig `yaml:"defaults,omitempty"`
}

// ListSettings are the effective settings for one list after merging the
// command line with the config file.
type ListSettings struct {
	BaseURL     string
	Timeout     time.Duration
	Concurrency int
	UserAgent   string
	Headers     map[string]string
	Layout      LayoutConfig
}

// ExplicitSettings marks the list settings given on the command line.
// The config file defaults never replace them; a list's own section does.
type ExplicitSettings struct {
	BaseURL     bool
	Timeout     bool
	Concurrency bool
	UserAgent   bool
}

// apply overlays the non-zero fields of lc, skipping the fields marked in keep.
func (s *ListSettings) apply(lc ListConfig, keep ExplicitSettings) {
	if lc.BaseURL != "" && !keep.BaseURL {
		s.BaseURL = lc.BaseURL
	}
	if lc.Timeout != 0 && !keep.Timeout {
		s.Timeout = lc.Timeout
	}
	if lc.Concurrency != 0 && !keep.Concurrency {
		s.Concurrency = lc.Concurrency
	}
	if lc.UserAgent != "" && !keep.UserAgent {
		s.UserAgent = lc.UserAgent
	}
	for k, v := range lc.Headers {
		s.Headers[http.CanonicalHeaderKey(k)] = v
	}
	s.Layout = s.Layout.merge(lc.Layout)
}
