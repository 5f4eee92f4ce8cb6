package config

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// DefaultBaseURL is the archive landing page template.
	// ListPlaceholder is replaced by the mailing list name.
	DefaultBaseURL = "https://www.freelists.org/archive/" + ListPlaceholder

	// ListPlaceholder marks where the list name goes in a base URL template.
	ListPlaceholder = "{list}"

	// DefaultTimeout bounds each HTTP request. Zero disables the timeout,
	// in which case a hung request stalls the run until it is interrupted.
	DefaultTimeout = 60 * time.Second

	// DefaultConcurrency of 0 fetches every month page at once.
	DefaultConcurrency = 0

	// DefaultBatchSize is the number of lists processed concurrently when
	// several list names are given.
	DefaultBatchSize = 4

	// DefaultUserAgent identifies liststat in HTTP requests.
	DefaultUserAgent = "liststat/1.0 (+https://github.com/nao1215/liststat)"

	// DefaultMaxBodySize limits how much of a response body is read.
	DefaultMaxBodySize = 10 * 1024 * 1024 // 10MB

	// DefaultOutputDir is where {list_name}.json is written.
	DefaultOutputDir = "."

	// AppName is the application name used for XDG directory paths.
	AppName = "liststat"
)

// Config holds all options for a liststat run.
// It is populated from CLI flags and the optional config file and passed
// down explicitly; there is no global configuration.
type Config struct {
	// BaseURL is the archive index template containing ListPlaceholder.
	BaseURL string

	// Timeout is the per-request timeout. Zero means no timeout.
	Timeout time.Duration

	// Concurrency caps concurrent month fetches. Zero means unbounded.
	Concurrency int

	// BatchSize is the number of lists processed concurrently.
	BatchSize int

	// ProxyAddress is an optional SOCKS5 proxy in "host:port" format.
	ProxyAddress string

	// ProxyUsername and ProxyPassword authenticate against the SOCKS5 proxy.
	ProxyUsername string
	ProxyPassword string

	// UserAgent is the User-Agent header sent with every request.
	UserAgent string

	// MaxBodySize limits the bytes read per response.
	MaxBodySize int64

	// Headers are extra request headers applied to every list. They win
	// over config file headers with the same name.
	Headers map[string]string

	// Explicit marks the settings that were set on the command line.
	Explicit ExplicitSettings

	// OutputDir is the directory receiving {list_name}.json.
	OutputDir string

	// PrettyJSON indents the written JSON document.
	PrettyJSON bool

	// MarkdownSummary prints the summary as Markdown instead of plain text.
	MarkdownSummary bool

	// JSONSummary prints the summary as JSON instead of plain text.
	JSONSummary bool

	// Quiet suppresses the summary on stdout.
	Quiet bool

	// Verbose enables debug logging.
	Verbose bool

	// SaveToDB stores each successful run in the history database.
	SaveToDB bool

	// DBDir is the directory of the history database.
	DBDir string

	// ConfigFilePath is the explicit config file path, if any.
	ConfigFilePath string

	// ListConfigs holds the per-list settings loaded from the config file.
	ListConfigs *File

	// Lists are the mailing list names to process.
	Lists []string
}

// NewConfig creates a Config with default values.
func NewConfig() *Config {
	return &Config{
		BaseURL:     DefaultBaseURL,
		Timeout:     DefaultTimeout,
		Concurrency: DefaultConcurrency,
		BatchSize:   DefaultBatchSize,
		UserAgent:   DefaultUserAgent,
		MaxBodySize: DefaultMaxBodySize,
		OutputDir:   DefaultOutputDir,
		SaveToDB:    true,
		DBDir:       XDGDataDir(),
		ListConfigs: &File{Lists: make(map[string]ListConfig)},
	}
}

// XDGDataDir returns the XDG data directory for liststat.
// On Linux: ~/.local/share/liststat
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for liststat.
// On Linux: ~/.config/liststat
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if len(c.Lists) == 0 {
		return ErrNoList
	}
	for _, name := range c.Lists {
		if strings.TrimSpace(name) == "" {
			return ErrEmptyListName
		}
	}

	if err := validateBaseURL(c.BaseURL); err != nil {
		return err
	}

	if c.Timeout < 0 {
		return ErrInvalidTimeout
	}

	if c.Concurrency < 0 {
		return ErrInvalidConcurrency
	}

	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	if c.ProxyAddress != "" && !IsValidProxyAddress(c.ProxyAddress) {
		return ErrInvalidProxyAddress
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	formats := 0
	for _, set := range []bool{c.MarkdownSummary, c.JSONSummary, c.Quiet} {
		if set {
			formats++
		}
	}
	if formats > 1 {
		return ErrConflictingSummaryFlags
	}

	if c.ListConfigs != nil {
		for _, lc := range c.ListConfigs.Lists {
			if lc.BaseURL != "" {
				if err := validateBaseURL(lc.BaseURL); err != nil {
					return err
				}
			}
		}
	}

	return nil
}

// validateBaseURL checks that a template is an http(s) URL with the placeholder.
func validateBaseURL(baseURL string) error {
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		return ErrInvalidBaseURL
	}
	if !strings.Contains(baseURL, ListPlaceholder) {
		return ErrMissingPlaceholder
	}
	return nil
}

// IsValidProxyAddress checks if the address is in "host:port" format with
// a port between 1 and 65535.
func IsValidProxyAddress(address string) bool {
	parts := strings.Split(address, ":")
	if len(parts) != 2 {
		return false
	}

	host, port := parts[0], parts[1]
	if host == "" || port == "" {
		return false
	}

	portNum := 0
	for _, c := range port {
		if c < '0' || c > '9' {
			return false
		}
		portNum = portNum*10 + int(c-'0')
		if portNum > 65535 {
			return false
		}
	}

	return portNum >= 1
}

// ForList returns the effective settings for one list. The config file
// defaults replace global values that were not set explicitly, command line
// headers come next, and the list's own section has the last word.
func (c *Config) ForList(name string) ListSettings {
	settings := ListSettings{
		BaseURL:     c.BaseURL,
		Timeout:     c.Timeout,
		Concurrency: c.Concurrency,
		UserAgent:   c.UserAgent,
		Headers:     make(map[string]string),
	}

	if c.ListConfigs != nil {
		settings.apply(c.ListConfigs.Defaults, c.Explicit)
	}
	for k, v := range c.Headers {
		settings.Headers[http.CanonicalHeaderKey(k)] = v
	}
	if c.ListConfigs != nil {
		if lc, ok := c.ListConfigs.Lists[name]; ok {
			settings.apply(lc, ExplicitSettings{})
		}
	}

	return settings
}

// ParseHeader splits a "Name: value" header argument.
func ParseHeader(s string) (string, string, error) {
	name, value, ok := strings.Cut(s, ":")
	name = strings.TrimSpace(name)
	if !ok || name == "" || strings.ContainsAny(name, " \t") {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidHeader, s)
	}
	return http.CanonicalHeaderKey(name), strings.TrimSpace(value), nil
}
