package fetcher

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/proxy"

	"github.com/nao1215/liststat/internal/config"
)

// Page is a fetched response.
type Page struct {
	// URL is the requested URL.
	URL string

	// StatusCode is the HTTP status of the response.
	StatusCode int

	// ContentType is the Content-Type header, used for charset detection.
	ContentType string

	// Body is the raw response body.
	Body []byte
}

// OK reports whether the status code is 2xx.
func (p *Page) OK() bool {
	return p.StatusCode >= 200 && p.StatusCode < 300
}

// Fetcher issues GET requests through a single shared connection pool.
// It is safe for concurrent use.
type Fetcher struct {
	client      *http.Client
	transport   *http.Transport
	logger      *slog.Logger
	progress    io.Writer
	maxBodySize int64
}

// options collects the settings applied by Option functions.
type options struct {
	timeout       time.Duration
	userAgent     string
	headers       map[string]string
	proxyAddress  string
	proxyUsername string
	proxyPassword string
	maxBodySize   int64
	maxIdleConns  int
	logger        *slog.Logger
	progress      io.Writer
}

// Option configures a Fetcher.
type Option func(*options)

// WithTimeout sets the per-request timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithUserAgent sets the User-Agent header of every request.
func WithUserAgent(ua string) Option {
	return func(o *options) {
		o.userAgent = ua
	}
}

// WithHeaders adds custom headers to every request.
func WithHeaders(headers map[string]string) Option {
	return func(o *options) {
		o.headers = headers
	}
}

// WithProxy routes every connection through a SOCKS5 proxy at address
// ("host:port"). username may be empty for proxies without authentication.
func WithProxy(address, username, password string) Option {
	return func(o *options) {
		o.proxyAddress = address
		o.proxyUsername = username
		o.proxyPassword = password
	}
}

// WithMaxBodySize limits the bytes read per response. Zero means no limit.
func WithMaxBodySize(n int64) Option {
	return func(o *options) {
		o.maxBodySize = n
	}
}

// WithMaxIdleConns sizes the idle connection pool.
func WithMaxIdleConns(n int) Option {
	return func(o *options) {
		o.maxIdleConns = n
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithProgress sets where "Fetching <url>" notices are written.
// A nil writer disables them.
func WithProgress(w io.Writer) Option {
	return func(o *options) {
		o.progress = w
	}
}

// defaultMaxIdleConns covers the burst of month requests to a single host.
const defaultMaxIdleConns = 100

// New creates a Fetcher. The proxy address, if any, is validated here but
// not contacted until the first request.
func New(opts ...Option) (*Fetcher, error) {
	o := &options{
		timeout:      config.DefaultTimeout,
		userAgent:    config.DefaultUserAgent,
		maxBodySize:  config.DefaultMaxBodySize,
		maxIdleConns: defaultMaxIdleConns,
		logger:       slog.Default(),
		progress:     io.Discard,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.progress == nil {
		o.progress = io.Discard
	}

	dialer := &ipv4Dialer{dialer: &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}}

	transport := &http.Transport{
		DialContext: dialer.DialContext,
		// Archive mirrors are often served with expired or self-signed
		// certificates.
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: true, //nolint:gosec // certificate checks are disabled for archive hosts
		},
		MaxIdleConns:          o.maxIdleConns,
		MaxIdleConnsPerHost:   o.maxIdleConns,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	if o.proxyAddress != "" {
		contextDialer, err := socks5Dialer(o.proxyAddress, o.proxyUsername, o.proxyPassword, dialer)
		if err != nil {
			return nil, err
		}
		transport.DialContext = contextDialer.DialContext
		o.logger.Debug("using SOCKS5 proxy",
			"proxy", o.proxyAddress,
			"proxy_username", o.proxyUsername,
		)
	}

	return &Fetcher{
		client: &http.Client{
			Transport: &headerInjectingTransport{
				base:      transport,
				userAgent: o.userAgent,
				headers:   o.headers,
			},
			Timeout: o.timeout,
		},
		transport:   transport,
		logger:      o.logger,
		progress:    o.progress,
		maxBodySize: o.maxBodySize,
	}, nil
}

// socks5Dialer builds a SOCKS5 dialer whose own connection to the proxy
// goes through forward.
func socks5Dialer(address, username, password string, forward proxy.Dialer) (proxy.ContextDialer, error) {
	if !config.IsValidProxyAddress(address) {
		return nil, ErrInvalidProxyAddress
	}

	var auth *proxy.Auth
	if username != "" {
		auth = &proxy.Auth{User: username, Password: password}
	}

	d, err := proxy.SOCKS5("tcp", address, auth, forward)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}

	cd, ok := d.(proxy.ContextDialer)
	if !ok {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer: %T does not support contexts", d)
	}
	return cd, nil
}

// Fetch performs one GET request and returns the response body.
// Network errors, timeouts and cancellation are returned wrapped; a
// non-2xx status is logged and the page is returned anyway.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Page, error) {
	_, _ = fmt.Fprintf(f.progress, "Fetching %s\n", url)
	f.logger.Debug("fetching page", "url", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", url, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := f.readBody(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", url, err)
	}

	page := &Page{
		URL:         url,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}

	if !page.OK() {
		f.logger.Warn("unexpected status code",
			"url", url,
			"status", resp.StatusCode,
		)
	}

	f.logger.Debug("fetched page",
		"url", url,
		"status", resp.StatusCode,
		"bytes", len(body),
	)

	return page, nil
}

// readBody reads r up to the size limit.
func (f *Fetcher) readBody(r io.Reader) ([]byte, error) {
	if f.maxBodySize <= 0 {
		return io.ReadAll(r)
	}

	body, err := io.ReadAll(io.LimitReader(r, f.maxBodySize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > f.maxBodySize {
		return nil, fmt.Errorf("%w (%d bytes)", ErrBodyTooLarge, f.maxBodySize)
	}
	return body, nil
}

// Close releases the idle connections of the pool.
// It always returns nil; the error return satisfies io.Closer.
func (f *Fetcher) Close() error {
	f.transport.CloseIdleConnections()
	return nil
}

// ipv4Dialer forces TCP connections over IPv4.
type ipv4Dialer struct {
	dialer *net.Dialer
}

// Dial implements proxy.Dialer.
func (d *ipv4Dialer) Dial(network, addr string) (net.Conn, error) {
	return d.DialContext(context.Background(), network, addr)
}

// DialContext implements proxy.ContextDialer.
func (d *ipv4Dialer) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	if network == "tcp" || network == "tcp6" {
		network = "tcp4"
	}
	return d.dialer.DialContext(ctx, network, addr)
}

// headerInjectingTransport wraps an http.RoundTripper to set the
// User-Agent and custom headers on every request.
type headerInjectingTransport struct {
	base      http.RoundTripper
	userAgent string
	headers   map[string]string
}

// RoundTrip implements http.RoundTripper.
func (t *headerInjectingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())

	if t.userAgent != "" {
		clone.Header.Set("User-Agent", t.userAgent)
	}
	for key, value := range t.headers {
		clone.Header.Set(key, value)
	}

	return t.base.RoundTrip(clone)
}
