package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/liststat/internal/config"
	"github.com/nao1215/liststat/internal/fetcher"
	"github.com/nao1215/liststat/internal/model"
	"github.com/nao1215/liststat/internal/parser"
)

// PageFetcher retrieves one page. *fetcher.Fetcher implements it.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*fetcher.Page, error)
}

// IndexURL builds the archive index URL by substituting the escaped list
// name into baseURL.
func IndexURL(baseURL, listName string) string {
	return strings.ReplaceAll(baseURL, config.ListPlaceholder, url.PathEscape(listName))
}

// MonthURL builds the URL of a month page: the index URL, a slash and the
// escaped link label.
func MonthURL(indexURL, label string) string {
	return indexURL + "/" + url.PathEscape(label)
}

// IndexStep fetches and parses the archive index page.
// It stores the index URL, the month links and the year summary on the run.
type IndexStep struct {
	fetcher PageFetcher
	baseURL string
	layout  parser.Layout
	logger  *slog.Logger
}

// IndexStepOption configures an IndexStep.
type IndexStepOption func(*IndexStep)

// WithIndexBaseURL sets the archive URL template.
func WithIndexBaseURL(baseURL string) IndexStepOption {
	return func(s *IndexStep) {
		s.baseURL = baseURL
	}
}

// WithIndexLayout sets the page layout used to find the link table.
func WithIndexLayout(layout parser.Layout) IndexStepOption {
	return func(s *IndexStep) {
		s.layout = layout
	}
}

// WithIndexLogger sets a custom logger for the index step.
func WithIndexLogger(logger *slog.Logger) IndexStepOption {
	return func(s *IndexStep) {
		s.logger = logger
	}
}

// NewIndexStep creates a new index step.
func NewIndexStep(f PageFetcher, opts ...IndexStepOption) *IndexStep {
	s := &IndexStep{
		fetcher: f,
		baseURL: config.DefaultBaseURL,
		layout:  parser.DefaultLayout(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *IndexStep) Name() string {
	return "index"
}

// Do executes the index step.
func (s *IndexStep) Do(ctx context.Context, run *model.Run) error {
	run.IndexURL = IndexURL(s.baseURL, run.ListName)

	page, err := s.fetcher.Fetch(ctx, run.IndexURL)
	if err != nil {
		return fmt.Errorf("failed to fetch archive index: %w", err)
	}

	doc, err := parser.NewDocument(page.Body, page.ContentType)
	if err != nil {
		return fmt.Errorf("failed to read archive index: %w", err)
	}

	index, err := parser.ParseIndex(doc, s.layout)
	if err != nil {
		return fmt.Errorf("failed to parse archive index %s: %w", run.IndexURL, err)
	}

	run.Links = index.Links
	run.Years = index.Years

	s.logger.Debug("parsed archive index",
		"list", run.ListName,
		"links", len(index.Links),
		"years", len(index.Years),
	)

	return nil
}

// MonthsStep fetches every month page linked from the index concurrently
// and parses each as soon as it arrives. Months are appended to the run in
// completion order. The first failure cancels the remaining fetches.
type MonthsStep struct {
	fetcher     PageFetcher
	layout      parser.Layout
	concurrency int
	logger      *slog.Logger
}

// MonthsStepOption configures a MonthsStep.
type MonthsStepOption func(*MonthsStep)

// WithMonthsLayout sets the page layout used to read month pages.
func WithMonthsLayout(layout parser.Layout) MonthsStepOption {
	return func(s *MonthsStep) {
		s.layout = layout
	}
}

// WithMonthsConcurrency caps concurrent month fetches. Zero or a negative
// value fetches every month at once.
func WithMonthsConcurrency(n int) MonthsStepOption {
	return func(s *MonthsStep) {
		s.concurrency = n
	}
}

// WithMonthsLogger sets a custom logger for the months step.
func WithMonthsLogger(logger *slog.Logger) MonthsStepOption {
	return func(s *MonthsStep) {
		s.logger = logger
	}
}

// NewMonthsStep creates a new months step.
func NewMonthsStep(f PageFetcher, opts ...MonthsStepOption) *MonthsStep {
	s := &MonthsStep{
		fetcher:     f,
		layout:      parser.DefaultLayout(),
		concurrency: config.DefaultConcurrency,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *MonthsStep) Name() string {
	return "months"
}

// Do executes the months step.
func (s *MonthsStep) Do(ctx context.Context, run *model.Run) error {
	g, gctx := errgroup.WithContext(ctx)
	if s.concurrency > 0 {
		g.SetLimit(s.concurrency)
	}

	for i := range run.Links {
		link := &run.Links[i]
		if link.Label == "" {
			continue
		}
		link.Href = MonthURL(run.IndexURL, link.Label)
		label, href := link.Label, link.Href

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			stat, err := s.fetchMonth(gctx, href)
			if err != nil {
				return fmt.Errorf("month %s: %w", label, err)
			}
			run.AddMonth(stat)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	s.logger.Debug("collected month pages",
		"list", run.ListName,
		"months", run.MonthCount(),
	)

	return nil
}

// fetchMonth fetches and parses one month page.
func (s *MonthsStep) fetchMonth(ctx context.Context, href string) (model.MonthStat, error) {
	page, err := s.fetcher.Fetch(ctx, href)
	if err != nil {
		return model.MonthStat{}, err
	}

	doc, err := parser.NewDocument(page.Body, page.ContentType)
	if err != nil {
		return model.MonthStat{}, err
	}

	stat, err := parser.ParseMonth(doc, s.layout)
	if err != nil {
		return model.MonthStat{}, fmt.Errorf("failed to parse %s: %w", href, err)
	}
	return stat, nil
}

// DefaultPipelineConfig holds configuration for the default pipeline.
type DefaultPipelineConfig struct {
	// BaseURL is the archive URL template containing "{list}".
	BaseURL string

	// Layout describes the archive page markers.
	Layout parser.Layout

	// Concurrency caps concurrent month fetches. Zero means unbounded.
	Concurrency int
}

// DefaultPipelineOption configures a DefaultPipelineConfig.
type DefaultPipelineOption func(*DefaultPipelineConfig)

// WithPipelineBaseURL sets the archive URL template.
func WithPipelineBaseURL(baseURL string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.BaseURL = baseURL
	}
}

// WithPipelineLayout sets the archive page layout.
func WithPipelineLayout(layout parser.Layout) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Layout = layout
	}
}

// WithPipelineConcurrency caps concurrent month fetches.
func WithPipelineConcurrency(n int) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Concurrency = n
	}
}

// DefaultPipeline creates the index and months steps sharing one fetcher.
//
// The first variadic parameter accepts pipeline options (WithLogger, etc).
// The second accepts pipeline config options (WithPipelineBaseURL, etc).
func DefaultPipeline(f PageFetcher, pipelineOpts []Option, configOpts ...DefaultPipelineOption) *Pipeline {
	p := New(pipelineOpts...)

	cfg := &DefaultPipelineConfig{
		BaseURL:     config.DefaultBaseURL,
		Layout:      parser.DefaultLayout(),
		Concurrency: config.DefaultConcurrency,
	}
	for _, opt := range configOpts {
		opt(cfg)
	}

	p.AddSteps(
		NewIndexStep(f,
			WithIndexBaseURL(cfg.BaseURL),
			WithIndexLayout(cfg.Layout),
			WithIndexLogger(p.logger),
		),
		NewMonthsStep(f,
			WithMonthsLayout(cfg.Layout),
			WithMonthsConcurrency(cfg.Concurrency),
			WithMonthsLogger(p.logger),
		),
	)

	return p
}
