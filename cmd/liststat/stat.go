package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/nao1215/liststat/internal/config"
	"github.com/nao1215/liststat/internal/database"
	"github.com/nao1215/liststat/internal/fetcher"
	"github.com/nao1215/liststat/internal/model"
	"github.com/nao1215/liststat/internal/parser"
	"github.com/nao1215/liststat/internal/pipeline"
	"github.com/nao1215/liststat/internal/report"
	"github.com/spf13/cobra"
)

// promptText asks for a list name when none is given on the command line.
const promptText = "list name as per freelists.org: "

// NewStatCmd creates the stat command.
func NewStatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stat [list-name...]",
		Short: "Collect archive statistics of mailing lists",
		Long: `Stat fetches the archive index of a freelists.org mailing list, then every
month page linked from it, and writes {list_name}.json containing:
- active months per year ("years")
- emails and threads per sender for every month ("months")

The file is only written when every page was fetched and parsed. A failed
list prints "Error for <list>: <reason>" and leaves existing files alone.

With no argument the list name is read from standard input.

Examples:
  # Collect statistics for one list
  liststat stat golang-dev

  # Several lists, two at a time, pretty-printed into ./out
  liststat stat -b 2 -o out --pretty golang-dev haiku-development

  # Limit concurrent month requests and go through a SOCKS5 proxy
  liststat stat -n 8 --proxy 127.0.0.1:1080 golang-dev

  # Print the summary as Markdown
  liststat stat -m golang-dev

  # Send an extra request header
  liststat stat -H "Accept-Language: en" golang-dev

Configuration file (.liststat) example:
  defaults:
    timeout: 30s
  lists:
    golang-dev:
      concurrency: 8
      headers:
        Accept-Language: en`,
		Args: cobra.ArbitraryArgs,
		RunE: runStatCmd,
	}

	// Archive flags
	cmd.Flags().String("base-url", config.DefaultBaseURL,
		"Archive URL template; "+config.ListPlaceholder+" is replaced by the list name")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each request (0 disables it)")
	cmd.Flags().IntP("concurrency", "n", config.DefaultConcurrency,
		"Maximum concurrent month requests (0 means unbounded)")
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of lists processed concurrently")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header sent with every request")
	cmd.Flags().StringArrayP("header", "H", nil,
		"Extra request header as \"Name: value\" (repeatable)")

	// Proxy flags
	cmd.Flags().String("proxy", "",
		"Route requests through a SOCKS5 proxy (host:port)")
	cmd.Flags().String("proxy-user", "",
		"SOCKS5 proxy username")
	cmd.Flags().String("proxy-password", "",
		"SOCKS5 proxy password")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .liststat in current or home directory)")

	// Output flags
	cmd.Flags().StringP("output-dir", "o", config.DefaultOutputDir,
		"Directory receiving {list_name}.json")
	cmd.Flags().Bool("pretty", false,
		"Indent the written JSON document")
	cmd.Flags().BoolP("json", "j", false,
		"Print the summary as JSON")
	cmd.Flags().BoolP("markdown", "m", false,
		"Print the summary as Markdown")
	cmd.Flags().BoolP("quiet", "q", false,
		"Do not print a summary")

	// History flags
	cmd.Flags().Bool("no-history", false,
		"Do not store the run in the history database")
	cmd.Flags().String("db-dir", "",
		"History database directory (default: XDG data directory)")

	return cmd
}

// runStatCmd executes the stat command.
func runStatCmd(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		name, err := promptListName(cmd.InOrStdin(), cmd.OutOrStdout())
		if err != nil {
			return err
		}
		args = []string{name}
	}

	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd, cfg.Verbose)

	// Set up context with signal handling for graceful shutdown
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return runStat(ctx, cfg, logger, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// promptListName reads one list name from in.
func promptListName(in io.Reader, out io.Writer) (string, error) {
	fmt.Fprint(out, promptText)

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read list name: %w", err)
	}

	name := strings.TrimSpace(line)
	if name == "" {
		return "", config.ErrNoList
	}
	return name, nil
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error

	if cfg.BaseURL, err = flags.GetString("base-url"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.Concurrency, err = flags.GetInt("concurrency"); err != nil {
		return nil, err
	}
	if cfg.BatchSize, err = flags.GetInt("batch"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return nil, err
	}
	headers, err := flags.GetStringArray("header")
	if err != nil {
		return nil, err
	}
	if len(headers) > 0 {
		cfg.Headers = make(map[string]string, len(headers))
		for _, h := range headers {
			name, value, err := config.ParseHeader(h)
			if err != nil {
				return nil, fmt.Errorf("configuration error: %w", err)
			}
			cfg.Headers[name] = value
		}
	}
	cfg.Explicit = config.ExplicitSettings{
		BaseURL:     flags.Changed("base-url"),
		Timeout:     flags.Changed("timeout"),
		Concurrency: flags.Changed("concurrency"),
		UserAgent:   flags.Changed("user-agent"),
	}
	if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
		return nil, err
	}
	if cfg.ProxyUsername, err = flags.GetString("proxy-user"); err != nil {
		return nil, err
	}
	if cfg.ProxyPassword, err = flags.GetString("proxy-password"); err != nil {
		return nil, err
	}
	if cfg.OutputDir, err = flags.GetString("output-dir"); err != nil {
		return nil, err
	}
	if cfg.PrettyJSON, err = flags.GetBool("pretty"); err != nil {
		return nil, err
	}
	if cfg.JSONSummary, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownSummary, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.Quiet, err = flags.GetBool("quiet"); err != nil {
		return nil, err
	}

	noHistory, err := flags.GetBool("no-history")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noHistory

	dbDir, err := flags.GetString("db-dir")
	if err != nil {
		return nil, err
	}
	if dbDir != "" {
		cfg.DBDir = dbDir
	}

	cfg.Verbose = getVerboseFlag(cmd)

	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}

	// An explicit config path must exist; otherwise a missing file means
	// no per-list settings.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		cfg.ListConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	cfg.Lists = args

	return cfg, nil
}

// runStat processes every configured list.
// Per-list failures are reported and do not make the command fail.
func runStat(ctx context.Context, cfg *config.Config, logger *slog.Logger, stdout, stderr io.Writer) error {
	logger.Info("starting run",
		"lists", cfg.Lists,
		"batchSize", cfg.BatchSize,
		"saveToDB", cfg.SaveToDB,
	)

	var db *database.HistoryDB
	if cfg.SaveToDB {
		var err error
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("database opened", "path", db.Path())
	}

	// Progress notices stay off stdout when it carries JSON.
	notices := stdout
	if cfg.JSONSummary {
		notices = stderr
	}

	bp := pipeline.NewBatchProcessor(
		func(name string) (*pipeline.Pipeline, error) {
			return createPipelineForList(cfg, name, logger, notices)
		},
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
	)

	startTime := time.Now()

	var mu sync.Mutex
	err := bp.ProcessBatchWithCallback(ctx, cfg.Lists, func(run *model.Run, _ int) {
		mu.Lock()
		defer mu.Unlock()

		handleRun(ctx, cfg, run, db, logger, stdout, stderr, notices)
	})

	logger.Info("run complete", "elapsed", time.Since(startTime).Round(time.Millisecond))

	return err
}

// createPipelineForList builds the pipeline of one list with its own fetcher.
// The fetcher is released when the pipeline is closed.
func createPipelineForList(cfg *config.Config, name string, logger *slog.Logger, progress io.Writer) (*pipeline.Pipeline, error) {
	settings := cfg.ForList(name)

	fetcherOpts := []fetcher.Option{
		fetcher.WithTimeout(settings.Timeout),
		fetcher.WithUserAgent(settings.UserAgent),
		fetcher.WithHeaders(settings.Headers),
		fetcher.WithProxy(cfg.ProxyAddress, cfg.ProxyUsername, cfg.ProxyPassword),
		fetcher.WithMaxBodySize(cfg.MaxBodySize),
		fetcher.WithLogger(logger),
		fetcher.WithProgress(progress),
	}
	// Idle pool sized to the month fetch cap.
	if settings.Concurrency > 0 {
		fetcherOpts = append(fetcherOpts, fetcher.WithMaxIdleConns(settings.Concurrency))
	}

	f, err := fetcher.New(fetcherOpts...)
	if err != nil {
		return nil, err
	}

	pipelineOpts := []pipeline.Option{
		pipeline.WithLogger(logger.With("list", name)),
		pipeline.WithResource(f),
	}

	configOpts := []pipeline.DefaultPipelineOption{
		pipeline.WithPipelineBaseURL(settings.BaseURL),
		pipeline.WithPipelineLayout(toLayout(settings.Layout)),
		pipeline.WithPipelineConcurrency(settings.Concurrency),
	}

	return pipeline.DefaultPipeline(f, pipelineOpts, configOpts...), nil
}

// toLayout overlays configured markers on the built-in page layout.
func toLayout(lc config.LayoutConfig) parser.Layout {
	layout := parser.DefaultLayout()
	if lc.IndexTable != "" {
		layout.IndexTable = lc.IndexTable
	}
	if lc.Heading != "" {
		layout.Heading = lc.Heading
	}
	if lc.HeadingSeparator != "" {
		layout.HeadingSeparator = lc.HeadingSeparator
	}
	if lc.ThreadContainer != "" {
		layout.ThreadContainer = lc.ThreadContainer
	}
	if lc.ThreadContainerIndex != nil {
		layout.ThreadContainerIndex = *lc.ThreadContainerIndex
	}
	if lc.ThreadItems != "" {
		layout.ThreadItems = lc.ThreadItems
	}
	if lc.KeySeparator != "" {
		layout.KeySeparator = lc.KeySeparator
	}
	return layout
}

// handleRun writes the outputs of a finished run, or reports its failure.
func handleRun(
	ctx context.Context,
	cfg *config.Config,
	run *model.Run,
	db *database.HistoryDB,
	logger *slog.Logger,
	stdout, stderr, notices io.Writer,
) {
	if run.Failed() {
		logger.Error("run failed", "list", run.ListName, "error", run.Err)
		fmt.Fprintf(stderr, "Error for %s: %s\n", run.ListName, run.ErrorMessage)
		return
	}

	out := run.Output()

	fmt.Fprintf(notices, "Writing to %s\n", report.OutputFileName(run.ListName))

	var jsonOpts []report.JSONWriterOption
	if cfg.PrettyJSON {
		jsonOpts = append(jsonOpts, report.WithPrettyPrint())
	}

	path, err := report.WriteFile(cfg.OutputDir, run.ListName, out, jsonOpts...)
	if err != nil {
		logger.Error("failed to write output", "list", run.ListName, "error", err)
		fmt.Fprintf(stderr, "Error for %s: %v\n", run.ListName, err)
		return
	}

	logger.Info("output written",
		"list", run.ListName,
		"path", path,
		"months", len(out.Months),
		"elapsed", run.Duration().Round(time.Millisecond),
	)

	if err := outputSummary(cfg, stdout, run.ListName, out); err != nil {
		logger.Error("summary failed", "list", run.ListName, "error", err)
	}

	if err := saveRun(ctx, db, run, logger); err != nil {
		logger.Error("failed to save run", "list", run.ListName, "error", err)
	}
}

// outputSummary prints the summary in the requested format.
func outputSummary(cfg *config.Config, w io.Writer, listName string, out *model.AggregateOutput) error {
	var writer report.Writer
	switch {
	case cfg.Quiet:
		return nil
	case cfg.JSONSummary:
		summary := model.NewSummary(listName, out, model.DefaultTopSenders)
		_, err := report.NewJSONWriter(w, report.WithPrettyPrint()).WriteSummary(summary)
		return err
	case cfg.MarkdownSummary:
		writer = report.NewMarkdownWriter(w)
	default:
		writer = report.NewSimpleWriter(w, report.WithVerbose(cfg.Verbose))
	}

	_, err := writer.Write(listName, out)
	return err
}

// saveRun stores the run in the history database.
// If db is nil, this function is a no-op.
func saveRun(ctx context.Context, db *database.HistoryDB, run *model.Run, logger *slog.Logger) error {
	if db == nil {
		return nil
	}

	id, err := db.SaveRun(ctx, run)
	if err != nil {
		return err
	}

	logger.Info("run saved to database", "list", run.ListName, "id", id)
	return nil
}
