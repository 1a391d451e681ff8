package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shpitdev/ensembl-homology-pipeline/internal/app"
	"github.com/shpitdev/ensembl-homology-pipeline/internal/config"
	"github.com/shpitdev/ensembl-homology-pipeline/internal/ensembl"
	"github.com/shpitdev/ensembl-homology-pipeline/internal/homology"
	"github.com/shpitdev/ensembl-homology-pipeline/internal/logger"
	"github.com/shpitdev/ensembl-homology-pipeline/internal/version"
)

type enrichFlags struct {
	configPath string

	relation      string
	targetSpecies string
	sequence      string

	column  string
	sheet   string
	noIndex bool

	baseURL        string
	workers        int
	requestTimeout time.Duration
	rateLimitRPS   float64

	journalPath string
	metricsFile string
	logLevel    string
}

func addEnrichFlags(cmd *cobra.Command, f *enrichFlags) {
	fs := cmd.Flags()
	fs.StringVar(&f.relation, "type", string(ensembl.RelationOrthologues), "Type of homology: orthologues, paralogues, projections, all")
	fs.StringVar(&f.targetSpecies, "tspecies", "", "Target species of the output genes")
	fs.StringVar(&f.sequence, "sequence", string(ensembl.SequenceNone), "Type of sequence to request: none, cdna, protein")

	fs.StringVar(&f.configPath, "config", "", "YAML config file")
	fs.StringVar(&f.column, "column", config.DefaultColumn, "Input column holding gene ids")
	fs.StringVar(&f.sheet, "sheet", "", "Worksheet to read from xlsx input (default Sheet1, else the first sheet)")
	fs.BoolVar(&f.noIndex, "no-index", false, "Omit the leading row-index column from the output")

	fs.StringVar(&f.baseURL, "base-url", ensembl.DefaultBaseURL, "Ensembl REST base URL (env: ENSEMBL_BASE_URL)")
	fs.IntVar(&f.workers, "workers", config.DefaultWorkers, "Number of concurrent lookups (env: WORKERS)")
	fs.DurationVar(&f.requestTimeout, "request-timeout", config.DefaultRequestTimeout, "Per-gene request timeout (env: REQUEST_TIMEOUT)")
	fs.Float64Var(&f.rateLimitRPS, "rate-limit-rps", 0, "Global request rate limit (RPS), 0 disables (env: RATE_LIMIT_RPS)")

	fs.StringVar(&f.journalPath, "journal", "", "SQLite file to record per-row outcomes in")
	fs.StringVar(&f.metricsFile, "metrics-file", "", "Write Prometheus textfile metrics to this path after the run")
	fs.StringVar(&f.logLevel, "log-level", "", "Log level: debug, info, warn, error (env: LOG_LEVEL)")
}

// resolveConfig layers flags the user set explicitly over the config file and
// environment.
func resolveConfig(cmd *cobra.Command, f *enrichFlags) (config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return config.Config{}, err
	}

	fs := cmd.Flags()
	if fs.Changed("base-url") {
		cfg.Ensembl.BaseURL = f.baseURL
	}
	if fs.Changed("workers") {
		cfg.Batch.Workers = f.workers
	}
	if fs.Changed("request-timeout") {
		cfg.Batch.RequestTimeout = f.requestTimeout
	}
	if fs.Changed("rate-limit-rps") {
		cfg.Batch.RateLimitRPS = f.rateLimitRPS
	}
	if fs.Changed("column") {
		cfg.Table.Column = f.column
	}
	if fs.Changed("sheet") {
		cfg.Table.Sheet = f.sheet
	}
	if fs.Changed("no-index") {
		cfg.Table.NoIndex = f.noIndex
	}
	if fs.Changed("journal") {
		cfg.Journal.Path = f.journalPath
	}
	if fs.Changed("metrics-file") {
		cfg.Metrics.Textfile = f.metricsFile
	}
	if fs.Changed("log-level") {
		cfg.Logging.Level = f.logLevel
	}
	if cfg.Ensembl.UserAgent == "" {
		cfg.Ensembl.UserAgent = version.UserAgent()
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func runEnrich(cmd *cobra.Command, f *enrichFlags, args []string) error {
	cfg, err := resolveConfig(cmd, f)
	if err != nil {
		return usageError{err}
	}

	log, err := logger.NewLogger(cfg.Logging.Env, cfg.Logging.Level)
	if err != nil {
		return usageError{err}
	}
	defer func() {
		_ = log.Sync()
	}()

	params := homology.Params{
		SourceSpecies: strings.TrimSpace(args[1]),
		TargetSpecies: strings.TrimSpace(f.targetSpecies),
		Relation:      ensembl.Relation(strings.TrimSpace(f.relation)),
		Sequence:      ensembl.Sequence(strings.TrimSpace(f.sequence)),
	}
	if !params.Relation.Known() {
		log.Warn("unrecognised homology type; forwarding as-is", zap.String("type", string(params.Relation)))
	}
	if !params.Sequence.Known() {
		log.Warn("unrecognised sequence type; forwarding as-is", zap.String("sequence", string(params.Sequence)))
	}

	client, err := ensembl.NewClient(ensembl.Config{
		BaseURL:   cfg.Ensembl.BaseURL,
		Timeout:   cfg.Batch.RequestTimeout,
		UserAgent: cfg.Ensembl.UserAgent,
	})
	if err != nil {
		return usageError{err}
	}

	ctx := logger.ContextWithLogger(cmd.Context(), log)
	summary, err := app.RunLocal(ctx, app.Options{
		InputPath:      args[0],
		OutputPath:     args[2],
		Sheet:          cfg.Table.Sheet,
		Column:         cfg.Table.Column,
		NoIndex:        cfg.Table.NoIndex,
		Params:         params,
		Workers:        cfg.Batch.Workers,
		RequestTimeout: cfg.Batch.RequestTimeout,
		RateLimitRPS:   cfg.Batch.RateLimitRPS,
		JournalPath:    cfg.Journal.Path,
		MetricsFile:    cfg.Metrics.Textfile,
	}, client)
	if err != nil {
		return fmt.Errorf("local run failed: %w", err)
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: %d rows (%d ok, %d failed, %d skipped) in %s, run %s\n",
		args[2], summary.Rows, summary.OK, summary.Failed, summary.Skipped,
		summary.Duration.Round(time.Millisecond), summary.RunID)
	return err
}
