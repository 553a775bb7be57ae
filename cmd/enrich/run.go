// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/schollz/progressbar/v3"
	flag "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/kraklabs/enrich/internal/errors"
	"github.com/kraklabs/enrich/internal/output"
	"github.com/kraklabs/enrich/internal/ui"
	"github.com/kraklabs/enrich/pkg/enrichment"
	"github.com/kraklabs/enrich/pkg/ingestion"
	"github.com/kraklabs/enrich/pkg/llm"
	"github.com/kraklabs/enrich/pkg/storage"
)

type runFlags struct {
	provider      string
	model         string
	concurrency   int
	debug         bool
	metricsAddr   string
	rulesPath     string
	auditDir      string
	dryRun        bool
	shutdownGrace time.Duration
	wait          time.Duration
}

// runEnrich executes the 'run' command: it enriches every eligible file of
// the repository and stores the payloads in the local ledger.
//
// Examples:
//
//	enrich run                              Use .enrich/project.yaml
//	enrich run --provider gemini -n 4       Override provider and concurrency
//	enrich run --dry-run                    Show what would be sent
//	enrich run --metrics-addr :9090         Expose Prometheus metrics
//	enrich run --wait 30m                   Queue behind a running run
func runEnrich(args []string, globals GlobalFlags) error {
	var f runFlags
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.StringVar(&f.provider, "provider", "", "LLM provider: deepseek, gemini, anthropic, mock (overrides config)")
	fs.StringVar(&f.model, "model", "", "Model name (overrides config)")
	fs.IntVarP(&f.concurrency, "concurrency", "n", 0, "Files enriched in parallel (default from config)")
	fs.BoolVar(&f.debug, "debug", false, "Enable debug logging")
	fs.StringVar(&f.metricsAddr, "metrics-addr", "", "HTTP listen address for Prometheus metrics (empty to disable)")
	fs.StringVar(&f.rulesPath, "rules", "", "Extra ingestion rules file (.yaml or .toml)")
	fs.StringVar(&f.auditDir, "audit-dir", "", "Dump every LLM request and response as JSON into this directory")
	fs.BoolVar(&f.dryRun, "dry-run", false, "Classify files and exit without calling the LLM")
	fs.DurationVar(&f.shutdownGrace, "shutdown-grace", 0, "How long to wait for in-flight files after an interrupt")
	fs.DurationVar(&f.wait, "wait", 0, "Wait this long for a concurrent run to finish instead of failing")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: enrich run [options]

Enriches the repository configured in .enrich/project.yaml. Files already
enriched and unchanged since are skipped. Press Ctrl-C to stop submitting
new files; files in flight finish within --shutdown-grace.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if stderrors.Is(err, flag.ErrHelp) {
			return nil
		}
		return errors.NewInputError("Invalid arguments", err.Error(), "Run 'enrich run --help'")
	}

	cfg, err := LoadConfig(globals.ConfigPath)
	if err != nil {
		return err
	}
	logger := newLogger(globals, f.debug)
	slog.SetDefault(logger)

	rulesCfg, err := cfg.RulesConfig(f.rulesPath)
	if err != nil {
		return err
	}
	rules := ingestion.NewRules(rulesCfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if f.dryRun {
		return classifyAndPrint(ctx, cfg.Root(), rules, false, globals)
	}

	summarizer, err := buildSummarizer(cfg, f, logger)
	if err != nil {
		return err
	}

	lock := NewRunLock(cfg.Root())
	acquired, err := lock.Wait(f.wait)
	if err != nil {
		return errors.NewPermissionError("Cannot take the run lock", err.Error(), "Check write permissions on .enrich/", err)
	}
	if !acquired {
		cause := "another enrich run holds .enrich/run.lock"
		if holder, _ := lock.Holder(); holder != nil {
			cause = fmt.Sprintf("pid %d has been running since %s", holder.PID, holder.StartedAt.Format(time.RFC3339))
		}
		return errors.NewInputError("Another run is in progress", cause, "Wait for it to finish, or pass --wait 10m")
	}
	defer lock.Release()

	store, err := storage.Open(storage.Config{DataDir: cfg.Storage.DataDir, ProjectID: cfg.Solution, Logger: logger})
	if err != nil {
		return errors.NewStorageError(
			"Cannot open the enrichment ledger",
			err.Error(),
			"Close other enrich processes or run 'enrich reset --yes'",
			err,
		)
	}
	defer func() { _ = store.Close() }()

	dcfg := ingestion.DispatcherConfig{
		Concurrency:   firstPositive(f.concurrency, cfg.Concurrency),
		ShutdownGrace: f.shutdownGrace,
		Logger:        logger,
	}
	if dcfg.ShutdownGrace <= 0 {
		dcfg.ShutdownGrace = cfg.ShutdownGrace
	}
	dispatcher, err := ingestion.NewDispatcher(dcfg, summarizer, rules, nil)
	if err != nil {
		return errors.NewInternalError("Cannot create dispatcher", "", "", err)
	}

	spinner := NewSpinner(NewProgressConfig(globals), "Enriching")
	listener := &progressListener{next: store, bar: spinner}
	req := ingestion.ProcessRequest{Solution: cfg.Solution, Component: cfg.Component, CodeBasePath: cfg.Root()}

	result, err := processWithMetrics(ctx, logger, f.metricsAddr, func(ctx context.Context) (*ingestion.RunResult, error) {
		return dispatcher.Process(ctx, req, listener, store)
	})
	if spinner != nil {
		_ = spinner.Finish()
	}

	if result != nil {
		if saveErr := ingestion.NewReportStore(RunsDir(cfg.Root())).Save(result); saveErr != nil {
			logger.Warn("run.report.save_error", "err", saveErr)
		}
	}
	if err != nil {
		if stderrors.Is(err, ingestion.ErrInvalidRequest) {
			return errors.NewInputError("Cannot start enrichment", err.Error(), "Check solution, component and the repository path")
		}
		return errors.NewInternalError("Enrichment failed", err.Error(), "Re-run with --debug for details", err)
	}

	if globals.JSON {
		if err := output.JSON(result); err != nil {
			return errors.NewInternalError("Cannot write JSON output", "", "", err)
		}
	} else {
		printRunResult(result, summarizer.Name(), summarizer.Model())
	}

	switch {
	case result.Interrupted:
		return errors.NewPartialError(
			"Run interrupted",
			fmt.Sprintf("%d of %d files reported before shutdown", result.Observed, result.Submitted),
			"Run 'enrich run' again; completed files are skipped",
		)
	case result.Failed > 0:
		return errors.NewPartialError(
			fmt.Sprintf("%d file(s) failed", result.Failed),
			"See 'enrich status' for the recorded errors",
			"Run 'enrich run' again to retry only the failed files",
		)
	}
	return nil
}

// buildSummarizer resolves provider settings from config, flags and the
// environment.
func buildSummarizer(cfg *Config, f runFlags, logger *slog.Logger) (*llm.Client, error) {
	if f.provider != "" {
		cfg.Provider.Type = f.provider
	}
	pc := cfg.ProviderConfig()
	if f.model != "" {
		pc.DefaultModel = f.model
	}
	pc.Logger = logger
	pc.Audit = llm.NewAuditSink(logger, firstNonEmpty(f.auditDir, cfg.Audit.DebugDir))

	client, err := llm.NewSummarizer(pc)
	switch {
	case err == nil:
		return client, nil
	case stderrors.Is(err, llm.ErrMissingAPIKey):
		envVar := firstNonEmpty(cfg.Provider.APIKeyEnv, llm.DefaultAPIKeyEnv(pc.Type))
		return nil, errors.NewConfigError(
			"Missing API key",
			fmt.Sprintf("provider %q needs an API key", pc.Type),
			fmt.Sprintf("export %s=... (or add it to .env), or use --provider mock", envVar),
			err,
		)
	case stderrors.Is(err, llm.ErrUnknownProvider):
		return nil, errors.NewInputError(
			"Unknown provider",
			err.Error(),
			"Use one of: deepseek, gemini, anthropic, mock",
		)
	default:
		return nil, errors.NewProviderError("Cannot create LLM provider", err.Error(), "", err)
	}
}

// processWithMetrics runs process while an optional metrics server is
// listening. The server stops when process returns.
func processWithMetrics(ctx context.Context, logger *slog.Logger, addr string, process func(context.Context) (*ingestion.RunResult, error)) (*ingestion.RunResult, error) {
	runCtx, done := context.WithCancel(ctx)
	defer done()
	g, gctx := errgroup.WithContext(runCtx)

	if addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		g.Go(func() error {
			logger.Info("metrics.http.start", "addr", addr, "path", "/metrics")
			if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
				logger.Warn("metrics.http.error", "err", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	var result *ingestion.RunResult
	g.Go(func() error {
		defer done()
		var err error
		result, err = process(ctx)
		return err
	})
	err := g.Wait()
	return result, err
}

// progressListener advances the spinner on every reported file.
type progressListener struct {
	next ingestion.Listener
	bar  *progressbar.ProgressBar
}

func (p *progressListener) OnError(message string, cause error) {
	p.next.OnError(message, cause)
	if p.bar != nil {
		_ = p.bar.Add(1)
	}
}

func (p *progressListener) OnEnrichment(solution, component, relPath string, payload *enrichment.Payload) {
	p.next.OnEnrichment(solution, component, relPath, payload)
	if p.bar != nil {
		p.bar.Describe("Enriching " + relPath)
		_ = p.bar.Add(1)
	}
}

func printRunResult(res *ingestion.RunResult, provider, model string) {
	fmt.Println()
	ui.Header("Enrichment Complete")
	fmt.Printf("%s %s / %s\n", ui.Label("Project:  "), res.Solution, res.Component)
	fmt.Printf("%s %s (%s)\n", ui.Label("Provider: "), provider, model)
	fmt.Printf("%s %s\n", ui.Label("Run ID:   "), ui.DimText(res.RunID))
	fmt.Println()

	ui.SubHeader("Files:")
	fmt.Printf("  Seen:        %s\n", ui.CountText(res.FilesSeen))
	fmt.Printf("  Code:        %s\n", ui.CountText(res.CodeFiles))
	fmt.Printf("  Templates:   %s\n", ui.CountText(res.TemplateFiles))
	fmt.Printf("  Configs:     %s\n", ui.CountText(res.ConfigFiles))
	fmt.Printf("  Documents:   %s\n", ui.CountText(res.DocumentFiles))
	fmt.Printf("  Too large:   %s\n", ui.CountText(res.TooLarge))
	fmt.Printf("  Unsupported: %s\n", ui.CountText(res.Unsupported))
	fmt.Println()

	ui.SubHeader("Tasks:")
	fmt.Printf("  Summarized:  %s\n", ui.Ratio(res.Summarized, res.Submitted))
	fmt.Printf("  Unchanged:   %s\n", ui.CountText(res.Ineligible))
	fmt.Printf("  Empty:       %s\n", ui.CountText(res.Empty))
	fmt.Printf("  Failed:      %s\n", ui.CountText(res.Failed))

	if len(res.Billing) > 0 {
		fmt.Println()
		ui.SubHeader("Billing:")
		for _, m := range res.Billing {
			fmt.Printf("  %s  files=%d input=%d output=%d cached=%d total=%d\n",
				ui.Label(m.Model), m.Files, m.InputTokens, m.OutputTokens, m.CachedTokens, m.TotalTokens)
		}
	}
	fmt.Println()
	fmt.Printf("Duration: %s\n", res.Duration.Round(time.Millisecond))

	if res.Failed > 0 {
		ui.Warningf("%d file(s) failed; see 'enrich status'", res.Failed)
	}
	if res.Interrupted {
		ui.Warning("Run was interrupted before every file reported")
	}
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
