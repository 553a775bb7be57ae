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

package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kraklabs/enrich/pkg/enrichment"
	"github.com/kraklabs/enrich/pkg/llm"
)

// ErrInvalidRequest is returned by Process when the request cannot start.
var ErrInvalidRequest = errors.New("invalid enrichment request")

// errWalkInterrupted stops the walk when the run context is cancelled.
var errWalkInterrupted = errors.New("walk interrupted")

// Listener receives enrichment results and per-file errors. Implementations
// must be safe for concurrent use: callbacks arrive from worker goroutines.
type Listener interface {
	OnError(message string, cause error)
	OnEnrichment(solution, component, relPath string, payload *enrichment.Payload)
}

// Validator decides which files need (re)processing. IsEligible must be
// cheap and free of side effects; MarkCompleted is called after a file was
// enriched or skipped for size.
type Validator interface {
	IsEligible(solution, component, relPath, absPath string) bool
	MarkCompleted(solution, component, relPath, absPath string)
}

// DocumentExtraction is the text and metadata pulled out of a document.
type DocumentExtraction struct {
	DocType  string
	Title    string
	Datetime string
	Text     string
}

// DocumentExtractor turns a document file into plain text.
type DocumentExtractor interface {
	Extract(path string) (*DocumentExtraction, error)
}

// RunState is the lifecycle stage of a Process call.
type RunState string

const (
	StateInit     RunState = "INIT"
	StateWalking  RunState = "WALKING"
	StateDraining RunState = "DRAINING"
	StateDone     RunState = "DONE"
	StateFailed   RunState = "FAILED"
)

// Outcome is the result of one task.
type Outcome string

const (
	OutcomeSummarized Outcome = "summarized"
	OutcomeEmpty      Outcome = "empty"
	OutcomeFailed     Outcome = "failed"
	OutcomeIneligible Outcome = "ineligible"

	// OutcomeUnsupported marks a document no extractor can read.
	OutcomeUnsupported Outcome = "unsupported"
)

// Dispatcher defaults.
const (
	DefaultConcurrency   = 2
	DefaultShutdownGrace = 30 * time.Second
)

// DispatcherConfig configures a Dispatcher.
type DispatcherConfig struct {
	// Concurrency is the number of tasks executing at once (min 1).
	Concurrency int

	// ShutdownGrace bounds how long Process waits for in-flight tasks once
	// the run is over.
	ShutdownGrace time.Duration

	// AssetCacheSize is the number of template assets kept in memory.
	AssetCacheSize int

	Logger *slog.Logger
}

// ProcessRequest identifies one repository to enrich.
type ProcessRequest struct {
	Solution     string
	Component    string
	CodeBasePath string
}

// RunResult summarizes a Process call.
type RunResult struct {
	RunID       string   `json:"run_id"`
	Solution    string   `json:"solution"`
	Component   string   `json:"component"`
	State       RunState `json:"state"`
	Interrupted bool     `json:"interrupted"`

	// FilesSeen counts every regular file visited, ignored ones included.
	FilesSeen     int `json:"files_seen"`
	CodeFiles     int `json:"code_files"`
	TemplateFiles int `json:"template_files"`
	ConfigFiles   int `json:"config_files"`
	DocumentFiles int `json:"document_files"`

	// Eligible is the sum of the category tallies, one task each.
	Eligible   int `json:"eligible"`
	Submitted  int `json:"submitted"`
	Summarized int `json:"summarized"`
	Empty      int `json:"empty"`
	Failed     int `json:"failed"`
	Ineligible int `json:"ineligible"`
	TooLarge   int `json:"too_large"`

	// Unsupported counts documents skipped for lack of an extractor.
	Unsupported int `json:"unsupported"`

	// Observed is the number of task results collected while draining.
	Observed int `json:"observed"`

	Billing   []ModelTotals `json:"billing,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Error     string        `json:"error,omitempty"`
}

// Dispatcher walks a repository, classifies every file and enriches the
// eligible ones through a bounded pool of workers.
type Dispatcher struct {
	cfg        DispatcherConfig
	summarizer llm.Summarizer
	rules      *Rules
	extractor  DocumentExtractor
	logger     *slog.Logger

	// scan walks the tree; tests replace it to inject traversal errors.
	scan func(ctx context.Context, root string, rules *Rules, logger *slog.Logger, visit func(Entry) error) error
}

// NewDispatcher creates a dispatcher. Nil rules select DefaultRules and a nil
// extractor selects the TextExtractor.
func NewDispatcher(cfg DispatcherConfig, summarizer llm.Summarizer, rules *Rules, extractor DocumentExtractor) (*Dispatcher, error) {
	if summarizer == nil {
		return nil, fmt.Errorf("dispatcher: nil summarizer")
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.ShutdownGrace <= 0 {
		cfg.ShutdownGrace = DefaultShutdownGrace
	}
	if cfg.AssetCacheSize <= 0 {
		cfg.AssetCacheSize = DefaultAssetCacheSize
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if rules == nil {
		rules = DefaultRules()
	}
	if extractor == nil {
		extractor = NewTextExtractor()
	}
	return &Dispatcher{
		cfg:        cfg,
		summarizer: summarizer,
		rules:      rules,
		extractor:  extractor,
		logger:     cfg.Logger,
		scan:       Scan,
	}, nil
}

// Rules returns the rule set used for classification.
func (d *Dispatcher) Rules() *Rules { return d.rules }

// Process enriches one repository. It returns after every submitted task
// has reported, or earlier when ctx is cancelled (RunResult.Interrupted).
// In-flight provider calls are never cancelled; they are bounded by the
// transport timeouts and by ShutdownGrace.
func (d *Dispatcher) Process(ctx context.Context, req ProcessRequest, listener Listener, validator Validator) (*RunResult, error) {
	start := time.Now()
	result := &RunResult{
		RunID:     uuid.NewString(),
		Solution:  req.Solution,
		Component: req.Component,
		State:     StateInit,
		StartedAt: start.UTC(),
	}

	root, err := validateRequest(req, listener, validator)
	if err != nil {
		result.State = StateFailed
		result.Error = err.Error()
		if listener != nil {
			listener.OnError(err.Error(), err)
		}
		d.logger.Error("enrichment.request.invalid", "run_id", result.RunID, "err", err)
		return result, err
	}

	bundler, err := NewBundler(root, d.rules, d.cfg.AssetCacheSize)
	if err != nil {
		result.State = StateFailed
		result.Error = err.Error()
		listener.OnError(err.Error(), err)
		return result, err
	}

	r := &run{
		d:         d,
		req:       req,
		root:      root,
		listener:  listener,
		validator: validator,
		bundler:   bundler,
		billing:   NewBillingAggregator(),
		result:    result,
		logger:    d.logger.With("run_id", result.RunID),
	}

	p := newPool(d.cfg.Concurrency)
	defer func() {
		if !p.shutdown(d.cfg.ShutdownGrace) {
			r.logger.Warn("enrichment.shutdown.timeout", "grace", d.cfg.ShutdownGrace)
		}
	}()

	r.logger.Info("enrichment.run.start",
		"solution", req.Solution,
		"component", req.Component,
		"root", root,
		"concurrency", d.cfg.Concurrency,
		"provider", d.summarizer.Name(),
		"model", d.summarizer.Model(),
	)

	result.State = StateWalking
	walkErr := r.walk(ctx, p)
	switch {
	case errors.Is(walkErr, errWalkInterrupted):
		result.Interrupted = true
		r.logger.Warn("enrichment.walk.interrupted", "submitted", result.Submitted)
	case walkErr != nil:
		result.State = StateFailed
		msg := "Error traversing code base: " + walkErr.Error()
		result.Error = msg
		r.logger.Error("enrichment.walk.error", "root", root, "err", walkErr)
		listener.OnError(msg, walkErr)
		r.finish(start)
		return result, fmt.Errorf("traverse %s: %w", root, walkErr)
	}

	result.State = StateDraining
	r.drain(ctx, p)

	result.State = StateDone
	r.finish(start)
	return result, nil
}

func validateRequest(req ProcessRequest, listener Listener, validator Validator) (string, error) {
	switch {
	case strings.TrimSpace(req.Solution) == "":
		return "", fmt.Errorf("%w: solution name is required", ErrInvalidRequest)
	case strings.TrimSpace(req.Component) == "":
		return "", fmt.Errorf("%w: component name is required", ErrInvalidRequest)
	case strings.TrimSpace(req.CodeBasePath) == "":
		return "", fmt.Errorf("%w: code base path is required", ErrInvalidRequest)
	case listener == nil:
		return "", fmt.Errorf("%w: listener is required", ErrInvalidRequest)
	case validator == nil:
		return "", fmt.Errorf("%w: validator is required", ErrInvalidRequest)
	}
	abs, err := filepath.Abs(req.CodeBasePath)
	if err != nil {
		return "", fmt.Errorf("%w: resolve %s: %v", ErrInvalidRequest, req.CodeBasePath, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("%w: code base path %s: %v", ErrInvalidRequest, abs, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: code base path %s is not a directory", ErrInvalidRequest, abs)
	}
	return abs, nil
}

// run holds the state of one Process call.
type run struct {
	d         *Dispatcher
	req       ProcessRequest
	root      string
	listener  Listener
	validator Validator
	bundler   *Bundler
	billing   *BillingAggregator
	result    *RunResult
	logger    *slog.Logger
}

// task is one eligible file waiting for a worker.
type task struct {
	category Category
	relPath  string
	absPath  string
}

type taskResult struct {
	relPath  string
	category Category
	outcome  Outcome
}

// walk visits the tree once on the calling goroutine and submits one task
// per eligible file.
func (r *run) walk(ctx context.Context, p *pool) error {
	taskCtx := context.WithoutCancel(ctx)

	return r.d.scan(ctx, r.root, r.d.rules, r.logger, func(e Entry) error {
		if e.IsDir {
			return nil
		}
		r.result.FilesSeen++
		recordFileSeen()

		switch e.Status {
		case EntrySkipped, EntryUnclassified:
			return nil
		case EntryTooLarge:
			r.skipOversized(e.RelPath, e.AbsPath)
			return nil
		}

		switch e.Category {
		case CategoryCode:
			r.result.CodeFiles++
		case CategoryTemplate:
			r.result.TemplateFiles++
		case CategoryConfig:
			r.result.ConfigFiles++
		case CategoryDocument:
			r.result.DocumentFiles++
		}
		r.result.Eligible++
		r.result.Submitted++
		recordSubmitted()

		t := task{category: e.Category, relPath: e.RelPath, absPath: e.AbsPath}
		p.submit(func() taskResult { return r.execute(taskCtx, t) })
		return nil
	})
}

// skipOversized reports an oversized file without calling the LLM.
func (r *run) skipOversized(rel, abs string) {
	r.logger.Warn("repo.walk.skip_large_file", "path", rel, "limit", r.d.rules.MaxFileSize())
	payload := enrichment.NewSkippedPayload(rel)
	payload.Solution = r.req.Solution
	payload.Component = r.req.Component
	r.listener.OnEnrichment(r.req.Solution, r.req.Component, rel, payload)
	r.validator.MarkCompleted(r.req.Solution, r.req.Component, rel, abs)
	r.result.TooLarge++
	recordTooLarge()
}

// execute runs one task. Panics are converted into failures so a broken
// file or callback never takes down sibling tasks.
func (r *run) execute(ctx context.Context, t task) (res taskResult) {
	started := time.Now()
	res = taskResult{relPath: t.relPath, category: t.category}
	defer func() {
		if rec := recover(); rec != nil {
			r.reportPanic(t, fmt.Errorf("panic: %v", rec))
			res.outcome = OutcomeFailed
		}
		recordOutcome(t.category, res.outcome, time.Since(started))
	}()

	if !r.validator.IsEligible(r.req.Solution, r.req.Component, t.relPath, t.absPath) {
		r.logger.Debug("enrichment.task.ineligible", "path", t.relPath)
		res.outcome = OutcomeIneligible
		return res
	}

	payload, err := r.summarize(ctx, t)
	if errors.Is(err, ErrUnsupportedDocument) {
		r.logger.Info("enrichment.task.unsupported", "path", t.relPath, "err", err)
		res.outcome = OutcomeUnsupported
		return res
	}
	if err != nil {
		r.reportFailure(t, err)
		res.outcome = OutcomeFailed
		return res
	}
	if payload != nil && payload.Usage != nil {
		Backfill(payload.Usage, t.relPath)
		r.billing.Record(payload.Usage)
	}
	if payload == nil || (t.category == CategoryCode && len(payload.Functions) == 0) {
		r.logger.Warn("enrichment.task.empty", "path", t.relPath, "category", t.category)
		res.outcome = OutcomeEmpty
		return res
	}

	payload.Solution = r.req.Solution
	payload.Component = r.req.Component
	r.listener.OnEnrichment(r.req.Solution, r.req.Component, t.relPath, payload)
	r.validator.MarkCompleted(r.req.Solution, r.req.Component, t.relPath, t.absPath)

	r.logger.Debug("enrichment.task.done",
		"path", t.relPath,
		"category", t.category,
		"duration_ms", time.Since(started).Milliseconds(),
	)
	res.outcome = OutcomeSummarized
	return res
}

// reportPanic reports a recovered panic. A listener that panics again is
// only logged.
func (r *run) reportPanic(t task, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("enrichment.listener.panic", "path", t.relPath, "err", err, "listener_panic", fmt.Sprint(rec))
		}
	}()
	r.reportFailure(t, err)
}

func (r *run) reportFailure(t task, err error) {
	r.logger.Error("enrichment.task.error", "path", t.relPath, "category", t.category, "err", err)
	r.listener.OnError("AI summarization failed for "+t.relPath+": "+err.Error(), err)
}

// summarize reads the file and routes it to the matching pipeline.
func (r *run) summarize(ctx context.Context, t task) (*enrichment.Payload, error) {
	s := r.d.summarizer

	if t.category == CategoryDocument {
		doc, err := r.d.extractor.Extract(t.absPath)
		if err != nil {
			return nil, fmt.Errorf("extract document: %w", err)
		}
		return s.SummarizeDocument(ctx, t.relPath, doc.DocType, doc.Title, doc.Datetime, doc.Text)
	}

	data, err := os.ReadFile(t.absPath)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	content := string(data)

	switch t.category {
	case CategoryCode:
		return s.SummarizeCode(ctx, t.relPath, CodeLanguage(t.relPath), content)
	case CategoryTemplate:
		bundle := r.bundler.Bundle(r.req.Component, t.relPath, content)
		payload, err := s.SummarizeTemplate(ctx, t.relPath, TemplateLanguage(t.relPath), bundle.Content)
		if err != nil || payload == nil {
			return payload, err
		}
		payload.Relationships = append(payload.Relationships, bundle.Edges...)
		return payload, nil
	case CategoryConfig:
		return s.SummarizeConfig(ctx, t.relPath, DetectConfigType(t.relPath), content)
	default:
		return nil, fmt.Errorf("unsupported category %q", t.category)
	}
}

// drain collects exactly one result per submitted task, in completion order.
func (r *run) drain(ctx context.Context, p *pool) {
	res := r.result
	for res.Observed < res.Submitted {
		select {
		case <-ctx.Done():
			res.Interrupted = true
			r.logger.Warn("enrichment.drain.interrupted",
				"observed", res.Observed,
				"submitted", res.Submitted,
			)
			return
		case tr := <-p.results:
			res.Observed++
			switch tr.outcome {
			case OutcomeSummarized:
				res.Summarized++
			case OutcomeEmpty:
				res.Empty++
			case OutcomeFailed:
				res.Failed++
			case OutcomeIneligible:
				res.Ineligible++
			case OutcomeUnsupported:
				res.Unsupported++
			}
		}
	}
}

// finish records totals and writes the summary log lines.
func (r *run) finish(start time.Time) {
	res := r.result
	res.Billing = r.billing.Snapshot()
	res.Duration = time.Since(start)
	recordRunDuration(res.Duration)

	r.logger.Info("enrichment.run.complete",
		"state", res.State,
		"files_seen", res.FilesSeen,
		"eligible", res.Eligible,
		"summarized", res.Summarized,
		"empty", res.Empty,
		"failed", res.Failed,
		"ineligible", res.Ineligible,
		"too_large", res.TooLarge,
		"unsupported", res.Unsupported,
		"interrupted", res.Interrupted,
		"duration_ms", res.Duration.Milliseconds(),
	)
	for _, m := range res.Billing {
		r.logger.Info("enrichment.billing.model",
			"model", m.Model,
			"files", m.Files,
			"input", m.InputTokens,
			"output", m.OutputTokens,
			"cached", m.CachedTokens,
			"total", m.TotalTokens,
		)
	}
}

// pool bounds task execution with a semaphore. Submission never blocks:
// each task waits on its own goroutine for a slot.
type pool struct {
	sem     chan struct{}
	results chan taskResult
	done    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
}

func newPool(workers int) *pool {
	if workers < 1 {
		workers = 1
	}
	return &pool{
		sem:     make(chan struct{}, workers),
		results: make(chan taskResult),
		done:    make(chan struct{}),
	}
}

func (p *pool) submit(fn func() taskResult) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		select {
		case p.sem <- struct{}{}:
		case <-p.done:
			return
		}
		defer func() { <-p.sem }()

		// A slot may be won in the same instant the pool shuts down.
		select {
		case <-p.done:
			return
		default:
		}

		res := fn()
		select {
		case p.results <- res:
		case <-p.done:
		}
	}()
}

// shutdown abandons queued tasks and waits up to grace for running ones.
// It reports whether every goroutine exited in time.
func (p *pool) shutdown(grace time.Duration) bool {
	p.once.Do(func() { close(p.done) })
	finished := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		return true
	case <-time.After(grace):
		return false
	}
}
