package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"gedcom2csv/internal/domain"
	"gedcom2csv/internal/etl"
)

// ─────────────────────────────────────────────────────────────
// Convert Service: runs, watches and schedules conversions
// ─────────────────────────────────────────────────────────────

// ErrAlreadyRunning is returned when the same input is being converted.
var ErrAlreadyRunning = errors.New("conversion already running")

// debounceDelay coalesces the burst of events an editor produces on save.
const debounceDelay = 500 * time.Millisecond

// ConvertRequest describes one conversion.
type ConvertRequest struct {
	Input      string           // file path or URL
	SourceType string           // registered source type
	SourceCfg  etl.SourceConfig // nil means derived from Input
	Dialect    etl.Dialect
	Dest       etl.Destination
	Output     string // human-readable destination, recorded in history
	Trigger    domain.RunTrigger
}

// SourceConfigFor builds the config a source type expects for a bare input.
func SourceConfigFor(sourceType, input string) etl.SourceConfig {
	if sourceType == "gedcom_http" {
		return etl.SourceConfig{"url": input}
	}
	return etl.SourceConfig{"filePath": input}
}

func (r *ConvertRequest) sourceConfig() etl.SourceConfig {
	if r.SourceCfg != nil {
		return r.SourceCfg
	}
	return SourceConfigFor(r.SourceType, r.Input)
}

// ConvertService runs conversions and records them in the run store.
type ConvertService struct {
	runs    domain.RunStore
	emitter EventEmitter
	timeout time.Duration
	log     *zap.Logger
	guard   runningGuard

	// watcher / cron lifecycle
	mu          sync.Mutex
	watchCancel context.CancelFunc
	cronSched   *cron.Cron
}

// NewConvertService creates a ConvertService. runs may be nil to skip history.
func NewConvertService(runs domain.RunStore, emitter EventEmitter, timeout time.Duration) *ConvertService {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	if emitter == nil {
		emitter = NopEmitter{}
	}
	return &ConvertService{
		runs:    runs,
		emitter: emitter,
		timeout: timeout,
		log:     zap.L().Named("convert"),
	}
}

// ── Run ────────────────────────────────────────────────────

// RunConversion executes one conversion synchronously, records it and emits
// convert:completed or convert:failed.
func (s *ConvertService) RunConversion(ctx context.Context, req ConvertRequest) (*etl.Result, error) {
	if req.Dest == nil {
		return nil, errors.New("no destination")
	}
	key := req.SourceType + ":" + req.Input
	if !s.guard.TryLock(key) {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyRunning, req.Input)
	}
	defer s.guard.Unlock(key)

	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	engine := &etl.Engine{Dest: req.Dest}
	job := &etl.Job{
		ID:         uuid.New().String(),
		SourceType: req.SourceType,
		SourceCfg:  req.sourceConfig(),
		Dialect:    req.Dialect,
	}

	start := time.Now()
	result, runErr := engine.Run(runCtx, job)
	s.record(req, result, runErr, start)

	if runErr != nil {
		s.log.Error("conversion failed", zap.String("input", req.Input), zap.Error(runErr))
		s.emitter.Emit(ctx, EventConvertFailed, map[string]string{
			"input": req.Input,
			"error": runErr.Error(),
		})
		return result, runErr
	}

	s.log.Info("conversion completed",
		zap.String("input", req.Input),
		zap.String("output", req.Output),
		zap.Int("individuals", result.Rows(etl.CategoryIndividuals)),
		zap.Int("families", result.Rows(etl.CategoryFamilies)),
		zap.Int("other", result.Rows(etl.CategoryOther)),
		zap.Duration("duration", result.Duration),
	)
	s.emitter.Emit(ctx, EventConvertCompleted, result)
	return result, nil
}

func (s *ConvertService) record(req ConvertRequest, result *etl.Result, runErr error, start time.Time) {
	if s.runs == nil {
		return
	}
	run := &domain.ConversionRun{
		Input:      req.Input,
		SourceType: req.SourceType,
		Output:     req.Output,
		Dialect:    string(req.Dialect),
		Trigger:    req.Trigger,
		Status:     domain.RunStatusSuccess,
		StartedAt:  start,
		FinishedAt: time.Now(),
	}
	if run.Dialect == "" {
		run.Dialect = string(etl.DialectLegacy)
	}
	if run.Trigger == "" {
		run.Trigger = domain.TriggerManual
	}
	if result != nil {
		run.NodesRead = result.NodesRead
		run.Individuals = result.Rows(etl.CategoryIndividuals)
		run.Families = result.Rows(etl.CategoryFamilies)
		run.Other = result.Rows(etl.CategoryOther)
	}
	if runErr != nil {
		run.Status = domain.RunStatusError
		run.Error = runErr.Error()
	}
	if err := s.runs.CreateRun(run); err != nil {
		s.log.Warn("failed to record run", zap.String("input", req.Input), zap.Error(err))
	}
}

// ListRuns returns the newest recorded runs.
func (s *ConvertService) ListRuns(limit int) ([]domain.ConversionRun, error) {
	if s.runs == nil {
		return nil, nil
	}
	return s.runs.ListRuns(limit)
}

// ListSources returns the available source descriptors.
func (s *ConvertService) ListSources() []etl.SourceSpec {
	return etl.ListSources()
}

// ── Preview ────────────────────────────────────────────────

// Preview serializes one category of req's input in req's dialect without
// writing anything. req.Dest is ignored.
func (s *ConvertService) Preview(ctx context.Context, req ConvertRequest, category etl.Category, maxRows int) (*etl.Table, error) {
	previewCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	engine := &etl.Engine{}
	return engine.Preview(previewCtx, &etl.Job{
		SourceType: req.SourceType,
		SourceCfg:  req.sourceConfig(),
		Dialect:    req.Dialect,
	}, category, maxRows)
}

// ── Watchers (cron + file watch) ──────────────────────────

// Watch re-runs req whenever its input file is written or created. Events
// are debounced. Watching stops when ctx is cancelled or Stop is called.
func (s *ConvertService) Watch(ctx context.Context, req ConvertRequest) error {
	absPath, err := filepath.Abs(req.Input)
	if err != nil {
		return fmt.Errorf("bad path %q: %w", req.Input, err)
	}
	req.Input = absPath
	if req.Trigger == "" {
		req.Trigger = domain.TriggerWatch
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	dir := filepath.Dir(absPath)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch dir %q: %w", dir, err)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.stopWatcherLocked()
	s.watchCancel = cancel
	s.mu.Unlock()

	go s.watchLoop(watchCtx, watcher, req)

	s.log.Info("watching file", zap.String("path", absPath))
	return nil
}

func (s *ConvertService) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, req ConvertRequest) {
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
		watcher.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if absPath, _ := filepath.Abs(event.Name); absPath != req.Input {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounceDelay, func() {
				s.log.Info("file changed", zap.String("path", req.Input))
				if _, err := s.RunConversion(ctx, req); err != nil && !errors.Is(err, ErrAlreadyRunning) {
					s.log.Warn("watch run failed", zap.Error(err))
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.log.Warn("watcher error", zap.Error(err))
		}
	}
}

// Schedule runs req on a cron expression (standard five fields or
// descriptors such as "@every 1h"). It replaces any previous schedule.
func (s *ConvertService) Schedule(ctx context.Context, expr string, req ConvertRequest) error {
	if req.Trigger == "" {
		req.Trigger = domain.TriggerSchedule
	}

	c := cron.New()
	_, err := c.AddFunc(expr, func() {
		if err := ctx.Err(); err != nil {
			return
		}
		s.log.Info("scheduled run", zap.String("input", req.Input))
		if _, err := s.RunConversion(ctx, req); err != nil && !errors.Is(err, ErrAlreadyRunning) {
			s.log.Warn("scheduled run failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}

	s.mu.Lock()
	if s.cronSched != nil {
		s.cronSched.Stop()
	}
	s.cronSched = c
	s.mu.Unlock()

	c.Start()
	s.log.Info("scheduled conversion", zap.String("input", req.Input), zap.String("cron", expr))
	return nil
}

// WaitRunning blocks until all running conversions finish or ctx is cancelled.
// Used for graceful shutdown.
func (s *ConvertService) WaitRunning(ctx context.Context) {
	s.guard.WaitAll(ctx)
}

// Stop tears down the watcher and the scheduler.
func (s *ConvertService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopWatcherLocked()
	if s.cronSched != nil {
		s.cronSched.Stop()
		s.cronSched = nil
	}
}

func (s *ConvertService) stopWatcherLocked() {
	if s.watchCancel != nil {
		s.watchCancel()
		s.watchCancel = nil
	}
}
