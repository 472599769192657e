// Package app wires configuration, storage and services together and exposes
// them through the gedcom2csv command line.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"gedcom2csv/internal/config"
	"gedcom2csv/internal/dbclient"
	"gedcom2csv/internal/domain"
	"gedcom2csv/internal/etl"
	_ "gedcom2csv/internal/etl/sources" // register all sources via init()
	"gedcom2csv/internal/secret"
	"gedcom2csv/internal/service"
	"gedcom2csv/internal/storage"
)

// shutdownGrace bounds how long in-flight conversions may finish on exit.
const shutdownGrace = 10 * time.Second

// App holds the services of one invocation.
type App struct {
	cfg *config.Config
	log *zap.Logger

	db      *storage.DB
	convert *service.ConvertService
	export  *service.ExportService
}

// New opens the run history and creates the services.
func New(cfg *config.Config) (*App, error) {
	db, err := storage.New(cfg.HistoryDBPath())
	if err != nil {
		return nil, fmt.Errorf("open run history: %w", err)
	}

	emitter := service.LogEmitter{Logger: zap.L().Named("events")}
	return &App{
		cfg:     cfg,
		log:     zap.L().Named("app"),
		db:      db,
		convert: service.NewConvertService(storage.NewRunStore(db), emitter, cfg.Timeout),
		export:  service.NewExportService(secret.DefaultResolver(), secret.NewKeychainStore()),
	}, nil
}

// Shutdown stops watchers and schedules, waits briefly for running
// conversions and closes the database.
func (a *App) Shutdown() {
	a.convert.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	a.convert.WaitRunning(ctx)

	if err := a.db.Close(); err != nil {
		a.log.Warn("close run history", zap.Error(err))
	}
}

// ── Conversions ────────────────────────────────────────────

func (a *App) dialect() etl.Dialect {
	// validated by config.Load
	d, _ := etl.ParseDialect(a.cfg.Dialect)
	return d
}

// csvRequest converts input into the three CSV files of the output directory.
func (a *App) csvRequest(input string, trigger domain.RunTrigger) service.ConvertRequest {
	return service.ConvertRequest{
		Input:      input,
		SourceType: a.cfg.Source,
		Dialect:    a.dialect(),
		Dest:       etl.NewCSVDirWriter(a.cfg.OutDir),
		Output:     a.cfg.OutDir,
		Trigger:    trigger,
	}
}

// Convert runs one conversion into the output directory.
func (a *App) Convert(ctx context.Context, input string) (*etl.Result, error) {
	return a.convert.RunConversion(ctx, a.csvRequest(input, domain.TriggerManual))
}

// Watch converts input once, then again on every change until ctx is done.
func (a *App) Watch(ctx context.Context, input string) error {
	if _, err := a.Convert(ctx, input); err != nil {
		a.log.Warn("initial conversion failed", zap.Error(err))
	}
	if err := a.convert.Watch(ctx, a.csvRequest(input, domain.TriggerWatch)); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

// Schedule converts input on a cron expression until ctx is done.
func (a *App) Schedule(ctx context.Context, expr, input string) error {
	if err := a.convert.Schedule(ctx, expr, a.csvRequest(input, domain.TriggerSchedule)); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

// Preview serializes one category of input in the configured dialect
// without writing anything.
func (a *App) Preview(ctx context.Context, input string, category etl.Category, rows int) (*etl.Table, error) {
	return a.convert.Preview(ctx, service.ConvertRequest{
		Input:      input,
		SourceType: a.cfg.Source,
		Dialect:    a.dialect(),
	}, category, rows)
}

// Export converts input into the configured database.
func (a *App) Export(ctx context.Context, input string) (*etl.Result, error) {
	target, opts, err := a.exportTarget()
	if err != nil {
		return nil, err
	}

	exp, err := a.export.Open(ctx, target, opts)
	if err != nil {
		return nil, err
	}
	defer exp.Close()

	return a.convert.RunConversion(ctx, service.ConvertRequest{
		Input:      input,
		SourceType: a.cfg.Source,
		Dialect:    a.dialect(),
		Dest:       exp,
		Output:     service.Describe(target),
		Trigger:    domain.TriggerManual,
	})
}

func (a *App) exportTarget() (*domain.ExportTarget, dbclient.ExportOptions, error) {
	ec := a.cfg.Export
	driver, err := domain.ParseDriver(ec.Driver)
	if err != nil {
		return nil, dbclient.ExportOptions{}, err
	}
	if ec.Host == "" {
		return nil, dbclient.ExportOptions{}, fmt.Errorf("--host is required for %s", driver)
	}
	mode, err := etl.ParseSyncMode(ec.Mode)
	if err != nil {
		return nil, dbclient.ExportOptions{}, err
	}

	target := &domain.ExportTarget{
		Driver:   driver,
		Host:     ec.Host,
		Port:     ec.Port,
		Database: ec.Database,
		Username: ec.Username,
		SSLMode:  ec.SSLMode,
		Prefix:   ec.Prefix,
	}
	return target, dbclient.ExportOptions{Mode: mode, Prefix: ec.Prefix}, nil
}

// SavePassword stores the password of the configured export target in the
// keychain.
func (a *App) SavePassword(password string) error {
	target, _, err := a.exportTarget()
	if err != nil {
		return err
	}
	return a.export.SavePassword(target, password)
}

// DeletePassword removes the saved password of the configured export target.
func (a *App) DeletePassword() error {
	target, _, err := a.exportTarget()
	if err != nil {
		return err
	}
	return a.export.DeletePassword(target)
}

// Runs returns the newest recorded runs.
func (a *App) Runs(limit int) ([]domain.ConversionRun, error) {
	return a.convert.ListRuns(limit)
}
