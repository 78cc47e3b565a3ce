package cli

import (
	"context"

	"go.uber.org/zap"

	"github.com/rpattn/sheetfed/internal/blueprint"
	"github.com/rpattn/sheetfed/internal/db"
	"github.com/rpattn/sheetfed/internal/domain"
	"github.com/rpattn/sheetfed/internal/ingestion"
	"github.com/rpattn/sheetfed/internal/jobs"
	"github.com/rpattn/sheetfed/internal/logging"
	"github.com/rpattn/sheetfed/internal/repository"
)

// app is the wired runtime shared by the commands that need the database.
type app struct {
	conn      *db.Connection
	blueprint domain.Blueprint
	workbooks repository.WorkbookRepository
	records   repository.RecordRepository
	jobs      repository.JobRepository
	logger    *zap.SugaredLogger
}

func openApp(ctx context.Context, opts *RootOptions) (*app, error) {
	bp, err := blueprint.LoadFile(opts.cfg.Federation.Blueprint)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "load blueprint", err)
	}

	conn, err := db.NewConnection(ctx, opts.cfg.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "connect to database", err)
	}
	if err := db.RunMigrations(conn.Pool, opts.logger.Named(logging.ComponentDB)); err != nil {
		conn.Close()
		return nil, WrapExitError(ExitCommandError, "run migrations", err)
	}

	return &app{
		conn:      conn,
		blueprint: bp,
		workbooks: repository.NewWorkbookRepository(conn.Pool),
		records:   repository.NewRecordRepository(conn.Pool),
		jobs:      repository.NewJobRepository(conn.Pool),
		logger:    opts.logger,
	}, nil
}

func (a *app) federator(opts *RootOptions) (*jobs.Federator, error) {
	return jobs.NewFederator(
		a.blueprint,
		a.jobs,
		a.workbooks,
		a.records,
		jobs.WithTargetWorkbook(opts.cfg.Federation.TargetWorkbook),
		jobs.WithLogger(a.logger),
	)
}

func (a *app) ingestion() *ingestion.Service {
	return ingestion.NewService(a.blueprint, a.workbooks, a.records, a.logger)
}

func (a *app) Close() {
	a.conn.Close()
}
