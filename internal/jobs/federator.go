package jobs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rpattn/sheetfed/internal/domain"
	"github.com/rpattn/sheetfed/internal/federation"
	"github.com/rpattn/sheetfed/internal/logging"
	"github.com/rpattn/sheetfed/internal/recordloader"
)

// Federator runs federation jobs end to end: it rebuilds the target workbook
// from the blueprint and fills it from the recognized source sheets.
type Federator struct {
	compiler  *federation.Compiler
	jobs      JobService
	workbooks WorkbookService
	records   RecordService

	targetName string
	logger     *zap.SugaredLogger
	now        func() time.Time
}

type Option func(*Federator)

// WithTargetWorkbook overrides the blueprint target workbook name.
func WithTargetWorkbook(name string) Option {
	return func(f *Federator) {
		if strings.TrimSpace(name) != "" {
			f.targetName = strings.TrimSpace(name)
		}
	}
}

func WithLogger(logger *zap.SugaredLogger) Option {
	return func(f *Federator) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// NewFederator validates the blueprint up front; a malformed blueprint never
// reaches a job.
func NewFederator(
	bp domain.Blueprint,
	jobs JobService,
	workbooks WorkbookService,
	records RecordService,
	opts ...Option,
) (*Federator, error) {
	f := &Federator{
		jobs:       jobs,
		workbooks:  workbooks,
		records:    records,
		targetName: bp.TargetWorkbook,
		logger:     zap.NewNop().Sugar(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = f.logger.Named(logging.ComponentJobs)

	compiler, err := federation.NewCompiler(bp, f.logger)
	if err != nil {
		return nil, err
	}
	f.compiler = compiler
	return f, nil
}

// Run executes one federation job. Any failure fails the job with the error
// message as both info and outcome, and is returned.
func (f *Federator) Run(ctx context.Context, jc domain.JobContext) error {
	started := f.now()
	tracker := newProgressTracker(func(ctx context.Context, progress int, info string) error {
		return f.jobs.Update(ctx, jc.JobID, domain.JobUpdate{Progress: &progress, Info: info})
	})

	summary, err := f.run(ctx, jc, tracker)
	if err != nil {
		f.fail(ctx, jc.JobID, err)
		return err
	}

	progress := progressCeiling
	message := summary.String()
	if err := f.jobs.Complete(ctx, jc.JobID, domain.JobUpdate{
		Progress: &progress,
		Info:     message,
		Outcome:  &domain.JobOutcome{Message: message},
	}); err != nil {
		err = fmt.Errorf("complete job: %w", err)
		f.fail(ctx, jc.JobID, err)
		return err
	}

	f.logger.Infow("federation job completed",
		"job", jc.JobID,
		"records", summary.Records,
		"sheets", summary.Sheets,
		"duration", f.now().Sub(started),
	)
	return nil
}

// Summary describes a completed run.
type Summary struct {
	Records int
	Sheets  int
}

func (s Summary) String() string {
	return fmt.Sprintf("Federated %d records into %d sheets", s.Records, s.Sheets)
}

func (f *Federator) run(ctx context.Context, jc domain.JobContext, tracker *progressTracker) (Summary, error) {
	zero := 0
	if err := f.jobs.Ack(ctx, jc.JobID, domain.JobUpdate{Progress: &zero, Info: "Starting federation"}); err != nil {
		return Summary{}, fmt.Errorf("acknowledge job: %w", err)
	}

	manager := f.compiler.NewManager()
	bp := f.compiler.Blueprint()

	source, err := f.workbooks.GetWorkbook(ctx, jc.WorkbookID)
	if err != nil {
		return Summary{}, fmt.Errorf("retrieve source workbook: %w", err)
	}
	var sources []domain.Sheet
	for _, sheet := range source.Sheets {
		if manager.HasSourceSheet(sheet.Slug) {
			sources = append(sources, sheet)
		}
	}
	if len(sources) == 0 {
		return Summary{}, federation.ErrNoSourceSheets
	}
	if err := tracker.advance(ctx, weightRetrieve, "Retrieved source workbook"); err != nil {
		return Summary{}, err
	}

	if err := f.deleteStaleTargets(ctx, jc.SpaceID); err != nil {
		return Summary{}, err
	}
	if err := tracker.advance(ctx, weightDelete, "Removed previous target workbooks"); err != nil {
		return Summary{}, err
	}

	specs := make([]domain.SheetSpec, 0, len(bp.Sheets))
	for _, sheet := range bp.Sheets {
		specs = append(specs, domain.SheetSpec{Slug: sheet.Slug, Name: sheet.Name, FieldKeys: sheet.FieldKeys()})
	}
	target, err := f.workbooks.CreateWorkbook(ctx, jc.SpaceID, f.targetName, specs)
	if err != nil {
		return Summary{}, fmt.Errorf("create target workbook: %w", err)
	}
	if err := tracker.advance(ctx, weightCreate, "Created target workbook"); err != nil {
		return Summary{}, err
	}

	manager.ClearMappings()
	for _, sheet := range bp.Sheets {
		created, ok := target.SheetBySlug(sheet.Slug)
		if !ok {
			return Summary{}, fmt.Errorf("target sheet %s missing from workbook %s", sheet.Slug, target.ID)
		}
		manager.CreateMappings(sheet, created)
	}
	if err := tracker.advance(ctx, weightMapping, "Built federation mappings"); err != nil {
		return Summary{}, err
	}

	loader := recordloader.New(f.records)
	thunks := make([]recordloader.Thunk, len(sources))
	for i, sheet := range sources {
		thunks[i] = loader.Load(ctx, sheet.ID)
	}
	perSource := float64(weightProcess) / float64(len(sources))
	for i, sheet := range sources {
		records, err := thunks[i]()
		if err != nil {
			return Summary{}, fmt.Errorf("retrieve records for sheet %s: %w", sheet.Slug, err)
		}
		if len(records) > 0 {
			manager.AddRecords(sheet.Slug, records)
		}
		f.logger.Debugw("processed source sheet", "job", jc.JobID, "sheet", sheet.Slug, "records", len(records))
		if err := tracker.advance(ctx, perSource, fmt.Sprintf("Processed source sheet %s", sheet.Slug)); err != nil {
			return Summary{}, err
		}
	}

	final := manager.GetRecords()
	summary, err := f.insert(ctx, final)
	if err != nil {
		return Summary{}, err
	}
	if err := tracker.advance(ctx, weightInsert, "Inserted federated records"); err != nil {
		return Summary{}, err
	}

	if err := tracker.advance(ctx, weightFinalize, "Finalizing"); err != nil {
		return Summary{}, err
	}
	return summary, nil
}

func (f *Federator) deleteStaleTargets(ctx context.Context, spaceID string) error {
	stale, err := f.workbooks.ListWorkbooks(ctx, spaceID, f.targetName)
	if err != nil {
		return fmt.Errorf("list target workbooks: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, workbook := range stale {
		g.Go(func() error {
			if err := f.workbooks.DeleteWorkbook(gctx, workbook.ID); err != nil {
				return fmt.Errorf("delete workbook %s: %w", workbook.ID, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (f *Federator) insert(ctx context.Context, final map[string][]domain.Values) (Summary, error) {
	sheetIDs := make([]string, 0, len(final))
	for sheetID, records := range final {
		if len(records) > 0 {
			sheetIDs = append(sheetIDs, sheetID)
		}
	}
	sort.Strings(sheetIDs)

	summary := Summary{Sheets: len(sheetIDs)}
	g, gctx := errgroup.WithContext(ctx)
	for _, sheetID := range sheetIDs {
		records := final[sheetID]
		summary.Records += len(records)
		g.Go(func() error {
			if err := f.records.InsertRecords(gctx, sheetID, records); err != nil {
				return fmt.Errorf("insert records for sheet %s: %w", sheetID, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}
	return summary, nil
}

func (f *Federator) fail(ctx context.Context, jobID string, err error) {
	if err == nil {
		return
	}
	if ctx == nil || ctx.Err() != nil {
		ctx = context.Background()
	}
	message := err.Error()
	if markErr := f.jobs.Fail(ctx, jobID, domain.JobUpdate{
		Info:    message,
		Outcome: &domain.JobOutcome{Message: message},
	}); markErr != nil {
		f.logger.Errorw("failed to mark job as failed", "job", jobID, "error", markErr, "cause", err)
		return
	}
	if errors.Is(err, federation.ErrNoSourceSheets) {
		f.logger.Warnw("federation job has no source sheets", "job", jobID)
		return
	}
	f.logger.Errorw("federation job failed", "job", jobID, "error", err)
}
