package repository

import (
	"context"
	"errors"

	"github.com/rpattn/sheetfed/internal/domain"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrJobStatusConflict is returned when a job is no longer in a state that
// allows the requested transition.
var ErrJobStatusConflict = errors.New("job status conflict")

// WorkbookRepository defines the interface for workbook and sheet operations
type WorkbookRepository interface {
	GetWorkbook(ctx context.Context, workbookID string) (domain.Workbook, error)
	ListWorkbooks(ctx context.Context, spaceID string, name string) ([]domain.Workbook, error)
	DeleteWorkbook(ctx context.Context, workbookID string) error
	CreateWorkbook(ctx context.Context, spaceID string, name string, sheets []domain.SheetSpec) (domain.Workbook, error)
	GetSheet(ctx context.Context, sheetID string) (domain.Sheet, error)
}

// RecordRepository defines the interface for record operations
type RecordRepository interface {
	ListRecords(ctx context.Context, sheetID string) ([]domain.Record, error)
	ListRecordsBySheets(ctx context.Context, sheetIDs []string) (map[string][]domain.Record, error)
	InsertRecords(ctx context.Context, sheetID string, records []domain.Values) error
	CreateRecords(ctx context.Context, sheetID string, records []domain.Record) ([]domain.Record, error)
	UpdateRecords(ctx context.Context, updates []domain.RecordUpdate) (int, error)
}

// JobRepository defines the interface for job lifecycle operations
type JobRepository interface {
	Create(ctx context.Context, job domain.Job) (domain.Job, error)
	GetByID(ctx context.Context, jobID string) (domain.Job, error)
	Ack(ctx context.Context, jobID string, update domain.JobUpdate) error
	Update(ctx context.Context, jobID string, update domain.JobUpdate) error
	Complete(ctx context.Context, jobID string, update domain.JobUpdate) error
	Fail(ctx context.Context, jobID string, update domain.JobUpdate) error
}
