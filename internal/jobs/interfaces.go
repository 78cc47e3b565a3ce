package jobs

import (
	"context"

	"github.com/rpattn/sheetfed/internal/domain"
)

// JobService reports job lifecycle changes to the host platform.
type JobService interface {
	Ack(ctx context.Context, jobID string, update domain.JobUpdate) error
	Update(ctx context.Context, jobID string, update domain.JobUpdate) error
	Complete(ctx context.Context, jobID string, update domain.JobUpdate) error
	Fail(ctx context.Context, jobID string, update domain.JobUpdate) error
}

// WorkbookService manages workbooks and their sheets.
type WorkbookService interface {
	GetWorkbook(ctx context.Context, workbookID string) (domain.Workbook, error)
	ListWorkbooks(ctx context.Context, spaceID string, name string) ([]domain.Workbook, error)
	DeleteWorkbook(ctx context.Context, workbookID string) error
	CreateWorkbook(ctx context.Context, spaceID string, name string, sheets []domain.SheetSpec) (domain.Workbook, error)
}

// RecordService reads and writes sheet records.
type RecordService interface {
	ListRecordsBySheets(ctx context.Context, sheetIDs []string) (map[string][]domain.Record, error)
	InsertRecords(ctx context.Context, sheetID string, records []domain.Values) error
}
