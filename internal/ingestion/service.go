package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rpattn/sheetfed/internal/domain"
	"github.com/rpattn/sheetfed/internal/durable"
	"github.com/rpattn/sheetfed/internal/logging"
)

// Namespace is the durable messages key the staging validation writes under.
const Namespace = "ingestion"

// SheetSource resolves workbooks and sheets.
type SheetSource interface {
	GetWorkbook(ctx context.Context, workbookID string) (domain.Workbook, error)
	GetSheet(ctx context.Context, sheetID string) (domain.Sheet, error)
}

// RecordStore stores staging records.
type RecordStore interface {
	ListRecords(ctx context.Context, sheetID string) ([]domain.Record, error)
	CreateRecords(ctx context.Context, sheetID string, records []domain.Record) ([]domain.Record, error)
	UpdateRecords(ctx context.Context, updates []domain.RecordUpdate) (int, error)
}

// Service imports spreadsheets into staging sheets and validates them.
type Service struct {
	blueprint domain.Blueprint
	sheets    SheetSource
	records   RecordStore
	logger    *zap.SugaredLogger
}

// NewService creates a new ingestion service. Field types and required flags
// come from the blueprint's source sheets.
func NewService(bp domain.Blueprint, sheets SheetSource, records RecordStore, logger *zap.SugaredLogger) *Service {
	return &Service{
		blueprint: bp,
		sheets:    sheets,
		records:   records,
		logger:    logging.OrNop(logger).Named(logging.ComponentIngestion),
	}
}

// ImportRequest describes an upload into a staging sheet.
type ImportRequest struct {
	WorkbookID     string
	SheetSlug      string
	FileName       string
	HeaderRowIndex *int
	Data           io.Reader
}

// Summary returns ingestion level metrics.
type Summary struct {
	SheetID        string   `json:"sheetId"`
	TotalRows      int      `json:"totalRows"`
	ValidRows      int      `json:"validRows"`
	InvalidRows    int      `json:"invalidRows"`
	UpdatedRecords int      `json:"updatedRecords"`
	UnknownColumns []string `json:"unknownColumns,omitempty"`
}

// Import parses the file, stores one record per data row and runs the
// staging validation over the new records.
func (s *Service) Import(ctx context.Context, req ImportRequest) (Summary, error) {
	var summary Summary

	if strings.TrimSpace(req.WorkbookID) == "" {
		return summary, errors.New("workbook id is required")
	}
	if strings.TrimSpace(req.SheetSlug) == "" {
		return summary, errors.New("sheet slug is required")
	}
	if req.Data == nil {
		return summary, errors.New("data reader is required")
	}

	payload, err := io.ReadAll(req.Data)
	if err != nil {
		return summary, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(payload) == 0 {
		return summary, errors.New("file is empty")
	}

	workbook, err := s.sheets.GetWorkbook(ctx, req.WorkbookID)
	if err != nil {
		return summary, fmt.Errorf("load workbook %s: %w", req.WorkbookID, err)
	}
	sheet, ok := workbook.SheetBySlug(req.SheetSlug)
	if !ok {
		return summary, fmt.Errorf("sheet %q not found in workbook %s", req.SheetSlug, req.WorkbookID)
	}
	summary.SheetID = sheet.ID

	table, err := parseTable(req.FileName, payload, req.HeaderRowIndex)
	if err != nil {
		return summary, err
	}

	source, declared := s.blueprint.SourceSheetBySlug(sheet.Slug)
	columns, unknown := resolveColumns(table.headers, source.Fields, declared)
	summary.UnknownColumns = unknown
	summary.TotalRows = len(table.rows)
	if len(unknown) > 0 {
		s.logger.Infow("columns not declared on source sheet", "sheet", sheet.Slug, "columns", unknown)
	}
	if summary.TotalRows == 0 {
		return summary, nil
	}

	records := make([]domain.Record, 0, len(table.rows))
	for _, row := range table.rows {
		values := make(domain.Values, len(columns))
		for colIdx, key := range columns {
			raw := strings.TrimSpace(row[colIdx])
			if raw == "" {
				continue
			}
			values[key] = domain.NewCell(raw)
		}
		records = append(records, domain.Record{Values: values})
	}

	stored, err := s.records.CreateRecords(ctx, sheet.ID, records)
	if err != nil {
		return summary, fmt.Errorf("insert records for sheet %s: %w", sheet.ID, err)
	}

	result, err := s.validate(ctx, source, stored)
	if err != nil {
		return summary, err
	}
	summary.ValidRows = result.ValidRows
	summary.InvalidRows = result.InvalidRows
	summary.UpdatedRecords = result.UpdatedRecords

	s.logger.Infow("import finished",
		"sheet", sheet.Slug,
		"file", req.FileName,
		"rows", summary.TotalRows,
		"invalid", summary.InvalidRows,
	)
	return summary, nil
}

// Revalidate re-runs the staging validation over every stored record of the
// sheet and writes back only the records whose values or messages changed.
func (s *Service) Revalidate(ctx context.Context, sheetID string) (Summary, error) {
	summary := Summary{SheetID: sheetID}

	sheet, err := s.sheets.GetSheet(ctx, sheetID)
	if err != nil {
		return summary, fmt.Errorf("load sheet %s: %w", sheetID, err)
	}
	records, err := s.records.ListRecords(ctx, sheetID)
	if err != nil {
		return summary, fmt.Errorf("list records for sheet %s: %w", sheetID, err)
	}
	summary.TotalRows = len(records)

	source, _ := s.blueprint.SourceSheetBySlug(sheet.Slug)
	result, err := s.validate(ctx, source, records)
	if err != nil {
		return summary, err
	}
	summary.ValidRows = result.ValidRows
	summary.InvalidRows = result.InvalidRows
	summary.UpdatedRecords = result.UpdatedRecords
	return summary, nil
}

func (s *Service) validate(ctx context.Context, source domain.SourceSheet, records []domain.Record) (Summary, error) {
	var summary Summary
	if len(records) == 0 {
		return summary, nil
	}

	manager, err := durable.NewManager(Namespace, s.logger)
	if err != nil {
		return summary, err
	}

	hook := durable.WithDurableMessagesBulk(func(views []*durable.HookRecord, _ *durable.Event) error {
		for _, view := range views {
			if checkRecord(manager, view, source.Fields) {
				summary.InvalidRows++
			} else {
				summary.ValidRows++
			}
		}
		return nil
	})

	views := make([]*durable.HookRecord, 0, len(records))
	for _, record := range records {
		views = append(views, durable.NewHookRecord(record))
	}
	if err := hook(views, durable.NewEvent(uuid.NewString())); err != nil {
		s.logger.Warnw("stored durable messages could not be re-applied", "error", err)
	}

	updates := manager.GetModifiedRecords()
	if len(updates) == 0 {
		return summary, nil
	}
	updated, err := s.records.UpdateRecords(ctx, updates)
	if err != nil {
		return summary, fmt.Errorf("update validated records: %w", err)
	}
	summary.UpdatedRecords = updated
	return summary, nil
}

// checkRecord stages the validation result of one record and reports whether
// it carries an error.
func checkRecord(manager *durable.Manager, view *durable.HookRecord, fields []domain.SourceField) bool {
	original := view.Record()
	manager.ClearDurableMessagesForRecord(original)

	invalid := false
	for _, field := range fields {
		value := view.Get(field.Key)
		if domain.IsEmptyValue(value) {
			if field.Required {
				manager.AddDurableMessage(original, field.Key, domain.NewError(fmt.Sprintf("%s is required", fieldLabel(field))))
				view.AddError(field.Key, fmt.Sprintf("%s is required", fieldLabel(field)))
				invalid = true
			}
			continue
		}

		raw, ok := value.(string)
		if !ok {
			continue
		}
		coerced, err := coerceValue(field.Type, raw)
		if err != nil {
			manager.AddDurableMessage(original, field.Key, domain.NewError(err.Error()))
			view.AddError(field.Key, err.Error())
			invalid = true
			continue
		}
		if !domain.ValuesEqual(coerced, value) {
			manager.UpdateFieldValue(original, field.Key, coerced)
			view.Set(field.Key, coerced)
		}
	}
	return invalid
}

func fieldLabel(field domain.SourceField) string {
	if field.Label != "" {
		return field.Label
	}
	return field.Key
}

// resolveColumns maps each parsed header onto a declared field key when one
// matches, and lists the headers no declared field claims.
func resolveColumns(headers []string, fields []domain.SourceField, declared bool) ([]string, []string) {
	byKey := make(map[string]string, len(fields)*2)
	for _, field := range fields {
		byKey[fieldKey(field.Key)] = field.Key
		if field.Label != "" {
			if _, taken := byKey[fieldKey(field.Label)]; !taken {
				byKey[fieldKey(field.Label)] = field.Key
			}
		}
	}

	columns := make([]string, len(headers))
	var unknown []string
	for idx, header := range headers {
		if key, ok := byKey[header]; ok {
			columns[idx] = key
			continue
		}
		columns[idx] = header
		if declared {
			unknown = append(unknown, header)
		}
	}
	return columns, unknown
}
