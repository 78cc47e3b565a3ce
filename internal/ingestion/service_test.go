package ingestion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/rpattn/sheetfed/internal/domain"
	"github.com/rpattn/sheetfed/internal/durable"
)

func stagingBlueprint() domain.Blueprint {
	return domain.Blueprint{
		TargetWorkbook: "Federated Payroll",
		SourceSheets: []domain.SourceSheet{
			{
				Slug: "all_data",
				Fields: []domain.SourceField{
					{Key: "employeeSsn", Type: domain.FieldTypeString, Required: true},
					{Key: "btk1", Type: domain.FieldTypeNumber},
					{Key: "payrollDate", Type: domain.FieldTypeDate},
				},
			},
		},
	}
}

func newTestService() (*Service, *stubRecords) {
	sheets := &stubSheets{
		workbook: domain.Workbook{
			ID: "wb-1",
			Sheets: []domain.Sheet{
				{ID: "sheet-all", WorkbookID: "wb-1", Slug: "all_data"},
			},
		},
	}
	records := &stubRecords{}
	return NewService(stagingBlueprint(), sheets, records, nil), records
}

const payrollCSV = "Employee SSN,BTK1,Payroll Date,Notes\n" +
	"111,12.5,2024-01-31,ok\n" +
	",abc,2024-02-29,\n"

func TestServiceImportCoercesAndFlagsRows(t *testing.T) {
	service, records := newTestService()

	summary, err := service.Import(context.Background(), ImportRequest{
		WorkbookID: "wb-1",
		SheetSlug:  "all_data",
		FileName:   "payroll.csv",
		Data:       strings.NewReader(payrollCSV),
	})
	if err != nil {
		t.Fatalf("import returned error: %v", err)
	}

	if summary.SheetID != "sheet-all" {
		t.Fatalf("unexpected sheet id %q", summary.SheetID)
	}
	if summary.TotalRows != 2 || summary.ValidRows != 1 || summary.InvalidRows != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.UpdatedRecords != 2 {
		t.Fatalf("expected 2 updated records, got %d", summary.UpdatedRecords)
	}
	if len(summary.UnknownColumns) != 1 || summary.UnknownColumns[0] != "notes" {
		t.Fatalf("expected notes to be reported as unknown, got %v", summary.UnknownColumns)
	}

	first := records.stored[0]
	if got := first.Values.Value("btk1"); got != 12.5 {
		t.Fatalf("expected btk1 to be coerced to 12.5, got %#v", got)
	}
	if got := first.Values.Value("payrollDate"); got != "2024-01-31" {
		t.Fatalf("expected payrollDate to be kept, got %#v", got)
	}
	if got := first.Values.Value("notes"); got != "ok" {
		t.Fatalf("expected undeclared column to be stored, got %#v", got)
	}

	second := records.stored[1]
	if !domain.ContainsMessage(second.Values["employeeSsn"].Messages, domain.NewError("employeeSsn is required")) {
		t.Fatalf("expected required error on employeeSsn, got %+v", second.Values["employeeSsn"])
	}
	if got := second.Values.Value("btk1"); got != "abc" {
		t.Fatalf("expected raw btk1 to be kept, got %#v", got)
	}
	if !domain.ContainsMessage(second.Values["btk1"].Messages, domain.NewError(`unable to coerce "abc" to number`)) {
		t.Fatalf("expected coercion error on btk1, got %+v", second.Values["btk1"])
	}

	idx, err := durable.ReadIndex(second.Metadata)
	if err != nil {
		t.Fatalf("read durable index: %v", err)
	}
	fields := idx.Fields(Namespace)
	if len(fields) != 2 {
		t.Fatalf("expected durable messages on 2 fields, got %v", fields)
	}
}

func TestServiceRevalidateClearsResolvedMessages(t *testing.T) {
	service, records := newTestService()
	ctx := context.Background()

	_, err := service.Import(ctx, ImportRequest{
		WorkbookID: "wb-1",
		SheetSlug:  "all_data",
		FileName:   "payroll.csv",
		Data:       strings.NewReader(payrollCSV),
	})
	if err != nil {
		t.Fatalf("import returned error: %v", err)
	}

	// A user fixes the second row; the host keeps the stale messages on the cells.
	fixed := records.stored[1]
	fixed.Values["employeeSsn"] = domain.Cell{Value: "222", Messages: fixed.Values["employeeSsn"].Messages}
	fixed.Values["btk1"] = domain.Cell{Value: "7", Messages: fixed.Values["btk1"].Messages}
	records.stored[1] = fixed

	summary, err := service.Revalidate(ctx, "sheet-all")
	if err != nil {
		t.Fatalf("revalidate returned error: %v", err)
	}
	if summary.ValidRows != 2 || summary.InvalidRows != 0 || summary.UpdatedRecords != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	second := records.stored[1]
	if msgs := second.Values["employeeSsn"].Messages; len(msgs) != 0 {
		t.Fatalf("expected employeeSsn messages to be cleared, got %+v", msgs)
	}
	if msgs := second.Values["btk1"].Messages; len(msgs) != 0 {
		t.Fatalf("expected btk1 messages to be cleared, got %+v", msgs)
	}
	if got := second.Values.Value("btk1"); got != float64(7) {
		t.Fatalf("expected btk1 to be coerced to 7, got %#v", got)
	}
	if _, ok := second.Metadata[durable.MetadataKey]; ok {
		t.Fatalf("expected durable index to be removed, got %+v", second.Metadata)
	}

	again, err := service.Revalidate(ctx, "sheet-all")
	if err != nil {
		t.Fatalf("second revalidate returned error: %v", err)
	}
	if again.UpdatedRecords != 0 {
		t.Fatalf("expected an idempotent revalidation, got %+v", again)
	}
	if records.updateCalls != 2 {
		t.Fatalf("expected no update call for an unchanged sheet, got %d calls", records.updateCalls)
	}
}

func TestServiceImportErrors(t *testing.T) {
	service, _ := newTestService()
	ctx := context.Background()

	tests := []struct {
		name string
		req  ImportRequest
		want string
	}{
		{
			name: "missing workbook",
			req:  ImportRequest{SheetSlug: "all_data", FileName: "a.csv", Data: strings.NewReader("a\n1\n")},
			want: "workbook id is required",
		},
		{
			name: "unknown sheet",
			req:  ImportRequest{WorkbookID: "wb-1", SheetSlug: "other", FileName: "a.csv", Data: strings.NewReader("a\n1\n")},
			want: `sheet "other" not found in workbook wb-1`,
		},
		{
			name: "empty file",
			req:  ImportRequest{WorkbookID: "wb-1", SheetSlug: "all_data", FileName: "a.csv", Data: strings.NewReader("")},
			want: "file is empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.Import(ctx, tt.req)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}

	_, err := service.Import(ctx, ImportRequest{WorkbookID: "wb-1", SheetSlug: "all_data", FileName: "a.txt", Data: strings.NewReader("a")})
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

type stubSheets struct {
	workbook domain.Workbook
}

func (s *stubSheets) GetWorkbook(ctx context.Context, workbookID string) (domain.Workbook, error) {
	if workbookID != s.workbook.ID {
		return domain.Workbook{}, fmt.Errorf("workbook %s not found", workbookID)
	}
	return s.workbook, nil
}

func (s *stubSheets) GetSheet(ctx context.Context, sheetID string) (domain.Sheet, error) {
	for _, sheet := range s.workbook.Sheets {
		if sheet.ID == sheetID {
			return sheet, nil
		}
	}
	return domain.Sheet{}, fmt.Errorf("sheet %s not found", sheetID)
}

type stubRecords struct {
	stored      []domain.Record
	updateCalls int
}

func (s *stubRecords) ListRecords(ctx context.Context, sheetID string) ([]domain.Record, error) {
	out := make([]domain.Record, 0, len(s.stored))
	for _, record := range s.stored {
		out = append(out, record.Clone())
	}
	return out, nil
}

func (s *stubRecords) CreateRecords(ctx context.Context, sheetID string, records []domain.Record) ([]domain.Record, error) {
	created := make([]domain.Record, 0, len(records))
	for _, record := range records {
		record.ID = fmt.Sprintf("rec-%d", len(s.stored)+1)
		s.stored = append(s.stored, record.Clone())
		created = append(created, record)
	}
	return created, nil
}

func (s *stubRecords) UpdateRecords(ctx context.Context, updates []domain.RecordUpdate) (int, error) {
	s.updateCalls++
	for _, update := range updates {
		for i := range s.stored {
			if s.stored[i].ID != update.ID {
				continue
			}
			for field, cell := range update.Values {
				s.stored[i].Values[field] = cell
			}
			if update.Metadata != nil {
				s.stored[i].Metadata = update.Metadata
			}
		}
	}
	return len(updates), nil
}
