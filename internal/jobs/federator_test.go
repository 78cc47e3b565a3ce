package jobs

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpattn/sheetfed/internal/domain"
)

type jobCall struct {
	kind   string
	update domain.JobUpdate
}

type stubJobs struct {
	mu        sync.Mutex
	calls     []jobCall
	updateErr error
}

func (s *stubJobs) record(kind string, update domain.JobUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, jobCall{kind: kind, update: update})
}

func (s *stubJobs) Ack(_ context.Context, _ string, update domain.JobUpdate) error {
	s.record("ack", update)
	return nil
}

func (s *stubJobs) Update(_ context.Context, _ string, update domain.JobUpdate) error {
	s.record("update", update)
	return s.updateErr
}

func (s *stubJobs) Complete(_ context.Context, _ string, update domain.JobUpdate) error {
	s.record("complete", update)
	return nil
}

func (s *stubJobs) Fail(_ context.Context, _ string, update domain.JobUpdate) error {
	s.record("fail", update)
	return nil
}

func (s *stubJobs) last() jobCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[len(s.calls)-1]
}

func (s *stubJobs) progress() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []int
	for _, call := range s.calls {
		if call.update.Progress != nil {
			out = append(out, *call.update.Progress)
		}
	}
	return out
}

type stubWorkbooks struct {
	mu        sync.Mutex
	source    domain.Workbook
	existing  []domain.Workbook
	deleted   []string
	created   []domain.SheetSpec
	createErr error
}

func (s *stubWorkbooks) GetWorkbook(_ context.Context, id string) (domain.Workbook, error) {
	if id != s.source.ID {
		return domain.Workbook{}, errors.New("workbook not found")
	}
	return s.source, nil
}

func (s *stubWorkbooks) ListWorkbooks(_ context.Context, _ string, name string) ([]domain.Workbook, error) {
	var out []domain.Workbook
	for _, wb := range s.existing {
		if wb.Name == name {
			out = append(out, wb)
		}
	}
	return out, nil
}

func (s *stubWorkbooks) DeleteWorkbook(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *stubWorkbooks) CreateWorkbook(_ context.Context, spaceID string, name string, sheets []domain.SheetSpec) (domain.Workbook, error) {
	if s.createErr != nil {
		return domain.Workbook{}, s.createErr
	}
	s.created = sheets
	wb := domain.Workbook{ID: "target", SpaceID: spaceID, Name: name}
	for _, spec := range sheets {
		wb.Sheets = append(wb.Sheets, domain.Sheet{ID: "target-" + spec.Slug, WorkbookID: wb.ID, Slug: spec.Slug, Name: spec.Name, FieldKeys: spec.FieldKeys})
	}
	return wb, nil
}

type stubRecords struct {
	mu        sync.Mutex
	records   map[string][]domain.Record
	inserted  map[string][]domain.Values
	insertErr error
}

func (s *stubRecords) ListRecordsBySheets(_ context.Context, sheetIDs []string) (map[string][]domain.Record, error) {
	out := make(map[string][]domain.Record, len(sheetIDs))
	for _, id := range sheetIDs {
		out[id] = s.records[id]
	}
	return out, nil
}

func (s *stubRecords) InsertRecords(_ context.Context, sheetID string, records []domain.Values) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inserted == nil {
		s.inserted = make(map[string][]domain.Values)
	}
	s.inserted[sheetID] = records
	return nil
}

func testBlueprint() domain.Blueprint {
	fed := func(key, sourceKey string) domain.FieldBlueprint {
		return domain.FieldBlueprint{Key: key, FederateConfig: &domain.FederateConfig{SourceSheetSlug: "all_data", SourceFieldKey: sourceKey}}
	}
	return domain.Blueprint{
		TargetWorkbook: "Federated",
		SourceSheets:   []domain.SourceSheet{{Slug: "all_data"}},
		Sheets: []domain.SheetBlueprint{
			{
				Slug:          "employees",
				Name:          "Employees",
				Fields:        []domain.FieldBlueprint{fed("ssn", "employeeSsn"), fed("name", "employeeName")},
				VirtualFields: []domain.FieldBlueprint{fed("_batch", "batch")},
				DedupeConfig:  &domain.DedupeConfig{On: domain.SingleKey("ssn"), Type: domain.DedupeMerge, Keep: domain.KeepFirst},
			},
			{
				Slug:   "contracts",
				Name:   "Contracts",
				Fields: []domain.FieldBlueprint{fed("contract", "contractId")},
			},
		},
	}
}

func cell(v any) domain.Cell {
	return domain.NewCell(v)
}

type fixture struct {
	jobs      *stubJobs
	workbooks *stubWorkbooks
	records   *stubRecords
	federator *Federator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fx := &fixture{
		jobs: &stubJobs{},
		workbooks: &stubWorkbooks{
			source: domain.Workbook{ID: "source", Sheets: []domain.Sheet{
				{ID: "sheet-all", Slug: "all_data"},
				{ID: "sheet-notes", Slug: "notes"},
			}},
			existing: []domain.Workbook{{ID: "old-1", Name: "Federated"}, {ID: "old-2", Name: "Federated"}, {ID: "other", Name: "Other"}},
		},
		records: &stubRecords{records: map[string][]domain.Record{
			"sheet-all": {
				{ID: "r1", Values: domain.Values{"employeeSsn": cell("1"), "employeeName": cell("John"), "batch": cell("b1")}},
				{ID: "r2", Values: domain.Values{"employeeSsn": cell("1"), "employeeName": cell("Johnny")}},
				{ID: "r3", Values: domain.Values{"employeeSsn": cell("2")}},
			},
		}},
	}
	federator, err := NewFederator(testBlueprint(), fx.jobs, fx.workbooks, fx.records)
	require.NoError(t, err)
	fx.federator = federator
	return fx
}

var testJob = domain.JobContext{JobID: "job-1", WorkbookID: "source", SpaceID: "space"}

func TestFederatorRun(t *testing.T) {
	fx := newFixture(t)

	require.NoError(t, fx.federator.Run(context.Background(), testJob))

	sort.Strings(fx.workbooks.deleted)
	assert.Equal(t, []string{"old-1", "old-2"}, fx.workbooks.deleted)

	require.Len(t, fx.workbooks.created, 2)
	assert.Equal(t, []string{"ssn", "name"}, fx.workbooks.created[0].FieldKeys)

	require.Contains(t, fx.records.inserted, "target-employees")
	employees := fx.records.inserted["target-employees"]
	require.Len(t, employees, 2)
	assert.Equal(t, "John", employees[0].Value("name"))
	assert.NotContains(t, employees[0], "_batch")
	assert.NotContains(t, fx.records.inserted, "target-contracts")

	assert.Equal(t, []int{0, 10, 20, 30, 40, 70, 95, 100, 100}, fx.jobs.progress())

	last := fx.jobs.last()
	assert.Equal(t, "complete", last.kind)
	require.NotNil(t, last.update.Outcome)
	assert.Equal(t, "Federated 2 records into 1 sheets", last.update.Outcome.Message)
}

func TestFederatorNoSourceSheets(t *testing.T) {
	fx := newFixture(t)
	fx.workbooks.source.Sheets = []domain.Sheet{{ID: "sheet-notes", Slug: "notes"}}

	err := fx.federator.Run(context.Background(), testJob)

	require.Error(t, err)
	assert.Equal(t, "No source sheets found", err.Error())
	last := fx.jobs.last()
	assert.Equal(t, "fail", last.kind)
	assert.Equal(t, "No source sheets found", last.update.Info)
	assert.Equal(t, "No source sheets found", last.update.Outcome.Message)
	assert.Empty(t, fx.workbooks.deleted)
}

func TestFederatorFailsOnInsertError(t *testing.T) {
	fx := newFixture(t)
	fx.records.insertErr = errors.New("connection reset")

	err := fx.federator.Run(context.Background(), testJob)

	require.Error(t, err)
	last := fx.jobs.last()
	assert.Equal(t, "fail", last.kind)
	assert.Equal(t, "insert records for sheet target-employees: connection reset", last.update.Outcome.Message)
	assert.Equal(t, last.update.Info, last.update.Outcome.Message)
}

func TestFederatorFailsOnCreateError(t *testing.T) {
	fx := newFixture(t)
	fx.workbooks.createErr = errors.New("quota exceeded")

	err := fx.federator.Run(context.Background(), testJob)

	require.Error(t, err)
	assert.Equal(t, "create target workbook: quota exceeded", fx.jobs.last().update.Outcome.Message)
	assert.Nil(t, fx.records.inserted)
}

func TestFederatorSkipsEmptySources(t *testing.T) {
	fx := newFixture(t)
	fx.records.records = nil

	require.NoError(t, fx.federator.Run(context.Background(), testJob))

	assert.Empty(t, fx.records.inserted)
	assert.Equal(t, "Federated 0 records into 0 sheets", fx.jobs.last().update.Outcome.Message)
}

func TestFederatorTargetNameOverride(t *testing.T) {
	fx := newFixture(t)
	federator, err := NewFederator(testBlueprint(), fx.jobs, fx.workbooks, fx.records, WithTargetWorkbook("Other"))
	require.NoError(t, err)

	require.NoError(t, federator.Run(context.Background(), testJob))

	assert.Equal(t, []string{"other"}, fx.workbooks.deleted)
}

func TestNewFederatorRejectsInvalidBlueprint(t *testing.T) {
	_, err := NewFederator(domain.Blueprint{}, &stubJobs{}, &stubWorkbooks{}, &stubRecords{})
	assert.Error(t, err)
}
