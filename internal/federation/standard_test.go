package federation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rpattn/sheetfed/internal/domain"
)

func TestCreateStandardRecord(t *testing.T) {
	source := domain.Values{
		"ssn":   domain.Cell{Value: "123", Messages: []domain.Message{domain.NewWarning("check")}},
		"empty": domain.NewCell(""),
		"null":  domain.NewCell(nil),
	}
	fields := []FieldPair{
		{SourceKey: "ssn", TargetKey: "employeeSsn"},
		{SourceKey: "missing", TargetKey: "other"},
	}

	record, hasValue := CreateStandardRecord(source, fields)

	require.NotNil(t, record)
	assert.True(t, hasValue)
	assert.Equal(t, source["ssn"], record["employeeSsn"])
	assert.NotContains(t, record, "other")
}

func TestCreateStandardRecordKeepsEmptyCells(t *testing.T) {
	source := vals("empty", "", "null", nil)

	record, hasValue := CreateStandardRecord(source, []FieldPair{
		{SourceKey: "empty", TargetKey: "a"},
		{SourceKey: "null", TargetKey: "b"},
	})

	require.NotNil(t, record)
	assert.False(t, hasValue)
	assert.Len(t, record, 2)
}

func TestCreateStandardRecordNoKeys(t *testing.T) {
	record, _ := CreateStandardRecord(vals("x", 1), []FieldPair{{SourceKey: "y", TargetKey: "y"}})
	assert.Nil(t, record)
}

type panickingMapping struct{}

func (panickingMapping) Kind() MappingKind       { panic("boom") }
func (panickingMapping) SourceSheetSlug() string { return "all_data" }
func (panickingMapping) TargetSheetID() string   { return "sheet" }
func (panickingMapping) TargetSheetSlug() string { return "sheet" }
func (panickingMapping) mapping()                {}

func TestProcessRecordDispatch(t *testing.T) {
	logger := zap.NewNop().Sugar()
	source := vals("ssn", "1", "amount", 5)

	standard := ProcessRecord(source, "all_data", &FieldMapping{Fields: []FieldPair{{SourceKey: "ssn", TargetKey: "ssn"}}}, logger)
	assert.Len(t, standard, 1)

	none := ProcessRecord(source, "all_data", &FieldMapping{Fields: []FieldPair{{SourceKey: "nope", TargetKey: "nope"}}}, logger)
	assert.Empty(t, none)

	unpivot := ProcessRecord(source, "all_data", &UnpivotMapping{Groups: unpivotGroups("all_data", 2, 1)}, logger)
	assert.Len(t, unpivot, 2)
}

func TestProcessRecordRecoversFromPanics(t *testing.T) {
	assert.NotPanics(t, func() {
		out := ProcessRecord(vals("ssn", "1"), "all_data", panickingMapping{}, zap.NewNop().Sugar())
		assert.Nil(t, out)
	})
}
