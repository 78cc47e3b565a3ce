package blueprint

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpattn/sheetfed/internal/domain"
)

func TestLoadFile(t *testing.T) {
	bp, err := LoadFile("testdata/valid.yaml")
	require.NoError(t, err)

	assert.Equal(t, "Federated Payroll", bp.TargetWorkbook)
	require.Len(t, bp.Sheets, 2)

	payroll := bp.Sheets[0]
	assert.Equal(t, "payroll", payroll.Name)
	require.NotNil(t, payroll.DedupeConfig)
	assert.Equal(t, domain.SingleKey("employeeSsn"), payroll.DedupeConfig.On)
	assert.Equal(t, domain.KeepFirst, payroll.DedupeConfig.Keep)
	assert.Equal(t, []string{"void", "cancelled"}, payroll.FieldValuesExcluded["status"])

	adjustments := bp.Sheets[1]
	require.True(t, adjustments.IsUnpivot())
	assert.Equal(t, "zeta", adjustments.UnpivotGroups[0].Name)
	assert.Equal(t, "alpha", adjustments.UnpivotGroups[1].Name)
	assert.Equal(t, "<<alpha>>", adjustments.UnpivotGroups[1].FieldMappings[0]["kind"])
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile("testdata/does-not-exist.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read blueprint file")
}

func TestParseRejectsMalformedYAML(t *testing.T) {
	_, err := Parse([]byte("sheets: [oops"))
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrInvalidBlueprint))
}

func TestParseRejectsInvalidBlueprint(t *testing.T) {
	_, err := Parse([]byte("sheets:\n  - slug: payroll\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidBlueprint)
}

func TestMarshalRoundTripKeepsGroupOrder(t *testing.T) {
	bp, err := LoadFile("testdata/valid.yaml")
	require.NoError(t, err)

	data, err := Marshal(bp)
	require.NoError(t, err)

	again, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, bp, again)
}

func TestSourceSlugs(t *testing.T) {
	bp, err := LoadFile("testdata/valid.yaml")
	require.NoError(t, err)

	assert.Equal(t, []string{"all_data", "bonus_sheet"}, SourceSlugs(bp))

	bp.SourceSheets = []domain.SourceSheet{{Slug: "staging"}}
	assert.Equal(t, []string{"staging"}, SourceSlugs(bp))
}
