package federation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpattn/sheetfed/internal/domain"
)

func TestParseLiteral(t *testing.T) {
	literal, ok := ParseLiteral("<<bonus>>")
	assert.True(t, ok)
	assert.Equal(t, "bonus", literal)

	literal, ok = ParseLiteral("<<>>")
	assert.True(t, ok)
	assert.Equal(t, "", literal)

	for _, expr := range []string{"bonus", "<<bonus", "bonus>>", "<>", ""} {
		_, ok := ParseLiteral(expr)
		assert.False(t, ok, expr)
	}
}

func unpivotGroups(source string, groups int, mappings int) []domain.UnpivotGroup {
	out := make([]domain.UnpivotGroup, 0, groups)
	for g := 0; g < groups; g++ {
		config := domain.UnpivotGroupConfig{SourceSheetSlug: source}
		for m := 0; m < mappings; m++ {
			config.FieldMappings = append(config.FieldMappings, map[string]string{
				"ssn":    "ssn",
				"amount": "amount",
				"group":  "<<" + string(rune('a'+g)) + ">>",
			})
		}
		out = append(out, domain.UnpivotGroup{Name: string(rune('a' + g)), UnpivotGroupConfig: config})
	}
	return out
}

func TestCreateUnpivotedRecordsCardinality(t *testing.T) {
	source := vals("ssn", "123", "amount", 10)

	out := CreateUnpivotedRecords(source, "all_data", unpivotGroups("all_data", 3, 2), nil)

	assert.Len(t, out, 6)
	assert.Equal(t, "a", out[0].Value("group"))
	assert.Equal(t, "c", out[5].Value("group"))
}

func TestCreateUnpivotedRecordsDropsEmptyConstructions(t *testing.T) {
	groups := []domain.UnpivotGroup{
		{Name: "bonus", UnpivotGroupConfig: domain.UnpivotGroupConfig{
			SourceSheetSlug: "all_data",
			FieldMappings: []map[string]string{
				{"kind": "<<bonus>>", "amount": "bonusAmount"},
				{"kind": "<<overtime>>", "amount": "overtimeAmount"},
			},
		}},
	}

	out := CreateUnpivotedRecords(vals("bonusAmount", 50, "overtimeAmount", nil), "all_data", groups, nil)

	require.Len(t, out, 1)
	assert.Equal(t, vals("kind", "bonus", "amount", 50), out[0])
}

func TestCreateUnpivotedRecordsLayersVirtualFields(t *testing.T) {
	groups := []domain.UnpivotGroup{
		{Name: "bonus", UnpivotGroupConfig: domain.UnpivotGroupConfig{
			SourceSheetSlug: "all_data",
			FieldMappings:   []map[string]string{{"amount": "bonusAmount", "batch": "<<mapped>>"}},
		}},
	}
	virtual := []FieldPair{
		{SourceKey: "batchId", TargetKey: "batch"},
		{SourceKey: "missing", TargetKey: "_missing"},
	}

	out := CreateUnpivotedRecords(vals("bonusAmount", 50, "batchId", "b1"), "all_data", groups, virtual)

	require.Len(t, out, 1)
	assert.Equal(t, "b1", out[0].Value("batch"))
	_, ok := out[0]["_missing"]
	assert.False(t, ok)
}

func TestCreateUnpivotedRecordsSkipsOtherSources(t *testing.T) {
	groups := unpivotGroups("other_sheet", 1, 1)

	assert.Empty(t, CreateUnpivotedRecords(vals("ssn", "1"), "all_data", groups, nil))
	assert.Len(t, CreateUnpivotedRecords(vals("ssn", "1"), "", groups, nil), 1)
}

func TestCreateUnpivotedRecordsNilSource(t *testing.T) {
	assert.Nil(t, CreateUnpivotedRecords(nil, "all_data", unpivotGroups("all_data", 1, 1), nil))
}
