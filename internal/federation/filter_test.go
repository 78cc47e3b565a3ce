package federation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rpattn/sheetfed/internal/domain"
)

func vals(pairs ...any) domain.Values {
	out := make(domain.Values, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out[pairs[i].(string)] = domain.NewCell(pairs[i+1])
	}
	return out
}

func TestShouldIncludeRecord(t *testing.T) {
	record := vals("name", "John", "email", "a@b.c", "status", "active", "empty", nil)

	tests := []struct {
		name   string
		filter *domain.FilterConfig
		want   bool
	}{
		{name: "nil filter", filter: nil, want: true},
		{name: "empty filter", filter: &domain.FilterConfig{}, want: true},
		{name: "all required present", filter: &domain.FilterConfig{AllFieldsRequired: []string{"name", "email"}}, want: true},
		{name: "all required with null cell", filter: &domain.FilterConfig{AllFieldsRequired: []string{"name", "empty"}}, want: false},
		{name: "any required one present", filter: &domain.FilterConfig{AnyFieldsRequired: []string{"phone", "email"}}, want: true},
		{name: "any required none present", filter: &domain.FilterConfig{AnyFieldsRequired: []string{"phone", "empty"}}, want: false},
		{name: "excluded field defined", filter: &domain.FilterConfig{AnyFieldsExcluded: []string{"email"}}, want: false},
		{name: "excluded requires every field absent", filter: &domain.FilterConfig{AnyFieldsExcluded: []string{"phone", "email"}}, want: false},
		{name: "excluded all absent", filter: &domain.FilterConfig{AnyFieldsExcluded: []string{"phone", "empty"}}, want: true},
		{name: "values required match", filter: &domain.FilterConfig{FieldValuesRequired: map[string][]string{"status": {"active", "pending"}}}, want: true},
		{name: "values required mismatch", filter: &domain.FilterConfig{FieldValuesRequired: map[string][]string{"status": {"closed"}}}, want: false},
		{name: "values required absent", filter: &domain.FilterConfig{FieldValuesRequired: map[string][]string{"phone": {"1"}}}, want: false},
		{name: "values excluded match", filter: &domain.FilterConfig{FieldValuesExcluded: map[string][]string{"status": {"active"}}}, want: false},
		{name: "values excluded absent passes", filter: &domain.FilterConfig{FieldValuesExcluded: map[string][]string{"phone": {"1"}}}, want: true},
		{
			name: "conditions are combined",
			filter: &domain.FilterConfig{
				AllFieldsRequired:   []string{"name"},
				FieldValuesExcluded: map[string][]string{"status": {"active"}},
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldIncludeRecord(record, tt.filter))
		})
	}
}

func TestShouldIncludeRecordStringifiesValues(t *testing.T) {
	filter := &domain.FilterConfig{FieldValuesRequired: map[string][]string{"count": {"12.5"}, "flag": {"true"}}}
	assert.True(t, ShouldIncludeRecord(vals("count", 12.5, "flag", true), filter))
	assert.False(t, ShouldIncludeRecord(vals("count", 12, "flag", true), filter))
}

func TestFilterRecords(t *testing.T) {
	records := []domain.Values{
		vals("id", "1", "email", "a"),
		vals("id", "2"),
		vals("id", "3", "email", "c"),
	}

	kept := FilterRecords(records, &domain.FilterConfig{AllFieldsRequired: []string{"email"}})
	assert.Len(t, kept, 2)
	assert.Equal(t, "1", kept[0].Value("id"))
	assert.Equal(t, "3", kept[1].Value("id"))

	assert.Len(t, FilterRecords(records, nil), 3)
}
