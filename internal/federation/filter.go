package federation

import (
	"slices"

	"github.com/rpattn/sheetfed/internal/domain"
)

// ShouldIncludeRecord evaluates a filter against one record. Conditions are
// ANDed and checked in declaration order. A nil or empty filter keeps
// everything.
func ShouldIncludeRecord(values domain.Values, filter *domain.FilterConfig) bool {
	if filter == nil || filter.IsEmpty() {
		return true
	}

	for _, field := range filter.AllFieldsRequired {
		if !values.Defined(field) {
			return false
		}
	}

	if len(filter.AnyFieldsRequired) > 0 {
		found := false
		for _, field := range filter.AnyFieldsRequired {
			if values.Defined(field) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	// every listed field must be absent
	for _, field := range filter.AnyFieldsExcluded {
		if values.Defined(field) {
			return false
		}
	}

	for field, allowed := range filter.FieldValuesRequired {
		if !values.Defined(field) {
			return false
		}
		if !slices.Contains(allowed, domain.FormatValue(values.Value(field))) {
			return false
		}
	}

	for field, disallowed := range filter.FieldValuesExcluded {
		if !values.Defined(field) {
			continue
		}
		if slices.Contains(disallowed, domain.FormatValue(values.Value(field))) {
			return false
		}
	}

	return true
}

// FilterRecords keeps the records that pass the filter, preserving order.
func FilterRecords(records []domain.Values, filter *domain.FilterConfig) []domain.Values {
	if filter == nil || filter.IsEmpty() {
		return records
	}

	kept := make([]domain.Values, 0, len(records))
	for _, record := range records {
		if ShouldIncludeRecord(record, filter) {
			kept = append(kept, record)
		}
	}
	return kept
}
