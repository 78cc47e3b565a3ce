package federation

import (
	"go.uber.org/zap"

	"github.com/rpattn/sheetfed/internal/domain"
)

// CreateStandardRecord copies every mapped source cell that is present on the
// record to its target key. It returns nil when no key was copied. hasValue
// reports whether any copied cell carried a non-empty value.
func CreateStandardRecord(values domain.Values, fields []FieldPair) (record domain.Values, hasValue bool) {
	for _, pair := range fields {
		cell, ok := values[pair.SourceKey]
		if !ok {
			continue
		}
		if record == nil {
			record = make(domain.Values, len(fields))
		}
		record[pair.TargetKey] = cell.Clone()
		if !domain.IsEmptyValue(cell.Value) {
			hasValue = true
		}
	}
	return record, hasValue
}

// ProcessRecord runs one source record through a mapping. A panic inside a
// processor is logged and yields no records.
func ProcessRecord(values domain.Values, sourceSlug string, mapping Mapping, logger *zap.SugaredLogger) (out []domain.Values) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warnw("record processing failed",
				"source", sourceSlug,
				"targetSheet", mapping.TargetSheetSlug(),
				"panic", r,
			)
			out = nil
		}
	}()

	switch m := mapping.(type) {
	case *UnpivotMapping:
		return CreateUnpivotedRecords(values, sourceSlug, m.Groups, m.VirtualFields)
	case *FieldMapping:
		record, hasValue := CreateStandardRecord(values, m.Fields)
		if record == nil {
			return nil
		}
		if !hasValue {
			logger.Debugw("mapped record carries only empty values",
				"source", sourceSlug,
				"targetSheet", m.SheetSlug,
			)
		}
		return []domain.Values{record}
	default:
		logger.Warnw("unsupported mapping kind", "kind", mapping.Kind())
		return nil
	}
}
