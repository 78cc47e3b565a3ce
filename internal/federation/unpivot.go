package federation

import (
	"strings"

	"github.com/rpattn/sheetfed/internal/domain"
)

const (
	literalOpen  = "<<"
	literalClose = ">>"
)

// ParseLiteral unwraps a <<literal>> expression.
func ParseLiteral(expr string) (string, bool) {
	if len(expr) < len(literalOpen)+len(literalClose) {
		return "", false
	}
	if !strings.HasPrefix(expr, literalOpen) || !strings.HasSuffix(expr, literalClose) {
		return "", false
	}
	return expr[len(literalOpen) : len(expr)-len(literalClose)], true
}

// CreateUnpivotedRecords expands one wide source record into one narrow record
// per group field mapping. Groups bound to another source slug are skipped when
// sourceSlug is set. A built record is kept only if at least one field was
// copied from the source; virtual fields are layered on top of each kept record
// and win over same-named mapped fields.
func CreateUnpivotedRecords(source domain.Values, sourceSlug string, groups []domain.UnpivotGroup, virtualFields []FieldPair) []domain.Values {
	if source == nil {
		return nil
	}

	virtual := make(domain.Values, len(virtualFields))
	for _, pair := range virtualFields {
		if source.Defined(pair.SourceKey) {
			virtual[pair.TargetKey] = source[pair.SourceKey]
		}
	}

	var out []domain.Values
	for _, group := range groups {
		if sourceSlug != "" && group.SourceSheetSlug != "" && group.SourceSheetSlug != sourceSlug {
			continue
		}
		for _, mapping := range group.FieldMappings {
			record := make(domain.Values, len(mapping)+len(virtual))
			hasValue := false

			for targetKey, expr := range mapping {
				if literal, ok := ParseLiteral(expr); ok {
					record[targetKey] = domain.NewCell(literal)
					continue
				}
				if !source.Defined(expr) {
					continue
				}
				record[targetKey] = source[expr].Clone()
				hasValue = true
			}

			if !hasValue {
				continue
			}
			for key, cell := range virtual {
				record[key] = cell.Clone()
			}
			out = append(out, record)
		}
	}
	return out
}
