package federation

import "github.com/rpattn/sheetfed/internal/domain"

// MappingKind discriminates the mapping variants.
type MappingKind string

const (
	KindField   MappingKind = "field"
	KindUnpivot MappingKind = "unpivot"
)

// FieldPair maps a source field key to a target field key.
type FieldPair struct {
	SourceKey string `json:"source_key"`
	TargetKey string `json:"target_key"`
}

// Mapping binds one source sheet to one target sheet. It is implemented only by
// *FieldMapping and *UnpivotMapping.
type Mapping interface {
	Kind() MappingKind
	SourceSheetSlug() string
	TargetSheetID() string
	TargetSheetSlug() string
	mapping()
}

// FieldMapping copies source cells to target keys one to one.
type FieldMapping struct {
	SourceSlug string
	SheetID    string
	SheetSlug  string
	Fields     []FieldPair
}

func (m *FieldMapping) Kind() MappingKind {
	return KindField
}

func (m *FieldMapping) SourceSheetSlug() string {
	return m.SourceSlug
}

func (m *FieldMapping) TargetSheetID() string {
	return m.SheetID
}

func (m *FieldMapping) TargetSheetSlug() string {
	return m.SheetSlug
}

func (m *FieldMapping) mapping() {}

// UnpivotMapping expands wide source records into narrow target records.
type UnpivotMapping struct {
	SourceSlug    string
	SheetID       string
	SheetSlug     string
	Groups        []domain.UnpivotGroup
	VirtualFields []FieldPair
}

func (m *UnpivotMapping) Kind() MappingKind {
	return KindUnpivot
}

func (m *UnpivotMapping) SourceSheetSlug() string {
	return m.SourceSlug
}

func (m *UnpivotMapping) TargetSheetID() string {
	return m.SheetID
}

func (m *UnpivotMapping) TargetSheetSlug() string {
	return m.SheetSlug
}

func (m *UnpivotMapping) mapping() {}

