package domain

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Blueprint is the static federation configuration: which target sheets exist
// and how each of their fields is derived from the staging sheets.
type Blueprint struct {
	TargetWorkbook string           `yaml:"target_workbook" json:"target_workbook"`
	SourceSheets   []SourceSheet    `yaml:"source_sheets,omitempty" json:"source_sheets,omitempty"`
	Sheets         []SheetBlueprint `yaml:"sheets" json:"sheets"`
}

// SheetBySlug finds a target sheet blueprint by slug.
func (b Blueprint) SheetBySlug(slug string) (SheetBlueprint, bool) {
	for _, sheet := range b.Sheets {
		if sheet.Slug == slug {
			return sheet, true
		}
	}
	return SheetBlueprint{}, false
}

// SourceSheetBySlug finds a declared source sheet by slug.
func (b Blueprint) SourceSheetBySlug(slug string) (SourceSheet, bool) {
	for _, sheet := range b.SourceSheets {
		if sheet.Slug == slug {
			return sheet, true
		}
	}
	return SourceSheet{}, false
}

// SourceSheet declares a staging sheet that feeds the federation.
type SourceSheet struct {
	Slug   string        `yaml:"slug" json:"slug"`
	Name   string        `yaml:"name,omitempty" json:"name,omitempty"`
	Fields []SourceField `yaml:"fields,omitempty" json:"fields,omitempty"`
}

// FieldType is the declared primitive type of a source field.
type FieldType string

const (
	FieldTypeString  FieldType = "string"
	FieldTypeNumber  FieldType = "number"
	FieldTypeBoolean FieldType = "boolean"
	FieldTypeDate    FieldType = "date"
)

// SourceField describes a column of a staging sheet.
type SourceField struct {
	Key      string    `yaml:"key" json:"key"`
	Label    string    `yaml:"label,omitempty" json:"label,omitempty"`
	Type     FieldType `yaml:"type,omitempty" json:"type,omitempty"`
	Required bool      `yaml:"required,omitempty" json:"required,omitempty"`
}

// SheetBlueprint declares one federated target sheet.
type SheetBlueprint struct {
	Slug          string           `yaml:"slug" json:"slug"`
	Name          string           `yaml:"name,omitempty" json:"name,omitempty"`
	Fields        []FieldBlueprint `yaml:"fields" json:"fields"`
	VirtualFields []FieldBlueprint `yaml:"virtualFields,omitempty" json:"virtualFields,omitempty"`
	DedupeConfig  *DedupeConfig    `yaml:"dedupe_config,omitempty" json:"dedupe_config,omitempty"`
	FilterConfig  `yaml:",inline"`
	UnpivotGroups UnpivotGroups `yaml:"unpivot_groups,omitempty" json:"unpivot_groups,omitempty"`
}

// IsUnpivot reports whether the sheet is built by unpivoting its sources.
func (s SheetBlueprint) IsUnpivot() bool {
	return len(s.UnpivotGroups) > 0
}

// FieldKeys lists the persisted field keys of the sheet, virtual fields excluded.
func (s SheetBlueprint) FieldKeys() []string {
	keys := make([]string, 0, len(s.Fields))
	for _, field := range s.Fields {
		keys = append(keys, field.Key)
	}
	return keys
}

// FieldBlueprint declares a target field and where its value comes from.
type FieldBlueprint struct {
	Key            string          `yaml:"key" json:"key"`
	Label          string          `yaml:"label,omitempty" json:"label,omitempty"`
	Type           FieldType       `yaml:"type,omitempty" json:"type,omitempty"`
	FederateConfig *FederateConfig `yaml:"federate_config,omitempty" json:"federate_config,omitempty"`
}

// FederateConfig points a target field at a source sheet column.
type FederateConfig struct {
	SourceSheetSlug string `yaml:"source_sheet_slug" json:"source_sheet_slug"`
	SourceFieldKey  string `yaml:"source_field_key" json:"source_field_key"`
}

// UnpivotGroupConfig maps one wide source row into several narrow rows. Every
// entry of FieldMappings produces one candidate target record; values are either
// source field keys or <<literal>> expressions.
type UnpivotGroupConfig struct {
	SourceSheetSlug string              `yaml:"source_sheet_slug" json:"source_sheet_slug"`
	FieldMappings   []map[string]string `yaml:"field_mappings" json:"field_mappings"`
}

// UnpivotGroup is a named group config.
type UnpivotGroup struct {
	Name string `json:"name"`
	UnpivotGroupConfig
}

// UnpivotGroups keeps the declaration order of the unpivot_groups mapping.
type UnpivotGroups []UnpivotGroup

// UnmarshalYAML decodes an ordered mapping of group name to config.
func (g *UnpivotGroups) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: unpivot_groups must be a mapping", value.Line)
	}
	groups := make(UnpivotGroups, 0, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		keyNode := value.Content[i]
		var config UnpivotGroupConfig
		if err := value.Content[i+1].Decode(&config); err != nil {
			return fmt.Errorf("unpivot group %q: %w", keyNode.Value, err)
		}
		groups = append(groups, UnpivotGroup{Name: keyNode.Value, UnpivotGroupConfig: config})
	}
	*g = groups
	return nil
}

// MarshalYAML encodes the groups back into an ordered mapping.
func (g UnpivotGroups) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, group := range g {
		valueNode := &yaml.Node{}
		if err := valueNode.Encode(group.UnpivotGroupConfig); err != nil {
			return nil, err
		}
		node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: group.Name}, valueNode)
	}
	return node, nil
}
