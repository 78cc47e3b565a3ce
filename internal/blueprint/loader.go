package blueprint

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rpattn/sheetfed/internal/domain"
)

// LoadFile loads, normalizes and validates a blueprint YAML file.
func LoadFile(path string) (domain.Blueprint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Blueprint{}, fmt.Errorf("failed to read blueprint file %s: %w", path, err)
	}

	return Parse(data)
}

// Parse decodes blueprint YAML, applies defaults and validates the result.
func Parse(data []byte) (domain.Blueprint, error) {
	var bp domain.Blueprint

	if err := yaml.Unmarshal(data, &bp); err != nil {
		return domain.Blueprint{}, fmt.Errorf("failed to parse blueprint YAML: %w", err)
	}

	applyDefaults(&bp)

	if err := Validate(bp); err != nil {
		return domain.Blueprint{}, err
	}

	return bp, nil
}

// Marshal serializes a blueprint back to YAML.
func Marshal(bp domain.Blueprint) ([]byte, error) {
	return yaml.Marshal(bp)
}

// applyDefaults fills in optional values.
func applyDefaults(bp *domain.Blueprint) {
	bp.TargetWorkbook = strings.TrimSpace(bp.TargetWorkbook)

	for i := range bp.Sheets {
		sheet := &bp.Sheets[i]
		sheet.Slug = strings.TrimSpace(sheet.Slug)
		if sheet.Name == "" {
			sheet.Name = sheet.Slug
		}

		if sheet.DedupeConfig != nil && sheet.DedupeConfig.Keep == "" {
			sheet.DedupeConfig.Keep = domain.KeepFirst
		}
	}

	for i := range bp.SourceSheets {
		source := &bp.SourceSheets[i]
		source.Slug = strings.TrimSpace(source.Slug)
		for j := range source.Fields {
			if source.Fields[j].Type == "" {
				source.Fields[j].Type = domain.FieldTypeString
			}
		}
	}
}

// SourceSlugs returns the recognized source sheet slugs. Declared source sheets
// win; otherwise every slug referenced by a field, virtual field or unpivot
// group is recognized. Order follows first declaration.
func SourceSlugs(bp domain.Blueprint) []string {
	seen := make(map[string]struct{})
	var slugs []string

	add := func(slug string) {
		if slug == "" {
			return
		}
		if _, ok := seen[slug]; ok {
			return
		}
		seen[slug] = struct{}{}
		slugs = append(slugs, slug)
	}

	if len(bp.SourceSheets) > 0 {
		for _, source := range bp.SourceSheets {
			add(source.Slug)
		}
		return slugs
	}

	for _, sheet := range bp.Sheets {
		for _, field := range sheet.Fields {
			if field.FederateConfig != nil {
				add(field.FederateConfig.SourceSheetSlug)
			}
		}
		for _, field := range sheet.VirtualFields {
			if field.FederateConfig != nil {
				add(field.FederateConfig.SourceSheetSlug)
			}
		}
		for _, group := range sheet.UnpivotGroups {
			add(group.SourceSheetSlug)
		}
	}

	return slugs
}
