package blueprint

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rpattn/sheetfed/internal/domain"
)

// ErrInvalidBlueprint is matched by every validation failure.
var ErrInvalidBlueprint = errors.New("invalid blueprint")

// Problem is one structural issue found in a blueprint.
type Problem struct {
	Sheet   string
	Field   string
	Message string
}

func (p Problem) String() string {
	switch {
	case p.Sheet != "" && p.Field != "":
		return fmt.Sprintf("sheet %s, field %s: %s", p.Sheet, p.Field, p.Message)
	case p.Sheet != "":
		return fmt.Sprintf("sheet %s: %s", p.Sheet, p.Message)
	default:
		return p.Message
	}
}

// ValidationError lists every problem found in a blueprint.
type ValidationError struct {
	Problems []Problem
}

func (e *ValidationError) Error() string {
	lines := make([]string, 0, len(e.Problems))
	for _, problem := range e.Problems {
		lines = append(lines, problem.String())
	}
	return fmt.Sprintf("%s: %s", ErrInvalidBlueprint, strings.Join(lines, "; "))
}

// Is lets errors.Is match ErrInvalidBlueprint.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidBlueprint
}

type validator struct {
	problems []Problem
	sources  map[string]struct{}
}

func (v *validator) add(sheet, field, format string, args ...any) {
	v.problems = append(v.problems, Problem{Sheet: sheet, Field: field, Message: fmt.Sprintf(format, args...)})
}

// Validate checks the blueprint for structural problems. It reports all of
// them at once so a broken configuration can be fixed in one pass.
func Validate(bp domain.Blueprint) error {
	v := &validator{}

	if strings.TrimSpace(bp.TargetWorkbook) == "" {
		v.add("", "", "target_workbook is required")
	}
	if len(bp.Sheets) == 0 {
		v.add("", "", "at least one sheet is required")
	}

	if len(bp.SourceSheets) > 0 {
		v.sources = make(map[string]struct{}, len(bp.SourceSheets))
		for _, source := range bp.SourceSheets {
			if source.Slug == "" {
				v.add("", "", "source sheet slug is required")
				continue
			}
			if _, ok := v.sources[source.Slug]; ok {
				v.add("", "", "duplicate source sheet %q", source.Slug)
			}
			v.sources[source.Slug] = struct{}{}
			v.validateSourceFields(source)
		}
	}

	seenSheets := make(map[string]struct{}, len(bp.Sheets))
	for _, sheet := range bp.Sheets {
		if sheet.Slug == "" {
			v.add("", "", "sheet slug is required")
			continue
		}
		if _, ok := seenSheets[sheet.Slug]; ok {
			v.add(sheet.Slug, "", "duplicate sheet slug")
			continue
		}
		seenSheets[sheet.Slug] = struct{}{}
		v.validateSheet(sheet)
	}

	if len(v.problems) == 0 {
		return nil
	}
	return &ValidationError{Problems: v.problems}
}

func (v *validator) validateSourceFields(source domain.SourceSheet) {
	seen := make(map[string]struct{}, len(source.Fields))
	for _, field := range source.Fields {
		if field.Key == "" {
			v.add(source.Slug, "", "source field key is required")
			continue
		}
		if _, ok := seen[field.Key]; ok {
			v.add(source.Slug, field.Key, "duplicate source field key")
		}
		seen[field.Key] = struct{}{}
		switch field.Type {
		case "", domain.FieldTypeString, domain.FieldTypeNumber, domain.FieldTypeBoolean, domain.FieldTypeDate:
		default:
			v.add(source.Slug, field.Key, "unsupported field type %q", field.Type)
		}
	}
}

func (v *validator) validateSheet(sheet domain.SheetBlueprint) {
	keys := make(map[string]struct{}, len(sheet.Fields)+len(sheet.VirtualFields))
	checkKey := func(key string) bool {
		if key == "" {
			v.add(sheet.Slug, "", "field key is required")
			return false
		}
		if _, ok := keys[key]; ok {
			v.add(sheet.Slug, key, "duplicate target field key")
			return false
		}
		keys[key] = struct{}{}
		return true
	}

	for _, field := range sheet.Fields {
		if !checkKey(field.Key) {
			continue
		}
		if field.FederateConfig == nil {
			continue
		}
		if field.FederateConfig.SourceFieldKey == "" {
			v.add(sheet.Slug, field.Key, "federate_config.source_field_key is required")
		}
		v.checkSource(sheet.Slug, field.Key, field.FederateConfig.SourceSheetSlug)
	}

	for _, field := range sheet.VirtualFields {
		if !checkKey(field.Key) {
			continue
		}
		if field.FederateConfig == nil ||
			field.FederateConfig.SourceSheetSlug == "" ||
			field.FederateConfig.SourceFieldKey == "" {
			v.add(sheet.Slug, field.Key, "virtual field requires federate_config with source_sheet_slug and source_field_key")
			continue
		}
		v.checkSource(sheet.Slug, field.Key, field.FederateConfig.SourceSheetSlug)
	}

	for _, group := range sheet.UnpivotGroups {
		label := "unpivot group " + group.Name
		if group.Name == "" {
			v.add(sheet.Slug, "", "unpivot group name is required")
		}
		if group.SourceSheetSlug == "" {
			v.add(sheet.Slug, label, "source_sheet_slug is required")
		} else {
			v.checkSource(sheet.Slug, label, group.SourceSheetSlug)
		}
		if len(group.FieldMappings) == 0 {
			v.add(sheet.Slug, label, "at least one field mapping is required")
		}
		for idx, mapping := range group.FieldMappings {
			if len(mapping) == 0 {
				v.add(sheet.Slug, label, "field mapping %d is empty", idx)
			}
			for target, expr := range mapping {
				if target == "" || strings.TrimSpace(expr) == "" {
					v.add(sheet.Slug, label, "field mapping %d has an empty target or expression", idx)
				}
			}
		}
	}

	if sheet.DedupeConfig != nil {
		dedupe := sheet.DedupeConfig
		if dedupe.On.IsZero() {
			v.add(sheet.Slug, "dedupe_config", "on is required")
		}
		for _, key := range dedupe.On.Fields {
			if key == "" {
				v.add(sheet.Slug, "dedupe_config", "on contains an empty field key")
			}
		}
		switch dedupe.Type {
		case domain.DedupeMerge, domain.DedupeDelete:
		default:
			v.add(sheet.Slug, "dedupe_config", "type must be merge or delete, got %q", dedupe.Type)
		}
		switch dedupe.Keep {
		case domain.KeepFirst, domain.KeepLast:
		default:
			v.add(sheet.Slug, "dedupe_config", "keep must be first or last, got %q", dedupe.Keep)
		}
	}
}

func (v *validator) checkSource(sheet, field, slug string) {
	if slug == "" {
		v.add(sheet, field, "federate_config.source_sheet_slug is required")
		return
	}
	if v.sources == nil {
		return
	}
	if _, ok := v.sources[slug]; !ok {
		v.add(sheet, field, "unknown source sheet %q", slug)
	}
}
