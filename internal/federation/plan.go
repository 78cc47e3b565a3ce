package federation

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/rpattn/sheetfed/internal/blueprint"
	"github.com/rpattn/sheetfed/internal/domain"
	"github.com/rpattn/sheetfed/internal/logging"
)

// SheetPlan holds the finalization settings of one target sheet.
type SheetPlan struct {
	SheetID     string
	SheetSlug   string
	Dedupe      *domain.DedupeConfig
	Filter      *domain.FilterConfig
	VirtualKeys []string
}

// Plan is the compiled mapping configuration of a federation run. It is
// immutable; With returns an extended copy.
type Plan struct {
	sheets   []SheetPlan
	bySource map[string][]Mapping
}

// NewPlan returns an empty plan.
func NewPlan() *Plan {
	return &Plan{bySource: map[string][]Mapping{}}
}

// With returns a copy of the plan with the sheet registered. A sheet already
// registered under the same id is replaced together with its mappings.
func (p *Plan) With(sheet SheetPlan, mappings []Mapping) *Plan {
	next := &Plan{
		sheets:   make([]SheetPlan, 0, len(p.sheets)+1),
		bySource: make(map[string][]Mapping, len(p.bySource)),
	}

	for _, existing := range p.sheets {
		if existing.SheetID != sheet.SheetID {
			next.sheets = append(next.sheets, existing)
		}
	}
	next.sheets = append(next.sheets, sheet)

	for source, list := range p.bySource {
		kept := make([]Mapping, 0, len(list))
		for _, m := range list {
			if m.TargetSheetID() != sheet.SheetID {
				kept = append(kept, m)
			}
		}
		if len(kept) > 0 {
			next.bySource[source] = kept
		}
	}

	for _, m := range mappings {
		source := m.SourceSheetSlug()
		next.bySource[source] = append(next.bySource[source], m)
	}

	return next
}

// Mappings lists the mappings registered against a source sheet slug.
func (p *Plan) Mappings(sourceSlug string) []Mapping {
	return p.bySource[sourceSlug]
}

// Sheets lists the registered target sheets in registration order.
func (p *Plan) Sheets() []SheetPlan {
	return p.sheets
}

// Sheet finds a registered target sheet by id.
func (p *Plan) Sheet(sheetID string) (SheetPlan, bool) {
	for _, sheet := range p.sheets {
		if sheet.SheetID == sheetID {
			return sheet, true
		}
	}
	return SheetPlan{}, false
}

// Compiler turns a validated blueprint into plans.
type Compiler struct {
	blueprint domain.Blueprint
	sources   map[string]struct{}
	logger    *zap.SugaredLogger
}

// NewCompiler validates the blueprint and records the recognized source sheets.
func NewCompiler(bp domain.Blueprint, logger *zap.SugaredLogger) (*Compiler, error) {
	if err := blueprint.Validate(bp); err != nil {
		return nil, fmt.Errorf("federation blueprint: %w", err)
	}

	sources := make(map[string]struct{})
	for _, slug := range blueprint.SourceSlugs(bp) {
		sources[slug] = struct{}{}
	}

	return &Compiler{
		blueprint: bp,
		sources:   sources,
		logger:    logging.OrNop(logger).Named(logging.ComponentFederation),
	}, nil
}

// Blueprint returns the compiled blueprint.
func (c *Compiler) Blueprint() domain.Blueprint {
	return c.blueprint
}

// HasSourceSheet reports whether slug is a recognized source sheet.
func (c *Compiler) HasSourceSheet(slug string) bool {
	_, ok := c.sources[slug]
	return ok
}

// Compile builds a plan for every blueprint sheet present in sheetIDs (slug to
// runtime sheet id). Sheets without an id are skipped with a warning.
func (c *Compiler) Compile(sheetIDs map[string]string) *Plan {
	plan := NewPlan()
	for _, sheet := range c.blueprint.Sheets {
		id, ok := sheetIDs[sheet.Slug]
		if !ok {
			c.logger.Warnw("no target sheet for blueprint sheet", "sheet", sheet.Slug)
			continue
		}
		plan = c.Extend(plan, sheet, domain.Sheet{ID: id, Slug: sheet.Slug, Name: sheet.Name})
	}
	return plan
}

// Extend registers one target sheet on top of plan.
func (c *Compiler) Extend(plan *Plan, sheet domain.SheetBlueprint, target domain.Sheet) *Plan {
	sheetPlan, mappings := c.compileSheet(sheet, target)
	return plan.With(sheetPlan, mappings)
}

func (c *Compiler) compileSheet(sheet domain.SheetBlueprint, target domain.Sheet) (SheetPlan, []Mapping) {
	var filter *domain.FilterConfig
	if !sheet.FilterConfig.IsEmpty() {
		f := sheet.FilterConfig
		filter = &f
	}

	var dedupe *domain.DedupeConfig
	if sheet.DedupeConfig != nil {
		d := *sheet.DedupeConfig
		dedupe = &d
	}

	sheetPlan := SheetPlan{
		SheetID:   target.ID,
		SheetSlug: sheet.Slug,
		Dedupe:    dedupe,
		Filter:    filter,
	}
	for _, field := range sheet.VirtualFields {
		sheetPlan.VirtualKeys = append(sheetPlan.VirtualKeys, field.Key)
	}

	if sheet.IsUnpivot() {
		return sheetPlan, c.unpivotMappings(sheet, target)
	}
	return sheetPlan, c.fieldMappings(sheet, target)
}

func (c *Compiler) fieldMappings(sheet domain.SheetBlueprint, target domain.Sheet) []Mapping {
	var order []string
	bySource := make(map[string]*FieldMapping)

	fields := make([]domain.FieldBlueprint, 0, len(sheet.Fields)+len(sheet.VirtualFields))
	fields = append(fields, sheet.Fields...)
	fields = append(fields, sheet.VirtualFields...)

	for _, field := range fields {
		source, sourceKey, ok := c.resolveField(sheet.Slug, field)
		if !ok {
			continue
		}
		mapping, exists := bySource[source]
		if !exists {
			mapping = &FieldMapping{
				SourceSlug: source,
				SheetID:    target.ID,
				SheetSlug:  sheet.Slug,
			}
			bySource[source] = mapping
			order = append(order, source)
		}
		mapping.Fields = append(mapping.Fields, FieldPair{SourceKey: sourceKey, TargetKey: field.Key})
	}

	mappings := make([]Mapping, 0, len(order))
	for _, source := range order {
		mappings = append(mappings, bySource[source])
	}
	return mappings
}

func (c *Compiler) unpivotMappings(sheet domain.SheetBlueprint, target domain.Sheet) []Mapping {
	var order []string
	bySource := make(map[string]*UnpivotMapping)

	for _, group := range sheet.UnpivotGroups {
		source := group.SourceSheetSlug
		if source == "" || !c.HasSourceSheet(source) {
			c.logger.Warnw("unpivot group has no resolvable source sheet, skipping",
				"sheet", sheet.Slug,
				"group", group.Name,
				"source", source,
			)
			continue
		}
		mapping, exists := bySource[source]
		if !exists {
			mapping = &UnpivotMapping{
				SourceSlug: source,
				SheetID:    target.ID,
				SheetSlug:  sheet.Slug,
			}
			bySource[source] = mapping
			order = append(order, source)
		}
		mapping.Groups = append(mapping.Groups, group)
	}

	for _, field := range sheet.VirtualFields {
		source, sourceKey, ok := c.resolveField(sheet.Slug, field)
		if !ok {
			continue
		}
		if mapping, exists := bySource[source]; exists {
			mapping.VirtualFields = append(mapping.VirtualFields, FieldPair{SourceKey: sourceKey, TargetKey: field.Key})
		}
	}

	mappings := make([]Mapping, 0, len(order))
	for _, source := range order {
		mappings = append(mappings, bySource[source])
	}
	return mappings
}

func (c *Compiler) resolveField(sheetSlug string, field domain.FieldBlueprint) (source, sourceKey string, ok bool) {
	if field.FederateConfig == nil {
		c.logger.Debugw("field is not federated", "sheet", sheetSlug, "field", field.Key)
		return "", "", false
	}
	source = field.FederateConfig.SourceSheetSlug
	sourceKey = field.FederateConfig.SourceFieldKey
	if source == "" || sourceKey == "" || !c.HasSourceSheet(source) {
		c.logger.Warnw("field has no resolvable source, skipping",
			"sheet", sheetSlug,
			"field", field.Key,
			"source", source,
		)
		return "", "", false
	}
	return source, sourceKey, true
}
