package federation

import (
	"go.uber.org/zap"

	"github.com/rpattn/sheetfed/internal/domain"
)

// Manager is the stateful facade over Compiler, Plan and Accumulator used by
// a single federation run. It is not safe for concurrent use.
type Manager struct {
	compiler *Compiler
	plan     *Plan
	acc      *Accumulator
}

// NewManager validates the blueprint. A malformed blueprint is rejected here,
// before any job work starts.
func NewManager(bp domain.Blueprint, logger *zap.SugaredLogger) (*Manager, error) {
	compiler, err := NewCompiler(bp, logger)
	if err != nil {
		return nil, err
	}
	return compiler.NewManager(), nil
}

// NewManager returns a fresh manager over an already validated blueprint.
func (c *Compiler) NewManager() *Manager {
	return &Manager{
		compiler: c,
		plan:     NewPlan(),
		acc:      NewAccumulator(c.logger),
	}
}

// Blueprint returns the blueprint the manager was built from.
func (m *Manager) Blueprint() domain.Blueprint {
	return m.compiler.Blueprint()
}

// HasSourceSheet reports whether slug is a recognized source sheet.
func (m *Manager) HasSourceSheet(slug string) bool {
	return m.compiler.HasSourceSheet(slug)
}

// CreateMappings registers a target sheet blueprint against its runtime sheet.
func (m *Manager) CreateMappings(sheet domain.SheetBlueprint, target domain.Sheet) {
	m.plan = m.compiler.Extend(m.plan, sheet, target)
}

// AddRecords processes the records of one source sheet. Unknown sources and
// empty input are ignored.
func (m *Manager) AddRecords(sourceSlug string, records []domain.Record) {
	if len(records) == 0 || !m.HasSourceSheet(sourceSlug) {
		return
	}
	m.acc.Add(m.plan, sourceSlug, records)
}

// GetRecords finalizes the buffered records, keyed by target sheet id.
func (m *Manager) GetRecords() map[string][]domain.Values {
	return m.acc.Finalize(m.plan)
}

// Plan returns the current compiled plan.
func (m *Manager) Plan() *Plan {
	return m.plan
}

// ClearMappings resets mappings and buffered records.
func (m *Manager) ClearMappings() {
	m.plan = NewPlan()
	m.acc.Reset()
}

// ClearRecords drops buffered records and keeps the mappings.
func (m *Manager) ClearRecords() {
	m.acc.Reset()
}
