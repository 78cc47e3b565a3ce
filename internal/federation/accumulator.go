package federation

import (
	"go.uber.org/zap"

	"github.com/rpattn/sheetfed/internal/domain"
	"github.com/rpattn/sheetfed/internal/logging"
)

// Accumulator buffers processed records per target sheet for one run.
type Accumulator struct {
	buffers map[string][]domain.Values
	logger  *zap.SugaredLogger
}

// NewAccumulator creates an empty accumulator logging through logger.
func NewAccumulator(logger *zap.SugaredLogger) *Accumulator {
	return &Accumulator{
		buffers: make(map[string][]domain.Values),
		logger:  logging.OrNop(logger),
	}
}

// Add runs the records of one source sheet through every mapping the plan
// registers for it. It returns how many target records were buffered.
func (a *Accumulator) Add(plan *Plan, sourceSlug string, records []domain.Record) int {
	if len(records) == 0 {
		return 0
	}
	mappings := plan.Mappings(sourceSlug)
	if len(mappings) == 0 {
		return 0
	}

	added := 0
	for _, mapping := range mappings {
		sheetID := mapping.TargetSheetID()
		for _, record := range records {
			if record.Values == nil {
				a.logger.Warnw("record has no values, skipping", "source", sourceSlug, "record", record.ID)
				continue
			}
			out := ProcessRecord(record.Values, sourceSlug, mapping, a.logger)
			a.buffers[sheetID] = append(a.buffers[sheetID], out...)
			added += len(out)
		}
	}
	return added
}

// Buffered returns the raw buffered records of a target sheet.
func (a *Accumulator) Buffered(sheetID string) []domain.Values {
	return a.buffers[sheetID]
}

// Finalize dedupes, filters and strips virtual fields for every sheet of the
// plan. Every planned sheet gets an entry, empty when nothing was buffered.
func (a *Accumulator) Finalize(plan *Plan) map[string][]domain.Values {
	out := make(map[string][]domain.Values, len(plan.Sheets()))
	for _, sheet := range plan.Sheets() {
		records := a.buffers[sheet.SheetID]
		if len(records) == 0 {
			out[sheet.SheetID] = []domain.Values{}
			continue
		}

		records = MergeRecords(records, sheet.Dedupe)
		records = FilterRecords(records, sheet.Filter)
		out[sheet.SheetID] = stripVirtualFields(records, sheet.VirtualKeys)

		a.logger.Debugw("finalized target sheet",
			"sheet", sheet.SheetSlug,
			"buffered", len(a.buffers[sheet.SheetID]),
			"final", len(out[sheet.SheetID]),
		)
	}
	return out
}

// Reset drops every buffered record.
func (a *Accumulator) Reset() {
	a.buffers = make(map[string][]domain.Values)
}

func stripVirtualFields(records []domain.Values, keys []string) []domain.Values {
	if len(keys) == 0 {
		return records
	}
	out := make([]domain.Values, 0, len(records))
	for _, record := range records {
		stripped := make(domain.Values, len(record))
		for field, cell := range record {
			stripped[field] = cell
		}
		for _, key := range keys {
			delete(stripped, key)
		}
		out = append(out, stripped)
	}
	return out
}
