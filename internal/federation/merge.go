package federation

import (
	"strings"

	"github.com/rpattn/sheetfed/internal/domain"
)

// KeySeparator joins the components of a composite dedupe key.
const KeySeparator = "::"

// dedupeKey builds the grouping key of a record. ok is false when the record
// cannot be grouped because a key component is missing.
func dedupeKey(values domain.Values, on domain.DedupeKey) (string, bool) {
	if on.IsZero() {
		return "", false
	}

	if !on.Composite {
		value := values.Value(on.Fields[0])
		if !domain.Truthy(value) {
			return "", false
		}
		return domain.FormatValue(value), true
	}

	parts := make([]string, 0, len(on.Fields))
	for _, field := range on.Fields {
		if !values.Defined(field) {
			return "", false
		}
		part := domain.FormatValue(values.Value(field))
		if part == "" {
			return "", false
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, KeySeparator), true
}

// slot is either a dedupe group or a record that could not be grouped.
type slot struct {
	key    string
	solo   domain.Values
	isSolo bool
}

// MergeRecords collapses records sharing a dedupe key. Groups are emitted at
// the position of their first member; ungroupable records keep their position.
func MergeRecords(records []domain.Values, config *domain.DedupeConfig) []domain.Values {
	if config == nil || len(records) == 0 {
		return records
	}

	groups := make(map[string][]domain.Values)
	slots := make([]slot, 0, len(records))

	for _, record := range records {
		key, ok := dedupeKey(record, config.On)
		if !ok {
			slots = append(slots, slot{solo: record, isSolo: true})
			continue
		}
		if _, seen := groups[key]; !seen {
			slots = append(slots, slot{key: key})
		}
		groups[key] = append(groups[key], record)
	}

	out := make([]domain.Values, 0, len(records))
	for _, s := range slots {
		if s.isSolo {
			out = append(out, s.solo)
			continue
		}
		out = append(out, resolveGroup(groups[s.key], config)...)
	}
	return out
}

func resolveGroup(group []domain.Values, config *domain.DedupeConfig) []domain.Values {
	if len(group) == 1 {
		return group
	}

	baseIdx := 0
	if config.Keep == domain.KeepLast {
		baseIdx = len(group) - 1
	}

	switch config.Type {
	case domain.DedupeDelete:
		return []domain.Values{group[baseIdx]}
	case domain.DedupeMerge:
		merged := group[baseIdx].Clone()
		for idx, member := range group {
			if idx == baseIdx {
				continue
			}
			for field, cell := range member {
				if merged.Defined(field) {
					continue
				}
				merged[field] = cell.Clone()
			}
		}
		return []domain.Values{merged}
	default:
		return group
	}
}
