package domain

// Cell is a single field value together with the validation messages attached to it.
type Cell struct {
	Value    any       `json:"value"`
	Messages []Message `json:"messages,omitempty"`
}

// NewCell wraps a raw value in a cell without messages.
func NewCell(value any) Cell {
	return Cell{Value: value}
}

// Clone returns a copy of the cell that does not share its message slice.
func (c Cell) Clone() Cell {
	out := Cell{Value: c.Value}
	if len(c.Messages) > 0 {
		out.Messages = append([]Message(nil), c.Messages...)
	}
	return out
}

// HasValue reports whether the cell carries a non-null value.
func (c Cell) HasValue() bool {
	return c.Value != nil
}

// Values maps a field key to its cell.
type Values map[string]Cell

// Clone returns a shallow copy of the value map with cloned cells.
func (v Values) Clone() Values {
	if v == nil {
		return nil
	}
	out := make(Values, len(v))
	for key, cell := range v {
		out[key] = cell.Clone()
	}
	return out
}

// Defined reports whether the field resolves to a non-null value.
func (v Values) Defined(field string) bool {
	cell, ok := v[field]
	return ok && cell.Value != nil
}

// Value returns the unwrapped value for a field, or nil when absent.
func (v Values) Value(field string) any {
	cell, ok := v[field]
	if !ok {
		return nil
	}
	return cell.Value
}

// Record is a row stored on a sheet of the host platform.
type Record struct {
	ID       string         `json:"id"`
	Values   Values         `json:"values"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Clone returns a deep enough copy of the record to mutate values and metadata independently.
func (r Record) Clone() Record {
	return Record{
		ID:       r.ID,
		Values:   r.Values.Clone(),
		Metadata: CloneMetadata(r.Metadata),
	}
}

// RecordUpdate is a minimal patch for an existing record. Only the populated
// fields are written back; a nil Metadata leaves the stored metadata untouched.
type RecordUpdate struct {
	ID       string         `json:"id"`
	Values   Values         `json:"values,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// CloneMetadata copies the top level of a metadata bag.
func CloneMetadata(metadata map[string]any) map[string]any {
	if metadata == nil {
		return nil
	}
	out := make(map[string]any, len(metadata))
	for key, value := range metadata {
		out[key] = value
	}
	return out
}
