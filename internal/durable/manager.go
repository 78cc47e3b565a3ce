package durable

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/rpattn/sheetfed/internal/domain"
	"github.com/rpattn/sheetfed/internal/logging"
)

// Manager stages message and value changes against snapshots of the records
// it touches and reports only what actually changed. Messages added through a
// Manager are also written to the record metadata under the manager's
// namespace so they can be re-applied after the host drops transient messages.
//
// A Manager is meant for a single hook pass and is not safe for concurrent use.
type Manager struct {
	key    string
	logger *zap.SugaredLogger

	order           []string
	originals       map[string]domain.Record
	messageUpdates  map[string]map[string][]domain.Message
	messageRemovals map[string]map[string]struct{}
	valueUpdates    map[string]map[string]any
}

// NewManager creates a manager writing under namespace key.
func NewManager(key string, logger *zap.SugaredLogger) (*Manager, error) {
	if key == "" {
		return nil, fmt.Errorf("durable messages key is required")
	}
	if strings.Contains(key, KeyDelimiter) {
		return nil, fmt.Errorf("durable messages key %q must not contain %q", key, KeyDelimiter)
	}
	return &Manager{
		key:             key,
		logger:          logging.OrNop(logger).Named(logging.ComponentDurable),
		originals:       make(map[string]domain.Record),
		messageUpdates:  make(map[string]map[string][]domain.Message),
		messageRemovals: make(map[string]map[string]struct{}),
		valueUpdates:    make(map[string]map[string]any),
	}, nil
}

// Key returns the manager namespace.
func (m *Manager) Key() string {
	return m.key
}

func (m *Manager) snapshot(record domain.Record) {
	if _, ok := m.originals[record.ID]; ok {
		return
	}
	m.originals[record.ID] = record.Clone()
	m.order = append(m.order, record.ID)
}

// AddDurableMessage stages message on field. Adding an equal message twice is
// a no-op.
func (m *Manager) AddDurableMessage(record domain.Record, field string, message domain.Message) {
	m.snapshot(record)

	fields, ok := m.messageUpdates[record.ID]
	if !ok {
		fields = make(map[string][]domain.Message)
		m.messageUpdates[record.ID] = fields
	}
	fields[field] = domain.AppendUniqueMessages(fields[field], message)
}

// AddDurableMessageToFields stages message on every listed field.
func (m *Manager) AddDurableMessageToFields(record domain.Record, fields []string, message domain.Message) {
	for _, field := range fields {
		m.AddDurableMessage(record, field, message)
	}
}

// AddDurableMessageToAllFields stages message on every field the record has.
func (m *Manager) AddDurableMessageToAllFields(record domain.Record, message domain.Message) {
	for field := range record.Values {
		m.AddDurableMessage(record, field, message)
	}
}

// ClearDurableMessagesForRecord marks every field holding persisted messages of
// this namespace for removal.
func (m *Manager) ClearDurableMessagesForRecord(record domain.Record) {
	m.snapshot(record)

	idx, err := ReadIndex(m.originals[record.ID].Metadata)
	if err != nil {
		m.logger.Warnw("unreadable durable message index", "record", record.ID, "error", err)
		return
	}

	fields := idx.Fields(m.key)
	if len(fields) == 0 {
		return
	}
	removals, ok := m.messageRemovals[record.ID]
	if !ok {
		removals = make(map[string]struct{}, len(fields))
		m.messageRemovals[record.ID] = removals
	}
	for _, field := range fields {
		removals[field] = struct{}{}
	}
}

// ClearDurableMessagesForRecords clears every record in records.
func (m *Manager) ClearDurableMessagesForRecords(records []domain.Record) {
	for _, record := range records {
		m.ClearDurableMessagesForRecord(record)
	}
}

// UpdateFieldValue stages a new value for field.
func (m *Manager) UpdateFieldValue(record domain.Record, field string, value any) {
	m.snapshot(record)

	fields, ok := m.valueUpdates[record.ID]
	if !ok {
		fields = make(map[string]any)
		m.valueUpdates[record.ID] = fields
	}
	fields[field] = value
}

// GetModifiedRecords computes the minimal patch for every touched record.
// Records whose computed state equals their snapshot are left out, and a patch
// only carries the fields and metadata that differ.
func (m *Manager) GetModifiedRecords() []domain.RecordUpdate {
	var updates []domain.RecordUpdate
	for _, id := range m.order {
		if update, changed := m.diff(id); changed {
			updates = append(updates, update)
		}
	}
	return updates
}

func (m *Manager) touchedFields(id string) []string {
	seen := make(map[string]struct{})
	var fields []string
	add := func(field string) {
		if _, ok := seen[field]; ok {
			return
		}
		seen[field] = struct{}{}
		fields = append(fields, field)
	}
	for field := range m.messageRemovals[id] {
		add(field)
	}
	for field := range m.messageUpdates[id] {
		add(field)
	}
	for field := range m.valueUpdates[id] {
		add(field)
	}
	return fields
}

func (m *Manager) diff(id string) (domain.RecordUpdate, bool) {
	original := m.originals[id]
	update := domain.RecordUpdate{ID: id}

	idx, err := ReadIndex(original.Metadata)
	if err != nil {
		m.logger.Warnw("unreadable durable message index, rebuilding", "record", id, "error", err)
		idx = Index{}
	}
	nextIdx := idx.Clone()

	for _, field := range m.touchedFields(id) {
		originalCell := original.Values[field]
		encoded := EncodeKey(m.key, field)

		messages := append([]domain.Message(nil), originalCell.Messages...)
		if _, removed := m.messageRemovals[id][field]; removed {
			// Messages another namespace also persisted for this field stay on the cell.
			owned := domain.RemoveMessages(idx[encoded], nextIdx.OtherMessages(m.key, field))
			messages = domain.RemoveMessages(messages, owned)
			delete(nextIdx, encoded)
		}
		if added := m.messageUpdates[id][field]; len(added) > 0 {
			messages = domain.AppendUniqueMessages(messages, added...)
			nextIdx[encoded] = domain.AppendUniqueMessages(nextIdx[encoded], added...)
		}

		value := originalCell.Value
		if staged, ok := m.valueUpdates[id][field]; ok {
			value = staged
		}

		if domain.SameMessageSet(messages, originalCell.Messages) && domain.ValuesEqual(value, originalCell.Value) {
			continue
		}
		if update.Values == nil {
			update.Values = make(domain.Values)
		}
		update.Values[field] = domain.Cell{Value: value, Messages: messages}
	}

	if !nextIdx.Equal(idx) {
		update.Metadata = WriteIndex(original.Metadata, nextIdx)
	}

	return update, len(update.Values) > 0 || update.Metadata != nil
}

// Reset drops every snapshot and staged change.
func (m *Manager) Reset() {
	m.order = nil
	m.originals = make(map[string]domain.Record)
	m.messageUpdates = make(map[string]map[string][]domain.Message)
	m.messageRemovals = make(map[string]map[string]struct{})
	m.valueUpdates = make(map[string]map[string]any)
}
