package durable

import (
	"fmt"

	"github.com/rpattn/sheetfed/internal/domain"
)

// Messenger is the message-adding surface of a record inside a hook.
type Messenger interface {
	RowID() string
	Metadata() map[string]any
	AddError(field, text string)
	AddWarning(field, text string)
	AddInfo(field, text string)
}

// HookRecord is a mutable view of a record passed to validation hooks. It
// starts from the stored record; transient messages added during the hook are
// visible through Record.
type HookRecord struct {
	record domain.Record
}

// NewHookRecord wraps a copy of record.
func NewHookRecord(record domain.Record) *HookRecord {
	clone := record.Clone()
	if clone.Values == nil {
		clone.Values = domain.Values{}
	}
	return &HookRecord{record: clone}
}

func (r *HookRecord) RowID() string {
	return r.record.ID
}

// Get returns the value of field.
func (r *HookRecord) Get(field string) any {
	return r.record.Values.Value(field)
}

// Set replaces the value of field, keeping its messages.
func (r *HookRecord) Set(field string, value any) {
	cell := r.record.Values[field]
	cell.Value = value
	r.record.Values[field] = cell
}

// Messages returns the messages currently attached to field.
func (r *HookRecord) Messages(field string) []domain.Message {
	return r.record.Values[field].Messages
}

func (r *HookRecord) Metadata() map[string]any {
	return r.record.Metadata
}

func (r *HookRecord) AddError(field, text string) {
	r.addMessage(field, domain.NewError(text))
}

func (r *HookRecord) AddWarning(field, text string) {
	r.addMessage(field, domain.NewWarning(text))
}

func (r *HookRecord) AddInfo(field, text string) {
	r.addMessage(field, domain.NewInfo(text))
}

func (r *HookRecord) addMessage(field string, message domain.Message) {
	cell := r.record.Values[field]
	cell.Messages = domain.AppendUniqueMessages(cell.Messages, message)
	r.record.Values[field] = cell
}

// Record returns the current state of the record.
func (r *HookRecord) Record() domain.Record {
	return r.record
}

// ReapplyDurableMessages re-adds every persisted durable message of every
// namespace to its record through the record's own message methods. Unknown
// message types are ignored. It returns the first index decode error, after
// processing the remaining records.
func ReapplyDurableMessages[T Messenger](records []T) error {
	var firstErr error
	for _, record := range records {
		idx, err := ReadIndex(record.Metadata())
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("record %s: %w", record.RowID(), err)
			}
			continue
		}
		for key, messages := range idx {
			_, field, ok := DecodeKey(key)
			if !ok {
				continue
			}
			for _, message := range messages {
				switch message.Type {
				case domain.MessageError:
					record.AddError(field, message.Text)
				case domain.MessageWarning:
					record.AddWarning(field, message.Text)
				case domain.MessageInfo:
					record.AddInfo(field, message.Text)
				}
			}
		}
	}
	return firstErr
}
