package durable

import "sync"

// Event is the scope of one host hook invocation. The host may call a record
// hook several times per event; Event remembers which rows already had their
// durable messages re-applied.
type Event struct {
	ID string

	mu        sync.Mutex
	reapplied map[string]struct{}
}

// NewEvent creates an event scope.
func NewEvent(id string) *Event {
	return &Event{ID: id, reapplied: make(map[string]struct{})}
}

// claim reports whether rowID has not been re-applied yet in this event and
// marks it as done. A nil event claims every row.
func (e *Event) claim(rowID string) bool {
	if e == nil {
		return true
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.reapplied[rowID]; ok {
		return false
	}
	e.reapplied[rowID] = struct{}{}
	return true
}

// RecordHook validates one record.
type RecordHook func(record *HookRecord, event *Event) error

// BulkRecordHook validates a batch of records.
type BulkRecordHook func(records []*HookRecord, event *Event) error

// WithDurableMessages runs hook and then re-applies persisted durable messages
// once per row and event. A nil event re-applies on every call.
func WithDurableMessages(hook RecordHook) RecordHook {
	return func(record *HookRecord, event *Event) error {
		if err := hook(record, event); err != nil {
			return err
		}
		if !event.claim(record.RowID()) {
			return nil
		}
		return ReapplyDurableMessages([]*HookRecord{record})
	}
}

// WithDurableMessagesBulk is WithDurableMessages for bulk hooks.
func WithDurableMessagesBulk(hook BulkRecordHook) BulkRecordHook {
	return func(records []*HookRecord, event *Event) error {
		if err := hook(records, event); err != nil {
			return err
		}
		pending := make([]*HookRecord, 0, len(records))
		for _, record := range records {
			if event.claim(record.RowID()) {
				pending = append(pending, record)
			}
		}
		return ReapplyDurableMessages(pending)
	}
}
