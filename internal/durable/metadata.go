package durable

import (
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"

	"github.com/rpattn/sheetfed/internal/domain"
)

// The durable message index lives in the record metadata bag under
// MetadataKey. Its keys are "<namespace>::<field>" and its values are the
// message lists the namespace persisted for that field. The host platform owns
// the bag, so this layout is a wire contract.
const (
	MetadataKey  = "durableMessages"
	KeyDelimiter = "::"
)

// Index maps encoded keys to persisted messages.
type Index map[string][]domain.Message

// EncodeKey joins a namespace and a field key.
func EncodeKey(namespace, field string) string {
	return namespace + KeyDelimiter + field
}

// DecodeKey splits an encoded key at the first delimiter.
func DecodeKey(key string) (namespace, field string, ok bool) {
	namespace, field, ok = strings.Cut(key, KeyDelimiter)
	if !ok || namespace == "" || field == "" {
		return "", "", false
	}
	return namespace, field, true
}

// ReadIndex decodes the durable message index of a metadata bag. A missing
// index yields an empty one.
func ReadIndex(metadata map[string]any) (Index, error) {
	idx := Index{}
	raw, ok := metadata[MetadataKey]
	if !ok || raw == nil {
		return idx, nil
	}

	if err := mapstructure.Decode(raw, &idx); err != nil {
		return Index{}, fmt.Errorf("decode %s metadata: %w", MetadataKey, err)
	}
	return idx, nil
}

// WriteIndex returns a copy of metadata with idx stored. An empty index removes
// the metadata key.
func WriteIndex(metadata map[string]any, idx Index) map[string]any {
	out := domain.CloneMetadata(metadata)
	if out == nil {
		out = map[string]any{}
	}
	if len(idx) == 0 {
		delete(out, MetadataKey)
		return out
	}

	encoded := make(map[string]any, len(idx))
	for key, messages := range idx {
		list := make([]any, 0, len(messages))
		for _, message := range messages {
			list = append(list, map[string]any{"type": string(message.Type), "message": message.Text})
		}
		encoded[key] = list
	}
	out[MetadataKey] = encoded
	return out
}

// Fields lists the fields the namespace holds messages for.
func (idx Index) Fields(namespace string) []string {
	var fields []string
	for key := range idx {
		ns, field, ok := DecodeKey(key)
		if ok && ns == namespace {
			fields = append(fields, field)
		}
	}
	return fields
}

// OtherMessages collects the messages every namespace except namespace holds
// for field.
func (idx Index) OtherMessages(namespace, field string) []domain.Message {
	var out []domain.Message
	for key, messages := range idx {
		ns, f, ok := DecodeKey(key)
		if !ok || ns == namespace || f != field {
			continue
		}
		out = domain.AppendUniqueMessages(out, messages...)
	}
	return out
}

// Clone copies the index and its message lists.
func (idx Index) Clone() Index {
	out := make(Index, len(idx))
	for key, messages := range idx {
		out[key] = append([]domain.Message(nil), messages...)
	}
	return out
}

// Equal compares two indexes, ignoring message order.
func (idx Index) Equal(other Index) bool {
	if len(idx) != len(other) {
		return false
	}
	for key, messages := range idx {
		theirs, ok := other[key]
		if !ok || !domain.SameMessageSet(messages, theirs) {
			return false
		}
	}
	return true
}
