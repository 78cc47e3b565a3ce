package domain

// MessageType classifies a validation message.
type MessageType string

const (
	MessageError   MessageType = "error"
	MessageWarning MessageType = "warning"
	MessageInfo    MessageType = "info"
)

// Valid reports whether the type is one the host platform understands.
func (t MessageType) Valid() bool {
	switch t {
	case MessageError, MessageWarning, MessageInfo:
		return true
	default:
		return false
	}
}

// Message is a validation message attached to a field. Two messages are the
// same message when both type and text match.
type Message struct {
	Type MessageType `json:"type" mapstructure:"type"`
	Text string      `json:"message" mapstructure:"message"`
}

// NewError builds an error message.
func NewError(text string) Message {
	return Message{Type: MessageError, Text: text}
}

// NewWarning builds a warning message.
func NewWarning(text string) Message {
	return Message{Type: MessageWarning, Text: text}
}

// NewInfo builds an info message.
func NewInfo(text string) Message {
	return Message{Type: MessageInfo, Text: text}
}

// Equal compares messages by type and text.
func (m Message) Equal(other Message) bool {
	return m.Type == other.Type && m.Text == other.Text
}

// ContainsMessage reports whether list holds a message equal to target.
func ContainsMessage(list []Message, target Message) bool {
	for _, message := range list {
		if message.Equal(target) {
			return true
		}
	}
	return false
}

// AppendUniqueMessages appends each message that is not already present.
func AppendUniqueMessages(list []Message, messages ...Message) []Message {
	for _, message := range messages {
		if !ContainsMessage(list, message) {
			list = append(list, message)
		}
	}
	return list
}

// RemoveMessages returns list without any message equal to one in remove.
func RemoveMessages(list []Message, remove []Message) []Message {
	if len(remove) == 0 || len(list) == 0 {
		return list
	}
	kept := make([]Message, 0, len(list))
	for _, message := range list {
		if ContainsMessage(remove, message) {
			continue
		}
		kept = append(kept, message)
	}
	return kept
}

// SameMessageSet compares two message lists ignoring order and duplicates.
func SameMessageSet(a, b []Message) bool {
	for _, message := range a {
		if !ContainsMessage(b, message) {
			return false
		}
	}
	for _, message := range b {
		if !ContainsMessage(a, message) {
			return false
		}
	}
	return true
}
