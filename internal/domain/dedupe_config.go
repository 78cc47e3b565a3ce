package domain

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// DedupeType selects how duplicate records are resolved.
type DedupeType string

const (
	DedupeMerge  DedupeType = "merge"
	DedupeDelete DedupeType = "delete"
)

// DedupeKeep selects which duplicate is the base record.
type DedupeKeep string

const (
	KeepFirst DedupeKeep = "first"
	KeepLast  DedupeKeep = "last"
)

// DedupeConfig groups records sharing a key and collapses each group.
type DedupeConfig struct {
	On   DedupeKey  `yaml:"on" json:"on"`
	Type DedupeType `yaml:"type" json:"type"`
	Keep DedupeKeep `yaml:"keep" json:"keep"`
}

// DedupeKey is either a single field or an ordered composite of fields.
type DedupeKey struct {
	Fields    []string
	Composite bool
}

// SingleKey builds a key on one field.
func SingleKey(field string) DedupeKey {
	return DedupeKey{Fields: []string{field}}
}

// CompositeKey builds a key over several fields.
func CompositeKey(fields ...string) DedupeKey {
	return DedupeKey{Fields: append([]string(nil), fields...), Composite: true}
}

// IsZero reports whether no key field is configured.
func (k DedupeKey) IsZero() bool {
	return len(k.Fields) == 0
}

// UnmarshalYAML accepts either a scalar field name or a sequence of names.
func (k *DedupeKey) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		*k = SingleKey(value.Value)
		return nil
	case yaml.SequenceNode:
		var fields []string
		if err := value.Decode(&fields); err != nil {
			return err
		}
		*k = CompositeKey(fields...)
		return nil
	default:
		return fmt.Errorf("line %d: dedupe key must be a field name or a list of field names", value.Line)
	}
}

// MarshalYAML encodes the key in the shape it was declared in.
func (k DedupeKey) MarshalYAML() (any, error) {
	if k.Composite {
		return k.Fields, nil
	}
	if len(k.Fields) == 0 {
		return "", nil
	}
	return k.Fields[0], nil
}
