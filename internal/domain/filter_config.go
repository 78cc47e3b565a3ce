package domain

// FilterConfig declares which records survive on a target sheet. All present
// conditions must hold.
//
// AnyFieldsExcluded requires every listed field to be absent. The name reads
// like "at least one absent" but existing blueprints depend on the stricter
// behavior, so it is kept.
type FilterConfig struct {
	AllFieldsRequired   []string            `yaml:"all_fields_required,omitempty" json:"all_fields_required,omitempty"`
	AnyFieldsRequired   []string            `yaml:"any_fields_required,omitempty" json:"any_fields_required,omitempty"`
	AnyFieldsExcluded   []string            `yaml:"any_fields_excluded,omitempty" json:"any_fields_excluded,omitempty"`
	FieldValuesRequired map[string][]string `yaml:"field_values_required,omitempty" json:"field_values_required,omitempty"`
	FieldValuesExcluded map[string][]string `yaml:"field_values_excluded,omitempty" json:"field_values_excluded,omitempty"`
}

// IsEmpty reports whether no filter key carries any entry.
func (f FilterConfig) IsEmpty() bool {
	return len(f.AllFieldsRequired) == 0 &&
		len(f.AnyFieldsRequired) == 0 &&
		len(f.AnyFieldsExcluded) == 0 &&
		len(f.FieldValuesRequired) == 0 &&
		len(f.FieldValuesExcluded) == 0
}
