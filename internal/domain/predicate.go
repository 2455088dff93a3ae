package domain

// PredicateKind tags a Predicate variant.
type PredicateKind int

const (
	PredicateAll PredicateKind = iota
	PredicateAnyOf
)

// Field names a record attribute that predicates may restrict.
type Field string

const (
	FieldID       Field = "id"
	FieldName     Field = "name"
	FieldCategory Field = "category"
)

// Predicate is a prefilter over skill records: either All or AnyOf(field, values).
// Stores translate it with bound parameters only.
type Predicate struct {
	Kind   PredicateKind
	Field  Field
	Values []string
}

// All matches every record.
func All() Predicate {
	return Predicate{Kind: PredicateAll}
}

// AnyOf matches records whose field equals one of values.
func AnyOf(field Field, values ...string) Predicate {
	return Predicate{Kind: PredicateAnyOf, Field: field, Values: values}
}

// IsAll reports whether the predicate places no restriction.
func (p Predicate) IsAll() bool {
	return p.Kind == PredicateAll
}

// Matches evaluates the predicate against a record in memory.
func (p Predicate) Matches(r *SkillRecord) bool {
	if p.IsAll() {
		return true
	}
	if r == nil {
		return false
	}

	var v string
	switch p.Field {
	case FieldID:
		v = r.ID
	case FieldName:
		v = r.Name
	case FieldCategory:
		v = r.Category
	default:
		return false
	}

	for _, candidate := range p.Values {
		if candidate == v {
			return true
		}
	}
	return false
}
