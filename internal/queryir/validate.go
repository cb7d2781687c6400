package queryir

import (
	"fmt"
)

// ValidationResult reports the constructs of a query that have no direct
// SQL form. They are rewritten by the expression normalizer before
// translation, so such queries still run.
type ValidationResult struct {
	// IsDirect is true when every construct translates without rewriting.
	IsDirect bool

	// Warnings lists the constructs that need rewriting.
	// Empty when IsDirect is true.
	Warnings []string
}

// Validate inspects q for constructs the normalizer must rewrite: safe
// casts and string comparisons with a comparison mode. It also reports
// structural problems such as a sum without a field.
//
// Validate is a pure function with no side effects.
func Validate(q Query) ValidationResult {
	v := &validator{
		warnings: []string{},
	}
	v.validateQuery(q)

	return ValidationResult{
		IsDirect: len(v.warnings) == 0,
		Warnings: v.warnings,
	}
}

// validator accumulates warnings during traversal.
type validator struct {
	warnings []string
}

func (v *validator) addWarning(format string, args ...any) {
	v.warnings = append(v.warnings, fmt.Sprintf(format, args...))
}

func (v *validator) validateQuery(q Query) {
	switch query := q.(type) {
	case nil:
		v.addWarning("nil query")
	case Select:
		v.validateSelect(query)
	case Aggregate:
		v.validateSelect(query.Source)
		if query.Op == AggSum && query.Field == "" {
			v.addWarning("sum requires a field")
		}
	default:
		v.addWarning("unknown query type: %T", q)
	}
}

func (v *validator) validateSelect(sel Select) {
	if sel.From == "" {
		v.addWarning("select has no entity set")
	}
	if sel.Skip < 0 {
		v.addWarning("negative skip %d", sel.Skip)
	}
	if sel.Take != nil && *sel.Take < 0 {
		v.addWarning("negative take %d", *sel.Take)
	}
	v.validatePredicate(sel.Filter)
}

func (v *validator) validatePredicate(p Predicate) {
	switch pred := p.(type) {
	case nil, Compare, TypeIs:
	case CastIsNull:
		v.addWarning("safe cast to %s is rewritten to a type test", pred.Entity)
	case StringCompare:
		if pred.Mode != nil {
			v.addWarning("comparison mode %d on %s is dropped", *pred.Mode, pred.Field)
		}
	case And:
		for _, sub := range pred.Predicates {
			v.validatePredicate(sub)
		}
	case Or:
		for _, sub := range pred.Predicates {
			v.validatePredicate(sub)
		}
	case Not:
		v.validatePredicate(pred.Predicate)
	default:
		v.addWarning("unknown predicate type: %T", p)
	}
}
