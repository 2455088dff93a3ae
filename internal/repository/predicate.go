package repository

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/cloo-solutions/skilldex/internal/domain"
)

var predicateColumns = map[domain.Field]string{
	domain.FieldID:       "id",
	domain.FieldName:     "name",
	domain.FieldCategory: "category",
}

// queryArgs collects positional parameters while a statement is assembled.
type queryArgs []any

func (a *queryArgs) add(v any) string {
	*a = append(*a, v)
	return fmt.Sprintf("$%d", len(*a))
}

// predicateSQL renders p as a WHERE fragment. Values are always bound, never inlined.
func predicateSQL(p domain.Predicate, args *queryArgs) (string, error) {
	switch p.Kind {
	case domain.PredicateAll:
		return "TRUE", nil
	case domain.PredicateAnyOf:
		col, ok := predicateColumns[p.Field]
		if !ok {
			return "", domain.ErrUnsupportedField
		}
		if len(p.Values) == 0 {
			return "FALSE", nil
		}
		return col + " = ANY(" + args.add(p.Values) + ")", nil
	default:
		return "", domain.ErrUnsupportedField
	}
}

// buildTSQuery turns free text into an OR of prefix terms for to_tsquery('simple', ...).
// Only letters and digits survive, so the result never contains tsquery operators.
func buildTSQuery(query string) string {
	tokens := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	seen := make(map[string]struct{}, len(tokens))
	terms := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		terms = append(terms, tok+":*")
	}
	return strings.Join(terms, " | ")
}
