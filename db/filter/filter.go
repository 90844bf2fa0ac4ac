// Package filter compiles the vendor-agnostic query filter shape into
// backend-specific predicates: document-store operators, parameterized SQL,
// or an in-memory price matcher. All three dialects share one compilation
// step so their matching semantics cannot drift apart.
package filter

import (
	"sort"
	"strings"

	"cloud-pricing/db"
	"cloud-pricing/internal/errors"
)

type op int

const (
	opEq op = iota
	opEmpty
	opRegex
)

// Regex is a parsed slash-delimited regex literal, e.g. "/^Hours$/i".
type Regex struct {
	Pattern string
	Flags   string
}

// CaseInsensitive reports whether the i flag is set.
func (r Regex) CaseInsensitive() bool {
	return strings.Contains(r.Flags, "i")
}

// ParseRegex parses a slash-delimited regex literal with trailing flags.
// A literal without both delimiters or with an empty pattern is a
// validation error; it must be surfaced to the caller, never ignored.
func ParseRegex(literal string) (Regex, error) {
	if !strings.HasPrefix(literal, "/") {
		return Regex{}, errors.Newf(errors.TypeValidation, "regex literal %q must start with '/'", literal)
	}
	end := strings.LastIndex(literal, "/")
	if end == 0 {
		return Regex{}, errors.Newf(errors.TypeValidation, "regex literal %q is missing the closing '/'", literal)
	}
	pattern := literal[1:end]
	if pattern == "" {
		return Regex{}, errors.Newf(errors.TypeValidation, "regex literal %q has an empty pattern", literal)
	}
	return Regex{Pattern: pattern, Flags: literal[end+1:]}, nil
}

// condition is one compiled predicate against a single field.
type condition struct {
	field string
	op    op
	value string
	regex Regex
}

// splitKey separates the field name from an operator suffix. Schema fields
// are camelCase, so the first underscore always introduces the suffix.
// Unknown suffixes degrade to exact match on the base field.
func splitKey(key string) (field, suffix string) {
	if i := strings.Index(key, "_"); i >= 0 {
		return key[:i], key[i+1:]
	}
	return key, ""
}

func compileOne(key, value string) (condition, error) {
	field, suffix := splitKey(key)
	if suffix == "regex" {
		re, err := ParseRegex(value)
		if err != nil {
			return condition{}, err
		}
		return condition{field: field, op: opRegex, regex: re}, nil
	}
	if value == "" {
		// Empty exact match means "empty or absent": records where the
		// field is the empty string and records without the field both
		// qualify.
		return condition{field: field, op: opEmpty}, nil
	}
	return condition{field: field, op: opEq, value: value}, nil
}

// compile turns a flat filter into compiled conditions, sorted by field for
// deterministic output across runs.
func compile(f db.Filter) ([]condition, error) {
	if len(f) == 0 {
		return nil, nil
	}
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	conds := make([]condition, 0, len(keys))
	for _, k := range keys {
		c, err := compileOne(k, f[k])
		if err != nil {
			return nil, err
		}
		conds = append(conds, c)
	}
	return conds, nil
}

// compileAttribute scopes the three filter rules to one attributes key.
func compileAttribute(af db.AttributeFilter) (condition, error) {
	switch {
	case af.ValueRegex != nil:
		re, err := ParseRegex(*af.ValueRegex)
		if err != nil {
			return condition{}, err
		}
		return condition{field: af.Key, op: opRegex, regex: re}, nil
	case af.Value != nil:
		if *af.Value == "" {
			return condition{field: af.Key, op: opEmpty}, nil
		}
		return condition{field: af.Key, op: opEq, value: *af.Value}, nil
	default:
		return condition{}, errors.Newf(errors.TypeValidation,
			"attribute filter for key %q needs value or value_regex", af.Key)
	}
}
