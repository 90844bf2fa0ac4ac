package filter

import (
	"fmt"
	"strings"

	"github.com/lib/pq"

	"cloud-pricing/db"
)

// SQL compiles a product filter into a parameterized boolean expression for
// the relational backend, with placeholders numbered from argOffset+1.
// Every literal travels as a bind parameter; column and attribute names are
// never concatenated into the statement unquoted. An empty filter compiles
// to an empty clause.
func SQL(pf *db.ProductFilter, argOffset int) (clause string, args []interface{}, err error) {
	if pf == nil {
		return "", nil, nil
	}

	conds, err := compile(pf.Fields)
	if err != nil {
		return "", nil, err
	}

	var exprs []string
	next := func() int { return argOffset + len(args) + 1 }

	for _, c := range conds {
		col := pq.QuoteIdentifier(c.field)
		switch c.op {
		case opRegex:
			exprs = append(exprs, fmt.Sprintf("%s %s $%d", col, regexOperator(c.regex), next()))
			args = append(args, c.regex.Pattern)
		case opEmpty:
			exprs = append(exprs, fmt.Sprintf("(%s = '' OR %s IS NULL)", col, col))
		default:
			exprs = append(exprs, fmt.Sprintf("%s = $%d", col, next()))
			args = append(args, c.value)
		}
	}

	for _, af := range pf.AttributeFilters {
		c, err := compileAttribute(af)
		if err != nil {
			return "", nil, err
		}
		// The attribute key is itself a parameter, keeping open-ended
		// vendor keys out of the statement text.
		key := fmt.Sprintf("attributes ->> $%d", next())
		args = append(args, c.field)
		switch c.op {
		case opRegex:
			exprs = append(exprs, fmt.Sprintf("%s %s $%d", key, regexOperator(c.regex), next()))
			args = append(args, c.regex.Pattern)
		case opEmpty:
			exprs = append(exprs, fmt.Sprintf("(%s = '' OR %s IS NULL)", key, key))
		default:
			exprs = append(exprs, fmt.Sprintf("%s = $%d", key, next()))
			args = append(args, c.value)
		}
	}

	return strings.Join(exprs, " AND "), args, nil
}

// regexOperator picks the case-sensitive or case-insensitive regex match
// operator depending on the parsed flags.
func regexOperator(re Regex) string {
	if re.CaseInsensitive() {
		return "~*"
	}
	return "~"
}
