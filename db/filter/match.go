package filter

import (
	"regexp"

	"cloud-pricing/db"
	"cloud-pricing/internal/errors"
)

// MatchPrices applies a flat filter to an already-fetched price collection,
// mirroring the backend dialects' semantics: exact match, empty-or-absent
// match for empty values, and slash-delimited regex with the i flag.
func MatchPrices(prices []db.Price, f db.Filter) ([]db.Price, error) {
	conds, err := compile(f)
	if err != nil {
		return nil, err
	}
	matchers := make([]priceMatcher, 0, len(conds))
	for _, c := range conds {
		m, err := newPriceMatcher(c)
		if err != nil {
			return nil, err
		}
		matchers = append(matchers, m)
	}

	out := make([]db.Price, 0, len(prices))
	for _, p := range prices {
		ok := true
		for _, m := range matchers {
			if !m.matches(&p) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, p)
		}
	}
	return out, nil
}

type priceMatcher struct {
	cond condition
	re   *regexp.Regexp
}

func newPriceMatcher(c condition) (priceMatcher, error) {
	m := priceMatcher{cond: c}
	if c.op == opRegex {
		pattern := c.regex.Pattern
		if c.regex.CaseInsensitive() {
			pattern = "(?i)" + pattern
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return priceMatcher{}, errors.Wrapf(errors.TypeValidation, err,
				"invalid regex pattern %q", c.regex.Pattern)
		}
		m.re = re
	}
	return m, nil
}

func (m priceMatcher) matches(p *db.Price) bool {
	v := priceField(p, m.cond.field)
	switch m.cond.op {
	case opRegex:
		return m.re.MatchString(v)
	case opEmpty:
		return v == ""
	default:
		return v == m.cond.value
	}
}

// priceField resolves a filterable price field by its wire name. Unknown
// fields read as empty, matching how the backends treat absent fields.
func priceField(p *db.Price, field string) string {
	switch field {
	case "priceHash":
		return p.PriceHash
	case "purchaseOption":
		return p.PurchaseOption
	case "unit":
		return p.Unit
	case "USD":
		return p.USD
	case "CNY":
		return p.CNY
	case "effectiveDateStart":
		return p.EffectiveDateStart
	case "effectiveDateEnd":
		return p.EffectiveDateEnd
	case "startUsageAmount":
		return p.StartUsageAmount
	case "endUsageAmount":
		return p.EndUsageAmount
	case "description":
		return p.Description
	case "termLength":
		return p.TermLength
	case "termPurchaseOption":
		return p.TermPurchaseOption
	case "termOfferingClass":
		return p.TermOfferingClass
	default:
		return ""
	}
}
