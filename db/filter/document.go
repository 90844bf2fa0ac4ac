package filter

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"cloud-pricing/db"
)

// Document compiles a product filter into the document-store dialect:
// a mapping of field to {operator: value} using $eq, $regex and $in.
// Attribute filters address the embedded attributes map by dotted path.
func Document(pf *db.ProductFilter) (bson.M, error) {
	out := bson.M{}
	if pf == nil {
		return out, nil
	}

	conds, err := compile(pf.Fields)
	if err != nil {
		return nil, err
	}
	for _, c := range conds {
		out[c.field] = documentValue(c)
	}

	for _, af := range pf.AttributeFilters {
		c, err := compileAttribute(af)
		if err != nil {
			return nil, err
		}
		out["attributes."+c.field] = documentValue(c)
	}
	return out, nil
}

// DocumentFields compiles a flat filter alone, used where no attribute
// filters apply (e.g. price filters).
func DocumentFields(f db.Filter) (bson.M, error) {
	conds, err := compile(f)
	if err != nil {
		return nil, err
	}
	out := bson.M{}
	for _, c := range conds {
		out[c.field] = documentValue(c)
	}
	return out, nil
}

func documentValue(c condition) bson.M {
	switch c.op {
	case opRegex:
		return bson.M{"$regex": primitive.Regex{Pattern: c.regex.Pattern, Options: c.regex.Flags}}
	case opEmpty:
		// Empty string or missing/null field both count as empty.
		return bson.M{"$in": bson.A{"", nil}}
	default:
		return bson.M{"$eq": c.value}
	}
}
