// Package db defines the pricing catalog data model, content-hash identity
// and the storage capability interface shared by the document and relational
// backends.
package db

import (
	"bytes"
	"encoding/json"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
)

// Attribute is a single key/value pair from a product's open attribute set.
// Products are exposed to the query layer with attributes as an ordered list,
// never as a raw map.
type Attribute struct {
	Key   string `json:"key" bson:"key"`
	Value string `json:"value" bson:"value"`
}

// Attributes is an ordered, open-ended set of vendor-specific attributes.
// It round-trips as a JSON/BSON object so backends can index dotted paths
// such as attributes.instanceType, while preserving insertion order on the
// Go side.
type Attributes []Attribute

// Get returns the value for key and whether the key is present.
func (a Attributes) Get(key string) (string, bool) {
	for _, attr := range a {
		if attr.Key == key {
			return attr.Value, true
		}
	}
	return "", false
}

// Set updates the value for key, appending the pair if the key is new.
func (a *Attributes) Set(key, value string) {
	for i, attr := range *a {
		if attr.Key == key {
			(*a)[i].Value = value
			return
		}
	}
	*a = append(*a, Attribute{Key: key, Value: value})
}

// MarshalJSON encodes the attributes as an object, keys in insertion order.
func (a Attributes) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, attr := range a {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(attr.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(attr.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object, preserving the key order of the document.
func (a *Attributes) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("attributes: expected object, got %v", tok)
	}
	out := Attributes{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("attributes: non-string key %v", keyTok)
		}
		valTok, err := dec.Token()
		if err != nil {
			return err
		}
		val, ok := valTok.(string)
		if !ok {
			// Tolerate scalar non-strings from older data files.
			val = fmt.Sprintf("%v", valTok)
		}
		out = append(out, Attribute{Key: key, Value: val})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*a = out
	return nil
}

// MarshalBSON encodes the attributes as an embedded document so the document
// backend can address attributes.<key> paths in filters and indexes.
func (a Attributes) MarshalBSON() ([]byte, error) {
	doc := make(bson.D, 0, len(a))
	for _, attr := range a {
		doc = append(doc, bson.E{Key: attr.Key, Value: attr.Value})
	}
	return bson.Marshal(doc)
}

// UnmarshalBSON decodes an embedded document, preserving its key order.
func (a *Attributes) UnmarshalBSON(data []byte) error {
	var doc bson.D
	if err := bson.Unmarshal(data, &doc); err != nil {
		return err
	}
	out := make(Attributes, 0, len(doc))
	for _, e := range doc {
		val, ok := e.Value.(string)
		if !ok {
			val = fmt.Sprintf("%v", e.Value)
		}
		out = append(out, Attribute{Key: e.Key, Value: val})
	}
	*a = out
	return nil
}

// Price is one pricing dimension attached to a Product. Monetary amounts are
// string-encoded decimals; USD is the canonical amount and the non-USD fields
// carry vendor-native amounts used for currency fallback.
type Price struct {
	PriceHash          string `json:"priceHash" bson:"priceHash"`
	PurchaseOption     string `json:"purchaseOption" bson:"purchaseOption"`
	Unit               string `json:"unit" bson:"unit"`
	USD                string `json:"USD" bson:"USD"`
	CNY                string `json:"CNY,omitempty" bson:"CNY,omitempty"`
	EffectiveDateStart string `json:"effectiveDateStart,omitempty" bson:"effectiveDateStart,omitempty"`
	EffectiveDateEnd   string `json:"effectiveDateEnd,omitempty" bson:"effectiveDateEnd,omitempty"`
	StartUsageAmount   string `json:"startUsageAmount,omitempty" bson:"startUsageAmount,omitempty"`
	EndUsageAmount     string `json:"endUsageAmount,omitempty" bson:"endUsageAmount,omitempty"`
	Description        string `json:"description,omitempty" bson:"description,omitempty"`
	TermLength         string `json:"termLength,omitempty" bson:"termLength,omitempty"`
	TermPurchaseOption string `json:"termPurchaseOption,omitempty" bson:"termPurchaseOption,omitempty"`
	TermOfferingClass  string `json:"termOfferingClass,omitempty" bson:"termOfferingClass,omitempty"`
}

// Product is a vendor SKU's static identity, open attribute set and price
// collection. ProductHash is the primary identity and merge key; prices are
// unique per PriceHash within one product.
type Product struct {
	ProductHash   string     `json:"productHash" bson:"productHash"`
	SKU           string     `json:"sku" bson:"sku"`
	VendorName    string     `json:"vendorName" bson:"vendorName"`
	Region        *string    `json:"region" bson:"region"`
	Service       string     `json:"service" bson:"service"`
	ProductFamily string     `json:"productFamily" bson:"productFamily"`
	Attributes    Attributes `json:"attributes" bson:"attributes"`
	Prices        []Price    `json:"prices" bson:"prices"`
}

// RegionValue returns the region or the empty string when unset.
func (p *Product) RegionValue() string {
	if p.Region == nil {
		return ""
	}
	return *p.Region
}

// FindPrice returns the first price with the given purchase option, or nil.
func (p *Product) FindPrice(purchaseOption string) *Price {
	for i := range p.Prices {
		if p.Prices[i].PurchaseOption == purchaseOption {
			return &p.Prices[i]
		}
	}
	return nil
}

// Filter is a flat field filter from the query layer. Keys address schema
// fields directly; a key with a _regex suffix carries a slash-delimited
// regex literal instead of an exact value.
type Filter map[string]string

// AttributeFilter addresses one key of the open attributes map. Exactly one
// of Value and ValueRegex is expected to be set.
type AttributeFilter struct {
	Key        string  `json:"key"`
	Value      *string `json:"value,omitempty"`
	ValueRegex *string `json:"value_regex,omitempty"`
}

// ProductFilter is the vendor-agnostic query shape accepted by the stores.
type ProductFilter struct {
	Fields           Filter            `json:"fields"`
	AttributeFilters []AttributeFilter `json:"attributeFilters,omitempty"`
}
