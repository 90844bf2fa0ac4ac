package filter

import (
	"reflect"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"cloud-pricing/db"
	"cloud-pricing/internal/errors"
)

func TestDocumentFieldRules(t *testing.T) {
	tests := []struct {
		name   string
		fields db.Filter
		want   bson.M
	}{
		{
			name:   "exact match",
			fields: db.Filter{"vendorName": "aws"},
			want:   bson.M{"vendorName": bson.M{"$eq": "aws"}},
		},
		{
			name:   "empty value matches empty or absent",
			fields: db.Filter{"region": ""},
			want:   bson.M{"region": bson.M{"$in": bson.A{"", nil}}},
		},
		{
			name:   "regex with case-insensitive option",
			fields: db.Filter{"unit_regex": "/^Hours$/i"},
			want:   bson.M{"unit": bson.M{"$regex": primitive.Regex{Pattern: "^Hours$", Options: "i"}}},
		},
		{
			name:   "case-sensitive regex",
			fields: db.Filter{"unit_regex": "/^Hours$/"},
			want:   bson.M{"unit": bson.M{"$regex": primitive.Regex{Pattern: "^Hours$"}}},
		},
		{
			name:   "unknown suffix falls back to exact match",
			fields: db.Filter{"unit_like": "Hours"},
			want:   bson.M{"unit": bson.M{"$eq": "Hours"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Document(&db.ProductFilter{Fields: tt.fields})
			if err != nil {
				t.Fatalf("Document: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Document = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestDocumentAttributeFilters(t *testing.T) {
	shared := "Shared"
	re := "/^(Shared|Host)$/"
	empty := ""

	pf := &db.ProductFilter{
		AttributeFilters: []db.AttributeFilter{
			{Key: "tenancy", Value: &shared},
			{Key: "operatingSystem", ValueRegex: &re},
			{Key: "preInstalledSw", Value: &empty},
		},
	}
	got, err := Document(pf)
	if err != nil {
		t.Fatalf("Document: %v", err)
	}

	want := bson.M{
		"attributes.tenancy":         bson.M{"$eq": "Shared"},
		"attributes.operatingSystem": bson.M{"$regex": primitive.Regex{Pattern: "^(Shared|Host)$"}},
		"attributes.preInstalledSw":  bson.M{"$in": bson.A{"", nil}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Document = %#v, want %#v", got, want)
	}
}

func TestDocumentMalformedRegexIsValidationError(t *testing.T) {
	_, err := Document(&db.ProductFilter{Fields: db.Filter{"unit_regex": "/^Hours$"}})
	if !errors.IsType(err, errors.TypeValidation) {
		t.Errorf("malformed regex error = %v, want validation error", err)
	}
}

func TestDocumentAttributeFilterNeedsValue(t *testing.T) {
	pf := &db.ProductFilter{AttributeFilters: []db.AttributeFilter{{Key: "tenancy"}}}
	if _, err := Document(pf); !errors.IsType(err, errors.TypeValidation) {
		t.Errorf("attribute filter without value must be a validation error, got %v", err)
	}
}
