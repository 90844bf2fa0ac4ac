package db

import (
	"encoding/json"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
)

func TestAttributesJSONRoundTrip(t *testing.T) {
	attrs := Attributes{
		{Key: "instanceType", Value: "m5.large"},
		{Key: "tenancy", Value: "Shared"},
		{Key: "operatingSystem", Value: "Linux"},
	}

	data, err := json.Marshal(attrs)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"instanceType":"m5.large","tenancy":"Shared","operatingSystem":"Linux"}`
	if string(data) != want {
		t.Errorf("marshaled %s, want %s", data, want)
	}

	var decoded Attributes
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(decoded) != len(attrs) {
		t.Fatalf("round trip lost entries: got %d, want %d", len(decoded), len(attrs))
	}
	for i := range attrs {
		if decoded[i] != attrs[i] {
			t.Errorf("entry %d = %+v, want %+v", i, decoded[i], attrs[i])
		}
	}
}

func TestAttributesBSONRoundTrip(t *testing.T) {
	attrs := Attributes{
		{Key: "tenancy", Value: "Shared"},
		{Key: "instanceType", Value: "m5.large"},
	}

	data, err := bson.Marshal(attrs)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded Attributes
	if err := bson.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(decoded) != 2 || decoded[0].Key != "tenancy" || decoded[1].Key != "instanceType" {
		t.Errorf("bson round trip reordered attributes: %+v", decoded)
	}
}

func TestAttributesGetSet(t *testing.T) {
	var attrs Attributes
	attrs.Set("instanceType", "m5.large")
	attrs.Set("tenancy", "Shared")
	attrs.Set("instanceType", "m5.xlarge")

	if v, ok := attrs.Get("instanceType"); !ok || v != "m5.xlarge" {
		t.Errorf(`Get("instanceType") = %q, %v`, v, ok)
	}
	if _, ok := attrs.Get("missing"); ok {
		t.Error("Get should report absent keys")
	}
	if len(attrs) != 2 {
		t.Errorf("Set should update in place, got %d entries", len(attrs))
	}
	if attrs[0].Key != "instanceType" {
		t.Error("Set must preserve insertion order on update")
	}
}

func TestFindPrice(t *testing.T) {
	p := &Product{Prices: []Price{
		{PurchaseOption: "on_demand", USD: "0.10"},
		{PurchaseOption: "spot", USD: "0.03"},
	}}

	if got := p.FindPrice("spot"); got == nil || got.USD != "0.03" {
		t.Errorf("FindPrice(spot) = %+v", got)
	}
	if got := p.FindPrice("reserved"); got != nil {
		t.Errorf("FindPrice(reserved) = %+v, want nil", got)
	}
}
