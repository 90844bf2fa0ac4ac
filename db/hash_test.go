package db

import (
	"strings"
	"testing"
)

func strPtr(s string) *string { return &s }

func TestProductHashIgnoresAttributeOrder(t *testing.T) {
	p1 := &Product{
		VendorName: "azure",
		SKU:        "X",
		Region:     strPtr("eastus"),
		Attributes: Attributes{
			{Key: "meterName", Value: "D2 v3"},
			{Key: "productName", Value: "Virtual Machines Dv3 Series"},
		},
	}
	p2 := &Product{
		VendorName: "azure",
		SKU:        "X",
		Region:     strPtr("eastus"),
		Attributes: Attributes{
			{Key: "productName", Value: "Virtual Machines Dv3 Series"},
			{Key: "meterName", Value: "D2 v3"},
		},
	}

	if ProductHash(p1) != ProductHash(p2) {
		t.Errorf("attribute order changed the product hash: %s != %s", ProductHash(p1), ProductHash(p2))
	}
}

func TestProductHashRegionHandling(t *testing.T) {
	tests := []struct {
		name      string
		a, b      *Product
		wantEqual bool
	}{
		{
			name:      "aws ignores region",
			a:         &Product{VendorName: "aws", SKU: "ABC123"},
			b:         &Product{VendorName: "aws", SKU: "ABC123", Region: strPtr("us-east-1")},
			wantEqual: true,
		},
		{
			name:      "azure includes region",
			a:         &Product{VendorName: "azure", SKU: "X", Region: strPtr("eastus")},
			b:         &Product{VendorName: "azure", SKU: "X", Region: strPtr("westus")},
			wantEqual: false,
		},
		{
			name:      "gcp includes region",
			a:         &Product{VendorName: "gcp", SKU: "S", Region: strPtr("us-central1")},
			b:         &Product{VendorName: "gcp", SKU: "S", Region: strPtr("europe-west1")},
			wantEqual: false,
		},
		{
			name:      "nil region hashes like empty region",
			a:         &Product{VendorName: "azure", SKU: "X"},
			b:         &Product{VendorName: "azure", SKU: "X", Region: strPtr("")},
			wantEqual: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ha, hb := ProductHash(tt.a), ProductHash(tt.b)
			if (ha == hb) != tt.wantEqual {
				t.Errorf("ProductHash equality = %v, want %v (%s vs %s)", ha == hb, tt.wantEqual, ha, hb)
			}
		})
	}
}

func TestProductHashIsStable(t *testing.T) {
	p := &Product{VendorName: "aws", SKU: "ABC123"}
	// md5("aws-ABC123"), frozen for external consumers.
	const want = "56262158249d33676d51697fa13b1043"
	if got := ProductHash(p); got != want {
		t.Errorf("ProductHash = %s, want %s", got, want)
	}
}

func TestPriceHashPrefixedByProductHash(t *testing.T) {
	p := &Product{VendorName: "aws", SKU: "ABC123"}
	p.ProductHash = ProductHash(p)
	price := &Price{PurchaseOption: "on_demand", Unit: "Hrs"}

	hash := PriceHash(p, price)
	if !strings.HasPrefix(hash, p.ProductHash+"-") {
		t.Errorf("price hash %s is not prefixed by product hash %s", hash, p.ProductHash)
	}
}

func TestPriceHashUsageAmounts(t *testing.T) {
	base := Price{PurchaseOption: "on_demand", Unit: "Hrs"}
	tiered := base
	tiered.StartUsageAmount = "0"
	tiered.EndUsageAmount = "10000"

	aws := &Product{VendorName: "aws", SKU: "ABC123"}
	aws.ProductHash = ProductHash(aws)
	if PriceHash(aws, &base) != PriceHash(aws, &tiered) {
		t.Error("aws price hash should exclude usage-amount fields")
	}

	azure := &Product{VendorName: "azure", SKU: "X", Region: strPtr("eastus")}
	azure.ProductHash = ProductHash(azure)
	if PriceHash(azure, &base) == PriceHash(azure, &tiered) {
		t.Error("non-aws price hash should include usage-amount fields")
	}
}

func TestPriceHashDistinguishesTermFields(t *testing.T) {
	p := &Product{VendorName: "aws", SKU: "ABC123"}
	p.ProductHash = ProductHash(p)

	onDemand := &Price{PurchaseOption: "on_demand", Unit: "Hrs"}
	reserved := &Price{
		PurchaseOption:     "reserved",
		Unit:               "Hrs",
		TermLength:         "1yr",
		TermPurchaseOption: "All Upfront",
		TermOfferingClass:  "standard",
	}

	if PriceHash(p, onDemand) == PriceHash(p, reserved) {
		t.Error("different purchase terms must produce different price hashes")
	}
}

func TestStampHashesIsIdempotent(t *testing.T) {
	p := &Product{
		VendorName: "aws",
		SKU:        "ABC123",
		Prices: []Price{
			{PurchaseOption: "on_demand", Unit: "Hrs", USD: "0.10"},
			{PurchaseOption: "spot", Unit: "Hrs", USD: "0.03"},
		},
	}

	StampHashes(p)
	productHash := p.ProductHash
	priceHashes := []string{p.Prices[0].PriceHash, p.Prices[1].PriceHash}

	StampHashes(p)
	if p.ProductHash != productHash {
		t.Error("re-stamping changed the product hash")
	}
	for i, want := range priceHashes {
		if p.Prices[i].PriceHash != want {
			t.Errorf("re-stamping changed price hash %d", i)
		}
	}
	if priceHashes[0] == priceHashes[1] {
		t.Error("distinct prices must not share a hash")
	}
}
