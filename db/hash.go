// Content-hash identity for products and prices.
//
// Hashes are MD5 over an explicit, vendor-dependent ordered field list joined
// by "-". The field lists are frozen: changing them (or hashing attribute
// contents) changes every stored identity and breaks external consumers that
// persist the hashes.
package db

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

// VendorAWS is the distinguished vendor: its product hashes exclude region
// and its price hashes exclude the usage-amount range, so identities stay
// stable for consumers that predate those fields.
const VendorAWS = "aws"

// ProductHash computes the deterministic identity hash for a product.
// Attributes never participate; only the top-level identity fields do.
// For two products from VendorAWS differing only in region the hashes
// collide, for any other vendor they differ.
func ProductHash(p *Product) string {
	var fields []string
	if p.VendorName == VendorAWS {
		fields = []string{p.VendorName, p.SKU}
	} else {
		fields = []string{p.VendorName, p.RegionValue(), p.SKU}
	}
	return md5Hex(fields)
}

// PriceHash computes the identity hash for a price under its owning product.
// The result is "<productHash>-<md5>", so a price hash alone identifies the
// owning product and identical price shapes under different products never
// collide. The product's own hash must already be stamped.
func PriceHash(p *Product, price *Price) string {
	parts := []string{price.PurchaseOption, price.Unit}
	if p.VendorName != VendorAWS {
		parts = appendIfSet(parts, price.StartUsageAmount)
		parts = appendIfSet(parts, price.EndUsageAmount)
	}
	parts = appendIfSet(parts, price.TermLength)
	parts = appendIfSet(parts, price.TermPurchaseOption)
	parts = appendIfSet(parts, price.TermOfferingClass)

	return p.ProductHash + "-" + md5Hex(parts)
}

// StampHashes fills in ProductHash and every PriceHash on the product.
// Idempotent: re-stamping an already-hashed product yields the same values.
func StampHashes(p *Product) {
	p.ProductHash = ProductHash(p)
	for i := range p.Prices {
		p.Prices[i].PriceHash = PriceHash(p, &p.Prices[i])
	}
}

// appendIfSet skips unset optional fields so the joined value matches the
// historical encoding, where absent fields were dropped before joining.
func appendIfSet(parts []string, v string) []string {
	if v == "" {
		return parts
	}
	return append(parts, v)
}

func md5Hex(fields []string) string {
	sum := md5.Sum([]byte(strings.Join(fields, "-")))
	return hex.EncodeToString(sum[:])
}
