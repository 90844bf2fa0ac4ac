package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"cloud-pricing/db"
	"cloud-pricing/internal/errors"
)

const defaultBulkPricingURL = "https://pricing.us-east-1.amazonaws.com"

// defaultAWSServices are the service catalogs fetched by default.
var defaultAWSServices = []string{
	"AmazonEC2",
	"AmazonRDS",
	"AmazonS3",
	"AmazonCloudFront",
	"AmazonDynamoDB",
	"AmazonElastiCache",
	"AmazonRedshift",
	"AWSLambda",
	"ElasticLoadBalancing",
	"AmazonVPC",
	"AWSDataTransfer",
	"AmazonCloudWatch",
	"AmazonRoute53",
	"AmazonSQS",
	"AmazonSNS",
	"AmazonApiGateway",
	"AmazonEFS",
	"AmazonEKS",
	"AmazonECR",
}

// AWSSource is an ingestion source over the public AWS bulk pricing offer
// files. Each Files entry is one service code; Parse downloads that service's
// current offer file and maps its products and terms into catalog products.
type AWSSource struct {
	client   *http.Client
	baseURL  string
	services []string
}

var _ Source = (*AWSSource)(nil)

// NewAWSSource creates a source over the public bulk pricing endpoint. With no
// services given, the default service list is fetched.
func NewAWSSource(services ...string) *AWSSource {
	if len(services) == 0 {
		services = defaultAWSServices
	}
	return &AWSSource{
		// Offer files for the larger services run to hundreds of megabytes.
		client:   &http.Client{Timeout: 30 * time.Minute},
		baseURL:  defaultBulkPricingURL,
		services: services,
	}
}

// Files returns one entry per service catalog to fetch.
func (s *AWSSource) Files() []string {
	return append([]string(nil), s.services...)
}

// Parse downloads the current offer file for one service and converts it.
func (s *AWSSource) Parse(ctx context.Context, service string) ([]*db.Product, error) {
	url := fmt.Sprintf("%s/offers/v1.0/aws/%s/current/index.json", s.baseURL, service)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.ExternalService("building offer request", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.ExternalService("fetching offer file", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf(errors.TypeExternalService,
			"offer file for %s returned %d", service, resp.StatusCode)
	}

	var offer offerFile
	if err := json.NewDecoder(resp.Body).Decode(&offer); err != nil {
		return nil, errors.ExternalService("decoding offer file", err)
	}
	return offerProducts(service, &offer), nil
}

// offerProducts maps one decoded offer file into catalog products. Products
// keep every vendor attribute; on-demand and reserved terms become prices.
func offerProducts(service string, offer *offerFile) []*db.Product {
	skus := make([]string, 0, len(offer.Products))
	for sku := range offer.Products {
		skus = append(skus, sku)
	}
	sort.Strings(skus)

	products := make([]*db.Product, 0, len(skus))
	for _, sku := range skus {
		op := offer.Products[sku]

		product := &db.Product{
			SKU:           sku,
			VendorName:    db.VendorAWS,
			Service:       service,
			ProductFamily: op.ProductFamily,
			Attributes:    offerAttributes(op.Attributes),
		}
		if region := op.Attributes["regionCode"]; region != "" {
			product.Region = &region
		}

		product.Prices = append(product.Prices,
			offerPrices("on_demand", offer.Terms.OnDemand[sku])...)
		product.Prices = append(product.Prices,
			offerPrices("reserved", offer.Terms.Reserved[sku])...)

		products = append(products, product)
	}
	return products
}

// offerAttributes converts the vendor attribute map into an ordered attribute
// list, sorted by key so repeated runs produce identical documents.
func offerAttributes(attrs map[string]string) db.Attributes {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(db.Attributes, 0, len(keys))
	for _, k := range keys {
		out = append(out, db.Attribute{Key: k, Value: attrs[k]})
	}
	return out
}

// offerPrices flattens the price dimensions of a SKU's terms. Dimensions
// without a USD amount are dropped.
func offerPrices(purchaseOption string, terms map[string]offerTerm) []db.Price {
	codes := make([]string, 0, len(terms))
	for code := range terms {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	var prices []db.Price
	for _, code := range codes {
		term := terms[code]

		dims := make([]string, 0, len(term.PriceDimensions))
		for d := range term.PriceDimensions {
			dims = append(dims, d)
		}
		sort.Strings(dims)

		for _, d := range dims {
			dim := term.PriceDimensions[d]
			usd, ok := dim.PricePerUnit["USD"]
			if !ok {
				continue
			}
			prices = append(prices, db.Price{
				PurchaseOption:     purchaseOption,
				Unit:               dim.Unit,
				USD:                usd,
				CNY:                dim.PricePerUnit["CNY"],
				Description:        dim.Description,
				EffectiveDateStart: term.EffectiveDate,
				StartUsageAmount:   dim.BeginRange,
				EndUsageAmount:     dim.EndRange,
				TermLength:         term.TermAttributes["LeaseContractLength"],
				TermPurchaseOption: term.TermAttributes["PurchaseOption"],
				TermOfferingClass:  term.TermAttributes["OfferingClass"],
			})
		}
	}
	return prices
}

// offerFile is the wire shape of an AWS bulk pricing offer file.
type offerFile struct {
	FormatVersion   string                  `json:"formatVersion"`
	Version         string                  `json:"version"`
	PublicationDate string                  `json:"publicationDate"`
	Products        map[string]offerProduct `json:"products"`
	Terms           offerTerms              `json:"terms"`
}

type offerProduct struct {
	SKU           string            `json:"sku"`
	ProductFamily string            `json:"productFamily"`
	Attributes    map[string]string `json:"attributes"`
}

type offerTerms struct {
	OnDemand map[string]map[string]offerTerm `json:"OnDemand"`
	Reserved map[string]map[string]offerTerm `json:"Reserved"`
}

type offerTerm struct {
	OfferTermCode   string                    `json:"offerTermCode"`
	SKU             string                    `json:"sku"`
	EffectiveDate   string                    `json:"effectiveDate"`
	PriceDimensions map[string]offerDimension `json:"priceDimensions"`
	TermAttributes  map[string]string         `json:"termAttributes"`
}

type offerDimension struct {
	RateCode     string            `json:"rateCode"`
	Description  string            `json:"description"`
	BeginRange   string            `json:"beginRange"`
	EndRange     string            `json:"endRange"`
	Unit         string            `json:"unit"`
	PricePerUnit map[string]string `json:"pricePerUnit"`
}
