package currency

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"cloud-pricing/internal/errors"
)

const defaultRateURL = "https://api.exchangerate.host/latest"

// HTTPSource queries an exchange-rate HTTP API.
type HTTPSource struct {
	baseURL string
	client  *http.Client
}

// NewHTTPSource creates a source against the default exchange-rate API.
func NewHTTPSource() *HTTPSource {
	return &HTTPSource{
		baseURL: defaultRateURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type rateResponse struct {
	Rates map[string]decimal.Decimal `json:"rates"`
	Base  string                     `json:"base"`
	Date  string                     `json:"date"`
}

// Rate fetches the from→to exchange rate.
func (s *HTTPSource) Rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	u := fmt.Sprintf("%s?base=%s&symbols=%s", s.baseURL, url.QueryEscape(from), url.QueryEscape(to))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return decimal.Zero, errors.ExternalService("building rate request", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return decimal.Zero, errors.ExternalService("querying exchange rate", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, errors.Newf(errors.TypeExternalService,
			"exchange rate service returned %d", resp.StatusCode)
	}

	var body rateResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return decimal.Zero, errors.ExternalService("decoding rate response", err)
	}
	rate, ok := body.Rates[to]
	if !ok {
		return decimal.Zero, errors.Newf(errors.TypeExternalService,
			"exchange rate service has no rate for %s", to)
	}
	return rate, nil
}
