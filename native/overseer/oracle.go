package overseer

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"moneymarket/crypto"
)

// PriceQuote is one oracle observation for a collateral asset, denominated
// in the protocol's stable denom. LastUpdated is the block height the feed
// last refreshed at; the risk engine enforces freshness against it.
type PriceQuote struct {
	Price       Dec    `json:"rate"`
	LastUpdated uint64 `json:"last_updated_block"`
}

// PriceOracle resolves the stable-denominated price of a collateral asset.
// The production implementation is a remote oracle contract; tests use the
// manual variant.
type PriceOracle interface {
	Price(denom string, asset crypto.Address) (PriceQuote, error)
}

// ManualPriceOracle is an in-memory oracle used by tests and for manual
// overrides during incident response.
type ManualPriceOracle struct {
	mu     sync.RWMutex
	quotes map[string]PriceQuote
}

// NewManualPriceOracle constructs an empty manual oracle.
func NewManualPriceOracle() *ManualPriceOracle {
	return &ManualPriceOracle{quotes: make(map[string]PriceQuote)}
}

// Set stores a quote for the asset.
func (m *ManualPriceOracle) Set(asset crypto.Address, price Dec, lastUpdated uint64) {
	m.mu.Lock()
	m.quotes[string(asset.Bytes())] = PriceQuote{Price: price.Clone(), LastUpdated: lastUpdated}
	m.mu.Unlock()
}

// Price retrieves the stored quote for the asset.
func (m *ManualPriceOracle) Price(_ string, asset crypto.Address) (PriceQuote, error) {
	m.mu.RLock()
	quote, ok := m.quotes[string(asset.Bytes())]
	m.mu.RUnlock()
	if !ok {
		return PriceQuote{}, fmt.Errorf("manual oracle: no quote for %s", asset)
	}
	return PriceQuote{Price: quote.Price.Clone(), LastUpdated: quote.LastUpdated}, nil
}

// HTTPDoer abstracts http.Client for ease of testing.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPPriceOracle queries a remote oracle service for asset prices.
type HTTPPriceOracle struct {
	client   HTTPDoer
	endpoint string
}

// NewHTTPPriceOracle constructs an oracle client. When client is nil
// http.DefaultClient is used.
func NewHTTPPriceOracle(client HTTPDoer, endpoint string) *HTTPPriceOracle {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPPriceOracle{client: client, endpoint: strings.TrimSpace(endpoint)}
}

// Price fetches the latest quote for the asset from the remote service.
func (o *HTTPPriceOracle) Price(denom string, asset crypto.Address) (PriceQuote, error) {
	if o == nil || o.endpoint == "" {
		return PriceQuote{}, fmt.Errorf("price oracle: endpoint not configured")
	}
	req, err := http.NewRequest(http.MethodGet, o.endpoint, nil)
	if err != nil {
		return PriceQuote{}, err
	}
	values := url.Values{}
	values.Set("base", strings.TrimSpace(denom))
	values.Set("quote", asset.String())
	req.URL.RawQuery = values.Encode()
	resp, err := o.client.Do(req)
	if err != nil {
		return PriceQuote{}, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return PriceQuote{}, fmt.Errorf("price oracle: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var quote PriceQuote
	if err := json.NewDecoder(resp.Body).Decode(&quote); err != nil {
		return PriceQuote{}, fmt.Errorf("price oracle: decode: %w", err)
	}
	if quote.Price.IsZero() {
		return PriceQuote{}, fmt.Errorf("price oracle: empty rate for %s", asset)
	}
	return quote, nil
}
