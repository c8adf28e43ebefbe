package overseer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"sync"

	"moneymarket/crypto"
)

// LiquidationPricer is the consumed surface of the liquidation-amount model
// collaborator: given a borrower's outstanding debt, borrow limit and locked
// positions, it returns how much of which collateral to seize.
type LiquidationPricer interface {
	SeizurePlan(borrower crypto.Address, debt, limit *big.Int, collaterals Tokens) (Tokens, error)
}

// ManualLiquidationPricer is an in-memory pricer that seizes a fixed
// fraction of every position. Tests configure the fraction directly; a
// fraction of 1 seizes everything.
type ManualLiquidationPricer struct {
	mu       sync.RWMutex
	fraction Dec
}

// NewManualLiquidationPricer constructs a pricer seizing the given fraction
// of each position.
func NewManualLiquidationPricer(fraction Dec) *ManualLiquidationPricer {
	return &ManualLiquidationPricer{fraction: fraction.Clone()}
}

// SetFraction updates the seizure fraction.
func (p *ManualLiquidationPricer) SetFraction(fraction Dec) {
	p.mu.Lock()
	p.fraction = fraction.Clone()
	p.mu.Unlock()
}

// SeizurePlan returns fraction × amount for every locked position, skipping
// positions that floor to zero.
func (p *ManualLiquidationPricer) SeizurePlan(_ crypto.Address, _, _ *big.Int, collaterals Tokens) (Tokens, error) {
	p.mu.RLock()
	fraction := p.fraction.Clone()
	p.mu.RUnlock()
	plan := make(Tokens, 0, len(collaterals))
	for _, position := range collaterals {
		seize := fraction.MulInt(position.Amount)
		if seize.Sign() == 0 {
			continue
		}
		plan = append(plan, TokenAmount{Asset: position.Asset, Amount: seize})
	}
	return plan, nil
}

// HTTPLiquidationPricer queries the remote liquidation model service.
type HTTPLiquidationPricer struct {
	client   HTTPDoer
	endpoint string
}

// NewHTTPLiquidationPricer constructs a pricer client. When client is nil
// http.DefaultClient is used.
func NewHTTPLiquidationPricer(client HTTPDoer, endpoint string) *HTTPLiquidationPricer {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPLiquidationPricer{client: client, endpoint: strings.TrimSpace(endpoint)}
}

// SeizurePlan posts the borrower's position snapshot and returns the model's
// seizure amounts.
func (p *HTTPLiquidationPricer) SeizurePlan(borrower crypto.Address, debt, limit *big.Int, collaterals Tokens) (Tokens, error) {
	if p == nil || p.endpoint == "" {
		return nil, fmt.Errorf("liquidation pricer: endpoint not configured")
	}
	payload := struct {
		Borrower    crypto.Address `json:"borrower"`
		Debt        string         `json:"debt"`
		BorrowLimit string         `json:"borrow_limit"`
		Collaterals Tokens         `json:"collaterals"`
	}{Borrower: borrower, Debt: debt.String(), BorrowLimit: limit.String(), Collaterals: collaterals}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequest(http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("liquidation pricer: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	var result struct {
		Seizures Tokens `json:"seizures"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("liquidation pricer: decode: %w", err)
	}
	return result.Seizures, nil
}
