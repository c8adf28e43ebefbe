package overseer

import (
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"moneymarket/crypto"
)

// DebtLedger is the consumed surface of the market collaborator: the
// outstanding stable-denom debt per borrower and the deposit exchange rate
// snapshot the epoch controller derives the effective deposit rate from.
type DebtLedger interface {
	BorrowerDebt(borrower crypto.Address) (*big.Int, error)
	ExchangeRate() (Dec, error)
}

// ManualDebtLedger is an in-memory debt ledger used by tests.
type ManualDebtLedger struct {
	mu    sync.RWMutex
	debts map[string]*big.Int
	rate  Dec
}

// NewManualDebtLedger constructs a ledger with a 1.0 exchange rate and no
// outstanding debt.
func NewManualDebtLedger() *ManualDebtLedger {
	return &ManualDebtLedger{debts: make(map[string]*big.Int), rate: OneDec()}
}

// SetDebt records the outstanding debt for a borrower.
func (m *ManualDebtLedger) SetDebt(borrower crypto.Address, debt *big.Int) {
	m.mu.Lock()
	m.debts[string(borrower.Bytes())] = new(big.Int).Set(debt)
	m.mu.Unlock()
}

// SetExchangeRate records the deposit exchange rate snapshot.
func (m *ManualDebtLedger) SetExchangeRate(rate Dec) {
	m.mu.Lock()
	m.rate = rate.Clone()
	m.mu.Unlock()
}

// BorrowerDebt returns the recorded debt, defaulting to zero.
func (m *ManualDebtLedger) BorrowerDebt(borrower crypto.Address) (*big.Int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if debt, ok := m.debts[string(borrower.Bytes())]; ok {
		return new(big.Int).Set(debt), nil
	}
	return big.NewInt(0), nil
}

// ExchangeRate returns the recorded snapshot.
func (m *ManualDebtLedger) ExchangeRate() (Dec, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rate.Clone(), nil
}

// HTTPDebtLedger queries the remote market service.
type HTTPDebtLedger struct {
	client   HTTPDoer
	endpoint string
}

// NewHTTPDebtLedger constructs a market client. When client is nil
// http.DefaultClient is used.
func NewHTTPDebtLedger(client HTTPDoer, endpoint string) *HTTPDebtLedger {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPDebtLedger{client: client, endpoint: strings.TrimRight(strings.TrimSpace(endpoint), "/")}
}

func (l *HTTPDebtLedger) get(path string, query url.Values, out interface{}) error {
	if l == nil || l.endpoint == "" {
		return fmt.Errorf("debt ledger: endpoint not configured")
	}
	req, err := http.NewRequest(http.MethodGet, l.endpoint+path, nil)
	if err != nil {
		return err
	}
	if query != nil {
		req.URL.RawQuery = query.Encode()
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("debt ledger: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("debt ledger: decode: %w", err)
	}
	return nil
}

// BorrowerDebt fetches the outstanding debt for a borrower.
func (l *HTTPDebtLedger) BorrowerDebt(borrower crypto.Address) (*big.Int, error) {
	values := url.Values{}
	values.Set("borrower", borrower.String())
	var payload struct {
		LoanAmount string `json:"loan_amount"`
	}
	if err := l.get("/borrower", values, &payload); err != nil {
		return nil, err
	}
	debt, ok := new(big.Int).SetString(strings.TrimSpace(payload.LoanAmount), 10)
	if !ok || debt.Sign() < 0 {
		return nil, fmt.Errorf("debt ledger: invalid loan amount %q", payload.LoanAmount)
	}
	return debt, nil
}

// ExchangeRate fetches the deposit exchange rate snapshot.
func (l *HTTPDebtLedger) ExchangeRate() (Dec, error) {
	var payload struct {
		ExchangeRate Dec `json:"exchange_rate"`
	}
	if err := l.get("/epoch_state", nil, &payload); err != nil {
		return Dec{}, err
	}
	if payload.ExchangeRate.IsZero() {
		return Dec{}, fmt.Errorf("debt ledger: empty exchange rate")
	}
	return payload.ExchangeRate, nil
}
