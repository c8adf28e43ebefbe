package overseer

import (
	"bytes"
	"encoding/json"
	"math/big"
	"sort"
	"strings"

	"moneymarket/crypto"
)

// Config is the process-wide overseer configuration. It is created at
// genesis and mutated only through owner commands.
type Config struct {
	Owner                    crypto.Address `json:"owner_addr"`
	OracleContract           crypto.Address `json:"oracle_contract"`
	MarketContract           crypto.Address `json:"market_contract"`
	LiquidationContract      crypto.Address `json:"liquidation_contract"`
	CollectorContract        crypto.Address `json:"collector_contract"`
	StableDenom              string         `json:"stable_denom"`
	EpochPeriod              uint64         `json:"epoch_period"`
	ThresholdDepositRate     Dec            `json:"threshold_deposit_rate"`
	TargetDepositRate        Dec            `json:"target_deposit_rate"`
	BufferDistributionFactor Dec            `json:"buffer_distribution_factor"`
	AncPurchaseFactor        Dec            `json:"anc_purchase_factor"`
	PriceTimeframe           uint64         `json:"price_timeframe"`
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	clone.ThresholdDepositRate = c.ThresholdDepositRate.Clone()
	clone.TargetDepositRate = c.TargetDepositRate.Clone()
	clone.BufferDistributionFactor = c.BufferDistributionFactor.Clone()
	clone.AncPurchaseFactor = c.AncPurchaseFactor.Clone()
	return &clone
}

// WhitelistEntry records the listing metadata for one collateral asset. An
// asset has at most one entry and entries are never deleted.
type WhitelistEntry struct {
	Name    string         `json:"name"`
	Symbol  string         `json:"symbol"`
	Asset   crypto.Address `json:"collateral_token"`
	Custody crypto.Address `json:"custody_contract"`
	MaxLTV  Dec            `json:"max_ltv"`
	// Index is the registration sequence number assigned at listing time.
	Index uint64 `json:"index"`
}

// Clone returns a deep copy of the whitelist entry.
func (w *WhitelistEntry) Clone() *WhitelistEntry {
	if w == nil {
		return nil
	}
	clone := *w
	clone.MaxLTV = w.MaxLTV.Clone()
	return &clone
}

// EpochPhase enumerates the persisted states of the epoch controller.
type EpochPhase string

const (
	// EpochIdle means no epoch settlement is in flight.
	EpochIdle EpochPhase = "idle"
	// EpochAwaitingBufferAck means epoch operations were issued and the
	// controller is waiting for the market's UpdateEpochState callback.
	EpochAwaitingBufferAck EpochPhase = "awaiting_buffer_ack"
)

// EpochState is the process-wide epoch settlement singleton. Because the
// settlement spans two inbound messages, the in-flight phase and the pending
// rate snapshot are persisted rather than held in memory.
type EpochState struct {
	DepositRate      Dec        `json:"deposit_rate"`
	LastEpochHeight  uint64     `json:"last_executed_height"`
	InterestBuffer   *big.Int   `json:"prev_interest_buffer"`
	PrevExchangeRate Dec        `json:"prev_exchange_rate"`
	Phase            EpochPhase `json:"phase"`
	// PendingDepositRate and PendingExchangeRate are set while Phase is
	// EpochAwaitingBufferAck and applied by the market callback.
	PendingDepositRate  Dec `json:"pending_deposit_rate"`
	PendingExchangeRate Dec `json:"pending_exchange_rate"`
}

// Clone returns a deep copy of the epoch state.
func (s *EpochState) Clone() *EpochState {
	if s == nil {
		return nil
	}
	clone := *s
	clone.DepositRate = s.DepositRate.Clone()
	clone.PrevExchangeRate = s.PrevExchangeRate.Clone()
	clone.PendingDepositRate = s.PendingDepositRate.Clone()
	clone.PendingExchangeRate = s.PendingExchangeRate.Clone()
	if s.InterestBuffer != nil {
		clone.InterestBuffer = new(big.Int).Set(s.InterestBuffer)
	}
	return &clone
}

func (s *EpochState) ensureDefaults() {
	if s.InterestBuffer == nil {
		s.InterestBuffer = big.NewInt(0)
	}
	if s.Phase == "" {
		s.Phase = EpochIdle
	}
}

// TokenAmount is one (collateral asset, amount) pair.
type TokenAmount struct {
	Asset  crypto.Address
	Amount *big.Int
}

type tokenAmountWire struct {
	Asset  crypto.Address `json:"asset"`
	Amount string         `json:"amount"`
}

// MarshalJSON encodes the amount as a decimal string so arbitrary-precision
// values survive JSON number handling.
func (t TokenAmount) MarshalJSON() ([]byte, error) {
	amount := t.Amount
	if amount == nil {
		amount = big.NewInt(0)
	}
	return json.Marshal(tokenAmountWire{Asset: t.Asset, Amount: amount.String()})
}

// UnmarshalJSON decodes the string-encoded amount, rejecting malformed and
// negative values.
func (t *TokenAmount) UnmarshalJSON(data []byte) error {
	var wire tokenAmountWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	amount, ok := new(big.Int).SetString(strings.TrimSpace(wire.Amount), 10)
	if !ok || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	t.Asset = wire.Asset
	t.Amount = amount
	return nil
}

// Tokens is a borrower's collateral position set, kept sorted by asset
// address ascending so queries and risk computation are deterministic.
type Tokens []TokenAmount

// Clone returns a deep copy of the token list.
func (t Tokens) Clone() Tokens {
	if t == nil {
		return nil
	}
	clone := make(Tokens, len(t))
	for i, entry := range t {
		clone[i] = TokenAmount{Asset: entry.Asset}
		if entry.Amount != nil {
			clone[i].Amount = new(big.Int).Set(entry.Amount)
		}
	}
	return clone
}

// Get returns the locked amount for the asset, or zero when absent.
func (t Tokens) Get(asset crypto.Address) *big.Int {
	for _, entry := range t {
		if entry.Asset.Equal(asset) {
			if entry.Amount == nil {
				return big.NewInt(0)
			}
			return new(big.Int).Set(entry.Amount)
		}
	}
	return big.NewInt(0)
}

// Add increases the amount locked for the asset, inserting a new pair in
// sorted position when the asset is absent.
func (t Tokens) Add(asset crypto.Address, amount *big.Int) Tokens {
	for i, entry := range t {
		if entry.Asset.Equal(asset) {
			base := entry.Amount
			if base == nil {
				base = big.NewInt(0)
			}
			t[i].Amount = new(big.Int).Add(base, amount)
			return t
		}
	}
	out := append(t, TokenAmount{Asset: asset, Amount: new(big.Int).Set(amount)})
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].Asset.Bytes(), out[j].Asset.Bytes()) < 0
	})
	return out
}

// Sub decreases the amount locked for the asset, dropping the pair when it
// reaches zero. ErrInsufficientCollateral is returned when the decrease
// exceeds the locked amount.
func (t Tokens) Sub(asset crypto.Address, amount *big.Int) (Tokens, error) {
	for i, entry := range t {
		if !entry.Asset.Equal(asset) {
			continue
		}
		base := entry.Amount
		if base == nil {
			base = big.NewInt(0)
		}
		if base.Cmp(amount) < 0 {
			return nil, ErrInsufficientCollateral
		}
		remaining := new(big.Int).Sub(base, amount)
		if remaining.Sign() == 0 {
			return append(t[:i:i], t[i+1:]...), nil
		}
		t[i].Amount = remaining
		return t, nil
	}
	return nil, ErrInsufficientCollateral
}

func amountsOf(t Tokens) []*big.Int {
	amounts := make([]*big.Int, len(t))
	for i, entry := range t {
		if entry.Amount == nil {
			amounts[i] = big.NewInt(0)
			continue
		}
		amounts[i] = new(big.Int).Set(entry.Amount)
	}
	return amounts
}

// BorrowerCollaterals pairs a borrower with their collateral position set.
type BorrowerCollaterals struct {
	Borrower    crypto.Address `json:"borrower"`
	Collaterals Tokens         `json:"collaterals"`
}
