package overseer

import (
	"math/big"

	"github.com/holiman/uint256"

	"moneymarket/crypto"
)

// BorrowLimit computes the borrower's aggregate borrow limit: the sum of
// amount × oracle price × max LTV over every locked position, denominated in
// the stable denom. When blockTime is given every oracle quote must have
// refreshed within the configured price timeframe of it. The computation is
// pure: it reads the ledger and registry but mutates nothing.
func (e *Engine) BorrowLimit(borrower crypto.Address, blockTime *uint64) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.borrowLimit(borrower, blockTime)
}

func (e *Engine) borrowLimit(borrower crypto.Address, blockTime *uint64) (*big.Int, error) {
	cfg, err := e.loadConfig()
	if err != nil {
		return nil, err
	}
	tokens, err := e.state.Collaterals(borrower)
	if err != nil {
		return nil, err
	}
	return e.computeBorrowLimit(cfg, tokens, blockTime)
}

func (e *Engine) computeBorrowLimit(cfg *Config, tokens Tokens, blockTime *uint64) (*big.Int, error) {
	if e.oracle == nil {
		return nil, errNilOracle
	}
	sum := new(big.Int)
	for _, position := range tokens {
		if position.Amount == nil || position.Amount.Sign() == 0 {
			continue
		}
		entry, err := e.state.WhitelistEntry(position.Asset)
		if err != nil {
			return nil, err
		}
		if entry == nil {
			return nil, ErrNotWhitelisted
		}
		quote, err := e.oracle.Price(cfg.StableDenom, position.Asset)
		if err != nil {
			return nil, err
		}
		if blockTime != nil && quote.LastUpdated+cfg.PriceTimeframe < *blockTime {
			return nil, ErrStalePrice
		}
		value := quote.Price.MulInt(position.Amount)
		sum.Add(sum, entry.MaxLTV.MulInt(value))
	}
	return saturateUint256(sum), nil
}

// saturateUint256 clamps the aggregate limit to the 256-bit range so the
// sum never overflows the wire representation.
func saturateUint256(v *big.Int) *big.Int {
	if v.Sign() <= 0 {
		return big.NewInt(0)
	}
	if _, overflow := uint256.FromBig(v); overflow {
		max := new(uint256.Int).SetAllOne()
		return max.ToBig()
	}
	return v
}
