package overseer

import (
	"moneymarket/core/events"
	"moneymarket/crypto"
	nativecommon "moneymarket/native/common"
)

// LockCollateral increases the borrower's locked positions for a batch of
// whitelisted assets. The batch is all-or-nothing: positions are staged on a
// working copy and persisted only after every pair validates. Each locked
// pair produces a RecordDeposit instruction for the asset's custody
// delegate.
func (e *Engine) LockCollateral(borrower crypto.Address, collaterals Tokens) ([]Instruction, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lockCollateral(borrower, collaterals)
}

func (e *Engine) lockCollateral(borrower crypto.Address, collaterals Tokens) ([]Instruction, error) {
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if _, err := e.loadConfig(); err != nil {
		return nil, err
	}
	if len(collaterals) == 0 {
		return nil, ErrInvalidAmount
	}
	tokens, err := e.state.Collaterals(borrower)
	if err != nil {
		return nil, err
	}
	tokens = tokens.Clone()

	instructions := make([]Instruction, 0, len(collaterals))
	assets := make([]crypto.Address, 0, len(collaterals))
	for _, pair := range collaterals {
		if pair.Amount == nil || pair.Amount.Sign() <= 0 {
			return nil, ErrInvalidAmount
		}
		entry, err := e.state.WhitelistEntry(pair.Asset)
		if err != nil {
			return nil, err
		}
		if entry == nil {
			return nil, ErrNotWhitelisted
		}
		tokens = tokens.Add(pair.Asset, pair.Amount)
		assets = append(assets, pair.Asset)
		instructions = append(instructions, RecordDeposit{
			Custody:  entry.Custody,
			Borrower: borrower,
			Asset:    pair.Asset,
			Amount:   pair.Amount,
		})
	}
	if err := e.state.PutCollaterals(borrower, tokens); err != nil {
		return nil, err
	}
	e.emitter.Emit(events.CollateralLocked{
		Borrower: borrower,
		Assets:   assets,
		Amounts:  amountsOf(collaterals),
	})
	return instructions, nil
}

// UnlockCollateral decreases the borrower's locked positions. The decreases
// are applied tentatively, the borrow limit is recomputed over the remaining
// positions, and the whole batch is rejected when the borrower's outstanding
// debt would exceed the new limit. Zero-valued positions are removed.
func (e *Engine) UnlockCollateral(borrower crypto.Address, collaterals Tokens) ([]Instruction, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.unlockCollateral(borrower, collaterals)
}

func (e *Engine) unlockCollateral(borrower crypto.Address, collaterals Tokens) ([]Instruction, error) {
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	cfg, err := e.loadConfig()
	if err != nil {
		return nil, err
	}
	if e.market == nil {
		return nil, errNilMarket
	}
	if len(collaterals) == 0 {
		return nil, ErrInvalidAmount
	}
	tokens, err := e.state.Collaterals(borrower)
	if err != nil {
		return nil, err
	}
	tokens = tokens.Clone()

	instructions := make([]Instruction, 0, len(collaterals))
	assets := make([]crypto.Address, 0, len(collaterals))
	for _, pair := range collaterals {
		if pair.Amount == nil || pair.Amount.Sign() <= 0 {
			return nil, ErrInvalidAmount
		}
		entry, err := e.state.WhitelistEntry(pair.Asset)
		if err != nil {
			return nil, err
		}
		if entry == nil {
			return nil, ErrNotWhitelisted
		}
		tokens, err = tokens.Sub(pair.Asset, pair.Amount)
		if err != nil {
			return nil, err
		}
		assets = append(assets, pair.Asset)
		instructions = append(instructions, RecordWithdrawal{
			Custody:  entry.Custody,
			Borrower: borrower,
			Asset:    pair.Asset,
			Amount:   pair.Amount,
		})
	}

	height := e.blockHeight
	limit, err := e.computeBorrowLimit(cfg, tokens, &height)
	if err != nil {
		return nil, err
	}
	debt, err := e.market.BorrowerDebt(borrower)
	if err != nil {
		return nil, err
	}
	if debt.Cmp(limit) > 0 {
		return nil, ErrBorrowLimitExceeded
	}

	if err := e.state.PutCollaterals(borrower, tokens); err != nil {
		return nil, err
	}
	e.emitter.Emit(events.CollateralUnlocked{
		Borrower: borrower,
		Assets:   assets,
		Amounts:  amountsOf(collaterals),
	})
	return instructions, nil
}

// QueryCollaterals returns the borrower's locked position set. A borrower
// with no positions yields an empty list.
func (e *Engine) QueryCollaterals(borrower crypto.Address) (BorrowerCollaterals, error) {
	if e == nil || e.state == nil {
		return BorrowerCollaterals{}, errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.queryCollaterals(borrower)
}

func (e *Engine) queryCollaterals(borrower crypto.Address) (BorrowerCollaterals, error) {
	tokens, err := e.state.Collaterals(borrower)
	if err != nil {
		return BorrowerCollaterals{}, err
	}
	if tokens == nil {
		tokens = Tokens{}
	}
	return BorrowerCollaterals{Borrower: borrower, Collaterals: tokens.Clone()}, nil
}

// QueryAllCollaterals returns borrower position sets ordered by borrower
// address ascending, strictly after the cursor when given.
func (e *Engine) QueryAllCollaterals(startAfter *crypto.Address, limit *uint32) ([]BorrowerCollaterals, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.queryAllCollaterals(startAfter, limit)
}

func (e *Engine) queryAllCollaterals(startAfter *crypto.Address, limit *uint32) ([]BorrowerCollaterals, error) {
	return e.state.AllCollaterals(startAfter, clampLimit(limit))
}
