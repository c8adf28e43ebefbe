package overseer

import (
	"moneymarket/core/events"
	"moneymarket/crypto"
	nativecommon "moneymarket/native/common"
)

// LiquidateCollateral seizes collateral from an undercollateralized
// borrower. The borrower's debt and borrow limit are recomputed at the
// current block height; a solvent borrower cannot be liquidated. The seizure
// amounts come from the liquidation pricer collaborator and each seized
// position produces a SeizeCollateral instruction for the asset's custody
// delegate, crediting the configured liquidation contract.
//
// A re-entrant trigger for a borrower whose liquidation is already being
// applied is a no-op returning no instructions.
func (e *Engine) LiquidateCollateral(caller, borrower crypto.Address) ([]Instruction, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.liquidateCollateral(caller, borrower)
}

func (e *Engine) liquidateCollateral(caller, borrower crypto.Address) ([]Instruction, error) {
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
	if e.pricer == nil {
		return nil, errNilPricer
	}

	key := string(borrower.Bytes())
	if _, inFlight := e.liquidating[key]; inFlight {
		return nil, nil
	}
	e.liquidating[key] = struct{}{}
	defer delete(e.liquidating, key)

	tokens, err := e.state.Collaterals(borrower)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, ErrInsufficientCollateral
	}
	tokens = tokens.Clone()

	height := e.blockHeight
	limit, err := e.computeBorrowLimit(cfg, tokens, &height)
	if err != nil {
		return nil, err
	}
	debt, err := e.market.BorrowerDebt(borrower)
	if err != nil {
		return nil, err
	}
	if debt.Cmp(limit) <= 0 {
		return nil, ErrSolvent
	}

	plan, err := e.pricer.SeizurePlan(borrower, debt, limit, tokens.Clone())
	if err != nil {
		return nil, err
	}
	if len(plan) == 0 {
		return nil, ErrInvalidAmount
	}

	instructions := make([]Instruction, 0, len(plan))
	assets := make([]crypto.Address, 0, len(plan))
	for _, seizure := range plan {
		if seizure.Amount == nil || seizure.Amount.Sign() <= 0 {
			return nil, ErrInvalidAmount
		}
		entry, err := e.state.WhitelistEntry(seizure.Asset)
		if err != nil {
			return nil, err
		}
		if entry == nil {
			return nil, ErrNotWhitelisted
		}
		tokens, err = tokens.Sub(seizure.Asset, seizure.Amount)
		if err != nil {
			return nil, err
		}
		assets = append(assets, seizure.Asset)
		instructions = append(instructions, SeizeCollateral{
			Custody:    entry.Custody,
			Borrower:   borrower,
			Liquidator: cfg.LiquidationContract,
			Asset:      seizure.Asset,
			Amount:     seizure.Amount,
		})
	}
	if err := e.state.PutCollaterals(borrower, tokens); err != nil {
		return nil, err
	}
	e.emitter.Emit(events.CollateralSeized{
		Borrower:   borrower,
		Liquidator: caller,
		Assets:     assets,
		Amounts:    amountsOf(plan),
	})
	return instructions, nil
}
