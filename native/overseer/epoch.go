package overseer

import (
	"math/big"

	"moneymarket/core/events"
	"moneymarket/crypto"
	nativecommon "moneymarket/native/common"
)

// ExecuteEpochOperations runs the periodic settlement. Callable by anyone
// once the configured epoch period has elapsed since the last executed
// epoch. It fans out reward distribution to every custody delegate, derives
// the effective per-block deposit rate from the market's exchange-rate
// drift, and splits the interest buffer between a depositor transfer and a
// token purchase when the rate undershoots the threshold.
//
// The settlement spans two messages: this call stages the pending rate
// snapshot and parks the controller in the awaiting-acknowledgement phase;
// the market's UpdateEpochState callback finalizes it. A second execution
// before the callback lands is rejected.
func (e *Engine) ExecuteEpochOperations() ([]Instruction, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.executeEpochOperations()
}

func (e *Engine) executeEpochOperations() ([]Instruction, error) {
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
	es, err := e.loadEpochState()
	if err != nil {
		return nil, err
	}
	if es.Phase == EpochAwaitingBufferAck {
		return nil, ErrEpochInFlight
	}
	if e.blockHeight < es.LastEpochHeight+cfg.EpochPeriod {
		return nil, ErrEpochNotElapsed
	}

	custodians, err := e.whitelistCustodians()
	if err != nil {
		return nil, err
	}
	instructions := make([]Instruction, 0, len(custodians)+2)
	for _, custody := range custodians {
		instructions = append(instructions, DistributeRewards{Custody: custody})
	}

	exchangeRate, err := e.market.ExchangeRate()
	if err != nil {
		return nil, err
	}
	elapsed := e.blockHeight - es.LastEpochHeight
	depositRate := DecFromRatio(exchangeRate.Sub(es.PrevExchangeRate).bigInt(), es.PrevExchangeRate.bigInt()).QuoUint64(elapsed)

	bufferTransfer := big.NewInt(0)
	tokenPurchase := big.NewInt(0)
	buffer := es.InterestBuffer
	if depositRate.LT(cfg.ThresholdDepositRate) && !cfg.BufferDistributionFactor.IsZero() {
		bufferTransfer = cfg.BufferDistributionFactor.MulInt(buffer)
	}
	remainder := new(big.Int).Sub(buffer, bufferTransfer)
	if remainder.Sign() > 0 && !cfg.AncPurchaseFactor.IsZero() {
		tokenPurchase = cfg.AncPurchaseFactor.MulInt(remainder)
	}
	if bufferTransfer.Sign() > 0 {
		instructions = append(instructions, TransferBuffer{
			Market: cfg.MarketContract,
			Denom:  cfg.StableDenom,
			Amount: bufferTransfer,
		})
	}
	if tokenPurchase.Sign() > 0 {
		instructions = append(instructions, PurchaseTokens{
			Collector: cfg.CollectorContract,
			Denom:     cfg.StableDenom,
			Amount:    tokenPurchase,
		})
	}

	es.Phase = EpochAwaitingBufferAck
	es.PendingDepositRate = depositRate.Clone()
	es.PendingExchangeRate = exchangeRate.Clone()
	if err := e.state.PutEpochState(es); err != nil {
		return nil, err
	}
	e.emitter.Emit(events.EpochExecuted{
		Height:         e.blockHeight,
		BufferTransfer: bufferTransfer,
		TokenPurchase:  tokenPurchase,
	})
	return instructions, nil
}

// UpdateEpochState is the market contract's acknowledgement callback: it
// reports the interest buffer remaining after the epoch transfer and
// finalizes the staged rate snapshot. Only the configured market contract
// may call it, and only while a settlement is awaiting acknowledgement.
func (e *Engine) UpdateEpochState(caller crypto.Address, msg UpdateEpochStateMsg) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.updateEpochState(caller, msg)
}

func (e *Engine) updateEpochState(caller crypto.Address, msg UpdateEpochStateMsg) error {
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	cfg, err := e.loadConfig()
	if err != nil {
		return err
	}
	if !caller.Equal(cfg.MarketContract) {
		return ErrUnauthorized
	}
	es, err := e.loadEpochState()
	if err != nil {
		return err
	}
	if es.Phase != EpochAwaitingBufferAck {
		return ErrEpochNotInFlight
	}
	if msg.InterestBuffer == nil || msg.InterestBuffer.Sign() < 0 {
		return ErrInvalidAmount
	}

	es.DepositRate = es.PendingDepositRate.Clone()
	es.PrevExchangeRate = es.PendingExchangeRate.Clone()
	es.InterestBuffer = new(big.Int).Set(msg.InterestBuffer)
	es.LastEpochHeight = e.blockHeight
	es.Phase = EpochIdle
	es.PendingDepositRate = ZeroDec()
	es.PendingExchangeRate = ZeroDec()
	if err := e.state.PutEpochState(es); err != nil {
		return err
	}
	e.emitter.Emit(events.EpochStateUpdated{
		Height:         e.blockHeight,
		DepositRate:    es.DepositRate.String(),
		InterestBuffer: new(big.Int).Set(es.InterestBuffer),
	})
	return nil
}

// QueryEpochState returns the persisted epoch settlement state.
func (e *Engine) QueryEpochState() (*EpochState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.queryEpochState()
}

func (e *Engine) queryEpochState() (*EpochState, error) {
	es, err := e.loadEpochState()
	if err != nil {
		return nil, err
	}
	return es.Clone(), nil
}
