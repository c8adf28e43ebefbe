package overseer

import (
	"encoding/json"
	"math/big"
	"strings"

	"moneymarket/crypto"
)

// InitMsg is the genesis configuration message.
type InitMsg struct {
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

// UpdateConfigMsg is an owner-only partial configuration update. Nil fields
// are left unchanged.
type UpdateConfigMsg struct {
	Owner                    *crypto.Address `json:"owner_addr,omitempty"`
	OracleContract           *crypto.Address `json:"oracle_contract,omitempty"`
	LiquidationContract      *crypto.Address `json:"liquidation_contract,omitempty"`
	ThresholdDepositRate     *Dec            `json:"threshold_deposit_rate,omitempty"`
	TargetDepositRate        *Dec            `json:"target_deposit_rate,omitempty"`
	BufferDistributionFactor *Dec            `json:"buffer_distribution_factor,omitempty"`
	AncPurchaseFactor        *Dec            `json:"anc_purchase_factor,omitempty"`
	EpochPeriod              *uint64         `json:"epoch_period,omitempty"`
	PriceTimeframe           *uint64         `json:"price_timeframe,omitempty"`
}

// WhitelistMsg registers a new collateral listing.
type WhitelistMsg struct {
	Name    string         `json:"name"`
	Symbol  string         `json:"symbol"`
	Asset   crypto.Address `json:"collateral_token"`
	Custody crypto.Address `json:"custody_contract"`
	MaxLTV  Dec            `json:"max_ltv"`
}

// UpdateWhitelistMsg partially updates an existing listing.
type UpdateWhitelistMsg struct {
	Asset   crypto.Address  `json:"collateral_token"`
	Custody *crypto.Address `json:"custody_contract,omitempty"`
	MaxLTV  *Dec            `json:"max_ltv,omitempty"`
}

// UpdateEpochStateMsg is the market contract's settlement acknowledgement.
type UpdateEpochStateMsg struct {
	InterestBuffer *big.Int
}

// MarshalJSON encodes the interest buffer as a decimal string, matching the
// wire format of every other token amount.
func (m UpdateEpochStateMsg) MarshalJSON() ([]byte, error) {
	buffer := m.InterestBuffer
	if buffer == nil {
		buffer = big.NewInt(0)
	}
	return json.Marshal(struct {
		InterestBuffer string `json:"interest_buffer"`
	}{buffer.String()})
}

// UnmarshalJSON decodes the string-encoded interest buffer.
func (m *UpdateEpochStateMsg) UnmarshalJSON(data []byte) error {
	var raw struct {
		InterestBuffer string `json:"interest_buffer"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	buffer, ok := new(big.Int).SetString(strings.TrimSpace(raw.InterestBuffer), 10)
	if !ok || buffer.Sign() < 0 {
		return ErrInvalidAmount
	}
	m.InterestBuffer = buffer
	return nil
}

// LockCollateralMsg locks a batch of collateral for the caller.
type LockCollateralMsg struct {
	Collaterals Tokens `json:"collaterals"`
}

// UnlockCollateralMsg unlocks a batch of collateral for the caller.
type UnlockCollateralMsg struct {
	Collaterals Tokens `json:"collaterals"`
}

// LiquidateCollateralMsg triggers liquidation of an insolvent borrower.
type LiquidateCollateralMsg struct {
	Borrower crypto.Address `json:"borrower"`
}

// MigrateMsg reinitializes the deposit-rate configuration.
type MigrateMsg struct {
	TargetDepositRate    Dec `json:"target_deposit_rate"`
	ThresholdDepositRate Dec `json:"threshold_deposit_rate"`
}

// ExecuteMsg is the inbound command union. Exactly one field is set.
type ExecuteMsg struct {
	UpdateConfig           *UpdateConfigMsg        `json:"update_config,omitempty"`
	Whitelist              *WhitelistMsg           `json:"whitelist,omitempty"`
	UpdateWhitelist        *UpdateWhitelistMsg     `json:"update_whitelist,omitempty"`
	ExecuteEpochOperations *struct{}               `json:"execute_epoch_operations,omitempty"`
	UpdateEpochState       *UpdateEpochStateMsg    `json:"update_epoch_state,omitempty"`
	LockCollateral         *LockCollateralMsg      `json:"lock_collateral,omitempty"`
	UnlockCollateral       *UnlockCollateralMsg    `json:"unlock_collateral,omitempty"`
	LiquidateCollateral    *LiquidateCollateralMsg `json:"liquidate_collateral,omitempty"`
	Migrate                *MigrateMsg             `json:"migrate,omitempty"`
}

// QueryMsg is the inbound query union. Exactly one field is set.
type QueryMsg struct {
	Config         *struct{}            `json:"config,omitempty"`
	EpochState     *struct{}            `json:"epoch_state,omitempty"`
	Whitelist      *WhitelistQuery      `json:"whitelist,omitempty"`
	Collaterals    *CollateralsQuery    `json:"collaterals,omitempty"`
	AllCollaterals *AllCollateralsQuery `json:"all_collaterals,omitempty"`
	BorrowLimit    *BorrowLimitQuery    `json:"borrow_limit,omitempty"`
}

// WhitelistQuery selects a single listing by asset, or a page of listings
// ordered by asset address ascending.
type WhitelistQuery struct {
	Asset      *crypto.Address `json:"collateral_token,omitempty"`
	StartAfter *crypto.Address `json:"start_after,omitempty"`
	Limit      *uint32         `json:"limit,omitempty"`
}

// CollateralsQuery selects one borrower's locked positions.
type CollateralsQuery struct {
	Borrower crypto.Address `json:"borrower"`
}

// AllCollateralsQuery pages over every borrower's positions.
type AllCollateralsQuery struct {
	StartAfter *crypto.Address `json:"start_after,omitempty"`
	Limit      *uint32         `json:"limit,omitempty"`
}

// BorrowLimitQuery computes a borrower's borrow limit, optionally enforcing
// oracle freshness against the given block time.
type BorrowLimitQuery struct {
	Borrower  crypto.Address `json:"borrower"`
	BlockTime *uint64        `json:"block_time,omitempty"`
}

// WhitelistResponse lists registry entries.
type WhitelistResponse struct {
	Elems []WhitelistEntry `json:"elems"`
}

// AllCollateralsResponse pages borrower position sets.
type AllCollateralsResponse struct {
	AllCollaterals []BorrowerCollaterals `json:"all_collaterals"`
}

// BorrowLimitResponse carries a computed borrow limit.
type BorrowLimitResponse struct {
	Borrower    crypto.Address `json:"borrower"`
	BorrowLimit string         `json:"borrow_limit"`
}

// ExecuteReceipt is the result of a successful command: the registry index
// assigned by a whitelist registration, when any, and the outbound
// instructions to dispatch.
type ExecuteReceipt struct {
	Index        *uint64
	Instructions []Instruction
}

type instructionEnvelope struct {
	Type string          `json:"type"`
	Body json.RawMessage `json:"body"`
}

// MarshalJSON renders each instruction as a typed envelope so receivers can
// route without probing payload shapes.
func (r ExecuteReceipt) MarshalJSON() ([]byte, error) {
	envelopes := make([]instructionEnvelope, 0, len(r.Instructions))
	for _, instr := range r.Instructions {
		body, err := json.Marshal(instr)
		if err != nil {
			return nil, err
		}
		envelopes = append(envelopes, instructionEnvelope{Type: instr.InstructionType(), Body: body})
	}
	return json.Marshal(struct {
		Index        *uint64               `json:"index,omitempty"`
		Instructions []instructionEnvelope `json:"instructions"`
	}{Index: r.Index, Instructions: envelopes})
}

// Dispatch routes one command union to the engine operation it names. The
// caller is the authenticated sender of the message. Messages are processed
// one at a time; a second dispatch blocks until the first commits.
func (e *Engine) Dispatch(caller crypto.Address, msg ExecuteMsg) (*ExecuteReceipt, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dispatch(caller, msg)
}

// DispatchAt binds the message to the given block height for the duration of
// its execution, so concurrent requests cannot observe each other's heights.
// A nil height leaves the engine's current height in place.
func (e *Engine) DispatchAt(caller crypto.Address, height *uint64, msg ExecuteMsg) (*ExecuteReceipt, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if height != nil {
		e.blockHeight = *height
	}
	return e.dispatch(caller, msg)
}

func (e *Engine) dispatch(caller crypto.Address, msg ExecuteMsg) (*ExecuteReceipt, error) {
	switch {
	case msg.UpdateConfig != nil:
		if err := e.updateConfig(caller, *msg.UpdateConfig); err != nil {
			return nil, err
		}
		return &ExecuteReceipt{}, nil
	case msg.Whitelist != nil:
		entry, err := e.registerWhitelist(caller, *msg.Whitelist)
		if err != nil {
			return nil, err
		}
		index := entry.Index
		return &ExecuteReceipt{Index: &index}, nil
	case msg.UpdateWhitelist != nil:
		if _, err := e.updateWhitelist(caller, *msg.UpdateWhitelist); err != nil {
			return nil, err
		}
		return &ExecuteReceipt{}, nil
	case msg.ExecuteEpochOperations != nil:
		instructions, err := e.executeEpochOperations()
		if err != nil {
			return nil, err
		}
		return &ExecuteReceipt{Instructions: instructions}, nil
	case msg.UpdateEpochState != nil:
		if err := e.updateEpochState(caller, *msg.UpdateEpochState); err != nil {
			return nil, err
		}
		return &ExecuteReceipt{}, nil
	case msg.LockCollateral != nil:
		instructions, err := e.lockCollateral(caller, msg.LockCollateral.Collaterals)
		if err != nil {
			return nil, err
		}
		return &ExecuteReceipt{Instructions: instructions}, nil
	case msg.UnlockCollateral != nil:
		instructions, err := e.unlockCollateral(caller, msg.UnlockCollateral.Collaterals)
		if err != nil {
			return nil, err
		}
		return &ExecuteReceipt{Instructions: instructions}, nil
	case msg.LiquidateCollateral != nil:
		instructions, err := e.liquidateCollateral(caller, msg.LiquidateCollateral.Borrower)
		if err != nil {
			return nil, err
		}
		return &ExecuteReceipt{Instructions: instructions}, nil
	case msg.Migrate != nil:
		if err := e.migrate(caller, *msg.Migrate); err != nil {
			return nil, err
		}
		return &ExecuteReceipt{}, nil
	default:
		return nil, ErrUnknownMessage
	}
}

// DispatchQuery routes one query union to the read path it names and returns
// the JSON-marshalable response.
func (e *Engine) DispatchQuery(msg QueryMsg) (interface{}, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dispatchQuery(msg)
}

func (e *Engine) dispatchQuery(msg QueryMsg) (interface{}, error) {
	switch {
	case msg.Config != nil:
		return e.queryConfig()
	case msg.EpochState != nil:
		return e.queryEpochState()
	case msg.Whitelist != nil:
		elems, err := e.queryWhitelist(msg.Whitelist.Asset, msg.Whitelist.StartAfter, msg.Whitelist.Limit)
		if err != nil {
			return nil, err
		}
		return WhitelistResponse{Elems: elems}, nil
	case msg.Collaterals != nil:
		return e.queryCollaterals(msg.Collaterals.Borrower)
	case msg.AllCollaterals != nil:
		all, err := e.queryAllCollaterals(msg.AllCollaterals.StartAfter, msg.AllCollaterals.Limit)
		if err != nil {
			return nil, err
		}
		if all == nil {
			all = []BorrowerCollaterals{}
		}
		return AllCollateralsResponse{AllCollaterals: all}, nil
	case msg.BorrowLimit != nil:
		limit, err := e.borrowLimit(msg.BorrowLimit.Borrower, msg.BorrowLimit.BlockTime)
		if err != nil {
			return nil, err
		}
		return BorrowLimitResponse{
			Borrower:    msg.BorrowLimit.Borrower,
			BorrowLimit: limit.String(),
		}, nil
	default:
		return nil, ErrUnknownMessage
	}
}
