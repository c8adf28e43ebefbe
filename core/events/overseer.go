package events

import (
	"math/big"

	"moneymarket/crypto"
)

const (
	EventWhitelistCreated  = "overseer.whitelist.created"
	EventWhitelistUpdated  = "overseer.whitelist.updated"
	EventCollateralLocked  = "overseer.collateral.locked"
	EventCollateralUnlock  = "overseer.collateral.unlocked"
	EventCollateralSeized  = "overseer.collateral.seized"
	EventEpochExecuted     = "overseer.epoch.executed"
	EventEpochStateUpdated = "overseer.epoch.updated"
	EventConfigUpdated     = "overseer.config.updated"
)

// WhitelistCreated signals that a new collateral asset was registered.
type WhitelistCreated struct {
	Asset   crypto.Address
	Custody crypto.Address
	Symbol  string
	Index   uint64
}

func (WhitelistCreated) EventType() string { return EventWhitelistCreated }

// WhitelistUpdated signals a partial update of an existing listing.
type WhitelistUpdated struct {
	Asset   crypto.Address
	Custody crypto.Address
}

func (WhitelistUpdated) EventType() string { return EventWhitelistUpdated }

// CollateralLocked captures a successful lock batch for a borrower.
type CollateralLocked struct {
	Borrower crypto.Address
	Assets   []crypto.Address
	Amounts  []*big.Int
}

func (CollateralLocked) EventType() string { return EventCollateralLocked }

// CollateralUnlocked captures a successful unlock batch for a borrower.
type CollateralUnlocked struct {
	Borrower crypto.Address
	Assets   []crypto.Address
	Amounts  []*big.Int
}

func (CollateralUnlocked) EventType() string { return EventCollateralUnlock }

// CollateralSeized records the positions removed from an undercollateralized
// borrower during liquidation.
type CollateralSeized struct {
	Borrower   crypto.Address
	Liquidator crypto.Address
	Assets     []crypto.Address
	Amounts    []*big.Int
}

func (CollateralSeized) EventType() string { return EventCollateralSeized }

// EpochExecuted signals that epoch operations were issued and the controller
// is awaiting the market buffer acknowledgement.
type EpochExecuted struct {
	Height         uint64
	BufferTransfer *big.Int
	TokenPurchase  *big.Int
}

func (EpochExecuted) EventType() string { return EventEpochExecuted }

// EpochStateUpdated records the finalized epoch settlement.
type EpochStateUpdated struct {
	Height         uint64
	DepositRate    string
	InterestBuffer *big.Int
}

func (EpochStateUpdated) EventType() string { return EventEpochStateUpdated }

// ConfigUpdated signals an owner-driven configuration change.
type ConfigUpdated struct {
	Owner crypto.Address
}

func (ConfigUpdated) EventType() string { return EventConfigUpdated }
