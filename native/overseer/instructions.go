package overseer

import (
	"encoding/json"
	"math/big"

	"moneymarket/crypto"
)

// Instruction is an outbound fire-and-forget request to a collaborator
// contract. Instructions are returned in the execute receipt and dispatched
// by the surrounding transaction machinery in a later, separate transaction;
// the overseer never waits on them synchronously.
type Instruction interface {
	InstructionType() string
}

const (
	InstrRecordDeposit     = "custody.record_deposit"
	InstrRecordWithdrawal  = "custody.record_withdrawal"
	InstrSeizeCollateral   = "custody.seize_collateral"
	InstrDistributeRewards = "custody.distribute_rewards"
	InstrTransferBuffer    = "market.transfer_buffer"
	InstrPurchaseTokens    = "collector.purchase_tokens"
)

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// RecordDeposit instructs a custody delegate to record locked collateral.
type RecordDeposit struct {
	Custody  crypto.Address
	Borrower crypto.Address
	Asset    crypto.Address
	Amount   *big.Int
}

func (RecordDeposit) InstructionType() string { return InstrRecordDeposit }

// MarshalJSON encodes the amount as a decimal string.
func (i RecordDeposit) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Custody  crypto.Address `json:"custody_contract"`
		Borrower crypto.Address `json:"borrower"`
		Asset    crypto.Address `json:"asset"`
		Amount   string         `json:"amount"`
	}{i.Custody, i.Borrower, i.Asset, amountString(i.Amount)})
}

// RecordWithdrawal instructs a custody delegate to release unlocked
// collateral back to the borrower.
type RecordWithdrawal struct {
	Custody  crypto.Address
	Borrower crypto.Address
	Asset    crypto.Address
	Amount   *big.Int
}

func (RecordWithdrawal) InstructionType() string { return InstrRecordWithdrawal }

// MarshalJSON encodes the amount as a decimal string.
func (i RecordWithdrawal) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Custody  crypto.Address `json:"custody_contract"`
		Borrower crypto.Address `json:"borrower"`
		Asset    crypto.Address `json:"asset"`
		Amount   string         `json:"amount"`
	}{i.Custody, i.Borrower, i.Asset, amountString(i.Amount)})
}

// SeizeCollateral instructs a custody delegate to execute a liquidation
// seizure against a borrower.
type SeizeCollateral struct {
	Custody    crypto.Address
	Borrower   crypto.Address
	Liquidator crypto.Address
	Asset      crypto.Address
	Amount     *big.Int
}

func (SeizeCollateral) InstructionType() string { return InstrSeizeCollateral }

// MarshalJSON encodes the amount as a decimal string.
func (i SeizeCollateral) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Custody    crypto.Address `json:"custody_contract"`
		Borrower   crypto.Address `json:"borrower"`
		Liquidator crypto.Address `json:"liquidator"`
		Asset      crypto.Address `json:"asset"`
		Amount     string         `json:"amount"`
	}{i.Custody, i.Borrower, i.Liquidator, i.Asset, amountString(i.Amount)})
}

// DistributeRewards instructs a custody delegate to forward accrued staking
// rewards into the interest buffer.
type DistributeRewards struct {
	Custody crypto.Address `json:"custody_contract"`
}

func (DistributeRewards) InstructionType() string { return InstrDistributeRewards }

// TransferBuffer instructs the market contract to receive a share of the
// interest buffer for distribution to depositors.
type TransferBuffer struct {
	Market crypto.Address
	Denom  string
	Amount *big.Int
}

func (TransferBuffer) InstructionType() string { return InstrTransferBuffer }

// MarshalJSON encodes the amount as a decimal string.
func (i TransferBuffer) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Market crypto.Address `json:"market_contract"`
		Denom  string         `json:"denom"`
		Amount string         `json:"amount"`
	}{i.Market, i.Denom, amountString(i.Amount)})
}

// PurchaseTokens instructs the collector contract to spend a share of the
// interest buffer on token purchase.
type PurchaseTokens struct {
	Collector crypto.Address
	Denom     string
	Amount    *big.Int
}

func (PurchaseTokens) InstructionType() string { return InstrPurchaseTokens }

// MarshalJSON encodes the amount as a decimal string.
func (i PurchaseTokens) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Collector crypto.Address `json:"collector_contract"`
		Denom     string         `json:"denom"`
		Amount    string         `json:"amount"`
	}{i.Collector, i.Denom, amountString(i.Amount)})
}
