package overseer

import (
	"math/big"
	"testing"

	"moneymarket/core/events"
	"moneymarket/crypto"
	"moneymarket/storage"
)

func addr(last byte) crypto.Address {
	raw := make([]byte, crypto.AddressLength)
	raw[crypto.AddressLength-1] = last
	raw[0] = 0x7f
	return crypto.MustNewAddress(crypto.MMPrefix, raw)
}

var (
	ownerAddr      = addr(0x01)
	oracleAddr     = addr(0x02)
	marketAddr     = addr(0x03)
	liquidatorAddr = addr(0x04)
	collectorAddr  = addr(0x05)
	borrowerAddr   = addr(0x10)
	assetAddr      = addr(0x20)
	asset2Addr     = addr(0x21)
	custodyAddr    = addr(0x30)
	custody2Addr   = addr(0x31)
)

type recordingEmitter struct {
	events []events.Event
}

func (r *recordingEmitter) Emit(evt events.Event) {
	r.events = append(r.events, evt)
}

func (r *recordingEmitter) lastType() string {
	if len(r.events) == 0 {
		return ""
	}
	return r.events[len(r.events)-1].EventType()
}

type testEnv struct {
	engine  *Engine
	store   *Store
	oracle  *ManualPriceOracle
	market  *ManualDebtLedger
	pricer  *ManualLiquidationPricer
	emitted *recordingEmitter
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		store:   NewStore(storage.NewMemDB()),
		oracle:  NewManualPriceOracle(),
		market:  NewManualDebtLedger(),
		pricer:  NewManualLiquidationPricer(OneDec()),
		emitted: &recordingEmitter{},
	}
	env.engine = NewEngine()
	env.engine.SetState(env.store)
	env.engine.SetPriceOracle(env.oracle)
	env.engine.SetDebtLedger(env.market)
	env.engine.SetLiquidationPricer(env.pricer)
	env.engine.SetEmitter(env.emitted)
	env.engine.SetBlockHeight(1)
	return env
}

func defaultInitMsg() InitMsg {
	return InitMsg{
		Owner:                    ownerAddr,
		OracleContract:           oracleAddr,
		MarketContract:           marketAddr,
		LiquidationContract:      liquidatorAddr,
		CollectorContract:        collectorAddr,
		StableDenom:              "uusd",
		EpochPeriod:              100,
		ThresholdDepositRate:     MustDec("0.00000003"),
		TargetDepositRate:        MustDec("0.00000005"),
		BufferDistributionFactor: MustDec("0.2"),
		AncPurchaseFactor:        MustDec("0.1"),
		PriceTimeframe:           60,
	}
}

func (env *testEnv) genesis(t *testing.T) {
	t.Helper()
	if err := env.engine.InitGenesis(defaultInitMsg()); err != nil {
		t.Fatalf("init genesis: %v", err)
	}
}

func (env *testEnv) whitelistAsset(t *testing.T, asset, custody crypto.Address, ltv string) {
	t.Helper()
	_, err := env.engine.RegisterWhitelist(ownerAddr, WhitelistMsg{
		Name:    "Bonded Asset",
		Symbol:  "BASSET",
		Asset:   asset,
		Custody: custody,
		MaxLTV:  MustDec(ltv),
	})
	if err != nil {
		t.Fatalf("register whitelist: %v", err)
	}
}

func (env *testEnv) lock(t *testing.T, borrower crypto.Address, asset crypto.Address, amount int64) {
	t.Helper()
	_, err := env.engine.LockCollateral(borrower, Tokens{{Asset: asset, Amount: big.NewInt(amount)}})
	if err != nil {
		t.Fatalf("lock collateral: %v", err)
	}
}

type pausedView struct{ paused bool }

func (p pausedView) IsPaused(string) bool { return p.paused }
