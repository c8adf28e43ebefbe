package overseer

import (
	"sync"

	"moneymarket/core/events"
	"moneymarket/crypto"
	nativecommon "moneymarket/native/common"
)

const moduleName = "overseer"

const (
	defaultPageLimit = 10
	maxPageLimit     = 30
)

// engineState is the narrow persistence surface the engine depends on. The
// production implementation is Store; tests provide an in-memory mock.
type engineState interface {
	Config() (*Config, error)
	PutConfig(*Config) error
	EpochState() (*EpochState, error)
	PutEpochState(*EpochState) error
	WhitelistEntry(asset crypto.Address) (*WhitelistEntry, error)
	PutWhitelistEntry(*WhitelistEntry) error
	NextWhitelistIndex() (uint64, error)
	WhitelistEntries(startAfter *crypto.Address, limit int) ([]WhitelistEntry, error)
	Collaterals(borrower crypto.Address) (Tokens, error)
	PutCollaterals(borrower crypto.Address, tokens Tokens) error
	AllCollaterals(startAfter *crypto.Address, limit int) ([]BorrowerCollaterals, error)
}

// Engine orchestrates the overseer state transitions: the collateral
// whitelist and ledger, the solvency checks, the liquidation trigger and the
// epoch settlement state machine. One inbound message is processed to
// completion before the next; every operation either fully commits or
// returns an error with no partial mutation persisted. The mutex enforces
// that ordering, so the engine is safe to share across handler goroutines.
type Engine struct {
	mu          sync.Mutex
	state       engineState
	oracle      PriceOracle
	market      DebtLedger
	pricer      LiquidationPricer
	emitter     events.Emitter
	pauses      nativecommon.PauseView
	blockHeight uint64
	liquidating map[string]struct{}
}

// NewEngine constructs an engine with no collaborators wired. SetState must
// be called before any operation.
func NewEngine() *Engine {
	return &Engine{
		emitter:     events.NoopEmitter{},
		liquidating: make(map[string]struct{}),
	}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetPriceOracle wires the oracle collaborator consumed by the risk engine.
func (e *Engine) SetPriceOracle(oracle PriceOracle) { e.oracle = oracle }

// SetDebtLedger wires the market collaborator consumed by the solvency and
// epoch paths.
func (e *Engine) SetDebtLedger(market DebtLedger) { e.market = market }

// SetLiquidationPricer wires the liquidation-amount model collaborator.
func (e *Engine) SetLiquidationPricer(pricer LiquidationPricer) { e.pricer = pricer }

// SetEmitter configures the event emitter used to broadcast state changes.
// Passing nil resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetPauses wires the administrative pause switches.
func (e *Engine) SetPauses(p nativecommon.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

// SetBlockHeight records the block height subsequent operations execute at.
func (e *Engine) SetBlockHeight(height uint64) {
	if e == nil {
		return
	}
	e.mu.Lock()
	e.blockHeight = height
	e.mu.Unlock()
}

// BlockHeight returns the currently configured block height.
func (e *Engine) BlockHeight() uint64 {
	if e == nil {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.blockHeight
}

func (e *Engine) loadConfig() (*Config, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	cfg, err := e.state.Config()
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, ErrNotInitialized
	}
	return cfg, nil
}

func (e *Engine) loadEpochState() (*EpochState, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	es, err := e.state.EpochState()
	if err != nil {
		return nil, err
	}
	if es == nil {
		return nil, ErrNotInitialized
	}
	es.ensureDefaults()
	return es, nil
}

// InitGenesis stores the initial configuration and seeds the epoch state
// with the target deposit rate. It fails when the overseer was already
// initialized.
func (e *Engine) InitGenesis(msg InitMsg) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.initGenesis(msg)
}

func (e *Engine) initGenesis(msg InitMsg) error {
	existing, err := e.state.Config()
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrAlreadyInitialized
	}
	cfg := &Config{
		Owner:                    msg.Owner,
		OracleContract:           msg.OracleContract,
		MarketContract:           msg.MarketContract,
		LiquidationContract:      msg.LiquidationContract,
		CollectorContract:        msg.CollectorContract,
		StableDenom:              msg.StableDenom,
		EpochPeriod:              msg.EpochPeriod,
		ThresholdDepositRate:     msg.ThresholdDepositRate.Clone(),
		TargetDepositRate:        msg.TargetDepositRate.Clone(),
		BufferDistributionFactor: msg.BufferDistributionFactor.Clone(),
		AncPurchaseFactor:        msg.AncPurchaseFactor.Clone(),
		PriceTimeframe:           msg.PriceTimeframe,
	}
	if err := validateConfig(cfg); err != nil {
		return err
	}
	if err := e.state.PutConfig(cfg); err != nil {
		return err
	}
	es := &EpochState{
		DepositRate:      msg.TargetDepositRate.Clone(),
		LastEpochHeight:  e.blockHeight,
		PrevExchangeRate: OneDec(),
		Phase:            EpochIdle,
	}
	es.ensureDefaults()
	return e.state.PutEpochState(es)
}

func validateConfig(cfg *Config) error {
	switch {
	case cfg.Owner.IsZero(),
		cfg.OracleContract.IsZero(),
		cfg.MarketContract.IsZero(),
		cfg.LiquidationContract.IsZero(),
		cfg.CollectorContract.IsZero():
		return ErrInvalidConfig
	case cfg.StableDenom == "":
		return ErrInvalidConfig
	case cfg.EpochPeriod == 0:
		return ErrInvalidConfig
	case cfg.PriceTimeframe == 0:
		return ErrInvalidConfig
	case cfg.BufferDistributionFactor.GT(OneDec()),
		cfg.AncPurchaseFactor.GT(OneDec()):
		return ErrInvalidConfig
	}
	return nil
}

// UpdateConfig applies an owner-only partial configuration update. Updates
// are rejected while an epoch settlement is awaiting its buffer
// acknowledgement so epoch execution never observes a half-applied config.
func (e *Engine) UpdateConfig(caller crypto.Address, msg UpdateConfigMsg) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.updateConfig(caller, msg)
}

func (e *Engine) updateConfig(caller crypto.Address, msg UpdateConfigMsg) error {
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	cfg, err := e.loadConfig()
	if err != nil {
		return err
	}
	if !caller.Equal(cfg.Owner) {
		return ErrUnauthorized
	}
	es, err := e.loadEpochState()
	if err != nil {
		return err
	}
	if es.Phase == EpochAwaitingBufferAck {
		return ErrEpochInFlight
	}
	if msg.Owner != nil {
		cfg.Owner = *msg.Owner
	}
	if msg.OracleContract != nil {
		cfg.OracleContract = *msg.OracleContract
	}
	if msg.LiquidationContract != nil {
		cfg.LiquidationContract = *msg.LiquidationContract
	}
	if msg.ThresholdDepositRate != nil {
		cfg.ThresholdDepositRate = msg.ThresholdDepositRate.Clone()
	}
	if msg.TargetDepositRate != nil {
		cfg.TargetDepositRate = msg.TargetDepositRate.Clone()
	}
	if msg.BufferDistributionFactor != nil {
		cfg.BufferDistributionFactor = msg.BufferDistributionFactor.Clone()
	}
	if msg.AncPurchaseFactor != nil {
		cfg.AncPurchaseFactor = msg.AncPurchaseFactor.Clone()
	}
	if msg.EpochPeriod != nil {
		cfg.EpochPeriod = *msg.EpochPeriod
	}
	if msg.PriceTimeframe != nil {
		cfg.PriceTimeframe = *msg.PriceTimeframe
	}
	if err := validateConfig(cfg); err != nil {
		return err
	}
	if err := e.state.PutConfig(cfg); err != nil {
		return err
	}
	e.emitter.Emit(events.ConfigUpdated{Owner: cfg.Owner})
	return nil
}

// Migrate reinitializes only the two deposit-rate fields, preserving all
// other persisted state. Owner-only, and rejected while an epoch settlement
// is awaiting its buffer acknowledgement.
func (e *Engine) Migrate(caller crypto.Address, msg MigrateMsg) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.migrate(caller, msg)
}

func (e *Engine) migrate(caller crypto.Address, msg MigrateMsg) error {
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	cfg, err := e.loadConfig()
	if err != nil {
		return err
	}
	if !caller.Equal(cfg.Owner) {
		return ErrUnauthorized
	}
	es, err := e.loadEpochState()
	if err != nil {
		return err
	}
	if es.Phase == EpochAwaitingBufferAck {
		return ErrEpochInFlight
	}
	cfg.TargetDepositRate = msg.TargetDepositRate.Clone()
	cfg.ThresholdDepositRate = msg.ThresholdDepositRate.Clone()
	return e.state.PutConfig(cfg)
}

// QueryConfig returns the stored configuration.
func (e *Engine) QueryConfig() (*Config, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.queryConfig()
}

func (e *Engine) queryConfig() (*Config, error) {
	cfg, err := e.loadConfig()
	if err != nil {
		return nil, err
	}
	return cfg.Clone(), nil
}

func clampLimit(limit *uint32) int {
	if limit == nil {
		return defaultPageLimit
	}
	if *limit == 0 {
		return defaultPageLimit
	}
	if *limit > maxPageLimit {
		return maxPageLimit
	}
	return int(*limit)
}
