package overseer

import "errors"

var (
	// ErrUnauthorized rejects a caller lacking the required role for an
	// operation (owner-only commands, market-only callbacks).
	ErrUnauthorized = errors.New("overseer: unauthorized")
	// ErrNotInitialized is returned when a message arrives before genesis.
	ErrNotInitialized = errors.New("overseer: not initialized")
	// ErrAlreadyInitialized rejects a second genesis message.
	ErrAlreadyInitialized = errors.New("overseer: already initialized")
	// ErrNotWhitelisted rejects operations referencing an unlisted asset.
	ErrNotWhitelisted = errors.New("overseer: collateral asset not whitelisted")
	// ErrAlreadyWhitelisted rejects re-registration of a listed asset.
	ErrAlreadyWhitelisted = errors.New("overseer: collateral asset already whitelisted")
	// ErrInvalidAmount rejects zero or malformed quantities.
	ErrInvalidAmount = errors.New("overseer: amount must be positive")
	// ErrInsufficientCollateral rejects unlocks exceeding the locked position.
	ErrInsufficientCollateral = errors.New("overseer: insufficient locked collateral")
	// ErrBorrowLimitExceeded rejects unlocks that would leave outstanding
	// debt above the recomputed borrow limit.
	ErrBorrowLimitExceeded = errors.New("overseer: unlock would exceed borrow limit")
	// ErrStalePrice is returned when the oracle quote is older than the
	// configured price timeframe.
	ErrStalePrice = errors.New("overseer: oracle price is stale")
	// ErrEpochNotElapsed rejects epoch execution before the configured
	// period has passed.
	ErrEpochNotElapsed = errors.New("overseer: epoch period not elapsed")
	// ErrEpochInFlight rejects operations that must not interleave with an
	// epoch awaiting its buffer acknowledgement.
	ErrEpochInFlight = errors.New("overseer: epoch execution awaiting buffer acknowledgement")
	// ErrEpochNotInFlight rejects an epoch-state callback when no epoch is
	// awaiting acknowledgement.
	ErrEpochNotInFlight = errors.New("overseer: no epoch execution in flight")
	// ErrSolvent rejects liquidation of a healthy borrower.
	ErrSolvent = errors.New("overseer: borrower is solvent")
	// ErrInvalidConfig rejects malformed genesis or config updates.
	ErrInvalidConfig = errors.New("overseer: invalid configuration")
	// ErrUnknownMessage rejects a command or query union with no variant set.
	ErrUnknownMessage = errors.New("overseer: unknown message")

	errNilState  = errors.New("overseer: state not configured")
	errNilOracle = errors.New("overseer: price oracle not configured")
	errNilMarket = errors.New("overseer: debt ledger not configured")
	errNilPricer = errors.New("overseer: liquidation pricer not configured")
)
