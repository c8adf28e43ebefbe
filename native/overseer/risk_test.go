package overseer

import (
	"errors"
	"math/big"
	"testing"

	"github.com/holiman/uint256"
)

func TestBorrowLimit(t *testing.T) {
	env := newTestEnv(t)
	env.genesis(t)
	env.whitelistAsset(t, assetAddr, custodyAddr, "0.5")
	env.oracle.Set(assetAddr, MustDec("10"), 1)
	env.lock(t, borrowerAddr, assetAddr, 100)

	limit, err := env.engine.BorrowLimit(borrowerAddr, nil)
	if err != nil {
		t.Fatalf("borrow limit: %v", err)
	}
	if limit.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("expected limit 500, got %s", limit)
	}
}

func TestBorrowLimitSumsPositions(t *testing.T) {
	env := newTestEnv(t)
	env.genesis(t)
	env.whitelistAsset(t, assetAddr, custodyAddr, "0.5")
	env.whitelistAsset(t, asset2Addr, custody2Addr, "0.25")
	env.oracle.Set(assetAddr, MustDec("10"), 1)
	env.oracle.Set(asset2Addr, MustDec("4"), 1)
	env.lock(t, borrowerAddr, assetAddr, 100)
	env.lock(t, borrowerAddr, asset2Addr, 200)

	// 100×10×0.5 + 200×4×0.25 = 500 + 200.
	limit, err := env.engine.BorrowLimit(borrowerAddr, nil)
	if err != nil {
		t.Fatalf("borrow limit: %v", err)
	}
	if limit.Cmp(big.NewInt(700)) != 0 {
		t.Fatalf("expected limit 700, got %s", limit)
	}
}

func TestBorrowLimitFloorsFractions(t *testing.T) {
	env := newTestEnv(t)
	env.genesis(t)
	env.whitelistAsset(t, assetAddr, custodyAddr, "0.6")
	env.oracle.Set(assetAddr, MustDec("0.33"), 1)
	env.lock(t, borrowerAddr, assetAddr, 7)

	// 7 × 0.33 = 2 (floored), × 0.6 = 1 (floored).
	limit, err := env.engine.BorrowLimit(borrowerAddr, nil)
	if err != nil {
		t.Fatalf("borrow limit: %v", err)
	}
	if limit.Cmp(big.NewInt(1)) != 0 {
		t.Fatalf("expected floored limit 1, got %s", limit)
	}
}

func TestBorrowLimitEmptyPosition(t *testing.T) {
	env := newTestEnv(t)
	env.genesis(t)

	limit, err := env.engine.BorrowLimit(borrowerAddr, nil)
	if err != nil {
		t.Fatalf("borrow limit: %v", err)
	}
	if limit.Sign() != 0 {
		t.Fatalf("expected zero limit, got %s", limit)
	}
}

func TestBorrowLimitStalePrice(t *testing.T) {
	env := newTestEnv(t)
	env.genesis(t)
	env.whitelistAsset(t, assetAddr, custodyAddr, "0.5")
	env.oracle.Set(assetAddr, MustDec("10"), 100)
	env.lock(t, borrowerAddr, assetAddr, 100)

	// Quote from block 100 with a 60-block timeframe is stale at 161.
	blockTime := uint64(161)
	if _, err := env.engine.BorrowLimit(borrowerAddr, &blockTime); !errors.Is(err, ErrStalePrice) {
		t.Fatalf("expected ErrStalePrice, got %v", err)
	}

	blockTime = 160
	if _, err := env.engine.BorrowLimit(borrowerAddr, &blockTime); err != nil {
		t.Fatalf("fresh quote rejected: %v", err)
	}

	// Without a block time the freshness check is skipped.
	if _, err := env.engine.BorrowLimit(borrowerAddr, nil); err != nil {
		t.Fatalf("unchecked query failed: %v", err)
	}
}

func TestBorrowLimitSaturates(t *testing.T) {
	env := newTestEnv(t)
	env.genesis(t)
	env.whitelistAsset(t, assetAddr, custodyAddr, "1")
	env.oracle.Set(assetAddr, MustDec("2"), 1)

	huge := new(big.Int).Lsh(big.NewInt(1), 260)
	if err := env.store.PutCollaterals(borrowerAddr, Tokens{{Asset: assetAddr, Amount: huge}}); err != nil {
		t.Fatalf("seed position: %v", err)
	}

	limit, err := env.engine.BorrowLimit(borrowerAddr, nil)
	if err != nil {
		t.Fatalf("borrow limit: %v", err)
	}
	max := new(uint256.Int).SetAllOne().ToBig()
	if limit.Cmp(max) != 0 {
		t.Fatalf("expected saturated limit, got %s", limit)
	}
}
