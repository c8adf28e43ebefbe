package overseer

import (
	"math/big"
	"testing"

	"moneymarket/storage"
)

func TestStoreSingletons(t *testing.T) {
	store := NewStore(storage.NewMemDB())

	cfg, err := store.Config()
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	if cfg != nil {
		t.Fatalf("expected nil config before genesis, got %+v", cfg)
	}

	want := defaultInitMsg()
	if err := store.PutConfig(&Config{
		Owner:       want.Owner,
		StableDenom: want.StableDenom,
		EpochPeriod: want.EpochPeriod,
	}); err != nil {
		t.Fatalf("put config: %v", err)
	}
	cfg, err = store.Config()
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	if cfg == nil || !cfg.Owner.Equal(want.Owner) || cfg.EpochPeriod != want.EpochPeriod {
		t.Fatalf("config round trip mismatch: %+v", cfg)
	}

	es, err := store.EpochState()
	if err != nil {
		t.Fatalf("epoch state: %v", err)
	}
	if es != nil {
		t.Fatalf("expected nil epoch state before genesis, got %+v", es)
	}
	if err := store.PutEpochState(&EpochState{
		DepositRate:      MustDec("0.00000005"),
		LastEpochHeight:  7,
		InterestBuffer:   big.NewInt(123),
		PrevExchangeRate: OneDec(),
		Phase:            EpochIdle,
	}); err != nil {
		t.Fatalf("put epoch state: %v", err)
	}
	es, err = store.EpochState()
	if err != nil {
		t.Fatalf("epoch state: %v", err)
	}
	if es.LastEpochHeight != 7 || es.InterestBuffer.Cmp(big.NewInt(123)) != 0 {
		t.Fatalf("epoch state round trip mismatch: %+v", es)
	}
}

func TestStoreWhitelistIndexCounter(t *testing.T) {
	store := NewStore(storage.NewMemDB())
	for want := uint64(0); want < 3; want++ {
		got, err := store.NextWhitelistIndex()
		if err != nil {
			t.Fatalf("next index: %v", err)
		}
		if got != want {
			t.Fatalf("expected index %d, got %d", want, got)
		}
	}
}

func TestStoreWhitelistPagination(t *testing.T) {
	store := NewStore(storage.NewMemDB())
	for i := byte(0); i < 5; i++ {
		entry := &WhitelistEntry{
			Symbol:  "BASSET",
			Asset:   addr(0x20 + i),
			Custody: custodyAddr,
			MaxLTV:  MustDec("0.5"),
			Index:   uint64(i),
		}
		if err := store.PutWhitelistEntry(entry); err != nil {
			t.Fatalf("put entry: %v", err)
		}
	}

	page, err := store.WhitelistEntries(nil, 3)
	if err != nil {
		t.Fatalf("page: %v", err)
	}
	if len(page) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(page))
	}
	for i, entry := range page {
		if !entry.Asset.Equal(addr(0x20 + byte(i))) {
			t.Fatalf("entry %d out of order: %s", i, entry.Asset)
		}
	}

	cursor := page[2].Asset
	rest, err := store.WhitelistEntries(&cursor, 10)
	if err != nil {
		t.Fatalf("rest: %v", err)
	}
	if len(rest) != 2 {
		t.Fatalf("expected 2 remaining entries, got %d", len(rest))
	}
	if !rest[0].Asset.Equal(addr(0x23)) {
		t.Fatalf("cursor not strictly after: %s", rest[0].Asset)
	}
}

func TestStoreCollateralsLifecycle(t *testing.T) {
	store := NewStore(storage.NewMemDB())

	tokens, err := store.Collaterals(borrowerAddr)
	if err != nil {
		t.Fatalf("collaterals: %v", err)
	}
	if tokens != nil {
		t.Fatalf("expected nil position for unknown borrower, got %+v", tokens)
	}

	locked := Tokens{{Asset: assetAddr, Amount: big.NewInt(100)}}
	if err := store.PutCollaterals(borrowerAddr, locked); err != nil {
		t.Fatalf("put: %v", err)
	}
	tokens, err = store.Collaterals(borrowerAddr)
	if err != nil {
		t.Fatalf("collaterals: %v", err)
	}
	if got := tokens.Get(assetAddr); got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("round trip mismatch: %s", got)
	}

	// Writing an empty set removes the row.
	if err := store.PutCollaterals(borrowerAddr, Tokens{}); err != nil {
		t.Fatalf("put empty: %v", err)
	}
	all, err := store.AllCollaterals(nil, 10)
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("emptied row still present: %+v", all)
	}
}

func TestStoreAllCollateralsRebuildsBorrower(t *testing.T) {
	store := NewStore(storage.NewMemDB())
	borrowers := []byte{0x11, 0x10, 0x12}
	for _, b := range borrowers {
		if err := store.PutCollaterals(addr(b), Tokens{{Asset: assetAddr, Amount: big.NewInt(int64(b))}}); err != nil {
			t.Fatalf("put: %v", err)
		}
	}

	all, err := store.AllCollaterals(nil, 10)
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 borrowers, got %d", len(all))
	}
	// Insertion order was shuffled; iteration is address ascending.
	for i, want := range []byte{0x10, 0x11, 0x12} {
		if !all[i].Borrower.Equal(addr(want)) {
			t.Fatalf("position %d: got %s", i, all[i].Borrower)
		}
		if got := all[i].Collaterals.Get(assetAddr); got.Cmp(big.NewInt(int64(want))) != 0 {
			t.Fatalf("position %d amount mismatch: %s", i, got)
		}
	}
}
