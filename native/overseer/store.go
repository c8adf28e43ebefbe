package overseer

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"moneymarket/crypto"
	"moneymarket/storage"
)

// Store persists overseer state as JSON rows in an ordered key-value
// database. Whitelist and collateral rows are keyed by raw address bytes so
// database iteration order matches the address-ascending pagination order the
// queries require.
type Store struct {
	db storage.Database
}

// NewStore wraps the provided database.
func NewStore(db storage.Database) *Store {
	return &Store{db: db}
}

func (s *Store) getJSON(key []byte, out interface{}) (bool, error) {
	raw, err := s.db.Get(key)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("overseer: decode %q: %w", key, err)
	}
	return true, nil
}

func (s *Store) putJSON(key []byte, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("overseer: encode %q: %w", key, err)
	}
	return s.db.Put(key, raw)
}

// Config loads the stored configuration, returning nil before genesis.
func (s *Store) Config() (*Config, error) {
	cfg := new(Config)
	found, err := s.getJSON(keyConfig, cfg)
	if err != nil || !found {
		return nil, err
	}
	return cfg, nil
}

// PutConfig persists the configuration singleton.
func (s *Store) PutConfig(cfg *Config) error {
	return s.putJSON(keyConfig, cfg)
}

// EpochState loads the epoch singleton, returning nil before genesis.
func (s *Store) EpochState() (*EpochState, error) {
	es := new(EpochState)
	found, err := s.getJSON(keyEpochState, es)
	if err != nil || !found {
		return nil, err
	}
	es.ensureDefaults()
	return es, nil
}

// PutEpochState persists the epoch singleton.
func (s *Store) PutEpochState(es *EpochState) error {
	return s.putJSON(keyEpochState, es)
}

// WhitelistEntry loads the listing for an asset, returning nil when the
// asset has never been whitelisted.
func (s *Store) WhitelistEntry(asset crypto.Address) (*WhitelistEntry, error) {
	entry := new(WhitelistEntry)
	found, err := s.getJSON(whitelistKey(asset), entry)
	if err != nil || !found {
		return nil, err
	}
	return entry, nil
}

// PutWhitelistEntry persists a listing keyed by its asset address.
func (s *Store) PutWhitelistEntry(entry *WhitelistEntry) error {
	return s.putJSON(whitelistKey(entry.Asset), entry)
}

// NextWhitelistIndex increments and returns the registration sequence
// counter.
func (s *Store) NextWhitelistIndex() (uint64, error) {
	var next uint64
	raw, err := s.db.Get(keyWhitelistSeq)
	switch {
	case errors.Is(err, storage.ErrKeyNotFound):
		next = 0
	case err != nil:
		return 0, err
	case len(raw) == 8:
		next = binary.BigEndian.Uint64(raw)
	}
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, next+1)
	if err := s.db.Put(keyWhitelistSeq, buf); err != nil {
		return 0, err
	}
	return next, nil
}

// WhitelistEntries returns up to limit listings ordered by asset address
// ascending, strictly after the cursor when given.
func (s *Store) WhitelistEntries(startAfter *crypto.Address, limit int) ([]WhitelistEntry, error) {
	var after []byte
	if startAfter != nil {
		after = whitelistKey(*startAfter)
	}
	entries := make([]WhitelistEntry, 0, limit)
	var decodeErr error
	err := s.db.Iterate(prefixWhitelist, after, func(_, value []byte) bool {
		var entry WhitelistEntry
		if decodeErr = json.Unmarshal(value, &entry); decodeErr != nil {
			return false
		}
		entries = append(entries, entry)
		return len(entries) < limit
	})
	if err != nil {
		return nil, err
	}
	if decodeErr != nil {
		return nil, decodeErr
	}
	return entries, nil
}

// Collaterals loads a borrower's position set, returning nil when the
// borrower holds no collateral.
func (s *Store) Collaterals(borrower crypto.Address) (Tokens, error) {
	var tokens Tokens
	found, err := s.getJSON(collateralKey(borrower), &tokens)
	if err != nil || !found {
		return nil, err
	}
	return tokens, nil
}

// PutCollaterals persists a borrower's position set, deleting the row when
// the set is empty so no zero rows dangle.
func (s *Store) PutCollaterals(borrower crypto.Address, tokens Tokens) error {
	if len(tokens) == 0 {
		return s.db.Delete(collateralKey(borrower))
	}
	return s.putJSON(collateralKey(borrower), tokens)
}

// AllCollaterals returns up to limit borrower position sets ordered by
// borrower address ascending, strictly after the cursor when given.
func (s *Store) AllCollaterals(startAfter *crypto.Address, limit int) ([]BorrowerCollaterals, error) {
	var after []byte
	if startAfter != nil {
		after = collateralKey(*startAfter)
	}
	results := make([]BorrowerCollaterals, 0, limit)
	var decodeErr error
	err := s.db.Iterate(prefixCollateral, after, func(key, value []byte) bool {
		raw := key[len(prefixCollateral):]
		borrower, addrErr := crypto.NewAddress(crypto.MMPrefix, raw)
		if addrErr != nil {
			decodeErr = addrErr
			return false
		}
		var tokens Tokens
		if decodeErr = json.Unmarshal(value, &tokens); decodeErr != nil {
			return false
		}
		results = append(results, BorrowerCollaterals{Borrower: borrower, Collaterals: tokens})
		return len(results) < limit
	})
	if err != nil {
		return nil, err
	}
	if decodeErr != nil {
		return nil, decodeErr
	}
	return results, nil
}
