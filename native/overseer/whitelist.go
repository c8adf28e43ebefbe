package overseer

import (
	"moneymarket/core/events"
	"moneymarket/crypto"
	nativecommon "moneymarket/native/common"
)

// RegisterWhitelist lists a new collateral asset. Owner-only; an asset can
// be listed at most once and listings are never deleted. The returned entry
// carries the generated registration index.
func (e *Engine) RegisterWhitelist(caller crypto.Address, msg WhitelistMsg) (*WhitelistEntry, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registerWhitelist(caller, msg)
}

func (e *Engine) registerWhitelist(caller crypto.Address, msg WhitelistMsg) (*WhitelistEntry, error) {
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	cfg, err := e.loadConfig()
	if err != nil {
		return nil, err
	}
	if !caller.Equal(cfg.Owner) {
		return nil, ErrUnauthorized
	}
	if msg.Asset.IsZero() || msg.Custody.IsZero() {
		return nil, ErrInvalidConfig
	}
	if msg.MaxLTV.IsZero() || msg.MaxLTV.GT(OneDec()) {
		return nil, ErrInvalidConfig
	}
	existing, err := e.state.WhitelistEntry(msg.Asset)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadyWhitelisted
	}
	index, err := e.state.NextWhitelistIndex()
	if err != nil {
		return nil, err
	}
	entry := &WhitelistEntry{
		Name:    msg.Name,
		Symbol:  msg.Symbol,
		Asset:   msg.Asset,
		Custody: msg.Custody,
		MaxLTV:  msg.MaxLTV.Clone(),
		Index:   index,
	}
	if err := e.state.PutWhitelistEntry(entry); err != nil {
		return nil, err
	}
	e.emitter.Emit(events.WhitelistCreated{
		Asset:   entry.Asset,
		Custody: entry.Custody,
		Symbol:  entry.Symbol,
		Index:   entry.Index,
	})
	return entry.Clone(), nil
}

// UpdateWhitelist applies an owner-only partial update to an existing
// listing. Omitted fields are left unchanged.
func (e *Engine) UpdateWhitelist(caller crypto.Address, msg UpdateWhitelistMsg) (*WhitelistEntry, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.updateWhitelist(caller, msg)
}

func (e *Engine) updateWhitelist(caller crypto.Address, msg UpdateWhitelistMsg) (*WhitelistEntry, error) {
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	cfg, err := e.loadConfig()
	if err != nil {
		return nil, err
	}
	if !caller.Equal(cfg.Owner) {
		return nil, ErrUnauthorized
	}
	entry, err := e.state.WhitelistEntry(msg.Asset)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, ErrNotWhitelisted
	}
	if msg.Custody != nil {
		if msg.Custody.IsZero() {
			return nil, ErrInvalidConfig
		}
		entry.Custody = *msg.Custody
	}
	if msg.MaxLTV != nil {
		if msg.MaxLTV.IsZero() || msg.MaxLTV.GT(OneDec()) {
			return nil, ErrInvalidConfig
		}
		entry.MaxLTV = msg.MaxLTV.Clone()
	}
	if err := e.state.PutWhitelistEntry(entry); err != nil {
		return nil, err
	}
	e.emitter.Emit(events.WhitelistUpdated{Asset: entry.Asset, Custody: entry.Custody})
	return entry.Clone(), nil
}

// QueryWhitelist returns listings ordered by asset address ascending. When
// asset is given only that listing is returned; otherwise the page starts
// strictly after the cursor.
func (e *Engine) QueryWhitelist(asset, startAfter *crypto.Address, limit *uint32) ([]WhitelistEntry, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.queryWhitelist(asset, startAfter, limit)
}

func (e *Engine) queryWhitelist(asset, startAfter *crypto.Address, limit *uint32) ([]WhitelistEntry, error) {
	if asset != nil {
		entry, err := e.state.WhitelistEntry(*asset)
		if err != nil {
			return nil, err
		}
		if entry == nil {
			return nil, ErrNotWhitelisted
		}
		return []WhitelistEntry{*entry.Clone()}, nil
	}
	return e.state.WhitelistEntries(startAfter, clampLimit(limit))
}

// whitelistCustodians walks every listing and returns the distinct custody
// delegates in listing order. Used by the epoch controller to fan out the
// reward-distribution instructions.
func (e *Engine) whitelistCustodians() ([]crypto.Address, error) {
	var (
		custodians []crypto.Address
		seen       = make(map[string]struct{})
		cursor     *crypto.Address
	)
	for {
		page, err := e.state.WhitelistEntries(cursor, maxPageLimit)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			return custodians, nil
		}
		for _, entry := range page {
			key := string(entry.Custody.Bytes())
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			custodians = append(custodians, entry.Custody)
		}
		last := page[len(page)-1].Asset
		cursor = &last
		if len(page) < maxPageLimit {
			return custodians, nil
		}
	}
}
