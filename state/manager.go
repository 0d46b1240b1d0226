package state

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"tastefun/native/custody"
	"tastefun/native/ideas"
	"tastefun/native/market"
	"tastefun/storage"
)

var (
	bucketIdeas    = []byte("ideas")
	bucketVotes    = []byte("votes")
	bucketStakes   = []byte("stakes")
	bucketThemes   = []byte("themes")
	bucketConfig   = []byte("trading_config")
	bucketBalances = []byte("balances")
	bucketSupply   = []byte("supply")

	tradingConfigKey = []byte("singleton")
)

// Manager exposes typed records over one storage transaction. It satisfies
// the state interfaces of the custody ledger and the market and ideas
// engines.
type Manager struct {
	tx storage.Tx
}

// NewManager creates a state manager operating on the provided transaction.
func NewManager(tx storage.Tx) *Manager {
	return &Manager{tx: tx}
}

func (m *Manager) getJSON(bucket, key []byte, out interface{}) (bool, error) {
	data, err := m.tx.Get(bucket, key)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("state: decode %s record: %w", bucket, err)
	}
	return true, nil
}

func (m *Manager) putJSON(bucket, key []byte, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("state: encode %s record: %w", bucket, err)
	}
	return m.tx.Put(bucket, key, data)
}

func (m *Manager) insertJSON(bucket, key []byte, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("state: encode %s record: %w", bucket, err)
	}
	return m.tx.Insert(bucket, key, data)
}

func voteKey(key ideas.IdeaKey, voter [20]byte) []byte {
	out := key.Bytes()
	return append(out, voter[:]...)
}

func balanceKey(addr [20]byte, asset custody.Asset) []byte {
	out := make([]byte, 0, 40)
	out = append(out, addr[:]...)
	return append(out, asset[:]...)
}

// IdeaGet loads an idea.
func (m *Manager) IdeaGet(key ideas.IdeaKey) (*ideas.Idea, bool, error) {
	var idea ideas.Idea
	ok, err := m.getJSON(bucketIdeas, key.Bytes(), &idea)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &idea, true, nil
}

// IdeaInsert stores a new idea, failing with storage.ErrKeyExists on reuse.
func (m *Manager) IdeaInsert(idea *ideas.Idea) error {
	return m.insertJSON(bucketIdeas, idea.Key().Bytes(), idea)
}

// IdeaPut overwrites an idea.
func (m *Manager) IdeaPut(idea *ideas.Idea) error {
	return m.putJSON(bucketIdeas, idea.Key().Bytes(), idea)
}

// Ideas visits every idea in key order.
func (m *Manager) Ideas(fn func(*ideas.Idea) error) error {
	return m.tx.ForEach(bucketIdeas, func(_, value []byte) error {
		var idea ideas.Idea
		if err := json.Unmarshal(value, &idea); err != nil {
			return fmt.Errorf("state: decode ideas record: %w", err)
		}
		return fn(&idea)
	})
}

// VoteGet loads a voter's vote.
func (m *Manager) VoteGet(key ideas.IdeaKey, voter [20]byte) (*ideas.Vote, bool, error) {
	var vote ideas.Vote
	ok, err := m.getJSON(bucketVotes, voteKey(key, voter), &vote)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &vote, true, nil
}

// VoteInsert stores a vote. A second vote by the same voter on the same idea
// fails with storage.ErrKeyExists.
func (m *Manager) VoteInsert(vote *ideas.Vote) error {
	return m.insertJSON(bucketVotes, voteKey(vote.Idea, vote.Voter), vote)
}

// ReviewerStakeGet loads a stake record.
func (m *Manager) ReviewerStakeGet(key ideas.IdeaKey, voter [20]byte) (*ideas.ReviewerStake, bool, error) {
	var stake ideas.ReviewerStake
	ok, err := m.getJSON(bucketStakes, voteKey(key, voter), &stake)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &stake, true, nil
}

// ReviewerStakeInsert stores a new stake record.
func (m *Manager) ReviewerStakeInsert(stake *ideas.ReviewerStake) error {
	return m.insertJSON(bucketStakes, voteKey(stake.Idea, stake.Reviewer), stake)
}

// ReviewerStakePut overwrites a stake record.
func (m *Manager) ReviewerStakePut(stake *ideas.ReviewerStake) error {
	return m.putJSON(bucketStakes, voteKey(stake.Idea, stake.Reviewer), stake)
}

// ThemeGet loads a theme.
func (m *Manager) ThemeGet(key market.ThemeKey) (*market.Theme, bool, error) {
	var theme market.Theme
	ok, err := m.getJSON(bucketThemes, key.Bytes(), &theme)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &theme, true, nil
}

// ThemeInsert stores a new theme.
func (m *Manager) ThemeInsert(theme *market.Theme) error {
	return m.insertJSON(bucketThemes, theme.Key().Bytes(), theme)
}

// ThemePut overwrites a theme.
func (m *Manager) ThemePut(theme *market.Theme) error {
	return m.putJSON(bucketThemes, theme.Key().Bytes(), theme)
}

// Themes visits every theme in key order.
func (m *Manager) Themes(fn func(*market.Theme) error) error {
	return m.tx.ForEach(bucketThemes, func(_, value []byte) error {
		var theme market.Theme
		if err := json.Unmarshal(value, &theme); err != nil {
			return fmt.Errorf("state: decode themes record: %w", err)
		}
		return fn(&theme)
	})
}

// TradingConfigGet loads the singleton trading configuration.
func (m *Manager) TradingConfigGet() (*market.TradingConfig, bool, error) {
	var cfg market.TradingConfig
	ok, err := m.getJSON(bucketConfig, tradingConfigKey, &cfg)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &cfg, true, nil
}

// TradingConfigInsert stores the trading configuration once.
func (m *Manager) TradingConfigInsert(cfg *market.TradingConfig) error {
	return m.insertJSON(bucketConfig, tradingConfigKey, cfg)
}

// BalanceGet returns the custody balance of addr in asset; missing records
// read as zero.
func (m *Manager) BalanceGet(addr [20]byte, asset custody.Asset) (uint64, error) {
	return m.getUint(bucketBalances, balanceKey(addr, asset))
}

// BalancePut writes a custody balance. Zero balances are deleted.
func (m *Manager) BalancePut(addr [20]byte, asset custody.Asset, amount uint64) error {
	return m.putUint(bucketBalances, balanceKey(addr, asset), amount)
}

// SupplyGet returns the tracked total supply of an asset.
func (m *Manager) SupplyGet(asset custody.Asset) (uint64, error) {
	return m.getUint(bucketSupply, asset[:])
}

// SupplyPut writes the tracked total supply of an asset.
func (m *Manager) SupplyPut(asset custody.Asset, amount uint64) error {
	return m.putUint(bucketSupply, asset[:], amount)
}

func (m *Manager) getUint(bucket, key []byte) (uint64, error) {
	data, err := m.tx.Get(bucket, key)
	if errors.Is(err, storage.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if len(data) != 8 {
		return 0, fmt.Errorf("state: corrupt %s record of %d bytes", bucket, len(data))
	}
	return binary.BigEndian.Uint64(data), nil
}

func (m *Manager) putUint(bucket, key []byte, value uint64) error {
	if value == 0 {
		err := m.tx.Delete(bucket, key)
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return err
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], value)
	return m.tx.Put(bucket, key, buf[:])
}
