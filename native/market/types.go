package market

import (
	"encoding/binary"
	"errors"
	"unicode/utf8"

	"tastefun/native/arith"
	"tastefun/native/custody"
	"tastefun/native/params"
	"tastefun/native/settlement"
)

// ThemeKey addresses a theme by its creator and creator-chosen id.
type ThemeKey struct {
	Creator [20]byte `json:"creator"`
	ID      uint64   `json:"id"`
}

// Bytes renders the key as creator || big-endian id.
func (k ThemeKey) Bytes() []byte {
	out := make([]byte, 28)
	copy(out, k.Creator[:])
	binary.BigEndian.PutUint64(out[20:], k.ID)
	return out
}

// ThemeStatus gates trading on a theme.
type ThemeStatus string

const (
	ThemeStatusActive ThemeStatus = "active"
	ThemeStatusPaused ThemeStatus = "paused"
)

// Valid reports whether s is a known status.
func (s ThemeStatus) Valid() bool {
	return s == ThemeStatusActive || s == ThemeStatusPaused
}

// Theme is one bonding-curve token market.
type Theme struct {
	Creator     [20]byte      `json:"creator"`
	ID          uint64        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	CreatedAt   int64         `json:"createdAt"`
	Mint        custody.Asset `json:"mint"`
	Vault       [20]byte      `json:"vault"`

	TotalSupply       uint64 `json:"totalSupply"`
	CirculatingSupply uint64 `json:"circulatingSupply"`
	CreatorReserve    uint64 `json:"creatorReserve"`
	TotalBurned       uint64 `json:"totalBurned"`

	TokenReserves uint64 `json:"tokenReserves"`
	BaseReserves  uint64 `json:"baseReserves"`
	// BuybackPool is base currency accumulated from trade fees.
	BuybackPool uint64 `json:"buybackPool"`
	// SettlementBuybackTokens are theme tokens forwarded by idea settlement,
	// burned on the next buyback.
	SettlementBuybackTokens uint64 `json:"settlementBuybackTokens"`

	VotingMode settlement.Mode `json:"votingMode"`
	Status     ThemeStatus     `json:"status"`
}

// Key returns the theme's storage key.
func (t *Theme) Key() ThemeKey { return ThemeKey{Creator: t.Creator, ID: t.ID} }

// Clone returns a deep copy.
func (t *Theme) Clone() *Theme {
	if t == nil {
		return nil
	}
	clone := *t
	return &clone
}

// TradingConfig is the process-wide trade fee configuration.
type TradingConfig struct {
	Authority   [20]byte `json:"authority"`
	FeeBps      uint64   `json:"feeBps"`
	BuybackBps  uint64   `json:"buybackBps"`
	PlatformBps uint64   `json:"platformBps"`
	CreatorBps  uint64   `json:"creatorBps"`
	CreatedAt   int64    `json:"createdAt"`
}

// Validate enforces the fee bounds and the exact three-way split.
func (c *TradingConfig) Validate() error {
	if c == nil {
		return errors.New("market: trading config required")
	}
	if c.FeeBps > arith.BpsDenominator {
		return ErrInvalidFeeSplits
	}
	return params.ValidateFeeSplits(c.BuybackBps, c.PlatformBps, c.CreatorBps)
}

// ThemeVault returns the custody vault that holds a theme's reserves.
func ThemeVault(key ThemeKey) custody.Vault {
	return custody.NewVault(custody.DomainThemeVault, key.Bytes())
}

// MintAsset returns the token identity of a theme.
func MintAsset(key ThemeKey) custody.Asset {
	return custody.Asset(custody.DeriveAddress(custody.DomainThemeMint, key.Bytes()))
}

func validateMetadata(name, description string, p params.Params) error {
	if name == "" || len(name) > p.MaxThemeNameLen || !utf8.ValidString(name) {
		return ErrInvalidThemeMetadata
	}
	if len(description) > p.MaxThemeDescLen || !utf8.ValidString(description) {
		return ErrInvalidThemeMetadata
	}
	return nil
}

// AccrueSettlementBuyback records settlement tokens the caller has already
// moved into the theme vault.
func AccrueSettlementBuyback(theme *Theme, tokens uint64) error {
	if theme == nil {
		return ErrThemeNotFound
	}
	next, err := arith.Add(theme.SettlementBuybackTokens, tokens)
	if err != nil {
		return err
	}
	theme.SettlementBuybackTokens = next
	return nil
}

// SwapResult summarises an executed trade.
type SwapResult struct {
	Theme            ThemeKey       `json:"theme"`
	Trader           [20]byte       `json:"trader"`
	IsBuy            bool           `json:"isBuy"`
	BaseAmount       uint64         `json:"baseAmount"`
	TokenAmount      uint64         `json:"tokenAmount"`
	Fee              arith.FeeSplit `json:"fee"`
	NewBaseReserves  uint64         `json:"newBaseReserves"`
	NewTokenReserves uint64         `json:"newTokenReserves"`
}

// BuybackResult summarises an executed buyback.
type BuybackResult struct {
	Theme                  ThemeKey `json:"theme"`
	BaseSpent              uint64   `json:"baseSpent"`
	TokensBurned           uint64   `json:"tokensBurned"`
	SettlementTokensBurned uint64   `json:"settlementTokensBurned"`
	NewTokenReserves       uint64   `json:"newTokenReserves"`
	NewBaseReserves        uint64   `json:"newBaseReserves"`
}
