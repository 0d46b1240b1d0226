package market

import (
	"encoding/hex"
	"strconv"

	"tastefun/core/types"
	"tastefun/native/arith"
	"tastefun/native/custody"
	"tastefun/native/settlement"
)

const (
	// TypeTradingConfigInitialized marks the one-time fee configuration.
	TypeTradingConfigInitialized = "market.config.initialized"
	// TypeThemeCreated marks a new theme with its minted supply.
	TypeThemeCreated = "market.theme.created"
	// TypeThemeStatusChanged marks an admin pause or resume.
	TypeThemeStatusChanged = "market.theme.status"
	// TypeTokensSwapped marks a buy or sell against the curve.
	TypeTokensSwapped = "market.tokens.swapped"
	// TypeBuybackExecuted marks a buyback-and-burn.
	TypeBuybackExecuted = "market.buyback.executed"
)

func hexAddr(addr [20]byte) string {
	return "0x" + hex.EncodeToString(addr[:])
}

func u64(v uint64) string { return strconv.FormatUint(v, 10) }

func themeAttrs(key ThemeKey) map[string]string {
	return map[string]string{
		"creator": hexAddr(key.Creator),
		"themeId": u64(key.ID),
	}
}

// TradingConfigInitialized is emitted once by InitTradingConfig.
type TradingConfigInitialized struct {
	Config TradingConfig
}

// EventType satisfies the events.Event interface.
func (TradingConfigInitialized) EventType() string { return TypeTradingConfigInitialized }

// Event converts the structured payload into a broadcastable event.
func (e TradingConfigInitialized) Event() *types.Event {
	return &types.Event{Type: TypeTradingConfigInitialized, Attributes: map[string]string{
		"authority":   hexAddr(e.Config.Authority),
		"feeBps":      u64(e.Config.FeeBps),
		"buybackBps":  u64(e.Config.BuybackBps),
		"platformBps": u64(e.Config.PlatformBps),
		"creatorBps":  u64(e.Config.CreatorBps),
	}}
}

// ThemeCreated is emitted when a theme and its token are initialised.
type ThemeCreated struct {
	Theme          ThemeKey
	Mint           custody.Asset
	VotingMode     settlement.Mode
	TotalSupply    uint64
	CreatorReserve uint64
	TokenReserves  uint64
}

// EventType satisfies the events.Event interface.
func (ThemeCreated) EventType() string { return TypeThemeCreated }

// Event converts the structured payload into a broadcastable event.
func (e ThemeCreated) Event() *types.Event {
	attrs := themeAttrs(e.Theme)
	attrs["mint"] = hexAddr([20]byte(e.Mint))
	attrs["votingMode"] = string(e.VotingMode)
	attrs["totalSupply"] = u64(e.TotalSupply)
	attrs["creatorReserve"] = u64(e.CreatorReserve)
	attrs["tokenReserves"] = u64(e.TokenReserves)
	return &types.Event{Type: TypeThemeCreated, Attributes: attrs}
}

// ThemeStatusChanged is emitted by SetThemeStatus.
type ThemeStatusChanged struct {
	Theme  ThemeKey
	Status ThemeStatus
}

// EventType satisfies the events.Event interface.
func (ThemeStatusChanged) EventType() string { return TypeThemeStatusChanged }

// Event converts the structured payload into a broadcastable event.
func (e ThemeStatusChanged) Event() *types.Event {
	attrs := themeAttrs(e.Theme)
	attrs["status"] = string(e.Status)
	return &types.Event{Type: TypeThemeStatusChanged, Attributes: attrs}
}

// TokensSwapped is emitted for every trade.
type TokensSwapped struct {
	Theme            ThemeKey
	Trader           [20]byte
	IsBuy            bool
	BaseAmount       uint64
	TokenAmount      uint64
	Fee              arith.FeeSplit
	NewBaseReserves  uint64
	NewTokenReserves uint64
}

// EventType satisfies the events.Event interface.
func (TokensSwapped) EventType() string { return TypeTokensSwapped }

// Event converts the structured payload into a broadcastable event.
func (e TokensSwapped) Event() *types.Event {
	attrs := themeAttrs(e.Theme)
	attrs["trader"] = hexAddr(e.Trader)
	attrs["isBuy"] = strconv.FormatBool(e.IsBuy)
	attrs["baseAmount"] = u64(e.BaseAmount)
	attrs["tokenAmount"] = u64(e.TokenAmount)
	attrs["fee"] = u64(e.Fee.Total)
	attrs["feeBuyback"] = u64(e.Fee.Buyback)
	attrs["feePlatform"] = u64(e.Fee.Platform)
	attrs["feeCreator"] = u64(e.Fee.Creator)
	if e.Fee.Dust > 0 {
		attrs["feeDust"] = u64(e.Fee.Dust)
	}
	attrs["newBaseReserves"] = u64(e.NewBaseReserves)
	attrs["newTokenReserves"] = u64(e.NewTokenReserves)
	return &types.Event{Type: TypeTokensSwapped, Attributes: attrs}
}

// BuybackExecuted is emitted after a buyback burns tokens.
type BuybackExecuted struct {
	Result BuybackResult
}

// EventType satisfies the events.Event interface.
func (BuybackExecuted) EventType() string { return TypeBuybackExecuted }

// Event converts the structured payload into a broadcastable event.
func (e BuybackExecuted) Event() *types.Event {
	attrs := themeAttrs(e.Result.Theme)
	attrs["baseSpent"] = u64(e.Result.BaseSpent)
	attrs["tokensBurned"] = u64(e.Result.TokensBurned)
	attrs["settlementTokensBurned"] = u64(e.Result.SettlementTokensBurned)
	attrs["newTokenReserves"] = u64(e.Result.NewTokenReserves)
	attrs["newBaseReserves"] = u64(e.Result.NewBaseReserves)
	return &types.Event{Type: TypeBuybackExecuted, Attributes: attrs}
}
