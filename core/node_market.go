package core

import (
	"context"
	"errors"

	"tastefun/native/arith"
	"tastefun/native/market"
	"tastefun/native/settlement"
)

// InitTradingConfig stores the singleton trading configuration.
func (n *Node) InitTradingConfig(ctx context.Context, caller [20]byte, feeBps, buybackBps, platformBps, creatorBps uint64) (*market.TradingConfig, error) {
	var out *market.TradingConfig
	err := n.update(ctx, "init_trading_config", nil, func(e engines) error {
		var err error
		out, err = e.market.InitTradingConfig(caller, feeBps, buybackBps, platformBps, creatorBps)
		return err
	})
	return out, err
}

// SeedTradingConfig stores the trading configuration described by the
// protocol parameters unless one already exists. It reports whether a new
// configuration was written.
func (n *Node) SeedTradingConfig(ctx context.Context) (*market.TradingConfig, bool, error) {
	var (
		out    *market.TradingConfig
		seeded bool
	)
	err := n.update(ctx, "seed_trading_config", nil, func(e engines) error {
		existing, err := e.market.TradingConfig()
		if err == nil {
			out = existing
			return nil
		}
		if !errors.Is(err, market.ErrTradingConfigMissing) {
			return err
		}
		p := n.params
		out, err = e.market.InitTradingConfig(n.admin, p.TradeFeeBps, p.BuybackFeeSplitBps, p.PlatformFeeSplitBps, p.CreatorFeeSplitBps)
		seeded = err == nil
		return err
	})
	return out, seeded, err
}

// TradingConfig loads the trading configuration.
func (n *Node) TradingConfig() (*market.TradingConfig, error) {
	var out *market.TradingConfig
	err := n.view(func(e engines) error {
		var err error
		out, err = e.market.TradingConfig()
		return err
	})
	return out, err
}

// InitializeTheme creates a theme and mints its supply.
func (n *Node) InitializeTheme(ctx context.Context, creator [20]byte, id uint64, name, description string, mode settlement.Mode) (*market.Theme, error) {
	var out *market.Theme
	err := n.update(ctx, "initialize_theme", themeAttrs(market.ThemeKey{Creator: creator, ID: id}), func(e engines) error {
		var err error
		out, err = e.market.InitializeTheme(creator, id, name, description, mode)
		return err
	})
	return out, err
}

// SetThemeStatus pauses or resumes a theme.
func (n *Node) SetThemeStatus(ctx context.Context, caller [20]byte, key market.ThemeKey, status market.ThemeStatus) (*market.Theme, error) {
	var out *market.Theme
	err := n.update(ctx, "set_theme_status", themeAttrs(key), func(e engines) error {
		var err error
		out, err = e.market.SetThemeStatus(caller, key, status)
		return err
	})
	return out, err
}

// Buy swaps base currency for theme tokens.
func (n *Node) Buy(ctx context.Context, trader [20]byte, key market.ThemeKey, baseIn, minTokensOut uint64) (*market.SwapResult, error) {
	var out *market.SwapResult
	err := n.update(ctx, "buy", themeAttrs(key), func(e engines) error {
		var err error
		out, err = e.market.SwapBaseForTokens(trader, key, baseIn, minTokensOut)
		return err
	})
	return out, err
}

// Sell swaps theme tokens for base currency.
func (n *Node) Sell(ctx context.Context, trader [20]byte, key market.ThemeKey, tokensIn, minBaseOut uint64) (*market.SwapResult, error) {
	var out *market.SwapResult
	err := n.update(ctx, "sell", themeAttrs(key), func(e engines) error {
		var err error
		out, err = e.market.SwapTokensForBase(trader, key, tokensIn, minBaseOut)
		return err
	})
	return out, err
}

// ExecuteBuyback spends a theme's buyback pool and burns the tokens.
func (n *Node) ExecuteBuyback(ctx context.Context, key market.ThemeKey) (*market.BuybackResult, error) {
	var out *market.BuybackResult
	err := n.update(ctx, "execute_buyback", themeAttrs(key), func(e engines) error {
		var err error
		out, err = e.market.ExecuteBuyback(key)
		return err
	})
	return out, err
}

// Theme loads a theme.
func (n *Node) Theme(key market.ThemeKey) (*market.Theme, error) {
	var out *market.Theme
	err := n.view(func(e engines) error {
		var err error
		out, err = e.market.Theme(key)
		return err
	})
	return out, err
}

// Themes lists every theme in key order.
func (n *Node) Themes() ([]*market.Theme, error) {
	var out []*market.Theme
	err := n.view(func(e engines) error {
		return e.state.Themes(func(theme *market.Theme) error {
			out = append(out, theme)
			return nil
		})
	})
	return out, err
}

// QuoteBuy prices a purchase without executing it.
func (n *Node) QuoteBuy(key market.ThemeKey, baseIn uint64) (arith.BuyQuote, arith.FeeSplit, error) {
	var (
		quote arith.BuyQuote
		split arith.FeeSplit
	)
	err := n.view(func(e engines) error {
		var err error
		quote, split, err = e.market.QuoteBuy(key, baseIn)
		return err
	})
	return quote, split, err
}

// QuoteSell prices a sale without executing it.
func (n *Node) QuoteSell(key market.ThemeKey, tokensIn uint64) (arith.SellQuote, arith.FeeSplit, error) {
	var (
		quote arith.SellQuote
		split arith.FeeSplit
	)
	err := n.view(func(e engines) error {
		var err error
		quote, split, err = e.market.QuoteSell(key, tokensIn)
		return err
	})
	return quote, split, err
}
