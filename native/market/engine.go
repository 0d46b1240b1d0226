package market

import (
	"errors"
	"time"

	"tastefun/core/events"
	"tastefun/native/arith"
	"tastefun/native/custody"
	"tastefun/native/params"
	"tastefun/native/settlement"
	"tastefun/storage"
)

var (
	errNilState        = errors.New("market engine: state not configured")
	errTreasuryNotSet  = errors.New("market engine: treasury not configured")
	errSupplyUnderflow = errors.New("market engine: circulating supply underflow")

	ErrThemeNotFound         = errors.New("market: theme not found")
	ErrThemeExists           = errors.New("market: theme already exists")
	ErrThemeInactive         = errors.New("market: theme is not active")
	ErrInvalidThemeMetadata  = errors.New("market: invalid theme metadata")
	ErrInvalidThemeStatus    = errors.New("market: invalid theme status")
	ErrTradingConfigMissing  = errors.New("market: trading config not initialised")
	ErrTradingConfigExists   = errors.New("market: trading config already initialised")
	ErrInvalidFeeSplits      = params.ErrInvalidFeeSplits
	ErrAmountTooSmall        = errors.New("market: amount below minimum trade size")
	ErrSlippageExceeded      = errors.New("market: slippage exceeded")
	ErrInsufficientReserves  = errors.New("market: insufficient reserves")
	ErrBuybackBelowThreshold = errors.New("market: buyback pool below threshold")
	ErrUnauthorized          = errors.New("market: caller not authorised")
)

// Process-wide capabilities over theme vaults and theme mints.
var (
	vaultAuthority = custody.MustClaim(custody.DomainThemeVault)
	mintAuthority  = custody.MustClaim(custody.DomainThemeMint)
)

type engineState interface {
	ThemeGet(key ThemeKey) (*Theme, bool, error)
	ThemeInsert(theme *Theme) error
	ThemePut(theme *Theme) error
	TradingConfigGet() (*TradingConfig, bool, error)
	TradingConfigInsert(cfg *TradingConfig) error
	BalanceGet(addr [20]byte, asset custody.Asset) (uint64, error)
	BalancePut(addr [20]byte, asset custody.Asset, amount uint64) error
	SupplyGet(asset custody.Asset) (uint64, error)
	SupplyPut(asset custody.Asset, amount uint64) error
}

// Engine implements the per-theme bonding curve market.
type Engine struct {
	state    engineState
	emitter  events.Emitter
	nowFn    func() int64
	params   params.Params
	treasury [20]byte
	dustSink [20]byte
	admin    [20]byte
}

// NewEngine constructs a market engine with default dependencies.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn: func() int64 {
			return time.Now().Unix()
		},
		params: params.Default(),
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used for deterministic testing.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetParams replaces the protocol parameters.
func (e *Engine) SetParams(p params.Params) { e.params = p }

// SetTreasury configures the platform fee recipient.
func (e *Engine) SetTreasury(addr [20]byte) { e.treasury = addr }

// SetDustSink configures the recipient of fee rounding remainders. The
// treasury is used when unset.
func (e *Engine) SetDustSink(addr [20]byte) { e.dustSink = addr }

// SetAdmin configures the identity allowed to change configuration and pause themes.
func (e *Engine) SetAdmin(addr [20]byte) { e.admin = addr }

// Params returns the active protocol parameters.
func (e *Engine) Params() params.Params { return e.params }

// WithState returns a copy of the engine bound to another state and emitter.
func (e *Engine) WithState(state engineState, emitter events.Emitter) *Engine {
	clone := *e
	clone.state = state
	clone.SetEmitter(emitter)
	return &clone
}

func (e *Engine) emit(evt events.Event) {
	if e == nil || evt == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(evt)
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) ledger() *custody.Ledger { return custody.NewLedger(e.state) }

func isZeroAddress(addr [20]byte) bool {
	var zero [20]byte
	return addr == zero
}

func (e *Engine) dustRecipient() [20]byte {
	if isZeroAddress(e.dustSink) {
		return e.treasury
	}
	return e.dustSink
}

func (e *Engine) authorizeAdmin(caller [20]byte) error {
	if !isZeroAddress(e.admin) && caller != e.admin {
		return ErrUnauthorized
	}
	return nil
}

// InitTradingConfig stores the singleton trade fee configuration.
func (e *Engine) InitTradingConfig(caller [20]byte, feeBps, buybackBps, platformBps, creatorBps uint64) (*TradingConfig, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := e.authorizeAdmin(caller); err != nil {
		return nil, err
	}
	cfg := &TradingConfig{
		Authority:   caller,
		FeeBps:      feeBps,
		BuybackBps:  buybackBps,
		PlatformBps: platformBps,
		CreatorBps:  creatorBps,
		CreatedAt:   e.now(),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := e.state.TradingConfigInsert(cfg); err != nil {
		if errors.Is(err, storage.ErrKeyExists) {
			return nil, ErrTradingConfigExists
		}
		return nil, err
	}
	e.emit(TradingConfigInitialized{Config: *cfg})
	return cfg, nil
}

// TradingConfig returns the stored trade fee configuration.
func (e *Engine) TradingConfig() (*TradingConfig, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	cfg, ok, err := e.state.TradingConfigGet()
	if err != nil {
		return nil, err
	}
	if !ok || cfg == nil {
		return nil, ErrTradingConfigMissing
	}
	return cfg, nil
}

// Theme loads a theme.
func (e *Engine) Theme(key ThemeKey) (*Theme, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	theme, ok, err := e.state.ThemeGet(key)
	if err != nil {
		return nil, err
	}
	if !ok || theme == nil {
		return nil, ErrThemeNotFound
	}
	return theme, nil
}

// InitializeTheme creates a theme, mints its full supply into the theme vault
// and releases the creator reserve to the creator.
func (e *Engine) InitializeTheme(creator [20]byte, id uint64, name, description string, mode settlement.Mode) (*Theme, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	p := e.params
	if err := validateMetadata(name, description, p); err != nil {
		return nil, err
	}
	if mode == "" {
		mode = settlement.ModeClassic
	}
	if !mode.Valid() {
		return nil, settlement.ErrInvalidVotingMode
	}
	key := ThemeKey{Creator: creator, ID: id}
	vault := ThemeVault(key)
	circulating, err := arith.MulDiv(p.TokenTotalSupply, p.CirculatingPercent, 100)
	if err != nil {
		return nil, err
	}
	// The creator reserve absorbs rounding so the two parts cover the supply.
	reserve, err := arith.Sub(p.TokenTotalSupply, circulating)
	if err != nil {
		return nil, err
	}
	theme := &Theme{
		Creator:           creator,
		ID:                id,
		Name:              name,
		Description:       description,
		CreatedAt:         e.now(),
		Mint:              MintAsset(key),
		Vault:             vault.Address,
		TotalSupply:       p.TokenTotalSupply,
		CirculatingSupply: circulating,
		CreatorReserve:    reserve,
		TokenReserves:     circulating,
		BaseReserves:      0,
		VotingMode:        mode,
		Status:            ThemeStatusActive,
	}
	if err := e.state.ThemeInsert(theme); err != nil {
		if errors.Is(err, storage.ErrKeyExists) {
			return nil, ErrThemeExists
		}
		return nil, err
	}
	ledger := e.ledger()
	if err := ledger.Mint(mintAuthority, theme.Mint, vault.Address, p.TokenTotalSupply); err != nil {
		return nil, err
	}
	if err := ledger.Withdraw(vaultAuthority, vault, creator, theme.Mint, reserve); err != nil {
		return nil, err
	}
	e.emit(ThemeCreated{
		Theme:          key,
		Mint:           theme.Mint,
		VotingMode:     mode,
		TotalSupply:    theme.TotalSupply,
		CreatorReserve: reserve,
		TokenReserves:  theme.TokenReserves,
	})
	return theme, nil
}

// SetThemeStatus pauses or resumes trading on a theme.
func (e *Engine) SetThemeStatus(caller [20]byte, key ThemeKey, status ThemeStatus) (*Theme, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if isZeroAddress(e.admin) || caller != e.admin {
		return nil, ErrUnauthorized
	}
	if !status.Valid() {
		return nil, ErrInvalidThemeStatus
	}
	theme, err := e.Theme(key)
	if err != nil {
		return nil, err
	}
	if theme.Status == status {
		return theme, nil
	}
	theme.Status = status
	if err := e.state.ThemePut(theme); err != nil {
		return nil, err
	}
	e.emit(ThemeStatusChanged{Theme: key, Status: status})
	return theme, nil
}

func (e *Engine) tradable(key ThemeKey) (*Theme, *TradingConfig, error) {
	if e == nil || e.state == nil {
		return nil, nil, errNilState
	}
	if isZeroAddress(e.treasury) {
		return nil, nil, errTreasuryNotSet
	}
	theme, err := e.Theme(key)
	if err != nil {
		return nil, nil, err
	}
	if theme.Status != ThemeStatusActive {
		return nil, nil, ErrThemeInactive
	}
	cfg, err := e.TradingConfig()
	if err != nil {
		return nil, nil, err
	}
	return theme, cfg, nil
}

// QuoteBuy prices a purchase without executing it.
func (e *Engine) QuoteBuy(key ThemeKey, baseIn uint64) (arith.BuyQuote, arith.FeeSplit, error) {
	theme, err := e.Theme(key)
	if err != nil {
		return arith.BuyQuote{}, arith.FeeSplit{}, err
	}
	cfg, err := e.TradingConfig()
	if err != nil {
		return arith.BuyQuote{}, arith.FeeSplit{}, err
	}
	quote, err := arith.BuyTokens(baseIn, theme.TokenReserves, theme.BaseReserves, cfg.FeeBps)
	if err != nil {
		return arith.BuyQuote{}, arith.FeeSplit{}, err
	}
	split, err := arith.SplitFee(quote.Fee, cfg.BuybackBps, cfg.PlatformBps, cfg.CreatorBps)
	if err != nil {
		return arith.BuyQuote{}, arith.FeeSplit{}, err
	}
	return quote, split, nil
}

// QuoteSell prices a sale without executing it.
func (e *Engine) QuoteSell(key ThemeKey, tokensIn uint64) (arith.SellQuote, arith.FeeSplit, error) {
	theme, err := e.Theme(key)
	if err != nil {
		return arith.SellQuote{}, arith.FeeSplit{}, err
	}
	cfg, err := e.TradingConfig()
	if err != nil {
		return arith.SellQuote{}, arith.FeeSplit{}, err
	}
	quote, err := arith.SellBase(tokensIn, theme.TokenReserves, theme.BaseReserves, cfg.FeeBps)
	if err != nil {
		return arith.SellQuote{}, arith.FeeSplit{}, err
	}
	split, err := arith.SplitFee(quote.Fee, cfg.BuybackBps, cfg.PlatformBps, cfg.CreatorBps)
	if err != nil {
		return arith.SellQuote{}, arith.FeeSplit{}, err
	}
	return quote, split, nil
}

// SwapBaseForTokens buys theme tokens with base currency. The fee is taken
// out of baseIn before pricing; only the net amount and the buyback share
// enter the theme vault.
func (e *Engine) SwapBaseForTokens(trader [20]byte, key ThemeKey, baseIn, minTokensOut uint64) (*SwapResult, error) {
	theme, cfg, err := e.tradable(key)
	if err != nil {
		return nil, err
	}
	if baseIn < e.params.MinBaseTrade {
		return nil, ErrAmountTooSmall
	}
	quote, err := arith.BuyTokens(baseIn, theme.TokenReserves, theme.BaseReserves, cfg.FeeBps)
	if err != nil {
		return nil, err
	}
	if quote.TokensOut == 0 {
		return nil, ErrAmountTooSmall
	}
	if quote.TokensOut < minTokensOut {
		return nil, ErrSlippageExceeded
	}
	if quote.TokensOut > theme.TokenReserves {
		return nil, ErrInsufficientReserves
	}
	split, err := arith.SplitFee(quote.Fee, cfg.BuybackBps, cfg.PlatformBps, cfg.CreatorBps)
	if err != nil {
		return nil, err
	}
	toVault, err := arith.Add(quote.NetBase, split.Buyback)
	if err != nil {
		return nil, err
	}
	vault := ThemeVault(key)
	ledger := e.ledger()
	if err := ledger.Deposit(trader, vault, custody.BaseAsset, toVault); err != nil {
		return nil, err
	}
	if err := ledger.Transfer(trader, e.treasury, custody.BaseAsset, split.Platform); err != nil {
		return nil, err
	}
	if err := ledger.Transfer(trader, theme.Creator, custody.BaseAsset, split.Creator); err != nil {
		return nil, err
	}
	if err := ledger.Transfer(trader, e.dustRecipient(), custody.BaseAsset, split.Dust); err != nil {
		return nil, err
	}
	if err := ledger.Withdraw(vaultAuthority, vault, trader, theme.Mint, quote.TokensOut); err != nil {
		return nil, err
	}
	if theme.BaseReserves, err = arith.Add(theme.BaseReserves, quote.NetBase); err != nil {
		return nil, err
	}
	theme.TokenReserves -= quote.TokensOut
	if theme.BuybackPool, err = arith.Add(theme.BuybackPool, split.Buyback); err != nil {
		return nil, err
	}
	if err := e.state.ThemePut(theme); err != nil {
		return nil, err
	}
	result := &SwapResult{
		Theme:            key,
		Trader:           trader,
		IsBuy:            true,
		BaseAmount:       baseIn,
		TokenAmount:      quote.TokensOut,
		Fee:              split,
		NewBaseReserves:  theme.BaseReserves,
		NewTokenReserves: theme.TokenReserves,
	}
	e.emit(TokensSwapped(*result))
	return result, nil
}

// SwapTokensForBase sells theme tokens for base currency. The fee is taken
// from the gross curve output; the buyback share stays in the vault.
func (e *Engine) SwapTokensForBase(trader [20]byte, key ThemeKey, tokensIn, minBaseOut uint64) (*SwapResult, error) {
	theme, cfg, err := e.tradable(key)
	if err != nil {
		return nil, err
	}
	if tokensIn < e.params.MinTokenTrade {
		return nil, ErrAmountTooSmall
	}
	quote, err := arith.SellBase(tokensIn, theme.TokenReserves, theme.BaseReserves, cfg.FeeBps)
	if err != nil {
		if errors.Is(err, arith.ErrZeroInput) {
			return nil, ErrInsufficientReserves
		}
		return nil, err
	}
	if quote.NetBase == 0 {
		return nil, ErrAmountTooSmall
	}
	if quote.NetBase < minBaseOut {
		return nil, ErrSlippageExceeded
	}
	if quote.GrossBase > theme.BaseReserves {
		return nil, ErrInsufficientReserves
	}
	split, err := arith.SplitFee(quote.Fee, cfg.BuybackBps, cfg.PlatformBps, cfg.CreatorBps)
	if err != nil {
		return nil, err
	}
	vault := ThemeVault(key)
	ledger := e.ledger()
	if err := ledger.Deposit(trader, vault, theme.Mint, tokensIn); err != nil {
		return nil, err
	}
	payouts := []struct {
		to     [20]byte
		amount uint64
	}{
		{trader, quote.NetBase},
		{e.treasury, split.Platform},
		{theme.Creator, split.Creator},
		{e.dustRecipient(), split.Dust},
	}
	for _, p := range payouts {
		if err := ledger.Withdraw(vaultAuthority, vault, p.to, custody.BaseAsset, p.amount); err != nil {
			return nil, err
		}
	}
	theme.BaseReserves -= quote.GrossBase
	if theme.TokenReserves, err = arith.Add(theme.TokenReserves, tokensIn); err != nil {
		return nil, err
	}
	if theme.BuybackPool, err = arith.Add(theme.BuybackPool, split.Buyback); err != nil {
		return nil, err
	}
	if err := e.state.ThemePut(theme); err != nil {
		return nil, err
	}
	result := &SwapResult{
		Theme:            key,
		Trader:           trader,
		IsBuy:            false,
		BaseAmount:       quote.NetBase,
		TokenAmount:      tokensIn,
		Fee:              split,
		NewBaseReserves:  theme.BaseReserves,
		NewTokenReserves: theme.TokenReserves,
	}
	e.emit(TokensSwapped(*result))
	return result, nil
}

// ExecuteBuyback spends the buyback pool against the curve at zero fee and
// burns the purchased tokens together with any settlement contributions.
// Anyone may trigger it once the pool reaches the threshold.
func (e *Engine) ExecuteBuyback(key ThemeKey) (*BuybackResult, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	theme, err := e.Theme(key)
	if err != nil {
		return nil, err
	}
	if theme.Status != ThemeStatusActive {
		return nil, ErrThemeInactive
	}
	if theme.BuybackPool < e.params.BuybackThreshold {
		return nil, ErrBuybackBelowThreshold
	}
	quote, err := arith.BuyTokens(theme.BuybackPool, theme.TokenReserves, theme.BaseReserves, 0)
	if err != nil {
		if errors.Is(err, arith.ErrZeroInput) {
			return nil, ErrInsufficientReserves
		}
		return nil, err
	}
	if quote.TokensOut > theme.TokenReserves {
		return nil, ErrInsufficientReserves
	}
	burn, err := arith.Add(quote.TokensOut, theme.SettlementBuybackTokens)
	if err != nil {
		return nil, err
	}
	vault := ThemeVault(key)
	ledger := e.ledger()
	held, err := ledger.Balance(vault.Address, theme.Mint)
	if err != nil {
		return nil, err
	}
	if burn > held {
		return nil, ErrInsufficientReserves
	}
	if err := ledger.Burn(vaultAuthority, vault, theme.Mint, burn); err != nil {
		return nil, err
	}
	spent := theme.BuybackPool
	if theme.BaseReserves, err = arith.Add(theme.BaseReserves, spent); err != nil {
		return nil, err
	}
	theme.TokenReserves -= quote.TokensOut
	if theme.CirculatingSupply, err = arith.Sub(theme.CirculatingSupply, burn); err != nil {
		return nil, errSupplyUnderflow
	}
	if theme.TotalBurned, err = arith.Add(theme.TotalBurned, burn); err != nil {
		return nil, err
	}
	result := &BuybackResult{
		Theme:                  key,
		BaseSpent:              spent,
		TokensBurned:           quote.TokensOut,
		SettlementTokensBurned: theme.SettlementBuybackTokens,
		NewTokenReserves:       theme.TokenReserves,
		NewBaseReserves:        theme.BaseReserves,
	}
	theme.BuybackPool = 0
	theme.SettlementBuybackTokens = 0
	if err := e.state.ThemePut(theme); err != nil {
		return nil, err
	}
	e.emit(BuybackExecuted{Result: *result})
	return result, nil
}
