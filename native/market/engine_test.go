package market

import (
	"errors"
	"testing"

	"tastefun/native/arith"
	"tastefun/native/custody"
	"tastefun/native/params"
	"tastefun/native/settlement"
	"tastefun/storage"
)

type balanceKey struct {
	addr  [20]byte
	asset custody.Asset
}

type mockState struct {
	themes   map[ThemeKey]*Theme
	config   *TradingConfig
	balances map[balanceKey]uint64
	supply   map[custody.Asset]uint64
}

func newMockState() *mockState {
	return &mockState{
		themes:   make(map[ThemeKey]*Theme),
		balances: make(map[balanceKey]uint64),
		supply:   make(map[custody.Asset]uint64),
	}
}

func (m *mockState) ThemeGet(key ThemeKey) (*Theme, bool, error) {
	theme, ok := m.themes[key]
	if !ok {
		return nil, false, nil
	}
	return theme.Clone(), true, nil
}

func (m *mockState) ThemeInsert(theme *Theme) error {
	if _, ok := m.themes[theme.Key()]; ok {
		return storage.ErrKeyExists
	}
	m.themes[theme.Key()] = theme.Clone()
	return nil
}

func (m *mockState) ThemePut(theme *Theme) error {
	m.themes[theme.Key()] = theme.Clone()
	return nil
}

func (m *mockState) TradingConfigGet() (*TradingConfig, bool, error) {
	if m.config == nil {
		return nil, false, nil
	}
	clone := *m.config
	return &clone, true, nil
}

func (m *mockState) TradingConfigInsert(cfg *TradingConfig) error {
	if m.config != nil {
		return storage.ErrKeyExists
	}
	clone := *cfg
	m.config = &clone
	return nil
}

func (m *mockState) BalanceGet(addr [20]byte, asset custody.Asset) (uint64, error) {
	return m.balances[balanceKey{addr, asset}], nil
}

func (m *mockState) BalancePut(addr [20]byte, asset custody.Asset, amount uint64) error {
	m.balances[balanceKey{addr, asset}] = amount
	return nil
}

func (m *mockState) SupplyGet(asset custody.Asset) (uint64, error) { return m.supply[asset], nil }

func (m *mockState) SupplyPut(asset custody.Asset, amount uint64) error {
	m.supply[asset] = amount
	return nil
}

var (
	admin    = [20]byte{0xAD}
	treasury = [20]byte{0x7E}
	dustSink = [20]byte{0xD5}
	creator  = [20]byte{0xC1}
	trader   = [20]byte{0x71}
)

func newTestEngine(t *testing.T) (*Engine, *mockState) {
	t.Helper()
	st := newMockState()
	engine := NewEngine()
	engine.SetState(st)
	engine.SetNowFunc(func() int64 { return 1_700_000_000 })
	engine.SetTreasury(treasury)
	engine.SetDustSink(dustSink)
	engine.SetAdmin(admin)
	p := params.Default()
	if _, err := engine.InitTradingConfig(admin, p.TradeFeeBps, p.BuybackFeeSplitBps, p.PlatformFeeSplitBps, p.CreatorFeeSplitBps); err != nil {
		t.Fatalf("init trading config: %v", err)
	}
	return engine, st
}

func fund(st *mockState, addr [20]byte, amount uint64) {
	st.balances[balanceKey{addr, custody.BaseAsset}] += amount
	st.supply[custody.BaseAsset] += amount
}

func createTheme(t *testing.T, engine *Engine) *Theme {
	t.Helper()
	theme, err := engine.InitializeTheme(creator, 1, "cats", "cats in hats", settlement.ModeClassic)
	if err != nil {
		t.Fatalf("initialize theme: %v", err)
	}
	return theme
}

// checkVault asserts the custody invariants of a theme vault.
func checkVault(t *testing.T, st *mockState, key ThemeKey) {
	t.Helper()
	theme := st.themes[key]
	vault := ThemeVault(key)
	base := st.balances[balanceKey{vault.Address, custody.BaseAsset}]
	if base != theme.BaseReserves+theme.BuybackPool {
		t.Fatalf("base vault %d != reserves %d + pool %d", base, theme.BaseReserves, theme.BuybackPool)
	}
	tokens := st.balances[balanceKey{vault.Address, theme.Mint}]
	if tokens != theme.TokenReserves+theme.SettlementBuybackTokens {
		t.Fatalf("token vault %d != reserves %d + settlement %d", tokens, theme.TokenReserves, theme.SettlementBuybackTokens)
	}
}

func TestInitTradingConfigValidation(t *testing.T) {
	engine, _ := newTestEngine(t)
	if _, err := engine.InitTradingConfig(admin, 100, 5_000, 3_000, 2_000); !errors.Is(err, ErrTradingConfigExists) {
		t.Fatalf("expected exists, got %v", err)
	}
	fresh := NewEngine()
	fresh.SetState(newMockState())
	fresh.SetAdmin(admin)
	if _, err := fresh.InitTradingConfig(trader, 100, 5_000, 3_000, 2_000); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if _, err := fresh.InitTradingConfig(admin, 100, 5_000, 3_000, 1_999); !errors.Is(err, ErrInvalidFeeSplits) {
		t.Fatalf("expected invalid splits, got %v", err)
	}
}

func TestInitializeThemeMintsAndReleasesReserve(t *testing.T) {
	engine, st := newTestEngine(t)
	theme := createTheme(t, engine)
	if theme.TokenReserves != 800_000_000_000_000 || theme.CreatorReserve != 200_000_000_000_000 {
		t.Fatalf("unexpected supply split %+v", theme)
	}
	if theme.BaseReserves != 0 || theme.Status != ThemeStatusActive {
		t.Fatalf("unexpected initial state %+v", theme)
	}
	if got := st.balances[balanceKey{creator, theme.Mint}]; got != theme.CreatorReserve {
		t.Fatalf("creator holds %d", got)
	}
	if got := st.supply[theme.Mint]; got != theme.TotalSupply {
		t.Fatalf("minted supply %d", got)
	}
	checkVault(t, st, theme.Key())
	if _, err := engine.InitializeTheme(creator, 1, "dup", "", ""); !errors.Is(err, ErrThemeExists) {
		t.Fatalf("expected exists, got %v", err)
	}
	if _, err := engine.InitializeTheme(creator, 2, "a-very-long-name", "", ""); !errors.Is(err, ErrInvalidThemeMetadata) {
		t.Fatalf("expected metadata error, got %v", err)
	}
	if _, err := engine.InitializeTheme(creator, 3, "ok", "", settlement.Mode("x")); !errors.Is(err, settlement.ErrInvalidVotingMode) {
		t.Fatalf("expected mode error, got %v", err)
	}
}

func TestInitializeThemeAccountsForUnevenSupply(t *testing.T) {
	engine, st := newTestEngine(t)
	p := params.Default()
	p.TokenTotalSupply = 1_000_000_000_000_099
	engine.SetParams(p)
	theme := createTheme(t, engine)
	if theme.TokenReserves != 800_000_000_000_079 {
		t.Fatalf("token reserves %d", theme.TokenReserves)
	}
	if theme.TokenReserves+theme.CreatorReserve != p.TokenTotalSupply {
		t.Fatalf("supply split %d + %d != %d", theme.TokenReserves, theme.CreatorReserve, p.TokenTotalSupply)
	}
	if got := st.balances[balanceKey{creator, theme.Mint}]; got != theme.CreatorReserve {
		t.Fatalf("creator holds %d", got)
	}
	checkVault(t, st, theme.Key())
}

func TestFirstBuyAgainstEmptyBaseReserve(t *testing.T) {
	engine, st := newTestEngine(t)
	theme := createTheme(t, engine)
	fund(st, trader, 1_000_000)
	res, err := engine.SwapBaseForTokens(trader, theme.Key(), 1_000_000, 1)
	if err != nil {
		t.Fatalf("buy: %v", err)
	}
	if res.TokenAmount != 800_000_000_000_000 {
		t.Fatalf("tokens out = %d", res.TokenAmount)
	}
	if res.NewBaseReserves != 990_000 || res.NewTokenReserves != 0 {
		t.Fatalf("reserves = %d / %d", res.NewBaseReserves, res.NewTokenReserves)
	}
	if res.Fee.Buyback != 5_000 || res.Fee.Platform != 3_000 || res.Fee.Creator != 2_000 {
		t.Fatalf("fee split = %+v", res.Fee)
	}
	if got := st.balances[balanceKey{treasury, custody.BaseAsset}]; got != 3_000 {
		t.Fatalf("treasury = %d", got)
	}
	if got := st.balances[balanceKey{creator, custody.BaseAsset}]; got != 2_000 {
		t.Fatalf("creator fee = %d", got)
	}
	if got := st.balances[balanceKey{trader, custody.BaseAsset}]; got != 0 {
		t.Fatalf("trader base left = %d", got)
	}
	checkVault(t, st, theme.Key())
}

func seedLiquidity(t *testing.T, st *mockState, key ThemeKey) {
	t.Helper()
	// Seed a realistic base reserve so follow-up trades move the price gradually.
	theme := st.themes[key]
	theme.BaseReserves = 30_000_000_000
	st.themes[key] = theme
	st.balances[balanceKey{theme.Vault, custody.BaseAsset}] += 30_000_000_000
}

func TestBuySellRoundTripIsLossy(t *testing.T) {
	engine, st := newTestEngine(t)
	theme := createTheme(t, engine)
	seedLiquidity(t, st, theme.Key())
	fund(st, trader, 5_000_000_000)
	buy, err := engine.SwapBaseForTokens(trader, theme.Key(), 5_000_000_000, 0)
	if err != nil {
		t.Fatalf("buy: %v", err)
	}
	checkVault(t, st, theme.Key())
	sell, err := engine.SwapTokensForBase(trader, theme.Key(), buy.TokenAmount, 0)
	if err != nil {
		t.Fatalf("sell: %v", err)
	}
	if sell.BaseAmount >= 5_000_000_000 {
		t.Fatalf("round trip returned %d for 5_000_000_000", sell.BaseAmount)
	}
	if got := st.balances[balanceKey{trader, custody.BaseAsset}]; got != sell.BaseAmount {
		t.Fatalf("trader balance %d != sell output %d", got, sell.BaseAmount)
	}
	if sell.Fee.Total != sell.Fee.Buyback+sell.Fee.Platform+sell.Fee.Creator+sell.Fee.Dust {
		t.Fatalf("sell fee split does not add up: %+v", sell.Fee)
	}
	checkVault(t, st, theme.Key())
}

func TestSwapGuards(t *testing.T) {
	engine, st := newTestEngine(t)
	theme := createTheme(t, engine)
	seedLiquidity(t, st, theme.Key())
	fund(st, trader, 10_000_000)
	if _, err := engine.SwapBaseForTokens(trader, theme.Key(), 999_999, 0); !errors.Is(err, ErrAmountTooSmall) {
		t.Fatalf("expected amount too small, got %v", err)
	}
	quote, _, err := engine.QuoteBuy(theme.Key(), 2_000_000)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if _, err := engine.SwapBaseForTokens(trader, theme.Key(), 2_000_000, quote.TokensOut+1); !errors.Is(err, ErrSlippageExceeded) {
		t.Fatalf("expected slippage, got %v", err)
	}
	if _, err := engine.SwapTokensForBase(trader, theme.Key(), 999_999, 0); !errors.Is(err, ErrAmountTooSmall) {
		t.Fatalf("expected amount too small, got %v", err)
	}
	if _, err := engine.SwapTokensForBase(trader, theme.Key(), 5_000_000, 0); !errors.Is(err, custody.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds for unowned tokens, got %v", err)
	}
	if _, err := engine.SwapBaseForTokens(trader, theme.Key(), 20_000_000, 0); !errors.Is(err, custody.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	if _, err := engine.SwapBaseForTokens(trader, ThemeKey{Creator: creator, ID: 42}, 2_000_000, 0); !errors.Is(err, ErrThemeNotFound) {
		t.Fatalf("expected theme not found, got %v", err)
	}
}

func TestPausedThemeRejectsTrades(t *testing.T) {
	engine, st := newTestEngine(t)
	theme := createTheme(t, engine)
	fund(st, trader, 2_000_000)
	if _, err := engine.SetThemeStatus(trader, theme.Key(), ThemeStatusPaused); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if _, err := engine.SetThemeStatus(admin, theme.Key(), ThemeStatus("frozen")); !errors.Is(err, ErrInvalidThemeStatus) {
		t.Fatalf("expected invalid status, got %v", err)
	}
	if _, err := engine.SetThemeStatus(admin, theme.Key(), ThemeStatusPaused); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if _, err := engine.SwapBaseForTokens(trader, theme.Key(), 2_000_000, 0); !errors.Is(err, ErrThemeInactive) {
		t.Fatalf("expected inactive, got %v", err)
	}
	if _, err := engine.ExecuteBuyback(theme.Key()); !errors.Is(err, ErrThemeInactive) {
		t.Fatalf("expected inactive, got %v", err)
	}
	if _, err := engine.SetThemeStatus(admin, theme.Key(), ThemeStatusActive); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if _, err := engine.SwapBaseForTokens(trader, theme.Key(), 2_000_000, 0); err != nil {
		t.Fatalf("buy after resume: %v", err)
	}
}

func TestExecuteBuybackBurnsTokens(t *testing.T) {
	engine, st := newTestEngine(t)
	theme := createTheme(t, engine)
	seedLiquidity(t, st, theme.Key())
	if _, err := engine.ExecuteBuyback(theme.Key()); !errors.Is(err, ErrBuybackBelowThreshold) {
		t.Fatalf("expected below threshold, got %v", err)
	}
	// A 1% fee with a 50% buyback split needs 20_000 base traded to accrue 100 base.
	fund(st, trader, 20_000_000_000)
	if _, err := engine.SwapBaseForTokens(trader, theme.Key(), 20_000_000_000, 0); err != nil {
		t.Fatalf("buy: %v", err)
	}
	// Settlement contributions arrive as tokens already in the vault.
	key := theme.Key()
	vault := ThemeVault(key)
	current := st.themes[key]
	st.balances[balanceKey{trader, current.Mint}] -= 1_000_000
	st.balances[balanceKey{vault.Address, current.Mint}] += 1_000_000
	if err := AccrueSettlementBuyback(current, 1_000_000); err != nil {
		t.Fatalf("accrue: %v", err)
	}
	st.themes[key] = current
	checkVault(t, st, key)

	before := st.themes[key].Clone()
	if before.BuybackPool != 100_000_000 {
		t.Fatalf("buyback pool = %d", before.BuybackPool)
	}
	expected, err := arith.BuyTokens(before.BuybackPool, before.TokenReserves, before.BaseReserves, 0)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	supplyBefore := st.supply[before.Mint]
	res, err := engine.ExecuteBuyback(key)
	if err != nil {
		t.Fatalf("buyback: %v", err)
	}
	if res.TokensBurned != expected.TokensOut || res.SettlementTokensBurned != 1_000_000 {
		t.Fatalf("unexpected burn %+v", res)
	}
	after := st.themes[key]
	if after.BuybackPool != 0 || after.SettlementBuybackTokens != 0 {
		t.Fatalf("pools not reset: %+v", after)
	}
	if after.BaseReserves != before.BaseReserves+before.BuybackPool {
		t.Fatalf("base reserves = %d", after.BaseReserves)
	}
	if after.CirculatingSupply != before.CirculatingSupply-res.TokensBurned-1_000_000 {
		t.Fatalf("circulating = %d", after.CirculatingSupply)
	}
	if got := st.supply[before.Mint]; got != supplyBefore-res.TokensBurned-1_000_000 {
		t.Fatalf("supply = %d", got)
	}
	checkVault(t, st, key)
}
