package custody

import (
	"errors"
	"testing"
)

type balanceKey struct {
	addr  [20]byte
	asset Asset
}

type mockState struct {
	balances map[balanceKey]uint64
	supply   map[Asset]uint64
}

func newMockState() *mockState {
	return &mockState{balances: make(map[balanceKey]uint64), supply: make(map[Asset]uint64)}
}

func (m *mockState) BalanceGet(addr [20]byte, asset Asset) (uint64, error) {
	return m.balances[balanceKey{addr, asset}], nil
}

func (m *mockState) BalancePut(addr [20]byte, asset Asset, amount uint64) error {
	m.balances[balanceKey{addr, asset}] = amount
	return nil
}

func (m *mockState) SupplyGet(asset Asset) (uint64, error) { return m.supply[asset], nil }

func (m *mockState) SupplyPut(asset Asset, amount uint64) error {
	m.supply[asset] = amount
	return nil
}

var (
	testIssuer = MustClaim(DomainBaseIssuer)
	testMint   = MustClaim(DomainThemeMint)
	testVaults = MustClaim(DomainIdeaVault)
)

func TestClaimIsSingleUse(t *testing.T) {
	if _, err := Claim(DomainIdeaVault); !errors.Is(err, errDomainClaimed) {
		t.Fatalf("expected second claim to fail, got %v", err)
	}
}

func TestTransferMovesFunds(t *testing.T) {
	st := newMockState()
	ledger := NewLedger(st)
	alice := [20]byte{1}
	bob := [20]byte{2}
	if err := ledger.Mint(testIssuer, BaseAsset, alice, 100); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := ledger.Transfer(alice, bob, BaseAsset, 60); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if got, _ := ledger.Balance(alice, BaseAsset); got != 40 {
		t.Fatalf("alice balance = %d", got)
	}
	if got, _ := ledger.Balance(bob, BaseAsset); got != 60 {
		t.Fatalf("bob balance = %d", got)
	}
	if err := ledger.Transfer(alice, bob, BaseAsset, 41); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	if err := ledger.Transfer(alice, bob, BaseAsset, 0); err != nil {
		t.Fatalf("zero transfer should be a no-op: %v", err)
	}
	if err := ledger.Transfer(alice, alice, BaseAsset, 40); err != nil {
		t.Fatalf("self transfer: %v", err)
	}
	if err := ledger.Transfer(alice, alice, BaseAsset, 41); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("self transfer must still check funds, got %v", err)
	}
	if supply, _ := ledger.Supply(BaseAsset); supply != 100 {
		t.Fatalf("supply = %d", supply)
	}
}

func TestVaultWithdrawRequiresMatchingAuthority(t *testing.T) {
	st := newMockState()
	ledger := NewLedger(st)
	owner := [20]byte{9}
	vault := NewVault(DomainIdeaVault, owner[:], []byte{0, 0, 0, 1})
	other := NewVault(DomainThemeVault, owner[:])
	asset := Asset(DeriveAddress(DomainThemeMint, owner[:]))
	if err := ledger.Mint(testMint, asset, owner, 50); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := ledger.Deposit(owner, vault, asset, 50); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := ledger.Withdraw(testMint, vault, owner, asset, 10); !errors.Is(err, ErrUnauthorizedVault) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if err := ledger.Withdraw(testVaults, other, owner, asset, 10); !errors.Is(err, ErrUnauthorizedVault) {
		t.Fatalf("expected unauthorized for foreign vault, got %v", err)
	}
	if err := ledger.Withdraw(Authority{}, Vault{Address: vault.Address}, owner, asset, 10); !errors.Is(err, ErrUnauthorizedVault) {
		t.Fatalf("zero authority must not open a zero-domain vault: %v", err)
	}
	if err := ledger.Withdraw(testVaults, vault, owner, asset, 10); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if got, _ := ledger.Balance(vault.Address, asset); got != 40 {
		t.Fatalf("vault balance = %d", got)
	}
}

func TestMintAndBurnTrackSupply(t *testing.T) {
	st := newMockState()
	ledger := NewLedger(st)
	creator := [20]byte{3}
	vault := NewVault(DomainIdeaVault, creator[:])
	asset := Asset(DeriveAddress(DomainThemeMint, creator[:]))
	if err := ledger.Mint(testIssuer, asset, vault.Address, 10); !errors.Is(err, ErrUnauthorizedVault) {
		t.Fatalf("issuer must not mint theme tokens: %v", err)
	}
	if err := ledger.Mint(testMint, asset, vault.Address, 1_000); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := ledger.Burn(testVaults, vault, asset, 1_001); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	if err := ledger.Burn(testVaults, vault, asset, 400); err != nil {
		t.Fatalf("burn: %v", err)
	}
	if supply, _ := ledger.Supply(asset); supply != 600 {
		t.Fatalf("supply = %d", supply)
	}
	if bal, _ := ledger.Balance(vault.Address, asset); bal != 600 {
		t.Fatalf("balance = %d", bal)
	}
}

func TestDeriveAddressSeparatesDomains(t *testing.T) {
	seed := []byte("seed")
	if DeriveAddress(DomainIdeaVault, seed) == DeriveAddress(DomainThemeVault, seed) {
		t.Fatalf("domains must not collide")
	}
	if DeriveAddress(DomainIdeaVault, seed) != DeriveAddress(DomainIdeaVault, seed) {
		t.Fatalf("derivation must be deterministic")
	}
}
