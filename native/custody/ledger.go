package custody

import (
	"encoding/hex"
	"errors"

	"tastefun/native/arith"
)

// Asset identifies a fungible balance. The zero asset is the base currency;
// theme tokens use their mint address.
type Asset [20]byte

// BaseAsset is the native currency used for fees and reserves.
var BaseAsset Asset

// IsBase reports whether the asset is the base currency.
func (a Asset) IsBase() bool { return a == BaseAsset }

func (a Asset) String() string {
	if a.IsBase() {
		return "base"
	}
	return "0x" + hex.EncodeToString(a[:])
}

var (
	errNilState = errors.New("custody: state not configured")

	ErrInsufficientFunds = errors.New("custody: insufficient funds")
	ErrUnauthorizedVault = errors.New("custody: authority does not control vault")
)

type ledgerState interface {
	BalanceGet(addr [20]byte, asset Asset) (uint64, error)
	BalancePut(addr [20]byte, asset Asset, amount uint64) error
	SupplyGet(asset Asset) (uint64, error)
	SupplyPut(asset Asset, amount uint64) error
}

// Ledger applies balance movements against the state of the enclosing
// transaction. It holds no state of its own.
type Ledger struct {
	state ledgerState
}

// NewLedger binds a ledger to a state backend.
func NewLedger(state ledgerState) *Ledger { return &Ledger{state: state} }

// Balance returns the holdings of addr in asset.
func (l *Ledger) Balance(addr [20]byte, asset Asset) (uint64, error) {
	if l == nil || l.state == nil {
		return 0, errNilState
	}
	return l.state.BalanceGet(addr, asset)
}

// Supply returns the outstanding supply of asset.
func (l *Ledger) Supply(asset Asset) (uint64, error) {
	if l == nil || l.state == nil {
		return 0, errNilState
	}
	return l.state.SupplyGet(asset)
}

// Transfer moves amount of asset between two accounts. Zero amounts are a
// no-op; a transfer to self only checks the balance.
func (l *Ledger) Transfer(from, to [20]byte, asset Asset, amount uint64) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	if amount == 0 {
		return nil
	}
	fromBal, err := l.state.BalanceGet(from, asset)
	if err != nil {
		return err
	}
	if fromBal < amount {
		return ErrInsufficientFunds
	}
	if from == to {
		return nil
	}
	toBal, err := l.state.BalanceGet(to, asset)
	if err != nil {
		return err
	}
	credited, err := arith.Add(toBal, amount)
	if err != nil {
		return err
	}
	if err := l.state.BalancePut(from, asset, fromBal-amount); err != nil {
		return err
	}
	return l.state.BalancePut(to, asset, credited)
}

// Deposit moves funds from a participant into a vault.
func (l *Ledger) Deposit(from [20]byte, vault Vault, asset Asset, amount uint64) error {
	return l.Transfer(from, vault.Address, asset, amount)
}

// Withdraw moves funds out of a vault. The caller must hold the authority for
// the vault's domain.
func (l *Ledger) Withdraw(auth Authority, vault Vault, to [20]byte, asset Asset, amount uint64) error {
	if err := checkAuthority(auth, vault); err != nil {
		return err
	}
	return l.Transfer(vault.Address, to, asset, amount)
}

// Mint creates new units of asset and credits them to the recipient. Theme
// tokens require the mint authority; the base currency requires the issuer.
func (l *Ledger) Mint(auth Authority, asset Asset, to [20]byte, amount uint64) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	want := DomainThemeMint
	if asset.IsBase() {
		want = DomainBaseIssuer
	}
	if auth.domain != want {
		return ErrUnauthorizedVault
	}
	if amount == 0 {
		return nil
	}
	supply, err := l.state.SupplyGet(asset)
	if err != nil {
		return err
	}
	newSupply, err := arith.Add(supply, amount)
	if err != nil {
		return err
	}
	bal, err := l.state.BalanceGet(to, asset)
	if err != nil {
		return err
	}
	newBal, err := arith.Add(bal, amount)
	if err != nil {
		return err
	}
	if err := l.state.SupplyPut(asset, newSupply); err != nil {
		return err
	}
	return l.state.BalancePut(to, asset, newBal)
}

// Burn destroys amount of asset held by a vault.
func (l *Ledger) Burn(auth Authority, vault Vault, asset Asset, amount uint64) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	if err := checkAuthority(auth, vault); err != nil {
		return err
	}
	if amount == 0 {
		return nil
	}
	bal, err := l.state.BalanceGet(vault.Address, asset)
	if err != nil {
		return err
	}
	if bal < amount {
		return ErrInsufficientFunds
	}
	supply, err := l.state.SupplyGet(asset)
	if err != nil {
		return err
	}
	newSupply, err := arith.Sub(supply, amount)
	if err != nil {
		return err
	}
	if err := l.state.BalancePut(vault.Address, asset, bal-amount); err != nil {
		return err
	}
	return l.state.SupplyPut(asset, newSupply)
}

func checkAuthority(auth Authority, vault Vault) error {
	if auth.domain == domainUnspecified || auth.domain != vault.domain {
		return ErrUnauthorizedVault
	}
	return nil
}
