package custody

import (
	"encoding/hex"
	"errors"
	"sync"

	"lukechampine.com/blake3"
)

// Domain scopes a family of derived custody addresses.
type Domain string

const (
	DomainIdeaVault   Domain = "idea_vault"
	DomainThemeVault  Domain = "theme_vault"
	DomainThemeMint   Domain = "theme_mint"
	DomainBaseIssuer  Domain = "base_issuer"
	domainUnspecified Domain = ""
)

var errDomainClaimed = errors.New("custody: domain authority already claimed")

// Authority is the capability to move funds out of vaults belonging to one
// domain. Only the first claimant of a domain receives it.
type Authority struct {
	domain Domain
}

// Domain reports which vault family the authority controls.
func (a Authority) Domain() Domain { return a.domain }

var (
	claimMu sync.Mutex
	claimed = make(map[Domain]struct{})
)

// Claim hands out the authority for domain exactly once per process.
func Claim(domain Domain) (Authority, error) {
	if domain == domainUnspecified {
		return Authority{}, errors.New("custody: domain required")
	}
	claimMu.Lock()
	defer claimMu.Unlock()
	if _, ok := claimed[domain]; ok {
		return Authority{}, errDomainClaimed
	}
	claimed[domain] = struct{}{}
	return Authority{domain: domain}, nil
}

// MustClaim is Claim for package-level initialisation.
func MustClaim(domain Domain) Authority {
	auth, err := Claim(domain)
	if err != nil {
		panic(err)
	}
	return auth
}

// Vault is a derived custody account owned by a single idea or theme.
type Vault struct {
	Address [20]byte
	domain  Domain
}

// Domain returns the vault family.
func (v Vault) Domain() Domain { return v.domain }

// String renders the vault address as hex.
func (v Vault) String() string { return "0x" + hex.EncodeToString(v.Address[:]) }

// DeriveAddress hashes the domain tag and seed parts with BLAKE3 and keeps
// the leading 20 bytes.
func DeriveAddress(domain Domain, parts ...[]byte) [20]byte {
	size := len(domain)
	for _, part := range parts {
		size += len(part)
	}
	buf := make([]byte, 0, size)
	buf = append(buf, domain...)
	for _, part := range parts {
		buf = append(buf, part...)
	}
	digest := blake3.Sum256(buf)
	var out [20]byte
	copy(out[:], digest[:20])
	return out
}

// NewVault derives the vault for the given seed parts.
func NewVault(domain Domain, parts ...[]byte) Vault {
	return Vault{Address: DeriveAddress(domain, parts...), domain: domain}
}
