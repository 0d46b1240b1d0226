package events

import (
	"strconv"
	"strings"

	"tastefun/core/types"
	"tastefun/crypto"
)

const (
	// TypeBaseMinted is emitted when the base issuer credits new base currency.
	TypeBaseMinted = "custody.base.minted"
)

// BaseMinted records an issuance of base currency, e.g. a development
// faucet credit.
type BaseMinted struct {
	Recipient [20]byte
	Amount    uint64
	Memo      string
}

func (BaseMinted) EventType() string { return TypeBaseMinted }

func (e BaseMinted) Event() *types.Event {
	attrs := map[string]string{
		"recipient": crypto.FromRaw(e.Recipient).String(),
		"amount":    strconv.FormatUint(e.Amount, 10),
	}
	if memo := strings.TrimSpace(e.Memo); memo != "" {
		attrs["memo"] = memo
	}
	return &types.Event{Type: TypeBaseMinted, Attributes: attrs}
}
