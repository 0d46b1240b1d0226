package settlement

import (
	"errors"
	"strings"
)

// Mode selects how the winning variant is chosen.
type Mode string

const (
	// ModeClassic awards the variant with the highest weight.
	ModeClassic Mode = "classic"
	// ModeReverse awards the variant with the lowest weight.
	ModeReverse Mode = "reverse"
	// ModeMiddleWay currently resolves exactly like ModeClassic.
	ModeMiddleWay Mode = "middle_way"
)

// ErrInvalidVotingMode is returned for unknown mode names.
var ErrInvalidVotingMode = errors.New("settlement: invalid voting mode")

// ParseMode normalises a mode name. An empty name yields an empty Mode so that
// callers can fall back to a default.
func ParseMode(raw string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return "", nil
	case "classic":
		return ModeClassic, nil
	case "reverse":
		return ModeReverse, nil
	case "middle_way", "middleway", "middle-way":
		return ModeMiddleWay, nil
	default:
		return "", ErrInvalidVotingMode
	}
}

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeClassic, ModeReverse, ModeMiddleWay:
		return true
	}
	return false
}
