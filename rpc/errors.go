package rpc

import (
	"errors"
	"net/http"

	"tastefun/core"
	"tastefun/crypto"
	"tastefun/native/arith"
	"tastefun/native/custody"
	"tastefun/native/ideas"
	"tastefun/native/market"
	"tastefun/native/settlement"
	"tastefun/storage"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

var (
	notFoundErrors = []error{
		ideas.ErrIdeaNotFound,
		ideas.ErrStakeNotFound,
		market.ErrThemeNotFound,
		market.ErrTradingConfigMissing,
		storage.ErrNotFound,
	}
	forbiddenErrors = []error{
		ideas.ErrUnauthorizedOracle,
		ideas.ErrUnauthorized,
		ideas.ErrNotSponsor,
		market.ErrUnauthorized,
		custody.ErrUnauthorizedVault,
		core.ErrFaucetOff,
	}
	conflictErrors = []error{
		ideas.ErrIdeaExists,
		ideas.ErrAlreadyVoted,
		ideas.ErrInvalidState,
		ideas.ErrVotingEnded,
		ideas.ErrVotingNotEnded,
		ideas.ErrAlreadyWithdrawn,
		ideas.ErrResidualSwept,
		ideas.ErrNoWinner,
		ideas.ErrNotWinner,
		market.ErrThemeExists,
		market.ErrThemeInactive,
		market.ErrTradingConfigExists,
		storage.ErrKeyExists,
	}
	unprocessableErrors = []error{
		ideas.ErrStakeTooLow,
		market.ErrAmountTooSmall,
		market.ErrSlippageExceeded,
		market.ErrInsufficientReserves,
		market.ErrBuybackBelowThreshold,
		custody.ErrInsufficientFunds,
		arith.ErrOverflow,
		arith.ErrUnderflow,
		arith.ErrDivisionByZero,
		arith.ErrZeroInput,
	}
	badRequestErrors = []error{
		ideas.ErrInvalidPrompt,
		ideas.ErrInvalidVotingDuration,
		ideas.ErrInvalidImageCount,
		ideas.ErrInvalidImageURI,
		ideas.ErrInvalidImageIndex,
		market.ErrInvalidThemeMetadata,
		market.ErrInvalidThemeStatus,
		market.ErrInvalidFeeSplits,
		settlement.ErrInvalidVotingMode,
		arith.ErrInvalidBps,
		crypto.ErrInvalidAddress,
		crypto.ErrWrongPrefix,
	}
)

func matches(err error, candidates []error) bool {
	for _, candidate := range candidates {
		if errors.Is(err, candidate) {
			return true
		}
	}
	return false
}

// statusFor maps an operation error to its HTTP status.
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case matches(err, notFoundErrors):
		return http.StatusNotFound
	case matches(err, forbiddenErrors):
		return http.StatusForbidden
	case matches(err, conflictErrors):
		return http.StatusConflict
	case matches(err, unprocessableErrors):
		return http.StatusUnprocessableEntity
	case matches(err, badRequestErrors):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
