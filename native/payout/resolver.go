package payout

import (
	"errors"

	"tastefun/native/arith"
)

var (
	ErrInvalidState     = errors.New("payout: idea is not in a withdrawable state")
	ErrAlreadyWithdrawn = errors.New("payout: already withdrawn")
	ErrNoWinner         = errors.New("payout: no winning variant recorded")
	ErrNotWinner        = errors.New("payout: not a winning voter")
	ErrNotSponsor       = errors.New("payout: caller is not the sponsor")
)

// Phase is the lifecycle phase relevant to withdrawals.
type Phase uint8

const (
	PhaseOpen Phase = iota
	PhaseCompleted
	PhaseCancelled
)

// Settlement is the frozen settlement output of one idea.
type Settlement struct {
	Phase          Phase
	HasWinner      bool
	WinningVariant uint8
	PenaltyPool    uint64
	WinnerCount    uint64
}

// Claim is one participant's stake record.
type Claim struct {
	Choice    uint8
	Staked    uint64
	Processed bool
}

// Share is the penalty-pool bonus owed to each winning voter. Truncation
// remainders stay in the idea vault and are swept as residual.
func Share(penaltyPool, winnerCount uint64) (uint64, error) {
	if winnerCount == 0 {
		return 0, arith.ErrDivisionByZero
	}
	return penaltyPool / winnerCount, nil
}

// Winnings returns the payout for a winning voter of a completed idea.
func Winnings(s Settlement, c Claim) (uint64, error) {
	if s.Phase != PhaseCompleted {
		return 0, ErrInvalidState
	}
	if c.Processed {
		return 0, ErrAlreadyWithdrawn
	}
	if !s.HasWinner {
		return 0, ErrNoWinner
	}
	if c.Choice != s.WinningVariant {
		return 0, ErrNotWinner
	}
	share, err := Share(s.PenaltyPool, s.WinnerCount)
	if err != nil {
		return 0, err
	}
	return arith.Add(c.Staked, share)
}

// Refund returns the full stake of a participant in a cancelled idea.
func Refund(s Settlement, c Claim) (uint64, error) {
	if s.Phase != PhaseCancelled {
		return 0, ErrInvalidState
	}
	if c.Processed {
		return 0, ErrAlreadyWithdrawn
	}
	return c.Staked, nil
}

// Sponsorship describes the prize pool a sponsor funded up front.
type Sponsorship struct {
	Sponsor   [20]byte
	Sponsored bool
	PrizePool uint64
	Refunded  bool
}

// SponsorRefund returns the prize pool owed back to the sponsor of a
// cancelled idea.
func SponsorRefund(s Settlement, sp Sponsorship, caller [20]byte) (uint64, error) {
	if !sp.Sponsored || sp.Sponsor != caller {
		return 0, ErrNotSponsor
	}
	if s.Phase != PhaseCancelled {
		return 0, ErrInvalidState
	}
	if sp.Refunded {
		return 0, ErrAlreadyWithdrawn
	}
	return sp.PrizePool, nil
}

// Reserved is the amount still owed to winning voters: their stake plus one
// share each.
func Reserved(winningStake, winningVoters, share uint64) (uint64, error) {
	bonus, err := arith.MulDiv(winningVoters, share, 1)
	if err != nil {
		return 0, err
	}
	return arith.Add(winningStake, bonus)
}
