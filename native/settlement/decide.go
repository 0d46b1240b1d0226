package settlement

import (
	"tastefun/native/arith"
	"tastefun/native/params"
)

// Variants is the number of candidate images an idea is voted on.
const Variants = params.ImageVariants

// CancelReason explains why a settlement cancelled the idea.
type CancelReason string

const (
	ReasonNone                    CancelReason = ""
	ReasonInsufficientReviewers   CancelReason = "insufficient_participation"
	ReasonRejectedBySupermajority CancelReason = "rejected_by_supermajority"
	ReasonTie                     CancelReason = "vote_tied"
	ReasonPayoutInsolvent         CancelReason = "payout_insolvent"
)

// Tally is the frozen vote state of an idea at its deadline.
type Tally struct {
	TotalStaked    uint64
	TotalVoters    uint64
	VariantWeights [Variants]uint64
	RejectWeight   uint64
	CuratorFeeBps  uint64
}

// Fees is the split of the stake pool for a completed idea.
type Fees struct {
	Curator   uint64
	Platform  uint64
	Remaining uint64
	Buyback   uint64
	Penalty   uint64
}

// Outcome is the result of settling a tally. Fees are only populated when
// Completed is true.
type Outcome struct {
	Completed      bool
	Reason         CancelReason
	Mode           Mode
	TotalWeight    uint64
	RejectRatioBps uint64
	WinningVariant uint8
	WinnerCount    uint64
	Fees           Fees
}

// Decide settles a tally. It is pure: every side effect is the caller's.
func Decide(t Tally, mode Mode, p params.Params) (Outcome, error) {
	if !mode.Valid() {
		return Outcome{}, ErrInvalidVotingMode
	}
	out := Outcome{Mode: mode}
	if t.TotalVoters < p.MinReviewers {
		out.Reason = ReasonInsufficientReviewers
		return out, nil
	}
	total, err := arith.Sum(t.VariantWeights[0], t.VariantWeights[1], t.VariantWeights[2], t.VariantWeights[3], t.RejectWeight)
	if err != nil {
		return Outcome{}, err
	}
	out.TotalWeight = total
	if total > 0 {
		ratio, err := arith.RatioBps(t.RejectWeight, total)
		if err != nil {
			return Outcome{}, err
		}
		out.RejectRatioBps = ratio
		if ratio >= p.RejectAllThresholdBps {
			out.Reason = ReasonRejectedBySupermajority
			return out, nil
		}
	}
	winner, ok := SelectWinner(t.VariantWeights, mode)
	if !ok {
		out.Reason = ReasonTie
		return out, nil
	}
	fees, err := ComputeFees(t.TotalStaked, t.CuratorFeeBps, p)
	if err != nil {
		return Outcome{}, err
	}
	out.Completed = true
	out.WinningVariant = winner
	out.WinnerCount = t.VariantWeights[winner]
	out.Fees = fees
	return out, nil
}

// SelectWinner picks the extremal variant for mode. It reports false when
// more than one variant shares the extremal weight.
func SelectWinner(weights [Variants]uint64, mode Mode) (uint8, bool) {
	best := 0
	for i := 1; i < Variants; i++ {
		switch mode {
		case ModeReverse:
			if weights[i] < weights[best] {
				best = i
			}
		default:
			if weights[i] > weights[best] {
				best = i
			}
		}
	}
	for i := 0; i < Variants; i++ {
		if i != best && weights[i] == weights[best] {
			return 0, false
		}
	}
	return uint8(best), true
}

// ComputeFees splits a stake pool into curator, platform, buyback and
// penalty portions. Curator + Platform + Remaining always equals total.
func ComputeFees(total, curatorBps uint64, p params.Params) (Fees, error) {
	var (
		f   Fees
		err error
	)
	if f.Curator, err = arith.ApplyBps(total, curatorBps); err != nil {
		return Fees{}, err
	}
	if f.Platform, err = arith.ApplyBps(total, p.PlatformFeeBps); err != nil {
		return Fees{}, err
	}
	taken, err := arith.Add(f.Curator, f.Platform)
	if err != nil {
		return Fees{}, err
	}
	if f.Remaining, err = arith.Sub(total, taken); err != nil {
		return Fees{}, err
	}
	if f.Buyback, err = arith.ApplyBps(f.Remaining, p.SettlementBuybackBps); err != nil {
		return Fees{}, err
	}
	if f.Penalty, err = arith.ApplyBps(f.Remaining-f.Buyback, p.PenaltyBps); err != nil {
		return Fees{}, err
	}
	return f, nil
}

// Retained is the portion of the pool left in the idea vault after fees.
func (f Fees) Retained() uint64 { return f.Remaining - f.Buyback }
