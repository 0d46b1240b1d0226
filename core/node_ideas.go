package core

import (
	"context"

	"tastefun/native/ideas"
	"tastefun/native/market"
	"tastefun/native/settlement"
)

// CreateIdeaRequest describes a new idea. A non-zero PrizePool makes it a
// sponsored idea funded by Sponsor.
type CreateIdeaRequest struct {
	Initiator      [20]byte
	ID             uint64
	Prompt         string
	Theme          market.ThemeKey
	OracleProvider [20]byte
	VotingHours    uint32
	Sponsor        [20]byte
	PrizePool      uint64
}

// CreateIdea registers an idea and charges the creation fee.
func (n *Node) CreateIdea(ctx context.Context, req CreateIdeaRequest) (*ideas.Idea, error) {
	key := ideas.IdeaKey{Initiator: req.Initiator, ID: req.ID}
	var out *ideas.Idea
	err := n.update(ctx, "create_idea", ideaAttrs(key), func(e engines) error {
		var err error
		out, err = e.ideas.CreateIdea(req.Initiator, req.ID, req.Prompt, req.Theme, req.OracleProvider, req.VotingHours)
		return err
	})
	return out, err
}

// CreateSponsoredIdea registers an idea whose prize pool the sponsor funds
// up front.
func (n *Node) CreateSponsoredIdea(ctx context.Context, req CreateIdeaRequest) (*ideas.Idea, error) {
	key := ideas.IdeaKey{Initiator: req.Initiator, ID: req.ID}
	var out *ideas.Idea
	err := n.update(ctx, "create_sponsored_idea", ideaAttrs(key), func(e engines) error {
		var err error
		out, err = e.ideas.CreateSponsoredIdea(req.Initiator, req.Sponsor, req.ID, req.Prompt, req.Theme, req.OracleProvider, req.VotingHours, req.PrizePool)
		return err
	})
	return out, err
}

// ConfirmImages records the oracle's images and opens voting.
func (n *Node) ConfirmImages(ctx context.Context, caller [20]byte, key ideas.IdeaKey, uris []string) (*ideas.Idea, error) {
	var out *ideas.Idea
	err := n.update(ctx, "confirm_images", ideaAttrs(key), func(e engines) error {
		var err error
		out, err = e.ideas.ConfirmImages(caller, key, uris)
		return err
	})
	return out, err
}

// FailGeneration cancels an idea whose images could not be produced.
func (n *Node) FailGeneration(ctx context.Context, caller [20]byte, key ideas.IdeaKey, reason string) (*ideas.Idea, error) {
	var out *ideas.Idea
	err := n.update(ctx, "fail_generation", ideaAttrs(key), func(e engines) error {
		var err error
		out, err = e.ideas.FailGeneration(caller, key, reason)
		return err
	})
	return out, err
}

// Vote stakes amount on a variant, or on reject-all with ideas.RejectAll.
func (n *Node) Vote(ctx context.Context, voter [20]byte, key ideas.IdeaKey, choice uint8, amount uint64) (*ideas.Vote, error) {
	var out *ideas.Vote
	err := n.update(ctx, "vote", ideaAttrs(key), func(e engines) error {
		var err error
		out, err = e.ideas.VoteForImage(voter, key, choice, amount)
		return err
	})
	return out, err
}

// CancelIdea cancels an open idea.
func (n *Node) CancelIdea(ctx context.Context, caller [20]byte, key ideas.IdeaKey) (*ideas.Idea, error) {
	var out *ideas.Idea
	err := n.update(ctx, "cancel_idea", ideaAttrs(key), func(e engines) error {
		var err error
		out, err = e.ideas.CancelIdea(caller, key)
		return err
	})
	return out, err
}

// SettleVoting settles an idea whose voting window has closed. Settlement
// fees, the theme accrual and the idea update commit together.
func (n *Node) SettleVoting(ctx context.Context, key ideas.IdeaKey, mode settlement.Mode) (*ideas.Idea, settlement.Outcome, error) {
	var (
		out     *ideas.Idea
		outcome settlement.Outcome
	)
	err := n.update(ctx, "settle_voting", ideaAttrs(key), func(e engines) error {
		var err error
		out, outcome, err = e.ideas.SettleVoting(key, mode)
		return err
	})
	return out, outcome, err
}

// WithdrawWinnings pays a winning voter.
func (n *Node) WithdrawWinnings(ctx context.Context, voter [20]byte, key ideas.IdeaKey) (uint64, error) {
	return n.payout(ctx, "withdraw_winnings", key, func(e engines) (uint64, error) {
		return e.ideas.WithdrawWinnings(voter, key)
	})
}

// WithdrawRefund refunds a voter of a cancelled idea.
func (n *Node) WithdrawRefund(ctx context.Context, voter [20]byte, key ideas.IdeaKey) (uint64, error) {
	return n.payout(ctx, "withdraw_refund", key, func(e engines) (uint64, error) {
		return e.ideas.WithdrawRefund(voter, key)
	})
}

// WithdrawSponsorRefund returns a cancelled idea's prize pool to its sponsor.
func (n *Node) WithdrawSponsorRefund(ctx context.Context, caller [20]byte, key ideas.IdeaKey) (uint64, error) {
	return n.payout(ctx, "withdraw_sponsor_refund", key, func(e engines) (uint64, error) {
		return e.ideas.WithdrawSponsorRefund(caller, key)
	})
}

// SweepResidual moves a settled idea's unclaimable balance to the dust sink.
func (n *Node) SweepResidual(ctx context.Context, key ideas.IdeaKey) (uint64, error) {
	return n.payout(ctx, "sweep_residual", key, func(e engines) (uint64, error) {
		return e.ideas.SweepResidual(key)
	})
}

func (n *Node) payout(ctx context.Context, op string, key ideas.IdeaKey, fn func(engines) (uint64, error)) (uint64, error) {
	var amount uint64
	err := n.update(ctx, op, ideaAttrs(key), func(e engines) error {
		var err error
		amount, err = fn(e)
		return err
	})
	return amount, err
}

// Idea loads an idea.
func (n *Node) Idea(key ideas.IdeaKey) (*ideas.Idea, error) {
	var out *ideas.Idea
	err := n.view(func(e engines) error {
		var err error
		out, err = e.ideas.Idea(key)
		return err
	})
	return out, err
}

// IdeaVote loads a voter's vote together with its stake record.
func (n *Node) IdeaVote(key ideas.IdeaKey, voter [20]byte) (*ideas.Vote, *ideas.ReviewerStake, error) {
	var (
		vote  *ideas.Vote
		stake *ideas.ReviewerStake
	)
	err := n.view(func(e engines) error {
		var err error
		if vote, err = e.ideas.Vote(key, voter); err != nil {
			return err
		}
		stake, err = e.ideas.ReviewerStake(key, voter)
		return err
	})
	return vote, stake, err
}

// Ideas lists every idea, optionally restricted to one initiator.
func (n *Node) Ideas(initiator *[20]byte) ([]*ideas.Idea, error) {
	var out []*ideas.Idea
	err := n.view(func(e engines) error {
		return e.state.Ideas(func(idea *ideas.Idea) error {
			if initiator != nil && idea.Initiator != *initiator {
				return nil
			}
			out = append(out, idea)
			return nil
		})
	})
	return out, err
}
