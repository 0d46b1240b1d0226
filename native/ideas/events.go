package ideas

import (
	"encoding/hex"
	"strconv"
	"strings"

	"tastefun/core/types"
)

const (
	TypeIdeaCreated            = "ideas.idea.created"
	TypeSponsoredIdeaCreated   = "ideas.idea.sponsored"
	TypeImagesGenerated        = "ideas.images.generated"
	TypeImageGenerationFailed  = "ideas.images.failed"
	TypeVoteCast               = "ideas.vote.cast"
	TypeIdeaCancelled          = "ideas.idea.cancelled"
	TypeVotingSettled          = "ideas.voting.settled"
	TypeVotingCancelled        = "ideas.voting.cancelled"
	TypeWinningsWithdrawn      = "ideas.winnings.withdrawn"
	TypeRefundWithdrawn        = "ideas.refund.withdrawn"
	TypeSponsorRefundWithdrawn = "ideas.sponsor_refund.withdrawn"
	TypeResidualSwept          = "ideas.residual.swept"
)

func hexAddr(addr [20]byte) string {
	return "0x" + hex.EncodeToString(addr[:])
}

func u64(v uint64) string { return strconv.FormatUint(v, 10) }

func ideaAttrs(key IdeaKey) map[string]string {
	return map[string]string{
		"initiator": hexAddr(key.Initiator),
		"ideaId":    u64(key.ID),
	}
}

// IdeaCreated is emitted by CreateIdea.
type IdeaCreated struct {
	Idea           IdeaKey
	Prompt         string
	OracleProvider [20]byte
}

func (IdeaCreated) EventType() string { return TypeIdeaCreated }

func (e IdeaCreated) Event() *types.Event {
	attrs := ideaAttrs(e.Idea)
	attrs["prompt"] = e.Prompt
	attrs["oracleProvider"] = hexAddr(e.OracleProvider)
	return &types.Event{Type: TypeIdeaCreated, Attributes: attrs}
}

// SponsoredIdeaCreated is emitted by CreateSponsoredIdea.
type SponsoredIdeaCreated struct {
	Idea             IdeaKey
	Sponsor          [20]byte
	Prompt           string
	InitialPrizePool uint64
	OracleProvider   [20]byte
}

func (SponsoredIdeaCreated) EventType() string { return TypeSponsoredIdeaCreated }

func (e SponsoredIdeaCreated) Event() *types.Event {
	attrs := ideaAttrs(e.Idea)
	attrs["sponsor"] = hexAddr(e.Sponsor)
	attrs["prompt"] = e.Prompt
	attrs["initialPrizePool"] = u64(e.InitialPrizePool)
	attrs["oracleProvider"] = hexAddr(e.OracleProvider)
	return &types.Event{Type: TypeSponsoredIdeaCreated, Attributes: attrs}
}

// ImagesGenerated is emitted when the oracle confirms the candidate images.
type ImagesGenerated struct {
	Idea           IdeaKey
	ImageURIs      []string
	VotingDeadline int64
}

func (ImagesGenerated) EventType() string { return TypeImagesGenerated }

func (e ImagesGenerated) Event() *types.Event {
	attrs := ideaAttrs(e.Idea)
	attrs["imageUris"] = strings.Join(e.ImageURIs, ",")
	attrs["votingDeadline"] = strconv.FormatInt(e.VotingDeadline, 10)
	return &types.Event{Type: TypeImagesGenerated, Attributes: attrs}
}

// ImageGenerationFailed is emitted when the oracle reports a failed job.
type ImageGenerationFailed struct {
	Idea   IdeaKey
	Reason string
}

func (ImageGenerationFailed) EventType() string { return TypeImageGenerationFailed }

func (e ImageGenerationFailed) Event() *types.Event {
	attrs := ideaAttrs(e.Idea)
	if reason := strings.TrimSpace(e.Reason); reason != "" {
		attrs["reason"] = reason
	}
	return &types.Event{Type: TypeImageGenerationFailed, Attributes: attrs}
}

// VoteCast is emitted for every accepted stake.
type VoteCast struct {
	Idea        IdeaKey
	Voter       [20]byte
	Choice      uint8
	StakeAmount uint64
	Weight      uint64
}

func (VoteCast) EventType() string { return TypeVoteCast }

func (e VoteCast) Event() *types.Event {
	attrs := ideaAttrs(e.Idea)
	attrs["voter"] = hexAddr(e.Voter)
	attrs["choice"] = strconv.FormatUint(uint64(e.Choice), 10)
	attrs["stakeAmount"] = u64(e.StakeAmount)
	attrs["weight"] = u64(e.Weight)
	return &types.Event{Type: TypeVoteCast, Attributes: attrs}
}

// IdeaCancelled is emitted by CancelIdea and FailGeneration.
type IdeaCancelled struct {
	Idea   IdeaKey
	Reason string
}

func (IdeaCancelled) EventType() string { return TypeIdeaCancelled }

func (e IdeaCancelled) Event() *types.Event {
	attrs := ideaAttrs(e.Idea)
	attrs["reason"] = e.Reason
	return &types.Event{Type: TypeIdeaCancelled, Attributes: attrs}
}

// VotingSettled is emitted when settlement picks a winner.
type VotingSettled struct {
	Idea                IdeaKey
	WinningVariant      uint8
	TotalStaked         uint64
	CuratorFee          uint64
	PlatformFee         uint64
	BuybackContribution uint64
	PenaltyPool         uint64
	WinnerCount         uint64
	Residual            uint64
}

func (VotingSettled) EventType() string { return TypeVotingSettled }

func (e VotingSettled) Event() *types.Event {
	attrs := ideaAttrs(e.Idea)
	attrs["winningVariant"] = strconv.FormatUint(uint64(e.WinningVariant), 10)
	attrs["totalStaked"] = u64(e.TotalStaked)
	attrs["curatorFee"] = u64(e.CuratorFee)
	attrs["platformFee"] = u64(e.PlatformFee)
	attrs["buybackContribution"] = u64(e.BuybackContribution)
	attrs["penaltyPool"] = u64(e.PenaltyPool)
	attrs["winnerCount"] = u64(e.WinnerCount)
	attrs["residual"] = u64(e.Residual)
	return &types.Event{Type: TypeVotingSettled, Attributes: attrs}
}

// VotingCancelled is emitted when settlement cancels the idea.
type VotingCancelled struct {
	Idea   IdeaKey
	Reason string
}

func (VotingCancelled) EventType() string { return TypeVotingCancelled }

func (e VotingCancelled) Event() *types.Event {
	attrs := ideaAttrs(e.Idea)
	attrs["reason"] = e.Reason
	return &types.Event{Type: TypeVotingCancelled, Attributes: attrs}
}

// Withdrawal is the payload shared by every payout event.
type Withdrawal struct {
	Idea      IdeaKey
	Recipient [20]byte
	Amount    uint64
}

func (w Withdrawal) attrs() map[string]string {
	attrs := ideaAttrs(w.Idea)
	attrs["recipient"] = hexAddr(w.Recipient)
	attrs["amount"] = u64(w.Amount)
	return attrs
}

// WinningsWithdrawn is emitted when a winning voter collects.
type WinningsWithdrawn struct{ Withdrawal }

func (WinningsWithdrawn) EventType() string { return TypeWinningsWithdrawn }

func (e WinningsWithdrawn) Event() *types.Event {
	return &types.Event{Type: TypeWinningsWithdrawn, Attributes: e.attrs()}
}

// RefundWithdrawn is emitted when a voter reclaims a cancelled stake.
type RefundWithdrawn struct{ Withdrawal }

func (RefundWithdrawn) EventType() string { return TypeRefundWithdrawn }

func (e RefundWithdrawn) Event() *types.Event {
	return &types.Event{Type: TypeRefundWithdrawn, Attributes: e.attrs()}
}

// SponsorRefundWithdrawn is emitted when a sponsor reclaims the prize pool.
type SponsorRefundWithdrawn struct{ Withdrawal }

func (SponsorRefundWithdrawn) EventType() string { return TypeSponsorRefundWithdrawn }

func (e SponsorRefundWithdrawn) Event() *types.Event {
	return &types.Event{Type: TypeSponsorRefundWithdrawn, Attributes: e.attrs()}
}

// ResidualSwept is emitted when unowed settlement remainder leaves the vault.
type ResidualSwept struct{ Withdrawal }

func (ResidualSwept) EventType() string { return TypeResidualSwept }

func (e ResidualSwept) Event() *types.Event {
	return &types.Event{Type: TypeResidualSwept, Attributes: e.attrs()}
}
