package ideas

import (
	"encoding/binary"

	"tastefun/native/custody"
	"tastefun/native/market"
	"tastefun/native/payout"
	"tastefun/native/settlement"
)

// RejectAll is the variant index that votes against every candidate.
const RejectAll uint8 = 255

// Variants is the number of candidate images per idea.
const Variants = settlement.Variants

// Status is the lifecycle state of an idea.
type Status string

const (
	StatusGeneratingImages Status = "generating_images"
	StatusVoting           Status = "voting"
	StatusCompleted        Status = "completed"
	StatusCancelled        Status = "cancelled"
)

// GenerationStatus tracks the oracle's image generation job.
type GenerationStatus string

const (
	GenerationPending   GenerationStatus = "pending"
	GenerationCompleted GenerationStatus = "completed"
	GenerationFailed    GenerationStatus = "failed"
)

// IdeaKey addresses an idea by its initiator and initiator-chosen id.
type IdeaKey struct {
	Initiator [20]byte `json:"initiator"`
	ID        uint64   `json:"id"`
}

// Bytes renders the key as initiator || big-endian id.
func (k IdeaKey) Bytes() []byte {
	out := make([]byte, 28)
	copy(out, k.Initiator[:])
	binary.BigEndian.PutUint64(out[20:], k.ID)
	return out
}

// IdeaVault returns the custody vault holding an idea's stake pool.
func IdeaVault(key IdeaKey) custody.Vault {
	return custody.NewVault(custody.DomainIdeaVault, key.Bytes())
}

// Idea is one proposed creative competition.
type Idea struct {
	Initiator      [20]byte        `json:"initiator"`
	ID             uint64          `json:"id"`
	Prompt         string          `json:"prompt"`
	CreatedAt      int64           `json:"createdAt"`
	Theme          market.ThemeKey `json:"theme"`
	ThemeMint      custody.Asset   `json:"themeMint"`
	Vault          [20]byte        `json:"vault"`
	OracleProvider [20]byte        `json:"oracleProvider"`

	ImageURIs          []string         `json:"imageUris,omitempty"`
	GenerationStatus   GenerationStatus `json:"generationStatus"`
	GenerationDeadline int64            `json:"generationDeadline"`
	// VotingDurationHours is validated on creation but the voting window is
	// always the protocol default.
	VotingDurationHours uint32 `json:"votingDurationHours"`

	Sponsored        bool     `json:"sponsored"`
	Sponsor          [20]byte `json:"sponsor"`
	InitialPrizePool uint64   `json:"initialPrizePool"`
	SponsorRefunded  bool     `json:"sponsorRefunded"`

	TotalStaked   uint64 `json:"totalStaked"`
	MinStake      uint64 `json:"minStake"`
	CuratorFeeBps uint64 `json:"curatorFeeBps"`

	Votes         [Variants]uint64 `json:"votes"`
	RejectWeight  uint64           `json:"rejectWeight"`
	TotalVoters   uint64           `json:"totalVoters"`
	VariantStake  [Variants]uint64 `json:"variantStake"`
	VariantVoters [Variants]uint64 `json:"variantVoters"`
	RejectStake   uint64           `json:"rejectStake"`

	HasWinner            bool            `json:"hasWinner"`
	WinningVariant       uint8           `json:"winningVariant"`
	VotingMode           settlement.Mode `json:"votingMode,omitempty"`
	CuratorFeeCollected  uint64          `json:"curatorFeeCollected"`
	PlatformFeeCollected uint64          `json:"platformFeeCollected"`
	BuybackContribution  uint64          `json:"buybackContribution"`
	PenaltyPool          uint64          `json:"penaltyPool"`
	WinnerCount          uint64          `json:"winnerCount"`
	PayoutShare          uint64          `json:"payoutShare"`
	ReservedPayouts      uint64          `json:"reservedPayouts"`
	Residual             uint64          `json:"residual"`
	ResidualSwept        bool            `json:"residualSwept"`

	VotingDeadline int64  `json:"votingDeadline"`
	SettledAt      int64  `json:"settledAt,omitempty"`
	CancelReason   string `json:"cancelReason,omitempty"`
	Status         Status `json:"status"`
}

// Key returns the idea's storage key.
func (i *Idea) Key() IdeaKey { return IdeaKey{Initiator: i.Initiator, ID: i.ID} }

// Clone returns a deep copy.
func (i *Idea) Clone() *Idea {
	if i == nil {
		return nil
	}
	clone := *i
	if i.ImageURIs != nil {
		clone.ImageURIs = append([]string(nil), i.ImageURIs...)
	}
	return &clone
}

// TotalWeight sums every variant weight and the reject-all weight.
func (i *Idea) TotalWeight() uint64 {
	total := i.RejectWeight
	for _, w := range i.Votes {
		total += w
	}
	return total
}

func (i *Idea) tally() settlement.Tally {
	return settlement.Tally{
		TotalStaked:    i.TotalStaked,
		TotalVoters:    i.TotalVoters,
		VariantWeights: i.Votes,
		RejectWeight:   i.RejectWeight,
		CuratorFeeBps:  i.CuratorFeeBps,
	}
}

func (i *Idea) payoutState() payout.Settlement {
	s := payout.Settlement{
		HasWinner:      i.HasWinner,
		WinningVariant: i.WinningVariant,
		PenaltyPool:    i.PenaltyPool,
		WinnerCount:    i.WinnerCount,
	}
	switch i.Status {
	case StatusCompleted:
		s.Phase = payout.PhaseCompleted
	case StatusCancelled:
		s.Phase = payout.PhaseCancelled
	default:
		s.Phase = payout.PhaseOpen
	}
	return s
}

// Vote is one voter's single stake on an idea.
type Vote struct {
	Idea        IdeaKey  `json:"idea"`
	Voter       [20]byte `json:"voter"`
	Choice      uint8    `json:"choice"`
	StakeAmount uint64   `json:"stakeAmount"`
	Weight      uint64   `json:"weight"`
	Timestamp   int64    `json:"timestamp"`
}

// ReviewerStake is the custody record behind a vote.
type ReviewerStake struct {
	Idea        IdeaKey  `json:"idea"`
	Reviewer    [20]byte `json:"reviewer"`
	TotalStaked uint64   `json:"totalStaked"`
	Processed   bool     `json:"processed"`
	Winnings    uint64   `json:"winnings"`
	WithdrawnAt int64    `json:"withdrawnAt,omitempty"`
}
