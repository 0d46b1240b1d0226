package rpc

import (
	"strings"

	"tastefun/core"
	"tastefun/crypto"
	"tastefun/native/arith"
	"tastefun/native/custody"
	"tastefun/native/ideas"
	"tastefun/native/market"
	"tastefun/storage/journal"
)

func bech32(addr [20]byte) string {
	return crypto.FromRaw(addr).String()
}

func assetString(asset custody.Asset) string {
	if asset.IsBase() {
		return "base"
	}
	return bech32(asset)
}

func parseAsset(raw string) (custody.Asset, error) {
	trimmed := strings.TrimSpace(raw)
	if strings.EqualFold(trimmed, "base") {
		return custody.BaseAsset, nil
	}
	addr, err := crypto.ParseAddress(trimmed)
	if err != nil {
		return custody.Asset{}, err
	}
	return custody.Asset(addr), nil
}

// ThemeKeyResult names a theme by creator address and id.
type ThemeKeyResult struct {
	Creator string `json:"creator"`
	ID      uint64 `json:"id"`
}

func themeKeyResult(key market.ThemeKey) ThemeKeyResult {
	return ThemeKeyResult{Creator: bech32(key.Creator), ID: key.ID}
}

// ThemeResult is the API view of a theme.
type ThemeResult struct {
	ThemeKeyResult
	Name                    string `json:"name"`
	Description             string `json:"description"`
	CreatedAt               int64  `json:"createdAt"`
	Mint                    string `json:"mint"`
	Vault                   string `json:"vault"`
	TotalSupply             uint64 `json:"totalSupply"`
	CirculatingSupply       uint64 `json:"circulatingSupply"`
	CreatorReserve          uint64 `json:"creatorReserve"`
	TotalBurned             uint64 `json:"totalBurned"`
	TokenReserves           uint64 `json:"tokenReserves"`
	BaseReserves            uint64 `json:"baseReserves"`
	BuybackPool             uint64 `json:"buybackPool"`
	SettlementBuybackTokens uint64 `json:"settlementBuybackTokens"`
	VotingMode              string `json:"votingMode"`
	Status                  string `json:"status"`
}

func themeResult(t *market.Theme) ThemeResult {
	return ThemeResult{
		ThemeKeyResult:          themeKeyResult(t.Key()),
		Name:                    t.Name,
		Description:             t.Description,
		CreatedAt:               t.CreatedAt,
		Mint:                    assetString(t.Mint),
		Vault:                   bech32(t.Vault),
		TotalSupply:             t.TotalSupply,
		CirculatingSupply:       t.CirculatingSupply,
		CreatorReserve:          t.CreatorReserve,
		TotalBurned:             t.TotalBurned,
		TokenReserves:           t.TokenReserves,
		BaseReserves:            t.BaseReserves,
		BuybackPool:             t.BuybackPool,
		SettlementBuybackTokens: t.SettlementBuybackTokens,
		VotingMode:              string(t.VotingMode),
		Status:                  string(t.Status),
	}
}

// TradingConfigResult is the API view of the trading configuration.
type TradingConfigResult struct {
	Authority   string `json:"authority"`
	FeeBps      uint64 `json:"feeBps"`
	BuybackBps  uint64 `json:"buybackBps"`
	PlatformBps uint64 `json:"platformBps"`
	CreatorBps  uint64 `json:"creatorBps"`
	CreatedAt   int64  `json:"createdAt"`
}

func tradingConfigResult(c *market.TradingConfig) TradingConfigResult {
	return TradingConfigResult{
		Authority:   bech32(c.Authority),
		FeeBps:      c.FeeBps,
		BuybackBps:  c.BuybackBps,
		PlatformBps: c.PlatformBps,
		CreatorBps:  c.CreatorBps,
		CreatedAt:   c.CreatedAt,
	}
}

// SwapResult reports an executed trade.
type SwapResult struct {
	Theme            ThemeKeyResult `json:"theme"`
	Trader           string         `json:"trader"`
	Side             string         `json:"side"`
	BaseAmount       uint64         `json:"baseAmount"`
	TokenAmount      uint64         `json:"tokenAmount"`
	Fee              arith.FeeSplit `json:"fee"`
	NewBaseReserves  uint64         `json:"newBaseReserves"`
	NewTokenReserves uint64         `json:"newTokenReserves"`
}

func swapResult(r *market.SwapResult) SwapResult {
	side := "sell"
	if r.IsBuy {
		side = "buy"
	}
	return SwapResult{
		Theme:            themeKeyResult(r.Theme),
		Trader:           bech32(r.Trader),
		Side:             side,
		BaseAmount:       r.BaseAmount,
		TokenAmount:      r.TokenAmount,
		Fee:              r.Fee,
		NewBaseReserves:  r.NewBaseReserves,
		NewTokenReserves: r.NewTokenReserves,
	}
}

// QuoteResult prices a trade without executing it.
type QuoteResult struct {
	Side      string         `json:"side"`
	AmountIn  uint64         `json:"amountIn"`
	AmountOut uint64         `json:"amountOut"`
	Fee       arith.FeeSplit `json:"fee"`
}

// BuybackResult reports an executed buyback.
type BuybackResult struct {
	Theme                  ThemeKeyResult `json:"theme"`
	BaseSpent              uint64         `json:"baseSpent"`
	TokensBurned           uint64         `json:"tokensBurned"`
	SettlementTokensBurned uint64         `json:"settlementTokensBurned"`
	NewTokenReserves       uint64         `json:"newTokenReserves"`
	NewBaseReserves        uint64         `json:"newBaseReserves"`
}

// IdeaResult is the API view of an idea.
type IdeaResult struct {
	Initiator           string                 `json:"initiator"`
	ID                  uint64                 `json:"id"`
	Prompt              string                 `json:"prompt"`
	CreatedAt           int64                  `json:"createdAt"`
	Theme               ThemeKeyResult         `json:"theme"`
	ThemeMint           string                 `json:"themeMint"`
	Vault               string                 `json:"vault"`
	OracleProvider      string                 `json:"oracleProvider"`
	ImageURIs           []string               `json:"imageUris,omitempty"`
	GenerationStatus    string                 `json:"generationStatus"`
	GenerationDeadline  int64                  `json:"generationDeadline"`
	VotingDurationHours uint32                 `json:"votingDurationHours"`
	Sponsored           bool                   `json:"sponsored"`
	Sponsor             string                 `json:"sponsor,omitempty"`
	InitialPrizePool    uint64                 `json:"initialPrizePool,omitempty"`
	SponsorRefunded     bool                   `json:"sponsorRefunded,omitempty"`
	TotalStaked         uint64                 `json:"totalStaked"`
	MinStake            uint64                 `json:"minStake"`
	Votes               [ideas.Variants]uint64 `json:"votes"`
	RejectWeight        uint64                 `json:"rejectWeight"`
	TotalVoters         uint64                 `json:"totalVoters"`
	Status              string                 `json:"status"`
	VotingDeadline      int64                  `json:"votingDeadline"`
	CancelReason        string                 `json:"cancelReason,omitempty"`
	Settlement          *SettlementResult      `json:"settlement,omitempty"`
}

// SettlementResult carries the frozen payout figures of a completed idea.
type SettlementResult struct {
	VotingMode           string `json:"votingMode"`
	WinningVariant       uint8  `json:"winningVariant"`
	CuratorFeeCollected  uint64 `json:"curatorFeeCollected"`
	PlatformFeeCollected uint64 `json:"platformFeeCollected"`
	BuybackContribution  uint64 `json:"buybackContribution"`
	PenaltyPool          uint64 `json:"penaltyPool"`
	WinnerCount          uint64 `json:"winnerCount"`
	PayoutShare          uint64 `json:"payoutShare"`
	ReservedPayouts      uint64 `json:"reservedPayouts"`
	Residual             uint64 `json:"residual"`
	ResidualSwept        bool   `json:"residualSwept"`
	SettledAt            int64  `json:"settledAt"`
}

func ideaResult(i *ideas.Idea) IdeaResult {
	out := IdeaResult{
		Initiator:           bech32(i.Initiator),
		ID:                  i.ID,
		Prompt:              i.Prompt,
		CreatedAt:           i.CreatedAt,
		Theme:               themeKeyResult(i.Theme),
		ThemeMint:           assetString(i.ThemeMint),
		Vault:               bech32(i.Vault),
		OracleProvider:      bech32(i.OracleProvider),
		ImageURIs:           i.ImageURIs,
		GenerationStatus:    string(i.GenerationStatus),
		GenerationDeadline:  i.GenerationDeadline,
		VotingDurationHours: i.VotingDurationHours,
		Sponsored:           i.Sponsored,
		TotalStaked:         i.TotalStaked,
		MinStake:            i.MinStake,
		Votes:               i.Votes,
		RejectWeight:        i.RejectWeight,
		TotalVoters:         i.TotalVoters,
		Status:              string(i.Status),
		VotingDeadline:      i.VotingDeadline,
		CancelReason:        i.CancelReason,
	}
	if i.Sponsored {
		out.Sponsor = bech32(i.Sponsor)
		out.InitialPrizePool = i.InitialPrizePool
		out.SponsorRefunded = i.SponsorRefunded
	}
	if i.HasWinner {
		out.Settlement = &SettlementResult{
			VotingMode:           string(i.VotingMode),
			WinningVariant:       i.WinningVariant,
			CuratorFeeCollected:  i.CuratorFeeCollected,
			PlatformFeeCollected: i.PlatformFeeCollected,
			BuybackContribution:  i.BuybackContribution,
			PenaltyPool:          i.PenaltyPool,
			WinnerCount:          i.WinnerCount,
			PayoutShare:          i.PayoutShare,
			ReservedPayouts:      i.ReservedPayouts,
			Residual:             i.Residual,
			ResidualSwept:        i.ResidualSwept,
			SettledAt:            i.SettledAt,
		}
	}
	return out
}

// VoteResult joins a vote with its stake record.
type VoteResult struct {
	Voter       string `json:"voter"`
	Choice      uint8  `json:"choice"`
	StakeAmount uint64 `json:"stakeAmount"`
	Weight      uint64 `json:"weight"`
	Timestamp   int64  `json:"timestamp"`
	Processed   bool   `json:"processed"`
	Winnings    uint64 `json:"winnings,omitempty"`
	WithdrawnAt int64  `json:"withdrawnAt,omitempty"`
}

func voteResult(v *ideas.Vote, s *ideas.ReviewerStake) VoteResult {
	out := VoteResult{
		Voter:       bech32(v.Voter),
		Choice:      v.Choice,
		StakeAmount: v.StakeAmount,
		Weight:      v.Weight,
		Timestamp:   v.Timestamp,
	}
	if s != nil {
		out.Processed = s.Processed
		out.Winnings = s.Winnings
		out.WithdrawnAt = s.WithdrawnAt
	}
	return out
}

// WithdrawalResult reports tokens released from an idea vault.
type WithdrawalResult struct {
	Recipient string `json:"recipient"`
	Amount    uint64 `json:"amount"`
}

// BalanceResult reports one custody balance.
type BalanceResult struct {
	Address string `json:"address"`
	Asset   string `json:"asset"`
	Balance uint64 `json:"balance"`
}

// EventResult is a journaled event.
type EventResult struct {
	ID         string            `json:"id"`
	Sequence   uint64            `json:"sequence"`
	Type       string            `json:"type"`
	Subject    string            `json:"subject,omitempty"`
	Attributes map[string]string `json:"attributes"`
	CreatedAt  int64             `json:"createdAt"`
}

func eventResult(r journal.Record) EventResult {
	return EventResult{
		ID:         r.ID.String(),
		Sequence:   r.Sequence,
		Type:       r.Type,
		Subject:    r.Subject,
		Attributes: r.Attrs(),
		CreatedAt:  r.CreatedAt.Unix(),
	}
}

// streamPayload is the websocket frame for one committed event.
type streamPayload struct {
	Cursor     string            `json:"cursor"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
	Timestamp  int64             `json:"ts"`
}

func streamPayloadFrom(evt core.StreamEvent) streamPayload {
	return streamPayload{Cursor: evt.Cursor, Type: evt.Type, Attributes: evt.Attributes, Timestamp: evt.Timestamp}
}
