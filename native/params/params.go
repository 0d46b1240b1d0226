package params

import (
	"errors"
	"fmt"
)

// BpsDenominator is the fixed basis-point scale.
const BpsDenominator = 10_000

// ImageVariants is the number of candidate images produced per idea.
const ImageVariants = 4

// Params holds the protocol constants the settlement and market engines
// depend on. Values are loaded once at startup and never mutated.
type Params struct {
	MinReviewers          uint64 `toml:"MinReviewers" yaml:"min_reviewers" json:"minReviewers"`
	CuratorFeeBps         uint64 `toml:"CuratorFeeBps" yaml:"curator_fee_bps" json:"curatorFeeBps"`
	PlatformFeeBps        uint64 `toml:"PlatformFeeBps" yaml:"platform_fee_bps" json:"platformFeeBps"`
	PenaltyBps            uint64 `toml:"PenaltyBps" yaml:"penalty_bps" json:"penaltyBps"`
	SettlementBuybackBps  uint64 `toml:"SettlementBuybackBps" yaml:"settlement_buyback_bps" json:"settlementBuybackBps"`
	RejectAllThresholdBps uint64 `toml:"RejectAllThresholdBps" yaml:"reject_all_threshold_bps" json:"rejectAllThresholdBps"`

	CreationFee uint64 `toml:"CreationFee" yaml:"creation_fee" json:"creationFee"`
	MinStake    uint64 `toml:"MinStake" yaml:"min_stake" json:"minStake"`

	MaxPromptLen   int `toml:"MaxPromptLen" yaml:"max_prompt_len" json:"maxPromptLen"`
	MaxImageURILen int `toml:"MaxImageURILen" yaml:"max_image_uri_len" json:"maxImageUriLen"`

	ImageGenerationTimeoutSecs int64  `toml:"ImageGenerationTimeoutSecs" yaml:"image_generation_timeout_secs" json:"imageGenerationTimeoutSecs"`
	DefaultVotingWindowSecs    int64  `toml:"DefaultVotingWindowSecs" yaml:"default_voting_window_secs" json:"defaultVotingWindowSecs"`
	MinVotingHours             uint32 `toml:"MinVotingHours" yaml:"min_voting_hours" json:"minVotingHours"`
	MaxVotingHours             uint32 `toml:"MaxVotingHours" yaml:"max_voting_hours" json:"maxVotingHours"`

	TokenTotalSupply      uint64 `toml:"TokenTotalSupply" yaml:"token_total_supply" json:"tokenTotalSupply"`
	TokenDecimals         uint8  `toml:"TokenDecimals" yaml:"token_decimals" json:"tokenDecimals"`
	CreatorReservePercent uint64 `toml:"CreatorReservePercent" yaml:"creator_reserve_percent" json:"creatorReservePercent"`
	CirculatingPercent    uint64 `toml:"CirculatingPercent" yaml:"circulating_percent" json:"circulatingPercent"`
	MaxThemeNameLen       int    `toml:"MaxThemeNameLen" yaml:"max_theme_name_len" json:"maxThemeNameLen"`
	MaxThemeDescLen       int    `toml:"MaxThemeDescLen" yaml:"max_theme_desc_len" json:"maxThemeDescLen"`

	TradeFeeBps         uint64 `toml:"TradeFeeBps" yaml:"trade_fee_bps" json:"tradeFeeBps"`
	BuybackFeeSplitBps  uint64 `toml:"BuybackFeeSplitBps" yaml:"buyback_fee_split_bps" json:"buybackFeeSplitBps"`
	PlatformFeeSplitBps uint64 `toml:"PlatformFeeSplitBps" yaml:"platform_fee_split_bps" json:"platformFeeSplitBps"`
	CreatorFeeSplitBps  uint64 `toml:"CreatorFeeSplitBps" yaml:"creator_fee_split_bps" json:"creatorFeeSplitBps"`
	BuybackThreshold    uint64 `toml:"BuybackThreshold" yaml:"buyback_threshold" json:"buybackThreshold"`
	MinBaseTrade        uint64 `toml:"MinBaseTrade" yaml:"min_base_trade" json:"minBaseTrade"`
	MinTokenTrade       uint64 `toml:"MinTokenTrade" yaml:"min_token_trade" json:"minTokenTrade"`
}

// Default returns the launch configuration of the protocol.
func Default() Params {
	return Params{
		MinReviewers:          10,
		CuratorFeeBps:         100,
		PlatformFeeBps:        200,
		PenaltyBps:            5_000,
		SettlementBuybackBps:  500,
		RejectAllThresholdBps: 6_667,

		CreationFee: 5_000_000,
		MinStake:    1_000_000,

		MaxPromptLen:   512,
		MaxImageURILen: 128,

		ImageGenerationTimeoutSecs: 24 * 3600,
		DefaultVotingWindowSecs:    72 * 3600,
		MinVotingHours:             24,
		MaxVotingHours:             168,

		TokenTotalSupply:      1_000_000_000_000_000,
		TokenDecimals:         6,
		CreatorReservePercent: 20,
		CirculatingPercent:    80,
		MaxThemeNameLen:       12,
		MaxThemeDescLen:       48,

		TradeFeeBps:         100,
		BuybackFeeSplitBps:  5_000,
		PlatformFeeSplitBps: 3_000,
		CreatorFeeSplitBps:  2_000,
		BuybackThreshold:    100_000_000,
		MinBaseTrade:        1_000_000,
		MinTokenTrade:       1_000_000,
	}
}

var errInvalidParams = errors.New("params: invalid protocol parameters")

// Validate checks the internal consistency of the parameter set.
func (p Params) Validate() error {
	bps := map[string]uint64{
		"curator_fee_bps":          p.CuratorFeeBps,
		"platform_fee_bps":         p.PlatformFeeBps,
		"penalty_bps":              p.PenaltyBps,
		"settlement_buyback_bps":   p.SettlementBuybackBps,
		"reject_all_threshold_bps": p.RejectAllThresholdBps,
		"trade_fee_bps":            p.TradeFeeBps,
	}
	for name, value := range bps {
		if value > BpsDenominator {
			return fmt.Errorf("%w: %s exceeds %d", errInvalidParams, name, BpsDenominator)
		}
	}
	if p.CuratorFeeBps+p.PlatformFeeBps > BpsDenominator {
		return fmt.Errorf("%w: curator and platform fees exceed the pool", errInvalidParams)
	}
	if err := ValidateFeeSplits(p.BuybackFeeSplitBps, p.PlatformFeeSplitBps, p.CreatorFeeSplitBps); err != nil {
		return err
	}
	if p.CreatorReservePercent+p.CirculatingPercent != 100 {
		return fmt.Errorf("%w: creator reserve and circulating percent must sum to 100", errInvalidParams)
	}
	if p.TokenTotalSupply == 0 {
		return fmt.Errorf("%w: token total supply must be positive", errInvalidParams)
	}
	if p.MinVotingHours == 0 || p.MinVotingHours > p.MaxVotingHours {
		return fmt.Errorf("%w: voting hour bounds", errInvalidParams)
	}
	if p.ImageGenerationTimeoutSecs <= 0 || p.DefaultVotingWindowSecs <= 0 {
		return fmt.Errorf("%w: windows must be positive", errInvalidParams)
	}
	if p.MinStake == 0 {
		return fmt.Errorf("%w: min stake must be positive", errInvalidParams)
	}
	if p.MaxPromptLen <= 0 || p.MaxImageURILen <= 0 || p.MaxThemeNameLen <= 0 || p.MaxThemeDescLen <= 0 {
		return fmt.Errorf("%w: length limits must be positive", errInvalidParams)
	}
	return nil
}

// ErrInvalidFeeSplits is returned when trade fee splits do not cover exactly 100%.
var ErrInvalidFeeSplits = errors.New("params: fee splits must add up to 10000")

// ValidateFeeSplits enforces the three-way trade fee split invariant.
func ValidateFeeSplits(buyback, platform, creator uint64) error {
	if buyback > BpsDenominator || platform > BpsDenominator || creator > BpsDenominator {
		return ErrInvalidFeeSplits
	}
	if buyback+platform+creator != BpsDenominator {
		return ErrInvalidFeeSplits
	}
	return nil
}
