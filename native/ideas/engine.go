package ideas

import (
	"errors"
	"time"
	"unicode/utf8"

	"tastefun/core/events"
	"tastefun/native/arith"
	"tastefun/native/custody"
	"tastefun/native/market"
	"tastefun/native/params"
	"tastefun/native/payout"
	"tastefun/native/settlement"
	"tastefun/storage"
)

var (
	errNilState       = errors.New("ideas engine: state not configured")
	errTreasuryNotSet = errors.New("ideas engine: treasury not configured")
	errOracleNotSet   = errors.New("ideas engine: oracle not configured")

	ErrIdeaNotFound          = errors.New("ideas: idea not found")
	ErrIdeaExists            = errors.New("ideas: idea already exists")
	ErrInvalidPrompt         = errors.New("ideas: invalid prompt")
	ErrInvalidVotingDuration = errors.New("ideas: invalid voting duration")
	ErrInvalidImageCount     = errors.New("ideas: exactly four images required")
	ErrInvalidImageURI       = errors.New("ideas: invalid image uri")
	ErrInvalidImageIndex     = errors.New("ideas: invalid image index")
	ErrInvalidState          = errors.New("ideas: invalid state")
	ErrVotingEnded           = errors.New("ideas: voting has ended")
	ErrVotingNotEnded        = errors.New("ideas: voting has not ended")
	ErrAlreadyVoted          = errors.New("ideas: voter already staked on this idea")
	ErrStakeTooLow           = errors.New("ideas: stake below minimum")
	ErrStakeNotFound         = errors.New("ideas: no stake recorded for voter")
	ErrUnauthorizedOracle    = errors.New("ideas: caller is not the authorised oracle")
	ErrUnauthorized          = errors.New("ideas: caller not authorised")
	ErrResidualSwept         = errors.New("ideas: residual already swept")

	ErrAlreadyWithdrawn = payout.ErrAlreadyWithdrawn
	ErrNoWinner         = payout.ErrNoWinner
	ErrNotWinner        = payout.ErrNotWinner
	ErrNotSponsor       = payout.ErrNotSponsor
)

// Cancellation reasons recorded on the idea.
const (
	ReasonCancelledByInitiator = "cancelled_by_initiator_or_timeout"
	ReasonGenerationFailed     = "generation_failed"
)

// vaultAuthority is the process-wide capability over idea vaults.
var vaultAuthority = custody.MustClaim(custody.DomainIdeaVault)

type engineState interface {
	IdeaGet(key IdeaKey) (*Idea, bool, error)
	IdeaInsert(idea *Idea) error
	IdeaPut(idea *Idea) error
	VoteGet(key IdeaKey, voter [20]byte) (*Vote, bool, error)
	VoteInsert(vote *Vote) error
	ReviewerStakeGet(key IdeaKey, voter [20]byte) (*ReviewerStake, bool, error)
	ReviewerStakeInsert(stake *ReviewerStake) error
	ReviewerStakePut(stake *ReviewerStake) error
	ThemeGet(key market.ThemeKey) (*market.Theme, bool, error)
	ThemePut(theme *market.Theme) error
	BalanceGet(addr [20]byte, asset custody.Asset) (uint64, error)
	BalancePut(addr [20]byte, asset custody.Asset, amount uint64) error
	SupplyGet(asset custody.Asset) (uint64, error)
	SupplyPut(asset custody.Asset, amount uint64) error
}

// Engine drives the idea lifecycle: creation, image confirmation, quadratic
// voting, settlement and withdrawals.
type Engine struct {
	state    engineState
	emitter  events.Emitter
	nowFn    func() int64
	params   params.Params
	oracle   [20]byte
	treasury [20]byte
	dustSink [20]byte
}

// NewEngine constructs an ideas engine with default dependencies.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn: func() int64 {
			return time.Now().Unix()
		},
		params: params.Default(),
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used for deterministic testing.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetParams replaces the protocol parameters.
func (e *Engine) SetParams(p params.Params) { e.params = p }

// SetOracle configures the only identity allowed to report image generation.
func (e *Engine) SetOracle(addr [20]byte) { e.oracle = addr }

// SetTreasury configures the protocol treasury.
func (e *Engine) SetTreasury(addr [20]byte) { e.treasury = addr }

// SetDustSink configures where settlement residuals are swept.
func (e *Engine) SetDustSink(addr [20]byte) { e.dustSink = addr }

// WithState returns a copy of the engine bound to another state and emitter.
func (e *Engine) WithState(state engineState, emitter events.Emitter) *Engine {
	clone := *e
	clone.state = state
	clone.SetEmitter(emitter)
	return &clone
}

func (e *Engine) emit(evt events.Event) {
	if e == nil || evt == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(evt)
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) ledger() *custody.Ledger { return custody.NewLedger(e.state) }

func isZeroAddress(addr [20]byte) bool {
	var zero [20]byte
	return addr == zero
}

// Idea loads an idea.
func (e *Engine) Idea(key IdeaKey) (*Idea, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	idea, ok, err := e.state.IdeaGet(key)
	if err != nil {
		return nil, err
	}
	if !ok || idea == nil {
		return nil, ErrIdeaNotFound
	}
	return idea, nil
}

// Vote loads a voter's vote on an idea.
func (e *Engine) Vote(key IdeaKey, voter [20]byte) (*Vote, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	vote, ok, err := e.state.VoteGet(key, voter)
	if err != nil {
		return nil, err
	}
	if !ok || vote == nil {
		return nil, ErrStakeNotFound
	}
	return vote, nil
}

// ReviewerStake loads a voter's stake record on an idea.
func (e *Engine) ReviewerStake(key IdeaKey, voter [20]byte) (*ReviewerStake, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	stake, ok, err := e.state.ReviewerStakeGet(key, voter)
	if err != nil {
		return nil, err
	}
	if !ok || stake == nil {
		return nil, ErrStakeNotFound
	}
	return stake, nil
}

func (e *Engine) validateCreation(prompt string, votingHours uint32) error {
	if len(prompt) == 0 || len(prompt) > e.params.MaxPromptLen || !utf8.ValidString(prompt) {
		return ErrInvalidPrompt
	}
	if votingHours < e.params.MinVotingHours || votingHours > e.params.MaxVotingHours {
		return ErrInvalidVotingDuration
	}
	if isZeroAddress(e.treasury) {
		return errTreasuryNotSet
	}
	return nil
}

func (e *Engine) newIdea(initiator [20]byte, id uint64, prompt string, theme *market.Theme, oracleProvider [20]byte, votingHours uint32) *Idea {
	now := e.now()
	key := IdeaKey{Initiator: initiator, ID: id}
	return &Idea{
		Initiator:           initiator,
		ID:                  id,
		Prompt:              prompt,
		CreatedAt:           now,
		Theme:               theme.Key(),
		ThemeMint:           theme.Mint,
		Vault:               IdeaVault(key).Address,
		OracleProvider:      oracleProvider,
		GenerationStatus:    GenerationPending,
		GenerationDeadline:  now + e.params.ImageGenerationTimeoutSecs,
		VotingDurationHours: votingHours,
		MinStake:            e.params.MinStake,
		CuratorFeeBps:       e.params.CuratorFeeBps,
		Status:              StatusGeneratingImages,
	}
}

func (e *Engine) loadTheme(key market.ThemeKey) (*market.Theme, error) {
	theme, ok, err := e.state.ThemeGet(key)
	if err != nil {
		return nil, err
	}
	if !ok || theme == nil {
		return nil, market.ErrThemeNotFound
	}
	return theme, nil
}

func (e *Engine) insertIdea(idea *Idea) error {
	if err := e.state.IdeaInsert(idea); err != nil {
		if errors.Is(err, storage.ErrKeyExists) {
			return ErrIdeaExists
		}
		return err
	}
	return nil
}

// CreateIdea registers an idea and charges the flat creation fee.
func (e *Engine) CreateIdea(initiator [20]byte, id uint64, prompt string, themeKey market.ThemeKey, oracleProvider [20]byte, votingHours uint32) (*Idea, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := e.validateCreation(prompt, votingHours); err != nil {
		return nil, err
	}
	theme, err := e.loadTheme(themeKey)
	if err != nil {
		return nil, err
	}
	idea := e.newIdea(initiator, id, prompt, theme, oracleProvider, votingHours)
	if err := e.insertIdea(idea); err != nil {
		return nil, err
	}
	if err := e.ledger().Transfer(initiator, e.treasury, custody.BaseAsset, e.params.CreationFee); err != nil {
		return nil, err
	}
	e.emit(IdeaCreated{Idea: idea.Key(), Prompt: prompt, OracleProvider: oracleProvider})
	return idea, nil
}

// CreateSponsoredIdea registers an idea whose prize pool is funded up front
// by the sponsor in theme tokens.
func (e *Engine) CreateSponsoredIdea(initiator, sponsor [20]byte, id uint64, prompt string, themeKey market.ThemeKey, oracleProvider [20]byte, votingHours uint32, prizePool uint64) (*Idea, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := e.validateCreation(prompt, votingHours); err != nil {
		return nil, err
	}
	if prizePool < e.params.MinStake {
		return nil, ErrStakeTooLow
	}
	theme, err := e.loadTheme(themeKey)
	if err != nil {
		return nil, err
	}
	idea := e.newIdea(initiator, id, prompt, theme, oracleProvider, votingHours)
	idea.Sponsored = true
	idea.Sponsor = sponsor
	idea.InitialPrizePool = prizePool
	idea.TotalStaked = prizePool
	if err := e.insertIdea(idea); err != nil {
		return nil, err
	}
	ledger := e.ledger()
	if err := ledger.Transfer(initiator, e.treasury, custody.BaseAsset, e.params.CreationFee); err != nil {
		return nil, err
	}
	if err := ledger.Deposit(sponsor, IdeaVault(idea.Key()), idea.ThemeMint, prizePool); err != nil {
		return nil, err
	}
	e.emit(SponsoredIdeaCreated{
		Idea:             idea.Key(),
		Sponsor:          sponsor,
		Prompt:           prompt,
		InitialPrizePool: prizePool,
		OracleProvider:   oracleProvider,
	})
	return idea, nil
}

// ConfirmImages records the oracle's four candidate images and opens voting.
func (e *Engine) ConfirmImages(caller [20]byte, key IdeaKey, uris []string) (*Idea, error) {
	idea, err := e.Idea(key)
	if err != nil {
		return nil, err
	}
	if idea.Status != StatusGeneratingImages {
		return nil, ErrInvalidState
	}
	if len(uris) != Variants {
		return nil, ErrInvalidImageCount
	}
	if isZeroAddress(e.oracle) {
		return nil, errOracleNotSet
	}
	if caller != e.oracle {
		return nil, ErrUnauthorizedOracle
	}
	for _, uri := range uris {
		if len(uri) == 0 || len(uri) > e.params.MaxImageURILen {
			return nil, ErrInvalidImageURI
		}
	}
	idea.ImageURIs = append([]string(nil), uris...)
	idea.GenerationStatus = GenerationCompleted
	idea.Status = StatusVoting
	idea.VotingDeadline = e.now() + e.params.DefaultVotingWindowSecs
	if err := e.state.IdeaPut(idea); err != nil {
		return nil, err
	}
	e.emit(ImagesGenerated{Idea: key, ImageURIs: idea.ImageURIs, VotingDeadline: idea.VotingDeadline})
	return idea, nil
}

// FailGeneration lets the oracle report that images could not be produced,
// cancelling the idea so stakes and sponsorship can be reclaimed.
func (e *Engine) FailGeneration(caller [20]byte, key IdeaKey, reason string) (*Idea, error) {
	idea, err := e.Idea(key)
	if err != nil {
		return nil, err
	}
	if idea.Status != StatusGeneratingImages {
		return nil, ErrInvalidState
	}
	if isZeroAddress(e.oracle) {
		return nil, errOracleNotSet
	}
	if caller != e.oracle {
		return nil, ErrUnauthorizedOracle
	}
	idea.GenerationStatus = GenerationFailed
	idea.Status = StatusCancelled
	idea.CancelReason = ReasonGenerationFailed
	if err := e.state.IdeaPut(idea); err != nil {
		return nil, err
	}
	e.emit(ImageGenerationFailed{Idea: key, Reason: reason})
	e.emit(IdeaCancelled{Idea: key, Reason: ReasonGenerationFailed})
	return idea, nil
}

func validChoice(choice uint8) bool {
	return choice < Variants || choice == RejectAll
}

// VoteForImage stakes theme tokens on one variant (or reject-all). Vote
// weight is the integer square root of the stake. Each voter may stake once
// per idea.
func (e *Engine) VoteForImage(voter [20]byte, key IdeaKey, choice uint8, amount uint64) (*Vote, error) {
	idea, err := e.Idea(key)
	if err != nil {
		return nil, err
	}
	if idea.Status != StatusVoting {
		return nil, ErrInvalidState
	}
	if !validChoice(choice) {
		return nil, ErrInvalidImageIndex
	}
	if amount < idea.MinStake {
		return nil, ErrStakeTooLow
	}
	now := e.now()
	if now >= idea.VotingDeadline {
		return nil, ErrVotingEnded
	}
	weight := arith.Isqrt(amount)
	if choice == RejectAll {
		if idea.RejectWeight, err = arith.Add(idea.RejectWeight, weight); err != nil {
			return nil, err
		}
		if idea.RejectStake, err = arith.Add(idea.RejectStake, amount); err != nil {
			return nil, err
		}
	} else {
		if idea.Votes[choice], err = arith.Add(idea.Votes[choice], weight); err != nil {
			return nil, err
		}
		if idea.VariantStake[choice], err = arith.Add(idea.VariantStake[choice], amount); err != nil {
			return nil, err
		}
		idea.VariantVoters[choice]++
	}
	if idea.TotalStaked, err = arith.Add(idea.TotalStaked, amount); err != nil {
		return nil, err
	}
	idea.TotalVoters++

	vote := &Vote{Idea: key, Voter: voter, Choice: choice, StakeAmount: amount, Weight: weight, Timestamp: now}
	if err := e.state.VoteInsert(vote); err != nil {
		if errors.Is(err, storage.ErrKeyExists) {
			return nil, ErrAlreadyVoted
		}
		return nil, err
	}
	stake := &ReviewerStake{Idea: key, Reviewer: voter, TotalStaked: amount}
	if err := e.state.ReviewerStakeInsert(stake); err != nil {
		if errors.Is(err, storage.ErrKeyExists) {
			return nil, ErrAlreadyVoted
		}
		return nil, err
	}
	if err := e.ledger().Deposit(voter, IdeaVault(key), idea.ThemeMint, amount); err != nil {
		return nil, err
	}
	if err := e.state.IdeaPut(idea); err != nil {
		return nil, err
	}
	e.emit(VoteCast{Idea: key, Voter: voter, Choice: choice, StakeAmount: amount, Weight: weight})
	return vote, nil
}

// CancelIdea cancels an open idea. The initiator may cancel at any time;
// anyone may cancel once the generation deadline plus the default voting
// window has passed.
func (e *Engine) CancelIdea(caller [20]byte, key IdeaKey) (*Idea, error) {
	idea, err := e.Idea(key)
	if err != nil {
		return nil, err
	}
	timedOut := e.now() > idea.GenerationDeadline+e.params.DefaultVotingWindowSecs
	if caller != idea.Initiator && !timedOut {
		return nil, ErrUnauthorized
	}
	if idea.Status != StatusGeneratingImages && idea.Status != StatusVoting {
		return nil, ErrInvalidState
	}
	idea.Status = StatusCancelled
	idea.CancelReason = ReasonCancelledByInitiator
	if err := e.state.IdeaPut(idea); err != nil {
		return nil, err
	}
	e.emit(IdeaCancelled{Idea: key, Reason: ReasonCancelledByInitiator})
	return idea, nil
}

// SettleVoting closes voting once the deadline has passed. An empty mode
// uses the theme's default. Insufficient participation, a reject-all
// supermajority, a tie or a winning side the vault cannot pay in full
// cancel the idea; otherwise the fees leave the vault and the per-winner
// payout is frozen.
func (e *Engine) SettleVoting(key IdeaKey, mode settlement.Mode) (*Idea, settlement.Outcome, error) {
	idea, err := e.Idea(key)
	if err != nil {
		return nil, settlement.Outcome{}, err
	}
	if idea.Status != StatusVoting {
		return nil, settlement.Outcome{}, ErrInvalidState
	}
	now := e.now()
	if now < idea.VotingDeadline {
		return nil, settlement.Outcome{}, ErrVotingNotEnded
	}
	if isZeroAddress(e.treasury) {
		return nil, settlement.Outcome{}, errTreasuryNotSet
	}
	theme, err := e.loadTheme(idea.Theme)
	if err != nil {
		return nil, settlement.Outcome{}, err
	}
	if mode == "" {
		mode = theme.VotingMode
	}
	outcome, err := settlement.Decide(idea.tally(), mode, e.params)
	if err != nil {
		return nil, settlement.Outcome{}, err
	}
	idea.VotingMode = mode
	idea.SettledAt = now
	if !outcome.Completed {
		return e.cancelSettlement(idea, outcome)
	}

	fees := outcome.Fees
	vault := IdeaVault(key)
	ledger := e.ledger()
	winner := outcome.WinningVariant
	var share uint64
	if outcome.WinnerCount > 0 {
		if share, err = payout.Share(fees.Penalty, outcome.WinnerCount); err != nil {
			return nil, settlement.Outcome{}, err
		}
	}
	reserved, err := payout.Reserved(idea.VariantStake[winner], idea.VariantVoters[winner], share)
	if err != nil {
		return nil, settlement.Outcome{}, err
	}
	held, err := ledger.Balance(vault.Address, idea.ThemeMint)
	if err != nil {
		return nil, settlement.Outcome{}, err
	}
	outflow, err := arith.Sum(fees.Curator, fees.Platform, fees.Buyback)
	if err != nil {
		return nil, settlement.Outcome{}, err
	}
	// Winners must be payable in full from what the fees leave behind.
	if held < outflow || held-outflow < reserved {
		return e.cancelSettlement(idea, settlement.Outcome{
			Reason:         settlement.ReasonPayoutInsolvent,
			Mode:           outcome.Mode,
			TotalWeight:    outcome.TotalWeight,
			RejectRatioBps: outcome.RejectRatioBps,
		})
	}
	residual := held - outflow - reserved

	if err := ledger.Withdraw(vaultAuthority, vault, idea.Initiator, idea.ThemeMint, fees.Curator); err != nil {
		return nil, settlement.Outcome{}, err
	}
	if err := ledger.Withdraw(vaultAuthority, vault, e.treasury, idea.ThemeMint, fees.Platform); err != nil {
		return nil, settlement.Outcome{}, err
	}
	if err := ledger.Withdraw(vaultAuthority, vault, theme.Vault, idea.ThemeMint, fees.Buyback); err != nil {
		return nil, settlement.Outcome{}, err
	}
	if err := market.AccrueSettlementBuyback(theme, fees.Buyback); err != nil {
		return nil, settlement.Outcome{}, err
	}
	if err := e.state.ThemePut(theme); err != nil {
		return nil, settlement.Outcome{}, err
	}

	idea.HasWinner = true
	idea.WinningVariant = winner
	idea.WinnerCount = outcome.WinnerCount
	idea.CuratorFeeCollected = fees.Curator
	idea.PlatformFeeCollected = fees.Platform
	idea.BuybackContribution = fees.Buyback
	idea.PenaltyPool = fees.Penalty
	idea.PayoutShare = share
	idea.ReservedPayouts = reserved
	idea.Residual = residual
	idea.Status = StatusCompleted
	if err := e.state.IdeaPut(idea); err != nil {
		return nil, settlement.Outcome{}, err
	}
	e.emit(VotingSettled{
		Idea:                key,
		WinningVariant:      winner,
		TotalStaked:         idea.TotalStaked,
		CuratorFee:          fees.Curator,
		PlatformFee:         fees.Platform,
		BuybackContribution: fees.Buyback,
		PenaltyPool:         fees.Penalty,
		WinnerCount:         outcome.WinnerCount,
		Residual:            idea.Residual,
	})
	return idea, outcome, nil
}

func (e *Engine) cancelSettlement(idea *Idea, outcome settlement.Outcome) (*Idea, settlement.Outcome, error) {
	idea.Status = StatusCancelled
	idea.CancelReason = string(outcome.Reason)
	if err := e.state.IdeaPut(idea); err != nil {
		return nil, settlement.Outcome{}, err
	}
	e.emit(VotingCancelled{Idea: idea.Key(), Reason: string(outcome.Reason)})
	return idea, outcome, nil
}

func (e *Engine) claim(voter [20]byte, key IdeaKey) (*Idea, *Vote, *ReviewerStake, error) {
	idea, err := e.Idea(key)
	if err != nil {
		return nil, nil, nil, err
	}
	vote, err := e.Vote(key, voter)
	if err != nil {
		return nil, nil, nil, err
	}
	stake, err := e.ReviewerStake(key, voter)
	if err != nil {
		return nil, nil, nil, err
	}
	return idea, vote, stake, nil
}

func translatePayoutErr(err error) error {
	if errors.Is(err, payout.ErrInvalidState) {
		return ErrInvalidState
	}
	return err
}

func (e *Engine) pay(key IdeaKey, idea *Idea, to [20]byte, amount uint64) error {
	return e.ledger().Withdraw(vaultAuthority, IdeaVault(key), to, idea.ThemeMint, amount)
}

// WithdrawWinnings pays a winning voter their stake plus one share of the
// penalty pool. Each stake pays out at most once.
func (e *Engine) WithdrawWinnings(voter [20]byte, key IdeaKey) (uint64, error) {
	idea, vote, stake, err := e.claim(voter, key)
	if err != nil {
		return 0, err
	}
	amount, err := payout.Winnings(idea.payoutState(), payout.Claim{
		Choice:    vote.Choice,
		Staked:    stake.TotalStaked,
		Processed: stake.Processed,
	})
	if err != nil {
		return 0, translatePayoutErr(err)
	}
	if err := e.pay(key, idea, voter, amount); err != nil {
		return 0, err
	}
	stake.Processed = true
	stake.Winnings = amount
	stake.WithdrawnAt = e.now()
	if err := e.state.ReviewerStakePut(stake); err != nil {
		return 0, err
	}
	e.emit(WinningsWithdrawn{Withdrawal{Idea: key, Recipient: voter, Amount: amount}})
	return amount, nil
}

// WithdrawRefund returns a voter's full stake from a cancelled idea.
func (e *Engine) WithdrawRefund(voter [20]byte, key IdeaKey) (uint64, error) {
	idea, vote, stake, err := e.claim(voter, key)
	if err != nil {
		return 0, err
	}
	amount, err := payout.Refund(idea.payoutState(), payout.Claim{
		Choice:    vote.Choice,
		Staked:    stake.TotalStaked,
		Processed: stake.Processed,
	})
	if err != nil {
		return 0, translatePayoutErr(err)
	}
	if err := e.pay(key, idea, voter, amount); err != nil {
		return 0, err
	}
	stake.Processed = true
	stake.WithdrawnAt = e.now()
	if err := e.state.ReviewerStakePut(stake); err != nil {
		return 0, err
	}
	e.emit(RefundWithdrawn{Withdrawal{Idea: key, Recipient: voter, Amount: amount}})
	return amount, nil
}

// WithdrawSponsorRefund returns the prize pool to the sponsor of a cancelled idea.
func (e *Engine) WithdrawSponsorRefund(caller [20]byte, key IdeaKey) (uint64, error) {
	idea, err := e.Idea(key)
	if err != nil {
		return 0, err
	}
	amount, err := payout.SponsorRefund(idea.payoutState(), payout.Sponsorship{
		Sponsor:   idea.Sponsor,
		Sponsored: idea.Sponsored,
		PrizePool: idea.InitialPrizePool,
		Refunded:  idea.SponsorRefunded,
	}, caller)
	if err != nil {
		return 0, translatePayoutErr(err)
	}
	if err := e.pay(key, idea, caller, amount); err != nil {
		return 0, err
	}
	idea.SponsorRefunded = true
	if err := e.state.IdeaPut(idea); err != nil {
		return 0, err
	}
	e.emit(SponsorRefundWithdrawn{Withdrawal{Idea: key, Recipient: caller, Amount: amount}})
	return amount, nil
}

// SweepResidual moves the part of a completed idea's vault that no winner
// can claim to the dust sink. It runs at most once per idea.
func (e *Engine) SweepResidual(key IdeaKey) (uint64, error) {
	idea, err := e.Idea(key)
	if err != nil {
		return 0, err
	}
	if idea.Status != StatusCompleted {
		return 0, ErrInvalidState
	}
	if idea.ResidualSwept {
		return 0, ErrResidualSwept
	}
	sink := e.dustSink
	if isZeroAddress(sink) {
		sink = e.treasury
	}
	if isZeroAddress(sink) {
		return 0, errTreasuryNotSet
	}
	if err := e.pay(key, idea, sink, idea.Residual); err != nil {
		return 0, err
	}
	idea.ResidualSwept = true
	if err := e.state.IdeaPut(idea); err != nil {
		return 0, err
	}
	e.emit(ResidualSwept{Withdrawal{Idea: key, Recipient: sink, Amount: idea.Residual}})
	return idea.Residual, nil
}
