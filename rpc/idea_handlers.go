package rpc

import (
	"context"
	"net/http"

	"tastefun/core"
	"tastefun/crypto"
	"tastefun/native/ideas"
	"tastefun/native/market"
	"tastefun/native/settlement"
)

type createIdeaRequest struct {
	ID             uint64 `json:"id"`
	Prompt         string `json:"prompt" validate:"required"`
	ThemeCreator   string `json:"themeCreator" validate:"required,address"`
	ThemeID        uint64 `json:"themeId"`
	OracleProvider string `json:"oracleProvider" validate:"required,address"`
	VotingHours    uint32 `json:"votingHours" validate:"gt=0"`
}

type createSponsoredIdeaRequest struct {
	createIdeaRequest
	PrizePool uint64 `json:"prizePool" validate:"gt=0"`
}

type confirmImagesRequest struct {
	ImageURIs []string `json:"imageUris" validate:"len=4,dive,required"`
}

type generationFailedRequest struct {
	Reason string `json:"reason" validate:"max=256"`
}

type voteRequest struct {
	Choice uint8  `json:"choice"`
	Amount uint64 `json:"amount" validate:"gt=0"`
}

type settleRequest struct {
	VotingMode string `json:"votingMode" validate:"votingmode"`
}

func ideaKeyFromPath(r *http.Request) (ideas.IdeaKey, error) {
	initiator, err := pathAddress(r, "initiator")
	if err != nil {
		return ideas.IdeaKey{}, err
	}
	id, err := pathUint(r, "id")
	if err != nil {
		return ideas.IdeaKey{}, err
	}
	return ideas.IdeaKey{Initiator: initiator, ID: id}, nil
}

// toCore converts a validated request. Validation has already checked the
// addresses so parse errors cannot occur here.
func (req createIdeaRequest) toCore(initiator [20]byte) core.CreateIdeaRequest {
	themeCreator, _ := crypto.ParseAddress(req.ThemeCreator)
	oracle, _ := crypto.ParseAddress(req.OracleProvider)
	return core.CreateIdeaRequest{
		Initiator:      initiator,
		ID:             req.ID,
		Prompt:         req.Prompt,
		Theme:          market.ThemeKey{Creator: themeCreator, ID: req.ThemeID},
		OracleProvider: oracle,
		VotingHours:    req.VotingHours,
	}
}

func (s *Server) handleCreateIdea(w http.ResponseWriter, r *http.Request) {
	var req createIdeaRequest
	if details, err := s.decode(r, &req); err != nil {
		writeBadRequest(w, err.Error(), details)
		return
	}
	idea, err := s.node.CreateIdea(r.Context(), req.toCore(callerFrom(r)))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ideaResult(idea))
}

// handleCreateSponsoredIdea registers an idea whose caller is both the
// initiator and the sponsor funding the prize pool.
func (s *Server) handleCreateSponsoredIdea(w http.ResponseWriter, r *http.Request) {
	var req createSponsoredIdeaRequest
	if details, err := s.decode(r, &req); err != nil {
		writeBadRequest(w, err.Error(), details)
		return
	}
	caller := callerFrom(r)
	creq := req.toCore(caller)
	creq.Sponsor = caller
	creq.PrizePool = req.PrizePool
	idea, err := s.node.CreateSponsoredIdea(r.Context(), creq)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ideaResult(idea))
}

func (s *Server) handleListIdeas(w http.ResponseWriter, r *http.Request) {
	var initiator *[20]byte
	if raw := r.URL.Query().Get("initiator"); raw != "" {
		addr, err := crypto.ParseAddress(raw)
		if err != nil {
			writeBadRequest(w, "invalid initiator", nil)
			return
		}
		initiator = &addr
	}
	list, err := s.node.Ideas(initiator)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]IdeaResult, 0, len(list))
	for _, idea := range list {
		out = append(out, ideaResult(idea))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetIdea(w http.ResponseWriter, r *http.Request) {
	key, err := ideaKeyFromPath(r)
	if err != nil {
		writeBadRequest(w, "invalid idea key", nil)
		return
	}
	idea, err := s.node.Idea(key)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ideaResult(idea))
}

func (s *Server) handleGetVote(w http.ResponseWriter, r *http.Request) {
	key, err := ideaKeyFromPath(r)
	if err != nil {
		writeBadRequest(w, "invalid idea key", nil)
		return
	}
	voter, err := pathAddress(r, "voter")
	if err != nil {
		writeBadRequest(w, "invalid voter", nil)
		return
	}
	vote, stake, err := s.node.IdeaVote(key, voter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, voteResult(vote, stake))
}

func (s *Server) handleConfirmImages(w http.ResponseWriter, r *http.Request) {
	key, err := ideaKeyFromPath(r)
	if err != nil {
		writeBadRequest(w, "invalid idea key", nil)
		return
	}
	var req confirmImagesRequest
	if details, err := s.decode(r, &req); err != nil {
		writeBadRequest(w, err.Error(), details)
		return
	}
	idea, err := s.node.ConfirmImages(r.Context(), callerFrom(r), key, req.ImageURIs)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ideaResult(idea))
}

func (s *Server) handleGenerationFailed(w http.ResponseWriter, r *http.Request) {
	key, err := ideaKeyFromPath(r)
	if err != nil {
		writeBadRequest(w, "invalid idea key", nil)
		return
	}
	var req generationFailedRequest
	if details, err := s.decode(r, &req); err != nil {
		writeBadRequest(w, err.Error(), details)
		return
	}
	idea, err := s.node.FailGeneration(r.Context(), callerFrom(r), key, req.Reason)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ideaResult(idea))
}

func (s *Server) handleVote(w http.ResponseWriter, r *http.Request) {
	key, err := ideaKeyFromPath(r)
	if err != nil {
		writeBadRequest(w, "invalid idea key", nil)
		return
	}
	var req voteRequest
	if details, err := s.decode(r, &req); err != nil {
		writeBadRequest(w, err.Error(), details)
		return
	}
	vote, err := s.node.Vote(r.Context(), callerFrom(r), key, req.Choice, req.Amount)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, voteResult(vote, nil))
}

func (s *Server) handleCancelIdea(w http.ResponseWriter, r *http.Request) {
	key, err := ideaKeyFromPath(r)
	if err != nil {
		writeBadRequest(w, "invalid idea key", nil)
		return
	}
	idea, err := s.node.CancelIdea(r.Context(), callerFrom(r), key)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ideaResult(idea))
}

func (s *Server) handleSettle(w http.ResponseWriter, r *http.Request) {
	key, err := ideaKeyFromPath(r)
	if err != nil {
		writeBadRequest(w, "invalid idea key", nil)
		return
	}
	var req settleRequest
	if r.ContentLength != 0 {
		if details, err := s.decode(r, &req); err != nil {
			writeBadRequest(w, err.Error(), details)
			return
		}
	}
	mode, err := settlement.ParseMode(req.VotingMode)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	idea, _, err := s.node.SettleVoting(r.Context(), key, mode)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ideaResult(idea))
}

func (s *Server) handleWithdrawWinnings(w http.ResponseWriter, r *http.Request) {
	s.handleWithdrawal(w, r, s.node.WithdrawWinnings)
}

func (s *Server) handleWithdrawRefund(w http.ResponseWriter, r *http.Request) {
	s.handleWithdrawal(w, r, s.node.WithdrawRefund)
}

func (s *Server) handleWithdrawSponsorRefund(w http.ResponseWriter, r *http.Request) {
	s.handleWithdrawal(w, r, s.node.WithdrawSponsorRefund)
}

type withdrawFunc func(ctx context.Context, caller [20]byte, key ideas.IdeaKey) (uint64, error)

func (s *Server) handleWithdrawal(w http.ResponseWriter, r *http.Request, fn withdrawFunc) {
	key, err := ideaKeyFromPath(r)
	if err != nil {
		writeBadRequest(w, "invalid idea key", nil)
		return
	}
	caller := callerFrom(r)
	amount, err := fn(r.Context(), caller, key)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, WithdrawalResult{Recipient: bech32(caller), Amount: amount})
}

func (s *Server) handleSweepResidual(w http.ResponseWriter, r *http.Request) {
	key, err := ideaKeyFromPath(r)
	if err != nil {
		writeBadRequest(w, "invalid idea key", nil)
		return
	}
	amount, err := s.node.SweepResidual(r.Context(), key)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, WithdrawalResult{Recipient: bech32(s.node.DustSink()), Amount: amount})
}
