package rpc

import (
	"net/http"
	"strconv"
	"strings"

	"tastefun/native/market"
	"tastefun/native/settlement"
)

type initTradingConfigRequest struct {
	FeeBps      uint64 `json:"feeBps" validate:"lte=10000"`
	BuybackBps  uint64 `json:"buybackBps" validate:"lte=10000"`
	PlatformBps uint64 `json:"platformBps" validate:"lte=10000"`
	CreatorBps  uint64 `json:"creatorBps" validate:"lte=10000"`
}

type createThemeRequest struct {
	ID          uint64 `json:"id"`
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	VotingMode  string `json:"votingMode" validate:"votingmode"`
}

type tradeRequest struct {
	Amount uint64 `json:"amount" validate:"gt=0"`
	MinOut uint64 `json:"minOut"`
}

type themeStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active paused"`
}

func themeKeyFromPath(r *http.Request) (market.ThemeKey, error) {
	creator, err := pathAddress(r, "creator")
	if err != nil {
		return market.ThemeKey{}, err
	}
	id, err := pathUint(r, "id")
	if err != nil {
		return market.ThemeKey{}, err
	}
	return market.ThemeKey{Creator: creator, ID: id}, nil
}

func (s *Server) handleInitTradingConfig(w http.ResponseWriter, r *http.Request) {
	var req initTradingConfigRequest
	if details, err := s.decode(r, &req); err != nil {
		writeBadRequest(w, err.Error(), details)
		return
	}
	cfg, err := s.node.InitTradingConfig(r.Context(), callerFrom(r), req.FeeBps, req.BuybackBps, req.PlatformBps, req.CreatorBps)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tradingConfigResult(cfg))
}

func (s *Server) handleGetTradingConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.node.TradingConfig()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tradingConfigResult(cfg))
}

func (s *Server) handleCreateTheme(w http.ResponseWriter, r *http.Request) {
	var req createThemeRequest
	if details, err := s.decode(r, &req); err != nil {
		writeBadRequest(w, err.Error(), details)
		return
	}
	mode, err := settlement.ParseMode(req.VotingMode)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	theme, err := s.node.InitializeTheme(r.Context(), callerFrom(r), req.ID, req.Name, req.Description, mode)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, themeResult(theme))
}

func (s *Server) handleListThemes(w http.ResponseWriter, r *http.Request) {
	themes, err := s.node.Themes()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]ThemeResult, 0, len(themes))
	for _, theme := range themes {
		out = append(out, themeResult(theme))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetTheme(w http.ResponseWriter, r *http.Request) {
	key, err := themeKeyFromPath(r)
	if err != nil {
		writeBadRequest(w, "invalid theme key", nil)
		return
	}
	theme, err := s.node.Theme(key)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, themeResult(theme))
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	key, err := themeKeyFromPath(r)
	if err != nil {
		writeBadRequest(w, "invalid theme key", nil)
		return
	}
	amount, err := strconv.ParseUint(r.URL.Query().Get("amount"), 10, 64)
	if err != nil || amount == 0 {
		writeBadRequest(w, "amount must be a positive integer", nil)
		return
	}
	side := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("side")))
	switch side {
	case "buy":
		quote, split, err := s.node.QuoteBuy(key, amount)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, QuoteResult{Side: side, AmountIn: amount, AmountOut: quote.TokensOut, Fee: split})
	case "sell":
		quote, split, err := s.node.QuoteSell(key, amount)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, QuoteResult{Side: side, AmountIn: amount, AmountOut: quote.NetBase, Fee: split})
	default:
		writeBadRequest(w, "side must be buy or sell", nil)
	}
}

func (s *Server) handleBuy(w http.ResponseWriter, r *http.Request) {
	s.handleTrade(w, r, true)
}

func (s *Server) handleSell(w http.ResponseWriter, r *http.Request) {
	s.handleTrade(w, r, false)
}

func (s *Server) handleTrade(w http.ResponseWriter, r *http.Request, buy bool) {
	key, err := themeKeyFromPath(r)
	if err != nil {
		writeBadRequest(w, "invalid theme key", nil)
		return
	}
	var req tradeRequest
	if details, err := s.decode(r, &req); err != nil {
		writeBadRequest(w, err.Error(), details)
		return
	}
	var result *market.SwapResult
	if buy {
		result, err = s.node.Buy(r.Context(), callerFrom(r), key, req.Amount, req.MinOut)
	} else {
		result, err = s.node.Sell(r.Context(), callerFrom(r), key, req.Amount, req.MinOut)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, swapResult(result))
}

func (s *Server) handleBuyback(w http.ResponseWriter, r *http.Request) {
	key, err := themeKeyFromPath(r)
	if err != nil {
		writeBadRequest(w, "invalid theme key", nil)
		return
	}
	result, err := s.node.ExecuteBuyback(r.Context(), key)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, BuybackResult{
		Theme:                  themeKeyResult(result.Theme),
		BaseSpent:              result.BaseSpent,
		TokensBurned:           result.TokensBurned,
		SettlementTokensBurned: result.SettlementTokensBurned,
		NewTokenReserves:       result.NewTokenReserves,
		NewBaseReserves:        result.NewBaseReserves,
	})
}

func (s *Server) handleSetThemeStatus(w http.ResponseWriter, r *http.Request) {
	key, err := themeKeyFromPath(r)
	if err != nil {
		writeBadRequest(w, "invalid theme key", nil)
		return
	}
	var req themeStatusRequest
	if details, err := s.decode(r, &req); err != nil {
		writeBadRequest(w, err.Error(), details)
		return
	}
	theme, err := s.node.SetThemeStatus(r.Context(), callerFrom(r), key, market.ThemeStatus(req.Status))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, themeResult(theme))
}
