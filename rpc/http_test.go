package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"

	"tastefun/crypto"
	"tastefun/native/ideas"
	"tastefun/native/market"
	"tastefun/native/params"
	"tastefun/rpc/middleware"
	"tastefun/storage/journal"
)

// bootstrap configures trading and opens the "cats" theme for creator.
func bootstrap(t *testing.T, env *testEnv, creator crypto.Address) ThemeResult {
	t.Helper()
	res := env.do(t, http.MethodPost, "/v1/trading-config", &env.admin, initTradingConfigRequest{
		FeeBps: 100, BuybackBps: 5_000, PlatformBps: 3_000, CreatorBps: 2_000,
	})
	requireStatus(t, res, http.StatusCreated)

	res = env.do(t, http.MethodPost, "/v1/themes", &creator, createThemeRequest{ID: 1, Name: "cats", Description: "cat pictures"})
	requireStatus(t, res, http.StatusCreated)
	var theme ThemeResult
	decodeBody(t, res, &theme)
	return theme
}

func TestHealthzEchoesRequestID(t *testing.T) {
	env := newTestEnv(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	id := uuid.NewString()
	req.Header.Set(middleware.HeaderRequestID, id)
	res := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(res, req)
	requireStatus(t, res, http.StatusOK)
	require.Equal(t, id, res.Header().Get(middleware.HeaderRequestID))

	res = env.do(t, http.MethodGet, "/healthz", nil, nil)
	_, err := uuid.Parse(res.Header().Get(middleware.HeaderRequestID))
	require.NoError(t, err)
}

func TestCommandsRequireToken(t *testing.T) {
	env := newTestEnv(t, nil)
	res := env.do(t, http.MethodPost, "/v1/themes", nil, createThemeRequest{ID: 1, Name: "cats"})
	requireStatus(t, res, http.StatusUnauthorized)

	themes, err := env.node.Themes()
	require.NoError(t, err)
	require.Empty(t, themes)
}

func TestNewServerRequiresSecret(t *testing.T) {
	env := newTestEnv(t, nil)
	_, err := NewServer(env.node, nil, ServerConfig{})
	require.Error(t, err)
	_, err = NewServer(nil, nil, ServerConfig{Auth: middleware.AuthConfig{HMACSecret: testSecret}})
	require.Error(t, err)
}

func TestThemeTradingFlow(t *testing.T) {
	env := newTestEnv(t, nil)
	creator := crypto.FromRaw(rawAddr(0xC1))
	trader := crypto.FromRaw(rawAddr(0x33))
	theme := bootstrap(t, env, creator)
	require.Equal(t, creator.String(), theme.Creator)
	require.Equal(t, "active", theme.Status)
	themePath := fmt.Sprintf("/v1/themes/%s/1", creator)

	res := env.do(t, http.MethodPost, "/v1/accounts/"+trader.String()+"/credit", &env.admin, creditRequest{Amount: 2_000_000})
	requireStatus(t, res, http.StatusOK)
	var balance BalanceResult
	decodeBody(t, res, &balance)
	require.Equal(t, uint64(2_000_000), balance.Balance)
	require.Equal(t, "base", balance.Asset)

	res = env.do(t, http.MethodGet, themePath+"/quote?side=buy&amount=2000000", nil, nil)
	requireStatus(t, res, http.StatusOK)
	var quote QuoteResult
	decodeBody(t, res, &quote)
	require.Equal(t, uint64(20_000), quote.Fee.Total)

	res = env.do(t, http.MethodPost, themePath+"/buy", &trader, tradeRequest{Amount: 2_000_000, MinOut: quote.AmountOut})
	requireStatus(t, res, http.StatusOK)
	var swap SwapResult
	decodeBody(t, res, &swap)
	require.Equal(t, quote.AmountOut, swap.TokenAmount)
	require.Equal(t, "buy", swap.Side)

	res = env.do(t, http.MethodGet, "/v1/accounts/"+trader.String()+"/balances/"+theme.Mint, nil, nil)
	requireStatus(t, res, http.StatusOK)
	decodeBody(t, res, &balance)
	require.Equal(t, swap.TokenAmount, balance.Balance)

	res = env.do(t, http.MethodGet, themePath, nil, nil)
	requireStatus(t, res, http.StatusOK)
	decodeBody(t, res, &theme)
	require.Equal(t, uint64(1_980_000), theme.BaseReserves)

	res = env.do(t, http.MethodGet, "/v1/themes", nil, nil)
	requireStatus(t, res, http.StatusOK)
	var themes []ThemeResult
	decodeBody(t, res, &themes)
	require.Len(t, themes, 1)

	res = env.do(t, http.MethodPost, themePath+"/status", &trader, themeStatusRequest{Status: "paused"})
	requireStatus(t, res, http.StatusForbidden)
	res = env.do(t, http.MethodPost, themePath+"/status", &env.admin, themeStatusRequest{Status: "paused"})
	requireStatus(t, res, http.StatusOK)
	res = env.do(t, http.MethodPost, themePath+"/sell", &trader, tradeRequest{Amount: 1_000_000})
	requireStatus(t, res, http.StatusConflict)
}

func TestIdeaVotingFlow(t *testing.T) {
	env := newTestEnv(t, nil)
	creator := crypto.FromRaw(rawAddr(0xC1))
	initiator := crypto.FromRaw(rawAddr(0x11))
	voter := crypto.FromRaw(rawAddr(0x33))
	bootstrap(t, env, creator)

	res := env.do(t, http.MethodPost, "/v1/accounts/"+initiator.String()+"/credit", &env.admin, creditRequest{Amount: params.Default().CreationFee})
	requireStatus(t, res, http.StatusOK)
	res = env.do(t, http.MethodPost, "/v1/accounts/"+voter.String()+"/credit", &env.admin, creditRequest{Amount: 2_000_000})
	requireStatus(t, res, http.StatusOK)
	res = env.do(t, http.MethodPost, fmt.Sprintf("/v1/themes/%s/1/buy", creator), &voter, tradeRequest{Amount: 2_000_000})
	requireStatus(t, res, http.StatusOK)

	res = env.do(t, http.MethodPost, "/v1/ideas", &initiator, createIdeaRequest{
		ID:             7,
		Prompt:         "a cat wearing a hat",
		ThemeCreator:   creator.String(),
		ThemeID:        1,
		OracleProvider: env.oracle.String(),
		VotingHours:    48,
	})
	requireStatus(t, res, http.StatusCreated)
	var idea IdeaResult
	decodeBody(t, res, &idea)
	require.Equal(t, string(ideas.StatusGeneratingImages), idea.Status)
	ideaPath := fmt.Sprintf("/v1/ideas/%s/7", initiator)

	uris := confirmImagesRequest{ImageURIs: []string{"ipfs://a", "ipfs://b", "ipfs://c", "ipfs://d"}}
	res = env.do(t, http.MethodPost, ideaPath+"/images", &voter, uris)
	requireStatus(t, res, http.StatusForbidden)
	res = env.do(t, http.MethodPost, ideaPath+"/images", &env.oracle, uris)
	requireStatus(t, res, http.StatusOK)
	decodeBody(t, res, &idea)
	require.Equal(t, string(ideas.StatusVoting), idea.Status)
	require.Len(t, idea.ImageURIs, 4)

	res = env.do(t, http.MethodPost, ideaPath+"/votes", &voter, voteRequest{Choice: 2, Amount: 1_000_000})
	requireStatus(t, res, http.StatusCreated)
	var vote VoteResult
	decodeBody(t, res, &vote)
	require.Equal(t, uint64(1_000), vote.Weight)

	res = env.do(t, http.MethodPost, ideaPath+"/votes", &voter, voteRequest{Choice: 1, Amount: 1_000_000})
	requireStatus(t, res, http.StatusConflict)

	res = env.do(t, http.MethodGet, ideaPath+"/votes/"+voter.String(), nil, nil)
	requireStatus(t, res, http.StatusOK)
	decodeBody(t, res, &vote)
	require.Equal(t, uint8(2), vote.Choice)
	require.False(t, vote.Processed)

	res = env.do(t, http.MethodPost, ideaPath+"/settle", &voter, nil)
	requireStatus(t, res, http.StatusConflict)

	env.clock += params.Default().DefaultVotingWindowSecs + 1
	res = env.do(t, http.MethodPost, ideaPath+"/settle", &voter, nil)
	requireStatus(t, res, http.StatusOK)
	decodeBody(t, res, &idea)
	require.Equal(t, string(ideas.StatusCancelled), idea.Status)

	res = env.do(t, http.MethodPost, ideaPath+"/refund", &voter, nil)
	requireStatus(t, res, http.StatusOK)
	var withdrawal WithdrawalResult
	decodeBody(t, res, &withdrawal)
	require.Equal(t, uint64(1_000_000), withdrawal.Amount)
	require.Equal(t, voter.String(), withdrawal.Recipient)

	res = env.do(t, http.MethodGet, "/v1/ideas?initiator="+initiator.String(), nil, nil)
	requireStatus(t, res, http.StatusOK)
	var listed []IdeaResult
	decodeBody(t, res, &listed)
	require.Len(t, listed, 1)
}

func TestErrorStatusMapping(t *testing.T) {
	env := newTestEnv(t, nil)
	creator := crypto.FromRaw(rawAddr(0xC1))
	stranger := crypto.FromRaw(rawAddr(0x99))

	res := env.do(t, http.MethodGet, "/v1/trading-config", nil, nil)
	requireStatus(t, res, http.StatusNotFound)

	res = env.do(t, http.MethodPost, "/v1/trading-config", &stranger, initTradingConfigRequest{FeeBps: 100, BuybackBps: 5_000, PlatformBps: 3_000, CreatorBps: 2_000})
	requireStatus(t, res, http.StatusForbidden)

	bootstrap(t, env, creator)
	res = env.do(t, http.MethodPost, "/v1/themes", &creator, createThemeRequest{ID: 1, Name: "dogs"})
	requireStatus(t, res, http.StatusConflict)

	res = env.do(t, http.MethodGet, fmt.Sprintf("/v1/ideas/%s/42", creator), nil, nil)
	requireStatus(t, res, http.StatusNotFound)

	res = env.do(t, http.MethodGet, "/v1/ideas/not-an-address/42", nil, nil)
	requireStatus(t, res, http.StatusBadRequest)

	res = env.do(t, http.MethodPost, fmt.Sprintf("/v1/themes/%s/1/buy", creator), &stranger, tradeRequest{Amount: 2_000_000})
	requireStatus(t, res, http.StatusUnprocessableEntity)

	res = env.do(t, http.MethodPost, "/v1/accounts/"+stranger.String()+"/credit", &stranger, creditRequest{Amount: 5})
	requireStatus(t, res, http.StatusForbidden)

	res = env.do(t, http.MethodGet, fmt.Sprintf("/v1/themes/%s/1/quote?side=sideways&amount=5", creator), nil, nil)
	requireStatus(t, res, http.StatusBadRequest)
}

func TestValidationFailureListsFields(t *testing.T) {
	env := newTestEnv(t, nil)
	caller := crypto.FromRaw(rawAddr(0x11))

	res := env.do(t, http.MethodPost, "/v1/ideas", &caller, map[string]interface{}{
		"prompt":         "",
		"themeCreator":   "nope",
		"oracleProvider": env.oracle.String(),
		"votingHours":    48,
	})
	requireStatus(t, res, http.StatusBadRequest)
	var body ErrorResponse
	decodeBody(t, res, &body)
	require.Contains(t, body.Details, "prompt")
	require.Contains(t, body.Details, "themeCreator")
	require.NotContains(t, body.Details, "oracleProvider")

	res = env.do(t, http.MethodPost, "/v1/themes", &caller, map[string]interface{}{"name": "cats", "unexpected": true})
	requireStatus(t, res, http.StatusBadRequest)

	res = env.do(t, http.MethodPost, "/v1/themes", &caller, createThemeRequest{Name: "cats", VotingMode: "sideways"})
	requireStatus(t, res, http.StatusBadRequest)
	decodeBody(t, res, &body)
	require.Equal(t, "invalid voting mode", body.Details["votingMode"])
}

func TestStatusForFallsBackToInternal(t *testing.T) {
	require.Equal(t, http.StatusNotFound, statusFor(fmt.Errorf("wrap: %w", market.ErrThemeNotFound)))
	require.Equal(t, http.StatusConflict, statusFor(ideas.ErrAlreadyVoted))
	require.Equal(t, http.StatusInternalServerError, statusFor(fmt.Errorf("disk on fire")))
}

func TestListEvents(t *testing.T) {
	env := newTestEnv(t, nil)
	res := env.do(t, http.MethodGet, "/v1/events", nil, nil)
	requireStatus(t, res, http.StatusServiceUnavailable)

	fake := &fakeJournal{records: []journal.Record{{
		ID:         uuid.New(),
		Sequence:   4,
		Type:       market.TypeThemeCreated,
		Subject:    "theme",
		Attributes: `{"name":"cats"}`,
		CreatedAt:  time.Unix(1_700_000_000, 0),
	}}}
	env = newTestEnv(t, fake)
	res = env.do(t, http.MethodGet, "/v1/events?type=market.theme.created&after=3&limit=10", nil, nil)
	requireStatus(t, res, http.StatusOK)
	var out []EventResult
	decodeBody(t, res, &out)
	require.Len(t, out, 1)
	require.Equal(t, "cats", out[0].Attributes["name"])
	require.Equal(t, uint64(3), fake.filter.AfterSequence)
	require.Equal(t, 10, fake.filter.Limit)
	require.Equal(t, "market.theme.created", fake.filter.Type)

	res = env.do(t, http.MethodGet, "/v1/events?after=x", nil, nil)
	requireStatus(t, res, http.StatusBadRequest)
}

func TestEventStreamReplaysBacklog(t *testing.T) {
	env := newTestEnv(t, nil)
	bootstrap(t, env, crypto.FromRaw(rawAddr(0xC1)))

	srv := httptest.NewServer(env.server.Handler())
	defer srv.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/events/stream"
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "done")

	var kinds []string
	for i := 0; i < 2; i++ {
		_, data, err := conn.Read(ctx)
		require.NoError(t, err)
		var payload streamPayload
		require.NoError(t, json.Unmarshal(data, &payload))
		kinds = append(kinds, payload.Type)
	}
	require.Equal(t, []string{market.TypeTradingConfigInitialized, market.TypeThemeCreated}, kinds)

	res := env.do(t, http.MethodGet, "/v1/events/stream?cursor=abc", nil, nil)
	requireStatus(t, res, http.StatusBadRequest)
}
