package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tastefun/core"
	"tastefun/crypto"
	"tastefun/native/params"
	"tastefun/rpc/middleware"
	"tastefun/storage"
	"tastefun/storage/journal"
)

const testSecret = "rpc-test-secret-rpc-test-secret-0"

type fakeJournal struct {
	records []journal.Record
	filter  journal.Filter
}

func (f *fakeJournal) Query(_ context.Context, filter journal.Filter) ([]journal.Record, error) {
	f.filter = filter
	return f.records, nil
}

type testEnv struct {
	server   *Server
	node     *core.Node
	admin    crypto.Address
	oracle   crypto.Address
	treasury crypto.Address
	clock    int64
}

func rawAddr(b byte) [20]byte {
	var out [20]byte
	for i := range out {
		out[i] = b
	}
	return out
}

func newTestEnv(t testing.TB, events EventQuerier) *testEnv {
	t.Helper()
	env := &testEnv{
		admin:    crypto.FromRaw(rawAddr(0xA0)),
		oracle:   crypto.FromRaw(rawAddr(0x0C)),
		treasury: crypto.FromRaw(rawAddr(0x7E)),
		clock:    1_700_000_000,
	}
	node, err := core.NewNode(storage.NewMemDB(), core.Options{
		Params:   params.Default(),
		Oracle:   env.oracle.Raw(),
		Treasury: env.treasury.Raw(),
		Admin:    env.admin.Raw(),
		Now:      func() int64 { return env.clock },
		Faucet:   true,
	})
	require.NoError(t, err)
	srv, err := NewServer(node, events, ServerConfig{
		Auth: middleware.AuthConfig{HMACSecret: testSecret, Issuer: "rpc-tests"},
	})
	require.NoError(t, err)
	env.node = node
	env.server = srv
	return env
}

func (env *testEnv) token(t testing.TB, addr crypto.Address) string {
	t.Helper()
	token, err := middleware.IssueToken(testSecret, "rpc-tests", "", addr, time.Hour, time.Now())
	require.NoError(t, err)
	return token
}

// do sends a request as caller; a zero caller sends it anonymously.
func (env *testEnv) do(t testing.TB, method, path string, caller *crypto.Address, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if caller != nil {
		req.Header.Set("Authorization", "Bearer "+env.token(t, *caller))
	}
	res := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(res, req)
	return res
}

func decodeBody(t testing.TB, res *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), dst), res.Body.String())
}

func requireStatus(t testing.TB, res *httptest.ResponseRecorder, status int) {
	t.Helper()
	require.Equal(t, status, res.Code, res.Body.String())
}

