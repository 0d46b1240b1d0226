package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"tastefun/crypto"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func testAddress() crypto.Address {
	var raw [20]byte
	for i := range raw {
		raw[i] = byte(i + 1)
	}
	return crypto.FromRaw(raw)
}

func TestAuthenticatorStoresCaller(t *testing.T) {
	auth := NewAuthenticator(AuthConfig{HMACSecret: testSecret, Issuer: "tastefund", Audience: "api"}, nil)
	token, err := IssueToken(testSecret, "tastefund", "api", testAddress(), time.Hour, time.Now())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	var got [20]byte
	handler := auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, ok := Caller(r.Context())
		if !ok {
			t.Fatalf("caller missing from context")
		}
		got = caller
	}))
	req := httptest.NewRequest(http.MethodPost, "/v1/ideas", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected success, got %d", res.Code)
	}
	if got != testAddress().Raw() {
		t.Fatalf("unexpected caller %x", got)
	}
}

func TestAuthenticatorRejectsBadTokens(t *testing.T) {
	auth := NewAuthenticator(AuthConfig{HMACSecret: testSecret, Issuer: "tastefund"}, nil)
	expired, err := IssueToken(testSecret, "tastefund", "", testAddress(), time.Minute, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	wrongIssuer, err := IssueToken(testSecret, "someone-else", "", testAddress(), time.Hour, time.Now())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	wrongKey, err := IssueToken("ffffffffffffffffffffffffffffffff", "tastefund", "", testAddress(), time.Hour, time.Now())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	handler := auth.Middleware(okHandler())
	for name, header := range map[string]string{
		"missing":      "",
		"basic":        "Basic abc",
		"expired":      "Bearer " + expired,
		"wrong issuer": "Bearer " + wrongIssuer,
		"wrong key":    "Bearer " + wrongKey,
	} {
		req := httptest.NewRequest(http.MethodPost, "/v1/ideas", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)
		if res.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", name, res.Code)
		}
	}
}

func TestRequestIDsAssignsAndEchoes(t *testing.T) {
	var seen string
	handler := RequestIDs(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
	}))

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if _, err := uuid.Parse(seen); err != nil {
		t.Fatalf("expected generated uuid, got %q", seen)
	}
	if res.Header().Get(HeaderRequestID) != seen {
		t.Fatalf("response header %q does not match %q", res.Header().Get(HeaderRequestID), seen)
	}

	inbound := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(HeaderRequestID, inbound)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if seen != inbound {
		t.Fatalf("expected inbound id to be kept, got %q", seen)
	}
}
