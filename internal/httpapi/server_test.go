package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/splitpot/splitpot/internal/auth"
	"github.com/splitpot/splitpot/internal/notify"
	"github.com/splitpot/splitpot/internal/rephrase"
	"github.com/splitpot/splitpot/internal/service"
	"github.com/splitpot/splitpot/internal/storage/sqlite"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("sqlite.New() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })

	hub := notify.NewHub()
	t.Cleanup(hub.Close)

	jwtManager := auth.NewJWTManager("test-secret-key-32-bytes-long!!!", time.Hour)
	expenses := service.NewExpenseService(store, hub)
	api := NewServer(
		auth.NewPasswordAuthenticator(store),
		jwtManager,
		hub,
		service.NewGroupService(store, hub),
		expenses,
		service.NewSettlementService(store, hub),
		service.NewSubscriptionService(store, hub, expenses),
		service.NewCategoryService(store),
		service.NewSummaryService(store, rephrase.NewClient("", time.Second)),
	)

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)
	return srv
}

// call sends a JSON request and decodes the response into out (when non-nil).
func call(t *testing.T, srv *httptest.Server, method, path, token string, body, out any) int {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request: %v", err)
		}
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("%s %s: decode response: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func register(t *testing.T, srv *httptest.Server, username string) (userID, token string) {
	t.Helper()
	var out map[string]string
	status := call(t, srv, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "correct horse battery staple",
	}, &out)
	if status != http.StatusCreated {
		t.Fatalf("register %s: status = %d", username, status)
	}
	return out["user_id"], out["token"]
}

func TestEndToEndLedgerFlow(t *testing.T) {
	srv := newTestServer(t)

	aliceID, aliceToken := register(t, srv, "alice")
	bobID, bobToken := register(t, srv, "bob")

	// Unauthenticated requests are rejected.
	if status := call(t, srv, http.MethodGet, "/api/groups", "", nil, nil); status != http.StatusUnauthorized {
		t.Fatalf("unauthenticated list groups status = %d, want 401", status)
	}

	var group struct {
		ID string `json:"ID"`
	}
	status := call(t, srv, http.MethodPost, "/api/groups", aliceToken, map[string]any{
		"name":       "Flat 4B",
		"currency":   "gbp",
		"member_ids": []string{bobID},
	}, &group)
	if status != http.StatusCreated || group.ID == "" {
		t.Fatalf("create group status = %d, group = %+v", status, group)
	}

	status = call(t, srv, http.MethodPost, "/api/groups/"+group.ID+"/expenses", aliceToken, map[string]any{
		"description": "Dinner",
		"amount":      "30.00",
		"paid_by_id":  aliceID,
		"split_mode":  "equal",
	}, nil)
	if status != http.StatusCreated {
		t.Fatalf("create expense status = %d", status)
	}

	var balances map[string]int64
	if status := call(t, srv, http.MethodGet, "/api/groups/"+group.ID+"/balances", bobToken, nil, &balances); status != http.StatusOK {
		t.Fatalf("balances status = %d", status)
	}
	if balances[aliceID] != 1500 || balances[bobID] != -1500 {
		t.Errorf("balances = %v, want alice +1500 / bob -1500", balances)
	}

	var settlement struct {
		ID string `json:"ID"`
	}
	status = call(t, srv, http.MethodPost, "/api/groups/"+group.ID+"/settlements", bobToken, map[string]any{
		"receiver_id": aliceID,
		"amount":      "15.00",
	}, &settlement)
	if status != http.StatusCreated || settlement.ID == "" {
		t.Fatalf("record settlement status = %d", status)
	}

	// The payer cannot confirm their own settlement.
	if status := call(t, srv, http.MethodPost, "/api/settlements/"+settlement.ID+"/confirm", bobToken, nil, nil); status != http.StatusForbidden {
		t.Errorf("payer confirm status = %d, want 403", status)
	}
	if status := call(t, srv, http.MethodPost, "/api/settlements/"+settlement.ID+"/confirm", aliceToken, nil, nil); status != http.StatusOK {
		t.Errorf("receiver confirm status = %d, want 200", status)
	}
	if status := call(t, srv, http.MethodPost, "/api/settlements/"+settlement.ID+"/confirm", aliceToken, nil, nil); status != http.StatusConflict {
		t.Errorf("double confirm status = %d, want 409", status)
	}

	if status := call(t, srv, http.MethodGet, "/api/groups/"+group.ID+"/balances", aliceToken, nil, &balances); status != http.StatusOK {
		t.Fatalf("balances status = %d", status)
	}
	for id, balance := range balances {
		if balance != 0 {
			t.Errorf("balance[%s] = %d, want 0 after settling", id, balance)
		}
	}

	var summary struct {
		Summary string `json:"summary"`
		Mode    string `json:"mode"`
	}
	if status := call(t, srv, http.MethodGet, "/api/summary", bobToken, nil, &summary); status != http.StatusOK {
		t.Fatalf("summary status = %d", status)
	}
	if summary.Mode != "template" || summary.Summary == "" {
		t.Errorf("summary = %+v, want template-mode text", summary)
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	srv := newTestServer(t)
	register(t, srv, "alice")

	status := call(t, srv, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "alice",
		"password": "wrong password",
	}, nil)
	if status != http.StatusUnauthorized {
		t.Errorf("bad password login status = %d, want 401", status)
	}

	var out map[string]string
	status = call(t, srv, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "alice",
		"password": "correct horse battery staple",
	}, &out)
	if status != http.StatusOK || out["token"] == "" {
		t.Errorf("login status = %d, token = %q", status, out["token"])
	}
}
