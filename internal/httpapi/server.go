// Package httpapi exposes the ledger engine over a JSON HTTP surface plus
// the websocket notification bridge.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/splitpot/splitpot/internal/auth"
	"github.com/splitpot/splitpot/internal/middleware"
	"github.com/splitpot/splitpot/internal/notify"
	"github.com/splitpot/splitpot/internal/service"
)

// Server bundles the services behind the HTTP handlers.
type Server struct {
	authn         auth.Authenticator
	jwt           *auth.JWTManager
	hub           *notify.Hub
	groups        *service.GroupService
	expenses      *service.ExpenseService
	settlements   *service.SettlementService
	subscriptions *service.SubscriptionService
	categories    *service.CategoryService
	summaries     *service.SummaryService
}

// NewServer creates a Server over the given services.
func NewServer(
	authn auth.Authenticator,
	jwt *auth.JWTManager,
	hub *notify.Hub,
	groups *service.GroupService,
	expenses *service.ExpenseService,
	settlements *service.SettlementService,
	subscriptions *service.SubscriptionService,
	categories *service.CategoryService,
	summaries *service.SummaryService,
) *Server {
	return &Server{
		authn:         authn,
		jwt:           jwt,
		hub:           hub,
		groups:        groups,
		expenses:      expenses,
		settlements:   settlements,
		subscriptions: subscriptions,
		categories:    categories,
		summaries:     summaries,
	}
}

// Handler builds the full route table wrapped in logging middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)

	authed := func(h http.HandlerFunc) http.Handler {
		return middleware.RequireAuth(s.jwt, h)
	}

	mux.Handle("POST /api/groups", authed(s.handleCreateGroup))
	mux.Handle("GET /api/groups", authed(s.handleListGroups))
	mux.Handle("GET /api/groups/{id}", authed(s.handleGetGroup))
	mux.Handle("DELETE /api/groups/{id}", authed(s.handleDeleteGroup))
	mux.Handle("DELETE /api/groups/{id}/members/{userID}", authed(s.handleRemoveMember))
	mux.Handle("GET /api/groups/{id}/balances", authed(s.handleBalances))
	mux.Handle("GET /api/groups/{id}/settle-plan", authed(s.handleSettlePlan))

	mux.Handle("POST /api/groups/{id}/invites", authed(s.handleInvite))
	mux.Handle("GET /api/invites", authed(s.handleListInvites))
	mux.Handle("POST /api/invites/{id}/accept", authed(s.handleAcceptInvite))
	mux.Handle("POST /api/invites/{id}/decline", authed(s.handleDeclineInvite))

	mux.Handle("POST /api/groups/{id}/categories", authed(s.handleCreateCategory))
	mux.Handle("GET /api/groups/{id}/categories", authed(s.handleListCategories))

	mux.Handle("POST /api/groups/{id}/expenses", authed(s.handleCreateExpense))
	mux.Handle("GET /api/groups/{id}/expenses", authed(s.handleListExpenses))
	mux.Handle("PUT /api/expenses/{id}", authed(s.handleUpdateExpense))
	mux.Handle("DELETE /api/expenses/{id}", authed(s.handleDeleteExpense))

	mux.Handle("POST /api/groups/{id}/settlements", authed(s.handleRecordSettlement))
	mux.Handle("GET /api/groups/{id}/settlements", authed(s.handleListSettlements))
	mux.Handle("POST /api/settlements/{id}/confirm", authed(s.handleConfirmSettlement))

	mux.Handle("POST /api/groups/{id}/subscriptions", authed(s.handleCreateSubscription))
	mux.Handle("GET /api/groups/{id}/subscriptions", authed(s.handleListSubscriptions))
	mux.Handle("PUT /api/subscriptions/{id}", authed(s.handleUpdateSubscription))
	mux.Handle("DELETE /api/subscriptions/{id}", authed(s.handleDeleteSubscription))
	mux.Handle("POST /api/subscriptions/{id}/pay", authed(s.handlePaySubscription))

	mux.Handle("GET /api/summary", authed(s.handleSummary))

	mux.Handle("/ws/notifications", middleware.RequireAuth(s.jwt, s.notificationsHandler()))

	return middleware.Logging(mux)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return false
	}
	return true
}

// writeError maps the service error taxonomy onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrPermission):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrConflict):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		slog.Error("internal error", "error", err)
		writeJSON(w, status, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
