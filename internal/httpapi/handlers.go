package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/splitpot/splitpot/internal/auth"
	"github.com/splitpot/splitpot/internal/calculator"
	"github.com/splitpot/splitpot/internal/middleware"
	"github.com/splitpot/splitpot/internal/models"
	"github.com/splitpot/splitpot/internal/money"
	"github.com/splitpot/splitpot/internal/service"
)

const dateFormat = "2006-01-02"

// amountCents parses a decimal amount string ("12.50") into cents.
func amountCents(w http.ResponseWriter, raw string) (money.Cents, bool) {
	cents, err := money.FromString(raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid amount: " + raw})
		return 0, false
	}
	return cents, true
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !readJSON(w, r, &req) {
		return
	}

	user, err := s.authn.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, auth.ErrUserExists) {
			status = http.StatusConflict
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}

	token, err := s.jwt.Generate(user)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"user_id":  user.ID,
		"username": user.Username,
		"token":    token,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !readJSON(w, r, &req) {
		return
	}

	user, err := s.authn.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
		return
	}

	token, err := s.jwt.Generate(user)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"user_id":  user.ID,
		"username": user.Username,
		"token":    token,
	})
}

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name      string   `json:"name"`
		Currency  string   `json:"currency"`
		MemberIDs []string `json:"member_ids"`
	}
	if !readJSON(w, r, &req) {
		return
	}

	group, err := s.groups.CreateGroup(r.Context(), middleware.GetUserID(r.Context()), req.Name, req.Currency, req.MemberIDs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, group)
}

func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := s.groups.ListGroups(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

func (s *Server) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	group, err := s.groups.GetGroup(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, group)
}

func (s *Server) handleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	if err := s.groups.DeleteGroup(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	err := s.groups.RemoveMember(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("id"), r.PathValue("userID"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	balances, err := s.groups.GroupBalances(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, balances)
}

func (s *Server) handleSettlePlan(w http.ResponseWriter, r *http.Request) {
	plan, err := s.groups.PlanSettlements(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (s *Server) handleInvite(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
	}
	if !readJSON(w, r, &req) {
		return
	}

	invite, err := s.groups.InviteMember(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("id"), req.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, invite)
}

func (s *Server) handleListInvites(w http.ResponseWriter, r *http.Request) {
	invites, err := s.groups.ListInvites(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, invites)
}

func (s *Server) handleAcceptInvite(w http.ResponseWriter, r *http.Request) {
	if err := s.groups.AcceptInvite(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeclineInvite(w http.ResponseWriter, r *http.Request) {
	if err := s.groups.DeclineInvite(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type categoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Budget      string `json:"budget,omitempty"`
	Splits      []struct {
		UserID string `json:"user_id"`
		Share  int64  `json:"share"`
	} `json:"splits,omitempty"`
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if !readJSON(w, r, &req) {
		return
	}

	var budget money.Cents
	if req.Budget != "" {
		var ok bool
		if budget, ok = amountCents(w, req.Budget); !ok {
			return
		}
	}
	splits := make([]models.CategorySplit, 0, len(req.Splits))
	for _, split := range req.Splits {
		splits = append(splits, models.CategorySplit{UserID: split.UserID, Share: split.Share})
	}

	category, err := s.categories.CreateCategory(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("id"), service.CategoryInput{
		Name:        req.Name,
		Description: req.Description,
		Budget:      budget,
		Splits:      splits,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, category)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.categories.ListCategories(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

type expenseRequest struct {
	Description string `json:"description"`
	Amount      string `json:"amount"`
	PaidByID    string `json:"paid_by_id"`
	CategoryID  string `json:"category_id,omitempty"`
	SplitMode   string `json:"split_mode,omitempty"`
	Splits      []struct {
		UserID string `json:"user_id"`
		Share  int64  `json:"share,omitempty"`
		Amount string `json:"amount,omitempty"`
	} `json:"splits,omitempty"`
}

func (s *Server) expenseInput(w http.ResponseWriter, req expenseRequest) (service.ExpenseInput, bool) {
	amount, ok := amountCents(w, req.Amount)
	if !ok {
		return service.ExpenseInput{}, false
	}

	mode := service.SplitMode(req.SplitMode)
	shares := make([]calculator.Party, 0, len(req.Splits))
	for _, split := range req.Splits {
		share := split.Share
		// Exact mode carries amounts, not weights.
		if mode == service.SplitExact {
			cents, ok := amountCents(w, split.Amount)
			if !ok {
				return service.ExpenseInput{}, false
			}
			share = int64(cents)
		}
		shares = append(shares, calculator.Party{MemberID: split.UserID, Share: share})
	}

	return service.ExpenseInput{
		Description: req.Description,
		Amount:      amount,
		PaidByID:    req.PaidByID,
		CategoryID:  req.CategoryID,
		Mode:        mode,
		Shares:      shares,
	}, true
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if !readJSON(w, r, &req) {
		return
	}
	in, ok := s.expenseInput(w, req)
	if !ok {
		return
	}

	expense, err := s.expenses.CreateExpense(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("id"), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, expense)
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := s.expenses.ListExpenses(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, expenses)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if !readJSON(w, r, &req) {
		return
	}
	in, ok := s.expenseInput(w, req)
	if !ok {
		return
	}

	expense, err := s.expenses.UpdateExpense(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("id"), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, expense)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := s.expenses.DeleteExpense(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRecordSettlement(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ReceiverID string `json:"receiver_id"`
		Amount     string `json:"amount"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	amount, ok := amountCents(w, req.Amount)
	if !ok {
		return
	}

	settlement, err := s.settlements.RecordSettlement(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("id"), req.ReceiverID, amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, settlement)
}

func (s *Server) handleListSettlements(w http.ResponseWriter, r *http.Request) {
	settlements, err := s.settlements.ListSettlements(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settlements)
}

func (s *Server) handleConfirmSettlement(w http.ResponseWriter, r *http.Request) {
	settlement, err := s.settlements.ConfirmSettlement(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settlement)
}

type subscriptionRequest struct {
	Name        string `json:"name"`
	Amount      string `json:"amount"`
	Cadence     string `json:"cadence"`
	NextDueDate string `json:"next_due_date"`
	Notes       string `json:"notes,omitempty"`
	CategoryID  string `json:"category_id,omitempty"`
	Members     []struct {
		UserID string `json:"user_id"`
		Share  int64  `json:"share"`
	} `json:"members"`
}

func (s *Server) subscriptionInput(w http.ResponseWriter, req subscriptionRequest) (service.SubscriptionInput, bool) {
	amount, ok := amountCents(w, req.Amount)
	if !ok {
		return service.SubscriptionInput{}, false
	}
	due, err := time.Parse(dateFormat, req.NextDueDate)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid next_due_date: " + req.NextDueDate})
		return service.SubscriptionInput{}, false
	}
	members := make([]models.SubscriptionMember, 0, len(req.Members))
	for _, m := range req.Members {
		members = append(members, models.SubscriptionMember{UserID: m.UserID, Share: m.Share})
	}

	return service.SubscriptionInput{
		Name:        req.Name,
		Amount:      amount,
		Cadence:     models.Cadence(req.Cadence),
		NextDueDate: due,
		Notes:       req.Notes,
		CategoryID:  req.CategoryID,
		Members:     members,
	}, true
}

func (s *Server) handleCreateSubscription(w http.ResponseWriter, r *http.Request) {
	var req subscriptionRequest
	if !readJSON(w, r, &req) {
		return
	}
	in, ok := s.subscriptionInput(w, req)
	if !ok {
		return
	}

	sub, err := s.subscriptions.CreateSubscription(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("id"), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (s *Server) handleListSubscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := s.subscriptions.ListSubscriptions(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, subs)
}

func (s *Server) handleUpdateSubscription(w http.ResponseWriter, r *http.Request) {
	var req subscriptionRequest
	if !readJSON(w, r, &req) {
		return
	}
	in, ok := s.subscriptionInput(w, req)
	if !ok {
		return
	}

	sub, err := s.subscriptions.UpdateSubscription(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("id"), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (s *Server) handleDeleteSubscription(w http.ResponseWriter, r *http.Request) {
	if err := s.subscriptions.DeleteSubscription(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePaySubscription(w http.ResponseWriter, r *http.Request) {
	expense, err := s.subscriptions.PaySubscription(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, expense)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.summaries.Summarize(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
