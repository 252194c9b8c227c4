package http

import (
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
)

// accountDetail is one account with its sub-accounts.
type accountDetail struct {
	core.Account
	Subaccounts []core.Account `json:"subaccounts"`
}

// balanceRequest is the body of PUT /accounts/{name}/balance.
type balanceRequest struct {
	Balance *decimal.Decimal `json:"balance"`
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(nonNil(s.tracker.AccountBalances(r.Context()))).Write(w)
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	acct, err := s.tracker.Account(r.Context(), name)
	if err != nil {
		ErrorFromErr(err).Write(w)
		return
	}
	NewJSONResponse().Body(accountDetail{
		Account:     acct,
		Subaccounts: nonNil(s.tracker.Subaccounts(r.Context(), acct.Name)),
	}).Write(w)
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var in core.AccountInput
	if err := decodeJSON(w, r, &in); err != nil {
		ErrorFromErr(err).Write(w)
		return
	}
	in.Name = sanitizeInput(in.Name)

	acct, err := s.tracker.CreateAccount(r.Context(), in)
	if err != nil {
		s.logFailure(r, applog.OpCreate, err)
		ErrorFromErr(err).Write(w)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/accounts/"+acct.Name).
		Body(acct).
		Write(w)
}

func (s *Server) handleSetBalance(w http.ResponseWriter, r *http.Request) {
	var req balanceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ErrorFromErr(err).Write(w)
		return
	}
	if req.Balance == nil {
		ErrorFromErr(fmt.Errorf("balance is required: %w", core.ErrInvalid)).Write(w)
		return
	}

	acct, err := s.tracker.SetBalance(r.Context(), r.PathValue("name"), *req.Balance)
	if err != nil {
		s.logFailure(r, applog.OpUpdate, err)
		ErrorFromErr(err).Write(w)
		return
	}
	NewJSONResponse().Body(acct).Write(w)
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := s.tracker.DeleteAccount(r.Context(), r.PathValue("name")); err != nil {
		s.logFailure(r, applog.OpDelete, err)
		ErrorFromErr(err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleZeroBalances(w http.ResponseWriter, r *http.Request) {
	if err := s.tracker.ZeroBalances(r.Context()); err != nil {
		s.logFailure(r, applog.OpReset, err)
		ErrorFromErr(err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}
