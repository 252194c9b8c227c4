package http

import (
	"net/http"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
)

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(nonNil(s.tracker.ListBudgets(r.Context()))).Write(w)
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var in core.BudgetInput
	if err := decodeJSON(w, r, &in); err != nil {
		ErrorFromErr(err).Write(w)
		return
	}
	in.Category = sanitizeInput(in.Category)

	b, err := s.tracker.CreateBudget(r.Context(), in)
	if err != nil {
		s.logFailure(r, applog.OpCreate, err)
		ErrorFromErr(err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(b).Write(w)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	if err := s.tracker.DeleteBudget(r.Context(), r.PathValue("id")); err != nil {
		s.logFailure(r, applog.OpDelete, err)
		ErrorFromErr(err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleBudgetProgress(w http.ResponseWriter, r *http.Request) {
	rng, err := ParseDateRange(r.URL.Query(), "start_date", "end_date")
	if err != nil {
		ErrorFromErr(err).Write(w)
		return
	}
	progress, err := s.reports.BudgetProgress(r.Context(), rng.From, rng.To)
	if err != nil {
		ErrorFromErr(err).Write(w)
		return
	}
	NewJSONResponse().Body(nonNil(progress)).Write(w)
}
