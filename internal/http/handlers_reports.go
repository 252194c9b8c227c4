package http

import (
	"net/http"

	"fintrack/internal/reporting"
)

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.reports.YearSummary(r.Context(), queryValue(r.URL.Query(), "year"))
	if err != nil {
		ErrorFromErr(err).Write(w)
		return
	}
	NewJSONResponse().Body(summary).Write(w)
}

// handleCategories breaks one transaction type down by category. With
// ?account= it instead shows that account's expense distribution.
func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var (
		totals []reporting.CategoryTotal
		err    error
	)
	if account := queryValue(q, "account"); account != "" {
		totals, err = s.reports.AccountCategories(r.Context(), account)
	} else {
		txType, typeErr := queryTxType(q, "type")
		if typeErr != nil {
			ErrorFromErr(typeErr).Write(w)
			return
		}
		rng, rngErr := ParseDateRange(q, "from", "to")
		if rngErr != nil {
			ErrorFromErr(rngErr).Write(w)
			return
		}
		totals, err = s.reports.CategoryBreakdown(r.Context(), txType, rng.From, rng.To)
	}
	if err != nil {
		ErrorFromErr(err).Write(w)
		return
	}
	NewJSONResponse().Body(nonNil(totals)).Write(w)
}

func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	rng, err := ParseDateRange(r.URL.Query(), "from", "to")
	if err != nil {
		ErrorFromErr(err).Write(w)
		return
	}
	trend, err := s.reports.MonthlyTrend(r.Context(), rng.From, rng.To)
	if err != nil {
		ErrorFromErr(err).Write(w)
		return
	}
	NewJSONResponse().Body(nonNil(trend)).Write(w)
}
