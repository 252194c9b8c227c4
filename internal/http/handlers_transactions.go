package http

import (
	"net/http"
	"sync/atomic"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	f, err := ParseFilter(r.URL.Query())
	if err != nil {
		ErrorFromErr(err).Write(w)
		return
	}
	txs := s.tracker.ListTransactions(r.Context(), f)
	NewJSONResponse().Body(nonNil(txs)).Write(w)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := s.tracker.Transaction(r.Context(), r.PathValue("id"))
	if err != nil {
		ErrorFromErr(err).Write(w)
		return
	}
	NewJSONResponse().Body(tx).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var in core.TransactionInput
	if err := decodeJSON(w, r, &in); err != nil {
		ErrorFromErr(err).Write(w)
		return
	}
	in.Note = sanitizeInput(in.Note)

	tx, err := s.tracker.AddTransaction(r.Context(), in)
	if err != nil {
		s.logFailure(r, applog.OpCreate, err)
		ErrorFromErr(err).Write(w)
		return
	}
	atomic.AddInt64(&s.appMetrics.transactionsCreated, 1)
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/transactions/"+tx.ID).
		Body(tx).
		Write(w)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var in core.TransactionInput
	if err := decodeJSON(w, r, &in); err != nil {
		ErrorFromErr(err).Write(w)
		return
	}
	in.Note = sanitizeInput(in.Note)

	tx, err := s.tracker.UpdateTransaction(r.Context(), r.PathValue("id"), in)
	if err != nil {
		s.logFailure(r, applog.OpUpdate, err)
		ErrorFromErr(err).Write(w)
		return
	}
	NewJSONResponse().Body(tx).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.tracker.DeleteTransaction(r.Context(), r.PathValue("id")); err != nil {
		s.logFailure(r, applog.OpDelete, err)
		ErrorFromErr(err).Write(w)
		return
	}
	atomic.AddInt64(&s.appMetrics.transactionsDeleted, 1)
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleClearTransactions(w http.ResponseWriter, r *http.Request) {
	if err := s.tracker.ClearAll(r.Context()); err != nil {
		s.logFailure(r, applog.OpClear, err)
		ErrorFromErr(err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

// logFailure records rejected writes. Rule violations are expected traffic
// and stay at debug; anything else is an error.
func (s *Server) logFailure(r *http.Request, op string, err error) {
	logger := applog.FromContext(r.Context())
	kind := core.KindOf(err)
	if StatusFor(kind) >= http.StatusInternalServerError {
		applog.NewStructuredLogger(logger).LogError(r.Context(), "Request failed", err, applog.ComponentHTTP, op,
			applog.LogFields{applog.FieldPath: r.URL.Path, applog.FieldErrorKind: string(kind)})
		return
	}
	logger.DebugContext(r.Context(), "Request rejected",
		applog.FieldOperation, op,
		applog.FieldPath, r.URL.Path,
		applog.FieldErrorKind, string(kind),
		applog.FieldError, err)
}
