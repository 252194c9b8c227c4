package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/services"
	"fintrack/internal/storage/memory"
)

type testServer struct {
	srv   *Server
	store *memory.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()
	store := memory.New(memory.State{})
	tracker, err := services.NewTracker(ctx, store)
	if err != nil {
		t.Fatalf("NewTracker: %v", err)
	}
	if _, err := tracker.EnsureDefaultAccounts(ctx); err != nil {
		t.Fatalf("EnsureDefaultAccounts: %v", err)
	}
	caches := services.NewReportCaches(16, time.Minute)
	reports := services.NewReports(tracker, caches)
	srv := NewServer(":0", tracker, reports, WithCaches(caches), WithRateLimit(1000))
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return &testServer{srv: srv, store: store}
}

func (ts *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	ts.srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func (ts *testServer) balance(t *testing.T, name string) string {
	t.Helper()
	rr := ts.do(t, http.MethodGet, "/accounts/"+name, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("GET account %s: %d %s", name, rr.Code, rr.Body.String())
	}
	return decode[accountDetail](t, rr).Balance.String()
}

func TestHealthAndReady(t *testing.T) {
	ts := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := ts.do(t, http.MethodGet, path, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
		if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("%s Content-Type=%q", path, ct)
		}
	}
}

func TestMetrics(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodGet, "/accounts", "")
	rr := ts.do(t, http.MethodGet, "/metrics", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{"http_requests_total 1", "ledger_accounts 3", `cache_entries{type="summaries"}`, "uptime_seconds"} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q:\n%s", want, body)
		}
	}
}

func TestTransactionLifecycle(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(t, http.MethodPost, "/transactions",
		`{"amount": 100, "type": "expense", "date": "2024-03-05", "category": "food", "account": "Card", "note": "groceries"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}
	tx := decode[core.Transaction](t, rr)
	if tx.ID == "" || rr.Header().Get("Location") != "/transactions/"+tx.ID {
		t.Fatalf("unexpected id/location: %q %q", tx.ID, rr.Header().Get("Location"))
	}
	if got := ts.balance(t, "Card"); got != "4900" {
		t.Errorf("Card balance after expense = %s, want 4900", got)
	}

	rr = ts.do(t, http.MethodGet, "/transactions?type=expense&account=Card", "")
	if list := decode[[]core.Transaction](t, rr); len(list) != 1 {
		t.Fatalf("filtered list len=%d", len(list))
	}
	rr = ts.do(t, http.MethodGet, "/transactions?type=income", "")
	if rr.Body.String() != "[]\n" {
		t.Errorf("empty list should encode as [], got %q", rr.Body.String())
	}

	rr = ts.do(t, http.MethodPut, "/transactions/"+tx.ID,
		`{"amount": 50, "type": "expense", "date": "2024-03-06", "category": "food", "account": "Card"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("update status=%d body=%s", rr.Code, rr.Body.String())
	}
	if got := ts.balance(t, "Card"); got != "4950" {
		t.Errorf("Card balance after update = %s, want 4950", got)
	}

	rr = ts.do(t, http.MethodDelete, "/transactions/"+tx.ID, "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", rr.Code)
	}
	if got := ts.balance(t, "Card"); got != "5000" {
		t.Errorf("Card balance after delete = %s, want 5000", got)
	}

	rr = ts.do(t, http.MethodGet, "/transactions/"+tx.ID, "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("get deleted status=%d", rr.Code)
	}
	if body := decode[ErrorBody](t, rr); body.Error != core.KindNotFound {
		t.Errorf("error kind = %q", body.Error)
	}
}

func TestInsufficientFundsCarriesLimit(t *testing.T) {
	ts := newTestServer(t)
	rr := ts.do(t, http.MethodPost, "/transactions",
		`{"amount": 1500, "type": "expense", "date": "2024-03-05", "category": "rent", "account": "Cash"}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	body := decode[map[string]any](t, rr)
	if body["error"] != "InsufficientFunds" || body["account"] != "Cash" || body["limit"] != float64(1000) {
		t.Errorf("unexpected body: %v", body)
	}
	if got := ts.balance(t, "Cash"); got != "1000" {
		t.Errorf("rejected expense changed Cash to %s", got)
	}
}

func TestAccountRoutes(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(t, http.MethodPost, "/accounts", `{"name": "Card", "type": "card"}`)
	if rr.Code != http.StatusConflict {
		t.Fatalf("duplicate status=%d", rr.Code)
	}

	rr = ts.do(t, http.MethodPost, "/accounts",
		`{"name": "Vacation", "type": "savings", "parentAccount": "Savings", "initialBalance": 9500}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("over-cap status=%d body=%s", rr.Code, rr.Body.String())
	}
	body := decode[map[string]any](t, rr)
	if body["error"] != "CapExceeded" || body["limit"] != float64(9000) || body["account"] != "Vacation" {
		t.Errorf("unexpected cap body: %v", body)
	}

	rr = ts.do(t, http.MethodPost, "/accounts",
		`{"name": "Vacation", "type": "savings", "parentAccount": "Savings", "initialBalance": 2000}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = ts.do(t, http.MethodGet, "/accounts/Savings", "")
	detail := decode[accountDetail](t, rr)
	if len(detail.Subaccounts) != 1 || detail.Subaccounts[0].Name != "Vacation" {
		t.Errorf("subaccounts = %+v", detail.Subaccounts)
	}

	rr = ts.do(t, http.MethodPut, "/accounts/Savings/balance", `{"balance": 1000}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("parent below floor status=%d", rr.Code)
	}
	rr = ts.do(t, http.MethodPut, "/accounts/Savings/balance", `{}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("missing balance status=%d", rr.Code)
	}
	rr = ts.do(t, http.MethodPut, "/accounts/Nowhere/balance", `{"balance": 5}`)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unknown account status=%d", rr.Code)
	}

	rr = ts.do(t, http.MethodDelete, "/accounts/Card", "")
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("delete top-level status=%d", rr.Code)
	}
	rr = ts.do(t, http.MethodDelete, "/accounts/Vacation", "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete sub-account status=%d", rr.Code)
	}

	rr = ts.do(t, http.MethodPost, "/accounts/zero", "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("zero status=%d", rr.Code)
	}
	rr = ts.do(t, http.MethodGet, "/accounts", "")
	for _, a := range decode[[]services.AccountBalance](t, rr) {
		if !a.Balance.IsZero() || !a.CurrentBalance.IsZero() {
			t.Errorf("%s not zeroed: %s / %s", a.Name, a.Balance, a.CurrentBalance)
		}
	}
}

func TestTransferToSubaccountLandsOnParent(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodPost, "/accounts", `{"name": "Vacation", "type": "savings", "parentAccount": "Savings"}`)

	rr := ts.do(t, http.MethodPost, "/transactions",
		`{"amount": 250, "type": "transfer", "date": "2024-04-01", "account": "Card", "toAccount": "Vacation"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("transfer status=%d body=%s", rr.Code, rr.Body.String())
	}
	if tx := decode[core.Transaction](t, rr); tx.ToAccount != "Savings" || tx.Category != core.TransferCategory {
		t.Errorf("transfer not normalized: %+v", tx)
	}
	if got := ts.balance(t, "Savings"); got != "10250" {
		t.Errorf("Savings = %s, want 10250", got)
	}

	rr = ts.do(t, http.MethodPost, "/transactions/clear", "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("clear status=%d", rr.Code)
	}
	if got := ts.balance(t, "Card"); got != "5000" {
		t.Errorf("Card after clear = %s, want 5000", got)
	}
}

func TestBodiesUseCamelCaseAccountFields(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(t, http.MethodPost, "/accounts",
		`{"name": "Holiday", "type": "savings", "parentAccount": "Savings", "initialBalance": 300}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}
	raw := decode[map[string]any](t, rr)
	if raw["parentAccount"] != "Savings" || raw["openingBalance"] != float64(300) {
		t.Errorf("account body = %v", raw)
	}

	rr = ts.do(t, http.MethodPost, "/transactions",
		`{"amount": 40, "type": "transfer", "date": "2024-04-02", "account": "Cash", "toAccount": "Savings"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("transfer status=%d body=%s", rr.Code, rr.Body.String())
	}
	raw = decode[map[string]any](t, rr)
	if raw["toAccount"] != "Savings" {
		t.Errorf("transaction body = %v", raw)
	}

	rr = ts.do(t, http.MethodPost, "/transactions",
		`{"amount": 40, "type": "transfer", "date": "2024-04-02", "account": "Cash", "to_account": "Savings"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("snake_case field status=%d, want 400", rr.Code)
	}
}

func TestMethodMismatchIs405(t *testing.T) {
	ts := newTestServer(t)
	rr := ts.do(t, http.MethodPatch, "/transactions/abc", `{}`)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("PATCH status=%d, want 405", rr.Code)
	}
	if allow := rr.Header().Get("Allow"); !strings.Contains(allow, http.MethodPut) || !strings.Contains(allow, http.MethodDelete) {
		t.Errorf("Allow = %q", allow)
	}

	rr = ts.do(t, http.MethodGet, "/nowhere", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unknown path status=%d", rr.Code)
	}
}

func TestBudgetRoutes(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(t, http.MethodPost, "/budgets",
		`{"category": "food", "amount": 200, "period": "monthly", "start_date": "2024-03-01"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create budget status=%d body=%s", rr.Code, rr.Body.String())
	}
	b := decode[core.Budget](t, rr)
	if b.EndDate != "2024-03-31" {
		t.Errorf("EndDate = %s", b.EndDate)
	}

	ts.do(t, http.MethodPost, "/transactions",
		`{"amount": 50, "type": "expense", "date": "2024-03-10", "category": "food", "account": "Card"}`)

	rr = ts.do(t, http.MethodGet, "/budgets/progress?start_date=2024-03-01&end_date=2024-03-31", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("progress status=%d body=%s", rr.Code, rr.Body.String())
	}
	progress := decode[[]core.BudgetProgress](t, rr)
	if len(progress) != 1 || progress[0].SpentAmount.String() != "50" || progress[0].PercentUsed.String() != "25" {
		t.Errorf("progress = %+v", progress)
	}

	rr = ts.do(t, http.MethodGet, "/budgets/progress?start_date=2024-13-01", "")
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("bad date status=%d", rr.Code)
	}

	rr = ts.do(t, http.MethodDelete, "/budgets/"+b.ID, "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete budget status=%d", rr.Code)
	}
	rr = ts.do(t, http.MethodDelete, "/budgets/"+b.ID, "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("delete missing budget status=%d", rr.Code)
	}
}

func TestReportRoutes(t *testing.T) {
	ts := newTestServer(t)
	for _, body := range []string{
		`{"amount": 1000, "type": "income", "date": "2024-01-15", "category": "salary", "account": "Card"}`,
		`{"amount": 300, "type": "expense", "date": "2024-01-20", "category": "rent", "account": "Card"}`,
		`{"amount": 100, "type": "expense", "date": "2024-02-02", "category": "food", "account": "Cash"}`,
	} {
		if rr := ts.do(t, http.MethodPost, "/transactions", body); rr.Code != http.StatusCreated {
			t.Fatalf("seed status=%d body=%s", rr.Code, rr.Body.String())
		}
	}

	rr := ts.do(t, http.MethodGet, "/reports/summary?year=2024", "")
	summary := decode[map[string]any](t, rr)
	if summary["income"] != float64(1000) || summary["expense"] != float64(400) {
		t.Errorf("summary = %v", summary)
	}

	rr = ts.do(t, http.MethodGet, "/reports/categories?type=expense&from=2024-01-01&to=2024-12-31", "")
	if cats := decode[[]map[string]any](t, rr); len(cats) != 2 || cats[0]["category"] != "rent" {
		t.Errorf("categories = %v", cats)
	}

	rr = ts.do(t, http.MethodGet, "/reports/categories?account=Cash", "")
	if cats := decode[[]map[string]any](t, rr); len(cats) != 1 || cats[0]["category"] != "food" {
		t.Errorf("account categories = %v", cats)
	}

	rr = ts.do(t, http.MethodGet, "/reports/trend?from=2024-01-01&to=2024-03-31", "")
	if months := decode[[]map[string]any](t, rr); len(months) != 3 || months[2]["income"] != float64(0) {
		t.Errorf("trend = %v", months)
	}

	rr = ts.do(t, http.MethodGet, "/reports/categories?type=bogus", "")
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("bogus type status=%d", rr.Code)
	}
}

func TestMalformedRequests(t *testing.T) {
	ts := newTestServer(t)
	tests := []struct {
		name, method, path, body string
		want                     int
	}{
		{"broken json", http.MethodPost, "/transactions", `{"amount": `, http.StatusBadRequest},
		{"empty body", http.MethodPost, "/transactions", ``, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/accounts", `{"name": "X", "type": "cash", "colour": "red"}`, http.StatusBadRequest},
		{"two values", http.MethodPost, "/budgets", `{} {}`, http.StatusBadRequest},
		{"bad type", http.MethodPost, "/transactions", `{"amount": 1, "type": "gift", "date": "2024-01-01", "category": "x", "account": "Card"}`, http.StatusUnprocessableEntity},
		{"negative amount", http.MethodPost, "/transactions", `{"amount": -5, "type": "income", "date": "2024-01-01", "category": "x", "account": "Card"}`, http.StatusUnprocessableEntity},
		{"unknown route", http.MethodGet, "/nope", ``, http.StatusNotFound},
		{"bad filter date", http.MethodGet, "/transactions?from=yesterday", ``, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := ts.do(t, tt.method, tt.path, tt.body)
			if rr.Code != tt.want {
				t.Fatalf("status=%d want %d body=%s", rr.Code, tt.want, rr.Body.String())
			}
			if body := decode[ErrorBody](t, rr); body.Error == "" || body.Message == "" {
				t.Errorf("error body incomplete: %+v", body)
			}
		})
	}
}

func TestPersistenceFailureIs500(t *testing.T) {
	rr := httptest.NewRecorder()
	ErrorFromErr(errors.Join(core.ErrPersistenceFailure, errors.New("disk full"))).Write(rr)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", rr.Code)
	}
	body := decode[ErrorBody](t, rr)
	if body.Error != core.KindPersistenceFailure || strings.Contains(body.Message, "disk full") {
		t.Errorf("body = %+v", body)
	}
}

func TestMutationsAreRateLimited(t *testing.T) {
	ctx := context.Background()
	tracker, err := services.NewTracker(ctx, memory.New(memory.State{}))
	if err != nil {
		t.Fatal(err)
	}
	srv := NewServer(":0", tracker, services.NewReports(tracker, services.NewReportCaches(4, time.Minute)), WithRateLimit(1))
	defer srv.Shutdown(ctx)

	post := func() int {
		rr := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/accounts/zero", nil))
		return rr.Code
	}
	if code := post(); code != http.StatusNoContent {
		t.Fatalf("first POST status=%d", code)
	}
	if code := post(); code != http.StatusTooManyRequests {
		t.Fatalf("second POST status=%d", code)
	}

	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/accounts", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("reads must stay unlimited, got %d", rr.Code)
	}
}
