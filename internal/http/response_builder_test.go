package http

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

func TestJSONResponseBuilder_Basic(t *testing.T) {
	w := httptest.NewRecorder()

	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/budgets/1").
		Body(map[string]string{"id": "1"}).
		Write(w)

	if w.Code != http.StatusCreated {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusCreated)
	}
	if w.Header().Get("Location") != "/budgets/1" {
		t.Errorf("Location = %q", w.Header().Get("Location"))
	}
	if w.Header().Get("Content-Type") != "application/json" {
		t.Errorf("Content-Type = %q", w.Header().Get("Content-Type"))
	}
	if w.Body.String() != "{\"id\":\"1\"}\n" {
		t.Errorf("Body = %q", w.Body.String())
	}
}

func TestJSONResponseBuilder_NoContent(t *testing.T) {
	w := httptest.NewRecorder()
	NewJSONResponse().Status(http.StatusNoContent).Body("ignored").Write(w)

	if w.Code != http.StatusNoContent {
		t.Errorf("Status code = %d", w.Code)
	}
	if w.Body.Len() != 0 {
		t.Errorf("204 must not carry a body, got %q", w.Body.String())
	}
}

func TestJSONResponseBuilder_EncodingFailure(t *testing.T) {
	w := httptest.NewRecorder()
	NewJSONResponse().Body(map[string]any{"f": func() {}}).Write(w)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Status code = %d, want 500", w.Code)
	}
}

func TestErrorHelpers(t *testing.T) {
	tests := []struct {
		name     string
		builder  *JSONResponseBuilder
		wantCode int
		wantKind string
	}{
		{"BadRequest", BadRequestError("bad"), http.StatusBadRequest, "BadRequest"},
		{"NotFound", NotFoundError("missing"), http.StatusNotFound, "NotFound"},
		{"Internal", InternalServerError("boom"), http.StatusInternalServerError, "Internal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.builder.Write(w)
			if w.Code != tt.wantCode {
				t.Errorf("Status code = %d, want %d", w.Code, tt.wantCode)
			}
			if !strings.Contains(w.Body.String(), `"error":"`+tt.wantKind+`"`) {
				t.Errorf("Body missing kind %s: %s", tt.wantKind, w.Body.String())
			}
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := map[core.Kind]int{
		core.KindNotFound:           http.StatusNotFound,
		core.KindAccountNotFound:    http.StatusNotFound,
		core.KindDuplicateName:      http.StatusConflict,
		core.KindInvalidParent:      http.StatusUnprocessableEntity,
		core.KindCapExceeded:        http.StatusUnprocessableEntity,
		core.KindInvalidAmount:      http.StatusUnprocessableEntity,
		core.KindInvalidOperation:   http.StatusUnprocessableEntity,
		core.KindInsufficientFunds:  http.StatusUnprocessableEntity,
		core.KindInvalid:            http.StatusUnprocessableEntity,
		core.KindPersistenceFailure: http.StatusInternalServerError,
		core.KindInternal:           http.StatusInternalServerError,
	}
	for kind, want := range tests {
		if got := StatusFor(kind); got != want {
			t.Errorf("StatusFor(%s) = %d, want %d", kind, got, want)
		}
	}
}

func TestErrorFromErr(t *testing.T) {
	capErr := fmt.Errorf("add transaction: %w", &core.CapExceededError{
		Account:   "Vacation",
		Parent:    "Savings",
		Attempted: decimal.NewFromInt(9500),
		Limit:     decimal.NewFromInt(9000),
	})
	w := httptest.NewRecorder()
	ErrorFromErr(capErr).Write(w)

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Status code = %d", w.Code)
	}
	body := w.Body.String()
	for _, part := range []string{`"error":"CapExceeded"`, `"limit":9000`, `"account":"Vacation"`} {
		if !strings.Contains(body, part) {
			t.Errorf("Body missing %s: %s", part, body)
		}
	}

	w = httptest.NewRecorder()
	ErrorFromErr(&core.AccountNotFoundError{Name: "Crad", Suggestion: "Card"}).Write(w)
	if w.Code != http.StatusNotFound || !strings.Contains(w.Body.String(), `did you mean \"Card\"`) {
		t.Errorf("account not found: %d %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	ErrorFromErr(fmt.Errorf("secret detail")).Write(w)
	if w.Code != http.StatusInternalServerError || strings.Contains(w.Body.String(), "secret") {
		t.Errorf("internal errors must not leak: %d %s", w.Code, w.Body.String())
	}
}
