package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"fintrack/internal/core"
)

func TestParseFilter(t *testing.T) {
	tests := []struct {
		name    string
		query   url.Values
		want    core.Filter
		wantErr error
	}{
		{
			name:  "empty query matches everything",
			query: url.Values{},
			want:  core.Filter{},
		},
		{
			name:  "all values provided",
			query: url.Values{"type": {"Expense"}, "category": {" food "}, "account": {"Card"}, "from": {"2024-01-01"}, "to": {"2024-01-31"}},
			want:  core.Filter{Type: core.Expense, Category: "food", Account: "Card", From: "2024-01-01", To: "2024-01-31"},
		},
		{
			name:  "control characters are stripped",
			query: url.Values{"category": {"fo\x00od"}},
			want:  core.Filter{Category: "food"},
		},
		{
			name:    "unknown type",
			query:   url.Values{"type": {"gift"}},
			wantErr: core.ErrInvalid,
		},
		{
			name:    "bad date",
			query:   url.Values{"date": {"2024-02-30"}},
			wantErr: core.ErrInvalid,
		},
		{
			name:    "inverted range",
			query:   url.Values{"from": {"2024-02-01"}, "to": {"2024-01-01"}},
			wantErr: core.ErrInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFilter(tt.query)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseFilter() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseDateRange(t *testing.T) {
	rng, err := ParseDateRange(url.Values{"start_date": {"2024-03-01"}}, "start_date", "end_date")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rng.From != "2024-03-01" || rng.To != "" {
		t.Errorf("range = %+v", rng)
	}

	if _, err := ParseDateRange(url.Values{"end_date": {"March"}}, "start_date", "end_date"); !errors.Is(err, core.ErrInvalid) {
		t.Errorf("err = %v, want ErrInvalid", err)
	}
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		malformed bool
	}{
		{"valid", `{"name": "Wallet", "type": "cash"}`, false},
		{"money as string", `{"name": "Wallet", "type": "cash", "initialBalance": "12.50"}`, false},
		{"empty", ``, true},
		{"truncated", `{"name": `, true},
		{"unknown field", `{"nome": "Wallet"}`, true},
		{"trailing value", `{"name": "a"} {"name": "b"}`, true},
		{"too large", `{"name": "` + strings.Repeat("a", maxBodyBytes) + `"}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/accounts", strings.NewReader(tt.body))
			var in core.AccountInput
			err := decodeJSON(httptest.NewRecorder(), r, &in)
			if got := errors.Is(err, errMalformedRequest); got != tt.malformed {
				t.Errorf("malformed = %v (err %v), want %v", got, err, tt.malformed)
			}
		})
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"  groceries  ", "groceries"},
		{"line1\nline2", "line1\nline2"},
		{"bell\x07", "bell"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := sanitizeInput(tt.input); got != tt.want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
