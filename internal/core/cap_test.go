package core

import (
	"errors"
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestCheckCap(t *testing.T) {
	tests := []struct {
		name      string
		parent    string
		siblings  string
		candidate string
		limit     string
		ok        bool
	}{
		{"well under", "10000", "0", "100", "", true},
		{"tie is allowed", "10000", "0", "9000", "", true},
		{"one cent over", "10000", "0", "9000.01", "9000", false},
		{"siblings reduce room", "10000", "4000", "5001", "5000", false},
		{"siblings already at cap", "10000", "9000", "0", "", true},
		{"zero parent", "0", "0", "0.01", "0", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckCap(dec(tt.parent), dec(tt.siblings), dec(tt.candidate))
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			var capErr *CapExceededError
			assert.True(t, errors.As(err, &capErr))
			assertAmount(t, tt.limit, capErr.Limit)
			assert.True(t, errors.Is(err, ErrCapExceeded))
		})
	}
}

func TestMinParentBalance(t *testing.T) {
	assertAmount(t, "10000", MinParentBalance(dec("9000")))
	assertAmount(t, "1111.12", MinParentBalance(dec("1000.00")))
}
