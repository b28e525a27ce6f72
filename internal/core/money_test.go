package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"1.0", "1", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{"0.01", "0.01", true},
		{".5", "0.5", true},
		{"1.005", "1.01", true}, // half-up rounding
		{" 2.50 ", "2.5", true},
		{"0.004", "", false},
		{"-1", "", false},
		{"+1", "", false},
		{"0", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || !got.Equal(decimal.RequireFromString(tc.out)) {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestSum(t *testing.T) {
	expenses := []Expense{
		{Amount: decimal.RequireFromString("5.50")},
		{Amount: decimal.RequireFromString("45.00")},
		{Amount: decimal.RequireFromString("0.10")},
	}
	if got := Sum(expenses); !got.Equal(decimal.RequireFromString("50.60")) {
		t.Fatalf("Sum = %s", got)
	}
	if !Sum(nil).IsZero() {
		t.Fatalf("empty sum must be zero")
	}
}
