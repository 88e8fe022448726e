package money

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestToMinorUnits(t *testing.T) {
	t.Parallel()

	cases := []struct {
		amount string
		want   int64
	}{
		{"10.00", 1000},
		{"0.01", 1},
		{"199.99", 19999},
		{"0", 0},
	}
	for _, tc := range cases {
		amount := decimal.RequireFromString(tc.amount)
		if got := ToMinorUnits(amount); got != tc.want {
			t.Fatalf("ToMinorUnits(%s) = %d, want %d", tc.amount, got, tc.want)
		}
	}
}

func TestFromMinorUnitsRoundTrip(t *testing.T) {
	t.Parallel()

	for _, minor := range []int64{0, 1, 99, 1000, 123456} {
		back := ToMinorUnits(FromMinorUnits(minor))
		if back != minor {
			t.Fatalf("round trip of %d gave %d", minor, back)
		}
	}
}

func TestRound2(t *testing.T) {
	t.Parallel()

	got := Round2(decimal.RequireFromString("2.505"))
	if !got.Equal(decimal.RequireFromString("2.51")) {
		t.Fatalf("expected 2.51, got %s", got)
	}
}

func TestPercent(t *testing.T) {
	t.Parallel()

	got := Percent(decimal.RequireFromString("25.00"), decimal.RequireFromString("10"))
	if !got.Equal(decimal.RequireFromString("2.5")) {
		t.Fatalf("expected 2.5, got %s", got)
	}
}
