package logger

import (
	"testing"
	"time"
)

func TestRatioAllow(t *testing.T) {
	r := newRatio(2, 5)
	var passed int
	for i := 0; i < 10; i++ {
		if r.Allow() {
			passed++
		}
	}
	if passed != 4 {
		t.Fatalf("passed %d of 10, want 4", passed)
	}

	r.Set(0, 0)
	for i := 0; i < 3; i++ {
		if !r.Allow() {
			t.Fatal("disabled ratio must pass every event")
		}
	}

	r.Set(9, 3)
	for i := 0; i < 3; i++ {
		if !r.Allow() {
			t.Fatal("numerator is clamped to the window")
		}
	}
}

func TestParseRatio(t *testing.T) {
	cases := []struct {
		raw     string
		num, den int
		ok       bool
	}{
		{"1/50", 1, 50, true},
		{" 3 / 10 ", 3, 10, true},
		{"20", 1, 20, true},
		{"0", 0, 0, true},
		{"x/2", 0, 0, false},
		{"", 0, 0, false},
	}
	for _, tc := range cases {
		num, den, ok := parseRatio(tc.raw)
		if num != tc.num || den != tc.den || ok != tc.ok {
			t.Errorf("parseRatio(%q) = %d, %d, %v", tc.raw, num, den, ok)
		}
	}
}

func TestDurationHelpers(t *testing.T) {
	if got := RoundMS(-time.Second); got != 0 {
		t.Fatalf("negative duration rounded to %v", got)
	}
	if got := RoundMS(1499 * time.Microsecond); got != time.Millisecond {
		t.Fatalf("RoundMS = %v", got)
	}
	s, cut := SummarizeStrings([]string{"a", "b", "c"}, 2)
	if s != "a, b" || !cut {
		t.Fatalf("SummarizeStrings = %q, %v", s, cut)
	}
	if s, cut = SummarizeStrings([]string{"a"}, 0); s != "" || !cut {
		t.Fatalf("zero limit = %q, %v", s, cut)
	}
}
