package timeutil

import (
	"testing"
	"time"
)

func TestParseOffsetComposite(t *testing.T) {
	dur, label, err := ParseOffset("1d6h30m")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := 30*time.Hour + 30*time.Minute
	if dur != want {
		t.Fatalf("expected %v, got %v", want, dur)
	}
	if label != "1d6h30m" {
		t.Fatalf("unexpected label: %s", label)
	}
}

func TestParseOffsetNormalizes(t *testing.T) {
	_, label, err := ParseOffset("90 minutes")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if label != "1h30m" {
		t.Fatalf("expected 1h30m, got %s", label)
	}
}

func TestParseOffsetInvalid(t *testing.T) {
	for _, in := range []string{"", "noop", "0h", "3w"} {
		if _, _, err := ParseOffset(in); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}

func TestFormatOffsetZero(t *testing.T) {
	if got := FormatOffset(0); got != "0s" {
		t.Fatalf("expected 0s, got %s", got)
	}
}
