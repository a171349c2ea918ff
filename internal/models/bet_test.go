package models

import (
	"errors"
	"testing"
)

func TestBetOptionsValidate(t *testing.T) {
	cases := []struct {
		name string
		opts BetOptions
		want error
	}{
		{"valid", BetOptions{{1, "Heads"}, {2, "Tails"}}, nil},
		{"single option", BetOptions{{1, "Heads"}}, ErrTooFewOptions},
		{"duplicate id", BetOptions{{1, "Heads"}, {1, "Tails"}}, ErrOptionIDDuplicated},
		{"zero id", BetOptions{{0, "Heads"}, {2, "Tails"}}, ErrOptionIDInvalid},
		{"blank text", BetOptions{{1, "Heads"}, {2, "   "}}, ErrOptionTextEmpty},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.opts.Validate()
			if !errors.Is(err, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, err)
			}
		})
	}

	many := make([]string, MaxBetOptions+1)
	for i := range many {
		many[i] = "option"
	}
	if err := NewBetOptions(many).Validate(); !errors.Is(err, ErrTooManyOptions) {
		t.Errorf("expected ErrTooManyOptions, got %v", err)
	}
}

func TestNewBetOptionsNumbersInOrder(t *testing.T) {
	opts := NewBetOptions([]string{" Heads ", "Tails", "Edge"})

	for i, opt := range opts {
		if opt.ID != i+1 {
			t.Errorf("option %d: expected id %d, got %d", i, i+1, opt.ID)
		}
	}
	if opts[0].Text != "Heads" {
		t.Errorf("expected trimmed text, got %q", opts[0].Text)
	}
	if !opts.Has(3) || opts.Has(4) {
		t.Error("Has should match assigned ids only")
	}
}

func TestBetOptionsRoundTrip(t *testing.T) {
	opts := BetOptions{{1, "Heads"}, {2, "Tails"}}

	v, err := opts.Value()
	if err != nil {
		t.Fatalf("Value failed: %v", err)
	}

	var fromString BetOptions
	if err := fromString.Scan(v); err != nil {
		t.Fatalf("Scan(string) failed: %v", err)
	}
	var fromBytes BetOptions
	if err := fromBytes.Scan([]byte(v.(string))); err != nil {
		t.Fatalf("Scan([]byte) failed: %v", err)
	}

	for _, got := range []BetOptions{fromString, fromBytes} {
		if len(got) != 2 || got[1].Text != "Tails" {
			t.Errorf("unexpected options after scan: %+v", got)
		}
	}

	if _, err := (BetOptions{{1, "only"}}).Value(); err == nil {
		t.Error("expected invalid options to be rejected on write")
	}
}
