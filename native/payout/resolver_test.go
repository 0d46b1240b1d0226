package payout

import (
	"errors"
	"testing"

	"tastefun/native/arith"
)

func completed() Settlement {
	return Settlement{Phase: PhaseCompleted, HasWinner: true, WinningVariant: 2, PenaltyPool: 1_000, WinnerCount: 3}
}

func TestWinningsAddsShareToStake(t *testing.T) {
	got, err := Winnings(completed(), Claim{Choice: 2, Staked: 500})
	if err != nil {
		t.Fatalf("winnings: %v", err)
	}
	if got != 833 {
		t.Fatalf("winnings = %d", got)
	}
}

func TestWinningsErrorOrder(t *testing.T) {
	cases := []struct {
		name string
		s    Settlement
		c    Claim
		want error
	}{
		{"open idea", Settlement{Phase: PhaseOpen}, Claim{Processed: true}, ErrInvalidState},
		{"cancelled idea", Settlement{Phase: PhaseCancelled}, Claim{}, ErrInvalidState},
		{"processed before winner check", completed(), Claim{Choice: 0, Processed: true}, ErrAlreadyWithdrawn},
		{"no winner", Settlement{Phase: PhaseCompleted}, Claim{}, ErrNoWinner},
		{"loser", completed(), Claim{Choice: 255, Staked: 10}, ErrNotWinner},
		{"zero winner count", Settlement{Phase: PhaseCompleted, HasWinner: true}, Claim{}, arith.ErrDivisionByZero},
	}
	for _, tc := range cases {
		if _, err := Winnings(tc.s, tc.c); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestRefund(t *testing.T) {
	cancelled := Settlement{Phase: PhaseCancelled}
	got, err := Refund(cancelled, Claim{Staked: 42})
	if err != nil || got != 42 {
		t.Fatalf("refund = %d, %v", got, err)
	}
	if _, err := Refund(cancelled, Claim{Staked: 42, Processed: true}); !errors.Is(err, ErrAlreadyWithdrawn) {
		t.Fatalf("expected already withdrawn, got %v", err)
	}
	if _, err := Refund(completed(), Claim{Staked: 42}); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected invalid state, got %v", err)
	}
}

func TestSponsorRefund(t *testing.T) {
	sponsor := [20]byte{7}
	sp := Sponsorship{Sponsor: sponsor, Sponsored: true, PrizePool: 5_000_000}
	cancelled := Settlement{Phase: PhaseCancelled}
	if got, err := SponsorRefund(cancelled, sp, sponsor); err != nil || got != 5_000_000 {
		t.Fatalf("sponsor refund = %d, %v", got, err)
	}
	if _, err := SponsorRefund(cancelled, sp, [20]byte{8}); !errors.Is(err, ErrNotSponsor) {
		t.Fatalf("expected not sponsor, got %v", err)
	}
	if _, err := SponsorRefund(completed(), sp, sponsor); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected invalid state, got %v", err)
	}
	sp.Refunded = true
	if _, err := SponsorRefund(cancelled, sp, sponsor); !errors.Is(err, ErrAlreadyWithdrawn) {
		t.Fatalf("expected already withdrawn, got %v", err)
	}
}

func TestReserved(t *testing.T) {
	got, err := Reserved(1_000, 3, 333)
	if err != nil || got != 1_999 {
		t.Fatalf("reserved = %d, %v", got, err)
	}
}
