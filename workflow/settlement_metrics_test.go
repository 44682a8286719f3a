package workflow

import (
	"testing"
	"time"

	"github.com/fynanpro/finance_backend/models"
	"github.com/shopspring/decimal"
)

func TestSettlementMetrics(t *testing.T) {
	due := date(2025, time.December, 20)

	cases := []struct {
		name          string
		paid          time.Time
		wantEarly     bool
		wantLate      bool
		wantDays      *int
	}{
		{"paid two days early", date(2025, time.December, 18), true, false, intPtr(2)},
		{"paid on the due date", date(2025, time.December, 20), false, false, nil},
		{"paid five days late", date(2025, time.December, 25), false, true, intPtr(5)},
		{"paid one day early", date(2025, time.December, 19), true, false, intPtr(1)},
	}
	for _, tc := range cases {
		isPaidEarly, isPaidLate, daysEarlyLate := SettlementMetrics(due, tc.paid)
		if isPaidEarly == nil || *isPaidEarly != tc.wantEarly {
			t.Fatalf("%s: is_paid_early expected %t, got %v", tc.name, tc.wantEarly, isPaidEarly)
		}
		if isPaidLate == nil || *isPaidLate != tc.wantLate {
			t.Fatalf("%s: is_paid_late expected %t, got %v", tc.name, tc.wantLate, isPaidLate)
		}
		if tc.wantDays == nil {
			if daysEarlyLate != nil {
				t.Fatalf("%s: days_early_late expected nil, got %d", tc.name, *daysEarlyLate)
			}
		} else {
			if daysEarlyLate == nil || *daysEarlyLate != *tc.wantDays {
				t.Fatalf("%s: days_early_late expected %d, got %v", tc.name, *tc.wantDays, daysEarlyLate)
			}
		}
	}
}

func TestSettlementMetrics_IgnoresTimeOfDay(t *testing.T) {
	due := time.Date(2025, time.December, 20, 0, 0, 0, 0, time.UTC)
	paid := time.Date(2025, time.December, 20, 23, 59, 0, 0, time.UTC)

	isPaidEarly, isPaidLate, daysEarlyLate := SettlementMetrics(due, paid)
	if *isPaidEarly || *isPaidLate || daysEarlyLate != nil {
		t.Fatalf("same-day settlement must be neither early nor late, got early=%t late=%t days=%v",
			*isPaidEarly, *isPaidLate, daysEarlyLate)
	}
}

func TestSignedAmount(t *testing.T) {
	amount := decimal.NewFromFloat(150.75)

	if got := SignedAmount(models.BillTypeExpense, amount); !got.Equal(amount.Neg()) {
		t.Fatalf("expense expected %s, got %s", amount.Neg(), got)
	}
	if got := SignedAmount(models.BillTypeIncome, amount); !got.Equal(amount) {
		t.Fatalf("income expected %s, got %s", amount, got)
	}
	// the stored magnitude may already be negative; the sign convention still holds
	if got := SignedAmount(models.BillTypeExpense, amount.Neg()); !got.Equal(amount.Neg()) {
		t.Fatalf("expense from negative input expected %s, got %s", amount.Neg(), got)
	}
	if got := SignedAmount(models.BillTypeIncome, amount.Neg()); !got.Equal(amount) {
		t.Fatalf("income from negative input expected %s, got %s", amount, got)
	}
}

func intPtr(i int) *int { return &i }
