package workflow

import (
	"testing"
	"time"

	"github.com/fynanpro/finance_backend/models"
	"github.com/shopspring/decimal"
)

func transferLeg(id int, description string, day time.Time, bankAccountId int, destinationAccountId *int, amount string) *models.Transaction {
	amt, _ := decimal.NewFromString(amount)
	return &models.Transaction{
		ID:                   id,
		Description:          description,
		Type:                 models.TransactionTypeTransfer,
		Amount:               amt,
		TransactionDate:      day,
		BankAccountId:        bankAccountId,
		DestinationAccountId: destinationAccountId,
	}
}

func TestPairTransferLegs(t *testing.T) {
	day := date(2025, time.March, 1)
	dest := 2

	out := transferLeg(1, "savings top-up", day, 1, &dest, "-500")
	in := transferLeg(2, "savings top-up", day, 2, nil, "500")

	pairs, unpaired := PairTransferLegs([]*models.Transaction{in, out})
	if len(unpaired) != 0 {
		t.Fatalf("expected no unpaired legs, got %d", len(unpaired))
	}
	if len(pairs) != 1 {
		t.Fatalf("expected 1 pair, got %d", len(pairs))
	}
	if pairs[0].Out.ID != out.ID || pairs[0].In.ID != in.ID {
		t.Fatalf("outbound leg misidentified: out=%d in=%d", pairs[0].Out.ID, pairs[0].In.ID)
	}
}

func TestPairTransferLegs_SeparatesByDescriptionAndDate(t *testing.T) {
	day1 := date(2025, time.March, 1)
	day2 := date(2025, time.March, 2)
	dest := 2

	legs := []*models.Transaction{
		transferLeg(1, "rent move", day1, 1, &dest, "-100"),
		transferLeg(2, "rent move", day1, 2, nil, "100"),
		transferLeg(3, "rent move", day2, 1, &dest, "-100"),
		transferLeg(4, "rent move", day2, 2, nil, "100"),
	}

	pairs, unpaired := PairTransferLegs(legs)
	if len(pairs) != 2 || len(unpaired) != 0 {
		t.Fatalf("expected 2 pairs and 0 unpaired, got %d pairs %d unpaired", len(pairs), len(unpaired))
	}
	if pairs[0].Out.ID != 1 || pairs[1].Out.ID != 3 {
		t.Fatalf("pair order not deterministic: out ids %d, %d", pairs[0].Out.ID, pairs[1].Out.ID)
	}
}

func TestPairTransferLegs_UnpairableGroups(t *testing.T) {
	day := date(2025, time.March, 1)
	dest := 2

	// a lone leg and a group of three cannot be paired
	legs := []*models.Transaction{
		transferLeg(1, "orphan", day, 1, &dest, "-50"),
		transferLeg(2, "triple", day, 1, &dest, "-75"),
		transferLeg(3, "triple", day, 2, nil, "75"),
		transferLeg(4, "triple", day, 3, nil, "75"),
	}

	pairs, unpaired := PairTransferLegs(legs)
	if len(pairs) != 0 {
		t.Fatalf("expected no pairs, got %d", len(pairs))
	}
	if len(unpaired) != 4 {
		t.Fatalf("expected 4 unpaired legs, got %d", len(unpaired))
	}
}

func TestPairTransferLegs_NoDestinationPointer(t *testing.T) {
	day := date(2025, time.March, 1)

	// neither leg names the other's account: ambiguous, stays unpaired
	legs := []*models.Transaction{
		transferLeg(1, "mystery", day, 1, nil, "-20"),
		transferLeg(2, "mystery", day, 2, nil, "20"),
	}

	pairs, unpaired := PairTransferLegs(legs)
	if len(pairs) != 0 || len(unpaired) != 2 {
		t.Fatalf("expected 0 pairs and 2 unpaired, got %d pairs %d unpaired", len(pairs), len(unpaired))
	}
}
