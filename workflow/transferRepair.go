package workflow

import (
	"fmt"

	"github.com/fynanpro/finance_backend/config"
	"github.com/fynanpro/finance_backend/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// TransferPair holds the two legs of one transfer: Out debits the source
// account (negative amount), In credits the destination (positive amount).
type TransferPair struct {
	Out *models.Transaction
	In  *models.Transaction
}

// PairTransferLegs groups transfer legs into pairs by (description, date) and
// identifies the outbound leg: the one whose destination account points at
// the other leg's bank account. Legs that cannot be paired unambiguously are
// returned separately. Pure; DB-free.
func PairTransferLegs(legs []*models.Transaction) ([]TransferPair, []*models.Transaction) {

	groups := make(map[string][]*models.Transaction)
	var keys []string
	for _, leg := range legs {
		key := leg.Description + "|" + leg.TransactionDate.Format("2006-01-02")
		if _, seen := groups[key]; !seen {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], leg)
	}

	var pairs []TransferPair
	var unpaired []*models.Transaction
	for _, key := range keys {
		group := groups[key]
		if len(group) != 2 {
			unpaired = append(unpaired, group...)
			continue
		}
		a, b := group[0], group[1]
		switch {
		case a.DestinationAccountId != nil && *a.DestinationAccountId == b.BankAccountId:
			pairs = append(pairs, TransferPair{Out: a, In: b})
		case b.DestinationAccountId != nil && *b.DestinationAccountId == a.BankAccountId:
			pairs = append(pairs, TransferPair{Out: b, In: a})
		default:
			unpaired = append(unpaired, a, b)
		}
	}
	return pairs, unpaired
}

type TransferRepairReport struct {
	PairsExamined int `json:"pairs_examined"`
	LegsRepaired  int `json:"legs_repaired"`
	Unpaired      int `json:"unpaired"`
}

// RepairTransferPairs fixes transfer legs whose amount carries the wrong sign:
// the outbound leg must be negative and the inbound leg positive. Each sign
// flip also re-applies the difference to the account balance, so balances end
// up as if the leg had been written correctly in the first place.
func RepairTransferPairs(db *gorm.DB, logger *logrus.Logger, tenantId string, dryRun bool) (*TransferRepairReport, error) {

	report := &TransferRepairReport{}

	legs, err := models.TransferLegsByDescriptionAndDate(db, tenantId)
	if err != nil {
		config.LogError(logger, "transferRepair.go", "RepairTransferPairs", "fetch legs", tenantId, err)
		return nil, err
	}

	pairs, unpaired := PairTransferLegs(legs)
	report.PairsExamined = len(pairs)
	report.Unpaired = len(unpaired)
	for _, leg := range unpaired {
		config.LogError(logger, "transferRepair.go", "RepairTransferPairs", "unpaired transfer leg",
			map[string]interface{}{"id": leg.ID, "description": leg.Description},
			fmt.Errorf("transfer leg %d has no matching counterpart", leg.ID))
	}

	for _, pair := range pairs {
		outWant := pair.Out.Amount.Abs().Neg()
		inWant := pair.In.Amount.Abs()

		fixes := []struct {
			leg  *models.Transaction
			want decimal.Decimal
		}{
			{pair.Out, outWant},
			{pair.In, inWant},
		}
		for _, fix := range fixes {
			if fix.leg.Amount.Equal(fix.want) {
				continue
			}
			if dryRun {
				report.LegsRepaired++
				continue
			}
			leg, want := fix.leg, fix.want
			delta := want.Sub(leg.Amount)
			err := db.Transaction(func(tx *gorm.DB) error {
				if err := tx.Model(&models.Transaction{}).
					Where("id = ? AND tenant_id = ?", leg.ID, tenantId).
					Update("amount", want).Error; err != nil {
					return err
				}
				return models.ApplyBalanceDelta(tx, tenantId, leg.BankAccountId, delta)
			})
			if err != nil {
				config.LogError(logger, "transferRepair.go", "RepairTransferPairs", "repair leg", leg.ID, err)
				return nil, err
			}
			report.LegsRepaired++
		}
	}

	return report, nil
}
