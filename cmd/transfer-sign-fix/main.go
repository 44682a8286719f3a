// transfer-sign-fix repairs transfer legs whose amounts carry the wrong sign.
// For each transfer pair (matched by description and transaction date) the
// outbound leg is forced negative and the inbound leg positive, and account
// balances get the compensating delta.
//
// Usage:
//   DB_USER=... DB_PASSWORD=... go run ./cmd/transfer-sign-fix --tenant-id=<tenant> [--dry-run]
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/fynanpro/finance_backend/config"
	"github.com/fynanpro/finance_backend/workflow"
	"github.com/sirupsen/logrus"
)

func main() {
	tenantId := flag.String("tenant-id", "", "Required: tenant id")
	dryRun := flag.Bool("dry-run", false, "Scan only (no writes)")
	flag.Parse()

	if strings.TrimSpace(*tenantId) == "" {
		fmt.Fprintln(os.Stderr, "--tenant-id is required")
		os.Exit(2)
	}

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}

	logger := logrus.New()

	report, err := workflow.RepairTransferPairs(db, logger, strings.TrimSpace(*tenantId), *dryRun)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("pairs_examined=%d legs_repaired=%d unpaired=%d dry_run=%t\n",
		report.PairsExamined, report.LegsRepaired, report.Unpaired, *dryRun)
}
