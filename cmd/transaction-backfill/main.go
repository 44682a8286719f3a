// transaction-backfill repairs paid occurrences whose ledger link is broken:
// an existing matching transaction is re-linked, a truly missing one is
// recreated from the occurrence's paid snapshot with the balance delta
// re-applied once.
//
// Usage:
//   DB_USER=... DB_PASSWORD=... go run ./cmd/transaction-backfill --tenant-id=<tenant> [--dry-run]
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

	report, err := workflow.BackfillMissingTransactions(db, logger, strings.TrimSpace(*tenantId), *dryRun)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("examined=%d repaired=%d linked=%d skipped=%d dry_run=%t\n",
		report.Examined, report.Repaired, report.Linked, report.Skipped, *dryRun)
}
