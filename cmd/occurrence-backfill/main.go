// occurrence-backfill regenerates missing bill occurrences for a tenant by
// walking each active bill's expected schedule. Soft-deleted occurrences are
// never resurrected.
//
// Usage:
//   DB_USER=... DB_PASSWORD=... go run ./cmd/occurrence-backfill --tenant-id=<tenant> [--dry-run]
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

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

	report, err := workflow.RegenerateMissingOccurrences(db, logger, strings.TrimSpace(*tenantId), time.Now(), *dryRun)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("bills_examined=%d occurrences_created=%d occurrences_skipped=%d dry_run=%t\n",
		report.BillsExamined, report.OccurrencesCreated, report.OccurrencesSkipped, *dryRun)
}
