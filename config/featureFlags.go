package config

import (
	"os"
	"strings"
)

// RetroactiveBillEdits re-enables the legacy behavior where editing a bill's
// amount re-prices its still-pending occurrences. Paid occurrences keep their
// snapshot amount in every mode.
//
// Set via env:
// - RETROACTIVE_BILL_EDITS=true
func RetroactiveBillEdits() bool {
	return boolFromEnv("RETROACTIVE_BILL_EDITS")
}

// SettlementReversalEnabled gates the internal reopen endpoint that reverses
// a settlement (reset occurrence to pending, tombstone the ledger row, undo
// the balance delta).
//
// Set via env:
// - ALLOW_SETTLEMENT_REVERSAL=true
func SettlementReversalEnabled() bool {
	return boolFromEnv("ALLOW_SETTLEMENT_REVERSAL")
}

func boolFromEnv(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}
