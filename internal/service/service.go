// Package service holds the application services: tax extraction, attachment
// migration, payment allocation, overpayment detection, and spreadsheet
// exports. Services depend on ports only and carry no transport concerns.
package service

import "strings"

// escapeLiteral escapes a string for a query filter literal by doubling
// single quotes.
func escapeLiteral(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
