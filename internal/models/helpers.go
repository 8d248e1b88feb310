package models

import (
	"fmt"
	"regexp"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// vinPattern matches a 17-character VIN. I, O and Q are excluded from the
// VIN alphabet to avoid confusion with 1 and 0.
var vinPattern = regexp.MustCompile(`^[A-HJ-NPR-Z0-9]{17}$`)

// ValidVIN reports whether s is a well-formed 17-character VIN.
func ValidVIN(s string) bool {
	return vinPattern.MatchString(s)
}

// RecordIDString safely extracts the string ID from a SurrealDB RecordID.
// Returns an error if the ID is not a string type.
func RecordIDString(id surrealmodels.RecordID) (string, error) {
	s, ok := id.ID.(string)
	if !ok {
		return "", fmt.Errorf("unexpected ID type: %T (expected string)", id.ID)
	}
	return s, nil
}
