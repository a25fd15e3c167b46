package config

import (
	"fmt"
	"strings"
)

// SanitizeIdentifier validates a table or column name taken from configuration.
// It accepts plain SQL identifiers and a single schema qualifier ("public.diabetes").
// Quoting is left to the query builder; this only rejects values that could never
// name a relation.
func SanitizeIdentifier(raw string) (string, error) {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return "", fmt.Errorf("identifier cannot be empty")
	}

	parts := strings.Split(cleaned, ".")
	if len(parts) > 2 {
		return "", fmt.Errorf("identifier %q has too many qualifiers", cleaned)
	}

	for _, part := range parts {
		if part == "" {
			return "", fmt.Errorf("identifier %q has an empty component", cleaned)
		}
		for i, r := range part {
			switch {
			case r == '_':
			case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			case r >= '0' && r <= '9' && i > 0:
			default:
				return "", fmt.Errorf("identifier %q contains invalid character %q", cleaned, r)
			}
		}
	}

	return cleaned, nil
}

// parseColumns parses a comma-separated column list, dropping invalid entries.
func parseColumns(columnsStr string) []string {
	if strings.TrimSpace(columnsStr) == "" {
		return nil
	}

	parts := strings.Split(columnsStr, ",")
	columns := make([]string, 0, len(parts))
	for _, part := range parts {
		column, err := SanitizeIdentifier(part)
		if err != nil || strings.Contains(column, ".") {
			continue
		}
		columns = append(columns, column)
	}
	return columns
}
