package telemetry

import (
	"database/sql"
	"strings"
)

// nounFilter builds a "noun IN (...)" condition. No nouns yields an always
// false condition.
func nounFilter(nouns []string) (string, []any) {
	if len(nouns) == 0 {
		return "noun IN (NULL)", nil
	}
	args := make([]any, len(nouns))
	for i, n := range nouns {
		args[i] = strings.ToLower(strings.TrimSpace(n))
	}
	return "noun IN (" + strings.TrimSuffix(strings.Repeat("?, ", len(nouns)), ", ") + ")", args
}

// queryRows runs query and scans every row with scan.
func queryRows[T any](db *sql.DB, query string, args []any, scan func(*sql.Rows) (T, error)) ([]T, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}
