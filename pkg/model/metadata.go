// pkg/model/metadata.go
package model

import "strings"

// TableMetadata describes a published output table
type TableMetadata struct {
	Schema      string   // Schema name, empty for SQLite
	Table       string   // Table name
	Columns     []Column // Column definitions in insert order
	PrimaryKeys []string // Primary key column names
}

// Column represents one column of a published table
type Column struct {
	Name     string // Column name
	SQLType  string // Portable SQL type (TEXT, INTEGER, DOUBLE PRECISION)
	Nullable bool   // Whether column allows NULL values
}

// GetColumnByName returns a column by name (case-insensitive)
// Returns nil if column not found
func (tm *TableMetadata) GetColumnByName(name string) *Column {
	normalizedName := normalizeColumnName(name)
	for i, col := range tm.Columns {
		if normalizeColumnName(col.Name) == normalizedName {
			return &tm.Columns[i]
		}
	}
	return nil
}

// ColumnNames returns the column names in declaration order
func (tm *TableMetadata) ColumnNames() []string {
	names := make([]string, len(tm.Columns))
	for i, col := range tm.Columns {
		names[i] = col.Name
	}
	return names
}

func normalizeColumnName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
