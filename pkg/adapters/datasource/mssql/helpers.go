package mssql

import (
	"strings"
)

// quoteName returns the QUOTENAME() form of an identifier: square brackets with
// ']' escaped as ']]'.
func quoteName(identifier string) string {
	return "[" + strings.ReplaceAll(identifier, "]", "]]") + "]"
}

// QuoteIdentifier quotes a possibly schema-qualified name: [schema].[table].
func QuoteIdentifier(parts ...string) string {
	quoted := make([]string, len(parts))
	for i, p := range parts {
		quoted[i] = quoteName(p)
	}
	return strings.Join(quoted, ".")
}

// isDecimalType reports types the driver returns as decimal text.
func isDecimalType(sqlType string) bool {
	switch strings.ToUpper(sqlType) {
	case "DECIMAL", "NUMERIC", "MONEY", "SMALLMONEY":
		return true
	}
	return false
}

// isStringType returns true if the type is a string type in SQL Server.
func isStringType(sqlType string) bool {
	switch strings.ToUpper(sqlType) {
	case "CHAR", "NCHAR", "VARCHAR", "NVARCHAR", "TEXT", "NTEXT", "XML":
		return true
	}
	return false
}

// isBinaryType returns true if the type holds raw bytes.
func isBinaryType(sqlType string) bool {
	switch strings.ToUpper(sqlType) {
	case "BINARY", "VARBINARY", "IMAGE", "TIMESTAMP", "ROWVERSION":
		return true
	}
	return false
}
