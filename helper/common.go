package helper

import (
	"regexp"
	"strings"
)

var IdentifierRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

var readOnlyRegex = regexp.MustCompile(`(?is)^\s*(select|with)\b`)

func IsValidIdentifier(s string) bool {
	return IdentifierRegex.MatchString(s)
}

// IsReadOnlyQuery accepts a single SELECT or WITH statement. A trailing
// semicolon is allowed, anything after it is not.
func IsReadOnlyQuery(sql string) bool {
	sql = strings.TrimSpace(sql)
	sql = strings.TrimSuffix(sql, ";")
	if strings.Contains(sql, ";") {
		return false
	}
	return readOnlyRegex.MatchString(sql)
}
