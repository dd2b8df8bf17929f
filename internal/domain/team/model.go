package team

import (
	"strings"
)

// ID is a canonical team abbreviation such as "NYK". IDs are unique
// within a sport and compare by plain string equality.
type ID string

func (id ID) String() string {
	return string(id)
}

// Team is one franchise in the canonical table.
type Team struct {
	ID       ID
	Sport    string
	Name     string
	Nickname string
	Aliases  []string
}

// normalizeKey folds case and collapses whitespace in a raw abbreviation or
// provider-specific label.
func normalizeKey(v string) string {
	return strings.ToUpper(strings.Join(strings.Fields(v), " "))
}

// normalizeName lowercases, drops periods and collapses inner whitespace so
// "St. Louis  Blues" and "st louis blues" match.
func normalizeName(v string) string {
	v = strings.ToLower(strings.ReplaceAll(v, ".", ""))
	return strings.Join(strings.Fields(v), " ")
}

func normalizeSport(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}
