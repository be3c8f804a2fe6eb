package schema

import (
	"strings"
	"unicode"
)

// fixtureNames maps a normalized fixture base name to its entity table.
// Keys are lower case with '-' and '_' removed.
var fixtureNames = map[string]string{
	"transaction":      TransactionTable,
	"transactions":     TransactionTable,
	"course":           CourseTable,
	"courses":          CourseTable,
	"courseprogress":   CourseProgressTable,
	"courseprogresses": CourseProgressTable,
	"coursesprogress":  CourseProgressTable,
}

func normalize(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.NewReplacer("-", "", "_", "", " ", "").Replace(name)
}

// TableForFixture resolves a fixture base name (extension already stripped)
// to a table name. The second result reports whether the name is a known
// entity. Unknown names fall back to the base name with its first letter
// upper-cased, which will not match any created table.
func TableForFixture(base string) (string, bool) {
	if table, ok := fixtureNames[normalize(base)]; ok {
		return table, true
	}
	r := []rune(strings.TrimSpace(base))
	if len(r) == 0 {
		return "", false
	}
	r[0] = unicode.ToUpper(r[0])
	return string(r), false
}
