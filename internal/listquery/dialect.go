package listquery

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect renders the few SQL fragments that differ between datastores.
// Fragments use "?" as the parameter marker; Placeholder rewrites them once
// the whole statement is assembled.
type Dialect interface {
	Name() string
	Placeholder(n int) string
	// ContainsFold returns a case-insensitive substring predicate for expr
	// with a single parameter marker for the escaped pattern.
	ContainsFold(expr string) string
	Least(a, b string) string
}

type postgresDialect struct{}

// Postgres renders numbered parameters and ILIKE.
var Postgres Dialect = postgresDialect{}

func (postgresDialect) Name() string { return "postgres" }

func (postgresDialect) Placeholder(n int) string { return "$" + strconv.Itoa(n) }

func (postgresDialect) ContainsFold(expr string) string {
	return fmt.Sprintf(`CAST(%s AS TEXT) ILIKE ? ESCAPE '\'`, expr)
}

func (postgresDialect) Least(a, b string) string {
	return fmt.Sprintf("LEAST(%s, %s)", a, b)
}

type sqliteDialect struct{}

// SQLite renders positional parameters and folds case with LOWER. Folding is
// ASCII-only, matching SQLite's built-in LOWER.
var SQLite Dialect = sqliteDialect{}

func (sqliteDialect) Name() string { return "sqlite" }

func (sqliteDialect) Placeholder(int) string { return "?" }

func (sqliteDialect) ContainsFold(expr string) string {
	return fmt.Sprintf(`LOWER(CAST(%s AS TEXT)) LIKE LOWER(?) ESCAPE '\'`, expr)
}

func (sqliteDialect) Least(a, b string) string {
	return fmt.Sprintf("MIN(%s, %s)", a, b)
}

// DialectByName resolves "postgres" or "sqlite".
func DialectByName(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "postgres", "postgresql", "pgx":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	}
	return nil, fmt.Errorf("unsupported dialect %q", name)
}

// rebind replaces "?" markers outside quoted literals and identifiers with
// the dialect's placeholders, numbered from 1.
func rebind(d Dialect, query string) string {
	var (
		b      strings.Builder
		n      int
		quote  rune
		inQuot bool
	)
	b.Grow(len(query) + 16)
	for _, r := range query {
		switch {
		case inQuot:
			if r == quote {
				inQuot = false
			}
			b.WriteRune(r)
		case r == '\'' || r == '"':
			inQuot = true
			quote = r
			b.WriteRune(r)
		case r == '?':
			n++
			b.WriteString(d.Placeholder(n))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// escapeLike escapes LIKE metacharacters using backslash.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}

// ContainsPattern returns the LIKE pattern matching term as a substring.
func ContainsPattern(term string) string {
	return "%" + escapeLike(term) + "%"
}

// Marks returns n comma separated parameter markers for an IN list.
func Marks(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
