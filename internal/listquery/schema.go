package listquery

// Type is the value type of an allow-listed column.
type Type int

const (
	Text Type = iota
	Number
	Time
	Bool
	UUID
)

func (t Type) String() string {
	switch t {
	case Text:
		return "text"
	case Number:
		return "number"
	case Time:
		return "time"
	case Bool:
		return "bool"
	case UUID:
		return "uuid"
	}
	return "unknown"
}

// Column is a field a caller may reference by name. Expr is the SQL
// expression it compiles to; Join names the subquery Expr reads from.
type Column struct {
	Expr string
	Type Type
	Join string
}

// Schema holds the allow-lists of one list endpoint.
type Schema struct {
	// Table is the base relation or, for wrapped queries, its alias.
	Table string
	// Columns are the filterable fields keyed by their public name.
	Columns map[string]Column
	// Searchable lists Columns keys the search composer may use.
	Searchable []string
	// Sorts maps the caller's sort vocabulary onto expressions.
	Sorts       map[string]Column
	DefaultSort SortSpec
	// TieBreaker is appended to every ORDER BY so pages are stable.
	TieBreaker string
}

func (s Schema) searchable(name string) bool {
	for _, col := range s.Searchable {
		if col == name {
			return true
		}
	}
	return false
}
