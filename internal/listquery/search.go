package listquery

import (
	"fmt"
	"strings"
)

// Search adds an OR-chain of case-insensitive substring matches of term
// across columns. An empty term leaves the query unchanged. Columns must be
// listed in the schema's Searchable set.
func (q Query) Search(term string, columns ...string) (Query, error) {
	return q.SearchAny([]string{term}, columns...)
}

// SearchAny matches any of terms against any of columns. Blank and repeated
// terms are skipped; the query is unchanged when none remain.
func (q Query) SearchAny(terms []string, columns ...string) (Query, error) {
	if len(columns) == 0 {
		columns = q.schema.Searchable
	}
	exprs := make([]string, 0, len(columns))
	for _, name := range columns {
		if !q.schema.searchable(name) {
			return q, fmt.Errorf("%w: %q is not searchable", ErrInvalidFilterField, name)
		}
		col, ok := q.schema.Columns[name]
		if !ok {
			return q, fmt.Errorf("%w: %q", ErrInvalidFilterField, name)
		}
		if col.Join != "" && !q.hasJoin(col.Join) {
			return q, fmt.Errorf("%w: search column %q needs %q", ErrUnresolvedJoinReference, name, col.Join)
		}
		exprs = append(exprs, col.Expr)
	}

	seen := make(map[string]bool, len(terms))
	var (
		parts []string
		args  []any
	)
	for _, term := range terms {
		term = strings.TrimSpace(term)
		if term == "" || seen[term] {
			continue
		}
		seen[term] = true
		pattern := ContainsPattern(term)
		for _, expr := range exprs {
			parts = append(parts, q.dialect.ContainsFold(expr))
			args = append(args, pattern)
		}
	}
	if len(parts) == 0 {
		return q, nil
	}

	c := q.clone()
	c.where = append(c.where, fragment{sql: "(" + strings.Join(parts, " OR ") + ")", args: args})
	return c, nil
}
