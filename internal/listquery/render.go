package listquery

import (
	"fmt"
	"strings"
)

// Statement is rendered SQL plus its positional arguments.
type Statement struct {
	SQL  string
	Args []any
}

// Plan is the pair of statements one list request runs: Count shares every
// predicate with Data but carries no ORDER BY or LIMIT.
type Plan struct {
	Data  Statement
	Count Statement
	Sort  SortSpec
	Page  PageSpec
}

// ResolveSort maps a caller sort key onto its ORDER BY expression. A nil
// spec or empty key selects the schema default.
func (q Query) ResolveSort(spec *SortSpec) (SortSpec, string, error) {
	s := q.schema.DefaultSort
	if spec != nil && spec.Key != "" {
		s = *spec
		if s.Direction == "" {
			s.Direction = Asc
		}
	}
	if s.Direction != Asc && s.Direction != Desc {
		return SortSpec{}, "", fmt.Errorf("%w: direction %q", ErrInvalidSortKey, s.Direction)
	}
	col, ok := q.schema.Sorts[s.Key]
	if !ok {
		return SortSpec{}, "", fmt.Errorf("%w: %q", ErrInvalidSortKey, s.Key)
	}
	if col.Join != "" && !q.hasJoin(col.Join) {
		return SortSpec{}, "", fmt.Errorf("%w: sort %q needs %q", ErrUnresolvedJoinReference, s.Key, col.Join)
	}
	dir := strings.ToUpper(string(s.Direction))
	order := col.Expr + " " + dir
	if tb := q.schema.TieBreaker; tb != "" && tb != col.Expr {
		order += ", " + tb + " " + dir
	}
	return s, order, nil
}

// Render validates sort and page and produces the count and data
// statements. No statement is produced when validation fails.
func (q Query) Render(sort *SortSpec, page PageSpec) (Plan, error) {
	if page.Size <= 0 || page.Number < 1 {
		return Plan{}, fmt.Errorf("%w: size %d number %d", ErrInvalidPage, page.Size, page.Number)
	}
	s, order, err := q.ResolveSort(sort)
	if err != nil {
		return Plan{}, err
	}

	base, args := q.build(nil)

	dataArgs := append(append([]any(nil), args...), page.Size, page.offset())
	data := Statement{
		SQL:  rebind(q.dialect, base+" ORDER BY "+order+" LIMIT ? OFFSET ?"),
		Args: dataArgs,
	}
	count := Statement{
		SQL:  rebind(q.dialect, "SELECT COUNT(*) FROM ("+base+") AS counted"),
		Args: append([]any(nil), args...),
	}
	return Plan{Data: data, Count: count, Sort: s, Page: page}, nil
}

// Aggregate renders exprs as the select list over the query's joins and
// predicates, without ordering or paging.
func (q Query) Aggregate(exprs ...string) Statement {
	selects := make([]fragment, len(exprs))
	for i, e := range exprs {
		selects[i] = fragment{sql: e}
	}
	if len(selects) == 0 {
		selects = []fragment{{sql: "COUNT(*)"}}
	}
	sql, args := q.build(selects)
	return Statement{SQL: rebind(q.dialect, sql), Args: args}
}

// Unpaged renders the data statement without LIMIT, ordered by the
// resolved sort. It backs exports and the CLI's explain output.
func (q Query) Unpaged(sort *SortSpec) (Statement, error) {
	_, order, err := q.ResolveSort(sort)
	if err != nil {
		return Statement{}, err
	}
	sql, args := q.build(nil)
	return Statement{SQL: rebind(q.dialect, sql+" ORDER BY "+order), Args: args}, nil
}
