// Package listquery builds the filterable, searchable, sortable and paged
// list statements used by the task and warehouse endpoints.
//
// A Query is a value: every builder method returns a new Query and leaves
// its receiver untouched, so a partially built query can be shared between
// the list statement and the statistics statements of one request.
package listquery

import (
	"fmt"
	"strings"
)

type fragment struct {
	sql  string
	args []any
}

type namedSubquery struct {
	name string
	sub  Subquery
}

type join struct {
	name  string
	sub   Subquery
	cte   bool
	left  string
	right string
	kind  JoinType
}

// Query accumulates the pieces of one list statement.
type Query struct {
	dialect Dialect
	schema  Schema
	from    fragment
	selects []fragment
	ctes    []namedSubquery
	joins   []join
	where   []fragment
}

// New starts a query over schema.Table.
func New(d Dialect, schema Schema) Query {
	if d == nil {
		d = Postgres
	}
	return Query{
		dialect: d,
		schema:  schema,
		from:    fragment{sql: schema.Table},
	}
}

// Dialect returns the dialect statements are rendered for.
func (q Query) Dialect() Dialect { return q.dialect }

// Schema returns the allow-lists the query validates against.
func (q Query) Schema() Schema { return q.schema }

func (q Query) clone() Query {
	c := q
	c.selects = append([]fragment(nil), q.selects...)
	c.ctes = append([]namedSubquery(nil), q.ctes...)
	c.joins = append([]join(nil), q.joins...)
	c.where = append([]fragment(nil), q.where...)
	return c
}

// Select appends plain select expressions.
func (q Query) Select(exprs ...string) Query {
	c := q.clone()
	for _, expr := range exprs {
		c.selects = append(c.selects, fragment{sql: expr})
	}
	return c
}

// SelectArgs appends one select expression carrying bound parameters.
func (q Query) SelectArgs(expr string, args ...any) Query {
	c := q.clone()
	c.selects = append(c.selects, fragment{sql: expr, args: args})
	return c
}

// Where appends a fixed predicate written by the endpoint, never by the
// caller. Predicates are combined with AND, so sql must be self-contained
// (parenthesise OR chains).
func (q Query) Where(sql string, args ...any) Query {
	c := q.clone()
	c.where = append(c.where, fragment{sql: sql, args: args})
	return c
}

// Wrap turns the query into a derived table aliased as schema.Table so that
// computed select columns become plain columns of the outer query.
func (q Query) Wrap(schema Schema) Query {
	inner, args := q.build(nil)
	return Query{
		dialect: q.dialect,
		schema:  schema,
		from:    fragment{sql: fmt.Sprintf("(%s) AS %s", inner, schema.Table), args: args},
	}
}

func (q Query) hasJoin(name string) bool {
	for _, j := range q.joins {
		if j.name == name {
			return true
		}
	}
	return false
}

func (q Query) hasName(name string) bool {
	if q.hasJoin(name) {
		return true
	}
	for _, c := range q.ctes {
		if c.name == name {
			return true
		}
	}
	return false
}

// resolves reports whether a qualified reference like "tasks.id" points to
// the base relation or a joined subquery.
func (q Query) resolves(ref string) bool {
	qualifier, _, ok := strings.Cut(ref, ".")
	if !ok {
		return true
	}
	return qualifier == q.schema.Table || q.hasJoin(qualifier)
}

// build renders the statement without ORDER BY and LIMIT. When selects is
// nil the query's own select list is used, defaulting to "<table>.*".
func (q Query) build(selects []fragment) (string, []any) {
	var (
		b    strings.Builder
		args []any
	)

	ctes := q.ctes
	for _, j := range q.joins {
		if j.cte {
			ctes = append(ctes, namedSubquery{name: j.name, sub: j.sub})
		}
	}
	if len(ctes) > 0 {
		b.WriteString("WITH ")
		for i, c := range ctes {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s AS (%s)", c.name, c.sub.SQL)
			args = append(args, c.sub.Args...)
		}
		b.WriteString(" ")
	}

	if selects == nil {
		selects = q.selects
	}
	b.WriteString("SELECT ")
	if len(selects) == 0 {
		b.WriteString(q.schema.Table + ".*")
	}
	for i, s := range selects {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(s.sql)
		args = append(args, s.args...)
	}

	b.WriteString(" FROM ")
	b.WriteString(q.from.sql)
	args = append(args, q.from.args...)

	for _, j := range q.joins {
		b.WriteString(" ")
		b.WriteString(string(j.kind))
		b.WriteString(" JOIN ")
		if j.cte {
			b.WriteString(j.name)
		} else {
			fmt.Fprintf(&b, "(%s) AS %s", j.sub.SQL, j.name)
			args = append(args, j.sub.Args...)
		}
		fmt.Fprintf(&b, " ON %s = %s.%s", j.left, j.name, j.right)
	}

	if len(q.where) > 0 {
		b.WriteString(" WHERE ")
		for i, w := range q.where {
			if i > 0 {
				b.WriteString(" AND ")
			}
			b.WriteString(w.sql)
			args = append(args, w.args...)
		}
	}

	return b.String(), args
}
