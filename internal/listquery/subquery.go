package listquery

import (
	"fmt"
	"strings"
)

// JoinType selects how a named subquery is joined to the base relation.
type JoinType string

const (
	JoinLeft  JoinType = "LEFT"
	JoinInner JoinType = "INNER"
)

// Subquery is a named result set joined into a list query. Key is the
// column the subquery is unique on; only that column may be joined against.
type Subquery struct {
	SQL     string
	Args    []any
	Key     string
	Columns []string
	// AsCTE renders the subquery in the WITH clause instead of inline.
	AsCTE bool
}

// WithCTE registers a common table expression other subqueries can read
// from. It is not joined to the base relation.
func (q Query) WithCTE(name string, sub Subquery) (Query, error) {
	if name == "" || q.hasName(name) {
		return q, fmt.Errorf("listquery: duplicate or empty subquery name %q", name)
	}
	c := q.clone()
	c.ctes = append(c.ctes, namedSubquery{name: name, sub: sub})
	return c, nil
}

// WithNamedSubquery joins sub as name ON leftKey = name.rightKey.
// rightKey must be the subquery's declared Key, which keeps the join from
// multiplying base rows.
func (q Query) WithNamedSubquery(name string, sub Subquery, leftKey, rightKey string, kind JoinType) (Query, error) {
	if name == "" || q.hasName(name) {
		return q, fmt.Errorf("listquery: duplicate or empty subquery name %q", name)
	}
	if sub.Key == "" || rightKey != sub.Key {
		return q, fmt.Errorf("%w: %s joined on %q, key is %q", ErrFanOutJoin, name, rightKey, sub.Key)
	}
	if !q.resolves(leftKey) {
		return q, fmt.Errorf("%w: %s", ErrUnresolvedJoinReference, leftKey)
	}
	switch kind {
	case "":
		kind = JoinLeft
	case JoinLeft, JoinInner:
	default:
		return q, fmt.Errorf("listquery: unknown join type %q", kind)
	}

	c := q.clone()
	c.joins = append(c.joins, join{
		name:  name,
		sub:   sub,
		cte:   sub.AsCTE,
		left:  leftKey,
		right: rightKey,
		kind:  kind,
	})
	return c, nil
}

// Computed exposes expr as a select column named alias. Computed columns
// become filterable after Wrap.
func (q Query) Computed(alias, expr string, args ...any) Query {
	if len(q.selects) == 0 {
		q = q.Select(q.schema.Table + ".*")
	}
	return q.SelectArgs(fmt.Sprintf("%s AS %s", expr, alias), args...)
}

// Percent renders 100*part/whole as an integer, 0 when whole is 0 or NULL.
func Percent(part, whole string) string {
	return fmt.Sprintf(
		"CASE WHEN COALESCE(%[2]s, 0) = 0 THEN 0 ELSE CAST(100 * COALESCE(%[1]s, 0) / %[2]s AS INTEGER) END",
		part, whole,
	)
}

// GroupCount counts rows of table per key whose status column is in
// statuses. The result has columns key and alias.
func GroupCount(table, key, statusColumn string, statuses []string, alias string) Subquery {
	args := make([]any, len(statuses))
	for i, s := range statuses {
		args[i] = s
	}
	where := "1 = 0"
	if len(statuses) > 0 {
		where = fmt.Sprintf("%s IN (%s)", statusColumn, Marks(len(statuses)))
	}
	return Subquery{
		SQL:     fmt.Sprintf("SELECT %[2]s, COUNT(*) AS %[4]s FROM %[1]s WHERE %[3]s GROUP BY %[2]s", table, key, where, alias),
		Args:    args,
		Key:     key,
		Columns: []string{key, alias},
	}
}

// LatestValueSpec describes a "value in effect" lookup: the last value of
// ValueColumn per PartitionBy ordered by OrderBy, considering only rows
// with OrderBy <= AsOf and matching the optional Filter.
type LatestValueSpec struct {
	Table       string
	PartitionBy string
	OrderBy     string
	ValueColumn string
	AsOf        any
	Filter      string
	FilterArgs  []any
	// KeyAlias and ValueAlias rename the output columns.
	KeyAlias   string
	ValueAlias string
}

// LatestValue renders s with LAST_VALUE over an unbounded frame so each
// partition yields exactly one row.
func LatestValue(s LatestValueSpec) Subquery {
	key, value := s.KeyAlias, s.ValueAlias
	if key == "" {
		key = s.PartitionBy
	}
	if value == "" {
		value = s.ValueColumn
	}

	where := []string{s.OrderBy + " <= ?"}
	args := []any{}
	if s.Filter != "" {
		where = append([]string{s.Filter}, where...)
		args = append(args, s.FilterArgs...)
	}
	args = append(args, s.AsOf)

	sql := fmt.Sprintf(
		"SELECT DISTINCT %[2]s AS %[5]s, LAST_VALUE(%[4]s) OVER (PARTITION BY %[2]s ORDER BY %[3]s "+
			"RANGE BETWEEN UNBOUNDED PRECEDING AND UNBOUNDED FOLLOWING) AS %[6]s FROM %[1]s WHERE %[7]s",
		s.Table, s.PartitionBy, s.OrderBy, s.ValueColumn, key, value, strings.Join(where, " AND "),
	)
	return Subquery{SQL: sql, Args: args, Key: key, Columns: []string{key, value}}
}
