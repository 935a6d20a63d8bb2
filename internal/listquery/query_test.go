package listquery

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func itemSchema() Schema {
	return Schema{
		Table: "items",
		Columns: map[string]Column{
			"name":    {Expr: "items.name", Type: Text},
			"status":  {Expr: "items.status", Type: Text},
			"qty":     {Expr: "items.qty", Type: Number},
			"created": {Expr: "items.created_at", Type: Time},
			"ref":     {Expr: "items.uuid", Type: UUID},
			"done":    {Expr: "totals.done", Type: Number, Join: "totals"},
		},
		Searchable: []string{"name", "status"},
		Sorts: map[string]Column{
			"id":   {Expr: "items.id"},
			"name": {Expr: "items.name"},
			"done": {Expr: "totals.done", Join: "totals"},
		},
		DefaultSort: SortSpec{Key: "id", Direction: Desc},
		TieBreaker:  "items.id",
	}
}

func TestFilterCompilesBoundPredicates(t *testing.T) {
	q := New(Postgres, itemSchema())
	filtered, err := q.Filter(
		FilterDescriptor{Field: "status", Operator: OpIn, Value: []any{"a", "b"}},
		FilterDescriptor{Field: "qty", Operator: OpGte, Value: float64(3)},
	)
	require.NoError(t, err)

	plan, err := filtered.Render(nil, PageSpec{Size: 10, Number: 2})
	require.NoError(t, err)
	require.Equal(t,
		"SELECT items.* FROM items WHERE items.status IN ($1, $2) AND items.qty >= $3 ORDER BY items.id DESC LIMIT $4 OFFSET $5",
		plan.Data.SQL)
	require.Equal(t, []any{"a", "b", int64(3), 10, 10}, plan.Data.Args)
	require.Equal(t,
		"SELECT COUNT(*) FROM (SELECT items.* FROM items WHERE items.status IN ($1, $2) AND items.qty >= $3) AS counted",
		plan.Count.SQL)
	require.Equal(t, []any{"a", "b", int64(3)}, plan.Count.Args)

	// the receiver is untouched
	plain, err := q.Render(nil, PageSpec{Size: 10, Number: 1})
	require.NoError(t, err)
	require.Equal(t, "SELECT items.* FROM items ORDER BY items.id DESC LIMIT $1 OFFSET $2", plain.Data.SQL)
}

func TestFilterOperators(t *testing.T) {
	q := New(Postgres, itemSchema())
	tests := []struct {
		name string
		f    FilterDescriptor
		sql  string
		args []any
	}{
		{"default eq", FilterDescriptor{Field: "name", Value: "bolt"}, "items.name = ?", []any{"bolt"}},
		{"ne", FilterDescriptor{Field: "qty", Operator: OpNe, Value: "4"}, "items.qty <> ?", []any{int64(4)}},
		{"lte fraction", FilterDescriptor{Field: "qty", Operator: OpLte, Value: 2.5}, "items.qty <= ?", []any{2.5}},
		{"like", FilterDescriptor{Field: "name", Operator: OpLike, Value: "a_b"}, `CAST(items.name AS TEXT) ILIKE ? ESCAPE '\'`, []any{`%a\_b%`}},
		{"is null", FilterDescriptor{Field: "name", Operator: OpNull, Value: true}, "items.name IS NULL", nil},
		{"not null", FilterDescriptor{Field: "name", Operator: OpNull, Value: "false"}, "items.name IS NOT NULL", nil},
		{"uuid", FilterDescriptor{Field: "ref", Value: "6F9619FF-8B86-D011-B42D-00C04FC964FF"}, "items.uuid = ?", []any{"6f9619ff-8b86-d011-b42d-00c04fc964ff"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := q.Filter(tt.f)
			require.NoError(t, err)
			require.Len(t, got.where, 1)
			require.Equal(t, tt.sql, got.where[0].sql)
			require.Equal(t, tt.args, got.where[0].args)
		})
	}
}

func TestFilterRejectsInvalidDescriptors(t *testing.T) {
	q := New(Postgres, itemSchema())
	tests := []struct {
		name string
		f    FilterDescriptor
		want error
	}{
		{"unknown field", FilterDescriptor{Field: "password", Value: "x"}, ErrInvalidFilterField},
		{"like on number", FilterDescriptor{Field: "qty", Operator: OpLike, Value: "1"}, ErrInvalidOperator},
		{"range on uuid", FilterDescriptor{Field: "ref", Operator: OpGte, Value: "x"}, ErrInvalidOperator},
		{"unknown operator", FilterDescriptor{Field: "name", Operator: "regex", Value: "x"}, ErrInvalidOperator},
		{"not a number", FilterDescriptor{Field: "qty", Value: "many"}, ErrInvalidFilterValue},
		{"not a date", FilterDescriptor{Field: "created", Operator: OpGte, Value: "yesterday"}, ErrInvalidFilterValue},
		{"list for eq", FilterDescriptor{Field: "name", Value: []any{"a"}}, ErrInvalidFilterValue},
		{"missing join", FilterDescriptor{Field: "done", Value: 1}, ErrUnresolvedJoinReference},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := q.Filter(FilterDescriptor{Field: "name", Value: "ok"}, tt.f)
			require.ErrorIs(t, err, tt.want)
			require.Empty(t, got.where)
		})
	}
}

func TestFilterEmptyListIsNoop(t *testing.T) {
	q := New(Postgres, itemSchema())
	got, err := q.Filter(
		FilterDescriptor{Field: "status", Operator: OpIn, Value: []any{}},
		FilterDescriptor{Field: "status", Operator: OpIn, Value: []string{}},
	)
	require.NoError(t, err)
	require.Empty(t, got.where)
}

func TestFilterInWithScalarIsOneElementSet(t *testing.T) {
	q := New(Postgres, itemSchema())
	got, err := q.Filter(FilterDescriptor{Field: "status", Operator: OpIn, Value: "closed"})
	require.NoError(t, err)

	st := got.Aggregate("COUNT(*)")
	require.Equal(t, "SELECT COUNT(*) FROM items WHERE items.status IN ($1)", st.SQL)
	require.Equal(t, []any{"closed"}, st.Args)

	_, err = q.Filter(FilterDescriptor{Field: "status", Operator: OpIn, Value: nil})
	require.ErrorIs(t, err, ErrInvalidFilterValue)
}

func TestFilterBoolAcceptsJSONNumbers(t *testing.T) {
	schema := itemSchema()
	schema.Columns["active"] = Column{Expr: "items.active", Type: Bool}
	q := New(Postgres, schema)

	got, err := q.Filter(
		FilterDescriptor{Field: "active", Value: json.Number("1")},
		FilterDescriptor{Field: "name", Operator: OpNull, Value: json.Number("0")},
	)
	require.NoError(t, err)
	st := got.Aggregate("COUNT(*)")
	require.Equal(t, "SELECT COUNT(*) FROM items WHERE items.active = $1 AND items.name IS NOT NULL", st.SQL)
	require.Equal(t, []any{true}, st.Args)

	_, err = q.Filter(FilterDescriptor{Field: "active", Value: json.Number("yes")})
	require.ErrorIs(t, err, ErrInvalidFilterValue)
}

func TestSearchEscapesAndChainsColumns(t *testing.T) {
	q := New(Postgres, itemSchema())
	got, err := q.Search("50%_off", "name", "status")
	require.NoError(t, err)

	st := got.Aggregate("COUNT(*)")
	require.Equal(t,
		`SELECT COUNT(*) FROM items WHERE (CAST(items.name AS TEXT) ILIKE $1 ESCAPE '\' OR CAST(items.status AS TEXT) ILIKE $2 ESCAPE '\')`,
		st.SQL)
	require.Equal(t, []any{`%50\%\_off%`, `%50\%\_off%`}, st.Args)
}

func TestSearchEmptyTermIsNoop(t *testing.T) {
	q := New(Postgres, itemSchema())
	for _, term := range []string{"", "   "} {
		got, err := q.Search(term)
		require.NoError(t, err)
		require.Empty(t, got.where)
	}
}

func TestSearchRejectsColumnsOutsideAllowList(t *testing.T) {
	q := New(Postgres, itemSchema())
	_, err := q.Search("x", "qty")
	require.ErrorIs(t, err, ErrInvalidFilterField)
}

func TestSearchAnyDeduplicatesTerms(t *testing.T) {
	q := New(SQLite, itemSchema())
	got, err := q.SearchAny([]string{"bolt", "bolt", " "}, "name")
	require.NoError(t, err)
	require.Len(t, got.where, 1)
	require.Equal(t, []any{"%bolt%"}, got.where[0].args)
}

func TestNamedSubqueryJoin(t *testing.T) {
	sub := GroupCount("item_events", "item_id", "kind", []string{"sold", "held"}, "done")
	require.Equal(t, "SELECT item_id, COUNT(*) AS done FROM item_events WHERE kind IN (?, ?) GROUP BY item_id", sub.SQL)
	sub.AsCTE = true

	q, err := New(Postgres, itemSchema()).WithNamedSubquery("totals", sub, "items.id", "item_id", JoinLeft)
	require.NoError(t, err)
	q = q.Computed("marker", "?", "m")
	q, err = q.Filter(FilterDescriptor{Field: "done", Operator: OpGte, Value: 1})
	require.NoError(t, err)

	plan, err := q.Render(&SortSpec{Key: "done", Direction: Asc}, PageSpec{Size: 5, Number: 1})
	require.NoError(t, err)
	require.Equal(t,
		"WITH totals AS (SELECT item_id, COUNT(*) AS done FROM item_events WHERE kind IN ($1, $2) GROUP BY item_id) "+
			"SELECT items.*, $3 AS marker FROM items LEFT JOIN totals ON items.id = totals.item_id "+
			"WHERE totals.done >= $4 ORDER BY totals.done ASC, items.id ASC LIMIT $5 OFFSET $6",
		plan.Data.SQL)
	require.Equal(t, []any{"sold", "held", "m", int64(1), 5, 0}, plan.Data.Args)
}

func TestNamedSubqueryGuards(t *testing.T) {
	q := New(Postgres, itemSchema())
	sub := Subquery{SQL: "SELECT item_id, 1 AS done FROM x", Key: "item_id"}

	_, err := q.WithNamedSubquery("totals", sub, "items.id", "other_id", JoinLeft)
	require.ErrorIs(t, err, ErrFanOutJoin)

	_, err = q.WithNamedSubquery("totals", Subquery{SQL: sub.SQL}, "items.id", "item_id", JoinLeft)
	require.ErrorIs(t, err, ErrFanOutJoin)

	_, err = q.WithNamedSubquery("totals", sub, "missing.id", "item_id", JoinLeft)
	require.ErrorIs(t, err, ErrUnresolvedJoinReference)

	joined, err := q.WithNamedSubquery("totals", sub, "items.id", "item_id", JoinInner)
	require.NoError(t, err)
	_, err = joined.WithNamedSubquery("totals", sub, "items.id", "item_id", JoinInner)
	require.Error(t, err)
}

func TestLatestValue(t *testing.T) {
	sub := LatestValue(LatestValueSpec{
		Table:       "object_rates",
		PartitionBy: "rateable_id",
		OrderBy:     "start_date",
		ValueColumn: "rate",
		AsOf:        "2024-01-01",
		Filter:      "rateable_type = ?",
		FilterArgs:  []any{"work"},
		KeyAlias:    "work_id",
	})
	require.Equal(t,
		"SELECT DISTINCT rateable_id AS work_id, LAST_VALUE(rate) OVER (PARTITION BY rateable_id ORDER BY start_date "+
			"RANGE BETWEEN UNBOUNDED PRECEDING AND UNBOUNDED FOLLOWING) AS rate FROM object_rates "+
			"WHERE rateable_type = ? AND start_date <= ?",
		sub.SQL)
	require.Equal(t, []any{"work", "2024-01-01"}, sub.Args)
	require.Equal(t, "work_id", sub.Key)
}

func TestRenderRejectsBadSortAndPage(t *testing.T) {
	q := New(Postgres, itemSchema())

	_, err := q.Render(&SortSpec{Key: "secret"}, PageSpec{Size: 10, Number: 1})
	require.ErrorIs(t, err, ErrInvalidSortKey)

	_, err = q.Render(&SortSpec{Key: "name", Direction: "sideways"}, PageSpec{Size: 10, Number: 1})
	require.ErrorIs(t, err, ErrInvalidSortKey)

	_, err = q.Render(&SortSpec{Key: "done"}, PageSpec{Size: 10, Number: 1})
	require.ErrorIs(t, err, ErrUnresolvedJoinReference)

	_, err = q.Render(nil, PageSpec{Size: 0, Number: 1})
	require.ErrorIs(t, err, ErrInvalidPage)
}

type countingQuerier struct{ calls int }

func (c *countingQuerier) Query(context.Context, string, ...any) (Rows, error) {
	c.calls++
	return nil, errors.New("unexpected query")
}

func TestFinalizeIssuesNoQueryOnValidationError(t *testing.T) {
	db := &countingQuerier{}
	_, err := Finalize(context.Background(), db, New(Postgres, itemSchema()), &SortSpec{Key: "nope"}, PageSpec{Size: 5, Number: 1}, MapScanner)
	require.ErrorIs(t, err, ErrInvalidSortKey)
	require.True(t, IsValidation(err))
	require.Zero(t, db.calls)
}

func TestWrapExposesDistance(t *testing.T) {
	q, err := New(Postgres, itemSchema()).WithDistance("items.lat", "items.lon", Point{Lat: 1, Lon: 2})
	require.NoError(t, err)

	near := Schema{
		Table:       "near",
		Columns:     map[string]Column{"distance": {Expr: "near.distance", Type: Number}},
		Sorts:       map[string]Column{"distance": {Expr: "near.distance"}},
		DefaultSort: SortSpec{Key: "distance", Direction: Asc},
		TieBreaker:  "near.id",
	}
	w, err := q.Wrap(near).WithinRadius(10)
	require.NoError(t, err)

	plan, err := w.Render(nil, PageSpec{Size: 20, Number: 1})
	require.NoError(t, err)
	require.Contains(t, plan.Data.SQL, "SELECT near.* FROM (SELECT items.*, (2 * 6371 * ASIN(LEAST(1, SQRT(")
	require.Contains(t, plan.Data.SQL, ") AS distance FROM items) AS near WHERE near.distance <= $4 ORDER BY near.distance ASC, near.id ASC")
	require.Equal(t, []any{1.0, 1.0, 2.0, 10.0, 20, 0}, plan.Data.Args)

	_, err = w.WithinRadius(-1)
	require.ErrorIs(t, err, ErrInvalidFilterValue)
	_, err = New(Postgres, itemSchema()).WithDistance("lat", "lon", Point{Lat: 91})
	require.ErrorIs(t, err, ErrInvalidFilterValue)
}

func TestHaversine(t *testing.T) {
	moscow := Point{Lat: 55.7558, Lon: 37.6173}
	require.Zero(t, Haversine(moscow, moscow))
	require.InDelta(t, 633.0, Haversine(moscow, Point{Lat: 59.9343, Lon: 30.3351}), 1.0)
	require.InDelta(t, 111.19, Haversine(Point{}, Point{Lon: 1}), 0.01)
}

func TestPageSpecNormalize(t *testing.T) {
	require.Equal(t, PageSpec{Size: 50, Number: 1}, PageSpec{}.Normalize(50, 100))
	require.Equal(t, PageSpec{Size: 100, Number: 3}, PageSpec{Size: 500, Number: 3}.Normalize(50, 100))
	require.Equal(t, PageSpec{Size: 15, Number: 1}, PageSpec{Size: -1, Number: -4}.Normalize(15, 100))

	require.Equal(t, 3, Page[int]{Total: 21, PageSize: 10}.LastPage())
	require.Equal(t, 0, Page[int]{PageSize: 10}.LastPage())
}

func TestRebindSkipsQuotedMarkers(t *testing.T) {
	require.Equal(t, `SELECT '?', "a?" FROM t WHERE x = $1 AND y = $2`,
		rebind(Postgres, `SELECT '?', "a?" FROM t WHERE x = ? AND y = ?`))
	require.Equal(t, "x = ?", rebind(SQLite, "x = ?"))
}

func TestParseOperatorAndDirection(t *testing.T) {
	op, err := ParseOperator(" IN ")
	require.NoError(t, err)
	require.Equal(t, OpIn, op)
	op, err = ParseOperator("")
	require.NoError(t, err)
	require.Equal(t, OpEq, op)
	_, err = ParseOperator("between")
	require.ErrorIs(t, err, ErrInvalidOperator)

	dir, err := ParseDirection("", Desc)
	require.NoError(t, err)
	require.Equal(t, Desc, dir)
	_, err = ParseDirection("up", Asc)
	require.ErrorIs(t, err, ErrInvalidSortKey)
}

func TestClassifyStorageError(t *testing.T) {
	unique := &pgconn.PgError{Code: "23505", Message: "duplicate key"}
	err := ClassifyStorageError(unique)
	require.ErrorIs(t, err, ErrConstraintViolation)
	var pgErr *pgconn.PgError
	require.ErrorAs(t, err, &pgErr)
	require.Equal(t, "23505", pgErr.Code)

	require.ErrorIs(t, ClassifyStorageError(&pgconn.PgError{Code: "57P01"}), ErrStorageUnavailable)

	syntax := &pgconn.PgError{Code: "42601"}
	require.Same(t, syntax, ClassifyStorageError(syntax))

	require.ErrorIs(t, ClassifyStorageError(context.DeadlineExceeded), ErrStorageUnavailable)
	require.NoError(t, ClassifyStorageError(nil))

	twice := ClassifyStorageError(ClassifyStorageError(unique))
	require.ErrorIs(t, twice, ErrConstraintViolation)
	require.False(t, errors.Is(twice, ErrStorageUnavailable))
}
