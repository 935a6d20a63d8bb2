package listquery

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func openItems(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	stmts := []string{
		`CREATE TABLE items (id INTEGER PRIMARY KEY, name TEXT NOT NULL, status TEXT NOT NULL, qty INTEGER NOT NULL)`,
		`CREATE TABLE item_events (id INTEGER PRIMARY KEY, item_id INTEGER NOT NULL, kind TEXT NOT NULL)`,
	}
	for _, s := range stmts {
		_, err := db.Exec(s)
		require.NoError(t, err)
	}
	for i := 1; i <= 23; i++ {
		status := "open"
		if i%3 == 0 {
			status = "closed"
		}
		_, err := db.Exec(`INSERT INTO items (id, name, status, qty) VALUES (?, ?, ?, ?)`,
			i, fmt.Sprintf("Item %d", i), status, i%4)
		require.NoError(t, err)
	}
	return db
}

func finalizeAll(t *testing.T, db *sql.DB, q Query, sort *SortSpec, size int) ([]map[string]any, int64) {
	t.Helper()
	var (
		all   []map[string]any
		total int64
	)
	for n := 1; ; n++ {
		page, err := Finalize(context.Background(), SQL(db), q, sort, PageSpec{Size: size, Number: n}, MapScanner)
		require.NoError(t, err)
		total = page.Total
		all = append(all, page.Rows...)
		if n >= page.LastPage() {
			return all, total
		}
	}
}

func TestSQLitePagesConcatenateToTotal(t *testing.T) {
	db := openItems(t)
	q := New(SQLite, itemSchema())

	for _, sort := range []*SortSpec{nil, {Key: "name", Direction: Asc}} {
		rows, total := finalizeAll(t, db, q, sort, 5)
		require.EqualValues(t, 23, total)
		require.Len(t, rows, 23)
		seen := map[int64]bool{}
		for _, r := range rows {
			id := r["id"].(int64)
			require.False(t, seen[id], "duplicate id %d", id)
			seen[id] = true
		}
	}
}

func TestSQLiteDefaultSortIsDescending(t *testing.T) {
	db := openItems(t)
	page, err := Finalize(context.Background(), SQL(db), New(SQLite, itemSchema()), nil, PageSpec{Size: 3, Number: 1}, MapScanner)
	require.NoError(t, err)
	require.Len(t, page.Rows, 3)
	require.EqualValues(t, 23, page.Rows[0]["id"])
	require.EqualValues(t, 22, page.Rows[1]["id"])
}

func TestSQLiteEmptyFiltersKeepAllRows(t *testing.T) {
	db := openItems(t)
	q := New(SQLite, itemSchema())

	filtered, err := q.Filter(FilterDescriptor{Field: "status", Operator: OpIn, Value: []any{}})
	require.NoError(t, err)
	filtered, err = filtered.Search("")
	require.NoError(t, err)

	total, err := ScanCount(context.Background(), SQL(db), filtered.Aggregate("COUNT(*)"))
	require.NoError(t, err)
	require.EqualValues(t, 23, total)
}

func TestSQLiteFilterAndSearch(t *testing.T) {
	db := openItems(t)
	q := New(SQLite, itemSchema())

	closed, err := q.Filter(FilterDescriptor{Field: "status", Operator: OpIn, Value: []string{"closed"}})
	require.NoError(t, err)
	total, err := ScanCount(context.Background(), SQL(db), closed.Aggregate())
	require.NoError(t, err)
	require.EqualValues(t, 7, total)

	// "ITEM 1" matches Item 1 and Item 10..19 regardless of case.
	found, err := q.Search("ITEM 1")
	require.NoError(t, err)
	total, err = ScanCount(context.Background(), SQL(db), found.Aggregate())
	require.NoError(t, err)
	require.EqualValues(t, 11, total)

	wild, err := q.Search("%")
	require.NoError(t, err)
	total, err = ScanCount(context.Background(), SQL(db), wild.Aggregate())
	require.NoError(t, err)
	require.Zero(t, total)
}

func TestSQLiteGroupCountAndPercent(t *testing.T) {
	db := openItems(t)
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		_, err := db.ExecContext(ctx, `INSERT INTO item_events (item_id, kind) VALUES (1, 'sold')`)
		require.NoError(t, err)
	}
	_, err := db.ExecContext(ctx, `INSERT INTO item_events (item_id, kind) VALUES (1, 'lost'), (2, 'sold')`)
	require.NoError(t, err)

	sub := GroupCount("item_events", "item_id", "kind", []string{"sold"}, "done")
	sub.AsCTE = true
	q, err := New(SQLite, itemSchema()).WithNamedSubquery("totals", sub, "items.id", "item_id", JoinLeft)
	require.NoError(t, err)
	q = q.Computed("done", "COALESCE(totals.done, 0)").Computed("percent", Percent("totals.done", "5"))
	q, err = q.Filter(FilterDescriptor{Field: "qty", Operator: OpLte, Value: 2})
	require.NoError(t, err)

	page, err := Finalize(ctx, SQL(db), q, &SortSpec{Key: "id", Direction: Asc}, PageSpec{Size: 3, Number: 1}, MapScanner)
	require.NoError(t, err)
	require.Len(t, page.Rows, 3)
	require.EqualValues(t, 1, page.Rows[0]["id"])
	require.EqualValues(t, 4, page.Rows[0]["done"])
	require.EqualValues(t, 80, page.Rows[0]["percent"])
	require.EqualValues(t, 20, page.Rows[1]["percent"])
	require.EqualValues(t, 0, page.Rows[2]["done"])

	zero, ok, err := FetchOne(ctx, SQL(db), New(SQLite, itemSchema()).Aggregate(Percent("1", "0")+" AS p"), MapScanner)
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 0, zero["p"])
}

func TestSQLiteDedupeAfterWrap(t *testing.T) {
	db := openItems(t)
	ctx := context.Background()
	_, err := db.ExecContext(ctx, `INSERT INTO item_events (item_id, kind) VALUES (1, 'a'), (1, 'b'), (2, 'a'), (3, 'c'), (3, 'c')`)
	require.NoError(t, err)

	events := Schema{
		Table:       "item_events",
		Columns:     map[string]Column{"kind": {Expr: "item_events.kind", Type: Text}},
		Sorts:       map[string]Column{"id": {Expr: "item_events.id"}},
		DefaultSort: SortSpec{Key: "id", Direction: Asc},
	}
	unique := Schema{
		Table:       "unique_events",
		Sorts:       map[string]Column{"item": {Expr: "unique_events.item_id"}},
		DefaultSort: SortSpec{Key: "item", Direction: Asc},
		TieBreaker:  "unique_events.id",
	}
	q := New(SQLite, events).Dedupe("item_events.item_id", "item_events.id").Wrap(unique).Where("unique_events.dup_rank = 1")

	page, err := Finalize(ctx, SQL(db), q, nil, PageSpec{Size: 10, Number: 1}, MapScanner)
	require.NoError(t, err)
	require.EqualValues(t, 3, page.Total)
	require.EqualValues(t, "a", page.Rows[0]["kind"])
	require.EqualValues(t, "c", page.Rows[2]["kind"])
}

func TestSQLiteInWithScalarValue(t *testing.T) {
	db := openItems(t)
	q, err := New(SQLite, itemSchema()).Filter(FilterDescriptor{Field: "status", Operator: OpIn, Value: "closed"})
	require.NoError(t, err)

	page, err := Finalize(context.Background(), SQL(db), q, nil, PageSpec{Size: 50, Number: 1}, MapScanner)
	require.NoError(t, err)
	require.EqualValues(t, 7, page.Total)
	for _, row := range page.Rows {
		require.Equal(t, "closed", row["status"])
	}
}

func TestSQLiteRadiusIsInclusive(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	_, err = db.ExecContext(ctx, `CREATE TABLE places (id INTEGER PRIMARY KEY, name TEXT NOT NULL, lat REAL NOT NULL, lon REAL NOT NULL)`)
	require.NoError(t, err)
	// the same point, ~0.5 km north and Moscow to Saint Petersburg (~633 km)
	_, err = db.ExecContext(ctx, `INSERT INTO places (id, name, lat, lon) VALUES
		(1, 'here', 55.7558, 37.6173),
		(2, 'near', 55.7603, 37.6173),
		(3, 'far', 59.9343, 30.3351)`)
	require.NoError(t, err)

	places := Schema{Table: "places", Sorts: map[string]Column{"id": {Expr: "places.id"}}, DefaultSort: SortSpec{Key: "id", Direction: Asc}}
	within := Schema{
		Table:       "within",
		Columns:     map[string]Column{"distance": {Expr: "within.distance", Type: Number}},
		Sorts:       map[string]Column{"distance": {Expr: "within.distance"}},
		DefaultSort: SortSpec{Key: "distance", Direction: Asc},
		TieBreaker:  "within.id",
	}
	base, err := New(SQLite, places).WithDistance("places.lat", "places.lon", Point{Lat: 55.7558, Lon: 37.6173})
	require.NoError(t, err)

	for _, tc := range []struct {
		radius float64
		names  []string
	}{
		{0, []string{"here"}},
		{1, []string{"here", "near"}},
		{700, []string{"here", "near", "far"}},
	} {
		q, err := base.Wrap(within).WithinRadius(tc.radius)
		require.NoError(t, err)
		page, err := Finalize(ctx, SQL(db), q, nil, PageSpec{Size: 10, Number: 1}, MapScanner)
		require.NoError(t, err)
		require.EqualValues(t, len(tc.names), page.Total, "radius %v", tc.radius)

		var names []string
		for _, row := range page.Rows {
			names = append(names, row["name"].(string))
		}
		require.Equal(t, tc.names, names, "radius %v", tc.radius)
		require.Zero(t, page.Rows[0]["distance"], "radius %v", tc.radius)
	}
}
