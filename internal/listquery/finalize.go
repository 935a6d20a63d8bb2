package listquery

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Rows is the cursor shape shared by pgx and database/sql.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Columns() ([]string, error)
	Err() error
	Close()
}

// Querier runs a statement and returns its rows.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
}

type pgxQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type pgxAdapter struct{ db pgxQuerier }

// PGX adapts a *pgxpool.Pool, pgx.Tx or *pgx.Conn.
func PGX(db pgxQuerier) Querier { return pgxAdapter{db: db} }

func (a pgxAdapter) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	rows, err := a.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgxRows{rows}, nil
}

type pgxRows struct{ pgx.Rows }

func (r pgxRows) Columns() ([]string, error) {
	fields := r.FieldDescriptions()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names, nil
}

type sqlQuerier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type sqlAdapter struct{ db sqlQuerier }

// SQL adapts a *sql.DB, *sql.Conn or *sql.Tx.
func SQL(db sqlQuerier) Querier { return sqlAdapter{db: db} }

func (a sqlAdapter) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return sqlRows{rows}, nil
}

type sqlRows struct{ *sql.Rows }

func (r sqlRows) Close() { _ = r.Rows.Close() }

// ScanFunc reads the current row.
type ScanFunc[T any] func(Rows) (T, error)

// Finalize renders q and runs the count and data statements, returning one
// page. Validation errors are returned before anything executes; storage
// errors are classified with ClassifyStorageError.
func Finalize[T any](ctx context.Context, db Querier, q Query, sort *SortSpec, page PageSpec, scan ScanFunc[T]) (Page[T], error) {
	plan, err := q.Render(sort, page)
	if err != nil {
		return Page[T]{}, err
	}

	total, err := ScanCount(ctx, db, plan.Count)
	if err != nil {
		return Page[T]{}, err
	}

	result := Page[T]{Rows: []T{}, Total: total, PageNumber: page.Number, PageSize: page.Size}
	if total == 0 {
		return result, nil
	}

	rows, err := db.Query(ctx, plan.Data.SQL, plan.Data.Args...)
	if err != nil {
		return Page[T]{}, ClassifyStorageError(err)
	}
	defer rows.Close()

	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return Page[T]{}, ClassifyStorageError(err)
		}
		result.Rows = append(result.Rows, item)
	}
	if err := rows.Err(); err != nil {
		return Page[T]{}, ClassifyStorageError(err)
	}
	return result, nil
}

// ScanCount runs a single-value COUNT statement.
func ScanCount(ctx context.Context, db Querier, st Statement) (int64, error) {
	rows, err := db.Query(ctx, st.SQL, st.Args...)
	if err != nil {
		return 0, ClassifyStorageError(err)
	}
	defer rows.Close()

	var total int64
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return 0, ClassifyStorageError(err)
		}
		return 0, fmt.Errorf("listquery: count returned no rows")
	}
	if err := rows.Scan(&total); err != nil {
		return 0, ClassifyStorageError(err)
	}
	return total, ClassifyStorageError(rows.Err())
}

// MapScanner reads any row into a column name to value map. Byte slices
// are returned as strings.
func MapScanner(r Rows) (map[string]any, error) {
	cols, err := r.Columns()
	if err != nil {
		return nil, err
	}
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := r.Scan(ptrs...); err != nil {
		return nil, err
	}
	row := make(map[string]any, len(cols))
	for i, col := range cols {
		if b, ok := values[i].([]byte); ok {
			row[col] = string(b)
			continue
		}
		row[col] = values[i]
	}
	return row, nil
}

// FetchOne runs st and scans its first row; ok is false when there is none.
func FetchOne[T any](ctx context.Context, db Querier, st Statement, scan ScanFunc[T]) (T, bool, error) {
	var zero T
	rows, err := db.Query(ctx, st.SQL, st.Args...)
	if err != nil {
		return zero, false, ClassifyStorageError(err)
	}
	defer rows.Close()
	if !rows.Next() {
		return zero, false, ClassifyStorageError(rows.Err())
	}
	item, err := scan(rows)
	if err != nil {
		return zero, false, ClassifyStorageError(err)
	}
	return item, true, nil
}
