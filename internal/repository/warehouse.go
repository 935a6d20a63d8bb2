package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/octobees/opsboard/internal/dto"
	"github.com/octobees/opsboard/internal/entity"
	"github.com/octobees/opsboard/internal/listquery"
)

// WarehouseRepository describes persistence operations for warehouse items.
type WarehouseRepository interface {
	List(ctx context.Context, filter dto.WarehouseFilter) (dto.WarehouseList, error)
	WorkOrderLocation(ctx context.Context, workOrderID int64) (string, bool, error)
	Withdraw(ctx context.Context, ids []int64, responsibleID int64) (int64, error)
	TakeFromProduction(ctx context.Context, ids []int64, responsibleID int64) (int64, error)
	ChangeStatus(ctx context.Context, ids []int64, status string) (int64, error)
	Create(ctx context.Context, in dto.WarehouseItemInput) (int64, error)
	Update(ctx context.Context, id int64, in dto.WarehouseItemInput) error
	Card(ctx context.Context, id int64) (*entity.WarehouseItem, error)
}

var (
	// ErrResponsibleNotFound indicates the responsible user does not exist.
	ErrResponsibleNotFound = errors.New("responsible user not found")
	// ErrWarehouseItemNotFound indicates the item does not exist or was removed.
	ErrWarehouseItemNotFound = errors.New("warehouse item not found")
	// ErrNomenclatureNotFound indicates the referenced nomenclature does not exist.
	ErrNomenclatureNotFound = errors.New("nomenclature not found")
)

// WarehouseSchema is the allow-list of the warehouse grid.
var WarehouseSchema = listquery.Schema{
	Table: "warehouses",
	Columns: map[string]listquery.Column{
		"id":               {Expr: "warehouses.id", Type: listquery.Number},
		"nomenclature":     {Expr: "n.name", Type: listquery.Text, Join: "n"},
		"category":         {Expr: "n.category", Type: listquery.Text, Join: "n"},
		"quantity_in_pack": {Expr: "n.quantity_in_pack", Type: listquery.Number, Join: "n"},
		"state":            {Expr: "warehouses.state", Type: listquery.Text},
		"supplier":         {Expr: "warehouses.supplier_id", Type: listquery.Number},
		"location":         {Expr: "warehouses.location", Type: listquery.Text},
		"company":          {Expr: "warehouses.entity", Type: listquery.Text},
		"remainder_price":  {Expr: "warehouses.remainder_price", Type: listquery.Number},
		"payment_date":     {Expr: "warehouses.payment_date", Type: listquery.Time},
		"order_date":       {Expr: "warehouses.order_date", Type: listquery.Time},
		"deleted_at":       {Expr: "warehouses.deleted_at", Type: listquery.Time},
		"responsible":      {Expr: "warehouses.responsible_id", Type: listquery.Number},
	},
	Sorts: map[string]listquery.Column{
		"id":              {Expr: "warehouses.id"},
		"order_date":      {Expr: "warehouses.order_date"},
		"remainder_price": {Expr: "warehouses.remainder_price"},
		"state":           {Expr: "warehouses.state"},
	},
	DefaultSort: listquery.SortSpec{Key: "id", Direction: listquery.Desc},
	TieBreaker:  "warehouses.id",
}

var warehouseColumns = []string{
	"warehouses.id",
	"warehouses.number",
	"warehouses.state",
	"warehouses.responsible_id",
	"warehouses.order_date",
	"warehouses.delivery_date",
	"warehouses.supplier_id",
	"suppliers.title",
	"warehouses.account_number",
	"warehouses.payment_date",
	"warehouses.documents_status",
	"warehouses.entity",
	"warehouses.location",
	"warehouses.locker",
	"warehouses.shelf",
	"warehouses.remainder_volume",
	"warehouses.remainder_square",
	"warehouses.remainder_volume_before_prod",
	"warehouses.remainder_square_before_prod",
	"warehouses.remainder_price",
	"warehouses.comment",
	"warehouses.withdrawn_date",
	"warehouses.nomenclature_id",
	"n.name",
	"n.unit_name",
	"n.unit_price",
	"n.quantity_in_pack",
	"warehouses.deleted_at",
}

var (
	nomenclatureSubquery = listquery.Subquery{
		SQL: "SELECT id AS nomenclature_id, name, category, unit_name, unit_price, quantity_in_pack FROM nomenclatures",
		Key: "nomenclature_id",
	}
	supplierSubquery = listquery.Subquery{
		SQL: "SELECT id AS supplier_id, title FROM suppliers",
		Key: "supplier_id",
	}
)

// WarehouseFilters maps the typed list parameters onto filter descriptors.
func WarehouseFilters(f dto.WarehouseFilter) []listquery.FilterDescriptor {
	var out []listquery.FilterDescriptor
	add := func(field string, op listquery.Operator, value any) {
		out = append(out, listquery.FilterDescriptor{Field: field, Operator: op, Value: value})
	}

	switch f.Deleted {
	case dto.DeletedAll:
	case dto.DeletedOnly:
		add("deleted_at", listquery.OpNull, false)
	default:
		add("deleted_at", listquery.OpNull, true)
	}
	if len(f.States) > 0 {
		add("state", listquery.OpIn, f.States)
	}
	if len(f.Categories) > 0 {
		add("category", listquery.OpIn, f.Categories)
	}
	if f.Supplier != nil {
		add("supplier", listquery.OpEq, *f.Supplier)
	}
	if f.Search != "" {
		add("nomenclature", listquery.OpEq, f.Search)
	}
	if f.Location != "" {
		add("location", listquery.OpEq, f.Location)
	}
	if f.Company != "" {
		add("company", listquery.OpEq, f.Company)
	}
	if f.RemainderPriceFrom != nil {
		add("remainder_price", listquery.OpGte, *f.RemainderPriceFrom)
	}
	if f.RemainderPriceTo != nil {
		add("remainder_price", listquery.OpLte, *f.RemainderPriceTo)
	}
	if f.QuantityInPackFrom != nil {
		add("quantity_in_pack", listquery.OpGte, *f.QuantityInPackFrom)
	}
	if f.QuantityInPackTo != nil {
		add("quantity_in_pack", listquery.OpLte, *f.QuantityInPackTo)
	}
	switch f.Payment {
	case dto.PaymentPaid:
		add("payment_date", listquery.OpNull, false)
	case dto.PaymentUnpaid:
		add("payment_date", listquery.OpNull, true)
	}
	if f.OrderDateFrom != nil {
		add("order_date", listquery.OpGte, *f.OrderDateFrom)
	}
	if f.OrderDateTo != nil {
		add("order_date", listquery.OpLte, *f.OrderDateTo)
	}
	if f.ResponsibleID != nil {
		add("responsible", listquery.OpEq, *f.ResponsibleID)
	}
	if f.ID != nil {
		add("id", listquery.OpEq, *f.ID)
	}
	return out
}

// WarehouseListQuery assembles the item grid. The statistics block is
// aggregated over the same query.
func WarehouseListQuery(d listquery.Dialect, f dto.WarehouseFilter) (listquery.Query, error) {
	q, err := listquery.New(d, WarehouseSchema).
		WithNamedSubquery("n", nomenclatureSubquery, "warehouses.nomenclature_id", "nomenclature_id", listquery.JoinLeft)
	if err != nil {
		return q, err
	}
	if q, err = q.WithNamedSubquery("suppliers", supplierSubquery, "warehouses.supplier_id", "supplier_id", listquery.JoinLeft); err != nil {
		return q, err
	}
	return q.Select(warehouseColumns...).Filter(WarehouseFilters(f)...)
}

func quoteList(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = "'" + strings.ReplaceAll(v, "'", "''") + "'"
	}
	return strings.Join(quoted, ", ")
}

// WarehouseStatsExprs are the statistics columns. The suppliers balance is
// what was paid but not yet stocked minus what was stocked but not paid.
func WarehouseStatsExprs() []string {
	stocked := quoteList(entity.StockedStatuses)
	return []string{
		"COUNT(warehouses.id) AS items_count",
		"COALESCE(SUM(n.unit_price), 0) AS buying_price",
		"COALESCE(SUM(warehouses.remainder_price), 0) AS reminder_price",
		fmt.Sprintf("COALESCE(SUM(CASE WHEN warehouses.state NOT IN (%[1]s) AND warehouses.payment_date IS NOT NULL THEN n.unit_price ELSE 0 END), 0) - "+
			"COALESCE(SUM(CASE WHEN warehouses.state IN (%[1]s) AND warehouses.payment_date IS NULL THEN n.unit_price ELSE 0 END), 0) AS suppliers_balance",
			stocked),
	}
}

// SQLWarehouseRepository implements WarehouseRepository on database/sql.
type SQLWarehouseRepository struct {
	db *sql.DB
}

var _ WarehouseRepository = (*SQLWarehouseRepository)(nil)

// NewSQLWarehouseRepository wires a database/sql backed repository.
func NewSQLWarehouseRepository(db *sql.DB) *SQLWarehouseRepository {
	return &SQLWarehouseRepository{db: db}
}

// List returns one page of items plus statistics over every matching item.
func (r *SQLWarehouseRepository) List(ctx context.Context, filter dto.WarehouseFilter) (dto.WarehouseList, error) {
	var result dto.WarehouseList

	q, err := WarehouseListQuery(listquery.Postgres, filter)
	if err != nil {
		return result, err
	}

	querier := listquery.SQL(r.db)
	page, err := listquery.Finalize(ctx, querier, q, nil, filter.Page, scanWarehouseItem)
	if err != nil {
		return result, fmt.Errorf("list warehouse items: %w", err)
	}
	result.Warehouses = page

	stats, _, err := listquery.FetchOne(ctx, querier, q.Aggregate(WarehouseStatsExprs()...), scanWarehouseStats)
	if err != nil {
		return result, fmt.Errorf("warehouse stats: %w", err)
	}
	result.Stat = stats
	return result, nil
}

func scanWarehouseItem(rows listquery.Rows) (entity.WarehouseItem, error) {
	var w entity.WarehouseItem
	err := rows.Scan(
		&w.ID,
		&w.Number,
		&w.State,
		&w.ResponsibleID,
		&w.OrderDate,
		&w.DeliveryDate,
		&w.SupplierID,
		&w.SupplierTitle,
		&w.AccountNumber,
		&w.PaymentDate,
		&w.DocumentsStatus,
		&w.Entity,
		&w.Location,
		&w.Locker,
		&w.Shelf,
		&w.RemainderVolume,
		&w.RemainderSquare,
		&w.RemainderVolumeBeforeProd,
		&w.RemainderSquareBeforeProd,
		&w.RemainderPrice,
		&w.Comment,
		&w.WithdrawnDate,
		&w.NomenclatureID,
		&w.NomenclatureName,
		&w.NomenclatureUnit,
		&w.NomenclaturePrice,
		&w.NomenclatureQuantity,
		&w.DeletedAt,
	)
	return w, err
}

func scanWarehouseStats(rows listquery.Rows) (entity.WarehouseStats, error) {
	var s entity.WarehouseStats
	err := rows.Scan(&s.ItemsCount, &s.BuyingPrice, &s.ReminderPrice, &s.SuppliersBalance)
	return s, err
}

// WorkOrderLocation returns the location a work order is bound to.
func (r *SQLWarehouseRepository) WorkOrderLocation(ctx context.Context, workOrderID int64) (string, bool, error) {
	var location sql.NullString
	err := r.db.QueryRowContext(ctx, `SELECT location FROM work_orders WHERE id = $1`, workOrderID).Scan(&location)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("find work order: %w", listquery.ClassifyStorageError(err))
	}
	return location.String, location.Valid, nil
}

// numbered renders n positional placeholders starting at $start.
func numbered(start, n int) string {
	marks := make([]string, n)
	for i := range marks {
		marks[i] = fmt.Sprintf("$%d", start+i)
	}
	return strings.Join(marks, ", ")
}

func idArgs(lead []any, ids []int64) []any {
	args := append([]any(nil), lead...)
	for _, id := range ids {
		args = append(args, id)
	}
	return args
}

// Withdraw moves in-warehouse items to production under responsibleID and
// snapshots their remainders. Items in other states are skipped.
func (r *SQLWarehouseRepository) Withdraw(ctx context.Context, ids []int64, responsibleID int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query := fmt.Sprintf(`
        UPDATE warehouses SET
            state = $1,
            responsible_id = $2,
            remainder_volume_before_prod = remainder_volume,
            remainder_square_before_prod = remainder_square,
            withdrawn_date = NOW()
        WHERE state = $3 AND deleted_at IS NULL AND id IN (%s)
    `, numbered(4, len(ids)))
	args := idArgs([]any{entity.WarehouseProduction, responsibleID, entity.WarehouseInWarehouse}, ids)
	return r.moveWithResponsible(ctx, responsibleID, query, args)
}

// TakeFromProduction returns production items to the warehouse.
func (r *SQLWarehouseRepository) TakeFromProduction(ctx context.Context, ids []int64, responsibleID int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query := fmt.Sprintf(`
        UPDATE warehouses SET state = $1, responsible_id = $2
        WHERE state = $3 AND deleted_at IS NULL AND id IN (%s)
    `, numbered(4, len(ids)))
	args := idArgs([]any{entity.WarehouseInWarehouse, responsibleID, entity.WarehouseProduction}, ids)
	return r.moveWithResponsible(ctx, responsibleID, query, args)
}

func (r *SQLWarehouseRepository) moveWithResponsible(ctx context.Context, responsibleID int64, query string, args []any) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("start warehouse tx: %w", listquery.ClassifyStorageError(err))
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, responsibleID).Scan(&exists); err != nil {
		return 0, fmt.Errorf("find responsible: %w", listquery.ClassifyStorageError(err))
	}
	if !exists {
		return 0, ErrResponsibleNotFound
	}

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("move warehouse items: %w", listquery.ClassifyStorageError(err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("move warehouse items: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit warehouse tx: %w", listquery.ClassifyStorageError(err))
	}
	return affected, nil
}

// ChangeStatus sets the state of the given live items.
func (r *SQLWarehouseRepository) ChangeStatus(ctx context.Context, ids []int64, status string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query := fmt.Sprintf(`UPDATE warehouses SET state = $1 WHERE deleted_at IS NULL AND id IN (%s)`, numbered(2, len(ids)))
	res, err := r.db.ExecContext(ctx, query, idArgs([]any{status}, ids)...)
	if err != nil {
		return 0, fmt.Errorf("change warehouse status: %w", listquery.ClassifyStorageError(err))
	}
	return res.RowsAffected()
}
