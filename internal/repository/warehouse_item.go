package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/octobees/opsboard/internal/dto"
	"github.com/octobees/opsboard/internal/entity"
	"github.com/octobees/opsboard/internal/listquery"
)

const (
	nomenclatureForItemSQL = `SELECT quantity_in_pack, unit_price FROM nomenclatures WHERE id = $1`

	insertWarehouseItemSQL = `
        INSERT INTO warehouses (nomenclature_id, supplier_id, state, order_date, delivery_date, payment_date,
            account_number, documents_status, entity, location, locker, shelf, comment,
            remainder_volume, remainder_square, purchase_price, remainder_price)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14, $15, $15)
        RETURNING id
    `

	updateWarehouseItemSQL = `
        UPDATE warehouses SET
            supplier_id = $1,
            state = $2,
            order_date = $3,
            delivery_date = $4,
            payment_date = $5,
            account_number = $6,
            documents_status = $7,
            entity = $8,
            location = $9,
            locker = $10,
            shelf = $11,
            comment = $12
        WHERE id = $13 AND deleted_at IS NULL
    `
)

// Create stores a new item. Remainders start at one full pack priced at the
// nomenclature's unit price.
func (r *SQLWarehouseRepository) Create(ctx context.Context, in dto.WarehouseItemInput) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("start warehouse tx: %w", listquery.ClassifyStorageError(err))
	}
	defer tx.Rollback()

	var quantity, price sql.NullFloat64
	err = tx.QueryRowContext(ctx, nomenclatureForItemSQL, in.NomenclatureID).Scan(&quantity, &price)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %d", ErrNomenclatureNotFound, in.NomenclatureID)
	}
	if err != nil {
		return 0, fmt.Errorf("find nomenclature: %w", listquery.ClassifyStorageError(err))
	}

	var id int64
	err = tx.QueryRowContext(ctx, insertWarehouseItemSQL,
		in.NomenclatureID, in.SupplierID, in.State,
		in.OrderDate.Ptr(), in.DeliveryDate.Ptr(), in.PaymentDate.Ptr(),
		in.AccountNumber, in.DocumentsStatus, in.Entity, in.Location, in.Locker, in.Shelf, in.Comment,
		quantity.Float64, price.Float64,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert warehouse item: %w", listquery.ClassifyStorageError(err))
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit warehouse tx: %w", listquery.ClassifyStorageError(err))
	}
	return id, nil
}

// Update rewrites the editable fields of a live item.
func (r *SQLWarehouseRepository) Update(ctx context.Context, id int64, in dto.WarehouseItemInput) error {
	res, err := r.db.ExecContext(ctx, updateWarehouseItemSQL,
		in.SupplierID, in.State,
		in.OrderDate.Ptr(), in.DeliveryDate.Ptr(), in.PaymentDate.Ptr(),
		in.AccountNumber, in.DocumentsStatus, in.Entity, in.Location, in.Locker, in.Shelf, in.Comment,
		id,
	)
	if err != nil {
		return fmt.Errorf("update warehouse item: %w", listquery.ClassifyStorageError(err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update warehouse item: %w", err)
	}
	if affected == 0 {
		return ErrWarehouseItemNotFound
	}
	return nil
}

// Card loads one item, removed or not, through the grid query so it carries
// the same joined columns as a list row.
func (r *SQLWarehouseRepository) Card(ctx context.Context, id int64) (*entity.WarehouseItem, error) {
	q, err := WarehouseListQuery(listquery.Postgres, dto.WarehouseFilter{ID: &id, Deleted: dto.DeletedAll})
	if err != nil {
		return nil, err
	}
	st, err := q.Unpaged(nil)
	if err != nil {
		return nil, err
	}
	item, ok, err := listquery.FetchOne(ctx, listquery.SQL(r.db), st, scanWarehouseItem)
	if err != nil {
		return nil, fmt.Errorf("warehouse card: %w", err)
	}
	if !ok {
		return nil, ErrWarehouseItemNotFound
	}
	return &item, nil
}
