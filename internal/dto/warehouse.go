package dto

import (
	"time"

	"github.com/octobees/opsboard/internal/entity"
	"github.com/octobees/opsboard/internal/listquery"
)

// Soft-delete visibility modes of the warehouse list.
const (
	DeletedActual = "actual"
	DeletedAll    = "all"
	DeletedOnly   = "deleted"
)

// Payment filter values.
const (
	PaymentPaid   = 1
	PaymentUnpaid = 2
)

// WarehouseFilter carries the warehouse list query parameters.
type WarehouseFilter struct {
	Search             string
	Categories         []string
	States             []string
	Supplier           *int64
	Location           string
	WorkOrderID        *int64
	Company            string
	RemainderPriceFrom *float64
	RemainderPriceTo   *float64
	QuantityInPackFrom *float64
	QuantityInPackTo   *float64
	Payment            int
	OrderDateFrom      *time.Time
	OrderDateTo        *time.Time
	Deleted            string
	ResponsibleID      *int64
	// ID narrows the grid to one item.
	ID   *int64
	Page listquery.PageSpec
}

// WarehouseList is the warehouse grid together with its statistics block.
type WarehouseList struct {
	Warehouses listquery.Page[entity.WarehouseItem] `json:"warehouses"`
	Stat       entity.WarehouseStats                `json:"stat"`
}

// WithdrawRequest moves items between the warehouse and production.
type WithdrawRequest struct {
	IDs           []int64 `json:"ids"`
	ResponsibleID int64   `json:"responsible_id"`
}

// ChangeStatusRequest sets the state of several items.
type ChangeStatusRequest struct {
	IDs    []int64 `json:"ids"`
	Status string  `json:"status"`
}

// WarehouseItemInput is the body of item create and update. NomenclatureID
// is only read on create.
type WarehouseItemInput struct {
	NomenclatureID  int64   `json:"nomenclature_id"`
	SupplierID      *int64  `json:"supplier_id"`
	State           string  `json:"state"`
	OrderDate       Date    `json:"order_date"`
	DeliveryDate    Date    `json:"delivery_date"`
	PaymentDate     Date    `json:"payment_date"`
	AccountNumber   *string `json:"account_number"`
	DocumentsStatus *string `json:"documents_status"`
	Entity          *string `json:"entity"`
	Location        *string `json:"location"`
	Locker          *string `json:"locker"`
	Shelf           *string `json:"shelf"`
	Comment         *string `json:"comment"`
}
