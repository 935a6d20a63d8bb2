package entity

import "time"

// Warehouse item states.
const (
	WarehouseOrdered     = "ordered"
	WarehouseInDelivery  = "in_delivery"
	WarehouseInWarehouse = "in_warehouse"
	WarehouseProduction  = "production"
	WarehouseClosed      = "closed"
	WarehouseWrittenOff  = "written_off"
)

// WarehouseStatuses lists every state an item may be moved to.
var WarehouseStatuses = []string{
	WarehouseOrdered,
	WarehouseInDelivery,
	WarehouseInWarehouse,
	WarehouseProduction,
	WarehouseClosed,
	WarehouseWrittenOff,
}

// StockedStatuses are the states of items physically received.
var StockedStatuses = []string{WarehouseInWarehouse, WarehouseProduction, WarehouseClosed}

// IsWarehouseStatus reports whether status is a known item state.
func IsWarehouseStatus(status string) bool {
	for _, s := range WarehouseStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// WarehouseItem is one stock position with its nomenclature.
type WarehouseItem struct {
	ID                        int64      `json:"id"`
	Number                    *string    `json:"number"`
	State                     string     `json:"state"`
	ResponsibleID             *int64     `json:"responsible_id"`
	OrderDate                 *time.Time `json:"order_date"`
	DeliveryDate              *time.Time `json:"delivery_date"`
	SupplierID                *int64     `json:"supplier"`
	SupplierTitle             *string    `json:"supplier_title"`
	AccountNumber             *string    `json:"account_number"`
	PaymentDate               *time.Time `json:"payment_date"`
	DocumentsStatus           *string    `json:"documents_status"`
	Entity                    *string    `json:"entity"`
	Location                  *string    `json:"location"`
	Locker                    *string    `json:"locker"`
	Shelf                     *string    `json:"shelf"`
	RemainderVolume           *float64   `json:"remainder_volume"`
	RemainderSquare           *float64   `json:"remainder_square"`
	RemainderVolumeBeforeProd *float64   `json:"remainder_volume_before_prod"`
	RemainderSquareBeforeProd *float64   `json:"remainder_square_before_prod"`
	RemainderPrice            *float64   `json:"remainder_price"`
	Comment                   *string    `json:"comment"`
	WithdrawnDate             *time.Time `json:"withdrawn_date"`
	NomenclatureID            int64      `json:"nomenclature_id"`
	NomenclatureName          *string    `json:"nomenclature_name"`
	NomenclatureUnit          *string    `json:"nomenclature_unit"`
	NomenclaturePrice         *float64   `json:"nomenclature_price_per_package"`
	NomenclatureQuantity      *float64   `json:"nomenclature_quantity_in_package"`
	DeletedAt                 *time.Time `json:"deleted_at"`
}

// WarehouseStats summarises the filtered item set.
type WarehouseStats struct {
	ItemsCount       int64   `json:"items_count"`
	BuyingPrice      float64 `json:"buying_price"`
	ReminderPrice    float64 `json:"reminder_price"`
	SuppliersBalance float64 `json:"suppliers_balance"`
}
