package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/octobees/opsboard/internal/dto"
	"github.com/octobees/opsboard/internal/listquery"
	"github.com/octobees/opsboard/internal/service"
)

// WarehouseHandler exposes the warehouse grid and item moves.
type WarehouseHandler struct {
	service *service.WarehouseService
}

// NewWarehouseHandler creates a new handler instance.
func NewWarehouseHandler(service *service.WarehouseService) *WarehouseHandler {
	return &WarehouseHandler{service: service}
}

// List handles GET /warehouse.
func (h *WarehouseHandler) List(c echo.Context) error {
	filter, err := warehouseFilter(c)
	if err != nil {
		return writeError(c, "list warehouse", err)
	}
	list, err := h.service.List(c.Request().Context(), filter)
	if err != nil {
		return writeError(c, "list warehouse", err)
	}
	return Success(c, http.StatusOK, "warehouse retrieved", list)
}

func warehouseFilter(c echo.Context) (dto.WarehouseFilter, error) {
	params := c.QueryParams()
	filter := dto.WarehouseFilter{
		Search:     strings.TrimSpace(c.QueryParam("search")),
		Categories: splitList(append(params["category"], params["category[]"]...)),
		States:     splitList(params["state"]),
		Location:   strings.TrimSpace(c.QueryParam("location")),
		Company:    strings.TrimSpace(c.QueryParam("company")),
		Deleted:    strings.TrimSpace(c.QueryParam("deleted")),
	}

	var err error
	if filter.Page, err = parsePage(c); err != nil {
		return filter, err
	}
	if filter.Payment, err = intParam(c, "payment", 0, listquery.ErrInvalidFilterValue); err != nil {
		return filter, err
	}
	if filter.Supplier, err = optionalInt64(c, "supplier"); err != nil {
		return filter, err
	}
	if filter.WorkOrderID, err = optionalInt64(c, "work_order_id"); err != nil {
		return filter, err
	}
	if filter.ResponsibleID, err = optionalInt64(c, "responsible"); err != nil {
		return filter, err
	}
	if filter.RemainderPriceFrom, err = optionalFloat(c, "remainder_price_from"); err != nil {
		return filter, err
	}
	if filter.RemainderPriceTo, err = optionalFloat(c, "remainder_price_to"); err != nil {
		return filter, err
	}
	if filter.QuantityInPackFrom, err = optionalFloat(c, "nomenclature_quantity_in_package_from"); err != nil {
		return filter, err
	}
	if filter.QuantityInPackTo, err = optionalFloat(c, "nomenclature_quantity_in_package_to"); err != nil {
		return filter, err
	}
	if filter.OrderDateFrom, err = optionalDate(c, "order_date_from"); err != nil {
		return filter, err
	}
	if filter.OrderDateTo, err = optionalDate(c, "order_date_to"); err != nil {
		return filter, err
	}
	return filter, nil
}

// Withdraw handles POST /warehouse/withdraw.
func (h *WarehouseHandler) Withdraw(c echo.Context) error {
	var req dto.WithdrawRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "invalid request payload")
	}
	moved, err := h.service.Withdraw(c.Request().Context(), req)
	if err != nil {
		return writeError(c, "withdraw items", err)
	}
	return Success(c, http.StatusOK, "items withdrawn", map[string]int64{"updated": moved})
}

// TakeFromProduction handles POST /warehouse/take-from-production.
func (h *WarehouseHandler) TakeFromProduction(c echo.Context) error {
	var req dto.WithdrawRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "invalid request payload")
	}
	moved, err := h.service.TakeFromProduction(c.Request().Context(), req)
	if err != nil {
		return writeError(c, "take items from production", err)
	}
	return Success(c, http.StatusOK, "items returned to warehouse", map[string]int64{"updated": moved})
}

// ChangeStatus handles POST /warehouse/change-status.
func (h *WarehouseHandler) ChangeStatus(c echo.Context) error {
	var req dto.ChangeStatusRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "invalid request payload")
	}
	req.Status = strings.TrimSpace(req.Status)
	updated, err := h.service.ChangeStatus(c.Request().Context(), req)
	if err != nil {
		return writeError(c, "change item status", err)
	}
	return Success(c, http.StatusOK, "item status changed", map[string]int64{"updated": updated})
}

// Mine handles GET /warehouse/mine: the grid narrowed to the caller's items.
func (h *WarehouseHandler) Mine(c echo.Context) error {
	filter, err := warehouseFilter(c)
	if err != nil {
		return writeError(c, "list own warehouse items", err)
	}
	list, err := h.service.Mine(c.Request().Context(), actorFromContext(c), filter)
	if err != nil {
		return writeError(c, "list own warehouse items", err)
	}
	return Success(c, http.StatusOK, "warehouse retrieved", list)
}

// Card handles GET /warehouse/:id.
func (h *WarehouseHandler) Card(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return Error(c, http.StatusBadRequest, "invalid item id")
	}
	item, err := h.service.Card(c.Request().Context(), id)
	if err != nil {
		return writeError(c, "get warehouse item", err)
	}
	return Success(c, http.StatusOK, "warehouse item retrieved", item)
}

// Create handles POST /warehouse.
func (h *WarehouseHandler) Create(c echo.Context) error {
	var in dto.WarehouseItemInput
	if err := c.Bind(&in); err != nil {
		return Error(c, http.StatusBadRequest, "invalid request payload")
	}
	in.State = strings.TrimSpace(in.State)
	id, err := h.service.Create(c.Request().Context(), in)
	if err != nil {
		return writeError(c, "create warehouse item", err)
	}
	return Success(c, http.StatusCreated, "warehouse item created", map[string]int64{"id": id})
}

// Update handles PUT /warehouse/:id.
func (h *WarehouseHandler) Update(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return Error(c, http.StatusBadRequest, "invalid item id")
	}
	var in dto.WarehouseItemInput
	if err := c.Bind(&in); err != nil {
		return Error(c, http.StatusBadRequest, "invalid request payload")
	}
	in.State = strings.TrimSpace(in.State)
	if err := h.service.Update(c.Request().Context(), id, in); err != nil {
		return writeError(c, "update warehouse item", err)
	}
	return Success(c, http.StatusOK, "warehouse item updated", map[string]int64{"id": id})
}
