package service

import (
	"context"
	"fmt"
	"time"

	"github.com/octobees/opsboard/internal/config"
	"github.com/octobees/opsboard/internal/dto"
	"github.com/octobees/opsboard/internal/entity"
	"github.com/octobees/opsboard/internal/listquery"
	"github.com/octobees/opsboard/internal/repository"
)

// WarehouseService implements the warehouse grid and bulk item moves.
type WarehouseService struct {
	repo   repository.WarehouseRepository
	paging config.PagingConfig
}

// NewWarehouseService wires the service.
func NewWarehouseService(repo repository.WarehouseRepository, paging config.PagingConfig) *WarehouseService {
	return &WarehouseService{repo: repo, paging: paging}
}

// List validates filter and returns the item page with its statistics.
func (s *WarehouseService) List(ctx context.Context, filter dto.WarehouseFilter) (dto.WarehouseList, error) {
	switch filter.Deleted {
	case "":
		filter.Deleted = dto.DeletedActual
	case dto.DeletedActual, dto.DeletedAll, dto.DeletedOnly:
	default:
		return dto.WarehouseList{}, fmt.Errorf("%w: deleted %q", listquery.ErrInvalidFilterValue, filter.Deleted)
	}
	switch filter.Payment {
	case 0, dto.PaymentPaid, dto.PaymentUnpaid:
	default:
		return dto.WarehouseList{}, fmt.Errorf("%w: payment %d", listquery.ErrInvalidFilterValue, filter.Payment)
	}
	for _, state := range filter.States {
		if !entity.IsWarehouseStatus(state) {
			return dto.WarehouseList{}, fmt.Errorf("%w: state %q", listquery.ErrInvalidFilterValue, state)
		}
	}

	if filter.OrderDateFrom != nil {
		from := startOfDay(*filter.OrderDateFrom)
		filter.OrderDateFrom = &from
	}
	if filter.OrderDateTo != nil {
		to := endOfDay(*filter.OrderDateTo)
		filter.OrderDateTo = &to
	}

	if filter.WorkOrderID != nil {
		location, ok, err := s.repo.WorkOrderLocation(ctx, *filter.WorkOrderID)
		if err != nil {
			return dto.WarehouseList{}, err
		}
		if ok {
			filter.Location = location
		}
	}

	filter.Page = filter.Page.Normalize(s.paging.Warehouse, s.paging.Max)
	return s.repo.List(ctx, filter)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, 0, t.Location())
}

// Withdraw moves in-warehouse items to production.
func (s *WarehouseService) Withdraw(ctx context.Context, req dto.WithdrawRequest) (int64, error) {
	if err := validateMove(req); err != nil {
		return 0, err
	}
	return s.repo.Withdraw(ctx, req.IDs, req.ResponsibleID)
}

// TakeFromProduction returns production items to the warehouse.
func (s *WarehouseService) TakeFromProduction(ctx context.Context, req dto.WithdrawRequest) (int64, error) {
	if err := validateMove(req); err != nil {
		return 0, err
	}
	return s.repo.TakeFromProduction(ctx, req.IDs, req.ResponsibleID)
}

func validateMove(req dto.WithdrawRequest) error {
	if len(req.IDs) == 0 {
		return ErrEmptySelection
	}
	if req.ResponsibleID <= 0 {
		return fmt.Errorf("%w: responsible_id is required", listquery.ErrInvalidFilterValue)
	}
	return nil
}

// ChangeStatus sets the state of the given items.
func (s *WarehouseService) ChangeStatus(ctx context.Context, req dto.ChangeStatusRequest) (int64, error) {
	if len(req.IDs) == 0 {
		return 0, ErrEmptySelection
	}
	if !entity.IsWarehouseStatus(req.Status) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidStatus, req.Status)
	}
	return s.repo.ChangeStatus(ctx, req.IDs, req.Status)
}

// Mine lists the live items the actor is responsible for.
func (s *WarehouseService) Mine(ctx context.Context, actor Actor, filter dto.WarehouseFilter) (dto.WarehouseList, error) {
	id := actor.UserID
	filter.ResponsibleID = &id
	filter.Deleted = dto.DeletedActual
	return s.List(ctx, filter)
}

// Card returns one item, including removed ones.
func (s *WarehouseService) Card(ctx context.Context, id int64) (*entity.WarehouseItem, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: id %d", ErrInvalidInput, id)
	}
	return s.repo.Card(ctx, id)
}

// Create stores a new item. The state defaults to ordered.
func (s *WarehouseService) Create(ctx context.Context, in dto.WarehouseItemInput) (int64, error) {
	if in.NomenclatureID <= 0 {
		return 0, fmt.Errorf("%w: nomenclature_id is required", ErrInvalidInput)
	}
	if in.State == "" {
		in.State = entity.WarehouseOrdered
	}
	if !entity.IsWarehouseStatus(in.State) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidStatus, in.State)
	}
	return s.repo.Create(ctx, in)
}

// Update rewrites the editable fields of a live item.
func (s *WarehouseService) Update(ctx context.Context, id int64, in dto.WarehouseItemInput) error {
	if id <= 0 {
		return fmt.Errorf("%w: id %d", ErrInvalidInput, id)
	}
	if !entity.IsWarehouseStatus(in.State) {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, in.State)
	}
	return s.repo.Update(ctx, id, in)
}
