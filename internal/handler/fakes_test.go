package handler

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/octobees/opsboard/internal/config"
	"github.com/octobees/opsboard/internal/dto"
	"github.com/octobees/opsboard/internal/entity"
	"github.com/octobees/opsboard/internal/listquery"
)

var testPaging = config.PagingConfig{Tasks: 50, Contractors: 15, Warehouse: 50, Max: 100}

type tasksRepoForHandler struct {
	list         func(ctx context.Context, filter dto.TaskListFilter) (listquery.Page[entity.Task], error)
	find         func(ctx context.Context, id uuid.UUID) (*entity.Task, error)
	copyTask     func(ctx context.Context, id uuid.UUID, rename func(string) string) (dto.TaskCopyResult, error)
	updateStatus func(ctx context.Context, id uuid.UUID, status string) error
	deleteTasks  func(ctx context.Context, ids []uuid.UUID) (int64, error)
	get          func(ctx context.Context, id uuid.UUID) (*entity.TaskDetail, error)
	findObject   func(ctx context.Context, id uuid.UUID) (*entity.TaskObject, error)
	create       func(ctx context.Context, draft dto.TaskDraft) (uuid.UUID, error)
	update       func(ctx context.Context, taskID int64, draft dto.TaskDraft) error
	setWorks     func(ctx context.Context, taskID int64, works []dto.TaskWorkInput) error
	setContacts  func(ctx context.Context, taskID int64, contacts []dto.TaskContactInput) error
	setDispatch  func(ctx context.Context, taskID int64, dispatchers []uuid.UUID) (int64, error)
}

func (r *tasksRepoForHandler) List(ctx context.Context, filter dto.TaskListFilter) (listquery.Page[entity.Task], error) {
	if r.list != nil {
		return r.list(ctx, filter)
	}
	return listquery.Page[entity.Task]{}, errors.New("not implemented")
}

func (r *tasksRepoForHandler) FindByUUID(ctx context.Context, id uuid.UUID) (*entity.Task, error) {
	if r.find != nil {
		return r.find(ctx, id)
	}
	return nil, errors.New("not implemented")
}

func (r *tasksRepoForHandler) Copy(ctx context.Context, id uuid.UUID, rename func(string) string) (dto.TaskCopyResult, error) {
	if r.copyTask != nil {
		return r.copyTask(ctx, id, rename)
	}
	return dto.TaskCopyResult{}, errors.New("not implemented")
}

func (r *tasksRepoForHandler) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	if r.updateStatus != nil {
		return r.updateStatus(ctx, id, status)
	}
	return errors.New("not implemented")
}

func (r *tasksRepoForHandler) Delete(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if r.deleteTasks != nil {
		return r.deleteTasks(ctx, ids)
	}
	return 0, errors.New("not implemented")
}

func (r *tasksRepoForHandler) Get(ctx context.Context, id uuid.UUID) (*entity.TaskDetail, error) {
	if r.get != nil {
		return r.get(ctx, id)
	}
	return nil, errors.New("not implemented")
}

func (r *tasksRepoForHandler) FindObject(ctx context.Context, id uuid.UUID) (*entity.TaskObject, error) {
	if r.findObject != nil {
		return r.findObject(ctx, id)
	}
	return nil, errors.New("not implemented")
}

func (r *tasksRepoForHandler) Works(ctx context.Context, taskID int64) ([]entity.TaskWork, error) {
	return []entity.TaskWork{}, nil
}

func (r *tasksRepoForHandler) Create(ctx context.Context, draft dto.TaskDraft) (uuid.UUID, error) {
	if r.create != nil {
		return r.create(ctx, draft)
	}
	return uuid.Nil, errors.New("not implemented")
}

func (r *tasksRepoForHandler) Update(ctx context.Context, taskID int64, draft dto.TaskDraft) error {
	if r.update != nil {
		return r.update(ctx, taskID, draft)
	}
	return errors.New("not implemented")
}

func (r *tasksRepoForHandler) SetWorks(ctx context.Context, taskID int64, works []dto.TaskWorkInput) error {
	if r.setWorks != nil {
		return r.setWorks(ctx, taskID, works)
	}
	return errors.New("not implemented")
}

func (r *tasksRepoForHandler) SetContacts(ctx context.Context, taskID int64, contacts []dto.TaskContactInput) error {
	if r.setContacts != nil {
		return r.setContacts(ctx, taskID, contacts)
	}
	return errors.New("not implemented")
}

func (r *tasksRepoForHandler) SetDispatchers(ctx context.Context, taskID int64, dispatchers []uuid.UUID) (int64, error) {
	if r.setDispatch != nil {
		return r.setDispatch(ctx, taskID, dispatchers)
	}
	return 0, errors.New("not implemented")
}

type contractorsRepoForHandler struct {
	listInTask   func(ctx context.Context, filter dto.ContractorListFilter) (listquery.Page[entity.Contractor], error)
	searchNearby func(ctx context.Context, filter dto.ContractorSearchFilter) (listquery.Page[entity.Contractor], error)
}

func (r *contractorsRepoForHandler) ListInTask(ctx context.Context, filter dto.ContractorListFilter) (listquery.Page[entity.Contractor], error) {
	if r.listInTask != nil {
		return r.listInTask(ctx, filter)
	}
	return listquery.Page[entity.Contractor]{}, errors.New("not implemented")
}

func (r *contractorsRepoForHandler) SearchNearby(ctx context.Context, filter dto.ContractorSearchFilter) (listquery.Page[entity.Contractor], error) {
	if r.searchNearby != nil {
		return r.searchNearby(ctx, filter)
	}
	return listquery.Page[entity.Contractor]{}, errors.New("not implemented")
}

type warehouseRepoForHandler struct {
	list         func(ctx context.Context, filter dto.WarehouseFilter) (dto.WarehouseList, error)
	location     func(ctx context.Context, id int64) (string, bool, error)
	withdraw     func(ctx context.Context, ids []int64, responsibleID int64) (int64, error)
	take         func(ctx context.Context, ids []int64, responsibleID int64) (int64, error)
	changeStatus func(ctx context.Context, ids []int64, status string) (int64, error)
	create       func(ctx context.Context, in dto.WarehouseItemInput) (int64, error)
	update       func(ctx context.Context, id int64, in dto.WarehouseItemInput) error
	card         func(ctx context.Context, id int64) (*entity.WarehouseItem, error)
}

func (r *warehouseRepoForHandler) List(ctx context.Context, filter dto.WarehouseFilter) (dto.WarehouseList, error) {
	if r.list != nil {
		return r.list(ctx, filter)
	}
	return dto.WarehouseList{}, errors.New("not implemented")
}

func (r *warehouseRepoForHandler) WorkOrderLocation(ctx context.Context, id int64) (string, bool, error) {
	if r.location != nil {
		return r.location(ctx, id)
	}
	return "", false, nil
}

func (r *warehouseRepoForHandler) Withdraw(ctx context.Context, ids []int64, responsibleID int64) (int64, error) {
	if r.withdraw != nil {
		return r.withdraw(ctx, ids, responsibleID)
	}
	return 0, errors.New("not implemented")
}

func (r *warehouseRepoForHandler) TakeFromProduction(ctx context.Context, ids []int64, responsibleID int64) (int64, error) {
	if r.take != nil {
		return r.take(ctx, ids, responsibleID)
	}
	return 0, errors.New("not implemented")
}

func (r *warehouseRepoForHandler) ChangeStatus(ctx context.Context, ids []int64, status string) (int64, error) {
	if r.changeStatus != nil {
		return r.changeStatus(ctx, ids, status)
	}
	return 0, errors.New("not implemented")
}

func (r *warehouseRepoForHandler) Create(ctx context.Context, in dto.WarehouseItemInput) (int64, error) {
	if r.create != nil {
		return r.create(ctx, in)
	}
	return 0, errors.New("not implemented")
}

func (r *warehouseRepoForHandler) Update(ctx context.Context, id int64, in dto.WarehouseItemInput) error {
	if r.update != nil {
		return r.update(ctx, id, in)
	}
	return errors.New("not implemented")
}

func (r *warehouseRepoForHandler) Card(ctx context.Context, id int64) (*entity.WarehouseItem, error) {
	if r.card != nil {
		return r.card(ctx, id)
	}
	return nil, errors.New("not implemented")
}
