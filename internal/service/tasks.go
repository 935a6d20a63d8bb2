package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/octobees/opsboard/internal/config"
	"github.com/octobees/opsboard/internal/dto"
	"github.com/octobees/opsboard/internal/entity"
	"github.com/octobees/opsboard/internal/geocode"
	"github.com/octobees/opsboard/internal/listquery"
	"github.com/octobees/opsboard/internal/repository"
)

var (
	// ErrInvalidStatus indicates a status outside the known set.
	ErrInvalidStatus = errors.New("invalid status")
	// ErrUnknownStage indicates a contractor grid that does not exist.
	ErrUnknownStage = errors.New("unknown contractor stage")
	// ErrEmptySelection indicates a bulk operation without identifiers.
	ErrEmptySelection = errors.New("no items selected")
	// ErrLocationUnknown indicates the search has no reference point.
	ErrLocationUnknown = errors.New("task location is unknown")
)

// TasksOptions carries the tunables of TasksService.
type TasksOptions struct {
	Paging      config.PagingConfig
	RadiusKm    float64
	PhoneRegion string
}

// TasksService implements the task grid, contractor grids and task commands.
type TasksService struct {
	tasks       repository.TasksRepository
	contractors repository.ContractorsRepository
	locator     geocode.Locator
	opts        TasksOptions
}

// NewTasksService wires the service. locator may be nil, in which case tasks
// without coordinates cannot be searched around.
func NewTasksService(tasks repository.TasksRepository, contractors repository.ContractorsRepository, locator geocode.Locator, opts TasksOptions) *TasksService {
	if opts.PhoneRegion == "" {
		opts.PhoneRegion = defaultPhoneRegion
	}
	return &TasksService{tasks: tasks, contractors: contractors, locator: locator, opts: opts}
}

// List returns one page of the task grid as seen by actor.
func (s *TasksService) List(ctx context.Context, actor Actor, filter dto.TaskListFilter) (listquery.Page[entity.Task], error) {
	filter.Page = filter.Page.Normalize(s.opts.Paging.Tasks, s.opts.Paging.Max)
	filter.DispatcherID = nil
	if actor.IsDispatcher() {
		id := actor.UserID
		filter.DispatcherID = &id
	}
	return s.tasks.List(ctx, filter)
}

// Stage returns one contractor grid of the task.
func (s *TasksService) Stage(ctx context.Context, taskID uuid.UUID, req dto.ContractorStageRequest) (listquery.Page[entity.Contractor], error) {
	statuses := req.Stage.Statuses()
	if len(statuses) == 0 {
		return listquery.Page[entity.Contractor]{}, fmt.Errorf("%w: %q", ErrUnknownStage, req.Stage)
	}
	sort, err := settingsSort(req.Settings)
	if err != nil {
		return listquery.Page[entity.Contractor]{}, err
	}

	task, err := s.tasks.FindByUUID(ctx, taskID)
	if err != nil {
		return listquery.Page[entity.Contractor]{}, err
	}

	return s.contractors.ListInTask(ctx, dto.ContractorListFilter{
		TaskID:       task.ID,
		ObjectID:     task.ObjectID,
		Statuses:     statuses,
		Professions:  req.Professions,
		Filters:      req.Settings.Filters,
		SearchColumn: strings.TrimSpace(req.Settings.Search),
		Terms:        searchTerms(req.Settings.Value, s.opts.PhoneRegion),
		Sort:         sort,
		Page:         req.Page.Normalize(s.opts.Paging.Contractors, s.opts.Paging.Max),
	})
}

// SearchContractors returns contractors around the task who are not yet
// attached to it.
func (s *TasksService) SearchContractors(ctx context.Context, taskID uuid.UUID, req dto.ContractorSearchRequest) (listquery.Page[entity.Contractor], error) {
	sort, err := settingsSort(req.Settings)
	if err != nil {
		return listquery.Page[entity.Contractor]{}, err
	}
	radius := s.opts.RadiusKm
	if req.RadiusKm != nil {
		radius = *req.RadiusKm
	}

	task, err := s.tasks.FindByUUID(ctx, taskID)
	if err != nil {
		return listquery.Page[entity.Contractor]{}, err
	}
	origin, err := s.origin(ctx, task, req)
	if err != nil {
		return listquery.Page[entity.Contractor]{}, err
	}

	return s.contractors.SearchNearby(ctx, dto.ContractorSearchFilter{
		TaskID:      task.ID,
		Origin:      origin,
		RadiusKm:    radius,
		Professions: req.Professions,
		Filters:     req.Settings.Filters,
		Terms:       searchTerms(req.Settings.Value, s.opts.PhoneRegion),
		Sort:        sort,
		Page:        req.Page.Normalize(s.opts.Paging.Contractors, s.opts.Paging.Max),
	})
}

func (s *TasksService) origin(ctx context.Context, task *entity.Task, req dto.ContractorSearchRequest) (listquery.Point, error) {
	if task.HasLocation() {
		return listquery.Point{Lat: *task.Latitude, Lon: *task.Longitude}, nil
	}
	region := strings.TrimSpace(req.Region)
	if region == "" && task.Region != nil {
		region = *task.Region
	}
	if region == "" || s.locator == nil {
		return listquery.Point{}, ErrLocationUnknown
	}
	loc, err := s.locator.Locate(ctx, region, req.RequestID)
	if err != nil {
		if errors.Is(err, geocode.ErrNotFound) {
			return listquery.Point{}, fmt.Errorf("%w: %q", ErrLocationUnknown, region)
		}
		return listquery.Point{}, fmt.Errorf("geocode %q: %w", region, err)
	}
	return loc.Point(), nil
}

func settingsSort(settings dto.ContractorSettings) (*listquery.SortSpec, error) {
	key := strings.TrimSpace(settings.Sort)
	if key == "" {
		return nil, nil
	}
	dir, err := listquery.ParseDirection(settings.Order, listquery.Asc)
	if err != nil {
		return nil, err
	}
	return &listquery.SortSpec{Key: key, Direction: dir}, nil
}

// Copy duplicates the task under a derived name.
func (s *TasksService) Copy(ctx context.Context, taskID uuid.UUID) (dto.TaskCopyResult, error) {
	return s.tasks.Copy(ctx, taskID, CopyName)
}

// UpdateStatus moves the task to status.
func (s *TasksService) UpdateStatus(ctx context.Context, taskID uuid.UUID, status string) error {
	if !entity.IsTaskStatus(status) {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	return s.tasks.UpdateStatus(ctx, taskID, status)
}

// Delete removes the given tasks.
func (s *TasksService) Delete(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, ErrEmptySelection
	}
	return s.tasks.Delete(ctx, ids)
}
