package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/octobees/opsboard/internal/dto"
	"github.com/octobees/opsboard/internal/entity"
	"github.com/octobees/opsboard/internal/repository"
)

var (
	// ErrInvalidInput indicates a create or update body that fails validation.
	ErrInvalidInput = errors.New("invalid input")
	// ErrObjectChange indicates an update that moves a task to another object.
	ErrObjectChange = errors.New("task object cannot be changed")
)

// Get returns the task card. Every call counts as a view.
func (s *TasksService) Get(ctx context.Context, taskID uuid.UUID) (*entity.TaskDetail, error) {
	return s.tasks.Get(ctx, taskID)
}

// Create stores a new task on in.Object authored by actor.
func (s *TasksService) Create(ctx context.Context, actor Actor, in dto.TaskInput) (uuid.UUID, error) {
	if err := validateTaskInput(in); err != nil {
		return uuid.Nil, err
	}
	object, err := s.tasks.FindObject(ctx, in.Object)
	if err != nil {
		return uuid.Nil, err
	}
	draft, err := s.draft(in, object, nil)
	if err != nil {
		return uuid.Nil, err
	}
	draft.AuthorID = actor.UserID
	draft.SpecializationID = object.SpecializationID
	draft.City = object.City
	draft.Dispatchers = in.Dispatchers
	draft.Contacts = s.contacts(in.Contacts)
	s.locate(ctx, object, &draft, in.RequestID)
	return s.tasks.Create(ctx, draft)
}

// Update rewrites the task. Works are replaced only when in carries them;
// the object may not change.
func (s *TasksService) Update(ctx context.Context, taskID uuid.UUID, in dto.TaskInput) error {
	if err := validateTaskInput(in); err != nil {
		return err
	}
	task, err := s.tasks.FindByUUID(ctx, taskID)
	if err != nil {
		return err
	}
	object, err := s.tasks.FindObject(ctx, in.Object)
	if err != nil {
		return err
	}
	if task.ObjectID == nil || *task.ObjectID != object.ID {
		return ErrObjectChange
	}

	var current []entity.TaskWork
	if in.Works == nil {
		if current, err = s.tasks.Works(ctx, task.ID); err != nil {
			return err
		}
	}
	draft, err := s.draft(in, object, current)
	if err != nil {
		return err
	}
	return s.tasks.Update(ctx, task.ID, draft)
}

// SetWorks replaces the professions requested by the task.
func (s *TasksService) SetWorks(ctx context.Context, taskID uuid.UUID, works []dto.TaskWorkInput) error {
	if len(works) == 0 {
		return ErrEmptySelection
	}
	if err := validateWorks(works); err != nil {
		return err
	}
	task, err := s.tasks.FindByUUID(ctx, taskID)
	if err != nil {
		return err
	}
	return s.tasks.SetWorks(ctx, task.ID, works)
}

// SetContacts replaces the contact persons of the task. An empty list clears
// them.
func (s *TasksService) SetContacts(ctx context.Context, taskID uuid.UUID, contacts []dto.TaskContactInput) error {
	if err := validateContacts(contacts); err != nil {
		return err
	}
	task, err := s.tasks.FindByUUID(ctx, taskID)
	if err != nil {
		return err
	}
	return s.tasks.SetContacts(ctx, task.ID, s.contacts(contacts))
}

// SetDispatchers replaces the dispatchers of the task and returns how many
// were assigned.
func (s *TasksService) SetDispatchers(ctx context.Context, taskID uuid.UUID, dispatchers []uuid.UUID) (int64, error) {
	task, err := s.tasks.FindByUUID(ctx, taskID)
	if err != nil {
		return 0, err
	}
	return s.tasks.SetDispatchers(ctx, task.ID, dispatchers)
}

func validateTaskInput(in dto.TaskInput) error {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	case in.Object == uuid.Nil:
		return fmt.Errorf("%w: object is required", ErrInvalidInput)
	case in.StartDate.IsZero() || in.EndDate.IsZero():
		return fmt.Errorf("%w: start_date and end_date are required", ErrInvalidInput)
	case in.EndDate.Before(in.StartDate.Time):
		return fmt.Errorf("%w: end_date is before start_date", ErrInvalidInput)
	case in.Shift != "" && in.Shift != entity.ShiftDay && in.Shift != entity.ShiftNight:
		return fmt.Errorf("%w: shift %q", ErrInvalidInput, in.Shift)
	}
	if err := validateWorks(in.Works); err != nil {
		return err
	}
	return validateContacts(in.Contacts)
}

func validateWorks(works []dto.TaskWorkInput) error {
	for _, w := range works {
		if w.UUID == uuid.Nil || w.RequiresPeople <= 0 {
			return fmt.Errorf("%w: work needs uuid and requires_people > 0", ErrInvalidInput)
		}
	}
	return nil
}

func validateContacts(contacts []dto.TaskContactInput) error {
	for _, c := range contacts {
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("%w: contact name is required", ErrInvalidInput)
		}
	}
	return nil
}

// draft builds the row for in. The system name is taken from the first of
// in.Works, or of current when in carries none.
func (s *TasksService) draft(in dto.TaskInput, object *entity.TaskObject, current []entity.TaskWork) (dto.TaskDraft, error) {
	first := ""
	for i, w := range in.Works {
		work, ok := object.Work(w.UUID)
		if !ok {
			return dto.TaskDraft{}, fmt.Errorf("%w: %s", repository.ErrWorkNotFound, w.UUID)
		}
		if i == 0 {
			first = work.Name
		}
	}
	if in.Works == nil && len(current) > 0 {
		first = current[0].Name
	}

	until := in.UntilDate.Time
	if until.IsZero() {
		until = in.EndDate.Time
	}
	shift := in.Shift
	if shift == "" {
		shift = defaultShift(in.StartDate.Time, in.EndDate.Time)
	}

	return dto.TaskDraft{
		ObjectID:    object.ID,
		Name:        strings.TrimSpace(in.Name),
		SystemName:  systemName(in.StartDate.Time, first, object.Code),
		Description: in.Description,
		Region:      in.Region,
		City:        in.City,
		Scheme:      in.Scheme,
		Shift:       shift,
		StartDate:   in.StartDate.Time,
		EndDate:     in.EndDate.Time,
		UntilDate:   until,
		Works:       in.Works,
	}, nil
}

// systemName is the dispatcher-facing label: start day, first work, object code.
func systemName(start time.Time, work, code string) string {
	parts := []string{start.Format("02.01")}
	if work != "" {
		parts = append(parts, work)
	}
	if code != "" {
		parts = append(parts, code)
	}
	return strings.Join(parts, " ")
}

func defaultShift(start, end time.Time) string {
	if start.Year() == end.Year() && start.YearDay() == end.YearDay() {
		return entity.ShiftDay
	}
	return entity.ShiftNight
}

// contacts trims names and stores valid phones in E.164; other phones are
// kept as typed. nil stays nil.
func (s *TasksService) contacts(in []dto.TaskContactInput) []dto.TaskContactInput {
	if in == nil {
		return nil
	}
	out := make([]dto.TaskContactInput, len(in))
	for i, c := range in {
		c.Name = strings.TrimSpace(c.Name)
		if c.Phone != nil {
			phone := strings.TrimSpace(*c.Phone)
			if e164 := normalizePhone(phone, s.opts.PhoneRegion); e164 != "" {
				phone = e164
			}
			c.Phone = &phone
		}
		out[i] = c
	}
	return out
}

// locate geocodes the object's address onto the draft. A failed lookup
// leaves the task without coordinates.
func (s *TasksService) locate(ctx context.Context, object *entity.TaskObject, draft *dto.TaskDraft, requestID string) {
	if s.locator == nil || object.Address == nil || strings.TrimSpace(*object.Address) == "" {
		return
	}
	loc, err := s.locator.Locate(ctx, *object.Address, requestID)
	if err != nil {
		log.Printf("geocode object failed request_id=%s object=%s err=%v", requestID, object.UUID, err)
		return
	}
	draft.Lat, draft.Lon = &loc.Lat, &loc.Lon
	if loc.Region != "" {
		region := loc.Region
		draft.Region = &region
	}
	if draft.Scheme == nil {
		draft.Scheme = object.Address
	}
}
