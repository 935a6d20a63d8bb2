package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/octobees/opsboard/internal/dto"
	"github.com/octobees/opsboard/internal/entity"
	"github.com/octobees/opsboard/internal/listquery"
)

// TasksRepository describes persistence operations for tasks.
type TasksRepository interface {
	List(ctx context.Context, filter dto.TaskListFilter) (listquery.Page[entity.Task], error)
	FindByUUID(ctx context.Context, id uuid.UUID) (*entity.Task, error)
	Copy(ctx context.Context, id uuid.UUID, rename func(latest string) string) (dto.TaskCopyResult, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	Delete(ctx context.Context, ids []uuid.UUID) (int64, error)
	Get(ctx context.Context, id uuid.UUID) (*entity.TaskDetail, error)
	FindObject(ctx context.Context, id uuid.UUID) (*entity.TaskObject, error)
	Works(ctx context.Context, taskID int64) ([]entity.TaskWork, error)
	Create(ctx context.Context, draft dto.TaskDraft) (uuid.UUID, error)
	Update(ctx context.Context, taskID int64, draft dto.TaskDraft) error
	SetWorks(ctx context.Context, taskID int64, works []dto.TaskWorkInput) error
	SetContacts(ctx context.Context, taskID int64, contacts []dto.TaskContactInput) error
	SetDispatchers(ctx context.Context, taskID int64, dispatchers []uuid.UUID) (int64, error)
}

var (
	// ErrTaskNotFound indicates the task does not exist.
	ErrTaskNotFound = errors.New("task not found")
	// ErrObjectNotFound indicates the construction object does not exist.
	ErrObjectNotFound = errors.New("object not found")
	// ErrWorkNotFound indicates a work that is not offered on the task's object.
	ErrWorkNotFound = errors.New("work not found on object")
)

// rateableVacancy is the object_rates owner type of object work rates.
const rateableVacancy = "vacancy"

// TaskSchema is the allow-list of the task grid.
var TaskSchema = listquery.Schema{
	Table: "tasks",
	Columns: map[string]listquery.Column{
		"uuid":        {Expr: "tasks.uuid", Type: listquery.UUID},
		"name":        {Expr: "tasks.name", Type: listquery.Text},
		"description": {Expr: "tasks.description", Type: listquery.Text},
		"status":      {Expr: "tasks.status", Type: listquery.Text},
		"region":      {Expr: "tasks.region", Type: listquery.Text},
		"city":        {Expr: "tasks.city", Type: listquery.Text},
		"start_date":  {Expr: "tasks.start_date", Type: listquery.Time},
		"end_date":    {Expr: "tasks.end_date", Type: listquery.Time},
		"created_at":  {Expr: "tasks.created_at", Type: listquery.Time},
		"object":      {Expr: "objects.object_uuid", Type: listquery.UUID, Join: "objects"},
		"object_uuid": {Expr: "objects.object_uuid", Type: listquery.UUID, Join: "objects"},
		"object_name": {Expr: "objects.object_name", Type: listquery.Text, Join: "objects"},
		"total":       {Expr: "COALESCE(work_totals.total, 0)", Type: listquery.Number, Join: "work_totals"},
		"completed":   {Expr: "COALESCE(completed_contractors.completed, 0)", Type: listquery.Number, Join: "completed_contractors"},
		"rate":        {Expr: "work_totals.rate", Type: listquery.Number, Join: "work_totals"},
	},
	Searchable: []string{"name", "description", "object_name"},
	Sorts: map[string]listquery.Column{
		"object":     {Expr: "objects.object_name", Join: "objects"},
		"completion": {Expr: "work_totals.total", Join: "work_totals"},
		"name":       {Expr: "tasks.name"},
		"status":     {Expr: "tasks.status"},
		"start_date": {Expr: "tasks.start_date"},
		"created_at": {Expr: "tasks.created_at"},
	},
	DefaultSort: listquery.SortSpec{Key: "created_at", Direction: listquery.Desc},
	TieBreaker:  "tasks.id",
}

var taskColumns = []string{
	"tasks.id",
	"tasks.uuid",
	"tasks.object_id",
	"tasks.name",
	"tasks.description",
	"tasks.status",
	"tasks.region",
	"tasks.city",
	"tasks.lat",
	"tasks.lon",
	"tasks.start_date",
	"tasks.end_date",
	"objects.object_uuid",
	"objects.object_name",
	"COALESCE(work_totals.total, 0) AS total",
	"COALESCE(completed_contractors.completed, 0) AS completed",
	listquery.Percent("completed_contractors.completed", "work_totals.total") + " AS percent",
	"work_totals.rate",
	"tasks.created_at",
	"tasks.updated_at",
}

const workTotalsSQL = `SELECT task_works.task_id, SUM(task_works.requires_people) AS total, MAX(latest_rates.rate) AS rate ` +
	`FROM task_works LEFT JOIN latest_rates ON latest_rates.object_work_id = task_works.object_work_id ` +
	`GROUP BY task_works.task_id`

const objectsSQL = `SELECT objects.id AS object_id, objects.uuid AS object_uuid, objects.name AS object_name FROM objects`

const dispatcherRestriction = `EXISTS (SELECT 1 FROM task_dispatchers WHERE task_dispatchers.task_id = tasks.id AND task_dispatchers.user_id = ?)`

// TaskListQuery assembles the task grid: completion counts and the latest
// rates are pre-aggregated per task before the caller's filters apply.
func TaskListQuery(d listquery.Dialect, filter dto.TaskListFilter) (listquery.Query, error) {
	asOf := filter.AsOf
	if asOf.IsZero() {
		asOf = time.Now()
	}

	q := listquery.New(d, TaskSchema)

	q, err := q.WithCTE("latest_rates", listquery.LatestValue(listquery.LatestValueSpec{
		Table:       "object_rates",
		PartitionBy: "rateable_id",
		OrderBy:     "start_date",
		ValueColumn: "rate",
		AsOf:        asOf,
		Filter:      "rateable_type = ?",
		FilterArgs:  []any{rateableVacancy},
		KeyAlias:    "object_work_id",
	}))
	if err != nil {
		return q, err
	}

	completed := listquery.GroupCount("task_contractors", "task_id", "status", entity.CompletedContractorStatuses, "completed")
	completed.AsCTE = true
	if q, err = q.WithNamedSubquery("completed_contractors", completed, "tasks.id", "task_id", listquery.JoinLeft); err != nil {
		return q, err
	}
	workTotals := listquery.Subquery{SQL: workTotalsSQL, Key: "task_id", Columns: []string{"task_id", "total", "rate"}}
	if q, err = q.WithNamedSubquery("work_totals", workTotals, "tasks.id", "task_id", listquery.JoinLeft); err != nil {
		return q, err
	}
	objects := listquery.Subquery{SQL: objectsSQL, Key: "object_id", Columns: []string{"object_id", "object_uuid", "object_name"}}
	if q, err = q.WithNamedSubquery("objects", objects, "tasks.object_id", "object_id", listquery.JoinLeft); err != nil {
		return q, err
	}

	q = q.Select(taskColumns...)
	if filter.DispatcherID != nil {
		q = q.Where(dispatcherRestriction, *filter.DispatcherID)
	}

	if q, err = q.Filter(filter.Filters...); err != nil {
		return q, err
	}
	return q.Search(filter.Search)
}

// PGXTasksRepository implements TasksRepository using pgx.
type PGXTasksRepository struct {
	pool pgxPool
}

var _ TasksRepository = (*PGXTasksRepository)(nil)

// NewPGXTasksRepository wires a pgx backed repository.
func NewPGXTasksRepository(pool *pgxpool.Pool) *PGXTasksRepository {
	return &PGXTasksRepository{pool: pool}
}

// List returns one page of the task grid.
func (r *PGXTasksRepository) List(ctx context.Context, filter dto.TaskListFilter) (listquery.Page[entity.Task], error) {
	q, err := TaskListQuery(listquery.Postgres, filter)
	if err != nil {
		return listquery.Page[entity.Task]{}, err
	}
	page, err := listquery.Finalize(ctx, listquery.PGX(r.pool), q, filter.Sort, filter.Page, scanTask)
	if err != nil {
		return page, fmt.Errorf("list tasks: %w", err)
	}
	return page, nil
}

func scanTask(rows listquery.Rows) (entity.Task, error) {
	var t entity.Task
	err := rows.Scan(
		&t.ID,
		&t.UUID,
		&t.ObjectID,
		&t.Name,
		&t.Description,
		&t.Status,
		&t.Region,
		&t.City,
		&t.Latitude,
		&t.Longitude,
		&t.StartDate,
		&t.EndDate,
		&t.ObjectUUID,
		&t.ObjectName,
		&t.Total,
		&t.Completed,
		&t.Percent,
		&t.Rate,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	return t, err
}

const findTaskSQL = `
        SELECT id, uuid, object_id, name, description, status, region, city, lat, lon, start_date, end_date, created_at, updated_at
        FROM tasks
        WHERE uuid = $1
    `

// FindByUUID loads the task row without aggregates.
func (r *PGXTasksRepository) FindByUUID(ctx context.Context, id uuid.UUID) (*entity.Task, error) {
	var t entity.Task
	err := r.pool.QueryRow(ctx, findTaskSQL, id).Scan(
		&t.ID,
		&t.UUID,
		&t.ObjectID,
		&t.Name,
		&t.Description,
		&t.Status,
		&t.Region,
		&t.City,
		&t.Latitude,
		&t.Longitude,
		&t.StartDate,
		&t.EndDate,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("find task: %w", listquery.ClassifyStorageError(err))
	}
	return &t, nil
}

const (
	latestTaskNameSQL = `SELECT name FROM tasks WHERE name ILIKE $1 ESCAPE '\' ORDER BY id DESC LIMIT 1`

	copyTaskSQL = `
        INSERT INTO tasks (uuid, author_id, object_id, name, description, region, city, lat, lon, start_date, end_date, status, created_at, updated_at)
        SELECT $1, author_id, object_id, $2, description, region, city, lat, lon, start_date, end_date, $3, NOW(), NOW()
        FROM tasks
        WHERE id = $4
        RETURNING id
    `

	copyDispatchersSQL = `
        INSERT INTO task_dispatchers (task_id, user_id, created_at, updated_at)
        SELECT $1, user_id, NOW(), NOW() FROM task_dispatchers WHERE task_id = $2
    `

	copyWorksSQL = `
        INSERT INTO task_works (task_id, object_work_id, requires_people, created_at, updated_at)
        SELECT $1, object_work_id, requires_people, NOW(), NOW() FROM task_works WHERE task_id = $2
    `

	copyContactsSQL = `
        INSERT INTO task_contacts (uuid, task_id, name, phone, position, created_at, updated_at)
        SELECT gen_random_uuid(), $1, name, phone, position, NOW(), NOW() FROM task_contacts WHERE task_id = $2
    `
)

// Copy duplicates a task with its dispatchers, works and contacts in one
// transaction. rename receives the most recent name containing the source
// name and returns the name of the copy.
func (r *PGXTasksRepository) Copy(ctx context.Context, id uuid.UUID, rename func(latest string) string) (dto.TaskCopyResult, error) {
	var result dto.TaskCopyResult
	if rename == nil {
		return result, fmt.Errorf("rename func is nil")
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return result, fmt.Errorf("start copy tx: %w", listquery.ClassifyStorageError(err))
	}
	defer tx.Rollback(ctx)

	var (
		sourceID int64
		name     string
	)
	if err := tx.QueryRow(ctx, `SELECT id, name FROM tasks WHERE uuid = $1 FOR UPDATE`, id).Scan(&sourceID, &name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return result, ErrTaskNotFound
		}
		return result, fmt.Errorf("load task to copy: %w", listquery.ClassifyStorageError(err))
	}

	latest := name
	if err := tx.QueryRow(ctx, latestTaskNameSQL, listquery.ContainsPattern(name)).Scan(&latest); err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return result, fmt.Errorf("find latest task name: %w", listquery.ClassifyStorageError(err))
	}

	result.UUID = uuid.New()
	result.Name = rename(latest)

	var copyID int64
	if err := tx.QueryRow(ctx, copyTaskSQL, result.UUID, result.Name, entity.TaskCreated, sourceID).Scan(&copyID); err != nil {
		return result, fmt.Errorf("insert task copy: %w", listquery.ClassifyStorageError(err))
	}

	for _, stmt := range []struct {
		name string
		sql  string
	}{
		{"dispatchers", copyDispatchersSQL},
		{"works", copyWorksSQL},
		{"contacts", copyContactsSQL},
	} {
		if _, err := tx.Exec(ctx, stmt.sql, copyID, sourceID); err != nil {
			return result, fmt.Errorf("copy task %s: %w", stmt.name, listquery.ClassifyStorageError(err))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return result, fmt.Errorf("commit copy tx: %w", listquery.ClassifyStorageError(err))
	}
	return result, nil
}

// UpdateStatus sets the status of one task.
func (r *PGXTasksRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE tasks SET status = $1, updated_at = NOW() WHERE uuid = $2`, status, id)
	if err != nil {
		return fmt.Errorf("update task status: %w", listquery.ClassifyStorageError(err))
	}
	if tag.RowsAffected() == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// Delete removes the given tasks and reports how many existed.
func (r *PGXTasksRepository) Delete(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE uuid = ANY($1)`, ids)
	if err != nil {
		return 0, fmt.Errorf("delete tasks: %w", listquery.ClassifyStorageError(err))
	}
	return tag.RowsAffected(), nil
}
