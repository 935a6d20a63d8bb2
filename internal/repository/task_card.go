package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/octobees/opsboard/internal/dto"
	"github.com/octobees/opsboard/internal/entity"
	"github.com/octobees/opsboard/internal/listquery"
)

const (
	viewTaskSQL = `
        WITH viewed AS (
            UPDATE tasks SET views = COALESCE(views, 0) + 1
            WHERE uuid = $1
            RETURNING id, uuid, object_id, name, description, status, region, city, lat, lon, start_date, end_date,
                created_at, updated_at, system_name, scheme, shift, until_date, views
        )
        SELECT viewed.id, viewed.uuid, viewed.object_id, viewed.name, viewed.description, viewed.status, viewed.region,
            viewed.city, viewed.lat, viewed.lon, viewed.start_date, viewed.end_date, viewed.created_at, viewed.updated_at,
            objects.uuid, objects.name, viewed.system_name, viewed.scheme, viewed.shift, viewed.until_date, viewed.views
        FROM viewed
        LEFT JOIN objects ON objects.id = viewed.object_id
    `

	taskWorksSQL = `
        SELECT object_works.uuid, object_works.name, task_works.requires_people
        FROM task_works
        JOIN object_works ON object_works.id = task_works.object_work_id
        WHERE task_works.task_id = $1
        ORDER BY task_works.id
    `

	taskContactsSQL = `SELECT uuid, name, phone, position FROM task_contacts WHERE task_id = $1 ORDER BY id`

	taskDispatchersSQL = `
        SELECT users.uuid, users.lastname, users.firstname
        FROM task_dispatchers
        JOIN users ON users.id = task_dispatchers.user_id
        WHERE task_dispatchers.task_id = $1
        ORDER BY users.lastname, users.id
    `

	findObjectSQL  = `SELECT id, uuid, code, city, address, specialization_id FROM objects WHERE uuid = $1`
	objectWorksSQL = `SELECT id, uuid, name FROM object_works WHERE object_id = $1 ORDER BY id`
)

// Get loads the task card and counts the view.
func (r *PGXTasksRepository) Get(ctx context.Context, id uuid.UUID) (*entity.TaskDetail, error) {
	var d entity.TaskDetail
	err := r.pool.QueryRow(ctx, viewTaskSQL, id).Scan(
		&d.ID,
		&d.UUID,
		&d.ObjectID,
		&d.Name,
		&d.Description,
		&d.Status,
		&d.Region,
		&d.City,
		&d.Latitude,
		&d.Longitude,
		&d.StartDate,
		&d.EndDate,
		&d.CreatedAt,
		&d.UpdatedAt,
		&d.ObjectUUID,
		&d.ObjectName,
		&d.SystemName,
		&d.Scheme,
		&d.Shift,
		&d.UntilDate,
		&d.Views,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("view task: %w", listquery.ClassifyStorageError(err))
	}

	if d.Works, err = r.Works(ctx, d.ID); err != nil {
		return nil, err
	}
	if d.Contacts, err = collect(ctx, r.pool, "task contacts", taskContactsSQL, d.ID, func(row pgx.CollectableRow) (entity.TaskContact, error) {
		var c entity.TaskContact
		err := row.Scan(&c.UUID, &c.Name, &c.Phone, &c.Position)
		return c, err
	}); err != nil {
		return nil, err
	}
	if d.Dispatchers, err = collect(ctx, r.pool, "task dispatchers", taskDispatchersSQL, d.ID, func(row pgx.CollectableRow) (entity.TaskDispatcher, error) {
		var u entity.TaskDispatcher
		err := row.Scan(&u.UUID, &u.Lastname, &u.Firstname)
		return u, err
	}); err != nil {
		return nil, err
	}
	return &d, nil
}

// Works lists the professions requested by the task.
func (r *PGXTasksRepository) Works(ctx context.Context, taskID int64) ([]entity.TaskWork, error) {
	return collect(ctx, r.pool, "task works", taskWorksSQL, taskID, func(row pgx.CollectableRow) (entity.TaskWork, error) {
		var w entity.TaskWork
		err := row.Scan(&w.UUID, &w.Name, &w.RequiresPeople)
		return w, err
	})
}

// FindObject loads an object with the works it offers.
func (r *PGXTasksRepository) FindObject(ctx context.Context, id uuid.UUID) (*entity.TaskObject, error) {
	var o entity.TaskObject
	err := r.pool.QueryRow(ctx, findObjectSQL, id).Scan(&o.ID, &o.UUID, &o.Code, &o.City, &o.Address, &o.SpecializationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, id)
		}
		return nil, fmt.Errorf("find object: %w", listquery.ClassifyStorageError(err))
	}
	works, err := collect(ctx, r.pool, "object works", objectWorksSQL, o.ID, func(row pgx.CollectableRow) (entity.ObjectWork, error) {
		var w entity.ObjectWork
		err := row.Scan(&w.ID, &w.UUID, &w.Name)
		return w, err
	})
	if err != nil {
		return nil, err
	}
	o.Works = works
	return &o, nil
}

// collect runs a single-argument query and scans every row; the result is
// never nil.
func collect[T any](ctx context.Context, pool pgxPool, what, query string, arg any, scan pgx.RowToFunc[T]) ([]T, error) {
	rows, err := pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", what, listquery.ClassifyStorageError(err))
	}
	items, err := pgx.CollectRows(rows, scan)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", what, listquery.ClassifyStorageError(err))
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

const (
	insertTaskSQL = `
        INSERT INTO tasks (uuid, author_id, object_id, specialization_id, name, system_name, description, region, city,
            scheme, shift, lat, lon, start_date, end_date, until_date, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, NOW(), NOW())
        RETURNING id
    `

	updateTaskSQL = `
        UPDATE tasks SET
            name = $1,
            system_name = $2,
            description = $3,
            region = COALESCE($4, region),
            city = COALESCE($5, city),
            scheme = COALESCE($6, scheme),
            shift = $7,
            start_date = $8,
            end_date = $9,
            until_date = $10,
            updated_at = NOW()
        WHERE id = $11
    `

	insertTaskWorkSQL = `
        INSERT INTO task_works (task_id, object_work_id, requires_people, created_at, updated_at)
        SELECT tasks.id, object_works.id, $3, NOW(), NOW()
        FROM tasks
        JOIN object_works ON object_works.object_id = tasks.object_id
        WHERE tasks.id = $1 AND object_works.uuid = $2
    `

	insertTaskContactSQL = `
        INSERT INTO task_contacts (uuid, task_id, name, phone, position, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
    `

	copyObjectContactsSQL = `
        INSERT INTO task_contacts (uuid, task_id, name, phone, position, created_at, updated_at)
        SELECT gen_random_uuid(), $1, name, phone, position, NOW(), NOW() FROM object_contacts WHERE object_id = $2
    `

	insertTaskDispatchersSQL = `
        INSERT INTO task_dispatchers (task_id, user_id, created_at, updated_at)
        SELECT $1, users.id, NOW(), NOW() FROM users WHERE users.uuid = ANY($2)
    `
)

type execer interface {
	Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error)
}

// inTx runs fn in a transaction that is rolled back unless fn succeeds.
func (r *PGXTasksRepository) inTx(ctx context.Context, what string, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("start %s tx: %w", what, listquery.ClassifyStorageError(err))
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit %s tx: %w", what, listquery.ClassifyStorageError(err))
	}
	return nil
}

// Create inserts the task with its works, contacts and dispatchers. Without
// contacts in the draft the object's contacts are copied.
func (r *PGXTasksRepository) Create(ctx context.Context, draft dto.TaskDraft) (uuid.UUID, error) {
	id := uuid.New()
	err := r.inTx(ctx, "create task", func(tx pgx.Tx) error {
		var taskID int64
		err := tx.QueryRow(ctx, insertTaskSQL,
			id, draft.AuthorID, draft.ObjectID, draft.SpecializationID, draft.Name, draft.SystemName, draft.Description,
			draft.Region, draft.City, draft.Scheme, draft.Shift, draft.Lat, draft.Lon,
			draft.StartDate, draft.EndDate, draft.UntilDate, entity.TaskCreated,
		).Scan(&taskID)
		if err != nil {
			return fmt.Errorf("insert task: %w", listquery.ClassifyStorageError(err))
		}

		if err := replaceWorks(ctx, tx, taskID, draft.Works); err != nil {
			return err
		}
		if draft.Contacts == nil {
			if _, err := tx.Exec(ctx, copyObjectContactsSQL, taskID, draft.ObjectID); err != nil {
				return fmt.Errorf("copy object contacts: %w", listquery.ClassifyStorageError(err))
			}
		} else if err := replaceContacts(ctx, tx, taskID, draft.Contacts); err != nil {
			return err
		}
		_, err = replaceDispatchers(ctx, tx, taskID, draft.Dispatchers)
		return err
	})
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// Update rewrites the task row and, when the draft carries them, its works.
func (r *PGXTasksRepository) Update(ctx context.Context, taskID int64, draft dto.TaskDraft) error {
	return r.inTx(ctx, "update task", func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, updateTaskSQL,
			draft.Name, draft.SystemName, draft.Description, draft.Region, draft.City, draft.Scheme, draft.Shift,
			draft.StartDate, draft.EndDate, draft.UntilDate, taskID,
		)
		if err != nil {
			return fmt.Errorf("update task: %w", listquery.ClassifyStorageError(err))
		}
		if tag.RowsAffected() == 0 {
			return ErrTaskNotFound
		}
		if draft.Works == nil {
			return nil
		}
		return replaceWorks(ctx, tx, taskID, draft.Works)
	})
}

// SetWorks replaces the professions requested by the task.
func (r *PGXTasksRepository) SetWorks(ctx context.Context, taskID int64, works []dto.TaskWorkInput) error {
	return r.inTx(ctx, "set task works", func(tx pgx.Tx) error {
		return replaceWorks(ctx, tx, taskID, works)
	})
}

// SetContacts replaces the contact persons of the task.
func (r *PGXTasksRepository) SetContacts(ctx context.Context, taskID int64, contacts []dto.TaskContactInput) error {
	return r.inTx(ctx, "set task contacts", func(tx pgx.Tx) error {
		return replaceContacts(ctx, tx, taskID, contacts)
	})
}

// SetDispatchers replaces the dispatchers of the task. Unknown users are
// skipped; the number assigned is returned.
func (r *PGXTasksRepository) SetDispatchers(ctx context.Context, taskID int64, dispatchers []uuid.UUID) (int64, error) {
	var assigned int64
	err := r.inTx(ctx, "set task dispatchers", func(tx pgx.Tx) error {
		var err error
		assigned, err = replaceDispatchers(ctx, tx, taskID, dispatchers)
		return err
	})
	return assigned, err
}

func replaceWorks(ctx context.Context, tx execer, taskID int64, works []dto.TaskWorkInput) error {
	if _, err := tx.Exec(ctx, `DELETE FROM task_works WHERE task_id = $1`, taskID); err != nil {
		return fmt.Errorf("clear task works: %w", listquery.ClassifyStorageError(err))
	}
	for _, w := range works {
		tag, err := tx.Exec(ctx, insertTaskWorkSQL, taskID, w.UUID, w.RequiresPeople)
		if err != nil {
			return fmt.Errorf("insert task work: %w", listquery.ClassifyStorageError(err))
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: %s", ErrWorkNotFound, w.UUID)
		}
	}
	return nil
}

func replaceContacts(ctx context.Context, tx execer, taskID int64, contacts []dto.TaskContactInput) error {
	if _, err := tx.Exec(ctx, `DELETE FROM task_contacts WHERE task_id = $1`, taskID); err != nil {
		return fmt.Errorf("clear task contacts: %w", listquery.ClassifyStorageError(err))
	}
	for _, c := range contacts {
		if _, err := tx.Exec(ctx, insertTaskContactSQL, uuid.New(), taskID, c.Name, c.Phone, c.Position); err != nil {
			return fmt.Errorf("insert task contact: %w", listquery.ClassifyStorageError(err))
		}
	}
	return nil
}

func replaceDispatchers(ctx context.Context, tx execer, taskID int64, dispatchers []uuid.UUID) (int64, error) {
	if _, err := tx.Exec(ctx, `DELETE FROM task_dispatchers WHERE task_id = $1`, taskID); err != nil {
		return 0, fmt.Errorf("clear task dispatchers: %w", listquery.ClassifyStorageError(err))
	}
	if len(dispatchers) == 0 {
		return 0, nil
	}
	tag, err := tx.Exec(ctx, insertTaskDispatchersSQL, taskID, dispatchers)
	if err != nil {
		return 0, fmt.Errorf("insert task dispatchers: %w", listquery.ClassifyStorageError(err))
	}
	return tag.RowsAffected(), nil
}
