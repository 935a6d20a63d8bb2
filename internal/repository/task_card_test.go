package repository

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/octobees/opsboard/internal/dto"
	"github.com/octobees/opsboard/internal/entity"
)

func TestPGXTasksRepository_Get(t *testing.T) {
	id := uuid.New()
	work := uuid.New()
	repo := &PGXTasksRepository{pool: &stubPool{
		queryRowFunc: func(ctx context.Context, query string, args ...any) pgx.Row {
			if !strings.Contains(query, "views = COALESCE(views, 0) + 1") || args[0] != id {
				t.Fatalf("unexpected view query %s %#v", query, args)
			}
			return &stubRow{scan: func(dest ...any) error {
				*dest[0].(*int64) = 5
				*dest[1].(*uuid.UUID) = id
				*dest[3].(*string) = "Roof repair"
				*dest[5].(*string) = entity.TaskWorking
				*dest[20].(*int64) = 3
				return nil
			}}
		},
		queryFunc: func(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
			if args[0] != int64(5) {
				t.Fatalf("relations must be loaded by task id, got %#v", args)
			}
			switch {
			case strings.Contains(query, "FROM task_works"):
				return &stubRows{scans: []func(dest ...any) error{
					func(dest ...any) error {
						*dest[0].(*uuid.UUID) = work
						*dest[1].(*string) = "Roofer"
						*dest[2].(*int) = 4
						return nil
					},
				}}, nil
			case strings.Contains(query, "FROM task_dispatchers"):
				return &stubRows{scans: []func(dest ...any) error{
					func(dest ...any) error {
						*dest[1].(*string) = "Ivanova"
						*dest[2].(*string) = "Olga"
						return nil
					},
				}}, nil
			default:
				return &stubRows{}, nil
			}
		},
	}}

	d, err := repo.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Name != "Roof repair" || d.Views != 3 || d.Status != entity.TaskWorking {
		t.Fatalf("unexpected card %+v", d)
	}
	if len(d.Works) != 1 || d.Works[0].UUID != work || d.Works[0].RequiresPeople != 4 {
		t.Fatalf("unexpected works %+v", d.Works)
	}
	if d.Contacts == nil || len(d.Contacts) != 0 {
		t.Fatalf("contacts should be an empty list, got %#v", d.Contacts)
	}
	if len(d.Dispatchers) != 1 || d.Dispatchers[0].Lastname != "Ivanova" {
		t.Fatalf("unexpected dispatchers %+v", d.Dispatchers)
	}
}

func TestPGXTasksRepository_GetMissingTask(t *testing.T) {
	repo := &PGXTasksRepository{pool: &stubPool{
		queryRowFunc: func(ctx context.Context, query string, args ...any) pgx.Row {
			return &stubRow{scan: func(dest ...any) error { return pgx.ErrNoRows }}
		},
	}}
	if _, err := repo.Get(context.Background(), uuid.New()); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestPGXTasksRepository_FindObject(t *testing.T) {
	roofer, welder := uuid.New(), uuid.New()
	repo := &PGXTasksRepository{pool: &stubPool{
		queryRowFunc: func(ctx context.Context, query string, args ...any) pgx.Row {
			return &stubRow{scan: func(dest ...any) error {
				*dest[0].(*int64) = 9
				*dest[2].(*string) = "MSK-01"
				return nil
			}}
		},
		queryFunc: func(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
			if !strings.Contains(query, "FROM object_works") || args[0] != int64(9) {
				t.Fatalf("unexpected works query %s %#v", query, args)
			}
			scan := func(id int64, u uuid.UUID, name string) func(dest ...any) error {
				return func(dest ...any) error {
					*dest[0].(*int64) = id
					*dest[1].(*uuid.UUID) = u
					*dest[2].(*string) = name
					return nil
				}
			}
			return &stubRows{scans: []func(dest ...any) error{
				scan(1, roofer, "Roofer"),
				scan(2, welder, "Welder"),
			}}, nil
		},
	}}

	o, err := repo.FindObject(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.ID != 9 || o.Code != "MSK-01" || len(o.Works) != 2 {
		t.Fatalf("unexpected object %+v", o)
	}
	if w, ok := o.Work(welder); !ok || w.Name != "Welder" {
		t.Fatalf("expected welder on object, got %+v %v", w, ok)
	}
	if _, ok := o.Work(uuid.New()); ok {
		t.Fatalf("foreign work must not be found")
	}

	repo.pool = &stubPool{queryRowFunc: func(ctx context.Context, query string, args ...any) pgx.Row {
		return &stubRow{scan: func(dest ...any) error { return pgx.ErrNoRows }}
	}}
	if _, err := repo.FindObject(context.Background(), uuid.New()); !errors.Is(err, ErrObjectNotFound) {
		t.Fatalf("expected ErrObjectNotFound, got %v", err)
	}
}

func TestPGXTasksRepository_Create(t *testing.T) {
	start := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	tx := &stubTx{}
	tx.queryRowFunc = func(ctx context.Context, query string, args ...any) pgx.Row {
		if !strings.Contains(query, "INSERT INTO tasks") {
			t.Fatalf("unexpected query %s", query)
		}
		if args[1] != int64(42) || args[5] != "01.03 Roofer MSK-01" || args[16] != entity.TaskCreated {
			t.Fatalf("unexpected insert args %#v", args)
		}
		return &stubRow{scan: func(dest ...any) error {
			*dest[0].(*int64) = 11
			return nil
		}}
	}
	repo := &PGXTasksRepository{pool: &stubPool{
		beginTxFunc: func(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error) { return tx, nil },
	}}

	id, err := repo.Create(context.Background(), dto.TaskDraft{
		ObjectID:    9,
		AuthorID:    42,
		Name:        "Roof repair",
		SystemName:  "01.03 Roofer MSK-01",
		Shift:       entity.ShiftDay,
		StartDate:   start,
		EndDate:     start,
		UntilDate:   start,
		Works:       []dto.TaskWorkInput{{UUID: uuid.New(), RequiresPeople: 3}},
		Dispatchers: []uuid.UUID{uuid.New(), uuid.New()},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id == uuid.Nil {
		t.Fatalf("expected a generated uuid")
	}
	if len(tx.execs) != 5 || !tx.committed {
		t.Fatalf("unexpected tx state: execs=%d committed=%v", len(tx.execs), tx.committed)
	}
	if !strings.Contains(tx.execs[2], "FROM object_contacts") {
		t.Fatalf("object contacts should be copied when none are given: %s", tx.execs[2])
	}
}

func TestPGXTasksRepository_SetWorksRejectsForeignWork(t *testing.T) {
	tx := &stubTx{execFunc: func(query string, args ...any) (pgconn.CommandTag, error) {
		if strings.Contains(query, "INSERT INTO task_works") {
			return pgconn.NewCommandTag("INSERT 0 0"), nil
		}
		return pgconn.NewCommandTag("DELETE 2"), nil
	}}
	repo := &PGXTasksRepository{pool: &stubPool{
		beginTxFunc: func(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error) { return tx, nil },
	}}

	err := repo.SetWorks(context.Background(), 11, []dto.TaskWorkInput{{UUID: uuid.New(), RequiresPeople: 1}})
	if !errors.Is(err, ErrWorkNotFound) {
		t.Fatalf("expected ErrWorkNotFound, got %v", err)
	}
	if tx.committed || !tx.rolledBack {
		t.Fatalf("expected rollback without commit")
	}
}

func TestPGXTasksRepository_UpdateMissingTask(t *testing.T) {
	tx := &stubTx{execFunc: func(query string, args ...any) (pgconn.CommandTag, error) {
		if args[10] != int64(11) {
			t.Fatalf("task id must be the last arg, got %#v", args)
		}
		return pgconn.NewCommandTag("UPDATE 0"), nil
	}}
	repo := &PGXTasksRepository{pool: &stubPool{
		beginTxFunc: func(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error) { return tx, nil },
	}}

	if err := repo.Update(context.Background(), 11, dto.TaskDraft{Name: "Roof"}); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}
	if len(tx.execs) != 1 {
		t.Fatalf("works must not be touched, got %d execs", len(tx.execs))
	}
}

func TestPGXTasksRepository_SetDispatchers(t *testing.T) {
	tx := &stubTx{}
	repo := &PGXTasksRepository{pool: &stubPool{
		beginTxFunc: func(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error) { return tx, nil },
	}}

	n, err := repo.SetDispatchers(context.Background(), 11, []uuid.UUID{uuid.New()})
	if err != nil || n != 1 {
		t.Fatalf("expected 1 assigned, got %d %v", n, err)
	}
	if len(tx.execs) != 2 || !strings.Contains(tx.execs[1], "ANY($2)") {
		t.Fatalf("unexpected execs %v", tx.execs)
	}

	tx = &stubTx{}
	n, err = repo.SetDispatchers(context.Background(), 11, nil)
	if err != nil || n != 0 || len(tx.execs) != 1 {
		t.Fatalf("clearing dispatchers should only delete, got %d %v %v", n, err, tx.execs)
	}
}
