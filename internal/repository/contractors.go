package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/octobees/opsboard/internal/dto"
	"github.com/octobees/opsboard/internal/entity"
	"github.com/octobees/opsboard/internal/listquery"
)

// ContractorsRepository lists contractors relative to a task.
type ContractorsRepository interface {
	ListInTask(ctx context.Context, filter dto.ContractorListFilter) (listquery.Page[entity.Contractor], error)
	SearchNearby(ctx context.Context, filter dto.ContractorSearchFilter) (listquery.Page[entity.Contractor], error)
}

const userTypeContractor = "contractor"

var stagePivotSchema = listquery.Schema{
	Table: "users",
	Columns: map[string]listquery.Column{
		"status": {Expr: "pivot.status", Type: listquery.Text, Join: "pivot"},
	},
}

// ContractorSchema is the allow-list of the per-stage contractor grids.
var ContractorSchema = listquery.Schema{
	Table: "contractors",
	Columns: map[string]listquery.Column{
		"lastname":    {Expr: "contractors.lastname", Type: listquery.Text},
		"firstname":   {Expr: "contractors.firstname", Type: listquery.Text},
		"middlename":  {Expr: "contractors.middlename", Type: listquery.Text},
		"phone":       {Expr: "contractors.phone", Type: listquery.Text},
		"rate":        {Expr: "contractors.rate", Type: listquery.Number},
		"trust":       {Expr: "contractors.trust", Type: listquery.Number},
		"age":         {Expr: "contractors.age", Type: listquery.Number},
		"rank":        {Expr: "contractors.rank", Type: listquery.Text},
		"on_object":   {Expr: "contractors.on_object", Type: listquery.Bool},
		"status":      {Expr: "contractors.status", Type: listquery.Text},
		"attached_at": {Expr: "contractors.attached_at", Type: listquery.Time},
	},
	Searchable: []string{"lastname", "firstname", "middlename", "phone", "rate", "trust", "age", "rank", "on_object"},
	Sorts: map[string]listquery.Column{
		"lastname":    {Expr: "contractors.lastname"},
		"firstname":   {Expr: "contractors.firstname"},
		"rate":        {Expr: "contractors.rate"},
		"trust":       {Expr: "contractors.trust"},
		"age":         {Expr: "contractors.age"},
		"rank":        {Expr: "contractors.rank"},
		"status":      {Expr: "contractors.status"},
		"attached_at": {Expr: "contractors.attached_at"},
	},
	DefaultSort: listquery.SortSpec{Key: "attached_at", Direction: listquery.Desc},
	TieBreaker:  "contractors.id",
}

var nearbySchema = listquery.Schema{
	Table:   "nearby",
	Columns: map[string]listquery.Column{"distance": {Expr: "nearby.distance", Type: listquery.Number}},
}

// CandidateSchema is the allow-list of the nearby contractor search.
var CandidateSchema = listquery.Schema{
	Table: "candidates",
	Columns: map[string]listquery.Column{
		"lastname":   {Expr: "candidates.lastname", Type: listquery.Text},
		"firstname":  {Expr: "candidates.firstname", Type: listquery.Text},
		"middlename": {Expr: "candidates.middlename", Type: listquery.Text},
		"phone":      {Expr: "candidates.phone", Type: listquery.Text},
		"rate":       {Expr: "candidates.rate", Type: listquery.Number},
		"trust":      {Expr: "candidates.trust", Type: listquery.Number},
		"age":        {Expr: "candidates.age", Type: listquery.Number},
		"rank":       {Expr: "candidates.rank", Type: listquery.Text},
		"address":    {Expr: "candidates.address", Type: listquery.Text},
		"distance":   {Expr: "candidates.distance", Type: listquery.Number},
	},
	Searchable: []string{"lastname", "firstname", "middlename"},
	Sorts: map[string]listquery.Column{
		"distance": {Expr: "candidates.distance"},
		"lastname": {Expr: "candidates.lastname"},
		"rate":     {Expr: "candidates.rate"},
		"trust":    {Expr: "candidates.trust"},
		"age":      {Expr: "candidates.age"},
		"rank":     {Expr: "candidates.rank"},
	},
	DefaultSort: listquery.SortSpec{Key: "distance", Direction: listquery.Asc},
	TieBreaker:  "candidates.id",
}

const onObjectExpr = `EXISTS (SELECT 1 FROM task_contractors AS worked JOIN tasks AS worked_tasks ON worked_tasks.id = worked.task_id ` +
	`WHERE worked.user_id = users.id AND worked_tasks.object_id = ? AND worked.status IN (?, ?)) AS on_object`

func professionRestriction(userExpr string, professions []uuid.UUID) (string, []any) {
	args := make([]any, len(professions))
	for i, p := range professions {
		args[i] = p.String()
	}
	sql := fmt.Sprintf(`EXISTS (SELECT 1 FROM user_object_works JOIN object_works ON object_works.id = user_object_works.object_work_id `+
		`WHERE user_object_works.user_id = %s AND object_works.uuid IN (%s))`, userExpr, listquery.Marks(len(args)))
	return sql, args
}

// ContractorStageQuery assembles a stage grid: contractors attached to the
// task with one of the stage's statuses, wrapped so the caller's filters
// and search apply to the flattened row.
func ContractorStageQuery(d listquery.Dialect, filter dto.ContractorListFilter) (listquery.Query, error) {
	pivot := listquery.Subquery{
		SQL:     "SELECT user_id, status, created_at AS attached_at FROM task_contractors WHERE task_id = ?",
		Args:    []any{filter.TaskID},
		Key:     "user_id",
		Columns: []string{"user_id", "status", "attached_at"},
	}

	q, err := listquery.New(d, stagePivotSchema).WithNamedSubquery("pivot", pivot, "users.id", "user_id", listquery.JoinInner)
	if err != nil {
		return q, err
	}

	var objectID any
	if filter.ObjectID != nil {
		objectID = *filter.ObjectID
	}
	q = q.Select(
		"users.id", "users.uuid", "users.lastname", "users.firstname", "users.middlename", "users.phone",
		"users.rate", "users.trust", "users.age", "users.rank", "pivot.status", "pivot.attached_at",
	).SelectArgs(onObjectExpr, objectID, entity.ContractorAccepted, entity.ContractorWorking)

	q = q.Where("users.type = ?", userTypeContractor)
	if len(filter.Professions) > 0 {
		sql, args := professionRestriction("users.id", filter.Professions)
		q = q.Where(sql, args...)
	}
	if q, err = q.Filter(listquery.FilterDescriptor{Field: "status", Operator: listquery.OpIn, Value: filter.Statuses}); err != nil {
		return q, err
	}

	q = q.Wrap(ContractorSchema)
	if q, err = q.Filter(filter.Filters...); err != nil {
		return q, err
	}
	if filter.SearchColumn != "" {
		return q.SearchAny(filter.Terms, filter.SearchColumn)
	}
	return q.SearchAny(filter.Terms)
}

// ContractorSearchQuery assembles the nearby search: contractors not yet
// attached to the task whose closest address lies within the radius, one
// row per contractor.
func ContractorSearchQuery(d listquery.Dialect, filter dto.ContractorSearchFilter) (listquery.Query, error) {
	people := listquery.Subquery{
		SQL: "SELECT users.id AS user_id, users.uuid, users.lastname, users.firstname, users.middlename, users.phone, " +
			"users.rate, users.trust, users.age, users.rank FROM users WHERE users.type = ? " +
			"AND NOT EXISTS (SELECT 1 FROM task_contractors WHERE task_contractors.task_id = ? AND task_contractors.user_id = users.id)",
		Args: []any{userTypeContractor, filter.TaskID},
		Key:  "user_id",
	}

	q, err := listquery.New(d, listquery.Schema{Table: "user_addresses"}).
		WithNamedSubquery("people", people, "user_addresses.user_id", "user_id", listquery.JoinInner)
	if err != nil {
		return q, err
	}
	q = q.Select(
		"people.user_id AS id", "people.uuid", "people.lastname", "people.firstname", "people.middlename", "people.phone",
		"people.rate", "people.trust", "people.age", "people.rank", "user_addresses.address",
	)
	if len(filter.Professions) > 0 {
		sql, args := professionRestriction("people.user_id", filter.Professions)
		q = q.Where(sql, args...)
	}
	if q, err = q.WithDistance("user_addresses.lat", "user_addresses.lon", filter.Origin); err != nil {
		return q, err
	}

	q, err = q.Wrap(nearbySchema).WithinRadius(filter.RadiusKm)
	if err != nil {
		return q, err
	}
	q = q.Dedupe("nearby.id", "nearby.distance").Wrap(CandidateSchema).Where("candidates.dup_rank = 1")

	if q, err = q.Filter(filter.Filters...); err != nil {
		return q, err
	}
	return q.SearchAny(filter.Terms)
}

// PGXContractorsRepository implements ContractorsRepository using pgx.
type PGXContractorsRepository struct {
	pool pgxPool
}

// NewPGXContractorsRepository wires a pgx backed repository.
func NewPGXContractorsRepository(pool *pgxpool.Pool) *PGXContractorsRepository {
	return &PGXContractorsRepository{pool: pool}
}

// ListInTask returns one page of a stage grid.
func (r *PGXContractorsRepository) ListInTask(ctx context.Context, filter dto.ContractorListFilter) (listquery.Page[entity.Contractor], error) {
	q, err := ContractorStageQuery(listquery.Postgres, filter)
	if err != nil {
		return listquery.Page[entity.Contractor]{}, err
	}
	page, err := listquery.Finalize(ctx, listquery.PGX(r.pool), q, filter.Sort, filter.Page, scanStageContractor)
	if err != nil {
		return page, fmt.Errorf("list task contractors: %w", err)
	}
	return page, nil
}

// SearchNearby returns one page of candidates around filter.Origin.
func (r *PGXContractorsRepository) SearchNearby(ctx context.Context, filter dto.ContractorSearchFilter) (listquery.Page[entity.Contractor], error) {
	q, err := ContractorSearchQuery(listquery.Postgres, filter)
	if err != nil {
		return listquery.Page[entity.Contractor]{}, err
	}
	page, err := listquery.Finalize(ctx, listquery.PGX(r.pool), q, filter.Sort, filter.Page, scanCandidate)
	if err != nil {
		return page, fmt.Errorf("search contractors: %w", err)
	}
	return page, nil
}

func scanStageContractor(rows listquery.Rows) (entity.Contractor, error) {
	var c entity.Contractor
	err := rows.Scan(
		&c.ID, &c.UUID, &c.Lastname, &c.Firstname, &c.Middlename, &c.Phone,
		&c.Rate, &c.Trust, &c.Age, &c.Rank, &c.Status, &c.AttachedAt, &c.OnObject,
	)
	return c, err
}

func scanCandidate(rows listquery.Rows) (entity.Contractor, error) {
	var (
		c       entity.Contractor
		dupRank int64
	)
	err := rows.Scan(
		&c.ID, &c.UUID, &c.Lastname, &c.Firstname, &c.Middlename, &c.Phone,
		&c.Rate, &c.Trust, &c.Age, &c.Rank, &c.Address, &c.Distance, &dupRank,
	)
	return c, err
}
