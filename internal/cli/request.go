package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/octobees/opsboard/internal/config"
	"github.com/octobees/opsboard/internal/dto"
	"github.com/octobees/opsboard/internal/listquery"
	"github.com/octobees/opsboard/internal/repository"
)

// Endpoints a request file may target.
const (
	EndpointTasks       = "tasks"
	EndpointContractors = "contractors"
	EndpointCandidates  = "candidates"
	EndpointWarehouse   = "warehouse"
)

// Request is a list request stored as YAML, e.g.
//
//	endpoint: tasks
//	filters:
//	  - {field: status, operator: in, value: [created, working]}
//	search: roof
//	sort: {key: completion, direction: desc}
//	page: {size: 20, number: 1}
type Request struct {
	Endpoint     string                       `yaml:"endpoint"`
	Filters      []listquery.FilterDescriptor `yaml:"filters"`
	Search       string                       `yaml:"search"`
	SearchColumn string                       `yaml:"search_column"`
	Sort         *listquery.SortSpec          `yaml:"sort"`
	Page         listquery.PageSpec           `yaml:"page"`

	DispatcherID *int64 `yaml:"dispatcher_id"`

	TaskID      int64            `yaml:"task_id"`
	ObjectID    *int64           `yaml:"object_id"`
	Stage       string           `yaml:"stage"`
	Professions []uuid.UUID      `yaml:"professions"`
	Origin      *listquery.Point `yaml:"origin"`
	RadiusKm    float64          `yaml:"radius_km"`

	Warehouse WarehouseRequest `yaml:"warehouse"`
}

// WarehouseRequest carries the warehouse grid parameters.
type WarehouseRequest struct {
	Search             string   `yaml:"search"`
	Categories         []string `yaml:"categories"`
	States             []string `yaml:"states"`
	Supplier           *int64   `yaml:"supplier"`
	Location           string   `yaml:"location"`
	Company            string   `yaml:"company"`
	RemainderPriceFrom *float64 `yaml:"remainder_price_from"`
	RemainderPriceTo   *float64 `yaml:"remainder_price_to"`
	QuantityInPackFrom *float64 `yaml:"quantity_in_pack_from"`
	QuantityInPackTo   *float64 `yaml:"quantity_in_pack_to"`
	Payment            int      `yaml:"payment"`
	OrderDateFrom      string   `yaml:"order_date_from"`
	OrderDateTo        string   `yaml:"order_date_to"`
	Deleted            string   `yaml:"deleted"`
	ResponsibleID      *int64   `yaml:"responsible"`
}

// LoadRequest reads and decodes a request file.
func LoadRequest(path string) (*Request, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read request %s: %w", path, err)
	}
	return ParseRequest(raw)
}

// ParseRequest decodes YAML request bytes.
func ParseRequest(raw []byte) (*Request, error) {
	var r Request
	if err := yaml.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}
	r.Endpoint = strings.ToLower(strings.TrimSpace(r.Endpoint))
	switch r.Endpoint {
	case EndpointTasks, EndpointContractors, EndpointCandidates, EndpointWarehouse:
	case "":
		return nil, fmt.Errorf("request has no endpoint")
	default:
		return nil, fmt.Errorf("unknown endpoint %q", r.Endpoint)
	}
	return &r, nil
}

// PageFor applies the endpoint's default size and the global cap.
func (r *Request) PageFor(paging config.PagingConfig) listquery.PageSpec {
	size := paging.Tasks
	switch r.Endpoint {
	case EndpointContractors, EndpointCandidates:
		size = paging.Contractors
	case EndpointWarehouse:
		size = paging.Warehouse
	}
	return r.Page.Normalize(size, paging.Max)
}

func (r *Request) terms() []string {
	if s := strings.TrimSpace(r.Search); s != "" {
		return []string{s}
	}
	return nil
}

// TaskFilter is the request as a task grid filter.
func (r *Request) TaskFilter() dto.TaskListFilter {
	return dto.TaskListFilter{Filters: r.Filters, Search: r.Search, Sort: r.Sort, DispatcherID: r.DispatcherID}
}

// ContractorFilter is the request as a stage grid filter.
func (r *Request) ContractorFilter() (dto.ContractorListFilter, error) {
	statuses := dto.ContractorStage(r.Stage).Statuses()
	if len(statuses) == 0 {
		return dto.ContractorListFilter{}, fmt.Errorf("unknown stage %q", r.Stage)
	}
	return dto.ContractorListFilter{
		TaskID:       r.TaskID,
		ObjectID:     r.ObjectID,
		Statuses:     statuses,
		Professions:  r.Professions,
		Filters:      r.Filters,
		SearchColumn: r.SearchColumn,
		Terms:        r.terms(),
		Sort:         r.Sort,
	}, nil
}

// CandidateFilter is the request as a nearby search filter.
func (r *Request) CandidateFilter() (dto.ContractorSearchFilter, error) {
	if r.Origin == nil || !r.Origin.Valid() {
		return dto.ContractorSearchFilter{}, fmt.Errorf("candidates request needs a valid origin")
	}
	return dto.ContractorSearchFilter{
		TaskID:      r.TaskID,
		Origin:      *r.Origin,
		RadiusKm:    r.RadiusKm,
		Professions: r.Professions,
		Filters:     r.Filters,
		Terms:       r.terms(),
		Sort:        r.Sort,
	}, nil
}

// WarehouseFilter is the request as a warehouse grid filter.
func (r *Request) WarehouseFilter() (dto.WarehouseFilter, error) {
	w := r.Warehouse
	f := dto.WarehouseFilter{
		Search:             w.Search,
		Categories:         w.Categories,
		States:             w.States,
		Supplier:           w.Supplier,
		Location:           w.Location,
		Company:            w.Company,
		RemainderPriceFrom: w.RemainderPriceFrom,
		RemainderPriceTo:   w.RemainderPriceTo,
		QuantityInPackFrom: w.QuantityInPackFrom,
		QuantityInPackTo:   w.QuantityInPackTo,
		Payment:            w.Payment,
		Deleted:            w.Deleted,
		ResponsibleID:      w.ResponsibleID,
	}
	if f.Deleted == "" {
		f.Deleted = dto.DeletedActual
	}
	var err error
	if f.OrderDateFrom, err = parseDay(w.OrderDateFrom, false); err != nil {
		return f, err
	}
	if f.OrderDateTo, err = parseDay(w.OrderDateTo, true); err != nil {
		return f, err
	}
	return f, nil
}

func parseDay(raw string, endOfDay bool) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	day, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a YYYY-MM-DD date", listquery.ErrInvalidFilterValue, raw)
	}
	if endOfDay {
		day = day.Add(24*time.Hour - time.Second)
	}
	return &day, nil
}

// Query assembles the request's list query in dialect d.
func (r *Request) Query(d listquery.Dialect) (listquery.Query, error) {
	switch r.Endpoint {
	case EndpointTasks:
		return repository.TaskListQuery(d, r.TaskFilter())
	case EndpointContractors:
		f, err := r.ContractorFilter()
		if err != nil {
			return listquery.Query{}, err
		}
		return repository.ContractorStageQuery(d, f)
	case EndpointCandidates:
		f, err := r.CandidateFilter()
		if err != nil {
			return listquery.Query{}, err
		}
		return repository.ContractorSearchQuery(d, f)
	case EndpointWarehouse:
		f, err := r.WarehouseFilter()
		if err != nil {
			return listquery.Query{}, err
		}
		return repository.WarehouseListQuery(d, f)
	}
	return listquery.Query{}, fmt.Errorf("unknown endpoint %q", r.Endpoint)
}
