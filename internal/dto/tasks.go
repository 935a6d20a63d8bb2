package dto

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/octobees/opsboard/internal/entity"
	"github.com/octobees/opsboard/internal/listquery"
)

// TaskListFilter is the validated input of the task grid.
type TaskListFilter struct {
	Filters []listquery.FilterDescriptor
	Search  string
	Sort    *listquery.SortSpec
	Page    listquery.PageSpec
	// DispatcherID restricts the grid to tasks the dispatcher is assigned to.
	DispatcherID *int64
	// AsOf selects the rates in effect; zero means now.
	AsOf time.Time
}

// ContractorStage names one contractor grid of a task.
type ContractorStage string

const (
	StageResponses   ContractorStage = "responses"
	StageSelection   ContractorStage = "selection"
	StageInvitations ContractorStage = "invitations"
	StageAssigned    ContractorStage = "assigned"
)

var stageStatuses = map[ContractorStage][]string{
	StageResponses:   {entity.ContractorRequested, entity.ContractorRejected},
	StageSelection:   {entity.ContractorLocal},
	StageInvitations: {entity.ContractorInvited, entity.ContractorAcceptInvited},
	StageAssigned:    {entity.ContractorAccepted, entity.ContractorWorking, entity.ContractorRefused},
}

// Statuses returns the pivot statuses shown by the stage, nil when unknown.
func (s ContractorStage) Statuses() []string {
	return stageStatuses[s]
}

// ContractorSettings is the JSON "settings" parameter of contractor grids.
type ContractorSettings struct {
	Filters []listquery.FilterDescriptor `json:"filters"`
	// Search optionally narrows Value to one column.
	Search string `json:"search"`
	Value  string `json:"value"`
	Sort   string `json:"sort"`
	Order  string `json:"order"`
}

// ParseContractorSettings decodes raw, treating an empty string as no settings.
func ParseContractorSettings(raw string) (ContractorSettings, error) {
	var s ContractorSettings
	if raw == "" {
		return s, nil
	}
	err := json.Unmarshal([]byte(raw), &s)
	return s, err
}

// ContractorListFilter is the validated input of a stage grid.
type ContractorListFilter struct {
	TaskID       int64
	ObjectID     *int64
	Statuses     []string
	Professions  []uuid.UUID
	Filters      []listquery.FilterDescriptor
	SearchColumn string
	Terms        []string
	Sort         *listquery.SortSpec
	Page         listquery.PageSpec
}

// ContractorSearchFilter is the validated input of the nearby search.
type ContractorSearchFilter struct {
	TaskID      int64
	Origin      listquery.Point
	RadiusKm    float64
	Professions []uuid.UUID
	Filters     []listquery.FilterDescriptor
	Terms       []string
	Sort        *listquery.SortSpec
	Page        listquery.PageSpec
}

// TaskCopyResult is returned after a task has been duplicated.
type TaskCopyResult struct {
	UUID uuid.UUID `json:"uuid"`
	Name string    `json:"name"`
}

// ContractorStageRequest is the decoded input of a stage grid endpoint.
type ContractorStageRequest struct {
	Stage       ContractorStage
	Settings    ContractorSettings
	Professions []uuid.UUID
	Page        listquery.PageSpec
}

// ContractorSearchRequest is the decoded input of the nearby search.
type ContractorSearchRequest struct {
	Settings ContractorSettings
	// Region is geocoded when the task carries no coordinates.
	Region      string
	RadiusKm    *float64
	Professions []uuid.UUID
	Page        listquery.PageSpec
	RequestID   string
}

// TaskWorkInput requests people for one of the object's works.
type TaskWorkInput struct {
	UUID           uuid.UUID `json:"uuid"`
	RequiresPeople int       `json:"requires_people"`
}

// TaskContactInput is a contact person as sent by the client.
type TaskContactInput struct {
	Name     string  `json:"name"`
	Phone    *string `json:"phone"`
	Position *string `json:"position"`
}

// TaskInput is the body of task create and update.
type TaskInput struct {
	Object      uuid.UUID `json:"object"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	StartDate   Date      `json:"start_date"`
	EndDate     Date      `json:"end_date"`
	UntilDate   Date      `json:"until_date"`
	Region      *string   `json:"region"`
	City        *string   `json:"city"`
	Scheme      *string   `json:"scheme"`
	Shift       string    `json:"shift"`
	// Works, Contacts and Dispatchers are left untouched on update when nil.
	Works       []TaskWorkInput    `json:"works"`
	Contacts    []TaskContactInput `json:"contacts"`
	Dispatchers []uuid.UUID        `json:"dispatchers"`
	RequestID   string             `json:"-"`
}

// TaskDraft is a validated task row ready to be written.
type TaskDraft struct {
	ObjectID         int64
	SpecializationID *int64
	AuthorID         int64
	Name             string
	SystemName       string
	Description      *string
	Region           *string
	City             *string
	Scheme           *string
	Shift            string
	StartDate        time.Time
	EndDate          time.Time
	UntilDate        time.Time
	Lat              *float64
	Lon              *float64
	// Contacts nil copies the object's contacts on create.
	Contacts    []TaskContactInput
	Works       []TaskWorkInput
	Dispatchers []uuid.UUID
}
