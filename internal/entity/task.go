package entity

import (
	"time"

	"github.com/google/uuid"
)

// Task statuses in lifecycle order.
const (
	TaskCreated              = "created"
	TaskRecruiting           = "isRecruiting"
	TaskRecruitmentCompleted = "recruitmentCompleted"
	TaskWorking              = "working"
	TaskWorkingCompleted     = "workingCompleted"
	TaskAgreement            = "agreement"
	TaskCompleted            = "completed"
)

// TaskStatuses lists every status a task may be moved to.
var TaskStatuses = []string{
	TaskCreated,
	TaskRecruiting,
	TaskRecruitmentCompleted,
	TaskWorking,
	TaskWorkingCompleted,
	TaskAgreement,
	TaskCompleted,
}

// IsTaskStatus reports whether status is a known task status.
func IsTaskStatus(status string) bool {
	for _, s := range TaskStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// Task is a labor request together with its staffing aggregates.
type Task struct {
	ID          int64      `json:"-"`
	UUID        uuid.UUID  `json:"uuid"`
	ObjectID    *int64     `json:"-"`
	Name        string     `json:"name"`
	Description *string    `json:"description,omitempty"`
	Status      string     `json:"status"`
	Region      *string    `json:"region,omitempty"`
	City        *string    `json:"city,omitempty"`
	Latitude    *float64   `json:"lat,omitempty"`
	Longitude   *float64   `json:"lon,omitempty"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	ObjectUUID  *uuid.UUID `json:"object,omitempty"`
	ObjectName  *string    `json:"object_name,omitempty"`
	Total       int64      `json:"total"`
	Completed   int64      `json:"completed"`
	Percent     int64      `json:"percent"`
	Rate        *float64   `json:"rate,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// HasLocation reports whether the task carries coordinates.
func (t Task) HasLocation() bool {
	return t.Latitude != nil && t.Longitude != nil
}

// Task shifts. A task that starts and ends on the same day is a day shift.
const (
	ShiftDay   = "day"
	ShiftNight = "night"
)

// TaskWork is a profession requested by a task.
type TaskWork struct {
	UUID           uuid.UUID `json:"uuid"`
	Name           string    `json:"name"`
	RequiresPeople int       `json:"requires_people"`
}

// TaskContact is an on-site contact person of a task.
type TaskContact struct {
	UUID     uuid.UUID `json:"uuid"`
	Name     string    `json:"name"`
	Phone    *string   `json:"phone,omitempty"`
	Position *string   `json:"position,omitempty"`
}

// TaskDispatcher is a user assigned to run a task.
type TaskDispatcher struct {
	UUID      uuid.UUID `json:"uuid"`
	Lastname  string    `json:"lastname"`
	Firstname string    `json:"firstname"`
}

// TaskDetail is the task card: the row with its relations.
type TaskDetail struct {
	Task
	SystemName  *string          `json:"system_name,omitempty"`
	Scheme      *string          `json:"scheme,omitempty"`
	Shift       *string          `json:"shift,omitempty"`
	UntilDate   *time.Time       `json:"until_date,omitempty"`
	Views       int64            `json:"views"`
	Works       []TaskWork       `json:"works"`
	Contacts    []TaskContact    `json:"contacts"`
	Dispatchers []TaskDispatcher `json:"dispatchers"`
}

// ObjectWork is a profession offered on an object.
type ObjectWork struct {
	ID   int64
	UUID uuid.UUID
	Name string
}

// TaskObject is the construction object a task belongs to.
type TaskObject struct {
	ID               int64
	UUID             uuid.UUID
	Code             string
	City             *string
	Address          *string
	SpecializationID *int64
	Works            []ObjectWork
}

// Work returns the object's work with the given uuid.
func (o TaskObject) Work(id uuid.UUID) (ObjectWork, bool) {
	for _, w := range o.Works {
		if w.UUID == id {
			return w, true
		}
	}
	return ObjectWork{}, false
}
