package entity

import (
	"time"

	"github.com/google/uuid"
)

// Contractor statuses on the task_contractors pivot.
const (
	ContractorRequested     = "requested"
	ContractorRejected      = "rejected"
	ContractorLocal         = "local"
	ContractorInvited       = "invited"
	ContractorAcceptInvited = "acceptInvited"
	ContractorAccepted      = "accepted"
	ContractorWorking       = "working"
	ContractorRefused       = "refused"
)

// CompletedContractorStatuses count towards a task's completion.
var CompletedContractorStatuses = []string{ContractorAccepted, ContractorWorking}

// Contractor is one row of a contractor grid.
type Contractor struct {
	ID         int64      `json:"-"`
	UUID       uuid.UUID  `json:"uuid"`
	Lastname   string     `json:"lastname"`
	Firstname  string     `json:"firstname"`
	Middlename *string    `json:"middlename,omitempty"`
	Phone      *string    `json:"phone,omitempty"`
	Rate       *float64   `json:"rate,omitempty"`
	Trust      *float64   `json:"trust,omitempty"`
	Age        *int       `json:"age,omitempty"`
	Rank       *string    `json:"rank,omitempty"`
	OnObject   bool       `json:"on_object"`
	Status     *string    `json:"status,omitempty"`
	AttachedAt *time.Time `json:"attached_at,omitempty"`
	Address    *string    `json:"address,omitempty"`
	Distance   *float64   `json:"distance,omitempty"`
}
