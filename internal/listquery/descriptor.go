package listquery

import (
	"fmt"
	"strings"
)

// Operator is a filter comparison.
type Operator string

const (
	OpEq   Operator = "eq"
	OpNe   Operator = "ne"
	OpIn   Operator = "in"
	OpGte  Operator = "gte"
	OpLte  Operator = "lte"
	OpLike Operator = "like"
	OpNull Operator = "null"
)

// ParseOperator validates raw input. An empty string means OpEq.
func ParseOperator(raw string) (Operator, error) {
	switch op := Operator(strings.ToLower(strings.TrimSpace(raw))); op {
	case "":
		return OpEq, nil
	case OpEq, OpNe, OpIn, OpGte, OpLte, OpLike, OpNull:
		return op, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidOperator, raw)
}

// UnmarshalText lets descriptors decode straight from JSON or YAML.
func (o *Operator) UnmarshalText(text []byte) error {
	op, err := ParseOperator(string(text))
	if err != nil {
		return err
	}
	*o = op
	return nil
}

// FilterDescriptor is a single field/operator/value predicate request.
type FilterDescriptor struct {
	Field    string   `json:"field" yaml:"field"`
	Operator Operator `json:"operator,omitempty" yaml:"operator,omitempty"`
	Value    any      `json:"value" yaml:"value"`
}

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseDirection accepts asc/desc in any case; empty means fallback.
func ParseDirection(raw string, fallback Direction) (Direction, error) {
	switch d := Direction(strings.ToLower(strings.TrimSpace(raw))); d {
	case "":
		return fallback, nil
	case Asc, Desc:
		return d, nil
	}
	return "", fmt.Errorf("%w: direction %q", ErrInvalidSortKey, raw)
}

// SortSpec names a sort key from the endpoint's vocabulary.
type SortSpec struct {
	Key       string    `json:"key" yaml:"key"`
	Direction Direction `json:"direction" yaml:"direction"`
}

// PageSpec selects a page; Number starts at 1.
type PageSpec struct {
	Size   int `json:"size" yaml:"size"`
	Number int `json:"number" yaml:"number"`
}

// Normalize applies the endpoint default for missing sizes, clamps to max
// and moves page numbers below 1 to the first page.
func (p PageSpec) Normalize(defaultSize, maxSize int) PageSpec {
	if p.Size <= 0 {
		p.Size = defaultSize
	}
	if maxSize > 0 && p.Size > maxSize {
		p.Size = maxSize
	}
	if p.Number < 1 {
		p.Number = 1
	}
	return p
}

func (p PageSpec) offset() int {
	return (p.Number - 1) * p.Size
}

// Page is one page of results plus the size of the full result set.
type Page[T any] struct {
	Rows       []T   `json:"rows"`
	Total      int64 `json:"total"`
	PageNumber int   `json:"page"`
	PageSize   int   `json:"per_page"`
}

// LastPage returns the number of the final page, 0 when there are no rows.
func (p Page[T]) LastPage() int {
	if p.Total == 0 || p.PageSize <= 0 {
		return 0
	}
	return int((p.Total + int64(p.PageSize) - 1) / int64(p.PageSize))
}
