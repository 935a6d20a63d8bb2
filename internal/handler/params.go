package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/octobees/opsboard/internal/listquery"
)

const dateLayout = "2006-01-02"

// intParam returns fallback when the parameter is absent and wraps kind
// when it is not an integer.
func intParam(c echo.Context, name string, fallback int, kind error) (int, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", kind, name, raw)
	}
	return value, nil
}

// parsePage reads page and per_page; missing values are left for the
// service to default.
func parsePage(c echo.Context) (listquery.PageSpec, error) {
	number, err := intParam(c, "page", 1, listquery.ErrInvalidPage)
	if err != nil {
		return listquery.PageSpec{}, err
	}
	size, err := intParam(c, "per_page", 0, listquery.ErrInvalidPage)
	if err != nil {
		return listquery.PageSpec{}, err
	}
	return listquery.PageSpec{Number: number, Size: size}, nil
}

// parseSort returns nil when no sort key was requested.
func parseSort(c echo.Context) (*listquery.SortSpec, error) {
	key := strings.TrimSpace(c.QueryParam("sort"))
	if key == "" {
		return nil, nil
	}
	dir, err := listquery.ParseDirection(c.QueryParam("order"), listquery.Asc)
	if err != nil {
		return nil, err
	}
	return &listquery.SortSpec{Key: key, Direction: dir}, nil
}

// parseFilters accepts either one JSON array in "filters" or one JSON
// object per repeated "filters[]" parameter.
func parseFilters(c echo.Context) ([]listquery.FilterDescriptor, error) {
	var out []listquery.FilterDescriptor
	if raw := strings.TrimSpace(c.QueryParam("filters")); raw != "" {
		if err := decodeJSON(raw, &out); err != nil {
			return nil, fmt.Errorf("%w: filters: %v", listquery.ErrInvalidFilterValue, err)
		}
	}
	for _, raw := range c.QueryParams()["filters[]"] {
		var f listquery.FilterDescriptor
		if err := decodeJSON(raw, &f); err != nil {
			return nil, fmt.Errorf("%w: filters[]: %v", listquery.ErrInvalidFilterValue, err)
		}
		out = append(out, f)
	}
	return out, nil
}

// parseProfessions decodes a JSON array of profession uuids.
func parseProfessions(raw string) ([]uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var ids []uuid.UUID
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, fmt.Errorf("%w: professions: %v", listquery.ErrInvalidFilterValue, err)
	}
	return ids, nil
}

func decodeJSON(raw string, v any) error {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	return dec.Decode(v)
}

func optionalFloat(c echo.Context, name string) (*float64, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s=%q", listquery.ErrInvalidFilterValue, name, raw)
	}
	return &v, nil
}

func optionalInt64(c echo.Context, name string) (*int64, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s=%q", listquery.ErrInvalidFilterValue, name, raw)
	}
	return &v, nil
}

func optionalDate(c echo.Context, name string) (*time.Time, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return nil, nil
	}
	v, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s=%q (use YYYY-MM-DD)", listquery.ErrInvalidFilterValue, name, raw)
	}
	return &v, nil
}

// splitList flattens repeated and comma separated values, dropping blanks.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
