package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/octobees/opsboard/internal/listquery"
)

// APIResponse describes the standard envelope returned by the API.
type APIResponse struct {
	Status  string    `json:"status"`
	Message string    `json:"message,omitempty"`
	Data    any       `json:"data,omitempty"`
	Meta    *PageMeta `json:"meta,omitempty"`
}

// PageMeta describes the page a list response carries in Data.
type PageMeta struct {
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PerPage  int   `json:"per_page"`
	LastPage int   `json:"last_page"`
}

// Success sends a successful response using the shared envelope format.
func Success(c echo.Context, status int, message string, data any) error {
	if status == 0 {
		status = http.StatusOK
	}
	payload := APIResponse{
		Status:  "success",
		Message: message,
		Data:    data,
	}
	return c.JSON(status, payload)
}

// SuccessPage sends the rows of page as data and its position as meta.
func SuccessPage[T any](c echo.Context, message string, page listquery.Page[T]) error {
	rows := page.Rows
	if rows == nil {
		rows = []T{}
	}
	return c.JSON(http.StatusOK, APIResponse{
		Status:  "success",
		Message: message,
		Data:    rows,
		Meta: &PageMeta{
			Total:    page.Total,
			Page:     page.PageNumber,
			PerPage:  page.PageSize,
			LastPage: page.LastPage(),
		},
	})
}

// Error sends an error response using the shared envelope format.
func Error(c echo.Context, status int, message string) error {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	payload := APIResponse{
		Status:  "error",
		Message: message,
	}
	return c.JSON(status, payload)
}
