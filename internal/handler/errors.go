package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/octobees/opsboard/internal/listquery"
	"github.com/octobees/opsboard/internal/middleware"
	"github.com/octobees/opsboard/internal/repository"
	"github.com/octobees/opsboard/internal/service"
)

// writeError maps domain and query errors onto the response envelope.
// Client mistakes echo the error text; everything else is logged and
// answered with a generic message.
func writeError(c echo.Context, action string, err error) error {
	status, message := classify(err)
	if status >= http.StatusInternalServerError {
		log.Printf("%s failed request_id=%s err=%v", action, middleware.RequestIDFromContext(c), err)
	}
	if message == "" {
		message = err.Error()
	}
	return Error(c, status, message)
}

func classify(err error) (int, string) {
	switch {
	case listquery.IsValidation(err),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrEmptySelection),
		errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrObjectChange):
		return http.StatusBadRequest, ""
	case errors.Is(err, service.ErrUnknownStage),
		errors.Is(err, repository.ErrTaskNotFound),
		errors.Is(err, repository.ErrWarehouseItemNotFound):
		return http.StatusNotFound, ""
	case errors.Is(err, repository.ErrResponsibleNotFound),
		errors.Is(err, service.ErrLocationUnknown),
		errors.Is(err, repository.ErrObjectNotFound),
		errors.Is(err, repository.ErrWorkNotFound),
		errors.Is(err, repository.ErrNomenclatureNotFound):
		return http.StatusUnprocessableEntity, ""
	case errors.Is(err, listquery.ErrConstraintViolation):
		return http.StatusConflict, "conflicting change"
	case errors.Is(err, listquery.ErrStorageUnavailable):
		return http.StatusServiceUnavailable, "storage unavailable"
	}
	return http.StatusInternalServerError, "internal error"
}
