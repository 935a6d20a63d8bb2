package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/octobees/opsboard/internal/dto"
	"github.com/octobees/opsboard/internal/middleware"
	"github.com/octobees/opsboard/internal/service"
)

// TasksHandler exposes the task grid, contractor grids and task commands.
type TasksHandler struct {
	service *service.TasksService
}

// NewTasksHandler creates a new handler instance.
func NewTasksHandler(service *service.TasksService) *TasksHandler {
	return &TasksHandler{service: service}
}

func actorFromContext(c echo.Context) service.Actor {
	userID, _ := middleware.UserIDFromContext(c)
	return service.Actor{UserID: userID, Role: middleware.RoleFromContext(c)}
}

// List handles GET /tasks.
func (h *TasksHandler) List(c echo.Context) error {
	filters, err := parseFilters(c)
	if err != nil {
		return writeError(c, "list tasks", err)
	}
	sort, err := parseSort(c)
	if err != nil {
		return writeError(c, "list tasks", err)
	}

	pageSpec, err := parsePage(c)
	if err != nil {
		return writeError(c, "list tasks", err)
	}

	page, err := h.service.List(c.Request().Context(), actorFromContext(c), dto.TaskListFilter{
		Filters: filters,
		Search:  strings.TrimSpace(c.QueryParam("search")),
		Sort:    sort,
		Page:    pageSpec,
	})
	if err != nil {
		return writeError(c, "list tasks", err)
	}
	return SuccessPage(c, "tasks retrieved", page)
}

// Stage handles GET /tasks/:uuid/:stage.
func (h *TasksHandler) Stage(c echo.Context) error {
	taskID, err := uuid.Parse(c.Param("uuid"))
	if err != nil {
		return Error(c, http.StatusBadRequest, "invalid task uuid")
	}
	settings, err := dto.ParseContractorSettings(strings.TrimSpace(c.QueryParam("settings")))
	if err != nil {
		return Error(c, http.StatusBadRequest, "invalid settings")
	}
	professions, err := parseProfessions(c.QueryParam("professions"))
	if err != nil {
		return writeError(c, "list task contractors", err)
	}
	pageSpec, err := parsePage(c)
	if err != nil {
		return writeError(c, "list task contractors", err)
	}

	page, err := h.service.Stage(c.Request().Context(), taskID, dto.ContractorStageRequest{
		Stage:       dto.ContractorStage(c.Param("stage")),
		Settings:    settings,
		Professions: professions,
		Page:        pageSpec,
	})
	if err != nil {
		return writeError(c, "list task contractors", err)
	}
	return SuccessPage(c, "contractors retrieved", page)
}

// Search handles GET /tasks/:uuid/search.
func (h *TasksHandler) Search(c echo.Context) error {
	taskID, err := uuid.Parse(c.Param("uuid"))
	if err != nil {
		return Error(c, http.StatusBadRequest, "invalid task uuid")
	}
	settings, err := dto.ParseContractorSettings(strings.TrimSpace(c.QueryParam("settings")))
	if err != nil {
		return Error(c, http.StatusBadRequest, "invalid settings")
	}
	professions, err := parseProfessions(c.QueryParam("professions"))
	if err != nil {
		return writeError(c, "search contractors", err)
	}
	radius, err := optionalFloat(c, "radius")
	if err != nil {
		return writeError(c, "search contractors", err)
	}
	if radius != nil && *radius < 0 {
		return Error(c, http.StatusBadRequest, "radius must not be negative")
	}
	pageSpec, err := parsePage(c)
	if err != nil {
		return writeError(c, "search contractors", err)
	}

	page, err := h.service.SearchContractors(c.Request().Context(), taskID, dto.ContractorSearchRequest{
		Settings:    settings,
		Region:      c.QueryParam("region"),
		RadiusKm:    radius,
		Professions: professions,
		Page:        pageSpec,
		RequestID:   middleware.RequestIDFromContext(c),
	})
	if err != nil {
		return writeError(c, "search contractors", err)
	}
	return SuccessPage(c, "contractors retrieved", page)
}

// Copy handles POST /tasks/:uuid/copy.
func (h *TasksHandler) Copy(c echo.Context) error {
	taskID, err := uuid.Parse(c.Param("uuid"))
	if err != nil {
		return Error(c, http.StatusBadRequest, "invalid task uuid")
	}
	result, err := h.service.Copy(c.Request().Context(), taskID)
	if err != nil {
		return writeError(c, "copy task", err)
	}
	return Success(c, http.StatusCreated, "task copied", result)
}

// UpdateStatus handles PUT /tasks/:uuid/status/:status.
func (h *TasksHandler) UpdateStatus(c echo.Context) error {
	taskID, err := uuid.Parse(c.Param("uuid"))
	if err != nil {
		return Error(c, http.StatusBadRequest, "invalid task uuid")
	}
	status := c.Param("status")
	if err := h.service.UpdateStatus(c.Request().Context(), taskID, status); err != nil {
		return writeError(c, "update task status", err)
	}
	return Success(c, http.StatusOK, "task status updated", map[string]string{"uuid": taskID.String(), "status": status})
}

// Delete handles DELETE /tasks with a JSON array of uuids as body.
func (h *TasksHandler) Delete(c echo.Context) error {
	var ids []uuid.UUID
	if err := json.NewDecoder(c.Request().Body).Decode(&ids); err != nil {
		return Error(c, http.StatusBadRequest, "body must be a list of task uuids")
	}
	deleted, err := h.service.Delete(c.Request().Context(), ids)
	if err != nil {
		return writeError(c, "delete tasks", err)
	}
	return Success(c, http.StatusOK, "tasks deleted", map[string]int64{"deleted": deleted})
}

// Get handles GET /tasks/:uuid.
func (h *TasksHandler) Get(c echo.Context) error {
	taskID, err := uuid.Parse(c.Param("uuid"))
	if err != nil {
		return Error(c, http.StatusBadRequest, "invalid task uuid")
	}
	task, err := h.service.Get(c.Request().Context(), taskID)
	if err != nil {
		return writeError(c, "get task", err)
	}
	return Success(c, http.StatusOK, "task retrieved", task)
}

// Create handles POST /tasks.
func (h *TasksHandler) Create(c echo.Context) error {
	var in dto.TaskInput
	if err := c.Bind(&in); err != nil {
		return Error(c, http.StatusBadRequest, "invalid request payload")
	}
	in.RequestID = middleware.RequestIDFromContext(c)
	id, err := h.service.Create(c.Request().Context(), actorFromContext(c), in)
	if err != nil {
		return writeError(c, "create task", err)
	}
	return Success(c, http.StatusCreated, "task created", map[string]string{"uuid": id.String()})
}

// Update handles PUT /tasks/:uuid.
func (h *TasksHandler) Update(c echo.Context) error {
	taskID, err := uuid.Parse(c.Param("uuid"))
	if err != nil {
		return Error(c, http.StatusBadRequest, "invalid task uuid")
	}
	var in dto.TaskInput
	if err := c.Bind(&in); err != nil {
		return Error(c, http.StatusBadRequest, "invalid request payload")
	}
	if err := h.service.Update(c.Request().Context(), taskID, in); err != nil {
		return writeError(c, "update task", err)
	}
	return Success(c, http.StatusOK, "task updated", map[string]string{"uuid": taskID.String()})
}

// SetWorks handles PUT /tasks/:uuid/works with a JSON array of works as body.
func (h *TasksHandler) SetWorks(c echo.Context) error {
	taskID, err := uuid.Parse(c.Param("uuid"))
	if err != nil {
		return Error(c, http.StatusBadRequest, "invalid task uuid")
	}
	var works []dto.TaskWorkInput
	if err := json.NewDecoder(c.Request().Body).Decode(&works); err != nil {
		return Error(c, http.StatusBadRequest, "body must be a list of works")
	}
	if err := h.service.SetWorks(c.Request().Context(), taskID, works); err != nil {
		return writeError(c, "set task works", err)
	}
	return Success(c, http.StatusOK, "task works updated", map[string]int{"works": len(works)})
}

// SetContacts handles PUT /tasks/:uuid/contacts with a JSON array of
// contacts as body.
func (h *TasksHandler) SetContacts(c echo.Context) error {
	taskID, err := uuid.Parse(c.Param("uuid"))
	if err != nil {
		return Error(c, http.StatusBadRequest, "invalid task uuid")
	}
	var contacts []dto.TaskContactInput
	if err := json.NewDecoder(c.Request().Body).Decode(&contacts); err != nil {
		return Error(c, http.StatusBadRequest, "body must be a list of contacts")
	}
	if err := h.service.SetContacts(c.Request().Context(), taskID, contacts); err != nil {
		return writeError(c, "set task contacts", err)
	}
	return Success(c, http.StatusOK, "task contacts updated", map[string]int{"contacts": len(contacts)})
}

// SetDispatchers handles PUT /tasks/:uuid/dispatchers with a JSON array of
// user uuids as body.
func (h *TasksHandler) SetDispatchers(c echo.Context) error {
	taskID, err := uuid.Parse(c.Param("uuid"))
	if err != nil {
		return Error(c, http.StatusBadRequest, "invalid task uuid")
	}
	var ids []uuid.UUID
	if err := json.NewDecoder(c.Request().Body).Decode(&ids); err != nil {
		return Error(c, http.StatusBadRequest, "body must be a list of user uuids")
	}
	assigned, err := h.service.SetDispatchers(c.Request().Context(), taskID, ids)
	if err != nil {
		return writeError(c, "set task dispatchers", err)
	}
	return Success(c, http.StatusOK, "task dispatchers updated", map[string]int64{"dispatchers": assigned})
}
