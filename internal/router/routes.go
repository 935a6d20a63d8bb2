package router

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/octobees/opsboard/internal/auth"
	"github.com/octobees/opsboard/internal/config"
	"github.com/octobees/opsboard/internal/handler"
	middlewarepkg "github.com/octobees/opsboard/internal/middleware"
)

// Handlers aggregates HTTP handlers used by the router.
type Handlers struct {
	Tasks     *handler.TasksHandler
	Warehouse *handler.WarehouseHandler
}

// Register wires all HTTP routes for the API.
func Register(e *echo.Echo, cfg *config.Config, jwtManager *auth.JWTManager, handlers Handlers) {
	e.GET("/healthz", func(c echo.Context) error {
		return handler.Success(c, http.StatusOK, "service healthy", map[string]any{"status": "ok"})
	})

	secured := e.Group("")
	secured.Use(middlewarepkg.JWT(jwtManager))

	tasks := secured.Group("/tasks", middlewarepkg.RequireRole(auth.RoleAdmin, auth.RoleDispatcher))
	tasks.GET("", handlers.Tasks.List)
	tasks.POST("", handlers.Tasks.Create)
	tasks.DELETE("", handlers.Tasks.Delete)
	tasks.GET("/:uuid", handlers.Tasks.Get)
	tasks.PUT("/:uuid", handlers.Tasks.Update)
	tasks.PUT("/:uuid/works", handlers.Tasks.SetWorks)
	tasks.PUT("/:uuid/contacts", handlers.Tasks.SetContacts)
	tasks.PUT("/:uuid/dispatchers", handlers.Tasks.SetDispatchers)
	tasks.GET("/:uuid/search", handlers.Tasks.Search, middlewarepkg.SearchRateLimiter(cfg.RateLimitSearch))
	tasks.GET("/:uuid/:stage", handlers.Tasks.Stage)
	tasks.POST("/:uuid/copy", handlers.Tasks.Copy)
	tasks.PUT("/:uuid/status/:status", handlers.Tasks.UpdateStatus)

	secured.GET("/warehouse/mine", handlers.Warehouse.Mine,
		middlewarepkg.RequireRole(auth.RoleAdmin, auth.RoleStorekeeper, auth.RoleDetailer))

	warehouse := secured.Group("/warehouse", middlewarepkg.RequireRole(auth.RoleAdmin, auth.RoleStorekeeper))
	warehouse.GET("", handlers.Warehouse.List)
	warehouse.POST("", handlers.Warehouse.Create)
	warehouse.GET("/:id", handlers.Warehouse.Card)
	warehouse.PUT("/:id", handlers.Warehouse.Update)
	warehouse.POST("/withdraw", handlers.Warehouse.Withdraw)
	warehouse.POST("/take-from-production", handlers.Warehouse.TakeFromProduction)
	warehouse.POST("/change-status", handlers.Warehouse.ChangeStatus)
}
