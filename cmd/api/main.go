package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/octobees/opsboard/internal/auth"
	"github.com/octobees/opsboard/internal/config"
	"github.com/octobees/opsboard/internal/database"
	"github.com/octobees/opsboard/internal/geocode"
	"github.com/octobees/opsboard/internal/handler"
	middlewarepkg "github.com/octobees/opsboard/internal/middleware"
	"github.com/octobees/opsboard/internal/repository"
	"github.com/octobees/opsboard/internal/router"
	"github.com/octobees/opsboard/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := database.Connect(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer pool.Close()

	sqlDB, err := database.SQLFromPool(pool)
	if err != nil {
		log.Fatalf("failed to open database/sql handle: %v", err)
	}
	defer sqlDB.Close()

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)
	locator := geocode.NewClient(nil, cfg.GeocoderBaseURL, cfg.GeocoderAuth)

	tasksRepo := repository.NewPGXTasksRepository(pool)
	contractorsRepo := repository.NewPGXContractorsRepository(pool)
	warehouseRepo := repository.NewSQLWarehouseRepository(sqlDB)

	tasksService := service.NewTasksService(tasksRepo, contractorsRepo, locator, service.TasksOptions{
		Paging:      cfg.Paging,
		RadiusKm:    cfg.SearchRadiusKm,
		PhoneRegion: cfg.PhoneRegion,
	})
	warehouseService := service.NewWarehouseService(warehouseRepo, cfg.Paging)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middlewarepkg.RequestID())
	e.Use(middlewarepkg.Logging())
	e.Use(echoMiddleware.Recover())

	router.Register(e, cfg, jwtManager, router.Handlers{
		Tasks:     handler.NewTasksHandler(tasksService),
		Warehouse: handler.NewWarehouseHandler(warehouseService),
	})

	serverErr := make(chan error, 1)
	go func() {
		log.Printf("listening port=%s", cfg.Port)
		serverErr <- e.Start(":" + cfg.Port)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Printf("received signal %s, shutting down", sig)
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
		return
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}
