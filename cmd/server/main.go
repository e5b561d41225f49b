package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/mpelkone/timeclock/internal/config"
	"github.com/mpelkone/timeclock/internal/credential"
	"github.com/mpelkone/timeclock/internal/handler"
	"github.com/mpelkone/timeclock/internal/repository"
	"github.com/mpelkone/timeclock/internal/service"
	"github.com/mpelkone/timeclock/internal/session"
)

func main() {
	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := sqlx.Connect("pgx", cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := repository.Migrate(db); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	slog.Info("database connected")

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("parse redis url: %w", err)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelPing()
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}

	slog.Info("redis connected")

	accountRepo := repository.NewAccountRepository(db)
	projectRepo := repository.NewProjectRepository(db)

	sessions := session.NewManager(session.NewRedisStore(redisClient), cfg.SessionSecret, cfg.SessionTTL)
	authSvc := service.NewAuthService(accountRepo, credential.NewHasher())
	trackerSvc := service.NewTrackerService(projectRepo)

	authHandler := handler.NewAuthHandler(authSvc, sessions, cfg.CookieSecure)
	trackerHandler := handler.NewTrackerHandler(trackerSvc, authSvc)

	renderer, err := handler.NewRenderer()
	if err != nil {
		return fmt.Errorf("load templates: %w", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.Renderer = renderer
	e.Validator = handler.NewAppValidator()
	e.HTTPErrorHandler = handler.HTTPErrorHandler

	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())
	e.Use(handler.RequestLogger())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	e.GET("/login", authHandler.LoginPage)
	e.POST("/login", authHandler.Login)
	e.GET("/logout", authHandler.Logout)
	e.GET("/register", authHandler.RegisterPage)
	e.POST("/register", authHandler.Register)

	app := e.Group("", handler.RequireSession(sessions))
	app.GET("/app", trackerHandler.Manager)
	app.GET("/app/finished", trackerHandler.FinishedProjects)
	app.POST("/app/projects", trackerHandler.CreateProject)
	app.GET("/start/:id", trackerHandler.Start)
	app.GET("/stop/:id", trackerHandler.Stop)
	app.GET("/finish/:id", trackerHandler.Finish)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", cfg.Port)
		errCh <- e.Start(fmt.Sprintf(":%d", cfg.Port))
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("shutdown signal received", "signal", sig)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}
