// @title			WorkLens API
// @version		1.0
// @description	Workspace analysis task orchestrator with AI dispatch and local fallback.
// @BasePath		/api/v1

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

	"github.com/mtlprog/worklens/internal/aiclient"
	"github.com/mtlprog/worklens/internal/config"
	"github.com/mtlprog/worklens/internal/database"
	"github.com/mtlprog/worklens/internal/handler"
	"github.com/mtlprog/worklens/internal/logger"
	"github.com/mtlprog/worklens/internal/repository"
	"github.com/mtlprog/worklens/internal/service"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "worklens",
		Usage: "Workspace analysis task orchestrator",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Value:   "info",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:     "database-url",
				Aliases:  []string{"d"},
				Value:    config.DefaultDatabaseURL,
				Usage:    "PostgreSQL database URL",
				EnvVars:  []string{"DATABASE_URL"},
				Required: true,
			},
			&cli.StringFlag{
				Name:    "ai-service-url",
				Value:   config.DefaultAIServiceURL,
				Usage:   "Base URL of the AI compute service",
				EnvVars: []string{"AI_SERVICE_URL"},
			},
			&cli.DurationFlag{
				Name:    "ai-service-timeout",
				Value:   config.DefaultAIServiceTimeout,
				Usage:   "Timeout for a single AI service call",
				EnvVars: []string{"AI_SERVICE_TIMEOUT"},
			},
		},
		Before: func(c *cli.Context) error {
			logger.Setup(logger.ParseLevel(c.String("log-level")))
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Start the web server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "port",
						Aliases: []string{"p"},
						Value:   config.DefaultPort,
						Usage:   "HTTP server port",
						EnvVars: []string{"PORT"},
					},
				},
				Action: runServe,
			},
			{
				Name:   "sync-tasks",
				Usage:  "Run one status sync pass over dispatched non-terminal tasks",
				Action: runSyncTasks,
			},
		},
		Action: runServe,
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func newAIClient(c *cli.Context) *aiclient.Client {
	return aiclient.New(c.String("ai-service-url"), c.Duration("ai-service-timeout"))
}

func runServe(c *cli.Context) error {
	ctx := c.Context

	port := c.String("port")
	if port == "" {
		port = config.DefaultPort
	}
	databaseURL := c.String("database-url")

	db, err := database.New(ctx, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := database.RunMigrations(ctx, db.Pool()); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	h := handler.New(db.Pool(), newAIClient(c))
	defer h.Close()

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	server := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErr := make(chan error, 1)
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "server_addr", "http://localhost:"+port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case <-done:
		slog.Info("shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

func runSyncTasks(c *cli.Context) error {
	ctx := c.Context
	databaseURL := c.String("database-url")

	db, err := database.New(ctx, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := database.RunMigrations(ctx, db.Pool()); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	pool := db.Pool()
	taskService := service.NewTaskService(
		repository.NewTaskRepository(pool),
		repository.NewWorkspaceRepository(pool),
		repository.NewTemplateRepository(pool),
		newAIClient(c),
	)
	defer taskService.Close()

	count, err := taskService.SyncPendingTasks(ctx)
	if err != nil {
		return fmt.Errorf("sync pending tasks: %w", err)
	}

	slog.Info("sync pass completed", "synced", count)
	return nil
}
