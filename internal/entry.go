// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/starford/geocore/internal/mcpserver"
	"github.com/starford/geocore/internal/storage"
	"github.com/starford/geocore/internal/uploader"
	"github.com/starford/geocore/pkg/geocore"
)

// Mode selects the long-running subsystem Run starts.
type Mode string

const (
	// ModeWatch uploads files from uploader.dir as object binaries.
	ModeWatch Mode = "watch"
	// ModeMCP serves Geocore tools over MCP on stdio.
	ModeMCP Mode = "mcp"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{mode: ModeWatch}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	if app.mode != ModeWatch && app.mode != ModeMCP {
		return fmt.Errorf("unknown mode %q", app.mode)
	}

	cfg := app.config

	if app.logOutput == nil {
		app.logOutput = os.Stdout
		if app.mode == ModeMCP {
			// stdout carries the protocol.
			app.logOutput = os.Stderr
		}
	}
	logger := NewLogger(app.logOutput, cfg.App.LogLevel)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("mode", string(app.mode)),
		slog.String("base_url", cfg.Geocore.BaseURL),
		slog.String("project_id", cfg.Geocore.ProjectID),
		slog.String("log_level", cfg.App.LogLevel.String()))

	client, err := NewClient(cfg, logger)
	if err != nil {
		return err
	}

	if app.mode == ModeMCP {
		err = runMCP(ctx, app, client, logger)
	} else {
		err = runWatch(ctx, app, client, logger)
	}
	if err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Stopped successfully")
	return nil
}

// NewLogger builds the structured JSON logger used by every mode.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// NewClient builds an SDK client from the geocore section of cfg.
func NewClient(cfg *Config, logger *slog.Logger) (*geocore.Client, error) {
	client, err := geocore.New(cfg.Geocore.ClientConfig(), geocore.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("init geocore client: %w", err)
	}
	return client, nil
}

func runWatch(ctx context.Context, app *application, client *geocore.Client, logger *slog.Logger) error {
	cfg := app.config.Uploader
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("uploader: %w", err)
	}

	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return fmt.Errorf("create upload dir: %w", err)
	}
	store, err := storage.NewFS(cfg.Dir)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	if _, err := client.LoginWithDefaultUser(ctx); err != nil {
		return fmt.Errorf("login: %w", err)
	}

	up := uploader.New(client.Binaries, store, uploader.Options{
		ObjectID:   cfg.ObjectID,
		KeyPrefix:  cfg.KeyPrefix,
		Extensions: cfg.Extensions,
	}, logger, app.onUpload)

	g, gCtx := errgroup.WithContext(ctx)
	watchCtx, stop := context.WithCancel(gCtx)
	defer stop()

	g.Go(func() error {
		defer stop()
		if err := up.Watch(watchCtx); err != nil {
			return fmt.Errorf("watch %s: %w", store.Root(), err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-watchCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}
		stop()
		return nil
	})

	return g.Wait()
}

func runMCP(ctx context.Context, app *application, client *geocore.Client, logger *slog.Logger) error {
	if _, err := client.LoginWithDefaultUser(ctx); err != nil {
		logger.Warn("login failed, serving without a session", slog.String("error", err.Error()))
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("MCP server starting on stdio", slog.String("name", app.config.MCP.Name))
	return mcpserver.New(app.config.MCP.Name, client).Serve(ctx, os.Stdin, os.Stdout)
}
