package main

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/sigitp-git/core-network-devops-agent/internal/config"
	"github.com/sigitp-git/core-network-devops-agent/internal/tool"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestApplyConfigReload(t *testing.T) {
	logger := testLogger()
	reg := tool.NewRegistry(logger)
	reg.MustRegister(tool.MustNew(tool.Spec{Name: "probe", Description: "probe"},
		func(ctx context.Context, args map[string]any) (tool.Result, error) {
			return tool.Ok(nil), nil
		}))
	ex := tool.NewExecutor(reg, tool.DefaultPolicy(), logger)

	app := &App{
		Logger:   logger,
		logLevel: new(slog.LevelVar),
		Executor: ex,
	}
	app.logLevel.Set(slog.LevelInfo)

	app.applyConfigReload(&config.Config{
		LogLevel: "debug",
		Tools: config.ToolsConfig{
			Overrides: map[string]config.ToolPolicy{
				"probe": {Disabled: true},
			},
		},
	})

	if got := app.logLevel.Level(); got != slog.LevelDebug {
		t.Errorf("log level not applied: %v", got)
	}
	if res := ex.Execute(context.Background(), "probe", nil); res.Success {
		t.Error("reloaded disable override not applied")
	}
}

func TestParseLogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"unknown": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLogLevel(in); got != want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
