// Command agent runs the core-network DevOps agent: an LLM-driven
// operator for 5G/LTE workloads on AWS and Kubernetes.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sigitp-git/core-network-devops-agent/internal/agent"
	"github.com/sigitp-git/core-network-devops-agent/internal/api"
	"github.com/sigitp-git/core-network-devops-agent/internal/audit"
	"github.com/sigitp-git/core-network-devops-agent/internal/awsclient"
	"github.com/sigitp-git/core-network-devops-agent/internal/cli"
	"github.com/sigitp-git/core-network-devops-agent/internal/config"
	"github.com/sigitp-git/core-network-devops-agent/internal/devops"
	"github.com/sigitp-git/core-network-devops-agent/internal/kube"
	"github.com/sigitp-git/core-network-devops-agent/internal/memory"
	"github.com/sigitp-git/core-network-devops-agent/internal/models"
	"github.com/sigitp-git/core-network-devops-agent/internal/nf"
	"github.com/sigitp-git/core-network-devops-agent/internal/scheduler"
	"github.com/sigitp-git/core-network-devops-agent/internal/tool"
)

var (
	version   = "0.1.0"
	buildTime = "dev"
)

// App holds the runtime components.
type App struct {
	Config     *config.Config
	ConfigPath string
	Logger     *slog.Logger
	logLevel   *slog.LevelVar
	AWS       *awsclient.Manager
	Kube      *kube.Manager
	Registry  *tool.Registry
	Executor  *tool.Executor
	Router    *models.Router
	Memory    *memory.Conversation
	Audit     *audit.Store
	Agent     *agent.Agent
	Scheduler *scheduler.Scheduler
	APIServer *api.Server
}

func main() {
	os.Exit(run())
}

func run() int {
	fs := flag.NewFlagSet("agent", flag.ExitOnError)
	configPath := fs.String("config", "agent.yaml", "path to config file")
	showVersion := fs.Bool("version", false, "show version")

	// First non-flag argument is the subcommand.
	args := os.Args[1:]
	subCmd := ""
	for i, arg := range args {
		if !strings.HasPrefix(arg, "-") {
			subCmd = arg
			args = append(args[:i], args[i+1:]...)
			break
		}
	}
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "parse arguments: %v\n", err)
		return 1
	}

	if *showVersion || subCmd == "version" {
		return cli.Version(version, buildTime, os.Stdout)
	}
	if subCmd == "init" {
		return cli.Init(*configPath, os.Stdout)
	}

	app, err := setup(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "setup failed: %v\n", err)
		return 1
	}
	defer app.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch subCmd {
	case "", "serve":
		return serve(ctx, app)
	case "chat":
		return cli.Chat(ctx, app.Agent, os.Stdin, os.Stdout, version)
	case "health":
		return cli.Health(ctx, app.Agent, os.Stdout)
	case "tools":
		return cli.Tools(app.Registry, os.Stdout)
	case "token":
		return tokenCommand(app, fs.Args())
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", subCmd)
		fmt.Fprintln(os.Stderr, "available commands: serve, chat, health, tools, token, init, version")
		return 1
	}
}

// setup builds every component from configuration.
func setup(configPath string) (*App, error) {
	app := &App{}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	app.Config = cfg
	app.ConfigPath = configPath

	app.logLevel = new(slog.LevelVar)
	app.logLevel.Set(parseLogLevel(cfg.LogLevel))
	app.Logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: app.logLevel,
	}))
	app.Logger.Info("starting core-network devops agent", "version", version, "config", configPath)

	app.AWS = awsclient.NewManager(cfg.AWS, app.Logger)
	app.Kube = kube.NewManager(cfg.Kube, app.Logger)

	app.Registry = tool.NewRegistry(app.Logger)
	toolkit := devops.NewToolkit(app.AWS, app.Kube, nf.NewRegistry(), app.Logger)
	if err := toolkit.Register(app.Registry); err != nil {
		return nil, fmt.Errorf("register tools: %w", err)
	}

	app.Executor = tool.NewExecutor(app.Registry, policyFromConfig(cfg.Tools), app.Logger)
	for name, override := range cfg.Tools.Overrides {
		app.Executor.SetPolicy(name, toolPolicy(override))
	}

	app.Router = models.NewRouter(app.Logger)
	if err := registerProviders(app, cfg); err != nil {
		return nil, fmt.Errorf("register providers: %w", err)
	}

	app.Memory = memory.New(cfg.Memory.MaxMessages, time.Duration(cfg.Memory.RetentionHours)*time.Hour)

	var agentOpts []agent.Option
	if cfg.Audit.Enabled {
		store, err := audit.Open(cfg.Audit.Path, app.Logger)
		if err != nil {
			return nil, fmt.Errorf("open audit store: %w", err)
		}
		app.Audit = store
		agentOpts = append(agentOpts, agent.WithAudit(store))
	}

	app.Agent = agent.New(cfg.Agent, app.Router, app.Registry, app.Executor, app.Memory, app.Logger, agentOpts...)

	if cfg.Scheduler.Enabled {
		app.Scheduler = scheduler.NewScheduler(&sweepExecutor{agent: app.Agent, logger: app.Logger}, app.Logger)
		for _, job := range scheduler.DefaultJobs(cfg.Scheduler) {
			if err := app.Scheduler.AddJob(job); err != nil {
				return nil, fmt.Errorf("add scheduled job: %w", err)
			}
		}
	}

	apiOpts := []api.Option{}
	if app.Audit != nil {
		apiOpts = append(apiOpts, api.WithAudit(app.Audit))
	}
	if app.Scheduler != nil {
		apiOpts = append(apiOpts, api.WithScheduler(app.Scheduler))
	}
	app.APIServer = api.NewServer(cfg.Server, app.Agent, app.Registry, app.Memory, app.Logger, apiOpts...)

	return app, nil
}

// serve runs the API server and scheduler until interrupted.
func serve(ctx context.Context, app *App) int {
	if err := app.Registry.InitializeAll(ctx); err != nil {
		app.Logger.Error("tool initialization failed", "error", err)
		return 1
	}

	watcher := config.NewWatcher(app.ConfigPath, 30*time.Second, app.Logger, app.applyConfigReload)
	watcher.Start()
	defer watcher.Stop()

	g, gCtx := errgroup.WithContext(ctx)

	if app.Scheduler != nil {
		if err := app.Scheduler.Start(gCtx); err != nil {
			app.Logger.Error("scheduler start failed", "error", err)
			return 1
		}
		defer app.Scheduler.Stop()
	}

	g.Go(func() error {
		return app.APIServer.Start(gCtx)
	})

	app.Logger.Info("agent ready",
		"addr", fmt.Sprintf("%s:%d", app.Config.Server.Host, app.Config.Server.Port),
		"tools", app.Registry.Len(),
		"model", app.Config.Agent.Model,
	)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		app.Logger.Error("server error", "error", err)
		return 1
	}
	app.Logger.Info("shutdown complete")
	return 0
}

// applyConfigReload takes effect on the settings that are safe to change
// in a running process: the log level and per-tool invocation policies.
// Everything else is read at construction and needs a restart.
func (app *App) applyConfigReload(next *config.Config) {
	app.logLevel.Set(parseLogLevel(next.LogLevel))
	for name, override := range next.Tools.Overrides {
		app.Executor.SetPolicy(name, toolPolicy(override))
	}
	app.Logger.Info("config reloaded",
		"logLevel", next.LogLevel,
		"toolOverrides", len(next.Tools.Overrides),
	)
}

func (app *App) close() {
	if app.Audit != nil {
		if err := app.Audit.Close(); err != nil {
			app.Logger.Warn("audit close failed", "error", err)
		}
	}
}

// loadConfig reads the config file, falling back to defaults when the
// file does not exist.
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := config.DefaultConfig()
		return cfg, nil
	}
	return config.Load(path)
}

// registerProviders builds one provider per configured endpoint.
func registerProviders(app *App, cfg *config.Config) error {
	for name, pc := range cfg.Providers {
		switch pc.Type {
		case "bedrock":
			client, err := app.AWS.Bedrock(context.Background(), pc.Region)
			if err != nil {
				return fmt.Errorf("bedrock client for %s: %w", name, err)
			}
			app.Router.RegisterProvider(models.NewBedrockProvider(client, pc))
		case "anthropic":
			p := models.NewAnthropicProvider(pc)
			p.SetName(name)
			app.Router.RegisterProvider(p)
		case "ollama":
			app.Router.RegisterProvider(models.NewOllamaProvider(pc))
		default:
			return fmt.Errorf("provider %s has unknown type %q", name, pc.Type)
		}
		app.Logger.Info("provider registered", "name", name, "type", pc.Type, "models", len(pc.Models))
	}
	return nil
}

func tokenCommand(app *App, args []string) int {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	user := fs.String("user", "", "token subject")
	role := fs.String("role", "viewer", "role: viewer, operator, or admin")
	expiry := fs.Duration("expiry", 24*time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	return cli.Token(app.Config.Server, *user, *role, *expiry, os.Stdout)
}

func policyFromConfig(tc config.ToolsConfig) tool.Policy {
	return tool.Policy{
		Timeout:               time.Duration(tc.TimeoutSeconds) * time.Second,
		MaxRetries:            tc.MaxRetries,
		RetryDelay:            time.Duration(tc.RetryDelayMs) * time.Millisecond,
		RetryDeclaredFailures: tc.RetryDeclaredFailures,
	}
}

func toolPolicy(tp config.ToolPolicy) tool.Policy {
	return tool.Policy{
		Timeout:               time.Duration(tp.TimeoutSeconds) * time.Second,
		MaxRetries:            tp.MaxRetries,
		RetryDelay:            time.Duration(tp.RetryDelayMs) * time.Millisecond,
		RetryDeclaredFailures: tp.RetryDeclaredFailures,
		Disabled:              tp.Disabled,
	}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// sweepExecutor adapts the agent to the scheduler's action interface.
type sweepExecutor struct {
	agent  *agent.Agent
	logger *slog.Logger
}

func (e *sweepExecutor) RunHealthSweep(ctx context.Context) error {
	report := e.agent.HealthCheck(ctx)
	if report["status"] != "healthy" {
		return fmt.Errorf("degraded: %v/%v tools healthy", report["tools_healthy"], report["tools_total"])
	}
	return nil
}

func (e *sweepExecutor) RunPrompt(ctx context.Context, message string) error {
	resp, err := e.agent.Process(ctx, message)
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("scheduled prompt failed: %s", resp.Message)
	}
	e.logger.Info("scheduled prompt completed", "tools", resp.ToolsUsed)
	return nil
}
