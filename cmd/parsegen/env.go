package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ChamsBouzaiene/parsegen/internal/agent"
	"github.com/ChamsBouzaiene/parsegen/internal/config"
	"github.com/ChamsBouzaiene/parsegen/internal/document"
	"github.com/ChamsBouzaiene/parsegen/internal/engine"
	"github.com/ChamsBouzaiene/parsegen/internal/history"
	"github.com/ChamsBouzaiene/parsegen/internal/metrics"
	"github.com/ChamsBouzaiene/parsegen/internal/project"
	"github.com/ChamsBouzaiene/parsegen/internal/prompts"
	"github.com/ChamsBouzaiene/parsegen/internal/providers"
	"github.com/ChamsBouzaiene/parsegen/internal/sandbox"
	"github.com/ChamsBouzaiene/parsegen/internal/table"
	"github.com/ChamsBouzaiene/parsegen/internal/workspace"
)

// appEnv is everything a command needs to run targets.
type appEnv struct {
	Settings project.Settings
	Layout   workspace.Layout
	Logger   *slog.Logger

	orch    *engine.Orchestrator
	lang    agent.Language
	history *history.Store
	metrics *metrics.Metrics
}

// Close flushes metrics and releases the history store.
func (e *appEnv) Close() {
	e.flushMetrics()
	if e.history != nil {
		if err := e.history.Close(); err != nil {
			e.Logger.Warn("failed to close history store", "error", err)
		}
	}
}

func (e *appEnv) flushMetrics() {
	if e.metrics == nil || e.Settings.MetricsFile == "" {
		return
	}
	if err := e.metrics.WriteTextfile(e.Settings.MetricsFile); err != nil {
		e.Logger.Warn("failed to write metrics", "path", e.Settings.MetricsFile, "error", err)
	}
}

// runTarget resolves the target's samples and runs the loop once.
func (e *appEnv) runTarget(ctx context.Context, target string) (engine.Result, error) {
	in, err := e.Layout.Resolve(target)
	if err != nil {
		return engine.Result{}, err
	}
	if err := e.Layout.EnsureOutputDir(); err != nil {
		return engine.Result{}, err
	}
	return e.orch.Run(ctx, engine.Request{
		TargetID:           target,
		SampleInputPath:    in.Document,
		SampleExpectedPath: in.Expected,
		OutputPath:         e.Layout.OutputPath(target, e.lang.FileExt),
	})
}

// prepareEnv layers .env, user config, project settings and flags, then
// builds the LLM client and the orchestrator.
func prepareEnv(ctx context.Context, g *globalFlags, logOut io.Writer) (*appEnv, error) {
	logger, err := newLogger(logOut, g.logLevel, g.logFormat)
	if err != nil {
		return nil, err
	}

	rpm := 0
	if cfgManager, err := config.NewManager(); err != nil {
		logger.Warn("failed to initialize config manager", "error", err)
	} else if userConfig, err := cfgManager.Load(); err != nil {
		logger.Warn("failed to load user config", "path", cfgManager.GetConfigPath(), "error", err)
	} else {
		applyConfigToEnv(userConfig)
		rpm = userConfig.RateLimitRPM
	}
	if g.apiKey != "" {
		os.Setenv(providers.EnvPrefix(os.Getenv("LLM_PROVIDER"))+"_API_KEY", g.apiKey)
	}

	settings, err := loadSettings(g)
	if err != nil {
		return nil, err
	}

	client, info, err := providers.NewLLMClientFromEnv()
	if err != nil {
		return nil, err
	}
	llm := providers.NewRateLimited(client, rpm)

	logger.Info("parsegen configuration",
		"provider", info.Provider,
		"model", info.Model,
		"max_attempts", settings.MaxAttempts,
		"execute", settings.Execute,
		"data_root", settings.DataRoot,
		"output_dir", settings.OutputDir)

	return newAppEnv(ctx, settings, llm, logger)
}

// newAppEnv wires components around llm.
func newAppEnv(ctx context.Context, settings project.Settings, llm engine.LLMClient, logger *slog.Logger) (*appEnv, error) {
	env := &appEnv{
		Settings: settings,
		Layout:   layoutFor(settings),
		Logger:   logger,
		lang:     agent.Python,
		metrics:  metrics.New(),
	}

	store, err := openHistory(ctx, settings)
	if err != nil {
		return nil, err
	}
	env.history = store

	hooks := engine.Hooks{env.metrics.Hook()}
	if store != nil {
		hooks = append(hooks, history.NewHook(store, logger))
	}
	llm = engine.Instrument(llm, engine.Hooks{engine.LoggerHook{L: logger}, env.metrics.Hook()})

	sandboxCfg := sandbox.ConfigFromEnv(logger)
	if os.Getenv("PARSEGEN_SANDBOX_MODE") == "" && settings.SandboxMode != "" {
		mode, err := sandbox.ParseMode(settings.SandboxMode)
		if err != nil {
			return nil, err
		}
		sandboxCfg.Mode = mode
	}

	extractor := document.Chain{
		document.PDFExtractor{},
		document.CommandExtractor{Runner: sandbox.NewHostRunner(sandboxCfg)},
		document.TextExtractor{},
	}

	opts := agent.Options{
		Language:      env.lang,
		GenTextPrefix: settings.TextPrefix,
		GenSampleRows: settings.SampleRows,
		Execute:       settings.Execute,
		ExecTimeout:   settings.ExecTimeout,
		Logger:        logger,
	}

	var runner sandbox.Runner
	if settings.Execute {
		runner = sandbox.NewDefaultRunner(ctx, sandboxCfg, logger)
	}

	reg := prompts.NewDefaultRegistry()
	cfg := engine.DefaultConfig()
	cfg.MaxAttempts = settings.MaxAttempts
	cfg.StepTimeout = settings.StepTimeout
	cfg.FeedbackHistory = settings.FeedbackHistory

	env.orch, err = engine.NewOrchestrator(cfg,
		agent.NewPlanner(llm, extractor, table.CSVLoader{}, reg, opts),
		agent.NewGenerator(llm, reg, opts),
		agent.NewValidator(runner, opts),
		agent.NewReflector(llm, reg, opts),
		engine.WithLogger(logger),
		engine.WithHooks(hooks...),
	)
	if err != nil {
		env.Close()
		return nil, err
	}
	return env, nil
}

// loadSettings reads parsegen.yaml and applies flag overrides.
func loadSettings(g *globalFlags) (project.Settings, error) {
	root, err := filepath.Abs(g.projectDir)
	if err != nil {
		return project.Settings{}, fmt.Errorf("failed to resolve project dir: %w", err)
	}
	settings, err := project.LoadSettings(root)
	if err != nil {
		return project.Settings{}, err
	}
	if g.dataRoot != "" {
		settings.DataRoot = g.dataRoot
	}
	if g.outputDir != "" {
		settings.OutputDir = g.outputDir
	}
	if g.maxAttempts > 0 {
		settings.MaxAttempts = g.maxAttempts
	}
	if g.execute {
		settings.Execute = true
	}
	return settings, nil
}

func layoutFor(s project.Settings) workspace.Layout {
	return workspace.Layout{DataRoot: s.DataRoot, OutputDir: s.OutputDir}
}

// openHistory opens the run history store, or returns nil when disabled.
func openHistory(ctx context.Context, s project.Settings) (*history.Store, error) {
	if s.HistoryDB == "" {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(s.HistoryDB), 0755); err != nil {
		return nil, fmt.Errorf("failed to create history dir: %w", err)
	}
	return history.NewStore(ctx, s.HistoryDB)
}

// newLogger builds the slog logger selected by --log-level and --log-format.
func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	opts := &slog.HandlerOptions{Level: lvl}

	switch strings.ToLower(format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return nil, fmt.Errorf("invalid log format %q (want text or json)", format)
}
