package sandbox

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"
)

// Mode represents the sandbox execution mode.
type Mode string

const (
	// ModeDocker uses Docker containers for isolation.
	ModeDocker Mode = "docker"
	// ModeHost runs commands directly on the host (no isolation).
	ModeHost Mode = "host"
	// ModeAuto selects Docker if available, otherwise falls back to host.
	ModeAuto Mode = "auto"
)

const defaultCmdTimeout = 2 * time.Minute

// Config holds configuration for sandbox execution.
type Config struct {
	Mode        Mode
	DockerImage string        // Custom Docker image override
	CPU         string        // CPU limit (e.g., "2")
	Memory      string        // Memory limit (e.g., "1g")
	CmdTimeout  time.Duration // Default command timeout (0 = use default)
}

// ParseMode parses a mode name. The empty string means auto.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return ModeAuto, nil
	case "docker":
		return ModeDocker, nil
	case "host":
		return ModeHost, nil
	}
	return ModeAuto, fmt.Errorf("unknown sandbox mode %q (want docker, host or auto)", s)
}

// ConfigFromEnv reads the sandbox configuration from PARSEGEN_* environment
// variables. Invalid values are logged and replaced by defaults.
func ConfigFromEnv(logger *slog.Logger) Config {
	if logger == nil {
		logger = slog.Default()
	}

	mode, err := ParseMode(os.Getenv("PARSEGEN_SANDBOX_MODE"))
	if err != nil {
		logger.Warn("invalid PARSEGEN_SANDBOX_MODE, using auto", "error", err)
	}

	cmdTimeout := defaultCmdTimeout
	if s := os.Getenv("PARSEGEN_CMD_TIMEOUT"); s != "" {
		if d, err := time.ParseDuration(s); err == nil && d > 0 {
			cmdTimeout = d
		} else {
			logger.Warn("invalid PARSEGEN_CMD_TIMEOUT, using default", "value", s, "default", defaultCmdTimeout)
		}
	}

	return Config{
		Mode:        mode,
		DockerImage: os.Getenv("PARSEGEN_DOCKER_IMAGE"),
		CPU:         getEnvOrDefault("PARSEGEN_DOCKER_CPU", "2"),
		Memory:      getEnvOrDefault("PARSEGEN_DOCKER_MEMORY", "1g"),
		CmdTimeout:  cmdTimeout,
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}

// IsDockerAvailable checks if Docker is available and accessible.
func IsDockerAvailable(ctx context.Context) bool {
	cmd := exec.CommandContext(ctx, "docker", "ps")
	return cmd.Run() == nil
}

// NewDefaultRunner creates a runner for config.Mode:
// - docker: Docker, falling back to host with a warning when unavailable
// - host: host executor (no isolation)
// - auto: Docker if available, otherwise host
func NewDefaultRunner(ctx context.Context, config Config, logger *slog.Logger) Runner {
	if logger == nil {
		logger = slog.Default()
	}
	host := &HostRunner{config: config}

	switch config.Mode {
	case ModeHost:
		logger.Warn("using host executor: generated code runs without sandboxing")
		return host

	case ModeDocker, ModeAuto:
		if !IsDockerAvailable(ctx) {
			logger.Warn("docker not available, using host executor", "mode", config.Mode)
			return host
		}
		dockerRunner, err := NewDockerRunner(ctx, config)
		if err != nil {
			logger.Warn("failed to create docker runner, using host executor", "error", err)
			return host
		}
		return dockerRunner
	}

	logger.Warn("unknown sandbox mode, using host executor", "mode", config.Mode)
	return host
}

// NewRunner creates a specific runner implementation.
func NewRunner(ctx context.Context, config Config) (Runner, error) {
	switch config.Mode {
	case ModeDocker:
		return NewDockerRunner(ctx, config)
	case ModeHost:
		return NewHostRunner(config), nil
	default:
		return nil, fmt.Errorf("unknown runner mode: %s", config.Mode)
	}
}
