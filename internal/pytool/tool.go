// SPDX-License-Identifier: MPL-2.0

package pytool

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/charmbracelet/log"

	"venvman/internal/config"
)

// ErrEnvironmentMissing is returned when the project's virtual environment
// does not exist at its expected path. No process is spawned in that case.
var ErrEnvironmentMissing = errors.New("virtual environment not found")

// ExecError is a tool invocation that ran and exited non-zero.
type ExecError struct {
	// ExitCode is the child process exit code.
	ExitCode int
	// Diagnostic is the trimmed stderr output, possibly empty.
	Diagnostic string
}

// Error returns the captured diagnostic, falling back to the exit code when
// the tool produced no stderr output.
func (e *ExecError) Error() string {
	if e.Diagnostic != "" {
		return e.Diagnostic
	}
	return fmt.Sprintf("tool exited with status %d", e.ExitCode)
}

// Tool invokes the venv's interpreter and pip for one project directory.
// Each call spawns exactly one child process; there is no persistent session
// and no retry.
type Tool struct {
	projectDir string
	settings   config.Settings
	logger     *log.Logger

	// Stdout and Stderr receive the child's streams for Run. They default
	// to the process's own standard streams.
	Stdout io.Writer
	Stderr io.Writer
}

// New creates a Tool for the given project directory.
func New(projectDir string, settings config.Settings, logger *log.Logger) *Tool {
	if logger == nil {
		logger = log.Default()
	}
	return &Tool{
		projectDir: projectDir,
		settings:   settings,
		logger:     logger,
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
	}
}

// VenvDir returns the absolute virtual environment directory.
func (t *Tool) VenvDir() string {
	return filepath.Join(t.projectDir, t.settings.VenvDir)
}

// markerPath is the on-disk marker whose existence signals a usable
// environment.
func (t *Tool) markerPath() string {
	return filepath.Join(t.VenvDir(), "pyvenv.cfg")
}

// EnvExists reports whether the virtual environment is present.
func (t *Tool) EnvExists() bool {
	_, err := os.Stat(t.markerPath())
	return err == nil
}

// binDir returns the venv's executable directory.
func (t *Tool) binDir() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(t.VenvDir(), "Scripts")
	}
	return filepath.Join(t.VenvDir(), "bin")
}

// pythonPath returns the venv's own interpreter.
func (t *Tool) pythonPath() string {
	name := "python"
	if runtime.GOOS == "windows" {
		name = "python.exe"
	}
	return filepath.Join(t.binDir(), name)
}

// Run executes the venv's interpreter with the given arguments, streaming
// stdout and stderr to the caller's streams. The child's exit code is
// returned; a missing environment yields the sentinel code 1 without
// spawning anything.
func (t *Tool) Run(ctx context.Context, args ...string) int {
	if !t.EnvExists() {
		t.logger.Error("no virtual environment found", "path", t.VenvDir())
		return 1
	}

	cmd := exec.CommandContext(ctx, t.pythonPath(), args...)
	cmd.Dir = t.projectDir
	cmd.Env = t.overlayEnv()
	cmd.Stdout = t.Stdout
	cmd.Stderr = t.Stderr
	cmd.Stdin = os.Stdin

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode()
		}
		t.logger.Error("failed to execute tool", "err", err)
		return 1
	}
	return 0
}

// RunCapture executes the venv's interpreter with the given arguments,
// buffering stdout and stderr separately. On exit code zero the trimmed
// stdout is returned; otherwise the error is an *ExecError carrying the
// trimmed stderr diagnostic.
func (t *Tool) RunCapture(ctx context.Context, args ...string) (string, error) {
	if !t.EnvExists() {
		return "", fmt.Errorf("%w: %s", ErrEnvironmentMissing, t.VenvDir())
	}

	cmd := exec.CommandContext(ctx, t.pythonPath(), args...)
	cmd.Dir = t.projectDir
	cmd.Env = t.overlayEnv()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return strings.TrimSpace(stdout.String()), nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return strings.TrimSpace(stdout.String()), &ExecError{
			ExitCode:   exitErr.ExitCode(),
			Diagnostic: strings.TrimSpace(stderr.String()),
		}
	}
	return "", fmt.Errorf("failed to execute tool: %w", err)
}

// Pip runs "python -m pip" with the given subcommand arguments, captured.
func (t *Tool) Pip(ctx context.Context, args ...string) (string, error) {
	return t.RunCapture(ctx, append([]string{"-m", "pip"}, args...)...)
}

// CreateEnv creates the virtual environment using the configured base
// interpreter. Used during scaffolding, before the venv's own interpreter
// exists.
func (t *Tool) CreateEnv(ctx context.Context) error {
	interpreter, err := exec.LookPath(t.settings.Interpreter)
	if err != nil {
		return fmt.Errorf("interpreter %q not found: %w", t.settings.Interpreter, err)
	}

	cmd := exec.CommandContext(ctx, interpreter, "-m", "venv", t.VenvDir())
	cmd.Dir = t.projectDir

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		diag := strings.TrimSpace(stderr.String())
		if diag == "" {
			diag = err.Error()
		}
		return fmt.Errorf("failed to create virtual environment: %s", diag)
	}
	return nil
}

// overlayEnv builds the child environment: the host environment with the
// venv activated on top. Activation is VIRTUAL_ENV plus a PATH prepend;
// PYTHONHOME is dropped because it would override the venv's interpreter
// configuration.
func (t *Tool) overlayEnv() []string {
	env := make([]string, 0, len(os.Environ())+2)
	for _, kv := range os.Environ() {
		key, value, _ := strings.Cut(kv, "=")
		switch key {
		case "PYTHONHOME", "VIRTUAL_ENV":
			continue
		case "PATH":
			env = append(env, "PATH="+t.binDir()+string(os.PathListSeparator)+value)
		default:
			env = append(env, kv)
		}
	}
	env = append(env, "VIRTUAL_ENV="+t.VenvDir())
	return env
}
