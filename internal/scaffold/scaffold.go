// SPDX-License-Identifier: MPL-2.0

// Package scaffold creates a new project's file set: template files, the
// virtual environment, an empty manifest, an entry-point script, and git
// metadata. Creation is all-or-nothing: every created path is logged in an
// in-memory transaction, and the first failing step rolls back everything
// the transaction has accumulated.
package scaffold

import (
	"context"
	"embed"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/charmbracelet/log"
	"github.com/pelletier/go-toml/v2"

	"venvman/internal/config"
	"venvman/internal/issue"
	"venvman/internal/manifest"
	"venvman/internal/pytool"
)

//go:embed templates
var templateFS embed.FS

// initialVersion is the project version written into scaffolded metadata.
const initialVersion = "0.1.0"

// Options configures one scaffold run.
type Options struct {
	// Name is the project name; it becomes the directory name and the
	// project-name token in templates.
	Name string
	// ParentDir is the directory the project is created under. Defaults to
	// the current working directory.
	ParentDir string
	// Settings supplies the venv directory, manifest filename, and base
	// interpreter.
	Settings config.Settings
	// Logger receives step progress and rollback diagnostics.
	Logger *log.Logger
}

// templateData is the token set substituted into template files.
type templateData struct {
	ProjectName string
	Version     string
}

// pyproject is the scaffolded pyproject.toml structure.
type pyproject struct {
	Project struct {
		Name    string `toml:"name"`
		Version string `toml:"version"`
	} `toml:"project"`
}

// transaction accumulates created paths for rollback. It lives only in this
// process; a crash mid-scaffold can leave partial state behind.
type transaction struct {
	paths  []string
	logger *log.Logger
}

func (tx *transaction) add(path string) {
	tx.paths = append(tx.paths, path)
}

// rollback removes every logged path. Paths are removed recursively; order
// does not matter.
func (tx *transaction) rollback() {
	for _, path := range tx.paths {
		tx.logger.Debug("rolling back", "path", path)
		if err := os.RemoveAll(path); err != nil {
			tx.logger.Warn("rollback could not remove path", "path", path, "err", err)
		}
	}
}

// Create scaffolds a new project and returns its absolute path. On any step
// failure every path created so far is removed and the triggering error is
// returned; no partial project is left behind.
func Create(ctx context.Context, opts Options) (string, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	if opts.Name == "" {
		return "", issue.New("create project").WithSuggestion("Provide a project name: venvman init <name>")
	}

	parentDir := opts.ParentDir
	if parentDir == "" {
		var err error
		parentDir, err = os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get current directory: %w", err)
		}
	}
	parentDir, err := filepath.Abs(parentDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve parent directory: %w", err)
	}

	projectDir := filepath.Join(parentDir, opts.Name)
	if _, err := os.Stat(projectDir); err == nil {
		return "", issue.New("create project").
			WithResource(projectDir).
			WithSuggestion("Choose another name or remove the existing directory")
	}

	tx := &transaction{logger: logger}
	fail := func(operation string, cause error) error {
		tx.rollback()
		return issue.Wrap(cause, operation).WithResource(projectDir)
	}

	if err := os.MkdirAll(projectDir, 0o755); err != nil {
		return "", issue.Wrap(err, "create project directory").WithResource(projectDir)
	}
	tx.add(projectDir)

	logger.Debug("copying project templates", "dir", projectDir)
	if err := writeTemplates(projectDir, opts.Name, tx); err != nil {
		return "", fail("copy project templates", err)
	}

	logger.Debug("creating virtual environment", "dir", projectDir)
	tool := pytool.New(projectDir, opts.Settings, logger)
	if err := tool.CreateEnv(ctx); err != nil {
		return "", fail("create virtual environment", err)
	}
	tx.add(tool.VenvDir())

	manifestPath := filepath.Join(projectDir, opts.Settings.ManifestFile)
	store := manifest.NewStore(manifestPath, logger)
	if err := store.Write(nil); err != nil {
		return "", fail("create manifest", err)
	}
	tx.add(manifestPath)

	entryPath := filepath.Join(projectDir, "main.py")
	if err := renderTemplate("templates/main.py.tmpl", entryPath, opts.Name); err != nil {
		return "", fail("create entry-point script", err)
	}
	tx.add(entryPath)

	if err := gitInit(ctx, projectDir, logger); err != nil {
		return "", fail("initialize git repository", err)
	}

	return projectDir, nil
}

// writeTemplates renders the embedded template set plus the generated
// pyproject.toml into the project directory, logging each file in tx.
func writeTemplates(projectDir, name string, tx *transaction) error {
	files := map[string]string{
		"templates/gitignore.tmpl": ".gitignore",
		"templates/README.md.tmpl": "README.md",
	}
	for src, dst := range files {
		path := filepath.Join(projectDir, dst)
		if err := renderTemplate(src, path, name); err != nil {
			return err
		}
		tx.add(path)
	}

	var pp pyproject
	pp.Project.Name = name
	pp.Project.Version = initialVersion
	data, err := toml.Marshal(pp)
	if err != nil {
		return fmt.Errorf("failed to render pyproject.toml: %w", err)
	}
	ppPath := filepath.Join(projectDir, "pyproject.toml")
	if err := os.WriteFile(ppPath, data, 0o644); err != nil {
		return err
	}
	tx.add(ppPath)

	return nil
}

// renderTemplate renders one embedded template to dst, substituting the
// project-name and version tokens.
func renderTemplate(src, dst, projectName string) error {
	tmpl, err := template.ParseFS(templateFS, src)
	if err != nil {
		return fmt.Errorf("failed to parse template %s: %w", src, err)
	}

	var b strings.Builder
	if err := tmpl.Execute(&b, templateData{ProjectName: projectName, Version: initialVersion}); err != nil {
		return fmt.Errorf("failed to render template %s: %w", src, err)
	}
	return os.WriteFile(dst, []byte(b.String()), 0o644)
}

// gitInit initializes version-control metadata. A missing git binary is a
// warning, not a scaffold failure; a failing git init is.
func gitInit(ctx context.Context, projectDir string, logger *log.Logger) error {
	gitPath, err := exec.LookPath("git")
	if err != nil {
		logger.Warn("git not found, skipping repository initialization")
		return nil
	}

	cmd := exec.CommandContext(ctx, gitPath, "init")
	cmd.Dir = projectDir

	var stderr strings.Builder
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		diag := strings.TrimSpace(stderr.String())
		if diag == "" {
			diag = err.Error()
		}
		return fmt.Errorf("git init: %s", diag)
	}
	return nil
}
