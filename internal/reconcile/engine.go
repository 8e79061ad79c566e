// SPDX-License-Identifier: MPL-2.0

// Package reconcile drives batches of package operations against the
// environment tool and keeps the manifest consistent with their results.
//
// Within one batch, per-package tasks run concurrently and share no mutable
// state; the manifest is read once, recomputed from all successful outcomes,
// and written once after every task has finished. That single synchronization
// point is what prevents lost updates between sibling tasks.
package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"venvman/internal/config"
	"venvman/internal/manifest"
	"venvman/internal/pkgspec"
	"venvman/internal/pytool"
	"venvman/internal/semver"
)

// ErrInvalidSpecifier is the per-package failure for specifier strings from
// which no package name can be extracted.
var ErrInvalidSpecifier = errors.New("invalid package specifier")

// Runner is the slice of the environment tool the engine needs: captured
// pip invocations. *pytool.Tool satisfies it.
type Runner interface {
	Pip(ctx context.Context, args ...string) (string, error)
}

// Package is one installed package reported by List.
type Package struct {
	Name    string
	Version semver.Version
}

// UpdateResult is the per-package result of an Update batch.
type UpdateResult struct {
	Name    string
	Current semver.Version
	Latest  semver.Version
	// Err is set when reinstalling this package failed.
	Err error
}

// Engine owns install/uninstall/list/update batches end to end.
type Engine struct {
	store    *manifest.Store
	tool     Runner
	settings config.Settings
	logger   *log.Logger
}

// NewEngine creates an Engine over the given manifest store and tool.
func NewEngine(store *manifest.Store, tool Runner, settings config.Settings, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{store: store, tool: tool, settings: settings, logger: logger}
}

// Install processes the given specifiers concurrently: each is resolved to a
// canonical name, installed, and its resulting version queried from the tool.
// All successful items are merged into the manifest with a single
// read-modify-write after the whole batch has completed. Per-item failures
// never abort sibling items.
func (e *Engine) Install(ctx context.Context, specs []string) ([]Outcome, error) {
	outcomes := make([]Outcome, len(specs))

	g, gctx := errgroup.WithContext(ctx)
	for i, spec := range specs {
		g.Go(func() error {
			outcomes[i] = e.installOne(gctx, spec)
			return nil
		})
	}
	_ = g.Wait()

	if err := e.commitInstalls(outcomes); err != nil {
		return outcomes, err
	}
	return outcomes, nil
}

// installOne runs the tool for one specifier and returns its outcome.
func (e *Engine) installOne(ctx context.Context, spec string) Outcome {
	name, ok := pkgspec.ExtractName(spec)
	if !ok {
		return Outcome{
			Spec: spec,
			Kind: Failed,
			Err:  fmt.Errorf("%w: %q", ErrInvalidSpecifier, spec),
		}
	}

	e.logger.Debug("installing package", "name", name, "spec", spec)
	if _, err := e.tool.Pip(ctx, "install", spec); err != nil {
		return Outcome{Spec: spec, Name: name, Kind: Failed, Err: err}
	}

	out, err := e.tool.Pip(ctx, "show", name)
	if err != nil {
		return Outcome{Spec: spec, Name: name, Kind: Failed, Err: err}
	}

	versionText, err := pytool.ParseShowVersion(out)
	if err != nil {
		return Outcome{Spec: spec, Name: name, Kind: Failed, Err: err}
	}
	version, err := semver.Parse(versionText)
	if err != nil {
		return Outcome{Spec: spec, Name: name, Kind: Failed, Err: err}
	}

	return Outcome{Spec: spec, Name: name, Kind: Installed, Version: version}
}

// commitInstalls merges every installed outcome into the manifest in one
// write. Nothing is written when the batch produced no successful installs.
func (e *Engine) commitInstalls(outcomes []Outcome) error {
	installed := false
	for _, o := range outcomes {
		if o.Kind == Installed {
			installed = true
			break
		}
	}
	if !installed {
		return nil
	}

	reqs := e.store.Read()
	for _, o := range outcomes {
		if o.Kind == Installed {
			reqs = manifest.Upsert(reqs, manifest.Requirement{Name: o.Name, Version: o.Version})
		}
	}
	return e.store.Write(reqs)
}

// Uninstall removes the named packages concurrently. A tool report that a
// package was never installed yields AlreadyAbsent, not Failed. All
// successfully processed names are dropped from the manifest in one write.
func (e *Engine) Uninstall(ctx context.Context, names []string) ([]Outcome, error) {
	outcomes := make([]Outcome, len(names))

	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		g.Go(func() error {
			outcomes[i] = e.uninstallOne(gctx, name)
			return nil
		})
	}
	_ = g.Wait()

	processed := false
	for _, o := range outcomes {
		if o.Kind == Uninstalled {
			processed = true
			break
		}
	}
	if !processed {
		return outcomes, nil
	}

	reqs := e.store.Read()
	for _, o := range outcomes {
		if o.Kind == Uninstalled || o.Kind == AlreadyAbsent {
			reqs = manifest.Remove(reqs, o.Name)
		}
	}
	if err := e.store.Write(reqs); err != nil {
		return outcomes, err
	}
	return outcomes, nil
}

// uninstallOne runs the tool's removal for one package.
func (e *Engine) uninstallOne(ctx context.Context, rawName string) Outcome {
	name, ok := pkgspec.ExtractName(rawName)
	if !ok {
		return Outcome{
			Spec: rawName,
			Kind: Failed,
			Err:  fmt.Errorf("%w: %q", ErrInvalidSpecifier, rawName),
		}
	}

	e.logger.Debug("uninstalling package", "name", name)
	out, err := e.tool.Pip(ctx, "uninstall", "-y", name)
	if err != nil {
		var execErr *pytool.ExecError
		if errors.As(err, &execErr) && pytool.IsNotInstalledMessage(execErr.Diagnostic) {
			return Outcome{Spec: rawName, Name: name, Kind: AlreadyAbsent}
		}
		return Outcome{Spec: rawName, Name: name, Kind: Failed, Err: err}
	}
	// pip reports "not installed" as a warning with exit code zero.
	if pytool.IsNotInstalledMessage(out) {
		return Outcome{Spec: rawName, Name: name, Kind: AlreadyAbsent}
	}

	return Outcome{Spec: rawName, Name: name, Kind: Uninstalled}
}

// List returns every installed package except the tool's own bookkeeping
// packages. Unlike manifest reads, this is strict: the listing is trusted
// tool output, so a single malformed version fails the whole operation.
func (e *Engine) List(ctx context.Context) ([]Package, error) {
	out, err := e.tool.Pip(ctx, "list")
	if err != nil {
		return nil, err
	}

	entries, err := pytool.ParseList(out)
	if err != nil {
		return nil, fmt.Errorf("failed to parse package listing: %w", err)
	}

	var pkgs []Package
	for _, entry := range entries {
		if e.settings.IsBookkeeping(entry.Name) {
			continue
		}
		version, err := semver.Parse(entry.Version)
		if err != nil {
			return nil, fmt.Errorf("package %s: %w", entry.Name, err)
		}
		pkgs = append(pkgs, Package{Name: entry.Name, Version: version})
	}
	return pkgs, nil
}

// Update queries the tool's outdated-packages report and reinstalls every
// outdated package at its latest version, concurrently. After all installs
// complete, manifest entries for successfully updated packages are refreshed
// in one read-modify-write. (The alternative of leaving recorded versions
// stale would make a later restore resurrect old versions.)
func (e *Engine) Update(ctx context.Context) ([]UpdateResult, error) {
	out, err := e.tool.Pip(ctx, "list", "--outdated")
	if err != nil {
		return nil, err
	}

	entries, err := pytool.ParseOutdated(out)
	if err != nil {
		return nil, fmt.Errorf("failed to parse outdated report: %w", err)
	}

	var results []UpdateResult
	for _, entry := range entries {
		if e.settings.IsBookkeeping(entry.Name) {
			continue
		}
		current, err := semver.Parse(entry.Current)
		if err != nil {
			return nil, fmt.Errorf("package %s: %w", entry.Name, err)
		}
		latest, err := semver.Parse(entry.Latest)
		if err != nil {
			return nil, fmt.Errorf("package %s: %w", entry.Name, err)
		}
		results = append(results, UpdateResult{Name: entry.Name, Current: current, Latest: latest})
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := range results {
		g.Go(func() error {
			r := &results[i]
			e.logger.Debug("updating package", "name", r.Name, "current", r.Current, "latest", r.Latest)
			_, err := e.tool.Pip(gctx, "install", r.Name+"=="+r.Latest.String())
			r.Err = err
			return nil
		})
	}
	_ = g.Wait()

	updated := false
	for _, r := range results {
		if r.Err == nil {
			updated = true
			break
		}
	}
	if !updated {
		return results, nil
	}

	// Refresh versions in place to keep the manifest diff-friendly; packages
	// that were never declared are not added.
	reqs := e.store.Read()
	for _, r := range results {
		if r.Err != nil {
			continue
		}
		for i := range reqs {
			if reqs[i].Name == r.Name {
				reqs[i].Version = r.Latest
			}
		}
	}
	if err := e.store.Write(reqs); err != nil {
		return results, err
	}
	return results, nil
}
