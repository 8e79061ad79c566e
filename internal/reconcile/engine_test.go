// SPDX-License-Identifier: MPL-2.0

package reconcile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/charmbracelet/log"

	"venvman/internal/config"
	"venvman/internal/manifest"
	"venvman/internal/pytool"
	"venvman/internal/semver"
)

// fakeTool is a Runner whose responses are driven by a handler function.
// It records every invocation for assertions.
type fakeTool struct {
	mu      sync.Mutex
	calls   [][]string
	handler func(args []string) (string, error)
}

func (f *fakeTool) Pip(_ context.Context, args ...string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, args)
	f.mu.Unlock()
	return f.handler(args)
}

func (f *fakeTool) calledWith(prefix ...string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
outer:
	for _, call := range f.calls {
		if len(call) < len(prefix) {
			continue
		}
		for i, p := range prefix {
			if call[i] != p {
				continue outer
			}
		}
		return true
	}
	return false
}

func showBlock(name, version string) string {
	return fmt.Sprintf("Name: %s\nVersion: %s\nLocation: /proj/venv\n", name, version)
}

// installHandler answers "install" with silence and "show <name>" from the
// versions map.
func installHandler(versions map[string]string) func(args []string) (string, error) {
	return func(args []string) (string, error) {
		switch args[0] {
		case "install":
			return "", nil
		case "show":
			name := args[1]
			v, ok := versions[name]
			if !ok {
				return "", &pytool.ExecError{ExitCode: 1, Diagnostic: "WARNING: Package(s) not found: " + name}
			}
			return showBlock(name, v), nil
		}
		return "", fmt.Errorf("unexpected pip args %v", args)
	}
}

func newTestEngine(t *testing.T, tool Runner) (*Engine, *manifest.Store) {
	t.Helper()
	store := manifest.NewStore(filepath.Join(t.TempDir(), "requirements.txt"), log.New(io.Discard))
	engine := NewEngine(store, tool, config.Default(), log.New(io.Discard))
	return engine, store
}

func TestInstallRecordsManifest(t *testing.T) {
	t.Parallel()

	tool := &fakeTool{handler: installHandler(map[string]string{"flask": "2.0.1"})}
	engine, store := newTestEngine(t, tool)

	outcomes, err := engine.Install(context.Background(), []string{"flask==2.0.1"})
	if err != nil {
		t.Fatalf("Install: %v", err)
	}

	if len(outcomes) != 1 {
		t.Fatalf("got %d outcomes; want 1", len(outcomes))
	}
	o := outcomes[0]
	if o.Kind != Installed {
		t.Fatalf("Kind = %v (%v); want Installed", o.Kind, o.Err)
	}
	if o.Name != "flask" || o.Version.String() != "2.0.1" {
		t.Errorf("outcome = %+v; want flask 2.0.1", o)
	}

	reqs := store.Read()
	if len(reqs) != 1 || reqs[0].String() != "flask==2.0.1" {
		t.Errorf("manifest = %v; want [flask==2.0.1]", reqs)
	}

	if !tool.calledWith("install", "flask==2.0.1") {
		t.Error("tool never asked to install flask==2.0.1")
	}
	if !tool.calledWith("show", "flask") {
		t.Error("tool never asked for flask's installed version")
	}
}

func TestInstallIdempotent(t *testing.T) {
	t.Parallel()

	versions := map[string]string{"flask": "2.0.1"}
	tool := &fakeTool{handler: installHandler(versions)}
	engine, store := newTestEngine(t, tool)

	if _, err := engine.Install(context.Background(), []string{"flask==2.0.1"}); err != nil {
		t.Fatalf("first Install: %v", err)
	}

	versions["flask"] = "2.0.2"
	if _, err := engine.Install(context.Background(), []string{"flask"}); err != nil {
		t.Fatalf("second Install: %v", err)
	}

	reqs := store.Read()
	if len(reqs) != 1 {
		t.Fatalf("manifest has %d entries; want exactly 1: %v", len(reqs), reqs)
	}
	if reqs[0].String() != "flask==2.0.2" {
		t.Errorf("manifest entry = %s; want flask==2.0.2", reqs[0])
	}
}

func TestInstallBatchPartialFailure(t *testing.T) {
	t.Parallel()

	tool := &fakeTool{handler: installHandler(map[string]string{"goodpkg": "1.0.0"})}
	engine, store := newTestEngine(t, tool)

	specs := []string{"goodpkg", "bad spec with spaces and no name"}
	outcomes, err := engine.Install(context.Background(), specs)
	if err != nil {
		t.Fatalf("Install: %v", err)
	}

	if outcomes[0].Kind != Installed {
		t.Errorf("outcome 0 = %+v; want Installed", outcomes[0])
	}
	if outcomes[1].Kind != Failed {
		t.Fatalf("outcome 1 = %+v; want Failed", outcomes[1])
	}
	if !errors.Is(outcomes[1].Err, ErrInvalidSpecifier) {
		t.Errorf("outcome 1 err = %v; want ErrInvalidSpecifier", outcomes[1].Err)
	}

	reqs := store.Read()
	if len(reqs) != 1 || reqs[0].Name != "goodpkg" {
		t.Errorf("manifest = %v; want only goodpkg", reqs)
	}
	if !AnyFailed(outcomes) {
		t.Error("AnyFailed = false; want true")
	}
}

func TestInstallBadToolVersion(t *testing.T) {
	t.Parallel()

	tool := &fakeTool{handler: installHandler(map[string]string{"weird": "not.a.version"})}
	engine, store := newTestEngine(t, tool)

	outcomes, err := engine.Install(context.Background(), []string{"weird"})
	if err != nil {
		t.Fatalf("Install: %v", err)
	}

	if outcomes[0].Kind != Failed {
		t.Fatalf("Kind = %v; want Failed", outcomes[0].Kind)
	}
	if !errors.Is(outcomes[0].Err, semver.ErrInvalidVersion) {
		t.Errorf("err = %v; want ErrInvalidVersion", outcomes[0].Err)
	}
	if len(store.Read()) != 0 {
		t.Error("failed install must not touch the manifest")
	}
}

func TestInstallToolFailureIsolated(t *testing.T) {
	t.Parallel()

	handler := func(args []string) (string, error) {
		switch {
		case args[0] == "install" && strings.HasPrefix(args[1], "broken"):
			return "", &pytool.ExecError{ExitCode: 1, Diagnostic: "No matching distribution found for broken"}
		case args[0] == "install":
			return "", nil
		case args[0] == "show":
			return showBlock(args[1], "1.0.0"), nil
		}
		return "", fmt.Errorf("unexpected pip args %v", args)
	}
	tool := &fakeTool{handler: handler}
	engine, store := newTestEngine(t, tool)

	outcomes, err := engine.Install(context.Background(), []string{"ok", "broken"})
	if err != nil {
		t.Fatalf("Install: %v", err)
	}

	if outcomes[0].Kind != Installed {
		t.Errorf("outcome 0 = %+v; want Installed", outcomes[0])
	}
	if outcomes[1].Kind != Failed {
		t.Errorf("outcome 1 = %+v; want Failed", outcomes[1])
	}

	var execErr *pytool.ExecError
	if !errors.As(outcomes[1].Err, &execErr) {
		t.Errorf("err = %v; want *pytool.ExecError with diagnostic", outcomes[1].Err)
	}

	reqs := store.Read()
	if len(reqs) != 1 || reqs[0].Name != "ok" {
		t.Errorf("manifest = %v; want only ok", reqs)
	}
}

func mustWrite(t *testing.T, store *manifest.Store, lines ...string) {
	t.Helper()
	var reqs []manifest.Requirement
	for _, line := range lines {
		name, versionText, _ := strings.Cut(line, "==")
		v, err := semver.Parse(versionText)
		if err != nil {
			t.Fatalf("Parse(%q): %v", versionText, err)
		}
		reqs = append(reqs, manifest.Requirement{Name: name, Version: v})
	}
	if err := store.Write(reqs); err != nil {
		t.Fatalf("Write: %v", err)
	}
}

func TestUninstallRemovesManifestEntry(t *testing.T) {
	t.Parallel()

	tool := &fakeTool{handler: func(args []string) (string, error) {
		return "Successfully uninstalled flask-2.0.1", nil
	}}
	engine, store := newTestEngine(t, tool)
	mustWrite(t, store, "flask==2.0.1", "requests==2.28.0")

	outcomes, err := engine.Uninstall(context.Background(), []string{"flask"})
	if err != nil {
		t.Fatalf("Uninstall: %v", err)
	}

	if outcomes[0].Kind != Uninstalled {
		t.Fatalf("Kind = %v; want Uninstalled", outcomes[0].Kind)
	}
	reqs := store.Read()
	if len(reqs) != 1 || reqs[0].Name != "requests" {
		t.Errorf("manifest = %v; want only requests", reqs)
	}
	if !tool.calledWith("uninstall", "-y", "flask") {
		t.Error("tool never asked to uninstall flask")
	}
}

func TestUninstallAlreadyAbsent(t *testing.T) {
	t.Parallel()

	tool := &fakeTool{handler: func(args []string) (string, error) {
		return "WARNING: Skipping ghost as it is not installed.", nil
	}}
	engine, store := newTestEngine(t, tool)
	mustWrite(t, store, "requests==2.28.0")

	outcomes, err := engine.Uninstall(context.Background(), []string{"ghost"})
	if err != nil {
		t.Fatalf("Uninstall: %v", err)
	}

	if outcomes[0].Kind != AlreadyAbsent {
		t.Errorf("Kind = %v; want AlreadyAbsent", outcomes[0].Kind)
	}
	if outcomes[0].Err != nil {
		t.Errorf("AlreadyAbsent must not carry an error, got %v", outcomes[0].Err)
	}

	// A batch with nothing actually uninstalled leaves the manifest alone.
	reqs := store.Read()
	if len(reqs) != 1 || reqs[0].Name != "requests" {
		t.Errorf("manifest = %v; want unchanged [requests]", reqs)
	}
}

func TestUninstallAlreadyAbsentFromDiagnostic(t *testing.T) {
	t.Parallel()

	tool := &fakeTool{handler: func(args []string) (string, error) {
		return "", &pytool.ExecError{ExitCode: 1, Diagnostic: "WARNING: Skipping ghost as it is not installed."}
	}}
	engine, _ := newTestEngine(t, tool)

	outcomes, err := engine.Uninstall(context.Background(), []string{"ghost"})
	if err != nil {
		t.Fatalf("Uninstall: %v", err)
	}
	if outcomes[0].Kind != AlreadyAbsent {
		t.Errorf("Kind = %v; want AlreadyAbsent", outcomes[0].Kind)
	}
}

func TestUninstallToolFailure(t *testing.T) {
	t.Parallel()

	tool := &fakeTool{handler: func(args []string) (string, error) {
		return "", &pytool.ExecError{ExitCode: 2, Diagnostic: "pip broke"}
	}}
	engine, store := newTestEngine(t, tool)
	mustWrite(t, store, "flask==2.0.1")

	outcomes, err := engine.Uninstall(context.Background(), []string{"flask"})
	if err != nil {
		t.Fatalf("Uninstall: %v", err)
	}
	if outcomes[0].Kind != Failed {
		t.Errorf("Kind = %v; want Failed", outcomes[0].Kind)
	}
	if len(store.Read()) != 1 {
		t.Error("failed uninstall must not touch the manifest")
	}
}

func TestListSkipsBookkeeping(t *testing.T) {
	t.Parallel()

	tool := &fakeTool{handler: func(args []string) (string, error) {
		return "Package Version\n------- -------\nflask   2.0.1\npip     21.2.4\nwheel   0.37.1\n", nil
	}}
	engine, _ := newTestEngine(t, tool)

	pkgs, err := engine.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	if len(pkgs) != 1 {
		t.Fatalf("got %d packages; want 1 (bookkeeping skipped): %v", len(pkgs), pkgs)
	}
	if pkgs[0].Name != "flask" || pkgs[0].Version.String() != "2.0.1" {
		t.Errorf("pkgs[0] = %+v; want flask 2.0.1", pkgs[0])
	}
}

func TestListStrictOnMalformedVersion(t *testing.T) {
	t.Parallel()

	tool := &fakeTool{handler: func(args []string) (string, error) {
		return "Package Version\n------- -------\nflask   2.0.1\nweird   oops\n", nil
	}}
	engine, _ := newTestEngine(t, tool)

	if _, err := engine.List(context.Background()); !errors.Is(err, semver.ErrInvalidVersion) {
		t.Errorf("List err = %v; want ErrInvalidVersion", err)
	}
}

func TestUpdateReinstallsAndRefreshesManifest(t *testing.T) {
	t.Parallel()

	tool := &fakeTool{handler: func(args []string) (string, error) {
		if args[0] == "list" && len(args) > 1 && args[1] == "--outdated" {
			return "Package Version Latest Type\n------- ------- ------ -----\n" +
				"flask   1.1.0   2.0.1  wheel\n" +
				"pip     21.2.4  23.0.0 wheel\n" +
				"extra   0.1.0   0.2.0  wheel\n", nil
		}
		return "", nil
	}}
	engine, store := newTestEngine(t, tool)
	mustWrite(t, store, "flask==1.1.0")

	results, err := engine.Update(context.Background())
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	// pip is bookkeeping and skipped; flask and extra remain.
	if len(results) != 2 {
		t.Fatalf("got %d results; want 2: %v", len(results), results)
	}
	if results[0].Name != "flask" || results[0].Latest.String() != "2.0.1" {
		t.Errorf("results[0] = %+v; want flask -> 2.0.1", results[0])
	}

	if !tool.calledWith("install", "flask==2.0.1") {
		t.Error("tool never asked to install flask==2.0.1")
	}
	if tool.calledWith("install", "pip==23.0.0") {
		t.Error("bookkeeping package must not be updated")
	}

	// Declared packages get refreshed; undeclared ones are not added.
	reqs := store.Read()
	if len(reqs) != 1 || reqs[0].String() != "flask==2.0.1" {
		t.Errorf("manifest = %v; want [flask==2.0.1]", reqs)
	}
}

func TestUpdateNothingOutdated(t *testing.T) {
	t.Parallel()

	tool := &fakeTool{handler: func(args []string) (string, error) {
		return "Package Version Latest Type\n------- ------- ------ -----\n", nil
	}}
	engine, _ := newTestEngine(t, tool)

	results, err := engine.Update(context.Background())
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results; want 0", len(results))
	}
}

func TestInstallConcurrentBatchSingleCommit(t *testing.T) {
	t.Parallel()

	versions := map[string]string{}
	var mu sync.Mutex
	handler := func(args []string) (string, error) {
		switch args[0] {
		case "install":
			mu.Lock()
			versions[args[1]] = "1.0.0"
			mu.Unlock()
			return "", nil
		case "show":
			mu.Lock()
			defer mu.Unlock()
			if v, ok := versions[args[1]]; ok {
				return showBlock(args[1], v), nil
			}
			return "", &pytool.ExecError{ExitCode: 1, Diagnostic: "not found"}
		}
		return "", fmt.Errorf("unexpected pip args %v", args)
	}
	tool := &fakeTool{handler: handler}
	engine, store := newTestEngine(t, tool)

	specs := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	outcomes, err := engine.Install(context.Background(), specs)
	if err != nil {
		t.Fatalf("Install: %v", err)
	}

	for i, o := range outcomes {
		if o.Kind != Installed {
			t.Errorf("outcome %d = %+v; want Installed", i, o)
		}
	}

	// Every package landed in the single manifest commit; nothing was lost
	// to interleaved writes.
	reqs := store.Read()
	if len(reqs) != len(specs) {
		t.Fatalf("manifest has %d entries; want %d: %v", len(reqs), len(specs), reqs)
	}
	for _, name := range specs {
		if _, ok := manifest.Find(reqs, name); !ok {
			t.Errorf("manifest missing %s", name)
		}
	}
}
