package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"enoki/interpreter-go/pkg/driver"
)

func TestVersionFlagPrintsToolVersion(t *testing.T) {
	code, stdout, stderr := captureCLI(t, []string{"--version"})
	if code != 0 {
		t.Fatalf("expected exit 0, got %d (stderr: %q)", code, stderr)
	}
	if !strings.Contains(stdout, cliToolVersion) {
		t.Fatalf("expected version output, got %q", stdout)
	}
}

func TestUsagePrintedWithoutArguments(t *testing.T) {
	code, _, stderr := captureCLI(t, nil)
	if code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if !strings.Contains(stderr, "Usage:") {
		t.Fatalf("expected usage text on stderr, got %q", stderr)
	}
}

func TestRunEntryDirectFileNoManifest(t *testing.T) {
	dir := t.TempDir()
	oldWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	defer func() {
		if chdirErr := os.Chdir(oldWD); chdirErr != nil {
			t.Fatalf("restore working directory: %v", chdirErr)
		}
	}()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}

	writeFile(t, filepath.Join(dir, "main.enoki"), `
fn main() {
    print("hello")
}
`)

	if code := runEntry([]string{"main.enoki"}); code != 0 {
		t.Fatalf("runEntry returned exit code %d, want 0", code)
	}
}

func TestRunEntryDirectFileWithManifest(t *testing.T) {
	dir := t.TempDir()
	oldWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	defer func() {
		if chdirErr := os.Chdir(oldWD); chdirErr != nil {
			t.Fatalf("restore working directory: %v", chdirErr)
		}
	}()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}

	writeFile(t, filepath.Join(dir, "bundle.yml"), `
name: demo
version: 0.1.0
targets:
  default: src/app.enoki
`)
	writeFile(t, filepath.Join(dir, "worker.enoki"), `
fn main() {
    print("worker")
}
`)

	if code := runEntry([]string{"worker.enoki"}); code != 0 {
		t.Fatalf("runEntry returned exit code %d, want 0", code)
	}
}

func TestRunShortcutAcceptsSourceFile(t *testing.T) {
	dir := t.TempDir()
	oldWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	defer func() {
		if chdirErr := os.Chdir(oldWD); chdirErr != nil {
			t.Fatalf("restore working directory: %v", chdirErr)
		}
	}()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}

	writeFile(t, filepath.Join(dir, "solo.enoki"), `
fn main() {
    print("solo")
}
`)

	code, stdout, stderr := captureCLI(t, []string{"solo.enoki"})
	if code != 0 {
		t.Fatalf("run returned exit code %d, stderr: %q", code, stderr)
	}
	if !strings.Contains(stdout, `"solo"`) {
		t.Fatalf("expected program output, got %q", stdout)
	}
}

func TestRunDefaultTargetInvokesMain(t *testing.T) {
	dir := t.TempDir()
	oldWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	defer func() {
		if chdirErr := os.Chdir(oldWD); chdirErr != nil {
			t.Fatalf("restore working directory: %v", chdirErr)
		}
	}()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}

	writeFile(t, filepath.Join(dir, "bundle.yml"), `
name: spores
version: 0.1.0
targets:
  default: src/main.enoki
sources:
  - src
`)
	writeFile(t, filepath.Join(dir, "src", "greet.enoki"), `
fn greeting() -> String {
    "hello from spores"
}
`)
	writeFile(t, filepath.Join(dir, "src", "main.enoki"), `
fn main() {
    print(greeting())
}
`)

	code, stdout, stderr := captureCLI(t, []string{"run"})
	if code != 0 {
		t.Fatalf("run exited %d (stderr: %q)", code, stderr)
	}
	if !strings.Contains(stdout, `"hello from spores"`) {
		t.Fatalf("expected greeting in output, got %q", stdout)
	}
	if stderr != "" {
		t.Fatalf("expected empty stderr, got %q", stderr)
	}
}

func TestRunNamedTargetMatchesSanitizedName(t *testing.T) {
	dir := t.TempDir()
	oldWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	defer func() {
		if chdirErr := os.Chdir(oldWD); chdirErr != nil {
			t.Fatalf("restore working directory: %v", chdirErr)
		}
	}()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}

	writeFile(t, filepath.Join(dir, "bundle.yml"), `
name: field_notes
version: 0.1.0
targets:
  default: src/main.enoki
  quick-check: src/check.enoki
sources:
  - src
`)
	writeFile(t, filepath.Join(dir, "src", "main.enoki"), `
fn main() {
    print("main entry")
}
`)
	writeFile(t, filepath.Join(dir, "src", "check.enoki"), `
fn main() {
    print(41 + 1)
}
`)

	code, stdout, stderr := captureCLI(t, []string{"run", "quick_check"})
	if code != 0 {
		t.Fatalf("run exited %d (stderr: %q)", code, stderr)
	}
	if !strings.Contains(stdout, "42") {
		t.Fatalf("expected check target output, got %q", stdout)
	}
}

func TestRunWithoutMainEvaluatesModules(t *testing.T) {
	dir := t.TempDir()
	oldWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	defer func() {
		if chdirErr := os.Chdir(oldWD); chdirErr != nil {
			t.Fatalf("restore working directory: %v", chdirErr)
		}
	}()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}

	writeFile(t, filepath.Join(dir, "notes.enoki"), `
type Mushroom = Cap(Int)

print(Cap(3))
`)

	code, stdout, stderr := captureCLI(t, []string{"notes.enoki"})
	if code != 0 {
		t.Fatalf("run exited %d (stderr: %q)", code, stderr)
	}
	if !strings.Contains(stdout, "Cap(3)") {
		t.Fatalf("expected top-level output, got %q", stdout)
	}
}

func TestRunReportsEvaluationErrorWithPath(t *testing.T) {
	dir := t.TempDir()
	oldWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	defer func() {
		if chdirErr := os.Chdir(oldWD); chdirErr != nil {
			t.Fatalf("restore working directory: %v", chdirErr)
		}
	}()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}

	writeFile(t, filepath.Join(dir, "broken.enoki"), `
missing()
`)

	code, stdout, stderr := captureCLI(t, []string{"broken.enoki"})
	if code == 0 {
		t.Fatalf("expected failure, stdout: %q", stdout)
	}
	if !strings.Contains(stderr, "broken.enoki") {
		t.Fatalf("expected failing file in stderr, got %q", stderr)
	}
	if !strings.Contains(stderr, "Undefined variable 'missing'") {
		t.Fatalf("expected evaluation error, got %q", stderr)
	}
}

func TestRunFileUsesEntryManifestLock(t *testing.T) {
	root := t.TempDir()
	manifestDir := filepath.Join(root, "foo")
	entryDir := filepath.Join(manifestDir, "bar")
	if err := os.MkdirAll(entryDir, 0o755); err != nil {
		t.Fatalf("mkdir entry dir: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(manifestDir, "vendor", "helper"), 0o755); err != nil {
		t.Fatalf("mkdir helper vendor: %v", err)
	}

	writeFile(t, filepath.Join(manifestDir, "bundle.yml"), `
name: foo_app
version: 0.1.0
targets:
  default: bar/baz.enoki
dependencies:
  helper:
    path: ./vendor/helper
`)
	writeFile(t, filepath.Join(entryDir, "baz.enoki"), `
fn main() {
    print("ran via manifest")
}
`)

	t.Setenv("ENOKI_HOME", filepath.Join(root, "cache"))

	oldWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	defer func() {
		if chdirErr := os.Chdir(oldWD); chdirErr != nil {
			t.Fatalf("restore working directory: %v", chdirErr)
		}
	}()
	if err := os.Chdir(root); err != nil {
		t.Fatalf("Chdir root: %v", err)
	}

	entryArg := filepath.Join("foo", "bar", "baz.enoki")
	if code, _, stderr := captureCLI(t, []string{entryArg}); code == 0 {
		t.Fatalf("expected failure without bundle.lock, stderr: %q", stderr)
	} else if !strings.Contains(stderr, "bundle.lock missing") {
		t.Fatalf("expected missing lockfile error, got %q", stderr)
	}

	lock := driver.NewLockfile("foo_app", cliToolVersion)
	lockPath := filepath.Join(manifestDir, "bundle.lock")
	if err := lock.Write(lockPath); err != nil {
		t.Fatalf("write lockfile: %v", err)
	}

	code, stdout, stderr := captureCLI(t, []string{entryArg})
	if code != 0 {
		t.Fatalf("expected success after lockfile write, exit %d (stderr: %q)", code, stderr)
	}
	if strings.Contains(stderr, "bundle.lock missing") {
		t.Fatalf("did not expect lockfile warning, got %q", stderr)
	}
	if !strings.Contains(stdout, "ran via manifest") {
		t.Fatalf("expected program output, got %q", stdout)
	}
}

func TestBuildExecutionSearchPathsIncludesEnokiPath(t *testing.T) {
	tempDir := t.TempDir()
	extraOne := filepath.Join(tempDir, "depA")
	extraTwo := filepath.Join(tempDir, "depB")
	for _, dir := range []string{extraOne, extraTwo} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}

	joined := strings.Join([]string{extraOne, extraTwo}, string(os.PathListSeparator))
	t.Setenv("ENOKI_PATH", joined)

	paths, err := buildExecutionSearchPaths(nil, nil)
	if err != nil {
		t.Fatalf("buildExecutionSearchPaths: %v", err)
	}
	if !containsPath(paths, extraOne) || !containsPath(paths, extraTwo) {
		t.Fatalf("expected search paths to include %s and %s, got %v", extraOne, extraTwo, paths)
	}
}

func TestResolvePackageSourcePathForms(t *testing.T) {
	cache := filepath.Join(string(filepath.Separator), "enoki-cache")
	abs := filepath.Join(string(filepath.Separator), "bundles", "mushlib")

	if got, ok := resolvePackageSourcePath("path:"+abs, "", cache); !ok || got != abs {
		t.Fatalf("path source resolved to %q (%v)", got, ok)
	}
	if got, ok := resolvePackageSourcePath("registry:default/util/1.0.0", "", cache); !ok ||
		got != filepath.Join(cache, "pkg", "src", "util", "1.0.0") {
		t.Fatalf("registry source resolved to %q (%v)", got, ok)
	}
	if _, ok := resolvePackageSourcePath("git+https://example.com/repo.git@abc", "", cache); ok {
		t.Fatalf("git sources have no direct path mapping")
	}
}
