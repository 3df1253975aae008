package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"enoki/interpreter-go/pkg/driver"
	"enoki/interpreter-go/pkg/interpreter"
)

// runEntry implements `enoki run [target|file]` and the bare `enoki <file>`
// shortcut. With no argument the manifest's default target runs; a named
// argument is tried as a manifest target first and as a source file second.
func runEntry(args []string) int {
	if len(args) > 1 {
		fmt.Fprintf(os.Stderr, "enoki: run takes at most one entry argument (received %s)\n", strings.Join(args, " "))
		return 1
	}

	manifest, err := loadManifestFrom(".")
	if err != nil && !errors.Is(err, errManifestNotFound) {
		if len(args) == 1 && looksLikePathCandidate(args[0]) {
			fmt.Fprintf(os.Stderr, "enoki: warning: unable to load manifest (%v); falling back to direct file execution\n", err)
			manifest = nil
		} else {
			fmt.Fprintf(os.Stderr, "enoki: %v\n", err)
			return 1
		}
	}

	if len(args) == 0 {
		if manifest == nil {
			fmt.Fprintln(os.Stderr, "enoki: run requires a manifest target or source file (bundle.yml not found)")
			return 1
		}
		entry, err := manifest.DefaultTarget()
		if err != nil {
			fmt.Fprintf(os.Stderr, "enoki: %v\n", err)
			return 1
		}
		resolved, err := resolveTargetEntry(manifest, entry)
		if err != nil {
			fmt.Fprintf(os.Stderr, "enoki: %v\n", err)
			return 1
		}
		return executeEntry(resolved, manifest)
	}

	candidate := strings.TrimSpace(args[0])
	if candidate == "" {
		fmt.Fprintln(os.Stderr, "enoki: run requires a non-empty target or file name")
		return 1
	}

	if manifest != nil && !looksLikePathCandidate(candidate) {
		if entry, ok := manifest.FindTarget(candidate); ok {
			resolved, err := resolveTargetEntry(manifest, entry)
			if err != nil {
				fmt.Fprintf(os.Stderr, "enoki: failed to resolve target %q: %v\n", candidate, err)
				return 1
			}
			return executeEntry(resolved, manifest)
		}
	}

	entryAbs, err := filepath.Abs(filepath.FromSlash(candidate))
	if err != nil {
		fmt.Fprintf(os.Stderr, "enoki: %v\n", err)
		return 1
	}

	// A file outside the current bundle runs against its own manifest.
	activeManifest := manifest
	manifestPath, err := findManifest(filepath.Dir(entryAbs))
	switch {
	case err == nil:
		if activeManifest == nil || activeManifest.Path != manifestPath {
			loaded, err := driver.LoadManifest(manifestPath)
			if err != nil {
				fmt.Fprintf(os.Stderr, "enoki: failed to read manifest for %s: %v\n", candidate, err)
				return 1
			}
			activeManifest = loaded
		}
	case errors.Is(err, errManifestNotFound):
		activeManifest = nil
	default:
		fmt.Fprintf(os.Stderr, "enoki: failed to locate manifest for %s: %v\n", candidate, err)
		return 1
	}

	return executeEntry(entryAbs, activeManifest)
}

// executeEntry loads and evaluates a program rooted at the given entry file,
// then calls its main function when one is defined.
func executeEntry(entry string, manifest *driver.Manifest) int {
	entry = strings.TrimSpace(entry)
	if entry == "" {
		fmt.Fprintln(os.Stderr, "enoki: no entry file to execute")
		return 1
	}
	entryAbs, err := filepath.Abs(entry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "enoki: %v\n", err)
		return 1
	}

	lock, err := loadLockfileForManifest(manifest)
	if err != nil {
		fmt.Fprintf(os.Stderr, "enoki: %v\n", err)
		return 1
	}

	extras, err := buildExecutionSearchPaths(manifest, lock)
	if err != nil {
		fmt.Fprintf(os.Stderr, "enoki: failed to prepare execution environment: %v\n", err)
		return 1
	}
	searchPaths := collectSearchPaths(extras...)

	program, err := driver.LoadProgram(entryAbs, searchPaths)
	if err != nil {
		fmt.Fprintf(os.Stderr, "enoki: %v\n", err)
		return 1
	}

	interp := interpreter.New()
	for _, unit := range program.Units {
		if _, _, err := interp.EvaluateModule(unit.Module); err != nil {
			fmt.Fprintf(os.Stderr, "enoki: %s: %v\n", unit.Path, err)
			return 1
		}
	}

	mainValue, err := interp.GlobalEnvironment().Get("main")
	if err != nil {
		// A bundle without main just evaluates its modules.
		return 0
	}
	if _, err := interp.CallFunction(mainValue, nil); err != nil {
		fmt.Fprintf(os.Stderr, "enoki: %v\n", err)
		return 1
	}
	return 0
}
