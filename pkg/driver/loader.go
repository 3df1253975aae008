// Package driver loads Enoki bundles: the bundle.yml manifest, the
// bundle.lock lockfile, and the .enoki sources that make up a program.
package driver

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"enoki/interpreter-go/pkg/ast"
	"enoki/interpreter-go/pkg/parser"
)

// SourceExt is the file extension of Enoki source files.
const SourceExt = ".enoki"

// ProgramUnit pairs one parsed source file with its path.
type ProgramUnit struct {
	Path   string
	Module *ast.Module
}

// Program is an entry file plus every source it is loaded with, parsed and
// ordered for evaluation.
type Program struct {
	Entry string
	Units []ProgramUnit
}

// LoadProgram parses the entry file and every .enoki file found under the
// search paths. Enoki has a single flat namespace, so load order is the only
// sequencing: search paths contribute files in the order given (sorted within
// each path, duplicates dropped) and the entry comes last, so its top-level
// expressions see every definition.
func LoadProgram(entryPath string, searchPaths []string) (*Program, error) {
	if strings.TrimSpace(entryPath) == "" {
		return nil, fmt.Errorf("loader: empty entry path")
	}
	entryAbs, err := filepath.Abs(entryPath)
	if err != nil {
		return nil, fmt.Errorf("loader: resolve entry %s: %w", entryPath, err)
	}
	info, err := os.Stat(entryAbs)
	if err != nil {
		return nil, fmt.Errorf("loader: entry %s: %w", entryAbs, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("loader: entry %s is a directory", entryAbs)
	}

	seen := map[string]struct{}{entryAbs: {}}
	var files []string
	for _, dir := range dedupeSearchPaths(searchPaths) {
		indexed, err := indexSourceFiles(dir)
		if err != nil {
			return nil, err
		}
		for _, file := range indexed {
			if _, ok := seen[file]; ok {
				continue
			}
			seen[file] = struct{}{}
			files = append(files, file)
		}
	}
	files = append(files, entryAbs)

	program := &Program{
		Entry: entryAbs,
		Units: make([]ProgramUnit, 0, len(files)),
	}
	for _, file := range files {
		module, err := parseSourceFile(file)
		if err != nil {
			return nil, err
		}
		program.Units = append(program.Units, ProgramUnit{Path: file, Module: module})
	}
	return program, nil
}

func parseSourceFile(path string) (*ast.Module, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loader: read %s: %w", path, err)
	}
	module, err := parser.Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("loader: %s: %w", path, err)
	}
	return module, nil
}

// dedupeSearchPaths keeps existing directories only, absolute and first-wins.
func dedupeSearchPaths(paths []string) []string {
	out := make([]string, 0, len(paths))
	seen := make(map[string]struct{}, len(paths))
	for _, path := range paths {
		if strings.TrimSpace(path) == "" {
			continue
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			continue
		}
		info, err := os.Stat(abs)
		if err != nil || !info.IsDir() {
			continue
		}
		if _, ok := seen[abs]; ok {
			continue
		}
		seen[abs] = struct{}{}
		out = append(out, abs)
	}
	return out
}

// indexSourceFiles lists the .enoki files under dir, sorted for determinism.
func indexSourceFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		if filepath.Ext(path) != SourceExt {
			return nil
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		files = append(files, abs)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loader: scan %s: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}

func sanitizeSegment(seg string) string {
	seg = strings.TrimSpace(seg)
	seg = strings.ReplaceAll(seg, "-", "_")
	return seg
}
