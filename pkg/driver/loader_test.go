package driver

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadProgramOrdersDependenciesFirst(t *testing.T) {
	root := t.TempDir()
	depDir := filepath.Join(root, "dep")
	srcDir := filepath.Join(root, "app", "src")

	writeBundleFile(t, depDir, "util.enoki", `
fn double(x: Int) -> Int { x * 2 }
`)
	writeBundleFile(t, srcDir, "helper.enoki", `
fn quadruple(x: Int) -> Int { double(double(x)) }
`)
	entry := writeBundleFile(t, srcDir, "main.enoki", `
quadruple(4)
`)

	program, err := LoadProgram(entry, []string{depDir, srcDir})
	if err != nil {
		t.Fatalf("LoadProgram: %v", err)
	}
	if program.Entry != entry {
		t.Fatalf("Entry = %q, want %q", program.Entry, entry)
	}
	wantOrder := []string{
		filepath.Join(depDir, "util.enoki"),
		filepath.Join(srcDir, "helper.enoki"),
		entry,
	}
	if len(program.Units) != len(wantOrder) {
		t.Fatalf("unit count = %d, want %d", len(program.Units), len(wantOrder))
	}
	for i, want := range wantOrder {
		if program.Units[i].Path != want {
			t.Fatalf("unit[%d] = %q, want %q", i, program.Units[i].Path, want)
		}
		if program.Units[i].Module == nil {
			t.Fatalf("unit[%d] has no module", i)
		}
	}
}

func TestLoadProgramDeduplicatesSearchPaths(t *testing.T) {
	root := t.TempDir()
	srcDir := filepath.Join(root, "src")
	writeBundleFile(t, srcDir, "lib.enoki", `
fn id(x) { x }
`)
	entry := writeBundleFile(t, srcDir, "main.enoki", `
id(1)
`)

	program, err := LoadProgram(entry, []string{srcDir, srcDir, root})
	if err != nil {
		t.Fatalf("LoadProgram: %v", err)
	}
	if len(program.Units) != 2 {
		paths := make([]string, 0, len(program.Units))
		for _, unit := range program.Units {
			paths = append(paths, unit.Path)
		}
		t.Fatalf("expected 2 units, got %#v", paths)
	}
	if program.Units[1].Path != entry {
		t.Fatalf("entry not last: %q", program.Units[1].Path)
	}
}

func TestLoadProgramSkipsNonSourceFiles(t *testing.T) {
	root := t.TempDir()
	writeBundleFile(t, root, "notes.txt", `not a source file`)
	writeBundleFile(t, root, "lib.enoki", `
fn id(x) { x }
`)
	entry := writeBundleFile(t, root, "main.enoki", `
id(1)
`)

	program, err := LoadProgram(entry, []string{root})
	if err != nil {
		t.Fatalf("LoadProgram: %v", err)
	}
	if len(program.Units) != 2 {
		t.Fatalf("expected txt file to be skipped, got %d units", len(program.Units))
	}
}

func TestLoadProgramReportsParseErrorWithPath(t *testing.T) {
	root := t.TempDir()
	broken := writeBundleFile(t, root, "broken.enoki", `
fn oops( {
`)
	entry := writeBundleFile(t, root, "main.enoki", `
1
`)

	_, err := LoadProgram(entry, []string{root})
	if err == nil {
		t.Fatalf("expected parse error")
	}
	if !strings.Contains(err.Error(), broken) || !strings.Contains(err.Error(), "parse error at") {
		t.Fatalf("error does not name the broken file: %v", err)
	}
}

func TestLoadProgramMissingEntry(t *testing.T) {
	root := t.TempDir()
	_, err := LoadProgram(filepath.Join(root, "absent.enoki"), nil)
	if err == nil {
		t.Fatalf("expected error for missing entry")
	}
}
