package driver

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Manifest represents the parsed contents of bundle.yml.
type Manifest struct {
	Path         string
	Name         string
	Version      string
	Targets      map[string]string
	TargetOrder  []string
	Sources      []string
	Dependencies map[string]*DependencySpec

	targetEntries []manifestTargetEntry
}

type manifestTargetEntry struct {
	sanitized string
	original  string
	entry     string
}

// DependencySpec describes a dependency descriptor in the manifest. Exactly
// one of Version, Git, or Path selects the source; Rev/Tag/Branch refine a
// git source and Registry a version source.
type DependencySpec struct {
	Version  string
	Git      string
	Rev      string
	Tag      string
	Branch   string
	Path     string
	Registry string
}

// ValidationError aggregates manifest validation failures.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "manifest: invalid configuration"
	}
	var b strings.Builder
	b.WriteString("manifest validation failed:")
	for _, issue := range e.Issues {
		b.WriteString("\n- ")
		b.WriteString(issue)
	}
	return b.String()
}

// LoadManifest parses bundle.yml from disk, returning a validated manifest.
func LoadManifest(path string) (*Manifest, error) {
	if path == "" {
		return nil, fmt.Errorf("manifest: empty path")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: resolve %s: %w", path, err)
	}
	file, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("manifest: open %s: %w", absPath, err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)

	var raw manifestFile
	if err := decoder.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("manifest: %s is empty", absPath)
		}
		return nil, fmt.Errorf("manifest: parse %s: %w", absPath, err)
	}

	manifest := raw.toManifest(absPath)
	if err := manifest.validate(); err != nil {
		return nil, err
	}
	return manifest, nil
}

func (m *Manifest) validate() error {
	var errs ValidationError
	if m.Name == "" {
		errs.Issues = append(errs.Issues, "name must be provided")
	}
	if m.Version != "" && !isValidVersion(m.Version) {
		errs.Issues = append(errs.Issues, fmt.Sprintf("invalid version %q", m.Version))
	}

	targetNames := make(map[string]string, len(m.targetEntries))
	for _, item := range m.targetEntries {
		if other, exists := targetNames[item.sanitized]; exists {
			errs.Issues = append(errs.Issues, fmt.Sprintf("targets %q and %q collide after sanitization", other, item.original))
		} else {
			targetNames[item.sanitized] = item.original
		}
		if item.entry == "" {
			errs.Issues = append(errs.Issues, fmt.Sprintf("target %q missing an entry file", item.original))
		}
	}

	depNames := make([]string, 0, len(m.Dependencies))
	for name := range m.Dependencies {
		depNames = append(depNames, name)
	}
	sort.Strings(depNames)
	for _, depName := range depNames {
		dep := m.Dependencies[depName]
		if dep == nil {
			continue
		}
		for _, issue := range dep.validate() {
			errs.Issues = append(errs.Issues, fmt.Sprintf("dependencies.%s: %s", depName, issue))
		}
	}

	if len(errs.Issues) > 0 {
		return &errs
	}
	return nil
}

var ErrNoDefaultTarget = errors.New("manifest: no default target defined")

// DefaultTarget returns the entry file of the "default" target, falling back
// to the only declared target when there is exactly one.
func (m *Manifest) DefaultTarget() (string, error) {
	if m == nil {
		return "", ErrNoDefaultTarget
	}
	if entry, ok := m.FindTarget("default"); ok {
		return entry, nil
	}
	if len(m.TargetOrder) == 1 {
		return m.Targets[m.TargetOrder[0]], nil
	}
	return "", ErrNoDefaultTarget
}

// FindTarget looks up a target entry file by sanitized or original name.
func (m *Manifest) FindTarget(name string) (string, bool) {
	if m == nil {
		return "", false
	}
	key := sanitizeSegment(strings.TrimSpace(name))
	if key != "" {
		if entry, ok := m.Targets[key]; ok && entry != "" {
			return entry, true
		}
	}
	for _, item := range m.targetEntries {
		if strings.EqualFold(item.original, strings.TrimSpace(name)) {
			return item.entry, true
		}
	}
	return "", false
}

// SourceDirs resolves the manifest's source directories against the bundle
// root. An empty sources list means the bundle root itself.
func (m *Manifest) SourceDirs() []string {
	root := filepath.Dir(m.Path)
	if len(m.Sources) == 0 {
		return []string{root}
	}
	dirs := make([]string, 0, len(m.Sources))
	for _, src := range m.Sources {
		if filepath.IsAbs(src) {
			dirs = append(dirs, filepath.Clean(src))
			continue
		}
		dirs = append(dirs, filepath.Join(root, filepath.FromSlash(src)))
	}
	return dirs
}

func (d *DependencySpec) validate() []string {
	var errs []string
	if d == nil {
		return errs
	}

	sources := 0
	if d.Version != "" {
		sources++
	}
	if d.Git != "" {
		sources++
	}
	if d.Path != "" {
		sources++
	}
	if sources != 1 {
		errs = append(errs, "must specify exactly one of version, git, or path")
	}

	selectors := 0
	for _, selector := range []string{d.Rev, d.Tag, d.Branch} {
		if selector != "" {
			selectors++
		}
	}
	if selectors > 0 && d.Git == "" {
		errs = append(errs, "rev, tag, and branch apply only to git dependencies")
	}
	if selectors > 1 {
		errs = append(errs, "at most one of rev, tag, or branch may be given")
	}
	if d.Registry != "" && d.Version == "" {
		errs = append(errs, "registry applies only to version dependencies")
	}

	if d.Version != "" && !isValidVersionConstraint(d.Version) {
		errs = append(errs, fmt.Sprintf("invalid version constraint %q", d.Version))
	}
	return errs
}

var (
	versionPattern           = regexp.MustCompile(`^[0-9]+(\.[0-9]+){0,2}([0-9A-Za-z\-\+\.]*)?$`)
	versionConstraintPattern = regexp.MustCompile(`^(~>|>=|<=|>|<|=|\^)?\s*[0-9]+(\.[0-9]+){0,2}([0-9A-Za-z\-\+\.]*)?$`)
)

func isValidVersion(input string) bool {
	return versionPattern.MatchString(strings.TrimSpace(input))
}

func isValidVersionConstraint(input string) bool {
	s := strings.TrimSpace(input)
	if s == "" {
		return false
	}
	if s == "*" {
		return true
	}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" || !versionConstraintPattern.MatchString(part) {
			return false
		}
	}
	return true
}

type manifestFile struct {
	Name         string        `yaml:"name"`
	Version      string        `yaml:"version"`
	Targets      targetMap     `yaml:"targets"`
	Sources      stringList    `yaml:"sources"`
	Dependencies dependencyMap `yaml:"dependencies"`
}

type targetMap struct {
	items []targetMapEntry
}

type targetMapEntry struct {
	name  string
	entry string
}

func (tm *targetMap) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == 0 {
		tm.items = nil
		return nil
	}
	if value.Kind == yaml.ScalarNode && value.Tag == "!!null" {
		tm.items = nil
		return nil
	}
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("manifest: targets must be a mapping")
	}
	items := make([]targetMapEntry, 0, len(value.Content)/2)
	for i := 0; i < len(value.Content); i += 2 {
		keyNode := value.Content[i]
		valueNode := value.Content[i+1]

		var key string
		if err := keyNode.Decode(&key); err != nil {
			return err
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return fmt.Errorf("manifest: targets must not use empty keys")
		}
		var entry string
		if err := valueNode.Decode(&entry); err != nil {
			return fmt.Errorf("manifest: target %q: %w", key, err)
		}
		items = append(items, targetMapEntry{
			name:  key,
			entry: strings.TrimSpace(entry),
		})
	}
	tm.items = items
	return nil
}

type dependencyMap map[string]*DependencySpec

type stringList []string

func (mf manifestFile) toManifest(path string) *Manifest {
	targetCapacity := len(mf.Targets.items)
	result := &Manifest{
		Path:          path,
		Name:          sanitizeSegment(strings.TrimSpace(mf.Name)),
		Version:       strings.TrimSpace(mf.Version),
		Targets:       make(map[string]string, targetCapacity),
		TargetOrder:   make([]string, 0, targetCapacity),
		Sources:       mf.Sources.Clone(),
		Dependencies:  cloneDependencyMap(mf.Dependencies),
		targetEntries: make([]manifestTargetEntry, 0, targetCapacity),
	}

	seenTargets := make(map[string]struct{}, targetCapacity)
	for _, item := range mf.Targets.items {
		original := strings.TrimSpace(item.name)
		if original == "" {
			continue
		}
		sanitized := sanitizeSegment(original)
		if _, exists := result.Targets[sanitized]; !exists {
			result.Targets[sanitized] = item.entry
		}
		if _, exists := seenTargets[sanitized]; !exists {
			result.TargetOrder = append(result.TargetOrder, sanitized)
			seenTargets[sanitized] = struct{}{}
		}
		result.targetEntries = append(result.targetEntries, manifestTargetEntry{
			sanitized: sanitized,
			original:  original,
			entry:     item.entry,
		})
	}
	return result
}

func cloneDependencyMap(src dependencyMap) map[string]*DependencySpec {
	if len(src) == 0 {
		return map[string]*DependencySpec{}
	}
	out := make(map[string]*DependencySpec, len(src))
	for name, dep := range src {
		if dep == nil {
			continue
		}
		out[name] = dep.clone()
	}
	return out
}

func (d *DependencySpec) clone() *DependencySpec {
	if d == nil {
		return nil
	}
	copy := *d
	return &copy
}

func (l stringList) Clone() []string {
	if len(l) == 0 {
		return nil
	}
	out := make([]string, 0, len(l))
	for _, item := range l {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}

func (l *stringList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		if value.Tag == "!!null" || strings.TrimSpace(value.Value) == "" {
			*l = nil
			return nil
		}
		*l = stringList{strings.TrimSpace(value.Value)}
		return nil
	case yaml.SequenceNode:
		items := make([]string, 0, len(value.Content))
		for _, node := range value.Content {
			var str string
			if err := node.Decode(&str); err != nil {
				return err
			}
			str = strings.TrimSpace(str)
			if str == "" {
				continue
			}
			items = append(items, str)
		}
		*l = stringList(items)
		return nil
	case yaml.AliasNode:
		return l.UnmarshalYAML(value.Alias)
	case 0:
		*l = nil
		return nil
	default:
		return fmt.Errorf("manifest: expected string or sequence for list but found %s", value.ShortTag())
	}
}

func (dm *dependencyMap) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == 0 {
		*dm = make(dependencyMap)
		return nil
	}
	if value.Kind == yaml.ScalarNode && value.Tag == "!!null" {
		*dm = make(dependencyMap)
		return nil
	}
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("manifest: dependencies must be a mapping")
	}
	result := make(dependencyMap, len(value.Content)/2)
	for i := 0; i < len(value.Content); i += 2 {
		keyNode := value.Content[i]
		valNode := value.Content[i+1]

		var key string
		if err := keyNode.Decode(&key); err != nil {
			return err
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return fmt.Errorf("manifest: dependency names must be non-empty")
		}
		var dep DependencySpec
		if err := dep.unmarshalYAML(valNode); err != nil {
			return fmt.Errorf("manifest: dependency %q: %w", key, err)
		}
		result[key] = dep.clone()
	}
	*dm = result
	return nil
}

// unmarshalYAML accepts the shorthand scalar form ("1.0.0" means a registry
// version) as well as the full mapping form.
func (d *DependencySpec) unmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		if value.Tag == "!!null" || strings.TrimSpace(value.Value) == "" {
			*d = DependencySpec{}
			return nil
		}
		*d = DependencySpec{Version: strings.TrimSpace(value.Value)}
		return nil
	case yaml.MappingNode:
		var raw struct {
			Version  string `yaml:"version"`
			Git      string `yaml:"git"`
			Rev      string `yaml:"rev"`
			Tag      string `yaml:"tag"`
			Branch   string `yaml:"branch"`
			Path     string `yaml:"path"`
			Registry string `yaml:"registry"`
		}
		if err := value.Decode(&raw); err != nil {
			return err
		}
		*d = DependencySpec{
			Version:  strings.TrimSpace(raw.Version),
			Git:      strings.TrimSpace(raw.Git),
			Rev:      strings.TrimSpace(raw.Rev),
			Tag:      strings.TrimSpace(raw.Tag),
			Branch:   strings.TrimSpace(raw.Branch),
			Path:     strings.TrimSpace(raw.Path),
			Registry: strings.TrimSpace(raw.Registry),
		}
		return nil
	case yaml.AliasNode:
		return d.unmarshalYAML(value.Alias)
	default:
		return fmt.Errorf("expected string or mapping, found %s", value.ShortTag())
	}
}
