// Package workspace resolves a user-supplied path into a working
// directory for agent runs. The bridge consumes the result as-is and
// performs no path logic of its own.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sunwell/studio/internal/errors"
)

// ProjectKind classifies what kind of project a directory holds, based
// on its marker files.
type ProjectKind string

const (
	KindUnknown ProjectKind = "unknown"
	KindNode    ProjectKind = "node"
	KindRust    ProjectKind = "rust"
	KindPython  ProjectKind = "python"
	KindGo      ProjectKind = "go"
	KindMake    ProjectKind = "make"
	KindDocker  ProjectKind = "docker"
)

// Project is a resolved workspace.
type Project struct {
	// Root is the absolute working directory for agent runs.
	Root string
	// Name is the directory's base name.
	Name string
	// Kind is the detected project type.
	Kind ProjectKind
	// HasCheckpoint is true when an interrupted run left state behind
	// under .sunwell/checkpoints, meaning Resume is meaningful.
	HasCheckpoint bool
}

// Resolver turns a user-supplied path into a Project.
type Resolver interface {
	Resolve(path string) (Project, error)
}

// DirResolver resolves paths against the local filesystem.
type DirResolver struct{}

// Resolve validates that path is an existing directory and classifies it.
// An empty path resolves to the current directory.
func (DirResolver) Resolve(path string) (Project, error) {
	if path == "" {
		path = "."
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return Project{}, errors.FromError(errors.CodeFileNotFound, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return Project{}, errors.Newf(errors.CodeFileNotFound, "workspace does not exist: %s", abs)
		}
		return Project{}, errors.FromError(errors.CodeFileNotFound, err)
	}
	if !info.IsDir() {
		return Project{}, errors.Newf(errors.CodeFileNotFound, "workspace is not a directory: %s", abs)
	}

	return Project{
		Root:          abs,
		Name:          filepath.Base(abs),
		Kind:          detectKind(abs),
		HasCheckpoint: hasCheckpoint(abs),
	}, nil
}

// markers maps project kinds to the files that identify them, in
// detection priority order.
var markers = []struct {
	kind ProjectKind
	file string
}{
	{KindNode, "package.json"},
	{KindRust, "Cargo.toml"},
	{KindGo, "go.mod"},
	{KindPython, "pyproject.toml"},
	{KindPython, "manage.py"},
	{KindPython, "requirements.txt"},
	{KindMake, "Makefile"},
	{KindDocker, "docker-compose.yml"},
}

func detectKind(root string) ProjectKind {
	for _, m := range markers {
		if _, err := os.Stat(filepath.Join(root, m.file)); err == nil {
			return m.kind
		}
	}
	return KindUnknown
}

// hasCheckpoint reports whether any checkpoint JSON exists for root.
func hasCheckpoint(root string) bool {
	dir := filepath.Join(root, ".sunwell", "checkpoints")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".json" {
			return true
		}
	}
	return false
}

// Shorten abbreviates a home-relative path for display, mirroring how
// the desktop surface presents workspace paths.
func Shorten(path string) string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}
	rel, err := filepath.Rel(home, path)
	if err != nil || len(rel) >= len(path) || rel == "." || rel[0] == '.' {
		return path
	}
	return fmt.Sprintf("~/%s", rel)
}
