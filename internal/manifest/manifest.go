// Package manifest handles git-pm manifest and local override files: the
// declarative listing of a project's direct package dependencies.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	gitpmerrors "gitpm.dev/gitpm/internal/errors"
)

const (
	// FileName is the manifest file name, at the project root and inside
	// packages that declare their own dependencies.
	FileName = "git-pm.yaml"
	// OverrideFileName is the per-environment local override file. It is
	// never committed; install adds it to .gitignore.
	OverrideFileName = "git-pm.local.yaml"
)

// Ref reference types.
const (
	RefBranch = "branch"
	RefTag    = "tag"
	RefCommit = "commit"
)

// Ref identifies a point in a repository's history.
type Ref struct {
	Type  string `yaml:"type" json:"type"`
	Value string `yaml:"value" json:"value"`
}

// IsMutable reports whether the ref can move on the remote (branches do;
// tags and commits are treated as immutable).
func (r Ref) IsMutable() bool {
	return r.Type == RefBranch
}

// Declaration is one package entry in a manifest or override file.
type Declaration struct {
	Repo string `yaml:"repo,omitempty"`
	Path string `yaml:"path,omitempty"`
	Ref  *Ref   `yaml:"ref,omitempty"`
}

// EffectiveRef returns the declared ref, defaulting to branch:main.
func (d Declaration) EffectiveRef() Ref {
	if d.Ref == nil {
		return Ref{Type: RefBranch, Value: "main"}
	}
	ref := *d.Ref
	if ref.Type == "" {
		ref.Type = RefBranch
	}
	if ref.Value == "" {
		ref.Value = "main"
	}
	return ref
}

// Manifest is the parsed manifest file.
type Manifest struct {
	Packages map[string]Declaration `yaml:"packages"`
}

// Load reads the manifest at dir. A missing manifest is an error at the
// project root but signals "no nested dependencies" elsewhere, so callers
// check os.IsNotExist via Exists first where that distinction matters.
func Load(dir string) (*Manifest, error) {
	return loadFile(filepath.Join(dir, FileName))
}

// Exists reports whether dir contains a manifest file.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, FileName))
	return err == nil
}

// LoadOverrides reads the local override file at dir. Returns an empty map
// when the file does not exist.
func LoadOverrides(dir string) (map[string]Declaration, error) {
	m, err := loadFile(filepath.Join(dir, OverrideFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]Declaration{}, nil
		}
		return nil, err
	}
	if m.Packages == nil {
		return map[string]Declaration{}, nil
	}
	return m.Packages, nil
}

func loadFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", gitpmerrors.ErrManifest, path, err)
	}

	for name, decl := range m.Packages {
		if decl.Ref != nil {
			switch decl.Ref.Type {
			case "", RefBranch, RefTag, RefCommit:
			default:
				return nil, fmt.Errorf("%w: package %s: unknown ref type %q", gitpmerrors.ErrManifest, name, decl.Ref.Type)
			}
		}
	}

	return &m, nil
}

// ApplyOverrides produces the finalized declaration table for a manifest:
// every name present in overrides has its declaration replaced wholesale.
// Replacement never merges fields, so an override declaring only a repo
// discards the base declaration's path and ref.
func ApplyOverrides(packages, overrides map[string]Declaration) map[string]Declaration {
	out := make(map[string]Declaration, len(packages))
	for name, decl := range packages {
		if o, ok := overrides[name]; ok {
			out[name] = o
			continue
		}
		out[name] = decl
	}
	return out
}

// Save writes the manifest to dir, used by the add command.
func Save(dir string, m *Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, FileName), data, 0o644)
}
