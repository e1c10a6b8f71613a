// Package manifest handles mil.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is the manifest file a mil project carries at its root.
const FileName = "mil.toml"

// Manifest represents a mil.toml project configuration.
type Manifest struct {
	Project Project `toml:"project"`
	Build   Build   `toml:"build"`

	// Dir is the directory containing the mil.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// Build configures the compilation entry point and outputs.
type Build struct {
	Entry  string `toml:"entry"`  // path to the root .mil script
	Output string `toml:"output"` // compiled bytecode path
	Store  string `toml:"store"`  // artifact store path
}

// Load reads and parses the manifest in the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)

	var m Manifest
	if _, err := toml.DecodeFile(path, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	m.Dir = abs

	// Defaults
	if m.Build.Entry == "" {
		m.Build.Entry = "main.mil"
	}
	if m.Build.Output == "" {
		m.Build.Output = "covenant.mvm"
	}
	if m.Build.Store == "" {
		m.Build.Store = ".mil/store.db"
	}

	return &m, nil
}

// FindAndLoad walks up from startDir to find a mil.toml file, then loads and
// returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// EntryPath returns the absolute path of the build entry script.
func (m *Manifest) EntryPath() string {
	return filepath.Join(m.Dir, m.Build.Entry)
}

// OutputPath returns the absolute path of the compiled bytecode output.
func (m *Manifest) OutputPath() string {
	return filepath.Join(m.Dir, m.Build.Output)
}

// StorePath returns the absolute path of the artifact store.
func (m *Manifest) StorePath() string {
	return filepath.Join(m.Dir, m.Build.Store)
}
