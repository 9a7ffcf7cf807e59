// Package manifest handles spdr.toml run configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Manifest represents a spdr.toml run configuration.
type Manifest struct {
	Program Program `toml:"program"`
	Engine  Engine  `toml:"engine"`

	// Dir is the directory containing the spdr.toml file (set at load time).
	Dir string `toml:"-"`
}

// Program locates the bytecode file to operate on.
type Program struct {
	Path string `toml:"path"`
}

// Engine configures execution.
type Engine struct {
	Trace    bool   `toml:"trace"`
	MaxSteps uint64 `toml:"max-steps"`
}

// Load parses a spdr.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, "spdr.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	// Defaults
	if m.Program.Path == "" {
		m.Program.Path = "main.spdr"
	}

	return &m, nil
}

// FindAndLoad walks up from startDir to find a spdr.toml file, then loads and
// returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, "spdr.toml")
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

// ProgramPath returns the absolute path of the configured bytecode file.
func (m *Manifest) ProgramPath() string {
	if filepath.IsAbs(m.Program.Path) {
		return m.Program.Path
	}
	return filepath.Join(m.Dir, m.Program.Path)
}
