// Package manifest handles linkopt.toml configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/hashicorp/go-multierror"

	"github.com/chazu/linkopt/classfile"
	"github.com/chazu/linkopt/constprop"
	"github.com/chazu/linkopt/rewrite"
)

// FileName is the manifest file looked up by Load and FindAndLoad.
const FileName = "linkopt.toml"

// Manifest represents a linkopt.toml configuration.
type Manifest struct {
	Rewrite  RewriteConfig  `toml:"rewrite"`
	Analysis AnalysisConfig `toml:"analysis"`
	Report   ReportConfig   `toml:"report"`
	Targets  []Target       `toml:"target"`

	// Dir is the directory containing the linkopt.toml file (set at load time).
	Dir string `toml:"-"`
}

// RewriteConfig configures the Class.forName rewrite.
type RewriteConfig struct {
	Mode string `toml:"mode"`
}

// AnalysisConfig configures constant propagation.
type AnalysisConfig struct {
	MaxDepth        int  `toml:"max-depth"`
	Interprocedural bool `toml:"interprocedural"`
}

// ReportConfig configures the decision store.
type ReportConfig struct {
	Path string `toml:"path"`
}

// Default returns the configuration used when no linkopt.toml exists.
func Default() *Manifest {
	return &Manifest{
		Rewrite:  RewriteConfig{Mode: rewrite.ModeModule.String()},
		Analysis: AnalysisConfig{MaxDepth: constprop.DefaultMaxDepth, Interprocedural: true},
	}
}

// Load parses a linkopt.toml file from the given directory. Keys missing
// from the file keep their Default values.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	m := Default()
	if err := toml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	if _, err := m.Mode(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if m.Analysis.MaxDepth < 0 {
		return nil, fmt.Errorf("%s: max-depth must not be negative", path)
	}
	return m, nil
}

// FindAndLoad walks up from startDir to find a linkopt.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
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
			return nil, nil
		}
		dir = parent
	}
}

// Mode returns the configured rewrite mode.
func (m *Manifest) Mode() (rewrite.Mode, error) {
	return rewrite.ParseMode(m.Rewrite.Mode)
}

// ReportPath returns the report database path, resolved against Dir.
// It is empty when no report is configured.
func (m *Manifest) ReportPath() string {
	if m.Report.Path == "" || filepath.IsAbs(m.Report.Path) || m.Dir == "" {
		return m.Report.Path
	}
	return filepath.Join(m.Dir, m.Report.Path)
}

// EngineOptions returns the constprop options the manifest selects.
func (m *Manifest) EngineOptions() []constprop.Option {
	return []constprop.Option{
		constprop.WithMaxDepth(m.Analysis.MaxDepth),
		constprop.WithInterprocedural(m.Analysis.Interprocedural),
	}
}

// ApplyTargets declares every [[target]] in reg. All targets are tried;
// the errors of those that cannot be resolved against pool are returned
// together.
func (m *Manifest) ApplyTargets(reg *constprop.Registry, pool *classfile.Pool) error {
	var errs *multierror.Error
	for i := range m.Targets {
		if err := m.Targets[i].Apply(reg, pool); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("target %d: %w", i+1, err))
		}
	}
	return errs.ErrorOrNil()
}
