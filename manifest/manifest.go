// Package manifest handles weave.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is the manifest file looked up in a project directory.
const FileName = "weave.toml"

// Manifest represents a weave.toml project configuration.
type Manifest struct {
	Project Project   `toml:"project"`
	Source  Source    `toml:"source"`
	Naming  Naming    `toml:"naming"`
	Cache   Cache     `toml:"cache"`
	Log     Log       `toml:"log"`
	Weave   []Binding `toml:"weave"`

	// Dir is the directory containing the weave.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// Source configures source file locations.
type Source struct {
	Dirs []string `toml:"dirs"`
	// Ext is the assembler source extension.
	Ext string `toml:"ext"`
	// Output is the woven class file written by the CLI, relative to Dir.
	Output string `toml:"output"`
}

// Naming overrides the naming conventions of generated code. Empty fields
// keep the defaults.
type Naming struct {
	ProxySuffix     string `toml:"proxy-suffix"`
	MemberSeparator string `toml:"member-separator"`
	Marker          string `toml:"marker"`
	// HostSuffix names generated host classes: <target class><suffix>.
	HostSuffix string `toml:"host-suffix"`
}

// Cache configures the weave cache.
type Cache struct {
	Path     string `toml:"path"`
	Disabled bool   `toml:"disabled"`
}

// Log configures logging.
type Log struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Binding names one target method and the aspects woven around it,
// outermost first. References use internal class names:
// "demo/Service.greet" or "demo/Service.greet(Ljava/lang/String;)Ljava/lang/String;".
type Binding struct {
	Target  string   `toml:"target"`
	Host    string   `toml:"host"`
	Aspects []string `toml:"aspects"`
}

// Defaults applied after decoding.
const (
	DefaultSourceDir  = "src"
	DefaultSourceExt  = ".jasm"
	DefaultOutput     = "woven.cbor"
	DefaultHostSuffix = "$$Proxy"
)

// Load parses a weave.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	return m, nil
}

// Parse decodes manifest text and applies defaults. Dir is left empty.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	md, err := toml.Decode(string(data), &m)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown key %s", undecoded[0])
	}

	// Defaults
	if len(m.Source.Dirs) == 0 {
		m.Source.Dirs = []string{DefaultSourceDir}
	}
	if m.Source.Ext == "" {
		m.Source.Ext = DefaultSourceExt
	}
	if m.Source.Output == "" {
		m.Source.Output = DefaultOutput
	}
	if m.Naming.HostSuffix == "" {
		m.Naming.HostSuffix = DefaultHostSuffix
	}
	if m.Cache.Path == "" {
		m.Cache.Path = filepath.Join(".weave", "cache.db")
	}

	for i, b := range m.Weave {
		if b.Target == "" {
			return nil, fmt.Errorf("weave entry %d: missing target", i+1)
		}
	}
	return &m, nil
}

// FindAndLoad walks up from startDir to find a weave.toml file,
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
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// SourceDirPaths returns absolute paths for the configured source directories.
func (m *Manifest) SourceDirPaths() []string {
	var paths []string
	for _, d := range m.Source.Dirs {
		paths = append(paths, m.path(d))
	}
	return paths
}

// SourceFiles lists the assembler sources under the source directories in
// lexical order per directory. Missing directories are skipped.
func (m *Manifest) SourceFiles() ([]string, error) {
	var files []string
	for _, dir := range m.SourceDirPaths() {
		err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				if os.IsNotExist(err) && path == dir {
					return filepath.SkipDir
				}
				return err
			}
			if !d.IsDir() && filepath.Ext(path) == m.Source.Ext {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", dir, err)
		}
	}
	return files, nil
}

// OutputPath returns the path of the woven output file.
func (m *Manifest) OutputPath() string {
	return m.path(m.Source.Output)
}

// CachePath returns the path of the weave cache database.
func (m *Manifest) CachePath() string {
	return m.path(m.Cache.Path)
}

// LockFilePath returns the path to .weave/lock.toml.
func (m *Manifest) LockFilePath() string {
	return filepath.Join(m.Dir, ".weave", "lock.toml")
}

func (m *Manifest) path(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Dir, p)
}
