package manifest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// LockFile records the digests of the last successful weave per target.
type LockFile struct {
	Woven []LockedTarget `toml:"woven"`
}

// LockedTarget is one woven target method.
type LockedTarget struct {
	Target string `toml:"target"`
	Host   string `toml:"host"`
	// Input is the weave input digest, Output the digest of the generated
	// methods.
	Input  string `toml:"input"`
	Output string `toml:"output"`
}

// ReadLock reads a lock file. A missing file yields nil, nil.
func ReadLock(path string) (*LockFile, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var lf LockFile
	if err := toml.Unmarshal(data, &lf); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	return &lf, nil
}

// WriteLock writes lf to path, creating the parent directory.
func WriteLock(path string, lf *LockFile) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	var buf bytes.Buffer
	buf.WriteString("# Generated by weave. Do not edit.\n\n")
	if err := toml.NewEncoder(&buf).Encode(lf); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

// FindLocked returns the entry for target in host, or nil.
func (lf *LockFile) FindLocked(target, host string) *LockedTarget {
	if lf == nil {
		return nil
	}
	for i := range lf.Woven {
		if lf.Woven[i].Target == target && lf.Woven[i].Host == host {
			return &lf.Woven[i]
		}
	}
	return nil
}

// Set replaces or appends the entry for e.Target in e.Host.
func (lf *LockFile) Set(e LockedTarget) {
	if cur := lf.FindLocked(e.Target, e.Host); cur != nil {
		*cur = e
		return
	}
	lf.Woven = append(lf.Woven, e)
}
