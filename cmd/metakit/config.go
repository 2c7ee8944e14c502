package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config mirrors metakit.toml. Flags set on the command line win over the
// file.
type Config struct {
	Snapshot string `toml:"snapshot"`
	Index    string `toml:"index"`
	Format   string `toml:"format"`
}

// applyConfig loads metakit.toml and fills in any flag the user left at its
// default. Missing config files are not an error unless --config named one
// explicitly.
func applyConfig() error {
	path := flagConfig
	if path == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("getting cwd: %w", err)
		}
		path = findConfig(cwd)
		if path == "" {
			return nil
		}
	}

	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if flagConfig == "" && os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config %s: %w", path, err)
	}

	base := filepath.Dir(path)
	if flagSnapshot == "" && cfg.Snapshot != "" {
		flagSnapshot = relativeTo(base, cfg.Snapshot)
	}
	if flagDB == "" && cfg.Index != "" {
		flagDB = relativeTo(base, cfg.Index)
	}
	if flagFormat == "json" && cfg.Format != "" {
		flagFormat = cfg.Format
	}
	return nil
}

// findConfig walks up from startDir looking for metakit.toml. Returns the
// file path, or empty when no ancestor carries one.
func findConfig(startDir string) string {
	dir := startDir
	for {
		candidate := filepath.Join(dir, "metakit.toml")
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// relativeTo anchors a config-file path at the config's own directory.
func relativeTo(base, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}
