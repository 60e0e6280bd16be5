package plugin

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/kiosk404/ferry/pkg/logger"
)

// Root is a directory whose immediate subdirectories are plugin candidates.
type Root struct {
	Dir    string
	Source Source
}

// SearchRoots returns the roots in precedence order: bundled, installed,
// then each external path.
func SearchRoots(bundled, installed string, external []string) []Root {
	roots := []Root{
		{Dir: bundled, Source: SourceBundled},
		{Dir: installed, Source: SourceInstalled},
	}
	for _, dir := range external {
		roots = append(roots, Root{Dir: dir, Source: SourceExternal})
	}
	return roots
}

// Discover scans roots in order and returns one instance per valid manifest.
// Invalid candidates are logged and skipped. When an id shows up twice the
// first one found wins.
func Discover(roots []Root) []*Instance {
	var (
		result []*Instance
		seen   = make(map[string]string)
	)

	for _, root := range roots {
		if root.Dir == "" {
			continue
		}
		entries, err := os.ReadDir(root.Dir)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				logger.Warn("[Discovery] cannot scan %s: %v", root.Dir, err)
			}
			continue
		}

		for _, e := range entries {
			if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
				continue
			}
			dir := filepath.Join(root.Dir, e.Name())
			if _, err := os.Stat(filepath.Join(dir, ManifestFile)); err != nil {
				logger.Debug("[Discovery] %s has no %s, skipped", dir, ManifestFile)
				continue
			}

			inst, err := DiscoverSingle(dir, root.Source)
			if err != nil {
				logger.Warn("[Discovery] skipping %s: %v", dir, err)
				continue
			}
			if first, dup := seen[inst.ID()]; dup {
				logger.Warn("[Discovery] plugin %q at %s shadowed by %s", inst.ID(), dir, first)
				continue
			}
			seen[inst.ID()] = dir
			result = append(result, inst)
			logger.Debug("[Discovery] found %q (%s) at %s", inst.ID(), root.Source, dir)
		}
	}
	return result
}

// DiscoverSingle validates one plugin directory.
func DiscoverSingle(path string, source Source) (*Instance, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPlugin, err)
	}
	st, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPlugin, err)
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrInvalidPlugin, abs)
	}

	m, err := LoadManifest(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPlugin, filepath.Join(abs, ManifestFile), err)
	}
	return NewInstance(m, abs, source), nil
}
