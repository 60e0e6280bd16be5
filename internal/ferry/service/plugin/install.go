package plugin

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// copyPluginTree copies the plugin directory src to dst. dst must not exist.
func copyPluginTree(src, dst string) error {
	if _, err := os.Stat(dst); err == nil {
		return fmt.Errorf("%w: %s already exists", ErrPluginExists, dst)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.CopyFS(dst, os.DirFS(src)); err != nil {
		_ = os.RemoveAll(dst)
		return fmt.Errorf("copy %s to %s: %w", src, dst, err)
	}
	return nil
}

// InstallTree copies the plugin at srcPath to installedDir/<id> and returns
// the installed instance, not yet registered.
func InstallTree(srcPath, installedDir string) (*Instance, error) {
	candidate, err := DiscoverSingle(srcPath, SourceInstalled)
	if err != nil {
		return nil, err
	}
	dst := filepath.Join(installedDir, candidate.ID())
	if err := copyPluginTree(candidate.Path(), dst); err != nil {
		return nil, err
	}
	return DiscoverSingle(dst, SourceInstalled)
}
