package script

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kiosk404/ferry/internal/ferry/service/plugin"
)

// Scheme is the entry reference scheme handled by Loader: "lua:<file>:<function>".
const Scheme = "lua"

// Loader resolves Lua entry points relative to the plugin directory.
type Loader struct{}

var _ plugin.Loader = (*Loader)(nil)

// NewLoader returns a Lua loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Resolve runs the script once in a throwaway state to check that it
// compiles and that the entry function exists. Registration runs the script
// again in the state the plugin keeps.
func (l *Loader) Resolve(target string, inst *plugin.Instance) (plugin.EntryFunc, error) {
	file, fn, ok := strings.Cut(target, ":")
	if !ok || file == "" || fn == "" {
		return nil, fmt.Errorf("lua entry %q must have the form <file>:<function>", target)
	}
	path, err := scriptPath(inst.Path(), file)
	if err != nil {
		return nil, err
	}

	probe := newState()
	defer probe.close()
	if err := probe.doFile(path); err != nil {
		return nil, fmt.Errorf("run %s: %w", file, err)
	}
	if _, ok := probe.function(fn); !ok {
		return nil, fmt.Errorf("%s does not define function %q", file, fn)
	}

	return func(api plugin.PluginAPI) (interface{}, error) {
		return open(path, fn, api)
	}, nil
}

// scriptPath joins file to dir and refuses paths leaving dir.
func scriptPath(dir, file string) (string, error) {
	if filepath.IsAbs(file) {
		return "", fmt.Errorf("lua script %q must be relative to the plugin directory", file)
	}
	path := filepath.Join(dir, file)
	rel, err := filepath.Rel(dir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("lua script %q escapes the plugin directory", file)
	}
	if _, err := os.Stat(path); err != nil {
		return "", err
	}
	return path, nil
}
