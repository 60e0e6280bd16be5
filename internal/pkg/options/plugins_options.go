package options

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
)

const (
	// ConfigStoreFile keeps the enablement config in a JSON file.
	ConfigStoreFile = "file"
	// ConfigStoreBoltDB keeps the enablement config in a bolt bucket.
	ConfigStoreBoltDB = "boltdb"

	pluginPathsEnv = "FERRY_PLUGIN_PATHS"
)

// PluginsOptions holds the top-level configuration for the plugin system.
type PluginsOptions struct {
	// Enabled controls whether plugins are loaded at all. (default: true)
	Enabled bool `json:"enabled" mapstructure:"enabled"`
	// BundledDir holds plugins shipped with the binary.
	BundledDir string `json:"bundled-dir" mapstructure:"bundled-dir"`
	// InstalledDir is the managed root install copies plugins into.
	InstalledDir string `json:"installed-dir" mapstructure:"installed-dir"`
	// ExtraPaths are additional external roots, scanned after bundled and installed.
	ExtraPaths []string `json:"extra-paths" mapstructure:"extra-paths"`
	// ConfigFile is the enablement config, {"enabled": [...], "plugins": {...}}.
	ConfigFile string `json:"config-file" mapstructure:"config-file"`
	// ConfigStore selects the enablement config backend: "file" or "boltdb".
	ConfigStore string `json:"config-store" mapstructure:"config-store"`
	// BoltDBPath is the database used when ConfigStore is "boltdb".
	BoltDBPath string `json:"boltdb-path" mapstructure:"boltdb-path"`
	// Watch reconciles running plugins when the config file changes on disk.
	Watch bool `json:"watch" mapstructure:"watch"`
}

// NewPluginsOptions returns a new instance of PluginsOptions.
func NewPluginsOptions() *PluginsOptions {
	return &PluginsOptions{
		Enabled:      true,
		BundledDir:   filepath.Join("plugins", "bundled"),
		InstalledDir: filepath.Join("plugins", "installed"),
		ExtraPaths:   []string{},
		ConfigFile:   filepath.Join("plugins", "config.json"),
		ConfigStore:  ConfigStoreFile,
		BoltDBPath:   filepath.Join("data", "ferry.db"),
		Watch:        true,
	}
}

// Complete merges roots from FERRY_PLUGIN_PATHS (os.PathListSeparator separated).
func (o *PluginsOptions) Complete() {
	if env := os.Getenv(pluginPathsEnv); env != "" {
		for _, p := range filepath.SplitList(env) {
			if p = strings.TrimSpace(p); p != "" {
				o.ExtraPaths = append(o.ExtraPaths, p)
			}
		}
	}
}

// Validate checks PluginsOptions fields.
func (o *PluginsOptions) Validate() []error {
	var errs []error

	switch o.ConfigStore {
	case ConfigStoreFile:
		if o.ConfigFile == "" {
			errs = append(errs, fmt.Errorf("--plugins.config-file must be set when config-store is %q", ConfigStoreFile))
		}
	case ConfigStoreBoltDB:
		if o.BoltDBPath == "" {
			errs = append(errs, fmt.Errorf("--plugins.boltdb-path must be set when config-store is %q", ConfigStoreBoltDB))
		}
	default:
		errs = append(errs, fmt.Errorf("--plugins.config-store %q must be %q or %q", o.ConfigStore, ConfigStoreFile, ConfigStoreBoltDB))
	}
	if o.InstalledDir == "" {
		errs = append(errs, fmt.Errorf("--plugins.installed-dir must not be empty"))
	}

	return errs
}

// AddFlags adds flags for the plugins options.
// Per-plugin configuration lives in the enablement config, not in flags.
func (o *PluginsOptions) AddFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&o.Enabled, "plugins.enabled", o.Enabled, "Enable the plugin system.")
	fs.StringVar(&o.BundledDir, "plugins.bundled-dir", o.BundledDir, "Directory of bundled plugins.")
	fs.StringVar(&o.InstalledDir, "plugins.installed-dir", o.InstalledDir, "Directory plugins are installed into.")
	fs.StringSliceVar(&o.ExtraPaths, "plugins.extra-paths", o.ExtraPaths, "Additional external plugin roots. Also read from "+pluginPathsEnv+".")
	fs.StringVar(&o.ConfigFile, "plugins.config-file", o.ConfigFile, "Enablement config file.")
	fs.StringVar(&o.ConfigStore, "plugins.config-store", o.ConfigStore, "Enablement config backend: file or boltdb.")
	fs.StringVar(&o.BoltDBPath, "plugins.boltdb-path", o.BoltDBPath, "BoltDB file used by the boltdb config store.")
	fs.BoolVar(&o.Watch, "plugins.watch", o.Watch, "Reconcile plugins when the enablement config file changes.")
}
