package util

import (
	"github.com/kiosk404/ferry/internal/ferry/service/plugin"
	"github.com/kiosk404/ferry/internal/ferry/service/plugin/builtin"
	"github.com/kiosk404/ferry/internal/ferry/service/plugin/script"
	genericoptions "github.com/kiosk404/ferry/internal/pkg/options"
)

// Factory gives commands access to the plugin directories and the
// enablement config described by the global flags.
type Factory interface {
	Options() *genericoptions.PluginsOptions
	Roots() []plugin.Root
	Discover() []*plugin.Instance
	Store() (plugin.ConfigStore, error)
	Loader() plugin.Loader
	BuiltinNames() []string
}

type defaultFactory struct {
	opts *genericoptions.PluginsOptions
}

// NewFactory returns a factory reading opts. Options are read at call time,
// so flags parsed after construction are honoured.
func NewFactory(opts *genericoptions.PluginsOptions) Factory {
	return &defaultFactory{opts: opts}
}

func (f *defaultFactory) Options() *genericoptions.PluginsOptions { return f.opts }

func (f *defaultFactory) Roots() []plugin.Root {
	return plugin.SearchRoots(f.opts.BundledDir, f.opts.InstalledDir, f.opts.ExtraPaths)
}

func (f *defaultFactory) Discover() []*plugin.Instance {
	return plugin.Discover(f.Roots())
}

func (f *defaultFactory) Store() (plugin.ConfigStore, error) {
	if f.opts.ConfigStore == genericoptions.ConfigStoreBoltDB {
		return plugin.OpenBoltConfigStore(f.opts.BoltDBPath)
	}
	return plugin.NewFileConfigStore(f.opts.ConfigFile), nil
}

func (f *defaultFactory) Loader() plugin.Loader {
	return plugin.NewSchemeLoader().
		Handle(plugin.SchemeBuiltin, builtin.NewInTreeRegistry()).
		Handle(script.Scheme, script.NewLoader())
}

func (f *defaultFactory) BuiltinNames() []string {
	return builtin.NewInTreeRegistry().Names()
}

// Find returns the discovered plugin with id.
func Find(f Factory, id string) (*plugin.Instance, bool) {
	for _, inst := range f.Discover() {
		if inst.ID() == id {
			return inst, true
		}
	}
	return nil, false
}
