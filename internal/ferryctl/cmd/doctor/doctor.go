package doctor

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/gosuri/uitable"
	"github.com/kiosk404/ferry/internal/ferry/service/plugin"
	"github.com/kiosk404/ferry/internal/ferryctl/cmd/util"
	"github.com/kiosk404/ferry/pkg/cli/genericclioptions"
	"github.com/spf13/cobra"
)

// Result is one diagnostic outcome.
type Result struct {
	Check   string
	Status  string // pass, warn or fail
	Message string
}

// DoctorOptions is an options struct to support the doctor command.
type DoctorOptions struct {
	Factory util.Factory
	genericclioptions.IOStreams
}

// NewCmdDoctor returns new initialized instance of doctor sub command.
func NewCmdDoctor(f util.Factory, ioStreams genericclioptions.IOStreams) *cobra.Command {
	o := &DoctorOptions{Factory: f, IOStreams: ioStreams}

	return &cobra.Command{
		Use:                   "doctor",
		DisableFlagsInUseLine: true,
		Short:                 "Check plugin roots, manifests, entry points and the enablement config",
		Long: heredoc.Doc(`
			Run offline checks a gateway would otherwise only report at startup:
			missing plugin roots, invalid or shadowed manifests, entry references
			that cannot be resolved, and enabled ids that match no plugin.`),
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			results := o.Diagnose()
			util.CheckErr(o.Print(results))
		},
	}
}

// Diagnose runs every check.
func (o *DoctorOptions) Diagnose() []Result {
	var results []Result
	results = append(results, o.checkRoots()...)
	results = append(results, o.checkManifests()...)

	discovered := o.Factory.Discover()
	results = append(results, o.checkEntries(discovered)...)
	results = append(results, o.checkConfig(discovered)...)
	return results
}

func (o *DoctorOptions) checkRoots() []Result {
	var results []Result
	for _, root := range o.Factory.Roots() {
		name := fmt.Sprintf("root %s", root.Source)
		st, err := os.Stat(root.Dir)
		switch {
		case root.Dir == "":
			results = append(results, Result{name, "warn", "not configured"})
		case errors.Is(err, fs.ErrNotExist):
			results = append(results, Result{name, "warn", root.Dir + " does not exist"})
		case err != nil:
			results = append(results, Result{name, "fail", err.Error()})
		case !st.IsDir():
			results = append(results, Result{name, "fail", root.Dir + " is not a directory"})
		default:
			results = append(results, Result{name, "pass", root.Dir})
		}
	}
	return results
}

// checkManifests reports invalid manifests and shadowed ids, which discovery
// only logs.
func (o *DoctorOptions) checkManifests() []Result {
	var results []Result
	seen := make(map[string]string)
	for _, root := range o.Factory.Roots() {
		entries, err := os.ReadDir(root.Dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
				continue
			}
			dir := filepath.Join(root.Dir, e.Name())
			if _, err := os.Stat(filepath.Join(dir, plugin.ManifestFile)); err != nil {
				continue
			}
			inst, err := plugin.DiscoverSingle(dir, root.Source)
			if err != nil {
				results = append(results, Result{"manifest " + e.Name(), "fail", err.Error()})
				continue
			}
			if first, dup := seen[inst.ID()]; dup {
				results = append(results, Result{"manifest " + inst.ID(), "warn",
					fmt.Sprintf("%s is shadowed by %s", dir, first)})
				continue
			}
			seen[inst.ID()] = dir
		}
	}
	return results
}

func (o *DoctorOptions) checkEntries(discovered []*plugin.Instance) []Result {
	loader := o.Factory.Loader()
	results := make([]Result, 0, len(discovered))
	for _, inst := range discovered {
		name := "entry " + inst.ID()
		if _, err := loader.Resolve(inst.Manifest().EntryRef, inst); err != nil {
			results = append(results, Result{name, "fail", err.Error()})
			continue
		}
		results = append(results, Result{name, "pass", inst.Manifest().EntryRef})
	}
	return results
}

func (o *DoctorOptions) checkConfig(discovered []*plugin.Instance) []Result {
	store, err := o.Factory.Store()
	if err != nil {
		return []Result{{"config store", "fail", err.Error()}}
	}
	defer store.Close()
	cfg, err := store.Load()
	if err != nil {
		return []Result{{"config store", "fail", err.Error()}}
	}

	known := make(map[string]*plugin.Instance, len(discovered))
	for _, inst := range discovered {
		known[inst.ID()] = inst
	}

	results := []Result{{"config store", "pass", fmt.Sprintf("%d plugins enabled", len(cfg.Enabled))}}
	for _, id := range cfg.Enabled {
		inst, ok := known[id]
		if !ok {
			results = append(results, Result{"enabled " + id, "warn", "no plugin with this id was discovered"})
			continue
		}
		if schema := inst.Manifest().ConfigSchema; schema != nil {
			if _, err := schema.Resolve(cfg.PluginConfig(id)); err != nil {
				results = append(results, Result{"config " + id, "fail", err.Error()})
				continue
			}
		}
		results = append(results, Result{"enabled " + id, "pass", inst.Path()})
	}
	return results
}

// Print renders results and fails when any check failed.
func (o *DoctorOptions) Print(results []Result) error {
	table := uitable.New()
	table.MaxColWidth = 80
	table.Wrap = true
	table.AddRow("CHECK", "STATUS", "DETAIL")
	failed := 0
	for _, r := range results {
		if r.Status == "fail" {
			failed++
		}
		table.AddRow(r.Check, util.Status(r.Status), r.Message)
	}
	fmt.Fprintln(o.Out, table)
	if failed > 0 {
		return fmt.Errorf("%d checks failed", failed)
	}
	return nil
}
