package install

import (
	"fmt"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/fatih/color"
	"github.com/kiosk404/ferry/internal/ferry/service/plugin"
	"github.com/kiosk404/ferry/internal/ferryctl/cmd/util"
	"github.com/kiosk404/ferry/pkg/cli/genericclioptions"
	"github.com/spf13/cobra"
)

// InstallOptions is an options struct to support the install command.
type InstallOptions struct {
	Path    string
	Enable  bool
	Factory util.Factory
	genericclioptions.IOStreams
}

// NewCmdInstall returns new initialized instance of install sub command.
func NewCmdInstall(f util.Factory, ioStreams genericclioptions.IOStreams) *cobra.Command {
	o := &InstallOptions{Factory: f, IOStreams: ioStreams}

	cmd := &cobra.Command{
		Use:                   "install PATH",
		DisableFlagsInUseLine: true,
		Short:                 "Copy a plugin directory into the installed plugin root",
		Long: heredoc.Doc(`
			Validate the manifest of the plugin at PATH and copy the directory to
			<installed-dir>/<id>. A plugin whose id is already known, in any root,
			is refused.`),
		Example: heredoc.Doc(`
			# Install and enable a Lua hook plugin
			ferryctl install ./prompt-prefix --enable`),
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				util.CheckErr(util.UsageErrorf(cmd.CommandPath(), "exactly one PATH is required"))
				return
			}
			o.Path = args[0]
			util.CheckErr(o.Run())
		},
	}
	cmd.Flags().BoolVar(&o.Enable, "enable", o.Enable, "Also add the plugin to the enabled list.")
	return cmd
}

// Run executes the install command.
func (o *InstallOptions) Run() error {
	candidate, err := plugin.DiscoverSingle(o.Path, plugin.SourceInstalled)
	if err != nil {
		return err
	}
	if existing, ok := util.Find(o.Factory, candidate.ID()); ok {
		return fmt.Errorf("%w: %s at %s", plugin.ErrPluginExists, candidate.ID(), existing.Path())
	}

	inst, err := plugin.InstallTree(candidate.Path(), o.Factory.Options().InstalledDir)
	if err != nil {
		return err
	}
	fmt.Fprintf(o.Out, "%s installed %q %s into %s\n", color.GreenString("✔"), inst.ID(), inst.Manifest().Version, inst.Path())

	if !o.Enable {
		return nil
	}
	store, err := o.Factory.Store()
	if err != nil {
		return err
	}
	defer store.Close()
	cfg, err := store.Load()
	if err != nil {
		return err
	}
	if cfg.SetEnabled(inst.ID(), true) {
		if err := store.Save(cfg); err != nil {
			return err
		}
	}
	fmt.Fprintf(o.Out, "%s plugin %q enabled\n", color.GreenString("✔"), inst.ID())
	return nil
}
