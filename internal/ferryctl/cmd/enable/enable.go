package enable

import (
	"fmt"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/fatih/color"
	"github.com/kiosk404/ferry/internal/ferryctl/cmd/util"
	"github.com/kiosk404/ferry/pkg/cli/genericclioptions"
	"github.com/spf13/cobra"
)

// EnableOptions supports the enable and disable commands.
type EnableOptions struct {
	ID      string
	Enable  bool
	Factory util.Factory
	genericclioptions.IOStreams
}

// NewCmdEnable returns the enable sub command.
func NewCmdEnable(f util.Factory, ioStreams genericclioptions.IOStreams) *cobra.Command {
	return newCmd(f, ioStreams, true)
}

// NewCmdDisable returns the disable sub command.
func NewCmdDisable(f util.Factory, ioStreams genericclioptions.IOStreams) *cobra.Command {
	return newCmd(f, ioStreams, false)
}

func newCmd(f util.Factory, ioStreams genericclioptions.IOStreams, enable bool) *cobra.Command {
	o := &EnableOptions{Enable: enable, Factory: f, IOStreams: ioStreams}

	verb := "disable"
	short := "Remove a plugin from the enabled list"
	if enable {
		verb = "enable"
		short = "Add a plugin to the enabled list"
	}

	return &cobra.Command{
		Use:                   verb + " PLUGIN_ID",
		DisableFlagsInUseLine: true,
		Short:                 short,
		Long: heredoc.Docf(`
			%s.

			The change is written to the enablement config. A running gateway
			watching the config file applies it right away; otherwise it takes
			effect on the next start.`, short),
		Example: fmt.Sprintf("  ferryctl %s yunzhijia", verb),
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				util.CheckErr(util.UsageErrorf(cmd.CommandPath(), "exactly one PLUGIN_ID is required"))
				return
			}
			o.ID = args[0]
			util.CheckErr(o.Run())
		},
	}
}

// Run executes the command.
func (o *EnableOptions) Run() error {
	if _, ok := util.Find(o.Factory, o.ID); !ok {
		return fmt.Errorf("plugin %q not found", o.ID)
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
	if !cfg.SetEnabled(o.ID, o.Enable) {
		fmt.Fprintf(o.Out, "plugin %q is already %s\n", o.ID, state(o.Enable))
		return nil
	}
	if err := store.Save(cfg); err != nil {
		return err
	}
	fmt.Fprintf(o.Out, "%s plugin %q %s\n", color.GreenString("✔"), o.ID, state(o.Enable))
	return nil
}

func state(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}
