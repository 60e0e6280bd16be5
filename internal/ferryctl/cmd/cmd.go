package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/kiosk404/ferry/internal/ferryctl/cmd/doctor"
	"github.com/kiosk404/ferry/internal/ferryctl/cmd/enable"
	"github.com/kiosk404/ferry/internal/ferryctl/cmd/info"
	"github.com/kiosk404/ferry/internal/ferryctl/cmd/install"
	"github.com/kiosk404/ferry/internal/ferryctl/cmd/list"
	cmdutil "github.com/kiosk404/ferry/internal/ferryctl/cmd/util"
	genericoptions "github.com/kiosk404/ferry/internal/pkg/options"
	"github.com/kiosk404/ferry/pkg/cli/genericclioptions"
	"github.com/kiosk404/ferry/pkg/utils/cliflag"
	"github.com/spf13/cobra"
)

// NewDefaultFerryCtlCommand creates the `ferryctl` command with default arguments.
func NewDefaultFerryCtlCommand() *cobra.Command {
	return NewFerryCtlCommand(os.Stdin, os.Stdout, os.Stderr)
}

// NewFerryCtlCommand creates the `ferryctl` command and its nested children.
func NewFerryCtlCommand(in io.Reader, out, err io.Writer) *cobra.Command {
	opts := genericoptions.NewPluginsOptions()

	// Parent command to which all subcommands are added.
	cmds := &cobra.Command{
		Use:   "ferryctl",
		Short: "ferryctl manages the plugins of a ferry gateway",
		Long: fmt.Sprintf("%s\n%s", Banner(), heredoc.Doc(`
			ferryctl works directly on the plugin roots and the enablement config
			of a ferry gateway. A gateway started with --plugins.watch picks up
			enable and disable right away.`)),
		Run: runHelp,
		PersistentPreRun: func(*cobra.Command, []string) {
			opts.Complete()
		},
		SilenceUsage: true,
	}
	flags := cmds.PersistentFlags()
	flags.SetNormalizeFunc(cliflag.WordSepNormalizeFunc)
	opts.AddFlags(flags)

	ioStreams := genericclioptions.IOStreams{In: in, Out: out, ErrOut: err}
	cmds.SetOut(out)
	cmds.SetErr(err)
	f := cmdutil.NewFactory(opts)

	cmds.AddGroup(
		&cobra.Group{ID: "basic", Title: "Basic Commands:"},
		&cobra.Group{ID: "diagnostic", Title: "Diagnostic Commands:"},
	)
	for _, c := range []*cobra.Command{
		list.NewCmdList(f, ioStreams),
		info.NewCmdInfo(f, ioStreams),
		enable.NewCmdEnable(f, ioStreams),
		enable.NewCmdDisable(f, ioStreams),
		install.NewCmdInstall(f, ioStreams),
	} {
		c.GroupID = "basic"
		cmds.AddCommand(c)
	}
	d := doctor.NewCmdDoctor(f, ioStreams)
	d.GroupID = "diagnostic"
	cmds.AddCommand(d)

	return cmds
}

func runHelp(cmd *cobra.Command, args []string) {
	_ = cmd.Help()
}
