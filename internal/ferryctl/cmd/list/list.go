package list

import (
	"fmt"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/gosuri/uitable"
	"github.com/kiosk404/ferry/internal/ferryctl/cmd/util"
	"github.com/kiosk404/ferry/pkg/cli/genericclioptions"
	"github.com/spf13/cobra"
)

var listExample = heredoc.Doc(`
	# List every discovered plugin
	ferryctl list

	# Only channel plugins
	ferryctl list --type=channel`)

// ListOptions is an options struct to support the list command.
type ListOptions struct {
	Type    string
	Factory util.Factory
	genericclioptions.IOStreams
}

// NewListOptions returns an initialized ListOptions instance.
func NewListOptions(f util.Factory, ioStreams genericclioptions.IOStreams) *ListOptions {
	return &ListOptions{Factory: f, IOStreams: ioStreams}
}

// NewCmdList returns new initialized instance of list sub command.
func NewCmdList(f util.Factory, ioStreams genericclioptions.IOStreams) *cobra.Command {
	o := NewListOptions(f, ioStreams)

	cmd := &cobra.Command{
		Use:                   "list",
		DisableFlagsInUseLine: true,
		Aliases:               []string{"ls"},
		Short:                 "List discovered plugins and whether they are enabled",
		Long: heredoc.Doc(`
			Scan the bundled, installed and external plugin roots and print every
			valid plugin. Plugins shadowed by an earlier root are not listed.`),
		Example: listExample,
		Args:    cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			util.CheckErr(o.Run())
		},
	}
	cmd.Flags().StringVar(&o.Type, "type", o.Type, "Only list plugins of this type: channel, hook or tool.")
	return cmd
}

// Run executes the list command.
func (o *ListOptions) Run() error {
	store, err := o.Factory.Store()
	if err != nil {
		return err
	}
	defer store.Close()
	cfg, err := store.Load()
	if err != nil {
		return err
	}

	table := uitable.New()
	table.MaxColWidth = 60
	table.AddRow("ID", "NAME", "VERSION", "TYPE", "SOURCE", "STATUS", "PATH")
	n := 0
	for _, inst := range o.Factory.Discover() {
		m := inst.Manifest()
		if o.Type != "" && string(m.Type) != o.Type {
			continue
		}
		status := "disabled"
		if cfg.IsEnabled(inst.ID()) {
			status = "enabled"
		}
		table.AddRow(inst.ID(), m.Name, m.Version, m.Type, inst.Source(), util.Status(status), inst.Path())
		n++
	}
	if n == 0 {
		fmt.Fprintln(o.Out, "No plugins found.")
		return nil
	}
	fmt.Fprintln(o.Out, table)
	return nil
}
