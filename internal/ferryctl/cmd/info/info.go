package info

import (
	"fmt"
	"sort"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/gosuri/uitable"
	"github.com/kiosk404/ferry/internal/ferryctl/cmd/util"
	"github.com/kiosk404/ferry/pkg/cli/genericclioptions"
	"github.com/kiosk404/ferry/pkg/utils/json"
	"github.com/mitchellh/go-wordwrap"
	"github.com/spf13/cobra"
)

const wrapWidth = 72

// InfoOptions is an options struct to support the info command.
type InfoOptions struct {
	ID      string
	Factory util.Factory
	genericclioptions.IOStreams
}

// NewInfoOptions returns an initialized InfoOptions instance.
func NewInfoOptions(f util.Factory, ioStreams genericclioptions.IOStreams) *InfoOptions {
	return &InfoOptions{Factory: f, IOStreams: ioStreams}
}

// NewCmdInfo returns new initialized instance of info sub command.
func NewCmdInfo(f util.Factory, ioStreams genericclioptions.IOStreams) *cobra.Command {
	o := NewInfoOptions(f, ioStreams)

	cmd := &cobra.Command{
		Use:                   "info PLUGIN_ID",
		DisableFlagsInUseLine: true,
		Short:                 "Show a plugin's manifest, config schema and stored config",
		Example: heredoc.Doc(`
			# Show the yunzhijia channel plugin
			ferryctl info yunzhijia`),
		Run: func(cmd *cobra.Command, args []string) {
			util.CheckErr(o.Complete(cmd, args))
			util.CheckErr(o.Run())
		},
	}
	return cmd
}

// Complete takes the plugin id from the arguments.
func (o *InfoOptions) Complete(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return util.UsageErrorf(cmd.CommandPath(), "exactly one PLUGIN_ID is required")
	}
	o.ID = args[0]
	return nil
}

// Run executes the info command.
func (o *InfoOptions) Run() error {
	inst, ok := util.Find(o.Factory, o.ID)
	if !ok {
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

	m := inst.Manifest()
	status := "disabled"
	if cfg.IsEnabled(o.ID) {
		status = "enabled"
	}

	table := uitable.New()
	table.Wrap = true
	table.AddRow("ID:", m.ID)
	table.AddRow("Name:", m.Name)
	table.AddRow("Version:", m.Version)
	table.AddRow("Type:", m.Type)
	table.AddRow("Source:", inst.Source())
	table.AddRow("Status:", util.Status(status))
	table.AddRow("Entry:", m.EntryRef)
	table.AddRow("Path:", inst.Path())
	fmt.Fprintln(o.Out, table)

	if m.Description != "" {
		fmt.Fprintf(o.Out, "\n%s\n", wordwrap.WrapString(m.Description, wrapWidth))
	}

	if s := m.ConfigSchema; s != nil && len(s.Properties) > 0 {
		required := make(map[string]bool, len(s.Required))
		for _, name := range s.Required {
			required[name] = true
		}
		names := make([]string, 0, len(s.Properties))
		for name := range s.Properties {
			names = append(names, name)
		}
		sort.Strings(names)

		props := uitable.New()
		props.MaxColWidth = 50
		props.Wrap = true
		props.AddRow("KEY", "TYPE", "DEFAULT", "REQUIRED", "DESCRIPTION")
		for _, name := range names {
			p := s.Properties[name]
			def := ""
			if p.Default != nil {
				def = fmt.Sprint(p.Default)
			}
			props.AddRow(name, p.Type, def, required[name], p.Description)
		}
		fmt.Fprintf(o.Out, "\nConfig schema:\n%s\n", props)
	}

	stored := cfg.PluginConfig(o.ID)
	if len(stored) > 0 {
		data, err := json.MarshalIndent(stored, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintf(o.Out, "\nStored config:\n%s\n", indent(string(data)))
	}
	return nil
}

func indent(s string) string {
	return "  " + strings.ReplaceAll(s, "\n", "\n  ")
}
