// Package app builds a cobra root command wired to named pflag sets, a viper
// configuration file, environment variables and an optional .env file.
package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/kiosk404/ferry/pkg/logger"
	"github.com/kiosk404/ferry/pkg/utils/cliflag"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var progressMessage = color.GreenString("==>")

// CliOptions abstracts configuration options for reading parameters from the command line.
type CliOptions interface {
	Flags() (fss cliflag.NamedFlagSets)
	Validate() []error
}

// CompleteableOptions abstracts options which can be completed.
type CompleteableOptions interface {
	Complete() error
}

// PrintableOptions abstracts options which can be printed.
type PrintableOptions interface {
	String() string
}

// RunFunc defines the application's startup callback function.
type RunFunc func(basename string) error

// App is the main structure of a cli application.
type App struct {
	basename    string
	name        string
	description string
	envPrefix   string
	options     CliOptions
	runFunc     RunFunc
	noConfig    bool
	args        cobra.PositionalArgs
	cmd         *cobra.Command
}

// Option defines optional parameters for initializing the application structure.
type Option func(*App)

// WithOptions opens the application's function to read from the command line
// or read parameters from the configuration file.
func WithOptions(opt CliOptions) Option {
	return func(a *App) {
		a.options = opt
	}
}

// WithRunFunc is used to set the application startup callback function option.
func WithRunFunc(run RunFunc) Option {
	return func(a *App) {
		a.runFunc = run
	}
}

// WithDescription is used to set the description of the application.
func WithDescription(desc string) Option {
	return func(a *App) {
		a.description = desc
	}
}

// WithEnvPrefix sets the prefix of environment variables bound by viper.
func WithEnvPrefix(prefix string) Option {
	return func(a *App) {
		a.envPrefix = prefix
	}
}

// WithNoConfig disables the --config flag.
func WithNoConfig() Option {
	return func(a *App) {
		a.noConfig = true
	}
}

// WithDefaultValidArgs rejects any positional argument.
func WithDefaultValidArgs() Option {
	return func(a *App) {
		a.args = func(cmd *cobra.Command, args []string) error {
			for _, arg := range args {
				if len(arg) > 0 {
					return fmt.Errorf("%q does not take any arguments, got %q", cmd.CommandPath(), args)
				}
			}
			return nil
		}
	}
}

// NewApp creates a new application instance based on the given application name,
// binary name, and other options.
func NewApp(name string, basename string, opts ...Option) *App {
	a := &App{
		name:     name,
		basename: basename,
	}
	for _, o := range opts {
		o(a)
	}
	if a.envPrefix == "" {
		a.envPrefix = strings.ToUpper(strings.ReplaceAll(basename, "-", "_"))
	}
	a.buildCommand()
	return a
}

func (a *App) buildCommand() {
	cmd := cobra.Command{
		Use:           a.basename,
		Short:         a.name,
		Long:          a.description,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          a.args,
	}
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)
	cmd.Flags().SortFlags = true
	cmd.Flags().SetNormalizeFunc(cliflag.WordSepNormalizeFunc)

	var namedFlagSets cliflag.NamedFlagSets
	if a.options != nil {
		namedFlagSets = a.options.Flags()
		fs := cmd.Flags()
		for _, f := range namedFlagSets.FlagSets {
			fs.AddFlagSet(f)
		}
	}
	if !a.noConfig {
		addConfigFlag(a.basename, a.envPrefix, namedFlagSets.FlagSet("global"))
		cmd.Flags().AddFlagSet(namedFlagSets.FlagSet("global"))
	}

	if a.runFunc != nil {
		cmd.RunE = a.runCommand
	}

	usageFmt := "Usage:\n  %s\n"
	cmd.SetUsageFunc(func(cmd *cobra.Command) error {
		fmt.Fprintf(cmd.OutOrStderr(), usageFmt, cmd.UseLine())
		cliflag.PrintSections(cmd.OutOrStderr(), namedFlagSets, 0)
		return nil
	})
	cmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n\n"+usageFmt, cmd.Long, cmd.UseLine())
		cliflag.PrintSections(cmd.OutOrStdout(), namedFlagSets, 0)
	})

	a.cmd = &cmd
}

// Command returns the underlying cobra command.
func (a *App) Command() *cobra.Command {
	return a.cmd
}

// Run is used to launch the application.
func (a *App) Run() {
	if err := a.cmd.Execute(); err != nil {
		fmt.Printf("%v %v\n", color.RedString("Error:"), err)
		os.Exit(1)
	}
}

func (a *App) runCommand(cmd *cobra.Command, args []string) error {
	// .env is optional; values already in the environment win.
	_ = godotenv.Load()

	if !a.noConfig {
		if err := viper.BindPFlags(cmd.Flags()); err != nil {
			return err
		}
		if err := viper.Unmarshal(a.options); err != nil {
			return err
		}
	}

	if a.options != nil {
		if err := a.applyOptionRules(); err != nil {
			return err
		}
	}

	fmt.Printf("%v Starting %s ...\n", progressMessage, a.name)
	if a.runFunc != nil {
		return a.runFunc(a.basename)
	}
	return nil
}

func (a *App) applyOptionRules() error {
	if completeableOptions, ok := a.options.(CompleteableOptions); ok {
		if err := completeableOptions.Complete(); err != nil {
			return err
		}
	}

	if errs := a.options.Validate(); len(errs) != 0 {
		msgs := make([]string, 0, len(errs))
		for _, e := range errs {
			msgs = append(msgs, e.Error())
		}
		return fmt.Errorf("invalid options: %s", strings.Join(msgs, "; "))
	}

	if printableOptions, ok := a.options.(PrintableOptions); ok {
		logger.Debug("[App] config: %s", printableOptions.String())
	}
	return nil
}
