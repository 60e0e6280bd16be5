package options

import (
	genericoptions "github.com/kiosk404/ferry/internal/pkg/options"
	"github.com/kiosk404/ferry/internal/pkg/server"
	"github.com/kiosk404/ferry/pkg/utils/cliflag"
	"github.com/kiosk404/ferry/pkg/utils/json"
)

// Options is the flag and config file surface of the ferry gateway.
type Options struct {
	GenericServerRunOptions *genericoptions.ServerRunOptions `json:"serving" mapstructure:"serving"`
	PluginOptions           *genericoptions.PluginsOptions   `json:"plugins" mapstructure:"plugins"`
	AgentOptions            *genericoptions.AgentOptions     `json:"agent"   mapstructure:"agent"`
	LogOptions              *genericoptions.LogOptions       `json:"log"     mapstructure:"log"`
}

func (o *Options) Flags() (fss cliflag.NamedFlagSets) {
	o.GenericServerRunOptions.AddFlags(fss.FlagSet("generic"))
	o.PluginOptions.AddFlags(fss.FlagSet("plugins"))
	o.AgentOptions.AddFlags(fss.FlagSet("agent"))
	o.LogOptions.AddFlags(fss.FlagSet("log"))
	return fss
}

func NewOptions() *Options {
	return &Options{
		GenericServerRunOptions: genericoptions.NewServerRunOptions(),
		PluginOptions:           genericoptions.NewPluginsOptions(),
		AgentOptions:            genericoptions.NewAgentOptions(),
		LogOptions:              genericoptions.NewLogOptions(),
	}
}

// ApplyTo applies the run options to the method receiver and returns self.
func (o *Options) ApplyTo(c *server.Config) error {
	return o.GenericServerRunOptions.ApplyTo(c)
}

// Validate checks every option set.
func (o *Options) Validate() []error {
	var errs []error
	errs = append(errs, o.GenericServerRunOptions.Validate()...)
	errs = append(errs, o.PluginOptions.Validate()...)
	errs = append(errs, o.AgentOptions.Validate()...)
	errs = append(errs, o.LogOptions.Validate()...)
	return errs
}

func (o *Options) String() string {
	data, _ := json.Marshal(o)

	return string(data)
}

// Complete set default Options.
func (o *Options) Complete() error {
	o.PluginOptions.Complete()
	return nil
}
