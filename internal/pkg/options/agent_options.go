package options

import (
	"fmt"
	"net/url"

	"github.com/spf13/pflag"
)

// AgentOptions configures the connection to the agent backend.
type AgentOptions struct {
	// BaseURL of the agent service exposing /api/query and /api/interrupt.
	BaseURL string `json:"base-url" mapstructure:"base-url"`
	// APIKey is sent as a Bearer token when set.
	APIKey string `json:"-" mapstructure:"api-key"`
	// ForwardInterrupts also asks the agent service to interrupt a session.
	ForwardInterrupts bool `json:"forward-interrupts" mapstructure:"forward-interrupts"`
}

// NewAgentOptions returns the default agent options.
func NewAgentOptions() *AgentOptions {
	return &AgentOptions{
		BaseURL:           "http://127.0.0.1:8000",
		ForwardInterrupts: true,
	}
}

// Validate checks AgentOptions fields.
func (o *AgentOptions) Validate() []error {
	var errs []error
	u, err := url.Parse(o.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("--agent.base-url %q must be an absolute URL", o.BaseURL))
	}
	return errs
}

// AddFlags adds flags for the agent options.
func (o *AgentOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.BaseURL, "agent.base-url", o.BaseURL, "Base URL of the agent service.")
	fs.StringVar(&o.APIKey, "agent.api-key", o.APIKey, "Bearer token for the agent service.")
	fs.BoolVar(&o.ForwardInterrupts, "agent.forward-interrupts", o.ForwardInterrupts, "Forward session interrupts to the agent service.")
}
