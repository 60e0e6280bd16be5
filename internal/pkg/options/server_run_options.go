package options

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kiosk404/ferry/internal/pkg/server"
	"github.com/spf13/pflag"
)

// ServerRunOptions contains the options while running a generic api server.
type ServerRunOptions struct {
	BindAddress     string        `json:"bind-address"     mapstructure:"bind-address"`
	BindPort        int           `json:"bind-port"        mapstructure:"bind-port"`
	Mode            string        `json:"mode"             mapstructure:"mode"`
	Healthz         bool          `json:"healthz"          mapstructure:"healthz"`
	Middlewares     []string      `json:"middlewares"      mapstructure:"middlewares"`
	EnableProfiling bool          `json:"enable-profiling" mapstructure:"enable-profiling"`
	ShutdownTimeout time.Duration `json:"shutdown-timeout" mapstructure:"shutdown-timeout"`
	// AdminToken guards the /api surface. Empty disables auth.
	// Can also be set via FERRY_ADMIN_TOKEN.
	AdminToken string `json:"-" mapstructure:"admin-token"`
}

// NewServerRunOptions creates a new ServerRunOptions object with default parameters.
func NewServerRunOptions() *ServerRunOptions {
	defaults := server.NewConfig()

	return &ServerRunOptions{
		BindAddress:     defaults.InsecureServing.BindAddress,
		BindPort:        defaults.InsecureServing.BindPort,
		Mode:            defaults.Mode,
		Healthz:         defaults.Healthz,
		Middlewares:     defaults.Middlewares,
		EnableProfiling: defaults.EnableProfiling,
		ShutdownTimeout: defaults.ShutdownTimeout,
	}
}

// ApplyTo applies the run options to the method receiver and returns self.
func (s *ServerRunOptions) ApplyTo(c *server.Config) error {
	c.InsecureServing = &server.InsecureServingInfo{
		BindAddress: s.BindAddress,
		BindPort:    s.BindPort,
	}
	c.Mode = s.Mode
	c.Healthz = s.Healthz
	c.Middlewares = s.Middlewares
	c.EnableProfiling = s.EnableProfiling
	c.ShutdownTimeout = s.ShutdownTimeout
	return nil
}

// Validate checks validation of ServerRunOptions.
func (s *ServerRunOptions) Validate() []error {
	var errs []error

	if s.BindPort < 0 || s.BindPort > 65535 {
		errs = append(errs, fmt.Errorf("--serving.bind-port %v must be between 0 and 65535", s.BindPort))
	}
	switch s.Mode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
	default:
		errs = append(errs, fmt.Errorf("--serving.mode %q must be one of debug, release, test", s.Mode))
	}

	return errs
}

// AddFlags adds flags for a specific APIServer to the specified FlagSet.
func (s *ServerRunOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&s.BindAddress, "serving.bind-address", s.BindAddress, "The IP address on which to serve plugin webhooks and the admin API.")
	fs.IntVar(&s.BindPort, "serving.bind-port", s.BindPort, "The port on which to serve plugin webhooks and the admin API.")
	fs.StringVar(&s.Mode, "serving.mode", s.Mode, "Start the server in a specified server mode. Supported server mode: debug, test, release.")
	fs.BoolVar(&s.Healthz, "serving.healthz", s.Healthz, "Add self readiness check and install /healthz router.")
	fs.StringSliceVar(&s.Middlewares, "serving.middlewares", s.Middlewares, "List of allowed middlewares for server, comma separated. If this list is empty default middlewares will be used.")
	fs.BoolVar(&s.EnableProfiling, "serving.enable-profiling", s.EnableProfiling, "Enable profiling via web interface host:port/debug/pprof/.")
	fs.DurationVar(&s.ShutdownTimeout, "serving.shutdown-timeout", s.ShutdownTimeout, "Grace period for in-flight requests on shutdown.")
	fs.StringVar(&s.AdminToken, "serving.admin-token", s.AdminToken, "Bearer token required by the /api admin surface for non-loopback callers.")
}
