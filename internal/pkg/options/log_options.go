package options

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

// LogOptions configures pkg/logger.
type LogOptions struct {
	Level string `json:"level" mapstructure:"level"`
	// Path of the log file; empty logs to stderr only.
	Path string `json:"path" mapstructure:"path"`
}

func NewLogOptions() *LogOptions {
	return &LogOptions{Level: "info"}
}

func (o *LogOptions) Validate() []error {
	if _, err := logrus.ParseLevel(o.Level); err != nil {
		return []error{fmt.Errorf("--log.level: %w", err)}
	}
	return nil
}

func (o *LogOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Level, "log.level", o.Level, "Minimum log level: debug, info, warn, error.")
	fs.StringVar(&o.Path, "log.path", o.Path, "Log file path. Logs always go to stderr as well.")
}
