package ferry

import (
	"github.com/kiosk404/ferry/internal/ferry/config"
)

// Run runs the gateway until it is signalled to stop.
func Run(cfg *config.Config) error {
	server, err := createAPIServer(cfg)
	if err != nil {
		return err
	}

	return server.PrepareRun().Run()
}
