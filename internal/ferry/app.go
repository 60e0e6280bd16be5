package ferry

import (
	"github.com/MakeNowJust/heredoc/v2"
	"github.com/kiosk404/ferry/internal/ferry/config"
	"github.com/kiosk404/ferry/internal/ferry/options"
	"github.com/kiosk404/ferry/pkg/app"
	"github.com/kiosk404/ferry/pkg/logger"
)

const AppName = "ferry"

// NewApp creates the gateway command.
func NewApp(basename string) *app.App {
	opts := options.NewOptions()
	application := app.NewApp(AppName,
		basename,
		app.WithOptions(opts),
		app.WithDescription(heredoc.Doc(`
			The ferry gateway bridges chat channel webhooks to an agent service.

			Channel integrations are plugins discovered from the bundled,
			installed and external plugin roots. Enabled plugins are activated
			at startup and can be toggled at runtime through the /api surface
			or by editing the enablement config.
		`)),
		app.WithDefaultValidArgs(),
		app.WithRunFunc(run(opts)),
	)
	return application
}

func run(opts *options.Options) app.RunFunc {
	return func(basename string) error {
		if err := logger.InitLog(opts.LogOptions.Path, opts.LogOptions.Level); err != nil {
			return err
		}
		defer logger.FlushLog()

		cfg, err := config.CreateConfigFromOptions(opts)
		if err != nil {
			return err
		}

		return Run(cfg)
	}
}
