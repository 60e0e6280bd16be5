package ferry

import (
	"github.com/gin-gonic/gin"
	"github.com/kiosk404/ferry/internal/ferry/handler/middleware"
	v1 "github.com/kiosk404/ferry/internal/ferry/handler/v1"
	"github.com/kiosk404/ferry/internal/ferry/service/agent/domain/service"
	"github.com/kiosk404/ferry/internal/ferry/service/plugin"
	"github.com/kiosk404/ferry/internal/ferry/service/session"
)

// routerDeps holds the dependencies needed for route registration.
type routerDeps struct {
	manager    *plugin.Manager
	processor  service.Processor
	interrupts *session.InterruptRegistry
	authConfig *middleware.AuthConfig
}

// initRouter installs the host routes. Plugin endpoints are not routed here;
// the server falls through to the plugin mux for unknown paths.
func initRouter(g *gin.Engine, deps *routerDeps) {
	installController(g, deps)
}

func installController(g *gin.Engine, deps *routerDeps) {
	var plugins v1.PluginService
	if deps.manager != nil {
		plugins = deps.manager
	}
	pluginHandler := v1.NewPluginHandler(plugins)
	sessionHandler := v1.NewSessionHandler(deps.interrupts)
	queryHandler := v1.NewQueryHandler(deps.processor)

	api := g.Group("/api", middleware.BearerAuth(deps.authConfig))
	{
		api.GET("/plugins", pluginHandler.List)
		api.POST("/plugins/install", pluginHandler.Install)
		api.GET("/plugins/:id", pluginHandler.Get)
		api.POST("/plugins/:id/enable", pluginHandler.Enable)
		api.POST("/plugins/:id/disable", pluginHandler.Disable)
		api.PUT("/plugins/:id/config", pluginHandler.UpdateConfig)

		api.POST("/interrupt/:session_id", sessionHandler.Interrupt)
		api.POST("/query", queryHandler.Handle)
	}
}
