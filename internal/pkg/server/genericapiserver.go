package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/kiosk404/ferry/pkg/logger"
)

// GenericAPIServer contains state for a ferry api server.
type GenericAPIServer struct {
	// InsecureServingInfo holds configuration of the insecure HTTP server.
	InsecureServingInfo *InsecureServingInfo

	// Engine serves host routes. Routes unknown to it fall through to Mux.
	*gin.Engine

	// Mux holds the endpoints mounted by plugins at runtime.
	Mux *Mux

	mode            string
	middlewares     []string
	healthz         bool
	enableProfiling bool
	shutdownTimeout time.Duration

	insecureServer *http.Server
}

func initGenericAPIServer(s *GenericAPIServer) {
	s.Setup()
	s.InstallMiddlewares()
	s.InstallAPIs()
}

// Setup do some setup work for gin engine.
func (s *GenericAPIServer) Setup() {
	gin.DebugPrintRouteFunc = func(httpMethod, absolutePath, handlerName string, nuHandlers int) {
		logger.Debug("[Server] %-6s %-40s --> %s (%d handlers)", httpMethod, absolutePath, handlerName, nuHandlers)
	}
}

// InstallMiddlewares installs the middlewares every route needs.
func (s *GenericAPIServer) InstallMiddlewares() {
	s.Use(gin.Recovery())
	for _, m := range s.middlewares {
		switch m {
		case "logger":
			s.Use(gin.Logger())
		default:
			logger.Warn("[Server] unknown middleware %q, skipped", m)
		}
	}
}

// InstallAPIs install generic apis.
func (s *GenericAPIServer) InstallAPIs() {
	if s.healthz {
		s.GET("/healthz", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})
	}

	if s.enableProfiling {
		pprof.Register(s.Engine)
	}

	s.NoRoute(func(c *gin.Context) {
		s.Mux.ServeHTTP(c.Writer, c.Request)
	})
}

// Run spawns the http server. It only returns when the port cannot be listened on or
// the server was closed.
func (s *GenericAPIServer) Run() error {
	s.insecureServer = &http.Server{
		Addr:    s.InsecureServingInfo.Address(),
		Handler: s,
	}

	logger.Info("[Server] start to listening the incoming requests on http address: %s", s.InsecureServingInfo.Address())
	if err := s.insecureServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("[Server] %s", err.Error())
		return err
	}

	logger.Info("[Server] server on %s stopped", s.InsecureServingInfo.Address())
	return nil
}

// Close graceful shutdown the api server.
func (s *GenericAPIServer) Close() {
	if s.insecureServer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	if err := s.insecureServer.Shutdown(ctx); err != nil {
		logger.Warn("[Server] shutdown insecure server failed: %s", err.Error())
	}
}
