package server

import (
	"net"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// Config is a structure used to configure a GenericAPIServer.
type Config struct {
	InsecureServing *InsecureServingInfo
	Mode            string
	Middlewares     []string
	Healthz         bool
	EnableProfiling bool
	ShutdownTimeout time.Duration
}

// InsecureServingInfo holds configuration of the insecure http server.
type InsecureServingInfo struct {
	BindAddress string
	BindPort    int
}

// Address join host IP address and host port number into a address string, like: 0.0.0.0:9090.
func (s *InsecureServingInfo) Address() string {
	return net.JoinHostPort(s.BindAddress, strconv.Itoa(s.BindPort))
}

// NewConfig returns a Config struct with the default values.
func NewConfig() *Config {
	return &Config{
		InsecureServing: &InsecureServingInfo{
			BindAddress: "0.0.0.0",
			BindPort:    9090,
		},
		Mode:            gin.ReleaseMode,
		Healthz:         true,
		EnableProfiling: false,
		ShutdownTimeout: 10 * time.Second,
	}
}

// CompletedConfig is the completed configuration for GenericAPIServer.
type CompletedConfig struct {
	*Config
}

// Complete fills in any fields not set that are required to have valid data.
func (c *Config) Complete() CompletedConfig {
	if c.InsecureServing == nil {
		c.InsecureServing = &InsecureServingInfo{BindAddress: "0.0.0.0", BindPort: 9090}
	}
	if c.Mode == "" {
		c.Mode = gin.ReleaseMode
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
	return CompletedConfig{c}
}

// New returns a new instance of GenericAPIServer from the given config.
func (c CompletedConfig) New() (*GenericAPIServer, error) {
	gin.SetMode(c.Mode)

	s := &GenericAPIServer{
		InsecureServingInfo: c.InsecureServing,
		mode:                c.Mode,
		healthz:             c.Healthz,
		enableProfiling:     c.EnableProfiling,
		middlewares:         c.Middlewares,
		shutdownTimeout:     c.ShutdownTimeout,
		Engine:              gin.New(),
		Mux:                 NewMux(),
	}

	initGenericAPIServer(s)
	return s, nil
}
