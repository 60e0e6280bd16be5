package v1

import (
	"errors"
	"net/http"

	"github.com/kiosk404/ferry/internal/ferry/service/plugin"
	"github.com/kiosk404/ferry/pkg/errorx"
)

// Ferry handler error codes.
// Code format: 1XXYYZ
//   - 1:  module prefix (ferry handler)
//   - XX: resource group (00=common, 01=plugin, 02=session, 03=query)
//   - YY: sequential error number
//   - Z:  reserved (0)

const (
	// Common request errors (100xxx).
	ErrBind       = 100001
	ErrValidation = 100002

	// Plugin errors (1001xx).
	ErrPluginNotFound    = 100101
	ErrPluginExists      = 100102
	ErrInvalidPlugin     = 100103
	ErrInvalidConfig     = 100104
	ErrPluginActivation  = 100105
	ErrPluginInternal    = 100106
	ErrPluginUnavailable = 100107

	// Session errors (1002xx).
	ErrSessionIDEmpty = 100201

	// Query errors (1003xx).
	ErrPromptEmpty = 100301
	ErrAgentQuery  = 100302
)

func init() {
	// Common.
	errorx.MustRegister(newCoder(ErrBind, http.StatusBadRequest, "Request body binding failed"))
	errorx.MustRegister(newCoder(ErrValidation, http.StatusBadRequest, "Request validation failed"))

	// Plugin.
	errorx.MustRegister(newCoder(ErrPluginNotFound, http.StatusNotFound, "Plugin not found"))
	errorx.MustRegister(newCoder(ErrPluginExists, http.StatusConflict, "Plugin already exists"))
	errorx.MustRegister(newCoder(ErrInvalidPlugin, http.StatusBadRequest, "Invalid plugin"))
	errorx.MustRegister(newCoder(ErrInvalidConfig, http.StatusBadRequest, "Plugin config does not match its schema"))
	errorx.MustRegister(newCoder(ErrPluginActivation, http.StatusInternalServerError, "Plugin activation failed"))
	errorx.MustRegister(newCoder(ErrPluginInternal, http.StatusInternalServerError, "Plugin operation failed"))
	errorx.MustRegister(newCoder(ErrPluginUnavailable, http.StatusServiceUnavailable, "Plugin system is disabled"))

	// Session.
	errorx.MustRegister(newCoder(ErrSessionIDEmpty, http.StatusBadRequest, "Session id is required"))

	// Query.
	errorx.MustRegister(newCoder(ErrPromptEmpty, http.StatusBadRequest, "Prompt is required"))
	errorx.MustRegister(newCoder(ErrAgentQuery, http.StatusBadGateway, "Agent query failed"))
}

// pluginCode maps plugin package errors onto handler codes.
func pluginCode(err error) int {
	switch {
	case errors.Is(err, plugin.ErrPluginNotFound):
		return ErrPluginNotFound
	case errors.Is(err, plugin.ErrPluginExists):
		return ErrPluginExists
	case errors.Is(err, plugin.ErrInvalidPlugin):
		return ErrInvalidPlugin
	case errors.Is(err, plugin.ErrInvalidConfig):
		return ErrInvalidConfig
	case errors.Is(err, plugin.ErrActivation):
		return ErrPluginActivation
	}
	return ErrPluginInternal
}

type coder struct {
	code int
	http int
	msg  string
}

func newCoder(code, httpStatus int, msg string) *coder {
	return &coder{code: code, http: httpStatus, msg: msg}
}

func (c *coder) Code() int         { return c.code }
func (c *coder) HTTPStatus() int   { return c.http }
func (c *coder) String() string    { return c.msg }
func (c *coder) Reference() string { return "" }
