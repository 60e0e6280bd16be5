package v1

import (
	"context"
	"errors"

	"github.com/bytedance/gg/gptr"
	"github.com/gin-gonic/gin"
	"github.com/kiosk404/ferry/internal/ferry/service/plugin"
	"github.com/kiosk404/ferry/internal/pkg/core"
	"github.com/kiosk404/ferry/pkg/errorx"
)

const endpointsStayMounted = "endpoints registered by the plugin stay mounted until the gateway restarts"

// PluginService is the part of the plugin manager the admin surface uses.
type PluginService interface {
	ListPlugins() []plugin.Info
	GetPluginInfo(id string) (plugin.Detail, error)
	EnablePlugin(ctx context.Context, id string) (plugin.Info, error)
	DisablePlugin(ctx context.Context, id string) (plugin.Info, error)
	UpdatePluginConfig(id string, cfg map[string]interface{}) error
	InstallPlugin(ctx context.Context, srcPath string) (plugin.Info, error)
}

// PluginHandler handles the plugin management REST API endpoints.
type PluginHandler struct {
	svc PluginService
}

// NewPluginHandler creates a new PluginHandler. svc may be nil when the
// plugin system is disabled.
func NewPluginHandler(svc PluginService) *PluginHandler {
	return &PluginHandler{svc: svc}
}

func (h *PluginHandler) available(c *gin.Context) bool {
	if h.svc == nil {
		core.WriteResponse(c, errorx.WithCode(ErrPluginUnavailable, "plugins.enabled is false"), nil)
		return false
	}
	return true
}

// List handles GET /api/plugins.
func (h *PluginHandler) List(c *gin.Context) {
	if !h.available(c) {
		return
	}
	infos := h.svc.ListPlugins()
	resp := make([]PluginResponse, 0, len(infos))
	for _, info := range infos {
		r, err := toPluginResponse(info)
		if err != nil {
			core.WriteResponse(c, err, nil)
			return
		}
		resp = append(resp, r)
	}
	core.WriteResponse(c, nil, gin.H{"data": resp})
}

// Get handles GET /api/plugins/:id.
func (h *PluginHandler) Get(c *gin.Context) {
	if !h.available(c) {
		return
	}
	id := c.Param("id")
	detail, err := h.svc.GetPluginInfo(id)
	if err != nil {
		core.WriteResponse(c, errorx.WrapC(err, pluginCode(err), "get plugin %q", id), nil)
		return
	}
	view, err := toPluginResponse(detail.Info)
	if err != nil {
		core.WriteResponse(c, err, nil)
		return
	}
	core.WriteResponse(c, nil, PluginDetailResponse{
		PluginResponse: view,
		Config:         detail.Config,
	})
}

// Enable handles POST /api/plugins/:id/enable. An activation failure is
// reported in the body with the plugin left in state error; the enablement
// change itself is kept.
func (h *PluginHandler) Enable(c *gin.Context) {
	if !h.available(c) {
		return
	}
	id := c.Param("id")
	info, err := h.svc.EnablePlugin(c.Request.Context(), id)
	if err != nil && !errors.Is(err, plugin.ErrActivation) {
		core.WriteResponse(c, errorx.WrapC(err, pluginCode(err), "enable plugin %q", id), nil)
		return
	}
	view, convErr := toPluginResponse(info)
	if convErr != nil {
		core.WriteResponse(c, convErr, nil)
		return
	}
	resp := PluginActionResponse{
		Plugin:    view,
		Activated: gptr.Of(err == nil),
	}
	if err != nil {
		resp.Note = gptr.Of(err.Error())
	}
	core.WriteResponse(c, nil, resp)
}

// Disable handles POST /api/plugins/:id/disable.
func (h *PluginHandler) Disable(c *gin.Context) {
	if !h.available(c) {
		return
	}
	id := c.Param("id")
	info, err := h.svc.DisablePlugin(c.Request.Context(), id)
	if err != nil {
		core.WriteResponse(c, errorx.WrapC(err, pluginCode(err), "disable plugin %q", id), nil)
		return
	}
	view, err := toPluginResponse(info)
	if err != nil {
		core.WriteResponse(c, err, nil)
		return
	}
	core.WriteResponse(c, nil, PluginActionResponse{
		Plugin: view,
		Note:   gptr.Of(endpointsStayMounted),
	})
}

// UpdateConfig handles PUT /api/plugins/:id/config.
func (h *PluginHandler) UpdateConfig(c *gin.Context) {
	if !h.available(c) {
		return
	}
	id := c.Param("id")
	var req UpdateConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		core.WriteResponse(c, errorx.WrapC(err, ErrBind, "bind config of %q", id), nil)
		return
	}
	if err := h.svc.UpdatePluginConfig(id, req.Config); err != nil {
		core.WriteResponse(c, errorx.WrapC(err, pluginCode(err), "update config of %q", id), nil)
		return
	}
	core.WriteResponse(c, nil, gin.H{"id": id, "updated": true, "note": "applies on next activation"})
}

// Install handles POST /api/plugins/install.
func (h *PluginHandler) Install(c *gin.Context) {
	if !h.available(c) {
		return
	}
	var req InstallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		core.WriteResponse(c, errorx.WrapC(err, ErrValidation, "install request"), nil)
		return
	}
	info, err := h.svc.InstallPlugin(c.Request.Context(), req.Path)
	if err != nil {
		core.WriteResponse(c, errorx.WrapC(err, pluginCode(err), "install plugin from %q", req.Path), nil)
		return
	}
	view, err := toPluginResponse(info)
	if err != nil {
		core.WriteResponse(c, err, nil)
		return
	}
	core.WriteResponse(c, nil, view)
}
