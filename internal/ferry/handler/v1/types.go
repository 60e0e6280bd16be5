package v1

import (
	"github.com/bytedance/gg/gptr"
	"github.com/jinzhu/copier"
	"github.com/kiosk404/ferry/internal/ferry/service/plugin"
	"github.com/kiosk404/ferry/pkg/errorx"
)

// PluginResponse is the admin view of one plugin.
type PluginResponse struct {
	ID           string               `json:"id"`
	Name         string               `json:"name"`
	Version      string               `json:"version"`
	Description  string               `json:"description"`
	Type         plugin.Type          `json:"type"`
	Source       plugin.Source        `json:"source"`
	State        plugin.State         `json:"state"`
	Enabled      bool                 `json:"enabled"`
	Error        *string              `json:"error,omitempty"`
	Path         string               `json:"path"`
	ConfigSchema *plugin.ConfigSchema `json:"configSchema,omitempty"`
}

// PluginDetailResponse adds the stored config.
type PluginDetailResponse struct {
	PluginResponse
	Config map[string]interface{} `json:"config"`
}

// PluginActionResponse answers enable and disable.
type PluginActionResponse struct {
	Plugin PluginResponse `json:"plugin"`
	// Activated is set by enable: whether the plugin reached started.
	Activated *bool `json:"activated,omitempty"`
	// Note carries operator hints, such as endpoints staying mounted.
	Note *string `json:"note,omitempty"`
}

// UpdateConfigRequest is the body of PUT /api/plugins/:id/config.
type UpdateConfigRequest struct {
	Config map[string]interface{} `json:"config"`
}

// InstallRequest is the body of POST /api/plugins/install.
type InstallRequest struct {
	Path string `json:"path" binding:"required"`
}

// InterruptResponse answers POST /api/interrupt/:session_id.
type InterruptResponse struct {
	Success   bool   `json:"success"`
	SessionID string `json:"session_id"`
}

// QueryRequest is the body of POST /api/query.
type QueryRequest struct {
	Prompt    string `json:"prompt" binding:"required"`
	Skill     string `json:"skill"`
	TenantID  string `json:"tenant_id"`
	Language  string `json:"language"`
	SessionID string `json:"session_id"`
}

// copyPlugin fills the admin view of a plugin.
var copyPlugin = func(to *PluginResponse, from *plugin.Info) error {
	return copier.CopyWithOption(to, from, copier.Option{DeepCopy: true, IgnoreEmpty: true})
}

func toPluginResponse(info plugin.Info) (PluginResponse, error) {
	var resp PluginResponse
	if err := copyPlugin(&resp, &info); err != nil {
		return PluginResponse{}, errorx.WrapC(err, ErrPluginInternal, "convert plugin %q", info.ID)
	}
	resp.Error = nil
	if info.Error != "" {
		resp.Error = gptr.Of(info.Error)
	}
	return resp, nil
}
