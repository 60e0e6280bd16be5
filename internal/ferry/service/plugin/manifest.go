package plugin

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/kiosk404/ferry/pkg/utils/json"
	"github.com/tidwall/jsonc"
)

const (
	// ManifestFile is the descriptor every plugin directory carries.
	ManifestFile = "plugin.json"
	// DefaultVersion is used when a manifest omits its version.
	DefaultVersion = "1.0.0"
)

// Type discriminates what a plugin provides.
type Type string

const (
	TypeChannel Type = "channel"
	TypeHook    Type = "hook"
	TypeTool    Type = "tool"
)

// Source tells which search root a plugin was found in. Earlier sources win.
type Source string

const (
	SourceBundled   Source = "bundled"
	SourceInstalled Source = "installed"
	SourceExternal  Source = "external"
)

var (
	idPattern      = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)
	versionPattern = regexp.MustCompile(`^\d+\.\d+\.\d+([-+][0-9A-Za-z.-]+)?$`)
)

// Manifest is the validated, immutable description of a plugin.
type Manifest struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Version      string        `json:"version"`
	Description  string        `json:"description,omitempty"`
	Type         Type          `json:"type"`
	EntryRef     string        `json:"entryRef"`
	ConfigSchema *ConfigSchema `json:"configSchema,omitempty"`
}

// rawManifest accepts the snake_case spellings older plugins use.
type rawManifest struct {
	ID              string        `json:"id"`
	Name            string        `json:"name"`
	Version         string        `json:"version"`
	Description     string        `json:"description"`
	Type            Type          `json:"type"`
	EntryRef        string        `json:"entryRef"`
	EntryPoint      string        `json:"entry_point"`
	ConfigSchema    *ConfigSchema `json:"configSchema"`
	ConfigSchemaAlt *ConfigSchema `json:"config_schema"`
}

// ParseManifest decodes and validates a manifest. Comments and trailing
// commas are tolerated.
func ParseManifest(data []byte) (*Manifest, error) {
	var raw rawManifest
	if err := json.Unmarshal(jsonc.ToJSON(data), &raw); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}

	m := &Manifest{
		ID:           strings.TrimSpace(raw.ID),
		Name:         strings.TrimSpace(raw.Name),
		Version:      strings.TrimSpace(raw.Version),
		Description:  raw.Description,
		Type:         raw.Type,
		EntryRef:     strings.TrimSpace(raw.EntryRef),
		ConfigSchema: raw.ConfigSchema,
	}
	if m.EntryRef == "" {
		m.EntryRef = strings.TrimSpace(raw.EntryPoint)
	}
	if m.ConfigSchema == nil {
		m.ConfigSchema = raw.ConfigSchemaAlt
	}
	if m.Version == "" {
		m.Version = DefaultVersion
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// LoadManifest reads dir/plugin.json.
func LoadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, err
	}
	return ParseManifest(data)
}

// Validate checks the required fields.
func (m *Manifest) Validate() error {
	var errs []error

	if m.ID == "" {
		errs = append(errs, errors.New("id is required"))
	} else if !idPattern.MatchString(m.ID) {
		errs = append(errs, fmt.Errorf("id %q must match %s", m.ID, idPattern))
	}
	if m.Name == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if !versionPattern.MatchString(m.Version) {
		errs = append(errs, fmt.Errorf("version %q is not a semantic version", m.Version))
	}
	switch m.Type {
	case TypeChannel, TypeHook, TypeTool:
	case "":
		errs = append(errs, errors.New("type is required"))
	default:
		errs = append(errs, fmt.Errorf("type %q must be one of channel, hook, tool", m.Type))
	}
	if m.EntryRef == "" {
		errs = append(errs, errors.New("entryRef is required"))
	} else if _, _, err := ParseEntryRef(m.EntryRef); err != nil {
		errs = append(errs, err)
	}
	if m.ConfigSchema != nil {
		if err := m.ConfigSchema.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("configSchema: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid manifest: %w", errors.Join(errs...))
	}
	return nil
}
