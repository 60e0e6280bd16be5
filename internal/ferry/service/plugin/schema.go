package plugin

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
)

// ConfigSchema is the subset of JSON schema plugins use to describe their
// configuration: a flat object of typed properties.
type ConfigSchema struct {
	Type       string               `json:"type,omitempty"`
	Properties map[string]*Property `json:"properties,omitempty"`
	Required   []string             `json:"required,omitempty"`
}

// Property describes one configuration key.
type Property struct {
	Type        string        `json:"type,omitempty"`
	Description string        `json:"description,omitempty"`
	Default     interface{}   `json:"default,omitempty"`
	Enum        []interface{} `json:"enum,omitempty"`
	Minimum     *float64      `json:"minimum,omitempty"`
	Maximum     *float64      `json:"maximum,omitempty"`
}

var propertyTypes = map[string]bool{
	"":        true,
	"string":  true,
	"integer": true,
	"number":  true,
	"boolean": true,
	"array":   true,
	"object":  true,
}

// Validate checks the schema itself.
func (s *ConfigSchema) Validate() error {
	if s.Type != "" && s.Type != "object" {
		return fmt.Errorf("top-level type must be object, got %q", s.Type)
	}
	for name, p := range s.Properties {
		if p == nil {
			return fmt.Errorf("property %q is empty", name)
		}
		if !propertyTypes[p.Type] {
			return fmt.Errorf("property %q has unsupported type %q", name, p.Type)
		}
		if p.Default != nil {
			if err := p.check(p.Default); err != nil {
				return fmt.Errorf("default of %q: %w", name, err)
			}
		}
	}
	return nil
}

// Resolve applies defaults to cfg and validates the result. cfg is not
// modified; keys the schema does not declare pass through unchecked.
func (s *ConfigSchema) Resolve(cfg map[string]interface{}) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(cfg))
	for k, v := range cfg {
		out[k] = v
	}
	if s == nil {
		return out, nil
	}

	names := make([]string, 0, len(s.Properties))
	for name := range s.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []error
	for _, name := range names {
		p := s.Properties[name]
		v, ok := out[name]
		if !ok || v == nil {
			if p.Default != nil {
				out[name] = p.Default
			}
			continue
		}
		if err := p.check(v); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	for _, name := range s.Required {
		if v, ok := out[name]; !ok || v == nil {
			errs = append(errs, fmt.Errorf("%s: required", name))
		}
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return out, nil
}

func (p *Property) check(v interface{}) error {
	switch p.Type {
	case "string":
		if _, ok := v.(string); !ok {
			return fmt.Errorf("want string, got %T", v)
		}
	case "boolean":
		if _, ok := v.(bool); !ok {
			return fmt.Errorf("want boolean, got %T", v)
		}
	case "integer":
		f, ok := toFloat(v)
		if !ok || f != math.Trunc(f) {
			return fmt.Errorf("want integer, got %v", v)
		}
	case "number":
		if _, ok := toFloat(v); !ok {
			return fmt.Errorf("want number, got %T", v)
		}
	case "array":
		if k := reflect.ValueOf(v).Kind(); k != reflect.Slice && k != reflect.Array {
			return fmt.Errorf("want array, got %T", v)
		}
	case "object":
		if reflect.ValueOf(v).Kind() != reflect.Map {
			return fmt.Errorf("want object, got %T", v)
		}
	}

	if len(p.Enum) > 0 && !inEnum(p.Enum, v) {
		return fmt.Errorf("%v is not one of %v", v, p.Enum)
	}
	if f, ok := toFloat(v); ok {
		if p.Minimum != nil && f < *p.Minimum {
			return fmt.Errorf("%v is below minimum %v", v, *p.Minimum)
		}
		if p.Maximum != nil && f > *p.Maximum {
			return fmt.Errorf("%v is above maximum %v", v, *p.Maximum)
		}
	}
	return nil
}

func inEnum(enum []interface{}, v interface{}) bool {
	vf, vNum := toFloat(v)
	for _, e := range enum {
		if ef, ok := toFloat(e); ok && vNum {
			if ef == vf {
				return true
			}
			continue
		}
		if reflect.DeepEqual(e, v) {
			return true
		}
	}
	return false
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}
