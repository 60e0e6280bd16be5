package plugin

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
)

var schemePattern = regexp.MustCompile(`^[a-z][a-z0-9]*$`)

// Loader resolves the target part of an entry reference to a callable entry
// point. inst gives access to the plugin directory.
type Loader interface {
	Resolve(target string, inst *Instance) (EntryFunc, error)
}

// ParseEntryRef splits "scheme:target".
func ParseEntryRef(ref string) (scheme, target string, err error) {
	scheme, target, ok := strings.Cut(ref, ":")
	if !ok || !schemePattern.MatchString(scheme) || strings.TrimSpace(target) == "" {
		return "", "", fmt.Errorf("entryRef %q must have the form <scheme>:<target>", ref)
	}
	return scheme, target, nil
}

// SchemeLoader dispatches entry references to the loader registered for
// their scheme.
type SchemeLoader struct {
	mu      sync.RWMutex
	loaders map[string]Loader
}

// NewSchemeLoader returns a loader with no schemes.
func NewSchemeLoader() *SchemeLoader {
	return &SchemeLoader{loaders: make(map[string]Loader)}
}

// Handle registers l for scheme, replacing any previous loader.
func (s *SchemeLoader) Handle(scheme string, l Loader) *SchemeLoader {
	s.mu.Lock()
	s.loaders[scheme] = l
	s.mu.Unlock()
	return s
}

// Schemes returns the registered schemes, sorted.
func (s *SchemeLoader) Schemes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]string, 0, len(s.loaders))
	for k := range s.loaders {
		result = append(result, k)
	}
	sort.Strings(result)
	return result
}

// Resolve parses ref and hands the target to the scheme's loader.
func (s *SchemeLoader) Resolve(ref string, inst *Instance) (EntryFunc, error) {
	scheme, target, err := ParseEntryRef(ref)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	l, ok := s.loaders[scheme]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no loader for scheme %q (known: %s)", scheme, strings.Join(s.Schemes(), ", "))
	}
	return l.Resolve(target, inst)
}
