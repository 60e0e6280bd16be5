package server

import (
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/kiosk404/ferry/pkg/logger"
)

// Route is a group of endpoints mounted under Prefix.
type Route struct {
	Prefix  string
	Install func(r gin.IRouter)
}

// Mux dispatches requests to endpoints mounted at runtime. Each owner gets its
// own gin engine; a prefix belongs to exactly one owner. Mounted prefixes are
// never removed, a later Mount by the same owner replaces its handler.
type Mux struct {
	mu     sync.RWMutex
	routes map[string]mountEntry
}

type mountEntry struct {
	owner   string
	handler http.Handler
}

// NewMux returns an empty Mux.
func NewMux() *Mux {
	return &Mux{routes: make(map[string]mountEntry)}
}

// Mount mounts all routes for owner, or none of them.
func (m *Mux) Mount(owner string, routes []Route) (err error) {
	if len(routes) == 0 {
		return nil
	}

	prefixes := make([]string, 0, len(routes))
	seen := make(map[string]bool, len(routes))
	for _, r := range routes {
		p := normalizePrefix(r.Prefix)
		if seen[p] {
			return fmt.Errorf("prefix %q registered twice by %q", p, owner)
		}
		seen[p] = true
		prefixes = append(prefixes, p)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("install endpoints for %q: %v", owner, r)
		}
	}()
	for i, r := range routes {
		if r.Install != nil {
			r.Install(engine.Group(prefixes[i]))
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range prefixes {
		if e, ok := m.routes[p]; ok && e.owner != owner {
			return fmt.Errorf("prefix %q is already mounted by %q", p, e.owner)
		}
	}
	for _, p := range prefixes {
		m.routes[p] = mountEntry{owner: owner, handler: engine}
		logger.Info("[Server] mounted endpoints of %q at %q", owner, displayPrefix(p))
	}
	return nil
}

// Owners returns prefix -> owner for every mounted prefix.
func (m *Mux) Owners() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.routes))
	for p, e := range m.routes {
		out[displayPrefix(p)] = e.owner
	}
	return out
}

func (m *Mux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h := m.match(r.URL.Path); h != nil {
		h.ServeHTTP(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte(`{"code":404,"message":"Not Found"}`))
}

func (m *Mux) match(path string) http.Handler {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var (
		best    http.Handler
		bestLen = -1
	)
	for p, e := range m.routes {
		if p != "" && path != p && !strings.HasPrefix(path, p+"/") {
			continue
		}
		if len(p) > bestLen {
			best, bestLen = e.handler, len(p)
		}
	}
	return best
}

func normalizePrefix(p string) string {
	p = strings.TrimRight(strings.TrimSpace(p), "/")
	if p != "" && !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

func displayPrefix(p string) string {
	if p == "" {
		return "/"
	}
	return p
}
