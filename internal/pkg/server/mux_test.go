package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func pong(body string) func(gin.IRouter) {
	return func(r gin.IRouter) {
		r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, body) })
	}
}

func serve(m *Mux, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	m.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestMux_RoutesByPrefix(t *testing.T) {
	m := NewMux()
	require.NoError(t, m.Mount("a", []Route{{Prefix: "/a", Install: pong("a")}}))
	require.NoError(t, m.Mount("b", []Route{{Prefix: "b/", Install: pong("b")}}))

	assert.Equal(t, "a", serve(m, "/a/ping").Body.String())
	assert.Equal(t, "b", serve(m, "/b/ping").Body.String())
	assert.Equal(t, http.StatusNotFound, serve(m, "/ab/ping").Code)
	assert.Equal(t, http.StatusNotFound, serve(m, "/c").Code)
	assert.Equal(t, map[string]string{"/a": "a", "/b": "b"}, m.Owners())
}

func TestMux_PrefixBelongsToOneOwner(t *testing.T) {
	m := NewMux()
	require.NoError(t, m.Mount("a", []Route{{Prefix: "/x", Install: pong("a")}}))

	err := m.Mount("b", []Route{
		{Prefix: "/y", Install: pong("b")},
		{Prefix: "/x", Install: pong("b")},
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, serve(m, "/y/ping").Code, "nothing of a failed mount is visible")

	require.NoError(t, m.Mount("a", []Route{{Prefix: "/x", Install: pong("a2")}}))
	assert.Equal(t, "a2", serve(m, "/x/ping").Body.String())
}

func TestMux_RejectsBadRouteSets(t *testing.T) {
	m := NewMux()
	assert.Error(t, m.Mount("a", []Route{{Prefix: "/x"}, {Prefix: "/x/"}}))
	assert.Error(t, m.Mount("a", []Route{{Prefix: "/x", Install: func(gin.IRouter) { panic("boom") }}}))
	assert.Empty(t, m.Owners())
	assert.NoError(t, m.Mount("a", nil))
}
