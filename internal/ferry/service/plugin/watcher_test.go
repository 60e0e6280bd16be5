package plugin

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigWatcher_DebouncesWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plugins.json")
	var calls int32
	w, err := NewConfigWatcher(path, func() { atomic.AddInt32(&calls, 1) })
	require.NoError(t, err)
	defer w.Close()

	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(path, []byte(`{"enabled":[]}`), 0644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(path), "other.json"), nil, 0644))

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&calls) >= 1 }, 3*time.Second, 20*time.Millisecond)
	time.Sleep(2 * watchDebounce)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.NoError(t, w.Close())
}
