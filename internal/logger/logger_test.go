package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_WritesFileAndTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "carsim.log")
	log, err := New(Options{Level: "info", Path: path})
	require.NoError(t, err)

	log.Info("vehicle registered", zap.Int("bodies", 5))
	log.Debug("hidden")
	require.NoError(t, log.Close())

	lines := log.Lines()
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "vehicle registered")
	assert.Contains(t, lines[0], `"bodies": 5`)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"vehicle registered"`)
	assert.NotContains(t, string(data), "hidden")
}

func TestNew_BadLevel(t *testing.T) {
	_, err := New(Options{Level: "loud", Path: filepath.Join(t.TempDir(), "x.log")})
	assert.Error(t, err)
}

func TestTail_KeepsMostRecent(t *testing.T) {
	tl := &tail{max: 3}
	for i := 0; i < 5; i++ {
		_, err := fmt.Fprintf(tl, "line %d\n", i)
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"line 2", "line 3", "line 4"}, tl.snapshot())

	_, _ = tl.Write([]byte("a\nb\n"))
	got := tl.snapshot()
	assert.Equal(t, "b", got[len(got)-1])
	assert.False(t, strings.HasSuffix(got[0], "\n"))
}
