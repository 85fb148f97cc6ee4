package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(Options{Level: "loud"})
	assert.Error(t, err)
}

func TestDefaultLevelIsInfo(t *testing.T) {
	logger, err := New(Options{})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zap.DebugLevel))
	assert.True(t, logger.Core().Enabled(zap.InfoLevel))
}

func TestNewWritesRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dualcam.log")
	logger, err := New(Options{Name: "test", Level: "debug", File: path})
	require.NoError(t, err)

	logger.Debug("compositor ready", zap.Int("width", 1080))
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	line := string(data)
	assert.True(t, strings.Contains(line, `"msg":"compositor ready"`), line)
	assert.True(t, strings.Contains(line, `"logger":"test"`), line)
	assert.True(t, strings.Contains(line, `"width":1080`), line)
}
