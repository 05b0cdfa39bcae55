package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "optimed.log")
	require.NoError(t, Init("debug", path, false))
	t.Cleanup(func() { Set(nil) })

	assert.Equal(t, logrus.DebugLevel, Get().GetLevel())
	WithOp("label").Debug("hello")

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "hello")
	assert.Contains(t, string(b), "op=label")
}

func TestInitUnknownLevel(t *testing.T) {
	require.NoError(t, Init("chatty", "", false))
	t.Cleanup(func() { Set(nil) })
	assert.Equal(t, logrus.InfoLevel, Get().GetLevel())
}

func TestGetDefault(t *testing.T) {
	Set(nil)
	assert.Equal(t, logrus.WarnLevel, Get().GetLevel())
}
