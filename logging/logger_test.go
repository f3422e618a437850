package logging

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "memdb.log")
	require.NoError(t, Init(Config{Level: LevelDebug, OutputPath: path, Format: "json"}))
	t.Cleanup(func() { Close() })

	assert.Error(t, Init(Config{}), "second Init must fail")

	WithTable("person").Debug("table created", "columns", 3)
	require.NoError(t, Close())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	line := string(content)
	assert.True(t, strings.Contains(line, `"table":"person"`), line)
	assert.True(t, strings.Contains(line, `"columns":3`), line)
}

func TestDefaultLoggerIsQuiet(t *testing.T) {
	require.NoError(t, Close())
	l := GetLogger()
	require.NotNil(t, l)
	assert.False(t, l.Enabled(context.Background(), LevelInfo.slogLevel()))
	assert.True(t, l.Enabled(context.Background(), LevelWarn.slogLevel()))
}
