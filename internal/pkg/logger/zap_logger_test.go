package logger

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestIsolatedLoggerWritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.log")
	l := NewIsolatedLogger(path)

	l.Info("PIPELINE", "answer committed", map[string]interface{}{"strategy": "hybrid"})
	l.Debug("PIPELINE", "below file level", nil)
	require.NoError(t, l.Sync())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []map[string]interface{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
		lines = append(lines, entry)
	}

	require.Len(t, lines, 1)
	assert.Equal(t, "INFO", lines[0]["level"])
	assert.Equal(t, "answer committed", lines[0]["message"])
	assert.Equal(t, "PIPELINE", lines[0]["module"])
	assert.Equal(t, "hybrid", lines[0]["details"].(map[string]interface{})["strategy"])
}

func TestObservedLoggerKeepsModule(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := NewWithCore(core)

	l.Warn("CHAT", "persist failed", map[string]interface{}{"error": "boom"})
	l.Error("CHAT", "lock failed", map[string]interface{}{"error": "redis down"})

	require.Equal(t, 2, logs.Len())
	entries := logs.All()
	assert.Equal(t, "persist failed", entries[0].Message)
	assert.Equal(t, "CHAT", entries[0].ContextMap()["module"])
	assert.Equal(t, "redis down", entries[1].ContextMap()["error_ref"])
}
