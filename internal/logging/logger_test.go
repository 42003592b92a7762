package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FalixNodes/falixpanel/internal/server"
)

func TestQuietSuppressesInfoOnly(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(Config{Level: LevelInfo, Format: FormatText, Output: &buf, Quiet: true})

	l.LogSelection("all", 3)
	assert.Empty(t, buf.String())

	l.LogConfigError("server store", errors.New("refused"))
	assert.Contains(t, buf.String(), "configuration error")
	assert.True(t, l.IsQuiet())
}

func TestJSONFormatNeverLogsSecret(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(Config{Level: LevelDebug, Format: FormatJSON, Output: &buf})

	s := server.Server{ID: 2, Name: "beta", Node: server.Node{Name: "node-a", DaemonSecret: "hunter2"}}
	l.LogReinstallError(s, errors.New("timeout"), "timeout", time.Second)

	line := strings.TrimSpace(buf.String())
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	assert.Equal(t, "reinstall failed", entry["msg"])
	assert.Equal(t, "node-a", entry["node"])
	assert.EqualValues(t, 2, entry["server_id"])
	assert.NotContains(t, line, "hunter2")
}

func TestErrorLevelFiltersInfo(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerFromConfig("error", "text", false, &buf)

	l.LogBatchStart(2)
	assert.Empty(t, buf.String())
}

func TestPerServerOutcomesAreDebugOnly(t *testing.T) {
	var buf bytes.Buffer
	s := server.Server{ID: 1, Name: "alpha", Node: server.Node{Name: "node-a"}}

	l := NewLoggerFromConfig("info", "text", false, &buf)
	l.LogReinstall(s, time.Millisecond)
	l.LogReinstallError(s, errors.New("refused"), "connectivity", time.Millisecond)
	assert.Empty(t, buf.String())

	l = NewLoggerFromConfig("debug", "json", false, &buf)
	l.LogReinstallError(s, errors.New("refused"), "connectivity", time.Millisecond)
	assert.Contains(t, buf.String(), `"msg":"reinstall failed"`)
	assert.Contains(t, buf.String(), `"error_type":"connectivity"`)
}
