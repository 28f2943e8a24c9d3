package logging

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlasvoyages/cruisesync/internal/domain/shared"
)

func TestTextFormatIncludesSortedMetadata(t *testing.T) {
	var buf bytes.Buffer
	clock := shared.NewMockClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	logger := NewWriterLogger(&buf, "info", "text", clock)

	logger.Log("info", "sync started", map[string]interface{}{"runId": "abc", "files": 3})

	line := buf.String()
	assert.Contains(t, line, "2026-03-01 12:00:00 [INFO] sync started")
	assert.Contains(t, line, "files=3 runId=abc")
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	clock := shared.NewMockClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	logger := NewWriterLogger(&buf, "debug", "json", clock)

	logger.Log("warn", "slow download", map[string]interface{}{"path": "/2026/05/7/231/1.json"})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "slow download", entry["message"])
	assert.Equal(t, "/2026/05/7/231/1.json", entry["path"])
}

func TestLevelThresholdFiltersLowSeverity(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(&buf, "warn", "text", shared.NewRealClock())

	logger.Log("debug", "noise", nil)
	logger.Log("info", "noise", nil)
	assert.Empty(t, buf.String())

	logger.Log("error", "boom", nil)
	assert.Contains(t, buf.String(), "[ERROR] boom")
}

func TestUnknownLevelTreatedAsInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(&buf, "info", "text", shared.NewRealClock())

	logger.Log("shout", "hello", nil)
	assert.Contains(t, buf.String(), "[INFO] hello")
}
