package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetTestOutput(&buf)
	InitLogger("debug")
	t.Cleanup(func() {
		UnsetTestOutput()
		InitLogger("info")
	})
	return &buf
}

func TestInfoWithFields(t *testing.T) {
	buf := capture(t)

	Info("persisted batch", Fields{"table": "users", "records": 3})

	out := buf.String()
	assert.Contains(t, out, "persisted batch")
	assert.Contains(t, out, "table=users")
	assert.Contains(t, out, "records=3")
}

func TestDebugSuppressedAtInfoLevel(t *testing.T) {
	var buf bytes.Buffer
	SetTestOutput(&buf)
	InitLogger("info")
	t.Cleanup(func() {
		UnsetTestOutput()
		InitLogger("info")
	})

	Debugf("sequence %d", 42)
	assert.Empty(t, buf.String())
}

func TestWarnAndError(t *testing.T) {
	buf := capture(t)

	Warnf("retrying in %ds", 2)
	Errorf("gate returned %d", 503)

	out := buf.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "retrying in 2s")
	assert.Contains(t, out, "level=ERROR")
	assert.Contains(t, out, "gate returned 503")
}

func TestSuccessAddsStatusField(t *testing.T) {
	buf := capture(t)

	Success("sync complete")

	assert.Contains(t, buf.String(), "status=success")
}

func TestUnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	SetTestOutput(&buf)
	InitLogger("orange")
	t.Cleanup(func() {
		UnsetTestOutput()
		InitLogger("info")
	})

	Debug("hidden")
	Info("shown")

	assert.False(t, strings.Contains(buf.String(), "hidden"))
	assert.Contains(t, buf.String(), "shown")
}
