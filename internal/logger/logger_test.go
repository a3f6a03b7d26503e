package logger

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDebug_SilentWhenNotVerbose(t *testing.T) {
	buf := &bytes.Buffer{}
	SetOutput(buf)
	SetVerbose(false)
	t.Cleanup(func() { SetOutput(os.Stderr); SetVerbose(false) })

	Debug("hidden %s", "message")
	assert.Empty(t, buf.String())
}

func TestDebug_PrintsWhenVerbose(t *testing.T) {
	buf := &bytes.Buffer{}
	SetOutput(buf)
	SetVerbose(true)
	t.Cleanup(func() { SetVerbose(false) })

	Debug("processing %s", "a.pdf")
	assert.Contains(t, buf.String(), "[DEBUG] processing a.pdf")
}

func TestSection(t *testing.T) {
	buf := &bytes.Buffer{}
	SetOutput(buf)
	SetVerbose(true)
	t.Cleanup(func() { SetVerbose(false) })

	Section("Discovery")
	assert.Contains(t, buf.String(), "=== Discovery ===")
}
