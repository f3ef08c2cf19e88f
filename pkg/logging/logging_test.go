package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogger_Infof(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)

	l.Infof("hello %s", "world")

	assert.Contains(t, buf.String(), "INFO")
	assert.Contains(t, buf.String(), "hello world")
}

func TestLogger_Warnf(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)

	l.Warnf("disk at %d%%", 90)

	assert.Contains(t, buf.String(), "WARN")
	assert.Contains(t, buf.String(), "disk at 90%")
}

func TestLogger_Errorf(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)

	l.Errorf("job %s failed", "job_1")

	assert.Contains(t, buf.String(), "ERROR")
	assert.Contains(t, buf.String(), "job job_1 failed")
}

func TestNew_NilWriterFallsBackToStderr(t *testing.T) {
	l := New(nil)
	assert.NotNil(t, l)
}

func TestDefault_ReturnsSharedLogger(t *testing.T) {
	assert.Same(t, std, Default())
}

func TestPackageLevelHelpers_WriteToDefaultLogger(t *testing.T) {
	var buf bytes.Buffer
	prev := std
	std = New(&buf)
	defer func() { std = prev }()

	Infof("a %d", 1)
	Warnf("b %d", 2)
	Errorf("c %d", 3)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if assert.Len(t, lines, 3) {
		assert.Contains(t, lines[0], "a 1")
		assert.Contains(t, lines[1], "b 2")
		assert.Contains(t, lines[2], "c 3")
	}
}
