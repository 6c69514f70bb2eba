package monitoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetLogger(t *testing.T) {
	lines := captureLogs(t)
	Logf("wrote %d files", 3)
	assert.Equal(t, []string{"wrote 3 files"}, *lines)
}

func TestSetLoggerNilMutes(t *testing.T) {
	original := Logf
	t.Cleanup(func() { Logf = original })

	SetLogger(nil)
	assert.NotPanics(t, func() { Logf("dropped %s", "line") })
}
