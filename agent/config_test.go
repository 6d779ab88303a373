package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()
	assert.Equal(t, "INFO", c.LogLevel)
	assert.False(t, c.Syslog)
	assert.Empty(t, c.MetricsAddr)
}
