package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogConfigApplyRejectsUnknownLevel(t *testing.T) {
	var c = LogConfig{Level: "not-a-level", Format: "text"}
	assert.Error(t, c.Apply())
}

func TestLogConfigApplyRejectsUnknownFormat(t *testing.T) {
	var c = LogConfig{Level: "info", Format: "xml"}
	assert.Error(t, c.Apply())
}

func TestLogConfigApplyAcceptsKnownValues(t *testing.T) {
	assert.NoError(t, LogConfig{Level: "debug", Format: "json"}.Apply())
	assert.NoError(t, LogConfig{Level: "warn", Format: "text"}.Apply())
}
