package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	l := log.New()
	setup(l, &buf, "warn", "json")
	l.AddHook(serviceHook("wardd"))

	l.Info("dropped")
	l.WithField("bed_id", 3).Warn("kept")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "kept", line["message"])
	assert.Equal(t, "warning", line["level"])
	assert.Equal(t, "wardd", line["service"])
	assert.Equal(t, float64(3), line["bed_id"])
	assert.Contains(t, line, "timestamp")
}

func TestSetup_DefaultsOnBadLevel(t *testing.T) {
	l := log.New()
	setup(l, &bytes.Buffer{}, "loud", "text")
	assert.Equal(t, log.InfoLevel, l.GetLevel())
	assert.IsType(t, &log.TextFormatter{}, l.Formatter)
}
