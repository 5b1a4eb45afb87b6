package logger_test

import (
	"bytes"
	"testing"

	"codeberg.org/mutker/dashmon/internal/errors"
	"codeberg.org/mutker/dashmon/internal/logger"
	"github.com/stretchr/testify/assert"
)

func TestComponentLoggerTagsEvents(t *testing.T) {
	var buf bytes.Buffer
	logger.InitWithWriter(&buf, true, false, true)

	logger.New("sampler").With("cpu").Info().Msg("tick")

	assert.Contains(t, buf.String(), "tick")
	assert.Contains(t, buf.String(), "sampler.cpu")
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger.InitWithWriter(&buf, false, false, true)

	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestErrorWithCode(t *testing.T) {
	var buf bytes.Buffer
	logger.InitWithWriter(&buf, false, true, true)

	err := errors.New().New(errors.ErrInvalidPort)
	logger.ErrorWithCode(err).Msg("config rejected")

	assert.Contains(t, buf.String(), "invalid_port")
	assert.Contains(t, buf.String(), "config rejected")
}

func TestParseLevel(t *testing.T) {
	level, ok := logger.ParseLevel("DEBUG")
	assert.True(t, ok)
	assert.Equal(t, logger.DebugLevel, level)

	level, ok = logger.ParseLevel("warning")
	assert.True(t, ok)
	assert.Equal(t, logger.WarnLevel, level)

	_, ok = logger.ParseLevel("loud")
	assert.False(t, ok)
}
