package errors_test

import (
	"io"
	"testing"

	"codeberg.org/mutker/dashmon/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMessageIncludesCode(t *testing.T) {
	errFactory := errors.New()

	err := errFactory.New(errors.ErrInvalidLogLevel)
	assert.Equal(t, "Invalid log level (invalid_log_level)", err.Error())

	wrapped := errFactory.Wrap(errors.ErrReadConfig, io.ErrUnexpectedEOF)
	assert.Contains(t, wrapped.Error(), "Failed to read config file")
	assert.Contains(t, wrapped.Error(), io.ErrUnexpectedEOF.Error())
}

func TestWrapUnwraps(t *testing.T) {
	errFactory := errors.New()
	err := errFactory.Wrap(errors.ErrOperationFailed, io.EOF)

	require.ErrorIs(t, err, io.EOF)
	assert.Equal(t, errors.ErrOperationFailed, err.Code())
}

func TestIsMatchesByCode(t *testing.T) {
	errFactory := errors.New()
	err := errFactory.Wrap(errors.ErrTimeout, io.EOF)

	assert.ErrorIs(t, err, errFactory.New(errors.ErrTimeout))
	assert.NotErrorIs(t, err, errFactory.New(errors.ErrInternal))
}

func TestHasCode(t *testing.T) {
	errFactory := errors.New()
	inner := errFactory.New(errors.ErrInvalidPort)
	outer := errFactory.Wrap(errors.ErrInvalidConfig, inner)

	assert.True(t, errors.HasCode(outer, errors.ErrInvalidPort))
	assert.True(t, errors.HasCode(outer, errors.ErrInvalidConfig))
	assert.False(t, errors.HasCode(outer, errors.ErrTimeout))
	assert.False(t, errors.HasCode(nil, errors.ErrTimeout))
}

func TestWithDataAndMessage(t *testing.T) {
	errFactory := errors.New()
	err := errFactory.WithData(errors.ErrInvalidArgument, "index out of range")

	assert.Equal(t, "index out of range", err.GetData())
	assert.Contains(t, err.Error(), "index out of range")

	custom := err.WithMessage("bad core index")
	assert.Contains(t, custom.Error(), "bad core index")
	assert.Equal(t, errors.ErrInvalidArgument, custom.Code())
}
