package ipc

import (
	"time"

	"codeberg.org/mutker/dashmon/internal/errors"
)

const (
	// MaxMessageSize is the largest datagram sent or accepted.
	MaxMessageSize = 4096

	defaultHost        = "127.0.0.1"
	defaultListenPort  = 5005
	defaultPeerPort    = 5006
	defaultReadTimeout = 250 * time.Millisecond
)

type Config struct {
	Host       string
	ListenPort int
	PeerPort   int
	// ReadTimeout bounds each blocking read so the receive loop notices cancellation
	ReadTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Host:        defaultHost,
		ListenPort:  defaultListenPort,
		PeerPort:    defaultPeerPort,
		ReadTimeout: defaultReadTimeout,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	if c.Host == "" {
		return errFactory.WithMessage(errors.ErrInvalidArgument, "IPC host must not be empty")
	}
	if c.ListenPort < 0 || c.ListenPort > 65535 {
		return errFactory.WithData(errors.ErrInvalidPort, c.ListenPort)
	}
	if c.PeerPort < 1 || c.PeerPort > 65535 {
		return errFactory.WithData(errors.ErrInvalidPort, c.PeerPort)
	}
	if c.ReadTimeout <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.ReadTimeout.String())
	}

	return nil
}
