package ipc

import "codeberg.org/mutker/dashmon/internal/errors"

const (
	ErrInvalidConfig   = errors.ErrInvalidConfig
	ErrListenFailed    = errors.ErrorCode("ipc_listen_failed")
	ErrResolveFailed   = errors.ErrorCode("ipc_resolve_failed")
	ErrSendFailed      = errors.ErrorCode("ipc_send_failed")
	ErrReceiveFailed   = errors.ErrorCode("ipc_receive_failed")
	ErrMessageTooLarge = errors.ErrorCode("ipc_message_too_large")
	ErrEncodeFailed    = errors.ErrorCode("ipc_encode_failed")
	ErrDecodeFailed    = errors.ErrorCode("ipc_decode_failed")
	ErrClosed          = errors.ErrorCode("ipc_closed")
)
