package ipc

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"strconv"
	"sync"
	"time"

	"codeberg.org/mutker/dashmon/internal/errors"
	"codeberg.org/mutker/dashmon/internal/logger"
)

// Packet is one received datagram. Payload is owned by the handler.
type Packet struct {
	Payload []byte
	From    *net.UDPAddr
}

// Handler is called on the receive goroutine.
type Handler func(Packet)

// SubscriptionID identifies a registered handler.
type SubscriptionID uint64

type subscription struct {
	id SubscriptionID
	fn Handler
}

// Endpoint receives on one UDP port and sends to a fixed peer port.
type Endpoint struct {
	cfg    Config
	conn   *net.UDPConn
	peer   *net.UDPAddr
	logger logger.Logger

	mu     sync.RWMutex
	subs   []subscription
	nextID SubscriptionID

	closeOnce sync.Once
	done      chan struct{}
}

func Listen(cfg Config, log logger.Logger) (*Endpoint, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	local, err := net.ResolveUDPAddr("udp", net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.ListenPort)))
	if err != nil {
		return nil, errFactory.Wrap(ErrResolveFailed, err)
	}
	peer, err := net.ResolveUDPAddr("udp", net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.PeerPort)))
	if err != nil {
		return nil, errFactory.Wrap(ErrResolveFailed, err)
	}

	conn, err := net.ListenUDP("udp", local)
	if err != nil {
		return nil, errFactory.Wrap(ErrListenFailed, err)
	}

	log.Info().
		Str("listen", conn.LocalAddr().String()).
		Str("peer", peer.String()).
		Msg("IPC endpoint listening")

	return &Endpoint{
		cfg:    cfg,
		conn:   conn,
		peer:   peer,
		logger: log,
		done:   make(chan struct{}),
	}, nil
}

// LocalAddr returns the bound receive address.
func (e *Endpoint) LocalAddr() *net.UDPAddr {
	addr, _ := e.conn.LocalAddr().(*net.UDPAddr)
	return addr
}

// Subscribe registers fn after every existing handler.
func (e *Endpoint) Subscribe(fn Handler) SubscriptionID {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.nextID++
	e.subs = append(e.subs, subscription{id: e.nextID, fn: fn})

	return e.nextID
}

// Unsubscribe removes a handler and reports whether it was registered.
func (e *Endpoint) Unsubscribe(id SubscriptionID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i, sub := range e.subs {
		if sub.id == id {
			e.subs = append(e.subs[:i:i], e.subs[i+1:]...)
			return true
		}
	}

	return false
}

// Send writes text to the peer as one datagram.
func (e *Endpoint) Send(text string) error {
	return e.send([]byte(text))
}

// SendJSON encodes v and sends it as one datagram.
func (e *Endpoint) SendJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.New().Wrap(ErrEncodeFailed, err)
	}

	return e.send(data)
}

func (e *Endpoint) send(data []byte) error {
	errFactory := errors.New()

	if len(data) > MaxMessageSize {
		return errFactory.WithData(ErrMessageTooLarge, len(data))
	}

	select {
	case <-e.done:
		return errFactory.New(ErrClosed)
	default:
	}

	if _, err := e.conn.WriteToUDP(data, e.peer); err != nil {
		return errFactory.Wrap(ErrSendFailed, err)
	}

	return nil
}

// Serve runs the receive loop until ctx is cancelled or the endpoint is
// closed. Oversized datagrams are dropped.
func (e *Endpoint) Serve(ctx context.Context) error {
	errFactory := errors.New()

	// one extra byte tells an oversized datagram from one that fits exactly
	buf := make([]byte, MaxMessageSize+1)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-e.done:
			return nil
		default:
		}

		if err := e.conn.SetReadDeadline(time.Now().Add(e.cfg.ReadTimeout)); err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return errFactory.Wrap(ErrReceiveFailed, err)
		}

		n, from, err := e.conn.ReadFromUDP(buf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			e.logger.Warn().Err(err).Msg("Failed to read IPC datagram")
			continue
		}

		if n > MaxMessageSize {
			e.logger.Warn().Str("from", from.String()).Msg("Dropping oversized IPC datagram")
			continue
		}

		e.dispatch(Packet{Payload: bytes.Clone(buf[:n]), From: from})
	}
}

func (e *Endpoint) dispatch(p Packet) {
	e.mu.RLock()
	subs := make([]subscription, len(e.subs))
	copy(subs, e.subs)
	e.mu.RUnlock()

	for _, sub := range subs {
		e.call(sub, p)
	}
}

func (e *Endpoint) call(sub subscription, p Packet) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error().
				Uint64("subscription", uint64(sub.id)).
				Interface("panic", r).
				Msg("IPC handler panicked")
		}
	}()

	sub.fn(p)
}

// Close stops the receive loop and releases the socket.
func (e *Endpoint) Close() error {
	var err error
	e.closeOnce.Do(func() {
		close(e.done)
		if cerr := e.conn.Close(); cerr != nil {
			err = errors.New().Wrap(errors.ErrShutdownFailed, cerr)
		}
	})

	return err
}
