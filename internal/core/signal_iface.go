package core

import "errors"

//go:generate mockgen -destination=mocks/mock_signal_iface.go -package=mocks github.com/dkeye/Mesh/internal/core SignalConnection

var (
	ErrBackpressure     = errors.New("backpressure")
	ErrConnectionClosed = errors.New("connection closed")
)

// Frame is one encoded signaling message.
type Frame []byte

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	// TrySend queues f without blocking. It returns ErrBackpressure when
	// the outbound buffer is full and ErrConnectionClosed after Close.
	TrySend(f Frame) error
	Close()
}
