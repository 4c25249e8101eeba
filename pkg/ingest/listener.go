// Package ingest feeds the processing pipeline, either live from a UDP
// socket or offline from a packet capture.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/forzalog/lap-engine-go/log"
	"github.com/forzalog/lap-engine-go/pkg/processing"
)

const (
	defaultReadBuffer = 1 << 20
	// short read deadline so context cancellation is noticed between
	// datagrams; the game sends at 60 Hz when a session runs
	readDeadline = time.Second
	// largest Forza datagram is well below one MTU
	maxDatagram = 2048
)

// Listener receives telemetry datagrams on a UDP socket and hands each
// one to the processor.
type Listener struct {
	addr   string
	rcvBuf int
	l      *log.Logger
	proc   *processing.Processor
}

type ListenerOption func(*Listener)

func WithReadBuffer(size int) ListenerOption {
	return func(l *Listener) { l.rcvBuf = size }
}

func WithListenerLogger(logger *log.Logger) ListenerOption {
	return func(l *Listener) { l.l = logger }
}

func NewListener(addr string, proc *processing.Processor, opts ...ListenerOption) *Listener {
	ret := &Listener{
		addr:   addr,
		rcvBuf: defaultReadBuffer,
		l:      log.Default().Named("udp"),
		proc:   proc,
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Run blocks reading datagrams until ctx is done. Timeouts cycle the
// read so cancellation is picked up; other read errors are logged and
// the socket keeps serving.
func (l *Listener) Run(ctx context.Context) error {
	addr, err := net.ResolveUDPAddr("udp", l.addr)
	if err != nil {
		return fmt.Errorf("could not resolve listen address %s: %w", l.addr, err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("could not listen on %s: %w", l.addr, err)
	}
	defer conn.Close()

	if err := conn.SetReadBuffer(l.rcvBuf); err != nil {
		l.l.Warn("could not set receive buffer",
			log.Int("size", l.rcvBuf), log.ErrorField(err))
	}
	l.l.Info("listening for telemetry", log.String("addr", l.addr))

	buf := make([]byte, maxDatagram)
	for {
		select {
		case <-ctx.Done():
			l.l.Info("listener stopping")
			return nil
		default:
			if err := conn.SetReadDeadline(time.Now().Add(readDeadline)); err != nil {
				return fmt.Errorf("could not set read deadline: %w", err)
			}
			n, _, err := conn.ReadFromUDP(buf)
			if err != nil {
				var netErr net.Error
				if errors.As(err, &netErr) && netErr.Timeout() {
					continue
				}
				if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
					return nil
				}
				l.l.Error("read error", log.ErrorField(err))
				continue
			}
			l.proc.ProcessDatagram(ctx, buf[:n])
		}
	}
}
