package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/forzalog/lap-engine-go/log"
	"github.com/forzalog/lap-engine-go/pkg/processing"
)

const defaultTelemetryPort = 9999

// PayloadFunc receives one UDP payload together with its capture
// timestamp.
type PayloadFunc func(payload []byte, captured time.Time) error

// WalkCapture iterates the UDP payloads of a capture file in capture
// order, calling fn for every datagram addressed to port. Classic pcap
// and pcapng files are both understood.
func WalkCapture(ctx context.Context, fileName string, port int, fn PayloadFunc) error {
	f, err := os.Open(fileName)
	if err != nil {
		return fmt.Errorf("could not open capture %s: %w", fileName, err)
	}
	defer f.Close()
	return walkCaptureReader(ctx, f, port, fn)
}

func walkCaptureReader(ctx context.Context, r io.ReadSeeker, port int, fn PayloadFunc) error {
	src, linkType, err := openCapture(r)
	if err != nil {
		return err
	}
	packets := gopacket.NewPacketSource(src, linkType)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		packet, err := packets.NextPacket()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("could not read packet: %w", err)
		}
		udp, ok := packet.Layer(layers.LayerTypeUDP).(*layers.UDP)
		if !ok || int(udp.DstPort) != port || len(udp.Payload) == 0 {
			continue
		}
		if err := fn(udp.Payload, packet.Metadata().Timestamp); err != nil {
			return err
		}
	}
}

// openCapture probes the stream format. pcapng files fail the classic
// magic check, so retry from the start with the ng reader.
func openCapture(r io.ReadSeeker) (gopacket.PacketDataSource, layers.LinkType, error) {
	if pr, err := pcapgo.NewReader(r); err == nil {
		return pr, pr.LinkType(), nil
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, 0, fmt.Errorf("could not rewind capture: %w", err)
	}
	ngr, err := pcapgo.NewNgReader(r, pcapgo.DefaultNgReaderOptions)
	if err != nil {
		return nil, 0, fmt.Errorf("not a pcap or pcapng capture: %w", err)
	}
	return ngr, ngr.LinkType(), nil
}

// Replayer feeds a recorded session through the processor, pacing
// datagrams by their capture timestamps.
type Replayer struct {
	fileName string
	port     int
	speed    int
	l        *log.Logger
	proc     *processing.Processor
}

type ReplayerOption func(*Replayer)

// WithSpeed sets the replay speed factor. 1 replays in real time,
// higher values proportionally faster, 0 as fast as possible.
func WithSpeed(speed int) ReplayerOption {
	return func(r *Replayer) { r.speed = speed }
}

func WithPort(port int) ReplayerOption {
	return func(r *Replayer) { r.port = port }
}

func WithReplayerLogger(logger *log.Logger) ReplayerOption {
	return func(r *Replayer) { r.l = logger }
}

func NewReplayer(fileName string, proc *processing.Processor, opts ...ReplayerOption) *Replayer {
	ret := &Replayer{
		fileName: fileName,
		port:     defaultTelemetryPort,
		speed:    1,
		l:        log.Default().Named("replay"),
		proc:     proc,
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

func (r *Replayer) Run(ctx context.Context) error {
	r.l.Info("replaying capture",
		log.String("file", r.fileName),
		log.Int("port", r.port),
		log.Int("speed", r.speed))

	var lastTs time.Time
	count := 0
	err := WalkCapture(ctx, r.fileName, r.port, func(payload []byte, captured time.Time) error {
		if !lastTs.IsZero() {
			delta := captured.Sub(lastTs)
			if delta > 0 && r.speed > 0 {
				time.Sleep(time.Duration(int(delta.Nanoseconds()) / r.speed))
			}
		}
		lastTs = captured
		count++
		r.proc.ProcessDatagram(ctx, payload)
		return nil
	})
	if err != nil {
		return err
	}
	r.l.Info("replay finished", log.Int("datagrams", count))
	return nil
}
