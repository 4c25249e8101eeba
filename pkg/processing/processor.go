// Package processing wires decoding, pause detection and lap
// segmentation into one pipeline and fans results out on channels.
package processing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/forzalog/lap-engine-go/log"
	"github.com/forzalog/lap-engine-go/pkg/model"
	"github.com/forzalog/lap-engine-go/pkg/processing/lap"
	"github.com/forzalog/lap-engine-go/pkg/session"
	"github.com/forzalog/lap-engine-go/pkg/telemetry"
	"github.com/forzalog/lap-engine-go/pkg/track"
)

const (
	sampleChanBuffer = 64
	lapChanBuffer    = 16
)

// Processor turns raw datagrams into samples and laps. ProcessDatagram
// must be called from a single goroutine; the segmentation path is
// stateful. The outgoing channels never block it: consumers that fall
// behind lose live messages, laps stay available in the session store.
type Processor struct {
	log          *log.Logger
	segmenter    *lap.Segmenter
	pauses       PauseDetector
	store        *session.Store
	printSamples bool

	samples chan *model.TelemetrySample
	laps    chan *model.Lap

	metrics procMetrics
}

type ProcessorOption func(proc *Processor)

func WithSegmenter(segmenter *lap.Segmenter) ProcessorOption {
	return func(proc *Processor) { proc.segmenter = segmenter }
}

func WithStore(store *session.Store) ProcessorOption {
	return func(proc *Processor) { proc.store = store }
}

func WithLogger(logger *log.Logger) ProcessorOption {
	return func(proc *Processor) { proc.log = logger }
}

// WithPrintSamples logs every decoded sample on debug level.
func WithPrintSamples(enable bool) ProcessorOption {
	return func(proc *Processor) { proc.printSamples = enable }
}

func NewProcessor(opts ...ProcessorOption) *Processor {
	ret := &Processor{
		log:     log.Default().Named("proc"),
		samples: make(chan *model.TelemetrySample, sampleChanBuffer),
		laps:    make(chan *model.Lap, lapChanBuffer),
	}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.segmenter == nil {
		ret.segmenter = lap.NewSegmenter(track.Default())
	}
	if ret.store == nil {
		ret.store = session.NewStore()
	}
	ret.metrics = setupMetrics(ret.log)
	return ret
}

// SampleSource feeds live consumers with every decoded full sample.
func (p *Processor) SampleSource() <-chan *model.TelemetrySample { return p.samples }

// LapSource feeds live consumers with finalized laps.
func (p *Processor) LapSource() <-chan *model.Lap { return p.laps }

// Store is the session store laps are collected in.
func (p *Processor) Store() *session.Store { return p.store }

// Flush exposes the in-progress lap for end-of-stream reporting.
func (p *Processor) Flush() (*model.Lap, bool) { return p.segmenter.Flush() }

// Close ends the outgoing channels. Call only after the last
// ProcessDatagram returned.
func (p *Processor) Close() {
	close(p.samples)
	close(p.laps)
}

// ProcessDatagram decodes one datagram and runs it through the pipeline.
// Undecodable datagrams and fixed-only variants (no position, no lap
// data) are counted and dropped.
func (p *Processor) ProcessDatagram(ctx context.Context, buf []byte) {
	p.metrics.inc(ctx, p.metrics.datagrams)
	sample, err := telemetry.Decode(buf)
	if err != nil {
		p.metrics.inc(ctx, p.metrics.decodeErrors)
		p.log.Debug("dropping datagram",
			log.Int("size", len(buf)), log.ErrorField(err))
		return
	}
	if !sample.HasExtended() {
		p.metrics.inc(ctx, p.metrics.fixedOnly)
		return
	}
	p.pauses.Flag(sample)
	if p.printSamples {
		p.log.Debug("sample",
			log.Uint32("ts", sample.TimestampMS),
			log.Int("lap", int(sample.LapNumber)),
			log.Float32("dist", sample.Distance),
			log.Float32("speed", sample.Speed),
			log.Bool("paused", sample.Paused))
	}

	if finished, ok := p.segmenter.Process(sample); ok {
		p.store.AddLap(finished)
		p.log.Info("lap finalized",
			log.Int("lap", finished.Number),
			log.Float64("time", finished.LapTime),
			log.Bool("invalid", finished.Invalid),
			log.Int("gates", len(finished.Crossings)),
			log.Int("corners", len(finished.Corners)))
		select {
		case p.laps <- finished:
		default:
			p.metrics.inc(ctx, p.metrics.lapsDropped)
			p.log.Warn("lap channel full, live consumers miss a lap",
				log.Int("lap", finished.Number))
		}
	}

	p.metrics.inc(ctx, p.metrics.samples)
	select {
	case p.samples <- sample:
	default:
		p.metrics.inc(ctx, p.metrics.samplesDropped)
	}
}

// procMetrics counts pipeline activity. A nil counter (metric
// registration failed) just mutes that metric.
type procMetrics struct {
	datagrams      metric.Int64Counter
	decodeErrors   metric.Int64Counter
	fixedOnly      metric.Int64Counter
	samples        metric.Int64Counter
	samplesDropped metric.Int64Counter
	lapsDropped    metric.Int64Counter
}

func (procMetrics) inc(ctx context.Context, c metric.Int64Counter) {
	if c != nil {
		c.Add(ctx, 1)
	}
}

func setupMetrics(logger *log.Logger) procMetrics {
	meter := otel.GetMeterProvider().Meter("fle.processing")
	register := func(name, desc string) metric.Int64Counter {
		c, err := meter.Int64Counter(name,
			metric.WithDescription(desc),
			metric.WithUnit("{count}"))
		if err != nil {
			logger.Error("failed to register metric",
				log.String("metric", name), log.ErrorField(err))
			return nil
		}
		return c
	}
	return procMetrics{
		datagrams:      register("fle.ingest.datagrams", "Number of received datagrams"),
		decodeErrors:   register("fle.ingest.decode_errors", "Number of undecodable datagrams"),
		fixedOnly:      register("fle.ingest.fixed_only", "Number of datagrams without extended section"),
		samples:        register("fle.ingest.samples", "Number of processed samples"),
		samplesDropped: register("fle.ingest.samples_dropped", "Live samples dropped by slow consumers"),
		lapsDropped:    register("fle.ingest.laps_dropped", "Live laps dropped by slow consumers"),
	}
}
