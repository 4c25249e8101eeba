package processing

import "github.com/forzalog/lap-engine-go/pkg/model"

// PauseDetector flags samples sent while the game is paused. The wire
// carries no pause bit, but a paused game keeps streaming datagrams with
// a frozen game clock, so a repeated TimestampMS identifies them. The
// first sample of a stream is never flagged.
type PauseDetector struct {
	seen   bool
	lastTS uint32
}

// Flag sets sample.Paused when the game clock did not advance since the
// previous sample.
func (d *PauseDetector) Flag(sample *model.TelemetrySample) {
	if d.seen && sample.TimestampMS == d.lastTS {
		sample.Paused = true
	}
	d.seen = true
	d.lastTS = sample.TimestampMS
}
