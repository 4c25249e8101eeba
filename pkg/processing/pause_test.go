package processing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/forzalog/lap-engine-go/pkg/model"
)

func TestPauseDetector(t *testing.T) {
	var d PauseDetector

	flagged := func(ts uint32) bool {
		sample := &model.TelemetrySample{TimestampMS: ts}
		d.Flag(sample)
		return sample.Paused
	}

	assert.False(t, flagged(1000), "first sample of a stream is never paused")
	assert.True(t, flagged(1000), "frozen game clock marks a pause")
	assert.True(t, flagged(1000), "pause holds while the clock stands still")
	assert.False(t, flagged(1016), "advancing clock ends the pause")
	assert.True(t, flagged(1016), "a later freeze is detected again")
	assert.False(t, flagged(1033))
}
