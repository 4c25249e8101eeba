//nolint:whitespace,lll,funlen // ok for tests
package processing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forzalog/lap-engine-go/pkg/model"
	"github.com/forzalog/lap-engine-go/pkg/processing/lap"
	"github.com/forzalog/lap-engine-go/pkg/session"
	"github.com/forzalog/lap-engine-go/testsupport/basedata"
	"github.com/forzalog/lap-engine-go/testsupport/wire"
)

// drivingDatagram renders a full-size datagram of a car at (x, 1) on the
// straight test strip, race clock at t seconds.
func drivingDatagram(lapNum int, t, x, dist float64) []byte {
	sample := &model.TelemetrySample{
		IsRaceOn:        1,
		TimestampMS:     uint32(t * 1000),
		Speed:           50,
		PosX:            float32(x),
		PosZ:            1,
		Distance:        float32(dist),
		CurrentRaceTime: float32(t),
		LapNumber:       uint16(lapNum), //nolint:gosec // test values are small
		Gear:            3,
	}
	return wire.Encode(sample, wire.HorizonFullSize)
}

func testProcessor() (*Processor, *session.Store) {
	store := session.NewStore(session.WithPlayer("tester"), session.WithTrack("straight"))
	seg := lap.NewSegmenter(basedata.StraightTable(60, 100, 200, 300, 400, 500),
		lap.WithPlayer("tester"))
	return NewProcessor(WithSegmenter(seg), WithStore(store)), store
}

func drainSamples(proc *Processor) []*model.TelemetrySample {
	var ret []*model.TelemetrySample
	for {
		select {
		case sample := <-proc.SampleSource():
			ret = append(ret, sample)
		default:
			return ret
		}
	}
}

func TestProcessor_EndToEnd(t *testing.T) {
	proc, store := testProcessor()
	ctx := context.Background()

	// one full lap of the 600m strip plus the boundary sample of the next
	for i := range 60 {
		proc.ProcessDatagram(ctx, drivingDatagram(0, float64(i), 5+float64(i)*10, 5+float64(i)*10))
	}
	boundary := &model.TelemetrySample{
		IsRaceOn:        1,
		TimestampMS:     60000,
		Speed:           50,
		PosX:            5,
		PosZ:            1,
		Distance:        605,
		CurrentRaceTime: 60,
		LastLap:         61.5,
		LapNumber:       1,
	}
	proc.ProcessDatagram(ctx, wire.Encode(boundary, wire.HorizonFullSize))

	// the finalized lap landed in the store and on the live channel
	laps := store.Laps()
	require.Len(t, laps, 1)
	assert.Equal(t, 0, laps[0].Number)
	assert.InDelta(t, 61.5, laps[0].LapTime, 1e-6)
	assert.Len(t, laps[0].Crossings, 5)
	assert.False(t, laps[0].Invalid)

	select {
	case live := <-proc.LapSource():
		assert.Equal(t, laps[0], live)
	default:
		t.Fatal("finalized lap missing on the live channel")
	}

	samples := drainSamples(proc)
	assert.Len(t, samples, 61)
	assert.InDelta(t, 5, samples[0].PosX, 1e-6)

	// the lap opened by the boundary sample is still in progress
	partial, ok := proc.Flush()
	require.True(t, ok)
	assert.Equal(t, 1, partial.Number)
	assert.True(t, partial.Invalid)

	proc.Close()
	_, open := <-proc.SampleSource()
	assert.False(t, open)
	_, open = <-proc.LapSource()
	assert.False(t, open)
}

func TestProcessor_DropsUnusableDatagrams(t *testing.T) {
	proc, store := testProcessor()
	ctx := context.Background()

	// too short, truncated extended section, no extended section
	proc.ProcessDatagram(ctx, []byte{1, 2, 3})
	proc.ProcessDatagram(ctx, make([]byte, 305))
	proc.ProcessDatagram(ctx, wire.Encode(basedata.SampleTelemetry(), wire.SledSize))

	assert.Empty(t, drainSamples(proc))
	assert.Empty(t, store.Laps())

	_, ok := proc.Flush()
	assert.False(t, ok, "none of the datagrams may reach the segmenter")
}

func TestProcessor_FlagsPausedSamples(t *testing.T) {
	proc, _ := testProcessor()
	ctx := context.Background()

	proc.ProcessDatagram(ctx, drivingDatagram(0, 1, 15, 15))
	proc.ProcessDatagram(ctx, drivingDatagram(0, 1, 15, 15))
	proc.ProcessDatagram(ctx, drivingDatagram(0, 2, 25, 25))

	samples := drainSamples(proc)
	require.Len(t, samples, 3)
	assert.False(t, samples[0].Paused)
	assert.True(t, samples[1].Paused)
	assert.False(t, samples[2].Paused)
}
