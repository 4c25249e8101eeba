//nolint:whitespace,lll // ok for tests
package lap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forzalog/lap-engine-go/pkg/model"
)

func tracePt(dist, brake, steer, speed float64) model.TracePoint {
	return model.TracePoint{Distance: dist, Brake: brake, Steer: steer, Speed: speed}
}

func TestExtractCorners_BrakingPhase(t *testing.T) {
	trace := []model.TracePoint{
		tracePt(0, 0, 0, 60),
		tracePt(20, 0, 0, 60),
		tracePt(40, 0.8, 0, 55),
		tracePt(60, 0.9, 0, 40),
		tracePt(80, 0.5, 0, 35),
		tracePt(100, 0, 0, 45),
		tracePt(120, 0, 0, 60),
	}
	corners := ExtractCorners(trace)
	require.Len(t, corners, 1)
	c := corners[0]
	assert.Equal(t, 1, c.Num)
	assert.InDelta(t, 40, c.Start, 1e-9)
	assert.InDelta(t, 100, c.End, 1e-9)
	assert.InDelta(t, 0.9, c.MaxBrake, 1e-9)
	assert.InDelta(t, 35, c.MinSpeed, 1e-9)
	assert.InDelta(t, 0, c.AvgSteer, 1e-9)
}

func TestExtractCorners_SteeringPhase(t *testing.T) {
	trace := []model.TracePoint{
		tracePt(0, 0, 0, 50),
		tracePt(20, 0, -0.2, 48),
		tracePt(40, 0, -0.4, 45),
		tracePt(60, 0, -0.3, 47),
		tracePt(80, 0, 0, 50),
	}
	corners := ExtractCorners(trace)
	require.Len(t, corners, 1)
	c := corners[0]
	assert.InDelta(t, 20, c.Start, 1e-9)
	assert.InDelta(t, 80, c.End, 1e-9)
	assert.InDelta(t, -0.3, c.AvgSteer, 1e-9)
	assert.InDelta(t, 45, c.MinSpeed, 1e-9)
}

func TestExtractCorners_NumbersRunInTrackOrder(t *testing.T) {
	trace := []model.TracePoint{
		tracePt(0, 0, 0, 50),
		tracePt(100, 0.5, 0, 40),
		tracePt(130, 0.5, 0, 38),
		tracePt(160, 0, 0, 45),
		tracePt(300, 0, 0.5, 42),
		tracePt(340, 0, 0.6, 40),
		tracePt(380, 0, 0, 50),
	}
	corners := ExtractCorners(trace)
	require.Len(t, corners, 2)
	assert.Equal(t, 1, corners[0].Num)
	assert.InDelta(t, 100, corners[0].Start, 1e-9)
	assert.Equal(t, 2, corners[1].Num)
	assert.InDelta(t, 300, corners[1].Start, 1e-9)
	assert.InDelta(t, 0.55, corners[1].AvgSteer, 1e-9)
}

func TestExtractCorners_TwitchesAndThresholds(t *testing.T) {
	testCases := []struct {
		name  string
		trace []model.TracePoint
	}{
		{
			name: "single point twitch",
			trace: []model.TracePoint{
				tracePt(0, 0, 0, 50),
				tracePt(10, 0.9, 0, 50),
				tracePt(20, 0, 0, 50),
			},
		},
		{
			name: "phase of exactly the minimum length",
			trace: []model.TracePoint{
				tracePt(100, 0.5, 0, 50),
				tracePt(110, 0.5, 0, 50),
				tracePt(120, 0, 0, 50),
			},
		},
		{
			name: "inputs exactly at the thresholds",
			trace: []model.TracePoint{
				tracePt(0, 0.06, 0.16, 50),
				tracePt(30, 0.06, -0.16, 50),
				tracePt(60, 0.06, 0.16, 50),
				tracePt(90, 0, 0, 50),
			},
		},
		{
			name: "phase still open at the end of the trace",
			trace: []model.TracePoint{
				tracePt(0, 0, 0, 50),
				tracePt(50, 0.9, 0, 40),
				tracePt(100, 0.9, 0, 35),
			},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Empty(t, ExtractCorners(tc.trace))
		})
	}
}

func TestExtractCorners_EmptyTrace(t *testing.T) {
	assert.Empty(t, ExtractCorners(nil))
}
