package lap

import (
	"math"

	"github.com/forzalog/lap-engine-go/pkg/model"
)

const (
	// brake/steer activity above these marks cornering; small corrective
	// inputs on a straight stay below them
	cornerBrakeThreshold = 0.06
	cornerSteerThreshold = 0.16
	// anything shorter is a twitch, not a corner (meters)
	minCornerLength = 20.0
)

// ExtractCorners scans a lap trace for phases of braking or sustained
// steering and reports them numbered 1-based in track order. A phase
// still open when the trace ends is dropped; without the exit there is
// no length to judge it by.
func ExtractCorners(trace []model.TracePoint) []model.Corner {
	var corners []model.Corner
	var cur *model.Corner
	var steerSum float64
	var steerCnt int

	for _, pt := range trace {
		active := pt.Brake > cornerBrakeThreshold ||
			math.Abs(pt.Steer) > cornerSteerThreshold
		switch {
		case active && cur == nil:
			cur = &model.Corner{
				Start:    pt.Distance,
				MaxBrake: pt.Brake,
				MinSpeed: pt.Speed,
			}
			steerSum, steerCnt = pt.Steer, 1
		case active:
			cur.MaxBrake = math.Max(cur.MaxBrake, pt.Brake)
			cur.MinSpeed = math.Min(cur.MinSpeed, pt.Speed)
			steerSum += pt.Steer
			steerCnt++
		case cur != nil:
			cur.End = pt.Distance
			if cur.End-cur.Start > minCornerLength {
				cur.Num = len(corners) + 1
				cur.AvgSteer = steerSum / float64(steerCnt)
				corners = append(corners, *cur)
			}
			cur = nil
		}
	}
	return corners
}
