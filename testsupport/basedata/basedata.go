// Package basedata provides fixtures shared by tests: synthetic gate
// tables and populated telemetry samples.
package basedata

import (
	"fmt"
	"math"

	"github.com/forzalog/lap-engine-go/pkg/model"
	"github.com/forzalog/lap-engine-go/pkg/track"
)

// CircleGates builds the gate file of a circular test track: gateCount
// gates evenly spaced on a circle of the given radius, travel direction
// counter-clockwise, each gate width meters wide across the racing line.
func CircleGates(gateCount int, radius, width float64) *model.GateFile {
	spacing := 2 * math.Pi * radius / float64(gateCount)
	gates := make([]model.Gate, gateCount)
	for i := range gates {
		s := float64(i) * spacing
		theta := s / radius
		sin, cos := math.Sin(theta), math.Cos(theta)
		center := model.Point{X: radius * cos, Z: radius * sin}
		tangent := model.Point{X: -sin, Z: cos}
		// lateral = tangent rotated 90°; endpoints straddle the circle
		inner := model.Point{X: (radius - width/2) * cos, Z: (radius - width/2) * sin}
		outer := model.Point{X: (radius + width/2) * cos, Z: (radius + width/2) * sin}
		gates[i] = model.Gate{
			Index:    i,
			Center:   center,
			Normal:   tangent,
			P1:       inner,
			P2:       outer,
			Distance: s,
		}
	}
	return &model.GateFile{
		Version: track.GateFileVersion,
		Name:    fmt.Sprintf("circle-%dm", int(radius)),
		Spacing: spacing,
		Width:   width,
		Gates:   gates,
	}
}

// CircleTable is CircleGates parsed into a validated GateTable. A failure
// here is a fixture bug, so it panics.
func CircleTable(gateCount int, radius, width float64) *track.GateTable {
	t, err := track.FromGateFile(CircleGates(gateCount, radius, width))
	if err != nil {
		panic(err)
	}
	return t
}

// CirclePos is the car position after driving s meters on the circular
// test track (counter-clockwise, starting at angle 0).
func CirclePos(radius, s float64) model.Point {
	theta := s / radius
	return model.Point{X: radius * math.Cos(theta), Z: radius * math.Sin(theta)}
}

// StraightGates builds the gate file of a straight test strip: one gate
// per x position, facing +X, each width meters across the x axis. Gate
// distance equals the x position.
func StraightGates(width float64, xs ...float64) *model.GateFile {
	gates := make([]model.Gate, len(xs))
	for i, x := range xs {
		gates[i] = model.Gate{
			Index:    i,
			Center:   model.Point{X: x, Z: 0},
			Normal:   model.Point{X: 1, Z: 0},
			P1:       model.Point{X: x, Z: -width / 2},
			P2:       model.Point{X: x, Z: width / 2},
			Distance: x,
		}
	}
	spacing := 0.0
	if len(xs) > 1 {
		spacing = xs[1] - xs[0]
	}
	return &model.GateFile{
		Version: track.GateFileVersion,
		Name:    "straight",
		Spacing: spacing,
		Width:   width,
		Gates:   gates,
	}
}

// StraightTable is StraightGates parsed into a validated GateTable. A
// failure here is a fixture bug, so it panics.
func StraightTable(width float64, xs ...float64) *track.GateTable {
	t, err := track.FromGateFile(StraightGates(width, xs...))
	if err != nil {
		panic(err)
	}
	return t
}

// SampleTelemetry returns a fully populated sample as a Horizon build
// would emit it mid-race. Tests tweak individual fields as needed.
func SampleTelemetry() *model.TelemetrySample {
	return &model.TelemetrySample{
		IsRaceOn:            1,
		TimestampMS:         184039233,
		EngineMaxRpm:        7500,
		EngineIdleRpm:       900,
		CurrentEngineRpm:    4321.5,
		AccelX:              0.12,
		AccelY:              9.81,
		AccelZ:              -0.34,
		VelX:                1.2,
		VelY:                0.01,
		VelZ:                42.3,
		AngVelX:             0.02,
		AngVelY:             0.31,
		AngVelZ:             -0.01,
		Yaw:                 1.57,
		Pitch:               0.02,
		Roll:                -0.01,
		NormSuspFL:          0.45,
		NormSuspFR:          0.46,
		NormSuspRL:          0.51,
		NormSuspRR:          0.52,
		TireSlipFL:          0.05,
		TireSlipFR:          0.06,
		TireSlipRL:          0.11,
		TireSlipRR:          0.12,
		WheelRotFL:          120.5,
		WheelRotFR:          120.7,
		WheelRotRL:          121.2,
		WheelRotRR:          121.4,
		WheelInPuddleRL:     0.1,
		WheelInPuddleRR:     0.1,
		SurfaceRumbleFL:     0.2,
		SurfaceRumbleFR:     0.2,
		TireSlipAngleFL:     0.03,
		TireSlipAngleFR:     0.04,
		TireSlipAngleRL:     0.05,
		TireSlipAngleRR:     0.06,
		TireCombinedSlipFL:  0.07,
		TireCombinedSlipFR:  0.08,
		TireCombinedSlipRL:  0.13,
		TireCombinedSlipRR:  0.14,
		SuspTravelFL:        0.031,
		SuspTravelFR:        0.032,
		SuspTravelRL:        0.041,
		SuspTravelRR:        0.042,
		CarOrdinal:          2352,
		CarClass:            4,
		CarPerformanceIndex: 831,
		DrivetrainType:      2,
		NumCylinders:        8,
		PosX:                215.3,
		PosY:                89.5,
		PosZ:                -402.8,
		Speed:               42.7,
		Power:               151000,
		Torque:              320.5,
		TireTempFL:          71.2,
		TireTempFR:          72.4,
		TireTempRL:          68.9,
		TireTempRR:          69.3,
		Boost:               8.2,
		Fuel:                0.82,
		Distance:            12345.6,
		BestLap:             92.301,
		LastLap:             93.145,
		CurrentLap:          45.602,
		CurrentRaceTime:     412.77,
		LapNumber:           4,
		RacePosition:        3,
		Accel:               204,
		Brake:               0,
		Clutch:              0,
		HandBrake:           0,
		Gear:                4,
		Steer:               -12,
		NormDrivingLine:     5,
		NormAIBrakeDiff:     -3,
		TireWearFL:          0.021,
		TireWearFR:          0.022,
		TireWearRL:          0.017,
		TireWearRR:          0.018,
		TrackOrdinal:        120,
	}
}
