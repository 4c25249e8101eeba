package model

import "time"

// Lap is one finalized lap of a telemetry session.
type Lap struct {
	ID           string         `json:"id"`
	Number       int            `json:"lapNumber"`
	Player       string         `json:"player"`
	TrackOrdinal int32          `json:"trackOrdinal"`
	LapTime      float64        `json:"lapTime"` // seconds
	Invalid      bool           `json:"invalid"`
	Started      time.Time      `json:"started"`
	Finished     time.Time      `json:"finished"`
	Checkpoints  []Checkpoint   `json:"checkpoints"`
	Trace        []TracePoint   `json:"trace"`
	Crossings    []GateCrossing `json:"gateCrossings"`
	Corners      []Corner       `json:"corners"`
}

// TracePoint is one decimated point of a lap's position trace. Distance is
// measured into the lap, LapTime is the in-lap time at the point.
type TracePoint struct {
	X        float64 `json:"x"`
	Z        float64 `json:"z"`
	Distance float64 `json:"distance"`
	LapTime  float64 `json:"lapTime"`
	Speed    float64 `json:"speed"` // m/s
	Brake    float64 `json:"brake"` // 0..1
	Throttle float64 `json:"throttle"`
	Steer    float64 `json:"steer"` // -1..1
	Gear     uint8   `json:"gear"`
	RpmPct   float64 `json:"rpmPct"` // 0..1 of the rev range
}

func (p TracePoint) Point() Point { return Point{X: p.X, Z: p.Z} }

// Checkpoint is a coarse marker roughly every 500m of a lap.
type Checkpoint struct {
	Distance float64 `json:"distance"`
	LapTime  float64 `json:"lapTime"`
	Speed    float64 `json:"speed"`
}

// GateCrossing records the car passing a timing gate.
type GateCrossing struct {
	GateIndex    int     `json:"gateIndex"`
	GateDistance float64 `json:"gateDistance"`
	LapTime      float64 `json:"lapTime"`
	Speed        float64 `json:"speed"`
}

// Corner is a braking/steering phase of a lap, extracted from the trace.
// Start/End are distances into the lap; Num is 1-based in track order.
type Corner struct {
	Num      int     `json:"num"`
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	MaxBrake float64 `json:"maxBrake"`
	MinSpeed float64 `json:"minSpeed"`
	AvgSteer float64 `json:"avgSteer"`
}
