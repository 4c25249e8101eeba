// Package lap turns the continuous telemetry stream into discrete laps:
// it tracks the game's lap counter, collects a decimated position trace
// per lap, validates laps against the gate table and extracts corners.
package lap

import (
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/forzalog/lap-engine-go/pkg/model"
	"github.com/forzalog/lap-engine-go/pkg/track"
)

const (
	// trace points are kept at least this far apart (meters)
	tracePointSpacing = 10.0
	// coarse checkpoints roughly this far apart (meters)
	checkpointSpacing = 500.0
	// laps at or below this duration are menu artifacts, not driving
	minLapSeconds = 0.5
	// traces at most this long skip the crossed-gates check: a lap that
	// barely got going has crossed nothing without having cut the track
	shortTraceLen = 10
)

// Segmenter consumes decoded samples in arrival order and emits finalized
// laps. It is not safe for concurrent use; the processing pipeline owns
// exactly one per session.
type Segmenter struct {
	table  *track.GateTable
	player string
	now    func() time.Time
	newID  func() string

	// monotonization of the game's lap counter, which restarts at 0
	// whenever the player restarts or switches events
	rawSeen    bool
	highestRaw int
	lapOffset  int

	cur *activeLap
}

// activeLap accumulates one lap between two lap counter changes.
type activeLap struct {
	number       int // effective (monotonized) lap number
	id           string
	started      time.Time
	startTime    float64 // game race time at lap start
	startDist    float64 // session odometer at lap start
	lastCpDist   float64
	lastRaceTime float64
	invalid      bool
	trackOrdinal int32
	cursor       *track.Cursor
	trace        []model.TracePoint
	checkpoints  []model.Checkpoint
	crossings    []model.GateCrossing
}

type Option func(*Segmenter)

// WithPlayer sets the player name stamped on emitted laps.
func WithPlayer(name string) Option {
	return func(s *Segmenter) { s.player = name }
}

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Segmenter) { s.now = now }
}

// WithIDSource replaces the lap ID generator, for tests.
func WithIDSource(newID func() string) Option {
	return func(s *Segmenter) { s.newID = newID }
}

func NewSegmenter(table *track.GateTable, opts ...Option) *Segmenter {
	ret := &Segmenter{
		table:  table,
		player: "player",
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Process consumes one sample. When the sample opens a new lap, the
// previous lap is finalized and returned with true, unless its duration
// marks it as a menu artifact. Samples sent outside active driving
// (race off, degenerate position) are dropped without touching any lap
// state, including their lap number.
func (s *Segmenter) Process(sample *model.TelemetrySample) (*model.Lap, bool) {
	if !sample.RaceOn() || !sample.HasExtended() {
		return nil, false
	}
	if sample.PositionDegenerate() {
		return nil, false
	}
	eff := s.effectiveLap(int(sample.LapNumber))
	var done *model.Lap
	if s.cur == nil || eff != s.cur.number {
		done = s.rollLap(eff, sample)
	}
	s.accumulate(sample)
	return done, done != nil
}

// Flush returns a snapshot of the in-progress lap, marked invalid, for
// end-of-stream reporting. Segmenter state is left untouched.
func (s *Segmenter) Flush() (*model.Lap, bool) {
	if s.cur == nil || len(s.cur.trace) == 0 {
		return nil, false
	}
	lap := s.cur
	return &model.Lap{
		ID:           lap.id,
		Number:       lap.number,
		Player:       s.player,
		TrackOrdinal: lap.trackOrdinal,
		LapTime:      lap.lastRaceTime - lap.startTime,
		Invalid:      true,
		Started:      lap.started,
		Finished:     s.now(),
		Checkpoints:  slices.Clone(lap.checkpoints),
		Trace:        slices.Clone(lap.trace),
		Crossings:    slices.Clone(lap.crossings),
		Corners:      ExtractCorners(lap.trace),
	}, true
}

// effectiveLap keeps lap numbers strictly monotonic across game restarts:
// when the raw counter falls back, everything seen so far is folded into
// an offset. Two restarts in a row still yield increasing numbers.
func (s *Segmenter) effectiveLap(raw int) int {
	switch {
	case !s.rawSeen:
		s.rawSeen = true
		s.highestRaw = raw
	case raw < s.highestRaw:
		s.lapOffset += s.highestRaw + 1
		s.highestRaw = raw
	case raw > s.highestRaw:
		s.highestRaw = raw
	}
	return raw + s.lapOffset
}

// rollLap finalizes the active lap (if any) and opens a new one starting
// at the given boundary sample.
func (s *Segmenter) rollLap(eff int, sample *model.TelemetrySample) *model.Lap {
	var done *model.Lap
	if s.cur != nil {
		done = s.finalize(sample)
	}
	s.cur = &activeLap{
		number:     eff,
		id:         s.newID(),
		started:    s.now(),
		startTime:  float64(sample.CurrentRaceTime),
		startDist:  float64(sample.Distance),
		lastCpDist: float64(sample.Distance),
		cursor:     track.NewCursor(s.table, sample.Position()),
	}
	return done
}

// finalize closes the active lap using the first sample of the next one:
// its LastLap field carries the game-measured time of the lap just done.
// When the game did not measure the lap (out laps, restarts) the race
// clock difference fills in. Laps at or below minLapSeconds are dropped.
func (s *Segmenter) finalize(next *model.TelemetrySample) *model.Lap {
	lap := s.cur
	if lap.cursor.Crossed() < s.table.Len()/2 && len(lap.trace) > shortTraceLen {
		lap.invalid = true
	}
	lapTime := float64(next.LastLap)
	if lapTime <= 0 {
		lapTime = float64(next.CurrentRaceTime) - lap.startTime
	}
	if lapTime <= minLapSeconds {
		return nil
	}
	return &model.Lap{
		ID:           lap.id,
		Number:       lap.number,
		Player:       s.player,
		TrackOrdinal: lap.trackOrdinal,
		LapTime:      lapTime,
		Invalid:      lap.invalid,
		Started:      lap.started,
		Finished:     s.now(),
		Checkpoints:  lap.checkpoints,
		Trace:        lap.trace,
		Crossings:    lap.crossings,
		Corners:      ExtractCorners(lap.trace),
	}
}

func (s *Segmenter) accumulate(sample *model.TelemetrySample) {
	lap := s.cur
	if sample.Paused {
		// time keeps passing on a paused game; the lap is no longer
		// comparable and stays invalid even after resuming
		lap.invalid = true
		return
	}
	if sample.HasTireWear {
		lap.trackOrdinal = sample.TrackOrdinal
	}
	lap.lastRaceTime = float64(sample.CurrentRaceTime)

	rel := float64(sample.Distance) - lap.startDist
	inLap := float64(sample.CurrentRaceTime) - lap.startTime

	if n := len(lap.trace); n == 0 || rel > lap.trace[n-1].Distance+tracePointSpacing {
		pt := model.TracePoint{
			X:        float64(sample.PosX),
			Z:        float64(sample.PosZ),
			Distance: rel,
			LapTime:  inLap,
			Speed:    float64(sample.Speed),
			Brake:    sample.NormBrake(),
			Throttle: sample.NormThrottle(),
			Steer:    sample.NormSteer(),
			Gear:     sample.Gear,
			RpmPct:   sample.NormRpm(),
		}
		if n > 0 {
			prev := lap.trace[n-1].Point()
			for _, g := range lap.cursor.Advance(prev, pt.Point()) {
				lap.crossings = append(lap.crossings, model.GateCrossing{
					GateIndex:    g.Index,
					GateDistance: g.Distance,
					LapTime:      inLap,
					Speed:        float64(sample.Speed),
				})
			}
		}
		lap.trace = append(lap.trace, pt)
	}

	if float64(sample.Distance)-lap.lastCpDist > checkpointSpacing {
		lap.checkpoints = append(lap.checkpoints, model.Checkpoint{
			Distance: rel,
			LapTime:  inLap,
			Speed:    float64(sample.Speed),
		})
		lap.lastCpDist = float64(sample.Distance)
	}
}
