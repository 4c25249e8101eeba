// Package wire renders TelemetrySamples back into datagrams for tests.
// Offsets are spelled out independently of the decoder so the two cannot
// share a mistake.
package wire

import (
	"encoding/binary"
	"math"

	"github.com/forzalog/lap-engine-go/pkg/model"
)

// Documented datagram sizes of the game variants.
const (
	SledSize        = 232 // fixed section only
	DashSize        = 311 // extended section at 232
	HorizonSize     = 324 // extended section at 244, no tire block
	HorizonFullSize = 344 // extended section at 244 with trailing tire block
)

// Encode renders s into a datagram of the requested size. Sections that do
// not fit the size are clamped, so tests can probe truncation handling
// with lengths the game never sends.
func Encode(s *model.TelemetrySample, size int) []byte {
	w := writer{buf: make([]byte, size)}
	w.putFixed(s)
	var extOff int
	switch {
	case size >= 324:
		extOff = 244
	case size >= 300:
		extOff = 232
	default:
		return w.buf
	}
	w.off = extOff
	w.putExtended(s)
	if size >= extOff+100 {
		w.off = extOff + 80
		w.putTireBlock(s)
	}
	return w.buf
}

type writer struct {
	buf []byte
	off int
}

func (w *writer) u32(v uint32) {
	if w.off+4 <= len(w.buf) {
		binary.LittleEndian.PutUint32(w.buf[w.off:], v)
	}
	w.off += 4
}

func (w *writer) u16(v uint16) {
	if w.off+2 <= len(w.buf) {
		binary.LittleEndian.PutUint16(w.buf[w.off:], v)
	}
	w.off += 2
}

func (w *writer) u8(v uint8) {
	if w.off < len(w.buf) {
		w.buf[w.off] = v
	}
	w.off++
}

func (w *writer) f32(v float32) { w.u32(math.Float32bits(v)) }
func (w *writer) i32(v int32)   { w.u32(uint32(v)) }
func (w *writer) i8(v int8)     { w.u8(uint8(v)) }

func (w *writer) putFixed(s *model.TelemetrySample) {
	w.i32(s.IsRaceOn)
	w.u32(s.TimestampMS)
	w.f32(s.EngineMaxRpm)
	w.f32(s.EngineIdleRpm)
	w.f32(s.CurrentEngineRpm)
	w.f32(s.AccelX)
	w.f32(s.AccelY)
	w.f32(s.AccelZ)
	w.f32(s.VelX)
	w.f32(s.VelY)
	w.f32(s.VelZ)
	w.f32(s.AngVelX)
	w.f32(s.AngVelY)
	w.f32(s.AngVelZ)
	w.f32(s.Yaw)
	w.f32(s.Pitch)
	w.f32(s.Roll)
	w.f32(s.NormSuspFL)
	w.f32(s.NormSuspFR)
	w.f32(s.NormSuspRL)
	w.f32(s.NormSuspRR)
	w.f32(s.TireSlipFL)
	w.f32(s.TireSlipFR)
	w.f32(s.TireSlipRL)
	w.f32(s.TireSlipRR)
	w.f32(s.WheelRotFL)
	w.f32(s.WheelRotFR)
	w.f32(s.WheelRotRL)
	w.f32(s.WheelRotRR)
	w.i32(s.WheelOnRumbleFL)
	w.i32(s.WheelOnRumbleFR)
	w.i32(s.WheelOnRumbleRL)
	w.i32(s.WheelOnRumbleRR)
	w.f32(s.WheelInPuddleFL)
	w.f32(s.WheelInPuddleFR)
	w.f32(s.WheelInPuddleRL)
	w.f32(s.WheelInPuddleRR)
	w.f32(s.SurfaceRumbleFL)
	w.f32(s.SurfaceRumbleFR)
	w.f32(s.SurfaceRumbleRL)
	w.f32(s.SurfaceRumbleRR)
	w.f32(s.TireSlipAngleFL)
	w.f32(s.TireSlipAngleFR)
	w.f32(s.TireSlipAngleRL)
	w.f32(s.TireSlipAngleRR)
	w.f32(s.TireCombinedSlipFL)
	w.f32(s.TireCombinedSlipFR)
	w.f32(s.TireCombinedSlipRL)
	w.f32(s.TireCombinedSlipRR)
	w.f32(s.SuspTravelFL)
	w.f32(s.SuspTravelFR)
	w.f32(s.SuspTravelRL)
	w.f32(s.SuspTravelRR)
	w.i32(s.CarOrdinal)
	w.i32(s.CarClass)
	w.i32(s.CarPerformanceIndex)
	w.i32(s.DrivetrainType)
	w.i32(s.NumCylinders)
}

func (w *writer) putExtended(s *model.TelemetrySample) {
	w.f32(s.PosX)
	w.f32(s.PosY)
	w.f32(s.PosZ)
	w.f32(s.Speed)
	w.f32(s.Power)
	w.f32(s.Torque)
	w.f32(s.TireTempFL)
	w.f32(s.TireTempFR)
	w.f32(s.TireTempRL)
	w.f32(s.TireTempRR)
	w.f32(s.Boost)
	w.f32(s.Fuel)
	w.f32(s.Distance)
	w.f32(s.BestLap)
	w.f32(s.LastLap)
	w.f32(s.CurrentLap)
	w.f32(s.CurrentRaceTime)
	w.u16(s.LapNumber)
	w.u8(s.RacePosition)
	w.u8(s.Accel)
	w.u8(s.Brake)
	w.u8(s.Clutch)
	w.u8(s.HandBrake)
	w.u8(s.Gear)
	w.i8(s.Steer)
	w.i8(s.NormDrivingLine)
	w.i8(s.NormAIBrakeDiff)
}

func (w *writer) putTireBlock(s *model.TelemetrySample) {
	w.f32(s.TireWearFL)
	w.f32(s.TireWearFR)
	w.f32(s.TireWearRL)
	w.f32(s.TireWearRR)
	w.i32(s.TrackOrdinal)
}
