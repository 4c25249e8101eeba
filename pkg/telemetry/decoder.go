// Package telemetry decodes the "data out" UDP datagrams emitted by the
// Forza titles. Three wire variants exist; which one applies is decided
// once per datagram from its length alone:
//
//	< 232 bytes          rejected (ErrTooShort)
//	232..299 bytes       fixed section only
//	300..323 bytes       fixed + extended section at offset 232
//	>= 324 bytes         fixed + extended section at offset 244 (the game
//	                     inserts a 12 byte alignment gap after the fixed
//	                     section in these builds)
//
// All values are little-endian. A trailing 20 byte tire block (4 wear
// floats + track ordinal) exists only when the datagram reaches 100 bytes
// past the extended offset.
package telemetry

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/forzalog/lap-engine-go/pkg/model"
)

const (
	fixedSectionLen   = 232
	extendedMinLen    = 300
	extendedGapMinLen = 324

	extOffsetNoGap   = 232
	extOffsetWithGap = 244

	// relative to the extended offset: one pad byte after the int8 run,
	// then 4 wear floats and the track ordinal
	tireBlockOffset = 80
	tireBlockLen    = 20
)

var (
	// ErrTooShort rejects datagrams smaller than the fixed section.
	ErrTooShort = errors.New("telemetry: datagram too short")
	// ErrTruncated rejects datagrams whose length class promises data the
	// buffer does not contain. No partial sample is ever returned.
	ErrTruncated = errors.New("telemetry: datagram truncated")
)

// LayoutFor picks the wire variant for a datagram of the given size.
func LayoutFor(size int) (model.WireLayout, error) {
	switch {
	case size < fixedSectionLen:
		return model.LayoutFixedOnly, fmt.Errorf("%w: %d bytes", ErrTooShort, size)
	case size < extendedMinLen:
		return model.LayoutFixedOnly, nil
	case size < extendedGapMinLen:
		return model.LayoutExtendedNoGap, nil
	default:
		return model.LayoutExtendedWithGap, nil
	}
}

// ExtendedOffset is the byte offset of the extended section for the given
// layout, or -1 when the layout has none.
func ExtendedOffset(layout model.WireLayout) int {
	switch layout {
	case model.LayoutExtendedNoGap:
		return extOffsetNoGap
	case model.LayoutExtendedWithGap:
		return extOffsetWithGap
	default:
		return -1
	}
}

// Decode turns one datagram into a TelemetrySample. It never panics on
// malformed input; a datagram is either decoded completely (for its
// layout) or rejected with ErrTooShort/ErrTruncated.
func Decode(buf []byte) (*model.TelemetrySample, error) {
	layout, err := LayoutFor(len(buf))
	if err != nil {
		return nil, err
	}
	r := reader{buf: buf}
	s := model.TelemetrySample{Layout: layout}
	decodeFixed(&r, &s)
	if layout != model.LayoutFixedOnly {
		off := ExtendedOffset(layout)
		r.seek(off)
		decodeExtended(&r, &s)
		if len(buf) >= off+tireBlockOffset+tireBlockLen {
			r.seek(off + tireBlockOffset)
			decodeTireBlock(&r, &s)
		}
	}
	if r.err != nil {
		return nil, r.err
	}
	return &s, nil
}

func decodeFixed(r *reader, s *model.TelemetrySample) {
	s.IsRaceOn = r.i32()
	s.TimestampMS = r.u32()
	s.EngineMaxRpm = r.f32()
	s.EngineIdleRpm = r.f32()
	s.CurrentEngineRpm = r.f32()
	s.AccelX = r.f32()
	s.AccelY = r.f32()
	s.AccelZ = r.f32()
	s.VelX = r.f32()
	s.VelY = r.f32()
	s.VelZ = r.f32()
	s.AngVelX = r.f32()
	s.AngVelY = r.f32()
	s.AngVelZ = r.f32()
	s.Yaw = r.f32()
	s.Pitch = r.f32()
	s.Roll = r.f32()
	s.NormSuspFL = r.f32()
	s.NormSuspFR = r.f32()
	s.NormSuspRL = r.f32()
	s.NormSuspRR = r.f32()
	s.TireSlipFL = r.f32()
	s.TireSlipFR = r.f32()
	s.TireSlipRL = r.f32()
	s.TireSlipRR = r.f32()
	s.WheelRotFL = r.f32()
	s.WheelRotFR = r.f32()
	s.WheelRotRL = r.f32()
	s.WheelRotRR = r.f32()
	s.WheelOnRumbleFL = r.i32()
	s.WheelOnRumbleFR = r.i32()
	s.WheelOnRumbleRL = r.i32()
	s.WheelOnRumbleRR = r.i32()
	s.WheelInPuddleFL = r.f32()
	s.WheelInPuddleFR = r.f32()
	s.WheelInPuddleRL = r.f32()
	s.WheelInPuddleRR = r.f32()
	s.SurfaceRumbleFL = r.f32()
	s.SurfaceRumbleFR = r.f32()
	s.SurfaceRumbleRL = r.f32()
	s.SurfaceRumbleRR = r.f32()
	s.TireSlipAngleFL = r.f32()
	s.TireSlipAngleFR = r.f32()
	s.TireSlipAngleRL = r.f32()
	s.TireSlipAngleRR = r.f32()
	s.TireCombinedSlipFL = r.f32()
	s.TireCombinedSlipFR = r.f32()
	s.TireCombinedSlipRL = r.f32()
	s.TireCombinedSlipRR = r.f32()
	s.SuspTravelFL = r.f32()
	s.SuspTravelFR = r.f32()
	s.SuspTravelRL = r.f32()
	s.SuspTravelRR = r.f32()
	s.CarOrdinal = r.i32()
	s.CarClass = r.i32()
	s.CarPerformanceIndex = r.i32()
	s.DrivetrainType = r.i32()
	s.NumCylinders = r.i32()
}

func decodeExtended(r *reader, s *model.TelemetrySample) {
	s.PosX = r.f32()
	s.PosY = r.f32()
	s.PosZ = r.f32()
	s.Speed = r.f32()
	s.Power = r.f32()
	s.Torque = r.f32()
	s.TireTempFL = r.f32()
	s.TireTempFR = r.f32()
	s.TireTempRL = r.f32()
	s.TireTempRR = r.f32()
	s.Boost = r.f32()
	s.Fuel = r.f32()
	s.Distance = r.f32()
	s.BestLap = r.f32()
	s.LastLap = r.f32()
	s.CurrentLap = r.f32()
	s.CurrentRaceTime = r.f32()
	s.LapNumber = r.u16()
	s.RacePosition = r.u8()
	s.Accel = r.u8()
	s.Brake = r.u8()
	s.Clutch = r.u8()
	s.HandBrake = r.u8()
	s.Gear = r.u8()
	s.Steer = r.i8()
	s.NormDrivingLine = r.i8()
	s.NormAIBrakeDiff = r.i8()
}

func decodeTireBlock(r *reader, s *model.TelemetrySample) {
	s.TireWearFL = r.f32()
	s.TireWearFR = r.f32()
	s.TireWearRL = r.f32()
	s.TireWearRR = r.f32()
	s.TrackOrdinal = r.i32()
	if r.err == nil {
		s.HasTireWear = true
	}
}

// reader walks a buffer with a sticky error: the first out-of-bounds read
// records ErrTruncated and every later read yields zero values.
type reader struct {
	buf []byte
	off int
	err error
}

func (r *reader) avail(n int) bool {
	if r.err != nil {
		return false
	}
	if r.off+n > len(r.buf) {
		r.err = fmt.Errorf("%w: need %d bytes at offset %d, have %d",
			ErrTruncated, n, r.off, len(r.buf))
		return false
	}
	return true
}

func (r *reader) seek(off int) {
	if r.err == nil {
		r.off = off
	}
}

func (r *reader) u32() uint32 {
	if !r.avail(4) {
		return 0
	}
	v := binary.LittleEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v
}

func (r *reader) u16() uint16 {
	if !r.avail(2) {
		return 0
	}
	v := binary.LittleEndian.Uint16(r.buf[r.off:])
	r.off += 2
	return v
}

func (r *reader) u8() uint8 {
	if !r.avail(1) {
		return 0
	}
	v := r.buf[r.off]
	r.off++
	return v
}

func (r *reader) f32() float32 { return math.Float32frombits(r.u32()) }
func (r *reader) i32() int32   { return int32(r.u32()) }
func (r *reader) i8() int8     { return int8(r.u8()) }
