package model

// WireLayout identifies the datagram variant a sample was decoded from.
// It is chosen once per datagram from the buffer length and never changes
// during decoding.
type WireLayout int

const (
	// LayoutFixedOnly carries just the 232 byte fixed section.
	LayoutFixedOnly WireLayout = iota
	// LayoutExtendedNoGap has the extended section directly after the
	// fixed section (offset 232).
	LayoutExtendedNoGap
	// LayoutExtendedWithGap has a 12 byte alignment gap between the fixed
	// and the extended section (offset 244).
	LayoutExtendedWithGap
)

func (w WireLayout) String() string {
	switch w {
	case LayoutFixedOnly:
		return "fixed-only"
	case LayoutExtendedNoGap:
		return "extended-nogap"
	case LayoutExtendedWithGap:
		return "extended-gap"
	}
	return "unknown"
}

// TelemetrySample is one decoded telemetry datagram. Field types match the
// wire. Fields of the extended section stay zero for fixed-only datagrams;
// HasExtended tells the two cases apart.
//
//nolint:maligned // fields are kept in wire order
type TelemetrySample struct {
	Layout WireLayout `json:"-"`
	// Paused is not a wire field. The wire has no pause indicator; the
	// ingest pipeline derives it from the frozen game clock and sets it
	// before the sample reaches any consumer.
	Paused bool `json:"paused"`

	// fixed section
	IsRaceOn            int32   `json:"isRaceOn"`
	TimestampMS         uint32  `json:"timestampMs"`
	EngineMaxRpm        float32 `json:"engineMaxRpm"`
	EngineIdleRpm       float32 `json:"engineIdleRpm"`
	CurrentEngineRpm    float32 `json:"currentEngineRpm"`
	AccelX              float32 `json:"accelX"`
	AccelY              float32 `json:"accelY"`
	AccelZ              float32 `json:"accelZ"`
	VelX                float32 `json:"velX"`
	VelY                float32 `json:"velY"`
	VelZ                float32 `json:"velZ"`
	AngVelX             float32 `json:"angVelX"`
	AngVelY             float32 `json:"angVelY"`
	AngVelZ             float32 `json:"angVelZ"`
	Yaw                 float32 `json:"yaw"`
	Pitch               float32 `json:"pitch"`
	Roll                float32 `json:"roll"`
	NormSuspFL          float32 `json:"normSuspFL"`
	NormSuspFR          float32 `json:"normSuspFR"`
	NormSuspRL          float32 `json:"normSuspRL"`
	NormSuspRR          float32 `json:"normSuspRR"`
	TireSlipFL          float32 `json:"tireSlipFL"`
	TireSlipFR          float32 `json:"tireSlipFR"`
	TireSlipRL          float32 `json:"tireSlipRL"`
	TireSlipRR          float32 `json:"tireSlipRR"`
	WheelRotFL          float32 `json:"wheelRotFL"`
	WheelRotFR          float32 `json:"wheelRotFR"`
	WheelRotRL          float32 `json:"wheelRotRL"`
	WheelRotRR          float32 `json:"wheelRotRR"`
	WheelOnRumbleFL     int32   `json:"wheelOnRumbleFL"`
	WheelOnRumbleFR     int32   `json:"wheelOnRumbleFR"`
	WheelOnRumbleRL     int32   `json:"wheelOnRumbleRL"`
	WheelOnRumbleRR     int32   `json:"wheelOnRumbleRR"`
	WheelInPuddleFL     float32 `json:"wheelInPuddleFL"`
	WheelInPuddleFR     float32 `json:"wheelInPuddleFR"`
	WheelInPuddleRL     float32 `json:"wheelInPuddleRL"`
	WheelInPuddleRR     float32 `json:"wheelInPuddleRR"`
	SurfaceRumbleFL     float32 `json:"surfaceRumbleFL"`
	SurfaceRumbleFR     float32 `json:"surfaceRumbleFR"`
	SurfaceRumbleRL     float32 `json:"surfaceRumbleRL"`
	SurfaceRumbleRR     float32 `json:"surfaceRumbleRR"`
	TireSlipAngleFL     float32 `json:"tireSlipAngleFL"`
	TireSlipAngleFR     float32 `json:"tireSlipAngleFR"`
	TireSlipAngleRL     float32 `json:"tireSlipAngleRL"`
	TireSlipAngleRR     float32 `json:"tireSlipAngleRR"`
	TireCombinedSlipFL  float32 `json:"tireCombinedSlipFL"`
	TireCombinedSlipFR  float32 `json:"tireCombinedSlipFR"`
	TireCombinedSlipRL  float32 `json:"tireCombinedSlipRL"`
	TireCombinedSlipRR  float32 `json:"tireCombinedSlipRR"`
	SuspTravelFL        float32 `json:"suspTravelFL"`
	SuspTravelFR        float32 `json:"suspTravelFR"`
	SuspTravelRL        float32 `json:"suspTravelRL"`
	SuspTravelRR        float32 `json:"suspTravelRR"`
	CarOrdinal          int32   `json:"carOrdinal"`
	CarClass            int32   `json:"carClass"`
	CarPerformanceIndex int32   `json:"carPerformanceIndex"`
	DrivetrainType      int32   `json:"drivetrainType"`
	NumCylinders        int32   `json:"numCylinders"`

	// extended section
	PosX            float32 `json:"posX"`
	PosY            float32 `json:"posY"`
	PosZ            float32 `json:"posZ"`
	Speed           float32 `json:"speed"`
	Power           float32 `json:"power"`
	Torque          float32 `json:"torque"`
	TireTempFL      float32 `json:"tireTempFL"`
	TireTempFR      float32 `json:"tireTempFR"`
	TireTempRL      float32 `json:"tireTempRL"`
	TireTempRR      float32 `json:"tireTempRR"`
	Boost           float32 `json:"boost"`
	Fuel            float32 `json:"fuel"`
	Distance        float32 `json:"distance"`
	BestLap         float32 `json:"bestLap"`
	LastLap         float32 `json:"lastLap"`
	CurrentLap      float32 `json:"currentLap"`
	CurrentRaceTime float32 `json:"currentRaceTime"`
	LapNumber       uint16  `json:"lapNumber"`
	RacePosition    uint8   `json:"racePosition"`
	Accel           uint8   `json:"accel"`
	Brake           uint8   `json:"brake"`
	Clutch          uint8   `json:"clutch"`
	HandBrake       uint8   `json:"handBrake"`
	Gear            uint8   `json:"gear"`
	Steer           int8    `json:"steer"`
	NormDrivingLine int8    `json:"normDrivingLine"`
	NormAIBrakeDiff int8    `json:"normAIBrakeDiff"`

	// trailing tire block (longest variants only)
	TireWearFL   float32 `json:"tireWearFL"`
	TireWearFR   float32 `json:"tireWearFR"`
	TireWearRL   float32 `json:"tireWearRL"`
	TireWearRR   float32 `json:"tireWearRR"`
	TrackOrdinal int32   `json:"trackOrdinal"`
	// HasTireWear marks the trailing block as actually decoded, as opposed
	// to legitimately zero wear values.
	HasTireWear bool `json:"hasTireWear"`
}

func (s *TelemetrySample) RaceOn() bool { return s.IsRaceOn != 0 }

// HasExtended reports whether the datagram carried the extended section
// (position, lap and input data). Consumers needing those fields skip
// samples without it instead of reading zeros.
func (s *TelemetrySample) HasExtended() bool { return s.Layout != LayoutFixedOnly }

// PositionDegenerate reports the (0,0) ground-plane position the game
// emits during loading screens and teleports. Such samples must not feed
// lap bookkeeping.
func (s *TelemetrySample) PositionDegenerate() bool {
	return s.PosX == 0 && s.PosZ == 0
}

// Position is the car's location on the X/Z ground plane.
func (s *TelemetrySample) Position() Point {
	return Point{X: float64(s.PosX), Z: float64(s.PosZ)}
}

// NormBrake maps the raw brake byte to [0,1].
func (s *TelemetrySample) NormBrake() float64 { return float64(s.Brake) / 255.0 }

// NormThrottle maps the raw accelerator byte to [0,1].
func (s *TelemetrySample) NormThrottle() float64 { return float64(s.Accel) / 255.0 }

// NormSteer maps the raw steering byte to [-1,1] (negative = left).
func (s *TelemetrySample) NormSteer() float64 { return float64(s.Steer) / 127.0 }

// NormRpm maps the current engine speed to [0,1] of the rev range.
func (s *TelemetrySample) NormRpm() float64 {
	if s.EngineMaxRpm <= 0 {
		return 0
	}
	return float64(s.CurrentEngineRpm / s.EngineMaxRpm)
}
