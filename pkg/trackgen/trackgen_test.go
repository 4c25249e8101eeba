//nolint:whitespace,lll,funlen // ok for tests
package trackgen

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forzalog/lap-engine-go/pkg/model"
	"github.com/forzalog/lap-engine-go/pkg/processing/lap"
	"github.com/forzalog/lap-engine-go/pkg/track"
	"github.com/forzalog/lap-engine-go/testsupport/basedata"
)

// circlePath samples a full lap on a circle, one sample per degree.
func circlePath(radius float64) []PathPoint {
	points := make([]PathPoint, 0, 360)
	for i := range 360 {
		theta := float64(i) * math.Pi / 180
		points = append(points, PathPoint{
			X:    radius * math.Cos(theta),
			Z:    radius * math.Sin(theta),
			Dist: radius * theta,
			Time: float64(i) / 6,
		})
	}
	return points
}

func TestBuildGateFile_Circle(t *testing.T) {
	file, err := BuildGateFile(circlePath(500),
		WithSpacing(200), WithWidth(40), WithName("test-circle"))
	require.NoError(t, err)

	assert.Equal(t, "test-circle", file.Name)
	assert.Empty(t, file.Version, "stamping the version is Save's job")
	assert.InDelta(t, 200, file.Spacing, 1e-9)
	assert.InDelta(t, 40, file.Width, 1e-9)
	// smoothing pulls the 3141m line in slightly, still 16 gates
	require.Len(t, file.Gates, 16)

	// the generated table must satisfy its own validation
	_, err = track.FromGateFile(file)
	require.NoError(t, err)

	for i, g := range file.Gates {
		assert.Equal(t, i, g.Index)
		assert.InDelta(t, float64(i)*200, g.Distance, 1e-9)
		// centers stay on the driving line
		assert.InDelta(t, 500, math.Hypot(g.Center.X, g.Center.Z), 3)
		// the normal points along the travel direction, so on a circle it
		// is perpendicular to the radius
		radial := math.Hypot(g.Center.X, g.Center.Z)
		dot := (g.Normal.X*g.Center.X + g.Normal.Z*g.Center.Z) / radial
		assert.InDelta(t, 0, dot, 0.05)
		// endpoints sit symmetrically one half width out
		assert.InDelta(t, 40, math.Hypot(g.P1.X-g.P2.X, g.P1.Z-g.P2.Z), 1e-6)
		assert.InDelta(t, g.Center.X, (g.P1.X+g.P2.X)/2, 1e-6)
		assert.InDelta(t, g.Center.Z, (g.P1.Z+g.P2.Z)/2, 1e-6)
	}

	// gates are spaced one arc step apart (chords run slightly shorter)
	for i := 1; i < len(file.Gates); i++ {
		prev, cur := file.Gates[i-1].Center, file.Gates[i].Center
		assert.InDelta(t, 200, math.Hypot(cur.X-prev.X, cur.Z-prev.Z), 5)
	}
}

func TestBuildGateFile_Errors(t *testing.T) {
	t.Run("too few points", func(t *testing.T) {
		line := []PathPoint{{X: 0}, {X: 10}, {X: 20}, {X: 30}, {X: 40}}
		_, err := BuildGateFile(line)
		require.ErrorIs(t, err, ErrPathTooShort)
	})

	t.Run("track shorter than two spacings", func(t *testing.T) {
		points := make([]PathPoint, 0, 24)
		for i := range 24 {
			theta := float64(i) * 15 * math.Pi / 180
			points = append(points, PathPoint{X: 20 * math.Cos(theta), Z: 20 * math.Sin(theta)})
		}
		_, err := BuildGateFile(points, WithSpacing(200))
		require.ErrorContains(t, err, "holds no two gates")
	})

	t.Run("spacing must be positive", func(t *testing.T) {
		_, err := BuildGateFile(circlePath(500), WithSpacing(0))
		require.ErrorContains(t, err, "must be positive")
	})

	t.Run("width must be positive", func(t *testing.T) {
		_, err := BuildGateFile(circlePath(500), WithWidth(-1))
		require.ErrorContains(t, err, "must be positive")
	})
}

// A generated file has to carry the rest of the system: written by Save,
// read back by Load, and a lap driven on the source line must cross every
// gate the builder placed.
func TestGeneratedTable_TimesALap(t *testing.T) {
	file, err := BuildGateFile(circlePath(500),
		WithSpacing(200), WithWidth(40), WithName("loop"))
	require.NoError(t, err)

	fileName := filepath.Join(t.TempDir(), "loop.json")
	require.NoError(t, track.Save(fileName, file))
	table, err := track.Load(fileName)
	require.NoError(t, err)

	seg := lap.NewSegmenter(table, lap.WithPlayer("roundtrip"))

	const (
		radius = 500.0
		step   = 25.0
	)
	circumference := 2 * math.Pi * radius

	// start half a step before the line so the first gate is ahead of the
	// car when each lap begins
	var finished *model.Lap
	for lapNum := range 2 {
		for k := range 126 {
			s := -step/2 + float64(k)*step
			theta := s / radius
			total := float64(lapNum)*circumference + s
			sample := &model.TelemetrySample{
				Layout:          model.LayoutExtendedWithGap,
				IsRaceOn:        1,
				Speed:           50,
				PosX:            float32(radius * math.Cos(theta)),
				PosZ:            float32(radius * math.Sin(theta)),
				Distance:        float32(total),
				CurrentRaceTime: float32((total + step) / 50),
				LapNumber:       uint16(lapNum), //nolint:gosec // test values are small
			}
			if lapNum == 1 && k == 0 {
				sample.LastLap = float32(circumference / 50)
			}
			if got, ok := seg.Process(sample); ok {
				finished = got
			}
		}
	}

	require.NotNil(t, finished)
	assert.False(t, finished.Invalid)
	assert.InDelta(t, circumference/50, finished.LapTime, 1e-3)
	require.Len(t, finished.Crossings, table.Len())
	for i, crossing := range finished.Crossings {
		assert.Equal(t, i, crossing.GateIndex)
	}
}

func TestThinPath(t *testing.T) {
	line := []PathPoint{
		{X: 0}, {X: 0.1}, {X: 0.3}, {X: 2}, {X: 2.5}, {X: 4},
	}
	thinned := thinPath(line)
	require.Len(t, thinned, 3)
	assert.InDelta(t, 0, thinned[0].X, 1e-9)
	assert.InDelta(t, 2, thinned[1].X, 1e-9)
	assert.InDelta(t, 4, thinned[2].X, 1e-9)

	// a car creeping in sub-threshold steps never adds a point
	creep := []PathPoint{{X: 0}, {X: 0.6}, {X: 1.2}, {X: 1.8}}
	assert.Len(t, thinPath(creep), 1)

	assert.Empty(t, thinPath(nil))
}

func TestSmoothClosed(t *testing.T) {
	// an alternating zigzag flattens to a third of its amplitude
	points := make([]PathPoint, 10)
	for i := range points {
		z := 1.0
		if i%2 == 1 {
			z = -1.0
		}
		points[i] = PathPoint{X: float64(i) * 2, Z: z, Dist: float64(i), Time: float64(i)}
	}
	smoothed := smoothClosed(points, 3)
	require.Len(t, smoothed, 10)
	for i, pt := range smoothed {
		assert.InDelta(t, 1.0/3, math.Abs(pt.Z), 1e-9)
		assert.InDelta(t, points[i].Dist, pt.Dist, 1e-9)
		assert.InDelta(t, points[i].Time, pt.Time, 1e-9)
	}

	// short lines and tiny windows pass through untouched
	assert.Equal(t, points, smoothClosed(points, 2))
	assert.Equal(t, points[:3], smoothClosed(points[:3], 15))
}

func TestEstimateWidth(t *testing.T) {
	// calibration swerve on a straight: both walls tapped 4m out
	var points []PathPoint
	for i := range 15 {
		x := float64(i) * 10
		tm := float64(i)
		points = append(points,
			PathPoint{X: x, Z: 4, Time: tm},
			PathPoint{X: x, Z: -4, Time: tm},
		)
	}
	// driving after the window must not widen the estimate
	points = append(points, PathPoint{X: 500, Z: 100, Time: 40})

	width, err := EstimateWidth(points)
	require.NoError(t, err)
	assert.InDelta(t, 10, width, 1e-9)
}

func TestEstimateWidth_NoCalibrationSamples(t *testing.T) {
	_, err := EstimateWidth([]PathPoint{{X: 1, Z: 1, Time: 31}, {X: 2, Z: 2, Time: 45}})
	require.ErrorContains(t, err, "calibration window")
}

func TestLoadPath(t *testing.T) {
	fileName := filepath.Join(t.TempDir(), "line.json")
	content := `[{"x":1.5,"z":-2.5,"d":3,"time":4}]`
	require.NoError(t, os.WriteFile(fileName, []byte(content), 0o644))

	points, err := LoadPath(fileName)
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.InDelta(t, 1.5, points[0].X, 1e-9)
	assert.InDelta(t, -2.5, points[0].Z, 1e-9)
	assert.InDelta(t, 3, points[0].Dist, 1e-9)
	assert.InDelta(t, 4, points[0].Time, 1e-9)
}

func TestLoadPath_Garbage(t *testing.T) {
	fileName := filepath.Join(t.TempDir(), "line.json")
	require.NoError(t, os.WriteFile(fileName, []byte("not json"), 0o644))

	_, err := LoadPath(fileName)
	require.ErrorContains(t, err, "could not parse driving line")
}

func TestRenderPreview(t *testing.T) {
	file := basedata.StraightGates(20, 10, 20, 30)
	line := []PathPoint{{X: 0, Z: 0}, {X: 40, Z: 0}}

	var buf bytes.Buffer
	require.NoError(t, RenderPreview(&buf, line, file))
	out := buf.String()
	assert.Contains(t, out, "echarts")
	assert.Contains(t, out, "Track Map with Gates")
	assert.Contains(t, out, "gate posts")
}
