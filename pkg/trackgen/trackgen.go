// Package trackgen builds gate tables from recorded driving lines.
//
// A mapping lap is one slow lap around the circuit with position
// samples written out as JSON. The line is thinned, smoothed and
// resampled by arc length, then a gate is dropped every spacing meters
// with its normal pointing along the direction of travel.
package trackgen

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/ohler55/ojg/oj"
	"gonum.org/v1/gonum/interp"
	"gonum.org/v1/gonum/stat"

	"github.com/forzalog/lap-engine-go/pkg/model"
)

const (
	DefaultSpacing = 200.0
	DefaultWidth   = 50.0

	defaultSmoothWindow = 15
	// samples closer together than this are the car sitting still
	minPointStep = 1.0
	// points wrapped around the loop seam so the spline sees the start
	// line as an ordinary stretch of track
	loopPad = 5

	// the calibration swerve covers the first seconds of a mapping lap
	widthSampleSeconds = 30.0
	// walls are tapped with the side of the car, not its centerline
	widthCarMargin = 2.0
)

var ErrPathTooShort = errors.New("driving line has too few distinct points")

// PathPoint is one sample of a recorded driving line.
type PathPoint struct {
	X    float64 `json:"x"`
	Z    float64 `json:"z"`
	Dist float64 `json:"d"`
	Time float64 `json:"time"`
}

// LoadPath reads a recorded driving line from a JSON file.
func LoadPath(fileName string) ([]PathPoint, error) {
	data, err := os.ReadFile(fileName)
	if err != nil {
		return nil, err
	}
	var points []PathPoint
	if err := oj.Unmarshal(data, &points); err != nil {
		return nil, fmt.Errorf("could not parse driving line: %w", err)
	}
	return points, nil
}

type Option func(*builder)

func WithSpacing(spacing float64) Option {
	return func(b *builder) { b.spacing = spacing }
}

func WithWidth(width float64) Option {
	return func(b *builder) { b.width = width }
}

func WithName(name string) Option {
	return func(b *builder) { b.name = name }
}

func WithSmoothWindow(window int) Option {
	return func(b *builder) { b.smoothWindow = window }
}

type builder struct {
	spacing      float64
	width        float64
	name         string
	smoothWindow int
}

// BuildGateFile turns a recorded driving line into an evenly spaced
// gate table. The version field is left for Save to stamp.
func BuildGateFile(points []PathPoint, opts ...Option) (*model.GateFile, error) {
	b := &builder{
		spacing:      DefaultSpacing,
		width:        DefaultWidth,
		name:         "unnamed",
		smoothWindow: defaultSmoothWindow,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.spacing <= 0 || b.width <= 0 {
		return nil, errors.New("spacing and width must be positive")
	}

	line := smoothClosed(thinPath(points), b.smoothWindow)
	sx, sz, total, err := fitLoop(line)
	if err != nil {
		return nil, err
	}
	if total < 2*b.spacing {
		return nil, fmt.Errorf("track length %.0fm holds no two gates %.0fm apart",
			total, b.spacing)
	}

	count := int(math.Ceil(total / b.spacing))
	gates := make([]model.Gate, 0, count)
	for i := 0; i < count; i++ {
		at := float64(i) * b.spacing
		cx, cz := sx.Predict(at), sz.Predict(at)
		tx, tz := sx.PredictDerivative(at), sz.PredictDerivative(at)
		mag := math.Hypot(tx, tz)
		if mag == 0 {
			return nil, fmt.Errorf("degenerate tangent at %.0fm", at)
		}
		tx, tz = tx/mag, tz/mag
		// lateral axis is the tangent turned a quarter to the left
		lx, lz := -tz, tx
		gates = append(gates, model.Gate{
			Index:    i,
			Center:   model.Point{X: cx, Z: cz},
			Normal:   model.Point{X: tx, Z: tz},
			P1:       model.Point{X: cx + lx*b.width/2, Z: cz + lz*b.width/2},
			P2:       model.Point{X: cx - lx*b.width/2, Z: cz - lz*b.width/2},
			Distance: at,
		})
	}
	return &model.GateFile{
		Name:    b.name,
		Spacing: b.spacing,
		Width:   b.width,
		Gates:   gates,
	}, nil
}

// EstimateWidth derives the track width from the calibration swerve at
// the start of a mapping lap, where the driver taps both walls on a
// straight. A line is fitted through those samples and the lateral
// spread around it, plus the car's own width, is the estimate.
func EstimateWidth(points []PathPoint) (float64, error) {
	var xs, zs []float64
	for _, pt := range points {
		if pt.Time < widthSampleSeconds {
			xs = append(xs, pt.X)
			zs = append(zs, pt.Z)
		}
	}
	if len(xs) < 2 {
		return 0, errors.New("no samples inside the calibration window")
	}
	alpha, beta := stat.LinearRegression(xs, zs, nil, false)
	// distance to the line beta*x - z + alpha = 0
	norm := math.Hypot(beta, -1)
	minD, maxD := math.Inf(1), math.Inf(-1)
	for i := range xs {
		d := (beta*xs[i] - zs[i] + alpha) / norm
		minD = math.Min(minD, d)
		maxD = math.Max(maxD, d)
	}
	return maxD - minD + widthCarMargin, nil
}

// thinPath drops samples where the car barely moved, so stationary
// stretches do not weight the fit.
func thinPath(points []PathPoint) []PathPoint {
	if len(points) == 0 {
		return nil
	}
	out := make([]PathPoint, 0, len(points))
	out = append(out, points[0])
	for i := 1; i < len(points); i++ {
		step := math.Hypot(points[i].X-points[i-1].X, points[i].Z-points[i-1].Z)
		if step > minPointStep {
			out = append(out, points[i])
		}
	}
	return out
}

// smoothClosed applies a wrap-around moving average. The recorded line
// is a full lap, so first and last samples are neighbors.
func smoothClosed(points []PathPoint, window int) []PathPoint {
	n := len(points)
	if window < 3 || n <= window {
		return points
	}
	half := window / 2
	span := float64(2*half + 1)
	out := make([]PathPoint, n)
	for i := range points {
		var ax, az float64
		for k := -half; k <= half; k++ {
			p := points[(i+k+n)%n]
			ax += p.X
			az += p.Z
		}
		out[i] = PathPoint{
			X: ax / span, Z: az / span,
			Dist: points[i].Dist, Time: points[i].Time,
		}
	}
	return out
}

// fitLoop parameterizes the closed line by arc length and fits one
// spline per coordinate. It returns the splines and the loop length.
func fitLoop(points []PathPoint) (sx, sz interp.AkimaSpline, total float64, err error) {
	// consecutive duplicates would break the arc parameterization
	deduped := make([]PathPoint, 0, len(points))
	for _, p := range points {
		if len(deduped) > 0 {
			last := deduped[len(deduped)-1]
			if math.Hypot(p.X-last.X, p.Z-last.Z) <= 1e-9 {
				continue
			}
		}
		deduped = append(deduped, p)
	}
	points = deduped

	// collapse the explicit closing point if the recording has one
	n := len(points)
	for n > 1 {
		step := math.Hypot(points[n-1].X-points[0].X, points[n-1].Z-points[0].Z)
		if step > 1e-9 {
			break
		}
		n--
	}
	if n < 2*loopPad {
		return sx, sz, 0, ErrPathTooShort
	}
	points = points[:n]

	arc := make([]float64, n)
	for i := 1; i < n; i++ {
		step := math.Hypot(points[i].X-points[i-1].X, points[i].Z-points[i-1].Z)
		arc[i] = arc[i-1] + step
	}
	total = arc[n-1] + math.Hypot(points[0].X-points[n-1].X, points[0].Z-points[n-1].Z)

	ss := make([]float64, 0, n+2*loopPad)
	xs := make([]float64, 0, n+2*loopPad)
	zs := make([]float64, 0, n+2*loopPad)
	add := func(s float64, p PathPoint) {
		ss = append(ss, s)
		xs = append(xs, p.X)
		zs = append(zs, p.Z)
	}
	for i := n - loopPad; i < n; i++ {
		add(arc[i]-total, points[i])
	}
	for i := 0; i < n; i++ {
		add(arc[i], points[i])
	}
	for i := 0; i < loopPad; i++ {
		add(arc[i]+total, points[i])
	}

	if err = sx.Fit(ss, xs); err != nil {
		return sx, sz, 0, fmt.Errorf("could not fit centerline: %w", err)
	}
	if err = sz.Fit(ss, zs); err != nil {
		return sx, sz, 0, fmt.Errorf("could not fit centerline: %w", err)
	}
	return sx, sz, total, nil
}
