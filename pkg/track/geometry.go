package track

import (
	"math"

	"github.com/forzalog/lap-engine-go/pkg/model"
)

// orientation of the ordered triple (p, q, r) on the X/Z plane:
// 1 counter-clockwise, -1 clockwise, 0 collinear.
func orientation(p, q, r model.Point) int {
	v := (r.Z-p.Z)*(q.X-p.X) - (q.Z-p.Z)*(r.X-p.X)
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

// SegmentsIntersect reports whether segment a-b crosses segment c-d: the
// endpoints of each segment must lie on opposite sides of the other. A
// graze exactly on an endpoint resolves via the collinear orientation and
// is settled by the car's next movement step, so it needs no special case.
func SegmentsIntersect(a, b, c, d model.Point) bool {
	return orientation(a, b, c) != orientation(a, b, d) &&
		orientation(c, d, a) != orientation(c, d, b)
}

func sub(a, b model.Point) model.Point {
	return model.Point{X: a.X - b.X, Z: a.Z - b.Z}
}

func dot(a, b model.Point) float64 { return a.X*b.X + a.Z*b.Z }

func vecLen(p model.Point) float64 { return math.Hypot(p.X, p.Z) }

func distance(a, b model.Point) float64 { return vecLen(sub(a, b)) }
