package track

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/forzalog/lap-engine-go/pkg/model"
)

// ErrInvalidGateTable wraps all gate table validation failures.
var ErrInvalidGateTable = errors.New("invalid gate table")

// normalLenTolerance allows for rounding in gate files written by other
// tools; normals are direction vectors and must be close to unit length.
const normalLenTolerance = 0.01

// GateTable is a validated, immutable set of timing gates ordered along
// the racing line. It is built once per session and shared read-only by
// all lap cursors.
type GateTable struct {
	name    string
	spacing float64
	width   float64
	gates   []model.Gate
}

// FromGateFile validates the gates of a parsed gate file and wraps them
// into a table. The file version is checked by Load, not here, so tests
// and generators can build tables directly.
func FromGateFile(file *model.GateFile) (*GateTable, error) {
	if err := validateGates(file.Gates); err != nil {
		return nil, err
	}
	return &GateTable{
		name:    file.Name,
		spacing: file.Spacing,
		width:   file.Width,
		gates:   slices.Clone(file.Gates),
	}, nil
}

func (t *GateTable) Name() string     { return t.name }
func (t *GateTable) Spacing() float64 { return t.spacing }
func (t *GateTable) Width() float64   { return t.width }
func (t *GateTable) Len() int         { return len(t.gates) }

// Gate returns the gate at table position i (equal to its index).
func (t *GateTable) Gate(i int) model.Gate { return t.gates[i] }

// Gates returns a copy of all gates in table order.
func (t *GateTable) Gates() []model.Gate { return slices.Clone(t.gates) }

// TrackLength estimates the lap length: the last gate sits one spacing
// short of the start line.
func (t *GateTable) TrackLength() float64 {
	return t.gates[len(t.gates)-1].Distance + t.spacing
}

//nolint:cyclop // sequence of independent checks
func validateGates(gates []model.Gate) error {
	if len(gates) < 2 {
		return fmt.Errorf("%w: need at least 2 gates, got %d",
			ErrInvalidGateTable, len(gates))
	}
	for i, g := range gates {
		if g.Index != i {
			return fmt.Errorf("%w: gate %d carries index %d, want contiguous indexes from 0",
				ErrInvalidGateTable, i, g.Index)
		}
		if i > 0 && g.Distance <= gates[i-1].Distance {
			return fmt.Errorf("%w: gate %d distance %.1f not above predecessor %.1f",
				ErrInvalidGateTable, i, g.Distance, gates[i-1].Distance)
		}
		if l := vecLen(g.Normal); math.Abs(l-1) > normalLenTolerance {
			return fmt.Errorf("%w: gate %d normal length %.4f, want unit vector",
				ErrInvalidGateTable, i, l)
		}
		// center must lie between the endpoints, otherwise the gate line
		// does not span the track where crossings are expected
		if dot(sub(g.P1, g.Center), sub(g.P2, g.Center)) >= 0 {
			return fmt.Errorf("%w: gate %d endpoints do not straddle its center",
				ErrInvalidGateTable, i)
		}
	}
	return nil
}
