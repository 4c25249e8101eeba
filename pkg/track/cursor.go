package track

import "github.com/forzalog/lap-engine-go/pkg/model"

// Cursor walks the gate table while a lap progresses. Gates count in
// table order only; an intersection with any gate other than the next
// expected one is ignored.
type Cursor struct {
	table   *GateTable
	next    int
	crossed int
}

// NewCursor positions the cursor for a lap starting at pos. Gates the car
// is already beyond are skipped: with Normal pointing in the direction of
// travel, a positive projection of (pos - gate.Center) onto Normal puts
// the car on the far side of the gate plane. Without this, a lap starting
// past the start line would register crossings for gates physically
// behind the car.
func NewCursor(table *GateTable, pos model.Point) *Cursor {
	c := &Cursor{table: table}
	for c.next < table.Len() && passed(table.Gate(c.next), pos) {
		c.next++
	}
	return c
}

func passed(g model.Gate, pos model.Point) bool {
	return dot(sub(pos, g.Center), g.Normal) > 0
}

// Advance consumes the movement from prev to cur and returns the gates it
// crossed, in order. One step can take several gates when trace points
// are far apart.
func (c *Cursor) Advance(prev, cur model.Point) []model.Gate {
	var crossed []model.Gate
	for c.next < c.table.Len() {
		g := c.table.Gate(c.next)
		if !SegmentsIntersect(g.P1, g.P2, prev, cur) {
			break
		}
		crossed = append(crossed, g)
		c.next++
		c.crossed++
	}
	return crossed
}

// Crossed is the number of gates taken since the cursor was created.
func (c *Cursor) Crossed() int { return c.crossed }

// NextIndex is the index of the next expected gate; table length when all
// gates are taken.
func (c *Cursor) NextIndex() int { return c.next }
