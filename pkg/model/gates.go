package model

// Point is a location on the X/Z ground plane. The game's Y axis (up) is
// irrelevant for gate math.
type Point struct {
	X float64 `json:"x"`
	Z float64 `json:"z"`
}

// Gate is one virtual timing line across the track. Normal points in the
// direction of travel; P1/P2 span the track perpendicular to it. Distance
// is meters from the start line along the racing line.
type Gate struct {
	Index    int     `json:"index"`
	Center   Point   `json:"center"`
	Normal   Point   `json:"normal"`
	P1       Point   `json:"p1"`
	P2       Point   `json:"p2"`
	Distance float64 `json:"distance"`
}

// GateFile is the on-disk gate table format produced by `fle gates`.
type GateFile struct {
	Version string  `json:"version"`
	Name    string  `json:"name"`
	Spacing float64 `json:"spacing"`
	Width   float64 `json:"width"`
	Gates   []Gate  `json:"gates"`
}
