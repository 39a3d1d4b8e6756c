// Package hexmap models the hexagonal tile map that scripted events move
// entities around on, and answers path queries over it.
package hexmap

import (
	"fmt"
	"math"
	"strings"
)

// Direction is one of the six neighbour directions of a flat-topped hex.
type Direction int

const (
	DirectionN Direction = iota
	DirectionNE
	DirectionSE
	DirectionS
	DirectionSW
	DirectionNW
)

// Directions lists every direction in clockwise order starting at north.
var Directions = [6]Direction{DirectionN, DirectionNE, DirectionSE, DirectionS, DirectionSW, DirectionNW}

var directionOffsets = [6]Coordinates{
	DirectionN:  {X: 0, Z: -1},
	DirectionNE: {X: 1, Z: -1},
	DirectionSE: {X: 1, Z: 0},
	DirectionS:  {X: 0, Z: 1},
	DirectionSW: {X: -1, Z: 1},
	DirectionNW: {X: -1, Z: 0},
}

func (d Direction) String() string {
	switch d {
	case DirectionN:
		return "N"
	case DirectionNE:
		return "NE"
	case DirectionSE:
		return "SE"
	case DirectionS:
		return "S"
	case DirectionSW:
		return "SW"
	case DirectionNW:
		return "NW"
	default:
		return "UNKNOWN"
	}
}

// ParseDirection accepts a direction name such as "ne" in any case.
func ParseDirection(s string) (Direction, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for _, d := range Directions {
		if d.String() == name {
			return d, nil
		}
	}
	return DirectionN, fmt.Errorf("unknown direction %q", s)
}

// Opposite returns the direction pointing the other way.
func (d Direction) Opposite() Direction {
	return (d + 3) % 6
}

// Coordinates are cube coordinates with the redundant Y = -X-Z component
// left implicit.
type Coordinates struct {
	X int `yaml:"x" json:"x"`
	Z int `yaml:"z" json:"z"`
}

// Y returns the third cube component.
func (c Coordinates) Y() int {
	return -c.X - c.Z
}

// Add returns the component-wise sum.
func (c Coordinates) Add(o Coordinates) Coordinates {
	return Coordinates{X: c.X + o.X, Z: c.Z + o.Z}
}

// Neighbour returns the coordinates one step away in direction d.
func (c Coordinates) Neighbour(d Direction) Coordinates {
	return c.Add(directionOffsets[d])
}

// Neighbours returns the six adjacent coordinates in Directions order.
func (c Coordinates) Neighbours() []Coordinates {
	out := make([]Coordinates, 0, len(Directions))
	for _, d := range Directions {
		out = append(out, c.Neighbour(d))
	}
	return out
}

// DirectionTo returns the direction from c to an adjacent o.
func (c Coordinates) DirectionTo(o Coordinates) (Direction, bool) {
	delta := Coordinates{X: o.X - c.X, Z: o.Z - c.Z}
	for _, d := range Directions {
		if directionOffsets[d] == delta {
			return d, true
		}
	}
	return 0, false
}

// Distance returns the number of steps between c and o.
func (c Coordinates) Distance(o Coordinates) int {
	dx := abs(c.X - o.X)
	dy := abs(c.Y() - o.Y())
	dz := abs(c.Z - o.Z)
	return max(dx, dy, dz)
}

// FromOffset converts column/row offset coordinates, with odd columns shifted
// down half a cell, to cube coordinates.
func FromOffset(col, row int) Coordinates {
	return Coordinates{X: col, Z: row - (col-(col&1))/2}
}

// ToOffset converts back to column/row offset coordinates.
func (c Coordinates) ToOffset() (col, row int) {
	return c.X, c.Z + (c.X-(c.X&1))/2
}

func (c Coordinates) String() string {
	return fmt.Sprintf("(%d, %d, %d)", c.X, c.Y(), c.Z)
}

// Metrics describes the size of a hex on screen.
type Metrics struct {
	// OuterRadius is the distance from a hex centre to any of its corners.
	OuterRadius float64
}

// Center returns the planar position of the centre of c, with y growing
// downwards.
func (m Metrics) Center(c Coordinates) (x, y float64) {
	x = m.OuterRadius * 1.5 * float64(c.X)
	y = m.OuterRadius * math.Sqrt(3) * (float64(c.Z) + float64(c.X)/2)
	return x, y
}

// FromPosition returns the coordinates of the hex containing a planar position.
func (m Metrics) FromPosition(x, y float64) Coordinates {
	if m.OuterRadius <= 0 {
		return Coordinates{}
	}
	q := (2.0 / 3.0 * x) / m.OuterRadius
	r := (-1.0/3.0*x + math.Sqrt(3)/3.0*y) / m.OuterRadius
	return round(q, r)
}

// round snaps fractional cube coordinates to the nearest hex.
func round(fx, fz float64) Coordinates {
	fy := -fx - fz
	rx, ry, rz := math.Round(fx), math.Round(fy), math.Round(fz)
	dx, dy, dz := math.Abs(rx-fx), math.Abs(ry-fy), math.Abs(rz-fz)
	switch {
	case dx > dy && dx > dz:
		rx = -ry - rz
	case dy > dz:
		// y is implicit
	default:
		rz = -rx - ry
	}
	return Coordinates{X: int(rx), Z: int(rz)}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
