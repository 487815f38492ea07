package uitree

import (
	"fmt"
	"regexp"
	"strconv"
)

var boundsPattern = regexp.MustCompile(`\[(-?\d+),(-?\d+)\]\[(-?\d+),(-?\d+)\]`)

// Rect is a screen rectangle in pixels
type Rect struct {
	X1, Y1, X2, Y2 int
}

// ParseBounds parses the uiautomator "[x1,y1][x2,y2]" format
func ParseBounds(bounds string) (Rect, error) {
	m := boundsPattern.FindStringSubmatch(bounds)
	if len(m) != 5 {
		return Rect{}, fmt.Errorf("invalid bounds format: %s", bounds)
	}

	x1, _ := strconv.Atoi(m[1])
	y1, _ := strconv.Atoi(m[2])
	x2, _ := strconv.Atoi(m[3])
	y2, _ := strconv.Atoi(m[4])
	return Rect{X1: x1, Y1: y1, X2: x2, Y2: y2}, nil
}

// Center returns the center point
func (r Rect) Center() (int, int) {
	return r.X1 + (r.X2-r.X1)/2, r.Y1 + (r.Y2-r.Y1)/2
}

func (r Rect) Width() int  { return r.X2 - r.X1 }
func (r Rect) Height() int { return r.Y2 - r.Y1 }

// Empty reports whether the rectangle has no area
func (r Rect) Empty() bool {
	return r.Width() <= 0 || r.Height() <= 0
}

// Contains reports whether (x, y) lies inside r
func (r Rect) Contains(x, y int) bool {
	return x >= r.X1 && x <= r.X2 && y >= r.Y1 && y <= r.Y2
}

// Rect parses the node's bounds
func (n *Node) Rect() (Rect, error) {
	return ParseBounds(n.Bounds)
}
