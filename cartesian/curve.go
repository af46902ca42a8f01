package cartesian

import "math"

// Point represents a cartesian X,Y point
type Point struct {
	X float64 `mapstructure:"x" yaml:"x"`
	Y float64 `mapstructure:"y" yaml:"y"`
}

// Curve is a piecewise-linear function defined by points with non-decreasing X values. Consecutive points may share
// the same X value, in which case the curve has a step at that X.
type Curve struct {
	Points []Point `mapstructure:"points" yaml:"points"`
}

// NewCurve returns a curve made from the paired xs and ys. The shorter of the two slices determines the number of points.
func NewCurve(xs, ys []float64) Curve {
	n := len(xs)
	if len(ys) < n {
		n = len(ys)
	}
	points := make([]Point, n)
	for i := 0; i < n; i++ {
		points[i] = Point{X: xs[i], Y: ys[i]}
	}
	return Curve{Points: points}
}

// Interpolate returns the y-value of the curve at `x`. Values of `x` below the first point return `left`, and values above
// the last point return `right`, there is no extrapolation.
//
// Where several points share an X value the last of them is used as the start of the next segment, so an `x` that lands
// exactly on a repeated X takes the Y of the last point with that X. An `x` exactly equal to the final X takes the final Y.
// NaN is returned for an empty curve.
func (c *Curve) Interpolate(x, left, right float64) float64 {
	n := len(c.Points)
	if n == 0 {
		return math.NaN()
	}

	last := c.Points[n-1]
	switch {
	case x > last.X:
		return right
	case x < c.Points[0].X:
		return left
	case x == last.X:
		return last.Y
	}

	// find the last point with X <= x
	j := 0
	for i := 0; i < n-1; i++ {
		if c.Points[i].X <= x {
			j = i
		}
	}

	p1 := c.Points[j]
	p2 := c.Points[j+1]
	if p1.X == x {
		return p1.Y
	}
	return linearInterpolation(p1, p2, x)
}

// linearInterpolation returns the y-value at `x` given two points.
func linearInterpolation(p1, p2 Point, x float64) float64 {
	return p1.Y + (x-p1.X)*((p2.Y-p1.Y)/(p2.X-p1.X))
}
