package board

import "math"

// Pure 2D geometry for the string engine: vectors, curve sampling,
// intersection tests. No interaction state lives here so everything in this
// file is testable with plain point arrays.

// Vec is a point or direction in board space.
type Vec struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (v Vec) Add(o Vec) Vec      { return Vec{v.X + o.X, v.Y + o.Y} }
func (v Vec) Sub(o Vec) Vec      { return Vec{v.X - o.X, v.Y - o.Y} }
func (v Vec) Mul(s float64) Vec  { return Vec{v.X * s, v.Y * s} }
func (v Vec) Dot(o Vec) float64  { return v.X*o.X + v.Y*o.Y }
func (v Vec) Len() float64       { return math.Sqrt(v.X*v.X + v.Y*v.Y) }
func (v Vec) Dist(o Vec) float64 { return v.Sub(o).Len() }

// Perp returns v rotated 90° counter-clockwise.
func (v Vec) Perp() Vec { return Vec{-v.Y, v.X} }

// Normalized returns the unit vector, or the zero vector if v has no length.
// Callers dealing with degenerate baselines use dirOrFallback instead.
func (v Vec) Normalized() Vec {
	l := v.Len()
	if l < 1e-9 {
		return Vec{}
	}
	return Vec{v.X / l, v.Y / l}
}

// dirOrFallback normalizes v, substituting a fixed upward direction when the
// input is degenerate (coincident anchors produce a zero-length baseline).
func dirOrFallback(v Vec) Vec {
	n := v.Normalized()
	if n == (Vec{}) {
		return Vec{0, -1}
	}
	return n
}

// lerp interpolates between a and b at parameter t.
func lerp(a, b Vec, t float64) Vec {
	return Vec{a.X + (b.X-a.X)*t, a.Y + (b.Y-a.Y)*t}
}

// --- Projections ---

// projectParam returns the unclamped parameter of p projected onto the
// infinite line through a and b (0 at a, 1 at b). A degenerate line
// yields 0.
func projectParam(p, a, b Vec) float64 {
	ab := b.Sub(a)
	d2 := ab.Dot(ab)
	if d2 < 1e-12 {
		return 0
	}
	return p.Sub(a).Dot(ab) / d2
}

// projectOnSegment returns the closest point to p on segment a-b and its
// clamped parameter.
func projectOnSegment(p, a, b Vec) (Vec, float64) {
	t := projectParam(p, a, b)
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return lerp(a, b, t), t
}

// pointSegmentDist returns the distance from p to segment a-b.
func pointSegmentDist(p, a, b Vec) float64 {
	q, _ := projectOnSegment(p, a, b)
	return p.Dist(q)
}

// polylineDist returns the minimum distance from p to any segment of the
// polyline. An empty polyline yields +Inf; a single point yields the point
// distance.
func polylineDist(poly []Vec, p Vec) float64 {
	if len(poly) == 0 {
		return math.Inf(1)
	}
	if len(poly) == 1 {
		return p.Dist(poly[0])
	}
	best := math.Inf(1)
	for i := 0; i+1 < len(poly); i++ {
		if d := pointSegmentDist(p, poly[i], poly[i+1]); d < best {
			best = d
		}
	}
	return best
}

// nearestPolylineIndex returns the index of the sampled point closest to p.
func nearestPolylineIndex(poly []Vec, p Vec) int {
	best := 0
	bestD := math.Inf(1)
	for i, q := range poly {
		if d := p.Dist(q); d < bestD {
			bestD = d
			best = i
		}
	}
	return best
}

// --- Segment intersection ---

// parallelEps is the |denominator| cutoff below which two segments are
// treated as parallel (no intersection reported).
const parallelEps = 1e-9

// segmentsIntersect reports whether segments p1-p2 and p3-p4 cross.
// Near-parallel pairs are treated as non-intersecting.
func segmentsIntersect(p1, p2, p3, p4 Vec) bool {
	d1 := p2.Sub(p1)
	d2 := p4.Sub(p3)
	denom := d1.X*d2.Y - d1.Y*d2.X
	if math.Abs(denom) < parallelEps {
		return false
	}
	d3 := p3.Sub(p1)
	t := (d3.X*d2.Y - d3.Y*d2.X) / denom
	u := (d3.X*d1.Y - d3.Y*d1.X) / denom
	return t >= 0 && t <= 1 && u >= 0 && u <= 1
}

// firstSelfIntersection scans all non-adjacent segment pairs of the polyline
// and returns the indices of the first crossing pair found.
func firstSelfIntersection(poly []Vec) (int, int, bool) {
	n := len(poly) - 1 // segment count
	for i := 0; i < n; i++ {
		for j := i + 2; j < n; j++ {
			// Skip the closing adjacency when the polyline loops back on
			// itself at the ends.
			if i == 0 && j == n-1 && poly[0] == poly[n] {
				continue
			}
			if segmentsIntersect(poly[i], poly[i+1], poly[j], poly[j+1]) {
				return i, j, true
			}
		}
	}
	return 0, 0, false
}

// --- Curve fitting & sampling ---

// quadThroughPoint returns the quadratic Bézier control point that makes the
// curve from p0 to p2 pass through mid at t=0.5.
func quadThroughPoint(p0, mid, p2 Vec) Vec {
	// B(0.5) = 0.25*p0 + 0.5*c + 0.25*p2 = mid  =>  c = 2*mid - (p0+p2)/2
	return mid.Mul(2).Sub(p0.Add(p2).Mul(0.5))
}

// quadBezier evaluates a quadratic Bézier at t.
func quadBezier(p0, c, p2 Vec, t float64) Vec {
	mt := 1 - t
	return p0.Mul(mt * mt).Add(c.Mul(2 * mt * t)).Add(p2.Mul(t * t))
}

// catmullRom evaluates a uniform Catmull-Rom segment between p1 and p2 at t.
func catmullRom(p0, p1, p2, p3 Vec, t float64) Vec {
	t2 := t * t
	t3 := t2 * t
	x := 0.5 * ((2 * p1.X) +
		(-p0.X+p2.X)*t +
		(2*p0.X-5*p1.X+4*p2.X-p3.X)*t2 +
		(-p0.X+3*p1.X-3*p2.X+p3.X)*t3)
	y := 0.5 * ((2 * p1.Y) +
		(-p0.Y+p2.Y)*t +
		(2*p0.Y-5*p1.Y+4*p2.Y-p3.Y)*t2 +
		(-p0.Y+3*p1.Y-3*p2.Y+p3.Y)*t3)
	return Vec{x, y}
}

// sampleCurve fits a curve through the ordered point sequence and samples it
// into a polyline of segments+1 points:
//
//	n == 2: straight segment
//	n == 3: quadratic Bézier through the middle point
//	n >= 4: uniform Catmull-Rom, end segments clamped by duplicating the
//	        boundary points
//
// Fewer than two points yields a copy of the input.
func sampleCurve(pts []Vec, segments int) []Vec {
	if len(pts) < 2 {
		out := make([]Vec, len(pts))
		copy(out, pts)
		return out
	}
	if segments < 1 {
		segments = 1
	}
	out := make([]Vec, 0, segments+1)

	switch {
	case len(pts) == 2:
		for i := 0; i <= segments; i++ {
			out = append(out, lerp(pts[0], pts[1], float64(i)/float64(segments)))
		}
	case len(pts) == 3:
		c := quadThroughPoint(pts[0], pts[1], pts[2])
		for i := 0; i <= segments; i++ {
			out = append(out, quadBezier(pts[0], c, pts[2], float64(i)/float64(segments)))
		}
	default:
		// Clamp ends by duplicating the boundary points.
		ext := make([]Vec, 0, len(pts)+2)
		ext = append(ext, pts[0])
		ext = append(ext, pts...)
		ext = append(ext, pts[len(pts)-1])

		spans := len(pts) - 1
		for i := 0; i <= segments; i++ {
			t := float64(i) / float64(segments) * float64(spans)
			span := int(t)
			if span >= spans {
				span = spans - 1
			}
			local := t - float64(span)
			out = append(out, catmullRom(ext[span], ext[span+1], ext[span+2], ext[span+3], local))
		}
	}
	return out
}

// angleBetween returns the angle in radians between two direction vectors,
// in [0, π]. Degenerate inputs return π (treated as straight, no correction).
func angleBetween(a, b Vec) float64 {
	an := a.Normalized()
	bn := b.Normalized()
	if an == (Vec{}) || bn == (Vec{}) {
		return math.Pi
	}
	d := an.Dot(bn)
	if d > 1 {
		d = 1
	} else if d < -1 {
		d = -1
	}
	return math.Acos(d)
}

// clampVec constrains p to the rectangle (0,0)-(w,h).
func clampVec(p Vec, w, h float64) Vec {
	if p.X < 0 {
		p.X = 0
	} else if p.X > w {
		p.X = w
	}
	if p.Y < 0 {
		p.Y = 0
	} else if p.Y > h {
		p.Y = h
	}
	return p
}
