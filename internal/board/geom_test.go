package board

import (
	"math"
	"testing"
)

// --- Vector basics ---

func TestVec_PerpIsOrthogonal(t *testing.T) {
	v := Vec{3, 7}
	if d := v.Dot(v.Perp()); math.Abs(d) > 1e-12 {
		t.Fatalf("perp should be orthogonal, dot=%g", d)
	}
}

func TestVec_NormalizedZeroVector(t *testing.T) {
	if n := (Vec{}).Normalized(); n != (Vec{}) {
		t.Fatalf("normalizing zero vector should yield zero, got %+v", n)
	}
	if d := dirOrFallback(Vec{}); d != (Vec{0, -1}) {
		t.Fatalf("degenerate direction should fall back to (0,-1), got %+v", d)
	}
}

// --- Projection ---

func TestProjectParam_Basic(t *testing.T) {
	a := Vec{0, 0}
	b := Vec{10, 0}
	if p := projectParam(Vec{5, 3}, a, b); math.Abs(p-0.5) > 1e-12 {
		t.Fatalf("expected param 0.5, got %g", p)
	}
	if p := projectParam(Vec{-5, 0}, a, b); math.Abs(p+0.5) > 1e-12 {
		t.Fatalf("expected param -0.5 beyond the start, got %g", p)
	}
}

func TestProjectParam_DegenerateLine(t *testing.T) {
	a := Vec{5, 5}
	if p := projectParam(Vec{100, 100}, a, a); p != 0 {
		t.Fatalf("degenerate baseline should project to 0, got %g", p)
	}
}

func TestProjectOnSegment_Clamps(t *testing.T) {
	a := Vec{0, 0}
	b := Vec{10, 0}
	q, param := projectOnSegment(Vec{20, 5}, a, b)
	if q != b || param != 1 {
		t.Fatalf("projection past the end should clamp to b, got %+v t=%g", q, param)
	}
}

func TestPointSegmentDist(t *testing.T) {
	if d := pointSegmentDist(Vec{5, 4}, Vec{0, 0}, Vec{10, 0}); math.Abs(d-4) > 1e-12 {
		t.Fatalf("expected distance 4, got %g", d)
	}
}

func TestPolylineDist_Empty(t *testing.T) {
	if d := polylineDist(nil, Vec{1, 1}); !math.IsInf(d, 1) {
		t.Fatalf("empty polyline should be infinitely far, got %g", d)
	}
}

// --- Segment intersection ---

func TestSegmentsIntersect_Crossing(t *testing.T) {
	if !segmentsIntersect(Vec{0, 0}, Vec{10, 10}, Vec{0, 10}, Vec{10, 0}) {
		t.Fatal("X-shaped segments should intersect")
	}
}

func TestSegmentsIntersect_Disjoint(t *testing.T) {
	if segmentsIntersect(Vec{0, 0}, Vec{10, 0}, Vec{0, 5}, Vec{10, 5}) {
		t.Fatal("parallel segments should not intersect")
	}
	if segmentsIntersect(Vec{0, 0}, Vec{1, 1}, Vec{5, 0}, Vec{6, 1}) {
		t.Fatal("disjoint segments should not intersect")
	}
}

func TestFirstSelfIntersection_FindsCrossing(t *testing.T) {
	// Three segments where the first and last cross at (5,5).
	poly := []Vec{{0, 0}, {10, 10}, {10, 0}, {0, 10}}
	i, j, found := firstSelfIntersection(poly)
	if !found {
		t.Fatal("crossing polyline should report an intersection")
	}
	if i != 0 || j != 2 {
		t.Fatalf("expected segments 0 and 2, got %d and %d", i, j)
	}
}

func TestFirstSelfIntersection_StraightLine(t *testing.T) {
	poly := sampleCurve([]Vec{{0, 0}, {100, 100}}, 50)
	if _, _, found := firstSelfIntersection(poly); found {
		t.Fatal("straight polyline should not self-intersect")
	}
}

// --- Curve sampling ---

func TestSampleCurve_TwoPointsIsStraight(t *testing.T) {
	poly := sampleCurve([]Vec{{0, 0}, {10, 0}}, 50)
	if len(poly) != 51 {
		t.Fatalf("expected 51 samples, got %d", len(poly))
	}
	if poly[0] != (Vec{0, 0}) || poly[50] != (Vec{10, 0}) {
		t.Fatalf("endpoints should be exact, got %+v .. %+v", poly[0], poly[50])
	}
	if poly[25].Dist(Vec{5, 0}) > 1e-9 {
		t.Fatalf("midpoint sample should be (5,0), got %+v", poly[25])
	}
}

func TestSampleCurve_ThreePointsPassesThroughMiddle(t *testing.T) {
	mid := Vec{5, 5}
	poly := sampleCurve([]Vec{{0, 0}, mid, {10, 0}}, 50)
	if poly[0] != (Vec{0, 0}) || poly[50] != (Vec{10, 0}) {
		t.Fatalf("endpoints should be exact, got %+v .. %+v", poly[0], poly[50])
	}
	// The even sample count puts a sample exactly at t=0.5.
	if poly[25].Dist(mid) > 1e-9 {
		t.Fatalf("curve should pass through the middle point, got %+v", poly[25])
	}
}

func TestSampleCurve_FourPointsInterpolates(t *testing.T) {
	pts := []Vec{{0, 0}, {30, 40}, {70, 40}, {100, 0}}
	poly := sampleCurve(pts, 50)
	if poly[0] != pts[0] || poly[len(poly)-1] != pts[3] {
		t.Fatalf("clamped spline endpoints should be exact, got %+v .. %+v", poly[0], poly[len(poly)-1])
	}
	// Catmull-Rom interpolates: the curve passes through the interior
	// points, so the sampled polyline comes close to each.
	for _, p := range pts[1:3] {
		if d := polylineDist(poly, p); d > 3 {
			t.Fatalf("spline should pass near interior point %+v, distance %g", p, d)
		}
	}
}

func TestQuadThroughPoint_Property(t *testing.T) {
	p0 := Vec{0, 0}
	mid := Vec{40, 30}
	p2 := Vec{100, 10}
	c := quadThroughPoint(p0, mid, p2)
	if got := quadBezier(p0, c, p2, 0.5); got.Dist(mid) > 1e-9 {
		t.Fatalf("curve should pass through %+v at t=0.5, got %+v", mid, got)
	}
}

func TestAngleBetween_RightAngle(t *testing.T) {
	if a := angleBetween(Vec{1, 0}, Vec{0, 1}); math.Abs(a-math.Pi/2) > 1e-9 {
		t.Fatalf("expected π/2, got %g", a)
	}
	if a := angleBetween(Vec{1, 0}, Vec{-1, 0}); math.Abs(a-math.Pi) > 1e-9 {
		t.Fatalf("expected π for opposed vectors, got %g", a)
	}
}

func TestClampVec(t *testing.T) {
	if got := clampVec(Vec{-5, 2000}, 1000, 1000); got != (Vec{0, 1000}) {
		t.Fatalf("expected clamp to (0,1000), got %+v", got)
	}
}

func TestNearestPolylineIndex(t *testing.T) {
	poly := sampleCurve([]Vec{{0, 0}, {100, 0}}, 50)
	if idx := nearestPolylineIndex(poly, Vec{51, 10}); idx != 25 && idx != 26 {
		t.Fatalf("expected index near the middle, got %d", idx)
	}
}
