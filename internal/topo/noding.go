package topo

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
)

// noding.go is the hand-rolled stand-in for the spec's "GEOS-backed
// noding" (§4.7.2): self-node a candidate line against its own segments,
// then snap-round it against nearby existing geometry within tolerance.
// No GEOS binding exists anywhere in the retrieval pack, so this is
// implemented directly against the same segment_side/intersect
// primitives geom.go and crossing.go already use, rather than against a
// missing dependency (recorded in DESIGN.md).

// SelfNode splits line at every point where two of its own non-adjacent
// segments properly cross (segments that only touch or overlap are not
// split there), returning the ordered list of node points
// found (always including line's own first and last vertex) so the
// caller can cut it into a union of non-crossing pieces.
func SelfNode(line orb.LineString) []orb.Point {
	if len(line) < 2 {
		return nil
	}
	type hit struct {
		segIdx int
		along  float64
		point  orb.Point
	}
	var hits []hit
	addHit := func(segIdx int, p orb.Point) {
		a, b := line[segIdx], line[segIdx+1]
		along := paramAlong(a, b, p)
		hits = append(hits, hit{segIdx, along, p})
	}

	n := len(line)
	for i := 0; i+1 < n; i++ {
		addHit(i, line[i])
	}
	addHit(n-2, line[n-1])

	for i := 0; i+1 < n; i++ {
		for j := i + 1; j+1 < n; j++ {
			if j == i+1 {
				continue
			}
			if p, ok := SegmentsIntersect(line[i], line[i+1], line[j], line[j+1]); ok {
				addHit(i, p)
				addHit(j, p)
			}
		}
	}

	sort.Slice(hits, func(a, b int) bool {
		if hits[a].segIdx != hits[b].segIdx {
			return hits[a].segIdx < hits[b].segIdx
		}
		return hits[a].along < hits[b].along
	})

	out := make([]orb.Point, 0, len(hits))
	for _, h := range hits {
		if len(out) == 0 || !pointsEqual(out[len(out)-1], h.point) {
			out = append(out, h.point)
		}
	}
	return out
}

// paramAlong returns the fraction along a->b at which p lies, assuming p
// is already known to be collinear with the segment.
func paramAlong(a, b, p orb.Point) float64 {
	dx, dy := b[0]-a[0], b[1]-a[1]
	lenSq := dx*dx + dy*dy
	if lenSq < epsilon*epsilon {
		return 0
	}
	return ((p[0]-a[0])*dx + (p[1]-a[1])*dy) / lenSq
}

// NodedSegments cuts line at every point in nodes (which must lie on
// line and be given in order) into a sequence of simple, non-crossing
// sub-linestrings.
func NodedSegments(line orb.LineString, nodes []orb.Point) []orb.LineString {
	if len(nodes) < 2 {
		return []orb.LineString{line}
	}
	var out []orb.LineString
	for i := 0; i+1 < len(nodes); i++ {
		seg := lineBetween(line, nodes[i], nodes[i+1])
		if DistinctVertexCount(seg) >= 2 {
			out = append(out, seg)
		}
	}
	return out
}

// lineBetween extracts the portion of line running from from to to
// (both assumed to lie on line, from before to in line's own direction).
func lineBetween(line orb.LineString, from, to orb.Point) orb.LineString {
	var out orb.LineString
	started := false
	for i := 0; i+1 < len(line); i++ {
		a, b := line[i], line[i+1]
		if !started {
			if PointOnSegment(a, b, from) {
				out = append(out, from)
				started = true
			} else {
				continue
			}
		}
		if PointOnSegment(a, b, to) && !pointsEqual(to, from) {
			if !pointsEqual(out[len(out)-1], to) {
				out = append(out, to)
			}
			return out
		}
		if !pointsEqual(out[len(out)-1], b) {
			out = append(out, b)
		}
		if pointsEqual(b, to) {
			return out
		}
	}
	return out
}

// SnapPass moves every vertex of line that lies within tol of one of
// snapPoints onto that point, leaving other vertices untouched. It is
// run iteratively (bounded by PopulateOptions.MaxSnapIterations) because
// moving one vertex can bring a neighboring vertex within tolerance of a
// different snap point, per §4.7.2's "iterating until stable" note.
func SnapPass(line orb.LineString, snapPoints []orb.Point, tol float64) (orb.LineString, bool) {
	out := append(orb.LineString{}, line...)
	changed := false
	for i, v := range out {
		best := -1
		bestDist := tol
		for j, sp := range snapPoints {
			d := MinDistance(v, sp)
			if d <= bestDist {
				best, bestDist = j, d
			}
		}
		if best >= 0 && !pointsEqual(v, snapPoints[best]) {
			out[i] = snapPoints[best]
			changed = true
		}
	}
	return out, changed
}

// SnapToStable runs SnapPass repeatedly against snapPoints until a pass
// makes no further change or maxIter is reached.
func SnapToStable(line orb.LineString, snapPoints []orb.Point, tol float64, maxIter int) orb.LineString {
	cur := line
	for i := 0; i < maxIter; i++ {
		next, changed := SnapPass(cur, snapPoints, tol)
		cur = next
		if !changed {
			break
		}
	}
	return cur
}

// SplitByNearbyVertices finds every point among candidates that lies
// strictly on the interior of line (within tol) and returns line split
// at those points, implementing §4.7.2 step 6 ("split by nearby isolated
// nodes and pre-existing node points").
func SplitByNearbyVertices(line orb.LineString, candidates []orb.Point, tol float64) []orb.LineString {
	var onLine []orb.Point
	onLine = append(onLine, line[0])
	for _, c := range candidates {
		if pointsEqual(c, line[0]) || pointsEqual(c, line[len(line)-1]) {
			continue
		}
		if containsStrictly(line, c) {
			onLine = append(onLine, c)
			continue
		}
		if tol > 0 {
			if proj, d := DistanceToLineString(line, c); d <= tol && !pointsEqual(proj, line[0]) && !pointsEqual(proj, line[len(line)-1]) {
				onLine = append(onLine, proj)
			}
		}
	}
	onLine = append(onLine, line[len(line)-1])

	sort.Slice(onLine, func(i, j int) bool {
		return alongLine(line, onLine[i]) < alongLine(line, onLine[j])
	})
	dedup := onLine[:0:0]
	for _, p := range onLine {
		if len(dedup) == 0 || !pointsEqual(dedup[len(dedup)-1], p) {
			dedup = append(dedup, p)
		}
	}
	return NodedSegments(line, dedup)
}

// alongLine returns an approximate cumulative-distance parameter for a
// point known to lie on line, used only to order split points.
func alongLine(line orb.LineString, p orb.Point) float64 {
	acc := 0.0
	for i := 0; i+1 < len(line); i++ {
		a, b := line[i], line[i+1]
		if PointOnSegment(a, b, p) {
			return acc + MinDistance(a, p)
		}
		acc += MinDistance(a, b)
	}
	return math.Inf(1)
}

// RemoveConsecutiveDuplicates drops consecutive vertices of line closer
// than tol together, implementing §4.7.2 step 1.
func RemoveConsecutiveDuplicates(line orb.LineString, tol float64) orb.LineString {
	if len(line) == 0 {
		return line
	}
	out := orb.LineString{line[0]}
	for _, p := range line[1:] {
		if MinDistance(out[len(out)-1], p) > tol {
			out = append(out, p)
		}
	}
	return out
}
