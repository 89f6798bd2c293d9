package topo

import "github.com/paulmach/orb"

// crossing.go implements §4.6: given a candidate line and its nominal
// endpoints (NoNode for "no such endpoint yet"), make sure it does not
// collide with any existing node or edge in a way invariants 2-4
// forbid.

// CheckEdgeCrossing fetches every node and edge whose MBR intersects the
// candidate's MBR and rejects the candidate if:
//   - it strictly contains a node other than its own declared endpoints;
//   - it coincides with an existing edge;
//   - its interior properly intersects another edge's interior;
//   - its interior touches another edge's boundary, or vice versa.
func (t *Topology) CheckEdgeCrossing(line orb.LineString, startNode, endNode NodeID) error {
	box := LineStringBound(line)

	nodes, err := t.storage.GetNodeWithinBox(box, NodeFieldAll, -1)
	if err != nil {
		return &ErrStorageError{Op: "GetNodeWithinBox", Err: err}
	}
	for _, n := range nodes {
		if n.ID == startNode || n.ID == endNode {
			continue
		}
		if containsStrictly(line, n.Point) {
			return &ErrEdgeCrossesNode{Node: n.ID}
		}
	}

	edges, err := t.storage.GetEdgeWithinBox(box, EdgeFieldAll, -1)
	if err != nil {
		return &ErrStorageError{Op: "GetEdgeWithinBox", Err: err}
	}
	for _, e := range edges {
		if err := t.checkAgainstEdge(line, startNode, endNode, e); err != nil {
			return err
		}
	}
	return nil
}

// containsStrictly reports whether p lies on line but is not one of
// line's own two endpoints.
func containsStrictly(line orb.LineString, p orb.Point) bool {
	if len(line) == 0 {
		return false
	}
	if pointsEqual(p, line[0]) || pointsEqual(p, line[len(line)-1]) {
		return false
	}
	for i := 0; i+1 < len(line); i++ {
		if PointOnSegment(line[i], line[i+1], p) {
			return true
		}
	}
	return false
}

// checkAgainstEdge implements the DE-9IM-flavored relate of §4.6 between
// the candidate line and one existing edge's geometry.
func (t *Topology) checkAgainstEdge(line orb.LineString, startNode, endNode NodeID, e Edge) error {
	if len(e.Geom) == 0 {
		return nil
	}

	if sameLineString(line, e.Geom) {
		return &ErrCoincidentEdge{Edge: e.ID}
	}

	candEndsAtBoundary := func(p orb.Point) bool {
		return pointsEqual(p, line[0]) || pointsEqual(p, line[len(line)-1])
	}
	otherEndsAtBoundary := func(p orb.Point) bool {
		return pointsEqual(p, e.Geom[0]) || pointsEqual(p, e.Geom[len(e.Geom)-1])
	}

	// Interior-interior: any proper crossing between non-adjacent
	// segments of the two lines.
	for i := 0; i+1 < len(line); i++ {
		for j := 0; j+1 < len(e.Geom); j++ {
			if ip, ok := SegmentsIntersect(line[i], line[i+1], e.Geom[j], e.Geom[j+1]); ok {
				if !candEndsAtBoundary(ip) && !otherEndsAtBoundary(ip) {
					return &ErrEdgeIntersectsEdge{Edge1: e.ID}
				}
			}
		}
	}

	// Candidate interior touching the other edge's boundary (its own
	// endpoints), or vice versa, unless that boundary point is a shared
	// declared node of the candidate.
	for _, bp := range []orb.Point{e.Geom[0], e.Geom[len(e.Geom)-1]} {
		if candEndsAtBoundary(bp) {
			continue
		}
		if containsStrictly(line, bp) || pointOnOpenLine(line, bp) {
			return &ErrEdgeBoundaryTouchesEdgeInterior{Edge1: e.ID}
		}
	}
	for _, bp := range []orb.Point{line[0], line[len(line)-1]} {
		if otherEndsAtBoundary(bp) {
			continue
		}
		if containsStrictly(e.Geom, bp) || pointOnOpenLine(e.Geom, bp) {
			return &ErrEdgeCrossesEdge{Edge2: e.ID}
		}
	}

	return nil
}

// pointOnOpenLine reports whether p lies anywhere on line, endpoints
// included (used for the boundary-touches-interior checks above, which
// already special-case shared declared endpoints before calling this).
func pointOnOpenLine(line orb.LineString, p orb.Point) bool {
	for i := 0; i+1 < len(line); i++ {
		if PointOnSegment(line[i], line[i+1], p) {
			return true
		}
	}
	return false
}

func sameLineString(a, b orb.LineString) bool {
	if len(a) != len(b) {
		return false
	}
	forward := true
	for i := range a {
		if !pointsEqual(a[i], b[i]) {
			forward = false
			break
		}
	}
	if forward {
		return true
	}
	backward := true
	for i := range a {
		if !pointsEqual(a[i], b[len(b)-1-i]) {
			backward = false
			break
		}
	}
	return backward
}
