package topo

import "github.com/paulmach/orb"

// pointlocation.go implements §4.8 (the precise face-containing-point
// resolver) and its sibling tolerance-bounded lookups named in spec.md's
// boundary-behaviors list: GetNodeByPoint, GetEdgeByPoint, GetFaceByPoint.

// GetNodeByPoint returns the id of the node within tol of point, failing
// with ErrAmbiguousLocation if more than one candidate is found and
// returning ok=false if none is.
func (t *Topology) GetNodeByPoint(point orb.Point, tol float64) (NodeID, bool, error) {
	nodes, err := t.storage.GetNodeWithinDistance(point, tol, NodeFieldID, -1)
	if err != nil {
		return 0, false, &ErrStorageError{Op: "GetNodeWithinDistance", Err: err}
	}
	if len(nodes) == 0 {
		return 0, false, nil
	}
	if len(nodes) > 1 {
		return 0, false, &ErrAmbiguousLocation{Point: point}
	}
	return nodes[0].ID, true, nil
}

// GetEdgeByPoint returns the id of the edge within tol of point, failing
// with ErrAmbiguousLocation if more than one candidate is found and
// returning ok=false if none is.
func (t *Topology) GetEdgeByPoint(point orb.Point, tol float64) (EdgeID, bool, error) {
	edges, err := t.storage.GetEdgeWithinDistance(point, tol, EdgeFieldID, -1)
	if err != nil {
		return 0, false, &ErrStorageError{Op: "GetEdgeWithinDistance", Err: err}
	}
	if len(edges) == 0 {
		return 0, false, nil
	}
	if len(edges) > 1 {
		return 0, false, &ErrAmbiguousLocation{Point: point}
	}
	return edges[0].ID, true, nil
}

// GetFaceByPoint returns the face containing point. Per the Open
// Question resolution recorded in DESIGN.md (and matching the original
// C's behavior verbatim per §9), tol == 0 delegates directly to
// GetFaceContainingPoint's exact-cover resolver with no edge-distance
// fallback; tol > 0 first looks for nodes within that distance (more than
// one is ambiguous, exactly one resolves from that node's own point) and
// otherwise falls back to the exact resolver. Edges within tol are not
// consulted.
func (t *Topology) GetFaceByPoint(point orb.Point, tol float64) (FaceID, error) {
	if tol == 0 {
		return t.GetFaceContainingPoint(point)
	}
	if nodes, err := t.storage.GetNodeWithinDistance(point, tol, NodeFieldAll, -1); err != nil {
		return 0, &ErrStorageError{Op: "GetNodeWithinDistance", Err: err}
	} else if len(nodes) > 1 {
		return 0, &ErrAmbiguousLocation{Point: point}
	} else if len(nodes) == 1 {
		return t.GetFaceContainingPoint(nodes[0].Point)
	}
	return t.GetFaceContainingPoint(point)
}

// GetFaceContainingPoint implements §4.8's five-case resolver. It first
// asks Storage in case the backend has its own fast answer (e.g. a
// precomputed polygon index); Storage signals "I don't know" with
// ok=false, at which point the engine falls back to the closest-edge
// walk described below.
func (t *Topology) GetFaceContainingPoint(point orb.Point) (FaceID, error) {
	if face, ok, err := t.storage.GetFaceContainingPoint(point); err != nil {
		return 0, &ErrStorageError{Op: "GetFaceContainingPoint", Err: err}
	} else if ok {
		return face, nil
	}

	closest, dist, ok, err := t.storage.GetClosestEdge(point, EdgeFieldAll)
	if err != nil {
		return 0, &ErrStorageError{Op: "GetClosestEdge", Err: err}
	}
	if !ok {
		// No edges at all: the whole plane is the universe face.
		return UniverseFace, nil
	}

	closestPt, segIdx := closestPointAndSegment(closest.Geom, point)
	_ = dist

	// Case 1/2: the closest point on the edge coincides with one of the
	// edge's own endpoint nodes.
	if pointsEqual(closestPt, closest.Geom[0]) || pointsEqual(closestPt, closest.Geom[len(closest.Geom)-1]) {
		var nodeID NodeID
		var nodePoint orb.Point
		if pointsEqual(closestPt, closest.Geom[0]) {
			nodeID, nodePoint = closest.StartNode, closest.Geom[0]
		} else {
			nodeID, nodePoint = closest.EndNode, closest.Geom[len(closest.Geom)-1]
		}

		if pointsEqual(point, nodePoint) {
			// Case 1: query sits exactly at the node. All edges incident
			// to it must agree on a single dangling face.
			return t.faceAtDanglingNode(nodeID, point)
		}

		// Case 2: query is elsewhere; use the azimuth fan.
		az, err := Azimuth(nodePoint, point)
		if err != nil {
			return 0, &ErrInvalidGeometry{Reason: "query coincides with node"}
		}
		adj, found, err := t.findAdjacentEdges(nodeID, nodePoint, az, nil, NoEdge)
		if err != nil {
			return 0, err
		}
		if !found {
			return 0, &ErrCorruptedTopology{Reason: "node has no edges despite being an edge endpoint"}
		}
		return adj.FaceCW, nil
	}

	if closest.IsDangling() {
		// Case 3.
		return closest.FaceLeft, nil
	}

	a, b := closest.Geom[segIdx], closest.Geom[segIdx+1]
	if !pointsEqual(closestPt, a) && !pointsEqual(closestPt, b) {
		// Case 4: strictly interior to a segment.
		switch SegmentSide(a, b, point) {
		case SideLeft:
			return closest.FaceLeft, nil
		case SideRight:
			return closest.FaceRight, nil
		default:
			return 0, &ErrAmbiguousLocation{Point: point}
		}
	}

	// Case 5: closestPt is an interior vertex of the line (not an
	// endpoint node). Compare the query's azimuth from that vertex
	// against the azimuths to the previous and next vertex to decide
	// which side's fan it falls into.
	vi := segIdx
	if pointsEqual(closestPt, b) {
		vi = segIdx + 1
	}
	prev := closest.Geom[vi-1]
	next := closest.Geom[vi+1]
	azPrev, err := Azimuth(closestPt, prev)
	if err != nil {
		return 0, &ErrInvalidGeometry{Reason: "degenerate vertex azimuth"}
	}
	azNext, err := Azimuth(closestPt, next)
	if err != nil {
		return 0, &ErrInvalidGeometry{Reason: "degenerate vertex azimuth"}
	}
	azQuery, err := Azimuth(closestPt, point)
	if err != nil {
		return 0, &ErrAmbiguousLocation{Point: point}
	}
	if withinArc(azPrev, azNext, azQuery) {
		return closest.FaceRight, nil
	}
	return closest.FaceLeft, nil
}

// faceAtDanglingNode implements case 1: every edge incident to node must
// agree on a single face for the point to be unambiguous there.
func (t *Topology) faceAtDanglingNode(node NodeID, point orb.Point) (FaceID, error) {
	edges, err := t.storage.GetEdgeByNode([]NodeID{node}, EdgeFieldFaceLeft|EdgeFieldFaceRight)
	if err != nil {
		return 0, &ErrStorageError{Op: "GetEdgeByNode", Err: err}
	}
	if len(edges) == 0 {
		n, err := t.getNode(node, NodeFieldContainingFace)
		if err != nil {
			return 0, err
		}
		return n.ContainingFace, nil
	}
	face := edges[0].FaceLeft
	for _, e := range edges {
		if e.FaceLeft != e.FaceRight || e.FaceLeft != face {
			return 0, &ErrAmbiguousLocation{Point: point}
		}
	}
	return face, nil
}

// closestPointAndSegment returns the closest point on line to p and the
// index i of the segment line[i]-line[i+1] it lies on (i is clamped to
// the last valid segment when the closest point is the final vertex).
func closestPointAndSegment(line orb.LineString, p orb.Point) (orb.Point, int) {
	best := -1
	var bestPt orb.Point
	bestDist := -1.0
	for i := 0; i+1 < len(line); i++ {
		proj, d := ProjectPointOnSegment(line[i], line[i+1], p)
		if best == -1 || d < bestDist {
			best, bestPt, bestDist = i, proj, d
		}
	}
	if best == -1 {
		return line[0], 0
	}
	return bestPt, best
}

// withinArc reports whether azQuery lies within the arc swept going
// counter-clockwise from azFrom to azTo.
func withinArc(azFrom, azTo, azQuery float64) bool {
	span := angleDiff(azTo, azFrom)
	q := angleDiff(azQuery, azFrom)
	return q <= span
}
