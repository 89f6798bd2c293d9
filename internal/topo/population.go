package topo

import (
	"context"
	"sort"

	"github.com/paulmach/orb"
)

// population.go implements §4.7, the tolerance population layer: the
// entry points that accept raw point/line/polygon geometry, snap it
// against whatever topology already exists within tolerance, and
// register the result through the primitive layer. Every entry point
// threads a context.Context per §5's cooperative-cancellation model.

// GeometryType tags which case a Geometry value carries, replacing the
// original's runtime type checks (per DESIGN NOTES: "tagged variants for
// geometry").
type GeometryType int

const (
	GeometryPoint GeometryType = iota
	GeometryLine
	GeometryPolygon
)

// Geometry is the tagged union LoadGeometry dispatches on.
type Geometry struct {
	Type    GeometryType
	Point   orb.Point
	Line    orb.LineString
	Polygon orb.Polygon
}

// LoadResult reports what LoadGeometry registered.
type LoadResult struct {
	Node  NodeID
	Edges []SignedEdgeID
	Faces []FaceID
}

// LoadGeometry implements §4.7's umbrella entry point: dispatch to
// AddPoint/AddLine/AddPolygon by the geometry's tag.
func (t *Topology) LoadGeometry(ctx context.Context, g Geometry, opts PopulateOptions) (LoadResult, error) {
	switch g.Type {
	case GeometryPoint:
		node, _, err := t.AddPoint(ctx, g.Point, opts)
		return LoadResult{Node: node}, err
	case GeometryLine:
		edges, err := t.AddLine(ctx, g.Line, opts)
		return LoadResult{Edges: edges}, err
	case GeometryPolygon:
		faces, err := t.AddPolygon(ctx, g.Polygon, opts)
		return LoadResult{Faces: faces}, err
	default:
		return LoadResult{}, &ErrInvalidGeometry{Reason: "unknown geometry tag"}
	}
}

// AddPoint implements §4.7.1.
func (t *Topology) AddPoint(ctx context.Context, point orb.Point, opts PopulateOptions) (NodeID, bool, error) {
	if err := checkCancel(ctx); err != nil {
		return 0, false, err
	}

	if nodes, err := t.storage.GetNodeWithinDistance(point, opts.Tolerance, NodeFieldID, -1); err != nil {
		return 0, false, &ErrStorageError{Op: "GetNodeWithinDistance", Err: err}
	} else if len(nodes) > 0 {
		return nodes[0].ID, false, nil
	}

	edges, err := t.storage.GetEdgeWithinDistance(point, opts.Tolerance, EdgeFieldAll, -1)
	if err != nil {
		return 0, false, &ErrStorageError{Op: "GetEdgeWithinDistance", Err: err}
	}
	if len(edges) > 0 {
		sort.Slice(edges, func(i, j int) bool {
			_, di := DistanceToLineString(edges[i].Geom, point)
			_, dj := DistanceToLineString(edges[j].Geom, point)
			return di < dj
		})
		closest := edges[0]
		proj, _ := DistanceToLineString(closest.Geom, point)
		if pointsEqual(proj, closest.Geom[0]) {
			return closest.StartNode, false, nil
		}
		if pointsEqual(proj, closest.Geom[len(closest.Geom)-1]) {
			return closest.EndNode, false, nil
		}
		node, err := t.ModEdgeSplit(closest.ID, proj, false)
		if err != nil {
			return 0, false, err
		}
		if err := t.resnapCoincidentEdges(closest.StartNode, closest.EndNode, node, proj, opts.Tolerance); err != nil {
			return 0, false, err
		}
		return node, true, nil
	}

	node, err := t.AddIsoNode(NoFace, point, false)
	return node, err == nil, err
}

// resnapCoincidentEdges re-links any other edge end within tol of the
// newly split node's point onto that node, using the edge-end star at
// each of the split edge's own endpoints as the candidate set — this is
// the "snap other nearby edges to the new node via the edge-end star
// machinery" step §4.7.1 calls for when an edge is split mid-AddPoint.
func (t *Topology) resnapCoincidentEdges(origStart, origEnd, newNode NodeID, newPoint orb.Point, tol float64) error {
	if tol <= 0 {
		return nil
	}
	for _, n := range []NodeID{origStart, origEnd} {
		nodeRow, err := t.getNode(n, NodeFieldAll)
		if err != nil {
			return err
		}
		star, err := t.edgeEndStarAt(n, nodeRow.Point)
		if err != nil {
			return err
		}
		for _, end := range star.Ends() {
			e, err := t.getEdge(end.Edge, EdgeFieldAll)
			if err != nil {
				return err
			}
			if MinDistance(end.P1, newPoint) > tol || pointsEqual(end.P1, newPoint) {
				continue
			}
			// The neighboring vertex of this edge end is near enough to
			// the new node to be considered the same point; nudge it.
			geom := append(orb.LineString{}, e.Geom...)
			if end.Outgoing {
				geom[1] = newPoint
			} else {
				geom[len(geom)-2] = newPoint
			}
			if err := wrapStorageErr("UpdateEdgesByID", t.storage.UpdateEdgesByID([]Edge{{ID: e.ID, Geom: geom}}, EdgeFieldGeom)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (t *Topology) edgeEndStarAt(node NodeID, point orb.Point) (*EdgeEndStar, error) {
	edges, err := t.storage.GetEdgeByNode([]NodeID{node}, EdgeFieldAll)
	if err != nil {
		return nil, &ErrStorageError{Op: "GetEdgeByNode", Err: err}
	}
	return NewEdgeEndStar(node, point, edges)
}

// AddLine implements §4.7.2.
func (t *Topology) AddLine(ctx context.Context, line orb.LineString, opts PopulateOptions) ([]SignedEdgeID, error) {
	if err := checkCancel(ctx); err != nil {
		return nil, err
	}

	clean := RemoveConsecutiveDuplicates(line, opts.Tolerance)
	if DistinctVertexCount(clean) < 2 {
		return nil, &ErrInvalidGeometry{Reason: "line collapses to a point after tolerance snapping"}
	}

	nodePoints := SelfNode(clean)
	pieces := NodedSegments(clean, nodePoints)
	if len(pieces) == 0 {
		pieces = []orb.LineString{clean}
	}

	box := LineStringBound(clean)
	if opts.Tolerance > 0 {
		box = box.Pad(opts.Tolerance)
	}
	nearbyEdges, err := t.storage.GetEdgeWithinBox(box, EdgeFieldAll, -1)
	if err != nil {
		return nil, &ErrStorageError{Op: "GetEdgeWithinBox", Err: err}
	}
	nearbyNodes, err := t.storage.GetNodeWithinBox(box, NodeFieldAll, -1)
	if err != nil {
		return nil, &ErrStorageError{Op: "GetNodeWithinBox", Err: err}
	}

	var snapPoints []orb.Point
	for _, n := range nearbyNodes {
		snapPoints = append(snapPoints, n.Point)
	}
	for _, e := range nearbyEdges {
		snapPoints = append(snapPoints, e.Geom...)
	}

	var nearbyVertices []orb.Point
	nearbyVertices = append(nearbyVertices, snapPoints...)

	var results []SignedEdgeID
	for _, piece := range pieces {
		if err := checkCancel(ctx); err != nil {
			return results, err
		}

		snapped := piece
		if len(snapPoints) > 0 && opts.Tolerance > 0 {
			maxIter := opts.MaxSnapIterations
			if maxIter <= 0 {
				maxIter = 1
			}
			snapped = SnapToStable(piece, snapPoints, opts.Tolerance, maxIter)
		}

		subPieces := SplitByNearbyVertices(snapped, nearbyVertices, opts.Tolerance)
		if len(subPieces) == 0 {
			subPieces = []orb.LineString{snapped}
		}
		for _, sub := range subPieces {
			if DistinctVertexCount(sub) < 2 {
				continue
			}
			id, err := t.addLineEdge(ctx, sub, opts)
			if err != nil {
				return results, err
			}
			results = append(results, id)
		}
	}
	return results, nil
}

// addLineEdge implements §4.7.3: ensure endpoints exist, re-snap to
// their final position, reuse an identical existing edge if one covers
// the same line, otherwise register a new one through the primitive
// layer in MOD_FACE mode (NO_FACE_CHECK is reserved for the
// polygonizer's pre-face-recovery population pass).
func (t *Topology) addLineEdge(ctx context.Context, line orb.LineString, opts PopulateOptions) (SignedEdgeID, error) {
	startID, _, err := t.AddPoint(ctx, line[0], opts)
	if err != nil {
		return 0, err
	}
	endID, _, err := t.AddPoint(ctx, line[len(line)-1], opts)
	if err != nil {
		return 0, err
	}

	startNode, err := t.getNode(startID, NodeFieldAll)
	if err != nil {
		return 0, err
	}
	endNode, err := t.getNode(endID, NodeFieldAll)
	if err != nil {
		return 0, err
	}
	resnapped := append(orb.LineString{}, line...)
	resnapped[0] = startNode.Point
	resnapped[len(resnapped)-1] = endNode.Point

	box := LineStringBound(resnapped)
	candidates, err := t.storage.GetEdgeWithinBox(box, EdgeFieldAll, -1)
	if err != nil {
		return 0, &ErrStorageError{Op: "GetEdgeWithinBox", Err: err}
	}
	for _, c := range candidates {
		if sameLineString(resnapped, c.Geom) {
			forward := pointsEqual(c.Geom[0], resnapped[0])
			return Signed(c.ID, forward), nil
		}
	}

	id, err := t.AddEdgeModFace(startID, endID, resnapped, false)
	if err != nil {
		return 0, err
	}
	return Signed(id, true), nil
}

// AddPolygon implements §4.7.4.
func (t *Topology) AddPolygon(ctx context.Context, poly orb.Polygon, opts PopulateOptions) ([]FaceID, error) {
	if err := checkCancel(ctx); err != nil {
		return nil, err
	}
	if len(poly) == 0 {
		return nil, &ErrInvalidGeometry{Reason: "polygon has no rings"}
	}

	for _, ring := range poly {
		if err := checkCancel(ctx); err != nil {
			return nil, err
		}
		if _, err := t.AddLine(ctx, orb.LineString(ring), opts); err != nil {
			return nil, err
		}
	}

	box := poly.Bound()
	candidates, err := t.storage.GetFaceWithinBox(box, FaceFieldAll, -1)
	if err != nil {
		return nil, &ErrStorageError{Op: "GetFaceWithinBox", Err: err}
	}

	var covered []FaceID
	for _, f := range candidates {
		if err := checkCancel(ctx); err != nil {
			return covered, err
		}
		pt, ok, err := t.representativeFacePoint(f.ID)
		if err != nil {
			return covered, err
		}
		if !ok {
			continue
		}
		if polygonCoversPoint(poly, pt) {
			covered = append(covered, f.ID)
		}
	}
	return covered, nil
}

// representativeFacePoint returns a point known to lie strictly inside
// face, derived from one of its bounding edges: the midpoint of that
// edge nudged a small distance toward the side the face occupies.
func (t *Topology) representativeFacePoint(face FaceID) (orb.Point, bool, error) {
	edges, err := t.storage.GetEdgeByFace([]FaceID{face}, EdgeFieldAll, nil)
	if err != nil {
		return orb.Point{}, false, &ErrStorageError{Op: "GetEdgeByFace", Err: err}
	}
	for _, e := range edges {
		if len(e.Geom) < 2 {
			continue
		}
		a, b := e.Geom[0], e.Geom[1]
		mid := midpoint(orb.LineString{a, b})
		dx, dy := b[0]-a[0], b[1]-a[1]
		length := MinDistance(a, b)
		if length == 0 {
			continue
		}
		// Left-hand normal of direction a->b.
		nx, ny := -dy/length, dx/length
		nudge := length * 1e-6
		if nudge == 0 {
			nudge = epsilon
		}
		var cand orb.Point
		if e.FaceLeft == face {
			cand = orb.Point{mid[0] + nx*nudge, mid[1] + ny*nudge}
		} else if e.FaceRight == face {
			cand = orb.Point{mid[0] - nx*nudge, mid[1] - ny*nudge}
		} else {
			continue
		}
		return cand, true, nil
	}
	return orb.Point{}, false, nil
}

// polygonCoversPoint tests point against every ring of poly: inside the
// outer ring and not inside any hole.
func polygonCoversPoint(poly orb.Polygon, point orb.Point) bool {
	if len(poly) == 0 {
		return false
	}
	if PointInRing(orb.LineString(poly[0]), point) == LocationOutside {
		return false
	}
	for _, hole := range poly[1:] {
		if loc := PointInRing(orb.LineString(hole), point); loc == LocationInside {
			return false
		}
	}
	return true
}
