package topo

import (
	"github.com/paulmach/orb"
)

// primitives.go implements §4.3, the ISO SQL/MM primitive layer: the
// operations that keep the invariants of §3 intact while adding,
// splitting, healing or removing the smallest unit of topology at a
// time. AddEdge/RemEdge additionally drive the face-split engine
// (edgering.go) when the mode requires it.

func (t *Topology) getNode(id NodeID, fields NodeField) (Node, error) {
	rows, err := t.storage.GetNodeByID([]NodeID{id}, fields)
	if err != nil {
		return Node{}, &ErrStorageError{Op: "GetNodeByID", Err: err}
	}
	if len(rows) == 0 {
		return Node{}, &ErrNonExistentNode{Node: id}
	}
	return rows[0], nil
}

func (t *Topology) getEdge(id EdgeID, fields EdgeField) (Edge, error) {
	rows, err := t.storage.GetEdgeByID([]EdgeID{id}, fields)
	if err != nil {
		return Edge{}, &ErrStorageError{Op: "GetEdgeByID", Err: err}
	}
	if len(rows) == 0 {
		return Edge{}, &ErrNonExistentEdge{Edge: id}
	}
	return rows[0], nil
}

func (t *Topology) pointCoveredByEdge(point orb.Point) (EdgeID, bool, error) {
	box := orb.Bound{Min: point, Max: point}
	edges, err := t.storage.GetEdgeWithinBox(box, EdgeFieldID|EdgeFieldGeom, -1)
	if err != nil {
		return 0, false, &ErrStorageError{Op: "GetEdgeWithinBox", Err: err}
	}
	for _, e := range edges {
		if pointOnOpenLine(e.Geom, point) {
			return e.ID, true, nil
		}
	}
	return 0, false, nil
}

// AddIsoNode implements §4.3.1. face == NoFace means "resolve it via
// GetFaceContainingPoint".
func (t *Topology) AddIsoNode(face FaceID, point orb.Point, skipChecks bool) (NodeID, error) {
	if !skipChecks {
		coincident, err := t.storage.GetNodeWithinDistance(point, 0, NodeFieldID, -1)
		if err != nil {
			return 0, &ErrStorageError{Op: "GetNodeWithinDistance", Err: err}
		}
		if len(coincident) > 0 {
			return 0, &ErrCoincidentNode{Point: point}
		}
		if eid, ok, err := t.pointCoveredByEdge(point); err != nil {
			return 0, err
		} else if ok {
			return 0, &ErrEdgeCrossesNode{Edge: eid}
		}
	}

	if face == NoFace {
		resolved, err := t.GetFaceContainingPoint(point)
		if err != nil {
			return 0, err
		}
		face = resolved
	} else if !skipChecks {
		resolved, err := t.GetFaceContainingPoint(point)
		if err != nil {
			return 0, err
		}
		if resolved != face {
			return 0, &ErrInvalidGeometry{Reason: "point does not lie inside the given face"}
		}
	}

	ids, err := t.storage.InsertNodes([]Node{{Point: point, ContainingFace: face}})
	if err != nil {
		return 0, &ErrStorageError{Op: "InsertNodes", Err: err}
	}
	return ids[0], nil
}

// MoveIsoNode implements §4.3.2.
func (t *Topology) MoveIsoNode(node NodeID, point orb.Point) error {
	n, err := t.getNode(node, NodeFieldAll)
	if err != nil {
		return err
	}
	if n.ContainingFace == NoFace {
		return &ErrNonIsolatedNode{Node: node}
	}
	coincident, err := t.storage.GetNodeWithinDistance(point, 0, NodeFieldID, -1)
	if err != nil {
		return &ErrStorageError{Op: "GetNodeWithinDistance", Err: err}
	}
	if len(coincident) > 0 {
		return &ErrCoincidentNode{Point: point}
	}
	if eid, ok, err := t.pointCoveredByEdge(point); err != nil {
		return err
	} else if ok {
		return &ErrEdgeCrossesNode{Edge: eid}
	}
	resolved, err := t.GetFaceContainingPoint(point)
	if err != nil {
		return err
	}
	if resolved != n.ContainingFace {
		return &ErrInvalidGeometry{Reason: "new location is not in the node's containing face"}
	}
	n.Point = point
	return wrapStorageErr("UpdateNodesByID", t.storage.UpdateNodesByID([]Node{n}, NodeFieldGeom))
}

// RemoveIsoNode implements §4.3.3's node half.
func (t *Topology) RemoveIsoNode(node NodeID) error {
	n, err := t.getNode(node, NodeFieldContainingFace)
	if err != nil {
		return err
	}
	if n.ContainingFace == NoFace {
		return &ErrNonIsolatedNode{Node: node}
	}
	ok, err := t.storage.PreCheckRemoveIsoNode(node)
	if err != nil {
		return &ErrStorageError{Op: "PreCheckRemoveIsoNode", Err: err}
	}
	if !ok {
		return &ErrInvalidGeometry{Reason: "node removal vetoed"}
	}
	return wrapStorageErr("DeleteNodesByID", t.storage.DeleteNodesByID([]NodeID{node}))
}

// RemIsoEdge implements §4.3.3's edge half.
func (t *Topology) RemIsoEdge(edge EdgeID) error {
	e, err := t.getEdge(edge, EdgeFieldAll)
	if err != nil {
		return err
	}
	if !e.IsDangling() {
		return &ErrEdgeNotDangling{Edge: edge, FaceLeft: e.FaceLeft, FaceRight: e.FaceRight}
	}
	ok, err := t.storage.PreCheckRemoveIsoEdge(edge)
	if err != nil {
		return &ErrStorageError{Op: "PreCheckRemoveIsoEdge", Err: err}
	}
	if !ok {
		return &ErrInvalidGeometry{Reason: "edge removal vetoed"}
	}

	face := e.FaceLeft
	for _, nid := range []NodeID{e.StartNode, e.EndNode} {
		n, err := t.getNode(nid, NodeFieldAll)
		if err != nil {
			return err
		}
		n.ContainingFace = face
		if err := wrapStorageErr("UpdateNodesByID", t.storage.UpdateNodesByID([]Node{n}, NodeFieldContainingFace)); err != nil {
			return err
		}
	}
	return wrapStorageErr("DeleteEdges", firstErr(t.storage.DeleteEdges(EdgeFilter{IDs: []EdgeID{edge}})))
}

// AddIsoEdge implements §4.3.4.
func (t *Topology) AddIsoEdge(start, end NodeID, line orb.LineString) (EdgeID, error) {
	s, err := t.getNode(start, NodeFieldAll)
	if err != nil {
		return 0, err
	}
	e, err := t.getNode(end, NodeFieldAll)
	if err != nil {
		return 0, err
	}
	if s.ContainingFace == NoFace {
		return 0, &ErrNonIsolatedNode{Node: start}
	}
	if e.ContainingFace == NoFace {
		return 0, &ErrNonIsolatedNode{Node: end}
	}
	if s.ContainingFace != e.ContainingFace {
		return 0, &ErrNodesInDifferentFaces{Node1: start, Node2: end, Face1: s.ContainingFace, Face2: e.ContainingFace}
	}
	if !SimpleLine(line) {
		return 0, &ErrInvalidGeometry{Reason: "line is not simple or has fewer than 2 distinct vertices"}
	}
	if !pointsEqual(line[0], s.Point) {
		return 0, &ErrEndpointNodeMismatch{Node: start}
	}
	if !pointsEqual(line[len(line)-1], e.Point) {
		return 0, &ErrEndpointNodeMismatch{Node: end}
	}
	if err := t.CheckEdgeCrossing(line, start, end); err != nil {
		return 0, err
	}

	id, err := t.nextEdgeID()
	if err != nil {
		return 0, err
	}
	newEdge := Edge{
		ID: id, StartNode: start, EndNode: end,
		FaceLeft: s.ContainingFace, FaceRight: s.ContainingFace,
		NextLeft: Signed(id, false), NextRight: Signed(id, true),
		Geom: line,
	}
	if err := t.storage.InsertEdges([]Edge{newEdge}); err != nil {
		return 0, &ErrStorageError{Op: "InsertEdges", Err: err}
	}
	for _, nid := range []NodeID{start, end} {
		n, _ := t.getNode(nid, NodeFieldAll)
		n.ContainingFace = NoFace
		if err := wrapStorageErr("UpdateNodesByID", t.storage.UpdateNodesByID([]Node{n}, NodeFieldContainingFace)); err != nil {
			return 0, err
		}
	}
	return id, nil
}

// ModEdgeSplit implements §4.3.5: the original edge is kept (shortened)
// and a single new edge covers the remainder.
func (t *Topology) ModEdgeSplit(edge EdgeID, point orb.Point, skipChecks bool) (NodeID, error) {
	return t.splitEdge(edge, point, skipChecks, true)
}

// NewEdgesSplit implements §4.3.6: the original edge is deleted and
// replaced by two freshly allocated edges.
func (t *Topology) NewEdgesSplit(edge EdgeID, point orb.Point, skipChecks bool) (NodeID, error) {
	return t.splitEdge(edge, point, skipChecks, false)
}

func (t *Topology) splitEdge(edgeID EdgeID, point orb.Point, skipChecks, keepOriginal bool) (NodeID, error) {
	e, err := t.getEdge(edgeID, EdgeFieldAll)
	if err != nil {
		return 0, err
	}
	if !skipChecks {
		coincident, err := t.storage.GetNodeWithinDistance(point, 0, NodeFieldID, -1)
		if err != nil {
			return 0, &ErrStorageError{Op: "GetNodeWithinDistance", Err: err}
		}
		if len(coincident) > 0 {
			return 0, &ErrCoincidentNode{Point: point}
		}
	}

	idx, ok := splitIndex(e.Geom, point)
	if !ok {
		return 0, &ErrInvalidGeometry{Reason: "split point does not lie on the edge"}
	}
	firstHalf := append(orb.LineString{}, e.Geom[:idx+1]...)
	if !pointsEqual(firstHalf[len(firstHalf)-1], point) {
		firstHalf = append(firstHalf, point)
	}
	secondHalf := append(orb.LineString{point}, e.Geom[idx+1:]...)

	nodeIDs, err := t.storage.InsertNodes([]Node{{Point: point, ContainingFace: NoFace}})
	if err != nil {
		return 0, &ErrStorageError{Op: "InsertNodes", Err: err}
	}
	newNode := nodeIDs[0]

	newID, err := t.nextEdgeID()
	if err != nil {
		return 0, err
	}

	if keepOriginal {
		oldEnd := e.EndNode
		updated := e
		updated.Geom = firstHalf
		updated.EndNode = newNode
		updated.NextLeft = Signed(newID, true)

		newEdge := Edge{
			ID: newID, StartNode: newNode, EndNode: oldEnd,
			FaceLeft: e.FaceLeft, FaceRight: e.FaceRight,
			NextLeft: e.NextLeft, NextRight: Signed(edgeID, true),
			Geom: secondHalf,
		}
		if err := t.storage.InsertEdges([]Edge{newEdge}); err != nil {
			return 0, &ErrStorageError{Op: "InsertEdges", Err: err}
		}
		if err := wrapStorageErr("UpdateEdgesByID", t.storage.UpdateEdgesByID([]Edge{updated}, EdgeFieldGeom|EdgeFieldEndNode|EdgeFieldNextLeft)); err != nil {
			return 0, err
		}
		if err := t.relinkEndNode(edgeID, oldEnd, newID); err != nil {
			return 0, err
		}
		t.storage.OnEdgeSplit(edgeID, edgeID, NoEdge)
	} else {
		newID2, err := t.nextEdgeID2(newID)
		if err != nil {
			return 0, err
		}
		firstEdge := Edge{
			ID: newID, StartNode: e.StartNode, EndNode: newNode,
			FaceLeft: e.FaceLeft, FaceRight: e.FaceRight,
			NextLeft: Signed(newID2, true), NextRight: redirectSelf(e.NextRight, edgeID, newID, true),
			Geom: firstHalf,
		}
		secondEdge := Edge{
			ID: newID2, StartNode: newNode, EndNode: e.EndNode,
			FaceLeft: e.FaceLeft, FaceRight: e.FaceRight,
			NextLeft: redirectSelf(e.NextLeft, edgeID, newID2, true), NextRight: Signed(newID, true),
			Geom: secondHalf,
		}
		if err := t.storage.InsertEdges([]Edge{firstEdge, secondEdge}); err != nil {
			return 0, &ErrStorageError{Op: "InsertEdges", Err: err}
		}
		if err := t.redirectAllReferences(edgeID, e.StartNode, e.EndNode, newID, newID2); err != nil {
			return 0, err
		}
		if err := wrapStorageErr("DeleteEdges", firstErr(t.storage.DeleteEdges(EdgeFilter{IDs: []EdgeID{edgeID}}))); err != nil {
			return 0, err
		}
		t.storage.OnEdgeSplit(edgeID, newID, newID2)
	}

	return newNode, nil
}

// nextEdgeID2 is a convenience for NewEdgesSplit, which allocates two
// fresh ids back to back.
func (t *Topology) nextEdgeID2(first EdgeID) (EdgeID, error) {
	id, err := t.nextEdgeID()
	if err != nil {
		return 0, err
	}
	if id == first {
		id, err = t.nextEdgeID()
		if err != nil {
			return 0, err
		}
	}
	return id, nil
}

// redirectSelf rewrites a self-referencing next link (one that pointed
// at the edge being split) to point at the appropriate new half,
// preserving direction.
func redirectSelf(link SignedEdgeID, old, replacement EdgeID, forward bool) SignedEdgeID {
	if link.Edge() != old {
		return link
	}
	return Signed(replacement, link.Forward())
}

// relinkEndNode rewrites every remaining edge whose next_left/next_right
// still points at original's attachment at endNode (original's own end
// node, untouched by the split) to point at newEdge instead, since
// newEdge now owns that side. endNode itself is never moved: every edge
// genuinely incident to it, other than original and newEdge, stays
// incident to it.
func (t *Topology) relinkEndNode(original EdgeID, endNode NodeID, newEdge EdgeID) error {
	target := Signed(original, false)
	replacement := Signed(newEdge, false)

	incident, err := t.storage.GetEdgeByNode([]NodeID{endNode}, EdgeFieldAll)
	if err != nil {
		return &ErrStorageError{Op: "GetEdgeByNode", Err: err}
	}
	for _, inc := range incident {
		if inc.ID == original || inc.ID == newEdge {
			continue
		}
		patch := inc
		changed := false
		if inc.NextLeft == target {
			patch.NextLeft = replacement
			changed = true
		}
		if inc.NextRight == target {
			patch.NextRight = replacement
			changed = true
		}
		if changed {
			fields := EdgeField(0)
			if patch.NextLeft != inc.NextLeft {
				fields |= EdgeFieldNextLeft
			}
			if patch.NextRight != inc.NextRight {
				fields |= EdgeFieldNextRight
			}
			if err := wrapStorageErr("UpdateEdgesByID", t.storage.UpdateEdgesByID([]Edge{patch}, fields)); err != nil {
				return err
			}
		}
	}
	return nil
}

// redirectAllReferences rewrites every remaining edge's next_left/
// next_right that pointed at `old` to point at whichever of new1/new2
// actually owns that side after the split, for NewEdgesSplit.
func (t *Topology) redirectAllReferences(old EdgeID, startNode, endNode NodeID, new1, new2 EdgeID) error {
	for _, nid := range []NodeID{startNode, endNode} {
		incident, err := t.storage.GetEdgeByNode([]NodeID{nid}, EdgeFieldAll)
		if err != nil {
			return &ErrStorageError{Op: "GetEdgeByNode", Err: err}
		}
		for _, inc := range incident {
			if inc.ID == old || inc.ID == new1 || inc.ID == new2 {
				continue
			}
			changed := false
			patch := inc
			if inc.NextLeft.Edge() == old {
				patch.NextLeft = resolveSplitRef(inc.NextLeft, startNode, endNode, new1, new2)
				changed = true
			}
			if inc.NextRight.Edge() == old {
				patch.NextRight = resolveSplitRef(inc.NextRight, startNode, endNode, new1, new2)
				changed = true
			}
			if inc.StartNode == nid {
				// endpoints never move under NewEdgesSplit (only the
				// interior split node is new); nothing to patch here.
				_ = changed
			}
			if changed {
				if err := wrapStorageErr("UpdateEdgesByID", t.storage.UpdateEdgesByID([]Edge{patch}, EdgeFieldNextLeft|EdgeFieldNextRight)); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// resolveSplitRef decides, for a reference that used to point at the
// original (now-deleted) edge in a given direction, whether new1 or new2
// now owns that attachment: forward references that used to arrive at
// startNode now arrive via new1, those arriving at endNode via new2
// (new1 covers start->mid, new2 covers mid->end).
func resolveSplitRef(old SignedEdgeID, startNode, endNode NodeID, new1, new2 EdgeID) SignedEdgeID {
	// A forward reference to the old edge means "leave startNode along
	// the edge", which after the split is new1 traversed forward; a
	// backward reference means "leave endNode against the edge", which
	// after the split is new2 traversed backward.
	if old.Forward() {
		return Signed(new1, true)
	}
	return Signed(new2, false)
}

// splitIndex finds the segment of line that point lies on (excluding the
// very first vertex) and returns the index i such that point lies on
// segment line[i]-line[i+1].
func splitIndex(line orb.LineString, point orb.Point) (int, bool) {
	for i := 0; i+1 < len(line); i++ {
		if PointOnSegment(line[i], line[i+1], point) && !pointsEqual(point, line[i]) {
			return i, true
		}
	}
	return 0, false
}

func wrapStorageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &ErrStorageError{Op: op, Err: err}
}

func firstErr(_ int, err error) error { return err }
