package topo

import "github.com/paulmach/orb"

// edgeops.go holds §4.3.7-4.3.10: ChangeEdgeGeom, _HealEdges, the
// flagship _AddEdge and _RemEdge. Together with primitives.go these are
// the operations invariant-preservation actually rides on; everything
// else in the package either reads topology or calls down into these.

// AddEdgeMode selects which of _AddEdge's three behaviors to use.
type AddEdgeMode int

const (
	// ModFace keeps the old face row on a split, adding one new face.
	ModFace AddEdgeMode = iota
	// NewFaces deletes the old face row on a split, allocating two new
	// ones (one per side of the new edge).
	NewFaces
	// NoFaceCheck skips all face bookkeeping: the new edge is left with
	// face_left = face_right = NoFace.
	NoFaceCheck
)

func (t *Topology) AddEdgeModFace(start, end NodeID, line orb.LineString, skipChecks bool) (EdgeID, error) {
	return t.addEdge(start, end, line, skipChecks, ModFace)
}

func (t *Topology) AddEdgeNewFaces(start, end NodeID, line orb.LineString, skipChecks bool) (EdgeID, error) {
	return t.addEdge(start, end, line, skipChecks, NewFaces)
}

func (t *Topology) AddEdgeNoFaceCheck(start, end NodeID, line orb.LineString, skipChecks bool) (EdgeID, error) {
	return t.addEdge(start, end, line, skipChecks, NoFaceCheck)
}

// addEdge implements §4.3.9.
func (t *Topology) addEdge(start, end NodeID, line orb.LineString, skipChecks bool, mode AddEdgeMode) (EdgeID, error) {
	if len(line) < 2 {
		return 0, &ErrInvalidGeometry{Reason: "edge needs at least two vertices"}
	}
	if !skipChecks && !SimpleLine(line) {
		return 0, &ErrInvalidGeometry{Reason: "line is not simple"}
	}

	p1 := line[0]
	pn, ok := FirstDistinctVertex(line, p1, 0, 1)
	if !ok {
		return 0, &ErrInvalidGeometry{Reason: "edge has no distinct second vertex"}
	}
	azStart, err := Azimuth(p1, pn)
	if err != nil {
		return 0, &ErrInvalidGeometry{Reason: "could not compute start azimuth"}
	}

	p2 := line[len(line)-1]
	pm, ok := FirstDistinctVertex(line, p2, len(line)-1, -1)
	if !ok {
		return 0, &ErrInvalidGeometry{Reason: "edge has no distinct second-to-last vertex"}
	}
	azEnd, err := Azimuth(p2, pm)
	if err != nil {
		return 0, &ErrInvalidGeometry{Reason: "could not compute end azimuth"}
	}

	nodeIDs := []NodeID{start}
	if end != start {
		nodeIDs = append(nodeIDs, end)
	}
	nodes, err := t.storage.GetNodeByID(nodeIDs, NodeFieldAll)
	if err != nil {
		return 0, &ErrStorageError{Op: "GetNodeByID", Err: err}
	}
	byID := make(map[NodeID]Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}
	sNode, ok := byID[start]
	if !ok {
		return 0, &ErrNonExistentNode{Node: start}
	}
	eNode, ok := byID[end]
	if !ok {
		return 0, &ErrNonExistentNode{Node: end}
	}

	if !skipChecks {
		if !pointsEqual(p1, sNode.Point) {
			return 0, &ErrEndpointNodeMismatch{Node: start}
		}
		if !pointsEqual(p2, eNode.Point) {
			return 0, &ErrEndpointNodeMismatch{Node: end}
		}
		if err := t.CheckEdgeCrossing(line, start, end); err != nil {
			return 0, err
		}
	}

	faceLeft, faceRight := NoFace, NoFace
	for _, n := range [2]Node{sNode, eNode} {
		if n.ContainingFace == NoFace {
			continue
		}
		if faceLeft == NoFace {
			faceLeft, faceRight = n.ContainingFace, n.ContainingFace
		} else if mode != NoFaceCheck && faceLeft != n.ContainingFace {
			return 0, &ErrSideLocationConflict{Node1: start, Node2: end}
		}
	}

	newID, err := t.nextEdgeID()
	if err != nil {
		return 0, err
	}

	isClosed := start == end
	var selfAzForStart, selfAzForEnd *float64
	if isClosed {
		selfAzForStart, selfAzForEnd = &azEnd, &azStart
	}

	var nextRight, prevLeft, nextLeft, prevRight SignedEdgeID

	startAdj, startFound, err := t.findAdjacentEdges(start, sNode.Point, azStart, selfAzForStart, NoEdge)
	if err != nil {
		return 0, err
	}
	if startFound {
		nextRight = startAdj.NextCW
		prevLeft = startAdj.NextCCW.Reversed()
		if faceRight == NoFace {
			faceRight = startAdj.FaceCW
		}
		if faceLeft == NoFace {
			faceLeft = startAdj.FaceCCW
		}
	} else if isClosed {
		nextRight, prevLeft = Signed(newID, false), Signed(newID, true)
	} else {
		nextRight, prevLeft = Signed(newID, true), Signed(newID, false)
	}

	endAdj, endFound, err := t.findAdjacentEdges(end, eNode.Point, azEnd, selfAzForEnd, NoEdge)
	if err != nil {
		return 0, err
	}
	if endFound {
		nextLeft = endAdj.NextCW
		prevRight = endAdj.NextCCW.Reversed()
		if faceRight == NoFace {
			faceRight = endAdj.FaceCCW
		} else if mode != NoFaceCheck && faceRight != endAdj.FaceCCW {
			return 0, &ErrSideLocationConflict{Node1: start, Node2: end}
		}
		if faceLeft == NoFace {
			faceLeft = endAdj.FaceCW
		} else if mode != NoFaceCheck && faceLeft != endAdj.FaceCW {
			return 0, &ErrSideLocationConflict{Node1: start, Node2: end}
		}
	} else if isClosed {
		nextLeft, prevRight = Signed(newID, true), Signed(newID, false)
	} else {
		nextLeft, prevRight = Signed(newID, false), Signed(newID, true)
	}

	if mode == NoFaceCheck {
		faceLeft, faceRight = NoFace, NoFace
	} else {
		if faceLeft != faceRight {
			return 0, &ErrCorruptedTopology{Reason: "left/right face mismatch while adding edge"}
		}
		if faceLeft == NoFace {
			return 0, &ErrCorruptedTopology{Reason: "could not derive edge face from linked primitives"}
		}
	}

	newEdge := Edge{
		ID: newID, StartNode: start, EndNode: end,
		FaceLeft: faceLeft, FaceRight: faceRight,
		NextLeft: nextLeft, NextRight: nextRight,
		Geom: line,
	}
	if err := t.storage.InsertEdges([]Edge{newEdge}); err != nil {
		return 0, &ErrStorageError{Op: "InsertEdges", Err: err}
	}

	if prevLeft.Edge() != newID {
		if err := t.relinkPredecessor(prevLeft, Signed(newID, true)); err != nil {
			return 0, err
		}
	}
	if prevRight.Edge() != newID {
		if err := t.relinkPredecessor(prevRight, Signed(newID, false)); err != nil {
			return 0, err
		}
	}

	if !startFound {
		s2 := sNode
		s2.ContainingFace = NoFace
		if err := wrapStorageErr("UpdateNodesByID", t.storage.UpdateNodesByID([]Node{s2}, NodeFieldContainingFace)); err != nil {
			return 0, err
		}
	}
	if !endFound && end != start {
		e2 := eNode
		e2.ContainingFace = NoFace
		if err := wrapStorageErr("UpdateNodesByID", t.storage.UpdateNodesByID([]Node{e2}, NodeFieldContainingFace)); err != nil {
			return 0, err
		}
	}

	if err := t.maybeSplitFaces(newID, faceLeft, mode, isClosed, startFound, endFound); err != nil {
		return 0, err
	}

	return newID, nil
}

// relinkPredecessor rewrites whichever of the referenced edge's own
// next_left/next_right fields the sign of prev selects: a positive prev
// selects next_left, a negative prev selects next_right. This mirrors
// the raw sign bookkeeping of the ISO linking algorithm rather than the
// "which side did I approach from" reading used elsewhere in this
// package.
func (t *Topology) relinkPredecessor(prev SignedEdgeID, value SignedEdgeID) error {
	pe, err := t.getEdge(prev.Edge(), EdgeFieldAll)
	if err != nil {
		return err
	}
	if prev.Forward() {
		pe.NextLeft = value
		return wrapStorageErr("UpdateEdgesByID", t.storage.UpdateEdgesByID([]Edge{pe}, EdgeFieldNextLeft))
	}
	pe.NextRight = value
	return wrapStorageErr("UpdateEdgesByID", t.storage.UpdateEdgesByID([]Edge{pe}, EdgeFieldNextRight))
}

// maybeSplitFaces runs the face-split engine against the freshly
// inserted edge per the mode's rules. An open edge with an endpoint that
// had no other incident edge cannot close a ring, so it splits nothing.
func (t *Topology) maybeSplitFaces(newID EdgeID, faceLeft FaceID, mode AddEdgeMode, isClosed, startFound, endFound bool) error {
	if mode == NoFaceCheck {
		return nil
	}
	if !isClosed && (!startFound || !endFound) {
		return nil
	}

	if mode == NewFaces {
		res, err := t.AddFaceSplit(Signed(newID, false), faceLeft, false)
		if err != nil {
			return err
		}
		if res.NotARing {
			return nil
		}
	}

	res, err := t.AddFaceSplit(Signed(newID, true), faceLeft, false)
	if err != nil {
		return err
	}

	if mode == ModFace {
		switch {
		case res.NotARing:
			return nil
		case res.LeftIsUniverse:
			res2, err := t.AddFaceSplit(Signed(newID, false), faceLeft, false)
			if err != nil {
				return err
			}
			if res2.NotARing || res2.LeftIsUniverse {
				return nil
			}
		default:
			if _, err := t.AddFaceSplit(Signed(newID, false), faceLeft, true); err != nil {
				return err
			}
		}
	}

	if mode == NewFaces && faceLeft != UniverseFace {
		if err := wrapStorageErr("DeleteFacesByID", t.storage.DeleteFacesByID([]FaceID{faceLeft})); err != nil {
			return err
		}
	}
	return nil
}

func (t *Topology) RemEdgeModFace(edge EdgeID) (FaceID, error) {
	return t.remEdge(edge, true)
}

func (t *Topology) RemEdgeNewFace(edge EdgeID) (FaceID, error) {
	return t.remEdge(edge, false)
}

// remEdge implements §4.3.10.
func (t *Topology) remEdge(edgeID EdgeID, modFace bool) (FaceID, error) {
	e, err := t.getEdge(edgeID, EdgeFieldAll)
	if err != nil {
		return 0, err
	}
	ok, err := t.storage.PreCheckRemoveEdge(edgeID, e.FaceLeft, e.FaceRight)
	if err != nil {
		return 0, &ErrStorageError{Op: "PreCheckRemoveEdge", Err: err}
	}
	if !ok {
		return 0, &ErrInvalidGeometry{Reason: "edge removal vetoed"}
	}

	nodeIDs := []NodeID{e.StartNode}
	if e.EndNode != e.StartNode {
		nodeIDs = append(nodeIDs, e.EndNode)
	}
	incident, err := t.storage.GetEdgeByNode(nodeIDs, EdgeFieldID|EdgeFieldStartNode|EdgeFieldEndNode|EdgeFieldNextLeft|EdgeFieldNextRight)
	if err != nil {
		return 0, &ErrStorageError{Op: "GetEdgeByNode", Err: err}
	}

	startDegree, endDegree := 0, 0
	for _, other := range incident {
		if other.ID == edgeID {
			continue
		}
		if other.StartNode == e.StartNode || other.EndNode == e.StartNode {
			startDegree++
		}
		if other.StartNode == e.EndNode || other.EndNode == e.EndNode {
			endDegree++
		}

		patch := other
		changed := false
		if other.NextLeft == -SignedEdgeID(edgeID) {
			patch.NextLeft = pickSurviving(e.NextLeft, e.NextRight, edgeID)
			changed = true
		} else if other.NextLeft == SignedEdgeID(edgeID) {
			patch.NextLeft = pickSurviving(e.NextRight, e.NextLeft, edgeID)
			changed = true
		}
		if other.NextRight == -SignedEdgeID(edgeID) {
			patch.NextRight = pickSurviving(e.NextLeft, e.NextRight, edgeID)
			changed = true
		} else if other.NextRight == SignedEdgeID(edgeID) {
			patch.NextRight = pickSurviving(e.NextRight, e.NextLeft, edgeID)
			changed = true
		}
		if changed {
			fields := EdgeField(0)
			if patch.NextLeft != other.NextLeft {
				fields |= EdgeFieldNextLeft
			}
			if patch.NextRight != other.NextRight {
				fields |= EdgeFieldNextRight
			}
			if err := wrapStorageErr("UpdateEdgesByID", t.storage.UpdateEdgesByID([]Edge{patch}, fields)); err != nil {
				return 0, err
			}
		}
	}

	floodFace := e.FaceRight
	if e.FaceLeft != e.FaceRight {
		switch {
		case e.FaceLeft == UniverseFace:
			floodFace = UniverseFace
		case e.FaceRight == UniverseFace:
			floodFace = UniverseFace
		case modFace:
			faces, err := t.storage.GetFaceByID([]FaceID{e.FaceLeft, e.FaceRight}, FaceFieldAll)
			if err != nil {
				return 0, &ErrStorageError{Op: "GetFaceByID", Err: err}
			}
			mbr, ok := unionFaceMBRs(faces, e.FaceLeft, e.FaceRight)
			if !ok {
				return 0, &ErrCorruptedTopology{Reason: "edge references a non-existent face"}
			}
			floodFace = e.FaceRight
			if err := wrapStorageErr("UpdateFacesByID", t.storage.UpdateFacesByID([]Face{{ID: floodFace, MBR: mbr}}, FaceFieldMBR)); err != nil {
				return 0, err
			}
		default:
			faces, err := t.storage.GetFaceByID([]FaceID{e.FaceLeft, e.FaceRight}, FaceFieldAll)
			if err != nil {
				return 0, &ErrStorageError{Op: "GetFaceByID", Err: err}
			}
			mbr, ok := unionFaceMBRs(faces, e.FaceLeft, e.FaceRight)
			if !ok {
				return 0, &ErrCorruptedTopology{Reason: "edge references a non-existent face"}
			}
			ids, err := t.storage.InsertFaces([]Face{{MBR: mbr}})
			if err != nil {
				return 0, &ErrStorageError{Op: "InsertFaces", Err: err}
			}
			floodFace = ids[0]
		}

		if e.FaceLeft != floodFace && e.FaceLeft != UniverseFace {
			if err := t.reassignFace(e.FaceLeft, floodFace); err != nil {
				return 0, err
			}
		}
		if e.FaceRight != floodFace && e.FaceRight != UniverseFace {
			if err := t.reassignFace(e.FaceRight, floodFace); err != nil {
				return 0, err
			}
		}
		t.storage.OnFaceHeal(e.FaceLeft, e.FaceRight, floodFace)
	}

	if err := wrapStorageErr("DeleteEdges", firstErr(t.storage.DeleteEdges(EdgeFilter{IDs: []EdgeID{edgeID}}))); err != nil {
		return 0, err
	}

	var strandedNodes []Node
	if startDegree == 0 {
		n := Node{ID: e.StartNode, ContainingFace: floodFace}
		strandedNodes = append(strandedNodes, n)
	}
	if e.EndNode != e.StartNode && endDegree == 0 {
		n := Node{ID: e.EndNode, ContainingFace: floodFace}
		strandedNodes = append(strandedNodes, n)
	}
	if len(strandedNodes) > 0 {
		if err := wrapStorageErr("UpdateNodesByID", t.storage.UpdateNodesByID(strandedNodes, NodeFieldContainingFace)); err != nil {
			return 0, err
		}
	}

	if e.FaceLeft != e.FaceRight {
		var drop []FaceID
		if e.FaceRight != floodFace {
			drop = append(drop, e.FaceRight)
		}
		if e.FaceLeft != floodFace {
			drop = append(drop, e.FaceLeft)
		}
		if len(drop) > 0 {
			if err := wrapStorageErr("DeleteFacesByID", t.storage.DeleteFacesByID(drop)); err != nil {
				return 0, err
			}
		}
	}

	return floodFace, nil
}

// pickSurviving picks whichever of an about-to-be-deleted edge's own two
// next links is not a self-reference back to it, to re-point a neighbor
// at.
func pickSurviving(primary, fallback SignedEdgeID, deleted EdgeID) SignedEdgeID {
	if primary.Edge() == deleted {
		return fallback
	}
	return primary
}

// unionFaceMBRs looks up left/right among faces and returns the union of
// their MBRs, or ok=false if either id is missing.
func unionFaceMBRs(faces []Face, left, right FaceID) (orb.Bound, bool) {
	var l, r *Face
	for i := range faces {
		switch faces[i].ID {
		case left:
			l = &faces[i]
		case right:
			r = &faces[i]
		}
	}
	if l == nil || r == nil {
		return orb.Bound{}, false
	}
	return l.MBR.Union(r.MBR), true
}

func (t *Topology) reassignFace(old, new_ FaceID) error {
	if _, err := t.storage.UpdateEdges(EdgeFilter{FaceLeft: &old}, EdgePatch{FaceLeft: &new_}, nil); err != nil {
		return &ErrStorageError{Op: "UpdateEdges", Err: err}
	}
	if _, err := t.storage.UpdateEdges(EdgeFilter{FaceRight: &old}, EdgePatch{FaceRight: &new_}, nil); err != nil {
		return &ErrStorageError{Op: "UpdateEdges", Err: err}
	}
	if _, err := t.storage.UpdateNodes(NodeFilter{ContainingFace: &old}, NodePatch{ContainingFace: &new_}, nil); err != nil {
		return &ErrStorageError{Op: "UpdateNodes", Err: err}
	}
	return nil
}

// ModEdgeHeal implements §4.3.8 with the surviving edge kept in place.
func (t *Topology) ModEdgeHeal(e1, e2 EdgeID) (NodeID, error) {
	_, node, err := t.healEdges(e1, e2, true)
	return node, err
}

// NewEdgeHeal implements §4.3.8 allocating a fresh edge id for the
// merged result.
func (t *Topology) NewEdgeHeal(e1, e2 EdgeID) (EdgeID, error) {
	edge, _, err := t.healEdges(e1, e2, false)
	return edge, err
}

// healEdges implements _HealEdges.
func (t *Topology) healEdges(eid1, eid2 EdgeID, modEdge bool) (EdgeID, NodeID, error) {
	if eid1 == eid2 {
		return 0, 0, &ErrInvalidGeometry{Reason: "cannot heal an edge with itself"}
	}
	e1, err := t.getEdge(eid1, EdgeFieldAll)
	if err != nil {
		return 0, 0, err
	}
	e2, err := t.getEdge(eid2, EdgeFieldAll)
	if err != nil {
		return 0, 0, err
	}
	if e1.StartNode == e1.EndNode {
		return 0, 0, &ErrInvalidGeometry{Reason: "edge is closed, cannot heal"}
	}
	if e2.StartNode == e2.EndNode {
		return 0, 0, &ErrInvalidGeometry{Reason: "edge is closed, cannot heal"}
	}

	var commonNode NodeID
	caseno := 0
	switch {
	case e1.EndNode == e2.StartNode:
		commonNode, caseno = e1.EndNode, 1
	case e1.EndNode == e2.EndNode:
		commonNode, caseno = e1.EndNode, 2
	case e1.StartNode == e2.StartNode:
		commonNode, caseno = e1.StartNode, 3
	case e1.StartNode == e2.EndNode:
		commonNode, caseno = e1.StartNode, 4
	default:
		return 0, 0, &ErrInvalidGeometry{Reason: "edges are not connected"}
	}

	others, err := t.storage.GetEdgeByNode([]NodeID{commonNode}, EdgeFieldID)
	if err != nil {
		return 0, 0, &ErrStorageError{Op: "GetEdgeByNode", Err: err}
	}
	var extra []EdgeID
	for _, o := range others {
		if o.ID != eid1 && o.ID != eid2 {
			extra = append(extra, o.ID)
		}
	}
	if len(extra) > 0 {
		return 0, 0, &ErrHealDegreeMismatch{Node: commonNode, Edges: extra}
	}

	ok, err := t.storage.PreCheckRemoveNode(commonNode, eid1, eid2)
	if err != nil {
		return 0, 0, &ErrStorageError{Op: "PreCheckRemoveNode", Err: err}
	}
	if !ok {
		return 0, 0, &ErrInvalidGeometry{Reason: "node removal vetoed"}
	}

	e1free := e1.StartNode
	if e1free == commonNode {
		e1free = e1.EndNode
	}
	e2free := e2.StartNode
	if e2free == commonNode {
		e2free = e2.EndNode
	}

	var geom orb.LineString
	var newStart, newEnd NodeID
	var newLeft, newRight SignedEdgeID

	switch caseno {
	case 1:
		geom = concat(e1.Geom, e2.Geom)
		newStart, newEnd = e1.StartNode, e2.EndNode
		newLeft, newRight = e2.NextLeft, e1.NextRight
	case 2:
		geom = concat(e1.Geom, reversedCopy(e2.Geom))
		newStart, newEnd = e1.StartNode, e2.StartNode
		newLeft, newRight = e2.NextRight, e1.NextRight
	case 3:
		geom = concat(reversedCopy(e2.Geom), e1.Geom)
		newStart, newEnd = e2.EndNode, e1.EndNode
		newLeft, newRight = e1.NextLeft, e2.NextLeft
	case 4:
		geom = concat(e2.Geom, e1.Geom)
		newStart, newEnd = e2.StartNode, e1.EndNode
		newLeft, newRight = e1.NextLeft, e2.NextRight
	}

	var survivingID EdgeID
	if modEdge {
		survivingID = eid1
		updated := Edge{
			ID: eid1, StartNode: newStart, EndNode: newEnd,
			FaceLeft: e1.FaceLeft, FaceRight: e1.FaceRight,
			NextLeft: newLeft, NextRight: newRight,
			Geom: geom,
		}
		if err := wrapStorageErr("UpdateEdgesByID", t.storage.UpdateEdgesByID([]Edge{updated},
			EdgeFieldNextLeft|EdgeFieldNextRight|EdgeFieldStartNode|EdgeFieldEndNode|EdgeFieldGeom)); err != nil {
			return 0, 0, err
		}
	} else {
		newID, err := t.nextEdgeID()
		if err != nil {
			return 0, 0, err
		}
		survivingID = newID
		newEdge := Edge{
			ID: newID, StartNode: newStart, EndNode: newEnd,
			FaceLeft: e1.FaceLeft, FaceRight: e1.FaceRight,
			NextLeft: newLeft, NextRight: newRight,
			Geom: geom,
		}
		if err := t.storage.InsertEdges([]Edge{newEdge}); err != nil {
			return 0, 0, &ErrStorageError{Op: "InsertEdges", Err: err}
		}
	}

	if err := t.redirectHealReferences(eid2, e2.StartNode, e2free, survivingID, newStart, newEnd); err != nil {
		return 0, 0, err
	}
	if !modEdge {
		if err := t.redirectHealReferences(eid1, e1.StartNode, e1free, survivingID, newStart, newEnd); err != nil {
			return 0, 0, err
		}
	}

	if err := wrapStorageErr("DeleteEdges", firstErr(t.storage.DeleteEdges(EdgeFilter{IDs: []EdgeID{eid2}}))); err != nil {
		return 0, 0, err
	}
	if !modEdge {
		if err := wrapStorageErr("DeleteEdges", firstErr(t.storage.DeleteEdges(EdgeFilter{IDs: []EdgeID{eid1}}))); err != nil {
			return 0, 0, err
		}
	}
	if err := wrapStorageErr("DeleteNodesByID", t.storage.DeleteNodesByID([]NodeID{commonNode})); err != nil {
		return 0, 0, err
	}

	t.storage.OnEdgeHeal(eid1, eid2, survivingID)

	return survivingID, commonNode, nil
}

// redirectHealReferences rewrites every remaining edge whose next_left
// or next_right still points at removedEdge's attachment at freeNode (its
// one endpoint other than the node being healed away) to point at
// survivor instead. A positive reference to an edge is encountered
// standing at that edge's own StartNode (continuing forward departs
// from there); a negative reference is encountered at its EndNode. The
// replacement's sign is derived the same way against survivor's own new
// StartNode/EndNode, so no case-by-case sign table is needed.
func (t *Topology) redirectHealReferences(removedEdge EdgeID, removedStart, freeNode NodeID, survivor EdgeID, survivorStart, survivorEnd NodeID) error {
	target := Signed(removedEdge, freeNode == removedStart)
	replacement := Signed(survivor, freeNode == survivorStart)
	if freeNode != survivorStart && freeNode != survivorEnd {
		return &ErrCorruptedTopology{Reason: "healed edge lost its free endpoint"}
	}

	incident, err := t.storage.GetEdgeByNode([]NodeID{freeNode}, EdgeFieldAll)
	if err != nil {
		return &ErrStorageError{Op: "GetEdgeByNode", Err: err}
	}
	for _, e := range incident {
		if e.ID == removedEdge || e.ID == survivor {
			continue
		}
		patch := e
		changed := false
		if e.NextLeft == target {
			patch.NextLeft = replacement
			changed = true
		}
		if e.NextRight == target {
			patch.NextRight = replacement
			changed = true
		}
		if changed {
			fields := EdgeField(0)
			if patch.NextLeft != e.NextLeft {
				fields |= EdgeFieldNextLeft
			}
			if patch.NextRight != e.NextRight {
				fields |= EdgeFieldNextRight
			}
			if err := wrapStorageErr("UpdateEdgesByID", t.storage.UpdateEdgesByID([]Edge{patch}, fields)); err != nil {
				return err
			}
		}
	}
	return nil
}

func concat(a, b orb.LineString) orb.LineString {
	out := append(orb.LineString{}, a...)
	if len(b) > 0 {
		out = append(out, b...)
	}
	return out
}

func reversedCopy(line orb.LineString) orb.LineString {
	out := append(orb.LineString{}, line...)
	reverse(out)
	return out
}

// ChangeEdgeGeom implements §4.3.7.
func (t *Topology) ChangeEdgeGeom(edgeID EdgeID, newLine orb.LineString) error {
	e, err := t.getEdge(edgeID, EdgeFieldAll)
	if err != nil {
		return err
	}
	if !SimpleLine(newLine) {
		return &ErrInvalidGeometry{Reason: "new line is not simple or has fewer than 2 distinct vertices"}
	}
	sNode, err := t.getNode(e.StartNode, NodeFieldAll)
	if err != nil {
		return err
	}
	eNode, err := t.getNode(e.EndNode, NodeFieldAll)
	if err != nil {
		return err
	}
	if !pointsEqual(newLine[0], sNode.Point) || !pointsEqual(newLine[len(newLine)-1], eNode.Point) {
		return &ErrMotionCollision{Edge: edgeID, Reason: "new line does not preserve endpoints"}
	}
	if IsClosed(e.Geom) != IsClosed(newLine) {
		return &ErrMotionCollision{Edge: edgeID, Reason: "closedness changed"}
	}
	if IsClosed(e.Geom) && CCW(e.Geom) != CCW(newLine) {
		return &ErrMotionCollision{Edge: edgeID, Reason: "winding direction flipped"}
	}

	box := LineStringBound(newLine)
	nodes, err := t.storage.GetNodeWithinBox(box, NodeFieldAll, -1)
	if err != nil {
		return &ErrStorageError{Op: "GetNodeWithinBox", Err: err}
	}
	for _, n := range nodes {
		if n.ID == e.StartNode || n.ID == e.EndNode {
			continue
		}
		if containsStrictly(newLine, n.Point) {
			return &ErrMotionCollision{Edge: edgeID, Reason: "motion collides with an existing node"}
		}
	}
	edges, err := t.storage.GetEdgeWithinBox(box, EdgeFieldAll, -1)
	if err != nil {
		return &ErrStorageError{Op: "GetEdgeWithinBox", Err: err}
	}
	for _, other := range edges {
		if other.ID == edgeID {
			continue
		}
		if err := t.checkAgainstEdge(newLine, e.StartNode, e.EndNode, other); err != nil {
			return err
		}
	}

	oldStartVertex, ok := FirstDistinctVertex(e.Geom, e.Geom[0], 0, 1)
	if !ok {
		return &ErrInvalidGeometry{Reason: "edge has no distinct second vertex"}
	}
	oldAzStart, err := Azimuth(e.Geom[0], oldStartVertex)
	if err != nil {
		return &ErrInvalidGeometry{Reason: "could not compute start azimuth"}
	}
	oldEndVertex, ok := FirstDistinctVertex(e.Geom, e.Geom[len(e.Geom)-1], len(e.Geom)-1, -1)
	if !ok {
		return &ErrInvalidGeometry{Reason: "edge has no distinct second-to-last vertex"}
	}
	oldAzEnd, err := Azimuth(e.Geom[len(e.Geom)-1], oldEndVertex)
	if err != nil {
		return &ErrInvalidGeometry{Reason: "could not compute end azimuth"}
	}

	newStartVertex, ok := FirstDistinctVertex(newLine, newLine[0], 0, 1)
	if !ok {
		return &ErrInvalidGeometry{Reason: "new line has no distinct second vertex"}
	}
	newAzStart, err := Azimuth(newLine[0], newStartVertex)
	if err != nil {
		return &ErrInvalidGeometry{Reason: "could not compute new start azimuth"}
	}
	newEndVertex, ok := FirstDistinctVertex(newLine, newLine[len(newLine)-1], len(newLine)-1, -1)
	if !ok {
		return &ErrInvalidGeometry{Reason: "new line has no distinct second-to-last vertex"}
	}
	newAzEnd, err := Azimuth(newLine[len(newLine)-1], newEndVertex)
	if err != nil {
		return &ErrInvalidGeometry{Reason: "could not compute new end azimuth"}
	}

	beforeStart, _, err := t.findAdjacentEdges(e.StartNode, sNode.Point, oldAzStart, nil, edgeID)
	if err != nil {
		return err
	}
	beforeEnd, _, err := t.findAdjacentEdges(e.EndNode, eNode.Point, oldAzEnd, nil, edgeID)
	if err != nil {
		return err
	}

	updated := e
	updated.Geom = newLine
	if err := wrapStorageErr("UpdateEdgesByID", t.storage.UpdateEdgesByID([]Edge{updated}, EdgeFieldGeom)); err != nil {
		return err
	}

	afterStart, _, err := t.findAdjacentEdges(e.StartNode, sNode.Point, newAzStart, nil, edgeID)
	if err != nil {
		_ = wrapStorageErr("UpdateEdgesByID", t.storage.UpdateEdgesByID([]Edge{e}, EdgeFieldGeom))
		return err
	}
	afterEnd, _, err := t.findAdjacentEdges(e.EndNode, eNode.Point, newAzEnd, nil, edgeID)
	if err != nil {
		_ = wrapStorageErr("UpdateEdgesByID", t.storage.UpdateEdgesByID([]Edge{e}, EdgeFieldGeom))
		return err
	}
	if beforeStart.NextCW != afterStart.NextCW || beforeStart.NextCCW != afterStart.NextCCW ||
		beforeEnd.NextCW != afterEnd.NextCW || beforeEnd.NextCCW != afterEnd.NextCCW {
		_ = wrapStorageErr("UpdateEdgesByID", t.storage.UpdateEdgesByID([]Edge{e}, EdgeFieldGeom))
		return &ErrMotionCollision{Edge: edgeID, Reason: "cyclic edge ordering around an endpoint changed"}
	}

	for _, f := range []FaceID{e.FaceLeft, e.FaceRight} {
		if f == UniverseFace || f == NoFace {
			continue
		}
		mbr, err := t.storage.ComputeFaceMBR(f)
		if err != nil {
			return &ErrStorageError{Op: "ComputeFaceMBR", Err: err}
		}
		if err := wrapStorageErr("UpdateFacesByID", t.storage.UpdateFacesByID([]Face{{ID: f, MBR: mbr}}, FaceFieldMBR)); err != nil {
			return err
		}
	}

	return nil
}
