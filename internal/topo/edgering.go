package topo

import (
	"math"

	"github.com/paulmach/orb"
)

// edgering.go implements the edge-ring / face-split engine: §4.4 of the
// spec. findAdjacentEdges answers "what's immediately clockwise/counter-
// clockwise of this azimuth at this node", which addEdge uses to link
// next_left/next_right and ChangeEdgeGeom uses to check edge-end order;
// AddFaceSplit and MakeRingShell build and classify the polygon rings
// that back face creation.

// AdjacentEdges is the result of findAdjacentEdges.
type AdjacentEdges struct {
	NextCW   SignedEdgeID
	NextCCW  SignedEdgeID
	FaceCW   FaceID
	FaceCCW  FaceID
	HasOther bool // true if any incident edge other than myEdge was found
}

// angleDiff returns az-from taken modulo 2*pi into (0, 2*pi], so that a
// zero raw difference (coincident azimuths) is reported as a full turn
// rather than as the smallest possible one; every caller below only
// cares about relative ordering, for which this makes no difference
// except at the boundary.
func angleDiff(az, from float64) float64 {
	d := math.Mod(az-from, 2*math.Pi)
	if d <= 0 {
		d += 2 * math.Pi
	}
	return d
}

// findAdjacentEdges implements §4.4.1. myAz is the azimuth, at node, of
// the edge end whose neighbors we are locating; myEdge is excluded from
// the scan. otherAz, when non-nil, is the azimuth of my_edge's own other
// end at this same node (my_edge is a self-loop); it joins the fan only
// when myEdge already has a stored row and node has at least one other
// incident edge end.
//
// found is false when node has no edge ends other than myEdge's to
// compare against (otherAz does not change this): callers treat that as
// "this will be the node's only edge" rather than as an error.
func (t *Topology) findAdjacentEdges(node NodeID, nodePoint orb.Point, myAz float64, otherAz *float64, myEdge EdgeID) (result AdjacentEdges, found bool, err error) {
	edges, err := t.storage.GetEdgeByNode([]NodeID{node}, EdgeFieldAll)
	if err != nil {
		return AdjacentEdges{}, false, &ErrStorageError{Op: "GetEdgeByNode", Err: err}
	}

	type fanEntry struct {
		signed   SignedEdgeID
		outgoing bool
		diff     float64
		faceLeft, faceRight FaceID
	}
	var fan []fanEntry

	// Azimuths grow counter-clockwise, so the clockwise rotation from
	// myAz to an edge end at azimuth az is angleDiff(myAz, az).
	for _, e := range edges {
		if e.ID == myEdge {
			continue
		}
		if e.StartNode == node {
			if v, ok := FirstDistinctVertex(e.Geom, nodePoint, 0, 1); ok {
				az, aerr := Azimuth(nodePoint, v)
				if aerr == nil {
					fan = append(fan, fanEntry{Signed(e.ID, true), true, angleDiff(myAz, az), e.FaceLeft, e.FaceRight})
				}
			}
		}
		if e.EndNode == node {
			if v, ok := FirstDistinctVertex(e.Geom, nodePoint, len(e.Geom)-1, -1); ok {
				az, aerr := Azimuth(nodePoint, v)
				if aerr == nil {
					fan = append(fan, fanEntry{Signed(e.ID, false), false, angleDiff(myAz, az), e.FaceLeft, e.FaceRight})
				}
			}
		}
	}

	// Only real incident edges count toward "found" - a self-loop's own
	// other end, seeded below, can still win a CW/CCW slot but never by
	// itself turns an isolated node into a non-isolated one.
	hasOther := len(fan) > 0
	if !hasOther {
		return AdjacentEdges{}, false, nil
	}

	if otherAz != nil {
		d := angleDiff(myAz, *otherAz)
		fl, fr, ferr := t.edgeFaces(myEdge)
		if ferr == nil {
			// The self-loop's other end is always an incoming attachment
			// from this end's point of view.
			fan = append(fan, fanEntry{Signed(myEdge, false), false, d, fl, fr})
		} else if _, ok := ferr.(*ErrNonExistentEdge); !ok {
			return AdjacentEdges{}, false, ferr
		}
	}

	best := fan[0]
	worst := fan[0]
	for _, f := range fan[1:] {
		if f.diff < best.diff {
			best = f
		}
		if f.diff > worst.diff {
			worst = f
		}
	}

	// CW-side face of my_az is the face immediately counter-clockwise of
	// "best" (the next edge end met rotating clockwise): for an outgoing
	// edge end that is its FaceLeft, for an incoming one its FaceRight.
	var faceCW FaceID
	if best.outgoing {
		faceCW = best.faceLeft
	} else {
		faceCW = best.faceRight
	}
	// CCW-side face of my_az is the face immediately clockwise of
	// "worst" (the next edge end met rotating counter-clockwise).
	var faceCCW FaceID
	if worst.outgoing {
		faceCCW = worst.faceRight
	} else {
		faceCCW = worst.faceLeft
	}

	// The cwFace/ccwFace disagreement check only makes sense when there is
	// no myEdge yet to account for the difference (addEdge's pre-insertion
	// calls and GetFaceContainingPoint, myEdge == NoEdge); ChangeEdgeGeom
	// calls this while myEdge is still present in storage, where a
	// transient disagreement is expected mid-operation.
	if faceCW != faceCCW && myEdge == NoEdge {
		return AdjacentEdges{}, false, &ErrCorruptedTopology{
			Reason: "adjacent edges bind different faces",
		}
	}

	return AdjacentEdges{
		NextCW:   best.signed,
		NextCCW:  worst.signed,
		FaceCW:   faceCW,
		FaceCCW:  faceCCW,
		HasOther: hasOther,
	}, true, nil
}

func (t *Topology) edgeFaces(id EdgeID) (FaceID, FaceID, error) {
	edges, err := t.storage.GetEdgeByID([]EdgeID{id}, EdgeFieldFaceLeft|EdgeFieldFaceRight)
	if err != nil {
		return 0, 0, &ErrStorageError{Op: "GetEdgeByID", Err: err}
	}
	if len(edges) == 0 {
		return 0, 0, &ErrNonExistentEdge{Edge: id}
	}
	return edges[0].FaceLeft, edges[0].FaceRight, nil
}

// MakeRingShell loads the geometry of every edge in signedIDs (in order,
// reversing per sign) and concatenates them into a single, possibly
// degenerate, closed ring used only for winding and point-in-ring tests.
// It is never stored.
func (t *Topology) MakeRingShell(signedIDs []SignedEdgeID) (orb.LineString, error) {
	if len(signedIDs) == 0 {
		return nil, &ErrInvalidGeometry{Reason: "empty ring"}
	}

	unique := make(map[EdgeID]bool, len(signedIDs))
	ids := make([]EdgeID, 0, len(signedIDs))
	for _, s := range signedIDs {
		id := s.Edge()
		if !unique[id] {
			unique[id] = true
			ids = append(ids, id)
		}
	}
	edges, err := t.storage.GetEdgeByID(ids, EdgeFieldID|EdgeFieldGeom)
	if err != nil {
		return nil, &ErrStorageError{Op: "GetEdgeByID", Err: err}
	}
	byID := make(map[EdgeID]Edge, len(edges))
	for _, e := range edges {
		byID[e.ID] = e
	}

	var ring orb.LineString
	for i, s := range signedIDs {
		e, ok := byID[s.Edge()]
		if !ok {
			return nil, &ErrNonExistentEdge{Edge: s.Edge()}
		}
		line := append(orb.LineString{}, e.Geom...)
		if !s.Forward() {
			reverse(line)
		}
		if i == 0 {
			ring = line
			continue
		}
		// Drop the duplicated shared vertex.
		if len(ring) > 0 && len(line) > 0 && pointsEqual(ring[len(ring)-1], line[0]) {
			line = line[1:]
		}
		ring = append(ring, line...)
	}
	return ring, nil
}

func reverse(line orb.LineString) {
	for i, j := 0, len(line)-1; i < j; i, j = i+1, j-1 {
		line[i], line[j] = line[j], line[i]
	}
}

// FaceSplitResult reports what AddFaceSplit did.
type FaceSplitResult struct {
	// NotARing is true when the walk returned to the reverse of the
	// starting edge without closing — the edge is a bridge, not a ring
	// boundary, and no face was created.
	NotARing bool
	// LeftIsUniverse is true when a CW ring was found inside the
	// universe face — a no-op per §4.4.2.
	LeftIsUniverse bool
	NewFace        Face
}

// AddFaceSplit implements §4.4.2. It walks the ring starting at
// signedEdge, decides CW/CCW, and either creates a new face (inside a
// CCW ring) or, for a CW ring inside a bounded face, replaces that face
// with the new one and re-homes whatever in the old face now lies
// outside the hole. When mbrOnly is set, no face row is created: only
// containingFace's MBR is refreshed to the ring's MBR (used to finalize
// the untouched side of a closed ring under ModFace mode).
func (t *Topology) AddFaceSplit(signedEdge SignedEdgeID, containingFace FaceID, mbrOnly bool) (FaceSplitResult, error) {
	ringIDs, err := t.storage.GetRingEdges(signedEdge, t.maxRingEdges())
	if err != nil {
		return FaceSplitResult{}, err
	}
	for _, s := range ringIDs[1:] {
		if s == signedEdge.Reversed() {
			return FaceSplitResult{NotARing: true}, nil
		}
	}

	ring, err := t.MakeRingShell(ringIDs)
	if err != nil {
		return FaceSplitResult{}, err
	}
	if !IsClosed(ring) {
		return FaceSplitResult{}, &ErrCorruptedTopology{Reason: "face ring did not close"}
	}

	mbr := LineStringBound(ring)
	isCCW := CCW(ring)

	if !isCCW {
		if containingFace == UniverseFace {
			return FaceSplitResult{LeftIsUniverse: true}, nil
		}
	}

	if mbrOnly {
		// A CW ring here is hole-like: it bounds containingFace from the
		// inside, so containingFace's MBR already covers it and must be
		// left untouched.
		if !isCCW {
			return FaceSplitResult{NewFace: Face{ID: containingFace}}, nil
		}
		if err := t.storage.UpdateFacesByID([]Face{{ID: containingFace, MBR: mbr}}, FaceFieldMBR); err != nil {
			return FaceSplitResult{}, &ErrStorageError{Op: "UpdateFacesByID", Err: err}
		}
		return FaceSplitResult{NewFace: Face{ID: containingFace, MBR: mbr}}, nil
	}

	ids, err := t.storage.InsertFaces([]Face{{MBR: mbr}})
	if err != nil {
		return FaceSplitResult{}, &ErrStorageError{Op: "InsertFaces", Err: err}
	}
	newFace := Face{ID: ids[0], MBR: mbr}

	if err := t.labelRing(ringIDs, newFace.ID); err != nil {
		return FaceSplitResult{}, err
	}
	if err := t.relabelRingSide(ringIDs, ring, containingFace, newFace); err != nil {
		return FaceSplitResult{}, err
	}

	t.storage.OnFaceSplit(containingFace, newFace.ID, NoFace)

	return FaceSplitResult{NewFace: newFace}, nil
}

// relabelRingSide updates every edge/isolated-node currently in
// containingFace whose geometry lies on the inside of ring to reference
// newFace instead, per §4.4.2's final paragraph.
func (t *Topology) relabelRingSide(ringIDs []SignedEdgeID, ring orb.LineString, containingFace, newFace Face) error {
	box := newFace.MBR
	candidates, err := t.storage.GetEdgeByFace([]FaceID{containingFace.ID}, EdgeFieldAll, &box)
	if err != nil {
		return &ErrStorageError{Op: "GetEdgeByFace", Err: err}
	}
	ringEdgeSet := make(map[EdgeID]bool, len(ringIDs))
	for _, s := range ringIDs {
		ringEdgeSet[s.Edge()] = true
	}
	for _, e := range candidates {
		if len(e.Geom) == 0 {
			continue
		}
		mid := midpoint(e.Geom)
		loc := PointInRing(ring, mid)
		inside := loc == LocationInside
		if ringEdgeSet[e.ID] {
			// The ring's own edges already had their inner side set to
			// newFace by AddFaceSplit (labelRing); skip here to avoid
			// double-processing.
			continue
		}
		if !inside {
			continue
		}
		patch := EdgePatch{}
		changed := false
		if e.FaceLeft == containingFace.ID {
			f := newFace.ID
			patch.FaceLeft = &f
			changed = true
		}
		if e.FaceRight == containingFace.ID {
			f := newFace.ID
			patch.FaceRight = &f
			changed = true
		}
		if changed {
			e2 := e
			if patch.FaceLeft != nil {
				e2.FaceLeft = *patch.FaceLeft
			}
			if patch.FaceRight != nil {
				e2.FaceRight = *patch.FaceRight
			}
			if err := t.storage.UpdateEdgesByID([]Edge{e2}, EdgeFieldFaceLeft|EdgeFieldFaceRight); err != nil {
				return &ErrStorageError{Op: "UpdateEdgesByID", Err: err}
			}
		}
	}

	nodes, err := t.storage.GetNodeByFace([]FaceID{containingFace.ID}, NodeFieldAll, &box)
	if err != nil {
		return &ErrStorageError{Op: "GetNodeByFace", Err: err}
	}
	for _, n := range nodes {
		if n.ContainingFace != containingFace.ID {
			continue
		}
		if PointInRing(ring, n.Point) == LocationInside {
			n2 := n
			n2.ContainingFace = newFace.ID
			if err := t.storage.UpdateNodesByID([]Node{n2}, NodeFieldContainingFace); err != nil {
				return &ErrStorageError{Op: "UpdateNodesByID", Err: err}
			}
		}
	}
	return nil
}

func midpoint(line orb.LineString) orb.Point {
	if len(line) == 1 {
		return line[0]
	}
	a, b := line[0], line[1]
	return orb.Point{(a[0] + b[0]) / 2, (a[1] + b[1]) / 2}
}

func (t *Topology) maxRingEdges() int {
	if t.opts.MaxRingEdges > 0 {
		return t.opts.MaxRingEdges
	}
	return 100000
}
