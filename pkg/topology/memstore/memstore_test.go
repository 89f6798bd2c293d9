package memstore

import (
	"context"
	"testing"

	"github.com/paulmach/orb"

	"github.com/beetlebugorg/topology/internal/topo"
)

func newEngine() (*Store, *topo.Topology) {
	s := New()
	return s, topo.New(s, topo.DefaultPopulateOptions())
}

func TestInsertAndGetNodeByID(t *testing.T) {
	s := New()
	ids, err := s.InsertNodes([]topo.Node{{Point: orb.Point{1, 2}, ContainingFace: topo.UniverseFace}})
	if err != nil {
		t.Fatalf("InsertNodes: %v", err)
	}
	if len(ids) != 1 || ids[0] != 1 {
		t.Fatalf("expected first id to be 1, got %v", ids)
	}

	rows, err := s.GetNodeByID(ids, topo.NodeFieldAll)
	if err != nil {
		t.Fatalf("GetNodeByID: %v", err)
	}
	if len(rows) != 1 || rows[0].Point != (orb.Point{1, 2}) {
		t.Fatalf("got %+v", rows)
	}
}

func TestFieldMasking(t *testing.T) {
	s := New()
	ids, err := s.InsertNodes([]topo.Node{{Point: orb.Point{3, 4}, ContainingFace: topo.UniverseFace}})
	if err != nil {
		t.Fatalf("InsertNodes: %v", err)
	}
	rows, err := s.GetNodeByID(ids, topo.NodeFieldID)
	if err != nil {
		t.Fatalf("GetNodeByID: %v", err)
	}
	if rows[0].Point != (orb.Point{}) {
		t.Errorf("expected geom to be masked out, got %v", rows[0].Point)
	}
	if rows[0].ID != ids[0] {
		t.Errorf("expected id field to survive masking")
	}
}

func TestGetNodeWithinBoxAndDistance(t *testing.T) {
	s := New()
	_, err := s.InsertNodes([]topo.Node{
		{Point: orb.Point{0, 0}, ContainingFace: topo.UniverseFace},
		{Point: orb.Point{100, 100}, ContainingFace: topo.UniverseFace},
	})
	if err != nil {
		t.Fatalf("InsertNodes: %v", err)
	}

	box := orb.Bound{Min: orb.Point{-1, -1}, Max: orb.Point{1, 1}}
	rows, err := s.GetNodeWithinBox(box, topo.NodeFieldAll, -1)
	if err != nil {
		t.Fatalf("GetNodeWithinBox: %v", err)
	}
	if len(rows) != 1 || rows[0].Point != (orb.Point{0, 0}) {
		t.Fatalf("got %+v", rows)
	}

	near, err := s.GetNodeWithinDistance(orb.Point{0.5, 0}, 1, topo.NodeFieldAll, -1)
	if err != nil {
		t.Fatalf("GetNodeWithinDistance: %v", err)
	}
	if len(near) != 1 {
		t.Fatalf("expected one node within distance, got %v", near)
	}
}

func TestUnboundedBoxQueryFallsBackToLinearScan(t *testing.T) {
	s := New()
	_, err := s.InsertNodes([]topo.Node{
		{Point: orb.Point{0, 0}, ContainingFace: topo.UniverseFace},
		{Point: orb.Point{-5000, 5000}, ContainingFace: topo.UniverseFace},
	})
	if err != nil {
		t.Fatalf("InsertNodes: %v", err)
	}
	rows, err := s.GetNodeWithinBox(infiniteTestBound(), topo.NodeFieldAll, -1)
	if err != nil {
		t.Fatalf("GetNodeWithinBox: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected both nodes under an unbounded box, got %d", len(rows))
	}
}

func infiniteTestBound() orb.Bound {
	big := 1e308
	inf := big * 10 // overflows to +Inf at run time; as a constant expression it would not compile
	return orb.Bound{Min: orb.Point{-inf, -inf}, Max: orb.Point{inf, inf}}
}

func TestDeleteNodesByID(t *testing.T) {
	s := New()
	ids, _ := s.InsertNodes([]topo.Node{{Point: orb.Point{1, 1}, ContainingFace: topo.UniverseFace}})
	if err := s.DeleteNodesByID(ids); err != nil {
		t.Fatalf("DeleteNodesByID: %v", err)
	}
	rows, err := s.GetNodeByID(ids, topo.NodeFieldAll)
	if err != nil {
		t.Fatalf("GetNodeByID: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("expected node to be gone, got %+v", rows)
	}
}

// recordingNotifier counts each hook invocation so tests can assert the
// engine actually drove them.
type recordingNotifier struct {
	splits, heals, faceSplits, faceHeals int
}

func (r *recordingNotifier) OnEdgeSplit(topo.EdgeID, topo.EdgeID, topo.EdgeID) { r.splits++ }
func (r *recordingNotifier) OnFaceSplit(topo.FaceID, topo.FaceID, topo.FaceID) { r.faceSplits++ }
func (r *recordingNotifier) OnEdgeHeal(topo.EdgeID, topo.EdgeID, topo.EdgeID)  { r.heals++ }
func (r *recordingNotifier) OnFaceHeal(topo.FaceID, topo.FaceID, topo.FaceID)  { r.faceHeals++ }
func (r *recordingNotifier) PreCheckRemoveEdge(topo.EdgeID, topo.FaceID, topo.FaceID) (bool, error) {
	return true, nil
}
func (r *recordingNotifier) PreCheckRemoveIsoEdge(topo.EdgeID) (bool, error) { return true, nil }
func (r *recordingNotifier) PreCheckRemoveNode(topo.NodeID, topo.EdgeID, topo.EdgeID) (bool, error) {
	return true, nil
}
func (r *recordingNotifier) PreCheckRemoveIsoNode(topo.NodeID) (bool, error) { return true, nil }

// TestSquareFaceSplit builds a unit square out of four isolated nodes and
// four AddEdgeNewFaces calls, the way a caller populating a topology from
// scratch would, and checks that the interior point resolves to the new
// face while a point outside remains in the universe face.
func TestSquareFaceSplit(t *testing.T) {
	s, eng := newEngine()
	rec := &recordingNotifier{}
	s.SetNotifier(rec)

	nw, err := eng.AddIsoNode(topo.UniverseFace, orb.Point{0, 0}, false)
	if err != nil {
		t.Fatalf("AddIsoNode nw: %v", err)
	}
	ne, err := eng.AddIsoNode(topo.UniverseFace, orb.Point{10, 0}, false)
	if err != nil {
		t.Fatalf("AddIsoNode ne: %v", err)
	}
	se, err := eng.AddIsoNode(topo.UniverseFace, orb.Point{10, 10}, false)
	if err != nil {
		t.Fatalf("AddIsoNode se: %v", err)
	}
	sw, err := eng.AddIsoNode(topo.UniverseFace, orb.Point{0, 10}, false)
	if err != nil {
		t.Fatalf("AddIsoNode sw: %v", err)
	}

	edges := []struct {
		a, b topo.NodeID
		pa   orb.Point
		pb   orb.Point
	}{
		{nw, ne, orb.Point{0, 0}, orb.Point{10, 0}},
		{ne, se, orb.Point{10, 0}, orb.Point{10, 10}},
		{se, sw, orb.Point{10, 10}, orb.Point{0, 10}},
		{sw, nw, orb.Point{0, 10}, orb.Point{0, 0}},
	}
	for i, e := range edges {
		if _, err := eng.AddEdgeNewFaces(e.a, e.b, orb.LineString{e.pa, e.pb}, false); err != nil {
			t.Fatalf("AddEdgeNewFaces edge %d: %v", i, err)
		}
	}

	if rec.faceSplits == 0 {
		t.Errorf("expected at least one OnFaceSplit notification, got %d", rec.faceSplits)
	}

	inside, err := eng.GetFaceContainingPoint(orb.Point{5, 5})
	if err != nil {
		t.Fatalf("GetFaceContainingPoint inside: %v", err)
	}
	if inside == topo.UniverseFace {
		t.Errorf("expected interior point to resolve to the new face, got universe")
	}

	outside, err := eng.GetFaceContainingPoint(orb.Point{50, 50})
	if err != nil {
		t.Fatalf("GetFaceContainingPoint outside: %v", err)
	}
	if outside != topo.UniverseFace {
		t.Errorf("expected exterior point to resolve to the universe face, got %v", outside)
	}
}

// TestRemEdgeHealsFaceBack removes one edge of the square built above and
// checks the newly created face disappears, flooding back into the
// universe.
func TestRemEdgeHealsFaceBack(t *testing.T) {
	s, eng := newEngine()

	nw, _ := eng.AddIsoNode(topo.UniverseFace, orb.Point{0, 0}, false)
	ne, _ := eng.AddIsoNode(topo.UniverseFace, orb.Point{10, 0}, false)
	se, _ := eng.AddIsoNode(topo.UniverseFace, orb.Point{10, 10}, false)
	sw, _ := eng.AddIsoNode(topo.UniverseFace, orb.Point{0, 10}, false)

	e1, err := eng.AddEdgeNewFaces(nw, ne, orb.LineString{{0, 0}, {10, 0}}, false)
	if err != nil {
		t.Fatalf("edge1: %v", err)
	}
	if _, err := eng.AddEdgeNewFaces(ne, se, orb.LineString{{10, 0}, {10, 10}}, false); err != nil {
		t.Fatalf("edge2: %v", err)
	}
	if _, err := eng.AddEdgeNewFaces(se, sw, orb.LineString{{10, 10}, {0, 10}}, false); err != nil {
		t.Fatalf("edge3: %v", err)
	}
	if _, err := eng.AddEdgeNewFaces(sw, nw, orb.LineString{{0, 10}, {0, 0}}, false); err != nil {
		t.Fatalf("edge4: %v", err)
	}

	inside, err := eng.GetFaceContainingPoint(orb.Point{5, 5})
	if err != nil {
		t.Fatalf("GetFaceContainingPoint: %v", err)
	}
	if inside == topo.UniverseFace {
		t.Fatalf("expected a non-universe face before removal")
	}

	if _, err := eng.RemEdgeModFace(e1); err != nil {
		t.Fatalf("RemEdgeModFace: %v", err)
	}

	rows, err := s.GetFaceByID([]topo.FaceID{inside}, topo.FaceFieldAll)
	if err != nil {
		t.Fatalf("GetFaceByID: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("expected the split face to be gone after removing its boundary edge, got %+v", rows)
	}
}

// TestModEdgeHealMergesTwoDanglingEdges checks the simplest heal case:
// two edges sharing one degree-2 node collapse into a single edge and
// that node disappears.
func TestModEdgeHealMergesTwoDanglingEdges(t *testing.T) {
	s, eng := newEngine()

	a, _ := eng.AddIsoNode(topo.UniverseFace, orb.Point{0, 0}, false)
	mid, _ := eng.AddIsoNode(topo.UniverseFace, orb.Point{5, 0}, false)
	b, _ := eng.AddIsoNode(topo.UniverseFace, orb.Point{10, 0}, false)

	e1, err := eng.AddIsoEdge(a, mid, orb.LineString{{0, 0}, {5, 0}})
	if err != nil {
		t.Fatalf("AddIsoEdge e1: %v", err)
	}
	e2, err := eng.AddEdgeModFace(mid, b, orb.LineString{{5, 0}, {10, 0}}, false)
	if err != nil {
		t.Fatalf("AddEdgeModFace e2: %v", err)
	}

	removed, err := eng.ModEdgeHeal(e1, e2)
	if err != nil {
		t.Fatalf("ModEdgeHeal: %v", err)
	}
	if removed != mid {
		t.Errorf("expected the healed-away node to be the shared node %v, got %v", mid, removed)
	}

	rows, err := s.GetEdgeByID([]topo.EdgeID{e1}, topo.EdgeFieldAll)
	if err != nil {
		t.Fatalf("GetEdgeByID: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected e1 to survive as the merged edge, got %d rows", len(rows))
	}
	if len(rows[0].Geom) < 3 {
		t.Errorf("expected merged geometry to carry both segments, got %v", rows[0].Geom)
	}

	midRows, err := s.GetNodeByID([]topo.NodeID{mid}, topo.NodeFieldAll)
	if err != nil {
		t.Fatalf("GetNodeByID: %v", err)
	}
	if len(midRows) != 0 {
		t.Errorf("expected the healed-away middle node to be deleted")
	}
}

func TestRemoveIsoNodeAndEdge(t *testing.T) {
	s, eng := newEngine()

	n, err := eng.AddIsoNode(topo.UniverseFace, orb.Point{1, 1}, false)
	if err != nil {
		t.Fatalf("AddIsoNode: %v", err)
	}
	if err := eng.RemoveIsoNode(n); err != nil {
		t.Fatalf("RemoveIsoNode: %v", err)
	}
	rows, _ := s.GetNodeByID([]topo.NodeID{n}, topo.NodeFieldAll)
	if len(rows) != 0 {
		t.Errorf("expected node to be gone after RemoveIsoNode")
	}

	a, _ := eng.AddIsoNode(topo.UniverseFace, orb.Point{0, 0}, false)
	b, _ := eng.AddIsoNode(topo.UniverseFace, orb.Point{1, 0}, false)
	e, err := eng.AddIsoEdge(a, b, orb.LineString{{0, 0}, {1, 0}})
	if err != nil {
		t.Fatalf("AddIsoEdge: %v", err)
	}
	if err := eng.RemIsoEdge(e); err != nil {
		t.Fatalf("RemIsoEdge: %v", err)
	}
	edgeRows, _ := s.GetEdgeByID([]topo.EdgeID{e}, topo.EdgeFieldAll)
	if len(edgeRows) != 0 {
		t.Errorf("expected edge to be gone after RemIsoEdge")
	}
}

func TestAddIsoNodeRejectsCoincidentPoint(t *testing.T) {
	_, eng := newEngine()

	if _, err := eng.AddIsoNode(topo.UniverseFace, orb.Point{0, 0}, false); err != nil {
		t.Fatalf("first AddIsoNode: %v", err)
	}
	_, err := eng.AddIsoNode(topo.UniverseFace, orb.Point{0, 0}, false)
	if err == nil {
		t.Fatalf("expected a coincident second node to be rejected")
	}
	if _, ok := err.(*topo.ErrCoincidentNode); !ok {
		t.Errorf("expected ErrCoincidentNode, got %T: %v", err, err)
	}
}

func TestGetRingEdgesWalksClosedSquare(t *testing.T) {
	s, eng := newEngine()

	nw, _ := eng.AddIsoNode(topo.UniverseFace, orb.Point{0, 0}, false)
	ne, _ := eng.AddIsoNode(topo.UniverseFace, orb.Point{10, 0}, false)
	se, _ := eng.AddIsoNode(topo.UniverseFace, orb.Point{10, 10}, false)
	sw, _ := eng.AddIsoNode(topo.UniverseFace, orb.Point{0, 10}, false)

	e1, err := eng.AddEdgeNewFaces(nw, ne, orb.LineString{{0, 0}, {10, 0}}, false)
	if err != nil {
		t.Fatalf("edge1: %v", err)
	}
	if _, err := eng.AddEdgeNewFaces(ne, se, orb.LineString{{10, 0}, {10, 10}}, false); err != nil {
		t.Fatalf("edge2: %v", err)
	}
	if _, err := eng.AddEdgeNewFaces(se, sw, orb.LineString{{10, 10}, {0, 10}}, false); err != nil {
		t.Fatalf("edge3: %v", err)
	}
	e4, err := eng.AddEdgeNewFaces(sw, nw, orb.LineString{{0, 10}, {0, 0}}, false)
	if err != nil {
		t.Fatalf("edge4: %v", err)
	}

	ringIDs, err := s.GetRingEdges(topo.Signed(e1, true), 0)
	if err != nil {
		t.Fatalf("GetRingEdges: %v", err)
	}
	if len(ringIDs) != 4 {
		t.Fatalf("expected the square's left-face ring to visit all 4 edges, got %d: %v", len(ringIDs), ringIDs)
	}
	if ringIDs[0] != topo.Signed(e1, true) {
		t.Errorf("expected ring walk to start at the seed reference, got %v", ringIDs[0])
	}
	if ringIDs[len(ringIDs)-1].Edge() != e4 {
		t.Errorf("expected the ring to close through edge4, got %v", ringIDs)
	}
}

// TestPolygonizeRecoversFaces builds the same square with AddEdgeNoFaceCheck
// (leaving faces unset) and confirms Polygonize recovers exactly one
// shell face and classifies the interior accordingly.
func TestPolygonizeRecoversFaces(t *testing.T) {
	_, eng := newEngine()

	nw, _ := eng.AddIsoNode(topo.UniverseFace, orb.Point{0, 0}, false)
	ne, _ := eng.AddIsoNode(topo.UniverseFace, orb.Point{10, 0}, false)
	se, _ := eng.AddIsoNode(topo.UniverseFace, orb.Point{10, 10}, false)
	sw, _ := eng.AddIsoNode(topo.UniverseFace, orb.Point{0, 10}, false)

	if _, err := eng.AddEdgeNoFaceCheck(nw, ne, orb.LineString{{0, 0}, {10, 0}}, false); err != nil {
		t.Fatalf("edge1: %v", err)
	}
	if _, err := eng.AddEdgeNoFaceCheck(ne, se, orb.LineString{{10, 0}, {10, 10}}, false); err != nil {
		t.Fatalf("edge2: %v", err)
	}
	if _, err := eng.AddEdgeNoFaceCheck(se, sw, orb.LineString{{10, 10}, {0, 10}}, false); err != nil {
		t.Fatalf("edge3: %v", err)
	}
	if _, err := eng.AddEdgeNoFaceCheck(sw, nw, orb.LineString{{0, 10}, {0, 0}}, false); err != nil {
		t.Fatalf("edge4: %v", err)
	}

	faces, err := eng.Polygonize(context.Background(), topo.DefaultPopulateOptions())
	if err != nil {
		t.Fatalf("Polygonize: %v", err)
	}
	if len(faces) != 1 {
		t.Fatalf("expected exactly one recovered shell face, got %d", len(faces))
	}
}
