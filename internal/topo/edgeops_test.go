package topo_test

import (
	"testing"

	"github.com/paulmach/orb"

	"github.com/beetlebugorg/topology/internal/topo"
	"github.com/beetlebugorg/topology/pkg/topology/memstore"
)

func TestAddEdgeNoFaceCheckLeavesFacesUnset(t *testing.T) {
	s := memstore.New()
	eng := topo.New(s, topo.DefaultPopulateOptions())

	a, _ := eng.AddIsoNode(topo.UniverseFace, orb.Point{0, 0}, false)
	b, _ := eng.AddIsoNode(topo.UniverseFace, orb.Point{10, 0}, false)

	id, err := eng.AddEdgeNoFaceCheck(a, b, orb.LineString{{0, 0}, {10, 0}}, false)
	if err != nil {
		t.Fatalf("AddEdgeNoFaceCheck: %v", err)
	}

	rows, err := s.GetEdgeByID([]topo.EdgeID{id}, topo.EdgeFieldAll)
	if err != nil {
		t.Fatalf("GetEdgeByID: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected edge to exist")
	}
	if rows[0].FaceLeft != topo.NoFace || rows[0].FaceRight != topo.NoFace {
		t.Errorf("expected NoFaceCheck to leave both faces unset, got left=%v right=%v", rows[0].FaceLeft, rows[0].FaceRight)
	}
}

func TestAddEdgeRejectsSideLocationConflict(t *testing.T) {
	s := memstore.New()
	eng := topo.New(s, topo.DefaultPopulateOptions())

	// Two disjoint squares, each recovering its own non-universe interior
	// face via AddEdgeNewFaces's normal face-split bookkeeping.
	sq1 := faceSquare(t, eng, [4]orb.Point{{0, 0}, {10, 0}, {10, 10}, {0, 10}})
	sq2 := faceSquare(t, eng, [4]orb.Point{{100, 0}, {110, 0}, {110, 10}, {100, 10}})
	_ = sq1
	_ = sq2

	face1, err := eng.GetFaceContainingPoint(orb.Point{5, 5})
	if err != nil {
		t.Fatalf("GetFaceContainingPoint face1: %v", err)
	}
	face2, err := eng.GetFaceContainingPoint(orb.Point{105, 5})
	if err != nil {
		t.Fatalf("GetFaceContainingPoint face2: %v", err)
	}
	if face1 == face2 {
		t.Fatalf("expected the two disjoint squares to recover distinct faces, both got %v", face1)
	}

	p1, err := eng.AddIsoNode(face1, orb.Point{5, 5}, false)
	if err != nil {
		t.Fatalf("AddIsoNode p1: %v", err)
	}
	p2, err := eng.AddIsoNode(face2, orb.Point{105, 5}, false)
	if err != nil {
		t.Fatalf("AddIsoNode p2: %v", err)
	}

	// skipChecks: any line between the two faces crosses a square's edge,
	// and the crossing check runs before the face check.
	_, err = eng.AddEdgeModFace(p1, p2, orb.LineString{{5, 5}, {105, 5}}, true)
	if err == nil {
		t.Fatalf("expected connecting nodes in two different faces to be rejected")
	}
	if _, ok := err.(*topo.ErrSideLocationConflict); !ok {
		t.Errorf("expected ErrSideLocationConflict, got %T: %v", err, err)
	}
}

func TestRemEdgeNewFaceHealsBackToUniverse(t *testing.T) {
	s := memstore.New()
	eng := topo.New(s, topo.DefaultPopulateOptions())
	faceSquare(t, eng, [4]orb.Point{{0, 0}, {10, 0}, {10, 10}, {0, 10}})

	interior, err := eng.GetFaceContainingPoint(orb.Point{5, 5})
	if err != nil {
		t.Fatalf("GetFaceContainingPoint: %v", err)
	}
	rows, err := s.GetFaceByID([]topo.FaceID{interior}, topo.FaceFieldAll)
	if err != nil || len(rows) != 1 {
		t.Fatalf("expected interior face to exist before removal: %v %v", rows, err)
	}

	edges, err := s.GetEdgeByFace([]topo.FaceID{interior}, topo.EdgeFieldID, nil)
	if err != nil {
		t.Fatalf("GetEdgeByFace: %v", err)
	}
	if len(edges) == 0 {
		t.Fatalf("expected at least one edge bounding the interior face")
	}

	flooded, err := eng.RemEdgeNewFace(edges[0].ID)
	if err != nil {
		t.Fatalf("RemEdgeNewFace: %v", err)
	}
	if flooded != topo.UniverseFace {
		t.Errorf("expected the remaining three edges to flood back to the universe face, got %v", flooded)
	}

	rows, err = s.GetFaceByID([]topo.FaceID{interior}, topo.FaceFieldAll)
	if err != nil {
		t.Fatalf("GetFaceByID after removal: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("expected the interior face to be deleted once its last bounding edge is removed, got %v", rows)
	}
}

func TestHealEdgesCaseOneChain(t *testing.T) {
	s := memstore.New()
	eng := topo.New(s, topo.DefaultPopulateOptions())

	a, _ := eng.AddIsoNode(topo.UniverseFace, orb.Point{0, 0}, false)
	b, _ := eng.AddIsoNode(topo.UniverseFace, orb.Point{10, 0}, false)
	c, _ := eng.AddIsoNode(topo.UniverseFace, orb.Point{20, 0}, false)

	e1, err := eng.AddEdgeNoFaceCheck(a, b, orb.LineString{{0, 0}, {10, 0}}, false)
	if err != nil {
		t.Fatalf("edge1: %v", err)
	}
	e2, err := eng.AddEdgeNoFaceCheck(b, c, orb.LineString{{10, 0}, {20, 0}}, false)
	if err != nil {
		t.Fatalf("edge2: %v", err)
	}

	survivor, err := eng.ModEdgeHeal(e1, e2)
	if err != nil {
		t.Fatalf("ModEdgeHeal: %v", err)
	}
	if survivor != b {
		t.Errorf("expected the healed-away node to be %v, got %v", b, survivor)
	}

	rows, err := s.GetEdgeByID([]topo.EdgeID{e1}, topo.EdgeFieldAll)
	if err != nil || len(rows) != 1 {
		t.Fatalf("expected surviving edge %v to remain: %v %v", e1, rows, err)
	}
	if rows[0].StartNode != a || rows[0].EndNode != c {
		t.Errorf("expected merged edge to run a->c, got %v->%v", rows[0].StartNode, rows[0].EndNode)
	}
}

func TestHealEdgesCaseTwoSharedEndNode(t *testing.T) {
	s := memstore.New()
	eng := topo.New(s, topo.DefaultPopulateOptions())

	a, _ := eng.AddIsoNode(topo.UniverseFace, orb.Point{0, 0}, false)
	b, _ := eng.AddIsoNode(topo.UniverseFace, orb.Point{10, 0}, false)
	c, _ := eng.AddIsoNode(topo.UniverseFace, orb.Point{10, 10}, false)

	e1, err := eng.AddEdgeNoFaceCheck(a, b, orb.LineString{{0, 0}, {10, 0}}, false)
	if err != nil {
		t.Fatalf("edge1: %v", err)
	}
	e2, err := eng.AddEdgeNoFaceCheck(c, b, orb.LineString{{10, 10}, {10, 0}}, false)
	if err != nil {
		t.Fatalf("edge2: %v", err)
	}

	survivor, err := eng.ModEdgeHeal(e1, e2)
	if err != nil {
		t.Fatalf("ModEdgeHeal: %v", err)
	}
	if survivor != b {
		t.Fatalf("expected shared node %v healed away, got %v", b, survivor)
	}
	rows, err := s.GetEdgeByID([]topo.EdgeID{e1}, topo.EdgeFieldAll)
	if err != nil || len(rows) != 1 {
		t.Fatalf("expected surviving edge: %v %v", rows, err)
	}
	if rows[0].StartNode != a || rows[0].EndNode != c {
		t.Errorf("expected merged edge to run a->c, got %v->%v", rows[0].StartNode, rows[0].EndNode)
	}
}

func TestHealEdgesRejectsDegreeMismatch(t *testing.T) {
	s := memstore.New()
	eng := topo.New(s, topo.DefaultPopulateOptions())

	a, _ := eng.AddIsoNode(topo.UniverseFace, orb.Point{0, 0}, false)
	b, _ := eng.AddIsoNode(topo.UniverseFace, orb.Point{10, 0}, false)
	c, _ := eng.AddIsoNode(topo.UniverseFace, orb.Point{20, 0}, false)
	d, _ := eng.AddIsoNode(topo.UniverseFace, orb.Point{10, 10}, false)

	e1, err := eng.AddEdgeNoFaceCheck(a, b, orb.LineString{{0, 0}, {10, 0}}, false)
	if err != nil {
		t.Fatalf("edge1: %v", err)
	}
	e2, err := eng.AddEdgeNoFaceCheck(b, c, orb.LineString{{10, 0}, {20, 0}}, false)
	if err != nil {
		t.Fatalf("edge2: %v", err)
	}
	// A third edge also incident to the shared node b means healing e1/e2
	// would silently orphan it; must be rejected.
	if _, err := eng.AddEdgeNoFaceCheck(b, d, orb.LineString{{10, 0}, {10, 10}}, false); err != nil {
		t.Fatalf("edge3: %v", err)
	}

	_, err = eng.ModEdgeHeal(e1, e2)
	if err == nil {
		t.Fatalf("expected a third edge incident to the shared node to block healing")
	}
	if _, ok := err.(*topo.ErrHealDegreeMismatch); !ok {
		t.Errorf("expected ErrHealDegreeMismatch, got %T: %v", err, err)
	}
}

func TestHealEdgesRejectsSelfHeal(t *testing.T) {
	s := memstore.New()
	eng := topo.New(s, topo.DefaultPopulateOptions())
	a, _ := eng.AddIsoNode(topo.UniverseFace, orb.Point{0, 0}, false)
	b, _ := eng.AddIsoNode(topo.UniverseFace, orb.Point{10, 0}, false)
	e1, err := eng.AddEdgeNoFaceCheck(a, b, orb.LineString{{0, 0}, {10, 0}}, false)
	if err != nil {
		t.Fatalf("edge1: %v", err)
	}
	if _, err := eng.ModEdgeHeal(e1, e1); err == nil {
		t.Errorf("expected healing an edge with itself to be rejected")
	}
}

func TestChangeEdgeGeomSucceeds(t *testing.T) {
	s := memstore.New()
	eng := topo.New(s, topo.DefaultPopulateOptions())

	a, _ := eng.AddIsoNode(topo.UniverseFace, orb.Point{0, 0}, false)
	b, _ := eng.AddIsoNode(topo.UniverseFace, orb.Point{10, 0}, false)
	e, err := eng.AddEdgeNoFaceCheck(a, b, orb.LineString{{0, 0}, {10, 0}}, false)
	if err != nil {
		t.Fatalf("AddEdgeNoFaceCheck: %v", err)
	}

	newLine := orb.LineString{{0, 0}, {5, 1}, {10, 0}}
	if err := eng.ChangeEdgeGeom(e, newLine); err != nil {
		t.Fatalf("ChangeEdgeGeom: %v", err)
	}

	rows, err := s.GetEdgeByID([]topo.EdgeID{e}, topo.EdgeFieldAll)
	if err != nil || len(rows) != 1 {
		t.Fatalf("expected edge to exist: %v %v", rows, err)
	}
	if len(rows[0].Geom) != 3 {
		t.Errorf("expected the new bowed geometry to be stored, got %v", rows[0].Geom)
	}
}

func TestChangeEdgeGeomRejectsEndpointMismatch(t *testing.T) {
	s := memstore.New()
	eng := topo.New(s, topo.DefaultPopulateOptions())

	a, _ := eng.AddIsoNode(topo.UniverseFace, orb.Point{0, 0}, false)
	b, _ := eng.AddIsoNode(topo.UniverseFace, orb.Point{10, 0}, false)
	e, err := eng.AddEdgeNoFaceCheck(a, b, orb.LineString{{0, 0}, {10, 0}}, false)
	if err != nil {
		t.Fatalf("AddEdgeNoFaceCheck: %v", err)
	}

	err = eng.ChangeEdgeGeom(e, orb.LineString{{0, 0}, {20, 0}})
	if err == nil {
		t.Fatalf("expected moving an endpoint to be rejected")
	}
	if _, ok := err.(*topo.ErrMotionCollision); !ok {
		t.Errorf("expected ErrMotionCollision, got %T: %v", err, err)
	}
}

func TestChangeEdgeGeomRejectsMotionThroughNode(t *testing.T) {
	s := memstore.New()
	eng := topo.New(s, topo.DefaultPopulateOptions())

	a, _ := eng.AddIsoNode(topo.UniverseFace, orb.Point{0, 0}, false)
	b, _ := eng.AddIsoNode(topo.UniverseFace, orb.Point{10, 0}, false)
	e, err := eng.AddEdgeModFace(a, b, orb.LineString{{0, 0}, {10, 0}}, false)
	if err != nil {
		t.Fatalf("AddEdgeModFace: %v", err)
	}
	if _, err := eng.AddIsoNode(topo.UniverseFace, orb.Point{5, 5}, false); err != nil {
		t.Fatalf("AddIsoNode stray: %v", err)
	}

	err = eng.ChangeEdgeGeom(e, orb.LineString{{0, 0}, {5, 5}, {10, 0}})
	if err == nil {
		t.Fatalf("expected motion that sweeps through an existing node to be rejected")
	}
	if _, ok := err.(*topo.ErrMotionCollision); !ok {
		t.Errorf("expected ErrMotionCollision, got %T: %v", err, err)
	}
}
