package topo_test

import (
	"context"
	"testing"

	"github.com/paulmach/orb"

	"github.com/beetlebugorg/topology/internal/topo"
	"github.com/beetlebugorg/topology/pkg/topology/memstore"
)

func TestAddPointCreatesIsolatedNode(t *testing.T) {
	s := memstore.New()
	eng := topo.New(s, topo.DefaultPopulateOptions())

	node, created, err := eng.AddPoint(context.Background(), orb.Point{1, 1}, topo.DefaultPopulateOptions())
	if err != nil {
		t.Fatalf("AddPoint: %v", err)
	}
	if !created {
		t.Errorf("expected a fresh point to be reported as created")
	}

	rows, err := s.GetNodeByID([]topo.NodeID{node}, topo.NodeFieldAll)
	if err != nil {
		t.Fatalf("GetNodeByID: %v", err)
	}
	if len(rows) != 1 || rows[0].Point != (orb.Point{1, 1}) {
		t.Fatalf("got %+v", rows)
	}
}

func TestAddPointReusesExistingNode(t *testing.T) {
	s := memstore.New()
	eng := topo.New(s, topo.DefaultPopulateOptions())
	opts := topo.PopulateOptions{Tolerance: 0.5, MaxSnapIterations: 4, MaxRingEdges: 1000}

	first, _, err := eng.AddPoint(context.Background(), orb.Point{0, 0}, opts)
	if err != nil {
		t.Fatalf("AddPoint first: %v", err)
	}

	second, created, err := eng.AddPoint(context.Background(), orb.Point{0.1, 0.1}, opts)
	if err != nil {
		t.Fatalf("AddPoint second: %v", err)
	}
	if created {
		t.Errorf("expected a point within tolerance of an existing node to reuse it")
	}
	if second != first {
		t.Errorf("expected the same node id, got %v and %v", first, second)
	}
	_ = s
}

func TestAddPointSplitsNearbyEdge(t *testing.T) {
	s := memstore.New()
	eng := topo.New(s, topo.DefaultPopulateOptions())

	a, _ := eng.AddIsoNode(topo.UniverseFace, orb.Point{0, 0}, false)
	b, _ := eng.AddIsoNode(topo.UniverseFace, orb.Point{10, 0}, false)
	edge, err := eng.AddIsoEdge(a, b, orb.LineString{{0, 0}, {10, 0}})
	if err != nil {
		t.Fatalf("AddIsoEdge: %v", err)
	}

	node, created, err := eng.AddPoint(context.Background(), orb.Point{5, 0}, topo.DefaultPopulateOptions())
	if err != nil {
		t.Fatalf("AddPoint: %v", err)
	}
	if !created {
		t.Errorf("expected splitting an edge to count as creating a node")
	}

	edges, err := s.GetEdgeByNode([]topo.NodeID{node}, topo.EdgeFieldAll)
	if err != nil {
		t.Fatalf("GetEdgeByNode: %v", err)
	}
	if len(edges) != 2 {
		t.Fatalf("expected the split to leave 2 edges incident to the new node, got %d", len(edges))
	}
	_ = edge
}

func TestAddLineSelfNodesAndRegistersEdges(t *testing.T) {
	s := memstore.New()
	eng := topo.New(s, topo.DefaultPopulateOptions())

	ids, err := eng.AddLine(context.Background(), orb.LineString{{0, 0}, {10, 0}}, topo.DefaultPopulateOptions())
	if err != nil {
		t.Fatalf("AddLine: %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("expected a single simple line to register as one edge, got %d", len(ids))
	}

	rows, err := s.GetEdgeByID([]topo.EdgeID{ids[0].Edge()}, topo.EdgeFieldAll)
	if err != nil {
		t.Fatalf("GetEdgeByID: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected the edge to exist in storage")
	}
}

func TestAddLineReusesIdenticalEdge(t *testing.T) {
	s := memstore.New()
	eng := topo.New(s, topo.DefaultPopulateOptions())

	first, err := eng.AddLine(context.Background(), orb.LineString{{0, 0}, {10, 0}}, topo.DefaultPopulateOptions())
	if err != nil {
		t.Fatalf("AddLine first: %v", err)
	}
	second, err := eng.AddLine(context.Background(), orb.LineString{{0, 0}, {10, 0}}, topo.DefaultPopulateOptions())
	if err != nil {
		t.Fatalf("AddLine second: %v", err)
	}
	if first[0].Edge() != second[0].Edge() {
		t.Errorf("expected re-adding the identical line to reuse the existing edge, got %v and %v", first, second)
	}
	_ = s
}

func TestAddPolygonCoversInteriorFace(t *testing.T) {
	s := memstore.New()
	eng := topo.New(s, topo.DefaultPopulateOptions())

	ring := orb.Ring{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}}
	faces, err := eng.AddPolygon(context.Background(), orb.Polygon{ring}, topo.DefaultPopulateOptions())
	if err != nil {
		t.Fatalf("AddPolygon: %v", err)
	}
	if len(faces) == 0 {
		t.Fatalf("expected AddPolygon to report at least one covered face")
	}
	for _, f := range faces {
		if f == topo.UniverseFace {
			t.Errorf("expected covered faces to exclude the universe face, got %v", faces)
		}
	}
}

func TestLoadGeometryDispatchesByTag(t *testing.T) {
	s := memstore.New()
	eng := topo.New(s, topo.DefaultPopulateOptions())

	res, err := eng.LoadGeometry(context.Background(), topo.Geometry{Type: topo.GeometryPoint, Point: orb.Point{3, 3}}, topo.DefaultPopulateOptions())
	if err != nil {
		t.Fatalf("LoadGeometry point: %v", err)
	}
	if res.Node == 0 {
		t.Errorf("expected a node id to be reported for a point geometry")
	}

	res, err = eng.LoadGeometry(context.Background(), topo.Geometry{Type: topo.GeometryLine, Line: orb.LineString{{20, 20}, {30, 20}}}, topo.DefaultPopulateOptions())
	if err != nil {
		t.Fatalf("LoadGeometry line: %v", err)
	}
	if len(res.Edges) != 1 {
		t.Errorf("expected one registered edge for a line geometry, got %v", res.Edges)
	}
}

func TestLoadGeometryUnknownTag(t *testing.T) {
	s := memstore.New()
	eng := topo.New(s, topo.DefaultPopulateOptions())

	_, err := eng.LoadGeometry(context.Background(), topo.Geometry{Type: topo.GeometryType(99)}, topo.DefaultPopulateOptions())
	if err == nil {
		t.Fatalf("expected an unknown geometry tag to be rejected")
	}
}
