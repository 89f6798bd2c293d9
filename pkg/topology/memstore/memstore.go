// Package memstore is the reference in-memory implementation of
// topo.Storage: plain Go maps guarded by a mutex, the way pkg/v1's
// ChartCache guards its chart map, plus one rtreego.Rtree per entity kind
// for the box/distance queries, the way pkg/s57's ChartIndex builds one
// over chart bounds. It exists so the engine in internal/topo has
// something to run against without a real database, and so examples and
// tests don't need one either.
//
// Unlike ChartCache's incremental LRU bookkeeping, the spatial trees here
// are rebuilt wholesale the next time a query needs them after any write:
// rtreego has no cheap delete-by-value primitive the way container/list
// does, and a reference backend's correctness matters far more than its
// throughput. A single mutex (not an RWMutex) guards everything, since
// every read that finds the trees stale must itself perform the rebuild.
package memstore

import (
	"math"
	"sort"
	"sync"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"

	"github.com/beetlebugorg/topology/internal/topo"
)

const epsilon = 1e-9

// minChildren/maxChildren match the teacher's ChartIndex.BuildIndex
// tuning in spirit, scaled down since a topology's rings are typically a
// handful of entities rather than a chart catalog's hundreds.
const (
	rtreeMinChildren = 4
	rtreeMaxChildren = 16
)

// Store is a Storage backend that keeps every node, edge and face row in
// memory. It is safe for concurrent use.
type Store struct {
	mu sync.Mutex

	nodes map[topo.NodeID]topo.Node
	edges map[topo.EdgeID]topo.Edge
	faces map[topo.FaceID]topo.Face

	nextNodeID topo.NodeID
	nextEdgeID topo.EdgeID
	nextFaceID topo.FaceID

	nodeTree    *rtreego.Rtree
	edgeTree    *rtreego.Rtree
	faceTree    *rtreego.Rtree
	treesStale  bool

	notifier topo.Notifier
}

// New returns an empty Store with a no-op Notifier. Call SetNotifier to
// wire one up (e.g. a TopoGeometry-style feature layer).
func New() *Store {
	return &Store{
		nodes:      make(map[topo.NodeID]topo.Node),
		edges:      make(map[topo.EdgeID]topo.Edge),
		faces:      make(map[topo.FaceID]topo.Face),
		nextNodeID: 1,
		nextEdgeID: 1,
		nextFaceID: 1,
		notifier:   noopNotifier{},
		treesStale: true,
	}
}

// SetNotifier installs the hooks the engine calls on split/heal events.
func (s *Store) SetNotifier(n topo.Notifier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n == nil {
		n = noopNotifier{}
	}
	s.notifier = n
}

// --- spatial index maintenance ---

type nodeSpatial struct {
	id    topo.NodeID
	point orb.Point
}

func (n nodeSpatial) Bounds() rtreego.Rect { return pointRect(n.point) }

type edgeSpatial struct {
	id    topo.EdgeID
	bound orb.Bound
}

func (e edgeSpatial) Bounds() rtreego.Rect { return boundRect(e.bound) }

type faceSpatial struct {
	id    topo.FaceID
	bound orb.Bound
}

func (f faceSpatial) Bounds() rtreego.Rect { return boundRect(f.bound) }

func pointRect(p orb.Point) rtreego.Rect {
	rect, _ := rtreego.NewRect(rtreego.Point{p[0] - epsilon/2, p[1] - epsilon/2}, []float64{epsilon, epsilon})
	return rect
}

func boundRect(b orb.Bound) rtreego.Rect {
	lengths := []float64{b.Max[0] - b.Min[0], b.Max[1] - b.Min[1]}
	for i, l := range lengths {
		if l <= 0 {
			lengths[i] = epsilon
		}
	}
	rect, _ := rtreego.NewRect(rtreego.Point{b.Min[0], b.Min[1]}, lengths)
	return rect
}

func boxRect(box orb.Bound) rtreego.Rect {
	return boundRect(box)
}

// rebuildTrees must be called with s.mu held. It is a no-op when nothing
// has changed since the last rebuild.
func (s *Store) rebuildTrees() {
	if !s.treesStale {
		return
	}
	s.nodeTree = rtreego.NewTree(2, rtreeMinChildren, rtreeMaxChildren)
	for _, n := range s.nodes {
		s.nodeTree.Insert(nodeSpatial{id: n.ID, point: n.Point})
	}
	s.edgeTree = rtreego.NewTree(2, rtreeMinChildren, rtreeMaxChildren)
	for _, e := range s.edges {
		s.edgeTree.Insert(edgeSpatial{id: e.ID, bound: topo.LineStringBound(e.Geom)})
	}
	s.faceTree = rtreego.NewTree(2, rtreeMinChildren, rtreeMaxChildren)
	for _, f := range s.faces {
		if f.ID == topo.UniverseFace {
			continue
		}
		s.faceTree.Insert(faceSpatial{id: f.ID, bound: f.MBR})
	}
	s.treesStale = false
}

// --- field masking ---
//
// A real (e.g. SQL-backed) Storage has a reason to honor the field mask:
// it can skip columns in the query itself. An in-memory map has no such
// saving, but a caller relying on unrequested fields staying zeroed would
// behave differently against a DB-backed implementation, so the masks
// are still applied here.

func maskNode(n topo.Node, fields topo.NodeField) topo.Node {
	out := topo.Node{ID: n.ID}
	if fields&topo.NodeFieldID == 0 {
		out.ID = 0
	}
	if fields&topo.NodeFieldContainingFace != 0 {
		out.ContainingFace = n.ContainingFace
	}
	if fields&topo.NodeFieldGeom != 0 {
		out.Point = n.Point
	}
	return out
}

func maskEdge(e topo.Edge, fields topo.EdgeField) topo.Edge {
	out := topo.Edge{ID: e.ID}
	if fields&topo.EdgeFieldID == 0 {
		out.ID = 0
	}
	if fields&topo.EdgeFieldStartNode != 0 {
		out.StartNode = e.StartNode
	}
	if fields&topo.EdgeFieldEndNode != 0 {
		out.EndNode = e.EndNode
	}
	if fields&topo.EdgeFieldFaceLeft != 0 {
		out.FaceLeft = e.FaceLeft
	}
	if fields&topo.EdgeFieldFaceRight != 0 {
		out.FaceRight = e.FaceRight
	}
	if fields&topo.EdgeFieldNextLeft != 0 {
		out.NextLeft = e.NextLeft
	}
	if fields&topo.EdgeFieldNextRight != 0 {
		out.NextRight = e.NextRight
	}
	if fields&topo.EdgeFieldGeom != 0 {
		out.Geom = e.Geom
	}
	return out
}

func maskFace(f topo.Face, fields topo.FaceField) topo.Face {
	out := topo.Face{ID: f.ID}
	if fields&topo.FaceFieldID == 0 {
		out.ID = 0
	}
	if fields&topo.FaceFieldMBR != 0 {
		out.MBR = f.MBR
	}
	return out
}

// withinLimit reports whether the caller has already gathered enough
// rows. limit <= 0 means "no cap": every real call site in internal/topo
// passes -1 while still expecting the full match set (see e.g.
// crossing.go's CheckEdgeCrossing, which loops over every edge
// GetEdgeWithinBox returns), so -1 is treated as unbounded here rather
// than as storage.go's doc-commented "existence probe" optimization —
// truncating those call sites would silently break crossing checks.
func withinLimit(limit, have int) bool {
	return limit <= 0 || have < limit
}

// --- reads ---

func (s *Store) GetNodeByID(ids []topo.NodeID, fields topo.NodeField) ([]topo.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]topo.Node, 0, len(ids))
	for _, id := range ids {
		if n, ok := s.nodes[id]; ok {
			out = append(out, maskNode(n, fields))
		}
	}
	return out, nil
}

func (s *Store) GetEdgeByID(ids []topo.EdgeID, fields topo.EdgeField) ([]topo.Edge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]topo.Edge, 0, len(ids))
	for _, id := range ids {
		if e, ok := s.edges[id]; ok {
			out = append(out, maskEdge(e, fields))
		}
	}
	return out, nil
}

func (s *Store) GetFaceByID(ids []topo.FaceID, fields topo.FaceField) ([]topo.Face, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]topo.Face, 0, len(ids))
	for _, id := range ids {
		if f, ok := s.faces[id]; ok {
			out = append(out, maskFace(f, fields))
		}
	}
	return out, nil
}

func (s *Store) GetNodeWithinBox(box orb.Bound, fields topo.NodeField, limit int) ([]topo.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []topo.Node
	if isUnbounded(box) {
		for _, id := range sortedNodeIDs(s.nodes) {
			n := s.nodes[id]
			if !withinLimit(limit, len(out)) {
				break
			}
			out = append(out, maskNode(n, fields))
		}
		return out, nil
	}
	s.rebuildTrees()
	for _, sp := range s.nodeTree.SearchIntersect(boxRect(box)) {
		ns := sp.(nodeSpatial)
		if !box.Contains(ns.point) {
			continue
		}
		if !withinLimit(limit, len(out)) {
			break
		}
		out = append(out, maskNode(s.nodes[ns.id], fields))
	}
	return out, nil
}

func (s *Store) GetEdgeWithinBox(box orb.Bound, fields topo.EdgeField, limit int) ([]topo.Edge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []topo.Edge
	if isUnbounded(box) {
		for _, id := range sortedEdgeIDs(s.edges) {
			if !withinLimit(limit, len(out)) {
				break
			}
			out = append(out, maskEdge(s.edges[id], fields))
		}
		return out, nil
	}
	s.rebuildTrees()
	for _, sp := range s.edgeTree.SearchIntersect(boxRect(box)) {
		es := sp.(edgeSpatial)
		if !boundsIntersect(box, es.bound) {
			continue
		}
		if !withinLimit(limit, len(out)) {
			break
		}
		out = append(out, maskEdge(s.edges[es.id], fields))
	}
	return out, nil
}

func (s *Store) GetFaceWithinBox(box orb.Bound, fields topo.FaceField, limit int) ([]topo.Face, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []topo.Face
	if isUnbounded(box) {
		for _, f := range s.faces {
			if !withinLimit(limit, len(out)) {
				break
			}
			out = append(out, maskFace(f, fields))
		}
		return out, nil
	}
	s.rebuildTrees()
	for _, sp := range s.faceTree.SearchIntersect(boxRect(box)) {
		fs := sp.(faceSpatial)
		if !boundsIntersect(box, fs.bound) {
			continue
		}
		if !withinLimit(limit, len(out)) {
			break
		}
		out = append(out, maskFace(s.faces[fs.id], fields))
	}
	return out, nil
}

// isUnbounded reports whether box has a non-finite extent in either
// dimension. rtreego's rectangles are built from a corner point plus a
// length per axis; an infinite length added to a -Inf corner produces
// NaN, which then fails every bounding comparison in the tree. Callers
// that scope a query to "the whole plane" (e.g. Polygonize's initial
// edge enumeration) hit this, so such boxes fall back to a plain scan
// over the map instead of going through the rtree.
func isUnbounded(box orb.Bound) bool {
	for _, v := range []float64{box.Min[0], box.Min[1], box.Max[0], box.Max[1]} {
		if math.IsInf(v, 0) {
			return true
		}
	}
	return false
}

func boundsIntersect(a, b orb.Bound) bool {
	if a.Max[0] < b.Min[0] || b.Max[0] < a.Min[0] {
		return false
	}
	if a.Max[1] < b.Min[1] || b.Max[1] < a.Min[1] {
		return false
	}
	return true
}

func (s *Store) GetNodeWithinDistance(point orb.Point, dist float64, fields topo.NodeField, limit int) ([]topo.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rebuildTrees()
	box := orb.Bound{
		Min: orb.Point{point[0] - dist, point[1] - dist},
		Max: orb.Point{point[0] + dist, point[1] + dist},
	}
	var out []topo.Node
	for _, sp := range s.nodeTree.SearchIntersect(boxRect(box)) {
		ns := sp.(nodeSpatial)
		if topo.MinDistance(point, ns.point) > dist {
			continue
		}
		if !withinLimit(limit, len(out)) {
			break
		}
		out = append(out, maskNode(s.nodes[ns.id], fields))
	}
	return out, nil
}

func (s *Store) GetEdgeWithinDistance(point orb.Point, dist float64, fields topo.EdgeField, limit int) ([]topo.Edge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rebuildTrees()
	box := orb.Bound{
		Min: orb.Point{point[0] - dist, point[1] - dist},
		Max: orb.Point{point[0] + dist, point[1] + dist},
	}
	var out []topo.Edge
	for _, sp := range s.edgeTree.SearchIntersect(boxRect(box)) {
		es := sp.(edgeSpatial)
		e := s.edges[es.id]
		if _, d := topo.DistanceToLineString(e.Geom, point); d > dist {
			continue
		}
		if !withinLimit(limit, len(out)) {
			break
		}
		out = append(out, maskEdge(e, fields))
	}
	return out, nil
}

func (s *Store) GetClosestEdge(point orb.Point, fields topo.EdgeField) (topo.Edge, float64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.edges) == 0 {
		return topo.Edge{}, 0, false, nil
	}
	var best topo.Edge
	bestDist := -1.0
	ids := make([]topo.EdgeID, 0, len(s.edges))
	for id := range s.edges {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		e := s.edges[id]
		_, d := topo.DistanceToLineString(e.Geom, point)
		if bestDist < 0 || d < bestDist {
			best, bestDist = e, d
		}
	}
	return maskEdge(best, fields), bestDist, true, nil
}

func (s *Store) GetEdgeByNode(nodeIDs []topo.NodeID, fields topo.EdgeField) ([]topo.Edge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := make(map[topo.NodeID]bool, len(nodeIDs))
	for _, id := range nodeIDs {
		want[id] = true
	}
	var out []topo.Edge
	for _, id := range sortedEdgeIDs(s.edges) {
		e := s.edges[id]
		if want[e.StartNode] || want[e.EndNode] {
			out = append(out, maskEdge(e, fields))
		}
	}
	return out, nil
}

func (s *Store) GetEdgeByFace(faceIDs []topo.FaceID, fields topo.EdgeField, box *orb.Bound) ([]topo.Edge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := make(map[topo.FaceID]bool, len(faceIDs))
	for _, id := range faceIDs {
		want[id] = true
	}
	var out []topo.Edge
	for _, id := range sortedEdgeIDs(s.edges) {
		e := s.edges[id]
		if !want[e.FaceLeft] && !want[e.FaceRight] {
			continue
		}
		if box != nil && !boundsIntersect(*box, topo.LineStringBound(e.Geom)) {
			continue
		}
		out = append(out, maskEdge(e, fields))
	}
	return out, nil
}

func (s *Store) GetNodeByFace(faceIDs []topo.FaceID, fields topo.NodeField, box *orb.Bound) ([]topo.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := make(map[topo.FaceID]bool, len(faceIDs))
	for _, id := range faceIDs {
		want[id] = true
	}
	var out []topo.Node
	for _, id := range sortedNodeIDs(s.nodes) {
		n := s.nodes[id]
		if !want[n.ContainingFace] {
			continue
		}
		if box != nil && !box.Contains(n.Point) {
			continue
		}
		out = append(out, maskNode(n, fields))
	}
	return out, nil
}

func (s *Store) GetNextEdgeID() (topo.EdgeID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextEdgeID
	s.nextEdgeID++
	return id, nil
}

// GetFaceContainingPoint always returns ok=false: memstore keeps no
// polygon index of its own and defers entirely to the engine's
// closest-edge resolver in pointlocation.go.
func (s *Store) GetFaceContainingPoint(point orb.Point) (topo.FaceID, bool, error) {
	return topo.UniverseFace, false, nil
}

func (s *Store) ComputeFaceMBR(face topo.FaceID) (orb.Bound, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var mbr orb.Bound
	set := false
	for _, id := range sortedEdgeIDs(s.edges) {
		e := s.edges[id]
		if e.FaceLeft != face && e.FaceRight != face {
			continue
		}
		b := topo.LineStringBound(e.Geom)
		if !set {
			mbr, set = b, true
		} else {
			mbr = mbr.Union(b)
		}
	}
	if !set {
		return orb.Bound{}, &topo.ErrCorruptedTopology{Reason: "face has no bounding edges to compute an MBR from"}
	}
	return mbr, nil
}

func (s *Store) GetRingEdges(signed topo.SignedEdgeID, limit int) ([]topo.SignedEdgeID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 {
		limit = 100000
	}
	out := []topo.SignedEdgeID{signed}
	cur := signed
	for i := 0; ; i++ {
		if i > limit {
			return nil, &topo.ErrCorruptedTopology{Reason: "ring walk exceeded limit without closing"}
		}
		e, ok := s.edges[cur.Edge()]
		if !ok {
			return nil, &topo.ErrNonExistentEdge{Edge: cur.Edge()}
		}
		var next topo.SignedEdgeID
		if cur.Forward() {
			next = e.NextLeft
		} else {
			next = e.NextRight
		}
		if next == signed {
			break
		}
		out = append(out, next)
		cur = next
	}
	return out, nil
}

func sortedNodeIDs(m map[topo.NodeID]topo.Node) []topo.NodeID {
	ids := make([]topo.NodeID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func sortedEdgeIDs(m map[topo.EdgeID]topo.Edge) []topo.EdgeID {
	ids := make([]topo.EdgeID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// --- writes ---

func (s *Store) InsertNodes(nodes []topo.Node) ([]topo.NodeID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]topo.NodeID, len(nodes))
	for i, n := range nodes {
		id := s.nextNodeID
		s.nextNodeID++
		n.ID = id
		s.nodes[id] = n
		ids[i] = id
	}
	s.treesStale = true
	return ids, nil
}

func (s *Store) InsertEdges(edges []topo.Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range edges {
		s.edges[e.ID] = e
		if e.ID >= s.nextEdgeID {
			s.nextEdgeID = e.ID + 1
		}
	}
	s.treesStale = true
	return nil
}

func (s *Store) InsertFaces(faces []topo.Face) ([]topo.FaceID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]topo.FaceID, len(faces))
	for i, f := range faces {
		id := s.nextFaceID
		s.nextFaceID++
		f.ID = id
		s.faces[id] = f
		ids[i] = id
	}
	s.treesStale = true
	return ids, nil
}

func nodeMatchesFilter(n topo.Node, f topo.NodeFilter) bool {
	if len(f.IDs) > 0 {
		found := false
		for _, id := range f.IDs {
			if id == n.ID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.ContainingFace != nil && n.ContainingFace != *f.ContainingFace {
		return false
	}
	return true
}

func edgeMatchesFilter(e topo.Edge, f topo.EdgeFilter) bool {
	if len(f.IDs) > 0 {
		found := false
		for _, id := range f.IDs {
			if id == e.ID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.StartNode != nil && e.StartNode != *f.StartNode {
		return false
	}
	if f.EndNode != nil && e.EndNode != *f.EndNode {
		return false
	}
	if f.FaceLeft != nil && e.FaceLeft != *f.FaceLeft {
		return false
	}
	if f.FaceRight != nil && e.FaceRight != *f.FaceRight {
		return false
	}
	return true
}

func (s *Store) UpdateNodes(sel topo.NodeFilter, upd topo.NodePatch, exc *topo.NodeFilter) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, id := range sortedNodeIDs(s.nodes) {
		n := s.nodes[id]
		if !nodeMatchesFilter(n, sel) {
			continue
		}
		if exc != nil && nodeMatchesFilter(n, *exc) {
			continue
		}
		if upd.ContainingFace != nil {
			n.ContainingFace = *upd.ContainingFace
		}
		if upd.Point != nil {
			n.Point = *upd.Point
		}
		s.nodes[id] = n
		count++
	}
	if count > 0 {
		s.treesStale = true
	}
	return count, nil
}

func (s *Store) UpdateEdges(sel topo.EdgeFilter, upd topo.EdgePatch, exc *topo.EdgeFilter) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, id := range sortedEdgeIDs(s.edges) {
		e := s.edges[id]
		if !edgeMatchesFilter(e, sel) {
			continue
		}
		if exc != nil && edgeMatchesFilter(e, *exc) {
			continue
		}
		applyEdgePatch(&e, upd)
		s.edges[id] = e
		count++
	}
	if count > 0 {
		s.treesStale = true
	}
	return count, nil
}

func applyEdgePatch(e *topo.Edge, upd topo.EdgePatch) {
	if upd.FaceLeft != nil {
		e.FaceLeft = *upd.FaceLeft
	}
	if upd.FaceRight != nil {
		e.FaceRight = *upd.FaceRight
	}
	if upd.NextLeft != nil {
		e.NextLeft = *upd.NextLeft
	}
	if upd.NextRight != nil {
		e.NextRight = *upd.NextRight
	}
	if upd.StartNode != nil {
		e.StartNode = *upd.StartNode
	}
	if upd.EndNode != nil {
		e.EndNode = *upd.EndNode
	}
	if upd.Geom != nil {
		e.Geom = *upd.Geom
	}
}

func (s *Store) UpdateFacesByID(faces []topo.Face, fields topo.FaceField) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, patch := range faces {
		cur, ok := s.faces[patch.ID]
		if !ok {
			return &topo.ErrCorruptedTopology{Reason: "UpdateFacesByID on a non-existent face"}
		}
		if fields&topo.FaceFieldMBR != 0 {
			cur.MBR = patch.MBR
		}
		s.faces[patch.ID] = cur
	}
	s.treesStale = true
	return nil
}

func (s *Store) UpdateEdgesByID(edges []topo.Edge, fields topo.EdgeField) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, patch := range edges {
		cur, ok := s.edges[patch.ID]
		if !ok {
			return &topo.ErrNonExistentEdge{Edge: patch.ID}
		}
		if fields&topo.EdgeFieldStartNode != 0 {
			cur.StartNode = patch.StartNode
		}
		if fields&topo.EdgeFieldEndNode != 0 {
			cur.EndNode = patch.EndNode
		}
		if fields&topo.EdgeFieldFaceLeft != 0 {
			cur.FaceLeft = patch.FaceLeft
		}
		if fields&topo.EdgeFieldFaceRight != 0 {
			cur.FaceRight = patch.FaceRight
		}
		if fields&topo.EdgeFieldNextLeft != 0 {
			cur.NextLeft = patch.NextLeft
		}
		if fields&topo.EdgeFieldNextRight != 0 {
			cur.NextRight = patch.NextRight
		}
		if fields&topo.EdgeFieldGeom != 0 {
			cur.Geom = patch.Geom
		}
		s.edges[patch.ID] = cur
	}
	s.treesStale = true
	return nil
}

func (s *Store) UpdateNodesByID(nodes []topo.Node, fields topo.NodeField) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, patch := range nodes {
		cur, ok := s.nodes[patch.ID]
		if !ok {
			return &topo.ErrNonExistentNode{Node: patch.ID}
		}
		if fields&topo.NodeFieldContainingFace != 0 {
			cur.ContainingFace = patch.ContainingFace
		}
		if fields&topo.NodeFieldGeom != 0 {
			cur.Point = patch.Point
		}
		s.nodes[patch.ID] = cur
	}
	s.treesStale = true
	return nil
}

func (s *Store) DeleteEdges(sel topo.EdgeFilter) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, id := range sortedEdgeIDs(s.edges) {
		if edgeMatchesFilter(s.edges[id], sel) {
			delete(s.edges, id)
			count++
		}
	}
	if count > 0 {
		s.treesStale = true
	}
	return count, nil
}

func (s *Store) DeleteNodesByID(ids []topo.NodeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.nodes, id)
	}
	s.treesStale = true
	return nil
}

func (s *Store) DeleteFacesByID(ids []topo.FaceID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.faces, id)
	}
	s.treesStale = true
	return nil
}

// --- Notifier delegation ---

func (s *Store) OnEdgeSplit(split topo.EdgeID, new1, new2 topo.EdgeID) {
	s.mu.Lock()
	n := s.notifier
	s.mu.Unlock()
	n.OnEdgeSplit(split, new1, new2)
}

func (s *Store) OnFaceSplit(split topo.FaceID, new1, new2 topo.FaceID) {
	s.mu.Lock()
	n := s.notifier
	s.mu.Unlock()
	n.OnFaceSplit(split, new1, new2)
}

func (s *Store) OnEdgeHeal(e1, e2, newEdge topo.EdgeID) {
	s.mu.Lock()
	n := s.notifier
	s.mu.Unlock()
	n.OnEdgeHeal(e1, e2, newEdge)
}

func (s *Store) OnFaceHeal(f1, f2, newFace topo.FaceID) {
	s.mu.Lock()
	n := s.notifier
	s.mu.Unlock()
	n.OnFaceHeal(f1, f2, newFace)
}

func (s *Store) PreCheckRemoveEdge(edge topo.EdgeID, faceLeft, faceRight topo.FaceID) (bool, error) {
	s.mu.Lock()
	n := s.notifier
	s.mu.Unlock()
	return n.PreCheckRemoveEdge(edge, faceLeft, faceRight)
}

func (s *Store) PreCheckRemoveIsoEdge(edge topo.EdgeID) (bool, error) {
	s.mu.Lock()
	n := s.notifier
	s.mu.Unlock()
	return n.PreCheckRemoveIsoEdge(edge)
}

func (s *Store) PreCheckRemoveNode(node topo.NodeID, e1, e2 topo.EdgeID) (bool, error) {
	s.mu.Lock()
	n := s.notifier
	s.mu.Unlock()
	return n.PreCheckRemoveNode(node, e1, e2)
}

func (s *Store) PreCheckRemoveIsoNode(node topo.NodeID) (bool, error) {
	s.mu.Lock()
	n := s.notifier
	s.mu.Unlock()
	return n.PreCheckRemoveIsoNode(node)
}

// noopNotifier is the default Notifier: every pre-check passes, every
// post-event hook is ignored. Embedders with no TopoGeometry-style
// feature-layer bookkeeping never need more than this.
type noopNotifier struct{}

func (noopNotifier) OnEdgeSplit(topo.EdgeID, topo.EdgeID, topo.EdgeID)     {}
func (noopNotifier) OnFaceSplit(topo.FaceID, topo.FaceID, topo.FaceID)     {}
func (noopNotifier) OnEdgeHeal(topo.EdgeID, topo.EdgeID, topo.EdgeID)      {}
func (noopNotifier) OnFaceHeal(topo.FaceID, topo.FaceID, topo.FaceID)      {}
func (noopNotifier) PreCheckRemoveEdge(topo.EdgeID, topo.FaceID, topo.FaceID) (bool, error) {
	return true, nil
}
func (noopNotifier) PreCheckRemoveIsoEdge(topo.EdgeID) (bool, error) { return true, nil }
func (noopNotifier) PreCheckRemoveNode(topo.NodeID, topo.EdgeID, topo.EdgeID) (bool, error) {
	return true, nil
}
func (noopNotifier) PreCheckRemoveIsoNode(topo.NodeID) (bool, error) { return true, nil }
