package topo

import "github.com/paulmach/orb"

// Storage is the abstract CRUD backend for one topology's node, edge and
// face rows, plus the notification hooks the engine fires on split/heal
// events. Implementations are expected to run each primitive call inside
// a single serializing transaction: every read the engine performs
// during a call must see a consistent snapshot, and all writes commit
// atomically on success or are rolled back on any error.
//
// A limit of -1 on any box/distance query is an existence probe: the
// implementation may stop scanning after the first match and return a
// slice of length 0 or 1.
type Storage interface {
	// --- reads ---

	GetNodeByID(ids []NodeID, fields NodeField) ([]Node, error)
	GetEdgeByID(ids []EdgeID, fields EdgeField) ([]Edge, error)
	GetFaceByID(ids []FaceID, fields FaceField) ([]Face, error)

	GetNodeWithinBox(box orb.Bound, fields NodeField, limit int) ([]Node, error)
	GetEdgeWithinBox(box orb.Bound, fields EdgeField, limit int) ([]Edge, error)
	GetFaceWithinBox(box orb.Bound, fields FaceField, limit int) ([]Face, error)

	GetNodeWithinDistance(point orb.Point, dist float64, fields NodeField, limit int) ([]Node, error)
	GetEdgeWithinDistance(point orb.Point, dist float64, fields EdgeField, limit int) ([]Edge, error)

	// GetClosestEdge returns the nearest edge to point and its distance.
	// ok is false when the topology has no edges at all.
	GetClosestEdge(point orb.Point, fields EdgeField) (edge Edge, dist float64, ok bool, err error)

	GetEdgeByNode(nodeIDs []NodeID, fields EdgeField) ([]Edge, error)
	// GetEdgeByFace returns edges bordering any of faceIDs on either
	// side. If box is non-nil, results are further restricted to edges
	// whose own MBR intersects it (used to scope AddFaceSplit's
	// re-labeling pass to the new ring's MBR).
	GetEdgeByFace(faceIDs []FaceID, fields EdgeField, box *orb.Bound) ([]Edge, error)
	GetNodeByFace(faceIDs []FaceID, fields NodeField, box *orb.Bound) ([]Node, error)

	GetNextEdgeID() (EdgeID, error)

	// GetFaceContainingPoint may return ok=false ("unknown") so the
	// engine falls back to its own resolver (see pointlocation.go).
	GetFaceContainingPoint(point orb.Point) (face FaceID, ok bool, err error)

	ComputeFaceMBR(face FaceID) (orb.Bound, error)

	// GetRingEdges walks next_left/next_right starting from signed,
	// returning the ordered signed edge cycle. It must abort with
	// ErrCorruptedTopology once more than limit edges have been
	// visited without closing the cycle.
	GetRingEdges(signed SignedEdgeID, limit int) ([]SignedEdgeID, error)

	// --- writes ---

	// InsertNodes assigns fresh ids (the ID field of each input row is
	// ignored) and returns them in input order.
	InsertNodes(nodes []Node) ([]NodeID, error)
	// InsertEdges inserts rows whose ID was already assigned by the
	// caller via GetNextEdgeID, since a new edge's own next_left/
	// next_right may need to reference its own id (self-loops).
	InsertEdges(edges []Edge) error
	// InsertFaces assigns fresh ids (the ID field of each input row is
	// ignored) and returns them in input order.
	InsertFaces(faces []Face) ([]FaceID, error)

	// UpdateNodes patches every row matching sel and not matching exc.
	// It returns the number of rows touched.
	UpdateNodes(sel NodeFilter, upd NodePatch, exc *NodeFilter) (int, error)
	UpdateEdges(sel EdgeFilter, upd EdgePatch, exc *EdgeFilter) (int, error)

	UpdateFacesByID(faces []Face, fields FaceField) error
	UpdateEdgesByID(edges []Edge, fields EdgeField) error
	UpdateNodesByID(nodes []Node, fields NodeField) error

	DeleteEdges(sel EdgeFilter) (int, error)
	DeleteNodesByID(ids []NodeID) error
	DeleteFacesByID(ids []FaceID) error

	Notifier
}

// Notifier is the set of hooks the engine calls so an embedder with
// higher-level feature bookkeeping (e.g. a TopoGeometry layer) stays
// consistent across split/heal events. Embedders with no such bookkeeping
// can satisfy this with a no-op implementation.
//
// The pre-check hooks return false to veto the operation (the engine
// then returns an error appropriate to the call site); the post-event
// hooks are notifications only and cannot fail the operation that
// triggered them.
type Notifier interface {
	// OnEdgeSplit fires after ModEdgeSplit/NewEdgesSplit. new2 is NoEdge
	// when the original edge was kept (ModEdgeSplit); otherwise both
	// new1 and new2 are freshly allocated ids and split no longer
	// exists.
	OnEdgeSplit(split EdgeID, new1, new2 EdgeID)
	// OnFaceSplit fires after AddFaceSplit creates a face. AddFaceSplit
	// creates one face per call and always passes NoFace as new2; under
	// NEW_FACES mode it fires once for each face created.
	OnFaceSplit(split FaceID, new1, new2 FaceID)
	OnEdgeHeal(e1, e2, newEdge EdgeID)
	OnFaceHeal(f1, f2, newFace FaceID)

	PreCheckRemoveEdge(edge EdgeID, faceLeft, faceRight FaceID) (bool, error)
	PreCheckRemoveIsoEdge(edge EdgeID) (bool, error)
	PreCheckRemoveNode(node NodeID, e1, e2 EdgeID) (bool, error)
	PreCheckRemoveIsoNode(node NodeID) (bool, error)
}
