package topo

import "github.com/paulmach/orb"

// Node is a point in the subdivision. ContainingFace is meaningful only
// while the node is isolated (degree 0); once an edge is incident to it,
// ContainingFace is set to NoFace (see invariants 7-8 in the spec).
type Node struct {
	ID             NodeID
	Point          orb.Point
	ContainingFace FaceID
}

// Edge is a simple, non-self-intersecting linestring between two nodes,
// with the two faces it borders and the "next edge around the face"
// links that let the ring-walk machinery recover face boundaries.
type Edge struct {
	ID        EdgeID
	StartNode NodeID
	EndNode   NodeID
	FaceLeft  FaceID
	FaceRight FaceID
	// NextLeft is the signed edge encountered continuing along the left
	// face boundary of this edge, starting from its end node.
	NextLeft SignedEdgeID
	// NextRight is the symmetric link for the right face, starting from
	// this edge's start node.
	NextRight SignedEdgeID
	Geom      orb.LineString
}

// IsDangling reports whether the edge borders the same face on both
// sides (a bridge edge contributes no face split).
func (e Edge) IsDangling() bool { return e.FaceLeft == e.FaceRight }

// Face is a connected region of the plane bounded by one or more edge
// rings. Face 0 (UniverseFace) is implicit and carries a zero MBR.
type Face struct {
	ID  FaceID
	MBR orb.Bound
}

// NodeField, EdgeField and FaceField are bitmask selectors a Storage
// caller uses to request only the columns it needs populated, matching
// §6 of the spec bit-for-bit.
type NodeField uint

const (
	NodeFieldID NodeField = 1 << iota
	NodeFieldContainingFace
	NodeFieldGeom

	NodeFieldAll = NodeFieldID | NodeFieldContainingFace | NodeFieldGeom
)

type EdgeField uint

const (
	EdgeFieldID EdgeField = 1 << iota
	EdgeFieldStartNode
	EdgeFieldEndNode
	EdgeFieldFaceLeft
	EdgeFieldFaceRight
	EdgeFieldNextLeft
	EdgeFieldNextRight
	EdgeFieldGeom

	EdgeFieldAll = EdgeFieldID | EdgeFieldStartNode | EdgeFieldEndNode |
		EdgeFieldFaceLeft | EdgeFieldFaceRight |
		EdgeFieldNextLeft | EdgeFieldNextRight | EdgeFieldGeom
)

type FaceField uint

const (
	FaceFieldID FaceField = 1 << iota
	FaceFieldMBR

	FaceFieldAll = FaceFieldID | FaceFieldMBR
)

// NodeFilter selects node rows by id and/or containing face for the
// select/exclude arguments of UpdateNodes and for DeleteNodesByID-style
// bulk operations.
type NodeFilter struct {
	IDs            []NodeID
	ContainingFace *FaceID
}

// EdgeFilter selects edge rows by id, endpoints or bordering faces for
// UpdateEdges/DeleteEdges.
type EdgeFilter struct {
	IDs       []EdgeID
	StartNode *NodeID
	EndNode   *NodeID
	FaceLeft  *FaceID
	FaceRight *FaceID
}

// FaceFilter selects face rows by id.
type FaceFilter struct {
	IDs []FaceID
}

// NodePatch carries the columns UpdateNodes should overwrite on every row
// matched by its selector. Nil fields are left untouched.
type NodePatch struct {
	ContainingFace *FaceID
	Point          *orb.Point
}

// EdgePatch is the UpdateEdges counterpart for edge columns.
type EdgePatch struct {
	FaceLeft  *FaceID
	FaceRight *FaceID
	NextLeft  *SignedEdgeID
	NextRight *SignedEdgeID
	StartNode *NodeID
	EndNode   *NodeID
	Geom      *orb.LineString
}
