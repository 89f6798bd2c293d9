package topo

import (
	"fmt"

	"github.com/paulmach/orb"
)

// ErrorKind classifies the error taxonomy of §7 so callers can branch on
// the kind of failure without a long type switch.
type ErrorKind int

const (
	ErrKindCoincidentNode ErrorKind = iota + 1
	ErrKindEdgeCrossesNode
	ErrKindCoincidentEdge
	ErrKindEdgeIntersectsEdge
	ErrKindEdgeCrossesEdge
	ErrKindEdgeBoundaryTouchesEdgeInterior
	ErrKindEndpointNodeMismatch
	ErrKindNonIsolatedNode
	ErrKindNonExistentNode
	ErrKindNonExistentEdge
	ErrKindNodesInDifferentFaces
	ErrKindSideLocationConflict
	ErrKindInvalidGeometry
	ErrKindMotionCollision
	ErrKindEdgeNotDangling
	ErrKindHealDegreeMismatch
	ErrKindAmbiguousLocation
	ErrKindCorruptedTopology
	ErrKindStorageError
	ErrKindCancelled
)

// TopoError is implemented by every error type this package returns, so
// callers that only care about the taxonomy can do:
//
//	if te, ok := err.(topo.TopoError); ok { switch te.Kind() { ... } }
type TopoError interface {
	error
	Kind() ErrorKind
}

// ErrCoincidentNode indicates a node already exists at (or within zero
// distance of) the given point.
type ErrCoincidentNode struct {
	Point orb.Point
}

func (e *ErrCoincidentNode) Error() string {
	return fmt.Sprintf("a node already exists at or near %v", e.Point)
}
func (e *ErrCoincidentNode) Kind() ErrorKind { return ErrKindCoincidentNode }

// ErrEdgeCrossesNode indicates an edge's line contains a node strictly in
// its interior.
type ErrEdgeCrossesNode struct {
	Edge EdgeID
	Node NodeID
}

func (e *ErrEdgeCrossesNode) Error() string {
	return fmt.Sprintf("edge %d crosses node %d", e.Edge, e.Node)
}
func (e *ErrEdgeCrossesNode) Kind() ErrorKind { return ErrKindEdgeCrossesNode }

// ErrCoincidentEdge indicates the candidate line has the same vertices as
// an existing edge, in the same or reverse order. A line covering the
// same points with a different vertex list does not raise this error.
type ErrCoincidentEdge struct {
	Edge EdgeID
}

func (e *ErrCoincidentEdge) Error() string {
	return fmt.Sprintf("line coincides with existing edge %d", e.Edge)
}
func (e *ErrCoincidentEdge) Kind() ErrorKind { return ErrKindCoincidentEdge }

// ErrEdgeIntersectsEdge indicates two interiors intersect without one
// containing the other (an X or T crossing between edge interiors).
type ErrEdgeIntersectsEdge struct {
	Edge1, Edge2 EdgeID
}

func (e *ErrEdgeIntersectsEdge) Error() string {
	return fmt.Sprintf("edge %d intersects edge %d", e.Edge1, e.Edge2)
}
func (e *ErrEdgeIntersectsEdge) Kind() ErrorKind { return ErrKindEdgeIntersectsEdge }

// ErrEdgeCrossesEdge indicates the candidate line crosses an existing
// edge's interior.
type ErrEdgeCrossesEdge struct {
	Edge1, Edge2 EdgeID
}

func (e *ErrEdgeCrossesEdge) Error() string {
	return fmt.Sprintf("edge %d crosses edge %d", e.Edge1, e.Edge2)
}
func (e *ErrEdgeCrossesEdge) Kind() ErrorKind { return ErrKindEdgeCrossesEdge }

// ErrEdgeBoundaryTouchesEdgeInterior indicates one edge's endpoint lies
// on the other edge's interior.
type ErrEdgeBoundaryTouchesEdgeInterior struct {
	Edge1, Edge2 EdgeID
}

func (e *ErrEdgeBoundaryTouchesEdgeInterior) Error() string {
	return fmt.Sprintf("boundary of edge %d touches interior of edge %d", e.Edge1, e.Edge2)
}
func (e *ErrEdgeBoundaryTouchesEdgeInterior) Kind() ErrorKind {
	return ErrKindEdgeBoundaryTouchesEdgeInterior
}

// ErrEndpointNodeMismatch indicates an edge line's first/last vertex does
// not equal the point of its declared start/end node.
type ErrEndpointNodeMismatch struct {
	Edge EdgeID
	Node NodeID
}

func (e *ErrEndpointNodeMismatch) Error() string {
	return fmt.Sprintf("edge %d geometry endpoint does not match node %d", e.Edge, e.Node)
}
func (e *ErrEndpointNodeMismatch) Kind() ErrorKind { return ErrKindEndpointNodeMismatch }

// ErrNonIsolatedNode indicates an operation that requires an isolated
// node (degree 0) was given one with incident edges.
type ErrNonIsolatedNode struct {
	Node NodeID
}

func (e *ErrNonIsolatedNode) Error() string {
	return fmt.Sprintf("node %d is not isolated", e.Node)
}
func (e *ErrNonIsolatedNode) Kind() ErrorKind { return ErrKindNonIsolatedNode }

// ErrNonExistentNode indicates a referenced node id has no row.
type ErrNonExistentNode struct {
	Node NodeID
}

func (e *ErrNonExistentNode) Error() string {
	return fmt.Sprintf("node %d does not exist", e.Node)
}
func (e *ErrNonExistentNode) Kind() ErrorKind { return ErrKindNonExistentNode }

// ErrNonExistentEdge indicates a referenced edge id has no row.
type ErrNonExistentEdge struct {
	Edge EdgeID
}

func (e *ErrNonExistentEdge) Error() string {
	return fmt.Sprintf("edge %d does not exist", e.Edge)
}
func (e *ErrNonExistentEdge) Kind() ErrorKind { return ErrKindNonExistentEdge }

// ErrNodesInDifferentFaces indicates an operation required two isolated
// nodes to share a containing face, and they did not.
type ErrNodesInDifferentFaces struct {
	Node1, Node2 NodeID
	Face1, Face2 FaceID
}

func (e *ErrNodesInDifferentFaces) Error() string {
	return fmt.Sprintf("node %d is in face %d but node %d is in face %d",
		e.Node1, e.Face1, e.Node2, e.Face2)
}
func (e *ErrNodesInDifferentFaces) Kind() ErrorKind { return ErrKindNodesInDifferentFaces }

// ErrSideLocationConflict indicates AddEdge's two endpoints resolved to
// different faces.
type ErrSideLocationConflict struct {
	Node1, Node2 NodeID
}

func (e *ErrSideLocationConflict) Error() string {
	return fmt.Sprintf("side-location conflict between node %d and node %d", e.Node1, e.Node2)
}
func (e *ErrSideLocationConflict) Kind() ErrorKind { return ErrKindSideLocationConflict }

// ErrInvalidGeometry covers degenerate or non-simple input geometry.
type ErrInvalidGeometry struct {
	Reason string
}

func (e *ErrInvalidGeometry) Error() string {
	return fmt.Sprintf("invalid geometry: %s", e.Reason)
}
func (e *ErrInvalidGeometry) Kind() ErrorKind { return ErrKindInvalidGeometry }

// ErrMotionCollision indicates ChangeEdgeGeom rejected the new line: it
// moves an endpoint, changes closedness or a closed edge's winding, runs
// through an existing node, or changes the cyclic edge order at an
// endpoint.
type ErrMotionCollision struct {
	Edge   EdgeID
	Reason string
}

func (e *ErrMotionCollision) Error() string {
	return fmt.Sprintf("motion collision on edge %d: %s", e.Edge, e.Reason)
}
func (e *ErrMotionCollision) Kind() ErrorKind { return ErrKindMotionCollision }

// ErrEdgeNotDangling indicates an isolated-edge-only operation (such as
// RemIsoEdge) was called on an edge that actually bounds a face.
type ErrEdgeNotDangling struct {
	Edge                 EdgeID
	FaceLeft, FaceRight FaceID
}

func (e *ErrEdgeNotDangling) Error() string {
	return fmt.Sprintf("edge %d is not dangling (left=%d right=%d)", e.Edge, e.FaceLeft, e.FaceRight)
}
func (e *ErrEdgeNotDangling) Kind() ErrorKind { return ErrKindEdgeNotDangling }

// ErrHealDegreeMismatch indicates the node shared by the two edges passed
// to a heal operation has other incident edges (degree != 2).
type ErrHealDegreeMismatch struct {
	Node  NodeID
	Edges []EdgeID
}

func (e *ErrHealDegreeMismatch) Error() string {
	return fmt.Sprintf("node %d has degree != 2, incident edges: %v", e.Node, e.Edges)
}
func (e *ErrHealDegreeMismatch) Kind() ErrorKind { return ErrKindHealDegreeMismatch }

// ErrAmbiguousLocation indicates a point-location query found more than
// one candidate node/edge/face within tolerance.
type ErrAmbiguousLocation struct {
	Point orb.Point
}

func (e *ErrAmbiguousLocation) Error() string {
	return fmt.Sprintf("location at %v is ambiguous", e.Point)
}
func (e *ErrAmbiguousLocation) Kind() ErrorKind { return ErrKindAmbiguousLocation }

// ErrCorruptedTopology indicates an invariant was found violated while
// reading existing rows (null geometry, disagreeing adjacent faces, a
// ring that never closes, ...). It is always fatal: no partial writes
// are made once it is raised.
type ErrCorruptedTopology struct {
	Reason string
}

func (e *ErrCorruptedTopology) Error() string {
	return fmt.Sprintf("corrupted topology: %s", e.Reason)
}
func (e *ErrCorruptedTopology) Kind() ErrorKind { return ErrKindCorruptedTopology }

// ErrStorageError wraps a backend failure, preserving it for Unwrap.
type ErrStorageError struct {
	Op  string
	Err error
}

func (e *ErrStorageError) Error() string {
	return fmt.Sprintf("storage error during %s: %v", e.Op, e.Err)
}
func (e *ErrStorageError) Kind() ErrorKind { return ErrKindStorageError }
func (e *ErrStorageError) Unwrap() error   { return e.Err }

// ErrCancelled indicates the caller's cooperative cancellation signal
// fired mid-operation; no writes were made.
type ErrCancelled struct{}

func (e *ErrCancelled) Error() string   { return "operation cancelled" }
func (e *ErrCancelled) Kind() ErrorKind { return ErrKindCancelled }
