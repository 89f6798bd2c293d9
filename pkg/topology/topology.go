// Package topology provides a clean public API for building and querying
// planar topological subdivisions: nodes, edges and faces linked the way
// the ISO SQL/MM Topology standard describes, backed by a pluggable
// Storage implementation (see pkg/topology/memstore for the in-memory
// reference backend).
package topology

import (
	"context"

	"github.com/paulmach/orb"

	"github.com/beetlebugorg/topology/internal/topo"
)

// Entity identifiers. A NodeID/EdgeID/FaceID is only meaningful relative
// to the Storage it was read from.
type (
	NodeID       = topo.NodeID
	EdgeID       = topo.EdgeID
	FaceID       = topo.FaceID
	SignedEdgeID = topo.SignedEdgeID
)

// UniverseFace is the unbounded outer face, implicitly present in every
// topology and never stored as a row. NoFace/NoNode/NoEdge are the
// package's "not set" sentinels.
const (
	UniverseFace = topo.UniverseFace
	NoFace       = topo.NoFace
	NoNode       = topo.NoNode
	NoEdge       = topo.NoEdge
)

// Signed builds a SignedEdgeID from an edge id and a traversal direction.
func Signed(id EdgeID, forward bool) SignedEdgeID { return topo.Signed(id, forward) }

// Row types, exactly as Storage reads and writes them.
type (
	Node = topo.Node
	Edge = topo.Edge
	Face = topo.Face
)

// Field selector bitmasks, for callers building their own Storage queries
// alongside the engine's.
type (
	NodeField = topo.NodeField
	EdgeField = topo.EdgeField
	FaceField = topo.FaceField
)

const (
	NodeFieldID             = topo.NodeFieldID
	NodeFieldContainingFace = topo.NodeFieldContainingFace
	NodeFieldGeom           = topo.NodeFieldGeom
	NodeFieldAll            = topo.NodeFieldAll

	EdgeFieldID        = topo.EdgeFieldID
	EdgeFieldStartNode = topo.EdgeFieldStartNode
	EdgeFieldEndNode   = topo.EdgeFieldEndNode
	EdgeFieldFaceLeft  = topo.EdgeFieldFaceLeft
	EdgeFieldFaceRight = topo.EdgeFieldFaceRight
	EdgeFieldNextLeft  = topo.EdgeFieldNextLeft
	EdgeFieldNextRight = topo.EdgeFieldNextRight
	EdgeFieldGeom      = topo.EdgeFieldGeom
	EdgeFieldAll       = topo.EdgeFieldAll

	FaceFieldID  = topo.FaceFieldID
	FaceFieldMBR = topo.FaceFieldMBR
	FaceFieldAll = topo.FaceFieldAll
)

// Filter and patch types for UpdateNodes/UpdateEdges/DeleteEdges.
type (
	NodeFilter = topo.NodeFilter
	EdgeFilter = topo.EdgeFilter
	FaceFilter = topo.FaceFilter
	NodePatch  = topo.NodePatch
	EdgePatch  = topo.EdgePatch
)

// Storage is the abstract CRUD backend a Topology runs against. See
// pkg/topology/memstore.Store for the in-memory reference implementation.
type Storage = topo.Storage

// Notifier is the set of hooks a Storage fires on split/heal events so an
// embedder with higher-level feature bookkeeping stays consistent.
type Notifier = topo.Notifier

// AddEdgeMode selects AddEdge's face-bookkeeping behavior.
type AddEdgeMode = topo.AddEdgeMode

const (
	ModFace     = topo.ModFace
	NewFaces    = topo.NewFaces
	NoFaceCheck = topo.NoFaceCheck
)

// FaceSplitResult reports what AddFaceSplit did.
type FaceSplitResult = topo.FaceSplitResult

// GeometryType tags which of Geometry's Point/Line/Polygon fields is set.
type GeometryType = topo.GeometryType

const (
	GeometryPoint   = topo.GeometryPoint
	GeometryLine    = topo.GeometryLine
	GeometryPolygon = topo.GeometryPolygon
)

// Geometry is the tagged-union input to LoadGeometry.
type Geometry = topo.Geometry

// LoadResult reports what LoadGeometry produced.
type LoadResult = topo.LoadResult

// PopulateOptions configures the tolerance-aware population layer
// (AddPoint/AddLine/AddPolygon/LoadGeometry) and the polygonizer.
type PopulateOptions = topo.PopulateOptions

// DefaultPopulateOptions returns the engine's defaults: zero tolerance,
// four snap iterations, a 100000-edge ring-walk ceiling.
func DefaultPopulateOptions() PopulateOptions { return topo.DefaultPopulateOptions() }

// The TopoError taxonomy, re-exported so callers can type-switch on
// topology.ErrCoincidentNode etc. without importing internal/topo
// themselves.
type (
	TopoError  = topo.TopoError
	ErrorKind  = topo.ErrorKind

	ErrCoincidentNode                    = topo.ErrCoincidentNode
	ErrEdgeCrossesNode                   = topo.ErrEdgeCrossesNode
	ErrCoincidentEdge                    = topo.ErrCoincidentEdge
	ErrEdgeIntersectsEdge                = topo.ErrEdgeIntersectsEdge
	ErrEdgeCrossesEdge                   = topo.ErrEdgeCrossesEdge
	ErrEdgeBoundaryTouchesEdgeInterior   = topo.ErrEdgeBoundaryTouchesEdgeInterior
	ErrEndpointNodeMismatch              = topo.ErrEndpointNodeMismatch
	ErrNonIsolatedNode                   = topo.ErrNonIsolatedNode
	ErrNonExistentNode                   = topo.ErrNonExistentNode
	ErrNonExistentEdge                   = topo.ErrNonExistentEdge
	ErrNodesInDifferentFaces             = topo.ErrNodesInDifferentFaces
	ErrSideLocationConflict              = topo.ErrSideLocationConflict
	ErrInvalidGeometry                   = topo.ErrInvalidGeometry
	ErrMotionCollision                   = topo.ErrMotionCollision
	ErrEdgeNotDangling                   = topo.ErrEdgeNotDangling
	ErrHealDegreeMismatch                = topo.ErrHealDegreeMismatch
	ErrAmbiguousLocation                 = topo.ErrAmbiguousLocation
	ErrCorruptedTopology                 = topo.ErrCorruptedTopology
	ErrStorageError                      = topo.ErrStorageError
	ErrCancelled                         = topo.ErrCancelled
)

// Topology is the engine: every ISO primitive, the face-split/heal
// machinery, the tolerance population layer and the polygonizer are
// methods on it. It holds no state beyond a Storage handle and a default
// PopulateOptions, the way s57.Parser wraps internal/parser.Parser — here
// there is no wire format to decode, so the wrapper is a direct delegate
// rather than a field-by-field type conversion.
type Topology struct {
	engine *topo.Topology
}

// New builds a Topology running against storage, using opts as the
// default PopulateOptions for calls that don't take their own.
func New(storage Storage, opts PopulateOptions) *Topology {
	return &Topology{engine: topo.New(storage, opts)}
}

// Storage returns the backend this Topology was built with.
func (t *Topology) Storage() Storage { return t.engine.Storage() }

// --- ISO primitives (§4.3) ---

// AddIsoNode adds an isolated node inside face (or, if face is NoFace,
// whichever face geometrically contains point).
func (t *Topology) AddIsoNode(face FaceID, point orb.Point, skipChecks bool) (NodeID, error) {
	return t.engine.AddIsoNode(face, point, skipChecks)
}

func (t *Topology) MoveIsoNode(node NodeID, point orb.Point) error {
	return t.engine.MoveIsoNode(node, point)
}

func (t *Topology) RemoveIsoNode(node NodeID) error {
	return t.engine.RemoveIsoNode(node)
}

func (t *Topology) RemIsoEdge(edge EdgeID) error {
	return t.engine.RemIsoEdge(edge)
}

// AddIsoEdge adds an edge between two isolated nodes that must already
// share a containing face.
func (t *Topology) AddIsoEdge(start, end NodeID, line orb.LineString) (EdgeID, error) {
	return t.engine.AddIsoEdge(start, end, line)
}

// ModEdgeSplit splits edge at point, keeping the original edge's id on
// one half and allocating a new edge for the other.
func (t *Topology) ModEdgeSplit(edge EdgeID, point orb.Point, skipChecks bool) (NodeID, error) {
	return t.engine.ModEdgeSplit(edge, point, skipChecks)
}

// NewEdgesSplit splits edge at point, replacing it with two freshly
// allocated edges.
func (t *Topology) NewEdgesSplit(edge EdgeID, point orb.Point, skipChecks bool) (NodeID, error) {
	return t.engine.NewEdgesSplit(edge, point, skipChecks)
}

// --- edge operations and face split/heal (§4.3.7-4.4) ---

func (t *Topology) AddEdgeModFace(start, end NodeID, line orb.LineString, skipChecks bool) (EdgeID, error) {
	return t.engine.AddEdgeModFace(start, end, line, skipChecks)
}

func (t *Topology) AddEdgeNewFaces(start, end NodeID, line orb.LineString, skipChecks bool) (EdgeID, error) {
	return t.engine.AddEdgeNewFaces(start, end, line, skipChecks)
}

func (t *Topology) AddEdgeNoFaceCheck(start, end NodeID, line orb.LineString, skipChecks bool) (EdgeID, error) {
	return t.engine.AddEdgeNoFaceCheck(start, end, line, skipChecks)
}

func (t *Topology) RemEdgeModFace(edge EdgeID) (FaceID, error) {
	return t.engine.RemEdgeModFace(edge)
}

func (t *Topology) RemEdgeNewFace(edge EdgeID) (FaceID, error) {
	return t.engine.RemEdgeNewFace(edge)
}

func (t *Topology) ModEdgeHeal(e1, e2 EdgeID) (NodeID, error) {
	return t.engine.ModEdgeHeal(e1, e2)
}

func (t *Topology) NewEdgeHeal(e1, e2 EdgeID) (EdgeID, error) {
	return t.engine.NewEdgeHeal(e1, e2)
}

// ChangeEdgeGeom replaces edge's geometry in place. The new line must keep
// the edge's endpoints, closedness and (for a closed edge) winding, must
// not run through another node or cross another edge, and must not change
// the cyclic order of edges at either endpoint. Nodes and edges lying
// between the old and the new line, touching neither, are not detected.
func (t *Topology) ChangeEdgeGeom(edge EdgeID, newLine orb.LineString) error {
	return t.engine.ChangeEdgeGeom(edge, newLine)
}

// CheckEdgeCrossing validates a candidate edge line against every
// existing edge and node in its MBR before it is inserted.
func (t *Topology) CheckEdgeCrossing(line orb.LineString, startNode, endNode NodeID) error {
	return t.engine.CheckEdgeCrossing(line, startNode, endNode)
}

// MakeRingShell walks a signed edge cycle into a single closed
// LineString, reversing each member edge's own geometry as needed.
func (t *Topology) MakeRingShell(signedIDs []SignedEdgeID) (orb.LineString, error) {
	return t.engine.MakeRingShell(signedIDs)
}

// AddFaceSplit walks the ring starting at signedEdge and either creates a
// new face or re-homes an existing one, per §4.4.2.
func (t *Topology) AddFaceSplit(signedEdge SignedEdgeID, containingFace FaceID, mbrOnly bool) (FaceSplitResult, error) {
	return t.engine.AddFaceSplit(signedEdge, containingFace, mbrOnly)
}

// --- point location (§4.8) ---

func (t *Topology) GetNodeByPoint(point orb.Point, tol float64) (NodeID, bool, error) {
	return t.engine.GetNodeByPoint(point, tol)
}

func (t *Topology) GetEdgeByPoint(point orb.Point, tol float64) (EdgeID, bool, error) {
	return t.engine.GetEdgeByPoint(point, tol)
}

func (t *Topology) GetFaceByPoint(point orb.Point, tol float64) (FaceID, error) {
	return t.engine.GetFaceByPoint(point, tol)
}

// GetFaceContainingPoint resolves the face that exactly covers point,
// with no tolerance fuzzing.
func (t *Topology) GetFaceContainingPoint(point orb.Point) (FaceID, error) {
	return t.engine.GetFaceContainingPoint(point)
}

// --- population (§4.7) ---

// LoadGeometry is the single entry point that dispatches to
// AddPoint/AddLine/AddPolygon based on g.Type.
func (t *Topology) LoadGeometry(ctx context.Context, g Geometry, opts PopulateOptions) (LoadResult, error) {
	return t.engine.LoadGeometry(ctx, g, opts)
}

func (t *Topology) AddPoint(ctx context.Context, point orb.Point, opts PopulateOptions) (NodeID, bool, error) {
	return t.engine.AddPoint(ctx, point, opts)
}

func (t *Topology) AddLine(ctx context.Context, line orb.LineString, opts PopulateOptions) ([]SignedEdgeID, error) {
	return t.engine.AddLine(ctx, line, opts)
}

func (t *Topology) AddPolygon(ctx context.Context, poly orb.Polygon, opts PopulateOptions) ([]FaceID, error) {
	return t.engine.AddPolygon(ctx, poly, opts)
}

// --- polygonizer (§4.9) ---

// Polygonize recovers faces on a topology that currently has edges but no
// faces, returning the ids of the shell faces it created.
func (t *Topology) Polygonize(ctx context.Context, opts PopulateOptions) ([]FaceID, error) {
	return t.engine.Polygonize(ctx, opts)
}
