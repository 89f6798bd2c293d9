package topo

import (
	"errors"
	"testing"
)

func TestErrorKindsMatchTheirType(t *testing.T) {
	cases := []struct {
		err  TopoError
		want ErrorKind
	}{
		{&ErrCoincidentNode{}, ErrKindCoincidentNode},
		{&ErrEdgeCrossesNode{}, ErrKindEdgeCrossesNode},
		{&ErrCoincidentEdge{}, ErrKindCoincidentEdge},
		{&ErrEdgeIntersectsEdge{}, ErrKindEdgeIntersectsEdge},
		{&ErrEdgeCrossesEdge{}, ErrKindEdgeCrossesEdge},
		{&ErrEdgeBoundaryTouchesEdgeInterior{}, ErrKindEdgeBoundaryTouchesEdgeInterior},
		{&ErrEndpointNodeMismatch{}, ErrKindEndpointNodeMismatch},
		{&ErrNonIsolatedNode{}, ErrKindNonIsolatedNode},
		{&ErrNonExistentNode{}, ErrKindNonExistentNode},
		{&ErrNonExistentEdge{}, ErrKindNonExistentEdge},
		{&ErrNodesInDifferentFaces{}, ErrKindNodesInDifferentFaces},
		{&ErrSideLocationConflict{}, ErrKindSideLocationConflict},
		{&ErrInvalidGeometry{}, ErrKindInvalidGeometry},
		{&ErrMotionCollision{}, ErrKindMotionCollision},
		{&ErrEdgeNotDangling{}, ErrKindEdgeNotDangling},
		{&ErrHealDegreeMismatch{}, ErrKindHealDegreeMismatch},
		{&ErrAmbiguousLocation{}, ErrKindAmbiguousLocation},
		{&ErrCorruptedTopology{}, ErrKindCorruptedTopology},
		{&ErrStorageError{}, ErrKindStorageError},
		{&ErrCancelled{}, ErrKindCancelled},
	}
	for _, c := range cases {
		if got := c.err.Kind(); got != c.want {
			t.Errorf("%T.Kind() = %v, want %v", c.err, got, c.want)
		}
		if c.err.Error() == "" {
			t.Errorf("%T.Error() returned an empty string", c.err)
		}
	}
}

func TestErrStorageErrorUnwraps(t *testing.T) {
	inner := errors.New("boom")
	wrapped := &ErrStorageError{Op: "GetNodeByID", Err: inner}
	if !errors.Is(wrapped, inner) {
		t.Errorf("expected errors.Is to see through ErrStorageError to its wrapped cause")
	}
}
