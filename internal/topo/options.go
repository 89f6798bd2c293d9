package topo

import "context"

// PopulateOptions configures the tolerance population layer (§4.7) the
// way the teacher's ParseOptions configures S-57 ingestion: a plain
// struct with a Default constructor, passed by value into the entry
// points that need it.
type PopulateOptions struct {
	// Tolerance is the snapping distance used by AddPoint/AddLine/
	// AddPolygon when deciding whether new geometry coincides with
	// existing nodes/edges.
	Tolerance float64

	// MaxSnapIterations bounds the iterative snap-round pass AddLine
	// runs while stabilizing the noded line against nearby geometry,
	// working around the snapping instability called out in §4.7.2.
	MaxSnapIterations int

	// MaxRingEdges bounds GetRingEdges walks; past this many edges
	// without closing, the walk is treated as corrupted topology rather
	// than looping forever over a broken next_left/next_right cycle.
	MaxRingEdges int
}

// DefaultPopulateOptions returns the engine's defaults.
func DefaultPopulateOptions() PopulateOptions {
	return PopulateOptions{
		Tolerance:         0,
		MaxSnapIterations: 4,
		MaxRingEdges:      100000,
	}
}

// checkCancel implements the cooperative-cancellation model of §5: a
// caller-polled context checked inside the heavier loops. It never
// blocks; it only polls ctx.Done() without waiting on it.
func checkCancel(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return &ErrCancelled{}
	default:
		return nil
	}
}
