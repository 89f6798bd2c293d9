package topo

import (
	"context"
	"math"
	"sort"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
)

// polygonizer.go implements §4.9: recover faces on a topology that has
// only edges (every edge's FaceLeft/FaceRight still carries the
// NoFace/"null" sentinel and no face rows exist). The "STR-tree of
// shell envelopes" it calls for in step 3 is a second, purpose-built
// rtreego.Rtree over just the shell bounds, the same spatial-index
// dependency memstore already uses for its own indices, queried here for
// candidate shell-containing-hole pruning before the exact
// point-in-polygon confirmation.

type shellEntry struct {
	face  FaceID
	ring  orb.LineString
	bound orb.Bound
}

func (s shellEntry) Bounds() rtreego.Rect {
	min := s.bound.Min
	lengths := []float64{s.bound.Max[0] - s.bound.Min[0], s.bound.Max[1] - s.bound.Min[1]}
	for i, l := range lengths {
		if l <= 0 {
			lengths[i] = epsilon
		}
	}
	rect, _ := rtreego.NewRect(rtreego.Point{min[0], min[1]}, lengths)
	return rect
}

type holeRing struct {
	ids   []SignedEdgeID
	ring  orb.LineString
	bound orb.Bound
}

// Polygonize implements §4.9. It returns the ids of the newly created
// shell faces (holes are relabeled onto their containing shell, not
// given a face of their own).
func (t *Topology) Polygonize(ctx context.Context, opts PopulateOptions) ([]FaceID, error) {
	all, err := t.storage.GetEdgeWithinBox(infiniteBound(), EdgeFieldAll, -1)
	if err != nil {
		return nil, &ErrStorageError{Op: "GetEdgeWithinBox", Err: err}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	leftDone := make(map[EdgeID]bool, len(all))
	rightDone := make(map[EdgeID]bool, len(all))

	var shellFaces []FaceID
	shellRtree := rtreego.NewTree(2, 4, 8)
	var holes []holeRing

	limit := opts.MaxRingEdges
	if limit <= 0 {
		limit = 100000
	}

	processSide := func(e Edge, forward bool) error {
		if err := checkCancel(ctx); err != nil {
			return err
		}
		if forward && leftDone[e.ID] {
			return nil
		}
		if !forward && rightDone[e.ID] {
			return nil
		}
		signed := Signed(e.ID, forward)
		ringIDs, err := t.storage.GetRingEdges(signed, limit)
		if err != nil {
			return err
		}
		ring, err := t.MakeRingShell(ringIDs)
		if err != nil {
			return err
		}
		if !IsClosed(ring) {
			return &ErrCorruptedTopology{Reason: "minimal edge ring did not close during polygonization"}
		}

		for _, s := range ringIDs {
			if s.Forward() {
				leftDone[s.Edge()] = true
			} else {
				rightDone[s.Edge()] = true
			}
		}

		if CCW(ring) {
			mbr := LineStringBound(ring)
			ids, err := t.storage.InsertFaces([]Face{{MBR: mbr}})
			if err != nil {
				return &ErrStorageError{Op: "InsertFaces", Err: err}
			}
			face := ids[0]
			shellFaces = append(shellFaces, face)
			if err := t.labelRing(ringIDs, face); err != nil {
				return err
			}
			shellRtree.Insert(shellEntry{face: face, ring: ring, bound: mbr})
		} else {
			holes = append(holes, holeRing{ids: ringIDs, ring: ring, bound: LineStringBound(ring)})
		}
		return nil
	}

	for _, e := range all {
		if err := processSide(e, true); err != nil {
			return shellFaces, err
		}
		if err := processSide(e, false); err != nil {
			return shellFaces, err
		}
	}

	for _, h := range holes {
		if err := checkCancel(ctx); err != nil {
			return shellFaces, err
		}
		face, ok := t.findContainingShell(shellRtree, h)
		if !ok {
			// A hole ring with no containing shell borders the universe.
			if err := t.labelRing(h.ids, UniverseFace); err != nil {
				return shellFaces, err
			}
			continue
		}
		if err := t.labelRing(h.ids, face); err != nil {
			return shellFaces, err
		}
	}

	return shellFaces, nil
}

// labelRing writes face onto the appropriate side of every edge in a
// ring: a positive signed reference means that edge's own left side
// bounds this face (it was traversed forward while the face stayed on
// its left, per invariant 5); a negative one means the right side.
func (t *Topology) labelRing(ids []SignedEdgeID, face FaceID) error {
	seen := make(map[EdgeID]bool, len(ids))
	for _, s := range ids {
		eid := s.Edge()
		if seen[eid] {
			continue
		}
		seen[eid] = true

		// Both signs of the same edge can appear across different rings
		// (once as left, once as right); fetch the current row so the
		// untouched side isn't clobbered by the zero value.
		cur, err := t.getEdge(eid, EdgeFieldAll)
		if err != nil {
			return err
		}
		fields := EdgeField(0)
		if s.Forward() {
			cur.FaceLeft = face
			fields = EdgeFieldFaceLeft
		} else {
			cur.FaceRight = face
			fields = EdgeFieldFaceRight
		}
		if err := wrapStorageErr("UpdateEdgesByID", t.storage.UpdateEdgesByID([]Edge{cur}, fields)); err != nil {
			return err
		}
	}
	return nil
}

// findContainingShell queries the STR-tree for shells whose MBR could
// contain h, then confirms with an exact point-in-ring test against the
// first vertex of h that is not on the shell's own boundary. A shell whose
// ring carries every vertex of h (h is that shell's own outer side) is
// skipped.
func (t *Topology) findContainingShell(tree *rtreego.Rtree, h holeRing) (FaceID, bool) {
	if len(h.ring) == 0 {
		return 0, false
	}

	min := h.bound.Min
	lengths := []float64{h.bound.Max[0] - h.bound.Min[0], h.bound.Max[1] - h.bound.Min[1]}
	for i, l := range lengths {
		if l <= 0 {
			lengths[i] = epsilon
		}
	}
	rect, err := rtreego.NewRect(rtreego.Point{min[0], min[1]}, lengths)
	if err != nil {
		return 0, false
	}

	var best *shellEntry
	for _, sp := range tree.SearchIntersect(rect) {
		entry := sp.(shellEntry)
		if !entry.bound.Contains(h.bound.Min) || !entry.bound.Contains(h.bound.Max) {
			continue
		}
		loc := LocationBoundary
		for _, p := range h.ring {
			if loc = PointInRing(entry.ring, p); loc != LocationBoundary {
				break
			}
		}
		if loc != LocationInside {
			continue
		}
		if best == nil || entry.bound.Min[0] > best.bound.Min[0] {
			e := entry
			best = &e
		}
	}
	if best == nil {
		return 0, false
	}
	return best.face, true
}

func infiniteBound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{math.Inf(-1), math.Inf(-1)},
		Max: orb.Point{math.Inf(1), math.Inf(1)},
	}
}
