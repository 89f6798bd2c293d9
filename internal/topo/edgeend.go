package topo

import (
	"sort"

	"github.com/paulmach/orb"
)

// EdgeEnd is one attachment of an edge to a node: the edge enters/leaves
// the node at azimuth Azimuth, in direction Outgoing (true: the edge
// starts at this node) or incoming (false: the edge ends at this node).
// A self-loop contributes two EdgeEnds at the same node.
type EdgeEnd struct {
	Edge     EdgeID
	Outgoing bool
	P0       orb.Point // the node's own point
	P1       orb.Point // first distinct vertex away from the node
	Azimuth  float64
}

// SignedID returns the signed reference a ring walk would use to leave
// the node along this edge end: positive (forward) if outgoing, negative
// if incoming.
func (e EdgeEnd) SignedID() SignedEdgeID { return Signed(e.Edge, e.Outgoing) }

// EdgeEndStar is the azimuth-sorted cyclic list of edge ends around one
// node, supporting "next clockwise/counter-clockwise from here" queries
// used when linking a new edge in.
type EdgeEndStar struct {
	node NodeID
	ends []EdgeEnd
}

// NewEdgeEndStar builds the star for node from edges incident to it
// (edges whose start or end node is node). Self-loops contribute two
// entries. Edges with degenerate geometry (too few vertices to derive an
// azimuth from the node's side) are skipped.
func NewEdgeEndStar(node NodeID, nodePoint orb.Point, edges []Edge) (*EdgeEndStar, error) {
	star := &EdgeEndStar{node: node}
	for _, e := range edges {
		if e.StartNode == node {
			if v, ok := FirstDistinctVertex(e.Geom, nodePoint, 0, 1); ok {
				az, err := Azimuth(nodePoint, v)
				if err != nil {
					return nil, err
				}
				star.ends = append(star.ends, EdgeEnd{Edge: e.ID, Outgoing: true, P0: nodePoint, P1: v, Azimuth: az})
			}
		}
		if e.EndNode == node {
			if v, ok := FirstDistinctVertex(e.Geom, nodePoint, len(e.Geom)-1, -1); ok {
				az, err := Azimuth(nodePoint, v)
				if err != nil {
					return nil, err
				}
				star.ends = append(star.ends, EdgeEnd{Edge: e.ID, Outgoing: false, P0: nodePoint, P1: v, Azimuth: az})
			}
		}
	}
	sort.Slice(star.ends, func(i, j int) bool { return star.ends[i].Azimuth < star.ends[j].Azimuth })
	return star, nil
}

// Len reports the number of edge ends in the star.
func (s *EdgeEndStar) Len() int { return len(s.ends) }

// Ends returns the azimuth-sorted edge ends.
func (s *EdgeEndStar) Ends() []EdgeEnd { return s.ends }

// indexOf finds the position of the edge end for (edge, outgoing).
func (s *EdgeEndStar) indexOf(edge EdgeID, outgoing bool) (int, bool) {
	for i, e := range s.ends {
		if e.Edge == edge && e.Outgoing == outgoing {
			return i, true
		}
	}
	return 0, false
}

// NextCW returns the edge end immediately clockwise (previous in
// azimuth-ascending order, wrapping) from (edge, outgoing).
func (s *EdgeEndStar) NextCW(edge EdgeID, outgoing bool) (EdgeEnd, bool) {
	i, ok := s.indexOf(edge, outgoing)
	if !ok || len(s.ends) < 2 {
		return EdgeEnd{}, false
	}
	return s.ends[(i-1+len(s.ends))%len(s.ends)], true
}

// NextCCW returns the edge end immediately counter-clockwise (next in
// azimuth-ascending order, wrapping) from (edge, outgoing).
func (s *EdgeEndStar) NextCCW(edge EdgeID, outgoing bool) (EdgeEnd, bool) {
	i, ok := s.indexOf(edge, outgoing)
	if !ok || len(s.ends) < 2 {
		return EdgeEnd{}, false
	}
	return s.ends[(i+1)%len(s.ends)], true
}
