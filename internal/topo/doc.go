// Package topo implements the invariant-preserving core of a planar
// topology engine: a persistent subdivision of the plane into nodes,
// edges and faces, linked by a "next edge around face" structure in the
// style of the ISO SQL/MM topology model.
//
// The package is storage-agnostic: all reads and writes go through the
// Storage interface (storage.go), so the engine can be embedded behind any
// backend that can satisfy it transactionally. See pkg/topology/memstore
// for a reference in-process implementation.
package topo
