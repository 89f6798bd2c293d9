package topo

// Topology is the engine: every primitive (§4.3), ring/face-split (§4.4),
// population (§4.7), polygonizer (§4.9) and point-location (§4.8)
// operation is a method on it. It holds no state of its own beyond a
// Storage handle and the tunables in PopulateOptions — all topology data
// lives behind Storage.
type Topology struct {
	storage Storage
	opts    PopulateOptions
}

// New builds a Topology engine over storage with the given options.
func New(storage Storage, opts PopulateOptions) *Topology {
	return &Topology{storage: storage, opts: opts}
}

// Storage exposes the underlying backend, e.g. for callers that want to
// run their own read queries alongside engine calls.
func (t *Topology) Storage() Storage { return t.storage }

func (t *Topology) nextEdgeID() (EdgeID, error) {
	id, err := t.storage.GetNextEdgeID()
	if err != nil {
		return 0, &ErrStorageError{Op: "GetNextEdgeID", Err: err}
	}
	return id, nil
}
