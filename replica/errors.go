package replica

import "fmt"

// ErrOutOfSync is returned by Apply when an incoming entry's LSN does not
// equal the replica's next expected LSN — the replica has missed an entry
// (or received one twice) and can no longer safely append without
// diverging from the source.
var ErrOutOfSync = fmt.Errorf("replica: incoming entry is out of sync with the replica's log")

// ErrInvalidSnapshot is returned by Create/CreateFromSnapshot when given a
// value that isn't a manageable root.
var ErrInvalidSnapshot = fmt.Errorf("replica: snapshot is not a manageable root")

// ErrNotReplica is returned by any Replica facade helper given a value that
// isn't a *Replica.
var ErrNotReplica = fmt.Errorf("replica: value is not a Replica")
