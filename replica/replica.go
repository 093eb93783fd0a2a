// Package replica implements the Replica protocol: a read-only mirror of a
// managed document that stays in sync by consuming the source's change
// events one log entry at a time, rather than by re-fetching whole
// snapshots.
package replica

import (
	"context"
	"fmt"

	logging "github.com/ipfs/go-log"

	"github.com/qri-io/jsondoc/event"
	"github.com/qri-io/jsondoc/value"
	"github.com/qri-io/jsondoc/vlog"
)

var log = logging.Logger("replica")

// Replica mirrors a source document's tree from the LSN it was bootstrapped
// at forward. It never accepts a direct write: the only way its state
// advances is by Apply-ing entries that arrived, in order, from the
// source's Emitter. Its own tree always carries a __versioning__ block of
// the form {lsn: N}, the same shape document.GetSnapshot produces, so
// IsReplica and Detach behave symmetrically with the document package.
type Replica struct {
	tree map[string]interface{}
	lsn  int
	bus  *event.Bus
}

// lsnFromSnapshot extracts and validates the numeric lsn a snapshot's
// __versioning__ block must carry.
func lsnFromSnapshot(snapshot map[string]interface{}) (int, error) {
	block, ok := snapshot[versioningKey].(map[string]interface{})
	if !ok {
		return 0, ErrInvalidSnapshot
	}
	switch n := block["lsn"].(type) {
	case int:
		return n, nil
	case float64:
		return int(n), nil
	default:
		return 0, ErrInvalidSnapshot
	}
}

const versioningKey = "__versioning__"

// CreateFromSnapshot seeds a Replica from a standalone snapshot produced by
// document.GetSnapshot (or another Replica's own Snapshot), with no
// subscription to any source — used for a replica that will have entries
// fed to it manually via Apply, or as the building block Create wraps.
func CreateFromSnapshot(snapshot map[string]interface{}) (*Replica, error) {
	if !value.Manageable(snapshot) {
		return nil, ErrInvalidSnapshot
	}
	lsn, err := lsnFromSnapshot(snapshot)
	if err != nil {
		return nil, err
	}
	tree := value.DeepCopy(snapshot).(map[string]interface{})
	tree[versioningKey] = map[string]interface{}{"lsn": lsn}
	return &Replica{tree: tree, lsn: lsn, bus: event.NewBus(context.Background())}, nil
}

// Create seeds a Replica from snapshot and, if emitter is non-nil,
// subscribes it to emitter's TopicChange so every subsequent source write
// is mirrored automatically via Apply. The returned Replica re-publishes
// every entry it applies on its own Emitter, so replicas can be chained —
// a Replica produced this way is not otherwise linked to its source; the
// only connection is the subscription itself.
func Create(snapshot map[string]interface{}, emitter *event.Bus) (*Replica, error) {
	r, err := CreateFromSnapshot(snapshot)
	if err != nil {
		return nil, err
	}
	if emitter != nil {
		emitter.Subscribe(event.TopicChange, func(ctx context.Context, e event.Event) error {
			ce, ok := e.Payload.(vlog.ChangeEvent)
			if !ok {
				return fmt.Errorf("replica: unexpected change event payload type %T", e.Payload)
			}
			return r.Apply(ce)
		})
	}
	return r, nil
}

// Apply advances the replica's tree by one entry. ce.LSN must equal
// r.lsn+1 — the replica's next expected LSN — or Apply fails with
// ErrOutOfSync and leaves the replica's state untouched; per the protocol
// there is no recovery from this short of rebuilding from a fresh snapshot.
func (r *Replica) Apply(ce vlog.ChangeEvent) error {
	expected := r.lsn + 1
	if ce.LSN != expected {
		return fmt.Errorf("%w: expected lsn %d, got %d", ErrOutOfSync, expected, ce.LSN)
	}
	newTree, err := ce.Entry.Apply(r.tree)
	if err != nil {
		return err
	}
	newTree[versioningKey] = map[string]interface{}{"lsn": ce.LSN}
	r.tree = newTree
	r.lsn = ce.LSN
	log.Debugf("applied lsn=%d op=%s path=%v", ce.LSN, ce.Entry.Op, ce.Entry.Path)
	return r.bus.Publish(context.Background(), event.TopicChange, vlog.ChangeEvent{LSN: ce.LSN, Entry: ce.Entry})
}

// IsReplica reports whether val is a *Replica.
func IsReplica(val interface{}) bool {
	_, ok := val.(*Replica)
	return ok
}

// LSN reports the replica's current version number — the LSN of the last
// entry it applied (or the snapshot's LSN, if none yet).
func (r *Replica) LSN() int {
	return r.lsn
}

// Snapshot returns the replica's current tree as an independent plain
// value, tagged with its current lsn — suitable for seeding a further
// Replica downstream.
func (r *Replica) Snapshot() map[string]interface{} {
	return value.DeepCopy(r.tree).(map[string]interface{})
}

// Detach returns the replica's current tree as an independent plain value
// with its __versioning__ block removed.
func (r *Replica) Detach() map[string]interface{} {
	out := value.DeepCopy(r.tree).(map[string]interface{})
	delete(out, versioningKey)
	return out
}

// Get returns the value at key in the replica's top-level mapping.
func (r *Replica) Get(key string) (interface{}, bool) {
	v, ok := r.tree[key]
	return value.DeepCopy(v), ok
}

// EventEmitter returns the Bus every entry this replica applies is
// re-published to, letting another Replica chain off of it.
func (r *Replica) EventEmitter() *event.Bus {
	return r.bus
}
