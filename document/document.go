// Package document implements the Managed Document facade: the operations
// that create, inspect, and detach a managed tree, layered on top of the
// View interception cursor and the vlog redo log.
package document

import (
	"fmt"

	"github.com/qri-io/jsondoc/event"
	"github.com/qri-io/jsondoc/value"
	"github.com/qri-io/jsondoc/vlog"
)

// Create wraps plain as the root of a new managed document, returning a
// writable View onto it. plain must be a manageable mapping (see
// value.Manageable) and must not already be a managed view.
//
// If plain already carries a __versioning__ block (e.g. it was produced by
// DetachPreserveVersionData and is being re-attached), that block is
// validated and its log reused verbatim rather than starting a fresh
// history — replaying it must reproduce the rest of plain exactly, or
// Create fails with ErrInvalidVersioningData.
func Create(plain interface{}) (*View, error) {
	if isManagedValue(plain) {
		return nil, ErrAlreadyManaged
	}
	if !value.Manageable(plain) {
		return nil, ErrNonManageable
	}
	m := value.DeepCopy(plain).(map[string]interface{})

	if _, hasBlock := m[VersioningKey]; hasBlock {
		l, err := logFromVersioningBlock(m)
		if err != nil {
			return nil, err
		}
		r := newRoot(m, l)
		return r.newView(nil, false), nil
	}

	l := vlog.New(value.DeepCopy(m).(map[string]interface{}))
	r := newRoot(m, l)
	r.mirror(l.Entries()[0])
	return r.newView(nil, false), nil
}

// IsManaged reports whether val is a View issued by this package — the
// starting point for any caller that needs to branch on whether a value is
// plain data or a live cursor before deciding how to handle it.
func IsManaged(val interface{}) bool {
	return isManagedValue(val)
}

func asView(val interface{}) (*View, error) {
	v, ok := val.(*View)
	if !ok {
		return nil, ErrNotManaged
	}
	return v, nil
}

// VersionCount reports the number of versions a managed document has
// accumulated — one more than the number of writes that have been applied
// to it, since version 0 is always the value it was created with.
func VersionCount(val interface{}) (int, error) {
	v, err := asView(val)
	if err != nil {
		return 0, err
	}
	return v.r.log.Len(), nil
}

// RestoreVersion reconstructs val's own node — not necessarily the whole
// document — as of version id (an LSN in [0, VersionCount)). If val's path
// didn't exist yet at that version (the view was created later, by a write
// at a higher LSN), RestoreVersion walks back up val's path and returns the
// deepest ancestor that does resolve at id, rather than failing outright.
// Successive calls for the same root and id replay the log only once; the
// reconstructed whole-document tree is memoized internally.
func RestoreVersion(val interface{}, id int) (interface{}, error) {
	v, err := asView(val)
	if err != nil {
		return nil, err
	}
	if id < 0 || id >= v.r.log.Len() {
		return nil, ErrInvalidVersionID
	}

	var tree map[string]interface{}
	if cached, ok := v.r.cache.Get(id); ok {
		tree = cached.(map[string]interface{})
	} else {
		tree, err = v.r.log.Replay(id)
		if err != nil {
			return nil, fmt.Errorf("document: restoring version %d: %w", id, err)
		}
		v.r.cache.Add(id, tree)
	}

	for k := len(v.path); k >= 0; k-- {
		if node, ok := resolveIn(tree, v.path[:k]); ok {
			return value.DeepCopy(node), nil
		}
	}
	// k == 0 always resolves (tree itself), so this is unreachable.
	return value.DeepCopy(tree), nil
}

// stripVersioningBlock returns tree without its reserved __versioning__
// slot.
func stripVersioningBlock(tree map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(tree))
	for k, v := range tree {
		if k == VersioningKey {
			continue
		}
		out[k] = v
	}
	return out
}

// Detach severs val from its managed tree, returning a fully independent
// plain value with no versioning metadata — the mirror image of Create.
func Detach(val interface{}) (map[string]interface{}, error) {
	v, err := asView(val)
	if err != nil {
		return nil, err
	}
	return stripVersioningBlock(value.DeepCopy(v.r.tree).(map[string]interface{})), nil
}

// DetachPreserveVersionData behaves like Detach, but keeps the
// __versioning__ block intact, so the result can later be re-attached with
// Create without losing history.
func DetachPreserveVersionData(val interface{}) (map[string]interface{}, error) {
	v, err := asView(val)
	if err != nil {
		return nil, err
	}
	return value.DeepCopy(v.r.tree).(map[string]interface{}), nil
}

// GetRootObject returns a writable View onto the whole managed document,
// regardless of how deep val's own path is.
func GetRootObject(val interface{}) (*View, error) {
	v, err := asView(val)
	if err != nil {
		return nil, err
	}
	return v.r.newView(nil, false), nil
}

// GetLog returns a read-only View onto the versioning block's log array,
// addressable and enumerable like any other sequence-valued view.
func GetLog(val interface{}) (*View, error) {
	v, err := asView(val)
	if err != nil {
		return nil, err
	}
	return v.r.newView([]string{VersioningKey, "log"}, true), nil
}

// GetSnapshot returns the current document value tagged only with its
// current LSN — __versioning__ = {lsn: currentLSN}, with no log — the form
// Replica.CreateFromSnapshot expects. Unlike DetachPreserveVersionData, the
// result cannot be re-attached with Create; it exists solely to seed a
// Replica at the document's present version.
func GetSnapshot(val interface{}) (map[string]interface{}, error) {
	v, err := asView(val)
	if err != nil {
		return nil, err
	}
	plain := stripVersioningBlock(value.DeepCopy(v.r.tree).(map[string]interface{}))
	plain[VersioningKey] = map[string]interface{}{"lsn": v.r.log.Len() - 1}
	return plain, nil
}

// EventEmitter returns the Bus every change to val's managed document is
// published to under event.TopicChange, with vlog.ChangeEvent payloads.
func EventEmitter(val interface{}) (*event.Bus, error) {
	v, err := asView(val)
	if err != nil {
		return nil, err
	}
	return v.r.bus, nil
}
