package document

import (
	"context"
	"fmt"
	"strconv"

	lru "github.com/hashicorp/golang-lru"
	logging "github.com/ipfs/go-log"

	"github.com/qri-io/jsondoc/event"
	"github.com/qri-io/jsondoc/value"
	"github.com/qri-io/jsondoc/vlog"
)

var log = logging.Logger("document")

// VersioningKey names the reserved top-level slot a managed tree installs
// its versioning block into: { log: [...], }. Any view whose path enters
// this slot is always read-only, and the slot itself can never be
// overwritten by a SET through the interception layer.
const VersioningKey = "__versioning__"

// versionCacheSize bounds how many historical reconstructions RestoreVersion
// memoizes per root, trading memory for avoiding a full replay on repeated
// access to the same version.
const versionCacheSize = 32

// root holds the single shared state behind every View cursor issued for one
// managed document: the live tree, the authoritative log, the change bus,
// and a small memoization cache for RestoreVersion.
type root struct {
	tree  map[string]interface{}
	log   vlog.Log
	bus   *event.Bus
	cache *lru.Cache
}

func newRoot(tree map[string]interface{}, l vlog.Log) *root {
	cache, err := lru.New(versionCacheSize)
	if err != nil {
		// lru.New only errors for a non-positive size; versionCacheSize is a
		// positive constant, so this is unreachable.
		panic(err)
	}
	return &root{
		tree:  tree,
		log:   l,
		bus:   event.NewBus(context.Background()),
		cache: cache,
	}
}

// resolve walks path against the live tree, returning the node at path and
// whether every segment resolved. It never consults the cache — the live
// tree is the only source of truth for whether a View is orphaned.
func (r *root) resolve(path []string) (interface{}, bool) {
	return resolveIn(r.tree, path)
}

// resolveIn walks path against an arbitrary tree (live or a historical
// reconstruction), returning the node at path and whether every segment
// resolved.
func resolveIn(tree map[string]interface{}, path []string) (interface{}, bool) {
	var cur interface{} = tree
	for _, seg := range path {
		switch c := cur.(type) {
		case map[string]interface{}:
			v, ok := c[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case []interface{}:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(c) {
				return nil, false
			}
			cur = c[idx]
		default:
			return nil, false
		}
	}
	return cur, true
}

// append validates, logs, applies, mirrors, and emits entry in one step,
// following the Interception Layer's write sequence: apply to the tree,
// append to the log, mirror the entry into the versioning block, invalidate
// any cached historical reconstructions, then emit the change event.
func (r *root) append(entry vlog.Entry) error {
	newTree, err := entry.Apply(r.tree)
	if err != nil {
		return err
	}
	r.tree = newTree

	// frozen deep-copies entry.Value so the log, the versioning-block
	// mirror, and the published event all hold a value the caller can no
	// longer reach and mutate out from under them — the same deep-copy
	// boundary r.tree itself already crossed inside entry.Apply.
	frozen := vlog.Entry{
		Op:    entry.Op,
		Path:  append([]string(nil), entry.Path...),
		Value: value.DeepCopy(entry.Value),
	}
	lsn := r.log.Append(frozen)
	r.mirror(frozen)
	r.cache.Purge()

	log.Debugf("appended lsn=%d op=%s path=%v", lsn, frozen.Op, frozen.Path)
	// the published event gets its own copy of the entry, so a subscriber
	// that mutates it cannot reach the entry stored in the log.
	published := vlog.Entry{
		Op:    frozen.Op,
		Path:  append([]string(nil), frozen.Path...),
		Value: value.DeepCopy(frozen.Value),
	}
	return r.bus.Publish(context.Background(), event.TopicChange, vlog.ChangeEvent{LSN: lsn, Entry: published})
}

// mirror appends entry's plain-value encoding into the versioning block's
// log array, keeping it observable as ordinary tree data without going
// through the read-only guard that blocks writes to VersioningKey from the
// View API.
func (r *root) mirror(entry vlog.Entry) {
	newTree := make(map[string]interface{}, len(r.tree))
	for k, v := range r.tree {
		newTree[k] = v
	}

	block, _ := newTree[VersioningKey].(map[string]interface{})
	var existing []interface{}
	if block != nil {
		existing, _ = block["log"].([]interface{})
	}
	grown := make([]interface{}, len(existing)+1)
	copy(grown, existing)
	grown[len(existing)] = entryToPlain(entry)

	newTree[VersioningKey] = map[string]interface{}{"log": grown}
	r.tree = newTree
}

// entryToPlain renders entry as a plain value suitable for storage inside
// the versioning block.
func entryToPlain(e vlog.Entry) map[string]interface{} {
	path := make([]interface{}, len(e.Path))
	for i, seg := range e.Path {
		path[i] = seg
	}
	return map[string]interface{}{
		"op":    string(e.Op),
		"path":  path,
		"value": value.DeepCopy(e.Value),
	}
}

// entryFromPlain is entryToPlain's inverse, used when re-attaching a tree
// that already carries a versioning block.
func entryFromPlain(m map[string]interface{}) (vlog.Entry, error) {
	opStr, ok := m["op"].(string)
	if !ok {
		return vlog.Entry{}, fmt.Errorf("%w: entry missing op", vlog.ErrMalformedEntry)
	}
	rawPath, _ := m["path"].([]interface{})
	path := make([]string, len(rawPath))
	for i, p := range rawPath {
		s, ok := p.(string)
		if !ok {
			return vlog.Entry{}, fmt.Errorf("%w: path segment %d is not a string", vlog.ErrMalformedEntry, i)
		}
		path[i] = s
	}
	return vlog.Entry{Op: vlog.Op(opStr), Path: path, Value: m["value"]}, nil
}

// logFromVersioningBlock rebuilds a vlog.Log from a tree's __versioning__
// block, validating every entry and that replaying them reproduces the rest
// of the tree exactly. data is the whole pre-existing tree (with its
// versioning block still attached); rootWithoutBlock is data with
// VersioningKey removed, the value the block's log must replay to.
func logFromVersioningBlock(data map[string]interface{}) (vlog.Log, error) {
	block, ok := data[VersioningKey].(map[string]interface{})
	if !ok {
		return vlog.Log{}, fmt.Errorf("%w: missing or malformed %s block", ErrInvalidVersioningData, VersioningKey)
	}
	rawEntries, ok := block["log"].([]interface{})
	if !ok {
		return vlog.Log{}, fmt.Errorf("%w: %s.log is not a sequence", ErrInvalidVersioningData, VersioningKey)
	}
	if len(rawEntries) == 0 {
		return vlog.Log{}, fmt.Errorf("%w: %s.log is empty", ErrInvalidVersioningData, VersioningKey)
	}

	entries := make([]vlog.Entry, len(rawEntries))
	for i, raw := range rawEntries {
		m, ok := raw.(map[string]interface{})
		if !ok {
			return vlog.Log{}, fmt.Errorf("%w: log entry %d is not a mapping", ErrInvalidVersioningData, i)
		}
		e, err := entryFromPlain(m)
		if err != nil {
			return vlog.Log{}, fmt.Errorf("%w: log entry %d: %v", ErrInvalidVersioningData, i, err)
		}
		if err := e.Validate(); err != nil {
			return vlog.Log{}, fmt.Errorf("%w: log entry %d: %v", ErrInvalidVersioningData, i, err)
		}
		entries[i] = e
	}

	l := vlog.FromEntries(entries)
	reconstructed, err := l.Replay(l.Len() - 1)
	if err != nil {
		return vlog.Log{}, fmt.Errorf("%w: replaying log: %v", ErrInvalidVersioningData, err)
	}

	rootWithoutBlock := make(map[string]interface{}, len(data))
	for k, v := range data {
		if k == VersioningKey {
			continue
		}
		rootWithoutBlock[k] = v
	}
	reconstructedWithoutBlock := make(map[string]interface{}, len(reconstructed))
	for k, v := range reconstructed {
		if k == VersioningKey {
			continue
		}
		reconstructedWithoutBlock[k] = v
	}

	if !value.Equal(rootWithoutBlock, reconstructedWithoutBlock) {
		return vlog.Log{}, fmt.Errorf("%w: replaying %s.log does not reproduce the tree: %s",
			ErrInvalidVersioningData, VersioningKey, diagnosticDiff(rootWithoutBlock, reconstructedWithoutBlock))
	}
	return l, nil
}

// inVersioningBlock reports whether path enters the reserved versioning
// slot, at any depth.
func inVersioningBlock(path []string) bool {
	return len(path) > 0 && path[0] == VersioningKey
}
