// Package vlog implements the Log Entry and Log data model: an ordered,
// append-only record of mutations applied to a plain tree, and the replay
// engine that reconstructs a tree from that record.
package vlog

import (
	"fmt"
	"strconv"

	"github.com/qri-io/jsondoc/value"
)

// Op names the kind of mutation a Entry records.
type Op string

const (
	// OpSet records that the value at Path was assigned.
	OpSet Op = "set"
	// OpDelete records that the key at Path was removed.
	OpDelete Op = "delete"
)

// ErrMalformedEntry indicates a Entry cannot be applied: an unknown Op, or a
// DELETE carrying an empty Path (there is no "delete the whole tree").
var ErrMalformedEntry = fmt.Errorf("vlog: malformed entry")

// Entry is a single, immutable mutation record. Entry 0 of any Log is
// always {OpSet, nil, initial-root-value}; entries after it describe deltas
// against the tree produced by applying every earlier entry to entry 0's
// value. Path is always an ordered sequence of string keys — Go's type
// system enforces this structurally, so unlike the source's dynamically
// typed Path field, a Entry can never carry a non-string path segment.
// Numeric-looking path segments address ordered-sequence elements by their
// decimal string index, per the data model's invariant 2.
type Entry struct {
	Op    Op
	Path  []string
	Value interface{}
}

// Validate reports ErrMalformedEntry if e cannot be applied.
func (e Entry) Validate() error {
	switch e.Op {
	case OpSet, OpDelete:
	default:
		return fmt.Errorf("%w: unknown op %q", ErrMalformedEntry, e.Op)
	}
	if e.Op == OpDelete && len(e.Path) == 0 {
		return fmt.Errorf("%w: DELETE requires a non-empty path", ErrMalformedEntry)
	}
	return nil
}

// Apply applies e to tree, returning the resulting tree. tree must be a
// map[string]interface{} or nil. An empty Path means "replace the tree's
// contents wholesale" (used for entry 0). Apply never mutates tree or any
// of its descendants in place: every container along Path is copied, so a
// tree produced by one Apply call is fully independent of any tree that
// produced it.
func (e Entry) Apply(tree map[string]interface{}) (map[string]interface{}, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}

	if len(e.Path) == 0 {
		root, ok := value.DeepCopy(e.Value).(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("%w: root SET value must be a mapping", ErrMalformedEntry)
		}
		return root, nil
	}

	var node interface{} = tree
	if tree == nil {
		node = map[string]interface{}{}
	}

	out, err := applyAt(node, e.Path, e.Op, e.Value)
	if err != nil {
		return nil, err
	}
	result, ok := out.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("vlog: applying entry produced a non-mapping root: %T", out)
	}
	return result, nil
}

// applyAt walks node along path, returning a copy of node with the
// mutation applied at the final path segment. Intermediate segments that
// don't yet exist are auto-vivified as empty mappings — ordered sequences
// are never auto-created, only installed by an explicit SET, matching the
// rule that only a named slot gets a default container.
func applyAt(node interface{}, path []string, op Op, val interface{}) (interface{}, error) {
	seg := path[0]
	if len(path) == 1 {
		return applyLeaf(node, seg, op, val)
	}

	child, ok := childAt(node, seg)
	if !ok {
		child = map[string]interface{}{}
	}
	newChild, err := applyAt(child, path[1:], op, val)
	if err != nil {
		return nil, err
	}
	return withChild(node, seg, newChild)
}

func applyLeaf(node interface{}, seg string, op Op, val interface{}) (interface{}, error) {
	switch op {
	case OpSet:
		return withChild(node, seg, value.DeepCopy(val))
	case OpDelete:
		switch n := node.(type) {
		case map[string]interface{}:
			out := make(map[string]interface{}, len(n))
			for k, v := range n {
				out[k] = v
			}
			delete(out, seg)
			return out, nil
		case []interface{}:
			idx, ok := sequenceIndex(seg, len(n))
			if !ok {
				return nil, fmt.Errorf("vlog: %q is not a valid sequence index to delete", seg)
			}
			out := append([]interface{}(nil), n...)
			out[idx] = nil
			return out, nil
		default:
			return nil, fmt.Errorf("vlog: cannot delete %q from a %T", seg, node)
		}
	default:
		return nil, fmt.Errorf("%w: unknown op %q", ErrMalformedEntry, op)
	}
}

// childAt looks up seg within node, which must be a mapping or an ordered
// sequence (seg addressing an in-range index).
func childAt(node interface{}, seg string) (interface{}, bool) {
	switch n := node.(type) {
	case map[string]interface{}:
		v, ok := n[seg]
		return v, ok
	case []interface{}:
		idx, ok := sequenceIndex(seg, len(n))
		if !ok {
			return nil, false
		}
		return n[idx], true
	default:
		return nil, false
	}
}

// withChild returns a copy of node with seg assigned to child, growing an
// ordered sequence (padding new slots with nil) when seg addresses an index
// beyond its current length.
func withChild(node interface{}, seg string, child interface{}) (interface{}, error) {
	switch n := node.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(n)+1)
		for k, v := range n {
			out[k] = v
		}
		out[seg] = child
		return out, nil

	case []interface{}:
		idx, err := strconv.Atoi(seg)
		if err != nil || idx < 0 {
			return nil, fmt.Errorf("vlog: %q is not a valid sequence index", seg)
		}
		out := n
		if idx >= len(out) {
			grown := make([]interface{}, idx+1)
			copy(grown, out)
			out = grown
		} else {
			out = append([]interface{}(nil), out...)
		}
		out[idx] = child
		return out, nil

	case nil:
		return nil, fmt.Errorf("vlog: path segment %q has no parent container", seg)

	default:
		return nil, fmt.Errorf("vlog: path segment %q does not resolve to a mapping or sequence (got %T)", seg, node)
	}
}

// sequenceIndex parses seg as a non-negative, in-range index into a
// sequence of length n.
func sequenceIndex(seg string, n int) (int, bool) {
	idx, err := strconv.Atoi(seg)
	if err != nil || idx < 0 || idx >= n {
		return 0, false
	}
	return idx, true
}
