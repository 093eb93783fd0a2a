package document

import (
	"fmt"
	"strconv"

	"github.com/qri-io/jsondoc/value"
	"github.com/qri-io/jsondoc/vlog"
)

// managed is an unexported capability interface with unexported methods, so
// only *View (declared in this package) can ever satisfy it. A value passed
// to Set/SetIndex/Append and friends is checked against this interface, not
// against a concrete *View type, to catch any type that wraps or embeds a
// View and would otherwise smuggle a live tree reference past the boundary.
// This is the Go analogue of the source's unforgeable proxy-identity check.
type managed interface {
	managedRoot() *root
	managedPath() []string
}

// View is an interception-layer cursor: an opaque, path-addressed handle
// onto one node of a managed tree. Every read re-resolves its path against
// the live tree, so a View reflects a deleted ancestor immediately as
// orphaned rather than holding a stale snapshot.
type View struct {
	r        *root
	path     []string
	readOnly bool
}

var _ managed = (*View)(nil)

func (v *View) managedRoot() *root    { return v.r }
func (v *View) managedPath() []string { return append([]string(nil), v.path...) }

// newView constructs a View at path. readOnly propagates to every View
// derived from it (wrapChild passes its own readOnly through), and is always
// forced true once path enters the versioning block regardless of what the
// caller asked for.
func (r *root) newView(path []string, readOnly bool) *View {
	if inVersioningBlock(path) {
		readOnly = true
	}
	return &View{r: r, path: append([]string(nil), path...), readOnly: readOnly}
}

func (v *View) childPath(key string) []string {
	return append(append([]string(nil), v.path...), key)
}

func isManagedValue(val interface{}) bool {
	_, ok := val.(managed)
	return ok
}

// resolve returns the live node v addresses, or ErrOrphanedView if its path
// no longer resolves.
func (v *View) resolve() (interface{}, error) {
	node, ok := v.r.resolve(v.path)
	if !ok {
		return nil, ErrOrphanedView
	}
	return node, nil
}

// mapNode resolves v and asserts it currently addresses a mapping.
func (v *View) mapNode() (map[string]interface{}, error) {
	node, err := v.resolve()
	if err != nil {
		return nil, err
	}
	m, ok := node.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: got %T", ErrNotAMapping, node)
	}
	return m, nil
}

// sliceNode resolves v and asserts it currently addresses an ordered
// sequence.
func (v *View) sliceNode() ([]interface{}, error) {
	node, err := v.resolve()
	if err != nil {
		return nil, err
	}
	s, ok := node.([]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: got %T", ErrNotASequence, node)
	}
	return s, nil
}

// Kind reports what sort of node v currently addresses: "mapping",
// "sequence", "null", or a plain Go type name for any other leaf scalar. It resolves against
// the live tree, so it returns ErrOrphanedView the same as any other read.
func (v *View) Kind() (string, error) {
	node, err := v.resolve()
	if err != nil {
		return "", err
	}
	switch node.(type) {
	case map[string]interface{}:
		return "mapping", nil
	case []interface{}:
		return "sequence", nil
	case nil:
		return "null", nil
	default:
		return fmt.Sprintf("%T", node), nil
	}
}

// checkWriteKey enforces the read-only guard common to every mutating View
// method, plus the rule that the versioning block's slot can never be
// overwritten even from an otherwise-writable root view.
func (v *View) checkWriteKey(key string) error {
	if v.readOnly {
		return ErrReadOnlyViolation
	}
	if len(v.path) == 0 && key == VersioningKey {
		return ErrReadOnlyViolation
	}
	return nil
}

// Get returns the value at key: a *View for a nested mapping or sequence, or
// the scalar itself for a leaf. A missing key reports ok == false.
func (v *View) Get(key string) (interface{}, bool, error) {
	m, err := v.mapNode()
	if err != nil {
		return nil, false, err
	}
	child, ok := m[key]
	if !ok {
		return nil, false, nil
	}
	return v.wrapChild(key, child), true, nil
}

// wrapChild returns a *View for a mapping or sequence child, or the scalar
// itself otherwise.
func (v *View) wrapChild(key string, child interface{}) interface{} {
	switch child.(type) {
	case map[string]interface{}, []interface{}:
		return v.r.newView(v.childPath(key), v.readOnly)
	default:
		return child
	}
}

// Keys returns the mapping's keys in no particular order, matching the
// source's own unordered key enumeration.
func (v *View) Keys() ([]string, error) {
	m, err := v.mapNode()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys, nil
}

// Len reports the number of keys in a mapping, or delegates to the
// sequence's element count.
func (v *View) Len() (int, error) {
	node, err := v.resolve()
	if err != nil {
		return 0, err
	}
	switch n := node.(type) {
	case map[string]interface{}:
		return len(n), nil
	case []interface{}:
		return len(n), nil
	default:
		return 0, fmt.Errorf("%w: got %T", ErrNotAMapping, node)
	}
}

// Set writes val at key, appending one SET entry to the log. val must be a
// plain, assignable value that isn't itself a managed view.
func (v *View) Set(key string, val interface{}) error {
	if err := v.checkWriteKey(key); err != nil {
		return err
	}
	if isManagedValue(val) {
		return ErrCrossAttachment
	}
	if !value.Assignable(val) {
		return ErrNonAssignableValue
	}
	if _, err := v.mapNode(); err != nil {
		return err
	}
	return v.r.append(vlog.Entry{Op: vlog.OpSet, Path: v.childPath(key), Value: val})
}

// Delete removes key, appending one DELETE entry to the log. Deleting a
// missing key is a no-op that still logs and emits, matching the source's
// delete-is-always-legal semantics.
func (v *View) Delete(key string) error {
	if err := v.checkWriteKey(key); err != nil {
		return err
	}
	if _, err := v.mapNode(); err != nil {
		return err
	}
	return v.r.append(vlog.Entry{Op: vlog.OpDelete, Path: v.childPath(key)})
}

// Index returns the element at position i: a *View for a nested mapping or
// sequence, or the scalar itself for a leaf.
func (v *View) Index(i int) (interface{}, error) {
	s, err := v.sliceNode()
	if err != nil {
		return nil, err
	}
	if i < 0 || i >= len(s) {
		return nil, fmt.Errorf("%w: index %d out of range [0,%d)", ErrInvalidKey, i, len(s))
	}
	return v.wrapChild(strconv.Itoa(i), s[i]), nil
}

// SetIndex writes val at position i, growing the sequence with nil padding
// if i is beyond its current length.
func (v *View) SetIndex(i int, val interface{}) error {
	if v.readOnly {
		return ErrReadOnlyViolation
	}
	if i < 0 {
		return ErrInvalidKey
	}
	if isManagedValue(val) {
		return ErrCrossAttachment
	}
	if !value.Assignable(val) {
		return ErrNonAssignableValue
	}
	if _, err := v.sliceNode(); err != nil {
		return err
	}
	return v.r.append(vlog.Entry{Op: vlog.OpSet, Path: v.childPath(strconv.Itoa(i)), Value: val})
}

// DeleteIndex clears position i to nil, leaving a sparse slot rather than
// shrinking the sequence — the same hole semantics as Delete on a mapping.
func (v *View) DeleteIndex(i int) error {
	if v.readOnly {
		return ErrReadOnlyViolation
	}
	s, err := v.sliceNode()
	if err != nil {
		return err
	}
	if i < 0 || i >= len(s) {
		return fmt.Errorf("%w: index %d out of range [0,%d)", ErrInvalidKey, i, len(s))
	}
	return v.r.append(vlog.Entry{Op: vlog.OpDelete, Path: v.childPath(strconv.Itoa(i))})
}
