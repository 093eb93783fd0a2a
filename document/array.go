package document

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/qri-io/jsondoc/value"
	"github.com/qri-io/jsondoc/vlog"
)

// Append adds vals to the end of the sequence, one SET entry per new
// element in ascending index order — growing the sequence never produces a
// sparse slot, so per-index SETs are a faithful, order-independent
// decomposition of the bulk write.
func (v *View) Append(vals ...interface{}) error {
	if v.readOnly {
		return ErrReadOnlyViolation
	}
	for _, val := range vals {
		if isManagedValue(val) {
			return ErrCrossAttachment
		}
		if !value.Assignable(val) {
			return ErrNonAssignableValue
		}
	}
	s, err := v.sliceNode()
	if err != nil {
		return err
	}
	next := len(s)
	for _, val := range vals {
		if err := v.r.append(vlog.Entry{Op: vlog.OpSet, Path: v.childPath(strconv.Itoa(next)), Value: val}); err != nil {
			return err
		}
		next++
	}
	return nil
}

// Reverse reorders the sequence in place, logged as one SET per index whose
// value actually moved — the midpoint element of an odd-length sequence
// never moves and is correctly skipped.
func (v *View) Reverse() error {
	if v.readOnly {
		return ErrReadOnlyViolation
	}
	s, err := v.sliceNode()
	if err != nil {
		return err
	}
	reordered := make([]interface{}, len(s))
	for i, val := range s {
		reordered[len(s)-1-i] = val
	}
	return v.setChangedIndices(s, reordered)
}

// Sort reorders the sequence using a total order over plain values: nulls,
// then booleans, then numbers, then strings, then sequences, then mappings.
// Booleans, numbers and strings are compared within their own kind;
// sequences and mappings are not compared with one another, so they keep
// their relative order. Logged as one SET per index whose value changed.
func (v *View) Sort() error {
	if v.readOnly {
		return ErrReadOnlyViolation
	}
	s, err := v.sliceNode()
	if err != nil {
		return err
	}
	sorted := append([]interface{}(nil), s...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return compareValues(sorted[i], sorted[j]) < 0
	})
	return v.setChangedIndices(s, sorted)
}

// setChangedIndices logs one SET per index where old and next differ,
// ascending. old and next must have the same length — true of any
// length-preserving reorder like Reverse or Sort.
func (v *View) setChangedIndices(old, next []interface{}) error {
	for i := range next {
		if !value.Equal(old[i], next[i]) {
			if err := v.r.append(vlog.Entry{Op: vlog.OpSet, Path: v.childPath(strconv.Itoa(i)), Value: next[i]}); err != nil {
				return err
			}
		}
	}
	return nil
}

// RemoveFirst drops the sequence's first element, shifting every remaining
// element down by one. Unlike DeleteIndex, this changes the sequence's
// length, which a per-index DELETE cannot express (it only punches a hole) —
// so the whole sequence is replaced by a single SET at v's own path.
func (v *View) RemoveFirst() (interface{}, error) {
	if v.readOnly {
		return nil, ErrReadOnlyViolation
	}
	s, err := v.sliceNode()
	if err != nil {
		return nil, err
	}
	if len(s) == 0 {
		return nil, fmt.Errorf("%w: sequence is empty", ErrInvalidKey)
	}
	removed := s[0]
	next := append([]interface{}(nil), s[1:]...)
	if err := v.replaceWhole(next); err != nil {
		return nil, err
	}
	return removed, nil
}

// RemoveLast drops the sequence's last element. See RemoveFirst for why this
// is a whole-sequence replacement rather than per-index entries.
func (v *View) RemoveLast() (interface{}, error) {
	if v.readOnly {
		return nil, ErrReadOnlyViolation
	}
	s, err := v.sliceNode()
	if err != nil {
		return nil, err
	}
	if len(s) == 0 {
		return nil, fmt.Errorf("%w: sequence is empty", ErrInvalidKey)
	}
	removed := s[len(s)-1]
	next := append([]interface{}(nil), s[:len(s)-1]...)
	if err := v.replaceWhole(next); err != nil {
		return nil, err
	}
	return removed, nil
}

// Splice removes count elements starting at start and inserts repl in their
// place, returning the removed elements. Logged as a single whole-sequence
// SET, for the same reason as RemoveFirst/RemoveLast: a net length change
// can't be expressed as per-index SET/DELETE entries alone.
func (v *View) Splice(start, count int, repl ...interface{}) ([]interface{}, error) {
	if v.readOnly {
		return nil, ErrReadOnlyViolation
	}
	s, err := v.sliceNode()
	if err != nil {
		return nil, err
	}
	if start < 0 || start > len(s) {
		return nil, fmt.Errorf("%w: splice start %d out of range [0,%d]", ErrInvalidKey, start, len(s))
	}
	if count < 0 || start+count > len(s) {
		return nil, fmt.Errorf("%w: splice count %d out of range at start %d", ErrInvalidKey, count, start)
	}
	for _, val := range repl {
		if isManagedValue(val) {
			return nil, ErrCrossAttachment
		}
		if !value.Assignable(val) {
			return nil, ErrNonAssignableValue
		}
	}

	removed := append([]interface{}(nil), s[start:start+count]...)
	next := make([]interface{}, 0, len(s)-count+len(repl))
	next = append(next, s[:start]...)
	next = append(next, repl...)
	next = append(next, s[start+count:]...)

	if err := v.replaceWhole(next); err != nil {
		return nil, err
	}
	return removed, nil
}

func (v *View) replaceWhole(next []interface{}) error {
	return v.r.append(vlog.Entry{Op: vlog.OpSet, Path: append([]string(nil), v.path...), Value: next})
}

// compareValues imposes a total order over plain values, grouped by kind so
// that mixed-type sequences still sort deterministically rather than
// panicking on an unordered comparison.
func compareValues(a, b interface{}) int {
	ra, rb := valueRank(a), valueRank(b)
	if ra != rb {
		return ra - rb
	}
	switch ra {
	case rankNull:
		return 0
	case rankBool:
		ab, bb := a.(bool), b.(bool)
		if ab == bb {
			return 0
		}
		if !ab {
			return -1
		}
		return 1
	case rankNumber:
		af, bf := asFloat(a), asFloat(b)
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	case rankString:
		as, bs := a.(string), b.(string)
		switch {
		case as < bs:
			return -1
		case as > bs:
			return 1
		default:
			return 0
		}
	default:
		// sequences and mappings have no intrinsic order beyond their kind
		// grouping; treat members of the same group as equal for sorting.
		return 0
	}
}

const (
	rankNull = iota
	rankBool
	rankNumber
	rankString
	rankSequence
	rankMapping
)

func valueRank(v interface{}) int {
	switch v.(type) {
	case nil:
		return rankNull
	case bool:
		return rankBool
	case []interface{}:
		return rankSequence
	case map[string]interface{}:
		return rankMapping
	case string:
		return rankString
	default:
		return rankNumber
	}
}

func asFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int8:
		return float64(n)
	case int16:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint:
		return float64(n)
	case uint8:
		return float64(n)
	case uint16:
		return float64(n)
	case uint32:
		return float64(n)
	case uint64:
		return float64(n)
	default:
		return 0
	}
}
