package vlog

import (
	"fmt"

	humanize "github.com/dustin/go-humanize"
)

// Log is an ordered, append-only sequence of Entries: the authoritative
// history of a managed document. The LSN of an entry is its index within
// the slice.
type Log struct {
	entries []Entry
}

// New returns a Log whose sole entry 0 is {OpSet, nil, initial}.
func New(initial map[string]interface{}) Log {
	return Log{entries: []Entry{{Op: OpSet, Path: nil, Value: initial}}}
}

// FromEntries wraps an existing, already-ordered slice of entries as a Log.
// Used when reconstructing a Log from re-attached versioning data; callers
// are responsible for validating the entries beforehand (see
// document.logFromVersioningBlock).
func FromEntries(entries []Entry) Log {
	return Log{entries: append([]Entry(nil), entries...)}
}

// Len returns the number of entries in the log (== version count).
func (l Log) Len() int { return len(l.entries) }

// At returns the entry at lsn, and whether lsn was in range.
func (l Log) At(lsn int) (Entry, bool) {
	if lsn < 0 || lsn >= len(l.entries) {
		return Entry{}, false
	}
	return l.entries[lsn], true
}

// Entries returns a copy of the underlying entry slice.
func (l Log) Entries() []Entry {
	return append([]Entry(nil), l.entries...)
}

// Append adds entry to the log and returns the LSN assigned to it.
func (l *Log) Append(e Entry) int {
	l.entries = append(l.entries, e)
	return len(l.entries) - 1
}

// Replay reconstructs the tree produced by applying entries [0, throughLSN]
// in order. throughLSN must be in [0, Len()-1].
func (l Log) Replay(throughLSN int) (map[string]interface{}, error) {
	if throughLSN < 0 || throughLSN >= len(l.entries) {
		return nil, fmt.Errorf("vlog: lsn %d out of range [0, %d)", throughLSN, len(l.entries))
	}

	tree, err := l.entries[0].Apply(nil)
	if err != nil {
		return nil, err
	}
	for i := 1; i <= throughLSN; i++ {
		tree, err = l.entries[i].Apply(tree)
		if err != nil {
			return nil, fmt.Errorf("vlog: replaying entry %d: %w", i, err)
		}
	}
	return tree, nil
}

// String renders a short human summary of the log, e.g. "vlog.Log{42 entries}".
func (l Log) String() string {
	return fmt.Sprintf("vlog.Log{%s entries}", humanize.Comma(int64(len(l.entries))))
}
