package vlog

// ChangeEvent is the payload a Document or Replica publishes to
// event.TopicChange whenever the Log gains a new Entry. It lives in this
// package (rather than document or replica) so both can publish and consume
// it without importing one another.
type ChangeEvent struct {
	// LSN is the index Entry was appended at — equivalently, Log.Len()-1
	// at the moment of publish.
	LSN int
	// Entry is a frozen copy of the appended entry: mutating it after the
	// event is delivered has no effect on the Log.
	Entry Entry
}
