package document

import "fmt"

// Sentinel errors for the Interception Layer and Managed Document facade.
// Each corresponds to one error kind from the spec's error taxonomy; none
// of them carry retry or recovery semantics — the tree and log are left
// unmodified whenever one of these is returned.
var (
	// ErrReadOnlyViolation is returned for any write or delete attempted
	// through a read-only view (any view whose path enters the Versioning
	// Block, and every view derived from one), or aimed at the root's
	// Versioning Block slot itself.
	ErrReadOnlyViolation = fmt.Errorf("document: read-only violation")

	// ErrNonAssignableValue is returned when a SET's value is not a plain
	// value (see the value package).
	ErrNonAssignableValue = fmt.Errorf("document: value is not assignable")

	// ErrInvalidKey is returned when a key or index is not addressable
	// (e.g. a negative sequence index).
	ErrInvalidKey = fmt.Errorf("document: invalid key")

	// ErrCrossAttachment is returned when a SET's value is itself a managed
	// view — from this document or another — which would let one tree
	// alias another's storage.
	ErrCrossAttachment = fmt.Errorf("document: cannot assign a managed view as a value")

	// ErrOrphanedView is returned when a view's path no longer resolves
	// because an ancestor container was deleted.
	ErrOrphanedView = fmt.Errorf("document: view's path no longer resolves in the root (orphaned)")

	// ErrAlreadyManaged is returned by Create when given an already-managed
	// view.
	ErrAlreadyManaged = fmt.Errorf("document: value is already a managed view")

	// ErrNonManageable is returned by Create when given a value that isn't
	// a manageable root (a non-nil, assignable mapping).
	ErrNonManageable = fmt.Errorf("document: value is not a manageable root")

	// ErrInvalidVersioningData is returned by Create when a pre-existing
	// __versioning__ block fails re-attach validation.
	ErrInvalidVersioningData = fmt.Errorf("document: invalid versioning data")

	// ErrInvalidVersionID is returned by RestoreVersion for an LSN outside
	// [0, VersionCount).
	ErrInvalidVersionID = fmt.Errorf("document: invalid version id")

	// ErrNotManaged is returned by any facade operation given a value that
	// isn't a managed view.
	ErrNotManaged = fmt.Errorf("document: value is not a managed view")

	// ErrNotASequence / ErrNotAMapping are returned when a View's array-only
	// or map-only method is called on the wrong kind of node.
	ErrNotASequence = fmt.Errorf("document: view does not address a sequence")
	ErrNotAMapping  = fmt.Errorf("document: view does not address a mapping")
)
