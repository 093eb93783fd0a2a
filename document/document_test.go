package document_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/qri-io/jsondoc/document"
	"github.com/qri-io/jsondoc/event"
	"github.com/qri-io/jsondoc/vlog"
)

func mustCreate(t *testing.T, plain map[string]interface{}) *document.View {
	t.Helper()
	v, err := document.Create(plain)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return v
}

func TestCreateRejectsNonManageableAndAlreadyManaged(t *testing.T) {
	if _, err := document.Create([]interface{}{1, 2}); err != document.ErrNonManageable {
		t.Fatalf("expected ErrNonManageable, got %v", err)
	}
	if _, err := document.Create(nil); err != document.ErrNonManageable {
		t.Fatalf("expected ErrNonManageable for nil, got %v", err)
	}

	doc := mustCreate(t, map[string]interface{}{"a": 1})
	if _, err := document.Create(doc); err != document.ErrAlreadyManaged {
		t.Fatalf("expected ErrAlreadyManaged, got %v", err)
	}

	// A concretely-typed map is a different Go type than map[string]interface{}
	// and must be rejected rather than accepted and later mishandled.
	if _, err := document.Create(map[string]string{"a": "b"}); err != document.ErrNonManageable {
		t.Fatalf("expected ErrNonManageable for map[string]string, got %v", err)
	}
}

func TestVersionCountAndRestoreVersion(t *testing.T) {
	doc := mustCreate(t, map[string]interface{}{"prop": 41})

	n, err := document.VersionCount(doc)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected 1 version after Create, got %d", n)
	}

	if err := doc.Set("prop", 42); err != nil {
		t.Fatal(err)
	}
	n, err = document.VersionCount(doc)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("expected 2 versions after one Set, got %d", n)
	}

	v0, err := document.RestoreVersion(doc, 0)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(map[string]interface{}{"prop": 41}, v0); diff != "" {
		t.Fatalf("version 0 (-want +got):\n%s", diff)
	}

	v1, err := document.RestoreVersion(doc, 1)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(map[string]interface{}{"prop": 42}, v1); diff != "" {
		t.Fatalf("version 1 (-want +got):\n%s", diff)
	}

	if _, err := document.RestoreVersion(doc, 2); err != document.ErrInvalidVersionID {
		t.Fatalf("expected ErrInvalidVersionID, got %v", err)
	}
	if _, err := document.RestoreVersion(doc, -1); err != document.ErrInvalidVersionID {
		t.Fatalf("expected ErrInvalidVersionID, got %v", err)
	}
}

func TestRestoreVersionOnNestedViewFallsBackToDeepestResolvableAncestor(t *testing.T) {
	doc := mustCreate(t, map[string]interface{}{"a": map[string]interface{}{"x": 1}})

	aVal, _, err := doc.Get("a")
	if err != nil {
		t.Fatal(err)
	}
	a := aVal.(*document.View)
	// "a.newchild" is created after version 0, so a view onto it addresses
	// a path that version 0's tree can't fully resolve.
	if err := a.Set("newchild", map[string]interface{}{"z": 1}); err != nil {
		t.Fatal(err)
	}
	newchildVal, ok, err := a.Get("newchild")
	if err != nil || !ok {
		t.Fatalf("Get(newchild): ok=%v err=%v", ok, err)
	}
	newchild := newchildVal.(*document.View)

	v0, err := document.RestoreVersion(newchild, 0)
	if err != nil {
		t.Fatal(err)
	}
	// "a.newchild" doesn't resolve at version 0, so RestoreVersion falls
	// back to its nearest ancestor that does: "a" itself.
	if diff := cmp.Diff(map[string]interface{}{"x": 1}, v0); diff != "" {
		t.Fatalf("version 0 deepest-ancestor fallback (-want +got):\n%s", diff)
	}
}

func TestRestoreVersionIsImmuneToCallerMutatingTheOriginalValue(t *testing.T) {
	doc := mustCreate(t, map[string]interface{}{})
	m := map[string]interface{}{"y": 1}
	if err := doc.Set("a", m); err != nil {
		t.Fatal(err)
	}
	m["y"] = 999 // mutating the caller's copy must not reach the log

	v1, err := document.RestoreVersion(doc, 1)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(map[string]interface{}{"a": map[string]interface{}{"y": 1}}, v1); diff != "" {
		t.Fatalf("version 1 should be immune to the caller's later mutation (-want +got):\n%s", diff)
	}
}

func TestDetachStripsVersioningBlock(t *testing.T) {
	doc := mustCreate(t, map[string]interface{}{"a": 1})
	if err := doc.Set("b", 2); err != nil {
		t.Fatal(err)
	}

	plain, err := document.Detach(doc)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := plain[document.VersioningKey]; ok {
		t.Fatalf("Detach should strip %s, got %v", document.VersioningKey, plain)
	}
	if diff := cmp.Diff(map[string]interface{}{"a": 1, "b": 2}, plain); diff != "" {
		t.Fatalf("detached value (-want +got):\n%s", diff)
	}
}

func TestDetachPreserveVersionDataRoundTrips(t *testing.T) {
	doc := mustCreate(t, map[string]interface{}{"a": 1})
	if err := doc.Set("b", 2); err != nil {
		t.Fatal(err)
	}
	if err := doc.Set("a", 99); err != nil {
		t.Fatal(err)
	}

	preserved, err := document.DetachPreserveVersionData(doc)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := preserved[document.VersioningKey]; !ok {
		t.Fatalf("expected %s to survive DetachPreserveVersionData", document.VersioningKey)
	}

	reattached, err := document.Create(preserved)
	if err != nil {
		t.Fatalf("re-attaching preserved data: %v", err)
	}

	wantCount, err := document.VersionCount(doc)
	if err != nil {
		t.Fatal(err)
	}
	gotCount, err := document.VersionCount(reattached)
	if err != nil {
		t.Fatal(err)
	}
	if wantCount != gotCount {
		t.Fatalf("expected version count %d after re-attach, got %d", wantCount, gotCount)
	}

	wantSnap, err := document.GetSnapshot(doc)
	if err != nil {
		t.Fatal(err)
	}
	gotSnap, err := document.GetSnapshot(reattached)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(wantSnap, gotSnap); diff != "" {
		t.Fatalf("re-attached snapshot (-want +got):\n%s", diff)
	}
}

func TestCreateRejectsTamperedVersioningData(t *testing.T) {
	tampered := map[string]interface{}{
		"a": 1,
		document.VersioningKey: map[string]interface{}{
			"log": []interface{}{
				map[string]interface{}{"op": "set", "path": []interface{}{}, "value": map[string]interface{}{"a": 999}},
			},
		},
	}
	if _, err := document.Create(tampered); !errors.Is(err, document.ErrInvalidVersioningData) {
		t.Fatalf("expected ErrInvalidVersioningData, got %v", err)
	}
}

func TestGetRootObjectFromNestedView(t *testing.T) {
	doc := mustCreate(t, map[string]interface{}{"child": map[string]interface{}{"leaf": 1}})
	childVal, ok, err := doc.Get("child")
	if err != nil || !ok {
		t.Fatalf("Get(child): ok=%v err=%v", ok, err)
	}
	child := childVal.(*document.View)

	root, err := document.GetRootObject(child)
	if err != nil {
		t.Fatal(err)
	}
	if err := root.Set("top", "level"); err != nil {
		t.Fatal(err)
	}
	val, ok, err := root.Get("top")
	if err != nil || !ok || val != "level" {
		t.Fatalf("expected top=level, got %v ok=%v err=%v", val, ok, err)
	}
}

func TestGetLogIsReadOnlySequence(t *testing.T) {
	doc := mustCreate(t, map[string]interface{}{"a": 1})
	if err := doc.Set("a", 2); err != nil {
		t.Fatal(err)
	}

	logView, err := document.GetLog(doc)
	if err != nil {
		t.Fatal(err)
	}
	n, err := logView.Len()
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("expected 2 log entries, got %d", n)
	}
	if err := logView.SetIndex(0, "tampered"); err != document.ErrReadOnlyViolation {
		t.Fatalf("expected ErrReadOnlyViolation writing through GetLog, got %v", err)
	}
}

func TestEventEmitterPublishesChangeEvents(t *testing.T) {
	doc := mustCreate(t, map[string]interface{}{"a": 1})
	bus, err := document.EventEmitter(doc)
	if err != nil {
		t.Fatal(err)
	}

	var got vlog.ChangeEvent
	bus.Subscribe(event.TopicChange, func(ctx context.Context, e event.Event) error {
		got = e.Payload.(vlog.ChangeEvent)
		return nil
	})

	if err := doc.Set("a", 2); err != nil {
		t.Fatal(err)
	}
	if got.LSN != 1 {
		t.Fatalf("expected lsn 1, got %d", got.LSN)
	}
	if got.Entry.Op != vlog.OpSet || got.Entry.Value != 2 {
		t.Fatalf("unexpected entry %+v", got.Entry)
	}
}

func TestNonManagedValueFacadeErrors(t *testing.T) {
	if _, err := document.VersionCount("not a view"); err != document.ErrNotManaged {
		t.Fatalf("expected ErrNotManaged, got %v", err)
	}
	if _, err := document.Detach(42); err != document.ErrNotManaged {
		t.Fatalf("expected ErrNotManaged, got %v", err)
	}
}
