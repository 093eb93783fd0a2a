package vlog_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/qri-io/jsondoc/vlog"
)

func TestEntryValidate(t *testing.T) {
	cases := []struct {
		name    string
		e       vlog.Entry
		wantErr bool
	}{
		{"set root", vlog.Entry{Op: vlog.OpSet, Value: map[string]interface{}{}}, false},
		{"set nested", vlog.Entry{Op: vlog.OpSet, Path: []string{"a"}, Value: 1}, false},
		{"delete nested", vlog.Entry{Op: vlog.OpDelete, Path: []string{"a"}}, false},
		{"delete root rejected", vlog.Entry{Op: vlog.OpDelete}, true},
		{"unknown op rejected", vlog.Entry{Op: "patch", Path: []string{"a"}}, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := c.e.Validate()
			if (err != nil) != c.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, c.wantErr)
			}
		})
	}
}

func TestEntryApply(t *testing.T) {
	root := vlog.Entry{Op: vlog.OpSet, Path: nil, Value: map[string]interface{}{"prop": 41}}
	tree, err := root.Apply(nil)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(map[string]interface{}{"prop": 41}, tree); diff != "" {
		t.Fatalf("unexpected tree (-want +got):\n%s", diff)
	}

	set := vlog.Entry{Op: vlog.OpSet, Path: []string{"prop"}, Value: 42}
	tree, err = set.Apply(tree)
	if err != nil {
		t.Fatal(err)
	}
	if tree["prop"] != 42 {
		t.Fatalf("expected prop == 42, got %v", tree["prop"])
	}

	setNested := vlog.Entry{Op: vlog.OpSet, Path: []string{"a", "b"}, Value: 1}
	tree, err = setNested.Apply(tree)
	if err != nil {
		t.Fatal(err)
	}
	a, ok := tree["a"].(map[string]interface{})
	if !ok || a["b"] != 1 {
		t.Fatalf("expected a.b == 1, got %v", tree["a"])
	}

	del := vlog.Entry{Op: vlog.OpDelete, Path: []string{"a", "b"}}
	tree, err = del.Apply(tree)
	if err != nil {
		t.Fatal(err)
	}
	a = tree["a"].(map[string]interface{})
	if _, exists := a["b"]; exists {
		t.Fatalf("expected a.b to be deleted, got %v", a)
	}
}

func TestEntryApplyDeepCopiesValue(t *testing.T) {
	val := map[string]interface{}{"nested": 1}
	set := vlog.Entry{Op: vlog.OpSet, Path: []string{"k"}, Value: val}
	tree, err := set.Apply(map[string]interface{}{})
	if err != nil {
		t.Fatal(err)
	}

	val["nested"] = 99
	stored := tree["k"].(map[string]interface{})
	if stored["nested"] != 1 {
		t.Fatalf("expected stored value to be independent of caller's value, got %v", stored["nested"])
	}
}

func TestEntryApplyPathThroughNonMapFails(t *testing.T) {
	tree := map[string]interface{}{"a": 1}
	set := vlog.Entry{Op: vlog.OpSet, Path: []string{"a", "b"}, Value: 2}
	if _, err := set.Apply(tree); err == nil {
		t.Fatalf("expected error walking through a scalar")
	}
}
