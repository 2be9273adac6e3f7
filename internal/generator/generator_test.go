package generator

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/multierr"

	"scaffoldr/internal/capability"
)

func noop(context.Context, Providers) (*TaskResult, error) { return &TaskResult{}, nil }

func TestWalkPreOrder(t *testing.T) {
	root := &Node{ID: "r", Children: []*Node{
		{ID: "a", Children: []*Node{{ID: "a1"}}},
		{ID: "b"},
	}}
	var order []string
	parents := map[string]string{}
	_ = Walk(root, func(n, parent *Node) error {
		order = append(order, n.ID)
		if parent != nil {
			parents[n.ID] = parent.ID
		}
		return nil
	})
	want := []string{"r", "a", "a1", "b"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order %v", order)
		}
	}
	if parents["a1"] != "a" || parents["b"] != "r" {
		t.Fatalf("parents %v", parents)
	}
}

func TestValidateAggregates(t *testing.T) {
	root := &Node{ID: "r", Tasks: []*Task{
		{Name: "main", Run: noop},
		{Name: "main", Run: noop},
	}, Children: []*Node{
		{ID: "r"},
		{ID: "x", Tasks: []*Task{{Name: "build"}}},
	}}
	err := Validate(root)
	if err == nil {
		t.Fatalf("expected validation errors")
	}
	if n := len(multierr.Errors(err)); n != 3 {
		t.Fatalf("expected 3 errors, got %d: %v", n, err)
	}
	if !errors.Is(err, capability.ErrConfiguration) {
		t.Fatalf("tree errors should be configuration errors")
	}
}

func TestValidateReportsInStableOrder(t *testing.T) {
	root := &Node{ID: "r", Tasks: []*Task{{
		Name: "main",
		Run:  noop,
		Dependencies: map[string]capability.Dependency{
			"d": {}, "a": {}, "c": {}, "b": {},
		},
		Exports: map[string]capability.Export{"z": {}, "y": {}},
	}}}
	var want []string
	for _, name := range []string{"a", "b", "c", "d"} {
		want = append(want, `task r#main: dependency "`+name+`" has no capability type`)
	}
	want = append(want, `task r#main: export "y" has no capability type`, `task r#main: export "z" has no capability type`)
	for i := 0; i < 20; i++ {
		var got []string
		for _, err := range multierr.Errors(Validate(root)) {
			got = append(got, err.Error())
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("run %d (-want +got):\n%s", i, diff)
		}
	}
}

func TestValidateAcceptsWellFormedTree(t *testing.T) {
	typ := capability.MustType("thing")
	root := &Node{ID: "r", Tasks: []*Task{{
		Name:    "main",
		Exports: map[string]capability.Export{"thing": typ.Export(nil, "")},
		Run:     noop,
	}}, Children: []*Node{{ID: "r.c", Tasks: []*Task{{
		Name:         "main",
		Dependencies: map[string]capability.Dependency{"thing": typ.Dependency()},
		Run:          noop,
	}}}}}
	if err := Validate(root); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestProvidersLookup(t *testing.T) {
	p := Providers{"num": 42, "absent": nil}
	if v, ok := Lookup[int](p, "num"); !ok || v != 42 {
		t.Fatalf("Lookup num = %v %v", v, ok)
	}
	if _, ok := Lookup[string](p, "num"); ok {
		t.Fatalf("mistyped lookup should fail")
	}
	if _, ok := p.Get("absent"); ok {
		t.Fatalf("absent optional should not be found")
	}
	if _, err := MustLookup[int](p, "missing"); err == nil {
		t.Fatalf("MustLookup should report missing provider")
	}
}
