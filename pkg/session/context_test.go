package session_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/abigegg/go-hatch/pkg/session"
)

func TestContext_OrderAndMerge(t *testing.T) {
	c := session.NewContext()
	c.Set("b", 1)
	c.Set("a", 2)
	c.Set("b", 3)

	if diff := cmp.Diff([]string{"b", "a"}, c.Keys()); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
	merged := c.MergeInto(map[string]any{"a": "base", "z": true})
	if diff := cmp.Diff(map[string]any{"a": 2, "b": 3, "z": true}, merged); diff != "" {
		t.Fatalf("merge mismatch (-want +got):\n%s", diff)
	}

	c.Reset()
	if c.Len() != 0 || c.Has("a") {
		t.Fatalf("reset left %v", c.Keys())
	}
	if got := c.MergeInto(nil); len(got) != 0 {
		t.Fatalf("merge of empty context = %v", got)
	}
}
