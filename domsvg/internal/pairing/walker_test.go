package pairing

import (
	"errors"
	"strings"
	"testing"
)

type tnode struct {
	name string
	kids []*tnode
}

func kids(n *tnode) []*tnode { return n.kids }

func leaf(name string) *tnode { return &tnode{name: name} }

func tree(name string, kids ...*tnode) *tnode { return &tnode{name: name, kids: kids} }

// copyTree returns a structural copy whose names carry a "'" suffix.
func copyTree(n *tnode) *tnode {
	c := &tnode{name: n.name + "'"}
	for _, k := range n.kids {
		c.kids = append(c.kids, copyTree(k))
	}
	return c
}

func sample() *tnode {
	return tree("a",
		tree("b", leaf("c"), leaf("d")),
		leaf("e"),
		tree("f", tree("g", leaf("h"))),
	)
}

func TestWalker_PreOrderLockstep(t *testing.T) {
	orig := sample()
	clone := copyTree(orig)

	w := NewWalker(orig, clone, kids, kids)
	var got []string
	for p := range w.All() {
		if !p.HasClone {
			t.Fatalf("pair %d: missing clone", p.Index)
		}
		if p.Clone.name != p.Original.name+"'" {
			t.Fatalf("pair %d: original %q paired with %q", p.Index, p.Original.name, p.Clone.name)
		}
		if p.Index != len(got) {
			t.Fatalf("pair index = %d, want %d", p.Index, len(got))
		}
		got = append(got, p.Original.name)
	}

	if want := "abcdefgh"; strings.Join(got, "") != want {
		t.Fatalf("order = %q, want %q", strings.Join(got, ""), want)
	}
}

func TestWalker_PairCountMatchesNodeCount(t *testing.T) {
	trees := []*tnode{
		leaf("root"),
		tree("a", leaf("b")),
		sample(),
		tree("wide", leaf("1"), leaf("2"), leaf("3"), leaf("4"), leaf("5")),
		tree("deep", tree("1", tree("2", tree("3", leaf("4"))))),
	}
	for _, root := range trees {
		k := Count(root, kids)
		w := NewWalker(root, copyTree(root), kids, kids)
		n := 0
		for range w.All() {
			n++
		}
		if n != k {
			t.Errorf("%s: walker yielded %d pairs, tree has %d nodes", root.name, n, k)
		}
		if w.Visited() != k {
			t.Errorf("%s: Visited() = %d, want %d", root.name, w.Visited(), k)
		}
	}
}

func TestWalker_ExhaustedStaysExhausted(t *testing.T) {
	w := NewWalker(leaf("x"), leaf("x'"), kids, kids)
	if _, ok := w.Next(); !ok {
		t.Fatal("expected root pair")
	}
	for i := 0; i < 3; i++ {
		if _, ok := w.Next(); ok {
			t.Fatal("walker yielded a pair after exhaustion")
		}
	}
}

func TestWalker_ChildrenReadAfterProcessing(t *testing.T) {
	orig := tree("a", tree("b", leaf("c")))
	clone := copyTree(orig)

	w := NewWalker(orig, clone, kids, kids)
	root, _ := w.Next()
	// Rewrite the clone's children while holding the root pair.
	root.Clone.kids = []*tnode{tree("B", leaf("C"))}

	var got []string
	for p := range w.All() {
		got = append(got, p.Clone.name)
	}
	if strings.Join(got, ",") != "B,C" {
		t.Fatalf("clones = %v, want [B C]", got)
	}
}

func TestWalker_SubstitutedCloneKeepsDetachedChildren(t *testing.T) {
	orig := tree("a", tree("canvas", leaf("fallback")), leaf("z"))
	clone := copyTree(orig)

	w := NewWalker(orig, clone, kids, kids)
	w.Next() // a
	p, _ := w.Next()
	if p.Original.name != "canvas" {
		t.Fatalf("second pair = %q", p.Original.name)
	}
	detached := p.Clone
	clone.kids[0] = leaf("img")

	next, _ := w.Next()
	if next.Clone != detached.kids[0] {
		t.Fatalf("fallback paired with %q, want the detached clone child", next.Clone.name)
	}
	last, _ := w.Next()
	if last.Original.name != "z" || last.Clone.name != "z'" {
		t.Fatalf("last pair = (%q, %q)", last.Original.name, last.Clone.name)
	}
}

func TestWalker_ShorterCloneYieldsMissingPairs(t *testing.T) {
	orig := tree("a", leaf("b"), tree("c", leaf("d")))
	clone := tree("a'", leaf("b'"))

	w := NewWalker(orig, clone, kids, kids)
	var missing []string
	n := 0
	for p := range w.All() {
		n++
		if !p.HasClone {
			if p.Clone != nil {
				t.Fatalf("pair %d: HasClone false but clone set", p.Index)
			}
			missing = append(missing, p.Original.name)
		}
	}
	if n != 4 {
		t.Fatalf("pairs = %d, want 4", n)
	}
	if strings.Join(missing, "") != "cd" {
		t.Fatalf("missing = %v, want [c d]", missing)
	}
}

func TestWalker_EarlyBreak(t *testing.T) {
	w := NewWalker(sample(), copyTree(sample()), kids, kids)
	for p := range w.All() {
		if p.Index == 2 {
			break
		}
	}
	p, ok := w.Next()
	if !ok || p.Original.name != "d" {
		t.Fatalf("after break Next() = %q, %v; want d", p.Original.name, ok)
	}
}

func TestCount(t *testing.T) {
	if got := Count(sample(), kids); got != 8 {
		t.Fatalf("Count = %d, want 8", got)
	}
	if got := Count(leaf("x"), kids); got != 1 {
		t.Fatalf("Count(leaf) = %d, want 1", got)
	}
}

func TestVerify(t *testing.T) {
	orig := sample()
	if err := Verify(orig, copyTree(orig), kids, kids); err != nil {
		t.Fatalf("Verify(copy): %v", err)
	}

	tests := []struct {
		name  string
		clone *tnode
	}{
		{"missing child", tree("a", tree("b", leaf("c")), leaf("e"), tree("f", tree("g", leaf("h"))))},
		{"extra child", tree("a", tree("b", leaf("c"), leaf("d"), leaf("x")), leaf("e"), tree("f", tree("g", leaf("h"))))},
		// Same node count, different shape.
		{"moved child", tree("a", tree("b", leaf("c"), leaf("d"), leaf("e")), tree("f", tree("g", leaf("h"))))},
	}
	for _, tt := range tests {
		err := Verify(orig, tt.clone, kids, kids)
		if !errors.Is(err, ErrShapeMismatch) {
			t.Errorf("%s: err = %v, want ErrShapeMismatch", tt.name, err)
		}
	}
}
