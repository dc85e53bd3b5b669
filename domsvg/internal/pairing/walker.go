// Package pairing walks an original node tree and its structural clone in
// lockstep, yielding matched pairs in pre-order.
package pairing

import (
	"errors"
	"fmt"
	"iter"
)

// ErrShapeMismatch is returned by Verify when the two trees are not
// isomorphic.
var ErrShapeMismatch = errors.New("pairing: original and clone trees differ in shape")

// Pair is one matched position in the original and clone trees.
type Pair[O, C any] struct {
	Original O
	Clone    C
	// HasClone is false when the clone tree has no node at this position.
	HasClone bool
	// Index is the pre-order position; the root is 0.
	Index int
}

// Walker yields pairs in synchronized pre-order. It is lazy and cannot be
// restarted. The children of a pair are read only when the walker advances
// past it, from the nodes captured in that pair, so a caller may mutate or
// substitute the clone of the pair it is holding.
type Walker[O, C any] struct {
	origKids  func(O) []O
	cloneKids func(C) []C

	stack   []Pair[O, C]
	last    Pair[O, C]
	pending bool
	visited int
}

// NewWalker starts a walk at the two roots.
func NewWalker[O, C any](orig O, clone C, origKids func(O) []O, cloneKids func(C) []C) *Walker[O, C] {
	return &Walker[O, C]{
		origKids:  origKids,
		cloneKids: cloneKids,
		stack:     []Pair[O, C]{{Original: orig, Clone: clone, HasClone: true}},
	}
}

// Next returns the next pair, or false once the original tree is exhausted.
func (w *Walker[O, C]) Next() (Pair[O, C], bool) {
	if w.pending {
		w.push(w.last)
		w.pending = false
	}
	n := len(w.stack)
	if n == 0 {
		var zero Pair[O, C]
		return zero, false
	}
	p := w.stack[n-1]
	w.stack = w.stack[:n-1]
	p.Index = w.visited
	w.visited++
	w.last = p
	w.pending = true
	return p, true
}

// All ranges over the remaining pairs.
func (w *Walker[O, C]) All() iter.Seq[Pair[O, C]] {
	return func(yield func(Pair[O, C]) bool) {
		for {
			p, ok := w.Next()
			if !ok || !yield(p) {
				return
			}
		}
	}
}

// Visited returns the number of pairs yielded so far.
func (w *Walker[O, C]) Visited() int { return w.visited }

// push stacks the children of p in reverse order so that popping yields
// them left to right. The original tree drives the walk: surplus clone
// children are ignored, missing ones produce pairs without a clone.
func (w *Walker[O, C]) push(p Pair[O, C]) {
	origs := w.origKids(p.Original)
	var clones []C
	if p.HasClone {
		clones = w.cloneKids(p.Clone)
	}
	for i := len(origs) - 1; i >= 0; i-- {
		child := Pair[O, C]{Original: origs[i]}
		if i < len(clones) {
			child.Clone = clones[i]
			child.HasClone = true
		}
		w.stack = append(w.stack, child)
	}
}

// Count returns the number of nodes in the tree rooted at root, root
// included.
func Count[N any](root N, kids func(N) []N) int {
	stack := []N{root}
	count := 0
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		count++
		stack = append(stack, kids(n)...)
	}
	return count
}

// Verify checks that clone has the same shape as orig: the same number of
// children at every pre-order position, hence the same node count.
func Verify[O, C any](orig O, clone C, origKids func(O) []O, cloneKids func(C) []C) error {
	type frame struct {
		o O
		c C
	}
	stack := []frame{{orig, clone}}
	for index := 0; len(stack) > 0; index++ {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		oks, cks := origKids(f.o), cloneKids(f.c)
		if len(oks) != len(cks) {
			return fmt.Errorf("%w: node %d has %d children, clone has %d",
				ErrShapeMismatch, index, len(oks), len(cks))
		}
		for i := len(oks) - 1; i >= 0; i-- {
			stack = append(stack, frame{oks[i], cks[i]})
		}
	}
	return nil
}
