// Copyright (c) 2025 Daniar Achakeev
// This source code is licensed under the MIT license found in the LICENSE.txt file in the root directory of this source tree.

// Package losertree implements a tournament loser tree over a fixed number
// of competitors, used by rungen to drive replacement-selection run
// generation. Each leaf carries a RunNode: a value tagged with the id of the
// sorted run it currently belongs to. The tree orders leaves first by run
// id, then by value, so that a winner from an earlier run always precedes
// one from a later run regardless of value.
package losertree

import (
	"cmp"
	"math"
)

// RunNode is a single competitor in the tree: a value tagged with the run it
// has been assigned to. The zero value is not meaningful; use Sentinel to
// build an "infinitely large" placeholder for exhausted slots.
type RunNode[T cmp.Ordered] struct {
	Value T
	RunID int
}

// Sentinel returns a RunNode that always loses against any real value,
// regardless of run id ordering. maxValue must be the maximum representable
// value of T (e.g. math.MaxInt32 for int32).
func Sentinel[T cmp.Ordered](maxValue T) RunNode[T] {
	return RunNode[T]{Value: maxValue, RunID: math.MaxInt32}
}

// IsSentinel reports whether n was produced by Sentinel.
func (n RunNode[T]) IsSentinel() bool {
	return n.RunID == math.MaxInt32
}

// Tree is a loser tree of k leaves. tree[0] always holds the index (into
// leaves) of the current global winner (the smallest (RunID, Value) pair);
// tree[1..k) hold the losers of each internal match. leaves[k] is a
// permanent sentinel used as the "nobody here yet" marker during
// construction.
type Tree[T cmp.Ordered] struct {
	tree     []int
	leaves   []RunNode[T]
	k        int
	sentinel RunNode[T]
}

// New builds an empty k-way loser tree. Call Initialize before use.
func New[T cmp.Ordered](k int, sentinel RunNode[T]) *Tree[T] {
	if k <= 0 {
		panic("losertree: k must be > 0")
	}
	t := &Tree[T]{
		tree:     make([]int, k),
		leaves:   make([]RunNode[T], k+1),
		k:        k,
		sentinel: sentinel,
	}
	t.leaves[k] = sentinel
	return t
}

// isLoser reports whether a loses to b in the min-ordering: a run id further
// in the future loses; ties are broken by value, larger value loses.
func (t *Tree[T]) isLoser(a, b RunNode[T]) bool {
	if a.RunID != b.RunID {
		return a.RunID > b.RunID
	}
	return a.Value > b.Value
}

// Initialize seeds the tree's k leaves from initialData (each tagged with
// run id 1) and builds the internal nodes using Knuth's tournament
// construction. Any leaf beyond len(initialData) is set to the sentinel.
func (t *Tree[T]) Initialize(initialData []T) {
	for i := 0; i < t.k; i++ {
		if i < len(initialData) {
			t.leaves[i] = RunNode[T]{Value: initialData[i], RunID: 1}
		} else {
			t.leaves[i] = t.sentinel
		}
	}
	t.leaves[t.k] = t.sentinel

	for i := 0; i < t.k; i++ {
		t.tree[i] = t.k
	}

	for i := t.k - 1; i >= 0; i-- {
		current := i
		parent := (i + t.k) / 2
		for parent > 0 {
			if t.tree[parent] == t.k {
				t.tree[parent] = current
				break
			}
			other := t.tree[parent]
			if t.isLoser(t.leaves[current], t.leaves[other]) {
				t.tree[parent] = current
				current = other
			}
			parent /= 2
		}
		if parent == 0 {
			t.tree[0] = current
		}
	}
}

// replay re-runs every match on the path from playerIndex up to the root,
// after that leaf's value has changed.
func (t *Tree[T]) replay(playerIndex int) {
	parent := (playerIndex + t.k) / 2
	currentWinner := playerIndex
	for parent > 0 {
		if t.isLoser(t.leaves[currentWinner], t.leaves[t.tree[parent]]) {
			t.tree[parent], currentWinner = currentWinner, t.tree[parent]
		}
		parent /= 2
	}
	t.tree[0] = currentWinner
}

// GetWinner returns the current global minimum without modifying the tree.
func (t *Tree[T]) GetWinner() RunNode[T] {
	return t.leaves[t.tree[0]]
}

// ReplaceWinner overwrites the current winner's leaf with a new value and
// run id, then replays the tree so a new winner surfaces.
func (t *Tree[T]) ReplaceWinner(newValue T, newRunID int) {
	idx := t.tree[0]
	t.leaves[idx] = RunNode[T]{Value: newValue, RunID: newRunID}
	t.replay(idx)
}

// SetWinnerToSentinel retires the current winner's leaf, used once its
// source run is exhausted.
func (t *Tree[T]) SetWinnerToSentinel() {
	idx := t.tree[0]
	t.leaves[idx] = t.sentinel
	t.replay(idx)
}
