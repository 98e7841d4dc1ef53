// Copyright (c) 2025 Daniar Achakeev
// This source code is licensed under the MIT license found in the LICENSE.txt file in the root directory of this source tree.

// Package merger combines the sorted runs a rungen.Generator produced into
// a single sorted run, using an optimal (Huffman-style) two-way merge
// schedule: the two smallest runs are always merged next, which minimizes
// the total number of elements read and written across the whole merge
// phase.
package merger

import (
	"container/heap"
	"errors"
	"fmt"

	"cmp"

	"github.com/runsort/extsort/iobuf"
	"github.com/runsort/extsort/runfile"
)

// ErrNoRuns is returned by ExternalMergeSort when given no runs to merge.
var ErrNoRuns = errors.New("merger: no runs to merge")

// Config configures a Merger.
type Config[T cmp.Ordered] struct {
	// Codec encodes/decodes T to/from its on-disk fixed-width
	// representation.
	Codec iobuf.Codec[T]
	// BufferSize is the number of elements buffered per input/output
	// stream during a two-way merge.
	BufferSize int
}

// Merger performs two-way in-memory merges of runs stored in a single
// runfile.RunFile, and drives the optimal merge tree over any number of
// runs.
type Merger[T cmp.Ordered] struct {
	rf  *runfile.RunFile
	cfg Config[T]
}

// New returns a Merger operating on rf.
func New[T cmp.Ordered](rf *runfile.RunFile, cfg Config[T]) *Merger[T] {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1024
	}
	return &Merger[T]{rf: rf, cfg: cfg}
}

// MergeInMem merges runA and runB into a freshly allocated run and returns
// its metadata. On equal elements, the element from runB is emitted first,
// matching the original implementation's tie-break.
func (m *Merger[T]) MergeInMem(runA, runB runfile.RunMetadata) (runfile.RunMetadata, error) {
	newRunID, err := m.rf.AllocateNewRun()
	if err != nil {
		return runfile.RunMetadata{}, fmt.Errorf("merger: allocate merged run: %w", err)
	}
	startOffset, err := m.rf.GetAppendOffset()
	if err != nil {
		return runfile.RunMetadata{}, fmt.Errorf("merger: get append offset: %w", err)
	}

	inA := iobuf.NewInputBuffer[T](m.rf.File(), runA, m.cfg.BufferSize, m.cfg.Codec)
	inB := iobuf.NewInputBuffer[T](m.rf.File(), runB, m.cfg.BufferSize, m.cfg.Codec)
	out := iobuf.NewOutputBuffer[T](m.rf.File(), startOffset, m.cfg.BufferSize, m.cfg.Codec)

	itemA, hasA, err := inA.GetNextItem()
	if err != nil {
		return runfile.RunMetadata{}, fmt.Errorf("merger: read run A: %w", err)
	}
	itemB, hasB, err := inB.GetNextItem()
	if err != nil {
		return runfile.RunMetadata{}, fmt.Errorf("merger: read run B: %w", err)
	}

	for hasA && hasB {
		if itemA < itemB {
			if err := out.SetNextItem(itemA); err != nil {
				return runfile.RunMetadata{}, fmt.Errorf("merger: write merged item: %w", err)
			}
			itemA, hasA, err = inA.GetNextItem()
		} else {
			if err := out.SetNextItem(itemB); err != nil {
				return runfile.RunMetadata{}, fmt.Errorf("merger: write merged item: %w", err)
			}
			itemB, hasB, err = inB.GetNextItem()
		}
		if err != nil {
			return runfile.RunMetadata{}, fmt.Errorf("merger: read next item: %w", err)
		}
	}
	for hasA {
		if err := out.SetNextItem(itemA); err != nil {
			return runfile.RunMetadata{}, fmt.Errorf("merger: write merged item: %w", err)
		}
		itemA, hasA, err = inA.GetNextItem()
		if err != nil {
			return runfile.RunMetadata{}, fmt.Errorf("merger: read run A: %w", err)
		}
	}
	for hasB {
		if err := out.SetNextItem(itemB); err != nil {
			return runfile.RunMetadata{}, fmt.Errorf("merger: write merged item: %w", err)
		}
		itemB, hasB, err = inB.GetNextItem()
		if err != nil {
			return runfile.RunMetadata{}, fmt.Errorf("merger: read run B: %w", err)
		}
	}

	if err := out.Flush(); err != nil {
		return runfile.RunMetadata{}, fmt.Errorf("merger: flush merged run: %w", err)
	}
	total := out.ElementCount()
	if err := m.rf.UpdateRunMetadata(newRunID, startOffset, total); err != nil {
		return runfile.RunMetadata{}, fmt.Errorf("merger: update merged run metadata: %w", err)
	}
	return m.rf.GetRunMetadata(newRunID)
}

// ExternalMergeSort repeatedly merges the two smallest of initialRuns until
// one run remains, and returns that run's metadata. This is the optimal
// (minimum total elements rewritten) merge schedule for a fixed set of run sizes,
// the same argument behind Huffman coding.
func (m *Merger[T]) ExternalMergeSort(initialRuns []runfile.RunMetadata) (runfile.RunMetadata, error) {
	if len(initialRuns) == 0 {
		return runfile.RunMetadata{}, ErrNoRuns
	}
	if len(initialRuns) == 1 {
		return initialRuns[0], nil
	}

	h := make(runHeap, len(initialRuns))
	copy(h, initialRuns)
	heap.Init(&h)

	for h.Len() > 1 {
		a := heap.Pop(&h).(runfile.RunMetadata)
		b := heap.Pop(&h).(runfile.RunMetadata)
		merged, err := m.MergeInMem(a, b)
		if err != nil {
			return runfile.RunMetadata{}, err
		}
		heap.Push(&h, merged)
	}
	return heap.Pop(&h).(runfile.RunMetadata), nil
}

// runHeap is a min-heap of RunMetadata ordered by element count, used to
// always merge the two smallest runs next. Implements container/heap.
type runHeap []runfile.RunMetadata

func (h runHeap) Len() int            { return len(h) }
func (h runHeap) Less(i, j int) bool  { return h[i].ElementCount < h[j].ElementCount }
func (h runHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *runHeap) Push(x any)         { *h = append(*h, x.(runfile.RunMetadata)) }
func (h *runHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
