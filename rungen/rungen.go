// Copyright (c) 2025 Daniar Achakeev
// This source code is licensed under the MIT license found in the LICENSE.txt file in the root directory of this source tree.

// Package rungen generates sorted runs from an unsorted input stream using
// replacement selection over a losertree.Tree of k leaves: each run
// produced is, in expectation, about 2*k elements long rather than k. Three cooperating workers keep
// disk I/O overlapped with the in-memory tournament: an input worker
// double-buffers reads ahead of the compute worker's consumption, and an
// output worker double-buffers writes behind its production, coordinated
// through a single mutex and three condition variables.
package rungen

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/runsort/extsort/iobuf"
	"github.com/runsort/extsort/losertree"
	"github.com/runsort/extsort/runfile"
)

// ErrIO wraps any read/write failure from the input or output worker that
// is not a clean end of input.
var ErrIO = errors.New("rungen: i/o error")

// Config configures a Generator.
type Config[T cmp.Ordered] struct {
	// K is the number of leaves in the replacement-selection tournament;
	// the amount of in-memory working set devoted to run generation.
	K int
	// BufferSize is the number of elements moved per disk read/write,
	// and the size of each of the double-buffered input/output blocks.
	BufferSize int
	// Codec encodes/decodes T to/from its on-disk fixed-width
	// representation.
	Codec iobuf.Codec[T]
	// SentinelValue is the maximum representable value of T, used to
	// build the loser tree's sentinel leaf (e.g. math.MaxInt32 for
	// int32).
	SentinelValue T
}

// Generator drives replacement-selection run generation over a single
// input stream, writing the resulting runs into a shared runfile.RunFile.
type Generator[T cmp.Ordered] struct {
	k        int
	bufSize  int
	codec    iobuf.Codec[T]
	tree     *losertree.Tree[T]
	sentinel losertree.RunNode[T]

	mu        sync.Mutex
	cvInput   *sync.Cond
	cvOutput  *sync.Cond
	cvCompute *sync.Cond

	activeIn, standbyIn   []T
	activeOut, standbyOut []T
	activeInIdx           int

	standbyInputReady bool
	standbyOutputBusy bool
	inputEOF          bool
	stopThreads       bool
	workerErr         error

	input   io.Reader
	runFile *runfile.RunFile

	currentRunID          int
	currentRunStartOffset int64
	totalElementsInRun    int64
	generatedRuns         []runfile.RunMetadata
}

// New constructs a Generator from cfg. Call GenerateRuns to run it.
func New[T cmp.Ordered](cfg Config[T]) *Generator[T] {
	if cfg.K <= 0 {
		panic("rungen: K must be > 0")
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1024
	}
	g := &Generator[T]{
		k:        cfg.K,
		bufSize:  cfg.BufferSize,
		codec:    cfg.Codec,
		sentinel: losertree.Sentinel(cfg.SentinelValue),
	}
	g.cvInput = sync.NewCond(&g.mu)
	g.cvOutput = sync.NewCond(&g.mu)
	g.cvCompute = sync.NewCond(&g.mu)
	g.tree = losertree.New[T](cfg.K, g.sentinel)
	return g
}

// GenerateRuns reads elements from input until exhausted, writing sorted
// runs into rf, and returns the metadata of every run produced. An empty
// input produces no runs.
func (g *Generator[T]) GenerateRuns(ctx context.Context, input io.Reader, rf *runfile.RunFile) ([]runfile.RunMetadata, error) {
	g.input = input
	g.runFile = rf

	runID, err := rf.AllocateNewRun()
	if err != nil {
		return nil, fmt.Errorf("rungen: allocate initial run: %w", err)
	}
	startOffset, err := rf.GetAppendOffset()
	if err != nil {
		return nil, fmt.Errorf("rungen: get append offset: %w", err)
	}
	g.currentRunID = runID
	g.currentRunStartOffset = startOffset
	g.totalElementsInRun = 0
	g.generatedRuns = nil

	g.activeIn, g.standbyIn = nil, nil
	g.activeOut, g.standbyOut = nil, nil
	g.activeInIdx = 0
	g.standbyInputReady = false
	g.standbyOutputBusy = false
	g.inputEOF = false
	g.stopThreads = false
	g.workerErr = nil

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error { return g.inputWorker(egCtx) })
	eg.Go(func() error { return g.outputWorker(egCtx) })

	computeErr := g.computeWorker(ctx)

	g.mu.Lock()
	g.stopThreads = true
	g.cvInput.Broadcast()
	g.cvOutput.Broadcast()
	g.mu.Unlock()

	if waitErr := eg.Wait(); waitErr != nil && computeErr == nil {
		computeErr = waitErr
	}
	if computeErr != nil {
		return nil, computeErr
	}
	return g.generatedRuns, nil
}

// pullNextInput returns the next input element, swapping in the standby
// input buffer once the active one is exhausted, and blocking on the input
// worker when neither buffer has data ready. Caller must hold g.mu.
func (g *Generator[T]) pullNextInput() (T, bool) {
	for {
		if g.activeInIdx < len(g.activeIn) {
			v := g.activeIn[g.activeInIdx]
			g.activeInIdx++
			return v, true
		}
		if g.standbyInputReady {
			g.activeIn, g.standbyIn = g.standbyIn, g.activeIn
			g.activeInIdx = 0
			g.standbyInputReady = false
			g.cvInput.Signal()
			continue
		}
		var zero T
		if g.inputEOF || g.stopThreads {
			return zero, false
		}
		g.cvCompute.Wait()
	}
}

// inputWorker fills the standby input buffer from disk whenever the
// compute worker has swapped it out empty.
func (g *Generator[T]) inputWorker(ctx context.Context) error {
	elemSize := g.codec.Size
	raw := make([]byte, g.bufSize*elemSize)

	g.mu.Lock()
	for !g.stopThreads {
		for g.standbyInputReady && !g.stopThreads {
			g.cvInput.Wait()
		}
		if g.stopThreads {
			break
		}
		g.mu.Unlock()

		n, readErr := io.ReadFull(g.input, raw)
		eof := false
		if readErr != nil {
			if errors.Is(readErr, io.EOF) || errors.Is(readErr, io.ErrUnexpectedEOF) {
				eof = true
			} else {
				g.mu.Lock()
				g.workerErr = fmt.Errorf("%w: reading input: %w", ErrIO, readErr)
				g.stopThreads = true
				g.cvCompute.Signal()
				g.mu.Unlock()
				return g.workerErr
			}
		}

		count := n / elemSize
		batch := make([]T, count)
		for i := 0; i < count; i++ {
			batch[i] = g.codec.Decode(raw[i*elemSize : (i+1)*elemSize])
		}

		g.mu.Lock()
		g.standbyIn = batch
		if eof || count == 0 {
			g.inputEOF = true
		}
		g.standbyInputReady = true
		g.cvCompute.Signal()
	}
	g.mu.Unlock()
	return nil
}

// outputWorker flushes the standby output buffer to disk whenever the
// compute worker has swapped it in full.
func (g *Generator[T]) outputWorker(ctx context.Context) error {
	g.mu.Lock()
	for !g.stopThreads {
		for !g.standbyOutputBusy && !g.stopThreads {
			g.cvOutput.Wait()
		}
		if g.stopThreads {
			break
		}
		batch := g.standbyOut
		startOffset := g.currentRunStartOffset
		writeElemOffset := g.totalElementsInRun
		g.mu.Unlock()

		if len(batch) > 0 {
			elemSize := g.codec.Size
			raw := make([]byte, len(batch)*elemSize)
			for i, v := range batch {
				g.codec.Encode(v, raw[i*elemSize:(i+1)*elemSize])
			}
			offset := startOffset + writeElemOffset*int64(elemSize)
			if _, err := g.runFile.File().WriteAt(raw, offset); err != nil {
				g.mu.Lock()
				g.workerErr = fmt.Errorf("%w: writing run data: %w", ErrIO, err)
				g.stopThreads = true
				g.cvCompute.Signal()
				g.mu.Unlock()
				return g.workerErr
			}
		}

		g.mu.Lock()
		if len(batch) > 0 {
			g.totalElementsInRun += int64(len(batch))
		}
		g.standbyOutputBusy = false
		g.cvCompute.Signal()
	}
	g.mu.Unlock()
	return nil
}

// flushOutputLocked swaps the active output buffer to standby for the
// output worker to persist, waiting for any prior flush to finish first.
// Caller must hold g.mu.
func (g *Generator[T]) flushOutputLocked() error {
	for g.standbyOutputBusy && !g.stopThreads {
		g.cvCompute.Wait()
	}
	if g.stopThreads {
		return g.workerErr
	}
	if len(g.activeOut) == 0 {
		return nil
	}
	g.activeOut, g.standbyOut = g.standbyOut, g.activeOut
	g.standbyOutputBusy = true
	g.cvOutput.Signal()
	g.activeOut = g.activeOut[:0]
	return nil
}

// waitForOutputDrainedLocked blocks until any in-flight output flush has
// completed. Caller must hold g.mu.
func (g *Generator[T]) waitForOutputDrainedLocked() error {
	for g.standbyOutputBusy && !g.stopThreads {
		g.cvCompute.Wait()
	}
	if g.stopThreads {
		return g.workerErr
	}
	return nil
}

// computeWorker runs the replacement-selection tournament: it owns g.mu for
// its whole lifetime except while blocked in a condition wait.
func (g *Generator[T]) computeWorker(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	initialData := make([]T, 0, g.k)
	for len(initialData) < g.k {
		v, ok := g.pullNextInput()
		if !ok {
			break
		}
		initialData = append(initialData, v)
	}
	if g.workerErr != nil {
		return g.workerErr
	}
	g.tree.Initialize(initialData)
	currentTreeRunID := 1

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		winner := g.tree.GetWinner()
		if winner.IsSentinel() {
			break
		}

		if winner.RunID > currentTreeRunID {
			if err := g.flushOutputLocked(); err != nil {
				return err
			}
			if err := g.waitForOutputDrainedLocked(); err != nil {
				return err
			}
			if g.totalElementsInRun > 0 {
				if err := g.runFile.UpdateRunMetadata(g.currentRunID, g.currentRunStartOffset, g.totalElementsInRun); err != nil {
					return fmt.Errorf("rungen: update run metadata: %w", err)
				}
				md, err := g.runFile.GetRunMetadata(g.currentRunID)
				if err != nil {
					return fmt.Errorf("rungen: read back run metadata: %w", err)
				}
				g.generatedRuns = append(g.generatedRuns, md)
			}

			newRunID, err := g.runFile.AllocateNewRun()
			if err != nil {
				return fmt.Errorf("rungen: allocate run: %w", err)
			}
			newStart, err := g.runFile.GetAppendOffset()
			if err != nil {
				return fmt.Errorf("rungen: get append offset: %w", err)
			}
			g.currentRunID = newRunID
			g.currentRunStartOffset = newStart
			g.totalElementsInRun = 0
			currentTreeRunID = winner.RunID
		}

		g.activeOut = append(g.activeOut, winner.Value)
		if len(g.activeOut) >= g.bufSize {
			if err := g.flushOutputLocked(); err != nil {
				return err
			}
		}

		next, ok := g.pullNextInput()
		if g.workerErr != nil {
			return g.workerErr
		}
		if !ok {
			g.tree.SetWinnerToSentinel()
		} else {
			newRunID := currentTreeRunID
			if lessThan(next, winner.Value) {
				newRunID = currentTreeRunID + 1
			}
			g.tree.ReplaceWinner(next, newRunID)
		}
	}

	if err := g.waitForOutputDrainedLocked(); err != nil {
		return err
	}
	if len(g.activeOut) > 0 {
		if err := g.flushOutputLocked(); err != nil {
			return err
		}
		if err := g.waitForOutputDrainedLocked(); err != nil {
			return err
		}
	}
	if g.totalElementsInRun > 0 {
		if err := g.runFile.UpdateRunMetadata(g.currentRunID, g.currentRunStartOffset, g.totalElementsInRun); err != nil {
			return fmt.Errorf("rungen: update final run metadata: %w", err)
		}
		md, err := g.runFile.GetRunMetadata(g.currentRunID)
		if err != nil {
			return fmt.Errorf("rungen: read back final run metadata: %w", err)
		}
		g.generatedRuns = append(g.generatedRuns, md)
	}
	return nil
}

func lessThan[T cmp.Ordered](a, b T) bool {
	return a < b
}
