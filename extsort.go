// Copyright (c) 2025 Daniar Achakeev
// This source code is licensed under the MIT license found in the LICENSE.txt file in the root directory of this source tree.

// Package extsort orchestrates external merge sort of a fixed-width
// totally-ordered element type: it owns a runfile.RunFile, drives
// rungen.Generator to produce sorted runs from an input stream, and hands
// those runs to merger.Merger to fold into a single sorted run.
package extsort

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/runsort/extsort/iobuf"
	"github.com/runsort/extsort/merger"
	"github.com/runsort/extsort/rungen"
	"github.com/runsort/extsort/runfile"
)

// ErrInputOpen is returned when the caller-supplied input is nil. Any
// failure reading from a non-nil input, including on its first read,
// surfaces as rungen.ErrIO.
var ErrInputOpen = errors.New("extsort: cannot open input")

// Config configures a full run-generation-plus-merge sort.
type Config[T cmp.Ordered] struct {
	// K is the replacement-selection tournament size: the number of
	// elements of in-memory working set devoted to run generation.
	K int
	// BufferSize is the number of elements buffered per disk read/write
	// throughout both run generation and merging.
	BufferSize int
	// MaxRuns sizes the run file's directory. Use runfile.RecommendedMaxRuns
	// to compute a safe value from the expected input size and K.
	MaxRuns int32
	// Codec encodes/decodes T to/from its on-disk fixed-width
	// representation.
	Codec iobuf.Codec[T]
	// SentinelValue is the maximum representable value of T.
	SentinelValue T
	// Logger receives phase-level progress. A discarding logger is used
	// if nil.
	Logger *slog.Logger
}

// Result is the outcome of a completed Sort: the run file holding every
// run produced (including the final sorted one) and that final run's
// metadata. The caller owns RunFile and must Close it.
type Result struct {
	RunFile  *runfile.RunFile
	Final    runfile.RunMetadata
	RunCount int
}

// Sort creates a new run file at runFilePath, generates sorted runs from
// input, and merges them via an optimal two-way merge schedule into a
// single sorted run.
func Sort[T cmp.Ordered](ctx context.Context, runFilePath string, input io.Reader, cfg Config[T]) (*Result, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if input == nil {
		return nil, fmt.Errorf("%w: input is nil", ErrInputOpen)
	}

	rf, err := runfile.Create(runFilePath, cfg.MaxRuns)
	if err != nil {
		return nil, fmt.Errorf("extsort: create run file: %w", err)
	}

	genStart := time.Now()
	gen := rungen.New[T](rungen.Config[T]{
		K:             cfg.K,
		BufferSize:    cfg.BufferSize,
		Codec:         cfg.Codec,
		SentinelValue: cfg.SentinelValue,
	})
	runs, err := gen.GenerateRuns(ctx, input, rf)
	if err != nil {
		rf.Close()
		return nil, fmt.Errorf("extsort: generate runs: %w", err)
	}
	logger.Info("run generation completed",
		"runs", len(runs),
		"duration", time.Since(genStart))

	if len(runs) == 0 {
		return &Result{RunFile: rf, Final: runfile.RunMetadata{}, RunCount: 0}, nil
	}

	mergeStart := time.Now()
	mg := merger.New[T](rf, merger.Config[T]{Codec: cfg.Codec, BufferSize: cfg.BufferSize})
	final, err := mg.ExternalMergeSort(runs)
	if err != nil {
		rf.Close()
		return nil, fmt.Errorf("extsort: merge runs: %w", err)
	}
	logger.Info("merge completed",
		"elements", final.ElementCount,
		"duration", time.Since(mergeStart))

	return &Result{RunFile: rf, Final: final, RunCount: len(runs)}, nil
}
