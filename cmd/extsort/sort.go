// Copyright (c) 2025 Daniar Achakeev
// This source code is licensed under the MIT license found in the LICENSE.txt file in the root directory of this source tree.

package main

import (
	"context"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/runsort/extsort"
	"github.com/runsort/extsort/iobuf"
	"github.com/runsort/extsort/runfile"
)

func newSortCmd() *cobra.Command {
	var inPath, runFilePath string
	var k, bufferSize int
	var maxRuns int32
	var count int64

	cmd := &cobra.Command{
		Use:   "sort",
		Short: "External-sort a file of int32 values into a run file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSort(inPath, runFilePath, k, bufferSize, maxRuns, count)
		},
	}
	cmd.Flags().StringVar(&inPath, "in", "input.bin", "input file of packed big-endian int32 values")
	cmd.Flags().StringVar(&runFilePath, "out", "sorted.runs", "output run file path")
	cmd.Flags().IntVar(&k, "k", 1024*1024, "replacement-selection tournament size")
	cmd.Flags().IntVar(&bufferSize, "buffer-size", 1024, "I/O buffer size in elements")
	cmd.Flags().Int32Var(&maxRuns, "max-runs", 0, "run file directory capacity (0 = auto-size from --count and --k)")
	cmd.Flags().Int64Var(&count, "count", 0, "expected input element count, used to auto-size --max-runs")
	return cmd
}

func runSort(inPath, runFilePath string, k, bufferSize int, maxRuns int32, count int64) error {
	in, err := os.Open(inPath)
	if err != nil {
		return err
	}
	defer in.Close()

	if maxRuns == 0 {
		if count == 0 {
			if info, statErr := in.Stat(); statErr == nil {
				count = info.Size() / 4
			}
		}
		maxRuns = runfile.RecommendedMaxRuns(count, int64(k))
	}

	cfg := extsort.Config[int32]{
		K:             k,
		BufferSize:    bufferSize,
		MaxRuns:       maxRuns,
		Codec:         iobuf.Int32Codec,
		SentinelValue: math.MaxInt32,
		Logger:        slog.Default(),
	}

	start := time.Now()
	result, err := extsort.Sort[int32](context.Background(), runFilePath, in, cfg)
	if err != nil {
		return err
	}
	defer result.RunFile.Close()

	slog.Info("sort finished",
		"runs_generated", result.RunCount,
		"final_start_offset", result.Final.StartOffset,
		"final_elements", humanize.Comma(result.Final.ElementCount),
		"total_duration", time.Since(start))
	return nil
}
