// Copyright (c) 2025 Daniar Achakeev
// This source code is licensed under the MIT license found in the LICENSE.txt file in the root directory of this source tree.

package main

import (
	"fmt"
	"log/slog"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/runsort/extsort/iobuf"
	"github.com/runsort/extsort/runfile"
)

func newVerifyCmd() *cobra.Command {
	var runFilePath string
	var startOffset, elementCount int64

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check that a run's elements are in non-decreasing order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(runFilePath, startOffset, elementCount)
		},
	}
	cmd.Flags().StringVar(&runFilePath, "run-file", "sorted.runs", "run file path")
	cmd.Flags().Int64Var(&startOffset, "start-offset", 0, "start offset of the run to verify (as printed by 'sort')")
	cmd.Flags().Int64Var(&elementCount, "count", 0, "element count of the run to verify (as printed by 'sort')")
	cmd.MarkFlagRequired("count")
	return cmd
}

func runVerify(runFilePath string, startOffset, elementCount int64) error {
	rf, err := runfile.Open(runFilePath)
	if err != nil {
		return err
	}
	defer rf.Close()

	meta := runfile.RunMetadata{StartOffset: startOffset, ElementCount: elementCount, IsUsed: true}
	in := iobuf.NewInputBuffer[int32](rf.File(), meta, 4096, iobuf.Int32Codec)

	var prev int32
	var havePrev bool
	var n int64
	for {
		v, ok, err := in.GetNextItem()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		if havePrev && v < prev {
			return fmt.Errorf("verify: run is not sorted at element %d: %d followed by %d", n, prev, v)
		}
		prev = v
		havePrev = true
		n++
	}
	if n != elementCount {
		return fmt.Errorf("verify: expected %d elements, read %d", elementCount, n)
	}
	slog.Info("run verified sorted", "elements", humanize.Comma(n))
	return nil
}
