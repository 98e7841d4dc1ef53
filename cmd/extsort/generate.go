// Copyright (c) 2025 Daniar Achakeev
// This source code is licensed under the MIT license found in the LICENSE.txt file in the root directory of this source tree.

package main

import (
	"bufio"
	"encoding/binary"
	"log/slog"
	"math/rand"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newGenerateCmd() *cobra.Command {
	var count int64
	var seed int64
	var outPath string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a file of random int32 values to sort",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(outPath, count, seed)
		},
	}
	cmd.Flags().Int64Var(&count, "count", 1_000_000, "number of int32 elements to write")
	cmd.Flags().Int64Var(&seed, "seed", 1, "PRNG seed")
	cmd.Flags().StringVar(&outPath, "out", "input.bin", "output file path")
	cmd.MarkFlagRequired("out")
	return cmd
}

func runGenerate(outPath string, count, seed int64) error {
	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriterSize(f, 1<<20)
	r := rand.New(rand.NewSource(seed))
	var buf [4]byte
	for i := int64(0); i < count; i++ {
		binary.BigEndian.PutUint32(buf[:], uint32(r.Int31()))
		if _, err := w.Write(buf[:]); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	slog.Info("generated input file",
		"path", outPath,
		"elements", humanize.Comma(count),
		"bytes", humanize.Bytes(uint64(count*4)))
	return nil
}
