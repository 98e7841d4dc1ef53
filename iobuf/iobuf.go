// Copyright (c) 2025 Daniar Achakeev
// This source code is licensed under the MIT license found in the LICENSE.txt file in the root directory of this source tree.

// Package iobuf provides block-buffered sequential readers and writers over
// a single run's region of a runfile.RunFile: InputBuffer streams a run's
// elements in order, OutputBuffer accumulates elements and flushes them in
// blocks. Both avoid a syscall per element by batching bufferSize elements
// at a time, mirroring the fixed-size record block buffering the rest of
// this module's ancestry uses for temp-file I/O.
package iobuf

import (
	"cmp"
	"fmt"
	"io"

	"github.com/runsort/extsort/runfile"
	"github.com/runsort/extsort/utils"
)

// Codec describes how to turn a fixed-width element of type T into its
// on-disk byte representation and back. Size must equal len(Encode(v)) for
// every v.
type Codec[T cmp.Ordered] struct {
	Size   int
	Encode func(v T, dst []byte)
	Decode func(src []byte) T
}

// InputBuffer streams the elements of a single run in order, refilling its
// in-memory block from disk only when exhausted.
type InputBuffer[T cmp.Ordered] struct {
	file  io.ReaderAt
	meta  runfile.RunMetadata
	codec Codec[T]

	bufferSizeElements int
	buffer             []byte
	currentIndex       int
	elementsInBuffer   int
	totalElementsRead  int64
}

// NewInputBuffer creates a buffer reading meta's elements from file, in
// blocks of bufferSizeElements.
func NewInputBuffer[T cmp.Ordered](file io.ReaderAt, meta runfile.RunMetadata, bufferSizeElements int, codec Codec[T]) *InputBuffer[T] {
	if bufferSizeElements <= 0 {
		bufferSizeElements = 1
	}
	return &InputBuffer[T]{
		file:               file,
		meta:               meta,
		codec:              codec,
		bufferSizeElements: bufferSizeElements,
		buffer:             make([]byte, bufferSizeElements*codec.Size),
	}
}

// readBlock refills the in-memory buffer from disk. It returns false when
// the run has no more elements to read.
func (b *InputBuffer[T]) readBlock() (bool, error) {
	if b.totalElementsRead >= b.meta.ElementCount {
		return false, nil
	}
	remaining := b.meta.ElementCount - b.totalElementsRead
	toRead := int64(b.bufferSizeElements)
	if remaining < toRead {
		toRead = remaining
	}
	if toRead <= 0 {
		return false, nil
	}
	byteLen := int(toRead) * b.codec.Size
	readOffset := b.meta.StartOffset + b.totalElementsRead*int64(b.codec.Size)
	n, err := b.file.ReadAt(b.buffer[:byteLen], readOffset)
	if err != nil {
		return false, fmt.Errorf("iobuf: read block: %w", err)
	}
	if n != byteLen {
		return false, fmt.Errorf("iobuf: short read: got %d want %d", n, byteLen)
	}
	b.elementsInBuffer = int(toRead)
	b.totalElementsRead += toRead
	b.currentIndex = 0
	return true, nil
}

// GetNextItem returns the next element of the run. The second return value
// is false once the run is exhausted.
func (b *InputBuffer[T]) GetNextItem() (T, bool, error) {
	if b.currentIndex >= b.elementsInBuffer {
		ok, err := b.readBlock()
		if err != nil {
			return utils.Zero[T](), false, err
		}
		if !ok {
			return utils.Zero[T](), false, nil
		}
	}
	start := b.currentIndex * b.codec.Size
	item := b.codec.Decode(b.buffer[start : start+b.codec.Size])
	b.currentIndex++
	return item, true, nil
}

// OutputBuffer accumulates elements for a single run and flushes them to
// disk in blocks, tracking how many elements have been written so far.
type OutputBuffer[T cmp.Ordered] struct {
	file  io.WriterAt
	codec Codec[T]

	runStartOffset       int64
	bufferSizeElements   int
	buffer               []byte
	currentIndex         int
	totalElementsWritten int64
}

// NewOutputBuffer creates a buffer that will append a new run's elements to
// file starting at startOffset, flushing every bufferSizeElements elements.
func NewOutputBuffer[T cmp.Ordered](file io.WriterAt, startOffset int64, bufferSizeElements int, codec Codec[T]) *OutputBuffer[T] {
	if bufferSizeElements <= 0 {
		bufferSizeElements = 1
	}
	return &OutputBuffer[T]{
		file:               file,
		codec:              codec,
		runStartOffset:     startOffset,
		bufferSizeElements: bufferSizeElements,
		buffer:             make([]byte, bufferSizeElements*codec.Size),
	}
}

func (b *OutputBuffer[T]) writeBlock() error {
	if b.currentIndex == 0 {
		return nil
	}
	byteLen := b.currentIndex * b.codec.Size
	writeOffset := b.runStartOffset + b.totalElementsWritten*int64(b.codec.Size)
	if _, err := b.file.WriteAt(b.buffer[:byteLen], writeOffset); err != nil {
		return fmt.Errorf("iobuf: write block: %w", err)
	}
	b.totalElementsWritten += int64(b.currentIndex)
	b.currentIndex = 0
	return nil
}

// SetNextItem appends item to the buffer, flushing to disk if the buffer
// fills up.
func (b *OutputBuffer[T]) SetNextItem(item T) error {
	start := b.currentIndex * b.codec.Size
	b.codec.Encode(item, b.buffer[start:start+b.codec.Size])
	b.currentIndex++
	if b.currentIndex == b.bufferSizeElements {
		return b.writeBlock()
	}
	return nil
}

// Flush writes any buffered-but-unwritten elements to disk.
func (b *OutputBuffer[T]) Flush() error {
	return b.writeBlock()
}

// ElementCount returns the total number of elements handed to SetNextItem
// so far, including any still sitting in the in-memory buffer.
func (b *OutputBuffer[T]) ElementCount() int64 {
	return b.totalElementsWritten + int64(b.currentIndex)
}
