package iobuf

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/runsort/extsort/runfile"
)

func TestOutputBufferThenInputBufferRoundTrip(t *testing.T) {
	dir := t.TempDir()
	rf, err := runfile.Create(filepath.Join(dir, "data.runs"), 4)
	require.NoError(t, err)
	defer rf.Close()

	runID, err := rf.AllocateNewRun()
	require.NoError(t, err)
	start, err := rf.GetAppendOffset()
	require.NoError(t, err)

	data := []int32{7, 2, 9, 4, 1, 6, 3, 8, 5, 0}
	out := NewOutputBuffer[int32](rf.File(), start, 3, Int32Codec)
	for _, v := range data {
		require.NoError(t, out.SetNextItem(v))
	}
	require.NoError(t, out.Flush())
	require.Equal(t, int64(len(data)), out.ElementCount())

	require.NoError(t, rf.UpdateRunMetadata(runID, start, out.ElementCount()))
	meta, err := rf.GetRunMetadata(runID)
	require.NoError(t, err)

	in := NewInputBuffer[int32](rf.File(), meta, 4, Int32Codec)
	var got []int32
	for {
		v, ok, err := in.GetNextItem()
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, v)
	}
	require.Equal(t, data, got)
}

func TestInputBufferOnEmptyRun(t *testing.T) {
	dir := t.TempDir()
	rf, err := runfile.Create(filepath.Join(dir, "data.runs"), 2)
	require.NoError(t, err)
	defer rf.Close()

	runID, err := rf.AllocateNewRun()
	require.NoError(t, err)
	start, err := rf.GetAppendOffset()
	require.NoError(t, err)
	require.NoError(t, rf.UpdateRunMetadata(runID, start, 0))
	meta, err := rf.GetRunMetadata(runID)
	require.NoError(t, err)

	in := NewInputBuffer[int32](rf.File(), meta, 8, Int32Codec)
	_, ok, err := in.GetNextItem()
	require.NoError(t, err)
	require.False(t, ok)
}
