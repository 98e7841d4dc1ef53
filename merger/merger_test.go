package merger

import (
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/runsort/extsort/iobuf"
	"github.com/runsort/extsort/runfile"
)

func writeRun(t *testing.T, rf *runfile.RunFile, values []int32) runfile.RunMetadata {
	t.Helper()
	id, err := rf.AllocateNewRun()
	require.NoError(t, err)
	start, err := rf.GetAppendOffset()
	require.NoError(t, err)
	out := iobuf.NewOutputBuffer[int32](rf.File(), start, 4, iobuf.Int32Codec)
	for _, v := range values {
		require.NoError(t, out.SetNextItem(v))
	}
	require.NoError(t, out.Flush())
	require.NoError(t, rf.UpdateRunMetadata(id, start, out.ElementCount()))
	md, err := rf.GetRunMetadata(id)
	require.NoError(t, err)
	return md
}

func readRun(t *testing.T, rf *runfile.RunFile, md runfile.RunMetadata) []int32 {
	t.Helper()
	in := iobuf.NewInputBuffer[int32](rf.File(), md, 4, iobuf.Int32Codec)
	var out []int32
	for {
		v, ok, err := in.GetNextItem()
		require.NoError(t, err)
		if !ok {
			break
		}
		out = append(out, v)
	}
	return out
}

func TestMergeInMemTwoSortedRuns(t *testing.T) {
	dir := t.TempDir()
	rf, err := runfile.Create(filepath.Join(dir, "data.runs"), 16)
	require.NoError(t, err)
	defer rf.Close()

	m := New[int32](rf, Config[int32]{Codec: iobuf.Int32Codec, BufferSize: 4})

	runA := writeRun(t, rf, []int32{1, 3, 5, 7})
	runB := writeRun(t, rf, []int32{2, 4, 6, 8})

	merged, err := m.MergeInMem(runA, runB)
	require.NoError(t, err)
	require.Equal(t, int64(8), merged.ElementCount)

	got := readRun(t, rf, merged)
	require.True(t, slices.IsSorted(got))
	require.ElementsMatch(t, []int32{1, 2, 3, 4, 5, 6, 7, 8}, got)
}

func TestExternalMergeSortOfManyRuns(t *testing.T) {
	dir := t.TempDir()
	rf, err := runfile.Create(filepath.Join(dir, "data.runs"), 64)
	require.NoError(t, err)
	defer rf.Close()

	m := New[int32](rf, Config[int32]{Codec: iobuf.Int32Codec, BufferSize: 3})

	runs := []runfile.RunMetadata{
		writeRun(t, rf, []int32{9, 10}),
		writeRun(t, rf, []int32{1, 2, 3, 4, 5}),
		writeRun(t, rf, []int32{6}),
		writeRun(t, rf, []int32{7, 8, 11, 12}),
	}

	final, err := m.ExternalMergeSort(runs)
	require.NoError(t, err)
	require.Equal(t, int64(12), final.ElementCount)

	got := readRun(t, rf, final)
	require.True(t, slices.IsSorted(got))
	require.Len(t, got, 12)
}

func TestExternalMergeSortSingleRunIsNoop(t *testing.T) {
	dir := t.TempDir()
	rf, err := runfile.Create(filepath.Join(dir, "data.runs"), 4)
	require.NoError(t, err)
	defer rf.Close()

	m := New[int32](rf, Config[int32]{Codec: iobuf.Int32Codec, BufferSize: 4})
	run := writeRun(t, rf, []int32{1, 2, 3})

	final, err := m.ExternalMergeSort([]runfile.RunMetadata{run})
	require.NoError(t, err)
	require.Equal(t, run, final)
}

func TestExternalMergeSortNoRuns(t *testing.T) {
	dir := t.TempDir()
	rf, err := runfile.Create(filepath.Join(dir, "data.runs"), 4)
	require.NoError(t, err)
	defer rf.Close()

	m := New[int32](rf, Config[int32]{Codec: iobuf.Int32Codec, BufferSize: 4})
	_, err = m.ExternalMergeSort(nil)
	require.ErrorIs(t, err, ErrNoRuns)
}
