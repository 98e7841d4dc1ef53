package losertree

import (
	"math"
	"math/rand"
	"testing"
)

func sentinelInt32() RunNode[int32] {
	return Sentinel[int32](math.MaxInt32)
}

func drainNaive(data []int32, runIDs []int) []int32 {
	n := len(data)
	data = append([]int32(nil), data...)
	runIDs = append([]int(nil), runIDs...)
	alive := make([]bool, n)
	for i := range alive {
		alive[i] = true
	}
	var out []int32
	for {
		best := -1
		for i := 0; i < n; i++ {
			if !alive[i] {
				continue
			}
			if best == -1 {
				best = i
				continue
			}
			if runIDs[i] != runIDs[best] {
				if runIDs[i] < runIDs[best] {
					best = i
				}
				continue
			}
			if data[i] < data[best] {
				best = i
			}
		}
		if best == -1 {
			return out
		}
		out = append(out, data[best])
		alive[best] = false
	}
}

func TestTreeEquivalentToNaiveLinearScan(t *testing.T) {
	data := []int32{3, 1, 4, 1, 5, 9, 2, 6}
	runIDs := make([]int, len(data))
	for i := range runIDs {
		runIDs[i] = 1
	}

	tree := New[int32](len(data), sentinelInt32())
	tree.Initialize(data)

	var got []int32
	for {
		w := tree.GetWinner()
		if w.IsSentinel() {
			break
		}
		got = append(got, w.Value)
		tree.SetWinnerToSentinel()
	}

	want := drainNaive(data, runIDs)
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d want %d", len(got), len(want))
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("mismatch at %d: got %d want %d", i, got[i], want[i])
		}
	}
}

func TestTreeReplacementSelectionAssignsRunIDs(t *testing.T) {
	// strictly decreasing input forces every replacement into the next run
	data := []int32{5, 4, 3, 2, 1}
	tree := New[int32](3, sentinelInt32())
	tree.Initialize(data[:3])

	idx := 3
	currentRunID := 1
	var out []RunNode[int32]
	for {
		winner := tree.GetWinner()
		if winner.IsSentinel() {
			break
		}
		out = append(out, winner)
		if idx < len(data) {
			v := data[idx]
			idx++
			newRunID := currentRunID
			if v < winner.Value {
				newRunID = currentRunID + 1
			}
			tree.ReplaceWinner(v, newRunID)
			if newRunID > currentRunID {
				currentRunID = newRunID
			}
		} else {
			tree.SetWinnerToSentinel()
		}
	}
	if len(out) != len(data) {
		t.Fatalf("expected %d outputs, got %d", len(data), len(out))
	}
	// every element should appear exactly once across runs
	seen := map[int32]int{}
	for _, n := range out {
		seen[n.Value]++
	}
	for _, v := range data {
		if seen[v] == 0 {
			t.Fatalf("value %d missing from output", v)
		}
		seen[v]--
	}
}

func TestTreeRandomPermutationConservesCount(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	n := 200
	data := make([]int32, n)
	for i := range data {
		data[i] = int32(r.Intn(1000))
	}
	k := 16
	tree := New[int32](k, sentinelInt32())
	tree.Initialize(data[:k])
	idx := k
	count := 0
	for {
		w := tree.GetWinner()
		if w.IsSentinel() {
			break
		}
		count++
		if idx < len(data) {
			tree.ReplaceWinner(data[idx], 1)
			idx++
		} else {
			tree.SetWinnerToSentinel()
		}
	}
	if count != n {
		t.Fatalf("expected %d elements drained, got %d", n, count)
	}
}
