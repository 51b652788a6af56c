package mr

import (
	"errors"
	"math/rand"
	"testing"
)

func makeChunks(sizes ...int) []Chunk {
	chunks := make([]Chunk, len(sizes))
	off := 0
	for i, n := range sizes {
		chunks[i] = Chunk{ID: i, Start: off, End: off + n}
		off += n
	}
	return chunks
}

// drive runs the scheduler to its drained state, completing the work of a
// randomly chosen busy worker each step.
func drive(t *testing.T, chunks []Chunk, workers int, seed int64) (*Scheduler, *Stats, map[int]int, []int) {
	t.Helper()
	r := rand.New(rand.NewSource(seed))
	stats := NewStats(workers + 1)
	s := NewScheduler(chunks, workers, stats)

	holding := map[int]int{}
	stops := make([]int, workers)
	done := map[int]int{}
	apply := func(a Assignment) {
		if a.Stop {
			stops[a.Worker]++
			return
		}
		holding[a.Worker] = a.Chunk.ID
	}
	for _, a := range s.Prime() {
		apply(a)
	}
	for !s.Drained() {
		busy := make([]int, 0, len(holding))
		for w := range holding {
			busy = append(busy, w)
		}
		if len(busy) == 0 {
			t.Fatalf("scheduler not drained but no worker holds a chunk")
		}
		w := busy[r.Intn(len(busy))]
		id := holding[w]
		delete(holding, w)
		done[id]++
		next, err := s.Complete(w, id)
		if err != nil {
			t.Fatalf("Complete(%d, %d): %v", w, id, err)
		}
		apply(next)
	}
	return s, stats, done, stops
}

func TestSchedulerDrains(t *testing.T) {
	for seed := int64(0); seed < 50; seed++ {
		r := rand.New(rand.NewSource(seed))
		sizes := make([]int, 1+r.Intn(30))
		total := 0
		for i := range sizes {
			sizes[i] = r.Intn(100)
			total += sizes[i]
		}
		workers := 1 + r.Intn(8)
		chunks := makeChunks(sizes...)

		s, stats, done, stops := drive(t, chunks, workers, seed)
		for id := range chunks {
			if done[id] != 1 {
				t.Fatalf("seed %d: chunk %d completed %d times", seed, id, done[id])
			}
			if s.Status(id) != Completed {
				t.Fatalf("seed %d: chunk %d status %v", seed, id, s.Status(id))
			}
		}
		for w, n := range stops {
			if n != 1 {
				t.Fatalf("seed %d: worker %d got %d STOPs", seed, w, n)
			}
		}
		snap := stats.Snapshot()
		if snap.Done() != total || snap.TotalBytes != total {
			t.Fatalf("seed %d: completed %d of %d bytes", seed, snap.Done(), total)
		}
		if snap.Dispatched != len(chunks) || snap.TotalChunks != len(chunks) {
			t.Fatalf("seed %d: dispatched %d/%d chunks", seed, snap.Dispatched, snap.TotalChunks)
		}
		if snap.Assigned[0] != 0 || snap.Completed[0] != 0 {
			t.Fatalf("seed %d: coordinator should not be assigned work", seed)
		}
		for node := 1; node <= workers; node++ {
			if snap.Assigned[node] != snap.Completed[node] {
				t.Fatalf("seed %d: node %d assigned %d completed %d", seed, node, snap.Assigned[node], snap.Completed[node])
			}
		}
	}
}

func TestSchedulerMoreWorkersThanChunks(t *testing.T) {
	s := NewScheduler(makeChunks(5, 5), 4, NewStats(5))
	prime := s.Prime()
	if len(prime) != 4 {
		t.Fatalf("Prime: got %d assignments; expected 4", len(prime))
	}
	for i, a := range prime {
		if stop := i >= 2; a.Stop != stop || a.Worker != i {
			t.Fatalf("Prime[%d] = %+v", i, a)
		}
	}
	if s.Drained() {
		t.Fatalf("drained with two chunks outstanding")
	}
}

func TestSchedulerFirstFinisherGetsNextChunk(t *testing.T) {
	s := NewScheduler(makeChunks(1, 1, 1, 1), 2, NewStats(3))
	s.Prime()
	next, err := s.Complete(1, 1)
	if err != nil || next.Stop || next.Worker != 1 || next.Chunk.ID != 2 {
		t.Fatalf("Complete(1, 1) = %+v, %v; expected chunk 2 for worker 1", next, err)
	}
	next, err = s.Complete(1, 2)
	if err != nil || next.Chunk.ID != 3 {
		t.Fatalf("Complete(1, 2) = %+v, %v; expected chunk 3", next, err)
	}
	if next, _ := s.Complete(0, 0); !next.Stop {
		t.Fatalf("worker 0 should be stopped once the queue is empty, got %+v", next)
	}
	if s.Drained() {
		t.Fatalf("drained while worker 1 holds chunk 3")
	}
	if next, _ := s.Complete(1, 3); !next.Stop || !s.Drained() {
		t.Fatalf("expected final stop and drained state, got %+v", next)
	}
}

func TestSchedulerRejectsUnknownChunk(t *testing.T) {
	s := NewScheduler(makeChunks(1, 1), 1, NewStats(2))
	s.Prime()
	if _, err := s.Complete(0, 1); !errors.Is(err, ErrProtocol) {
		t.Fatalf("completing an unheld chunk: got %v; expected ErrProtocol", err)
	}
	if _, err := s.Complete(3, 0); !errors.Is(err, ErrProtocol) {
		t.Fatalf("unknown worker: got %v; expected ErrProtocol", err)
	}
}
