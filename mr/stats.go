package mr

import "sync"

// Stats holds the progress counters polled by the dashboard. Nodes are
// indexed by rank; rank 0 is the coordinator.
type Stats struct {
	mu          sync.Mutex
	totalBytes  int
	assigned    []int
	completed   []int
	dispatched  int
	totalChunks int
}

// Snapshot is a consistent copy of Stats.
type Snapshot struct {
	TotalBytes  int
	Assigned    []int
	Completed   []int
	Dispatched  int
	TotalChunks int
}

func NewStats(nodes int) *Stats {
	return &Stats{
		assigned:  make([]int, nodes),
		completed: make([]int, nodes),
	}
}

func (s *Stats) start(totalBytes, totalChunks int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalBytes = totalBytes
	s.totalChunks = totalChunks
}

func (s *Stats) assign(node, bytes int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assigned[node] += bytes
	s.dispatched++
}

func (s *Stats) complete(node, bytes int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completed[node] += bytes
}

func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		TotalBytes:  s.totalBytes,
		Assigned:    append([]int(nil), s.assigned...),
		Completed:   append([]int(nil), s.completed...),
		Dispatched:  s.dispatched,
		TotalChunks: s.totalChunks,
	}
}

// Done returns the number of completed bytes over all nodes.
func (sn Snapshot) Done() int {
	done := 0
	for _, b := range sn.Completed {
		done += b
	}
	return done
}

// Progress returns the completed fraction of the input in [0, 1].
func (sn Snapshot) Progress() float64 {
	if sn.TotalBytes == 0 {
		return 0
	}
	return float64(sn.Done()) / float64(sn.TotalBytes)
}
