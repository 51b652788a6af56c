package mr

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// TaskStatus represents the status of a chunk.
type TaskStatus int

const (
	Idle TaskStatus = iota
	InProgress
	Completed
)

// Assignment is the scheduler's next instruction for one worker: either
// a chunk to count or, when Stop is set, termination.
type Assignment struct {
	Worker int
	Chunk  Chunk
	Stop   bool
}

// Scheduler is the coordinator's work assignment state in dynamic mode.
// It hands chunks out in order to whichever worker reports completion,
// and stops workers once no chunk is left. It is not safe for concurrent
// use; the coordinator loop owns it.
//
// Workers are numbered from 0; worker w is node w+1 in Stats.
type Scheduler struct {
	chunks  []Chunk
	status  []TaskStatus
	next    int
	active  int
	holding []int // chunk index per worker, -1 when idle
	stopped []bool
	stats   *Stats
}

func NewScheduler(chunks []Chunk, workers int, stats *Stats) *Scheduler {
	s := &Scheduler{
		chunks:  chunks,
		status:  make([]TaskStatus, len(chunks)),
		holding: make([]int, workers),
		stopped: make([]bool, workers),
		stats:   stats,
	}
	for w := range s.holding {
		s.holding[w] = -1
	}
	total := 0
	for _, c := range chunks {
		total += c.Bytes()
	}
	stats.start(total, len(chunks))
	return s
}

// Prime returns the first instruction for every worker. Workers beyond
// the number of chunks are stopped straight away.
func (s *Scheduler) Prime() []Assignment {
	out := make([]Assignment, 0, len(s.holding))
	for w := range s.holding {
		if s.next < len(s.chunks) {
			out = append(out, s.assign(w))
			s.active++
		} else {
			out = append(out, s.stop(w))
		}
	}
	return out
}

// Complete records that worker finished chunkID and returns what that
// worker does next.
func (s *Scheduler) Complete(worker, chunkID int) (Assignment, error) {
	if worker < 0 || worker >= len(s.holding) {
		return Assignment{}, fmt.Errorf("%w: unknown worker %d", ErrProtocol, worker)
	}
	held := s.holding[worker]
	if held < 0 || s.chunks[held].ID != chunkID {
		return Assignment{}, fmt.Errorf("%w: worker %d reported chunk %d it does not hold", ErrProtocol, worker, chunkID)
	}
	s.status[held] = Completed
	s.holding[worker] = -1
	s.stats.complete(worker+1, s.chunks[held].Bytes())

	if s.next < len(s.chunks) {
		return s.assign(worker), nil
	}
	s.active--
	return s.stop(worker), nil
}

func (s *Scheduler) assign(worker int) Assignment {
	c := s.chunks[s.next]
	s.status[s.next] = InProgress
	s.holding[worker] = s.next
	s.next++
	s.stats.assign(worker+1, c.Bytes())
	logrus.WithFields(logrus.Fields{
		"chunk":  c.ID,
		"bytes":  c.Bytes(),
		"worker": worker + 1,
	}).Debug("Assigned chunk to worker")
	return Assignment{Worker: worker, Chunk: c}
}

func (s *Scheduler) stop(worker int) Assignment {
	s.stopped[worker] = true
	logrus.WithField("worker", worker+1).Debug("No chunks left, stopping worker")
	return Assignment{Worker: worker, Stop: true}
}

// Drained reports whether every worker has been stopped.
func (s *Scheduler) Drained() bool { return s.active == 0 }

// Stopped reports whether worker was sent STOP.
func (s *Scheduler) Stopped(worker int) bool { return s.stopped[worker] }

// Status returns the state of the chunk with the given id.
func (s *Scheduler) Status(chunkID int) TaskStatus { return s.status[chunkID] }
