package mr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"wordfreq/wc"
)

// Result is what a finished run hands to the presentation layer.
type Result struct {
	Mode       Mode
	Top        []wc.Entry
	Counts     wc.Counter
	Elapsed    time.Duration
	Digest     uint64 // xxh3 of the corpus
	TotalBytes int
	Stats      Snapshot
}

// Coordinator is node 0. It owns the corpus and the partitioning, and
// talks to workers 1..N-1 through their connections.
type Coordinator struct {
	cfg     Config
	workers []*Conn
	stats   *Stats

	closeOnce sync.Once
	closeErr  error
}

// NewCoordinator creates a coordinator for the given worker connections.
// The node count is len(workers)+1; stats may be nil.
func NewCoordinator(cfg Config, workers []*Conn, stats *Stats) *Coordinator {
	if stats == nil {
		stats = NewStats(len(workers) + 1)
	}
	return &Coordinator{cfg: cfg, workers: workers, stats: stats}
}

func (c *Coordinator) Stats() *Stats { return c.stats }

// Close closes every worker connection.
func (c *Coordinator) Close() error {
	c.closeOnce.Do(func() {
		var errs []error
		for _, conn := range c.workers {
			if err := conn.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		c.closeErr = errors.Join(errs...)
	})
	return c.closeErr
}

// Run counts buf across the cluster and returns the merged Top-K. The
// worker connections are closed when Run returns. Cancelling ctx closes
// them early, which unblocks every pending send and receive.
func (c *Coordinator) Run(ctx context.Context, buf []byte) (*Result, error) {
	defer c.Close()
	if c.cfg.Mode == Dynamic && len(c.workers) < 1 {
		return nil, ErrInsufficientNodes
	}
	stop := context.AfterFunc(ctx, func() { c.Close() })
	defer stop()

	logrus.WithFields(logrus.Fields{
		"mode":    c.cfg.Mode,
		"nodes":   len(c.workers) + 1,
		"threads": c.cfg.Threads,
		"bytes":   len(buf),
	}).Info("Starting run")

	start := time.Now()
	var (
		counts wc.Counter
		err    error
	)
	switch c.cfg.Mode {
	case Static:
		counts, err = c.runStatic(buf)
	case Dynamic:
		counts, err = c.runDynamic(ctx, buf)
	default:
		err = fmt.Errorf("%w: unknown mode %q", ErrInvalidConfig, c.cfg.Mode)
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.Join(ctx.Err(), err)
		}
		return nil, err
	}

	res := &Result{
		Mode:       c.cfg.Mode,
		Top:        wc.TopK(counts, c.cfg.TopN),
		Counts:     counts,
		Elapsed:    time.Since(start),
		Digest:     Digest(buf),
		TotalBytes: len(buf),
		Stats:      c.stats.Snapshot(),
	}
	logrus.WithFields(logrus.Fields{
		"mode":    res.Mode,
		"words":   len(counts),
		"elapsed": res.Elapsed,
	}).Info("Run completed")
	return res, nil
}

// runStatic sends every worker one whitespace-aligned range, counts the
// coordinator's own range meanwhile and merges all partial counters.
func (c *Coordinator) runStatic(buf []byte) (wc.Counter, error) {
	ranges := Partition(buf, len(c.workers)+1)
	c.stats.start(len(buf), len(ranges))

	for w, conn := range c.workers {
		r := ranges[w+1]
		if err := conn.Send(Message{Kind: KindWork, ID: w + 1, Payload: buf[r.Offset:r.End()]}); err != nil {
			return nil, fmt.Errorf("scatter to node %d: %w", w+1, err)
		}
		c.stats.assign(w+1, r.Size)
	}

	own := ranges[0]
	c.stats.assign(0, own.Size)
	global := wc.CountParallel(buf[own.Offset:own.End()], c.cfg.Threads)
	c.stats.complete(0, own.Size)

	for w, conn := range c.workers {
		node := w + 1
		m, err := conn.Recv()
		if err != nil {
			return nil, fmt.Errorf("gather from node %d: %w", node, err)
		}
		if m.Kind != KindDone || m.ID != node {
			return nil, fmt.Errorf("%w: node %d sent %s for %d", ErrProtocol, node, m.Kind, m.ID)
		}
		if err := mergePayload(global, m.Payload); err != nil {
			return nil, fmt.Errorf("node %d: %w", node, err)
		}
		c.stats.complete(node, ranges[node].Size)
		logrus.WithFields(logrus.Fields{
			"node":  node,
			"bytes": ranges[node].Size,
		}).Info("Merged node result")
	}

	for w, conn := range c.workers {
		if err := conn.Send(Message{Kind: KindStop, ID: -1}); err != nil {
			return nil, fmt.Errorf("stop node %d: %w", w+1, err)
		}
	}
	return global, nil
}

type completion struct {
	worker int
	msg    Message
	err    error
}

// runDynamic serves line-aligned chunks to whichever worker finishes
// first until none are left, then stops each worker on its next report.
func (c *Coordinator) runDynamic(ctx context.Context, buf []byte) (wc.Counter, error) {
	chunks := Chunks(buf, c.cfg.ChunkLines)
	sched := NewScheduler(chunks, len(c.workers), c.stats)

	loopCtx, cancel := context.WithCancel(ctx)
	var readers errgroup.Group
	defer func() {
		cancel()
		c.Close()
		readers.Wait()
	}()

	// Fan-in: every worker's DONE lands on one channel, so the loop
	// always serves the first finisher.
	done := make(chan completion)
	for w, conn := range c.workers {
		w, conn := w, conn
		readers.Go(func() error {
			for {
				m, err := conn.Recv()
				select {
				case done <- completion{worker: w, msg: m, err: err}:
				case <-loopCtx.Done():
					return nil
				}
				if err != nil {
					return nil
				}
			}
		})
	}

	for _, a := range sched.Prime() {
		if err := c.dispatch(buf, a); err != nil {
			return nil, err
		}
	}

	global := make(wc.Counter)
	for !sched.Drained() {
		var ev completion
		select {
		case ev = <-done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		node := ev.worker + 1
		if ev.err != nil {
			if sched.Stopped(ev.worker) {
				continue
			}
			if errors.Is(ev.err, io.EOF) {
				return nil, fmt.Errorf("%w: node %d disconnected while holding work", ErrProtocol, node)
			}
			return nil, fmt.Errorf("node %d: %w", node, ev.err)
		}
		if ev.msg.Kind != KindDone {
			return nil, fmt.Errorf("%w: node %d sent %s", ErrProtocol, node, ev.msg.Kind)
		}
		if err := mergePayload(global, ev.msg.Payload); err != nil {
			return nil, fmt.Errorf("node %d chunk %d: %w", node, ev.msg.ID, err)
		}
		next, err := sched.Complete(ev.worker, ev.msg.ID)
		if err != nil {
			return nil, err
		}
		logrus.WithFields(logrus.Fields{
			"chunk": ev.msg.ID,
			"node":  node,
		}).Debug("Chunk completed")
		if err := c.dispatch(buf, next); err != nil {
			return nil, err
		}
	}
	return global, nil
}

func (c *Coordinator) dispatch(buf []byte, a Assignment) error {
	conn := c.workers[a.Worker]
	if a.Stop {
		if err := conn.Send(Message{Kind: KindStop, ID: -1}); err != nil {
			return fmt.Errorf("stop node %d: %w", a.Worker+1, err)
		}
		return nil
	}
	m := Message{Kind: KindWork, ID: a.Chunk.ID, Payload: buf[a.Chunk.Start:a.Chunk.End]}
	if err := conn.Send(m); err != nil {
		return fmt.Errorf("chunk %d to node %d: %w", a.Chunk.ID, a.Worker+1, err)
	}
	return nil
}

// mergePayload decodes an encoded counter into dst. An omitted payload is
// an empty counter.
func mergePayload(dst wc.Counter, payload []byte) error {
	if len(payload) == 0 {
		return nil
	}
	part, err := wc.Decode(payload)
	if err != nil {
		return err
	}
	wc.Merge(dst, part)
	return nil
}

// Serve reads the corpus, listens on network/addr, waits for Nodes-1
// workers to connect and then runs the coordinator.
func Serve(ctx context.Context, cfg Config, network, addr string, stats *Stats) (*Result, error) {
	if cfg.Mode == Dynamic && cfg.Nodes < 2 {
		return nil, ErrInsufficientNodes
	}
	buf, err := ReadCorpus(cfg.Path)
	if err != nil {
		return nil, err
	}

	if network == "unix" {
		os.Remove(addr)
	}
	l, err := net.Listen(network, addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s %s: %w", network, addr, err)
	}
	defer l.Close()
	stopListen := context.AfterFunc(ctx, func() { l.Close() })
	defer stopListen()

	workers := make([]*Conn, 0, cfg.Nodes-1)
	for len(workers) < cfg.Nodes-1 {
		nc, err := l.Accept()
		if err != nil {
			for _, conn := range workers {
				conn.Close()
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("accept: %w", err)
		}
		workers = append(workers, NewConn(nc))
		logrus.WithFields(logrus.Fields{
			"node":   len(workers),
			"remote": nc.RemoteAddr().String(),
		}).Info("Worker joined")
	}

	return NewCoordinator(cfg, workers, stats).Run(ctx, buf)
}

// CoordinatorSock returns the default UNIX-domain socket of the
// coordinator.
func CoordinatorSock() string {
	return "/var/tmp/wordfreq-" + strconv.Itoa(os.Getuid())
}

// WithShutdown returns a context that is cancelled on SIGINT or SIGTERM.
func WithShutdown(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		defer signal.Stop(shutdown)
		select {
		case <-shutdown:
			logrus.Info("Received shutdown signal, terminating...")
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
