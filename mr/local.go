package mr

import (
	"context"
	"fmt"
	"net"

	"golang.org/x/sync/errgroup"
)

// RunLocal runs a whole cluster in this process: the coordinator plus
// Nodes-1 worker goroutines, each connected to it by an in-memory pipe.
// stats may be nil.
func RunLocal(ctx context.Context, cfg Config, stats *Stats) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Mode == Dynamic && cfg.Nodes < 2 {
		return nil, ErrInsufficientNodes
	}
	buf, err := ReadCorpus(cfg.Path)
	if err != nil {
		return nil, err
	}
	return RunBuffer(ctx, cfg, buf, stats)
}

// RunBuffer is RunLocal over an in-memory corpus.
func RunBuffer(ctx context.Context, cfg Config, buf []byte, stats *Stats) (*Result, error) {
	if cfg.Nodes < 1 {
		return nil, fmt.Errorf("%w: need at least one node, got %d", ErrInvalidConfig, cfg.Nodes)
	}
	if cfg.Mode == Dynamic && cfg.Nodes < 2 {
		return nil, ErrInsufficientNodes
	}
	workers := make([]*Conn, cfg.Nodes-1)
	var g errgroup.Group
	for i := range workers {
		coordEnd, workerEnd := net.Pipe()
		workers[i] = NewConn(coordEnd)
		conn := NewConn(workerEnd)
		node := i + 1
		g.Go(func() error {
			defer conn.Close()
			if err := Worker(ctx, conn, cfg.Threads); err != nil {
				return fmt.Errorf("node %d: %w", node, err)
			}
			return nil
		})
	}

	res, err := NewCoordinator(cfg, workers, stats).Run(ctx, buf)
	werr := g.Wait()
	if err != nil {
		return nil, err
	}
	if werr != nil {
		return nil, werr
	}
	return res, nil
}
