package mr

import (
	"errors"
	"fmt"
	"runtime"
)

// Mode selects how the coordinator partitions the corpus.
type Mode string

const (
	Static  Mode = "static"
	Dynamic Mode = "dynamic"
)

var (
	ErrInvalidConfig     = errors.New("invalid configuration")
	ErrInsufficientNodes = errors.New("dynamic mode requires at least 2 nodes")
	ErrOpenInput         = errors.New("cannot read input")
	ErrSizeLimit         = errors.New("message exceeds header size limit")
	ErrProtocol          = errors.New("protocol error")
)

// Config is the validated run configuration handed over by the CLI.
type Config struct {
	Mode       Mode
	Path       string
	TopN       int // size of the Top-K result
	ChunkLines int // lines per chunk, dynamic mode only
	BarWidth   int // dashboard only
	Nodes      int // coordinator included
	Threads    int // counting goroutines per node
}

func DefaultConfig() Config {
	return Config{
		Mode:       Static,
		TopN:       20,
		ChunkLines: 400,
		BarWidth:   50,
		Nodes:      4,
		Threads:    runtime.NumCPU(),
	}
}

// Validate checks the fields the core depends on. A dynamic run with a
// single node is valid here; it is reported as ErrInsufficientNodes when
// the run starts.
func (c Config) Validate() error {
	switch {
	case c.Mode != Static && c.Mode != Dynamic:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidConfig, c.Mode)
	case c.Path == "":
		return fmt.Errorf("%w: empty corpus path", ErrInvalidConfig)
	case c.Mode == Dynamic && c.ChunkLines <= 0:
		return fmt.Errorf("%w: chunk lines must be positive, got %d", ErrInvalidConfig, c.ChunkLines)
	case c.Nodes < 1:
		return fmt.Errorf("%w: need at least one node, got %d", ErrInvalidConfig, c.Nodes)
	case c.Threads < 1:
		return fmt.Errorf("%w: need at least one thread, got %d", ErrInvalidConfig, c.Threads)
	case c.BarWidth < 0:
		return fmt.Errorf("%w: negative bar width %d", ErrInvalidConfig, c.BarWidth)
	}
	return nil
}
