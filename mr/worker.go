package mr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/sirupsen/logrus"

	"wordfreq/wc"
)

const (
	dialAttempts = 5
	dialBackoff  = 200 * time.Millisecond
)

// Worker serves one connection to the coordinator: it counts every WORK
// payload with threads goroutines and answers with a DONE carrying the
// encoded counter, until it receives STOP. It never holds more than one
// chunk and never speaks first.
func Worker(ctx context.Context, conn *Conn, threads int) error {
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		m, err := conn.Recv()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) {
				return fmt.Errorf("%w: coordinator closed the connection before STOP", ErrProtocol)
			}
			return err
		}

		switch m.Kind {
		case KindStop:
			logrus.Debug("Worker received STOP")
			return nil
		case KindWork:
			local := wc.CountParallel(m.Payload, threads)
			blob := wc.Encode(local)
			if err := conn.Send(Message{Kind: KindDone, ID: m.ID, Payload: blob}); err != nil {
				return fmt.Errorf("report chunk %d: %w", m.ID, err)
			}
			logrus.WithFields(logrus.Fields{
				"chunk": m.ID,
				"bytes": len(m.Payload),
				"words": len(local),
			}).Debug("Chunk counted")
		default:
			return fmt.Errorf("%w: worker received %s", ErrProtocol, m.Kind)
		}
	}
}

// Join connects to the coordinator at network/addr and runs the worker
// loop until STOP.
func Join(ctx context.Context, network, addr string, threads int) error {
	nc, err := dialWithRetry(ctx, network, addr)
	if err != nil {
		return err
	}
	conn := NewConn(nc)
	defer conn.Close()
	logrus.WithField("coordinator", addr).Info("Joined coordinator")
	return Worker(ctx, conn, threads)
}

// dialWithRetry dials the coordinator with exponential backoff, since
// workers may start before the coordinator listens.
func dialWithRetry(ctx context.Context, network, addr string) (net.Conn, error) {
	var d net.Dialer
	backoff := dialBackoff
	for attempt := 1; ; attempt++ {
		nc, err := d.DialContext(ctx, network, addr)
		if err == nil {
			return nc, nil
		}
		if attempt == dialAttempts || ctx.Err() != nil {
			return nil, fmt.Errorf("dial %s %s: %w", network, addr, err)
		}
		logrus.WithFields(logrus.Fields{
			"attempt": attempt,
		}).Warnf("Dialing failed: %v", err)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, fmt.Errorf("dial %s %s: %w", network, addr, ctx.Err())
		}
		backoff *= 2
	}
}
