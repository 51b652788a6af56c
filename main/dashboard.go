package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"strings"
	"sync"
	"time"

	"wordfreq/mr"
)

const dashboardInterval = 250 * time.Millisecond

func asciiBar(frac float64, width int) string {
	frac = math.Max(0, math.Min(1, frac))
	filled := int(math.Round(frac * float64(width)))
	return strings.Repeat("#", filled) + strings.Repeat(" ", width-filled)
}

func fraction(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole)
}

// startDashboard polls stats until the returned func is called.
func startDashboard(ctx context.Context, w io.Writer, stats *mr.Stats, width int) func() {
	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(dashboardInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				printProgress(w, stats.Snapshot(), width)
			}
		}
	}()
	return func() {
		cancel()
		wg.Wait()
	}
}

func printProgress(w io.Writer, sn mr.Snapshot, width int) {
	fmt.Fprintf(w, "\n[dynamic] progress: %d%%  %d/%d chunks\n",
		int(sn.Progress()*100), sn.Dispatched, sn.TotalChunks)
	for node := 1; node < len(sn.Assigned); node++ {
		f := fraction(sn.Completed[node], sn.Assigned[node])
		fmt.Fprintf(w, "Node %d [%s]  %d/%dB\n", node, asciiBar(f, width), sn.Completed[node], sn.Assigned[node])
	}
}

func printAssigned(w io.Writer, sn mr.Snapshot, width int) {
	total := 0
	for _, b := range sn.Assigned[1:] {
		total += b
	}
	fmt.Fprintf(w, "\n[dynamic] per-node assigned bytes\n")
	for node := 1; node < len(sn.Assigned); node++ {
		fmt.Fprintf(w, "Node %d [%s]  %dB\n", node, asciiBar(fraction(sn.Assigned[node], total), width), sn.Assigned[node])
	}
}

func printStaticBytes(w io.Writer, sn mr.Snapshot, width int) {
	fmt.Fprintf(w, "\n[static] per-node bytes processed\n")
	for node, b := range sn.Completed {
		fmt.Fprintf(w, "Node %d [%s]  %dB\n", node, asciiBar(fraction(b, sn.TotalBytes), width), b)
	}
}
