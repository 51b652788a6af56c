package main

//
// wordfreq counts word frequencies of one corpus across a cluster of
// nodes, then prints the most frequent words.
//
//   wordfreq static  corpus.txt [--top N] [--nodes N]
//   wordfreq dynamic corpus.txt [--top N] [--chunk-lines M] [--bar-width W]
//   wordfreq worker  [--network unix] [--addr PATH]
//
// Without --serve all nodes run in this process. With --serve the
// coordinator waits for --nodes-1 "wordfreq worker" processes.
//

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"wordfreq/mr"
	"wordfreq/store"
	"wordfreq/wc"
)

type options struct {
	cfg      mr.Config
	serve    bool
	network  string
	addr     string
	dbPath   string
	jsonPath string
	logLevel string
	logJSON  bool
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage:\n"+
		"  wordfreq static  <corpus.txt> [--top N] [flags]\n"+
		"  wordfreq dynamic <corpus.txt> [--top N] [--chunk-lines M] [--bar-width W] [flags]\n"+
		"  wordfreq worker  [--network unix|tcp] [--addr ADDR] [--threads T]\n")
}

func newFlagSet(o *options) *flag.FlagSet {
	fs := flag.NewFlagSet("wordfreq", flag.ContinueOnError)
	fs.Usage = usage
	fs.IntVar(&o.cfg.TopN, "top", o.cfg.TopN, "number of most frequent words to print")
	fs.IntVar(&o.cfg.ChunkLines, "chunk-lines", o.cfg.ChunkLines, "lines per chunk (dynamic)")
	fs.IntVar(&o.cfg.BarWidth, "bar-width", o.cfg.BarWidth, "width of progress bars")
	fs.IntVar(&o.cfg.Nodes, "nodes", o.cfg.Nodes, "number of nodes, coordinator included")
	fs.IntVar(&o.cfg.Threads, "threads", o.cfg.Threads, "counting threads per node")
	fs.BoolVar(&o.serve, "serve", false, "wait for remote workers instead of running them in-process")
	fs.StringVar(&o.network, "network", "unix", "network of the coordinator socket (unix or tcp)")
	fs.StringVar(&o.addr, "addr", mr.CoordinatorSock(), "address of the coordinator socket")
	fs.StringVar(&o.dbPath, "db", "", "sqlite database to record the run in")
	fs.StringVar(&o.jsonPath, "json", "", "file to write the top words to as JSON lines")
	fs.StringVar(&o.logLevel, "log-level", "warning", "log level")
	fs.BoolVar(&o.logJSON, "log-json", false, "log as JSON")
	return fs
}

func setupLogging(o options) error {
	level, err := logrus.ParseLevel(o.logLevel)
	if err != nil {
		return err
	}
	logrus.SetLevel(level)
	logrus.SetOutput(os.Stderr)
	if o.logJSON {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
	return nil
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	o := options{cfg: mr.DefaultConfig()}
	o.cfg.Mode = mr.Mode(os.Args[1])
	args := os.Args[2:]
	if o.cfg.Mode != "worker" {
		if len(args) < 1 || strings.HasPrefix(args[0], "-") {
			usage()
			os.Exit(2)
		}
		o.cfg.Path, args = args[0], args[1:]
	}
	if err := newFlagSet(&o).Parse(args); err != nil {
		os.Exit(2)
	}
	if err := setupLogging(o); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, cancel := mr.WithShutdown(context.Background())
	defer cancel()

	if o.cfg.Mode == "worker" {
		if err := mr.Join(ctx, o.network, o.addr, o.cfg.Threads); err != nil {
			logrus.Fatalf("Worker failed: %v", err)
		}
		return
	}

	if err := o.cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		usage()
		os.Exit(2)
	}
	if err := run(ctx, o); err != nil {
		if errors.Is(err, mr.ErrInsufficientNodes) {
			fmt.Fprintf(os.Stderr, "%v.\n", err)
			return
		}
		logrus.Fatalf("Run failed: %v", err)
	}
}

func run(ctx context.Context, o options) error {
	fmt.Fprintf(os.Stderr, "Hybrid parallelism: %d nodes × %d threads\n", o.cfg.Nodes, o.cfg.Threads)

	stats := mr.NewStats(o.cfg.Nodes)
	stopDashboard := func() {}
	if o.cfg.Mode == mr.Dynamic {
		stopDashboard = startDashboard(ctx, os.Stderr, stats, o.cfg.BarWidth)
	}

	var (
		res *mr.Result
		err error
	)
	if o.serve {
		logrus.WithFields(logrus.Fields{
			"network": o.network,
			"addr":    o.addr,
			"workers": o.cfg.Nodes - 1,
		}).Info("Waiting for workers")
		res, err = mr.Serve(ctx, o.cfg, o.network, o.addr, stats)
	} else {
		res, err = mr.RunLocal(ctx, o.cfg, stats)
	}
	stopDashboard()
	if err != nil {
		return err
	}

	if o.cfg.Mode == mr.Dynamic {
		printAssigned(os.Stderr, res.Stats, o.cfg.BarWidth)
	} else {
		printStaticBytes(os.Stderr, res.Stats, o.cfg.BarWidth)
	}
	fmt.Printf("\nTop %d words (%s):\n", o.cfg.TopN, res.Mode)
	printTop(os.Stdout, res.Top)
	fmt.Printf("\nTime: %.3f ms\n", float64(res.Elapsed)/float64(time.Millisecond))

	if o.jsonPath != "" {
		if err := writeJSON(o.jsonPath, res.Top); err != nil {
			return err
		}
	}
	if o.dbPath != "" {
		if err := saveRun(ctx, o, res); err != nil {
			return err
		}
	}
	return nil
}

func writeJSON(path string, top []wc.Entry) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create %v: %w", path, err)
	}
	defer f.Close()
	if err := mr.WriteJSON(f, top); err != nil {
		return fmt.Errorf("cannot write to file %v: %w", path, err)
	}
	return nil
}

func saveRun(ctx context.Context, o options, res *mr.Result) error {
	s, err := store.Open(o.dbPath)
	if err != nil {
		return err
	}
	defer s.Close()
	_, err = s.SaveRun(ctx, store.Run{
		Mode:       string(res.Mode),
		Path:       o.cfg.Path,
		Digest:     res.Digest,
		Nodes:      o.cfg.Nodes,
		Threads:    o.cfg.Threads,
		TotalBytes: res.TotalBytes,
		Chunks:     res.Stats.TotalChunks,
		Elapsed:    res.Elapsed,
		Top:        res.Top,
	})
	return err
}

func printTop(w io.Writer, top []wc.Entry) {
	width := 0
	for _, e := range top {
		width = max(width, len(e.Word))
	}
	for _, e := range top {
		fmt.Fprintf(w, "%-*s  %d\n", width, e.Word, e.Count)
	}
}
