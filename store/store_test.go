package store

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"wordfreq/wc"
)

func TestSaveAndLoadRun(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	run := Run{
		Mode:       "dynamic",
		Path:       "corpus.txt",
		Digest:     0xfedcba9876543210,
		Nodes:      4,
		Threads:    8,
		TotalBytes: 1234,
		Chunks:     3,
		Elapsed:    1500 * time.Millisecond,
		CreatedAt:  time.Unix(1700000000, 0),
		Top:        []wc.Entry{{Word: "the", Count: 10}, {Word: "a", Count: 7}},
	}
	id, err := s.SaveRun(ctx, run)
	if err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	got, err := s.LoadRun(ctx, id)
	if err != nil {
		t.Fatalf("LoadRun: %v", err)
	}
	run.ID = id
	if !reflect.DeepEqual(got, run) {
		t.Fatalf("got %+v; expected %+v", got, run)
	}

	second, err := s.SaveRun(ctx, Run{Mode: "static", Path: "corpus.txt", Digest: run.Digest, Nodes: 1, Threads: 1})
	if err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	ids, err := s.RunsByDigest(ctx, run.Digest)
	if err != nil || !reflect.DeepEqual(ids, []int64{id, second}) {
		t.Fatalf("RunsByDigest: got %v, %v", ids, err)
	}
}

func TestLoadRunMissing(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()
	if _, err := s.LoadRun(context.Background(), 99); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v; expected ErrNotFound", err)
	}
}
