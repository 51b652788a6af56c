package mr

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"wordfreq/wc"
)

func TestConfigValidate(t *testing.T) {
	good := DefaultConfig()
	good.Path = "corpus.txt"
	if err := good.Validate(); err != nil {
		t.Fatalf("default config with a path: %v", err)
	}
	if good.TopN != 20 || good.ChunkLines != 400 || good.BarWidth != 50 {
		t.Fatalf("defaults: %+v", good)
	}

	bad := map[string]func(c *Config){
		"mode":        func(c *Config) { c.Mode = "batch" },
		"path":        func(c *Config) { c.Path = "" },
		"chunk lines": func(c *Config) { c.Mode = Dynamic; c.ChunkLines = 0 },
		"nodes":       func(c *Config) { c.Nodes = 0 },
		"threads":     func(c *Config) { c.Threads = 0 },
		"bar width":   func(c *Config) { c.BarWidth = -1 },
	}
	for name, mutate := range bad {
		c := good
		mutate(&c)
		if err := c.Validate(); !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("%s: got %v; expected ErrInvalidConfig", name, err)
		}
	}

	single := good
	single.Mode = Dynamic
	single.Nodes = 1
	if err := single.Validate(); err != nil {
		t.Fatalf("dynamic with one node should validate: %v", err)
	}
}

func TestReadCorpus(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.txt")
	want := []byte("hello\nworld\n")
	if err := os.WriteFile(path, want, 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := ReadCorpus(path)
	if err != nil || !bytes.Equal(got, want) {
		t.Fatalf("ReadCorpus: got %q, %v", got, err)
	}
	if Digest(got) != Digest(want) || Digest(got) == Digest([]byte("hello\n")) {
		t.Fatalf("Digest does not fingerprint the corpus")
	}
}

func TestJSONEntries(t *testing.T) {
	entries := []wc.Entry{{Word: "the", Count: 3}, {Word: "it's", Count: 1}}
	var buf bytes.Buffer
	if err := WriteJSON(&buf, entries); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	if first := bytes.SplitN(buf.Bytes(), []byte("\n"), 2)[0]; string(first) != `{"word":"the","count":3}` {
		t.Fatalf("first line: %s", first)
	}
	got, err := ReadJSON(&buf)
	if err != nil || !reflect.DeepEqual(got, entries) {
		t.Fatalf("ReadJSON: got %v, %v", got, err)
	}
}
