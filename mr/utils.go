package mr

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/zeebo/xxh3"

	"wordfreq/wc"
)

// ReadCorpus reads the whole file at path into memory.
func ReadCorpus(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpenInput, err)
	}
	defer f.Close()
	adviseSequential(f)

	buf, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrOpenInput, path, err)
	}
	return buf, nil
}

// Digest fingerprints a corpus so runs over the same input can be matched.
func Digest(buf []byte) uint64 {
	return xxh3.Hash(buf)
}

// WriteJSON writes one JSON object per Top-K entry.
func WriteJSON(w io.Writer, entries []wc.Entry) error {
	enc := json.NewEncoder(w)
	for _, e := range entries {
		if err := enc.Encode(&e); err != nil {
			return err
		}
	}
	return nil
}

// ReadJSON reads entries written by WriteJSON.
func ReadJSON(r io.Reader) ([]wc.Entry, error) {
	dec := json.NewDecoder(r)
	var entries []wc.Entry
	for {
		var e wc.Entry
		if err := dec.Decode(&e); err != nil {
			if err == io.EOF {
				return entries, nil
			}
			return entries, err
		}
		entries = append(entries, e)
	}
}
