package wc

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrTruncated is returned by Decode when the input ends before a field
// it declares.
var ErrTruncated = errors.New("wc: truncated input")

const u64 = 8

// Encode serializes c as
//
//	[entries u64] { [keyLen u64][key bytes][count u64] }*
//
// with little-endian integers. Entry order follows map iteration and is
// not stable between calls.
func Encode(c Counter) []byte {
	size := u64
	for word := range c {
		size += 2*u64 + len(word)
	}
	out := make([]byte, 0, size)
	out = binary.LittleEndian.AppendUint64(out, uint64(len(c)))
	for word, n := range c {
		out = binary.LittleEndian.AppendUint64(out, uint64(len(word)))
		out = append(out, word...)
		out = binary.LittleEndian.AppendUint64(out, n)
	}
	return out
}

// Decode parses a buffer produced by Encode. Repeated keys are summed.
func Decode(buf []byte) (Counter, error) {
	rest := buf
	next := func(field string) (uint64, error) {
		if len(rest) < u64 {
			return 0, fmt.Errorf("%w: %s needs %d bytes, %d left", ErrTruncated, field, u64, len(rest))
		}
		v := binary.LittleEndian.Uint64(rest)
		rest = rest[u64:]
		return v, nil
	}

	entries, err := next("entry count")
	if err != nil {
		return nil, err
	}
	// Every entry takes at least two fields, so a larger count cannot fit.
	if entries > uint64(len(rest)/(2*u64)) {
		return nil, fmt.Errorf("%w: %d entries declared, %d bytes left", ErrTruncated, entries, len(rest))
	}
	out := make(Counter, entries)
	for i := uint64(0); i < entries; i++ {
		klen, err := next("key length")
		if err != nil {
			return nil, err
		}
		if klen > uint64(len(rest)) {
			return nil, fmt.Errorf("%w: key of %d bytes, %d left", ErrTruncated, klen, len(rest))
		}
		word := string(rest[:klen])
		rest = rest[klen:]
		n, err := next("count")
		if err != nil {
			return nil, err
		}
		out[word] += n
	}
	return out, nil
}
