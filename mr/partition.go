package mr

// Range is one node's contiguous byte range in static mode: the
// displacement and send count of a scatter.
type Range struct {
	Offset int
	Size   int
}

func (r Range) End() int { return r.Offset + r.Size }

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}

// Partition splits buf into one range per node. Even cut points are moved
// forward to the next whitespace byte, so ranges may differ in size and
// some may be empty, but together they cover buf exactly once.
func Partition(buf []byte, nodes int) []Range {
	if nodes <= 0 {
		return nil
	}
	n := len(buf)
	cuts := make([]int, nodes+1)
	for r := 0; r <= nodes; r++ {
		cuts[r] = n * r / nodes
	}
	for r := 1; r < nodes; r++ {
		i := cuts[r]
		for i < n && !isSpace(buf[i]) {
			i++
		}
		cuts[r] = i
	}
	ranges := make([]Range, nodes)
	for r := range ranges {
		ranges[r] = Range{Offset: cuts[r], Size: cuts[r+1] - cuts[r]}
	}
	return ranges
}

// Chunk is a line-aligned unit of dynamic work covering [Start, End).
type Chunk struct {
	ID    int
	Start int
	End   int
}

func (c Chunk) Bytes() int { return c.End - c.Start }

// Chunks groups the lines of buf into runs of chunkLines lines; the last
// chunk may hold fewer. An empty buffer yields a single empty chunk.
func Chunks(buf []byte, chunkLines int) []Chunk {
	if chunkLines <= 0 {
		chunkLines = 1
	}
	lineStarts := []int{0}
	for i, b := range buf {
		if b == '\n' {
			lineStarts = append(lineStarts, i+1)
		}
	}
	if lineStarts[len(lineStarts)-1] != len(buf) {
		lineStarts = append(lineStarts, len(buf))
	}
	lines := len(lineStarts) - 1
	if lines == 0 {
		return []Chunk{{ID: 0, Start: 0, End: 0}}
	}

	chunks := make([]Chunk, 0, lines/chunkLines+1)
	for i := 0; i < lines; {
		j := min(lines, i+chunkLines)
		chunks = append(chunks, Chunk{ID: len(chunks), Start: lineStarts[i], End: lineStarts[j]})
		i = j
	}
	return chunks
}
