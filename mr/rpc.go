package mr

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync"
)

// Kind is the tag of a message between coordinator and worker.
type Kind uint8

const (
	KindWork Kind = 1 // coordinator -> worker: raw chunk bytes
	KindDone Kind = 2 // worker -> coordinator: encoded counter
	KindStop Kind = 3 // coordinator -> worker: no payload
)

func (k Kind) String() string {
	switch k {
	case KindWork:
		return "WORK"
	case KindDone:
		return "DONE"
	case KindStop:
		return "STOP"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Message is one logical message. ID is the chunk id (the node rank in
// static mode) and -1 for STOP.
type Message struct {
	Kind    Kind
	ID      int
	Payload []byte
}

// Conn carries Messages over a byte stream. On the wire every message is
// a one-byte tag, the header [id int32][size int32] in little endian and
// then size payload bytes. The payload is omitted when size is zero.
//
// Send and Recv may be used from different goroutines, but only one
// goroutine may call each at a time.
type Conn struct {
	rwc io.ReadWriteCloser
	r   *bufio.Reader
	w   *bufio.Writer

	closeOnce sync.Once
	closeErr  error
}

func NewConn(rwc io.ReadWriteCloser) *Conn {
	return &Conn{
		rwc: rwc,
		r:   bufio.NewReader(rwc),
		w:   bufio.NewWriter(rwc),
	}
}

const headerLen = 1 + 4 + 4

func (c *Conn) Send(m Message) error {
	if len(m.Payload) > math.MaxInt32 {
		return fmt.Errorf("%w: %s payload of %d bytes", ErrSizeLimit, m.Kind, len(m.Payload))
	}
	if m.ID > math.MaxInt32 || m.ID < math.MinInt32 {
		return fmt.Errorf("%w: %s id %d", ErrSizeLimit, m.Kind, m.ID)
	}
	var hdr [headerLen]byte
	hdr[0] = byte(m.Kind)
	binary.LittleEndian.PutUint32(hdr[1:], uint32(int32(m.ID)))
	binary.LittleEndian.PutUint32(hdr[5:], uint32(int32(len(m.Payload))))
	if _, err := c.w.Write(hdr[:]); err != nil {
		return fmt.Errorf("send %s header: %w", m.Kind, err)
	}
	if len(m.Payload) > 0 {
		if _, err := c.w.Write(m.Payload); err != nil {
			return fmt.Errorf("send %s payload: %w", m.Kind, err)
		}
	}
	if err := c.w.Flush(); err != nil {
		return fmt.Errorf("send %s: %w", m.Kind, err)
	}
	return nil
}

// Recv blocks until the next message arrives. It returns io.EOF when the
// peer closed the stream between two messages.
func (c *Conn) Recv() (Message, error) {
	var hdr [headerLen]byte
	if _, err := io.ReadFull(c.r, hdr[:]); err != nil {
		if err == io.EOF {
			return Message{}, io.EOF
		}
		return Message{}, fmt.Errorf("receive header: %w", err)
	}
	m := Message{
		Kind: Kind(hdr[0]),
		ID:   int(int32(binary.LittleEndian.Uint32(hdr[1:]))),
	}
	size := int32(binary.LittleEndian.Uint32(hdr[5:]))
	switch {
	case m.Kind != KindWork && m.Kind != KindDone && m.Kind != KindStop:
		return Message{}, fmt.Errorf("%w: unknown tag %d", ErrProtocol, hdr[0])
	case size < 0:
		return Message{}, fmt.Errorf("%w: %s with negative size %d", ErrProtocol, m.Kind, size)
	case m.Kind == KindStop && size != 0:
		return Message{}, fmt.Errorf("%w: STOP with %d payload bytes", ErrProtocol, size)
	}
	if size > 0 {
		m.Payload = make([]byte, size)
		if _, err := io.ReadFull(c.r, m.Payload); err != nil {
			return Message{}, fmt.Errorf("receive %s payload: %w", m.Kind, err)
		}
	}
	return m, nil
}

func (c *Conn) Close() error {
	c.closeOnce.Do(func() { c.closeErr = c.rwc.Close() })
	return c.closeErr
}
