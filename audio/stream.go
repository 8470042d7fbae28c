package audio

import (
	"bytes"
	"context"
	"io"

	"github.com/mrsingh-rishi/voice-relay/model"
	"github.com/mrsingh-rishi/voice-relay/queue"
)

// Stream buffers the audio chunks of one connection between the socket
// reader and the transcription worker. One goroutine pushes, one drains.
type Stream struct {
	buff *queue.Queue[model.AudioChunk]
}

// NewStream creates a Stream. maxChunks <= 0 means unbounded.
func NewStream(maxChunks int) *Stream {
	return &Stream{buff: queue.NewBounded[model.AudioChunk](maxChunks)}
}

// Push appends a chunk. It fails with queue.ErrClosed after Close and with
// queue.ErrFull when a bounded stream is full.
func (s *Stream) Push(chunk model.AudioChunk) error {
	return s.buff.Enqueue(chunk)
}

// Close marks end of stream. Safe to call more than once.
func (s *Stream) Close() {
	s.buff.Close()
}

// Closed reports whether Close was called.
func (s *Stream) Closed() bool {
	return s.buff.Closed()
}

// Pending returns the number of chunks waiting to be drained.
func (s *Stream) Pending() int {
	return s.buff.Len()
}

// DrainBlocking waits for the next chunk. It returns io.EOF once the stream is
// closed and every chunk has been drained.
func (s *Stream) DrainBlocking(ctx context.Context) (model.AudioChunk, error) {
	return s.buff.Dequeue(ctx)
}

// TryDrain returns the next chunk if one is immediately available.
func (s *Stream) TryDrain() (model.AudioChunk, bool, error) {
	return s.buff.TryDequeue()
}

// Batches returns a Coalescer reading from this stream.
func (s *Stream) Batches() *Coalescer {
	return &Coalescer{stream: s}
}

// Coalescer turns a Stream into a finite sequence of batches. Each batch
// holds every chunk that was available without waiting, in push order.
type Coalescer struct {
	stream *Stream
	done   bool
}

// Next blocks for the first chunk of a batch, then appends whatever else is
// already buffered. It returns io.EOF when the stream is exhausted; after that
// every call returns io.EOF.
func (c *Coalescer) Next(ctx context.Context) (model.Batch, error) {
	if c.done {
		return nil, io.EOF
	}

	chunk, err := c.stream.DrainBlocking(ctx)
	if err == io.EOF {
		c.done = true
		return nil, io.EOF
	}
	if err != nil {
		return nil, err
	}

	var data bytes.Buffer
	data.Write(chunk)
	for {
		chunk, ok, err := c.stream.TryDrain()
		if err == io.EOF {
			// end of stream mid batch: deliver what we have, then stop
			c.done = true
			break
		}
		if !ok {
			break
		}
		data.Write(chunk)
	}
	return data.Bytes(), nil
}
