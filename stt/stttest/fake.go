// Package stttest provides an in-memory recognition backend for tests.
package stttest

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/mrsingh-rishi/voice-relay/queue"
	"github.com/mrsingh-rishi/voice-relay/stt"
	"github.com/mrsingh-rishi/voice-relay/types"
)

// Backend is a fake stt.Backend. Every audio batch sent to one of its
// streams is passed to Transcribe and the returned results are delivered
// on Recv. If Fail returns an error for a batch, the stream breaks with it.
type Backend struct {
	Transcribe func(audio []byte) []types.Result
	Fail       func(audio []byte) error
	OpenErr    error

	mu      sync.Mutex
	streams []*Stream
	closed  bool
}

// Echo returns every batch as a final transcript of its bytes.
func Echo(audio []byte) []types.Result {
	return []types.Result{Final(string(audio))}
}

// Final builds a final result with one alternative.
func Final(text string) types.Result {
	return types.Result{IsFinal: true, Alternatives: []types.Alternative{{Transcript: text, Confidence: 1}}}
}

// Interim builds an interim result with one alternative.
func Interim(text string) types.Result {
	return types.Result{Alternatives: []types.Alternative{{Transcript: text}}}
}

func (b *Backend) Open(ctx context.Context, cfg stt.StreamConfig) (stt.Stream, error) {
	if b.OpenErr != nil {
		return nil, b.OpenErr
	}
	s := &Stream{
		ctx:     ctx,
		backend: b,
		Config:  cfg,
		out:     queue.New[*types.Response](),
	}
	b.mu.Lock()
	b.streams = append(b.streams, s)
	b.mu.Unlock()
	return s, nil
}

func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

// Streams returns every stream opened so far.
func (b *Backend) Streams() []*Stream {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*Stream(nil), b.streams...)
}

// Stream is one fake recognition exchange.
type Stream struct {
	Config stt.StreamConfig

	ctx     context.Context
	backend *Backend
	out     *queue.Queue[*types.Response]

	mu         sync.Mutex
	audio      bytes.Buffer
	batches    int
	err        error
	closedSend bool
	closed     bool
}

func (s *Stream) Send(audio []byte) error {
	s.mu.Lock()
	if s.err != nil {
		err := s.err
		s.mu.Unlock()
		return err
	}
	if s.closedSend {
		s.mu.Unlock()
		return io.ErrClosedPipe
	}
	s.audio.Write(audio)
	s.batches++
	s.mu.Unlock()

	if s.backend.Fail != nil {
		if err := s.backend.Fail(audio); err != nil {
			s.Break(err)
			return err
		}
	}
	if s.backend.Transcribe != nil {
		if results := s.backend.Transcribe(audio); len(results) > 0 {
			_ = s.out.Enqueue(&types.Response{Results: results})
		}
	}
	return nil
}

func (s *Stream) CloseSend() error {
	s.mu.Lock()
	s.closedSend = true
	s.mu.Unlock()
	s.out.Close()
	return nil
}

func (s *Stream) Recv() (*types.Response, error) {
	resp, err := s.out.Dequeue(s.ctx)
	if err == io.EOF {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.err != nil {
			return nil, s.err
		}
		return nil, io.EOF
	}
	return resp, err
}

func (s *Stream) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.out.Close()
	return nil
}

// Break fails the stream: pending and future Recv calls return err.
func (s *Stream) Break(err error) {
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
	s.out.Close()
}

// Audio returns every byte received so far, in order.
func (s *Stream) Audio() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.audio.Bytes()...)
}

// Batches returns how many Send calls carried audio.
func (s *Stream) Batches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.batches
}

// Closed reports whether Close was called.
func (s *Stream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
