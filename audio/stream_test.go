package audio

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/mrsingh-rishi/voice-relay/model"
	"github.com/mrsingh-rishi/voice-relay/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, c *Coalescer) []model.Batch {
	t.Helper()
	var batches []model.Batch
	for {
		b, err := c.Next(context.Background())
		if err == io.EOF {
			return batches
		}
		require.NoError(t, err)
		batches = append(batches, b)
	}
}

func TestCoalescerPreservesOrderAndContent(t *testing.T) {
	s := NewStream(0)
	var want []byte
	chunks := make([]model.AudioChunk, 200)
	for i := range chunks {
		chunks[i] = model.AudioChunk{byte(i), byte(i >> 8), 0xAB}
		want = append(want, chunks[i]...)
	}
	go func() {
		for i, chunk := range chunks {
			_ = s.Push(chunk)
			if i%17 == 0 {
				time.Sleep(time.Millisecond)
			}
		}
		s.Close()
	}()

	batches := collect(t, s.Batches())

	var got []byte
	for _, b := range batches {
		got = append(got, b...)
	}
	assert.Equal(t, want, got)
}

func TestCoalescerClosedEmptyStream(t *testing.T) {
	s := NewStream(0)
	s.Close()

	c := s.Batches()
	assert.Empty(t, collect(t, c))

	_, err := c.Next(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}

func TestCoalescerBurstYieldsOneBatch(t *testing.T) {
	s := NewStream(0)
	chunks := []model.AudioChunk{[]byte("aa"), []byte("bb"), []byte("cc"), []byte("dd")}
	for _, c := range chunks {
		require.NoError(t, s.Push(c))
	}

	b, err := s.Batches().Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.Batch("aabbccdd"), b)
	assert.Equal(t, 0, s.Pending())
}

func TestCoalescerBurstThenCloseKeepsAudio(t *testing.T) {
	s := NewStream(0)
	require.NoError(t, s.Push([]byte("one")))
	require.NoError(t, s.Push([]byte("two")))
	s.Close()

	batches := collect(t, s.Batches())
	require.Len(t, batches, 1)
	assert.Equal(t, model.Batch("onetwo"), batches[0])
}

func TestCoalescerTrickleYieldsSingleChunkBatches(t *testing.T) {
	const n = 5
	s := NewStream(0)
	c := s.Batches()

	out := make(chan model.Batch)
	go func() {
		defer close(out)
		for {
			b, err := c.Next(context.Background())
			if err != nil {
				return
			}
			out <- b
		}
	}()

	for i := 0; i < n; i++ {
		chunk := bytes.Repeat([]byte{byte('a' + i)}, 3)
		require.NoError(t, s.Push(chunk))
		select {
		case b := <-out:
			assert.Equal(t, model.Batch(chunk), b)
		case <-time.After(time.Second):
			t.Fatalf("no batch for chunk %d", i)
		}
	}
	s.Close()

	_, open := <-out
	assert.False(t, open)
}

func TestCloseUnblocksWaitingCoalescer(t *testing.T) {
	s := NewStream(0)
	done := make(chan error, 1)
	go func() {
		_, err := s.Batches().Next(context.Background())
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	s.Close()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, io.EOF)
	case <-time.After(time.Second):
		t.Fatal("coalescer still blocked after Close")
	}
}

func TestPushAfterCloseIsRejected(t *testing.T) {
	s := NewStream(0)
	s.Close()
	assert.ErrorIs(t, s.Push([]byte("late")), queue.ErrClosed)
	assert.Empty(t, collect(t, s.Batches()))
}

func TestBoundedStreamRejectsWhenFull(t *testing.T) {
	s := NewStream(1)
	require.NoError(t, s.Push([]byte("a")))
	assert.ErrorIs(t, s.Push([]byte("b")), queue.ErrFull)
}

func TestCoalescerContextCancel(t *testing.T) {
	s := NewStream(0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Batches().Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
