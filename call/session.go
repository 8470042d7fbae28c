package call

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/mrsingh-rishi/voice-relay/audio"
	"github.com/mrsingh-rishi/voice-relay/metrics"
	"github.com/mrsingh-rishi/voice-relay/model"
	"github.com/mrsingh-rishi/voice-relay/output"
	"github.com/mrsingh-rishi/voice-relay/queue"
	"github.com/mrsingh-rishi/voice-relay/reply"
	"github.com/mrsingh-rishi/voice-relay/stt"
	"github.com/mrsingh-rishi/voice-relay/workers"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// DefaultDrainTimeout bounds how long a closing session waits for the
// recognizer to deliver its last results.
const DefaultDrainTimeout = 10 * time.Second

// ErrDrainTimeout is returned when the transcription path had to be cancelled
// because it did not finish within the drain timeout.
var ErrDrainTimeout = errors.New("transcription did not finish before drain timeout")

// Conn is the media websocket. *websocket.Conn satisfies it.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// State is the lifecycle position of a session.
type State int32

const (
	StateOpen State = iota
	StateReceiving
	StateClosing
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateReceiving:
		return "receiving"
	case StateClosing:
		return "closing"
	case StateTerminated:
		return "terminated"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Options is the read-only configuration shared by every session.
type Options struct {
	Backend      stt.Backend
	StreamConfig stt.StreamConfig
	// Lookup maps a final transcript to a reply; reply.Lookup when nil.
	Lookup func(transcript string) string
	// MaxChunks bounds the audio buffer; 0 means unbounded.
	MaxChunks    int
	DrainTimeout time.Duration
	Logger       logrus.FieldLogger
	Metrics      *metrics.Metrics
}

// Session relays one media connection. The goroutine calling Run reads
// frames and fills the audio stream; a transcription worker goroutine drains
// it and writes replies. The stream is the only state they share.
type Session struct {
	ID string

	conn         Conn
	stream       *audio.Stream
	worker       *workers.TranscriptionWorker
	log          logrus.FieldLogger
	metrics      *metrics.Metrics
	drainTimeout time.Duration

	state     atomic.Int32
	closeOnce sync.Once
	done      chan struct{}
}

func NewSession(conn Conn, opts Options) (*Session, error) {
	if conn == nil {
		return nil, errors.New("connection is required")
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Lookup == nil {
		opts.Lookup = reply.Lookup
	}
	if opts.DrainTimeout <= 0 {
		opts.DrainTimeout = DefaultDrainTimeout
	}

	id := uuid.NewString()
	log := opts.Logger.WithField("session_id", id)

	out, err := output.NewWebsocketOutput(conn, log)
	if err != nil {
		return nil, err
	}
	stream := audio.NewStream(opts.MaxChunks)
	worker, err := workers.NewTranscriptionWorker(
		opts.Backend, opts.StreamConfig, stream, opts.Lookup, out, log, opts.Metrics,
	)
	if err != nil {
		return nil, errors.Wrap(err, "create transcription worker")
	}

	return &Session{
		ID:           id,
		conn:         conn,
		stream:       stream,
		worker:       worker,
		log:          log,
		metrics:      opts.Metrics,
		drainTimeout: opts.DrainTimeout,
		done:         make(chan struct{}),
	}, nil
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Done is closed once the session is terminated.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) setState(st State) {
	s.state.Store(int32(st))
	s.log.WithField("state", st).Debug("session state changed")
}

// Run drives the session until both paths have exited. It returns the
// transcription error, if any; client disconnects are not errors.
func (s *Session) Run(ctx context.Context) error {
	started := time.Now()
	s.metrics.SessionStarted()
	s.log.Info("media session connected")

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	workerDone := make(chan struct{})
	var workerErr error
	go func() {
		defer close(workerDone)
		workerErr = s.runWorker(workerCtx)
		// the reader may be blocked on the socket; closing it ends the read
		s.closeConn()
	}()

	go func() {
		select {
		case <-ctx.Done():
			s.closeConn()
		case <-s.done:
		}
	}()

	s.setState(StateReceiving)
	reason := s.receive()

	s.setState(StateClosing)
	s.log.WithField("reason", reason).Info("media session closing")
	s.stream.Close()

	timedOut := false
	timer := time.NewTimer(s.drainTimeout)
	select {
	case <-workerDone:
	case <-timer.C:
		timedOut = true
		s.log.WithField("pending_chunks", s.stream.Pending()).Warn("transcription drain timed out, cancelling")
		cancelWorker()
		<-workerDone
	}
	timer.Stop()

	s.closeConn()
	s.setState(StateTerminated)
	close(s.done)
	s.metrics.SessionEnded(time.Since(started).Seconds())

	err := workerErr
	switch {
	case timedOut:
		err = ErrDrainTimeout
	case errors.Is(err, workers.ErrRecognitionEnded):
		s.log.Info("recognizer ended the stream")
		err = nil
	}
	if err != nil {
		s.log.WithError(err).Warn("media session ended with error")
	} else {
		s.log.Info("media session terminated")
	}
	return err
}

// runWorker keeps a panic in the transcription path from taking down the process.
func (s *Session) runWorker(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("transcription worker panic: %v", r)
		}
	}()
	return s.worker.Run(ctx)
}

// receive reads frames until a stop frame or a read failure.
func (s *Session) receive() string {
	for {
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug("websocket closed normally")
			} else {
				s.log.WithError(err).Debug("websocket read ended")
			}
			return "disconnect"
		}

		ev, err := model.DecodeFrame(msg)
		if err != nil {
			s.metrics.ProtocolError("frame")
			s.log.WithError(err).Warn("skipping malformed frame")
			continue
		}

		switch ev.Event {
		case model.EventMedia:
			s.pushMedia(ev)
		case model.EventStop:
			return "stop"
		case model.EventStart:
			s.log.WithFields(logrus.Fields{
				"call_sid":   ev.Start.CallSid,
				"stream_sid": ev.Start.StreamSid,
			}).Info("stream started")
		default:
			s.log.WithField("event", ev.Event).Debug("ignoring event")
		}
	}
}

func (s *Session) pushMedia(ev *model.InboundFrame) {
	chunk, err := ev.AudioChunk()
	if err != nil {
		s.metrics.ProtocolError("payload")
		s.log.WithError(err).Warn("skipping media frame")
		return
	}
	if len(chunk) == 0 {
		return
	}

	if err := s.stream.Push(chunk); err != nil {
		reason := "closed"
		if errors.Is(err, queue.ErrFull) {
			reason = "full"
		}
		s.metrics.ChunkRejected(reason)
		s.log.WithError(err).Warn("dropping audio chunk")
		return
	}
	s.metrics.ChunkReceived()
}

func (s *Session) closeConn() {
	s.closeOnce.Do(func() {
		if err := s.conn.Close(); err != nil {
			s.log.WithError(err).Debug("closing websocket")
		}
	})
}
