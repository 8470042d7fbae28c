package workers

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/mrsingh-rishi/voice-relay/audio"
	"github.com/mrsingh-rishi/voice-relay/metrics"
	"github.com/mrsingh-rishi/voice-relay/stt"
	"github.com/mrsingh-rishi/voice-relay/types"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ErrRecognitionEnded is returned when the backend finishes its stream while
// the client is still sending audio.
var ErrRecognitionEnded = errors.New("recognition stream ended by backend")

// Replier delivers a bot response to the client.
type Replier interface {
	SendReply(message string) error
}

// TranscriptionWorker runs one recognition exchange for a session: it feeds
// coalesced audio from the stream to the backend and answers every final
// transcript with a scripted reply.
type TranscriptionWorker struct {
	backend stt.Backend
	config  stt.StreamConfig
	stream  *audio.Stream
	lookup  func(transcript string) string
	output  Replier
	log     logrus.FieldLogger
	metrics *metrics.Metrics
}

func NewTranscriptionWorker(
	backend stt.Backend,
	config stt.StreamConfig,
	stream *audio.Stream,
	lookup func(transcript string) string,
	output Replier,
	log logrus.FieldLogger,
	m *metrics.Metrics,
) (*TranscriptionWorker, error) {
	if backend == nil {
		return nil, fmt.Errorf("recognition backend is required")
	}
	if stream == nil {
		return nil, fmt.Errorf("audio stream is required")
	}
	if lookup == nil {
		return nil, fmt.Errorf("reply lookup is required")
	}
	if output == nil {
		return nil, fmt.Errorf("reply output is required")
	}
	return &TranscriptionWorker{
		backend: backend,
		config:  config,
		stream:  stream,
		lookup:  lookup,
		output:  output,
		log:     log,
		metrics: m,
	}, nil
}

// Run blocks until the audio stream is exhausted and the backend has sent its
// last result, or until either side fails. The first failure cancels the
// other direction.
func (tw *TranscriptionWorker) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	rs, err := tw.backend.Open(gctx, tw.config)
	if err != nil {
		tw.metrics.BackendError("open")
		return errors.Wrap(err, "open recognition stream")
	}
	defer rs.Close()
	tw.log.Debug("recognition stream opened")

	audioDone := make(chan struct{})
	g.Go(func() error {
		return tw.sendAudio(gctx, rs, audioDone)
	})
	g.Go(func() error {
		if err := tw.receiveTranscripts(rs); err != nil {
			return err
		}
		select {
		case <-audioDone:
			return nil
		default:
			return ErrRecognitionEnded
		}
	})
	return g.Wait()
}

// sendAudio closes audioDone once the audio stream is exhausted, before
// half-closing the recognition stream.
func (tw *TranscriptionWorker) sendAudio(ctx context.Context, rs stt.Stream, audioDone chan<- struct{}) error {
	batches := tw.stream.Batches()
	for {
		batch, err := batches.Next(ctx)
		if err == io.EOF {
			tw.log.Debug("audio stream closed, finishing recognition")
			close(audioDone)
			if err := rs.CloseSend(); err != nil {
				tw.metrics.BackendError("close_send")
				return errors.Wrap(err, "close recognition send")
			}
			return nil
		}
		if err != nil {
			return err
		}

		if err := rs.Send(batch); err != nil {
			tw.metrics.BackendError("send")
			return errors.Wrap(err, "send audio batch")
		}
		tw.metrics.BatchSent(len(batch))
	}
}

func (tw *TranscriptionWorker) receiveTranscripts(rs stt.Stream) error {
	for {
		resp, err := rs.Recv()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			tw.metrics.BackendError("recv")
			return errors.Wrap(err, "receive transcripts")
		}
		for _, result := range resp.Results {
			if err := tw.handleResult(result); err != nil {
				return err
			}
		}
	}
}

func (tw *TranscriptionWorker) handleResult(result types.Result) error {
	tw.metrics.Transcript(result.IsFinal)

	top, ok := result.Top()
	if !ok {
		return nil
	}
	if !result.IsFinal {
		tw.log.WithField("transcript", top.Transcript).Debug("partial transcription")
		return nil
	}

	transcript := strings.TrimSpace(top.Transcript)
	if transcript == "" {
		return nil
	}
	tw.log.WithFields(logrus.Fields{
		"transcript": transcript,
		"confidence": top.Confidence,
	}).Info("final transcription")

	if err := tw.output.SendReply(tw.lookup(transcript)); err != nil {
		return errors.Wrap(err, "send reply")
	}
	tw.metrics.ReplySent()
	return nil
}
