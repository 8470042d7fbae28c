package stt

import (
	"context"
	"io"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/mrsingh-rishi/voice-relay/types"
	"github.com/pkg/errors"
	"google.golang.org/api/option"
)

// GoogleBackend streams audio to Google Cloud Speech-to-Text.
type GoogleBackend struct {
	client *speech.Client
}

// NewGoogleBackend creates the speech client. An empty credentialsFile uses
// application default credentials.
func NewGoogleBackend(ctx context.Context, credentialsFile string) (*GoogleBackend, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "create speech client")
	}
	return &GoogleBackend{client: client}, nil
}

// Open starts a StreamingRecognize call and sends the streaming config.
func (g *GoogleBackend) Open(ctx context.Context, cfg StreamConfig) (Stream, error) {
	streamCtx, cancel := context.WithCancel(ctx)
	stream, err := g.client.StreamingRecognize(streamCtx)
	if err != nil {
		cancel()
		return nil, errors.Wrap(err, "open streaming recognizer")
	}

	if err := stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: googleStreamingConfig(cfg),
		},
	}); err != nil {
		cancel()
		return nil, errors.Wrap(err, "send streaming config")
	}

	return &googleStream{stream: stream, cancel: cancel}, nil
}

// Close releases the underlying gRPC connection.
func (g *GoogleBackend) Close() error {
	return g.client.Close()
}

func googleStreamingConfig(cfg StreamConfig) *speechpb.StreamingRecognitionConfig {
	return &speechpb.StreamingRecognitionConfig{
		Config: &speechpb.RecognitionConfig{
			Encoding:        googleEncoding(cfg.Encoding),
			SampleRateHertz: int32(cfg.SampleRate),
			LanguageCode:    cfg.LanguageCode,
			Model:           cfg.Model,
		},
		InterimResults: cfg.InterimResults,
	}
}

func googleEncoding(encoding string) speechpb.RecognitionConfig_AudioEncoding {
	if encoding == EncodingMulaw {
		return speechpb.RecognitionConfig_MULAW
	}
	return speechpb.RecognitionConfig_LINEAR16
}

type googleStream struct {
	stream speechpb.Speech_StreamingRecognizeClient
	cancel context.CancelFunc
}

func (s *googleStream) Send(audio []byte) error {
	if len(audio) == 0 {
		return nil
	}
	err := s.stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{
			AudioContent: audio,
		},
	})
	return errors.Wrap(err, "send audio")
}

func (s *googleStream) CloseSend() error {
	return s.stream.CloseSend()
}

func (s *googleStream) Recv() (*types.Response, error) {
	resp, err := s.stream.Recv()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, errors.Wrap(err, "receive results")
	}
	if st := resp.GetError(); st != nil {
		return nil, errors.Errorf("recognizer error %d: %s", st.GetCode(), st.GetMessage())
	}
	return googleResponse(resp), nil
}

func (s *googleStream) Close() error {
	s.cancel()
	return nil
}

func googleResponse(resp *speechpb.StreamingRecognizeResponse) *types.Response {
	out := &types.Response{}
	for _, result := range resp.GetResults() {
		r := types.Result{IsFinal: result.GetIsFinal()}
		for _, alt := range result.GetAlternatives() {
			r.Alternatives = append(r.Alternatives, types.Alternative{
				Transcript: alt.GetTranscript(),
				Confidence: float64(alt.GetConfidence()),
			})
		}
		out.Results = append(out.Results, r)
	}
	return out
}
