package stt

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/goccy/go-json"
	gws "github.com/gorilla/websocket"
	"github.com/mrsingh-rishi/voice-relay/types"
	"github.com/pkg/errors"
)

// DefaultDeepgramURL is the Deepgram live transcription endpoint.
const DefaultDeepgramURL = "wss://api.deepgram.com/v1/listen"

// DeepgramBackend streams audio to Deepgram over a websocket.
type DeepgramBackend struct {
	APIKey   string
	Endpoint string
	Dialer   *gws.Dialer
}

// NewDeepgramBackend creates a backend for the hosted Deepgram API.
func NewDeepgramBackend(apiKey string) *DeepgramBackend {
	return &DeepgramBackend{
		APIKey:   apiKey,
		Endpoint: DefaultDeepgramURL,
		Dialer:   gws.DefaultDialer,
	}
}

type deepgramMessage struct {
	Type    string `json:"type"`
	IsFinal bool   `json:"is_final"`
	Channel struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"channel"`
}

// Open dials Deepgram with the stream config encoded as query parameters.
func (d *DeepgramBackend) Open(ctx context.Context, cfg StreamConfig) (Stream, error) {
	dgURL, err := d.listenURL(cfg)
	if err != nil {
		return nil, err
	}
	header := http.Header{
		"Authorization": {fmt.Sprintf("Token %s", d.APIKey)},
	}

	dialer := d.Dialer
	if dialer == nil {
		dialer = gws.DefaultDialer
	}
	conn, _, err := dialer.DialContext(ctx, dgURL, header)
	if err != nil {
		return nil, errors.Wrap(err, "deepgram dial")
	}

	s := &deepgramStream{conn: conn, done: make(chan struct{})}
	go func() {
		select {
		case <-ctx.Done():
			_ = s.Close()
		case <-s.done:
		}
	}()
	return s, nil
}

// Close is a no-op; each stream owns its connection.
func (d *DeepgramBackend) Close() error {
	return nil
}

func (d *DeepgramBackend) listenURL(cfg StreamConfig) (string, error) {
	endpoint, err := url.Parse(d.Endpoint)
	if err != nil {
		return "", errors.Wrap(err, "parse deepgram endpoint")
	}

	q := endpoint.Query()
	model := cfg.Model
	if model == "" {
		model = "nova-2-phonecall"
	}
	encoding := cfg.Encoding
	if encoding == "" {
		encoding = EncodingLinear16
	}
	q.Set("model", model)
	q.Set("encoding", encoding)
	q.Set("channels", "1")
	q.Set("punctuate", "true")
	q.Set("interim_results", strconv.FormatBool(cfg.InterimResults))
	if cfg.SampleRate > 0 {
		q.Set("sample_rate", strconv.Itoa(cfg.SampleRate))
	}
	if cfg.LanguageCode != "" {
		q.Set("language", cfg.LanguageCode)
	}
	endpoint.RawQuery = q.Encode()
	return endpoint.String(), nil
}

type deepgramStream struct {
	conn      *gws.Conn
	done      chan struct{}
	closeOnce sync.Once
}

func (s *deepgramStream) Send(audio []byte) error {
	if len(audio) == 0 {
		return nil
	}
	return errors.Wrap(s.conn.WriteMessage(gws.BinaryMessage, audio), "deepgram write")
}

// CloseSend asks Deepgram to flush pending results and close the socket.
func (s *deepgramStream) CloseSend() error {
	msg := []byte(`{"type":"CloseStream"}`)
	return errors.Wrap(s.conn.WriteMessage(gws.TextMessage, msg), "deepgram close stream")
}

func (s *deepgramStream) Recv() (*types.Response, error) {
	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if gws.IsCloseError(err, gws.CloseNormalClosure) {
				return nil, io.EOF
			}
			return nil, errors.Wrap(err, "deepgram read")
		}

		var msg deepgramMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			return nil, errors.Wrap(err, "parse deepgram response")
		}
		// Metadata, SpeechStarted and UtteranceEnd carry no transcript.
		if msg.Type != "" && msg.Type != "Results" {
			continue
		}

		result := types.Result{IsFinal: msg.IsFinal}
		for _, alt := range msg.Channel.Alternatives {
			result.Alternatives = append(result.Alternatives, types.Alternative{
				Transcript: alt.Transcript,
				Confidence: alt.Confidence,
			})
		}
		return &types.Response{Results: []types.Result{result}}, nil
	}
}

func (s *deepgramStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.conn.Close()
	})
	return err
}
