package stt

import (
	"testing"

	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoogleStreamingConfig(t *testing.T) {
	cfg := googleStreamingConfig(StreamConfig{
		SampleRate:     8000,
		Encoding:       EncodingLinear16,
		LanguageCode:   "en-IN",
		InterimResults: true,
	})

	assert.True(t, cfg.GetInterimResults())
	assert.Equal(t, speechpb.RecognitionConfig_LINEAR16, cfg.GetConfig().GetEncoding())
	assert.Equal(t, int32(8000), cfg.GetConfig().GetSampleRateHertz())
	assert.Equal(t, "en-IN", cfg.GetConfig().GetLanguageCode())
}

func TestGoogleStreamingConfigMulaw(t *testing.T) {
	cfg := googleStreamingConfig(StreamConfig{SampleRate: 8000, Encoding: EncodingMulaw, LanguageCode: "en-US"})
	assert.Equal(t, speechpb.RecognitionConfig_MULAW, cfg.GetConfig().GetEncoding())
	assert.False(t, cfg.GetInterimResults())
}

func TestGoogleResponseKeepsRankAndFinality(t *testing.T) {
	resp := googleResponse(&speechpb.StreamingRecognizeResponse{
		Results: []*speechpb.StreamingRecognitionResult{
			{
				IsFinal: false,
				Alternatives: []*speechpb.SpeechRecognitionAlternative{
					{Transcript: "hel", Confidence: 0.1},
				},
			},
			{
				IsFinal: true,
				Alternatives: []*speechpb.SpeechRecognitionAlternative{
					{Transcript: "hello there", Confidence: 0.9},
					{Transcript: "yellow there", Confidence: 0.4},
				},
			},
		},
	})

	require.Len(t, resp.Results, 2)
	assert.False(t, resp.Results[0].IsFinal)
	assert.True(t, resp.Results[1].IsFinal)

	top, ok := resp.Results[1].Top()
	require.True(t, ok)
	assert.Equal(t, "hello there", top.Transcript)
	assert.InDelta(t, 0.9, top.Confidence, 0.001)
}
