package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFrameMedia(t *testing.T) {
	ev, err := DecodeFrame([]byte(`{"event":"media","media":{"payload":"AAEC"}}`))
	require.NoError(t, err)
	assert.Equal(t, EventMedia, ev.Event)

	chunk, err := ev.AudioChunk()
	require.NoError(t, err)
	assert.Equal(t, AudioChunk{0x00, 0x01, 0x02}, chunk)
}

func TestDecodeFrameStop(t *testing.T) {
	ev, err := DecodeFrame([]byte(`{"event":"stop"}`))
	require.NoError(t, err)
	assert.Equal(t, EventStop, ev.Event)
}

func TestDecodeFrameTwilioStart(t *testing.T) {
	ev, err := DecodeFrame([]byte(`{"event":"start","start":{"callSid":"CA1","streamSid":"MZ1"}}`))
	require.NoError(t, err)
	assert.Equal(t, "MZ1", ev.Start.StreamSid)
}

func TestDecodeFrameErrors(t *testing.T) {
	_, err := DecodeFrame([]byte(`not json`))
	assert.Error(t, err)

	_, err = DecodeFrame([]byte(`{"media":{"payload":""}}`))
	assert.ErrorIs(t, err, ErrMissingEvent)
}

func TestAudioChunkBadPayload(t *testing.T) {
	ev, err := DecodeFrame([]byte(`{"event":"media","media":{"payload":"%%%"}}`))
	require.NoError(t, err)

	_, err = ev.AudioChunk()
	assert.Error(t, err)
}

func TestBotResponseEncode(t *testing.T) {
	b, err := NewBotResponse("hi").Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"bot_response","message":"hi"}`, string(b))
}
