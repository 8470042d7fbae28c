package output

import (
	"errors"
	"io"
	"testing"

	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	types    []int
	messages []string
	err      error
}

func (w *recordingWriter) WriteMessage(messageType int, data []byte) error {
	if w.err != nil {
		return w.err
	}
	w.types = append(w.types, messageType)
	w.messages = append(w.messages, string(data))
	return nil
}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestSendReply(t *testing.T) {
	w := &recordingWriter{}
	out, err := NewWebsocketOutput(w, quietLogger())
	require.NoError(t, err)

	require.NoError(t, out.SendReply("Hello! How can I help you today?"))
	require.Len(t, w.messages, 1)
	assert.Equal(t, websocket.TextMessage, w.types[0])
	assert.JSONEq(t, `{"event":"bot_response","message":"Hello! How can I help you today?"}`, w.messages[0])
	assert.Equal(t, 1, out.Sent())
}

func TestSendReplyWriteError(t *testing.T) {
	w := &recordingWriter{err: errors.New("broken pipe")}
	out, err := NewWebsocketOutput(w, quietLogger())
	require.NoError(t, err)

	assert.Error(t, out.SendReply("hi"))
	assert.Equal(t, 0, out.Sent())
}

func TestNewWebsocketOutputRequiresConn(t *testing.T) {
	_, err := NewWebsocketOutput(nil, quietLogger())
	assert.Error(t, err)
}
