package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTop(t *testing.T) {
	_, ok := Result{IsFinal: true}.Top()
	assert.False(t, ok)

	top, ok := Result{Alternatives: []Alternative{
		{Transcript: "hello", Confidence: 0.8},
		{Transcript: "yellow", Confidence: 0.9},
	}}.Top()
	assert.True(t, ok)
	assert.Equal(t, "hello", top.Transcript)
}
