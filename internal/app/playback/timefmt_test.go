package playback

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatTime(t *testing.T) {
	tests := []struct {
		name     string
		seconds  float64
		expected string
	}{
		{name: "zero", seconds: 0, expected: "0:00"},
		{name: "one minute five", seconds: 65, expected: "1:05"},
		{name: "fraction truncated", seconds: 59.99, expected: "0:59"},
		{name: "last second of hour", seconds: 3599, expected: "59:59"},
		{name: "minutes not capped", seconds: 3600, expected: "60:00"},
		{name: "unknown", seconds: math.NaN(), expected: "0:00"},
		{name: "infinite", seconds: math.Inf(1), expected: "0:00"},
		{name: "negative", seconds: -3, expected: "0:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatTime(tt.seconds))
		})
	}
}

func TestKnownDuration(t *testing.T) {
	assert.True(t, knownDuration(0.5))
	assert.False(t, knownDuration(0))
	assert.False(t, knownDuration(-1))
	assert.False(t, knownDuration(math.NaN()))
	assert.False(t, knownDuration(math.Inf(1)))
}
