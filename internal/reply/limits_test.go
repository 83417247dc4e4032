package reply

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLimitLength(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		max    int
		suffix string
		want   string
	}{
		{"short", "hello", 10, "...", "hello"},
		{"exact", "hello", 5, "...", "hello"},
		{"cut", "hello world", 8, "...", "hello..."},
		{"runes", "ééééé", 4, "...", "é..."},
		{"empty suffix", "hello world", 5, "", "hello"},
		{"suffix longer than max", "abcdef", 2, "...", ".."},
		{"zero max", "hello", 0, "...", ""},
		{"negative max", "hello", -1, "...", ""},
		{"negative max empty text", "", -5, "...", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LimitLength(tt.text, tt.max, tt.suffix))
		})
	}
}

func TestDiscordLimits(t *testing.T) {
	l := DiscordLimits()
	assert.Equal(t, 256, l.Title)
	assert.Equal(t, 2048, l.Description)
	assert.Equal(t, 25, l.Fields)
	assert.Equal(t, 256, l.FieldName)
	assert.Equal(t, 1024, l.FieldValue)
	assert.Equal(t, 6000, l.Total)
}
