// Package reply builds chat embed messages from wiki items, keeping every
// part inside the chat service's size limits.
package reply

import "unicode/utf8"

// DefaultSuffix marks truncated text.
const DefaultSuffix = "..."

// Limits are the embed size limits, counted in characters.
type Limits struct {
	Title       int
	Description int
	Fields      int
	FieldName   int
	FieldValue  int
	Total       int
}

// DiscordLimits returns the embed limits enforced by Discord.
func DiscordLimits() Limits {
	return Limits{
		Title:       256,
		Description: 2048,
		Fields:      25,
		FieldName:   256,
		FieldValue:  1024,
		Total:       6000,
	}
}

// LimitLength shortens text to at most max runes, replacing the tail with
// suffix when it has to cut. A negative max is treated as zero.
func LimitLength(text string, max int, suffix string) string {
	if max < 0 {
		max = 0
	}
	if utf8.RuneCountInString(text) <= max {
		return text
	}

	keep := max - utf8.RuneCountInString(suffix)
	if keep <= 0 {
		return string([]rune(suffix)[:max])
	}
	return string([]rune(text)[:keep]) + suffix
}
