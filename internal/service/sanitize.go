package service

import (
	"strings"
	"unicode"
)

// maxPromptFieldLen caps a single untrusted value embedded in the
// narrative prompt.
const maxPromptFieldLen = 500

var roleMarkers = []string{
	"system:", "assistant:", "user:", "[system]", "[assistant]",
	"<|system|>", "<|assistant|>", "<|im_start|>",
	"### system", "### assistant", "### instruction",
}

// sanitizePromptField prepares one attacker-controlled value (subject,
// sender, finding text) for the narrative prompt. The result is a single
// line without control characters. Values opening with a chat role marker
// are prefixed with "[sanitized]" so the model reads them as data.
func sanitizePromptField(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			return ' '
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, s)
	s = strings.TrimSpace(s)

	lower := strings.ToLower(s)
	for _, prefix := range roleMarkers {
		if strings.HasPrefix(lower, prefix) {
			s = "[sanitized] " + s
			break
		}
	}

	if r := []rune(s); len(r) > maxPromptFieldLen {
		s = string(r[:maxPromptFieldLen]) + " [truncated]"
	}
	return s
}
