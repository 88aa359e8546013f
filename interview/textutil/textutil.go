package textutil

import "strings"

// StripMarkdown removes emphasis markers so the synthesizer does not read
// them aloud. Markers are removed in order: **, *, _, ~~.
func StripMarkdown(s string) string {
	for _, marker := range []string{"**", "*", "_", "~~"} {
		s = strings.ReplaceAll(s, marker, "")
	}
	return s
}

// NormalizeJobID returns the first run of ASCII digits in raw, e.g.
// "job_18" -> "18" and "73.0" -> "73". ok is false when raw has no digit.
func NormalizeJobID(raw string) (id string, ok bool) {
	start := strings.IndexFunc(raw, isDigit)
	if start < 0 {
		return "", false
	}
	end := start
	for end < len(raw) && isDigit(rune(raw[end])) {
		end++
	}
	return raw[start:end], true
}

// JobIDOrRaw is NormalizeJobID falling back to the raw input.
func JobIDOrRaw(raw string) string {
	if id, ok := NormalizeJobID(raw); ok {
		return id
	}
	return raw
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }
