package textutil

import (
	"strconv"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestStripMarkdown(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"**Great answer!** Next question.", "Great answer! Next question."},
		{"Use *pointers* and ~~globals~~ wisely", "Use pointers and globals wisely"},
		{"snake_case_name", "snakecasename"},
		{"plain text", "plain text"},
		{"", ""},
		{"~*~ collapses", " collapses"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StripMarkdown(tt.in), tt.in)
	}
}

func TestNormalizeJobID(t *testing.T) {
	tests := []struct {
		raw  string
		want string
		ok   bool
	}{
		{"73", "73", true},
		{"73.0", "73", true},
		{"job_18", "18", true},
		{"job-7-v2", "7", true},
		{"abc", "", false},
		{"", "", false},
		{"٣٤", "", false},
	}
	for _, tt := range tests {
		id, ok := NormalizeJobID(tt.raw)
		assert.Equal(t, tt.want, id, tt.raw)
		assert.Equal(t, tt.ok, ok, tt.raw)
	}

	assert.Equal(t, "42", JobIDOrRaw("job_42"))
	assert.Equal(t, "draft", JobIDOrRaw("draft"))
}

func TestNormalizeJobID_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("result is a non-empty digit run contained in the input", prop.ForAll(
		func(raw string) bool {
			id, ok := NormalizeJobID(raw)
			if !ok {
				return id == "" && strings.IndexFunc(raw, isDigit) < 0
			}
			if id == "" || !strings.Contains(raw, id) {
				return false
			}
			for _, r := range id {
				if !isDigit(r) {
					return false
				}
			}
			return true
		},
		gen.AnyString(),
	))

	properties.Property("prefix and suffix decoration is ignored", prop.ForAll(
		func(prefix string, n uint32, suffix string) bool {
			digits := "1" + strconv.FormatUint(uint64(n), 10)
			id, ok := NormalizeJobID(prefix + digits + "." + suffix)
			return ok && id == digits
		},
		gen.AlphaString(),
		gen.UInt32(),
		gen.AlphaString(),
	))

	properties.Property("stripping is idempotent and removes every marker", prop.ForAll(
		func(s string) bool {
			once := StripMarkdown(s)
			return StripMarkdown(once) == once && !strings.ContainsAny(once, "*_") && !strings.Contains(once, "~~")
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}
