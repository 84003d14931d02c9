package chat

import (
	"strings"

	ahocorasick "github.com/petar-dambovaliev/aho-corasick"
)

// Moderator masks disallowed phrases in message bodies before fan-out.
type Moderator struct {
	matcher ahocorasick.AhoCorasick
}

func NewModerator(patterns []string) *Moderator {
	builder := ahocorasick.NewAhoCorasickBuilder(ahocorasick.Opts{
		AsciiCaseInsensitive: true,
		MatchOnlyWholeWords:  true,
		MatchKind:            ahocorasick.LeftMostLongestMatch,
	})
	return &Moderator{matcher: builder.Build(patterns)}
}

// Redact replaces each disallowed phrase with asterisks of the same length.
func (m *Moderator) Redact(body string) string {
	matches := m.matcher.FindAll(body)
	if len(matches) == 0 {
		return body
	}

	out := []byte(body)
	for _, match := range matches {
		mask := strings.Repeat("*", match.End()-match.Start())
		copy(out[match.Start():match.End()], mask)
	}
	return string(out)
}
