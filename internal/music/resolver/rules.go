package resolver

import (
	"strings"

	"psi-musicbot/internal/music/extractor"
)

type Provider string

const (
	ProviderIcecast Provider = "icecast"
	ProviderTwitch  Provider = "twitch"
	ProviderYouTube Provider = "youtube"
)

// FormatAudioOnly is the format id Twitch uses for its audio-only rendition.
const FormatAudioOnly = "audio_only"

// Selector picks one format variant, reporting false when none qualifies.
type Selector func(formats []extractor.Format) (extractor.Format, bool)

// Rule binds a provider predicate on the source URL to a variant selector.
type Rule struct {
	Provider Provider
	Match    func(url string) bool
	Select   Selector
}

// DefaultRules returns the provider table in evaluation order. The first
// matching rule wins, so a URL naming both icecast and twitch is Icecast.
func DefaultRules() []Rule {
	return []Rule{
		{Provider: ProviderIcecast, Match: Contains("icecast"), Select: FirstFormat},
		{Provider: ProviderTwitch, Match: Contains("twitch"), Select: FormatIDIs(FormatAudioOnly)},
		{Provider: ProviderYouTube, Match: Contains("youtube"), Select: FormatNoteIs(extractor.NoteDefault)},
	}
}

// Classify returns the first rule whose predicate accepts url.
func Classify(rules []Rule, url string) (Rule, bool) {
	for _, r := range rules {
		if r.Match(url) {
			return r, true
		}
	}
	return Rule{}, false
}

func Contains(substr string) func(string) bool {
	return func(url string) bool {
		return strings.Contains(url, substr)
	}
}

func FirstFormat(formats []extractor.Format) (extractor.Format, bool) {
	if len(formats) == 0 {
		return extractor.Format{}, false
	}
	return formats[0], true
}

func FormatIDIs(id string) Selector {
	return firstWhere(func(f extractor.Format) bool { return f.FormatID == id })
}

func FormatNoteIs(note string) Selector {
	return firstWhere(func(f extractor.Format) bool { return f.Note == note })
}

func firstWhere(pred func(extractor.Format) bool) Selector {
	return func(formats []extractor.Format) (extractor.Format, bool) {
		for _, f := range formats {
			if pred(f) {
				return f, true
			}
		}
		return extractor.Format{}, false
	}
}
