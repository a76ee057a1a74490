package tts

import (
	"strings"

	"golang.org/x/text/language"
)

// matchLocale finds the best language code among the ones an engine offers.
// An exact match wins; otherwise a code with the same base language is used
// (for example "tr" for "tr-TR").
func matchLocale(tag language.Tag, codes []string) (string, bool) {
	want := tag.String()
	base, _ := tag.Base()

	fallback := ""
	for _, code := range codes {
		parsed, err := language.Parse(code)
		if err != nil {
			continue
		}
		if parsed.String() == want {
			return code, true
		}
		if b, _ := parsed.Base(); b == base && fallback == "" {
			fallback = code
		}
	}
	return fallback, fallback != ""
}

// parseSayVoices parses `say -v ?` lines: "Name   en_US    # sample text".
func parseSayVoices(output string) []VoiceInfo {
	var voices []VoiceInfo
	for _, line := range strings.Split(output, "\n") {
		head, sample, _ := strings.Cut(line, "#")
		fields := strings.Fields(head)
		if len(fields) < 2 {
			continue
		}
		locale := fields[len(fields)-1]
		name := strings.Join(fields[:len(fields)-1], " ")
		voices = append(voices, VoiceInfo{
			Name:         name,
			LanguageCode: strings.ReplaceAll(locale, "_", "-"),
			Description:  strings.TrimSpace(sample),
		})
	}
	return voices
}
