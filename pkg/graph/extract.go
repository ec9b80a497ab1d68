package graph

import (
	"regexp"
	"slices"
	"strings"

	"narrativeiq/pkg/schema"
)

var nameRX = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)?\b`)

// stopwords are capitalized sentence-starters and common words that the name
// detector must not mistake for characters.
var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "but": {}, "she": {}, "he": {}, "they": {}, "his": {},
	"her": {}, "its": {}, "then": {}, "when": {}, "where": {}, "while": {},
	"after": {}, "before": {}, "once": {}, "now": {}, "here": {}, "there": {},
	"this": {}, "that": {}, "these": {}, "those": {}, "with": {}, "from": {},
	"into": {}, "over": {}, "under": {}, "what": {}, "why": {}, "how": {},
	"yes": {}, "not": {}, "was": {}, "were": {}, "had": {}, "has": {},
	"however": {}, "meanwhile": {}, "suddenly": {}, "finally": {}, "perhaps": {},
	"chapter": {}, "prologue": {}, "epilogue": {},
}

// themeKeywords maps a theme label to the words whose presence suggests it.
var themeKeywords = map[string][]string{
	"love":       {"love", "heart", "kiss", "romance", "beloved"},
	"war":        {"war", "battle", "soldier", "army", "sword", "enemy"},
	"betrayal":   {"betray", "traitor", "deceive", "lie", "secret"},
	"friendship": {"friend", "companion", "ally", "together", "loyal"},
	"power":      {"power", "throne", "king", "queen", "rule", "crown"},
	"revenge":    {"revenge", "vengeance", "avenge"},
	"family":     {"family", "mother", "father", "sister", "brother", "son", "daughter"},
	"death":      {"death", "die", "dead", "grave", "funeral", "kill"},
	"hope":       {"hope", "dream", "wish", "light", "dawn"},
	"fear":       {"fear", "afraid", "terror", "dread", "nightmare"},
	"journey":    {"journey", "travel", "road", "quest", "voyage"},
	"magic":      {"magic", "spell", "wizard", "enchant", "curse"},
}

// Slugify derives a stable node id from a label: lowercased with internal
// whitespace collapsed to single underscores.
func Slugify(label string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(label))), "_")
}

type candidate struct {
	label    string
	kind     string
	mentions int
}

// ExtractEntities is the local extraction phase: a conservative
// capitalized-name detector plus a theme keyword scan. Names seen at least
// twice survive; single mentions are usually sentence starts.
func ExtractEntities(text string) []schema.Entity {
	counts := map[string]*candidate{}
	for _, m := range nameRX.FindAllString(text, -1) {
		m = strings.Join(strings.Fields(m), " ")
		if len(m) < 3 {
			continue
		}
		if _, skip := stopwords[strings.ToLower(m)]; skip {
			continue
		}
		key := strings.ToLower(m)
		if c, ok := counts[key]; ok {
			c.mentions++
		} else {
			counts[key] = &candidate{label: m, kind: "character", mentions: 1}
		}
	}

	var out []candidate
	for _, c := range counts {
		if c.mentions >= 2 {
			out = append(out, *c)
		}
	}

	lower := strings.ToLower(text)
	for theme, words := range themeKeywords {
		hits := 0
		for _, w := range words {
			hits += strings.Count(lower, w)
		}
		if hits >= 2 {
			out = append(out, candidate{label: theme, kind: "theme", mentions: hits})
		}
	}

	slices.SortFunc(out, func(a, b candidate) int {
		if a.mentions != b.mentions {
			return b.mentions - a.mentions
		}
		return strings.Compare(a.label, b.label)
	})

	entities := make([]schema.Entity, 0, len(out))
	for _, c := range out {
		entities = append(entities, schema.Entity{
			ID:       Slugify(c.label),
			Label:    c.label,
			Type:     c.kind,
			Mentions: c.mentions,
		})
	}
	return entities
}

// localThemes is the keyword-frequency fallback used when the model supplies
// no themes.
func localThemes(text string) []string {
	lower := strings.ToLower(text)
	type scored struct {
		theme string
		hits  int
	}
	var arr []scored
	for theme, words := range themeKeywords {
		hits := 0
		for _, w := range words {
			hits += strings.Count(lower, w)
		}
		if hits >= 2 {
			arr = append(arr, scored{theme, hits})
		}
	}
	slices.SortFunc(arr, func(a, b scored) int {
		if a.hits != b.hits {
			return b.hits - a.hits
		}
		return strings.Compare(a.theme, b.theme)
	})
	out := make([]string, 0, len(arr))
	for _, s := range arr {
		out = append(out, s.theme)
	}
	return out
}
