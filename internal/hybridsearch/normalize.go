package hybridsearch

import (
	"regexp"
	"strings"
)

// stopWords is the bilingual (English/Spanish) stop-word set spec §4.8
// calls for ("~50 entries"). It is a fixed closed list, not
// locale-configurable, matching the spec's "configured stop-word set"
// language interpreted as a shipped default.
var stopWords = buildStopWordSet(
	// English
	"a", "an", "and", "are", "as", "at", "be", "by", "for", "from",
	"has", "have", "he", "in", "is", "it", "its", "of", "on", "that",
	"the", "to", "was", "were", "will", "with", "this", "these", "those",
	"but", "or", "not", "what", "which", "who", "whom", "their", "they",
	// Spanish
	"el", "la", "los", "las", "un", "una", "unos", "unas", "y", "en",
	"de", "del", "que", "es", "por", "para", "con", "su", "sus", "se",
	"lo", "al",
)

var whitespaceRun = regexp.MustCompile(`\s+`)

func buildStopWordSet(words ...string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

// NormalizeQuery trims, lowercases, collapses whitespace, and removes
// stop words (spec §4.8 phase 1). If stop-word removal empties the
// result, the pre-stop-word (trimmed/lowercased/collapsed) query is
// returned instead, since an empty query can't drive retrieval.
func NormalizeQuery(query string) string {
	collapsed := whitespaceRun.ReplaceAllString(strings.ToLower(strings.TrimSpace(query)), " ")
	if collapsed == "" {
		return collapsed
	}

	tokens := strings.Split(collapsed, " ")
	kept := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if !stopWords[tok] {
			kept = append(kept, tok)
		}
	}
	if len(kept) == 0 {
		return collapsed
	}
	return strings.Join(kept, " ")
}
