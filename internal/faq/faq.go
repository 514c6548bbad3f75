package faq

import "strings"

// Separator is the literal token delimiting a question from its answer inside
// one training text and at the end of a generation prompt.
const Separator = "###"

// Pair is one question with its canonical answer. Pairs produced by Parse
// always have both fields non-empty.
type Pair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Parse extracts question/answer pairs from raw multi-line FAQ text.
//
// Only lines containing both a "Q:" and an "A:" marker are considered. Each
// candidate line is split at the first "A:"; the left half has its "Q:"
// markers removed and becomes the question, the right half becomes the
// answer, both trimmed of surrounding whitespace. Lines missing either marker
// are skipped silently, as are pairs whose question or answer ends up empty.
// The parse is lossy and best-effort: a question that itself contains "A:" is
// mis-split at the first occurrence, a known limitation of the format.
//
// Output order follows input line order. Parse never fails.
func Parse(raw string) []Pair {
	var pairs []Pair
	for _, line := range strings.Split(raw, "\n") {
		if !strings.Contains(line, "Q:") || !strings.Contains(line, "A:") {
			continue
		}
		qPart, aPart, _ := strings.Cut(line, "A:")
		question := strings.TrimSpace(strings.ReplaceAll(qPart, "Q:", ""))
		answer := strings.TrimSpace(aPart)
		if question == "" || answer == "" {
			continue
		}
		pairs = append(pairs, Pair{Question: question, Answer: answer})
	}
	return pairs
}

// AfterLastSeparator returns the portion of text following the last
// occurrence of the separator token, trimmed of surrounding whitespace. When
// the separator is absent the whole trimmed text is returned, which can echo
// a prompt back to the caller; that fallback is deliberate.
func AfterLastSeparator(text string) string {
	if i := strings.LastIndex(text, Separator); i >= 0 {
		return strings.TrimSpace(text[i+len(Separator):])
	}
	return strings.TrimSpace(text)
}
