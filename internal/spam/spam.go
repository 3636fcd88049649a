// Package spam holds the heuristic classifier applied to submissions.
// The rule set is static; false positives are an accepted tradeoff.
package spam

import (
	"regexp"
)

const maxRepeatRun = 10 // one more consecutive repeat flags the text

var (
	keywordPattern = regexp.MustCompile(`(?i)\b(viagra|casino|lottery|winner|prize|click here|buy now)\b`)
	urlPattern     = regexp.MustCompile(`(?i)https?://`)
)

type Detector struct{}

func NewDetector() *Detector {
	return &Detector{}
}

// IsSpam classifies the combined name+subject+message blob.
func (d *Detector) IsSpam(text string) bool {
	if keywordPattern.MatchString(text) {
		return true
	}
	if len(urlPattern.FindAllStringIndex(text, 2)) >= 2 {
		return true
	}
	return hasLongRun(text)
}

// hasLongRun reports a character repeated more than maxRepeatRun times in
// a row. RE2 has no backreferences, so the scan is done by hand.
func hasLongRun(text string) bool {
	var prev rune
	run := 0
	for _, r := range text {
		if r == prev {
			run++
			if run > maxRepeatRun {
				return true
			}
		} else {
			prev = r
			run = 1
		}
	}
	return false
}
