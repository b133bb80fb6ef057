package normalizer

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// Degeneracy thresholds.
const (
	MinRepeatedSubstringLen   = 30
	MinSubstringRepeats       = 3
	MinGreetingRepeats        = 5
	MinRepeatedCharRun        = 10
	MinTokensForUniqueness    = 10
	MinUniqueTokenRatio       = 0.20
	maxSubstringScanRuneCount = 8 * 1024
)

// Rule identifies which degeneracy check fired.
type Rule string

const (
	RuleNone               Rule = ""
	RuleRepeatedSubstring  Rule = "repeated_substring"
	RuleRepeatedGreeting   Rule = "repeated_greeting"
	RuleRepeatedCharacter  Rule = "repeated_character"
	RuleHallucinatedPhrase Rule = "hallucinated_phrase"
	RuleLowUniqueness      Rule = "low_uniqueness"
)

var (
	greetingRun = regexp.MustCompile(fmt.Sprintf(`(?:hello|hey|hi){%d,}`, MinGreetingRepeats))

	hallucinationPhrases = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bwhat(?:'s|’s|s| is)\s+(?:one|1)\s*(?:plus|\+)\s*(?:one|1)\s*\?`),
	}
)

// Detect reports the first degeneracy rule that matches s.
func Detect(s string) (Rule, bool) {
	checks := []struct {
		rule Rule
		fn   func(string) bool
	}{
		{RuleRepeatedSubstring, HasRepeatedSubstring},
		{RuleRepeatedGreeting, HasRepeatedGreeting},
		{RuleRepeatedCharacter, HasRepeatedCharacter},
		{RuleHallucinatedPhrase, HasHallucinatedPhrase},
		{RuleLowUniqueness, HasLowUniqueness},
	}
	for _, c := range checks {
		if c.fn(s) {
			return c.rule, true
		}
	}
	return RuleNone, false
}

// HasRepeatedSubstring reports whether some substring of at least
// MinRepeatedSubstringLen runes occurs MinSubstringRepeats times back to
// back. A block of length p repeated k times is a run of (k-1)*p
// positions where r[i] == r[i+p].
func HasRepeatedSubstring(s string) bool {
	r := []rune(s)
	if len(r) > maxSubstringScanRuneCount {
		r = r[:maxSubstringScanRuneCount]
	}
	n := len(r)

	for p := MinRepeatedSubstringLen; p*MinSubstringRepeats <= n; p++ {
		need := (MinSubstringRepeats - 1) * p
		run := 0
		for i := 0; i+p < n; i++ {
			if r[i] != r[i+p] {
				run = 0
				continue
			}
			run++
			if run >= need {
				return true
			}
		}
	}
	return false
}

// HasRepeatedGreeting ignores case and whitespace.
func HasRepeatedGreeting(s string) bool {
	compact := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, s)
	return greetingRun.MatchString(compact)
}

// HasRepeatedCharacter reports a run of MinRepeatedCharRun identical
// characters. Leading indentation on a line does not count.
func HasRepeatedCharacter(s string) bool {
	var prev rune
	run := 0
	lineStart := true
	for _, r := range s {
		switch {
		case r == '\n':
			lineStart = true
		case lineStart && (r == ' ' || r == '\t'):
			prev, run = 0, 0
			continue
		default:
			lineStart = false
		}

		if run > 0 && r == prev {
			run++
		} else {
			run = 1
		}
		if run >= MinRepeatedCharRun {
			return true
		}
		prev = r
	}
	return false
}

func HasHallucinatedPhrase(s string) bool {
	for _, re := range hallucinationPhrases {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

func HasLowUniqueness(s string) bool {
	tokens := strings.Fields(s)
	if len(tokens) < MinTokensForUniqueness {
		return false
	}
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		seen[t] = struct{}{}
	}
	return float64(len(seen))/float64(len(tokens)) < MinUniqueTokenRatio
}
