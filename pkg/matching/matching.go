// Package matching provides fuzzy string matching and normalization for
// resolving attendant and client names against mapping tables.
package matching

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/xrash/smetrics"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Jaro-Winkler parameters: standard boost threshold and prefix size.
const (
	jwBoostThreshold = 0.7
	jwPrefixSize     = 4
)

// tokenThreshold is the per-token similarity floor used by AdvancedMatch.
const tokenThreshold = 0.6

var deaccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

var separatorReplacer = strings.NewReplacer(
	"/", " ", "\\", " ", "|", " ", "-", " ",
	"_", " ", "+", " ", "=", " ", "&", " ",
)

// Normalize lowercases, replaces separator punctuation with spaces, strips
// diacritics, drops everything that is not a letter, digit, or space, and
// collapses whitespace. Idempotent.
func Normalize(s string) string {
	lowered := strings.ToLower(s)
	lowered = separatorReplacer.Replace(lowered)

	folded, _, err := transform.String(deaccent, lowered)
	if err != nil {
		folded = lowered
	}

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// Similarity returns the Jaro-Winkler similarity of the normalized inputs,
// in [0, 1]. Empty-on-both-sides yields 0.
func Similarity(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	if na == "" && nb == "" {
		return 0
	}
	return smetrics.JaroWinkler(na, nb, jwBoostThreshold, jwPrefixSize)
}

// Tokenize splits the normalized form of s into words.
func Tokenize(s string) []string {
	return strings.Fields(Normalize(s))
}

// TokenSimilarity returns the fraction of tokens of a whose best Jaro-Winkler
// match among the tokens of b reaches perTokenThreshold.
func TokenSimilarity(a, b string, perTokenThreshold float64) float64 {
	tokensA := Tokenize(a)
	tokensB := Tokenize(b)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}

	matched := 0
	for _, ta := range tokensA {
		best := 0.0
		for _, tb := range tokensB {
			if sim := smetrics.JaroWinkler(ta, tb, jwBoostThreshold, jwPrefixSize); sim > best {
				best = sim
			}
		}
		if best >= perTokenThreshold {
			matched++
		}
	}

	return float64(matched) / float64(len(tokensA))
}

// Contains reports whether the normalized haystack contains the normalized
// needle.
func Contains(haystack, needle string) bool {
	return strings.Contains(Normalize(haystack), Normalize(needle))
}

// MatchDetails records how an AdvancedMatch attempt scored.
type MatchDetails struct {
	Input            string
	Target           string
	NormalizedInput  string
	NormalizedTarget string
	Jaro             float64
	Token            float64
	Final            float64
	Threshold        float64
	IsMatch          bool
	Reason           string
}

// AdvancedMatch combines whole-string Jaro-Winkler with token matching and
// takes the higher score. Token matching lets "Hugo Tisaka" match
// "Hugo / NSA Global" on the shared token even when the full strings differ.
func AdvancedMatch(input, target string, threshold float64) MatchDetails {
	normInput := Normalize(input)
	normTarget := Normalize(target)

	jaro := 0.0
	if normInput != "" || normTarget != "" {
		jaro = smetrics.JaroWinkler(normInput, normTarget, jwBoostThreshold, jwPrefixSize)
	}
	token := TokenSimilarity(input, target, tokenThreshold)

	final := jaro
	if token > final {
		final = token
	}
	isMatch := final >= threshold

	var reason string
	switch {
	case isMatch && jaro >= threshold:
		reason = fmt.Sprintf("jaro-winkler match: %.1f%%", jaro*100)
	case isMatch:
		reason = fmt.Sprintf("token match: %.1f%%", token*100)
	default:
		reason = fmt.Sprintf("no match: jaro-winkler %.1f%%, token %.1f%% (threshold %.1f%%)",
			jaro*100, token*100, threshold*100)
	}

	return MatchDetails{
		Input:            input,
		Target:           target,
		NormalizedInput:  normInput,
		NormalizedTarget: normTarget,
		Jaro:             jaro,
		Token:            token,
		Final:            final,
		Threshold:        threshold,
		IsMatch:          isMatch,
		Reason:           reason,
	}
}
