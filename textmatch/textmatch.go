// Package textmatch compares titles and names coming from catalogs that disagree on
// punctuation, featured artists and edition suffixes.
package textmatch

import (
	"regexp"
	"strings"
)

// MinSimilarity is the similarity above which two cleaned titles are considered the same
const MinSimilarity = 0.9

var (
	parenthesesRe = regexp.MustCompile(`\([^)]*\)`)
	bracketsRe    = regexp.MustCompile(`\[[^\]]*\]`)
	bracesRe      = regexp.MustCompile(`\{[^}]*\}`)
	spacesRe      = regexp.MustCompile(`\s+`)
)

var featuringPatterns = []string{
	" featuring ",
	" feat. ",
	" feat ",
	" ft. ",
	" ft ",
}

var commonSuffixes = []string{
	" - bonus track",
	" - remix",
	" - extended",
	" - radio edit",
	" - single edit",
	" - edit",
	" - version",
	" - live",
	" - acoustic",
	" - instrumental",
	" - demo",
	" - original mix",
	" - club mix",
	" - clean",
	" - explicit",
	" - bonus",
	" - track",
	" - remastered",
	" - deluxe",
	" - deluxe edition",
	" - expanded edition",
	" - anniversary edition",
	" - single",
	" - ep",
	" - from the motion picture",
	" - from the film",
	" - from the movie",
	" - from the soundtrack",
	" - soundtrack version",
	" - film version",
	" - movie version",
	" (bonus track)",
	" (remix)",
	" (extended)",
	" (radio edit)",
	" (single edit)",
	" (edit)",
	" (version)",
	" (live)",
	" (acoustic)",
	" (instrumental)",
	" (demo)",
	" (original mix)",
	" (club mix)",
	" (clean)",
	" (explicit)",
	" (bonus)",
	" (track)",
	" (remastered)",
	" (deluxe)",
	" (deluxe edition)",
	" (expanded edition)",
	" (from the soundtrack)",
	" (soundtrack version)",
	" (film version)",
	" (movie version)",
}

// Patterns whose quoted tail varies, so only the prefix is matched
var soundtrackPatterns = []string{
	" - from the motion picture",
	" - from the film",
	" - from the movie",
	" - love theme from",
	"(from the motion picture",
	"(from the film",
	"(from the movie",
	"(love theme from",
}

// Indexes are taken on the original string, never on a lower-cased copy: lower-casing can
// change the byte length of a rune.
var (
	featuringRes    = foldPatterns(featuringPatterns, "")
	commonSuffixRes = foldPatterns(commonSuffixes, "$")
	soundtrackRes   = foldPatterns(soundtrackPatterns, "")
)

func foldPatterns(patterns []string, anchor string) []*regexp.Regexp {
	res := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		res[i] = regexp.MustCompile("(?i)" + regexp.QuoteMeta(p) + anchor)
	}
	return res
}

// RemoveBrackets removes text in parentheses, square brackets and curly brackets
func RemoveBrackets(s string) string {
	s = parenthesesRe.ReplaceAllString(s, "")
	s = bracketsRe.ReplaceAllString(s, "")
	s = bracesRe.ReplaceAllString(s, "")
	return collapseSpaces(s)
}

// RemoveFeaturing removes "featuring" and any text after it
func RemoveFeaturing(s string) string {
	for _, re := range featuringRes {
		if matches := re.FindAllStringIndex(s, -1); len(matches) > 0 {
			return strings.TrimSpace(s[:matches[len(matches)-1][0]])
		}
	}

	return s
}

// RemoveCommonSuffixes removes suffixes like "bonus track", "remix" or "deluxe edition"
func RemoveCommonSuffixes(s string) string {
	for _, re := range commonSuffixRes {
		if loc := re.FindStringIndex(s); loc != nil {
			return trimDash(s[:loc[0]])
		}
	}

	for _, re := range soundtrackRes {
		if loc := re.FindStringIndex(s); loc != nil && loc[0] > 0 {
			return trimDash(s[:loc[0]])
		}
	}

	return s
}

// NormalizeTitle lower-cases a title and turns " - part" segments into "(part)"
//
// "Mood Ring (By Demand) - Pride Remix" -> "mood ring (by demand) (pride remix)"
func NormalizeTitle(s string) string {
	s = strings.ToLower(s)

	parts := strings.Split(s, " - ")
	if len(parts) > 1 {
		var b strings.Builder
		b.WriteString(parts[0])
		for _, part := range parts[1:] {
			b.WriteString(" (")
			b.WriteString(strings.TrimSpace(part))
			b.WriteString(")")
		}
		s = b.String()
	}

	return collapseSpaces(s)
}

var punctuationReplacer = strings.NewReplacer(
	"‐", "-",
	"–", "-",
	"—", "-",
	"―", "-",
	"×", "x",
	"’", "'",
	"‘", "'",
	"`", "'",
	"′", "'",
	"“", "\"",
	"”", "\"",
	"&", "and",
)

// NormalizePunctuation maps typographic dashes, quotes and symbols to plain ASCII
func NormalizePunctuation(s string) string {
	return punctuationReplacer.Replace(s)
}

// Clean reduces a title to the form used for comparisons
func Clean(s string) string {
	s = NormalizePunctuation(s)
	s = RemoveCommonSuffixes(s)
	s = RemoveFeaturing(s)
	s = NormalizeTitle(s)
	s = RemoveBrackets(s)
	return collapseSpaces(s)
}

// SameName reports whether two artist names refer to the same artist
func SameName(a, b string) bool {
	return strings.EqualFold(
		collapseSpaces(NormalizePunctuation(a)),
		collapseSpaces(NormalizePunctuation(b)),
	)
}

// SameTitle reports whether two album or track titles refer to the same release
func SameTitle(a, b string) bool {
	if strings.EqualFold(a, b) {
		return true
	}

	ca, cb := Clean(a), Clean(b)
	if ca == "" || cb == "" {
		return false
	}
	return ca == cb || Similarity(ca, cb) >= MinSimilarity
}

// Similarity returns a score in [0, 1]: substring coverage when one string contains the
// other, otherwise a weighted mix of shared words and length difference
func Similarity(s1, s2 string) float64 {
	if s1 == s2 {
		return 1.0
	}

	if s1 == "" || s2 == "" {
		return 0.0
	}

	if strings.Contains(s1, s2) || strings.Contains(s2, s1) {
		longer, shorter := s1, s2
		if len(s2) > len(s1) {
			longer, shorter = s2, s1
		}
		return float64(len(shorter)) / float64(len(longer))
	}

	words1 := strings.Fields(s1)
	words2 := strings.Fields(s2)
	if len(words1) == 0 || len(words2) == 0 {
		return 0.0
	}

	matchingWords := 0
	for _, word1 := range words1 {
		for _, word2 := range words2 {
			if word1 == word2 {
				matchingWords++
				break
			}
		}
	}

	wordSimilarity := float64(matchingWords) / float64(max(len(words1), len(words2)))
	lengthSimilarity := 1.0 - float64(abs(len(s1)-len(s2)))/float64(max(len(s1), len(s2)))

	return (wordSimilarity * 0.7) + (lengthSimilarity * 0.3)
}

func collapseSpaces(s string) string {
	return spacesRe.ReplaceAllString(strings.TrimSpace(s), " ")
}

func trimDash(s string) string {
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "-"))
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
